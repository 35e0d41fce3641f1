package l1_service

import (
	"fmt"
	"time"

	"signalbacktest/internal/repository"
)

/**

behavior - when an engine or an expression asks for a price, it should get it
without touching the underlying series again. the cache is loaded once per run
for the run's window and only holds usable quotes, so a miss either means a
non-trading day or a missing/bad observation - callers decide which of those
is fine to skip.

*/

type PriceService interface {
	LoadPriceCache(symbols []string, start, end time.Time) (*PriceCache, error)
}

type priceServiceHandler struct {
	SecurityRepository repository.SecurityRepository
}

func NewPriceService(securityRepository repository.SecurityRepository) PriceService {
	return &priceServiceHandler{SecurityRepository: securityRepository}
}

type PriceCache struct {
	// symbol -> yyyy-mm-dd -> close
	prices      map[string]map[string]float64
	tradingDays []time.Time
}

// Get retrieves the closing price for a security on the given day.
func (pr *PriceCache) Get(symbol string, date time.Time) (float64, error) {
	if _, ok := pr.prices[symbol]; ok {
		if price, ok := pr.prices[symbol][date.Format(time.DateOnly)]; ok {
			return price, nil
		}
	}
	return 0, fmt.Errorf("price cache miss %s %s", symbol, date.Format(time.DateOnly))
}

// HasQuote reports whether the security has a usable close on the date.
func (pr *PriceCache) HasQuote(symbol string, date time.Time) bool {
	_, err := pr.Get(symbol, date)
	return err == nil
}

func (pr *PriceCache) TradingDays() []time.Time {
	return pr.tradingDays
}

// LoadPriceCache indexes every usable quote of the requested symbols inside
// [start, end]. NaN and non-positive closes are left out, so lookups against
// them miss like any other absent observation.
func (h *priceServiceHandler) LoadPriceCache(symbols []string, start, end time.Time) (*PriceCache, error) {
	cache := map[string]map[string]float64{}
	for _, symbol := range symbols {
		series, err := h.SecurityRepository.Get(symbol)
		if err != nil {
			return nil, fmt.Errorf("failed to load price cache: %w", err)
		}
		for i, d := range series.Dates {
			if d.Before(start) || d.After(end) {
				continue
			}
			price, ok := series.CloseAt(i)
			if !ok {
				continue
			}
			if _, ok := cache[symbol]; !ok {
				cache[symbol] = map[string]float64{}
			}
			cache[symbol][d.Format(time.DateOnly)] = price
		}
	}

	return &PriceCache{
		prices:      cache,
		tradingDays: h.SecurityRepository.TradingDays(start, end),
	}, nil
}
