package repository

import (
	"fmt"
	"io"
	"math"
	"os"
	"sort"
	"time"

	"signalbacktest/internal/domain"
	"signalbacktest/internal/util"

	"github.com/gocarina/gocsv"
)

// SecurityRepository is the read side of the price universe. Series are
// immutable once loaded; the engines only ever look prices up.
type SecurityRepository interface {
	Get(symbol string) (*domain.SecuritySeries, error)
	List() map[string]*domain.SecuritySeries
	Symbols() []string
	// TradingDays returns the sorted union of observed dates in [start, end].
	TradingDays(start, end time.Time) []time.Time
}

type securityRepositoryHandler struct {
	series map[string]*domain.SecuritySeries
}

func NewSecurityRepository(series map[string]*domain.SecuritySeries) SecurityRepository {
	return &securityRepositoryHandler{series: series}
}

func (h *securityRepositoryHandler) Get(symbol string) (*domain.SecuritySeries, error) {
	s, ok := h.series[symbol]
	if !ok {
		return nil, fmt.Errorf("unknown security %s", symbol)
	}
	return s, nil
}

func (h *securityRepositoryHandler) List() map[string]*domain.SecuritySeries {
	return h.series
}

func (h *securityRepositoryHandler) Symbols() []string {
	symbols := []string{}
	for symbol := range h.series {
		symbols = append(symbols, symbol)
	}
	sort.Strings(symbols)
	return symbols
}

func (h *securityRepositoryHandler) TradingDays(start, end time.Time) []time.Time {
	seen := map[time.Time]bool{}
	for _, s := range h.series {
		for _, d := range s.Dates {
			if !d.Before(start) && !d.After(end) {
				seen[d] = true
			}
		}
	}
	days := make([]time.Time, 0, len(seen))
	for d := range seen {
		days = append(days, d)
	}
	sort.Slice(days, func(i, j int) bool { return days[i].Before(days[j]) })
	return days
}

type priceRow struct {
	Date   string   `csv:"date"`
	Symbol string   `csv:"symbol"`
	Open   *float64 `csv:"open,omitempty"`
	High   *float64 `csv:"high,omitempty"`
	Low    *float64 `csv:"low,omitempty"`
	Close  *float64 `csv:"close,omitempty"`
	Volume *float64 `csv:"volume,omitempty"`
}

// LoadUniverseCSV reads daily price rows (date,symbol,open,high,low,close,
// volume - only date, symbol and close are required) and groups them into
// per-security series. Blank cells become NaN. A duplicate (symbol, date)
// keeps the later row.
func LoadUniverseCSV(r io.Reader) (SecurityRepository, error) {
	rows := []priceRow{}
	if err := gocsv.Unmarshal(r, &rows); err != nil {
		return nil, fmt.Errorf("failed to parse price csv: %w", err)
	}

	type obs struct {
		open, high, low, close, volume float64
	}
	bySymbol := map[string]map[time.Time]obs{}
	for _, row := range rows {
		if row.Symbol == "" {
			return nil, fmt.Errorf("price csv row missing symbol (date %q)", row.Date)
		}
		date, err := util.ParseDay(row.Date)
		if err != nil {
			return nil, err
		}
		if _, ok := bySymbol[row.Symbol]; !ok {
			bySymbol[row.Symbol] = map[time.Time]obs{}
		}
		bySymbol[row.Symbol][date] = obs{
			open:   deref(row.Open),
			high:   deref(row.High),
			low:    deref(row.Low),
			close:  deref(row.Close),
			volume: deref(row.Volume),
		}
	}

	series := map[string]*domain.SecuritySeries{}
	for symbol, byDate := range bySymbol {
		dates := make([]time.Time, 0, len(byDate))
		for d := range byDate {
			dates = append(dates, d)
		}
		sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })

		s := &domain.SecuritySeries{
			Symbol: symbol,
			Dates:  dates,
			Close:  make([]float64, len(dates)),
			Open:   make([]float64, len(dates)),
			High:   make([]float64, len(dates)),
			Low:    make([]float64, len(dates)),
			Volume: make([]float64, len(dates)),
		}
		for i, d := range dates {
			o := byDate[d]
			s.Close[i] = o.close
			s.Open[i] = o.open
			s.High[i] = o.high
			s.Low[i] = o.low
			s.Volume[i] = o.volume
		}
		series[symbol] = s
	}

	return NewSecurityRepository(series), nil
}

// LoadUniverseCSVFile is LoadUniverseCSV over a file path.
func LoadUniverseCSVFile(path string) (SecurityRepository, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open price csv: %w", err)
	}
	defer f.Close()

	return LoadUniverseCSV(f)
}

func deref(f *float64) float64 {
	if f == nil {
		return math.NaN()
	}
	return *f
}
