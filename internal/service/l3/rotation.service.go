package l3_service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"signalbacktest/internal/domain"
	"signalbacktest/internal/logger"
	l1_service "signalbacktest/internal/service/l1"

	"github.com/shopspring/decimal"
)

// RotationService is the periodic-ideal engine: buy a basket at period start,
// hold, liquidate everything at period end. Shares are continuously divisible
// and allocation happens once per period over the whole cash balance, so the
// lot and same-day-contention machinery of the signal engine doesn't apply.
type RotationService interface {
	RunRotationBacktest(ctx context.Context, in RunRotationBacktestInput) (*BacktestRun, error)
}

type RunRotationBacktestInput struct {
	Config domain.RunConfig
	Plans  []domain.PeriodPlan
	Prices *l1_service.PriceCache
}

type rotationServiceHandler struct{}

func NewRotationService() RotationService {
	return rotationServiceHandler{}
}

func (h rotationServiceHandler) RunRotationBacktest(ctx context.Context, in RunRotationBacktestInput) (*BacktestRun, error) {
	log := logger.FromContext(ctx)

	if err := in.Config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid run config: %w", err)
	}

	plans := []domain.PeriodPlan{}
	for _, plan := range in.Plans {
		if !plan.BuyDate.Before(plan.SellDate) {
			return nil, fmt.Errorf("period %s: buy date %s is not before sell date %s",
				plan.PeriodKey, plan.BuyDate.Format(time.DateOnly), plan.SellDate.Format(time.DateOnly))
		}
		// plans outside the window are never considered
		if in.Config.InWindow(plan.BuyDate) && in.Config.InWindow(plan.SellDate) {
			plans = append(plans, plan)
		}
	}
	sort.Slice(plans, func(i, j int) bool { return plans[i].BuyDate.Before(plans[j].BuyDate) })

	p := domain.NewPortfolio(in.Config.InitialCapital)
	curve := domain.EquityCurve{}
	trades := []domain.TradeRecord{}
	feeRate := in.Config.FeeRate()
	stampRate := in.Config.StampRate()
	one := decimal.NewFromInt(1)

	var active *domain.PeriodPlan
	nextPlan := 0

	for _, date := range in.Prices.TradingDays() {
		if !in.Config.InWindow(date) {
			continue
		}

		// mark first so a period close values positions at today's close
		for _, symbol := range p.HeldSymbols() {
			price, err := in.Prices.Get(symbol, date)
			if err != nil {
				continue // no quote, carry last mark
			}
			mark := decimal.NewFromFloat(price)
			pos := p.Positions[symbol]
			if !mark.Equal(pos.LastMark) {
				p.MarketValue = p.MarketValue.Add(pos.Shares.Mul(mark.Sub(pos.LastMark)))
				pos.LastMark = mark
			}
		}

		if active != nil && date.Equal(active.SellDate) {
			for _, symbol := range p.HeldSymbols() {
				pos := p.Positions[symbol]
				gross := pos.MarkedValue()
				fee := gross.Mul(feeRate)
				stamp := gross.Mul(stampRate)
				net := gross.Sub(fee).Sub(stamp)

				p.Cash = p.Cash.Add(net)
				p.MarketValue = p.MarketValue.Sub(gross)

				pnl := net.Sub(pos.CostBasis)
				trades = append(trades, domain.TradeRecord{
					Symbol:     symbol,
					EntryDate:  pos.EntryDate,
					ExitDate:   date,
					EntryPrice: pos.EntryPrice,
					ExitPrice:  pos.LastMark,
					Shares:     pos.Shares,
					Pnl:        pnl,
					Return:     pnl.Div(pos.CostBasis),
					Reason:     domain.EventReason_PeriodExit,
				})
				delete(p.Positions, symbol)
			}
			active = nil
		}

		for nextPlan < len(plans) && !plans[nextPlan].BuyDate.After(date) {
			plan := plans[nextPlan]
			nextPlan++
			if !plan.BuyDate.Equal(date) {
				continue // buy date wasn't an observed trading day for anything we track
			}
			if active != nil {
				log.Warnf("skipping period %s: period %s still holds through %s",
					plan.PeriodKey, active.PeriodKey, active.SellDate.Format(time.DateOnly))
				continue
			}
			if err := h.openPeriod(p, plan, in.Prices, feeRate, one); err != nil {
				return nil, err
			}
			active = &plan
		}

		curve.Observe(date, p.Equity())
	}

	log.Infow("rotation replay complete",
		"periods", len(plans),
		"trades", len(trades),
		"finalEquity", p.Equity().String(),
	)

	return &BacktestRun{
		EquityCurve:  curve,
		Trades:       trades,
		EndPortfolio: p,
	}, nil
}

// openPeriod splits the entire cash balance equally across the plan's
// surviving picks. A pick survives only with a usable quote on both the buy
// and the sell date - no partial entries, the whole period is skipped for it
// otherwise. Shares are continuous; the entry fee is netted out of each
// pick's slice, so cost basis is exactly the slice.
func (h rotationServiceHandler) openPeriod(p *domain.Portfolio, plan domain.PeriodPlan, prices *l1_service.PriceCache, feeRate, one decimal.Decimal) error {
	survivors := []string{}
	seen := map[string]bool{}
	buyPrices := map[string]decimal.Decimal{}
	for _, symbol := range plan.Picks {
		if seen[symbol] {
			continue
		}
		seen[symbol] = true
		buyPrice, err := prices.Get(symbol, plan.BuyDate)
		if err != nil || !prices.HasQuote(symbol, plan.SellDate) {
			continue
		}
		survivors = append(survivors, symbol)
		buyPrices[symbol] = decimal.NewFromFloat(buyPrice)
	}
	if len(survivors) == 0 {
		return nil
	}
	sort.Strings(survivors)

	slice := p.Cash.Div(decimal.NewFromInt(int64(len(survivors))))
	for i, symbol := range survivors {
		// the equal slice is a rounded quotient; hand the last survivor
		// whatever cash is actually left so the split never overdraws
		if i == len(survivors)-1 {
			slice = p.Cash
		}
		price := buyPrices[symbol]
		shares := slice.Div(price.Mul(one.Add(feeRate)))
		err := p.Open(&domain.Position{
			Symbol:     symbol,
			Shares:     shares,
			LastMark:   price,
			EntryDate:  plan.BuyDate,
			EntryPrice: price,
			CostBasis:  slice,
			PeriodKey:  plan.PeriodKey,
		})
		if err != nil {
			return err
		}
		p.Cash = p.Cash.Sub(slice)
		p.MarketValue = p.MarketValue.Add(shares.Mul(price))
	}
	return nil
}
