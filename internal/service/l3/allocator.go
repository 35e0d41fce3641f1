package l3_service

import (
	"signalbacktest/internal/domain"

	"github.com/shopspring/decimal"
)

// allocateEqualWeight splits the day's cash across same-day entrants as
// evenly as the lot size allows. Candidates must already be filtered to
// symbols with no open position and sorted lexically.
//
// The fixed-point narrowing: give everyone cash/n, drop whoever can't afford
// a single lot (fee included) at that budget, and repeat on the survivors.
// Terminates because the candidate set strictly shrinks. Once the set is
// stable, commit with a live per-head budget so cash lost to lot rounding by
// earlier entrants flows to later ones instead of evaporating.
func (r *signalReplay) allocateEqualWeight(candidates []domain.ExecutionEvent) error {
	lot := decimal.NewFromInt(r.cfg.Lot)
	one := decimal.NewFromInt(1)

	lotCost := func(price decimal.Decimal) decimal.Decimal {
		return price.Mul(lot).Mul(one.Add(r.feeRate))
	}

	for len(candidates) > 0 {
		budget := r.p.Cash.Div(decimal.NewFromInt(int64(len(candidates))))
		affordable := []domain.ExecutionEvent{}
		for _, c := range candidates {
			if budget.Div(lotCost(c.Price)).Floor().IsPositive() {
				affordable = append(affordable, c)
			}
		}
		if len(affordable) == len(candidates) || len(affordable) == 0 {
			// stable set, or nobody affords an even split - the live
			// budget below skips heads until the rest are funded
			break
		}
		candidates = affordable
	}

	heads := int64(len(candidates))
	for _, c := range candidates {
		liveBudget := r.p.Cash.Div(decimal.NewFromInt(heads))
		heads--

		lots := liveBudget.Div(lotCost(c.Price)).Floor()
		if !lots.IsPositive() {
			continue
		}
		shares := lots.Mul(lot)
		gross := shares.Mul(c.Price)
		fee := gross.Mul(r.feeRate)

		err := r.p.Open(&domain.Position{
			Symbol:     c.Symbol,
			Shares:     shares,
			LastMark:   c.Price,
			EntryDate:  c.Date,
			EntryPrice: c.Price,
			CostBasis:  gross.Add(fee),
		})
		if err != nil {
			return err
		}
		r.p.Cash = r.p.Cash.Sub(gross).Sub(fee)
		r.p.MarketValue = r.p.MarketValue.Add(gross)
		r.sched.open(c.Symbol, c.Date)
	}

	return nil
}
