package l2_service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"signalbacktest/internal/domain"
	"signalbacktest/internal/logger"
	l1_service "signalbacktest/internal/service/l1"
)

type PeriodUnit string

const (
	PeriodUnit_Weekly  PeriodUnit = "weekly"
	PeriodUnit_Monthly PeriodUnit = "monthly"
)

// PickerService builds the period plans for rotation runs: one scoring pass
// per period, top N symbols become that period's picks.
type PickerService interface {
	BuildPeriodPlans(ctx context.Context, in BuildPeriodPlansInput) ([]domain.PeriodPlan, error)
}

type BuildPeriodPlansInput struct {
	Config domain.RunConfig
	// Expression scores one symbol on the period's buy date. See
	// expressionFunctions for the available functions.
	Expression string
	TopN       int
	Period     PeriodUnit
	Symbols    []string
	Prices     *l1_service.PriceCache
}

type pickerServiceHandler struct{}

func NewPickerService() PickerService {
	return pickerServiceHandler{}
}

func (h pickerServiceHandler) BuildPeriodPlans(ctx context.Context, in BuildPeriodPlansInput) ([]domain.PeriodPlan, error) {
	log := logger.FromContext(ctx)

	if in.TopN < 1 {
		return nil, fmt.Errorf("top n must be positive, got %d", in.TopN)
	}
	if in.Expression == "" {
		return nil, fmt.Errorf("picker expression is required")
	}
	var keyOf func(time.Time) string
	switch in.Period {
	case PeriodUnit_Monthly:
		keyOf = func(t time.Time) string { return t.Format("2006-01") }
	case PeriodUnit_Weekly:
		keyOf = func(t time.Time) string {
			y, w := t.ISOWeek()
			return fmt.Sprintf("%d-W%02d", y, w)
		}
	default:
		return nil, fmt.Errorf("unknown period unit %q", in.Period)
	}

	// group consecutive trading days into periods; first day buys, last
	// sells. single-day periods can't hold anything so they're dropped.
	days := in.Prices.TradingDays()
	type periodDays struct {
		key  string
		days []time.Time
	}
	periods := []*periodDays{}
	for _, d := range days {
		key := keyOf(d)
		if len(periods) == 0 || periods[len(periods)-1].key != key {
			periods = append(periods, &periodDays{key: key})
		}
		p := periods[len(periods)-1]
		p.days = append(p.days, d)
	}

	plans := []domain.PeriodPlan{}
	for _, p := range periods {
		if len(p.days) < 2 {
			continue
		}
		buyDate := p.days[0]
		sellDate := p.days[len(p.days)-1]

		type scored struct {
			symbol string
			score  float64
		}
		scores := []scored{}
		for _, symbol := range in.Symbols {
			score, err := evaluatePickExpression(in.Expression, symbol, buyDate, in.Prices)
			if err != nil {
				// a symbol that can't be scored just sits out this period
				log.Debugf("skipping %s for period %s: %s", symbol, p.key, err.Error())
				continue
			}
			scores = append(scores, scored{symbol: symbol, score: score})
		}
		if len(scores) == 0 {
			continue
		}

		sort.Slice(scores, func(i, j int) bool {
			if scores[i].score != scores[j].score {
				return scores[i].score > scores[j].score
			}
			return scores[i].symbol < scores[j].symbol
		})
		if len(scores) > in.TopN {
			scores = scores[:in.TopN]
		}

		picks := make([]string, 0, len(scores))
		for _, s := range scores {
			picks = append(picks, s.symbol)
		}
		plans = append(plans, domain.PeriodPlan{
			PeriodKey: p.key,
			BuyDate:   buyDate,
			SellDate:  sellDate,
			Picks:     picks,
		})
	}

	return plans, nil
}
