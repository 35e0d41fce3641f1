package l3_service

import (
	"context"
	"fmt"
	"time"

	"signalbacktest/internal/domain"
	"signalbacktest/internal/logger"

	"github.com/shopspring/decimal"
)

// PortfolioService is the signal-event replay engine: dated buy/sell intents
// in, equity curve and trade ledger out. Single-threaded by design - the
// portfolio is one mutable aggregate that must see events in strict
// chronological order.
type PortfolioService interface {
	RunSignalBacktest(ctx context.Context, in RunSignalBacktestInput) (*BacktestRun, error)
}

type RunSignalBacktestInput struct {
	Config domain.RunConfig
	Series map[string]*domain.SecuritySeries
	Events []domain.ExecutionEvent
}

type BacktestRun struct {
	EquityCurve  domain.EquityCurve
	Trades       []domain.TradeRecord
	EndPortfolio *domain.Portfolio
}

type portfolioServiceHandler struct{}

func NewPortfolioService() PortfolioService {
	return portfolioServiceHandler{}
}

type signalReplay struct {
	cfg       domain.RunConfig
	p         *domain.Portfolio
	sched     *markScheduler
	curve     domain.EquityCurve
	trades    []domain.TradeRecord
	feeRate   decimal.Decimal
	stampRate decimal.Decimal
}

func (h portfolioServiceHandler) RunSignalBacktest(ctx context.Context, in RunSignalBacktestInput) (*BacktestRun, error) {
	log := logger.FromContext(ctx)

	if err := in.Config.ValidateSignalMode(); err != nil {
		return nil, fmt.Errorf("invalid run config: %w", err)
	}

	events := make([]domain.ExecutionEvent, len(in.Events))
	copy(events, in.Events)
	domain.SortExecutionEvents(events)

	r := &signalReplay{
		cfg:       in.Config,
		p:         domain.NewPortfolio(in.Config.InitialCapital),
		sched:     newMarkScheduler(in.Series, in.Config.End),
		trades:    []domain.TradeRecord{},
		feeRate:   in.Config.FeeRate(),
		stampRate: in.Config.StampRate(),
	}

	i := 0
	for i < len(events) {
		date := events[i].Date
		if !in.Config.InWindow(date) {
			i++
			continue
		}

		// mark everything up to this date first, then settle the batch
		r.sched.drainUpTo(date, r.p, &r.curve)

		buys := []domain.ExecutionEvent{}
		for ; i < len(events) && events[i].Date.Equal(date); i++ {
			ev := events[i]
			if ev.Side == domain.TradeSide_Sell {
				if err := r.settleSell(ev); err != nil {
					return nil, err
				}
				continue
			}
			if _, held := r.p.Positions[ev.Symbol]; held {
				// already long; entries never pyramid onto an open position
				continue
			}
			buys = append(buys, ev)
		}
		if err := r.allocateEqualWeight(buys); err != nil {
			return nil, err
		}

		r.curve.Observe(date, r.p.Equity())

		if r.p.Cash.IsNegative() {
			return nil, fmt.Errorf("cash went negative (%s) on %s", r.p.Cash.String(), date.Format(time.DateOnly))
		}
	}

	if n := len(r.p.Positions); n > 0 {
		return nil, fmt.Errorf("%d positions still open after forced liquidation", n)
	}

	log.Infow("signal replay complete",
		"events", len(events),
		"trades", len(r.trades),
		"finalEquity", r.p.Equity().String(),
	)

	return &BacktestRun{
		EquityCurve:  r.curve,
		Trades:       r.trades,
		EndPortfolio: r.p,
	}, nil
}

// settleSell closes the position at the execution price. A sell for a symbol
// we're flat on is a signal-layer artifact (exit signal with no entry, or the
// forced end-of-window sell for a never-bought security) and settles to
// nothing.
func (r *signalReplay) settleSell(ev domain.ExecutionEvent) error {
	pos, ok := r.p.Positions[ev.Symbol]
	if !ok {
		return nil
	}

	// correct any propagation lag before valuing the exit
	if !ev.Price.Equal(pos.LastMark) {
		r.p.MarketValue = r.p.MarketValue.Add(pos.Shares.Mul(ev.Price.Sub(pos.LastMark)))
		pos.LastMark = ev.Price
	}

	gross := pos.Shares.Mul(ev.Price)
	fee := gross.Mul(r.feeRate)
	stamp := gross.Mul(r.stampRate)
	net := gross.Sub(fee).Sub(stamp)

	r.p.Cash = r.p.Cash.Add(net)
	r.p.MarketValue = r.p.MarketValue.Sub(gross)

	pnl := net.Sub(pos.CostBasis)
	r.trades = append(r.trades, domain.TradeRecord{
		Symbol:     ev.Symbol,
		EntryDate:  pos.EntryDate,
		ExitDate:   ev.Date,
		EntryPrice: pos.EntryPrice,
		ExitPrice:  ev.Price,
		Shares:     pos.Shares,
		Pnl:        pnl,
		Return:     pnl.Div(pos.CostBasis),
		Reason:     ev.Reason,
	})

	delete(r.p.Positions, ev.Symbol)
	r.sched.close(ev.Symbol)
	return nil
}
