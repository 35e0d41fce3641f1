package app

import (
	"context"
	"fmt"

	"signalbacktest/internal/calculator"
	"signalbacktest/internal/domain"
	"signalbacktest/internal/repository"
	l1_service "signalbacktest/internal/service/l1"
	l2_service "signalbacktest/internal/service/l2"
	l3_service "signalbacktest/internal/service/l3"

	"github.com/google/uuid"
)

// BacktestHandler wires the data layer, the signal layer and the engines into
// the two run modes the system offers.
type BacktestHandler struct {
	SecurityRepository repository.SecurityRepository
	PriceService       l1_service.PriceService
	SignalService      l2_service.SignalService
	PickerService      l2_service.PickerService
	PortfolioService   l3_service.PortfolioService
	RotationService    l3_service.RotationService
}

type CrossoverParams struct {
	FastWindow int `json:"fastWindow"`
	SlowWindow int `json:"slowWindow"`
}

type OscillatorParams struct {
	Lookback   int     `json:"lookback"`
	Oversold   float64 `json:"oversold"`
	Overbought float64 `json:"overbought"`
}

// SignalStrategy names the external signal rule to run. Exactly one must be
// set.
type SignalStrategy struct {
	Crossover  *CrossoverParams  `json:"crossover,omitempty"`
	Oscillator *OscillatorParams `json:"oscillator,omitempty"`
}

type SignalBacktestInput struct {
	Config   domain.RunConfig
	Strategy SignalStrategy
}

type RotationBacktestInput struct {
	Config     domain.RunConfig
	Expression string
	TopN       int
	Period     l2_service.PeriodUnit
}

type BacktestResult struct {
	RunID       uuid.UUID                   `json:"runId"`
	EquityCurve domain.EquityCurve          `json:"equityCurve"`
	Trades      []domain.TradeRecord        `json:"trades"`
	Summary     *calculator.BacktestSummary `json:"summary"`
}

func (h BacktestHandler) RunSignalBacktest(ctx context.Context, in SignalBacktestInput) (*BacktestResult, error) {
	profile, endProfile := domain.GetProfile(ctx)
	defer endProfile()

	if err := in.Config.ValidateSignalMode(); err != nil {
		return nil, err
	}

	_, endSpan := profile.StartNewSpan("build events")
	events := []domain.ExecutionEvent{}
	for _, symbol := range h.SecurityRepository.Symbols() {
		series, err := h.SecurityRepository.Get(symbol)
		if err != nil {
			return nil, err
		}
		entry, exit, err := h.computeSignals(series, in.Strategy)
		if err != nil {
			return nil, fmt.Errorf("failed to compute signals for %s: %w", symbol, err)
		}
		symbolEvents, err := l1_service.BuildExecutionEvents(l1_service.BuildEventsInput{
			Series:      series,
			EntrySignal: entry,
			ExitSignal:  exit,
			Config:      in.Config,
		})
		if err != nil {
			return nil, err
		}
		events = append(events, symbolEvents...)
	}
	endSpan()

	_, endSpan = profile.StartNewSpan("replay")
	run, err := h.PortfolioService.RunSignalBacktest(ctx, l3_service.RunSignalBacktestInput{
		Config: in.Config,
		Series: h.SecurityRepository.List(),
		Events: events,
	})
	if err != nil {
		return nil, fmt.Errorf("signal replay failed: %w", err)
	}
	endSpan()

	return h.summarize(profile, run, in.Config)
}

func (h BacktestHandler) RunRotationBacktest(ctx context.Context, in RotationBacktestInput) (*BacktestResult, error) {
	profile, endProfile := domain.GetProfile(ctx)
	defer endProfile()

	if err := in.Config.Validate(); err != nil {
		return nil, err
	}

	_, endSpan := profile.StartNewSpan("load price cache")
	prices, err := h.PriceService.LoadPriceCache(h.SecurityRepository.Symbols(), in.Config.Start, in.Config.End)
	if err != nil {
		return nil, err
	}
	endSpan()

	_, endSpan = profile.StartNewSpan("build period plans")
	plans, err := h.PickerService.BuildPeriodPlans(ctx, l2_service.BuildPeriodPlansInput{
		Config:     in.Config,
		Expression: in.Expression,
		TopN:       in.TopN,
		Period:     in.Period,
		Symbols:    h.SecurityRepository.Symbols(),
		Prices:     prices,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to build period plans: %w", err)
	}
	endSpan()

	_, endSpan = profile.StartNewSpan("replay")
	run, err := h.RotationService.RunRotationBacktest(ctx, l3_service.RunRotationBacktestInput{
		Config: in.Config,
		Plans:  plans,
		Prices: prices,
	})
	if err != nil {
		return nil, fmt.Errorf("rotation replay failed: %w", err)
	}
	endSpan()

	return h.summarize(profile, run, in.Config)
}

func (h BacktestHandler) computeSignals(series *domain.SecuritySeries, strategy SignalStrategy) ([]bool, []bool, error) {
	switch {
	case strategy.Crossover != nil && strategy.Oscillator != nil:
		return nil, nil, fmt.Errorf("strategy must set exactly one of crossover/oscillator")
	case strategy.Crossover != nil:
		return h.SignalService.CrossoverSignals(series, strategy.Crossover.FastWindow, strategy.Crossover.SlowWindow)
	case strategy.Oscillator != nil:
		return h.SignalService.OscillatorSignals(series, strategy.Oscillator.Lookback, strategy.Oscillator.Oversold, strategy.Oscillator.Overbought)
	default:
		return nil, nil, fmt.Errorf("strategy must set exactly one of crossover/oscillator")
	}
}

func (h BacktestHandler) summarize(profile *domain.Profile, run *l3_service.BacktestRun, cfg domain.RunConfig) (*BacktestResult, error) {
	_, endSpan := profile.StartNewSpan("summarize")
	defer endSpan()

	summary, err := calculator.CalculateSummary(run.EquityCurve, run.Trades, cfg.InitialCapital)
	if err != nil {
		return nil, fmt.Errorf("failed to summarize run: %w", err)
	}

	return &BacktestResult{
		RunID:       uuid.New(),
		EquityCurve: run.EquityCurve,
		Trades:      run.Trades,
		Summary:     summary,
	}, nil
}
