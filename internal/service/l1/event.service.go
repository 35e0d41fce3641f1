package l1_service

import (
	"fmt"

	"signalbacktest/internal/domain"

	"github.com/shopspring/decimal"
)

type BuildEventsInput struct {
	Series      *domain.SecuritySeries
	EntrySignal []bool
	ExitSignal  []bool
	Config      domain.RunConfig
}

// BuildExecutionEvents turns one security's boolean entry/exit signals into
// dated buy/sell intents with the execution price resolved per the configured
// timing. Signals whose execution index falls outside the run window, past the
// end of the series, or on a bad quote produce nothing.
//
// When the security has at least one usable in-window observation, a forced
// sell is appended at the last such date so every opened position closes
// inside the window. Entries that would execute on that same final bar are
// skipped - they would settle after the forced exit and stay open forever.
func BuildExecutionEvents(in BuildEventsInput) ([]domain.ExecutionEvent, error) {
	s := in.Series
	if len(in.EntrySignal) != s.Len() || len(in.ExitSignal) != s.Len() {
		return nil, fmt.Errorf(
			"signal arrays for %s must be co-indexed with dates: got %d/%d signals over %d dates",
			s.Symbol, len(in.EntrySignal), len(in.ExitSignal), s.Len(),
		)
	}

	offset := 0
	if in.Config.Timing == domain.ExecutionTiming_NextAvailable {
		offset = 1
	}

	lastValid := s.LastValidIndexWithin(in.Config.Start, in.Config.End)

	events := []domain.ExecutionEvent{}
	for i := 0; i < s.Len(); i++ {
		if !in.EntrySignal[i] && !in.ExitSignal[i] {
			continue
		}
		exec := i + offset
		if exec >= s.Len() {
			continue
		}
		date := s.Dates[exec]
		if !in.Config.InWindow(date) {
			continue
		}
		price, ok := s.CloseAt(exec)
		if !ok {
			continue
		}
		if in.ExitSignal[i] {
			events = append(events, domain.ExecutionEvent{
				Date:   date,
				Side:   domain.TradeSide_Sell,
				Symbol: s.Symbol,
				Price:  decimal.NewFromFloat(price),
				Reason: domain.EventReason_SignalExit,
			})
		}
		if in.EntrySignal[i] && exec != lastValid {
			events = append(events, domain.ExecutionEvent{
				Date:   date,
				Side:   domain.TradeSide_Buy,
				Symbol: s.Symbol,
				Price:  decimal.NewFromFloat(price),
				Reason: domain.EventReason_SignalEntry,
			})
		}
	}

	if lastValid >= 0 {
		price, _ := s.CloseAt(lastValid)
		events = append(events, domain.ExecutionEvent{
			Date:   s.Dates[lastValid],
			Side:   domain.TradeSide_Sell,
			Symbol: s.Symbol,
			Price:  decimal.NewFromFloat(price),
			Reason: domain.EventReason_ForceExitEof,
		})
	}

	return events, nil
}
