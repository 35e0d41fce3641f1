package l1_service

import (
	"math"
	"testing"
	"time"

	"signalbacktest/internal/domain"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func day(d int) time.Time {
	return time.Date(2020, 1, d, 0, 0, 0, 0, time.UTC)
}

func testSeries(closes []float64) *domain.SecuritySeries {
	dates := make([]time.Time, len(closes))
	for i := range closes {
		dates[i] = day(i + 2)
	}
	return &domain.SecuritySeries{Symbol: "TEST", Dates: dates, Close: closes}
}

func testConfig() domain.RunConfig {
	return domain.RunConfig{
		Start:          day(1),
		End:            day(31),
		InitialCapital: decimal.NewFromInt(1000),
		Timing:         domain.ExecutionTiming_SameDay,
		Lot:            1,
	}
}

func TestBuildExecutionEvents(t *testing.T) {
	t.Run("mismatched signal length is rejected", func(t *testing.T) {
		_, err := BuildExecutionEvents(BuildEventsInput{
			Series:      testSeries([]float64{10, 11}),
			EntrySignal: []bool{true},
			ExitSignal:  []bool{false, false},
			Config:      testConfig(),
		})
		require.Error(t, err)
		require.Contains(t, err.Error(), "co-indexed")
	})

	t.Run("same-day timing executes at the signal bar", func(t *testing.T) {
		events, err := BuildExecutionEvents(BuildEventsInput{
			Series:      testSeries([]float64{10, 10.5, 10.8, 11}),
			EntrySignal: []bool{true, false, false, false},
			ExitSignal:  []bool{false, false, false, true},
			Config:      testConfig(),
		})
		require.NoError(t, err)

		// entry at idx 0, exit at idx 3, plus the forced eof sell at idx 3
		require.Len(t, events, 3)
		require.Equal(t, domain.TradeSide_Buy, events[0].Side)
		require.Equal(t, day(2), events[0].Date)
		require.Equal(t, "10", events[0].Price.String())
		require.Equal(t, domain.EventReason_SignalExit, events[1].Reason)
		require.Equal(t, domain.EventReason_ForceExitEof, events[2].Reason)
		require.Equal(t, day(5), events[2].Date)
	})

	t.Run("next-available timing shifts execution one bar", func(t *testing.T) {
		cfg := testConfig()
		cfg.Timing = domain.ExecutionTiming_NextAvailable

		events, err := BuildExecutionEvents(BuildEventsInput{
			Series:      testSeries([]float64{10, 10.5, 10.8, 11}),
			EntrySignal: []bool{true, false, false, false},
			ExitSignal:  []bool{false, false, true, false},
			Config:      cfg,
		})
		require.NoError(t, err)

		require.Len(t, events, 3)
		require.Equal(t, domain.TradeSide_Buy, events[0].Side)
		require.Equal(t, day(3), events[0].Date)
		require.Equal(t, "10.5", events[0].Price.String())
		require.Equal(t, day(5), events[1].Date)
	})

	t.Run("signal on the last bar never executes next-day", func(t *testing.T) {
		cfg := testConfig()
		cfg.Timing = domain.ExecutionTiming_NextAvailable

		events, err := BuildExecutionEvents(BuildEventsInput{
			Series:      testSeries([]float64{10, 11}),
			EntrySignal: []bool{false, true},
			ExitSignal:  []bool{false, false},
			Config:      cfg,
		})
		require.NoError(t, err)

		// only the forced eof sell survives
		require.Len(t, events, 1)
		require.Equal(t, domain.EventReason_ForceExitEof, events[0].Reason)
	})

	t.Run("entry on the final valid bar is dropped", func(t *testing.T) {
		events, err := BuildExecutionEvents(BuildEventsInput{
			Series:      testSeries([]float64{10, 11}),
			EntrySignal: []bool{false, true},
			ExitSignal:  []bool{false, false},
			Config:      testConfig(),
		})
		require.NoError(t, err)

		require.Len(t, events, 1)
		require.Equal(t, domain.TradeSide_Sell, events[0].Side)
	})

	t.Run("bad quote at execution produces nothing", func(t *testing.T) {
		events, err := BuildExecutionEvents(BuildEventsInput{
			Series:      testSeries([]float64{10, math.NaN(), 11}),
			EntrySignal: []bool{false, true, false},
			ExitSignal:  []bool{false, false, false},
			Config:      testConfig(),
		})
		require.NoError(t, err)

		require.Len(t, events, 1)
		require.Equal(t, domain.EventReason_ForceExitEof, events[0].Reason)
	})

	t.Run("execution outside the window is skipped", func(t *testing.T) {
		cfg := testConfig()
		cfg.End = day(3)

		events, err := BuildExecutionEvents(BuildEventsInput{
			Series:      testSeries([]float64{10, 10.5, 10.8, 11}),
			EntrySignal: []bool{true, false, false, false},
			ExitSignal:  []bool{false, false, false, true},
			Config:      cfg,
		})
		require.NoError(t, err)

		// the exit at idx 3 lands past End; forced sell moves to the last
		// in-window bar
		require.Len(t, events, 2)
		require.Equal(t, domain.TradeSide_Buy, events[0].Side)
		require.Equal(t, domain.EventReason_ForceExitEof, events[1].Reason)
		require.Equal(t, day(3), events[1].Date)
	})

	t.Run("no valid in-window bar yields no forced sell", func(t *testing.T) {
		cfg := testConfig()
		cfg.Start = day(20)
		cfg.End = day(25)

		events, err := BuildExecutionEvents(BuildEventsInput{
			Series:      testSeries([]float64{10, 11}),
			EntrySignal: []bool{true, false},
			ExitSignal:  []bool{false, false},
			Config:      cfg,
		})
		require.NoError(t, err)
		require.Empty(t, events)
	})
}
