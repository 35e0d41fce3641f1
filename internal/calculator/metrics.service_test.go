package calculator

import (
	"testing"
	"time"

	"signalbacktest/internal/domain"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func day(d int) time.Time {
	return time.Date(2020, 1, d, 0, 0, 0, 0, time.UTC)
}

func curveOf(equities ...float64) domain.EquityCurve {
	curve := domain.EquityCurve{}
	for i, e := range equities {
		curve = append(curve, domain.EquityPoint{Date: day(i + 2), Equity: decimal.NewFromFloat(e)})
	}
	return curve
}

func TestCalculateSummary(t *testing.T) {
	capital := decimal.NewFromInt(100)

	t.Run("non-positive initial capital is rejected", func(t *testing.T) {
		_, err := CalculateSummary(domain.EquityCurve{}, nil, decimal.Zero)
		require.Error(t, err)
	})

	t.Run("empty curve summarizes to the starting state", func(t *testing.T) {
		summary, err := CalculateSummary(domain.EquityCurve{}, nil, capital)
		require.NoError(t, err)

		require.Equal(t, "100", summary.FinalEquity.String())
		require.Equal(t, 0.0, summary.TotalReturn)
		require.Equal(t, 0.0, summary.MaxDrawdown)
		require.Nil(t, summary.MaxDrawdownPeakDate)
		require.Nil(t, summary.WinRate)
		require.Nil(t, summary.AnnualizedReturn)
	})

	t.Run("max drawdown keeps the peak and trough dates", func(t *testing.T) {
		summary, err := CalculateSummary(curveOf(100, 120, 90, 110), nil, capital)
		require.NoError(t, err)

		require.InDelta(t, 0.25, summary.MaxDrawdown, 1e-9)
		require.NotNil(t, summary.MaxDrawdownPeakDate)
		require.Equal(t, day(3), *summary.MaxDrawdownPeakDate)
		require.Equal(t, day(4), *summary.MaxDrawdownTroughDate)
		require.InDelta(t, 0.10, summary.TotalReturn, 1e-9)
	})

	t.Run("monotonic curve has zero drawdown", func(t *testing.T) {
		summary, err := CalculateSummary(curveOf(100, 105, 110), nil, capital)
		require.NoError(t, err)

		require.Equal(t, 0.0, summary.MaxDrawdown)
		require.Nil(t, summary.MaxDrawdownPeakDate)
	})

	t.Run("trade tallies and win rate", func(t *testing.T) {
		trades := []domain.TradeRecord{
			{Pnl: decimal.NewFromInt(10)},
			{Pnl: decimal.NewFromInt(-4)},
			{Pnl: decimal.Zero},
		}
		summary, err := CalculateSummary(curveOf(100, 106), trades, capital)
		require.NoError(t, err)

		require.Equal(t, 3, summary.TradeCount)
		require.Equal(t, 1, summary.WinningTrades)
		require.NotNil(t, summary.WinRate)
		require.InDelta(t, 1.0/3.0, *summary.WinRate, 1e-9)
	})

	t.Run("annualized figures need at least three points", func(t *testing.T) {
		summary, err := CalculateSummary(curveOf(100, 110), nil, capital)
		require.NoError(t, err)
		require.Nil(t, summary.AnnualizedReturn)

		summary, err = CalculateSummary(curveOf(100, 110, 121), nil, capital)
		require.NoError(t, err)
		require.NotNil(t, summary.AnnualizedReturn)
		require.NotNil(t, summary.AnnualizedStdev)
		require.True(t, *summary.AnnualizedReturn > 0)
	})

	t.Run("flat curve has no sharpe", func(t *testing.T) {
		summary, err := CalculateSummary(curveOf(100, 100, 100), nil, capital)
		require.NoError(t, err)
		require.NotNil(t, summary.AnnualizedStdev)
		require.Equal(t, 0.0, *summary.AnnualizedStdev)
		require.Nil(t, summary.SharpeRatio)
	})
}
