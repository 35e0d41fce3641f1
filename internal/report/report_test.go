package report

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"signalbacktest/internal/app"
	"signalbacktest/internal/calculator"
	"signalbacktest/internal/domain"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestRenderHTML(t *testing.T) {
	winRate := 1.0
	result := &app.BacktestResult{
		RunID: uuid.New(),
		EquityCurve: domain.EquityCurve{
			{Date: time.Date(2020, 1, 2, 0, 0, 0, 0, time.UTC), Equity: decimal.NewFromInt(1000)},
			{Date: time.Date(2020, 1, 3, 0, 0, 0, 0, time.UTC), Equity: decimal.NewFromInt(1100)},
		},
		Trades: []domain.TradeRecord{
			{
				Symbol:     "AAA",
				EntryDate:  time.Date(2020, 1, 2, 0, 0, 0, 0, time.UTC),
				ExitDate:   time.Date(2020, 1, 3, 0, 0, 0, 0, time.UTC),
				EntryPrice: decimal.NewFromInt(10),
				ExitPrice:  decimal.NewFromInt(11),
				Shares:     decimal.NewFromInt(100),
				Pnl:        decimal.NewFromInt(100),
				Return:     decimal.NewFromFloat(0.1),
				Reason:     domain.EventReason_SignalExit,
			},
		},
		Summary: &calculator.BacktestSummary{
			FinalEquity: decimal.NewFromInt(1100),
			TotalReturn: 0.10,
			TradeCount:  1,
			WinRate:     &winRate,
		},
	}

	var buf bytes.Buffer
	require.NoError(t, RenderHTML(&buf, result))

	html := buf.String()
	require.True(t, strings.Contains(html, result.RunID.String()))
	require.True(t, strings.Contains(html, "1100.00"))
	require.True(t, strings.Contains(html, "AAA"))
	require.True(t, strings.Contains(html, "10.00%"))
}

func TestRenderHTML_NoTrades(t *testing.T) {
	result := &app.BacktestResult{
		RunID:       uuid.New(),
		EquityCurve: domain.EquityCurve{},
		Trades:      []domain.TradeRecord{},
		Summary: &calculator.BacktestSummary{
			FinalEquity: decimal.NewFromInt(1000),
		},
	}

	var buf bytes.Buffer
	require.NoError(t, RenderHTML(&buf, result))
	require.True(t, strings.Contains(buf.String(), "no data"))
}
