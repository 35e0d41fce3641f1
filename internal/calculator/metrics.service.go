package calculator

import (
	"fmt"
	"math"
	"time"

	"signalbacktest/internal/domain"

	"github.com/montanaflynn/stats"
	"github.com/shopspring/decimal"
)

type BacktestSummary struct {
	FinalEquity decimal.Decimal `json:"finalEquity"`
	TotalReturn float64         `json:"totalReturn"`

	MaxDrawdown           float64    `json:"maxDrawdown"`
	MaxDrawdownPeakDate   *time.Time `json:"maxDrawdownPeakDate,omitempty"`
	MaxDrawdownTroughDate *time.Time `json:"maxDrawdownTroughDate,omitempty"`

	TradeCount    int `json:"tradeCount"`
	WinningTrades int `json:"winningTrades"`
	// nil when there are no trades to rate
	WinRate *float64 `json:"winRate,omitempty"`

	// annualized figures need a few curve points to mean anything; nil
	// otherwise
	AnnualizedReturn *float64 `json:"annualizedReturn,omitempty"`
	AnnualizedStdev  *float64 `json:"annualizedStdev,omitempty"`
	SharpeRatio      *float64 `json:"sharpeRatio,omitempty"`
}

// CalculateSummary runs once at the end of a replay: a single left-to-right
// scan of the equity curve for drawdown, plus trade-ledger tallies. An empty
// curve (a run where nothing ever traded or marked) summarizes to the
// starting state.
func CalculateSummary(curve domain.EquityCurve, trades []domain.TradeRecord, initialCapital decimal.Decimal) (*BacktestSummary, error) {
	if !initialCapital.IsPositive() {
		return nil, fmt.Errorf("cannot summarize run with initial capital %s", initialCapital.String())
	}

	out := &BacktestSummary{
		FinalEquity: initialCapital,
		TradeCount:  len(trades),
	}
	if len(curve) > 0 {
		out.FinalEquity = curve[len(curve)-1].Equity
	}
	out.TotalReturn = out.FinalEquity.Div(initialCapital).InexactFloat64() - 1

	// running-peak drawdown scan; the first point achieving the max keeps
	// its dates
	peak := math.Inf(-1)
	var peakDate time.Time
	for _, point := range curve {
		equity := point.Equity.InexactFloat64()
		if equity > peak {
			peak = equity
			peakDate = point.Date
		}
		if peak <= 0 {
			continue
		}
		dd := (peak - equity) / peak
		if dd > out.MaxDrawdown {
			out.MaxDrawdown = dd
			p, t := peakDate, point.Date
			out.MaxDrawdownPeakDate = &p
			out.MaxDrawdownTroughDate = &t
		}
	}

	for _, trade := range trades {
		if trade.Pnl.IsPositive() {
			out.WinningTrades++
		}
	}
	if len(trades) > 0 {
		winRate := float64(out.WinningTrades) / float64(len(trades))
		out.WinRate = &winRate
	}

	annualize(curve, out)

	return out, nil
}

func annualize(curve domain.EquityCurve, out *BacktestSummary) {
	if len(curve) < 3 {
		return
	}

	returns := make([]float64, 0, len(curve)-1)
	last := curve[0].Equity
	for _, point := range curve[1:] {
		if last.IsZero() {
			return
		}
		returns = append(returns, point.Equity.Sub(last).Div(last).InexactFloat64())
		last = point.Equity
	}

	stdev, err := stats.StandardDeviationSample(returns)
	if err != nil {
		return
	}
	annualizedStdev := stdev * math.Sqrt(252)

	numYears := curve[len(curve)-1].Date.Sub(curve[0].Date).Hours() / (365 * 24)
	startValue := curve[0].Equity.InexactFloat64()
	endValue := curve[len(curve)-1].Equity.InexactFloat64()
	if numYears <= 0 || startValue <= 0 || endValue <= 0 {
		return
	}
	annualizedReturn := math.Pow(endValue/startValue, 1/numYears) - 1

	out.AnnualizedReturn = &annualizedReturn
	out.AnnualizedStdev = &annualizedStdev
	if annualizedStdev > 0 {
		sharpe := annualizedReturn / annualizedStdev
		out.SharpeRatio = &sharpe
	}
}
