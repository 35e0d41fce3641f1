package report

import (
	"fmt"
	"html/template"
	"io"
	"time"

	"signalbacktest/internal/app"
)

// RenderHTML writes a self-contained report page for one run: summary table,
// trade ledger, equity curve.
func RenderHTML(w io.Writer, result *app.BacktestResult) error {
	if err := pageTemplate.Execute(w, newPageData(result)); err != nil {
		return fmt.Errorf("failed to render report: %w", err)
	}
	return nil
}

type pageData struct {
	RunID       string
	FinalEquity string
	TotalReturn string
	MaxDrawdown string
	DrawdownSpan string
	TradeCount  int
	WinRate     string
	Trades      []tradeRow
	Curve       []curveRow
}

type tradeRow struct {
	Symbol     string
	EntryDate  string
	ExitDate   string
	EntryPrice string
	ExitPrice  string
	Shares     string
	Pnl        string
	Return     string
	Reason     string
}

type curveRow struct {
	Date   string
	Equity string
}

func newPageData(result *app.BacktestResult) pageData {
	s := result.Summary
	data := pageData{
		RunID:       result.RunID.String(),
		FinalEquity: s.FinalEquity.StringFixed(2),
		TotalReturn: fmt.Sprintf("%.2f%%", s.TotalReturn*100),
		MaxDrawdown: fmt.Sprintf("%.2f%%", s.MaxDrawdown*100),
		TradeCount:  s.TradeCount,
		WinRate:     "no data",
	}
	if s.WinRate != nil {
		data.WinRate = fmt.Sprintf("%.1f%%", *s.WinRate*100)
	}
	if s.MaxDrawdownPeakDate != nil && s.MaxDrawdownTroughDate != nil {
		data.DrawdownSpan = fmt.Sprintf("%s to %s",
			s.MaxDrawdownPeakDate.Format(time.DateOnly),
			s.MaxDrawdownTroughDate.Format(time.DateOnly))
	}
	for _, t := range result.Trades {
		data.Trades = append(data.Trades, tradeRow{
			Symbol:     t.Symbol,
			EntryDate:  t.EntryDate.Format(time.DateOnly),
			ExitDate:   t.ExitDate.Format(time.DateOnly),
			EntryPrice: t.EntryPrice.StringFixed(4),
			ExitPrice:  t.ExitPrice.StringFixed(4),
			Shares:     t.Shares.String(),
			Pnl:        t.Pnl.StringFixed(2),
			Return:     fmt.Sprintf("%.2f%%", t.Return.InexactFloat64()*100),
			Reason:     string(t.Reason),
		})
	}
	for _, p := range result.EquityCurve {
		data.Curve = append(data.Curve, curveRow{
			Date:   p.Date.Format(time.DateOnly),
			Equity: p.Equity.StringFixed(2),
		})
	}
	return data
}

var pageTemplate = template.Must(template.New("report").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>backtest {{.RunID}}</title>
<style>
body { font-family: sans-serif; margin: 2em; }
table { border-collapse: collapse; margin-bottom: 2em; }
th, td { border: 1px solid #ccc; padding: 4px 10px; text-align: right; }
th { background: #f0f0f0; }
td:first-child, th:first-child { text-align: left; }
</style>
</head>
<body>
<h1>Backtest {{.RunID}}</h1>

<h2>Summary</h2>
<table>
<tr><th>Final equity</th><td>{{.FinalEquity}}</td></tr>
<tr><th>Total return</th><td>{{.TotalReturn}}</td></tr>
<tr><th>Max drawdown</th><td>{{.MaxDrawdown}}{{if .DrawdownSpan}} ({{.DrawdownSpan}}){{end}}</td></tr>
<tr><th>Trades</th><td>{{.TradeCount}}</td></tr>
<tr><th>Win rate</th><td>{{.WinRate}}</td></tr>
</table>

<h2>Trades</h2>
<table>
<tr><th>Symbol</th><th>Entry</th><th>Exit</th><th>Entry px</th><th>Exit px</th><th>Shares</th><th>PnL</th><th>Return</th><th>Reason</th></tr>
{{range .Trades}}<tr><td>{{.Symbol}}</td><td>{{.EntryDate}}</td><td>{{.ExitDate}}</td><td>{{.EntryPrice}}</td><td>{{.ExitPrice}}</td><td>{{.Shares}}</td><td>{{.Pnl}}</td><td>{{.Return}}</td><td>{{.Reason}}</td></tr>
{{end}}</table>

<h2>Equity curve</h2>
<table>
<tr><th>Date</th><th>Equity</th></tr>
{{range .Curve}}<tr><td>{{.Date}}</td><td>{{.Equity}}</td></tr>
{{end}}</table>
</body>
</html>
`))
