package api

import (
	"context"
	"fmt"
	"time"

	"signalbacktest/internal/app"
	"signalbacktest/internal/domain"
	"signalbacktest/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

type runConfigRequest struct {
	StartDate       string  `json:"startDate"`
	EndDate         string  `json:"endDate"`
	InitialCapital  float64 `json:"initialCapital"`
	ExecutionTiming string  `json:"executionTiming"`
	Lot             int64   `json:"lot"`
	FeeBps          int64   `json:"feeBps"`
	StampBps        int64   `json:"stampBps"`
}

func (r runConfigRequest) toDomain() (domain.RunConfig, error) {
	start, err := util.ParseDay(r.StartDate)
	if err != nil {
		return domain.RunConfig{}, err
	}
	end, err := util.ParseDay(r.EndDate)
	if err != nil {
		return domain.RunConfig{}, err
	}

	timing := domain.ExecutionTiming(r.ExecutionTiming)
	if r.ExecutionTiming == "" {
		timing = domain.ExecutionTiming_SameDay
	}

	return domain.RunConfig{
		Start:          start,
		End:            end,
		InitialCapital: decimal.NewFromFloat(r.InitialCapital),
		Timing:         timing,
		Lot:            r.Lot,
		FeeBps:         r.FeeBps,
		StampBps:       r.StampBps,
	}, nil
}

type backtestRequest struct {
	runConfigRequest
	Strategy app.SignalStrategy `json:"strategy"`
}

type equityPointResponse struct {
	Date   string  `json:"date"`
	Equity float64 `json:"equity"`
}

type tradeResponse struct {
	Symbol     string  `json:"symbol"`
	EntryDate  string  `json:"entryDate"`
	ExitDate   string  `json:"exitDate"`
	EntryPrice float64 `json:"entryPrice"`
	ExitPrice  float64 `json:"exitPrice"`
	Shares     float64 `json:"shares"`
	Pnl        float64 `json:"pnl"`
	Return     float64 `json:"return"`
	Reason     string  `json:"reason"`
}

type summaryResponse struct {
	FinalEquity           float64  `json:"finalEquity"`
	TotalReturn           float64  `json:"totalReturn"`
	MaxDrawdown           float64  `json:"maxDrawdown"`
	MaxDrawdownPeakDate   *string  `json:"maxDrawdownPeakDate,omitempty"`
	MaxDrawdownTroughDate *string  `json:"maxDrawdownTroughDate,omitempty"`
	TradeCount            int      `json:"tradeCount"`
	WinRate               *float64 `json:"winRate,omitempty"`
	AnnualizedReturn      *float64 `json:"annualizedReturn,omitempty"`
	AnnualizedStdev       *float64 `json:"annualizedStdev,omitempty"`
	SharpeRatio           *float64 `json:"sharpeRatio,omitempty"`
}

type backtestResponse struct {
	RunID       string                `json:"runId"`
	Summary     summaryResponse       `json:"summary"`
	EquityCurve []equityPointResponse `json:"equityCurve"`
	Trades      []tradeResponse       `json:"trades"`
}

func (m ApiHandler) backtest(c *gin.Context) {
	var requestBody backtestRequest
	if err := c.ShouldBindJSON(&requestBody); err != nil {
		returnErrorJsonCode(fmt.Errorf("failed to parse request: %w", err), c, 400)
		return
	}

	cfg, err := requestBody.toDomain()
	if err != nil {
		returnErrorJsonCode(err, c, 400)
		return
	}
	if err := cfg.ValidateSignalMode(); err != nil {
		returnErrorJsonCode(err, c, 400)
		return
	}

	profile, endProfile := domain.NewProfile()
	defer endProfile()
	ctx := context.WithValue(c.Request.Context(), domain.ContextProfileKey, profile)

	result, err := m.BacktestHandler.RunSignalBacktest(ctx, app.SignalBacktestInput{
		Config:   cfg,
		Strategy: requestBody.Strategy,
	})
	if err != nil {
		returnErrorJson(err, c)
		return
	}

	c.JSON(200, toBacktestResponse(result))
}

func toBacktestResponse(result *app.BacktestResult) backtestResponse {
	out := backtestResponse{
		RunID:       result.RunID.String(),
		EquityCurve: []equityPointResponse{},
		Trades:      []tradeResponse{},
		Summary: summaryResponse{
			FinalEquity:      result.Summary.FinalEquity.InexactFloat64(),
			TotalReturn:      result.Summary.TotalReturn,
			MaxDrawdown:      result.Summary.MaxDrawdown,
			TradeCount:       result.Summary.TradeCount,
			WinRate:          result.Summary.WinRate,
			AnnualizedReturn: result.Summary.AnnualizedReturn,
			AnnualizedStdev:  result.Summary.AnnualizedStdev,
			SharpeRatio:      result.Summary.SharpeRatio,
		},
	}
	if d := result.Summary.MaxDrawdownPeakDate; d != nil {
		s := d.Format(time.DateOnly)
		out.Summary.MaxDrawdownPeakDate = &s
	}
	if d := result.Summary.MaxDrawdownTroughDate; d != nil {
		s := d.Format(time.DateOnly)
		out.Summary.MaxDrawdownTroughDate = &s
	}
	for _, p := range result.EquityCurve {
		out.EquityCurve = append(out.EquityCurve, equityPointResponse{
			Date:   p.Date.Format(time.DateOnly),
			Equity: p.Equity.InexactFloat64(),
		})
	}
	for _, t := range result.Trades {
		out.Trades = append(out.Trades, tradeResponse{
			Symbol:     t.Symbol,
			EntryDate:  t.EntryDate.Format(time.DateOnly),
			ExitDate:   t.ExitDate.Format(time.DateOnly),
			EntryPrice: t.EntryPrice.InexactFloat64(),
			ExitPrice:  t.ExitPrice.InexactFloat64(),
			Shares:     t.Shares.InexactFloat64(),
			Pnl:        t.Pnl.InexactFloat64(),
			Return:     t.Return.InexactFloat64(),
			Reason:     string(t.Reason),
		})
	}
	return out
}
