package domain

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

type TradeSide string

const (
	TradeSide_Buy  TradeSide = "buy"
	TradeSide_Sell TradeSide = "sell"
)

// EventReason is diagnostic only. It ends up on trade records but never
// affects event ordering.
type EventReason string

const (
	EventReason_SignalEntry  EventReason = "signal_entry"
	EventReason_SignalExit   EventReason = "signal_exit"
	EventReason_ForceExitEof EventReason = "force_exit_eof"
	EventReason_PeriodExit   EventReason = "period_exit"
)

// ExecutionEvent is a dated buy/sell intent with its execution price already
// resolved against the security's series.
type ExecutionEvent struct {
	Date   time.Time
	Side   TradeSide
	Symbol string
	Price  decimal.Decimal
	Reason EventReason
}

// SortExecutionEvents orders events by (date, sells before buys, symbol).
// Sells settle first so cash freed by an exit is available to same-day
// entrants, and the symbol tiebreak keeps replays deterministic.
func SortExecutionEvents(events []ExecutionEvent) {
	sort.SliceStable(events, func(i, j int) bool {
		a, b := events[i], events[j]
		if !a.Date.Equal(b.Date) {
			return a.Date.Before(b.Date)
		}
		if a.Side != b.Side {
			return a.Side == TradeSide_Sell
		}
		return a.Symbol < b.Symbol
	})
}

// PeriodPlan is one calendar period of a rotation strategy: buy the picks on
// BuyDate, hold, liquidate everything on SellDate. Both dates are observed
// trading dates and BuyDate < SellDate.
type PeriodPlan struct {
	PeriodKey string
	BuyDate   time.Time
	SellDate  time.Time
	Picks     []string
}
