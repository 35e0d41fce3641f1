package domain

import (
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// Portfolio is the single mutable aggregate of a replay. It is owned
// exclusively by the engine loop that created it - nothing observes or
// mutates it mid-run.
type Portfolio struct {
	Cash      decimal.Decimal
	Positions map[string]*Position

	// MarketValue is kept equal to the sum of shares*lastMark across open
	// positions by delta updates, so equity reads are O(1).
	MarketValue decimal.Decimal
}

func NewPortfolio(cash decimal.Decimal) *Portfolio {
	return &Portfolio{
		Cash:        cash,
		Positions:   map[string]*Position{},
		MarketValue: decimal.Zero,
	}
}

// Equity is cash plus marked value of open positions.
func (p *Portfolio) Equity() decimal.Decimal {
	return p.Cash.Add(p.MarketValue)
}

func (p *Portfolio) HeldSymbols() []string {
	symbols := []string{}
	for symbol := range p.Positions {
		symbols = append(symbols, symbol)
	}
	sort.Strings(symbols)
	return symbols
}

// Open adds a position. A second open position for the same symbol means the
// allocator contract was violated upstream.
func (p *Portfolio) Open(pos *Position) error {
	if _, ok := p.Positions[pos.Symbol]; ok {
		return fmt.Errorf("duplicate open position for %s", pos.Symbol)
	}
	p.Positions[pos.Symbol] = pos
	return nil
}

func (p *Portfolio) DeepCopy() *Portfolio {
	out := &Portfolio{
		Cash:        p.Cash,
		MarketValue: p.MarketValue,
		Positions:   map[string]*Position{},
	}
	for symbol, position := range p.Positions {
		out.Positions[symbol] = position.DeepCopy()
	}
	return out
}

// Position is one open holding. Shares are an integer multiple of the lot
// size in signal-event mode and continuous in periodic mode.
type Position struct {
	Symbol   string
	Shares   decimal.Decimal
	LastMark decimal.Decimal

	EntryDate  time.Time
	EntryPrice decimal.Decimal
	// CostBasis is the full entry outlay, entry fee included.
	CostBasis decimal.Decimal
	PeriodKey string
}

func (p *Position) DeepCopy() *Position {
	out := *p
	return &out
}

func (p *Position) MarkedValue() decimal.Decimal {
	return p.Shares.Mul(p.LastMark)
}

// TradeRecord is written once when a position closes and never mutated.
type TradeRecord struct {
	Symbol     string          `json:"symbol"`
	EntryDate  time.Time       `json:"entryDate"`
	ExitDate   time.Time       `json:"exitDate"`
	EntryPrice decimal.Decimal `json:"entryPrice"`
	ExitPrice  decimal.Decimal `json:"exitPrice"`
	Shares     decimal.Decimal `json:"shares"`
	Pnl        decimal.Decimal `json:"pnl"`
	Return     decimal.Decimal `json:"return"`
	Reason     EventReason     `json:"reason"`
}

type EquityPoint struct {
	Date   time.Time       `json:"date"`
	Equity decimal.Decimal `json:"equity"`
}

// EquityCurve is date-ascending with at most one point per date.
type EquityCurve []EquityPoint

// Observe appends a point, or replaces the last one when the date repeats.
// Dates are visited in order by the engine, so only the tail can repeat.
func (c *EquityCurve) Observe(date time.Time, equity decimal.Decimal) {
	if n := len(*c); n > 0 && (*c)[n-1].Date.Equal(date) {
		(*c)[n-1].Equity = equity
		return
	}
	*c = append(*c, EquityPoint{Date: date, Equity: equity})
}
