package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

type ExecutionTiming string

const (
	// trade at the close of the bar the signal fired on
	ExecutionTiming_SameDay ExecutionTiming = "same-day"
	// trade at the next observed close, so the decision never uses a price
	// that wasn't known yet
	ExecutionTiming_NextAvailable ExecutionTiming = "next-available"
)

var bpsDenominator = decimal.NewFromInt(10000)

// RunConfig bounds and parameterizes a single backtest run.
type RunConfig struct {
	Start          time.Time
	End            time.Time
	InitialCapital decimal.Decimal
	Timing         ExecutionTiming

	// Lot is the minimum tradable unit. Signal-event mode only; the periodic
	// simulator uses continuously divisible shares.
	Lot int64

	FeeBps   int64 // proportional fee, both sides
	StampBps int64 // transaction tax, sell side only
}

// Validate rejects misconfigured runs before any simulation starts. These are
// operator mistakes, not data quality issues, so they never degrade to a
// default.
func (c RunConfig) Validate() error {
	if c.Start.IsZero() || c.End.IsZero() {
		return fmt.Errorf("start and end dates are required")
	}
	if c.End.Before(c.Start) {
		return fmt.Errorf("end date %s is before start date %s", c.End.Format(time.DateOnly), c.Start.Format(time.DateOnly))
	}
	if !c.InitialCapital.IsPositive() {
		return fmt.Errorf("initial capital must be positive, got %s", c.InitialCapital.String())
	}
	if c.Timing != ExecutionTiming_SameDay && c.Timing != ExecutionTiming_NextAvailable {
		return fmt.Errorf("unknown execution timing %q", c.Timing)
	}
	if c.FeeBps < 0 {
		return fmt.Errorf("fee bps must be >= 0, got %d", c.FeeBps)
	}
	if c.StampBps < 0 {
		return fmt.Errorf("stamp bps must be >= 0, got %d", c.StampBps)
	}
	// a combined rate at or above 100% would eat more than the gross on
	// every exit; reject it here so the engines never see it
	if c.FeeBps+c.StampBps >= 10000 {
		return fmt.Errorf("combined fee and stamp rate must be below 100%%, got %d bps", c.FeeBps+c.StampBps)
	}
	return nil
}

// ValidateSignalMode additionally checks the lot size, which only the
// signal-event engine uses.
func (c RunConfig) ValidateSignalMode() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if c.Lot < 1 {
		return fmt.Errorf("lot size must be a positive integer, got %d", c.Lot)
	}
	return nil
}

func (c RunConfig) FeeRate() decimal.Decimal {
	return decimal.NewFromInt(c.FeeBps).Div(bpsDenominator)
}

func (c RunConfig) StampRate() decimal.Decimal {
	return decimal.NewFromInt(c.StampBps).Div(bpsDenominator)
}

// InWindow reports whether t falls inside the inclusive [Start, End] bounds.
func (c RunConfig) InWindow(t time.Time) bool {
	return !t.Before(c.Start) && !t.After(c.End)
}
