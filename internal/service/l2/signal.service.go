package l2_service

import (
	"fmt"
	"math"

	"signalbacktest/internal/domain"
)

// SignalService computes boolean entry/exit arrays co-indexed with a
// security's dates. The portfolio engines never see indicators - only these
// arrays cross the boundary.
type SignalService interface {
	// CrossoverSignals enters when the fast moving average crosses above the
	// slow one and exits on the opposite cross.
	CrossoverSignals(series *domain.SecuritySeries, fast, slow int) (entry, exit []bool, err error)
	// OscillatorSignals enters when a rate-of-change oscillator recovers up
	// through the oversold bound and exits when it falls back down through
	// the overbought bound.
	OscillatorSignals(series *domain.SecuritySeries, lookback int, oversold, overbought float64) (entry, exit []bool, err error)
}

type signalServiceHandler struct{}

func NewSignalService() SignalService {
	return signalServiceHandler{}
}

func (h signalServiceHandler) CrossoverSignals(series *domain.SecuritySeries, fast, slow int) ([]bool, []bool, error) {
	if fast < 1 || slow < 1 {
		return nil, nil, fmt.Errorf("moving average windows must be positive, got %d/%d", fast, slow)
	}
	if fast >= slow {
		return nil, nil, fmt.Errorf("fast window %d must be shorter than slow window %d", fast, slow)
	}

	fastMa := simpleMovingAverage(series.Close, fast)
	slowMa := simpleMovingAverage(series.Close, slow)

	n := series.Len()
	entry := make([]bool, n)
	exit := make([]bool, n)
	for i := 1; i < n; i++ {
		if anyNaN(fastMa[i], slowMa[i], fastMa[i-1], slowMa[i-1]) {
			continue
		}
		if fastMa[i] > slowMa[i] && fastMa[i-1] <= slowMa[i-1] {
			entry[i] = true
		}
		if fastMa[i] < slowMa[i] && fastMa[i-1] >= slowMa[i-1] {
			exit[i] = true
		}
	}
	return entry, exit, nil
}

func (h signalServiceHandler) OscillatorSignals(series *domain.SecuritySeries, lookback int, oversold, overbought float64) ([]bool, []bool, error) {
	if lookback < 1 {
		return nil, nil, fmt.Errorf("oscillator lookback must be positive, got %d", lookback)
	}
	if oversold >= overbought {
		return nil, nil, fmt.Errorf("oversold bound %f must be below overbought bound %f", oversold, overbought)
	}

	n := series.Len()
	osc := make([]float64, n)
	for i := 0; i < n; i++ {
		osc[i] = math.NaN()
		if i < lookback {
			continue
		}
		cur, okCur := series.CloseAt(i)
		prev, okPrev := series.CloseAt(i - lookback)
		if okCur && okPrev {
			osc[i] = (cur - prev) / prev * 100
		}
	}

	entry := make([]bool, n)
	exit := make([]bool, n)
	for i := 1; i < n; i++ {
		if anyNaN(osc[i], osc[i-1]) {
			continue
		}
		if osc[i-1] < oversold && osc[i] >= oversold {
			entry[i] = true
		}
		if osc[i-1] > overbought && osc[i] <= overbought {
			exit[i] = true
		}
	}
	return entry, exit, nil
}

// simpleMovingAverage is NaN if the window is incomplete or contains a bad
// quote - a partially-observed average would silently shift cross dates.
func simpleMovingAverage(close []float64, window int) []float64 {
	out := make([]float64, len(close))
	for i := range out {
		out[i] = math.NaN()
		if i+1 < window {
			continue
		}
		sum := 0.0
		ok := true
		for j := i + 1 - window; j <= i; j++ {
			p := close[j]
			if math.IsNaN(p) || math.IsInf(p, 0) || p <= 0 {
				ok = false
				break
			}
			sum += p
		}
		if ok {
			out[i] = sum / float64(window)
		}
	}
	return out
}

func anyNaN(vals ...float64) bool {
	for _, v := range vals {
		if math.IsNaN(v) {
			return true
		}
	}
	return false
}
