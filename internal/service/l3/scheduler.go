package l3_service

import (
	"container/heap"
	"time"

	"signalbacktest/internal/domain"

	"github.com/shopspring/decimal"
)

// markScheduler advances each open position's mark price to its next observed
// trading date. It holds at most one live heap entry per open position, so a
// replay visits only dates where something changes instead of rescanning
// every series on every date.
//
// None of the pack's libraries ship a priority queue, so this sits on
// container/heap keyed by (date, symbol) - symbol tiebreak for determinism.
type markScheduler struct {
	h       markHeap
	nextIdx map[string]int
	series  map[string]*domain.SecuritySeries
	end     time.Time
}

type markEntry struct {
	date   time.Time
	symbol string
	idx    int
}

type markHeap []markEntry

func (h markHeap) Len() int { return len(h) }
func (h markHeap) Less(i, j int) bool {
	if !h[i].date.Equal(h[j].date) {
		return h[i].date.Before(h[j].date)
	}
	return h[i].symbol < h[j].symbol
}
func (h markHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *markHeap) Push(x interface{}) { *h = append(*h, x.(markEntry)) }
func (h *markHeap) Pop() interface{} {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}

func newMarkScheduler(series map[string]*domain.SecuritySeries, end time.Time) *markScheduler {
	s := &markScheduler{
		h:       markHeap{},
		nextIdx: map[string]int{},
		series:  series,
		end:     end,
	}
	heap.Init(&s.h)
	return s
}

// open registers a freshly bought position. Its next unseen index is the one
// after the execution date.
func (s *markScheduler) open(symbol string, execDate time.Time) {
	if series, ok := s.series[symbol]; ok {
		s.nextIdx[symbol] = series.NextIndexAfter(execDate)
		s.schedule(symbol)
	}
}

// close drops a position from propagation. Its heap entry, if any, goes stale
// and is discarded on pop.
func (s *markScheduler) close(symbol string) {
	delete(s.nextIdx, symbol)
}

func (s *markScheduler) schedule(symbol string) {
	idx, ok := s.nextIdx[symbol]
	if !ok {
		return
	}
	series := s.series[symbol]
	if idx >= series.Len() || series.Dates[idx].After(s.end) {
		return
	}
	heap.Push(&s.h, markEntry{date: series.Dates[idx], symbol: symbol, idx: idx})
}

// drainUpTo applies every pending mark dated strictly before target. Each
// application re-marks the position and deltas the portfolio's market value;
// a bad quote carries the last mark but still advances the index. Whenever
// propagation finishes a date on which at least one price moved, an equity
// point is pushed for that date.
func (s *markScheduler) drainUpTo(target time.Time, p *domain.Portfolio, curve *domain.EquityCurve) {
	var (
		currentDate time.Time
		changed     bool
	)
	flush := func() {
		if changed {
			curve.Observe(currentDate, p.Equity())
			changed = false
		}
	}

	for s.h.Len() > 0 && s.h[0].date.Before(target) {
		entry := heap.Pop(&s.h).(markEntry)
		idx, ok := s.nextIdx[entry.symbol]
		if !ok || idx != entry.idx {
			// position closed or entry superseded
			continue
		}
		if !entry.date.Equal(currentDate) {
			flush()
			currentDate = entry.date
		}

		series := s.series[entry.symbol]
		if price, ok := series.CloseAt(entry.idx); ok {
			mark := decimal.NewFromFloat(price)
			pos := p.Positions[entry.symbol]
			if !mark.Equal(pos.LastMark) {
				p.MarketValue = p.MarketValue.Add(pos.Shares.Mul(mark.Sub(pos.LastMark)))
				pos.LastMark = mark
				changed = true
			}
		}

		s.nextIdx[entry.symbol] = entry.idx + 1
		s.schedule(entry.symbol)
	}
	flush()
}
