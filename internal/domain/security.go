package domain

import (
	"math"
	"sort"
	"time"
)

// SecuritySeries holds one security's daily observations. Dates are strictly
// ascending UTC midnights and the price slices are co-indexed with Dates.
// Missing observations are NaN. The simulation engine only reads these -
// ownership stays with the data layer.
type SecuritySeries struct {
	Symbol string
	Dates  []time.Time
	Close  []float64

	// optional, may be nil
	Open   []float64
	High   []float64
	Low    []float64
	Volume []float64
}

func (s *SecuritySeries) Len() int {
	return len(s.Dates)
}

// IndexOf returns the index of date in the series, or -1 if the security
// did not trade that day.
func (s *SecuritySeries) IndexOf(date time.Time) int {
	i := sort.Search(len(s.Dates), func(i int) bool {
		return !s.Dates[i].Before(date)
	})
	if i < len(s.Dates) && s.Dates[i].Equal(date) {
		return i
	}
	return -1
}

// NextIndexAfter returns the first index whose date is strictly after the
// given date, or Len() when no such index exists.
func (s *SecuritySeries) NextIndexAfter(date time.Time) int {
	return sort.Search(len(s.Dates), func(i int) bool {
		return s.Dates[i].After(date)
	})
}

// CloseAt returns the closing price at index i and whether it is a usable
// quote. NaN and non-positive closes are "no quote, carry last mark".
func (s *SecuritySeries) CloseAt(i int) (float64, bool) {
	if i < 0 || i >= len(s.Close) {
		return 0, false
	}
	p := s.Close[i]
	if math.IsNaN(p) || math.IsInf(p, 0) || p <= 0 {
		return p, false
	}
	return p, true
}

// LastValidIndexWithin returns the last index whose date falls in
// [start, end] and whose close is a usable quote, or -1.
func (s *SecuritySeries) LastValidIndexWithin(start, end time.Time) int {
	for i := len(s.Dates) - 1; i >= 0; i-- {
		if s.Dates[i].After(end) {
			continue
		}
		if s.Dates[i].Before(start) {
			break
		}
		if _, ok := s.CloseAt(i); ok {
			return i
		}
	}
	return -1
}
