package util

import (
	"fmt"
	"strconv"
	"time"
)

const layout = time.DateOnly

// NewDate builds a UTC midnight, the canonical form for trading dates here.
func NewDate(year, month, day int) time.Time {
	return time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
}

// ParseDay parses a "2006-01-02" date into UTC midnight. Integer yyyymmdd
// keys, the form some upstream feeds use, are accepted too.
func ParseDay(s string) (time.Time, error) {
	if t, err := time.Parse(layout, s); err == nil {
		return t.UTC(), nil
	}
	if key, err := strconv.Atoi(s); err == nil && len(s) == 8 {
		return FromDayKey(key), nil
	}
	return time.Time{}, fmt.Errorf("failed to parse date %q", s)
}

// FromDayKey converts an integer yyyymmdd key into UTC midnight.
func FromDayKey(key int) time.Time {
	return NewDate(key/10000, (key/100)%100, key%100)
}
