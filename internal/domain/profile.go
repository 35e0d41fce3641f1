package domain

import (
	"context"
	"time"
)

const ContextProfileKey = "performanceProfile"

// Profile collects coarse timing spans for one run so slow phases (event
// building, replay, summary) show up in the result payload.
type Profile struct {
	Spans   []*Span `json:"spans"`
	TotalMs *int64  `json:"totalMs"`

	startTs time.Time
}

type Span struct {
	Name    string `json:"name"`
	Elapsed *int64 `json:"elapsedMs"`

	startTs time.Time
}

func NewProfile() (*Profile, func()) {
	p := &Profile{startTs: time.Now()}
	return p, p.End
}

func (p *Profile) End() {
	if p.TotalMs == nil {
		t := time.Since(p.startTs).Milliseconds()
		p.TotalMs = &t
	}
}

func (p *Profile) StartNewSpan(name string) (*Span, func()) {
	s := &Span{Name: name, startTs: time.Now()}
	p.Spans = append(p.Spans, s)
	return s, s.End
}

func (s *Span) End() {
	if s.Elapsed == nil {
		t := time.Since(s.startTs).Milliseconds()
		s.Elapsed = &t
	}
}

// GetProfile pulls the run profile off the context, creating a throwaway one
// when the caller didn't attach any.
func GetProfile(ctx context.Context) (*Profile, func()) {
	if p, ok := ctx.Value(ContextProfileKey).(*Profile); ok {
		return p, p.End
	}
	p, end := NewProfile()
	return p, end
}
