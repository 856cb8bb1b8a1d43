package scheduling

import (
	"context"
	"time"

	"github.com/labstack/gommon/log"
)

// Config tunes a Planner. The zero value is usable.
type Config struct {
	// Location anchors the business-hour grid. Defaults to time.Local.
	Location *time.Location
	// Now defaults to time.Now.
	Now     func() time.Time
	Metrics *Metrics
}

// Planner runs the slot search and the duration estimate against one appointment store.
type Planner struct {
	store   AppointmentStore
	loc     *time.Location
	now     func() time.Time
	metrics *Metrics
}

func NewPlanner(store AppointmentStore, cfg Config) *Planner {
	p := &Planner{store: store, loc: cfg.Location, now: cfg.Now, metrics: cfg.Metrics}
	if p.loc == nil {
		p.loc = time.Local
	}
	if p.now == nil {
		p.now = time.Now
	}
	return p
}

// SearchResult is the outcome of FindAlternatives.
type SearchResult struct {
	Slots []Slot
	// Fallback is set when Slots came from DefaultSlots.
	Fallback bool
}

// FindAlternatives searches the user's coming business days for conflict-free slots
// of the given length. When the calendar cannot be read, or nothing on the grid is
// free, it returns DefaultSlots instead. A short but non-empty result is returned as is.
func (p *Planner) FindAlternatives(ctx context.Context, userID int, duration time.Duration, count int) *SearchResult {
	now := p.now()

	busy, err := BusyIntervals(ctx, p.store, userID, now)
	if err != nil {
		log.Warnf("failed to fetch busy intervals for user %d, using default slots: %v", userID, err)
		p.metrics.incStoreError("busy_intervals")
		return p.fallback(now, duration, count)
	}

	free := GenerateCandidates(now, p.loc, duration, count, func(c Interval) bool {
		return !Conflicts(c, busy)
	})
	if len(free) == 0 {
		return p.fallback(now, duration, count)
	}

	if len(free) < count {
		p.metrics.incSearch(OutcomeShort)
	} else {
		p.metrics.incSearch(OutcomeVerified)
	}

	slots := make([]Slot, len(free))
	for i, c := range free {
		slots[i] = Slot{Interval: c, Verified: true}
	}
	return &SearchResult{Slots: slots}
}

func (p *Planner) fallback(now time.Time, duration time.Duration, count int) *SearchResult {
	p.metrics.incSearch(OutcomeFallback)
	return &SearchResult{Slots: DefaultSlots(now, p.loc, duration, count), Fallback: true}
}

// Now is the planner's clock, so callers validating requests agree with it.
func (p *Planner) Now() time.Time {
	return p.now()
}
