// Package scheduling holds the appointment heuristics: busy-interval lookup,
// alternative slot search, duration estimation and no-show risk scoring.
//
// Every function here tolerates a failing appointment store. The worst outcome
// is a less informed answer, never an error for the caller.
package scheduling

import (
	"context"
	"slotwise/cmd/internal/domain/entity"
	"time"
)

// AppointmentStore is the read side of the appointment repository the heuristics need.
type AppointmentStore interface {
	FindUpcomingByUserID(ctx context.Context, userID int, from int64) ([]*entity.Appointment, error)
	FindHistoryByUserID(ctx context.Context, userID int) ([]*entity.Appointment, error)
}

// Interval is the half-open range [Start, End).
type Interval struct {
	Start time.Time
	End   time.Time
}

// Overlaps reports whether i and o share any instant. Intervals that only
// touch at a boundary do not overlap.
func (i Interval) Overlaps(o Interval) bool {
	return i.Start.Before(o.End) && o.Start.Before(i.End)
}

// Conflicts reports whether candidate overlaps any of busy.
func Conflicts(candidate Interval, busy []Interval) bool {
	for _, b := range busy {
		if candidate.Overlaps(b) {
			return true
		}
	}
	return false
}

// Slot is an interval offered to the user. Verified is false for fallback
// slots, which were never checked against the user's calendar.
type Slot struct {
	Interval
	Verified bool
}

// BusyIntervals returns the user's committed time ranges starting at or after from,
// ordered by start.
func BusyIntervals(ctx context.Context, store AppointmentStore, userID int, from time.Time) ([]Interval, error) {
	appts, err := store.FindUpcomingByUserID(ctx, userID, from.UnixMilli())
	if err != nil {
		return nil, err
	}

	busy := make([]Interval, len(appts))
	for i, appt := range appts {
		busy[i] = Interval{
			Start: time.UnixMilli(appt.BeginsAt),
			End:   time.UnixMilli(appt.EndsAt),
		}
	}
	return busy, nil
}
