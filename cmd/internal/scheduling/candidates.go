package scheduling

import "time"

const (
	// HorizonDays is how many days ahead of today the search looks.
	HorizonDays = 7

	fallbackFirstHour = 9
	fallbackStep      = 2 * time.Hour
)

// SlotHours is the daily grid of start hours, in order of preference.
var SlotHours = [...]int{9, 11, 13, 15, 17}

// GenerateCandidates walks the business-day grid from tomorrow through HorizonDays ahead,
// day first then hour, and returns up to count intervals that start strictly after now
// and pass accept. A nil accept takes every candidate.
func GenerateCandidates(now time.Time, loc *time.Location, duration time.Duration, count int, accept func(Interval) bool) []Interval {
	if count <= 0 {
		return nil
	}

	local := now.In(loc)
	found := make([]Interval, 0, count)
	for day := 1; day <= HorizonDays; day++ {
		date := time.Date(local.Year(), local.Month(), local.Day()+day, 0, 0, 0, 0, loc)
		if isWeekend(date.Weekday()) {
			continue
		}

		for _, hour := range SlotHours {
			start := time.Date(date.Year(), date.Month(), date.Day(), hour, 0, 0, 0, loc)
			if !start.After(now) {
				continue
			}

			candidate := Interval{Start: start, End: start.Add(duration)}
			if accept != nil && !accept(candidate) {
				continue
			}

			found = append(found, candidate)
			if len(found) == count {
				return found
			}
		}
	}
	return found
}

// DefaultSlots returns count placeholder slots starting tomorrow at 09:00, each
// start two hours after the previous one. They are not checked for conflicts.
func DefaultSlots(now time.Time, loc *time.Location, duration time.Duration, count int) []Slot {
	if count <= 0 {
		return nil
	}

	local := now.In(loc)
	first := time.Date(local.Year(), local.Month(), local.Day()+1, fallbackFirstHour, 0, 0, 0, loc)

	slots := make([]Slot, count)
	for i := range slots {
		start := first.Add(time.Duration(i) * fallbackStep)
		slots[i] = Slot{Interval: Interval{Start: start, End: start.Add(duration)}}
	}
	return slots
}

func isWeekend(d time.Weekday) bool {
	return d == time.Saturday || d == time.Sunday
}
