// Package calendar renders appointments as an iCalendar feed.
package calendar

import (
	"fmt"
	"io"
	"slotwise/cmd/internal/domain/entity"
	"time"

	"github.com/emersion/go-ical"
)

const productID = "-//slotwise//appointments//EN"

// icalPriority maps to RFC 5545 PRIORITY, where 1 is highest and 9 lowest.
var icalPriority = map[entity.Priority]int{
	entity.PriorityUrgent: 1,
	entity.PriorityHigh:   3,
	entity.PriorityMedium: 5,
	entity.PriorityLow:    9,
}

func Encode(w io.Writer, appts []*entity.Appointment, stamp time.Time) error {
	cal := ical.NewCalendar()
	cal.Props.SetText(ical.PropVersion, "2.0")
	cal.Props.SetText(ical.PropProductID, productID)

	for _, appt := range appts {
		cal.Children = append(cal.Children, toEvent(appt, stamp))
	}

	if err := ical.NewEncoder(w).Encode(cal); err != nil {
		return fmt.Errorf("failed to encode calendar: %w", err)
	}
	return nil
}

func toEvent(appt *entity.Appointment, stamp time.Time) *ical.Component {
	ve := ical.NewComponent(ical.CompEvent)
	ve.Props.SetText(ical.PropUID, appt.UID)
	ve.Props.SetText(ical.PropSummary, appt.Title)
	ve.Props.SetDateTime(ical.PropDateTimeStamp, stamp.UTC())
	ve.Props.SetDateTime(ical.PropDateTimeStart, time.UnixMilli(appt.BeginsAt).UTC())
	ve.Props.SetDateTime(ical.PropDateTimeEnd, time.UnixMilli(appt.EndsAt).UTC())

	if appt.Description != nil && *appt.Description != "" {
		ve.Props.SetText(ical.PropDescription, *appt.Description)
	}
	if p, ok := icalPriority[appt.Priority]; ok {
		prop := ical.NewProp(ical.PropPriority)
		prop.Value = fmt.Sprint(p)
		ve.Props.Set(prop)
	}
	return ve
}
