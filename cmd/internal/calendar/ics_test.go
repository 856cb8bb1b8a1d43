package calendar

import (
	"bytes"
	"slotwise/cmd/internal/domain/entity"
	"testing"
	"time"

	"github.com/emersion/go-ical"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncode(t *testing.T) {
	begin := time.Date(2024, time.June, 4, 9, 0, 0, 0, time.UTC)
	desc := "Bring the roadmap"
	appts := []*entity.Appointment{
		{UID: "a-1", Title: "Planning", Description: &desc, Priority: entity.PriorityUrgent, BeginsAt: begin.UnixMilli(), EndsAt: begin.Add(time.Hour).UnixMilli()},
		{UID: "a-2", Title: "Lunch", Priority: entity.PriorityLow, BeginsAt: begin.Add(3 * time.Hour).UnixMilli(), EndsAt: begin.Add(4 * time.Hour).UnixMilli()},
	}

	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, appts, begin))

	cal, err := ical.NewDecoder(&buf).Decode()
	require.NoError(t, err)
	events := cal.Events()
	require.Len(t, events, 2)

	summary, err := events[0].Props.Text(ical.PropSummary)
	require.NoError(t, err)
	assert.Equal(t, "Planning", summary)

	uid, err := events[1].Props.Text(ical.PropUID)
	require.NoError(t, err)
	assert.Equal(t, "a-2", uid)

	assert.Equal(t, "1", events[0].Props.Get(ical.PropPriority).Value)
	assert.Nil(t, events[1].Props.Get(ical.PropDescription))

	start, err := events[0].DateTimeStart(time.UTC)
	require.NoError(t, err)
	assert.True(t, start.Equal(begin))
}
