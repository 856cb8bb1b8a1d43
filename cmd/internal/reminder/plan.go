// Package reminder plans appointment reminders and delivers them on a cron schedule.
package reminder

import (
	"slotwise/cmd/internal/domain/entity"
	"time"

	"github.com/google/uuid"
)

// Offsets are how long before an appointment each reminder goes out.
var Offsets = []time.Duration{24 * time.Hour, time.Hour}

var Channels = []entity.Channel{entity.ChannelEmail, entity.ChannelPush}

// Plan builds one reminder per recipient, offset and channel. Reminders whose send
// time is already past are skipped. Duplicate recipients are collapsed.
func Plan(appt *entity.Appointment, recipients []int, now int64) []*entity.Reminder {
	seen := make(map[int]struct{}, len(recipients))
	var reminders []*entity.Reminder
	for _, userID := range recipients {
		if _, dup := seen[userID]; dup {
			continue
		}
		seen[userID] = struct{}{}

		for _, offset := range Offsets {
			sendAt := appt.BeginsAt - offset.Milliseconds()
			if sendAt <= now {
				continue
			}
			for _, channel := range Channels {
				reminders = append(reminders, &entity.Reminder{
					ID:            uuid.NewString(),
					AppointmentID: appt.ID,
					UserID:        userID,
					Channel:       channel,
					SendAt:        sendAt,
				})
			}
		}
	}
	return reminders
}
