package scheduling

import (
	"context"
	"math"
	"slotwise/cmd/internal/domain/entity"
	"slotwise/cmd/internal/utils"
	"strings"
	"unicode/utf8"

	"github.com/labstack/gommon/log"
)

const (
	NoHistoryDuration  = 60
	StoreErrorDuration = 30
	NoMatchDuration    = 30

	durationIncrement    = 15
	minKeywordLength     = 4
	longDescriptionWords = 100
	midDescriptionWords  = 50
)

// EstimateDuration recommends a meeting length in minutes for a new appointment,
// based on the user's earlier appointments with similar titles. Without a similar
// appointment the description length decides.
func (p *Planner) EstimateDuration(ctx context.Context, userID int, title string, description string) int {
	minutes := p.estimateDuration(ctx, userID, title, description)
	p.metrics.observeEstimate(minutes)
	return minutes
}

func (p *Planner) estimateDuration(ctx context.Context, userID int, title string, description string) int {
	history, err := p.store.FindHistoryByUserID(ctx, userID)
	if err != nil {
		log.Warnf("failed to fetch appointment history for user %d: %v", userID, err)
		p.metrics.incStoreError("duration_history")
		return StoreErrorDuration
	}
	if len(history) == 0 {
		return NoHistoryDuration
	}

	similar := similarAppointments(history, titleKeywords(title))
	if len(similar) > 0 {
		var total float64
		for _, appt := range similar {
			total += appt.DurationMinutes()
		}
		return roundToIncrement(total / float64(len(similar)))
	}

	if strings.TrimSpace(description) == "" {
		return NoMatchDuration
	}

	switch words := utils.WordCount(description); {
	case words > longDescriptionWords:
		return 60
	case words > midDescriptionWords:
		return 45
	default:
		return 30
	}
}

// titleKeywords lowercases title and keeps the words longer than three characters.
func titleKeywords(title string) []string {
	var keywords []string
	for _, word := range strings.Fields(strings.ToLower(title)) {
		if utf8.RuneCountInString(word) >= minKeywordLength {
			keywords = append(keywords, word)
		}
	}
	return keywords
}

// similarAppointments keeps appointments whose title contains any keyword.
func similarAppointments(history []*entity.Appointment, keywords []string) []*entity.Appointment {
	if len(keywords) == 0 {
		return nil
	}

	var similar []*entity.Appointment
	for _, appt := range history {
		title := strings.ToLower(appt.Title)
		for _, kw := range keywords {
			if strings.Contains(title, kw) {
				similar = append(similar, appt)
				break
			}
		}
	}
	return similar
}

// roundToIncrement rounds to the nearest multiple of 15 minutes, halves up.
// Averages under 7.5 minutes round to 0.
func roundToIncrement(minutes float64) int {
	return int(math.Floor(minutes/durationIncrement+0.5)) * durationIncrement
}
