package reminder

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"slotwise/cmd/internal/domain/entity"
	"time"

	"github.com/codeGROOVE-dev/retry"
	"github.com/labstack/gommon/log"
)

type Mailer interface {
	Send(ctx context.Context, to, subject, body string) error
}

// EmailNotifier renders the reminder in the configured location and mails it to the user.
type EmailNotifier struct {
	mailer Mailer
	loc    *time.Location
}

func NewEmailNotifier(mailer Mailer, loc *time.Location) *EmailNotifier {
	if loc == nil {
		loc = time.Local
	}
	return &EmailNotifier{mailer: mailer, loc: loc}
}

func (n *EmailNotifier) Notify(ctx context.Context, r *entity.Reminder) error {
	if r.User.Email == "" {
		return fmt.Errorf("user %d has no email address", r.UserID)
	}
	begins := time.UnixMilli(r.Appointment.BeginsAt).In(n.loc)
	subject := fmt.Sprintf("Reminder: %s", r.Appointment.Title)
	body := fmt.Sprintf("Hi %s,\n\n%q starts on %s.\n",
		r.User.Username, r.Appointment.Title, begins.Format("Monday, 02 Jan 2006 at 15:04 MST"))
	return n.mailer.Send(ctx, r.User.Email, subject, body)
}

type pushMessage struct {
	ReminderID    string `json:"reminder_id"`
	UserID        int    `json:"user_id"`
	AppointmentID int    `json:"appointment_id"`
	Title         string `json:"title"`
	BeginsAt      string `json:"begins_at"`
}

// WebhookNotifier posts push reminders as JSON to a push gateway.
type WebhookNotifier struct {
	url    string
	client *http.Client
	delay  time.Duration
}

func NewWebhookNotifier(url string) *WebhookNotifier {
	return &WebhookNotifier{url: url, client: &http.Client{Timeout: 10 * time.Second}, delay: 500 * time.Millisecond}
}

func (n *WebhookNotifier) Notify(ctx context.Context, r *entity.Reminder) error {
	payload, err := json.Marshal(pushMessage{
		ReminderID:    r.ID,
		UserID:        r.UserID,
		AppointmentID: r.AppointmentID,
		Title:         r.Appointment.Title,
		BeginsAt:      time.UnixMilli(r.Appointment.BeginsAt).UTC().Format(time.RFC3339),
	})
	if err != nil {
		return err
	}

	return retry.Do(
		func() error {
			req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(payload))
			if err != nil {
				return err
			}
			req.Header.Set("Content-Type", "application/json")
			req.Header.Set("Idempotency-Key", r.ID)

			resp, err := n.client.Do(req)
			if err != nil {
				return err
			}
			defer resp.Body.Close()
			if resp.StatusCode >= http.StatusBadRequest {
				body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
				return fmt.Errorf("push gateway HTTP %d: %s", resp.StatusCode, string(body))
			}
			return nil
		},
		retry.Context(ctx),
		retry.Attempts(3),
		retry.Delay(n.delay),
		retry.DelayType(retry.FullJitterBackoffDelay),
		retry.OnRetry(func(attempt uint, err error) {
			log.Debugf("retrying push reminder %s (attempt %d): %v", r.ID, attempt+1, err)
		}),
	)
}

// LogNotifier stands in for a channel with no configured provider.
type LogNotifier struct{}

func (LogNotifier) Notify(_ context.Context, r *entity.Reminder) error {
	log.Infof("[%s] reminder %s for user %d: %q at %s", r.Channel, r.ID, r.UserID,
		r.Appointment.Title, time.UnixMilli(r.Appointment.BeginsAt).UTC().Format(time.RFC3339))
	return nil
}
