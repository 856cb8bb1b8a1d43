package scheduling

import (
	"context"
	"math"
	"math/rand/v2"
	"slotwise/cmd/internal/domain/entity"

	"github.com/labstack/gommon/log"
)

const (
	DefaultNoShowRisk = 0.1
	noShowSpread      = 0.2
)

// Predictor estimates how likely a user is to miss an appointment, in [0, 1].
type Predictor interface {
	Predict(ctx context.Context, userID int) float64
}

// AuditSink accepts audit entries without blocking. Delivery is best effort.
type AuditSink interface {
	Record(action string, subjectID int, payload any)
}

type NoShowPayload struct {
	Prediction float64 `json:"prediction"`
}

// HistoryPredictor is a placeholder model: users with any history get a uniform draw
// from [0.1, 0.3). Each prediction is sent to the audit sink so a real model can be
// trained on them later.
type HistoryPredictor struct {
	store   AppointmentStore
	sink    AuditSink
	random  func() float64
	metrics *Metrics
}

// NewHistoryPredictor uses rand.Float64 when random is nil.
func NewHistoryPredictor(store AppointmentStore, sink AuditSink, random func() float64, metrics *Metrics) *HistoryPredictor {
	if random == nil {
		random = rand.Float64
	}
	return &HistoryPredictor{store: store, sink: sink, random: random, metrics: metrics}
}

func (h *HistoryPredictor) Predict(ctx context.Context, userID int) float64 {
	history, err := h.store.FindHistoryByUserID(ctx, userID)
	if err != nil {
		log.Warnf("failed to fetch appointment history for no-show risk of user %d: %v", userID, err)
		h.metrics.incStoreError("no_show_history")
		return DefaultNoShowRisk
	}
	if len(history) == 0 {
		return DefaultNoShowRisk
	}

	risk := DefaultNoShowRisk + h.random()*noShowSpread
	if ceiling := DefaultNoShowRisk + noShowSpread; risk >= ceiling {
		risk = math.Nextafter(ceiling, 0)
	}
	h.metrics.observePrediction(risk)
	if h.sink != nil {
		h.sink.Record(entity.ActionNoShowPrediction, userID, NoShowPayload{Prediction: risk})
	}
	return risk
}
