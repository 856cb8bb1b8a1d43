package service

import (
	"context"
	"net/http"
	"slotwise/cmd/internal/domain/entity"
	"slotwise/cmd/internal/domain/sqlite/repository"
	"slotwise/cmd/internal/scheduling"
	"slotwise/cmd/internal/utils/apierror"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type fixedPredictor struct {
	asked []int
}

func (f *fixedPredictor) Predict(_ context.Context, userID int) float64 {
	f.asked = append(f.asked, userID)
	return 0.2
}

func newSchedulingService(t *testing.T) (*DefaultSchedulingService, *fixedPredictor, *gorm.DB) {
	t.Helper()
	db := newTestDB(t)
	planner := scheduling.NewPlanner(repository.NewAppointmentRepository(db), scheduling.Config{
		Location: time.UTC,
		Now:      func() time.Time { return testNow },
	})
	predictor := &fixedPredictor{}
	return NewSchedulingService(repository.NewUserRepository(db), planner, predictor, newValidator()), predictor, db
}

func TestEstimateDuration_UsesCallerHistory(t *testing.T) {
	svc, _, db := newSchedulingService(t)
	user := seedUser(t, db, "ana", entity.RoleUser)

	resp, apierr := svc.EstimateDuration(context.Background(), &DurationRequest{Title: "Sprint planning"}, user.SubUUID)
	require.Nil(t, apierr)
	assert.Equal(t, scheduling.NoHistoryDuration, resp.Minutes)

	start := testNow.Add(-72 * time.Hour)
	require.NoError(t, db.Create(&entity.Appointment{
		UID: "p1", UserID: user.ID, Title: "Planning poker",
		BeginsAt: start.UnixMilli(), EndsAt: start.Add(90 * time.Minute).UnixMilli(),
		Priority: entity.PriorityMedium,
	}).Error)

	resp, apierr = svc.EstimateDuration(context.Background(), &DurationRequest{Title: "Sprint planning"}, user.SubUUID)
	require.Nil(t, apierr)
	assert.Equal(t, 90, resp.Minutes)

	_, apierr = svc.EstimateDuration(context.Background(), &DurationRequest{Title: "   "}, user.SubUUID)
	require.NotNil(t, apierr)
	assert.Equal(t, http.StatusBadRequest, apierr.Code())
}

func TestFindAlternatives(t *testing.T) {
	svc, _, db := newSchedulingService(t)
	user := seedUser(t, db, "ana", entity.RoleUser)

	busy := time.Date(2024, time.June, 4, 9, 0, 0, 0, time.UTC)
	require.NoError(t, db.Create(&entity.Appointment{
		UID: "busy", UserID: user.ID, Title: "Standup",
		BeginsAt: busy.UnixMilli(), EndsAt: busy.Add(time.Hour).UnixMilli(),
		Priority: entity.PriorityMedium,
	}).Error)

	resp, apierr := svc.FindAlternatives(context.Background(), &AlternativesRequest{Duration: 60}, user.SubUUID)
	require.Nil(t, apierr)
	assert.False(t, resp.Fallback)
	require.Len(t, resp.Slots, defaultAlternativesCount)
	assert.Equal(t, "2024-06-04T11:00:00Z", resp.Slots[0].BeginsAt)
	assert.Equal(t, "2024-06-04T12:00:00Z", resp.Slots[0].EndsAt)
	assert.True(t, resp.Slots[0].Verified)

	resp, apierr = svc.FindAlternatives(context.Background(), &AlternativesRequest{Duration: 30, Count: 7}, user.SubUUID)
	require.Nil(t, apierr)
	assert.Len(t, resp.Slots, 7)
}

func TestFindAlternatives_Validation(t *testing.T) {
	svc, _, db := newSchedulingService(t)
	user := seedUser(t, db, "ana", entity.RoleUser)

	for _, req := range []*AlternativesRequest{
		{Duration: 0},
		{Duration: 4},
		{Duration: 721},
		{Duration: 60, Count: 26},
	} {
		_, apierr := svc.FindAlternatives(context.Background(), req, user.SubUUID)
		require.NotNil(t, apierr, "request %+v", req)
		assert.Equal(t, http.StatusBadRequest, apierr.Code())
	}
}

func TestPredictNoShow(t *testing.T) {
	svc, predictor, db := newSchedulingService(t)
	user := seedUser(t, db, "ana", entity.RoleUser)
	other := seedUser(t, db, "bob", entity.RoleUser)
	mod := seedUser(t, db, "mod", entity.RoleModerator)

	resp, apierr := svc.PredictNoShow(context.Background(), "", user.SubUUID)
	require.Nil(t, apierr)
	assert.Equal(t, user.ID, resp.UserID)
	assert.InDelta(t, 0.2, resp.Probability, 1e-9)

	_, apierr = svc.PredictNoShow(context.Background(), itoa(other.ID), user.SubUUID)
	assert.Equal(t, apierror.ForbiddenError, apierr)

	// Plain users learn nothing about which ids exist.
	_, apierr = svc.PredictNoShow(context.Background(), "999", user.SubUUID)
	assert.Equal(t, apierror.ForbiddenError, apierr)

	resp, apierr = svc.PredictNoShow(context.Background(), MeID, user.SubUUID)
	require.Nil(t, apierr)
	assert.Equal(t, user.ID, resp.UserID)

	resp, apierr = svc.PredictNoShow(context.Background(), itoa(other.ID), mod.SubUUID)
	require.Nil(t, apierr)
	assert.Equal(t, other.ID, resp.UserID)

	_, apierr = svc.PredictNoShow(context.Background(), "999", mod.SubUUID)
	assert.Equal(t, apierror.NotFoundError, apierr)

	_, apierr = svc.PredictNoShow(context.Background(), "abc", mod.SubUUID)
	assert.Equal(t, http.StatusBadRequest, apierr.Code())

	assert.Equal(t, []int{user.ID, user.ID, other.ID}, predictor.asked)
}
