package service

import (
	"context"
	"slotwise/cmd/internal/domain/entity"
	"slotwise/cmd/internal/scheduling"
	"slotwise/cmd/internal/utils"
	"slotwise/cmd/internal/utils/apierror"
	"time"

	"github.com/go-playground/validator/v10"
)

const defaultAlternativesCount = 3

type DurationRequest struct {
	Title       string `query:"title" validate:"required,max=128"`
	Description string `query:"description" validate:"max=20000"`
}

type DurationResponse struct {
	Minutes int `json:"minutes"`
}

type AlternativesRequest struct {
	Duration int `query:"duration" validate:"required,min=5,max=720"`
	Count    int `query:"count" validate:"omitempty,min=1,max=25"`
}

type SlotResponse struct {
	BeginsAt string `json:"begins_at"`
	EndsAt   string `json:"ends_at"`
	Verified bool   `json:"verified"`
}

type AlternativesResponse struct {
	Slots    []*SlotResponse `json:"slots"`
	Fallback bool            `json:"fallback"`
}

type NoShowResponse struct {
	UserID      int     `json:"user_id"`
	Probability float64 `json:"probability"`
}

// DefaultSchedulingService exposes the scheduling heuristics for the authenticated user.
// Every heuristic recovers from its own failures, so the only errors returned here come
// from resolving who is asking.
type DefaultSchedulingService struct {
	UserRepo  UserRepository
	Planner   *scheduling.Planner
	Predictor scheduling.Predictor
	Validate  *validator.Validate
}

func NewSchedulingService(userRepo UserRepository, planner *scheduling.Planner, predictor scheduling.Predictor, validate *validator.Validate) *DefaultSchedulingService {
	return &DefaultSchedulingService{UserRepo: userRepo, Planner: planner, Predictor: predictor, Validate: validate}
}

func (s *DefaultSchedulingService) EstimateDuration(ctx context.Context, req *DurationRequest, subId string) (*DurationResponse, apierror.ErrorResponse) {
	caller, apierr := s.fetchCaller(subId)
	if apierr != nil {
		return nil, apierr
	}

	utils.Sanitize(req)
	if err := s.Validate.Struct(req); err != nil {
		return nil, apierror.FromValidationError(err)
	}

	minutes := s.Planner.EstimateDuration(ctx, caller.ID, req.Title, req.Description)
	return &DurationResponse{Minutes: minutes}, nil
}

func (s *DefaultSchedulingService) FindAlternatives(ctx context.Context, req *AlternativesRequest, subId string) (*AlternativesResponse, apierror.ErrorResponse) {
	caller, apierr := s.fetchCaller(subId)
	if apierr != nil {
		return nil, apierr
	}

	if err := s.Validate.Struct(req); err != nil {
		return nil, apierror.FromValidationError(err)
	}

	count := req.Count
	if count == 0 {
		count = defaultAlternativesCount
	}

	result := s.Planner.FindAlternatives(ctx, caller.ID, time.Duration(req.Duration)*time.Minute, count)

	slots := make([]*SlotResponse, len(result.Slots))
	for i, slot := range result.Slots {
		slots[i] = &SlotResponse{
			BeginsAt: slot.Start.UTC().Format(time.RFC3339),
			EndsAt:   slot.End.UTC().Format(time.RFC3339),
			Verified: slot.Verified,
		}
	}
	return &AlternativesResponse{Slots: slots, Fallback: result.Fallback}, nil
}

// PredictNoShow scores the caller, or another user when rawUserId names one.
// Looking at someone else requires the moderator or admin role.
func (s *DefaultSchedulingService) PredictNoShow(ctx context.Context, rawUserId, subId string) (*NoShowResponse, apierror.ErrorResponse) {
	caller, apierr := s.fetchCaller(subId)
	if apierr != nil {
		return nil, apierr
	}

	target, apierr := resolveUser(s.UserRepo, caller, rawUserId, "user_id", isStaff(caller))
	if apierr != nil {
		return nil, apierr
	}

	p := s.Predictor.Predict(ctx, target.ID)
	return &NoShowResponse{UserID: target.ID, Probability: p}, nil
}

func (s *DefaultSchedulingService) fetchCaller(subId string) (*entity.User, apierror.ErrorResponse) {
	return fetchCaller(s.UserRepo, subId)
}
