package routes

import (
	"context"
	"net/http"
	"slotwise/cmd/internal/service"
	"slotwise/cmd/internal/utils"
	"slotwise/cmd/internal/utils/apierror"

	"github.com/labstack/echo/v4"
)

type SchedulingService interface {
	EstimateDuration(ctx context.Context, req *service.DurationRequest, subId string) (*service.DurationResponse, apierror.ErrorResponse)
	FindAlternatives(ctx context.Context, req *service.AlternativesRequest, subId string) (*service.AlternativesResponse, apierror.ErrorResponse)
	PredictNoShow(ctx context.Context, rawUserId, subId string) (*service.NoShowResponse, apierror.ErrorResponse)
}

type DefaultSchedulingRoute struct {
	SchedulingService SchedulingService
}

func NewSchedulingDefault(schedService SchedulingService) *DefaultSchedulingRoute {
	return &DefaultSchedulingRoute{SchedulingService: schedService}
}

func (s *DefaultSchedulingRoute) EstimateDuration(c echo.Context) error {
	var req service.DurationRequest
	if err := (&echo.DefaultBinder{}).BindQueryParams(c, &req); err != nil {
		return c.JSON(http.StatusBadRequest, apierror.MalformedBodyError)
	}

	data, err := utils.ParseTokenDataCtx(c)
	if err != nil {
		return c.JSON(401, apierror.InvalidAuthTokenError)
	}

	resp, apierr := s.SchedulingService.EstimateDuration(c.Request().Context(), &req, data.Sub)
	if apierr != nil {
		return c.JSON(apierr.Code(), apierr)
	}
	return c.JSON(http.StatusOK, resp)
}

func (s *DefaultSchedulingRoute) FindAlternatives(c echo.Context) error {
	if c.QueryParam("duration") == "" {
		return c.JSON(http.StatusBadRequest, apierror.NewMissingParamError("duration"))
	}

	var req service.AlternativesRequest
	if err := (&echo.DefaultBinder{}).BindQueryParams(c, &req); err != nil {
		apierr := apierror.NewInvalidParamTypeError("duration/count", "int32")
		return c.JSON(apierr.Code(), apierr)
	}

	data, err := utils.ParseTokenDataCtx(c)
	if err != nil {
		return c.JSON(401, apierror.InvalidAuthTokenError)
	}

	resp, apierr := s.SchedulingService.FindAlternatives(c.Request().Context(), &req, data.Sub)
	if apierr != nil {
		return c.JSON(apierr.Code(), apierr)
	}
	return c.JSON(http.StatusOK, resp)
}

func (s *DefaultSchedulingRoute) PredictNoShow(c echo.Context) error {
	data, err := utils.ParseTokenDataCtx(c)
	if err != nil {
		return c.JSON(401, apierror.InvalidAuthTokenError)
	}

	resp, apierr := s.SchedulingService.PredictNoShow(c.Request().Context(), c.QueryParam("user_id"), data.Sub)
	if apierr != nil {
		return c.JSON(apierr.Code(), apierr)
	}
	return c.JSON(http.StatusOK, resp)
}
