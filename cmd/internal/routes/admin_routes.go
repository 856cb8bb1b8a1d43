package routes

import (
	"context"
	"net/http"
	"slotwise/cmd/internal/service"
	"slotwise/cmd/internal/utils"
	"slotwise/cmd/internal/utils/apierror"
	"strings"

	"github.com/labstack/echo/v4"
)

type AdminService interface {
	UpdateRole(ctx context.Context, rawId string, req *service.RoleRequest, subId string) (*service.UserResponse, apierror.ErrorResponse)
	ListAuditLogs(req *service.AuditLogsRequest) ([]*service.AuditLogResponse, apierror.ErrorResponse)
}

type DefaultAdminRoute struct {
	AdminService AdminService
}

func NewAdminDefault(adminService AdminService) *DefaultAdminRoute {
	return &DefaultAdminRoute{AdminService: adminService}
}

func (a *DefaultAdminRoute) UpdateRole(c echo.Context) error {
	rawId := strings.TrimSpace(c.Param("id"))
	if rawId == "" {
		return c.JSON(http.StatusBadRequest, apierror.NewMissingParamError("id"))
	}

	var req service.RoleRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, apierror.MalformedBodyError)
	}

	data, err := utils.ParseTokenDataCtx(c)
	if err != nil {
		return c.JSON(401, apierror.InvalidAuthTokenError)
	}

	user, apierr := a.AdminService.UpdateRole(c.Request().Context(), rawId, &req, data.Sub)
	if apierr != nil {
		return c.JSON(apierr.Code(), apierr)
	}
	return c.JSON(http.StatusOK, user)
}

func (a *DefaultAdminRoute) ListAuditLogs(c echo.Context) error {
	var req service.AuditLogsRequest
	if err := (&echo.DefaultBinder{}).BindQueryParams(c, &req); err != nil {
		apierr := apierror.NewInvalidParamTypeError("limit/subject_id", "int32")
		return c.JSON(apierr.Code(), apierr)
	}

	logs, apierr := a.AdminService.ListAuditLogs(&req)
	if apierr != nil {
		return c.JSON(apierr.Code(), apierr)
	}

	resp := echo.Map{"audit_logs": logs}
	return c.JSON(http.StatusOK, &resp)
}
