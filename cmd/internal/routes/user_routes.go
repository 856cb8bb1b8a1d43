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

type UserService interface {
	GetUsers(req *service.UsersRequest, subId string) ([]*service.UserResponse, apierror.ErrorResponse)
	GetUser(ctx context.Context, rawId, subId string) (*service.UserResponse, apierror.ErrorResponse)
	CreateUser(req *service.CreateUserRequest) apierror.ErrorResponse
	Login(req *service.UserLoginRequest) (*service.UserLoginResponse, apierror.ErrorResponse)
	ConfirmSignup(req *service.ConfirmSignupRequest) apierror.ErrorResponse
}

type DefaultUserRoute struct {
	UserService UserService
}

func NewUserDefault(userService UserService) *DefaultUserRoute {
	return &DefaultUserRoute{UserService: userService}
}

// GetUsers answers GET /api/users?role=moderator.
func (u *DefaultUserRoute) GetUsers(c echo.Context) error {
	var req service.UsersRequest
	if err := (&echo.DefaultBinder{}).BindQueryParams(c, &req); err != nil {
		return c.JSON(http.StatusBadRequest, apierror.MalformedBodyError)
	}

	data, err := utils.ParseTokenDataCtx(c)
	if err != nil {
		return c.JSON(401, apierror.InvalidAuthTokenError)
	}

	users, apierr := u.UserService.GetUsers(&req, data.Sub)
	if apierr != nil {
		return c.JSON(apierr.Code(), apierr)
	}

	resp := echo.Map{"users": users}
	return c.JSON(http.StatusOK, &resp)
}

// GetUser answers GET /api/users/:id, where :id may be service.MeID.
func (u *DefaultUserRoute) GetUser(c echo.Context) error {
	rawId := strings.TrimSpace(c.Param("id"))
	if rawId == "" {
		return c.JSON(http.StatusBadRequest, apierror.NewMissingParamError("id"))
	}

	data, err := utils.ParseTokenDataCtx(c)
	if err != nil {
		return c.JSON(401, apierror.InvalidAuthTokenError)
	}

	user, apierr := u.UserService.GetUser(c.Request().Context(), rawId, data.Sub)
	if apierr != nil {
		return c.JSON(apierr.Code(), apierr)
	}
	return c.JSON(http.StatusOK, user)
}

func (u *DefaultUserRoute) CreateUser(c echo.Context) error {
	return withBody(c, func(req *service.CreateUserRequest) error {
		if apierr := u.UserService.CreateUser(req); apierr != nil {
			return c.JSON(apierr.Code(), apierr)
		}
		return c.NoContent(http.StatusCreated)
	})
}

func (u *DefaultUserRoute) CreateLogin(c echo.Context) error {
	return withBody(c, func(req *service.UserLoginRequest) error {
		resp, apierr := u.UserService.Login(req)
		if apierr != nil {
			return c.JSON(apierr.Code(), apierr)
		}
		return c.JSON(http.StatusOK, resp)
	})
}

func (u *DefaultUserRoute) VerifySignup(c echo.Context) error {
	return withBody(c, func(req *service.ConfirmSignupRequest) error {
		if apierr := u.UserService.ConfirmSignup(req); apierr != nil {
			return c.JSON(apierr.Code(), apierr)
		}
		return c.NoContent(http.StatusOK)
	})
}

// withBody binds the JSON body into a fresh T and hands it to next.
func withBody[T any](c echo.Context, next func(req *T) error) error {
	req := new(T)
	if err := c.Bind(req); err != nil {
		return c.JSON(http.StatusBadRequest, apierror.MalformedBodyError)
	}
	return next(req)
}
