package routes

import (
	"net/http"
	"slotwise/cmd/internal/domain/entity"
	"slotwise/cmd/internal/utils"
	"slotwise/cmd/internal/utils/apierror"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"
)

type RoleLookup interface {
	FindBySub(sub string) (*entity.User, error)
}

// Authenticate verifies the bearer token and stores its claims for utils.ParseTokenDataCtx.
func Authenticate(parser utils.TokenParser) echo.MiddlewareFunc {
	return middleware.KeyAuthWithConfig(middleware.KeyAuthConfig{
		KeyLookup:  "header:" + echo.HeaderAuthorization,
		AuthScheme: "Bearer",
		Validator: func(key string, c echo.Context) (bool, error) {
			data, err := parser.Parse(c.Request().Context(), key)
			if err != nil {
				return false, nil
			}
			utils.SetTokenDataCtx(c, data)
			return true, nil
		},
		ErrorHandler: func(_ error, c echo.Context) error {
			return c.JSON(http.StatusUnauthorized, apierror.InvalidAuthTokenError)
		},
	})
}

// RequireRole lets the request through only when the caller holds one of roles.
// It must run after Authenticate.
func RequireRole(users RoleLookup, roles ...entity.Role) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			data, err := utils.ParseTokenDataCtx(c)
			if err != nil {
				return c.JSON(http.StatusUnauthorized, apierror.InvalidAuthTokenError)
			}

			user, err := users.FindBySub(data.Sub)
			if err != nil {
				log.Errorf("failed to fetch user %s for role check: %v", data.Sub, err)
				return c.JSON(http.StatusInternalServerError, apierror.InternalServerError)
			}

			if user == nil || !user.HasAnyRole(roles...) {
				return c.JSON(http.StatusForbidden, apierror.ForbiddenError)
			}
			return next(c)
		}
	}
}
