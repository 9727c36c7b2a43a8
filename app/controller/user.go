package controller

import (
	"errors"
	"net/http"

	httpdto "github.com/votabienperu/backend/app/dto/http"
	"github.com/votabienperu/backend/app/middleware"
	"github.com/votabienperu/backend/app/service"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
)

func (c *AuthController) Me(ctx echo.Context) error {
	account, ok := middleware.AccountFromContext(ctx)
	if !ok {
		return ctx.JSON(http.StatusUnauthorized, httpdto.ErrorResponse{Error: "unauthorized"})
	}

	return ctx.JSON(http.StatusOK, httpdto.NewAccountResponse(account))
}

// Logout is deliberately not behind RequireAuth: the access token may already
// be expired, and the service decodes it with expiry checking disabled.
func (c *AuthController) Logout(ctx echo.Context) error {
	token := middleware.AccessTokenFromRequest(ctx)
	if token == "" {
		return ctx.JSON(http.StatusUnauthorized, httpdto.ErrorResponse{Error: "missing access token"})
	}

	message, err := c.auth.Logout(ctx.Request().Context(), token)
	if err != nil {
		if errors.Is(err, service.ErrUnauthorized) {
			return ctx.JSON(http.StatusUnauthorized, httpdto.ErrorResponse{Error: "token inválido"})
		}
		logrus.WithError(err).Error("Logout failed")
		return ctx.JSON(http.StatusInternalServerError, httpdto.ErrorResponse{Error: "internal server error"})
	}

	clearTokenCookies(ctx, c.secureCookies)

	return ctx.JSON(http.StatusOK, httpdto.MessageResponse{Message: message})
}
