package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/votabienperu/backend/app/entity"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
)

const accountContextKey = "account"

type accountResolver interface {
	CurrentAccount(ctx context.Context, accessToken string) (*entity.Account, error)
}

type AuthMiddleware struct {
	auth accountResolver
}

func NewAuthMiddleware(auth accountResolver) *AuthMiddleware {
	return &AuthMiddleware{auth: auth}
}

// RequireAuth resolves the bearer credential to an account through a valid
// session and stashes it in the request context.
func (m *AuthMiddleware) RequireAuth(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		token := AccessTokenFromRequest(c)
		if token == "" {
			logrus.Debug("Missing access token")
			return c.JSON(http.StatusUnauthorized, map[string]string{
				"error": "missing access token",
			})
		}

		account, err := m.auth.CurrentAccount(c.Request().Context(), token)
		if err != nil {
			logrus.Debug("Invalid or expired access token")
			return c.JSON(http.StatusUnauthorized, map[string]string{
				"error": "invalid or expired token",
			})
		}

		c.Set(accountContextKey, account)
		return next(c)
	}
}

// AccessTokenFromRequest reads the access token from the Authorization
// header, falling back to the httpOnly cookie the login flow sets.
func AccessTokenFromRequest(c echo.Context) string {
	authHeader := c.Request().Header.Get("Authorization")
	if authHeader != "" {
		parts := strings.Fields(authHeader)
		if len(parts) == 2 && strings.EqualFold(parts[0], "bearer") {
			return parts[1]
		}
	}

	cookie, err := c.Cookie("access_token")
	if err != nil {
		return ""
	}
	return cookie.Value
}

func AccountFromContext(c echo.Context) (*entity.Account, bool) {
	account, ok := c.Get(accountContextKey).(*entity.Account)
	return account, ok
}
