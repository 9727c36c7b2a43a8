package controller

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

const (
	accessCookieName  = "access_token"
	refreshCookieName = "refresh_token"

	// The refresh cookie's client-visible lifetime is fixed regardless of
	// the signed token's internal TTL.
	refreshCookieMaxAge = 7 * 24 * 60 * 60
)

// setTokenCookies sets the httpOnly cookie pair. refreshToken may be nil:
// a refresh that did not rotate the session leaves the client's refresh
// cookie untouched.
func setTokenCookies(c echo.Context, accessToken string, refreshToken *string, expiresIn int64, secure bool) {
	c.SetCookie(&http.Cookie{
		Name:     accessCookieName,
		Value:    accessToken,
		Path:     "/",
		MaxAge:   int(expiresIn),
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})

	if refreshToken != nil {
		c.SetCookie(&http.Cookie{
			Name:     refreshCookieName,
			Value:    *refreshToken,
			Path:     "/",
			MaxAge:   refreshCookieMaxAge,
			HttpOnly: true,
			Secure:   secure,
			SameSite: http.SameSiteLaxMode,
		})
	}
}

func clearTokenCookies(c echo.Context, secure bool) {
	for _, name := range []string{accessCookieName, refreshCookieName} {
		c.SetCookie(&http.Cookie{
			Name:     name,
			Value:    "",
			Path:     "/",
			MaxAge:   -1,
			Expires:  time.Unix(0, 0),
			HttpOnly: true,
			Secure:   secure,
			SameSite: http.SameSiteLaxMode,
		})
	}
}
