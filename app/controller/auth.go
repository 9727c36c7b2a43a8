package controller

import (
	"context"
	"errors"
	"net/http"

	"github.com/votabienperu/backend/app/dto"
	httpdto "github.com/votabienperu/backend/app/dto/http"
	"github.com/votabienperu/backend/app/entity"
	"github.com/votabienperu/backend/app/middleware"
	"github.com/votabienperu/backend/app/service"
	"github.com/votabienperu/backend/config"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
)

type authService interface {
	Register(ctx context.Context, name, email, password string) (*entity.Account, error)
	VerifyEmail(ctx context.Context, email, token string) error
	Login(ctx context.Context, email, password, clientIP, userAgent string) (*dto.LoginResult, error)
	Refresh(ctx context.Context, refreshToken string) (*dto.RefreshResult, error)
	Logout(ctx context.Context, accessToken string) (string, error)
	CurrentAccount(ctx context.Context, accessToken string) (*entity.Account, error)
}

type AuthController struct {
	auth          authService
	secureCookies bool
}

func NewAuthController(auth authService, cfg *config.Config) *AuthController {
	return &AuthController{
		auth:          auth,
		secureCookies: cfg.App.IsProduction(),
	}
}

func (c *AuthController) Register(ctx echo.Context) error {
	var req httpdto.RegisterRequest
	if err := ctx.Bind(&req); err != nil {
		logrus.WithError(err).Debug("Failed to bind register request")
		return ctx.JSON(http.StatusBadRequest, httpdto.ErrorResponse{Error: "invalid request body"})
	}

	if req.Email == "" || req.Password == "" {
		return ctx.JSON(http.StatusBadRequest, httpdto.ErrorResponse{Error: "email and password are required"})
	}

	account, err := c.auth.Register(ctx.Request().Context(), req.Name, req.Email, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrEmailTaken) {
			logrus.WithField("email", req.Email).Warn("Register failed: email already in use")
			return ctx.JSON(http.StatusConflict, httpdto.ErrorResponse{Error: "este correo ya está en uso"})
		}
		logrus.WithError(err).WithField("email", req.Email).Error("Register failed")
		return ctx.JSON(http.StatusInternalServerError, httpdto.ErrorResponse{Error: "internal server error"})
	}

	logrus.WithFields(logrus.Fields{
		"account_id": account.ID,
		"email":      account.Email,
	}).Info("Account registered")

	return ctx.JSON(http.StatusCreated, httpdto.NewAccountResponse(account))
}

func (c *AuthController) Login(ctx echo.Context) error {
	var req httpdto.LoginRequest
	if err := ctx.Bind(&req); err != nil {
		logrus.WithError(err).Debug("Failed to bind login request")
		return ctx.JSON(http.StatusBadRequest, httpdto.ErrorResponse{Error: "invalid request body"})
	}

	if req.Email == "" || req.Password == "" {
		return ctx.JSON(http.StatusBadRequest, httpdto.ErrorResponse{Error: "email and password are required"})
	}

	result, err := c.auth.Login(
		ctx.Request().Context(),
		req.Email,
		req.Password,
		ctx.RealIP(),
		ctx.Request().UserAgent(),
	)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrAccountNotFound):
			logrus.WithField("email", req.Email).Warn("Login failed: unknown email")
			return ctx.JSON(http.StatusNotFound, httpdto.ErrorResponse{Error: "el correo electrónico no está registrado"})
		case errors.Is(err, service.ErrInvalidCredentials):
			logrus.WithField("email", req.Email).Warn("Login failed: invalid credentials")
			return ctx.JSON(http.StatusBadRequest, httpdto.ErrorResponse{Error: "correo o contraseña incorrectos"})
		case errors.Is(err, service.ErrEmailNotVerified):
			logrus.WithField("email", req.Email).Warn("Login failed: email not verified")
			return ctx.JSON(http.StatusForbidden, httpdto.ErrorResponse{Error: "tu cuenta no está verificada"})
		}
		logrus.WithError(err).WithField("email", req.Email).Error("Login failed")
		return ctx.JSON(http.StatusInternalServerError, httpdto.ErrorResponse{Error: "internal server error"})
	}

	setTokenCookies(ctx, result.AccessToken, &result.RefreshToken, result.ExpiresIn, c.secureCookies)

	return ctx.JSON(http.StatusOK, httpdto.LoginResponse{
		AccessToken:  result.AccessToken,
		RefreshToken: &result.RefreshToken,
		ExpiresIn:    result.ExpiresIn,
		Account:      httpdto.NewAccountResponse(result.Account),
	})
}

func (c *AuthController) Refresh(ctx echo.Context) error {
	cookie, err := ctx.Cookie(refreshCookieName)
	if err != nil || cookie.Value == "" {
		return ctx.JSON(http.StatusUnauthorized, httpdto.ErrorResponse{Error: "no refresh token provided"})
	}

	result, err := c.auth.Refresh(ctx.Request().Context(), cookie.Value)
	if err != nil {
		if errors.Is(err, service.ErrUnauthorized) {
			return ctx.JSON(http.StatusUnauthorized, httpdto.ErrorResponse{Error: "refresh token inválido o expirado"})
		}
		logrus.WithError(err).Error("Refresh failed")
		return ctx.JSON(http.StatusInternalServerError, httpdto.ErrorResponse{Error: "internal server error"})
	}

	// A null refresh_token tells the client to keep its current cookie.
	var refreshToken *string
	if result.Rotated {
		refreshToken = &result.RefreshToken
	}
	setTokenCookies(ctx, result.AccessToken, refreshToken, result.ExpiresIn, c.secureCookies)

	return ctx.JSON(http.StatusOK, httpdto.LoginResponse{
		AccessToken:  result.AccessToken,
		RefreshToken: refreshToken,
		ExpiresIn:    result.ExpiresIn,
		Account:      httpdto.NewAccountResponse(result.Account),
	})
}

func (c *AuthController) VerifyEmail(ctx echo.Context) error {
	var req httpdto.VerifyEmailRequest
	if err := ctx.Bind(&req); err != nil {
		logrus.WithError(err).Debug("Failed to bind verification request")
		return ctx.JSON(http.StatusBadRequest, httpdto.ErrorResponse{Error: "invalid request body"})
	}

	if req.Email == "" || req.Token == "" {
		return ctx.JSON(http.StatusBadRequest, httpdto.ErrorResponse{Error: "email and token are required"})
	}

	err := c.auth.VerifyEmail(ctx.Request().Context(), req.Email, req.Token)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrAccountNotFound), errors.Is(err, service.ErrVerificationNotFound):
			logrus.WithField("email", req.Email).Warn("Verification failed: invalid link")
			return ctx.JSON(http.StatusNotFound, httpdto.ErrorResponse{Error: "enlace de verificación inválido"})
		case errors.Is(err, service.ErrAlreadyVerified):
			return ctx.JSON(http.StatusConflict, httpdto.ErrorResponse{Error: "esta cuenta ya está verificada"})
		case errors.Is(err, service.ErrVerificationExpired):
			logrus.WithField("email", req.Email).Warn("Verification failed: token expired")
			return ctx.JSON(http.StatusGone, httpdto.ErrorResponse{Error: "el token de verificación ha expirado"})
		}
		logrus.WithError(err).WithField("email", req.Email).Error("Verification failed")
		return ctx.JSON(http.StatusInternalServerError, httpdto.ErrorResponse{Error: "internal server error"})
	}

	return ctx.JSON(http.StatusOK, httpdto.MessageResponse{
		Message: "Cuenta verificada exitosamente. Ya puedes iniciar sesión.",
	})
}

// VerifyToken is a validity probe: a bad token is a normal {valid:false}
// response, not an error.
func (c *AuthController) VerifyToken(ctx echo.Context) error {
	token := middleware.AccessTokenFromRequest(ctx)
	if token == "" {
		return ctx.JSON(http.StatusOK, httpdto.VerifyTokenResponse{Valid: false})
	}

	account, err := c.auth.CurrentAccount(ctx.Request().Context(), token)
	if err != nil {
		return ctx.JSON(http.StatusOK, httpdto.VerifyTokenResponse{Valid: false})
	}

	return ctx.JSON(http.StatusOK, httpdto.VerifyTokenResponse{
		Valid:     true,
		AccountID: account.ID,
	})
}
