package http

import (
	"time"

	"github.com/votabienperu/backend/app/entity"
)

type AccountResponse struct {
	ID            string     `json:"id"`
	Name          string     `json:"name,omitempty"`
	Email         string     `json:"email"`
	EmailVerified *time.Time `json:"email_verified"`
	IsAdmin       bool       `json:"is_admin"`
	CreatedAt     time.Time  `json:"created_at"`
}

func NewAccountResponse(account *entity.Account) AccountResponse {
	resp := AccountResponse{
		ID:        account.ID,
		Name:      account.DisplayName(),
		Email:     account.Email,
		IsAdmin:   account.IsAdmin,
		CreatedAt: account.CreatedAt,
	}
	if account.EmailVerified.Valid {
		verified := account.EmailVerified.Time
		resp.EmailVerified = &verified
	}
	return resp
}

// LoginResponse doubles as the refresh response. RefreshToken is null when
// the session was not rotated, telling the client to keep its current
// refresh cookie.
type LoginResponse struct {
	AccessToken  string          `json:"access_token"`
	RefreshToken *string         `json:"refresh_token"`
	ExpiresIn    int64           `json:"expires_in"`
	Account      AccountResponse `json:"user"`
}

type VerifyTokenResponse struct {
	Valid     bool   `json:"valid"`
	AccountID string `json:"account_id,omitempty"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}
