package email

import (
	"context"

	"github.com/votabienperu/backend/app/entity"
	"github.com/votabienperu/backend/config"
)

// Sender dispatches account lifecycle emails. Implementations are
// best-effort: the auth flows never block on them.
type Sender interface {
	SendVerification(ctx context.Context, account *entity.Account, token string) error
	SendWelcome(ctx context.Context, account *entity.Account) error
}

// NewSender returns the Resend-backed sender when an API key is configured
// and a log-only sender otherwise, so local development works without
// credentials.
func NewSender(cfg *config.Config) Sender {
	if cfg.Email.ResendAPIKey == "" {
		return NewLogSender()
	}
	return NewResendSender(cfg)
}

func greetingName(account *entity.Account) string {
	if name := account.DisplayName(); name != "" {
		return name
	}
	return account.Email
}
