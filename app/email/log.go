package email

import (
	"context"

	"github.com/votabienperu/backend/app/entity"

	"github.com/sirupsen/logrus"
)

// LogSender writes emails to the log instead of sending them. Used in
// development when no Resend API key is configured.
type LogSender struct{}

func NewLogSender() *LogSender {
	return &LogSender{}
}

func (s *LogSender) SendVerification(_ context.Context, account *entity.Account, token string) error {
	logrus.WithFields(logrus.Fields{
		"email": account.Email,
		"token": token,
	}).Info("Verification email (log only)")
	return nil
}

func (s *LogSender) SendWelcome(_ context.Context, account *entity.Account) error {
	logrus.WithField("email", account.Email).Info("Welcome email (log only)")
	return nil
}
