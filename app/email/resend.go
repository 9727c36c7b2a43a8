package email

import (
	"context"
	"fmt"
	"net/url"

	"github.com/votabienperu/backend/app/entity"
	"github.com/votabienperu/backend/config"

	"github.com/resend/resend-go/v2"
	"github.com/sirupsen/logrus"
)

type ResendSender struct {
	client       *resend.Client
	appName      string
	from         string
	frontendHost string
}

func NewResendSender(cfg *config.Config) *ResendSender {
	return &ResendSender{
		client:       resend.NewClient(cfg.Email.ResendAPIKey),
		appName:      cfg.App.Name,
		from:         cfg.Email.From,
		frontendHost: cfg.App.FrontendHost,
	}
}

func (s *ResendSender) SendVerification(ctx context.Context, account *entity.Account, token string) error {
	activateURL := fmt.Sprintf("%s/auth/new-verification?token=%s&email=%s",
		s.frontendHost, url.QueryEscape(token), url.QueryEscape(account.Email))

	sent, err := s.client.Emails.SendWithContext(ctx, &resend.SendEmailRequest{
		From:    fmt.Sprintf("%s <%s>", s.appName, s.from),
		To:      []string{account.Email},
		Subject: fmt.Sprintf("Verifica tu cuenta - %s", s.appName),
		Html:    verificationHTML(s.appName, greetingName(account), activateURL),
	})
	if err != nil {
		return err
	}

	logrus.WithFields(logrus.Fields{
		"email":    account.Email,
		"email_id": sent.Id,
	}).Info("Verification email sent")
	return nil
}

func (s *ResendSender) SendWelcome(ctx context.Context, account *entity.Account) error {
	loginURL := s.frontendHost + "/"

	sent, err := s.client.Emails.SendWithContext(ctx, &resend.SendEmailRequest{
		From:    fmt.Sprintf("%s <%s>", s.appName, s.from),
		To:      []string{account.Email},
		Subject: fmt.Sprintf("¡Bienvenido a %s!", s.appName),
		Html:    welcomeHTML(s.appName, greetingName(account), loginURL),
	})
	if err != nil {
		return err
	}

	logrus.WithFields(logrus.Fields{
		"email":    account.Email,
		"email_id": sent.Id,
	}).Info("Welcome email sent")
	return nil
}

func verificationHTML(appName, name, activateURL string) string {
	return fmt.Sprintf(`<!DOCTYPE html>
<html lang="es">
<body style="font-family: sans-serif; color: #1a202c;">
  <h2>¡Hola %s!</h2>
  <p>Gracias por registrarte en <strong>%s</strong>.
  Para completar tu registro, verifica tu dirección de correo electrónico.</p>
  <p><a href="%s">Verificar mi cuenta</a></p>
  <p>Si no creaste esta cuenta, puedes ignorar este mensaje.
  El enlace expira en 24 horas.</p>
</body>
</html>`, name, appName, activateURL)
}

func welcomeHTML(appName, name, loginURL string) string {
	return fmt.Sprintf(`<!DOCTYPE html>
<html lang="es">
<body style="font-family: sans-serif; color: #1a202c;">
  <h2>¡Hola %s!</h2>
  <p>Tu cuenta en <strong>%s</strong> ya está verificada. Ya puedes iniciar sesión.</p>
  <p><a href="%s">Ir a %s</a></p>
</body>
</html>`, name, appName, loginURL, appName)
}
