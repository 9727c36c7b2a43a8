package service

import (
	"context"
	"database/sql"
	"errors"
	"strconv"
	"time"

	"github.com/votabienperu/backend/app/dto"
	"github.com/votabienperu/backend/app/entity"
	"github.com/votabienperu/backend/app/repository"
	"github.com/votabienperu/backend/app/security"
	"github.com/votabienperu/backend/config"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

var (
	ErrEmailTaken           = errors.New("email already registered")
	ErrAccountNotFound      = errors.New("account not found")
	ErrInvalidCredentials   = errors.New("invalid credentials")
	ErrEmailNotVerified     = errors.New("email not verified")
	ErrAlreadyVerified      = errors.New("account already verified")
	ErrVerificationNotFound = errors.New("verification token not found")
	ErrVerificationExpired  = errors.New("verification token has expired")
	ErrUnauthorized         = errors.New("not authorized")
)

const (
	refreshKeyBytes        = 100
	accessKeyBytes         = 50
	verificationTokenBytes = 64

	// User-facing logout messages, kept in the product language.
	MsgLoggedOut         = "Sesión cerrada exitosamente."
	MsgAlreadyInvalid    = "Token ya estaba invalidado."
	emailDispatchTimeout = 5 * time.Second
)

type accountRepository interface {
	Create(ctx context.Context, account *entity.Account) error
	FindByEmail(ctx context.Context, email string) (*entity.Account, error)
	FindByID(ctx context.Context, id string) (*entity.Account, error)
	Update(ctx context.Context, account *entity.Account) error
}

type sessionRepository interface {
	Create(ctx context.Context, session *entity.Session) error
	FindValidByAccess(ctx context.Context, id int64, accountID, accessKey string, now time.Time) (*entity.Session, error)
	FindByID(ctx context.Context, id int64, accountID string) (*entity.Session, error)
	Invalidate(ctx context.Context, id int64, now time.Time) error
}

type verificationTokenRepository interface {
	Find(ctx context.Context, email, token string) (*entity.VerificationToken, error)
	Delete(ctx context.Context, id string) error
}

type EmailSender interface {
	SendVerification(ctx context.Context, account *entity.Account, token string) error
	SendWelcome(ctx context.Context, account *entity.Account) error
}

type AsyncRunner func(task func())

type AuthServiceOption func(*AuthService)

type AuthService struct {
	db            *sql.DB
	accounts      accountRepository
	sessions      sessionRepository
	verifications verificationTokenRepository
	mailer        EmailSender
	hasher        *security.PasswordHasher
	codec         *security.Codec
	cfg           *config.Config
	asyncRunner   AsyncRunner
}

func NewAuthService(
	db *sql.DB,
	accounts accountRepository,
	sessions sessionRepository,
	verifications verificationTokenRepository,
	mailer EmailSender,
	hasher *security.PasswordHasher,
	codec *security.Codec,
	cfg *config.Config,
	opts ...AuthServiceOption,
) *AuthService {
	svc := &AuthService{
		db:            db,
		accounts:      accounts,
		sessions:      sessions,
		verifications: verifications,
		mailer:        mailer,
		hasher:        hasher,
		codec:         codec,
		cfg:           cfg,
		asyncRunner: func(task func()) {
			go task()
		},
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

// WithAsyncRunner replaces the fire-and-forget runner, mainly so tests can
// run email dispatch synchronously.
func WithAsyncRunner(runner AsyncRunner) AuthServiceOption {
	return func(s *AuthService) {
		if runner != nil {
			s.asyncRunner = runner
		}
	}
}

func (s *AuthService) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.cfg.Database.QueryTimeout)
}

// Register creates an unverified account and dispatches a verification email.
func (s *AuthService) Register(ctx context.Context, name, email, password string) (*entity.Account, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	existing, err := s.accounts.FindByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrEmailTaken
	}

	passwordHash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, err
	}

	tokenString, err := security.RandomURLSafe(verificationTokenBytes)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	account := &entity.Account{
		ID:           uuid.NewString(),
		Name:         nullString(name),
		Email:        email,
		PasswordHash: passwordHash,
		CreatedAt:    now,
	}
	verification := &entity.VerificationToken{
		ID:        uuid.NewString(),
		Email:     email,
		Token:     tokenString,
		ExpiresAt: now.Add(s.cfg.Tokens.VerificationTTL),
		CreatedAt: now,
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	txAccounts := repository.NewAccountRepository(tx)
	txVerifications := repository.NewVerificationTokenRepository(tx)

	if err = txAccounts.Create(ctx, account); err != nil {
		return nil, err
	}
	if err = txVerifications.DeleteAllForEmail(ctx, email); err != nil {
		return nil, err
	}
	if err = txVerifications.Create(ctx, verification); err != nil {
		return nil, err
	}

	if err = tx.Commit(); err != nil {
		return nil, err
	}

	s.dispatchEmail(func(ctx context.Context) error {
		return s.mailer.SendVerification(ctx, account, tokenString)
	}, account.Email, "verification")

	return account, nil
}

// VerifyEmail consumes a verification token and marks the account verified.
func (s *AuthService) VerifyEmail(ctx context.Context, email, token string) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	account, err := s.accounts.FindByEmail(ctx, email)
	if err != nil {
		return err
	}
	if account == nil {
		return ErrAccountNotFound
	}
	if account.Verified() {
		return ErrAlreadyVerified
	}

	verification, err := s.verifications.Find(ctx, email, token)
	if err != nil {
		return err
	}
	if verification == nil {
		return ErrVerificationNotFound
	}

	now := time.Now().UTC()
	if verification.ExpiresAt.Before(now) {
		if err := s.verifications.Delete(ctx, verification.ID); err != nil {
			logrus.WithError(err).WithField("email", email).Error("Failed to delete expired verification token")
		}
		return ErrVerificationExpired
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	account.EmailVerified = sql.NullTime{Time: now, Valid: true}
	if err = repository.NewAccountRepository(tx).Update(ctx, account); err != nil {
		return err
	}
	if err = repository.NewVerificationTokenRepository(tx).Delete(ctx, verification.ID); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		return err
	}

	s.dispatchEmail(func(ctx context.Context) error {
		return s.mailer.SendWelcome(ctx, account)
	}, account.Email, "welcome")

	return nil
}

// Login authenticates the account and opens a new refresh session.
func (s *AuthService) Login(ctx context.Context, email, password, clientIP, userAgent string) (*dto.LoginResult, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	account, err := s.accounts.FindByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if account == nil {
		return nil, ErrAccountNotFound
	}

	if !s.hasher.Verify(account.PasswordHash, password) {
		return nil, ErrInvalidCredentials
	}

	if !account.Verified() {
		return nil, ErrEmailNotVerified
	}

	refreshKey, err := security.RandomURLSafe(refreshKeyBytes)
	if err != nil {
		return nil, err
	}
	accessKey, err := security.RandomURLSafe(accessKeyBytes)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	session := &entity.Session{
		AccountID:  account.ID,
		AccessKey:  accessKey,
		RefreshKey: refreshKey,
		IPAddress:  nullString(clientIP),
		UserAgent:  nullString(userAgent),
		CreatedAt:  now,
		LastUsedAt: sql.NullTime{Time: now, Valid: true},
		ExpiresAt:  now.Add(s.cfg.JWT.RefreshTokenTTL),
	}
	if err = s.sessions.Create(ctx, session); err != nil {
		return nil, err
	}

	accessToken, err := s.issueAccessToken(account.ID, session)
	if err != nil {
		return nil, err
	}
	refreshToken, err := s.issueRefreshToken(account.ID, session)
	if err != nil {
		return nil, err
	}

	logrus.WithFields(logrus.Fields{
		"account_id": account.ID,
		"session_id": session.ID,
		"ip":         clientIP,
	}).Info("Login successful")

	return &dto.LoginResult{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresIn:    int64(s.cfg.JWT.AccessTokenTTL.Seconds()),
		Account:      account,
	}, nil
}

// Refresh validates a refresh token and applies the sliding-window policy:
// keys rotate only when the session is within the renewal threshold of its
// expiry; otherwise only last_used_at is touched and the caller keeps its
// current refresh token.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*dto.RefreshResult, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	claims, err := s.codec.DecodeRefresh(refreshToken)
	if err != nil {
		logrus.WithError(err).Debug("Refresh token rejected")
		return nil, ErrUnauthorized
	}

	accountID, err := security.Reveal(claims.Subject)
	if err != nil {
		return nil, ErrUnauthorized
	}

	now := time.Now().UTC()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	txSessions := repository.NewSessionRepository(tx)

	// Row lock: two refreshes racing on the same token serialize here, and
	// the loser no longer matches after the winner rotates the keys.
	session, err := txSessions.FindValidByKeysForUpdate(ctx, claims.RefreshKey, claims.AccessKey, accountID, now)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, ErrUnauthorized
	}

	account, err := repository.NewAccountRepository(tx).FindByID(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if account == nil {
		return nil, ErrUnauthorized
	}

	daysRemaining := int(session.ExpiresAt.Sub(now).Hours() / 24)
	rotate := s.cfg.JWT.SlidingWindow && daysRemaining < s.cfg.JWT.RenewalThresholdDays

	session.LastUsedAt = sql.NullTime{Time: now, Valid: true}

	if rotate {
		oldRefreshKey, oldAccessKey := session.RefreshKey, session.AccessKey

		if session.RefreshKey, err = security.RandomURLSafe(refreshKeyBytes); err != nil {
			return nil, err
		}
		if session.AccessKey, err = security.RandomURLSafe(accessKeyBytes); err != nil {
			return nil, err
		}
		session.ExpiresAt = now.Add(s.cfg.JWT.RefreshTokenTTL)

		ok, err := txSessions.Rotate(ctx, session, oldRefreshKey, oldAccessKey)
		if err != nil {
			return nil, err
		}
		if !ok {
			// Another rotation won the race; fail closed.
			return nil, ErrUnauthorized
		}
	} else {
		if err = txSessions.Touch(ctx, session.ID, now); err != nil {
			return nil, err
		}
	}

	if err = tx.Commit(); err != nil {
		return nil, err
	}

	accessToken, err := s.issueAccessToken(accountID, session)
	if err != nil {
		return nil, err
	}

	result := &dto.RefreshResult{
		AccessToken: accessToken,
		Rotated:     rotate,
		ExpiresIn:   int64(s.cfg.JWT.AccessTokenTTL.Seconds()),
		Account:     account,
	}

	if rotate {
		if result.RefreshToken, err = s.issueRefreshToken(accountID, session); err != nil {
			return nil, err
		}
		logrus.WithFields(logrus.Fields{
			"account_id":     accountID,
			"days_remaining": daysRemaining,
		}).Info("Refresh token rotated")
	} else {
		logrus.WithFields(logrus.Fields{
			"account_id":     accountID,
			"days_remaining": daysRemaining,
		}).Info("Access token renewed, refresh token reused")
	}

	return result, nil
}

// Logout soft-revokes the session named by the access token. The token is
// decoded with expiry disabled: it may legitimately have expired before the
// user clicked logout. Revoking the session also blocks the refresh token
// tied to it.
func (s *AuthService) Logout(ctx context.Context, accessToken string) (string, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	claims, err := s.codec.DecodeAccess(accessToken, true)
	if err != nil {
		return "", ErrUnauthorized
	}

	accountID, sessionID, err := revealSessionRef(claims)
	if err != nil {
		return "", ErrUnauthorized
	}

	session, err := s.sessions.FindByID(ctx, sessionID, accountID)
	if err != nil {
		return "", err
	}
	if session == nil {
		return MsgAlreadyInvalid, nil
	}

	now := time.Now().UTC()
	if err = s.sessions.Invalidate(ctx, session.ID, now); err != nil {
		return "", err
	}

	logrus.WithFields(logrus.Fields{
		"account_id": accountID,
		"session_id": sessionID,
	}).Info("Session invalidated")

	return MsgLoggedOut, nil
}

// CurrentAccount is the authorization guard for protected calls: it resolves
// an access token to its owning account through a still-valid session.
func (s *AuthService) CurrentAccount(ctx context.Context, accessToken string) (*entity.Account, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	claims, err := s.codec.DecodeAccess(accessToken, false)
	if err != nil {
		return nil, ErrUnauthorized
	}

	accountID, sessionID, err := revealSessionRef(claims)
	if err != nil {
		return nil, ErrUnauthorized
	}

	session, err := s.sessions.FindValidByAccess(ctx, sessionID, accountID, claims.AccessKey, time.Now().UTC())
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, ErrUnauthorized
	}

	account, err := s.accounts.FindByID(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if account == nil {
		return nil, ErrUnauthorized
	}

	return account, nil
}

func (s *AuthService) issueAccessToken(accountID string, session *entity.Session) (string, error) {
	return s.codec.EncodeAccess(
		security.Obscure(accountID),
		session.AccessKey,
		security.Obscure(strconv.FormatInt(session.ID, 10)),
		s.cfg.JWT.AccessTokenTTL,
	)
}

func (s *AuthService) issueRefreshToken(accountID string, session *entity.Session) (string, error) {
	return s.codec.EncodeRefresh(
		security.Obscure(accountID),
		session.RefreshKey,
		session.AccessKey,
		s.cfg.JWT.RefreshTokenTTL,
	)
}

func (s *AuthService) dispatchEmail(send func(ctx context.Context) error, email, kind string) {
	s.asyncRunner(func() {
		ctx, cancel := context.WithTimeout(context.Background(), emailDispatchTimeout)
		defer cancel()

		if err := send(ctx); err != nil {
			logrus.WithError(err).WithFields(logrus.Fields{
				"email": email,
				"kind":  kind,
			}).Error("Failed to send email")
		}
	})
}

func revealSessionRef(claims *security.AccessClaims) (accountID string, sessionID int64, err error) {
	accountID, err = security.Reveal(claims.Subject)
	if err != nil {
		return "", 0, err
	}

	rawSessionID, err := security.Reveal(claims.SessionID)
	if err != nil {
		return "", 0, err
	}

	sessionID, err = strconv.ParseInt(rawSessionID, 10, 64)
	if err != nil {
		return "", 0, err
	}

	return accountID, sessionID, nil
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
