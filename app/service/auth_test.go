package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/votabienperu/backend/app/entity"
	"github.com/votabienperu/backend/app/repository"
	"github.com/votabienperu/backend/app/security"
	"github.com/votabienperu/backend/app/service"
	"github.com/votabienperu/backend/config"

	"github.com/DATA-DOG/go-sqlmock"
)

var (
	accountColumns = []string{
		"id",
		"name",
		"email",
		"email_verified",
		"password_hash",
		"is_admin",
		"created_at",
		"updated_at",
	}
	sessionColumns = []string{
		"id",
		"account_id",
		"access_key",
		"refresh_key",
		"ip_address",
		"user_agent",
		"created_at",
		"last_used_at",
		"expires_at",
	}
	verificationTokenColumns = []string{
		"id",
		"email",
		"token",
		"expires_at",
		"created_at",
	}
)

const (
	findAccountByEmailQuery      = `(?s)SELECT id, name, email, email_verified, password_hash, is_admin, created_at, updated_at\s+FROM accounts WHERE email = \?`
	findAccountByIDQuery         = `(?s)SELECT id, name, email, email_verified, password_hash, is_admin, created_at, updated_at\s+FROM accounts WHERE id = \?`
	insertAccountQuery           = `(?s)INSERT INTO accounts \(id, name, email, email_verified, password_hash, is_admin, created_at, updated_at\)\s+VALUES \(\?, \?, \?, \?, \?, \?, \?, \?\)`
	updateAccountQuery           = `(?s)UPDATE accounts SET\s+name = \?,\s+email = \?,\s+email_verified = \?,\s+password_hash = \?,\s+is_admin = \?,\s+updated_at = \?\s+WHERE id = \?`
	insertSessionQuery           = `(?s)INSERT INTO sessions \(account_id, access_key, refresh_key, ip_address, user_agent, created_at, last_used_at, expires_at\)\s+VALUES \(\?, \?, \?, \?, \?, \?, \?, \?\)`
	findSessionForUpdateQuery    = `(?s)SELECT id, account_id, access_key, refresh_key, ip_address, user_agent, created_at, last_used_at, expires_at\s+FROM sessions\s+WHERE refresh_key = \? AND access_key = \? AND account_id = \? AND expires_at > \?\s+FOR UPDATE`
	findSessionByAccessQuery     = `(?s)SELECT id, account_id, access_key, refresh_key, ip_address, user_agent, created_at, last_used_at, expires_at\s+FROM sessions\s+WHERE id = \? AND account_id = \? AND access_key = \? AND expires_at > \?`
	findSessionByIDQuery         = `(?s)SELECT id, account_id, access_key, refresh_key, ip_address, user_agent, created_at, last_used_at, expires_at\s+FROM sessions\s+WHERE id = \? AND account_id = \?`
	rotateSessionQuery           = `(?s)UPDATE sessions SET\s+access_key = \?,\s+refresh_key = \?,\s+expires_at = \?,\s+last_used_at = \?\s+WHERE id = \? AND refresh_key = \? AND access_key = \?`
	touchSessionQuery            = `(?s)UPDATE sessions SET last_used_at = \? WHERE id = \?`
	invalidateSessionQuery       = `(?s)UPDATE sessions SET expires_at = \? WHERE id = \?`
	findVerificationTokenQuery   = `(?s)SELECT id, email, token, expires_at, created_at\s+FROM verification_tokens WHERE email = \? AND token = \?`
	insertVerificationTokenQuery = `(?s)INSERT INTO verification_tokens \(id, email, token, expires_at, created_at\)\s+VALUES \(\?, \?, \?, \?, \?\)`
	deleteTokensForEmailQuery    = `(?s)DELETE FROM verification_tokens WHERE email = \?`
	deleteVerificationTokenQuery = `(?s)DELETE FROM verification_tokens WHERE id = \?`
)

const testJWTSecret = "0123456789abcdef0123456789abcdef"

type stubMailer struct {
	verificationTokens []string
	welcomes           int
}

func (m *stubMailer) SendVerification(_ context.Context, _ *entity.Account, token string) error {
	m.verificationTokens = append(m.verificationTokens, token)
	return nil
}

func (m *stubMailer) SendWelcome(_ context.Context, _ *entity.Account) error {
	m.welcomes++
	return nil
}

func newServiceWithMock(t *testing.T) (*service.AuthService, *security.Codec, *stubMailer, sqlmock.Sqlmock, func()) {
	t.Helper()

	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}

	cfg := &config.Config{
		Database: config.DatabaseConfig{
			QueryTimeout: 5 * time.Second,
		},
		JWT: config.JWTConfig{
			Secret:               testJWTSecret,
			Algorithm:            "HS256",
			AccessTokenTTL:       15 * time.Minute,
			RefreshTokenTTL:      7 * 24 * time.Hour,
			SlidingWindow:        true,
			RenewalThresholdDays: 2,
		},
		Tokens: config.TokenConfig{
			VerificationTTL: 24 * time.Hour,
		},
	}

	codec, err := security.NewCodec(cfg.JWT.Secret, cfg.JWT.Algorithm)
	if err != nil {
		t.Fatalf("failed to create codec: %v", err)
	}

	mailer := &stubMailer{}
	svc := service.NewAuthService(
		db,
		repository.NewAccountRepository(db),
		repository.NewSessionRepository(db),
		repository.NewVerificationTokenRepository(db),
		mailer,
		security.NewPasswordHasher(),
		codec,
		cfg,
		service.WithAsyncRunner(func(task func()) { task() }),
	)

	return svc, codec, mailer, mock, func() { _ = db.Close() }
}

func verifiedAccountRow(id, email, passwordHash string) *sqlmock.Rows {
	now := time.Now().UTC()
	return sqlmock.NewRows(accountColumns).AddRow(
		id, "María Quispe", email, now.Add(-time.Hour), passwordHash, false, now.Add(-2*time.Hour), nil,
	)
}

func unverifiedAccountRow(id, email, passwordHash string) *sqlmock.Rows {
	now := time.Now().UTC()
	return sqlmock.NewRows(accountColumns).AddRow(
		id, "María Quispe", email, nil, passwordHash, false, now.Add(-2*time.Hour), nil,
	)
}

func sessionRow(id int64, accountID, accessKey, refreshKey string, expiresAt time.Time) *sqlmock.Rows {
	now := time.Now().UTC()
	return sqlmock.NewRows(sessionColumns).AddRow(
		id, accountID, accessKey, refreshKey, "190.40.1.1", "test-agent", now.Add(-time.Hour), now.Add(-time.Minute), expiresAt,
	)
}

func TestAuthService_Register_CreatesAccountAndToken(t *testing.T) {
	svc, _, mailer, mock, cleanup := newServiceWithMock(t)
	defer cleanup()

	email := "maria@example.com"

	mock.ExpectQuery(findAccountByEmailQuery).
		WithArgs(email).
		WillReturnRows(sqlmock.NewRows(accountColumns))
	mock.ExpectBegin()
	mock.ExpectExec(insertAccountQuery).
		WithArgs(sqlmock.AnyArg(), "María Quispe", email, nil, sqlmock.AnyArg(), false, sqlmock.AnyArg(), nil).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(deleteTokensForEmailQuery).
		WithArgs(email).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(insertVerificationTokenQuery).
		WithArgs(sqlmock.AnyArg(), email, sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	account, err := svc.Register(context.Background(), "María Quispe", email, "secreta123")
	if err != nil {
		t.Fatalf("register failed: %v", err)
	}
	if account.ID == "" {
		t.Fatal("expected account ID to be assigned")
	}
	if account.Verified() {
		t.Fatal("expected freshly registered account to be unverified")
	}
	if len(mailer.verificationTokens) != 1 || mailer.verificationTokens[0] == "" {
		t.Fatalf("expected one verification email, got %d", len(mailer.verificationTokens))
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestAuthService_Register_DuplicateEmail(t *testing.T) {
	svc, _, mailer, mock, cleanup := newServiceWithMock(t)
	defer cleanup()

	email := "maria@example.com"

	mock.ExpectQuery(findAccountByEmailQuery).
		WithArgs(email).
		WillReturnRows(verifiedAccountRow("acc-1", email, "hash"))

	_, err := svc.Register(context.Background(), "María Quispe", email, "secreta123")
	if !errors.Is(err, service.ErrEmailTaken) {
		t.Fatalf("expected ErrEmailTaken, got %v", err)
	}
	if len(mailer.verificationTokens) != 0 {
		t.Fatal("expected no verification email")
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestAuthService_VerifyEmail_MarksAccountVerified(t *testing.T) {
	svc, _, mailer, mock, cleanup := newServiceWithMock(t)
	defer cleanup()

	email := "maria@example.com"
	token := "verification-token"
	now := time.Now().UTC()

	mock.ExpectQuery(findAccountByEmailQuery).
		WithArgs(email).
		WillReturnRows(unverifiedAccountRow("acc-1", email, "hash"))
	mock.ExpectQuery(findVerificationTokenQuery).
		WithArgs(email, token).
		WillReturnRows(sqlmock.NewRows(verificationTokenColumns).AddRow(
			"vt-1", email, token, now.Add(time.Hour), now.Add(-time.Hour),
		))
	mock.ExpectBegin()
	mock.ExpectExec(updateAccountQuery).
		WithArgs("María Quispe", email, sqlmock.AnyArg(), "hash", false, sqlmock.AnyArg(), "acc-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(deleteVerificationTokenQuery).
		WithArgs("vt-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	if err := svc.VerifyEmail(context.Background(), email, token); err != nil {
		t.Fatalf("verify email failed: %v", err)
	}
	if mailer.welcomes != 1 {
		t.Fatalf("expected one welcome email, got %d", mailer.welcomes)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestAuthService_VerifyEmail_AlreadyVerified(t *testing.T) {
	svc, _, _, mock, cleanup := newServiceWithMock(t)
	defer cleanup()

	email := "maria@example.com"

	mock.ExpectQuery(findAccountByEmailQuery).
		WithArgs(email).
		WillReturnRows(verifiedAccountRow("acc-1", email, "hash"))

	err := svc.VerifyEmail(context.Background(), email, "any-token")
	if !errors.Is(err, service.ErrAlreadyVerified) {
		t.Fatalf("expected ErrAlreadyVerified, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestAuthService_VerifyEmail_ExpiredTokenIsDeleted(t *testing.T) {
	svc, _, mailer, mock, cleanup := newServiceWithMock(t)
	defer cleanup()

	email := "maria@example.com"
	token := "verification-token"
	now := time.Now().UTC()

	mock.ExpectQuery(findAccountByEmailQuery).
		WithArgs(email).
		WillReturnRows(unverifiedAccountRow("acc-1", email, "hash"))
	mock.ExpectQuery(findVerificationTokenQuery).
		WithArgs(email, token).
		WillReturnRows(sqlmock.NewRows(verificationTokenColumns).AddRow(
			"vt-1", email, token, now.Add(-time.Minute), now.Add(-25*time.Hour),
		))
	mock.ExpectExec(deleteVerificationTokenQuery).
		WithArgs("vt-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := svc.VerifyEmail(context.Background(), email, token)
	if !errors.Is(err, service.ErrVerificationExpired) {
		t.Fatalf("expected ErrVerificationExpired, got %v", err)
	}
	if mailer.welcomes != 0 {
		t.Fatal("expected no welcome email")
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestAuthService_Login_CreatesSessionAndIssuesTokens(t *testing.T) {
	svc, codec, _, mock, cleanup := newServiceWithMock(t)
	defer cleanup()

	email := "maria@example.com"
	password := "secreta123"
	passwordHash, err := security.NewPasswordHasher().Hash(password)
	if err != nil {
		t.Fatalf("hash failed: %v", err)
	}

	mock.ExpectQuery(findAccountByEmailQuery).
		WithArgs(email).
		WillReturnRows(verifiedAccountRow("acc-1", email, passwordHash))
	mock.ExpectExec(insertSessionQuery).
		WithArgs("acc-1", sqlmock.AnyArg(), sqlmock.AnyArg(), "190.40.1.1", "test-agent", sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(7, 1))

	res, err := svc.Login(context.Background(), email, password, "190.40.1.1", "test-agent")
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}
	if res.ExpiresIn != 900 {
		t.Fatalf("expected expires_in 900, got %d", res.ExpiresIn)
	}

	claims, err := codec.DecodeAccess(res.AccessToken, false)
	if err != nil {
		t.Fatalf("access token did not decode: %v", err)
	}
	subject, err := security.Reveal(claims.Subject)
	if err != nil || subject != "acc-1" {
		t.Fatalf("expected obscured subject acc-1, got %q (err %v)", subject, err)
	}
	sessionID, err := security.Reveal(claims.SessionID)
	if err != nil || sessionID != "7" {
		t.Fatalf("expected obscured session id 7, got %q (err %v)", sessionID, err)
	}

	refreshClaims, err := codec.DecodeRefresh(res.RefreshToken)
	if err != nil {
		t.Fatalf("refresh token did not decode: %v", err)
	}
	if refreshClaims.AccessKey != claims.AccessKey {
		t.Fatal("expected refresh token to carry the session access key")
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestAuthService_Login_UnknownEmail(t *testing.T) {
	svc, _, _, mock, cleanup := newServiceWithMock(t)
	defer cleanup()

	mock.ExpectQuery(findAccountByEmailQuery).
		WithArgs("nadie@example.com").
		WillReturnRows(sqlmock.NewRows(accountColumns))

	_, err := svc.Login(context.Background(), "nadie@example.com", "secreta123", "", "")
	if !errors.Is(err, service.ErrAccountNotFound) {
		t.Fatalf("expected ErrAccountNotFound, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestAuthService_Login_WrongPassword(t *testing.T) {
	svc, _, _, mock, cleanup := newServiceWithMock(t)
	defer cleanup()

	email := "maria@example.com"
	passwordHash, err := security.NewPasswordHasher().Hash("secreta123")
	if err != nil {
		t.Fatalf("hash failed: %v", err)
	}

	mock.ExpectQuery(findAccountByEmailQuery).
		WithArgs(email).
		WillReturnRows(verifiedAccountRow("acc-1", email, passwordHash))

	_, err = svc.Login(context.Background(), email, "otra-clave", "", "")
	if !errors.Is(err, service.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestAuthService_Login_UnverifiedEmail(t *testing.T) {
	svc, _, _, mock, cleanup := newServiceWithMock(t)
	defer cleanup()

	email := "maria@example.com"
	passwordHash, err := security.NewPasswordHasher().Hash("secreta123")
	if err != nil {
		t.Fatalf("hash failed: %v", err)
	}

	mock.ExpectQuery(findAccountByEmailQuery).
		WithArgs(email).
		WillReturnRows(unverifiedAccountRow("acc-1", email, passwordHash))

	_, err = svc.Login(context.Background(), email, "secreta123", "", "")
	if !errors.Is(err, service.ErrEmailNotVerified) {
		t.Fatalf("expected ErrEmailNotVerified, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestAuthService_Refresh_ReusesTokenFarFromExpiry(t *testing.T) {
	svc, codec, _, mock, cleanup := newServiceWithMock(t)
	defer cleanup()

	refreshToken, err := codec.EncodeRefresh(security.Obscure("acc-1"), "old-refresh-key", "old-access-key", time.Hour)
	if err != nil {
		t.Fatalf("encode refresh failed: %v", err)
	}

	expiresAt := time.Now().UTC().Add(5 * 24 * time.Hour)

	mock.ExpectBegin()
	mock.ExpectQuery(findSessionForUpdateQuery).
		WithArgs("old-refresh-key", "old-access-key", "acc-1", sqlmock.AnyArg()).
		WillReturnRows(sessionRow(7, "acc-1", "old-access-key", "old-refresh-key", expiresAt))
	mock.ExpectQuery(findAccountByIDQuery).
		WithArgs("acc-1").
		WillReturnRows(verifiedAccountRow("acc-1", "maria@example.com", "hash"))
	mock.ExpectExec(touchSessionQuery).
		WithArgs(sqlmock.AnyArg(), int64(7)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	res, err := svc.Refresh(context.Background(), refreshToken)
	if err != nil {
		t.Fatalf("refresh failed: %v", err)
	}
	if res.Rotated {
		t.Fatal("expected no rotation far from expiry")
	}
	if res.RefreshToken != "" {
		t.Fatal("expected no new refresh token when the session is not rotated")
	}

	claims, err := codec.DecodeAccess(res.AccessToken, false)
	if err != nil {
		t.Fatalf("access token did not decode: %v", err)
	}
	if claims.AccessKey != "old-access-key" {
		t.Fatalf("expected access key to be reused, got %q", claims.AccessKey)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestAuthService_Refresh_RotatesNearExpiry(t *testing.T) {
	svc, codec, _, mock, cleanup := newServiceWithMock(t)
	defer cleanup()

	refreshToken, err := codec.EncodeRefresh(security.Obscure("acc-1"), "old-refresh-key", "old-access-key", time.Hour)
	if err != nil {
		t.Fatalf("encode refresh failed: %v", err)
	}

	expiresAt := time.Now().UTC().Add(24 * time.Hour)

	mock.ExpectBegin()
	mock.ExpectQuery(findSessionForUpdateQuery).
		WithArgs("old-refresh-key", "old-access-key", "acc-1", sqlmock.AnyArg()).
		WillReturnRows(sessionRow(7, "acc-1", "old-access-key", "old-refresh-key", expiresAt))
	mock.ExpectQuery(findAccountByIDQuery).
		WithArgs("acc-1").
		WillReturnRows(verifiedAccountRow("acc-1", "maria@example.com", "hash"))
	mock.ExpectExec(rotateSessionQuery).
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), int64(7), "old-refresh-key", "old-access-key").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	res, err := svc.Refresh(context.Background(), refreshToken)
	if err != nil {
		t.Fatalf("refresh failed: %v", err)
	}
	if !res.Rotated {
		t.Fatal("expected rotation near expiry")
	}
	if res.RefreshToken == "" {
		t.Fatal("expected a new refresh token after rotation")
	}

	newClaims, err := codec.DecodeRefresh(res.RefreshToken)
	if err != nil {
		t.Fatalf("new refresh token did not decode: %v", err)
	}
	if newClaims.RefreshKey == "old-refresh-key" {
		t.Fatal("expected rotated refresh key to differ from the old one")
	}

	accessClaims, err := codec.DecodeAccess(res.AccessToken, false)
	if err != nil {
		t.Fatalf("access token did not decode: %v", err)
	}
	if accessClaims.AccessKey == "old-access-key" {
		t.Fatal("expected rotated access key to differ from the old one")
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestAuthService_Refresh_RotationRaceFailsClosed(t *testing.T) {
	svc, codec, _, mock, cleanup := newServiceWithMock(t)
	defer cleanup()

	refreshToken, err := codec.EncodeRefresh(security.Obscure("acc-1"), "old-refresh-key", "old-access-key", time.Hour)
	if err != nil {
		t.Fatalf("encode refresh failed: %v", err)
	}

	expiresAt := time.Now().UTC().Add(24 * time.Hour)

	mock.ExpectBegin()
	mock.ExpectQuery(findSessionForUpdateQuery).
		WithArgs("old-refresh-key", "old-access-key", "acc-1", sqlmock.AnyArg()).
		WillReturnRows(sessionRow(7, "acc-1", "old-access-key", "old-refresh-key", expiresAt))
	mock.ExpectQuery(findAccountByIDQuery).
		WithArgs("acc-1").
		WillReturnRows(verifiedAccountRow("acc-1", "maria@example.com", "hash"))
	mock.ExpectExec(rotateSessionQuery).
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), int64(7), "old-refresh-key", "old-access-key").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	_, err = svc.Refresh(context.Background(), refreshToken)
	if !errors.Is(err, service.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized when the rotation lost the race, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestAuthService_Refresh_UnknownSession(t *testing.T) {
	svc, codec, _, mock, cleanup := newServiceWithMock(t)
	defer cleanup()

	refreshToken, err := codec.EncodeRefresh(security.Obscure("acc-1"), "unknown-key", "unknown-key", time.Hour)
	if err != nil {
		t.Fatalf("encode refresh failed: %v", err)
	}

	mock.ExpectBegin()
	mock.ExpectQuery(findSessionForUpdateQuery).
		WithArgs("unknown-key", "unknown-key", "acc-1", sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows(sessionColumns))
	mock.ExpectRollback()

	_, err = svc.Refresh(context.Background(), refreshToken)
	if !errors.Is(err, service.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestAuthService_Refresh_GarbageToken(t *testing.T) {
	svc, _, _, mock, cleanup := newServiceWithMock(t)
	defer cleanup()

	_, err := svc.Refresh(context.Background(), "not-a-jwt")
	if !errors.Is(err, service.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestAuthService_Logout_InvalidatesSession(t *testing.T) {
	svc, codec, _, mock, cleanup := newServiceWithMock(t)
	defer cleanup()

	accessToken, err := codec.EncodeAccess(security.Obscure("acc-1"), "access-key", security.Obscure("7"), 15*time.Minute)
	if err != nil {
		t.Fatalf("encode access failed: %v", err)
	}

	mock.ExpectQuery(findSessionByIDQuery).
		WithArgs(int64(7), "acc-1").
		WillReturnRows(sessionRow(7, "acc-1", "access-key", "refresh-key", time.Now().UTC().Add(time.Hour)))
	mock.ExpectExec(invalidateSessionQuery).
		WithArgs(sqlmock.AnyArg(), int64(7)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	msg, err := svc.Logout(context.Background(), accessToken)
	if err != nil {
		t.Fatalf("logout failed: %v", err)
	}
	if msg != service.MsgLoggedOut {
		t.Fatalf("expected %q, got %q", service.MsgLoggedOut, msg)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestAuthService_Logout_ExpiredAccessToken(t *testing.T) {
	svc, codec, _, mock, cleanup := newServiceWithMock(t)
	defer cleanup()

	accessToken, err := codec.EncodeAccess(security.Obscure("acc-1"), "access-key", security.Obscure("7"), -time.Minute)
	if err != nil {
		t.Fatalf("encode access failed: %v", err)
	}

	mock.ExpectQuery(findSessionByIDQuery).
		WithArgs(int64(7), "acc-1").
		WillReturnRows(sessionRow(7, "acc-1", "access-key", "refresh-key", time.Now().UTC().Add(time.Hour)))
	mock.ExpectExec(invalidateSessionQuery).
		WithArgs(sqlmock.AnyArg(), int64(7)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	msg, err := svc.Logout(context.Background(), accessToken)
	if err != nil {
		t.Fatalf("logout with expired token failed: %v", err)
	}
	if msg != service.MsgLoggedOut {
		t.Fatalf("expected %q, got %q", service.MsgLoggedOut, msg)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestAuthService_Logout_UnknownSessionIsIdempotent(t *testing.T) {
	svc, codec, _, mock, cleanup := newServiceWithMock(t)
	defer cleanup()

	accessToken, err := codec.EncodeAccess(security.Obscure("acc-1"), "access-key", security.Obscure("7"), 15*time.Minute)
	if err != nil {
		t.Fatalf("encode access failed: %v", err)
	}

	mock.ExpectQuery(findSessionByIDQuery).
		WithArgs(int64(7), "acc-1").
		WillReturnRows(sqlmock.NewRows(sessionColumns))

	msg, err := svc.Logout(context.Background(), accessToken)
	if err != nil {
		t.Fatalf("logout failed: %v", err)
	}
	if msg != service.MsgAlreadyInvalid {
		t.Fatalf("expected %q, got %q", service.MsgAlreadyInvalid, msg)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestAuthService_Logout_GarbageToken(t *testing.T) {
	svc, _, _, mock, cleanup := newServiceWithMock(t)
	defer cleanup()

	_, err := svc.Logout(context.Background(), "not-a-jwt")
	if !errors.Is(err, service.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestAuthService_CurrentAccount_ResolvesAccount(t *testing.T) {
	svc, codec, _, mock, cleanup := newServiceWithMock(t)
	defer cleanup()

	accessToken, err := codec.EncodeAccess(security.Obscure("acc-1"), "access-key", security.Obscure("7"), 15*time.Minute)
	if err != nil {
		t.Fatalf("encode access failed: %v", err)
	}

	mock.ExpectQuery(findSessionByAccessQuery).
		WithArgs(int64(7), "acc-1", "access-key", sqlmock.AnyArg()).
		WillReturnRows(sessionRow(7, "acc-1", "access-key", "refresh-key", time.Now().UTC().Add(time.Hour)))
	mock.ExpectQuery(findAccountByIDQuery).
		WithArgs("acc-1").
		WillReturnRows(verifiedAccountRow("acc-1", "maria@example.com", "hash"))

	account, err := svc.CurrentAccount(context.Background(), accessToken)
	if err != nil {
		t.Fatalf("current account failed: %v", err)
	}
	if account.Email != "maria@example.com" {
		t.Fatalf("expected email maria@example.com, got %q", account.Email)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestAuthService_CurrentAccount_RevokedSession(t *testing.T) {
	svc, codec, _, mock, cleanup := newServiceWithMock(t)
	defer cleanup()

	accessToken, err := codec.EncodeAccess(security.Obscure("acc-1"), "access-key", security.Obscure("7"), 15*time.Minute)
	if err != nil {
		t.Fatalf("encode access failed: %v", err)
	}

	mock.ExpectQuery(findSessionByAccessQuery).
		WithArgs(int64(7), "acc-1", "access-key", sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows(sessionColumns))

	_, err = svc.CurrentAccount(context.Background(), accessToken)
	if !errors.Is(err, service.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestAuthService_CurrentAccount_ExpiredToken(t *testing.T) {
	svc, codec, _, mock, cleanup := newServiceWithMock(t)
	defer cleanup()

	accessToken, err := codec.EncodeAccess(security.Obscure("acc-1"), "access-key", security.Obscure("7"), -time.Minute)
	if err != nil {
		t.Fatalf("encode access failed: %v", err)
	}

	_, err = svc.CurrentAccount(context.Background(), accessToken)
	if !errors.Is(err, service.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}
