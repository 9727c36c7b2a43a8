package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/votabienperu/backend/app/entity"
)

type SessionRepository struct {
	db DBTX
}

func NewSessionRepository(db DBTX) *SessionRepository {
	return &SessionRepository{db: db}
}

func (r *SessionRepository) Create(ctx context.Context, session *entity.Session) error {
	query := `
		INSERT INTO sessions (account_id, access_key, refresh_key, ip_address, user_agent, created_at, last_used_at, expires_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`
	result, err := r.db.ExecContext(ctx, query,
		session.AccountID,
		session.AccessKey,
		session.RefreshKey,
		session.IPAddress,
		session.UserAgent,
		session.CreatedAt,
		session.LastUsedAt,
		session.ExpiresAt,
	)
	if err != nil {
		return err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	session.ID = id
	return nil
}

// FindValidByKeysForUpdate resolves a refresh-token lookup inside the caller's
// transaction, taking a row lock so concurrent refreshes of the same session
// serialize.
func (r *SessionRepository) FindValidByKeysForUpdate(ctx context.Context, refreshKey, accessKey, accountID string, now time.Time) (*entity.Session, error) {
	query := `
		SELECT id, account_id, access_key, refresh_key, ip_address, user_agent, created_at, last_used_at, expires_at
		FROM sessions
		WHERE refresh_key = ? AND access_key = ? AND account_id = ? AND expires_at > ?
		FOR UPDATE
	`
	return r.scanOne(r.db.QueryRowContext(ctx, query, refreshKey, accessKey, accountID, now))
}

// FindValidByAccess resolves the session behind an access token.
func (r *SessionRepository) FindValidByAccess(ctx context.Context, id int64, accountID, accessKey string, now time.Time) (*entity.Session, error) {
	query := `
		SELECT id, account_id, access_key, refresh_key, ip_address, user_agent, created_at, last_used_at, expires_at
		FROM sessions
		WHERE id = ? AND account_id = ? AND access_key = ? AND expires_at > ?
	`
	return r.scanOne(r.db.QueryRowContext(ctx, query, id, accountID, accessKey, now))
}

// FindByID looks a session up regardless of expiry. Logout uses this so an
// already-expired session still resolves.
func (r *SessionRepository) FindByID(ctx context.Context, id int64, accountID string) (*entity.Session, error) {
	query := `
		SELECT id, account_id, access_key, refresh_key, ip_address, user_agent, created_at, last_used_at, expires_at
		FROM sessions
		WHERE id = ? AND account_id = ?
	`
	return r.scanOne(r.db.QueryRowContext(ctx, query, id, accountID))
}

// Rotate persists new keys and expiry for the session. The prior key values
// act as a compare-and-swap predicate: if another rotation already won, zero
// rows match and the caller must fail closed.
func (r *SessionRepository) Rotate(ctx context.Context, session *entity.Session, oldRefreshKey, oldAccessKey string) (bool, error) {
	query := `
		UPDATE sessions SET
			access_key = ?,
			refresh_key = ?,
			expires_at = ?,
			last_used_at = ?
		WHERE id = ? AND refresh_key = ? AND access_key = ?
	`
	result, err := r.db.ExecContext(ctx, query,
		session.AccessKey,
		session.RefreshKey,
		session.ExpiresAt,
		session.LastUsedAt,
		session.ID,
		oldRefreshKey,
		oldAccessKey,
	)
	if err != nil {
		return false, err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return rows > 0, nil
}

// Touch records a use of the session without rotating its keys.
func (r *SessionRepository) Touch(ctx context.Context, id int64, lastUsedAt time.Time) error {
	query := `UPDATE sessions SET last_used_at = ? WHERE id = ?`
	_, err := r.db.ExecContext(ctx, query, lastUsedAt, id)
	return err
}

// Invalidate soft-revokes the session by forcing its expiry to now. The row
// stays behind as an audit trail.
func (r *SessionRepository) Invalidate(ctx context.Context, id int64, now time.Time) error {
	query := `UPDATE sessions SET expires_at = ? WHERE id = ?`
	_, err := r.db.ExecContext(ctx, query, now, id)
	return err
}

func (r *SessionRepository) scanOne(row *sql.Row) (*entity.Session, error) {
	session := &entity.Session{}
	err := row.Scan(
		&session.ID,
		&session.AccountID,
		&session.AccessKey,
		&session.RefreshKey,
		&session.IPAddress,
		&session.UserAgent,
		&session.CreatedAt,
		&session.LastUsedAt,
		&session.ExpiresAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return session, nil
}
