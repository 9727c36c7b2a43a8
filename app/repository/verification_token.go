package repository

import (
	"context"
	"database/sql"

	"github.com/votabienperu/backend/app/entity"
)

type VerificationTokenRepository struct {
	db DBTX
}

func NewVerificationTokenRepository(db DBTX) *VerificationTokenRepository {
	return &VerificationTokenRepository{db: db}
}

func (r *VerificationTokenRepository) Create(ctx context.Context, token *entity.VerificationToken) error {
	query := `
		INSERT INTO verification_tokens (id, email, token, expires_at, created_at)
		VALUES (?, ?, ?, ?, ?)
	`
	_, err := r.db.ExecContext(ctx, query,
		token.ID,
		token.Email,
		token.Token,
		token.ExpiresAt,
		token.CreatedAt,
	)
	return err
}

func (r *VerificationTokenRepository) Find(ctx context.Context, email, token string) (*entity.VerificationToken, error) {
	query := `
		SELECT id, email, token, expires_at, created_at
		FROM verification_tokens WHERE email = ? AND token = ?
	`
	vt := &entity.VerificationToken{}
	err := r.db.QueryRowContext(ctx, query, email, token).Scan(
		&vt.ID,
		&vt.Email,
		&vt.Token,
		&vt.ExpiresAt,
		&vt.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return vt, nil
}

// DeleteAllForEmail keeps the at-most-one-live-token invariant: a new token
// replaces every prior token for the same email.
func (r *VerificationTokenRepository) DeleteAllForEmail(ctx context.Context, email string) error {
	query := `DELETE FROM verification_tokens WHERE email = ?`
	_, err := r.db.ExecContext(ctx, query, email)
	return err
}

func (r *VerificationTokenRepository) Delete(ctx context.Context, id string) error {
	query := `DELETE FROM verification_tokens WHERE id = ?`
	_, err := r.db.ExecContext(ctx, query, id)
	return err
}
