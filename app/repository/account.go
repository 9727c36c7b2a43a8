package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/votabienperu/backend/app/entity"
)

type AccountRepository struct {
	db DBTX
}

func NewAccountRepository(db DBTX) *AccountRepository {
	return &AccountRepository{db: db}
}

func (r *AccountRepository) Create(ctx context.Context, account *entity.Account) error {
	query := `
		INSERT INTO accounts (id, name, email, email_verified, password_hash, is_admin, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := r.db.ExecContext(ctx, query,
		account.ID,
		account.Name,
		account.Email,
		account.EmailVerified,
		account.PasswordHash,
		account.IsAdmin,
		account.CreatedAt,
		account.UpdatedAt,
	)
	return err
}

func (r *AccountRepository) FindByEmail(ctx context.Context, email string) (*entity.Account, error) {
	query := `
		SELECT id, name, email, email_verified, password_hash, is_admin, created_at, updated_at
		FROM accounts WHERE email = ?
	`
	return r.scanOne(r.db.QueryRowContext(ctx, query, email))
}

func (r *AccountRepository) FindByID(ctx context.Context, id string) (*entity.Account, error) {
	query := `
		SELECT id, name, email, email_verified, password_hash, is_admin, created_at, updated_at
		FROM accounts WHERE id = ?
	`
	return r.scanOne(r.db.QueryRowContext(ctx, query, id))
}

func (r *AccountRepository) Update(ctx context.Context, account *entity.Account) error {
	query := `
		UPDATE accounts SET
			name = ?,
			email = ?,
			email_verified = ?,
			password_hash = ?,
			is_admin = ?,
			updated_at = ?
		WHERE id = ?
	`
	account.UpdatedAt = sql.NullTime{Time: time.Now().UTC(), Valid: true}
	_, err := r.db.ExecContext(ctx, query,
		account.Name,
		account.Email,
		account.EmailVerified,
		account.PasswordHash,
		account.IsAdmin,
		account.UpdatedAt,
		account.ID,
	)
	return err
}

func (r *AccountRepository) scanOne(row *sql.Row) (*entity.Account, error) {
	account := &entity.Account{}
	err := row.Scan(
		&account.ID,
		&account.Name,
		&account.Email,
		&account.EmailVerified,
		&account.PasswordHash,
		&account.IsAdmin,
		&account.CreatedAt,
		&account.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return account, nil
}
