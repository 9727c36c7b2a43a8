package entity

import (
	"database/sql"
	"time"
)

// Account is a registered user of the directory. The ID is an opaque
// app-generated string, never a database sequence.
type Account struct {
	ID            string
	Name          sql.NullString
	Email         string
	EmailVerified sql.NullTime
	PasswordHash  string
	IsAdmin       bool
	CreatedAt     time.Time
	UpdatedAt     sql.NullTime
}

func (a *Account) Verified() bool {
	return a.EmailVerified.Valid
}

func (a *Account) DisplayName() string {
	if a.Name.Valid {
		return a.Name.String
	}
	return ""
}
