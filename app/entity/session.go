package entity

import (
	"database/sql"
	"time"
)

// Session is one row per login. AccessKey and RefreshKey are the correlation
// secrets embedded in the JWT pair; both are unique across all sessions.
// Sessions are soft-revoked by forcing ExpiresAt to the current time and are
// never physically deleted.
type Session struct {
	ID         int64
	AccountID  string
	AccessKey  string
	RefreshKey string
	IPAddress  sql.NullString
	UserAgent  sql.NullString
	CreatedAt  time.Time
	LastUsedAt sql.NullTime
	ExpiresAt  time.Time
}

func (s *Session) ValidAt(now time.Time) bool {
	return s.ExpiresAt.After(now)
}
