package entity

import "time"

// VerificationToken is a one-time email-verification code. At most one live
// token exists per email: issuing a new one deletes all prior tokens.
type VerificationToken struct {
	ID        string
	Email     string
	Token     string
	ExpiresAt time.Time
	CreatedAt time.Time
}
