package dto

import "github.com/votabienperu/backend/app/entity"

type LoginResult struct {
	AccessToken  string
	RefreshToken string
	ExpiresIn    int64
	Account      *entity.Account
}

// RefreshResult carries the outcome of a refresh. RefreshToken is only set
// when Rotated is true; otherwise the client must keep its current refresh
// credential.
type RefreshResult struct {
	AccessToken  string
	RefreshToken string
	Rotated      bool
	ExpiresIn    int64
	Account      *entity.Account
}
