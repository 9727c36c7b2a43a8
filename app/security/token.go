package security

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/sirupsen/logrus"
)

var (
	ErrTokenInvalid    = errors.New("invalid token")
	ErrTokenExpired    = errors.New("token has expired")
	ErrTokenIncomplete = errors.New("token payload is incomplete")
)

// AccessClaims is the payload of a short-lived access token. Subject carries
// the obscured account id, SessionID the obscured session id.
type AccessClaims struct {
	AccessKey string `json:"a"`
	SessionID string `json:"r"`
	jwt.RegisteredClaims
}

func (c *AccessClaims) complete() bool {
	return c.Subject != "" && c.AccessKey != "" && c.SessionID != ""
}

// RefreshClaims is the payload of a refresh token. Subject carries the
// obscured account id; RefreshKey and AccessKey correlate the session row.
type RefreshClaims struct {
	RefreshKey string `json:"t"`
	AccessKey  string `json:"a"`
	jwt.RegisteredClaims
}

func (c *RefreshClaims) complete() bool {
	return c.Subject != "" && c.RefreshKey != "" && c.AccessKey != ""
}

// Codec signs and verifies the HMAC JWT pair.
type Codec struct {
	secret []byte
	method jwt.SigningMethod
}

func NewCodec(secret, algorithm string) (*Codec, error) {
	method := jwt.GetSigningMethod(algorithm)
	if _, ok := method.(*jwt.SigningMethodHMAC); !ok {
		return nil, fmt.Errorf("unsupported signing algorithm %q", algorithm)
	}
	return &Codec{secret: []byte(secret), method: method}, nil
}

func (c *Codec) EncodeAccess(subject, accessKey, sessionID string, ttl time.Duration) (string, error) {
	claims := &AccessClaims{
		AccessKey:        accessKey,
		SessionID:        sessionID,
		RegisteredClaims: c.registeredClaims(subject, ttl),
	}
	return jwt.NewWithClaims(c.method, claims).SignedString(c.secret)
}

func (c *Codec) EncodeRefresh(subject, refreshKey, accessKey string, ttl time.Duration) (string, error) {
	claims := &RefreshClaims{
		RefreshKey:       refreshKey,
		AccessKey:        accessKey,
		RegisteredClaims: c.registeredClaims(subject, ttl),
	}
	return jwt.NewWithClaims(c.method, claims).SignedString(c.secret)
}

func (c *Codec) registeredClaims(subject string, ttl time.Duration) jwt.RegisteredClaims {
	now := time.Now().UTC()
	return jwt.RegisteredClaims{
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
}

// DecodeAccess verifies the signature always and the expiry unless
// allowExpired is set. allowExpired exists solely for logout, which must read
// identity out of a token that may already have expired.
func (c *Codec) DecodeAccess(tokenString string, allowExpired bool) (*AccessClaims, error) {
	claims := &AccessClaims{}
	if err := c.decode(tokenString, claims, allowExpired); err != nil {
		return nil, err
	}
	if !claims.complete() {
		return nil, ErrTokenIncomplete
	}
	return claims, nil
}

// DecodeRefresh always enforces expiry.
func (c *Codec) DecodeRefresh(tokenString string) (*RefreshClaims, error) {
	claims := &RefreshClaims{}
	if err := c.decode(tokenString, claims, false); err != nil {
		return nil, err
	}
	if !claims.complete() {
		return nil, ErrTokenIncomplete
	}
	return claims, nil
}

func (c *Codec) decode(tokenString string, claims jwt.Claims, allowExpired bool) error {
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{c.method.Alg()})}
	if allowExpired {
		opts = append(opts, jwt.WithoutClaimsValidation())
	}
	parser := jwt.NewParser(opts...)

	token, err := parser.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return c.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return ErrTokenExpired
		}
		logrus.WithError(err).Debug("Token verification failed")
		return ErrTokenInvalid
	}
	if !token.Valid {
		return ErrTokenInvalid
	}
	return nil
}
