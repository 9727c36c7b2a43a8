package security

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
)

// RandomURLSafe returns a URL-safe string built from n bytes of CSPRNG
// material, the equivalent of secrets.token_urlsafe.
func RandomURLSafe(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("random string: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
