package helpers

import (
	"crypto/rand"
	"encoding/base64"
)

// NewURLToken returns n random bytes encoded for use in links.
func NewURLToken(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
