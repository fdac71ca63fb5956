package helpers

import (
	"crypto/rand"
	"encoding/base64"
)

// GenToken returns a URL-safe random token of n source bytes, used for
// password-reset links.
func GenToken(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
