package security

import (
	"crypto/rand"
	"encoding/base32"
	"fmt"
	"strings"
)

const tokenPrefix = "PT-"

var tokenEncoding = base32.StdEncoding.WithPadding(base32.NoPadding)

// GenerateToken produces a customer tracking token. The format is opaque to
// the rest of the system; only global uniqueness matters, which the identity
// store enforces with a unique index.
func GenerateToken() (string, error) {
	raw := make([]byte, 10)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}
	return tokenPrefix + strings.ToUpper(tokenEncoding.EncodeToString(raw)), nil
}

// LooksLikeToken reports whether the value has the shape of an issued token.
// Used for cheap input validation before hitting the store.
func LooksLikeToken(value string) bool {
	if !strings.HasPrefix(value, tokenPrefix) {
		return false
	}
	return len(value) > len(tokenPrefix)
}
