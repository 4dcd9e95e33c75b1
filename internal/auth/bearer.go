package auth

import (
	"crypto/subtle"
	"strings"
)

const bearerPrefix = "Bearer "

// Bearer checks Authorization headers against a shared secret.
// An empty secret rejects every request.
type Bearer struct {
	secret string
}

func NewBearer(secret string) *Bearer {
	return &Bearer{secret: secret}
}

// Authorized reports whether header carries the configured bearer token.
func (b *Bearer) Authorized(header string) bool {
	if b == nil || b.secret == "" {
		return false
	}
	if !strings.HasPrefix(header, bearerPrefix) {
		return false
	}
	token := strings.TrimPrefix(header, bearerPrefix)
	return subtle.ConstantTimeCompare([]byte(token), []byte(b.secret)) == 1
}
