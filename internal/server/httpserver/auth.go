package httpserver

import (
	"crypto/sha256"
	"sync"

	"github.com/yndnr/tradeguard/pkg/token"
)

// maxCachedTokens bounds the accepted-token cache.
const maxCachedTokens = 8

// TokenVerifier checks bearer tokens against the configured argon2id hash.
// Accepted tokens are remembered by SHA-256 digest so argon2 runs once per
// distinct token, not once per request.
type TokenVerifier struct {
	hash string

	mu       sync.Mutex
	accepted map[[sha256.Size]byte]struct{}
}

// NewTokenVerifier returns a verifier for hash, or nil when hash is empty
// (authentication disabled).
func NewTokenVerifier(hash string) (*TokenVerifier, error) {
	if hash == "" {
		return nil, nil
	}
	if _, err := token.Verify("", hash); err != nil {
		return nil, err
	}
	return &TokenVerifier{hash: hash, accepted: make(map[[sha256.Size]byte]struct{})}, nil
}

// Verify reports whether tok matches the configured hash.
func (v *TokenVerifier) Verify(tok string) bool {
	digest := sha256.Sum256([]byte(tok))

	v.mu.Lock()
	_, ok := v.accepted[digest]
	v.mu.Unlock()
	if ok {
		return true
	}

	if ok, err := token.Verify(tok, v.hash); err != nil || !ok {
		return false
	}

	v.mu.Lock()
	if len(v.accepted) >= maxCachedTokens {
		clear(v.accepted)
	}
	v.accepted[digest] = struct{}{}
	v.mu.Unlock()
	return true
}
