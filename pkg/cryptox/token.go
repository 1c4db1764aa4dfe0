package cryptox

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
)

// Sizes (in raw bytes) for GenerateToken. Base64url output is 4/3 longer, so
// KeySize256 yields a 32-character string usable as an AES-256 key and
// IVSizeRaw a 16-character string usable as an IV.
const (
	IVSizeRaw    = 12
	KeySize256   = 24
	SecretSize   = 32
	SecretSize64 = 64
)

// GenerateToken returns size random bytes encoded as base64url without
// padding. Used for signing secrets and printable cipher keys.
func GenerateToken(size int) (string, error) {
	if size <= 0 {
		return "", fmt.Errorf("token size must be positive, got %d", size)
	}

	buf := make([]byte, size)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate random token: %w", err)
	}

	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// FingerprintToken returns a deterministic SHA-256 fingerprint of a token
// (43 chars base64url). Logs reference tokens by fingerprint only.
func FingerprintToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}
