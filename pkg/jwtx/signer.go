package jwtx

import (
	"github.com/golang-jwt/jwt/v5"
)

// Signer is our interface for anything that can sign JWTs. Each signer knows
// how to build the verifier for its own key material.
type Signer interface {
	Alg() string
	Sign(Claims) (string, error)
	Verifier(VerifyOptions) Verifier
	Validate() error
}

// HS256Signer signs with a shared HMAC-SHA256 secret.
type HS256Signer struct {
	secret []byte
}

// NewSignerHS256 creates an HS256 signer. The secret is copied.
func NewSignerHS256(secret []byte) (*HS256Signer, error) {
	if len(secret) == 0 {
		return nil, ErrEmptySecret
	}
	return &HS256Signer{secret: append([]byte(nil), secret...)}, nil
}

func (s *HS256Signer) Alg() string { return jwt.SigningMethodHS256.Alg() }

func (s *HS256Signer) Sign(claims Claims) (string, error) {
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}

func (s *HS256Signer) Verifier(opts VerifyOptions) Verifier {
	return NewVerifierHS256(s.secret, opts)
}

func (s *HS256Signer) Validate() error {
	if len(s.secret) == 0 {
		return ErrEmptySecret
	}
	return nil
}
