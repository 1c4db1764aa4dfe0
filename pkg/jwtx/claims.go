package jwtx

import (
	"slices"
	"time"

	"github.com/aussiebroadwan/authcore/pkg/idx"
	"github.com/golang-jwt/jwt/v5"
)

// Claims are the registered claims plus the opaque "data" claim that carries
// a serialised (and possibly encrypted) payload.
type Claims struct {
	jwt.RegisteredClaims

	// Data is opaque to this package.
	Data string `json:"data"`
}

// NewClaims builds claims issued at now. NumericDate only has second
// precision on the wire, so now is truncated first to keep the in-memory
// claims equal to what a verifier will read back.
func NewClaims(
	data string,
	subject, issuer string,
	audience []string,
	ttl, notBefore time.Duration,
	now time.Time,
) Claims {
	now = now.UTC().Truncate(jwt.TimePrecision)
	return Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   subject,
			Audience:  jwt.ClaimStrings(audience),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now.Add(notBefore)),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        NewJTI(),
		},
		Data: data,
	}
}

// NewJTI returns a ULID for the "jti" claim.
func NewJTI() string {
	return idx.New().String()
}

// ValidateIssuer checks if the issuer matches expected value.
func (c *Claims) ValidateIssuer(expected string) error {
	if expected == "" {
		return nil // nothing to enforce
	}
	if c.Issuer != expected {
		return ErrIssuer
	}
	return nil
}

// ValidateAudience checks if at least one expected audience is present.
func (c *Claims) ValidateAudience(expected []string) error {
	if len(expected) == 0 {
		return nil // nothing to enforce
	}

	for _, want := range expected {
		if slices.Contains(c.Audience, want) {
			return nil
		}
	}

	return ErrAudience
}

// ValidateSubject checks the "sub" claim.
func (c *Claims) ValidateSubject(expected string) error {
	if expected == "" {
		return nil
	}
	if c.Subject != expected {
		return ErrSubject
	}
	return nil
}

// ValidateExpiryAt ensures the token has not expired (exp) and is not used
// before nbf. A token is expired from the exp instant onwards, so ttl=0
// tokens never verify.
func (c *Claims) ValidateExpiryAt(now time.Time) error {
	return c.ValidateExpiryWithLeeway(now, 0)
}

// ValidateExpiryWithLeeway adds a small grace period for clock skew.
func (c *Claims) ValidateExpiryWithLeeway(now time.Time, leeway time.Duration) error {
	if c.ExpiresAt != nil && !now.Before(c.ExpiresAt.Add(leeway)) {
		return ErrExpired
	}

	if c.NotBefore != nil && now.Before(c.NotBefore.Add(-leeway)) {
		return ErrNotYetValid
	}

	return nil
}
