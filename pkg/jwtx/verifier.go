package jwtx

import (
	"crypto/ed25519"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Verifier validates a JWT and gives you back the claims if it's legit.
type Verifier interface {
	Verify(token string) (Claims, error)
}

// VerifyOptions captures common expectations used by verifiers.
type VerifyOptions struct {
	// Issuer the token must have (claims.iss). Empty means "don't care".
	Issuer string

	// Audience values the token must contain (claims.aud). Empty means "don't care".
	Audience []string

	// Subject the token must have (claims.sub). Empty means "don't care".
	Subject string

	// Leeway allows small clock skew when validating exp/nbf.
	Leeway time.Duration

	// Now is the clock used for exp/nbf. Defaults to time.Now.
	Now func() time.Time
}

// HS256Verifier validates tokens signed with a shared secret.
type HS256Verifier struct {
	secret []byte
	opts   VerifyOptions
}

func NewVerifierHS256(secret []byte, opts VerifyOptions) *HS256Verifier {
	return &HS256Verifier{secret: secret, opts: opts}
}

func (v *HS256Verifier) Verify(token string) (Claims, error) {
	return verify(token, jwt.SigningMethodHS256, v.secret, v.opts)
}

// EdDSAVerifier validates JWTs signed using EdDSA (Ed25519).
type EdDSAVerifier struct {
	pub  ed25519.PublicKey
	opts VerifyOptions
}

func NewVerifierEdDSA(pub ed25519.PublicKey, opts VerifyOptions) *EdDSAVerifier {
	return &EdDSAVerifier{pub: pub, opts: opts}
}

func (v *EdDSAVerifier) Verify(token string) (Claims, error) {
	return verify(token, jwt.SigningMethodEdDSA, v.pub, v.opts)
}

// verify checks the signature with the jwt parser, then runs our own claim
// checks against the injected clock.
func verify(tokenStr string, method jwt.SigningMethod, key any, opts VerifyOptions) (Claims, error) {
	// Strict decoding rejects non-zero padding bits, so every character of
	// the token is covered by the signature.
	parser := jwt.NewParser(jwt.WithoutClaimsValidation(), jwt.WithStrictDecoding())

	var claims Claims
	_, err := parser.ParseWithClaims(tokenStr, &claims, func(t *jwt.Token) (any, error) {
		// Checked here rather than WithValidMethods so the caller can tell
		// a wrong alg apart from a bad signature.
		if t.Method == nil || t.Method.Alg() != method.Alg() {
			return nil, ErrAlgMismatch
		}
		return key, nil
	})
	if err != nil {
		return Claims{}, classify(err)
	}

	now := time.Now
	if opts.Now != nil {
		now = opts.Now
	}

	if err := claims.ValidateExpiryWithLeeway(now(), opts.Leeway); err != nil {
		return Claims{}, err
	}
	if err := claims.ValidateIssuer(opts.Issuer); err != nil {
		return Claims{}, err
	}
	if err := claims.ValidateAudience(opts.Audience); err != nil {
		return Claims{}, err
	}
	if err := claims.ValidateSubject(opts.Subject); err != nil {
		return Claims{}, err
	}

	return claims, nil
}

// classify maps parser errors onto our sentinels.
func classify(err error) error {
	switch {
	case errors.Is(err, ErrAlgMismatch):
		return ErrAlgMismatch
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return ErrInvalidSig
	case errors.Is(err, jwt.ErrTokenUnverifiable):
		// unknown or unregistered alg header
		return fmt.Errorf("%w: %v", ErrAlgMismatch, err)
	default:
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	}
}

// Decode parses claims without checking the signature. Introspection only;
// never base a trust decision on the result.
func Decode(tokenStr string) (Claims, error) {
	var claims Claims
	if _, _, err := jwt.NewParser(jwt.WithStrictDecoding()).ParseUnverified(tokenStr, &claims); err != nil {
		return Claims{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return claims, nil
}
