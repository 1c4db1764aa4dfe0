package jwtx

import (
	"fmt"
	"time"
)

// CodecConfig configures one token kind.
type CodecConfig struct {
	Signer Signer

	Subject  string
	Issuer   string
	Audience []string

	// TTL is added to iat for exp. Zero is allowed and yields tokens that
	// are already expired.
	TTL time.Duration

	// NotBefore is added to iat for nbf.
	NotBefore time.Duration

	Leeway time.Duration

	// Now defaults to time.Now.
	Now func() time.Time
}

// Codec signs and verifies tokens for a single kind (access or refresh) with
// a fixed set of expected claims.
type Codec struct {
	signer   Signer
	verifier Verifier

	subject   string
	issuer    string
	audience  []string
	ttl       time.Duration
	notBefore time.Duration
	now       func() time.Time
}

func NewCodec(cfg CodecConfig) (*Codec, error) {
	if cfg.Signer == nil {
		return nil, ErrNoSigner
	}
	if err := cfg.Signer.Validate(); err != nil {
		return nil, err
	}
	if cfg.TTL < 0 || cfg.NotBefore < 0 || cfg.Leeway < 0 {
		return nil, ErrNegativeTTL
	}

	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	return &Codec{
		signer: cfg.Signer,
		verifier: cfg.Signer.Verifier(VerifyOptions{
			Issuer:   cfg.Issuer,
			Audience: cfg.Audience,
			Subject:  cfg.Subject,
			Leeway:   cfg.Leeway,
			Now:      now,
		}),
		subject:   cfg.Subject,
		issuer:    cfg.Issuer,
		audience:  cfg.Audience,
		ttl:       cfg.TTL,
		notBefore: cfg.NotBefore,
		now:       now,
	}, nil
}

// Sign wraps data in freshly issued claims and signs them.
func (c *Codec) Sign(data string) (string, error) {
	claims := NewClaims(data, c.subject, c.issuer, c.audience, c.ttl, c.notBefore, c.now())

	token, err := c.signer.Sign(claims)
	if err != nil {
		return "", fmt.Errorf("jwtx: sign: %w", err)
	}
	return token, nil
}

// Verify checks signature, validity window, issuer, audience and subject.
// Every failure wraps ErrInvalid.
func (c *Codec) Verify(token string) (Claims, error) {
	return c.verifier.Verify(token)
}

// Decode returns claims without verifying anything.
func (c *Codec) Decode(token string) (Claims, error) {
	return Decode(token)
}

func (c *Codec) TTL() time.Duration       { return c.ttl }
func (c *Codec) NotBefore() time.Duration { return c.notBefore }
func (c *Codec) Alg() string              { return c.signer.Alg() }
