package service

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aussiebroadwan/authcore/internal/auth/domain"
	"github.com/aussiebroadwan/authcore/pkg/cryptox"
	"github.com/aussiebroadwan/authcore/pkg/jwtx"
)

var ErrCodecConfig = errors.New("service: invalid payload codec config")

type PayloadCodecConfig struct {
	Access  *jwtx.Codec
	Refresh *jwtx.Codec

	// Encrypt applies to every token this process issues or accepts.
	Encrypt       bool
	AccessCipher  *cryptox.Cipher
	RefreshCipher *cryptox.Cipher

	Now func() time.Time // defaults to time.Now
}

// PayloadCodec turns login payloads into tokens and back:
// JSON, then AES when encryption is on, then a signed data claim.
type PayloadCodec struct {
	codecs  [2]*jwtx.Codec
	ciphers [2]*cryptox.Cipher
	encrypt bool
	now     func() time.Time
}

func NewPayloadCodec(cfg PayloadCodecConfig) (*PayloadCodec, error) {
	if cfg.Access == nil || cfg.Refresh == nil {
		return nil, fmt.Errorf("%w: both token codecs are required", ErrCodecConfig)
	}
	if cfg.Encrypt && (cfg.AccessCipher == nil || cfg.RefreshCipher == nil) {
		return nil, fmt.Errorf("%w: payload encryption needs a cipher per token kind", ErrCodecConfig)
	}

	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	return &PayloadCodec{
		now:     cfg.Now,
		codecs:  [2]*jwtx.Codec{domain.Access: cfg.Access, domain.Refresh: cfg.Refresh},
		ciphers: [2]*cryptox.Cipher{domain.Access: cfg.AccessCipher, domain.Refresh: cfg.RefreshCipher},
		encrypt: cfg.Encrypt,
	}, nil
}

func (c *PayloadCodec) codec(kind domain.TokenKind) (*jwtx.Codec, error) {
	if kind != domain.Access && kind != domain.Refresh {
		return nil, fmt.Errorf("%w: unknown token kind %s", ErrCodecConfig, kind)
	}
	return c.codecs[kind], nil
}

// Encode serializes, optionally encrypts and signs p.
func (c *PayloadCodec) Encode(p domain.LoginPayload, kind domain.TokenKind) (string, error) {
	codec, err := c.codec(kind)
	if err != nil {
		return "", err
	}
	if err := p.ValidateAt(c.now()); err != nil {
		return "", err
	}

	raw, err := json.Marshal(p)
	if err != nil {
		return "", fmt.Errorf("service: marshal payload: %w", err)
	}

	data := string(raw)
	if c.encrypt {
		if data, err = c.ciphers[kind].Encrypt(data); err != nil {
			return "", err
		}
	}

	return codec.Sign(data)
}

// Decode verifies token as kind and recovers its payload. Failures wrap
// jwtx.ErrInvalid, cryptox.ErrDecryption or ErrPayloadDecode.
func (c *PayloadCodec) Decode(token string, kind domain.TokenKind) (domain.LoginPayload, error) {
	codec, err := c.codec(kind)
	if err != nil {
		return domain.LoginPayload{}, err
	}

	claims, err := codec.Verify(token)
	if err != nil {
		return domain.LoginPayload{}, err
	}

	data := claims.Data
	if c.encrypt {
		if data, err = c.ciphers[kind].Decrypt(data); err != nil {
			return domain.LoginPayload{}, err
		}
	}

	return parsePayload(data)
}

// Inspect returns the claims without checking the signature. Never use the
// result for a trust decision.
func (c *PayloadCodec) Inspect(token string) (jwtx.Claims, error) {
	return jwtx.Decode(token)
}

func (c *PayloadCodec) Encrypted() bool { return c.encrypt }

func (c *PayloadCodec) TTL(kind domain.TokenKind) time.Duration {
	codec, err := c.codec(kind)
	if err != nil {
		return 0
	}
	return codec.TTL()
}

func parsePayload(data string) (domain.LoginPayload, error) {
	var p domain.LoginPayload

	dec := json.NewDecoder(strings.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&p); err != nil {
		return domain.LoginPayload{}, fmt.Errorf("%w: %w", ErrPayloadDecode, err)
	}
	if dec.More() {
		return domain.LoginPayload{}, fmt.Errorf("%w: trailing data", ErrPayloadDecode)
	}
	if err := p.Validate(); err != nil {
		return domain.LoginPayload{}, fmt.Errorf("%w: %w", ErrPayloadDecode, err)
	}
	return p, nil
}
