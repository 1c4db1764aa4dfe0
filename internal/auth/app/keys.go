package app

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/aussiebroadwan/authcore/internal/auth/service"
	"github.com/aussiebroadwan/authcore/pkg/cryptox"
	"github.com/aussiebroadwan/authcore/pkg/jwtx"
)

// newSigner builds the signer for one token kind.
//
// Supported algorithms:
//   - "HS256": shared secret from TokenConfig.SecretKey.
//   - "EdDSA": Ed25519 PKCS#8 PEM read from TokenConfig.PrivateKeyFile.
//     Verifiers elsewhere only need the public half.
func newSigner(alg string, tc TokenConfig) (jwtx.Signer, error) {
	switch alg {
	case AlgorithmHS256:
		return jwtx.NewSignerHS256([]byte(tc.SecretKey))

	case AlgorithmEdDSA:
		pemKey, err := os.ReadFile(tc.PrivateKeyFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read private key: %w", err)
		}
		return jwtx.NewSignerEdDSA(pemKey)

	default:
		return nil, fmt.Errorf("%w: unknown algorithm %q", ErrInvalidConfig, alg)
	}
}

// InitPayloadCodec builds the access and refresh codecs, and the payload
// ciphers when encryption is on.
func InitPayloadCodec(cfg Config, now func() time.Time, logger *slog.Logger) (*service.PayloadCodec, error) {
	accessSigner, err := newSigner(cfg.Algorithm, cfg.AccessToken)
	if err != nil {
		return nil, fmt.Errorf("access token signer: %w", err)
	}
	refreshSigner, err := newSigner(cfg.Algorithm, cfg.RefreshToken)
	if err != nil {
		return nil, fmt.Errorf("refresh token signer: %w", err)
	}

	// Two files can still hold the same key.
	if a, ok := accessSigner.(*jwtx.EdDSASigner); ok {
		if a.PublicKey().Equal(refreshSigner.(*jwtx.EdDSASigner).PublicKey()) {
			return nil, fmt.Errorf("%w: access and refresh keys must differ", ErrInvalidConfig)
		}
	}

	build := func(signer jwtx.Signer, tc TokenConfig) (*jwtx.Codec, error) {
		return jwtx.NewCodec(jwtx.CodecConfig{
			Signer:    signer,
			Subject:   cfg.Subject,
			Issuer:    cfg.Issuer,
			Audience:  cfg.Audience,
			TTL:       tc.Expired,
			NotBefore: tc.NotBefore,
			Now:       now,
		})
	}

	access, err := build(accessSigner, cfg.AccessToken)
	if err != nil {
		return nil, fmt.Errorf("access token codec: %w", err)
	}
	refresh, err := build(refreshSigner, cfg.RefreshToken)
	if err != nil {
		return nil, fmt.Errorf("refresh token codec: %w", err)
	}

	codecCfg := service.PayloadCodecConfig{
		Access:  access,
		Refresh: refresh,
		Encrypt: cfg.PayloadEncryption,
		Now:     now,
	}
	if cfg.PayloadEncryption {
		if codecCfg.AccessCipher, err = cryptox.NewCipher([]byte(cfg.AccessToken.EncryptKey), []byte(cfg.AccessToken.EncryptIV)); err != nil {
			return nil, fmt.Errorf("access payload cipher: %w", err)
		}
		if codecCfg.RefreshCipher, err = cryptox.NewCipher([]byte(cfg.RefreshToken.EncryptKey), []byte(cfg.RefreshToken.EncryptIV)); err != nil {
			return nil, fmt.Errorf("refresh payload cipher: %w", err)
		}
	}

	logger.Info("token codecs initialized",
		"algorithm", access.Alg(),
		"issuer", cfg.Issuer,
		"payload_encryption", cfg.PayloadEncryption,
		"access_ttl", cfg.AccessToken.Expired,
		"refresh_ttl", cfg.RefreshToken.Expired,
	)

	return service.NewPayloadCodec(codecCfg)
}
