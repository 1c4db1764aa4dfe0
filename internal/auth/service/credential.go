package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"time"

	"github.com/aussiebroadwan/authcore/internal/auth/domain"
	"github.com/aussiebroadwan/authcore/pkg/cryptox"
	"github.com/aussiebroadwan/authcore/pkg/slogx"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/sync/semaphore"
)

// Password hashing schemes for new hashes. Verification accepts both.
const (
	SchemeBcrypt   = "bcrypt"
	SchemeArgon2id = "argon2id"
)

const (
	DefaultSaltLength = 8
	DefaultExpiredIn  = 182 * 24 * time.Hour
)

var ErrCredentialConfig = errors.New("service: invalid credential config")

type CredentialConfig struct {
	Scheme string

	// SaltLength is the bcrypt cost written into new salts.
	SaltLength int

	// ExpiredIn is how long a new password stays valid.
	ExpiredIn time.Duration

	// Concurrency caps simultaneous hash computations. Defaults to GOMAXPROCS.
	Concurrency int

	Now func() time.Time
}

// CredentialManager hashes, verifies and dates passwords. All hashing runs
// through a fixed number of slots; the context only bounds the wait for one.
type CredentialManager struct {
	scheme     string
	saltLength int
	expiredIn  time.Duration
	slots      *semaphore.Weighted
	now        func() time.Time
}

func NewCredentialManager(cfg CredentialConfig) (*CredentialManager, error) {
	if cfg.Scheme == "" {
		cfg.Scheme = SchemeBcrypt
	}
	if cfg.Scheme != SchemeBcrypt && cfg.Scheme != SchemeArgon2id {
		return nil, fmt.Errorf("%w: unknown scheme %q", ErrCredentialConfig, cfg.Scheme)
	}
	if cfg.SaltLength == 0 {
		cfg.SaltLength = DefaultSaltLength
	}
	if cfg.SaltLength < bcrypt.MinCost || cfg.SaltLength > bcrypt.MaxCost {
		return nil, fmt.Errorf("%w: salt length %d outside [%d, %d]",
			ErrCredentialConfig, cfg.SaltLength, bcrypt.MinCost, bcrypt.MaxCost)
	}
	if cfg.ExpiredIn == 0 {
		cfg.ExpiredIn = DefaultExpiredIn
	}
	if cfg.ExpiredIn < 0 {
		return nil, fmt.Errorf("%w: expiredIn must be positive", ErrCredentialConfig)
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = runtime.GOMAXPROCS(0)
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	return &CredentialManager{
		scheme:     cfg.Scheme,
		saltLength: cfg.SaltLength,
		expiredIn:  cfg.ExpiredIn,
		slots:      semaphore.NewWeighted(int64(cfg.Concurrency)),
		now:        cfg.Now,
	}, nil
}

// CreateSalt returns a fresh salt for the configured scheme. For bcrypt,
// length is the cost; argon2id salts carry fixed parameters.
func (m *CredentialManager) CreateSalt(length int) (string, error) {
	if m.scheme == SchemeArgon2id {
		return cryptox.Argon2idHasher{}.Salt()
	}
	return cryptox.BcryptHasher{Cost: length}.Salt()
}

// HashPassword hashes plaintext under salt. The result starts with salt.
func (m *CredentialManager) HashPassword(ctx context.Context, plaintext, salt string) (string, error) {
	if err := m.slots.Acquire(ctx, 1); err != nil {
		return "", err
	}
	defer m.slots.Release(1)

	return cryptox.HashWithSalt(plaintext, salt)
}

// VerifyPassword reports whether plaintext matches storedHash. A malformed
// hash, or a context that ends before a slot frees up, is a mismatch.
func (m *CredentialManager) VerifyPassword(ctx context.Context, plaintext, storedHash string) bool {
	if err := m.slots.Acquire(ctx, 1); err != nil {
		slogx.FromContext(ctx).Warn("password verification not attempted", slog.Any("error", err))
		return false
	}
	defer m.slots.Release(1)

	err := cryptox.VerifyPassword(plaintext, storedHash)
	if errors.Is(err, cryptox.ErrHashFormat) {
		slogx.FromContext(ctx).Warn("stored password hash is malformed")
	}
	return err == nil
}

// CreatePassword salts and hashes plaintext and dates the record.
func (m *CredentialManager) CreatePassword(ctx context.Context, plaintext string) (domain.CredentialRecord, error) {
	salt, err := m.CreateSalt(m.saltLength)
	if err != nil {
		return domain.CredentialRecord{}, err
	}

	hash, err := m.HashPassword(ctx, plaintext, salt)
	if err != nil {
		return domain.CredentialRecord{}, err
	}

	now := m.now().UTC()
	return domain.CredentialRecord{
		PasswordHash:    hash,
		PasswordCreated: now,
		PasswordExpired: now.Add(m.expiredIn),
	}, nil
}

// CreateRandomPassword returns a system generated password for resets.
func (m *CredentialManager) CreateRandomPassword() (string, error) {
	return cryptox.GeneratePassword()
}

func (m *CredentialManager) IsPasswordExpired(rec domain.CredentialRecord) bool {
	return m.now().After(rec.PasswordExpired)
}

func (m *CredentialManager) SaltLength() int          { return m.saltLength }
func (m *CredentialManager) ExpiredIn() time.Duration { return m.expiredIn }
