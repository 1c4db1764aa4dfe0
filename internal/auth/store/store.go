package store

import (
	"context"
	"errors"

	"github.com/aussiebroadwan/authcore/internal/auth/domain"
)

var (
	ErrNotFound      = errors.New("store: not found")
	ErrAlreadyExists = errors.New("store: already exists")
)

// Store is the root data access interface. Concrete drivers (sqlite, postgres)
// implement this. It exposes sub-repositories to keep concerns tidy and
// testable.
type Store interface {
	Settings() Settings
	Accounts() Accounts

	ApplyMigrations() error

	// Close releases any underlying resources.
	Close() error

	// Ping verifies the database connection is still alive.
	Ping(ctx context.Context) error
}

type Settings interface {
	// FindOneByName returns ErrNotFound when no setting has that name.
	FindOneByName(ctx context.Context, name string) (domain.Setting, error)

	// ListSettings returns all settings ordered by name.
	ListSettings(ctx context.Context) ([]domain.Setting, error)

	// CreateSetting inserts a new setting (id is provided by app via ULID).
	// Returns ErrAlreadyExists on a duplicate name.
	CreateSetting(ctx context.Context, s domain.Setting) error

	// UpdateSettingValue replaces type and value and bumps updated_at.
	UpdateSettingValue(ctx context.Context, name string, typ domain.SettingType, value string) error

	DeleteSetting(ctx context.Context, name string) error
}

type Accounts interface {
	GetAccountByID(ctx context.Context, id string) (domain.Account, error)

	// CreateAccount inserts the credential fields of a new account.
	// Returns ErrAlreadyExists on a duplicate id.
	CreateAccount(ctx context.Context, a domain.Account) error

	// UpdateCredential stores a new password record and resets the attempt
	// counter in the same statement.
	UpdateCredential(ctx context.Context, id string, rec domain.CredentialRecord) error

	// IncrementPasswordAttempt atomically bumps the counter and returns the
	// new value. Concurrent failures from the same account never lose an
	// increment.
	IncrementPasswordAttempt(ctx context.Context, id string) (int, error)

	ResetPasswordAttempt(ctx context.Context, id string) error
}
