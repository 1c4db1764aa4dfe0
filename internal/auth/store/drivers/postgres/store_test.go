package postgres

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/aussiebroadwan/authcore/internal/auth/domain"
	"github.com/aussiebroadwan/authcore/internal/auth/store"
	"github.com/aussiebroadwan/authcore/pkg/idx"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// setupPostgres starts a throwaway postgres container and returns a migrated
// store. Skipped under -short or when docker is unavailable.
func setupPostgres(t *testing.T) *Store {
	t.Helper()
	if testing.Short() {
		t.Skip("postgres store tests need docker")
	}
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "postgres:16-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "auth",
			"POSTGRES_PASSWORD": "auth",
			"POSTGRES_DB":       "auth",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Skipf("docker unavailable: %v", err)
	}
	t.Cleanup(func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "5432")
	require.NoError(t, err)

	url := fmt.Sprintf("postgres://auth:auth@%s:%s/auth?sslmode=disable", host, port.Port())
	s, err := NewStore(ctx, url)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	require.NoError(t, s.ApplyMigrations())
	return s
}

func TestPostgresStore(t *testing.T) {
	s := setupPostgres(t)
	ctx := context.Background()

	t.Run("seeded settings", func(t *testing.T) {
		got, err := s.Settings().FindOneByName(ctx, domain.SettingMaxPasswordAttempt)
		require.NoError(t, err)
		require.Equal(t, domain.SettingNumber, got.Type)
		require.Equal(t, "3", got.Value)
	})

	t.Run("settings crud", func(t *testing.T) {
		setting := domain.Setting{
			ID:    idx.New().String(),
			Name:  "allowedDomains",
			Type:  domain.SettingArrayOfString,
			Value: "example.com",
		}
		require.NoError(t, s.Settings().CreateSetting(ctx, setting))
		setting.ID = idx.New().String()
		require.ErrorIs(t, s.Settings().CreateSetting(ctx, setting), store.ErrAlreadyExists)

		require.NoError(t, s.Settings().UpdateSettingValue(ctx, setting.Name, domain.SettingString, "x"))
		require.NoError(t, s.Settings().DeleteSetting(ctx, setting.Name))
		_, err := s.Settings().FindOneByName(ctx, setting.Name)
		require.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("account attempts", func(t *testing.T) {
		now := time.Now().UTC().Truncate(time.Microsecond)
		a := domain.Account{
			ID:              idx.New().String(),
			PasswordHash:    "hash",
			PasswordCreated: now,
			PasswordExpired: now.Add(time.Hour),
		}
		require.NoError(t, s.Accounts().CreateAccount(ctx, a))
		require.ErrorIs(t, s.Accounts().CreateAccount(ctx, a), store.ErrAlreadyExists)

		n, err := s.Accounts().IncrementPasswordAttempt(ctx, a.ID)
		require.NoError(t, err)
		require.Equal(t, 1, n)

		rec := domain.CredentialRecord{PasswordHash: "new", PasswordCreated: now, PasswordExpired: now.Add(2 * time.Hour)}
		require.NoError(t, s.Accounts().UpdateCredential(ctx, a.ID, rec))

		got, err := s.Accounts().GetAccountByID(ctx, a.ID)
		require.NoError(t, err)
		require.Zero(t, got.PasswordAttempt)
		require.True(t, rec.PasswordExpired.Equal(got.PasswordExpired))

		_, err = s.Accounts().IncrementPasswordAttempt(ctx, "missing")
		require.ErrorIs(t, err, store.ErrNotFound)
	})
}
