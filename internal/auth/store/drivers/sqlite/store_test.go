package sqlite

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/aussiebroadwan/authcore/internal/auth/domain"
	"github.com/aussiebroadwan/authcore/internal/auth/store"
	"github.com/aussiebroadwan/authcore/pkg/idx"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()

	s, err := NewStore(FileDSN(filepath.Join(t.TempDir(), "auth.db")))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	require.NoError(t, s.ApplyMigrations())
	return s
}

func newAccount(t *testing.T, s *Store) domain.Account {
	t.Helper()

	created := time.Now().UTC().Truncate(time.Millisecond)
	a := domain.Account{
		ID:              idx.New().String(),
		PasswordHash:    "$2a$10$0123456789012345678901uhashhashhashhashhashhashhash",
		PasswordCreated: created,
		PasswordExpired: created.Add(180 * 24 * time.Hour),
	}
	require.NoError(t, s.Accounts().CreateAccount(context.Background(), a))
	return a
}

func TestStore_MemoryAndPing(t *testing.T) {
	s, err := NewStore(":memory:")
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.ApplyMigrations())
	require.NoError(t, s.Ping(context.Background()))

	// Migrations are idempotent.
	require.NoError(t, s.ApplyMigrations())
}

func TestSettings_Seeded(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	enabled, err := s.Settings().FindOneByName(ctx, domain.SettingPasswordAttempt)
	require.NoError(t, err)
	require.Equal(t, domain.SettingBoolean, enabled.Type)
	require.Equal(t, "true", enabled.Value)

	limit, err := s.Settings().FindOneByName(ctx, domain.SettingMaxPasswordAttempt)
	require.NoError(t, err)
	require.Equal(t, domain.SettingNumber, limit.Type)
	require.Equal(t, "3", limit.Value)

	all, err := s.Settings().ListSettings(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	require.Equal(t, domain.SettingMaxPasswordAttempt, all[0].Name)
}

func TestSettings_CRUD(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	repo := s.Settings()

	setting := domain.Setting{
		ID:          idx.New().String(),
		Name:        "allowedDomains",
		Description: "domains allowed to sign in",
		Type:        domain.SettingArrayOfString,
		Value:       "example.com,example.org",
	}
	require.NoError(t, repo.CreateSetting(ctx, setting))

	dup := setting
	dup.ID = idx.New().String()
	require.ErrorIs(t, repo.CreateSetting(ctx, dup), store.ErrAlreadyExists)

	got, err := repo.FindOneByName(ctx, "allowedDomains")
	require.NoError(t, err)
	require.Equal(t, setting.ID, got.ID)
	require.Equal(t, setting.Value, got.Value)
	require.False(t, got.CreatedAt.IsZero())

	require.NoError(t, repo.UpdateSettingValue(ctx, "allowedDomains", domain.SettingString, "example.net"))
	got, err = repo.FindOneByName(ctx, "allowedDomains")
	require.NoError(t, err)
	require.Equal(t, domain.SettingString, got.Type)
	require.Equal(t, "example.net", got.Value)

	require.ErrorIs(t, repo.UpdateSettingValue(ctx, "missing", domain.SettingString, "x"), store.ErrNotFound)

	require.NoError(t, repo.DeleteSetting(ctx, "allowedDomains"))
	_, err = repo.FindOneByName(ctx, "allowedDomains")
	require.ErrorIs(t, err, store.ErrNotFound)
	require.ErrorIs(t, repo.DeleteSetting(ctx, "allowedDomains"), store.ErrNotFound)
}

func TestSettings_RejectsUnknownType(t *testing.T) {
	s := newTestStore(t)

	err := s.Settings().CreateSetting(context.Background(), domain.Setting{
		ID:    idx.New().String(),
		Name:  "bad",
		Type:  domain.SettingType("DATE"),
		Value: "2020-01-01",
	})
	require.Error(t, err)
}

func TestAccounts_CreateAndGet(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	a := newAccount(t, s)

	got, err := s.Accounts().GetAccountByID(ctx, a.ID)
	require.NoError(t, err)
	require.Equal(t, a.PasswordHash, got.PasswordHash)
	require.True(t, a.PasswordCreated.Equal(got.PasswordCreated))
	require.True(t, a.PasswordExpired.Equal(got.PasswordExpired))
	require.Zero(t, got.PasswordAttempt)

	require.ErrorIs(t, s.Accounts().CreateAccount(ctx, a), store.ErrAlreadyExists)

	_, err = s.Accounts().GetAccountByID(ctx, idx.New().String())
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestAccounts_Attempts(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	a := newAccount(t, s)
	repo := s.Accounts()

	for want := 1; want <= 3; want++ {
		n, err := repo.IncrementPasswordAttempt(ctx, a.ID)
		require.NoError(t, err)
		require.Equal(t, want, n)
	}

	require.NoError(t, repo.ResetPasswordAttempt(ctx, a.ID))
	got, err := repo.GetAccountByID(ctx, a.ID)
	require.NoError(t, err)
	require.Zero(t, got.PasswordAttempt)

	_, err = repo.IncrementPasswordAttempt(ctx, "missing")
	require.ErrorIs(t, err, store.ErrNotFound)
	require.ErrorIs(t, repo.ResetPasswordAttempt(ctx, "missing"), store.ErrNotFound)
}

func TestAccounts_ConcurrentIncrement(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	a := newAccount(t, s)

	const workers = 8
	var wg sync.WaitGroup
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.Accounts().IncrementPasswordAttempt(ctx, a.ID)
			require.NoError(t, err)
		}()
	}
	wg.Wait()

	got, err := s.Accounts().GetAccountByID(ctx, a.ID)
	require.NoError(t, err)
	require.Equal(t, workers, got.PasswordAttempt)
}

func TestAccounts_UpdateCredentialResetsAttempts(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	a := newAccount(t, s)

	_, err := s.Accounts().IncrementPasswordAttempt(ctx, a.ID)
	require.NoError(t, err)

	now := time.Now().UTC().Truncate(time.Millisecond)
	rec := domain.CredentialRecord{
		PasswordHash:    "$2a$10$abcdefghijklmnopqrstuvnewhashnewhashnewhashnewhash",
		PasswordCreated: now,
		PasswordExpired: now.Add(time.Hour),
	}
	require.NoError(t, s.Accounts().UpdateCredential(ctx, a.ID, rec))

	got, err := s.Accounts().GetAccountByID(ctx, a.ID)
	require.NoError(t, err)
	require.Equal(t, rec, got.Credential())
	require.Zero(t, got.PasswordAttempt)

	require.ErrorIs(t, s.Accounts().UpdateCredential(ctx, "missing", rec), store.ErrNotFound)
}
