package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/aussiebroadwan/authcore/internal/auth/domain"
	"github.com/aussiebroadwan/authcore/internal/auth/oauth"
	"github.com/aussiebroadwan/authcore/internal/auth/store"
	"github.com/aussiebroadwan/authcore/internal/auth/store/drivers/sqlite"
	"github.com/aussiebroadwan/authcore/pkg/cryptox"
	"github.com/aussiebroadwan/authcore/pkg/jwtx"
	"github.com/stretchr/testify/require"
)

const (
	testIssuer   = "jwt_issuer"
	testAudience = "jwt_audience"
	testSubject  = "jwt_subject"
)

type clock struct {
	mu sync.Mutex
	t  time.Time
}

func newClock() *clock {
	return &clock{t: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

// memSettings is an in-memory SettingsReader. err, when set, is returned
// from every read.
type memSettings struct {
	mu       sync.Mutex
	settings map[string]domain.Setting
	err      error
}

func newMemSettings(settings ...domain.Setting) *memSettings {
	m := &memSettings{settings: map[string]domain.Setting{}}
	for _, s := range settings {
		m.settings[s.Name] = s
	}
	return m
}

func (m *memSettings) FindOneByName(_ context.Context, name string) (domain.Setting, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return domain.Setting{}, m.err
	}
	s, ok := m.settings[name]
	if !ok {
		return domain.Setting{}, store.ErrNotFound
	}
	return s, nil
}

func (m *memSettings) set(name string, typ domain.SettingType, value string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.settings[name] = domain.Setting{Name: name, Type: typ, Value: value}
}

func attemptSettings(enabled string, max string) *memSettings {
	m := newMemSettings()
	m.set(domain.SettingPasswordAttempt, domain.SettingBoolean, enabled)
	m.set(domain.SettingMaxPasswordAttempt, domain.SettingNumber, max)
	return m
}

type recordedFailure struct {
	accountID string
	cause     FailureCause
}

type recordingAuditor struct {
	mu       sync.Mutex
	failures []recordedFailure
}

func (a *recordingAuditor) LoginFailed(_ context.Context, accountID string, cause FailureCause, _ error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.failures = append(a.failures, recordedFailure{accountID, cause})
}

func (a *recordingAuditor) last() FailureCause {
	a.mu.Lock()
	defer a.mu.Unlock()
	if len(a.failures) == 0 {
		return ""
	}
	return a.failures[len(a.failures)-1].cause
}

type fakeGoogle struct {
	info oauth.TokenInfo
	err  error
}

func (f *fakeGoogle) GetTokenInfo(context.Context, string) (oauth.TokenInfo, error) {
	return f.info, f.err
}

func (f *fakeGoogle) RefreshToken(context.Context, string) (oauth.RefreshedToken, error) {
	return oauth.RefreshedToken{AccessToken: "mockedData", TokenType: "Bearer"}, f.err
}

type emailResolver map[string]string

func (r emailResolver) AccountIDByEmail(_ context.Context, email string) (string, error) {
	id, ok := r[email]
	if !ok {
		return "", store.ErrNotFound
	}
	return id, nil
}

type codecOptions struct {
	encrypt    bool
	accessTTL  time.Duration
	refreshTTL time.Duration
}

func newTestCodec(t *testing.T, c *clock, opts codecOptions) *PayloadCodec {
	t.Helper()

	if opts.accessTTL == 0 {
		opts.accessTTL = 60 * time.Second
	}
	if opts.refreshTTL == 0 {
		opts.refreshTTL = 14 * 24 * time.Hour
	}

	build := func(secret string, ttl time.Duration) *jwtx.Codec {
		signer, err := jwtx.NewSignerHS256([]byte(secret))
		require.NoError(t, err)
		codec, err := jwtx.NewCodec(jwtx.CodecConfig{
			Signer:   signer,
			Subject:  testSubject,
			Issuer:   testIssuer,
			Audience: []string{testAudience},
			TTL:      ttl,
			Now:      c.Now,
		})
		require.NoError(t, err)
		return codec
	}

	cfg := PayloadCodecConfig{
		Access:  build("secretKey_accessToken", opts.accessTTL),
		Refresh: build("secretKey_refreshToken", opts.refreshTTL),
		Encrypt: opts.encrypt,
		Now:     c.Now,
	}
	if opts.encrypt {
		var err error
		cfg.AccessCipher, err = cryptox.NewCipher([]byte("AKeyForTestingPurposesAccess0001"), []byte("AnIvForTesting01"))
		require.NoError(t, err)
		cfg.RefreshCipher, err = cryptox.NewCipher([]byte("AKeyForTestingPurposesRefresh001"), []byte("AnIvForTesting02"))
		require.NoError(t, err)
	}

	codec, err := NewPayloadCodec(cfg)
	require.NoError(t, err)
	return codec
}

func newTestCredentials(t *testing.T, c *clock) *CredentialManager {
	t.Helper()

	m, err := NewCredentialManager(CredentialConfig{
		Scheme:     SchemeBcrypt,
		SaltLength: 4,
		ExpiredIn:  time.Hour,
		Now:        c.Now,
	})
	require.NoError(t, err)
	return m
}

func newSQLiteStore(t *testing.T) store.Store {
	t.Helper()

	s, err := sqlite.NewStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	require.NoError(t, s.ApplyMigrations())
	return s
}

type testAuth struct {
	svc     *AuthService
	clock   *clock
	auditor *recordingAuditor
	store   store.Store
}

// newTestAuth wires an AuthService over a migrated in-memory sqlite store.
// settings overrides the store-backed policy settings when non-nil.
func newTestAuth(t *testing.T, encrypt bool, settings SettingsReader) *testAuth {
	t.Helper()

	c := newClock()
	st := newSQLiteStore(t)
	if settings == nil {
		settings = st.Settings()
	}
	auditor := &recordingAuditor{}

	svc, err := NewAuthService(AuthConfig{
		Codec:       newTestCodec(t, c, codecOptions{encrypt: encrypt}),
		Credentials: newTestCredentials(t, c),
		Attempts: &AttemptPolicy{
			Settings:   &SettingService{Settings: settings},
			Enabled:    false,
			MaxAttempt: 5,
		},
		Accounts:            st.Accounts(),
		Google:              &fakeGoogle{info: oauth.TokenInfo{Email: "mail@mail.com", EmailVerified: true}},
		Auditor:             auditor,
		PrefixAuthorization: "Bearer",
		Issuer:              testIssuer,
		Audience:            []string{testAudience},
		Subject:             testSubject,
		Now:                 c.Now,
	})
	require.NoError(t, err)

	return &testAuth{svc: svc, clock: c, auditor: auditor, store: st}
}
