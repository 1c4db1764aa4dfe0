package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/aussiebroadwan/authcore/internal/auth/domain"
	"github.com/aussiebroadwan/authcore/internal/auth/oauth"
	"github.com/aussiebroadwan/authcore/internal/auth/store"
	"github.com/aussiebroadwan/authcore/pkg/httpx"
	"github.com/aussiebroadwan/authcore/pkg/jwtx"
	"github.com/aussiebroadwan/authcore/pkg/slogx"
)

var ErrGoogleDisabled = errors.New("service: google login is not configured")

// OAuthIntrospector is the external provider used for GOOGLE logins.
type OAuthIntrospector interface {
	GetTokenInfo(ctx context.Context, accessToken string) (oauth.TokenInfo, error)
	RefreshToken(ctx context.Context, refreshToken string) (oauth.RefreshedToken, error)
}

// AccountResolver maps a verified provider email to a local account id.
type AccountResolver interface {
	AccountIDByEmail(ctx context.Context, email string) (string, error)
}

// PayloadOptions are the login facts copied into a new payload. A zero
// LoginDate means now.
type PayloadOptions struct {
	LoginDate time.Time
	LoginFrom domain.LoginFrom
	LoginWith domain.LoginWith
}

type AuthConfig struct {
	Codec       *PayloadCodec
	Credentials *CredentialManager
	Attempts    *AttemptPolicy

	// Optional collaborators. Login and ChangePassword need Accounts.
	Accounts store.Accounts
	Google   OAuthIntrospector
	Auditor  Auditor

	PrefixAuthorization string
	Issuer              string
	Audience            []string
	Subject             string

	Now func() time.Time
}

// AuthService issues and validates tokens and runs the password flow.
type AuthService struct {
	codec       *PayloadCodec
	credentials *CredentialManager
	attempts    *AttemptPolicy
	accounts    store.Accounts
	google      OAuthIntrospector
	auditor     Auditor

	tokenType string
	issuer    string
	audience  []string
	subject   string
	now       func() time.Time

	// dummyHash is verified against for unknown accounts so they cost the
	// same hashing work as real ones.
	dummyHash string
}

func NewAuthService(cfg AuthConfig) (*AuthService, error) {
	if cfg.Codec == nil || cfg.Credentials == nil || cfg.Attempts == nil {
		return nil, errors.New("service: codec, credentials and attempt policy are required")
	}
	if cfg.PrefixAuthorization == "" {
		cfg.PrefixAuthorization = "Bearer"
	}
	if cfg.Auditor == nil {
		cfg.Auditor = LogAuditor{}
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	// Built once with a background context so a cancelled request can never
	// leave it empty.
	dummy, err := cfg.Credentials.CreatePassword(context.Background(), "unused-dummy-password")
	if err != nil {
		return nil, fmt.Errorf("service: dummy password hash: %w", err)
	}

	return &AuthService{
		dummyHash:   dummy.PasswordHash,
		codec:       cfg.Codec,
		credentials: cfg.Credentials,
		attempts:    cfg.Attempts,
		accounts:    cfg.Accounts,
		google:      cfg.Google,
		auditor:     cfg.Auditor,
		tokenType:   cfg.PrefixAuthorization,
		issuer:      cfg.Issuer,
		audience:    cfg.Audience,
		subject:     cfg.Subject,
		now:         cfg.Now,
	}, nil
}

// ============================================================================
// Tokens
// ============================================================================

func (s *AuthService) CreatePayloadAccessToken(userID string, opts PayloadOptions) domain.LoginPayload {
	loginDate := opts.LoginDate
	if loginDate.IsZero() {
		loginDate = s.now()
	}
	return domain.NewLoginPayload(userID, opts.LoginFrom, opts.LoginWith, loginDate)
}

// CreatePayloadRefreshToken carries the login origin of access into a
// refresh payload stamped with a fresh loginDate.
func (s *AuthService) CreatePayloadRefreshToken(userID string, access domain.LoginPayload) domain.RefreshPayload {
	return domain.NewLoginPayload(userID, access.LoginFrom, access.LoginWith, s.now())
}

func (s *AuthService) IssueAccessToken(userID string, from domain.LoginFrom, with domain.LoginWith) (string, error) {
	p := s.CreatePayloadAccessToken(userID, PayloadOptions{LoginFrom: from, LoginWith: with})
	return s.codec.Encode(p, domain.Access)
}

func (s *AuthService) IssueRefreshToken(userID string, from domain.LoginFrom, with domain.LoginWith) (string, error) {
	p := s.CreatePayloadRefreshToken(userID, domain.LoginPayload{LoginFrom: from, LoginWith: with})
	return s.codec.Encode(p, domain.Refresh)
}

// ValidateAccessToken fails with jwtx.ErrInvalid, cryptox.ErrDecryption or
// ErrPayloadDecode.
func (s *AuthService) ValidateAccessToken(token string) (domain.LoginPayload, error) {
	return s.codec.Decode(token, domain.Access)
}

func (s *AuthService) ValidateRefreshToken(token string) (domain.RefreshPayload, error) {
	return s.codec.Decode(token, domain.Refresh)
}

// PayloadAccessToken returns the unverified claims of token.
func (s *AuthService) PayloadAccessToken(token string) (jwtx.Claims, error) {
	return s.codec.Inspect(token)
}

func (s *AuthService) PayloadRefreshToken(token string) (jwtx.Claims, error) {
	return s.codec.Inspect(token)
}

// CreateTokenPair issues an access and a refresh token for one login event.
func (s *AuthService) CreateTokenPair(userID string, from domain.LoginFrom, with domain.LoginWith) (domain.TokenPair, error) {
	access := s.CreatePayloadAccessToken(userID, PayloadOptions{LoginFrom: from, LoginWith: with})
	accessToken, err := s.codec.Encode(access, domain.Access)
	if err != nil {
		return domain.TokenPair{}, err
	}

	refresh := s.CreatePayloadRefreshToken(userID, access)
	refreshToken, err := s.codec.Encode(refresh, domain.Refresh)
	if err != nil {
		return domain.TokenPair{}, err
	}

	return domain.TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		TokenType:    s.tokenType,
		ExpiresIn:    s.AccessTokenExpiration(),
	}, nil
}

// RefreshAccessToken validates refreshToken and issues a new access token for
// the same login. The refresh token is handed back unchanged.
func (s *AuthService) RefreshAccessToken(refreshToken string) (domain.TokenPair, error) {
	refresh, err := s.ValidateRefreshToken(refreshToken)
	if err != nil {
		return domain.TokenPair{}, err
	}

	access := s.CreatePayloadAccessToken(refresh.User.ID, PayloadOptions{
		LoginFrom: refresh.LoginFrom,
		LoginWith: refresh.LoginWith,
	})
	accessToken, err := s.codec.Encode(access, domain.Access)
	if err != nil {
		return domain.TokenPair{}, err
	}

	return domain.TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		TokenType:    s.tokenType,
		ExpiresIn:    s.AccessTokenExpiration(),
	}, nil
}

// ExtractToken pulls the token out of "<prefix> <token>".
func (s *AuthService) ExtractToken(authorization string) (string, error) {
	token, err := httpx.ParseAuthorization(authorization, s.tokenType)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidAuthorization, err)
	}
	return token, nil
}

func (s *AuthService) GetLoginDate() time.Time              { return s.now().UTC() }
func (s *AuthService) TokenType() string                    { return s.tokenType }
func (s *AuthService) AccessTokenExpiration() time.Duration { return s.codec.TTL(domain.Access) }
func (s *AuthService) RefreshTokenExpiration() time.Duration {
	return s.codec.TTL(domain.Refresh)
}
func (s *AuthService) Issuer() string          { return s.issuer }
func (s *AuthService) Audience() []string      { return s.audience }
func (s *AuthService) Subject() string         { return s.subject }
func (s *AuthService) PayloadEncryption() bool { return s.codec.Encrypted() }

// PasswordAttempt and MaxPasswordAttempt are the configured fallbacks; the
// live values come from settings at check time.
func (s *AuthService) PasswordAttempt() bool   { return s.attempts.Enabled }
func (s *AuthService) MaxPasswordAttempt() int { return s.attempts.MaxAttempt }

// ============================================================================
// Passwords
// ============================================================================

// Authenticate never distinguishes a wrong password from a broken hash.
func (s *AuthService) Authenticate(ctx context.Context, plaintext, storedHash string) bool {
	return s.credentials.VerifyPassword(ctx, plaintext, storedHash)
}

func (s *AuthService) CheckAttempt(ctx context.Context, account domain.Account) (domain.AttemptDecision, error) {
	return s.attempts.Check(ctx, account.PasswordAttempt)
}

func (s *AuthService) CreateSalt(length int) (string, error) {
	return s.credentials.CreateSalt(length)
}

func (s *AuthService) CreatePassword(ctx context.Context, plaintext string) (domain.CredentialRecord, error) {
	return s.credentials.CreatePassword(ctx, plaintext)
}

func (s *AuthService) CreateRandomPassword() (string, error) {
	return s.credentials.CreateRandomPassword()
}

func (s *AuthService) CheckPasswordExpired(expired time.Time) bool {
	return s.credentials.IsPasswordExpired(domain.CredentialRecord{PasswordExpired: expired})
}

func (s *AuthService) requireAccounts() error {
	if s.accounts == nil {
		return errors.New("service: no account store configured")
	}
	return nil
}

// CreateAccount stores the credential row for a new account.
func (s *AuthService) CreateAccount(ctx context.Context, accountID, plaintext string) (domain.Account, error) {
	if err := s.requireAccounts(); err != nil {
		return domain.Account{}, err
	}

	rec, err := s.credentials.CreatePassword(ctx, plaintext)
	if err != nil {
		return domain.Account{}, err
	}

	account := domain.Account{
		ID:              accountID,
		PasswordHash:    rec.PasswordHash,
		PasswordCreated: rec.PasswordCreated,
		PasswordExpired: rec.PasswordExpired,
	}
	if err := s.accounts.CreateAccount(ctx, account); err != nil {
		return domain.Account{}, err
	}
	return account, nil
}

// ChangePassword replaces the stored password and clears failed attempts.
func (s *AuthService) ChangePassword(ctx context.Context, accountID, plaintext string) (domain.CredentialRecord, error) {
	if err := s.requireAccounts(); err != nil {
		return domain.CredentialRecord{}, err
	}

	rec, err := s.credentials.CreatePassword(ctx, plaintext)
	if err != nil {
		return domain.CredentialRecord{}, err
	}
	if err := s.accounts.UpdateCredential(ctx, accountID, rec); err != nil {
		return domain.CredentialRecord{}, err
	}

	slogx.FromContext(ctx).Info("password changed", slog.String("account_id", accountID))
	return rec, nil
}

// Login runs the password flow for accountID. Every rejection is
// ErrInvalidCredentials except a settings failure, which is
// ErrConfigUnavailable, and an invalid loginWith, which is rejected before
// any account is read.
func (s *AuthService) Login(
	ctx context.Context,
	accountID, plaintext string,
	with domain.LoginWith,
) (domain.TokenPair, error) {
	if err := s.requireAccounts(); err != nil {
		return domain.TokenPair{}, err
	}
	if !with.Valid() {
		return domain.TokenPair{}, fmt.Errorf("%w: loginWith %q", domain.ErrInvalidPayload, with)
	}

	// 1. Load the account
	account, err := s.accounts.GetAccountByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			// Same hashing work as a real account.
			s.credentials.VerifyPassword(ctx, plaintext, s.dummyHash)
			s.auditor.LoginFailed(ctx, accountID, CauseUnknownAccount, nil)
			return domain.TokenPair{}, ErrInvalidCredentials
		}
		return domain.TokenPair{}, err
	}

	// 2. Reserve an attempt. The gate uses the atomically incremented
	// counter, so concurrent guesses each see a distinct prior count.
	attempts, err := s.accounts.IncrementPasswordAttempt(ctx, accountID)
	if err != nil {
		return domain.TokenPair{}, fmt.Errorf("service: reserve password attempt: %w", err)
	}

	// 3. Attempt limit, failing closed
	decision, err := s.attempts.Check(ctx, attempts-1)
	if err != nil {
		s.auditor.LoginFailed(ctx, accountID, CauseConfigUnavailable, err)
		return domain.TokenPair{}, err
	}
	if decision == domain.Blocked {
		s.auditor.LoginFailed(ctx, accountID, CauseAttemptsExceeded, nil)
		return domain.TokenPair{}, ErrInvalidCredentials
	}

	// 4. Password. A failure keeps the reserved attempt.
	if !s.Authenticate(ctx, plaintext, account.PasswordHash) {
		s.auditor.LoginFailed(ctx, accountID, CauseWrongPassword, fmt.Errorf("attempt %d", attempts))
		return domain.TokenPair{}, ErrInvalidCredentials
	}

	// 5. Expiry. Counts as a failed attempt until the password is changed.
	if s.credentials.IsPasswordExpired(account.Credential()) {
		s.auditor.LoginFailed(ctx, accountID, CausePasswordExpired, nil)
		return domain.TokenPair{}, ErrInvalidCredentials
	}

	// 6. Success clears the counter
	if err := s.accounts.ResetPasswordAttempt(ctx, accountID); err != nil {
		return domain.TokenPair{}, err
	}

	return s.CreateTokenPair(accountID, domain.LoginFromPassword, with)
}

// ============================================================================
// Google
// ============================================================================

func (s *AuthService) GoogleGetTokenInfo(ctx context.Context, accessToken string) (oauth.TokenInfo, error) {
	if s.google == nil {
		return oauth.TokenInfo{}, ErrGoogleDisabled
	}
	return s.google.GetTokenInfo(ctx, accessToken)
}

func (s *AuthService) GoogleRefreshToken(ctx context.Context, refreshToken string) (oauth.RefreshedToken, error) {
	if s.google == nil {
		return oauth.RefreshedToken{}, ErrGoogleDisabled
	}
	return s.google.RefreshToken(ctx, refreshToken)
}

// LoginGoogle trusts Google's view of accessToken, maps the email to an
// account and issues a token pair with loginFrom GOOGLE.
func (s *AuthService) LoginGoogle(
	ctx context.Context,
	accessToken string,
	accounts AccountResolver,
) (domain.TokenPair, error) {
	info, err := s.GoogleGetTokenInfo(ctx, accessToken)
	if err != nil {
		if errors.Is(err, ErrGoogleDisabled) {
			return domain.TokenPair{}, err
		}
		s.auditor.LoginFailed(ctx, "", CauseUnknownAccount, err)
		return domain.TokenPair{}, ErrInvalidCredentials
	}
	if info.Email == "" || !info.EmailVerified {
		s.auditor.LoginFailed(ctx, "", CauseUnknownAccount, errors.New("google email missing or unverified"))
		return domain.TokenPair{}, ErrInvalidCredentials
	}

	accountID, err := accounts.AccountIDByEmail(ctx, info.Email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			s.auditor.LoginFailed(ctx, "", CauseUnknownAccount, nil)
			return domain.TokenPair{}, ErrInvalidCredentials
		}
		return domain.TokenPair{}, err
	}

	return s.CreateTokenPair(accountID, domain.LoginFromGoogle, domain.LoginWithEmail)
}
