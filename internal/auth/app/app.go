package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/aussiebroadwan/authcore/internal/auth/domain"
	"github.com/aussiebroadwan/authcore/internal/auth/oauth"
	"github.com/aussiebroadwan/authcore/internal/auth/service"
	"github.com/aussiebroadwan/authcore/internal/auth/store"
	"github.com/aussiebroadwan/authcore/internal/auth/store/drivers/postgres"
	"github.com/aussiebroadwan/authcore/internal/auth/store/drivers/sqlite"
	"github.com/aussiebroadwan/authcore/pkg/httpx"
	"github.com/aussiebroadwan/authcore/pkg/slogx"
)

const (
	// BuildVersion should be set at build time via ldflags.
	BuildVersion = "v0.1.0"
)

// Application owns the store, the token codecs and the services built on
// them. Configuration is fixed once New returns.
type Application struct {
	cfg    Config
	logger *slog.Logger
	now    func() time.Time

	// Core dependencies
	db     store.Store
	codec  *service.PayloadCodec
	google *oauth.GoogleClient

	// Services
	settingService *service.SettingService
	credentials    *service.CredentialManager
	attempts       *service.AttemptPolicy
	authService    *service.AuthService
}

// Option adjusts an Application before its services are built.
type Option func(*Application)

// WithLogger replaces the logger built from Config.
func WithLogger(logger *slog.Logger) Option {
	return func(app *Application) { app.logger = logger }
}

// WithClock replaces time.Now for every component.
func WithClock(now func() time.Time) Option {
	return func(app *Application) { app.now = now }
}

// New validates cfg and wires the application.
func New(cfg Config, opts ...Option) (*Application, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	app := &Application{cfg: cfg, now: time.Now}
	for _, opt := range opts {
		opt(app)
	}
	if app.logger == nil {
		app.logger = slogx.New(slogx.Config{
			Service: "authcore",
			Version: BuildVersion,
			Env:     cfg.Env,
			Level:   cfg.LogLevel,
			Format:  cfg.LogFormat,
		})
	}

	if err := initSentry(cfg.SentryDSN, cfg.Env); err != nil {
		return nil, fmt.Errorf("failed to initialize sentry: %w", err)
	}

	if err := app.initDatabase(); err != nil {
		return nil, err
	}

	codec, err := InitPayloadCodec(cfg, app.now, app.logger)
	if err != nil {
		_ = app.db.Close()
		return nil, fmt.Errorf("failed to initialize token codecs: %w", err)
	}
	app.codec = codec

	if err := app.initServices(); err != nil {
		_ = app.db.Close()
		return nil, err
	}

	return app, nil
}

// Close releases the store and flushes pending error reports.
func (app *Application) Close() error {
	if app.cfg.SentryDSN != "" {
		flushSentry()
	}

	if err := app.db.Close(); err != nil {
		app.logger.Error("error closing database", "error", err)
		return err
	}
	return nil
}

// initDatabase opens the configured store and applies migrations
func (app *Application) initDatabase() error {
	var (
		db  store.Store
		err error
	)

	switch app.cfg.DatabaseDriver {
	case DriverPostgres:
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		db, err = postgres.NewStore(ctx, app.cfg.DatabaseURL)
	default:
		db, err = sqlite.NewStore(sqlite.FileDSN(app.cfg.DatabaseFile))
	}
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	app.db = db

	if err := db.ApplyMigrations(); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to apply database migrations: %w", err)
	}

	app.logger.Info("database migrations applied successfully", "driver", app.cfg.DatabaseDriver)
	return nil
}

// initServices builds the credential, policy and facade services
func (app *Application) initServices() error {
	credentials, err := service.NewCredentialManager(service.CredentialConfig{
		Scheme:      app.cfg.Password.Scheme,
		SaltLength:  app.cfg.Password.SaltLength,
		ExpiredIn:   app.cfg.Password.ExpiredIn,
		Concurrency: app.cfg.Password.Concurrency,
		Now:         app.now,
	})
	if err != nil {
		return err
	}
	app.credentials = credentials

	app.settingService = &service.SettingService{Settings: app.db.Settings()}
	app.attempts = &service.AttemptPolicy{
		Settings:   app.settingService,
		Enabled:    app.cfg.Password.Attempt,
		MaxAttempt: app.cfg.Password.MaxAttempt,
	}

	var google service.OAuthIntrospector
	if app.cfg.GoogleClientID != "" {
		app.google = oauth.NewGoogleClient(oauth.GoogleConfig{
			ClientID:     app.cfg.GoogleClientID,
			ClientSecret: app.cfg.GoogleClientSecret,
		})
		google = app.google
		app.logger.Info("google login enabled")
	}

	app.authService, err = service.NewAuthService(service.AuthConfig{
		Codec:               app.codec,
		Credentials:         app.credentials,
		Attempts:            app.attempts,
		Accounts:            app.db.Accounts(),
		Google:              google,
		Auditor:             SentryAuditor{Next: service.LogAuditor{}},
		PrefixAuthorization: app.cfg.PrefixAuthorization,
		Issuer:              app.cfg.Issuer,
		Audience:            app.cfg.Audience,
		Subject:             app.cfg.Subject,
		Now:                 app.now,
	})
	return err
}

func (app *Application) Config() Config                          { return app.cfg }
func (app *Application) Logger() *slog.Logger                    { return app.logger }
func (app *Application) Store() store.Store                      { return app.db }
func (app *Application) Auth() *service.AuthService              { return app.authService }
func (app *Application) Settings() *service.SettingService       { return app.settingService }
func (app *Application) Credentials() *service.CredentialManager { return app.credentials }

// Middleware for services that embed the engine behind HTTP.

// Authn validates access tokens and puts the payload in the request context.
func (app *Application) Authn() httpx.Middleware {
	return httpx.AuthnMiddleware[domain.LoginPayload](app.cfg.PrefixAuthorization, app.authService.ValidateAccessToken)
}

// PasswordRateLimit throttles password endpoints by IP and login field.
func (app *Application) PasswordRateLimit(field string) httpx.Middleware {
	return httpx.RateLimitByIPAndFormField(httpx.RateLimitFromEnv("PASSWORD", httpx.PasswordLimit), field)
}

// RefreshRateLimit throttles token refresh by IP.
func (app *Application) RefreshRateLimit() httpx.Middleware {
	return httpx.RateLimitByIP(httpx.RateLimitFromEnv("REFRESH", httpx.RefreshLimit))
}

// IntrospectRateLimit throttles validation endpoints by principal.
func (app *Application) IntrospectRateLimit() httpx.Middleware {
	return httpx.RateLimitByPrincipal(httpx.RateLimitFromEnv("INTROSPECT", httpx.IntrospectLimit))
}

// RequestLogging tags each request with an id and a scoped logger.
func (app *Application) RequestLogging() httpx.Middleware {
	return slogx.HTTPMiddleware(app.logger)
}
