package app

import (
	"errors"
	"fmt"
	"os"
	"runtime"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/aussiebroadwan/authcore/internal/auth/service"
	"github.com/aussiebroadwan/authcore/pkg/cryptox"
	"github.com/joho/godotenv"
	"golang.org/x/crypto/bcrypt"
)

const (
	AlgorithmHS256 = "HS256"
	AlgorithmEdDSA = "EdDSA"

	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

var ErrInvalidConfig = errors.New("app: invalid config")

// TokenConfig holds the keys and lifetimes of one token kind.
type TokenConfig struct {
	SecretKey      string        // HS256 shared secret
	PrivateKeyFile string        // EdDSA PKCS#8 PEM file
	Expired        time.Duration // Lifetime (exp - iat)
	NotBefore      time.Duration // nbf - iat
	EncryptKey     string        // AES key for payload encryption (16, 24 or 32 bytes)
	EncryptIV      string        // AES IV for payload encryption (16 bytes)
}

type PasswordConfig struct {
	Attempt     bool          // Fallback when the passwordAttempt setting is missing
	MaxAttempt  int           // Fallback when the maxPasswordAttempt setting is missing
	SaltLength  int           // bcrypt cost
	ExpiredIn   time.Duration // Password lifetime
	Scheme      string        // bcrypt or argon2id for new hashes
	Concurrency int           // Simultaneous hash computations
}

type Config struct {
	Algorithm    string // HS256 or EdDSA (default: HS256)
	AccessToken  TokenConfig
	RefreshToken TokenConfig

	Subject  string
	Audience []string
	Issuer   string

	PayloadEncryption   bool
	PrefixAuthorization string

	Password PasswordConfig

	DatabaseDriver string // sqlite or postgres (default: sqlite)
	DatabaseFile   string // SQLite file (default: auth.db)
	DatabaseURL    string // Postgres URL

	GoogleClientID     string
	GoogleClientSecret string

	SentryDSN string // Optional: error reporting is off when empty

	Env       string // Environment (dev, staging, prod) (default: dev)
	LogLevel  string // Log level (debug, info, warn, error) (default: info)
	LogFormat string // Log format (json, text) (default: json)
}

// LoadConfig reads the environment, after loading .env if one exists.
func LoadConfig() Config {
	_ = godotenv.Load()

	return Config{
		Algorithm: getEnvOrDefault("AUTH_JWT_ALGORITHM", AlgorithmHS256),
		AccessToken: TokenConfig{
			SecretKey:      getEnvOrDefault("AUTH_JWT_ACCESS_TOKEN_SECRET_KEY", "123456"),
			PrivateKeyFile: os.Getenv("AUTH_JWT_ACCESS_TOKEN_PRIVATE_KEY_FILE"),
			Expired:        getEnvDurationOrDefault("AUTH_JWT_ACCESS_TOKEN_EXPIRED", time.Hour),
			NotBefore:      getEnvDurationOrDefault("AUTH_JWT_ACCESS_TOKEN_NOT_BEFORE", 0),
			EncryptKey:     os.Getenv("AUTH_JWT_PAYLOAD_ACCESS_TOKEN_ENCRYPT_KEY"),
			EncryptIV:      os.Getenv("AUTH_JWT_PAYLOAD_ACCESS_TOKEN_ENCRYPT_IV"),
		},
		RefreshToken: TokenConfig{
			SecretKey:      getEnvOrDefault("AUTH_JWT_REFRESH_TOKEN_SECRET_KEY", "123456000"),
			PrivateKeyFile: os.Getenv("AUTH_JWT_REFRESH_TOKEN_PRIVATE_KEY_FILE"),
			Expired:        getEnvDurationOrDefault("AUTH_JWT_REFRESH_TOKEN_EXPIRED", 14*24*time.Hour),
			NotBefore:      getEnvDurationOrDefault("AUTH_JWT_REFRESH_TOKEN_NOT_BEFORE", 0),
			EncryptKey:     os.Getenv("AUTH_JWT_PAYLOAD_REFRESH_TOKEN_ENCRYPT_KEY"),
			EncryptIV:      os.Getenv("AUTH_JWT_PAYLOAD_REFRESH_TOKEN_ENCRYPT_IV"),
		},
		Subject:             getEnvOrDefault("AUTH_JWT_SUBJECT", "ackDevelopment"),
		Audience:            getEnvListOrDefault("AUTH_JWT_AUDIENCE", []string{"https://example.com"}),
		Issuer:              getEnvOrDefault("AUTH_JWT_ISSUER", "ack"),
		PayloadEncryption:   getEnvBoolOrDefault("AUTH_JWT_PAYLOAD_ENCRYPT", false),
		PrefixAuthorization: getEnvOrDefault("AUTH_PREFIX_AUTHORIZATION", "Bearer"),
		Password: PasswordConfig{
			Attempt:     getEnvBoolOrDefault("AUTH_PASSWORD_ATTEMPT", false),
			MaxAttempt:  getEnvIntOrDefault("AUTH_PASSWORD_MAX_ATTEMPT", service.DefaultMaxAttempt),
			SaltLength:  getEnvIntOrDefault("AUTH_PASSWORD_SALT_LENGTH", service.DefaultSaltLength),
			ExpiredIn:   getEnvDurationOrDefault("AUTH_PASSWORD_EXPIRED_IN", service.DefaultExpiredIn),
			Scheme:      getEnvOrDefault("AUTH_PASSWORD_SCHEME", service.SchemeBcrypt),
			Concurrency: getEnvIntOrDefault("AUTH_HASH_CONCURRENCY", runtime.GOMAXPROCS(0)),
		},
		DatabaseDriver:     getEnvOrDefault("AUTH_DATABASE_DRIVER", DriverSQLite),
		DatabaseFile:       getEnvOrDefault("AUTH_DATABASE_FILE", "auth.db"),
		DatabaseURL:        os.Getenv("DATABASE_URL"),
		GoogleClientID:     os.Getenv("GOOGLE_CLIENT_ID"),
		GoogleClientSecret: os.Getenv("GOOGLE_CLIENT_SECRET"),
		SentryDSN:          os.Getenv("SENTRY_DSN"),
		Env:                getEnvOrDefault("ENV", "dev"),
		LogLevel:           getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:          getEnvOrDefault("LOG_FORMAT", "json"),
	}
}

// Validate reports every problem at once. It runs before anything is built,
// so a bad key or IV fails startup rather than the first request.
func (c Config) Validate() error {
	var errs []error
	fail := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf("%w: "+format, append([]any{ErrInvalidConfig}, args...)...))
	}

	switch c.Algorithm {
	case AlgorithmHS256:
		if c.AccessToken.SecretKey == "" || c.RefreshToken.SecretKey == "" {
			fail("access and refresh secret keys are required")
		} else if c.AccessToken.SecretKey == c.RefreshToken.SecretKey {
			fail("access and refresh secret keys must differ")
		}
	case AlgorithmEdDSA:
		if c.AccessToken.PrivateKeyFile == "" || c.RefreshToken.PrivateKeyFile == "" {
			fail("access and refresh private key files are required")
		} else if c.AccessToken.PrivateKeyFile == c.RefreshToken.PrivateKeyFile {
			fail("access and refresh private key files must differ")
		}
	default:
		fail("unknown algorithm %q", c.Algorithm)
	}

	for name, tc := range map[string]TokenConfig{"access": c.AccessToken, "refresh": c.RefreshToken} {
		if tc.Expired <= 0 {
			fail("%s token expiry must be positive", name)
		}
		if tc.NotBefore < 0 {
			fail("%s token not-before must not be negative", name)
		}
		if c.PayloadEncryption {
			if _, err := cryptox.NewCipher([]byte(tc.EncryptKey), []byte(tc.EncryptIV)); err != nil {
				fail("%s payload cipher: %v", name, err)
			}
		}
	}

	// An empty expected value would switch the matching claim check off.
	if strings.TrimSpace(c.Subject) == "" {
		fail("subject is required")
	}
	if strings.TrimSpace(c.Issuer) == "" {
		fail("issuer is required")
	}
	if len(c.Audience) == 0 || slices.ContainsFunc(c.Audience, func(a string) bool { return strings.TrimSpace(a) == "" }) {
		fail("audience needs at least one non-empty entry")
	}

	if c.PrefixAuthorization == "" || strings.ContainsAny(c.PrefixAuthorization, " \t") {
		fail("authorization prefix must be a single word")
	}

	if c.Password.SaltLength < bcrypt.MinCost || c.Password.SaltLength > bcrypt.MaxCost {
		fail("password salt length %d outside [%d, %d]", c.Password.SaltLength, bcrypt.MinCost, bcrypt.MaxCost)
	}
	if c.Password.ExpiredIn <= 0 {
		fail("password expiry must be positive")
	}
	if c.Password.MaxAttempt <= 0 {
		fail("password max attempt must be positive")
	}
	if c.Password.Scheme != service.SchemeBcrypt && c.Password.Scheme != service.SchemeArgon2id {
		fail("unknown password scheme %q", c.Password.Scheme)
	}

	switch c.DatabaseDriver {
	case DriverSQLite:
		if c.DatabaseFile == "" {
			fail("sqlite needs AUTH_DATABASE_FILE")
		}
	case DriverPostgres:
		if c.DatabaseURL == "" {
			fail("postgres needs DATABASE_URL")
		}
	default:
		fail("unknown database driver %q", c.DatabaseDriver)
	}

	return errors.Join(errs...)
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if intValue, err := strconv.Atoi(value); err == nil {
		return intValue
	}

	return defaultValue
}

func getEnvBoolOrDefault(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if b, err := strconv.ParseBool(value); err == nil {
		return b
	}

	return defaultValue
}

func getEnvListOrDefault(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	var out []string
	for _, v := range strings.Split(value, ",") {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if d, err := parseDuration(value); err == nil {
		return d
	}

	return defaultValue
}

// parseDuration accepts Go durations ("1h", "90s"), whole days ("14d") and
// bare integers as seconds.
func parseDuration(value string) (time.Duration, error) {
	if days, ok := strings.CutSuffix(value, "d"); ok {
		n, err := strconv.Atoi(days)
		if err != nil {
			return 0, fmt.Errorf("invalid day count %q", value)
		}
		return time.Duration(n) * 24 * time.Hour, nil
	}

	if d, err := time.ParseDuration(value); err == nil {
		return d, nil
	}

	secs, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q", value)
	}
	return time.Duration(secs) * time.Second, nil
}
