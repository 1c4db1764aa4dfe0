package cryptox

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/bcrypt"
)

// Argon2id parameters for newly created hashes. Existing hashes carry their
// own parameters and are verified with those.
const (
	memory      = 19 * 1024 // Memory usage in KiB (19 MiB)
	iterations  = 2
	parallelism = 1
	keyLength   = 32
	saltLength  = 16
)

var (
	ErrPasswordMismatch = errors.New("cryptox: password does not match")
	ErrHashFormat       = errors.New("cryptox: invalid hash format")
)

// Hasher is a salted one-way password hash. Salt output is always a prefix of
// the corresponding Hash output.
type Hasher interface {
	Salt() (string, error)
	Hash(password, salt string) (string, error)
}

// Argon2idHasher produces PHC-format hashes:
//
//	$argon2id$v=19$m=19456,t=2,p=1$<salt>$<hash>
type Argon2idHasher struct{}

// Salt returns the PHC prefix up to and including the encoded salt.
func (Argon2idHasher) Salt() (string, error) {
	salt := make([]byte, saltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("cryptox: failed to generate salt: %w", err)
	}
	return fmt.Sprintf(
		"$argon2id$v=19$m=%d,t=%d,p=%d$%s",
		memory,
		iterations,
		parallelism,
		base64.RawStdEncoding.EncodeToString(salt),
	), nil
}

func (Argon2idHasher) Hash(password, salt string) (string, error) {
	parts := strings.Split(salt, "$")
	if len(parts) != 5 {
		return "", fmt.Errorf("%w: expected argon2id salt prefix", ErrHashFormat)
	}

	p, err := parseArgon2Params(parts)
	if err != nil {
		return "", err
	}

	hash := argon2.IDKey([]byte(password), p.salt, p.iterations, p.memory, p.parallelism, keyLength)
	return salt + "$" + base64.RawStdEncoding.EncodeToString(hash), nil
}

// HashWithSalt hashes password under salt, picking the scheme from the salt
// prefix.
func HashWithSalt(password, salt string) (string, error) {
	switch {
	case isBcryptHash(salt):
		return BcryptHasher{}.Hash(password, salt)
	case strings.HasPrefix(salt, "$argon2id$"):
		return Argon2idHasher{}.Hash(password, salt)
	default:
		return "", fmt.Errorf("%w: unknown salt scheme", ErrHashFormat)
	}
}

// VerifyPassword checks password against a stored bcrypt ($2a$, $2b$, $2y$)
// or argon2id hash. Comparison is constant time in both schemes.
func VerifyPassword(password, encodedHash string) error {
	switch {
	case isBcryptHash(encodedHash):
		err := bcrypt.CompareHashAndPassword([]byte(encodedHash), []byte(password))
		switch {
		case err == nil:
			return nil
		case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword):
			return ErrPasswordMismatch
		default:
			return fmt.Errorf("%w: %w", ErrHashFormat, err)
		}

	case strings.HasPrefix(encodedHash, "$argon2id$"):
		return verifyArgon2id(password, encodedHash)

	default:
		return fmt.Errorf("%w: unknown scheme", ErrHashFormat)
	}
}

type argon2Params struct {
	memory      uint32
	iterations  uint32
	parallelism uint8
	salt        []byte
}

// parseArgon2Params reads ["", "argon2id", "v=19", "m=X,t=Y,p=Z", "salt", ...].
func parseArgon2Params(parts []string) (argon2Params, error) {
	var p argon2Params

	if parts[0] != "" || parts[1] != "argon2id" {
		return p, fmt.Errorf("%w: not argon2id", ErrHashFormat)
	}
	if parts[2] != "v=19" {
		return p, fmt.Errorf("%w: wrong version", ErrHashFormat)
	}

	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &p.memory, &p.iterations, &p.parallelism); err != nil {
		return p, fmt.Errorf("%w: failed to parse parameters: %w", ErrHashFormat, err)
	}
	if p.iterations == 0 || p.parallelism == 0 {
		return p, fmt.Errorf("%w: zero parameter", ErrHashFormat)
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil || len(salt) == 0 {
		return p, fmt.Errorf("%w: failed to decode salt", ErrHashFormat)
	}
	p.salt = salt

	return p, nil
}

func verifyArgon2id(password, encodedHash string) error {
	parts := strings.Split(encodedHash, "$")
	if len(parts) != 6 {
		return fmt.Errorf("%w: expected 6 parts", ErrHashFormat)
	}

	p, err := parseArgon2Params(parts)
	if err != nil {
		return err
	}

	expected, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil || len(expected) == 0 {
		return fmt.Errorf("%w: failed to decode hash", ErrHashFormat)
	}

	computed := argon2.IDKey(
		[]byte(password),
		p.salt,
		p.iterations,
		p.memory,
		p.parallelism,
		uint32(len(expected)), // #nosec G115 - decoded from a short base64 string
	)

	if subtle.ConstantTimeCompare(computed, expected) == 1 {
		return nil
	}
	return ErrPasswordMismatch
}

// Character classes for generated passwords.
const (
	lowerChars  = "abcdefghijkmnopqrstuvwxyz"
	upperChars  = "ABCDEFGHJKLMNPQRSTUVWXYZ"
	digitChars  = "23456789"
	symbolChars = "!@#$%^&*-_=+?"

	// GeneratedPasswordLength is the length of GeneratePassword output.
	GeneratedPasswordLength = 16
)

// GeneratePassword returns a random password with at least one character from
// each class (lower, upper, digit, symbol). Look-alike characters are left out
// since these end up being read off a screen.
func GeneratePassword() (string, error) {
	classes := []string{lowerChars, upperChars, digitChars, symbolChars}
	all := strings.Join(classes, "")

	password := make([]byte, 0, GeneratedPasswordLength)
	for _, class := range classes {
		c, err := randomChar(class)
		if err != nil {
			return "", err
		}
		password = append(password, c)
	}
	for len(password) < GeneratedPasswordLength {
		c, err := randomChar(all)
		if err != nil {
			return "", err
		}
		password = append(password, c)
	}

	// Fisher-Yates so the guaranteed classes don't sit at the front
	for i := len(password) - 1; i > 0; i-- {
		j, err := rand.Int(rand.Reader, big.NewInt(int64(i+1)))
		if err != nil {
			return "", fmt.Errorf("failed to generate random password: %w", err)
		}
		password[i], password[j.Int64()] = password[j.Int64()], password[i]
	}

	return string(password), nil
}

func randomChar(charset string) (byte, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(int64(len(charset))))
	if err != nil {
		return 0, fmt.Errorf("failed to generate random password: %w", err)
	}
	return charset[n.Int64()], nil
}
