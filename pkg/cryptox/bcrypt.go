package cryptox

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/crypto/bcrypt"
	"golang.org/x/crypto/blowfish"
)

// Bcrypt layout: "$2a$" + 2-digit cost + "$" + 22 salt chars + 31 hash chars.
const (
	bcryptSaltBytes   = 16
	bcryptSaltChars   = 22
	bcryptHashBytes   = 23 // C implementations only encode 23 of the 24 bytes
	bcryptPrefixChars = 7  // "$2a$08$"
	bcryptMaxPassword = 72
)

// "OrpheanBeholderScryDoubt"
var bcryptMagic = []byte{
	0x4f, 0x72, 0x70, 0x68, 0x65, 0x61, 0x6e, 0x42,
	0x65, 0x68, 0x6f, 0x6c, 0x64, 0x65, 0x72, 0x53,
	0x63, 0x72, 0x79, 0x44, 0x6f, 0x75, 0x62, 0x74,
}

var bcryptEncoding = base64.NewEncoding("./ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789").
	WithPadding(base64.NoPadding)

var ErrBcryptSalt = errors.New("cryptox: invalid bcrypt salt")

// BcryptHasher produces standard $2a$ hashes whose salt is the first 29
// characters of the hash, so any bcrypt implementation can verify them.
type BcryptHasher struct {
	Cost int
}

// Salt returns "$2a$CC$" followed by 16 random bytes in bcrypt base64.
func (h BcryptHasher) Salt() (string, error) {
	if h.Cost < bcrypt.MinCost || h.Cost > bcrypt.MaxCost {
		return "", fmt.Errorf("%w: cost %d out of range", ErrBcryptSalt, h.Cost)
	}

	raw := make([]byte, bcryptSaltBytes)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("cryptox: failed to generate salt: %w", err)
	}
	return fmt.Sprintf("$2a$%02d$%s", h.Cost, bcryptEncoding.EncodeToString(raw)), nil
}

// Hash computes bcrypt(password) under the given salt prefix. The cost is
// taken from the salt, not from h.
func (h BcryptHasher) Hash(password, salt string) (string, error) {
	if len(password) > bcryptMaxPassword {
		return "", bcrypt.ErrPasswordTooLong
	}

	cost, rawSalt, err := parseBcryptSalt(salt)
	if err != nil {
		return "", err
	}

	c, err := bcryptSetup([]byte(password), rawSalt, cost)
	if err != nil {
		return "", err
	}

	data := make([]byte, len(bcryptMagic))
	copy(data, bcryptMagic)
	for i := 0; i < len(data); i += 8 {
		for range 64 {
			c.Encrypt(data[i:i+8], data[i:i+8])
		}
	}

	return salt[:bcryptPrefixChars+bcryptSaltChars] + bcryptEncoding.EncodeToString(data[:bcryptHashBytes]), nil
}

// parseBcryptSalt accepts "$2a$CC$<22 chars>" (a full hash works too, only
// the prefix is read).
func parseBcryptSalt(salt string) (int, []byte, error) {
	if len(salt) < bcryptPrefixChars+bcryptSaltChars {
		return 0, nil, ErrBcryptSalt
	}
	if salt[0] != '$' || salt[1] != '2' || salt[3] != '$' || salt[6] != '$' {
		return 0, nil, ErrBcryptSalt
	}
	switch salt[2] {
	case 'a', 'b', 'y':
	default:
		return 0, nil, ErrBcryptSalt
	}

	cost, err := strconv.Atoi(salt[4:6])
	if err != nil || cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		return 0, nil, ErrBcryptSalt
	}

	// 22 chars carry 132 bits; the spare low bits of the last char are ignored
	// by every bcrypt implementation, so decode leniently.
	encoded := salt[bcryptPrefixChars : bcryptPrefixChars+bcryptSaltChars]
	raw, err := bcryptEncoding.DecodeString(encoded)
	if err != nil || len(raw) < bcryptSaltBytes {
		return 0, nil, ErrBcryptSalt
	}
	return cost, raw[:bcryptSaltBytes], nil
}

// bcryptSetup is the EksBlowfishSetup step: 2^cost rounds of key expansion.
func bcryptSetup(password, salt []byte, cost int) (*blowfish.Cipher, error) {
	// C implementations include the trailing NUL in the key.
	key := append(password[:len(password):len(password)], 0)

	c, err := blowfish.NewSaltedCipher(key, salt)
	if err != nil {
		return nil, fmt.Errorf("cryptox: blowfish setup: %w", err)
	}

	rounds := uint64(1) << uint(cost)
	for range rounds {
		blowfish.ExpandKey(key, c)
		blowfish.ExpandKey(salt, c)
	}
	return c, nil
}

func isBcryptHash(s string) bool {
	return strings.HasPrefix(s, "$2a$") || strings.HasPrefix(s, "$2b$") || strings.HasPrefix(s, "$2y$")
}
