package cryptox_test

import (
	"encoding/base64"
	"strings"
	"testing"

	"github.com/aussiebroadwan/authcore/pkg/cryptox"
	"github.com/stretchr/testify/require"
)

const (
	testKey = "0123456789abcdef0123456789abcdef"
	testIV  = "abcdef9876543210"
)

func newTestCipher(t *testing.T, key, iv string) *cryptox.Cipher {
	t.Helper()
	c, err := cryptox.NewCipher([]byte(key), []byte(iv))
	require.NoError(t, err)
	return c
}

func TestNewCipher_KeyAndIVLengths(t *testing.T) {
	tests := []struct {
		name    string
		key     string
		iv      string
		wantErr error
	}{
		{"aes-128", testKey[:16], testIV, nil},
		{"aes-192", testKey[:24], testIV, nil},
		{"aes-256", testKey, testIV, nil},
		{"short key", "AKeyForTestingPurposes", testIV, cryptox.ErrKeySize},
		{"empty key", "", testIV, cryptox.ErrKeySize},
		{"short iv", testKey, "AnIv", cryptox.ErrIVSize},
		{"long iv", testKey, "AnIvForTestingPurposes", cryptox.ErrIVSize},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := cryptox.NewCipher([]byte(tt.key), []byte(tt.iv))
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				require.Nil(t, c)
				return
			}
			require.NoError(t, err)
			require.NotNil(t, c)
		})
	}
}

func TestCipher_RoundTrip(t *testing.T) {
	c := newTestCipher(t, testKey, testIV)

	for _, plaintext := range []string{
		"",
		"a",
		"exactly-16-bytes",
		`{"loginDate":"2024-01-01T00:00:00Z","user":{"_id":"123456"}}`,
		strings.Repeat("x", 1000),
		"юникод 🔒",
	} {
		ct, err := c.Encrypt(plaintext)
		require.NoError(t, err)
		require.NotEqual(t, plaintext, ct)

		raw, err := base64.StdEncoding.DecodeString(ct)
		require.NoError(t, err)
		require.Zero(t, len(raw)%16, "ciphertext must be block aligned")

		pt, err := c.Decrypt(ct)
		require.NoError(t, err)
		require.Equal(t, plaintext, pt)
	}
}

func TestCipher_Deterministic(t *testing.T) {
	c := newTestCipher(t, testKey, testIV)

	a, err := c.Encrypt("same payload")
	require.NoError(t, err)
	b, err := c.Encrypt("same payload")
	require.NoError(t, err)
	require.Equal(t, a, b)

	other, err := c.Encrypt("same payloae")
	require.NoError(t, err)
	require.NotEqual(t, a, other)
}

func TestCipher_DivergesFromFirstDifferingBlock(t *testing.T) {
	// Chaining carries a difference in one block into every later block.
	// Blocks before it repeat, which is the cost of a fixed IV.
	c := newTestCipher(t, testKey, testIV)
	tail := strings.Repeat("t", 64)

	a, err := c.Encrypt("2024-01-01T00:00:00.000000001Z" + tail)
	require.NoError(t, err)
	b, err := c.Encrypt("2024-01-01T00:00:00.000000002Z" + tail)
	require.NoError(t, err)

	rawA, _ := base64.StdEncoding.DecodeString(a)
	rawB, _ := base64.StdEncoding.DecodeString(b)
	require.Equal(t, rawA[:16], rawB[:16])
	for i := 16; i < len(rawA); i += 16 {
		require.NotEqual(t, rawA[i:i+16], rawB[i:i+16], "block %d repeated", i/16)
	}
}

func TestCipher_DecryptFailures(t *testing.T) {
	c := newTestCipher(t, testKey, testIV)
	good, err := c.Encrypt("payload that spans more than one block")
	require.NoError(t, err)

	raw, _ := base64.StdEncoding.DecodeString(good)
	truncated := base64.StdEncoding.EncodeToString(raw[:len(raw)-3])

	tests := []struct {
		name       string
		ciphertext string
		cipher     *cryptox.Cipher
	}{
		{"not base64", "%%%not-base64%%%", c},
		{"empty", "", c},
		{"unaligned", truncated, c},
		{"plain json", `{"user":{"_id":"1"}}`, c},
		{"wrong key", good, newTestCipher(t, "fedcba9876543210fedcba9876543210", testIV)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pt, err := tt.cipher.Decrypt(tt.ciphertext)
			// A wrong key can occasionally produce valid-looking padding; it
			// must then at least not return the original plaintext.
			if err == nil {
				require.NotEqual(t, "payload that spans more than one block", pt)
				return
			}
			require.ErrorIs(t, err, cryptox.ErrDecryption)
		})
	}
}

func TestCipher_CorruptPadding(t *testing.T) {
	c := newTestCipher(t, testKey, testIV)

	// 27 bytes -> two blocks with five 0x05 padding bytes.
	ct, err := c.Encrypt("payload longer than sixteen")
	require.NoError(t, err)

	// In CBC the last byte of block one XORs straight into the final padding
	// byte, so 0x05 becomes 0xfa.
	raw, _ := base64.StdEncoding.DecodeString(ct)
	require.Len(t, raw, 32)
	raw[15] ^= 0xff

	_, err = c.Decrypt(base64.StdEncoding.EncodeToString(raw))
	require.ErrorIs(t, err, cryptox.ErrDecryption)
}
