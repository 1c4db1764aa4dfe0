package cryptox

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
)

// IVSize is the AES block size; every IV must be exactly this long.
const IVSize = aes.BlockSize

var (
	// ErrDecryption covers every way a ciphertext can fail to open: bad
	// encoding, wrong block alignment, or padding that doesn't check out
	// (usually a key/iv mismatch). Callers can't tell them apart.
	ErrDecryption = errors.New("cryptox: decryption failed")

	ErrKeySize = errors.New("cryptox: key must be 16, 24 or 32 bytes")
	ErrIVSize  = errors.New("cryptox: iv must be 16 bytes")
)

// Cipher encrypts payload strings with AES-CBC under a fixed key and IV.
//
// Output is deterministic for a given plaintext. Two plaintexts sharing a
// block-aligned prefix share the matching ciphertext blocks, so callers should
// put something that varies per message near the front.
type Cipher struct {
	block cipher.Block
	iv    []byte
}

// NewCipher validates key and iv lengths and prepares the block cipher.
func NewCipher(key, iv []byte) (*Cipher, error) {
	switch len(key) {
	case 16, 24, 32:
	default:
		return nil, fmt.Errorf("%w: got %d", ErrKeySize, len(key))
	}
	if len(iv) != IVSize {
		return nil, fmt.Errorf("%w: got %d", ErrIVSize, len(iv))
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("cryptox: failed to create cipher: %w", err)
	}

	return &Cipher{block: block, iv: append([]byte(nil), iv...)}, nil
}

// Encrypt pads plaintext with PKCS#7, encrypts it and returns standard base64.
func (c *Cipher) Encrypt(plaintext string) (string, error) {
	padded := pkcs7Pad([]byte(plaintext), aes.BlockSize)
	out := make([]byte, len(padded))
	cipher.NewCBCEncrypter(c.block, c.iv).CryptBlocks(out, padded)
	return base64.StdEncoding.EncodeToString(out), nil
}

// Decrypt reverses Encrypt. Any failure is reported as ErrDecryption.
func (c *Cipher) Decrypt(ciphertext string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return "", ErrDecryption
	}
	if len(raw) == 0 || len(raw)%aes.BlockSize != 0 {
		return "", ErrDecryption
	}

	out := make([]byte, len(raw))
	cipher.NewCBCDecrypter(c.block, c.iv).CryptBlocks(out, raw)

	plain, ok := pkcs7Unpad(out, aes.BlockSize)
	if !ok {
		return "", ErrDecryption
	}
	return string(plain), nil
}

func pkcs7Pad(b []byte, size int) []byte {
	n := size - len(b)%size
	out := make([]byte, len(b), len(b)+n)
	copy(out, b)
	for range n {
		out = append(out, byte(n))
	}
	return out
}

// pkcs7Unpad inspects the whole final block regardless of where the padding
// check first fails.
func pkcs7Unpad(b []byte, size int) ([]byte, bool) {
	n := int(b[len(b)-1])
	good := subtle.ConstantTimeLessOrEq(1, n) & subtle.ConstantTimeLessOrEq(n, size)

	last := b[len(b)-size:]
	for i := range size {
		inPad := subtle.ConstantTimeLessOrEq(size-i, n)
		match := subtle.ConstantTimeByteEq(last[i], byte(n))
		good &= subtle.ConstantTimeSelect(inPad, match, 1)
	}

	if good != 1 {
		return nil, false
	}
	return b[:len(b)-n], true
}
