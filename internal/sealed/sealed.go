// Package sealed demonstrates carrying quantized embedding components in
// encrypted form. Each component is sealed on its own so that a consumer can
// address individual values. Key material lives in a Keys value that callers
// create and pass explicitly; the package holds no state.
package sealed

import (
	"crypto/cipher"
	"crypto/rand"
	"encoding/binary"
	"errors"
	"fmt"

	"golang.org/x/crypto/chacha20poly1305"
)

var (
	// ErrMalformed is returned for ciphertexts too short to carry a nonce.
	ErrMalformed = errors.New("malformed ciphertext")
	// ErrOpen is returned when authentication fails.
	ErrOpen = errors.New("ciphertext failed authentication")
)

// Ciphertext is nonce || sealed value.
type Ciphertext []byte

// Keys holds the symmetric key used for sealing and opening.
type Keys struct {
	aead cipher.AEAD
}

// NewKeys generates a fresh random key.
func NewKeys() (*Keys, error) {
	key := make([]byte, chacha20poly1305.KeySize)
	if _, err := rand.Read(key); err != nil {
		return nil, fmt.Errorf("generate key: %w", err)
	}
	return KeysFrom(key)
}

// KeysFrom builds Keys from an existing 32-byte key.
func KeysFrom(key []byte) (*Keys, error) {
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, fmt.Errorf("init cipher: %w", err)
	}
	return &Keys{aead: aead}, nil
}

// Seal encrypts every value under keys.
func Seal(keys *Keys, values []uint16) ([]Ciphertext, error) {
	out := make([]Ciphertext, len(values))
	for i, v := range values {
		nonce := make([]byte, keys.aead.NonceSize(), keys.aead.NonceSize()+2+keys.aead.Overhead())
		if _, err := rand.Read(nonce); err != nil {
			return nil, fmt.Errorf("nonce: %w", err)
		}
		var plain [2]byte
		binary.BigEndian.PutUint16(plain[:], v)
		out[i] = keys.aead.Seal(nonce, nonce, plain[:], nil)
	}
	return out, nil
}

// Open decrypts ciphertexts produced by Seal under the same keys.
func Open(keys *Keys, cts []Ciphertext) ([]uint16, error) {
	ns := keys.aead.NonceSize()
	out := make([]uint16, len(cts))
	for i, ct := range cts {
		if len(ct) < ns+keys.aead.Overhead() {
			return nil, fmt.Errorf("value %d: %w", i, ErrMalformed)
		}
		plain, err := keys.aead.Open(nil, ct[:ns], ct[ns:], nil)
		if err != nil || len(plain) != 2 {
			return nil, fmt.Errorf("value %d: %w", i, ErrOpen)
		}
		out[i] = binary.BigEndian.Uint16(plain)
	}
	return out, nil
}
