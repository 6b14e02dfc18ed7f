package store

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"errors"
	"fmt"

	"golang.org/x/crypto/scrypt"
)

// scrypt parameters for deriving the sealing key from the configured
// passphrase. OWASP-recommended minimums, matching what the rest of the
// industry ships for at-rest secrets.
const (
	scryptN      = 32768
	scryptR      = 8
	scryptP      = 1
	scryptKeyLen = 32
	saltLen      = 32
)

// ErrSealedCorrupted is returned when a sealed blob fails authentication or
// is structurally damaged.
var ErrSealedCorrupted = errors.New("store: sealed value corrupted or wrong passphrase")

// seal encrypts plaintext with AES-256-GCM under a key derived from the
// passphrase. Output layout: salt || nonce || ciphertext.
func seal(passphrase string, plaintext []byte) ([]byte, error) {
	salt := make([]byte, saltLen)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("store: generate salt: %w", err)
	}

	gcm, err := deriveCipher(passphrase, salt)
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("store: generate nonce: %w", err)
	}

	out := make([]byte, 0, saltLen+len(nonce)+len(plaintext)+gcm.Overhead())
	out = append(out, salt...)
	out = append(out, nonce...)
	out = gcm.Seal(out, nonce, plaintext, nil)
	return out, nil
}

// open reverses seal. Authentication failure and structural damage both map
// to ErrSealedCorrupted.
func open(passphrase string, sealed []byte) ([]byte, error) {
	if len(sealed) < saltLen {
		return nil, ErrSealedCorrupted
	}
	salt, rest := sealed[:saltLen], sealed[saltLen:]

	gcm, err := deriveCipher(passphrase, salt)
	if err != nil {
		return nil, err
	}
	if len(rest) < gcm.NonceSize() {
		return nil, ErrSealedCorrupted
	}
	nonce, ciphertext := rest[:gcm.NonceSize()], rest[gcm.NonceSize():]

	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, ErrSealedCorrupted
	}
	return plaintext, nil
}

func deriveCipher(passphrase string, salt []byte) (cipher.AEAD, error) {
	key, err := scrypt.Key([]byte(passphrase), salt, scryptN, scryptR, scryptP, scryptKeyLen)
	if err != nil {
		return nil, fmt.Errorf("store: derive key: %w", err)
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("store: init cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("store: init gcm: %w", err)
	}
	return gcm, nil
}
