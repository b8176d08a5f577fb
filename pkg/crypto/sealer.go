// Package crypto seals short secrets such as gate codes with AES-256-GCM.
package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"
)

const (
	keySize = 32
	tagSize = 16
)

var (
	ErrEmptySecret    = errors.New("encryption secret is required")
	ErrEmptyPlaintext = errors.New("plaintext is required")
	ErrDecrypt        = errors.New("unable to decrypt sealed value")
)

// Sealed is the stored form of an encrypted value. All fields are base64.
type Sealed struct {
	Ciphertext string
	IV         string
	AuthTag    string
}

// Sealer encrypts and decrypts values with a key derived from a shared secret.
type Sealer struct {
	aead cipher.AEAD
	rand io.Reader
}

// NewSealer derives a 256-bit key from secret with HKDF-SHA256. The info label
// separates keys derived from the same secret for different purposes.
func NewSealer(secret, info string) (*Sealer, error) {
	if secret == "" {
		return nil, ErrEmptySecret
	}
	key := make([]byte, keySize)
	if _, err := io.ReadFull(hkdf.New(sha256.New, []byte(secret), nil, []byte(info)), key); err != nil {
		return nil, fmt.Errorf("derive key: %w", err)
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("new cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("new gcm: %w", err)
	}
	return &Sealer{aead: aead, rand: rand.Reader}, nil
}

// Encrypt seals plaintext under a fresh random nonce.
func (s *Sealer) Encrypt(plaintext string) (Sealed, error) {
	if plaintext == "" {
		return Sealed{}, ErrEmptyPlaintext
	}
	nonce := make([]byte, s.aead.NonceSize())
	if _, err := io.ReadFull(s.rand, nonce); err != nil {
		return Sealed{}, fmt.Errorf("read nonce: %w", err)
	}
	out := s.aead.Seal(nil, nonce, []byte(plaintext), nil)
	ct, tag := out[:len(out)-tagSize], out[len(out)-tagSize:]
	return Sealed{
		Ciphertext: base64.StdEncoding.EncodeToString(ct),
		IV:         base64.StdEncoding.EncodeToString(nonce),
		AuthTag:    base64.StdEncoding.EncodeToString(tag),
	}, nil
}

// Decrypt opens a sealed value. Any malformed or tampered input yields ErrDecrypt.
func (s *Sealer) Decrypt(sealed Sealed) (string, error) {
	ct, err := base64.StdEncoding.DecodeString(sealed.Ciphertext)
	if err != nil {
		return "", fmt.Errorf("%w: ciphertext: %v", ErrDecrypt, err)
	}
	nonce, err := base64.StdEncoding.DecodeString(sealed.IV)
	if err != nil || len(nonce) != s.aead.NonceSize() {
		return "", fmt.Errorf("%w: iv", ErrDecrypt)
	}
	tag, err := base64.StdEncoding.DecodeString(sealed.AuthTag)
	if err != nil || len(tag) != tagSize {
		return "", fmt.Errorf("%w: auth tag", ErrDecrypt)
	}
	plain, err := s.aead.Open(nil, nonce, append(ct, tag...), nil)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrDecrypt, err)
	}
	return string(plain), nil
}
