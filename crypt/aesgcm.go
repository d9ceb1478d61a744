package crypt

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
)

const (
	// KeySize is the required key length (AES-256).
	KeySize = 32
	// DefaultTypeID is the envelope type byte used when none is configured.
	DefaultTypeID byte = 1

	nonceSize  = 12
	tagSize    = 16
	headerSize = 1 + nonceSize + tagSize
)

var (
	// ErrInvalidInput is returned when a value or envelope argument is empty.
	ErrInvalidInput = errors.New("encryption input must not be empty")
	// ErrInvalidKey is returned by [New] for keys that are not 32 bytes.
	ErrInvalidKey = errors.New("encryption key must be 32 bytes")
	// ErrAuthenticationFailed reports a GCM tag mismatch: the envelope was
	// tampered with or sealed under a different key. This is a hard
	// cryptographic failure, distinct from the nil result for foreign or
	// malformed envelopes.
	ErrAuthenticationFailed = errors.New("envelope authentication failed")
)

// Cipher defines a public type used by credcore APIs.
//
// Cipher instances are intended to be configured during initialization and
// then treated as immutable; all methods are safe for concurrent use.
type Cipher struct {
	typeID byte
	aead   cipher.AEAD
}

// New builds a Cipher over AES-256-GCM keyed by a 32-byte secret. The
// typeID byte is written into every envelope and checked on decryption.
func New(key []byte, typeID byte) (*Cipher, error) {
	if len(key) != KeySize {
		return nil, ErrInvalidKey
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}

	return &Cipher{typeID: typeID, aead: aead}, nil
}

// Encrypt seals value under a fresh random nonce and returns the base64
// envelope. An empty value fails with [ErrInvalidInput].
func (c *Cipher) Encrypt(value string) (string, error) {
	if value == "" {
		return "", ErrInvalidInput
	}

	nonce := make([]byte, nonceSize)
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", err
	}

	// Seal appends the 16-byte tag to the ciphertext; the envelope layout
	// carries the tag up front, so split it back out.
	sealed := c.aead.Seal(nil, nonce, []byte(value), nil)
	ciphertext := sealed[:len(sealed)-tagSize]
	tag := sealed[len(sealed)-tagSize:]

	envelope := make([]byte, 0, headerSize+len(ciphertext))
	envelope = append(envelope, c.typeID)
	envelope = append(envelope, nonce...)
	envelope = append(envelope, tag...)
	envelope = append(envelope, ciphertext...)

	return base64.StdEncoding.EncodeToString(envelope), nil
}

// Decrypt opens an envelope and returns the plaintext. A foreign type byte
// or inconsistent length yields (nil, nil); a failed tag check yields
// [ErrAuthenticationFailed]. Empty envelopes fail with [ErrInvalidInput].
func (c *Cipher) Decrypt(envelope string) ([]byte, error) {
	if envelope == "" {
		return nil, ErrInvalidInput
	}

	raw, err := base64.StdEncoding.DecodeString(envelope)
	if err != nil {
		return nil, fmt.Errorf("decode envelope: %w", err)
	}
	if len(raw) < headerSize {
		return nil, nil
	}
	if raw[0] != c.typeID {
		return nil, nil
	}

	nonce := raw[1 : 1+nonceSize]
	tag := raw[1+nonceSize : headerSize]
	ciphertext := raw[headerSize:]

	sealed := make([]byte, 0, len(ciphertext)+tagSize)
	sealed = append(sealed, ciphertext...)
	sealed = append(sealed, tag...)

	plaintext, err := c.aead.Open(nil, nonce, sealed, nil)
	if err != nil {
		return nil, ErrAuthenticationFailed
	}
	return plaintext, nil
}

// Compare decrypts envelope and reports whether the plaintext equals value
// using a constant-time comparison. Any decryption failure, including a nil
// foreign-envelope result, compares as false.
func (c *Cipher) Compare(envelope, value string) bool {
	plaintext, err := c.Decrypt(envelope)
	if err != nil || plaintext == nil {
		return false
	}
	return subtle.ConstantTimeCompare(plaintext, []byte(value)) == 1
}
