package token

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"io"
)

// DefaultLength is the number of random bytes used when no explicit
// length is requested.
const DefaultLength = 32

// ErrInvalidLength is returned when a negative token length is requested.
var ErrInvalidLength = errors.New("token length must not be negative")

// Generator defines a public type used by credcore APIs.
//
// Generator is stateless; the zero value is ready to use and safe for
// concurrent callers.
type Generator struct{}

// New returns a ready-to-use Generator.
func New() Generator {
	return Generator{}
}

// Generate returns length random bytes encoded with the standard base64
// alphabet. A zero length yields an empty string; a negative length fails
// with [ErrInvalidLength].
func (Generator) Generate(length int) (string, error) {
	raw, err := randomBytes(length)
	if err != nil || raw == nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(raw), nil
}

// GenerateURLSafe behaves like [Generator.Generate] but encodes with the
// unpadded URL-safe base64 alphabet.
func (Generator) GenerateURLSafe(length int) (string, error) {
	raw, err := randomBytes(length)
	if err != nil || raw == nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(raw), nil
}

// GenerateDefault returns a standard base64 token of [DefaultLength] bytes.
func (g Generator) GenerateDefault() (string, error) {
	return g.Generate(DefaultLength)
}

// GenerateURLSafeDefault returns a URL-safe token of [DefaultLength] bytes.
func (g Generator) GenerateURLSafeDefault() (string, error) {
	return g.GenerateURLSafe(DefaultLength)
}

func randomBytes(length int) ([]byte, error) {
	if length < 0 {
		return nil, ErrInvalidLength
	}
	if length == 0 {
		return nil, nil
	}

	buf := make([]byte, length)
	if _, err := io.ReadFull(rand.Reader, buf); err != nil {
		return nil, err
	}
	return buf, nil
}
