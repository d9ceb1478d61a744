package password

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"hash"
	"io"

	"golang.org/x/crypto/pbkdf2"
)

const (
	minSaltSize   = 16
	minKeySize    = 16
	minIterations = 1000

	// CurrentVersion is the version byte written into freshly produced
	// envelopes.
	CurrentVersion byte = 2
)

var (
	// ErrInvalidInput is returned when a password or envelope argument is empty.
	ErrInvalidInput = errors.New("password input must not be empty")
	// ErrVersionUnregistered is returned by [NewWithVersions] when the current
	// version is missing from the supplied registry.
	ErrVersionUnregistered = errors.New("current version not present in registry")
)

// Status classifies the outcome of [Hasher.Verify].
type Status int

const (
	// StatusFail reports a well-formed envelope whose key does not match the
	// supplied password.
	StatusFail Status = iota
	// StatusSuccess reports a match against the current version.
	StatusSuccess
	// StatusSuccessRehashNeeded reports a match against a registered but
	// non-current version; the caller should re-hash and persist.
	StatusSuccessRehashNeeded
	// StatusVersionNotFound reports an unregistered version byte. This marks
	// either foreign data or a pending migration, never a wrong password.
	StatusVersionNotFound
	// StatusLengthMismatch reports an envelope whose decoded size does not
	// match its version's fixed layout. Treated as corruption.
	StatusLengthMismatch
)

func (s Status) String() string {
	switch s {
	case StatusSuccess:
		return "success"
	case StatusSuccessRehashNeeded:
		return "success_rehash_needed"
	case StatusVersionNotFound:
		return "version_not_found"
	case StatusLengthMismatch:
		return "length_mismatch"
	default:
		return "fail"
	}
}

// Ok reports whether the status represents a successful match.
func (s Status) Ok() bool {
	return s == StatusSuccess || s == StatusSuccessRehashNeeded
}

// Params is one registered derivation parameter set. The envelope stores
// only the version byte; everything else is resolved through the registry.
type Params struct {
	New        func() hash.Hash
	SaltSize   int
	KeySize    int
	Iterations int
}

func builtinVersions() map[byte]Params {
	return map[byte]Params{
		1: {New: sha256.New, SaltSize: 32, KeySize: 32, Iterations: 310_000},
		2: {New: sha256.New, SaltSize: 32, KeySize: 32, Iterations: 600_000},
	}
}

// Hasher defines a public type used by credcore APIs.
//
// Hasher instances are intended to be configured during initialization and
// then treated as immutable; all methods are safe for concurrent use.
type Hasher struct {
	current  byte
	versions map[byte]Params
}

// New returns a Hasher backed by the builtin version registry, producing
// [CurrentVersion] envelopes.
func New() *Hasher {
	h, err := NewWithVersions(CurrentVersion, builtinVersions())
	if err != nil {
		// The builtin registry always validates.
		panic(err)
	}
	return h
}

// NewWithVersions returns a Hasher over a caller-supplied version registry.
// Hosts migrating from older deployments register their legacy parameter
// sets here so stored envelopes keep verifying.
func NewWithVersions(current byte, versions map[byte]Params) (*Hasher, error) {
	if len(versions) == 0 {
		return nil, errors.New("version registry must not be empty")
	}
	for v, p := range versions {
		if p.New == nil {
			return nil, fmt.Errorf("version %d: hash constructor required", v)
		}
		if p.SaltSize < minSaltSize {
			return nil, fmt.Errorf("version %d: salt size must be >= %d", v, minSaltSize)
		}
		if p.KeySize < minKeySize {
			return nil, fmt.Errorf("version %d: key size must be >= %d", v, minKeySize)
		}
		if p.Iterations < minIterations {
			return nil, fmt.Errorf("version %d: iterations must be >= %d", v, minIterations)
		}
	}
	if _, ok := versions[current]; !ok {
		return nil, ErrVersionUnregistered
	}

	cloned := make(map[byte]Params, len(versions))
	for v, p := range versions {
		cloned[v] = p
	}

	return &Hasher{current: current, versions: cloned}, nil
}

// Hash derives a key from password under the current version's parameters
// and returns the base64 envelope. An empty password fails with
// [ErrInvalidInput].
func (h *Hasher) Hash(password string) (string, error) {
	// Password bytes are used exactly as provided (no Unicode normalization).
	if password == "" {
		return "", ErrInvalidInput
	}

	params := h.versions[h.current]

	salt := make([]byte, params.SaltSize)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return "", err
	}

	key := pbkdf2.Key([]byte(password), salt, params.Iterations, params.KeySize, params.New)

	envelope := make([]byte, 0, 1+params.SaltSize+params.KeySize)
	envelope = append(envelope, h.current)
	envelope = append(envelope, salt...)
	envelope = append(envelope, key...)

	return base64.StdEncoding.EncodeToString(envelope), nil
}

// Verify checks password against a stored envelope. Empty arguments fail
// with [ErrInvalidInput]; a malformed base64 envelope fails with the decode
// error. All other outcomes are reported through [Status] so callers can
// distinguish wrong passwords from unknown versions and corruption.
func (h *Hasher) Verify(envelope, password string) (Status, error) {
	if envelope == "" || password == "" {
		return StatusFail, ErrInvalidInput
	}

	raw, err := base64.StdEncoding.DecodeString(envelope)
	if err != nil {
		return StatusFail, fmt.Errorf("decode envelope: %w", err)
	}
	if len(raw) == 0 {
		return StatusFail, ErrInvalidInput
	}

	version := raw[0]
	params, ok := h.versions[version]
	if !ok {
		return StatusVersionNotFound, nil
	}
	if len(raw) != 1+params.SaltSize+params.KeySize {
		return StatusLengthMismatch, nil
	}

	salt := raw[1 : 1+params.SaltSize]
	stored := raw[1+params.SaltSize:]

	computed := pbkdf2.Key([]byte(password), salt, params.Iterations, params.KeySize, params.New)
	if subtle.ConstantTimeCompare(computed, stored) != 1 {
		return StatusFail, nil
	}

	if version != h.current {
		return StatusSuccessRehashNeeded, nil
	}
	return StatusSuccess, nil
}

// HashValue returns the base64 SHA-256 digest of value. Used for storing
// opaque secrets (refresh tokens, purpose tokens) so the plaintext is never
// at rest.
func HashValue(value string) string {
	sum := sha256.Sum256([]byte(value))
	return base64.StdEncoding.EncodeToString(sum[:])
}

// CompareHash reports whether digest matches HashValue(value) in constant
// time.
func CompareHash(digest, value string) bool {
	sum := sha256.Sum256([]byte(value))
	expected := base64.StdEncoding.EncodeToString(sum[:])
	return subtle.ConstantTimeCompare([]byte(digest), []byte(expected)) == 1
}
