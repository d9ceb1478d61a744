package jwt

import (
	"crypto/ed25519"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/credware/credcore/token"
)

// SigningMethod selects the access-token signature algorithm.
type SigningMethod string

const (
	// MethodEd25519 signs with EdDSA over Curve25519.
	MethodEd25519 SigningMethod = "ed25519"
	// MethodHS256 signs with HMAC-SHA256 using a shared secret.
	MethodHS256 SigningMethod = "hs256"
)

// DefaultRefreshLength is the byte length of minted refresh tokens.
const DefaultRefreshLength = 48

// Config defines a public type used by credcore APIs.
//
// Config instances are intended to be configured during initialization and
// then treated as immutable unless documented otherwise.
type Config struct {
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	RefreshLength int
	SigningMethod SigningMethod
	PrivateKey    []byte
	PublicKey     []byte
	Issuer        string
	Audience      string
	Leeway        time.Duration
	RequireIAT    bool
}

// AccessClaims is the credcore claim set: the subject identifies the user,
// roles and the email-verified flag ride along for authorization, and sid
// ties the token to its originating session record.
type AccessClaims struct {
	Roles         []string `json:"roles,omitempty"`
	EmailVerified bool     `json:"evd,omitempty"`
	SID           string   `json:"sid,omitempty"`
	jwt.RegisteredClaims
}

// IssueRequest carries the identity facts embedded into a minted pair.
// SessionID, when set, is reused as the sid claim; rotation flows pass the
// existing session ID so rotated access tokens stay tied to their record.
type IssueRequest struct {
	UserID        string
	Roles         []string
	EmailVerified bool
	SessionID     string
}

// TokenPair is the result of [Manager.Issue].
type TokenPair struct {
	AccessToken      string
	RefreshToken     string
	RefreshExpiresAt time.Time
	SessionID        string
}

// Manager defines a public type used by credcore APIs.
//
// Manager instances are intended to be configured during initialization and
// then treated as immutable; all methods are safe for concurrent use.
type Manager struct {
	config Config
	tokens token.Generator
	now    func() time.Time
}

// NewManager validates cfg and returns a ready Manager.
func NewManager(cfg Config) (*Manager, error) {
	if cfg.AccessTTL <= 0 || cfg.RefreshTTL <= 0 {
		return nil, errors.New("invalid TTL configuration")
	}
	if cfg.Leeway < 0 || cfg.Leeway > 2*time.Minute {
		return nil, errors.New("invalid leeway configuration")
	}
	if cfg.RefreshLength == 0 {
		cfg.RefreshLength = DefaultRefreshLength
	}
	if cfg.RefreshLength < 32 {
		return nil, errors.New("refresh token length must be >= 32 bytes")
	}

	switch cfg.SigningMethod {
	case MethodHS256:
		if len(cfg.PrivateKey) == 0 {
			return nil, errors.New("hs256 requires private key")
		}
	case MethodEd25519:
		if len(cfg.PrivateKey) > 0 {
			if _, err := parseEdPrivateKey(cfg.PrivateKey); err != nil {
				return nil, err
			}
		}
		if len(cfg.PublicKey) == 0 {
			return nil, errors.New("ed25519 requires public key")
		}
		if _, err := parseEdPublicKey(cfg.PublicKey); err != nil {
			return nil, err
		}
	default:
		return nil, errors.New("unsupported signing method")
	}

	return &Manager{config: cfg, tokens: token.New(), now: time.Now}, nil
}

// Issue mints a signed access token for req plus an independent opaque
// refresh token. The access expiry is expiresAt when non-nil, otherwise
// now+AccessTTL; the refresh expiry always runs its own longer clock.
func (m *Manager) Issue(req IssueRequest, expiresAt *time.Time) (*TokenPair, error) {
	if req.UserID == "" {
		return nil, errors.New("issue requires a user id")
	}

	now := m.now()
	exp := now.Add(m.config.AccessTTL)
	if expiresAt != nil {
		exp = *expiresAt
	}

	sid := req.SessionID
	if sid == "" {
		sid = uuid.NewString()
	}
	claims := AccessClaims{
		Roles:         req.Roles,
		EmailVerified: req.EmailVerified,
		SID:           sid,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   req.UserID,
			ExpiresAt: jwt.NewNumericDate(exp),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    m.config.Issuer,
			ID:        uuid.NewString(),
		},
	}
	if m.config.Audience != "" {
		claims.Audience = jwt.ClaimStrings{m.config.Audience}
	}

	signKey, err := m.signKey()
	if err != nil {
		return nil, err
	}
	access, err := jwt.NewWithClaims(m.method(), claims).SignedString(signKey)
	if err != nil {
		return nil, err
	}

	refresh, err := m.tokens.GenerateURLSafe(m.config.RefreshLength)
	if err != nil {
		return nil, err
	}

	return &TokenPair{
		AccessToken:      access,
		RefreshToken:     refresh,
		RefreshExpiresAt: now.Add(m.config.RefreshTTL),
		SessionID:        sid,
	}, nil
}

// ParseAccess validates tokenStr against the configured method, issuer and
// audience and returns its claims.
func (m *Manager) ParseAccess(tokenStr string) (*AccessClaims, error) {
	options := []jwt.ParserOption{
		jwt.WithValidMethods([]string{m.method().Alg()}),
		jwt.WithExpirationRequired(),
	}
	if m.config.Leeway > 0 {
		options = append(options, jwt.WithLeeway(m.config.Leeway))
	}
	if m.config.RequireIAT {
		options = append(options, jwt.WithIssuedAt())
	}
	if m.config.Issuer != "" {
		options = append(options, jwt.WithIssuer(m.config.Issuer))
	}
	if m.config.Audience != "" {
		options = append(options, jwt.WithAudience(m.config.Audience))
	}

	parser := jwt.NewParser(options...)
	parsed, err := parser.ParseWithClaims(tokenStr, &AccessClaims{}, func(t *jwt.Token) (interface{}, error) {
		if t.Method.Alg() != m.method().Alg() {
			return nil, fmt.Errorf("unexpected signing algorithm: %s", t.Method.Alg())
		}
		return m.verifyKey()
	})
	if err != nil {
		return nil, err
	}

	claims, ok := parsed.Claims.(*AccessClaims)
	if !ok || !parsed.Valid {
		return nil, jwt.ErrTokenInvalidClaims
	}
	return claims, nil
}

func (m *Manager) method() jwt.SigningMethod {
	if m.config.SigningMethod == MethodHS256 {
		return jwt.SigningMethodHS256
	}
	return jwt.SigningMethodEdDSA
}

func (m *Manager) signKey() (interface{}, error) {
	if m.config.SigningMethod == MethodHS256 {
		return m.config.PrivateKey, nil
	}
	return parseEdPrivateKey(m.config.PrivateKey)
}

func (m *Manager) verifyKey() (interface{}, error) {
	if m.config.SigningMethod == MethodHS256 {
		return m.config.PrivateKey, nil
	}
	return parseEdPublicKey(m.config.PublicKey)
}

func parseEdPrivateKey(key []byte) (ed25519.PrivateKey, error) {
	if len(key) == ed25519.PrivateKeySize {
		return ed25519.PrivateKey(key), nil
	}
	parsed, err := jwt.ParseEdPrivateKeyFromPEM(key)
	if err != nil {
		return nil, errors.New("invalid ed25519 private key")
	}
	edKey, ok := parsed.(ed25519.PrivateKey)
	if !ok {
		return nil, errors.New("invalid ed25519 private key type")
	}
	return edKey, nil
}

func parseEdPublicKey(key []byte) (ed25519.PublicKey, error) {
	if len(key) == ed25519.PublicKeySize {
		return ed25519.PublicKey(key), nil
	}
	parsed, err := jwt.ParseEdPublicKeyFromPEM(key)
	if err != nil {
		return nil, errors.New("invalid ed25519 public key")
	}
	edKey, ok := parsed.(ed25519.PublicKey)
	if !ok {
		return nil, errors.New("invalid ed25519 public key type")
	}
	return edKey, nil
}
