package credcore

import (
	"context"
	"time"
)

// Purpose classifies single-use tokens stored through the TokenStore.
type Purpose uint8

const (
	// PurposeVerifyEmail marks email verification tokens.
	PurposeVerifyEmail Purpose = iota + 1
	// PurposeResetPassword marks password reset tokens.
	PurposeResetPassword
)

// String returns the canonical lowercase name of the purpose.
func (p Purpose) String() string {
	switch p {
	case PurposeVerifyEmail:
		return "verify_email"
	case PurposeResetPassword:
		return "reset_password"
	default:
		return "unknown"
	}
}

// SecurityState is the per-account credential record the engine reads and
// writes through the UserStore. Hosts own all other account data.
type SecurityState struct {
	UserID         string
	Email          string
	PasswordHash   string
	FailedAttempts int
	Locked         bool
	UnlockAt       time.Time
	EmailVerified  bool
}

// Session is one refresh-token session. RefreshHash holds the SHA-256
// digest of the opaque refresh token; the plaintext is never persisted.
type Session struct {
	ID          string
	OwnerID     string
	RefreshHash string
	ExpiresAt   time.Time
	DeviceName  string
	DeviceInfo  string
	IPAddress   string
	CreatedAt   time.Time
}

// PurposeToken is a stored single-use token. Hash holds the SHA-256 digest
// of the raw token delivered to the user.
type PurposeToken struct {
	Hash      string
	Purpose   Purpose
	OwnerID   string
	ExpiresAt time.Time
	CreatedAt time.Time
}

// LoginResult is returned by [Engine.Login] and [Engine.Refresh].
type LoginResult struct {
	UserID           string
	AccessToken      string
	RefreshToken     string
	RefreshExpiresAt time.Time
	SessionID        string
}

// UserStore is the host-side account persistence the engine depends on.
// Implementations return ErrUserNotFound for missing accounts and are
// expected to treat email lookups case-insensitively.
type UserStore interface {
	GetSecurityStateByEmail(ctx context.Context, email string) (*SecurityState, error)
	GetSecurityStateByID(ctx context.Context, userID string) (*SecurityState, error)
	GetRolesByID(ctx context.Context, userID string) ([]string, error)
	UpdateSecurityState(ctx context.Context, userID string, failedAttempts int, locked bool, unlockAt time.Time) error
	UpdatePasswordHash(ctx context.Context, userID string, newHash string) error
	UpdateEmail(ctx context.Context, userID string, newEmail string) error
	MarkEmailVerified(ctx context.Context, userID string) error
}

// SessionStore persists refresh sessions. Implementations return
// ErrSessionNotFound when no record matches.
type SessionStore interface {
	Add(ctx context.Context, session Session) error
	GetByOwnerAndHash(ctx context.Context, ownerID, refreshHash string) (*Session, error)
	Update(ctx context.Context, session Session) error
	Delete(ctx context.Context, ownerID, sessionID string) error
	DeleteAllForOwner(ctx context.Context, ownerID string) error
}

// TokenStore persists single-use purpose tokens. Implementations return
// ErrTokenNotFound when no record matches.
type TokenStore interface {
	Add(ctx context.Context, token PurposeToken) error
	GetByHashAndPurpose(ctx context.Context, hash string, purpose Purpose) (*PurposeToken, error)
	Delete(ctx context.Context, hash string, purpose Purpose) error
	DeleteAllForOwnerAndPurpose(ctx context.Context, ownerID string, purpose Purpose) error
}

// Transactor brackets multi-store writes in one atomic unit. Stores that
// are atomic per operation can use NopTransactor.
type Transactor interface {
	InTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// NopTransactor runs fn directly with no transaction boundary.
type NopTransactor struct{}

func (NopTransactor) InTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// Mailer delivers verification and reset messages. Delivery runs after the
// owning transaction commits; failures degrade, they do not roll back.
type Mailer interface {
	Send(ctx context.Context, to, subject, body string, html bool) error
}
