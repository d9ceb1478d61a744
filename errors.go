package credcore

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrInvalidCredentials covers unknown email and wrong password uniformly.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrAccountLocked is wrapped by LockedError while a lockout is active.
	ErrAccountLocked = errors.New("account locked")
	// ErrUserNotFound is returned by UserStore implementations for missing accounts.
	ErrUserNotFound = errors.New("user not found")
	// ErrSessionNotFound is returned by SessionStore implementations.
	ErrSessionNotFound = errors.New("session not found")
	// ErrTokenNotFound is returned by TokenStore implementations and on
	// redemption of an already-consumed purpose token.
	ErrTokenNotFound = errors.New("token not found")
	// ErrSessionExpired marks a refresh attempt against an expired session.
	ErrSessionExpired = errors.New("session expired")
	// ErrTokenExpired marks redemption of a purpose token past its deadline.
	ErrTokenExpired = errors.New("token expired")
	// ErrUnauthorized covers refresh tokens that match no live session.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrEmailAlreadyVerified rejects verification requests for verified accounts.
	ErrEmailAlreadyVerified = errors.New("email already verified")
	// ErrDeliveryFailed reports a mailer failure after the token was persisted.
	ErrDeliveryFailed = errors.New("message delivery failed")
	// ErrPasswordReuse rejects a new password equal to the current one.
	ErrPasswordReuse = errors.New("new password must be different from current password")
	// ErrEngineNotReady is returned when an Engine method runs before Build.
	ErrEngineNotReady = errors.New("engine not initialized")
	// ErrEncryptionDisabled is returned by the cipher surface when no
	// encryption key was configured.
	ErrEncryptionDisabled = errors.New("encryption not configured")
)

// LockedError reports an active lockout together with its expiry. It wraps
// ErrAccountLocked so callers can match with errors.Is.
type LockedError struct {
	UnlockAt time.Time
}

func (e *LockedError) Error() string {
	return fmt.Sprintf("account locked until %s", e.UnlockAt.UTC().Format(time.RFC3339))
}

func (e *LockedError) Unwrap() error {
	return ErrAccountLocked
}
