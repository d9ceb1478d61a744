package flows

import (
	"context"
	"time"

	"github.com/credware/credcore/internal/lockout"
	"github.com/credware/credcore/password"
)

// Account is the flow-local credential record mirrored from the host store.
type Account struct {
	UserID         string
	Email          string
	PasswordHash   string
	FailedAttempts int
	Locked         bool
	UnlockAt       time.Time
	EmailVerified  bool
}

// SessionRecord is the flow-local refresh session model.
type SessionRecord struct {
	ID          string
	OwnerID     string
	RefreshHash string
	ExpiresAt   time.Time
	DeviceName  string
	DeviceInfo  string
	IPAddress   string
	CreatedAt   time.Time
}

// TokenRecord is the flow-local single-use purpose token model.
type TokenRecord struct {
	Hash      string
	Purpose   uint8
	OwnerID   string
	ExpiresAt time.Time
	CreatedAt time.Time
}

// TokenPair mirrors the JWT manager's issue result.
type TokenPair struct {
	AccessToken      string
	RefreshToken     string
	RefreshExpiresAt time.Time
	SessionID        string
}

func lockStateOf(a *Account) lockout.State {
	return lockout.State{
		FailedAttempts: a.FailedAttempts,
		Locked:         a.Locked,
		UnlockAt:       a.UnlockAt,
	}
}

func applyLockState(a *Account, s lockout.State) {
	a.FailedAttempts = s.FailedAttempts
	a.Locked = s.Locked
	a.UnlockAt = s.UnlockAt
}

// credentialOutcome classifies one pass through the lockout gate and the
// password verification switch.
type credentialOutcome int

const (
	credentialOK credentialOutcome = iota
	credentialFail
	credentialLocked
	credentialCorrupt
)

// CredentialDeps is the shared dependency set for every flow that checks a
// password against the lockout state machine.
type CredentialDeps struct {
	Policy         lockout.Policy
	UpgradeOnLogin bool

	VerifyPassword func(envelope, pw string) (password.Status, error)
	HashPassword   func(pw string) (string, error)

	UpdateSecurityState func(ctx context.Context, userID string, failedAttempts int, locked bool, unlockAt time.Time) error
	UpdatePasswordHash  func(ctx context.Context, userID, newHash string) error

	Now       func() time.Time
	MetricInc func(int)
	EmitAudit func(ctx context.Context, event string, success bool, userID string, err error, meta func() map[string]string)
	Warn      func(string, ...any)

	RehashMetric  int
	RehashEvent   string
	CorruptMetric int
}

// checkCredentials runs the lockout gate, verifies pw against the account's
// stored envelope, persists state transitions, and transparently re-hashes
// legacy envelopes on success. On credentialLocked the returned time is the
// lockout expiry. Corrupt envelopes do not count as failed attempts.
func checkCredentials(ctx context.Context, account *Account, pw string, deps CredentialDeps) (credentialOutcome, time.Time) {
	now := deps.Now()
	state := lockStateOf(account)

	state, allowed := deps.Policy.Gate(state, now)
	if !allowed {
		return credentialLocked, state.UnlockAt
	}
	if state != lockStateOf(account) {
		// Lock expired on the way in; persist the cleared lock.
		applyLockState(account, state)
		if err := deps.UpdateSecurityState(ctx, account.UserID, state.FailedAttempts, state.Locked, state.UnlockAt); err != nil {
			deps.Warn("credcore: persisting auto-unlock failed: %v", err)
		}
	}

	status, err := deps.VerifyPassword(account.PasswordHash, pw)
	if err != nil {
		// Undecodable envelope: a storage problem, not a wrong guess.
		deps.MetricInc(deps.CorruptMetric)
		return credentialCorrupt, time.Time{}
	}

	switch status {
	case password.StatusSuccess, password.StatusSuccessRehashNeeded:
		state = deps.Policy.OnSuccess(state)
		if state != lockStateOf(account) {
			applyLockState(account, state)
			if err := deps.UpdateSecurityState(ctx, account.UserID, state.FailedAttempts, state.Locked, state.UnlockAt); err != nil {
				deps.Warn("credcore: resetting lockout state failed: %v", err)
			}
		}
		if status == password.StatusSuccessRehashNeeded && deps.UpgradeOnLogin {
			if upgraded, err := deps.HashPassword(pw); err == nil {
				if err := deps.UpdatePasswordHash(ctx, account.UserID, upgraded); err != nil {
					deps.Warn("credcore: password hash upgrade update failed: %v", err)
				} else {
					account.PasswordHash = upgraded
					deps.MetricInc(deps.RehashMetric)
					if deps.EmitAudit != nil {
						deps.EmitAudit(ctx, deps.RehashEvent, true, account.UserID, nil, nil)
					}
				}
			} else {
				deps.Warn("credcore: password hash upgrade generation failed: %v", err)
			}
		}
		return credentialOK, time.Time{}

	case password.StatusFail:
		state, _ = deps.Policy.OnFailure(state, now)
		applyLockState(account, state)
		if err := deps.UpdateSecurityState(ctx, account.UserID, state.FailedAttempts, state.Locked, state.UnlockAt); err != nil {
			deps.Warn("credcore: persisting failed attempt failed: %v", err)
		}
		return credentialFail, time.Time{}

	default:
		// VersionNotFound / LengthMismatch: the stored envelope is broken.
		deps.MetricInc(deps.CorruptMetric)
		return credentialCorrupt, time.Time{}
	}
}
