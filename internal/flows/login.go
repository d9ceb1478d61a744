package flows

import (
	"context"
	"time"
)

// LoginResult is the flow-local login response shape.
type LoginResult struct {
	UserID string
	TokenPair
}

// LoginMetrics carries metric IDs needed by the login flow. Rehash
// accounting lives on CredentialDeps, shared with the account flows.
type LoginMetrics struct {
	LoginSuccess    int
	LoginFailure    int
	LoginLocked     int
	SessionCreated  int
	EnvelopeCorrupt int
}

// LoginEvents carries audit event names used by the login flow.
type LoginEvents struct {
	LoginSuccess    string
	LoginFailure    string
	LoginLocked     string
	EnvelopeCorrupt string
}

// LoginErrors carries host-level sentinel errors used by the login flow.
type LoginErrors struct {
	EngineNotReady     error
	InvalidCredentials error
	Locked             func(unlockAt time.Time) error
}

// LoginDeps captures login flow dependencies.
type LoginDeps struct {
	Credentials CredentialDeps

	GetAccountByEmail func(ctx context.Context, email string) (*Account, error)
	GetRoles          func(ctx context.Context, userID string) ([]string, error)
	IssueTokens       func(userID string, roles []string, emailVerified bool, sessionID string) (*TokenPair, error)
	HashToken         func(string) string
	SaveSession       func(context.Context, SessionRecord) error

	ClientIPFromContext   func(context.Context) string
	UserAgentFromContext  func(context.Context) string
	DeviceNameFromContext func(context.Context) string
	Now                   func() time.Time

	MetricInc func(int)
	EmitAudit func(ctx context.Context, event string, success bool, userID string, err error, meta func() map[string]string)
	Warn      func(string, ...any)

	Metrics LoginMetrics
	Events  LoginEvents
	Errors  LoginErrors
}

// RunLogin executes the full login flow: validation, uniform unknown-user
// handling, lockout gate, five-outcome verification, token issuance, and
// session persistence.
func RunLogin(ctx context.Context, email, pw string, deps LoginDeps) (*LoginResult, error) {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.MetricInc == nil {
		deps.MetricInc = func(int) {}
	}
	if deps.EmitAudit == nil {
		deps.EmitAudit = func(context.Context, string, bool, string, error, func() map[string]string) {}
	}
	if deps.Warn == nil {
		deps.Warn = func(string, ...any) {}
	}
	if deps.ClientIPFromContext == nil {
		deps.ClientIPFromContext = func(context.Context) string { return "" }
	}
	if deps.UserAgentFromContext == nil {
		deps.UserAgentFromContext = func(context.Context) string { return "" }
	}
	if deps.DeviceNameFromContext == nil {
		deps.DeviceNameFromContext = func(context.Context) string { return "" }
	}
	deps.Credentials.Now = deps.Now
	deps.Credentials.MetricInc = deps.MetricInc
	deps.Credentials.EmitAudit = deps.EmitAudit
	deps.Credentials.Warn = deps.Warn
	if deps.GetAccountByEmail == nil ||
		deps.Credentials.VerifyPassword == nil ||
		deps.IssueTokens == nil ||
		deps.SaveSession == nil {
		return nil, deps.Errors.EngineNotReady
	}

	if err := ValidateLoginRequest(email, pw); err != nil {
		return nil, err
	}

	account, err := deps.GetAccountByEmail(ctx, email)
	if err != nil || account == nil {
		deps.MetricInc(deps.Metrics.LoginFailure)
		deps.EmitAudit(ctx, deps.Events.LoginFailure, false, "", deps.Errors.InvalidCredentials, func() map[string]string {
			return map[string]string{
				"email":  email,
				"reason": "user_not_found",
			}
		})
		return nil, deps.Errors.InvalidCredentials
	}

	outcome, unlockAt := checkCredentials(ctx, account, pw, deps.Credentials)
	switch outcome {
	case credentialLocked:
		deps.MetricInc(deps.Metrics.LoginLocked)
		lockedErr := deps.Errors.Locked(unlockAt)
		deps.EmitAudit(ctx, deps.Events.LoginLocked, false, account.UserID, lockedErr, func() map[string]string {
			return map[string]string{
				"unlock_at": unlockAt.UTC().Format(time.RFC3339),
			}
		})
		return nil, lockedErr

	case credentialFail:
		deps.MetricInc(deps.Metrics.LoginFailure)
		deps.EmitAudit(ctx, deps.Events.LoginFailure, false, account.UserID, deps.Errors.InvalidCredentials, func() map[string]string {
			return map[string]string{
				"reason": "password_mismatch",
			}
		})
		return nil, deps.Errors.InvalidCredentials

	case credentialCorrupt:
		deps.MetricInc(deps.Metrics.LoginFailure)
		deps.EmitAudit(ctx, deps.Events.EnvelopeCorrupt, false, account.UserID, deps.Errors.InvalidCredentials, func() map[string]string {
			return map[string]string{
				"reason": "envelope_corrupt",
			}
		})
		return nil, deps.Errors.InvalidCredentials
	}
	pw = ""

	var roles []string
	if deps.GetRoles != nil {
		roles, err = deps.GetRoles(ctx, account.UserID)
		if err != nil {
			return nil, err
		}
	}

	pair, err := deps.IssueTokens(account.UserID, roles, account.EmailVerified, "")
	if err != nil {
		return nil, err
	}

	now := deps.Now()
	sess := SessionRecord{
		ID:          pair.SessionID,
		OwnerID:     account.UserID,
		RefreshHash: deps.HashToken(pair.RefreshToken),
		ExpiresAt:   pair.RefreshExpiresAt,
		DeviceName:  deps.DeviceNameFromContext(ctx),
		DeviceInfo:  deps.UserAgentFromContext(ctx),
		IPAddress:   deps.ClientIPFromContext(ctx),
		CreatedAt:   now,
	}
	if err := deps.SaveSession(ctx, sess); err != nil {
		return nil, err
	}

	deps.MetricInc(deps.Metrics.SessionCreated)
	deps.MetricInc(deps.Metrics.LoginSuccess)
	deps.EmitAudit(ctx, deps.Events.LoginSuccess, true, account.UserID, nil, func() map[string]string {
		return map[string]string{
			"session_id": pair.SessionID,
		}
	})

	return &LoginResult{
		UserID:    account.UserID,
		TokenPair: *pair,
	}, nil
}
