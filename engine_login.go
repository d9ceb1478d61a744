package credcore

import (
	"context"
	"time"

	internalflows "github.com/credware/credcore/internal/flows"
	"github.com/credware/credcore/password"
)

// Login verifies email and password against the stored credential state and,
// on success, mints an access/refresh token pair and persists a new session.
//
// Unknown email and wrong password both return ErrInvalidCredentials; an
// active lockout returns a LockedError carrying the unlock time.
func (e *Engine) Login(ctx context.Context, email, pw string) (*LoginResult, error) {
	result, err := internalflows.RunLogin(ctx, email, pw, e.loginFlowDeps())
	if err != nil {
		return nil, err
	}
	return fromFlowLoginResult(result), nil
}

func (e *Engine) loginFlowDeps() internalflows.LoginDeps {
	deps := internalflows.LoginDeps{
		HashToken:             password.HashValue,
		ClientIPFromContext:   clientIPFromContext,
		UserAgentFromContext:  userAgentFromContext,
		DeviceNameFromContext: deviceNameFromContext,
		Metrics: internalflows.LoginMetrics{
			LoginSuccess:    int(MetricLoginSuccess),
			LoginFailure:    int(MetricLoginFailure),
			LoginLocked:     int(MetricLoginLocked),
			SessionCreated:  int(MetricSessionCreated),
			EnvelopeCorrupt: int(MetricEnvelopeCorrupt),
		},
		Events: internalflows.LoginEvents{
			LoginSuccess:    EventLoginSuccess,
			LoginFailure:    EventLoginFailure,
			LoginLocked:     EventLoginLocked,
			EnvelopeCorrupt: EventEnvelopeCorrupt,
		},
		Errors: internalflows.LoginErrors{
			EngineNotReady:     ErrEngineNotReady,
			InvalidCredentials: ErrInvalidCredentials,
			Locked: func(unlockAt time.Time) error {
				return &LockedError{UnlockAt: unlockAt}
			},
		},
	}
	if e == nil {
		return deps
	}

	deps.Credentials = e.credentialFlowDeps()
	deps.MetricInc = e.flowMetricInc
	deps.EmitAudit = e.emitAudit
	deps.Warn = e.warnf

	if e.jwtManager != nil {
		deps.IssueTokens = e.issueTokens
	}
	if e.userStore != nil {
		deps.GetAccountByEmail = func(ctx context.Context, email string) (*internalflows.Account, error) {
			state, err := e.userStore.GetSecurityStateByEmail(ctx, email)
			if err != nil {
				return nil, err
			}
			return toFlowAccount(state), nil
		}
		deps.GetRoles = e.userStore.GetRolesByID
	}
	if e.sessionStore != nil {
		deps.SaveSession = func(ctx context.Context, sess internalflows.SessionRecord) error {
			return e.sessionStore.Add(ctx, fromFlowSession(sess))
		}
	}

	return deps
}
