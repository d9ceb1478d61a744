package credcore

import (
	"context"

	internalflows "github.com/credware/credcore/internal/flows"
	"github.com/credware/credcore/password"
)

// Refresh rotates the session matching refreshToken: a fresh token pair is
// minted and the stored session record is updated in place, so the presented
// refresh token stops working immediately.
//
// A token matching no live session returns ErrUnauthorized; a matching but
// expired session is deleted and ErrSessionExpired returned.
func (e *Engine) Refresh(ctx context.Context, userID, refreshToken string) (*LoginResult, error) {
	result, err := internalflows.RunRefresh(ctx, userID, refreshToken, e.refreshFlowDeps())
	if err != nil {
		return nil, err
	}
	return fromFlowLoginResult(result), nil
}

// Logout deletes the single session matching refreshToken. A token matching
// no live session returns ErrSessionNotFound.
func (e *Engine) Logout(ctx context.Context, userID, refreshToken string) error {
	return internalflows.RunLogout(ctx, userID, refreshToken, e.logoutFlowDeps())
}

// LogoutAll deletes every session owned by userID.
func (e *Engine) LogoutAll(ctx context.Context, userID string) error {
	return internalflows.RunLogoutAll(ctx, userID, e.logoutFlowDeps())
}

func (e *Engine) refreshFlowDeps() internalflows.RefreshDeps {
	deps := internalflows.RefreshDeps{
		HashToken:            password.HashValue,
		ClientIPFromContext:  clientIPFromContext,
		UserAgentFromContext: userAgentFromContext,
		Metrics: internalflows.RefreshMetrics{
			RefreshSuccess: int(MetricRefreshSuccess),
			RefreshFailure: int(MetricRefreshFailure),
			SessionRevoked: int(MetricSessionRevoked),
		},
		Events: internalflows.RefreshEvents{
			RefreshSuccess: EventRefreshSuccess,
			RefreshFailure: EventRefreshFailure,
		},
		Errors: internalflows.RefreshErrors{
			EngineNotReady: ErrEngineNotReady,
			Unauthorized:   ErrUnauthorized,
			SessionExpired: ErrSessionExpired,
		},
	}
	if e == nil {
		return deps
	}

	deps.MetricInc = e.flowMetricInc
	deps.EmitAudit = e.emitAudit
	deps.Warn = e.warnf

	if e.jwtManager != nil {
		deps.IssueTokens = e.issueTokens
	}
	if e.userStore != nil {
		deps.GetAccountByID = func(ctx context.Context, userID string) (*internalflows.Account, error) {
			state, err := e.userStore.GetSecurityStateByID(ctx, userID)
			if err != nil {
				return nil, err
			}
			return toFlowAccount(state), nil
		}
		deps.GetRoles = e.userStore.GetRolesByID
	}
	if e.sessionStore != nil {
		deps.GetSession = func(ctx context.Context, ownerID, refreshHash string) (*internalflows.SessionRecord, error) {
			sess, err := e.sessionStore.GetByOwnerAndHash(ctx, ownerID, refreshHash)
			if err != nil {
				return nil, err
			}
			return toFlowSession(sess), nil
		}
		deps.UpdateSession = func(ctx context.Context, sess internalflows.SessionRecord) error {
			return e.sessionStore.Update(ctx, fromFlowSession(sess))
		}
		deps.DeleteSession = e.sessionStore.Delete
	}

	return deps
}

func (e *Engine) logoutFlowDeps() internalflows.LogoutDeps {
	deps := internalflows.LogoutDeps{
		HashToken: password.HashValue,
		Metrics: internalflows.LogoutMetrics{
			Logout:    int(MetricLogout),
			LogoutAll: int(MetricLogoutAll),
		},
		Events: internalflows.LogoutEvents{
			Logout:    EventLogout,
			LogoutAll: EventLogoutAll,
		},
		Errors: internalflows.LogoutErrors{
			EngineNotReady:  ErrEngineNotReady,
			SessionNotFound: ErrSessionNotFound,
		},
	}
	if e == nil {
		return deps
	}

	deps.MetricInc = e.flowMetricInc
	deps.EmitAudit = e.emitAudit

	if e.sessionStore != nil {
		deps.GetSession = func(ctx context.Context, ownerID, refreshHash string) (*internalflows.SessionRecord, error) {
			sess, err := e.sessionStore.GetByOwnerAndHash(ctx, ownerID, refreshHash)
			if err != nil {
				return nil, err
			}
			return toFlowSession(sess), nil
		}
		deps.DeleteSession = e.sessionStore.Delete
		deps.DeleteAllSessions = e.sessionStore.DeleteAllForOwner
	}

	return deps
}
