package flows

import (
	"context"
)

// LogoutMetrics carries metric IDs needed by the logout flows.
type LogoutMetrics struct {
	Logout    int
	LogoutAll int
}

// LogoutEvents carries audit event names used by the logout flows.
type LogoutEvents struct {
	Logout    string
	LogoutAll string
}

// LogoutErrors carries host-level sentinel errors used by the logout flows.
type LogoutErrors struct {
	EngineNotReady  error
	SessionNotFound error
}

// LogoutDeps captures logout flow dependencies.
type LogoutDeps struct {
	GetSession        func(ctx context.Context, ownerID, refreshHash string) (*SessionRecord, error)
	DeleteSession     func(ctx context.Context, ownerID, sessionID string) error
	DeleteAllSessions func(ctx context.Context, ownerID string) error
	HashToken         func(string) string

	MetricInc func(int)
	EmitAudit func(ctx context.Context, event string, success bool, userID string, err error, meta func() map[string]string)

	Metrics LogoutMetrics
	Events  LogoutEvents
	Errors  LogoutErrors
}

// RunLogout deletes the single session matching the presented refresh token.
func RunLogout(ctx context.Context, userID, refreshToken string, deps LogoutDeps) error {
	if deps.MetricInc == nil {
		deps.MetricInc = func(int) {}
	}
	if deps.EmitAudit == nil {
		deps.EmitAudit = func(context.Context, string, bool, string, error, func() map[string]string) {}
	}
	if deps.GetSession == nil || deps.DeleteSession == nil {
		return deps.Errors.EngineNotReady
	}

	if err := ValidateRefreshRequest(userID, refreshToken); err != nil {
		return err
	}

	sess, err := deps.GetSession(ctx, userID, deps.HashToken(refreshToken))
	if err != nil || sess == nil {
		return deps.Errors.SessionNotFound
	}
	if err := deps.DeleteSession(ctx, sess.OwnerID, sess.ID); err != nil {
		return err
	}

	deps.MetricInc(deps.Metrics.Logout)
	deps.EmitAudit(ctx, deps.Events.Logout, true, userID, nil, func() map[string]string {
		return map[string]string{
			"session_id": sess.ID,
		}
	})
	return nil
}

// RunLogoutAll deletes every session owned by userID.
func RunLogoutAll(ctx context.Context, userID string, deps LogoutDeps) error {
	if deps.MetricInc == nil {
		deps.MetricInc = func(int) {}
	}
	if deps.EmitAudit == nil {
		deps.EmitAudit = func(context.Context, string, bool, string, error, func() map[string]string) {}
	}
	if deps.DeleteAllSessions == nil {
		return deps.Errors.EngineNotReady
	}

	if err := ValidateUserID(userID); err != nil {
		return err
	}

	if err := deps.DeleteAllSessions(ctx, userID); err != nil {
		return err
	}

	deps.MetricInc(deps.Metrics.LogoutAll)
	deps.EmitAudit(ctx, deps.Events.LogoutAll, true, userID, nil, nil)
	return nil
}
