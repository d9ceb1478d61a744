package flows

import (
	"context"
	"time"
)

// RefreshMetrics carries metric IDs needed by the refresh flow.
type RefreshMetrics struct {
	RefreshSuccess int
	RefreshFailure int
	SessionRevoked int
}

// RefreshEvents carries audit event names used by the refresh flow.
type RefreshEvents struct {
	RefreshSuccess string
	RefreshFailure string
}

// RefreshErrors carries host-level sentinel errors used by the refresh flow.
type RefreshErrors struct {
	EngineNotReady error
	Unauthorized   error
	SessionExpired error
}

// RefreshDeps captures refresh flow dependencies.
type RefreshDeps struct {
	GetSession     func(ctx context.Context, ownerID, refreshHash string) (*SessionRecord, error)
	UpdateSession  func(context.Context, SessionRecord) error
	DeleteSession  func(ctx context.Context, ownerID, sessionID string) error
	GetAccountByID func(ctx context.Context, userID string) (*Account, error)
	GetRoles       func(ctx context.Context, userID string) ([]string, error)
	IssueTokens    func(userID string, roles []string, emailVerified bool, sessionID string) (*TokenPair, error)
	HashToken      func(string) string

	ClientIPFromContext  func(context.Context) string
	UserAgentFromContext func(context.Context) string
	Now                  func() time.Time

	MetricInc func(int)
	EmitAudit func(ctx context.Context, event string, success bool, userID string, err error, meta func() map[string]string)
	Warn      func(string, ...any)

	Metrics RefreshMetrics
	Events  RefreshEvents
	Errors  RefreshErrors
}

// RunRefresh rotates a refresh session: the presented token is matched by
// hash, the record is updated in place with a fresh hash and expiry, and the
// old token stops working immediately.
func RunRefresh(ctx context.Context, userID, refreshToken string, deps RefreshDeps) (*LoginResult, error) {
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
	if deps.GetSession == nil || deps.UpdateSession == nil || deps.IssueTokens == nil {
		return nil, deps.Errors.EngineNotReady
	}

	if err := ValidateRefreshRequest(userID, refreshToken); err != nil {
		return nil, err
	}

	sess, err := deps.GetSession(ctx, userID, deps.HashToken(refreshToken))
	if err != nil || sess == nil {
		deps.MetricInc(deps.Metrics.RefreshFailure)
		deps.EmitAudit(ctx, deps.Events.RefreshFailure, false, userID, deps.Errors.Unauthorized, func() map[string]string {
			return map[string]string{
				"reason": "session_not_found",
			}
		})
		return nil, deps.Errors.Unauthorized
	}

	now := deps.Now()
	if now.After(sess.ExpiresAt) {
		if deps.DeleteSession != nil {
			if err := deps.DeleteSession(ctx, sess.OwnerID, sess.ID); err != nil {
				deps.Warn("credcore: deleting expired session failed: %v", err)
			}
		}
		deps.MetricInc(deps.Metrics.SessionRevoked)
		deps.MetricInc(deps.Metrics.RefreshFailure)
		deps.EmitAudit(ctx, deps.Events.RefreshFailure, false, userID, deps.Errors.SessionExpired, func() map[string]string {
			return map[string]string{
				"reason":     "session_expired",
				"session_id": sess.ID,
			}
		})
		return nil, deps.Errors.SessionExpired
	}

	account, err := deps.GetAccountByID(ctx, sess.OwnerID)
	if err != nil || account == nil {
		if deps.DeleteSession != nil {
			_ = deps.DeleteSession(ctx, sess.OwnerID, sess.ID)
		}
		deps.MetricInc(deps.Metrics.RefreshFailure)
		deps.EmitAudit(ctx, deps.Events.RefreshFailure, false, userID, deps.Errors.Unauthorized, func() map[string]string {
			return map[string]string{
				"reason": "account_missing",
			}
		})
		return nil, deps.Errors.Unauthorized
	}

	var roles []string
	if deps.GetRoles != nil {
		roles, err = deps.GetRoles(ctx, account.UserID)
		if err != nil {
			return nil, err
		}
	}

	pair, err := deps.IssueTokens(account.UserID, roles, account.EmailVerified, sess.ID)
	if err != nil {
		return nil, err
	}

	sess.RefreshHash = deps.HashToken(pair.RefreshToken)
	sess.ExpiresAt = pair.RefreshExpiresAt
	if ip := deps.ClientIPFromContext(ctx); ip != "" {
		sess.IPAddress = ip
	}
	if ua := deps.UserAgentFromContext(ctx); ua != "" {
		sess.DeviceInfo = ua
	}
	if err := deps.UpdateSession(ctx, *sess); err != nil {
		return nil, err
	}

	deps.MetricInc(deps.Metrics.RefreshSuccess)
	deps.EmitAudit(ctx, deps.Events.RefreshSuccess, true, account.UserID, nil, func() map[string]string {
		return map[string]string{
			"session_id": sess.ID,
		}
	})

	return &LoginResult{
		UserID:    account.UserID,
		TokenPair: *pair,
	}, nil
}
