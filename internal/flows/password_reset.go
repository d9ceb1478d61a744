package flows

import (
	"context"
	"fmt"
	"time"
)

// ResetMetrics carries metric IDs for the password reset flows.
type ResetMetrics struct {
	Request        int
	Success        int
	Failure        int
	SessionRevoked int
	MailerFailure  int
}

// ResetEvents carries audit event names for the password reset flows.
type ResetEvents struct {
	Requested     string
	Confirmed     string
	Error         string
	MailerFailure string
}

// ResetErrors carries host-level sentinels for the password reset flows.
type ResetErrors struct {
	EngineNotReady error
	DeliveryFailed error
}

// ResetDeps captures password reset flow dependencies.
type ResetDeps struct {
	Tokens      PurposeTokenDeps
	Purpose     uint8
	TokenLength int
	TokenTTL    time.Duration

	PasswordMinLength int

	GetAccountByEmail  func(ctx context.Context, email string) (*Account, error)
	HashPassword       func(pw string) (string, error)
	UpdatePasswordHash func(ctx context.Context, userID, newHash string) error
	ResetSecurityState func(ctx context.Context, userID string) error
	DeleteAllSessions  func(ctx context.Context, ownerID string) error
	DeliverToken       func(ctx context.Context, email, rawToken string) error

	Now       func() time.Time
	MetricInc func(int)
	EmitAudit func(ctx context.Context, event string, success bool, userID string, err error, meta func() map[string]string)

	Metrics ResetMetrics
	Events  ResetEvents
	Errors  ResetErrors
}

// RunRequestPasswordReset issues a reset token for the account owning email.
// An unknown email succeeds silently so callers cannot probe for accounts.
func RunRequestPasswordReset(ctx context.Context, email string, deps ResetDeps) error {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.MetricInc == nil {
		deps.MetricInc = func(int) {}
	}
	if deps.EmitAudit == nil {
		deps.EmitAudit = func(context.Context, string, bool, string, error, func() map[string]string) {}
	}
	if deps.GetAccountByEmail == nil || deps.Tokens.AddToken == nil || deps.DeliverToken == nil {
		return deps.Errors.EngineNotReady
	}

	if err := ValidateResetRequest(email); err != nil {
		return err
	}

	deps.MetricInc(deps.Metrics.Request)

	account, err := deps.GetAccountByEmail(ctx, email)
	if err != nil || account == nil {
		// Silent success: indistinguishable from the known-email path.
		deps.EmitAudit(ctx, deps.Events.Requested, true, "", nil, func() map[string]string {
			return map[string]string{
				"reason": "unknown_email",
			}
		})
		return nil
	}

	deps.Tokens.Now = deps.Now
	raw, err := IssuePurposeToken(ctx, account.UserID, deps.Purpose, deps.TokenLength, deps.TokenTTL, deps.Tokens)
	if err != nil {
		return err
	}

	deps.EmitAudit(ctx, deps.Events.Requested, true, account.UserID, nil, nil)

	if err := deps.DeliverToken(ctx, account.Email, raw); err != nil {
		deps.MetricInc(deps.Metrics.MailerFailure)
		deps.EmitAudit(ctx, deps.Events.MailerFailure, false, account.UserID, err, nil)
		return fmt.Errorf("%w: %v", deps.Errors.DeliveryFailed, err)
	}
	return nil
}

// RunConfirmPasswordReset redeems a reset token: the password is re-hashed,
// lockout state cleared, and, when revokeSessions is set, every session of
// the owner revoked — all inside the redemption transaction.
func RunConfirmPasswordReset(ctx context.Context, rawToken, newPassword string, revokeSessions bool, deps ResetDeps) error {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.MetricInc == nil {
		deps.MetricInc = func(int) {}
	}
	if deps.EmitAudit == nil {
		deps.EmitAudit = func(context.Context, string, bool, string, error, func() map[string]string) {}
	}
	if deps.HashPassword == nil || deps.UpdatePasswordHash == nil || deps.Tokens.GetToken == nil {
		return deps.Errors.EngineNotReady
	}

	if err := ValidateResetConfirm(rawToken, newPassword, deps.PasswordMinLength); err != nil {
		return err
	}

	newHash, err := deps.HashPassword(newPassword)
	if err != nil {
		return err
	}

	deps.Tokens.Now = deps.Now
	ownerID, err := RedeemPurposeToken(ctx, rawToken, deps.Purpose, deps.Tokens, func(ctx context.Context, record TokenRecord) error {
		if err := deps.UpdatePasswordHash(ctx, record.OwnerID, newHash); err != nil {
			return err
		}
		if deps.ResetSecurityState != nil {
			if err := deps.ResetSecurityState(ctx, record.OwnerID); err != nil {
				return err
			}
		}
		if revokeSessions && deps.DeleteAllSessions != nil {
			return deps.DeleteAllSessions(ctx, record.OwnerID)
		}
		return nil
	})
	if err != nil {
		deps.MetricInc(deps.Metrics.Failure)
		deps.EmitAudit(ctx, deps.Events.Error, false, ownerID, err, nil)
		return err
	}

	if revokeSessions {
		deps.MetricInc(deps.Metrics.SessionRevoked)
	}
	deps.MetricInc(deps.Metrics.Success)
	deps.EmitAudit(ctx, deps.Events.Confirmed, true, ownerID, nil, func() map[string]string {
		return map[string]string{
			"sessions_revoked": fmt.Sprintf("%t", revokeSessions),
		}
	})
	return nil
}
