package credcore

import (
	"context"
	"fmt"

	internalflows "github.com/credware/credcore/internal/flows"
)

// RequestPasswordReset issues a fresh single-use reset token for the account
// owning email and delivers it through the mailer. An unknown email succeeds
// silently so callers cannot probe which addresses have accounts.
func (e *Engine) RequestPasswordReset(ctx context.Context, email string) error {
	return internalflows.RunRequestPasswordReset(ctx, email, e.resetFlowDeps())
}

// ConfirmPasswordReset redeems a reset token: the new password is hashed and
// stored, the lockout state cleared, and, when revokeSessions is set, every
// session of the owner revoked — all atomically with the token deletion.
func (e *Engine) ConfirmPasswordReset(ctx context.Context, rawToken, newPassword string, revokeSessions bool) error {
	return internalflows.RunConfirmPasswordReset(ctx, rawToken, newPassword, revokeSessions, e.resetFlowDeps())
}

func (e *Engine) resetFlowDeps() internalflows.ResetDeps {
	deps := internalflows.ResetDeps{
		Purpose: uint8(PurposeResetPassword),
		Metrics: internalflows.ResetMetrics{
			Request:        int(MetricResetRequest),
			Success:        int(MetricResetSuccess),
			Failure:        int(MetricResetFailure),
			SessionRevoked: int(MetricSessionRevoked),
			MailerFailure:  int(MetricMailerFailure),
		},
		Events: internalflows.ResetEvents{
			Requested:     EventResetRequested,
			Confirmed:     EventResetConfirmed,
			Error:         EventResetError,
			MailerFailure: EventMailerFailure,
		},
		Errors: internalflows.ResetErrors{
			EngineNotReady: ErrEngineNotReady,
			DeliveryFailed: ErrDeliveryFailed,
		},
	}
	if e == nil {
		return deps
	}

	deps.Tokens = e.purposeTokenFlowDeps()
	deps.TokenLength = e.config.PasswordReset.TokenLength
	deps.TokenTTL = e.config.PasswordReset.TokenTTL
	deps.PasswordMinLength = e.config.Password.MinLength
	deps.MetricInc = e.flowMetricInc
	deps.EmitAudit = e.emitAudit

	if e.hasher != nil {
		deps.HashPassword = e.hasher.Hash
	}
	if e.userStore != nil {
		deps.GetAccountByEmail = func(ctx context.Context, email string) (*internalflows.Account, error) {
			state, err := e.userStore.GetSecurityStateByEmail(ctx, email)
			if err != nil {
				return nil, err
			}
			return toFlowAccount(state), nil
		}
		deps.UpdatePasswordHash = e.userStore.UpdatePasswordHash
		deps.ResetSecurityState = e.resetSecurityState
	}
	if e.sessionStore != nil {
		deps.DeleteAllSessions = e.sessionStore.DeleteAllForOwner
	}
	if e.mailer != nil {
		deps.DeliverToken = func(ctx context.Context, email, raw string) error {
			body := fmt.Sprintf(
				"Use this token to reset your password: %s\nIt expires in %s. If you did not request a reset, ignore this message.",
				raw, e.config.PasswordReset.TokenTTL,
			)
			return e.mailer.Send(ctx, email, "Password reset request", body, false)
		}
	}

	return deps
}
