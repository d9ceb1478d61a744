package credcore

import (
	"context"
	"fmt"
	"time"

	internalflows "github.com/credware/credcore/internal/flows"
)

// UpdatePassword re-verifies the caller's current password and persists a
// fresh hash envelope for the new one. The new password must differ from the
// current one and satisfy the configured minimum length.
func (e *Engine) UpdatePassword(ctx context.Context, userID, currentPassword, newPassword string) error {
	return internalflows.RunUpdatePassword(ctx, userID, currentPassword, newPassword, e.accountFlowDeps())
}

// UpdateEmail re-verifies the caller's current password, then atomically
// updates the email address, invalidates every outstanding purpose token,
// and issues a verification token for the new address. The store clears the
// verified flag as part of the email update.
func (e *Engine) UpdateEmail(ctx context.Context, userID, currentPassword, newEmail string) error {
	return internalflows.RunUpdateEmail(ctx, userID, currentPassword, newEmail, e.accountFlowDeps())
}

func (e *Engine) accountFlowDeps() internalflows.AccountDeps {
	deps := internalflows.AccountDeps{
		VerifyPurpose: uint8(PurposeVerifyEmail),
		ResetPurpose:  uint8(PurposeResetPassword),
		Metrics: internalflows.AccountMetrics{
			PasswordChangeSuccess:    int(MetricPasswordChangeSuccess),
			PasswordChangeInvalidOld: int(MetricPasswordChangeInvalidOld),
			EmailChange:              int(MetricEmailChange),
			LoginLocked:              int(MetricLoginLocked),
			MailerFailure:            int(MetricMailerFailure),
		},
		Events: internalflows.AccountEvents{
			PasswordChanged: EventPasswordChanged,
			EmailChanged:    EventEmailChanged,
			Locked:          EventLoginLocked,
			MailerFailure:   EventMailerFailure,
		},
		Errors: internalflows.AccountErrors{
			EngineNotReady:     ErrEngineNotReady,
			UserNotFound:       ErrUserNotFound,
			InvalidCredentials: ErrInvalidCredentials,
			PasswordReuse:      ErrPasswordReuse,
			DeliveryFailed:     ErrDeliveryFailed,
			Locked: func(unlockAt time.Time) error {
				return &LockedError{UnlockAt: unlockAt}
			},
		},
	}
	if e == nil {
		return deps
	}

	deps.Credentials = e.credentialFlowDeps()
	deps.PasswordMinLength = e.config.Password.MinLength
	deps.Tokens = e.purposeTokenFlowDeps()
	deps.VerifyTokenLength = e.config.EmailVerification.TokenLength
	deps.VerifyTokenTTL = e.config.EmailVerification.TokenTTL
	deps.MetricInc = e.flowMetricInc
	deps.EmitAudit = e.emitAudit
	deps.Warn = e.warnf

	if e.transactor != nil {
		deps.InTx = e.transactor.InTx
	}
	if e.userStore != nil {
		deps.GetAccountByID = func(ctx context.Context, userID string) (*internalflows.Account, error) {
			state, err := e.userStore.GetSecurityStateByID(ctx, userID)
			if err != nil {
				return nil, err
			}
			return toFlowAccount(state), nil
		}
		deps.UpdateEmail = e.userStore.UpdateEmail
	}
	if e.mailer != nil {
		deps.DeliverToken = func(ctx context.Context, email, raw string) error {
			body := fmt.Sprintf(
				"Use this token to verify your new email address: %s\nIt expires in %s.",
				raw, e.config.EmailVerification.TokenTTL,
			)
			return e.mailer.Send(ctx, email, "Verify your new email address", body, false)
		}
	}

	return deps
}
