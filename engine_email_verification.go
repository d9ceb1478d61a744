package credcore

import (
	"context"
	"fmt"

	internalflows "github.com/credware/credcore/internal/flows"
)

// RequestEmailVerification issues a fresh single-use verification token for
// userID, invalidating any prior one, and delivers it through the mailer.
//
// Delivery failure degrades: the token stays valid and the returned error
// wraps ErrDeliveryFailed so the caller can decide whether to retry.
func (e *Engine) RequestEmailVerification(ctx context.Context, userID string) error {
	return internalflows.RunRequestEmailVerification(ctx, userID, e.verificationFlowDeps())
}

// ConfirmEmailVerification redeems a verification token. The account is
// marked verified and its lockout state cleared atomically with the token
// deletion. A consumed or unknown token returns ErrTokenNotFound; an expired
// token is burned and ErrTokenExpired returned.
func (e *Engine) ConfirmEmailVerification(ctx context.Context, rawToken string) error {
	return internalflows.RunConfirmEmailVerification(ctx, rawToken, e.verificationFlowDeps())
}

func (e *Engine) verificationFlowDeps() internalflows.VerificationDeps {
	deps := internalflows.VerificationDeps{
		Purpose: uint8(PurposeVerifyEmail),
		Metrics: internalflows.VerificationMetrics{
			Request:       int(MetricVerificationRequest),
			Success:       int(MetricVerificationSuccess),
			Failure:       int(MetricVerificationFailure),
			MailerFailure: int(MetricMailerFailure),
		},
		Events: internalflows.VerificationEvents{
			Sent:          EventVerificationSent,
			Verified:      EventEmailVerified,
			Error:         EventVerificationError,
			MailerFailure: EventMailerFailure,
		},
		Errors: internalflows.VerificationErrors{
			EngineNotReady:  ErrEngineNotReady,
			UserNotFound:    ErrUserNotFound,
			AlreadyVerified: ErrEmailAlreadyVerified,
			DeliveryFailed:  ErrDeliveryFailed,
		},
	}
	if e == nil {
		return deps
	}

	deps.Tokens = e.purposeTokenFlowDeps()
	deps.TokenLength = e.config.EmailVerification.TokenLength
	deps.TokenTTL = e.config.EmailVerification.TokenTTL
	deps.MetricInc = e.flowMetricInc
	deps.EmitAudit = e.emitAudit

	if e.userStore != nil {
		deps.GetAccountByID = func(ctx context.Context, userID string) (*internalflows.Account, error) {
			state, err := e.userStore.GetSecurityStateByID(ctx, userID)
			if err != nil {
				return nil, err
			}
			return toFlowAccount(state), nil
		}
		deps.MarkEmailVerified = e.userStore.MarkEmailVerified
		deps.ResetSecurityState = e.resetSecurityState
	}
	if e.mailer != nil {
		deps.DeliverToken = func(ctx context.Context, email, raw string) error {
			body := fmt.Sprintf(
				"Use this token to verify your email address: %s\nIt expires in %s.",
				raw, e.config.EmailVerification.TokenTTL,
			)
			return e.mailer.Send(ctx, email, "Verify your email address", body, false)
		}
	}

	return deps
}
