package flows

import (
	"context"
	"fmt"
	"time"
)

// VerificationMetrics carries metric IDs for the email verification flows.
type VerificationMetrics struct {
	Request       int
	Success       int
	Failure       int
	MailerFailure int
}

// VerificationEvents carries audit event names for the email verification flows.
type VerificationEvents struct {
	Sent          string
	Verified      string
	Error         string
	MailerFailure string
}

// VerificationErrors carries host-level sentinels for the email verification flows.
type VerificationErrors struct {
	EngineNotReady  error
	UserNotFound    error
	AlreadyVerified error
	DeliveryFailed  error
}

// VerificationDeps captures email verification flow dependencies.
type VerificationDeps struct {
	Tokens      PurposeTokenDeps
	Purpose     uint8
	TokenLength int
	TokenTTL    time.Duration

	GetAccountByID     func(ctx context.Context, userID string) (*Account, error)
	MarkEmailVerified  func(ctx context.Context, userID string) error
	ResetSecurityState func(ctx context.Context, userID string) error
	DeliverToken       func(ctx context.Context, email, rawToken string) error

	Now       func() time.Time
	MetricInc func(int)
	EmitAudit func(ctx context.Context, event string, success bool, userID string, err error, meta func() map[string]string)

	Metrics VerificationMetrics
	Events  VerificationEvents
	Errors  VerificationErrors
}

// RunRequestEmailVerification mints a fresh single-use verification token,
// invalidating any prior one, and delivers it after commit. A delivery
// failure degrades: the token stays valid and DeliveryFailed is reported.
func RunRequestEmailVerification(ctx context.Context, userID string, deps VerificationDeps) error {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.MetricInc == nil {
		deps.MetricInc = func(int) {}
	}
	if deps.EmitAudit == nil {
		deps.EmitAudit = func(context.Context, string, bool, string, error, func() map[string]string) {}
	}
	if deps.GetAccountByID == nil || deps.Tokens.AddToken == nil || deps.DeliverToken == nil {
		return deps.Errors.EngineNotReady
	}

	if err := ValidateUserID(userID); err != nil {
		return err
	}

	account, err := deps.GetAccountByID(ctx, userID)
	if err != nil || account == nil {
		return deps.Errors.UserNotFound
	}
	if account.EmailVerified {
		return deps.Errors.AlreadyVerified
	}

	deps.Tokens.Now = deps.Now
	raw, err := IssuePurposeToken(ctx, userID, deps.Purpose, deps.TokenLength, deps.TokenTTL, deps.Tokens)
	if err != nil {
		return err
	}

	deps.MetricInc(deps.Metrics.Request)
	deps.EmitAudit(ctx, deps.Events.Sent, true, userID, nil, nil)

	if err := deps.DeliverToken(ctx, account.Email, raw); err != nil {
		deps.MetricInc(deps.Metrics.MailerFailure)
		deps.EmitAudit(ctx, deps.Events.MailerFailure, false, userID, err, nil)
		return fmt.Errorf("%w: %v", deps.Errors.DeliveryFailed, err)
	}
	return nil
}

// RunConfirmEmailVerification redeems a verification token: the account is
// marked verified and its lockout state cleared, in one transaction with the
// token deletion.
func RunConfirmEmailVerification(ctx context.Context, rawToken string, deps VerificationDeps) error {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.MetricInc == nil {
		deps.MetricInc = func(int) {}
	}
	if deps.EmitAudit == nil {
		deps.EmitAudit = func(context.Context, string, bool, string, error, func() map[string]string) {}
	}
	if deps.MarkEmailVerified == nil || deps.Tokens.GetToken == nil {
		return deps.Errors.EngineNotReady
	}

	if err := ValidateTokenInput(rawToken); err != nil {
		return err
	}

	deps.Tokens.Now = deps.Now
	ownerID, err := RedeemPurposeToken(ctx, rawToken, deps.Purpose, deps.Tokens, func(ctx context.Context, record TokenRecord) error {
		if err := deps.MarkEmailVerified(ctx, record.OwnerID); err != nil {
			return err
		}
		if deps.ResetSecurityState != nil {
			return deps.ResetSecurityState(ctx, record.OwnerID)
		}
		return nil
	})
	if err != nil {
		deps.MetricInc(deps.Metrics.Failure)
		deps.EmitAudit(ctx, deps.Events.Error, false, ownerID, err, nil)
		return err
	}

	deps.MetricInc(deps.Metrics.Success)
	deps.EmitAudit(ctx, deps.Events.Verified, true, ownerID, nil, nil)
	return nil
}
