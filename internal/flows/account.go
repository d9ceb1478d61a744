package flows

import (
	"context"
	"fmt"
	"time"
)

// AccountMetrics carries metric IDs for the account update flows.
type AccountMetrics struct {
	PasswordChangeSuccess    int
	PasswordChangeInvalidOld int
	EmailChange              int
	LoginLocked              int
	MailerFailure            int
}

// AccountEvents carries audit event names for the account update flows.
type AccountEvents struct {
	PasswordChanged string
	EmailChanged    string
	Locked          string
	MailerFailure   string
}

// AccountErrors carries host-level sentinels for the account update flows.
type AccountErrors struct {
	EngineNotReady     error
	UserNotFound       error
	InvalidCredentials error
	PasswordReuse      error
	DeliveryFailed     error
	Locked             func(unlockAt time.Time) error
}

// AccountDeps captures the password/email update flow dependencies.
type AccountDeps struct {
	Credentials       CredentialDeps
	PasswordMinLength int

	Tokens            PurposeTokenDeps
	VerifyPurpose     uint8
	ResetPurpose      uint8
	VerifyTokenLength int
	VerifyTokenTTL    time.Duration

	GetAccountByID func(ctx context.Context, userID string) (*Account, error)
	UpdateEmail    func(ctx context.Context, userID, newEmail string) error
	DeliverToken   func(ctx context.Context, email, rawToken string) error
	InTx           func(ctx context.Context, fn func(ctx context.Context) error) error

	Now       func() time.Time
	MetricInc func(int)
	EmitAudit func(ctx context.Context, event string, success bool, userID string, err error, meta func() map[string]string)
	Warn      func(string, ...any)

	Metrics AccountMetrics
	Events  AccountEvents
	Errors  AccountErrors
}

func (deps *AccountDeps) fillDefaults() {
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
	deps.Credentials.Now = deps.Now
	deps.Credentials.MetricInc = deps.MetricInc
	deps.Credentials.EmitAudit = deps.EmitAudit
	deps.Credentials.Warn = deps.Warn
	deps.Tokens.Now = deps.Now
}

// reverify runs the shared lockout gate and verification switch against the
// caller's current password.
func reverify(ctx context.Context, account *Account, currentPassword string, deps *AccountDeps) error {
	outcome, unlockAt := checkCredentials(ctx, account, currentPassword, deps.Credentials)
	switch outcome {
	case credentialLocked:
		deps.MetricInc(deps.Metrics.LoginLocked)
		lockedErr := deps.Errors.Locked(unlockAt)
		deps.EmitAudit(ctx, deps.Events.Locked, false, account.UserID, lockedErr, nil)
		return lockedErr
	case credentialFail:
		deps.MetricInc(deps.Metrics.PasswordChangeInvalidOld)
		return deps.Errors.InvalidCredentials
	case credentialCorrupt:
		return deps.Errors.InvalidCredentials
	}
	return nil
}

// RunUpdatePassword re-verifies the current password, then persists a fresh
// envelope for the new one.
func RunUpdatePassword(ctx context.Context, userID, currentPassword, newPassword string, deps AccountDeps) error {
	deps.fillDefaults()
	if deps.GetAccountByID == nil || deps.Credentials.VerifyPassword == nil || deps.Credentials.UpdatePasswordHash == nil {
		return deps.Errors.EngineNotReady
	}

	if err := ValidatePasswordChange(userID, currentPassword, newPassword, deps.PasswordMinLength); err != nil {
		return err
	}
	if newPassword == currentPassword {
		return deps.Errors.PasswordReuse
	}

	account, err := deps.GetAccountByID(ctx, userID)
	if err != nil || account == nil {
		return deps.Errors.UserNotFound
	}

	if err := reverify(ctx, account, currentPassword, &deps); err != nil {
		return err
	}

	newHash, err := deps.Credentials.HashPassword(newPassword)
	if err != nil {
		return err
	}
	if err := deps.Credentials.UpdatePasswordHash(ctx, userID, newHash); err != nil {
		return err
	}

	deps.MetricInc(deps.Metrics.PasswordChangeSuccess)
	deps.EmitAudit(ctx, deps.Events.PasswordChanged, true, userID, nil, nil)
	return nil
}

// RunUpdateEmail re-verifies the current password, then atomically updates
// the email, invalidates every outstanding purpose token, and issues a fresh
// verification token for the new address. Implementations of UpdateEmail
// clear the verified flag. Delivery runs after commit and degrades on failure.
func RunUpdateEmail(ctx context.Context, userID, currentPassword, newEmail string, deps AccountDeps) error {
	deps.fillDefaults()
	if deps.GetAccountByID == nil || deps.UpdateEmail == nil || deps.InTx == nil || deps.Tokens.AddToken == nil {
		return deps.Errors.EngineNotReady
	}

	if err := ValidateEmailChange(userID, currentPassword, newEmail); err != nil {
		return err
	}

	account, err := deps.GetAccountByID(ctx, userID)
	if err != nil || account == nil {
		return deps.Errors.UserNotFound
	}

	if err := reverify(ctx, account, currentPassword, &deps); err != nil {
		return err
	}

	var raw string
	err = deps.InTx(ctx, func(ctx context.Context) error {
		if err := deps.UpdateEmail(ctx, userID, newEmail); err != nil {
			return err
		}
		if err := deps.Tokens.DeleteAllTokens(ctx, userID, deps.ResetPurpose); err != nil {
			return err
		}
		var err error
		raw, err = issueTokenTx(ctx, userID, deps.VerifyPurpose, deps.VerifyTokenLength, deps.VerifyTokenTTL, deps.Tokens)
		return err
	})
	if err != nil {
		return err
	}

	deps.MetricInc(deps.Metrics.EmailChange)
	deps.EmitAudit(ctx, deps.Events.EmailChanged, true, userID, nil, func() map[string]string {
		return map[string]string{
			"new_email": newEmail,
		}
	})

	if deps.DeliverToken == nil {
		return nil
	}
	if err := deps.DeliverToken(ctx, newEmail, raw); err != nil {
		deps.MetricInc(deps.Metrics.MailerFailure)
		deps.EmitAudit(ctx, deps.Events.MailerFailure, false, userID, err, nil)
		return fmt.Errorf("%w: %v", deps.Errors.DeliveryFailed, err)
	}
	return nil
}
