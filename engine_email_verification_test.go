package credcore

import (
	"context"
	"errors"
	"strings"
	"testing"
)

// tokenFromMail pulls the raw token out of a delivery body. Bodies place the
// token at the end of the first line, after a colon.
func tokenFromMail(t *testing.T, mail sentMail) string {
	t.Helper()
	line, _, _ := strings.Cut(mail.Body, "\n")
	_, token, ok := strings.Cut(line, ": ")
	if !ok || token == "" {
		t.Fatalf("no token in mail body %q", mail.Body)
	}
	return token
}

func TestEmailVerificationRoundTrip(t *testing.T) {
	env := newTestEnv(t, nil)
	env.seedUser(t, "u1", "alice@example.com", "correct-horse-battery")

	if err := env.engine.RequestEmailVerification(context.Background(), "u1"); err != nil {
		t.Fatalf("RequestEmailVerification: %v", err)
	}

	mail := env.mailer.last(t)
	if mail.To != "alice@example.com" {
		t.Fatalf("mail to %q", mail.To)
	}
	raw := tokenFromMail(t, mail)

	if err := env.engine.ConfirmEmailVerification(context.Background(), raw); err != nil {
		t.Fatalf("ConfirmEmailVerification: %v", err)
	}
	if !env.users.state(t, "u1").EmailVerified {
		t.Fatal("account not marked verified")
	}
	if env.tokens.count("u1", PurposeVerifyEmail) != 0 {
		t.Fatal("token survived redemption")
	}
}

func TestEmailVerificationTokenIsSingleUse(t *testing.T) {
	env := newTestEnv(t, nil)
	env.seedUser(t, "u1", "alice@example.com", "correct-horse-battery")

	if err := env.engine.RequestEmailVerification(context.Background(), "u1"); err != nil {
		t.Fatalf("RequestEmailVerification: %v", err)
	}
	raw := tokenFromMail(t, env.mailer.last(t))

	if err := env.engine.ConfirmEmailVerification(context.Background(), raw); err != nil {
		t.Fatalf("first redemption: %v", err)
	}
	if err := env.engine.ConfirmEmailVerification(context.Background(), raw); !errors.Is(err, ErrTokenNotFound) {
		t.Fatalf("second redemption err = %v, want ErrTokenNotFound", err)
	}
}

func TestEmailVerificationExpiredTokenIsBurned(t *testing.T) {
	env := newTestEnv(t, nil)
	env.seedUser(t, "u1", "alice@example.com", "correct-horse-battery")

	if err := env.engine.RequestEmailVerification(context.Background(), "u1"); err != nil {
		t.Fatalf("RequestEmailVerification: %v", err)
	}
	raw := tokenFromMail(t, env.mailer.last(t))
	env.tokens.expireRaw(raw, PurposeVerifyEmail)

	if err := env.engine.ConfirmEmailVerification(context.Background(), raw); !errors.Is(err, ErrTokenExpired) {
		t.Fatalf("err = %v, want ErrTokenExpired", err)
	}
	if env.users.state(t, "u1").EmailVerified {
		t.Fatal("expired token verified the account")
	}

	// Expired consumption still burns the token.
	if err := env.engine.ConfirmEmailVerification(context.Background(), raw); !errors.Is(err, ErrTokenNotFound) {
		t.Fatalf("replay err = %v, want ErrTokenNotFound", err)
	}
}

func TestEmailVerificationReissueInvalidatesPrior(t *testing.T) {
	env := newTestEnv(t, nil)
	env.seedUser(t, "u1", "alice@example.com", "correct-horse-battery")

	if err := env.engine.RequestEmailVerification(context.Background(), "u1"); err != nil {
		t.Fatalf("first request: %v", err)
	}
	first := tokenFromMail(t, env.mailer.last(t))

	if err := env.engine.RequestEmailVerification(context.Background(), "u1"); err != nil {
		t.Fatalf("second request: %v", err)
	}
	second := tokenFromMail(t, env.mailer.last(t))

	if env.tokens.count("u1", PurposeVerifyEmail) != 1 {
		t.Fatalf("live tokens = %d, want 1", env.tokens.count("u1", PurposeVerifyEmail))
	}
	if err := env.engine.ConfirmEmailVerification(context.Background(), first); !errors.Is(err, ErrTokenNotFound) {
		t.Fatalf("superseded token err = %v, want ErrTokenNotFound", err)
	}
	if err := env.engine.ConfirmEmailVerification(context.Background(), second); err != nil {
		t.Fatalf("fresh token: %v", err)
	}
}

func TestEmailVerificationAlreadyVerified(t *testing.T) {
	env := newTestEnv(t, nil)
	env.seedUser(t, "u1", "alice@example.com", "correct-horse-battery")
	env.users.mutate("u1", func(s *SecurityState) {
		s.EmailVerified = true
	})

	err := env.engine.RequestEmailVerification(context.Background(), "u1")
	if !errors.Is(err, ErrEmailAlreadyVerified) {
		t.Fatalf("err = %v, want ErrEmailAlreadyVerified", err)
	}
}

func TestEmailVerificationUnknownUser(t *testing.T) {
	env := newTestEnv(t, nil)

	err := env.engine.RequestEmailVerification(context.Background(), "ghost")
	if !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("err = %v, want ErrUserNotFound", err)
	}
}

func TestEmailVerificationClearsLockout(t *testing.T) {
	env := newTestEnv(t, nil)
	env.seedUser(t, "u1", "alice@example.com", "correct-horse-battery")
	env.users.mutate("u1", func(s *SecurityState) {
		s.FailedAttempts = 3
	})

	if err := env.engine.RequestEmailVerification(context.Background(), "u1"); err != nil {
		t.Fatalf("RequestEmailVerification: %v", err)
	}
	raw := tokenFromMail(t, env.mailer.last(t))
	if err := env.engine.ConfirmEmailVerification(context.Background(), raw); err != nil {
		t.Fatalf("ConfirmEmailVerification: %v", err)
	}

	state := env.users.state(t, "u1")
	if state.FailedAttempts != 0 || state.Locked {
		t.Fatalf("lockout state not cleared: %+v", state)
	}
}

func TestEmailVerificationDeliveryFailureDegrades(t *testing.T) {
	env := newTestEnv(t, nil)
	env.seedUser(t, "u1", "alice@example.com", "correct-horse-battery")
	env.mailer.failWith(errors.New("smtp down"))

	err := env.engine.RequestEmailVerification(context.Background(), "u1")
	if !errors.Is(err, ErrDeliveryFailed) {
		t.Fatalf("err = %v, want ErrDeliveryFailed", err)
	}

	// The token was persisted before delivery was attempted; it stays live.
	if env.tokens.count("u1", PurposeVerifyEmail) != 1 {
		t.Fatalf("live tokens = %d, want 1", env.tokens.count("u1", PurposeVerifyEmail))
	}
}
