package credcore

import (
	"context"
	"encoding/base64"
	"errors"
	"strings"
	"testing"

	"github.com/credware/credcore/crypt"
)

func TestBuilderRequiresStores(t *testing.T) {
	cfg := defaultConfig()
	cfg.JWT.SigningMethod = "hs256"
	cfg.JWT.PrivateKey = testJWTKey

	cases := []struct {
		name  string
		build func() (*Engine, error)
		want  string
	}{
		{
			name: "missing user store",
			build: func() (*Engine, error) {
				return New().WithConfig(cfg).
					WithSessionStore(newMemSessionStore()).
					WithTokenStore(newMemTokenStore()).
					Build()
			},
			want: "user store",
		},
		{
			name: "missing session store",
			build: func() (*Engine, error) {
				return New().WithConfig(cfg).
					WithUserStore(newMemUserStore()).
					WithTokenStore(newMemTokenStore()).
					Build()
			},
			want: "session store",
		},
		{
			name: "missing token store",
			build: func() (*Engine, error) {
				return New().WithConfig(cfg).
					WithUserStore(newMemUserStore()).
					WithSessionStore(newMemSessionStore()).
					Build()
			},
			want: "token store",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := tc.build()
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("err = %v, want mention of %q", err, tc.want)
			}
		})
	}
}

func TestBuilderIsSingleUse(t *testing.T) {
	cfg := defaultConfig()
	cfg.JWT.SigningMethod = "hs256"
	cfg.JWT.PrivateKey = testJWTKey

	b := New().WithConfig(cfg).
		WithUserStore(newMemUserStore()).
		WithSessionStore(newMemSessionStore()).
		WithTokenStore(newMemTokenStore())

	engine, err := b.Build()
	if err != nil {
		t.Fatalf("first Build: %v", err)
	}
	defer engine.Close()

	if _, err := b.Build(); err == nil {
		t.Fatal("second Build succeeded, want error")
	}
}

func TestBuilderRejectsInvalidConfig(t *testing.T) {
	cfg := defaultConfig()
	// hs256 selected but no key supplied.
	cfg.JWT.SigningMethod = "hs256"

	_, err := New().WithConfig(cfg).
		WithUserStore(newMemUserStore()).
		WithSessionStore(newMemSessionStore()).
		WithTokenStore(newMemTokenStore()).
		Build()
	if err == nil {
		t.Fatal("Build succeeded with missing signing key")
	}
}

func TestBuilderDefaultsTransactor(t *testing.T) {
	env := newTestEnv(t, nil)
	env.seedUser(t, "u1", "alice@example.com", "correct-horse-battery")

	// The verification flow runs inside the transactor; with the default
	// NopTransactor the callback must still execute.
	if err := env.engine.RequestEmailVerification(context.Background(), "u1"); err != nil {
		t.Fatalf("RequestEmailVerification: %v", err)
	}
	if env.tokens.count("u1", PurposeVerifyEmail) != 1 {
		t.Fatal("token not stored through NopTransactor")
	}
}

func TestEngineEncryptionDisabledWithoutKey(t *testing.T) {
	env := newTestEnv(t, nil)

	if _, err := env.engine.Encrypt("secret"); !errors.Is(err, ErrEncryptionDisabled) {
		t.Fatalf("Encrypt err = %v, want ErrEncryptionDisabled", err)
	}
	if _, err := env.engine.Decrypt("AAECAw=="); !errors.Is(err, ErrEncryptionDisabled) {
		t.Fatalf("Decrypt err = %v, want ErrEncryptionDisabled", err)
	}
}

func TestEngineEncryptionRoundTrip(t *testing.T) {
	env := newTestEnv(t, func(cfg *Config) {
		cfg.Encryption.Key = []byte("0123456789abcdef0123456789abcdef")
		cfg.Encryption.TypeID = 7
	})

	envelope, err := env.engine.Encrypt("top secret value")
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}
	if envelope == "top secret value" {
		t.Fatal("envelope equals plaintext")
	}

	plain, err := env.engine.Decrypt(envelope)
	if err != nil {
		t.Fatalf("Decrypt: %v", err)
	}
	if string(plain) != "top secret value" {
		t.Fatalf("plaintext = %q", plain)
	}

	if !env.engine.CompareEncrypted(envelope, "top secret value") {
		t.Fatal("CompareEncrypted rejected the original value")
	}
	if env.engine.CompareEncrypted(envelope, "some other value") {
		t.Fatal("CompareEncrypted accepted a different value")
	}
}

func TestEngineEncryptionDefaultTypeID(t *testing.T) {
	env := newTestEnv(t, func(cfg *Config) {
		cfg.Encryption.Key = []byte("0123456789abcdef0123456789abcdef")
	})

	envelope, err := env.engine.Encrypt("top secret value")
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}
	raw, err := base64.StdEncoding.DecodeString(envelope)
	if err != nil {
		t.Fatalf("envelope is not valid base64: %v", err)
	}
	if raw[0] != crypt.DefaultTypeID {
		t.Fatalf("envelope type byte = %d, want %d", raw[0], crypt.DefaultTypeID)
	}

	plain, err := env.engine.Decrypt(envelope)
	if err != nil {
		t.Fatalf("Decrypt: %v", err)
	}
	if string(plain) != "top secret value" {
		t.Fatalf("plaintext = %q", plain)
	}
}

func TestNilEngineIsNotReady(t *testing.T) {
	var e *Engine

	if _, err := e.Login(context.Background(), "alice@example.com", "pw"); !errors.Is(err, ErrEngineNotReady) {
		t.Fatalf("Login err = %v, want ErrEngineNotReady", err)
	}
	if _, err := e.Refresh(context.Background(), "u1", "token"); !errors.Is(err, ErrEngineNotReady) {
		t.Fatalf("Refresh err = %v, want ErrEngineNotReady", err)
	}
	if err := e.RequestEmailVerification(context.Background(), "u1"); !errors.Is(err, ErrEngineNotReady) {
		t.Fatalf("RequestEmailVerification err = %v, want ErrEngineNotReady", err)
	}
}
