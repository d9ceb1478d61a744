package credcore

import (
	"errors"
	"net/http"
	"time"
)

// Config carries every tunable of the engine. Values are set before Build
// and treated as immutable afterwards.
type Config struct {
	JWT               JWTConfig
	Password          PasswordConfig
	Encryption        EncryptionConfig
	Lockout           LockoutConfig
	EmailVerification EmailVerificationConfig
	PasswordReset     PasswordResetConfig
	Cookie            CookieConfig
	Audit             AuditConfig
	Metrics           MetricsConfig
}

/*
====================================
JWT CONFIG
====================================
*/

// JWTConfig configures access-token signing and refresh-token minting.
type JWTConfig struct {
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	SigningMethod string // "ed25519" (default), "hs256" optional
	PrivateKey    []byte
	PublicKey     []byte
	Issuer        string
	Audience      string
	Leeway        time.Duration
	RefreshLength int
}

/*
====================================
PASSWORD CONFIG
====================================
*/

// PasswordConfig configures the password policy and hash lifecycle.
type PasswordConfig struct {
	MinLength      int
	UpgradeOnLogin bool
}

/*
====================================
ENCRYPTION CONFIG
====================================
*/

// EncryptionConfig configures the optional AES-256-GCM cipher. The cipher
// is only built when Key is set; Key must then be exactly 32 bytes.
type EncryptionConfig struct {
	Key    []byte
	TypeID uint8
}

/*
====================================
LOCKOUT CONFIG
====================================
*/

// LockoutConfig configures the two-tier failed-attempt lockout.
type LockoutConfig struct {
	FirstThreshold     int
	SecondThreshold    int
	FirstLockDuration  time.Duration
	SecondLockDuration time.Duration
}

/*
====================================
PURPOSE TOKEN CONFIG
====================================
*/

// EmailVerificationConfig configures verification token issuance.
type EmailVerificationConfig struct {
	TokenTTL    time.Duration
	TokenLength int
}

// PasswordResetConfig configures reset token issuance.
type PasswordResetConfig struct {
	TokenTTL    time.Duration
	TokenLength int
}

/*
====================================
COOKIE CONFIG
====================================
*/

// CookieConfig shapes the refresh-token cookie built by RefreshCookie.
type CookieConfig struct {
	Name     string
	Path     string
	Domain   string
	Secure   bool
	SameSite http.SameSite
}

/*
====================================
OBSERVABILITY CONFIG
====================================
*/

// AuditConfig controls the async audit dispatcher.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

// MetricsConfig controls in-process counters and histograms.
type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

/*
====================================
DEFAULT CONFIG
====================================
*/

// DefaultConfig returns the configuration a fresh Builder starts from.
// Hosts that only need to adjust a few fields can start here and pass the
// result to Builder.WithConfig.
func DefaultConfig() Config {
	return defaultConfig()
}

func defaultConfig() Config {
	return Config{
		JWT: JWTConfig{
			AccessTTL:     5 * time.Minute,
			RefreshTTL:    7 * 24 * time.Hour,
			SigningMethod: "ed25519",
			Leeway:        30 * time.Second,
			RefreshLength: 48,
		},
		Password: PasswordConfig{
			MinLength:      10,
			UpgradeOnLogin: true,
		},
		Lockout: LockoutConfig{
			FirstThreshold:     5,
			SecondThreshold:    10,
			FirstLockDuration:  15 * time.Minute,
			SecondLockDuration: time.Hour,
		},
		EmailVerification: EmailVerificationConfig{
			TokenTTL:    24 * time.Hour,
			TokenLength: 32,
		},
		PasswordReset: PasswordResetConfig{
			TokenTTL:    15 * time.Minute,
			TokenLength: 32,
		},
		Cookie: CookieConfig{
			Name:     "refresh_token",
			Path:     "/",
			Secure:   true,
			SameSite: http.SameSiteStrictMode,
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 1024,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled:                 false,
			EnableLatencyHistograms: false,
		},
	}
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.JWT.PrivateKey = cloneBytes(cfg.JWT.PrivateKey)
	out.JWT.PublicKey = cloneBytes(cfg.JWT.PublicKey)
	out.Encryption.Key = cloneBytes(cfg.Encryption.Key)
	return out
}

func cloneBytes(b []byte) []byte {
	if len(b) == 0 {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

/*
====================================
VALIDATION
====================================
*/

// Validate checks hard floors across all sections. It is called by Build
// after defaults are applied.
func (c *Config) Validate() error {
	// JWT
	if c.JWT.AccessTTL <= 0 {
		return errors.New("JWT AccessTTL must be > 0")
	}
	if c.JWT.RefreshTTL <= 0 {
		return errors.New("JWT RefreshTTL must be > 0")
	}
	if c.JWT.SigningMethod != "ed25519" && c.JWT.SigningMethod != "hs256" {
		return errors.New("unsupported JWT signing method")
	}
	if c.JWT.SigningMethod == "ed25519" && len(c.JWT.PublicKey) == 0 {
		return errors.New("ed25519 requires PublicKey")
	}
	if len(c.JWT.PrivateKey) == 0 {
		return errors.New("JWT PrivateKey is required")
	}
	if c.JWT.RefreshLength < 32 {
		return errors.New("JWT RefreshLength must be >= 32")
	}
	if c.JWT.Leeway < 0 || c.JWT.Leeway > 2*time.Minute {
		return errors.New("JWT Leeway must be between 0 and 2m")
	}

	// Password
	if c.Password.MinLength < 10 {
		return errors.New("Password MinLength must be >= 10")
	}

	// Encryption
	if len(c.Encryption.Key) > 0 && len(c.Encryption.Key) != 32 {
		return errors.New("Encryption Key must be exactly 32 bytes")
	}

	// Lockout
	if c.Lockout.FirstThreshold < 3 {
		return errors.New("Lockout FirstThreshold must be >= 3")
	}
	if c.Lockout.SecondThreshold <= c.Lockout.FirstThreshold {
		return errors.New("Lockout SecondThreshold must be > FirstThreshold")
	}
	if c.Lockout.FirstLockDuration <= 0 || c.Lockout.SecondLockDuration <= 0 {
		return errors.New("Lockout durations must be > 0")
	}

	// Purpose tokens
	if c.EmailVerification.TokenTTL <= 0 {
		return errors.New("EmailVerification TokenTTL must be > 0")
	}
	if c.EmailVerification.TokenLength < 16 {
		return errors.New("EmailVerification TokenLength must be >= 16")
	}
	if c.PasswordReset.TokenTTL <= 0 {
		return errors.New("PasswordReset TokenTTL must be > 0")
	}
	if c.PasswordReset.TokenLength < 16 {
		return errors.New("PasswordReset TokenLength must be >= 16")
	}

	// Cookie
	if c.Cookie.Name == "" {
		return errors.New("Cookie Name must not be empty")
	}

	// Audit
	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("Audit BufferSize must be > 0 when audit is enabled")
	}

	return nil
}
