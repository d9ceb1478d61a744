package credcore

import (
	"errors"

	"github.com/credware/credcore/crypt"
	"github.com/credware/credcore/internal/lockout"
	"github.com/credware/credcore/jwt"
	"github.com/credware/credcore/password"
	"github.com/credware/credcore/token"
)

// Builder assembles an Engine from configuration and host-side
// collaborators. A Builder is single-use: Build may be called once.
type Builder struct {
	config Config

	userStore    UserStore
	sessionStore SessionStore
	tokenStore   TokenStore
	transactor   Transactor
	mailer       Mailer
	hasher       *password.Hasher
	auditSink    AuditSink

	built bool
}

// New returns a Builder seeded with defaults.
func New() *Builder {
	return &Builder{
		config: defaultConfig(),
	}
}

// WithConfig replaces the default configuration. The config is cloned;
// later mutation of cfg does not affect the builder.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithUserStore sets the account persistence collaborator. Required.
func (b *Builder) WithUserStore(store UserStore) *Builder {
	b.userStore = store
	return b
}

// WithSessionStore sets the refresh-session persistence collaborator. Required.
func (b *Builder) WithSessionStore(store SessionStore) *Builder {
	b.sessionStore = store
	return b
}

// WithTokenStore sets the purpose-token persistence collaborator. Required.
func (b *Builder) WithTokenStore(store TokenStore) *Builder {
	b.tokenStore = store
	return b
}

// WithTransactor sets the transaction boundary used for multi-store writes.
// Defaults to NopTransactor when omitted.
func (b *Builder) WithTransactor(tx Transactor) *Builder {
	b.transactor = tx
	return b
}

// WithMailer sets the outbound message delivery collaborator. Without a
// mailer the verification and reset request operations return
// ErrEngineNotReady.
func (b *Builder) WithMailer(m Mailer) *Builder {
	b.mailer = m
	return b
}

// WithHasher overrides the default password hasher. Useful for hosts that
// registered extra legacy envelope versions via password.NewWithVersions.
func (b *Builder) WithHasher(h *password.Hasher) *Builder {
	b.hasher = h
	return b
}

// WithAuditSink sets the destination for audit events. Events are only
// dispatched when Config.Audit.Enabled is set.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

// WithMetricsEnabled toggles in-process metric counters.
func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// WithLatencyHistograms toggles verify-latency histogram collection.
func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// Build validates the configuration, constructs every internal component,
// and returns a ready Engine. The builder cannot be reused afterwards.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if b.userStore == nil {
		return nil, errors.New("user store required")
	}
	if b.sessionStore == nil {
		return nil, errors.New("session store required")
	}
	if b.tokenStore == nil {
		return nil, errors.New("token store required")
	}

	engine := &Engine{
		config:       cfg,
		userStore:    b.userStore,
		sessionStore: b.sessionStore,
		tokenStore:   b.tokenStore,
		transactor:   b.transactor,
		mailer:       b.mailer,
	}
	if engine.transactor == nil {
		engine.transactor = NopTransactor{}
	}

	engine.policy = lockout.Policy{
		FirstThreshold:     cfg.Lockout.FirstThreshold,
		SecondThreshold:    cfg.Lockout.SecondThreshold,
		FirstLockDuration:  cfg.Lockout.FirstLockDuration,
		SecondLockDuration: cfg.Lockout.SecondLockDuration,
	}
	if err := engine.policy.Validate(); err != nil {
		return nil, err
	}

	engine.hasher = b.hasher
	if engine.hasher == nil {
		engine.hasher = password.New()
	}

	if len(cfg.Encryption.Key) > 0 {
		typeID := cfg.Encryption.TypeID
		if typeID == 0 {
			typeID = crypt.DefaultTypeID
		}
		c, err := crypt.New(cfg.Encryption.Key, typeID)
		if err != nil {
			return nil, err
		}
		engine.cipher = c
	}

	jm, err := jwt.NewManager(jwt.Config{
		AccessTTL:     cfg.JWT.AccessTTL,
		RefreshTTL:    cfg.JWT.RefreshTTL,
		RefreshLength: cfg.JWT.RefreshLength,
		SigningMethod: jwt.SigningMethod(cfg.JWT.SigningMethod),
		PrivateKey:    cloneBytes(cfg.JWT.PrivateKey),
		PublicKey:     cloneBytes(cfg.JWT.PublicKey),
		Issuer:        cfg.JWT.Issuer,
		Audience:      cfg.JWT.Audience,
		Leeway:        cfg.JWT.Leeway,
	})
	if err != nil {
		return nil, err
	}
	engine.jwtManager = jm

	engine.tokens = token.New()
	engine.audit = newAuditDispatcher(cfg.Audit, b.auditSink)
	engine.metrics = NewMetrics(cfg.Metrics)

	b.built = true

	return engine, nil
}
