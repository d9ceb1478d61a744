package credcore

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/credware/credcore/crypt"
	internalflows "github.com/credware/credcore/internal/flows"
	"github.com/credware/credcore/internal/lockout"
	"github.com/credware/credcore/jwt"
	"github.com/credware/credcore/password"
	"github.com/credware/credcore/token"
)

// Engine is the credential security core. Instances are built once through
// Builder.Build and are safe for concurrent use; all mutable state lives in
// the host-provided stores.
type Engine struct {
	config       Config
	userStore    UserStore
	sessionStore SessionStore
	tokenStore   TokenStore
	transactor   Transactor
	mailer       Mailer

	hasher     *password.Hasher
	cipher     *crypt.Cipher
	jwtManager *jwt.Manager
	tokens     token.Generator
	policy     lockout.Policy

	audit   *auditDispatcher
	metrics *Metrics
}

// Close flushes and stops the audit dispatcher. The engine must not be used
// after Close.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	if e.audit != nil {
		e.audit.Close()
	}
}

// AuditDropped reports how many audit events were discarded because the
// dispatcher buffer was full.
func (e *Engine) AuditDropped() uint64 {
	if e == nil || e.audit == nil {
		return 0
	}
	return e.audit.Dropped()
}

// MetricsSnapshot returns a point-in-time copy of all counters and
// histograms.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return e.metrics.Snapshot()
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Inc(id)
}

func (e *Engine) warnf(format string, args ...any) {
	log.Printf(format, args...)
}

/*
====================================
AUDIT EMISSION
====================================
*/

func (e *Engine) emitAudit(
	ctx context.Context,
	eventType string,
	success bool,
	userID string,
	err error,
	metadataBuilder func() map[string]string,
) {
	if e == nil || e.audit == nil {
		return
	}

	var metadata map[string]string
	if metadataBuilder != nil {
		metadata = metadataBuilder()
	}

	event := AuditEvent{
		Timestamp: time.Now().UTC(),
		EventType: eventType,
		UserID:    userID,
		IP:        clientIPFromContext(ctx),
		UserAgent: userAgentFromContext(ctx),
		Success:   success,
		Metadata:  metadata,
	}
	if sid, ok := metadata["session_id"]; ok {
		event.SessionID = sid
		delete(metadata, "session_id")
	}
	if code := auditErrorCode(err); code != "" {
		event.Error = code
	}

	e.audit.Emit(ctx, event)
}

func auditErrorCode(err error) string {
	if err == nil {
		return ""
	}

	var ve *internalflows.ValidationError
	switch {
	case errors.Is(err, ErrInvalidCredentials):
		return "invalid_credentials"
	case errors.Is(err, ErrAccountLocked):
		return "account_locked"
	case errors.Is(err, ErrUserNotFound):
		return "user_not_found"
	case errors.Is(err, ErrSessionNotFound):
		return "session_not_found"
	case errors.Is(err, ErrSessionExpired):
		return "session_expired"
	case errors.Is(err, ErrTokenNotFound):
		return "token_not_found"
	case errors.Is(err, ErrTokenExpired):
		return "token_expired"
	case errors.Is(err, ErrUnauthorized):
		return "unauthorized"
	case errors.Is(err, ErrEmailAlreadyVerified):
		return "already_verified"
	case errors.Is(err, ErrDeliveryFailed):
		return "delivery_failed"
	case errors.Is(err, ErrPasswordReuse):
		return "password_reuse"
	case errors.As(err, &ve):
		return "validation"
	default:
		return "internal_error"
	}
}

/*
====================================
SHARED FLOW WIRING
====================================
*/

// verifyPassword wraps the hasher with optional latency observation.
func (e *Engine) verifyPassword(envelope, pw string) (password.Status, error) {
	start := time.Now()
	status, err := e.hasher.Verify(envelope, pw)
	if e.metrics != nil && e.metrics.LatencyEnabled() {
		e.metrics.Observe(MetricVerifyLatency, time.Since(start))
	}
	return status, err
}

func (e *Engine) credentialFlowDeps() internalflows.CredentialDeps {
	deps := internalflows.CredentialDeps{
		Policy:         e.policy,
		UpgradeOnLogin: e.config.Password.UpgradeOnLogin,
		VerifyPassword: e.verifyPassword,
		HashPassword:   e.hasher.Hash,
		RehashMetric:   int(MetricPasswordRehash),
		RehashEvent:    EventPasswordRehash,
		CorruptMetric:  int(MetricEnvelopeCorrupt),
	}
	if e.userStore != nil {
		deps.UpdateSecurityState = e.userStore.UpdateSecurityState
		deps.UpdatePasswordHash = e.userStore.UpdatePasswordHash
	}
	return deps
}

func (e *Engine) issueTokens(userID string, roles []string, emailVerified bool, sessionID string) (*internalflows.TokenPair, error) {
	pair, err := e.jwtManager.Issue(jwt.IssueRequest{
		UserID:        userID,
		Roles:         roles,
		EmailVerified: emailVerified,
		SessionID:     sessionID,
	}, nil)
	if err != nil {
		return nil, err
	}
	return &internalflows.TokenPair{
		AccessToken:      pair.AccessToken,
		RefreshToken:     pair.RefreshToken,
		RefreshExpiresAt: pair.RefreshExpiresAt,
		SessionID:        pair.SessionID,
	}, nil
}

func (e *Engine) flowMetricInc(id int) {
	e.metricInc(MetricID(id))
}

func (e *Engine) purposeTokenFlowDeps() internalflows.PurposeTokenDeps {
	deps := internalflows.PurposeTokenDeps{
		HashToken:     password.HashValue,
		TokenNotFound: ErrTokenNotFound,
		TokenExpired:  ErrTokenExpired,
	}
	if e == nil {
		return deps
	}

	deps.GenerateToken = e.tokens.GenerateURLSafe
	if e.transactor != nil {
		deps.InTx = e.transactor.InTx
	}
	if e.tokenStore != nil {
		deps.AddToken = func(ctx context.Context, record internalflows.TokenRecord) error {
			return e.tokenStore.Add(ctx, fromFlowToken(record))
		}
		deps.GetToken = func(ctx context.Context, hash string, purpose uint8) (*internalflows.TokenRecord, error) {
			record, err := e.tokenStore.GetByHashAndPurpose(ctx, hash, Purpose(purpose))
			if err != nil {
				return nil, err
			}
			return toFlowToken(record), nil
		}
		deps.DeleteToken = func(ctx context.Context, hash string, purpose uint8) error {
			return e.tokenStore.Delete(ctx, hash, Purpose(purpose))
		}
		deps.DeleteAllTokens = func(ctx context.Context, ownerID string, purpose uint8) error {
			return e.tokenStore.DeleteAllForOwnerAndPurpose(ctx, ownerID, Purpose(purpose))
		}
	}

	return deps
}

// resetSecurityState clears the failed-attempt counter and any active lock.
func (e *Engine) resetSecurityState(ctx context.Context, userID string) error {
	return e.userStore.UpdateSecurityState(ctx, userID, 0, false, time.Time{})
}

/*
====================================
TYPE CONVERSION
====================================
*/

func toFlowAccount(state *SecurityState) *internalflows.Account {
	if state == nil {
		return nil
	}
	return &internalflows.Account{
		UserID:         state.UserID,
		Email:          state.Email,
		PasswordHash:   state.PasswordHash,
		FailedAttempts: state.FailedAttempts,
		Locked:         state.Locked,
		UnlockAt:       state.UnlockAt,
		EmailVerified:  state.EmailVerified,
	}
}

func toFlowSession(s *Session) *internalflows.SessionRecord {
	if s == nil {
		return nil
	}
	return &internalflows.SessionRecord{
		ID:          s.ID,
		OwnerID:     s.OwnerID,
		RefreshHash: s.RefreshHash,
		ExpiresAt:   s.ExpiresAt,
		DeviceName:  s.DeviceName,
		DeviceInfo:  s.DeviceInfo,
		IPAddress:   s.IPAddress,
		CreatedAt:   s.CreatedAt,
	}
}

func fromFlowSession(s internalflows.SessionRecord) Session {
	return Session{
		ID:          s.ID,
		OwnerID:     s.OwnerID,
		RefreshHash: s.RefreshHash,
		ExpiresAt:   s.ExpiresAt,
		DeviceName:  s.DeviceName,
		DeviceInfo:  s.DeviceInfo,
		IPAddress:   s.IPAddress,
		CreatedAt:   s.CreatedAt,
	}
}

func toFlowToken(t *PurposeToken) *internalflows.TokenRecord {
	if t == nil {
		return nil
	}
	return &internalflows.TokenRecord{
		Hash:      t.Hash,
		Purpose:   uint8(t.Purpose),
		OwnerID:   t.OwnerID,
		ExpiresAt: t.ExpiresAt,
		CreatedAt: t.CreatedAt,
	}
}

func fromFlowToken(t internalflows.TokenRecord) PurposeToken {
	return PurposeToken{
		Hash:      t.Hash,
		Purpose:   Purpose(t.Purpose),
		OwnerID:   t.OwnerID,
		ExpiresAt: t.ExpiresAt,
		CreatedAt: t.CreatedAt,
	}
}

func fromFlowLoginResult(r *internalflows.LoginResult) *LoginResult {
	if r == nil {
		return nil
	}
	return &LoginResult{
		UserID:           r.UserID,
		AccessToken:      r.AccessToken,
		RefreshToken:     r.RefreshToken,
		RefreshExpiresAt: r.RefreshExpiresAt,
		SessionID:        r.SessionID,
	}
}

/*
====================================
TOKEN AND CIPHER SURFACE
====================================
*/

// ParseAccessToken verifies an access token's signature and registered
// claims and returns the embedded claim set.
func (e *Engine) ParseAccessToken(tokenStr string) (*jwt.AccessClaims, error) {
	if e == nil || e.jwtManager == nil {
		return nil, ErrEngineNotReady
	}
	return e.jwtManager.ParseAccess(tokenStr)
}

// Encrypt seals value with the configured AES-256-GCM key. Returns
// ErrEncryptionDisabled when no encryption key was configured.
func (e *Engine) Encrypt(value string) (string, error) {
	if e == nil || e.cipher == nil {
		return "", ErrEncryptionDisabled
	}
	return e.cipher.Encrypt(value)
}

// Decrypt opens an envelope produced by Encrypt.
func (e *Engine) Decrypt(envelope string) ([]byte, error) {
	if e == nil || e.cipher == nil {
		return nil, ErrEncryptionDisabled
	}
	return e.cipher.Decrypt(envelope)
}

// CompareEncrypted reports whether envelope decrypts to value. It returns
// false when encryption is disabled or the envelope is malformed.
func (e *Engine) CompareEncrypted(envelope, value string) bool {
	if e == nil || e.cipher == nil {
		return false
	}
	return e.cipher.Compare(envelope, value)
}
