package credcore

import (
	"context"
	"crypto/sha256"
	"sync"
	"testing"
	"time"

	"github.com/credware/credcore/password"
)

var testJWTKey = []byte("0123456789abcdef0123456789abcdef")

// fastHashParams keeps test hashing at the minimum PBKDF2 cost.
var fastHashParams = password.Params{
	New:        sha256.New,
	SaltSize:   16,
	KeySize:    16,
	Iterations: 1000,
}

func fastHasher(t *testing.T) *password.Hasher {
	t.Helper()
	h, err := password.NewWithVersions(2, map[byte]password.Params{
		1: fastHashParams,
		2: fastHashParams,
	})
	if err != nil {
		t.Fatalf("NewWithVersions: %v", err)
	}
	return h
}

// legacyHasher produces version-1 envelopes so rehash-on-login paths can be
// exercised against an engine whose current version is 2.
func legacyHasher(t *testing.T) *password.Hasher {
	t.Helper()
	h, err := password.NewWithVersions(1, map[byte]password.Params{
		1: fastHashParams,
	})
	if err != nil {
		t.Fatalf("NewWithVersions: %v", err)
	}
	return h
}

/*
====================================
IN-MEMORY STORES
====================================
*/

type memUserStore struct {
	mu      sync.Mutex
	byID    map[string]SecurityState
	byEmail map[string]string
	roles   map[string][]string
}

func newMemUserStore() *memUserStore {
	return &memUserStore{
		byID:    make(map[string]SecurityState),
		byEmail: make(map[string]string),
		roles:   make(map[string][]string),
	}
}

func (s *memUserStore) put(state SecurityState, roles []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byID[state.UserID] = state
	s.byEmail[state.Email] = state.UserID
	s.roles[state.UserID] = roles
}

func (s *memUserStore) state(t *testing.T, userID string) SecurityState {
	t.Helper()
	s.mu.Lock()
	defer s.mu.Unlock()
	state, ok := s.byID[userID]
	if !ok {
		t.Fatalf("user %q missing from store", userID)
	}
	return state
}

// mutate edits the stored state in place, bypassing the engine. Tests use it
// to fabricate expired locks without sleeping.
func (s *memUserStore) mutate(userID string, fn func(*SecurityState)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	state := s.byID[userID]
	fn(&state)
	s.byID[userID] = state
}

func (s *memUserStore) GetSecurityStateByEmail(_ context.Context, email string) (*SecurityState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.byEmail[email]
	if !ok {
		return nil, ErrUserNotFound
	}
	state := s.byID[id]
	return &state, nil
}

func (s *memUserStore) GetSecurityStateByID(_ context.Context, userID string) (*SecurityState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	state, ok := s.byID[userID]
	if !ok {
		return nil, ErrUserNotFound
	}
	return &state, nil
}

func (s *memUserStore) GetRolesByID(_ context.Context, userID string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.roles[userID]...), nil
}

func (s *memUserStore) UpdateSecurityState(_ context.Context, userID string, failedAttempts int, locked bool, unlockAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	state, ok := s.byID[userID]
	if !ok {
		return ErrUserNotFound
	}
	state.FailedAttempts = failedAttempts
	state.Locked = locked
	state.UnlockAt = unlockAt
	s.byID[userID] = state
	return nil
}

func (s *memUserStore) UpdatePasswordHash(_ context.Context, userID, newHash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	state, ok := s.byID[userID]
	if !ok {
		return ErrUserNotFound
	}
	state.PasswordHash = newHash
	s.byID[userID] = state
	return nil
}

func (s *memUserStore) UpdateEmail(_ context.Context, userID, newEmail string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	state, ok := s.byID[userID]
	if !ok {
		return ErrUserNotFound
	}
	delete(s.byEmail, state.Email)
	state.Email = newEmail
	state.EmailVerified = false
	s.byID[userID] = state
	s.byEmail[newEmail] = userID
	return nil
}

func (s *memUserStore) MarkEmailVerified(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	state, ok := s.byID[userID]
	if !ok {
		return ErrUserNotFound
	}
	state.EmailVerified = true
	s.byID[userID] = state
	return nil
}

type memSessionStore struct {
	mu       sync.Mutex
	sessions map[string]map[string]Session // ownerID -> sessionID -> session
}

func newMemSessionStore() *memSessionStore {
	return &memSessionStore{sessions: make(map[string]map[string]Session)}
}

func (s *memSessionStore) count(ownerID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions[ownerID])
}

func (s *memSessionStore) mutate(ownerID, sessionID string, fn func(*Session)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess := s.sessions[ownerID][sessionID]
	fn(&sess)
	s.sessions[ownerID][sessionID] = sess
}

func (s *memSessionStore) Add(_ context.Context, session Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	owned, ok := s.sessions[session.OwnerID]
	if !ok {
		owned = make(map[string]Session)
		s.sessions[session.OwnerID] = owned
	}
	owned[session.ID] = session
	return nil
}

func (s *memSessionStore) GetByOwnerAndHash(_ context.Context, ownerID, refreshHash string) (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, sess := range s.sessions[ownerID] {
		if sess.RefreshHash == refreshHash {
			out := sess
			return &out, nil
		}
	}
	return nil, ErrSessionNotFound
}

func (s *memSessionStore) Update(_ context.Context, session Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	owned, ok := s.sessions[session.OwnerID]
	if !ok {
		return ErrSessionNotFound
	}
	if _, ok := owned[session.ID]; !ok {
		return ErrSessionNotFound
	}
	owned[session.ID] = session
	return nil
}

func (s *memSessionStore) Delete(_ context.Context, ownerID, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions[ownerID], sessionID)
	return nil
}

func (s *memSessionStore) DeleteAllForOwner(_ context.Context, ownerID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, ownerID)
	return nil
}

type tokenKey struct {
	hash    string
	purpose Purpose
}

type memTokenStore struct {
	mu     sync.Mutex
	tokens map[tokenKey]PurposeToken
}

func newMemTokenStore() *memTokenStore {
	return &memTokenStore{tokens: make(map[tokenKey]PurposeToken)}
}

func (s *memTokenStore) count(ownerID string, purpose Purpose) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for key, token := range s.tokens {
		if token.OwnerID == ownerID && key.purpose == purpose {
			n++
		}
	}
	return n
}

// expireRaw backdates the stored record for a raw token.
func (s *memTokenStore) expireRaw(raw string, purpose Purpose) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := tokenKey{hash: password.HashValue(raw), purpose: purpose}
	token, ok := s.tokens[key]
	if !ok {
		return
	}
	token.ExpiresAt = time.Now().Add(-time.Minute)
	s.tokens[key] = token
}

func (s *memTokenStore) Add(_ context.Context, token PurposeToken) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens[tokenKey{hash: token.Hash, purpose: token.Purpose}] = token
	return nil
}

func (s *memTokenStore) GetByHashAndPurpose(_ context.Context, hash string, purpose Purpose) (*PurposeToken, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	token, ok := s.tokens[tokenKey{hash: hash, purpose: purpose}]
	if !ok {
		return nil, ErrTokenNotFound
	}
	return &token, nil
}

func (s *memTokenStore) Delete(_ context.Context, hash string, purpose Purpose) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := tokenKey{hash: hash, purpose: purpose}
	if _, ok := s.tokens[key]; !ok {
		return ErrTokenNotFound
	}
	delete(s.tokens, key)
	return nil
}

func (s *memTokenStore) DeleteAllForOwnerAndPurpose(_ context.Context, ownerID string, purpose Purpose) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for key, token := range s.tokens {
		if token.OwnerID == ownerID && key.purpose == purpose {
			delete(s.tokens, key)
		}
	}
	return nil
}

/*
====================================
RECORDING COLLABORATORS
====================================
*/

type sentMail struct {
	To      string
	Subject string
	Body    string
}

type captureMailer struct {
	mu   sync.Mutex
	sent []sentMail
	fail error
}

func (m *captureMailer) Send(_ context.Context, to, subject, body string, _ bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail != nil {
		return m.fail
	}
	m.sent = append(m.sent, sentMail{To: to, Subject: subject, Body: body})
	return nil
}

func (m *captureMailer) failWith(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fail = err
}

func (m *captureMailer) last(t *testing.T) sentMail {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.sent) == 0 {
		t.Fatal("no mail sent")
	}
	return m.sent[len(m.sent)-1]
}

func (m *captureMailer) sentCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sent)
}

type captureSink struct {
	mu     sync.Mutex
	events []AuditEvent
}

func (s *captureSink) Emit(_ context.Context, event AuditEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
}

func (s *captureSink) byType(eventType string) []AuditEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []AuditEvent
	for _, e := range s.events {
		if e.EventType == eventType {
			out = append(out, e)
		}
	}
	return out
}

/*
====================================
TEST ENVIRONMENT
====================================
*/

type testEnv struct {
	engine   *Engine
	users    *memUserStore
	sessions *memSessionStore
	tokens   *memTokenStore
	mailer   *captureMailer
	sink     *captureSink
	hasher   *password.Hasher
}

func newTestEnv(t *testing.T, mutate func(*Config)) *testEnv {
	t.Helper()

	cfg := defaultConfig()
	cfg.JWT.SigningMethod = "hs256"
	cfg.JWT.PrivateKey = testJWTKey
	cfg.Audit.Enabled = true
	cfg.Metrics.Enabled = true
	if mutate != nil {
		mutate(&cfg)
	}

	env := &testEnv{
		users:    newMemUserStore(),
		sessions: newMemSessionStore(),
		tokens:   newMemTokenStore(),
		mailer:   &captureMailer{},
		sink:     &captureSink{},
		hasher:   fastHasher(t),
	}

	engine, err := New().
		WithConfig(cfg).
		WithUserStore(env.users).
		WithSessionStore(env.sessions).
		WithTokenStore(env.tokens).
		WithMailer(env.mailer).
		WithHasher(env.hasher).
		WithAuditSink(env.sink).
		Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	env.engine = engine
	t.Cleanup(engine.Close)

	return env
}

func (env *testEnv) seedUser(t *testing.T, userID, email, pw string) {
	t.Helper()
	hash, err := env.hasher.Hash(pw)
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	env.users.put(SecurityState{
		UserID:       userID,
		Email:        email,
		PasswordHash: hash,
	}, []string{"member"})
}

func (env *testEnv) login(t *testing.T, email, pw string) *LoginResult {
	t.Helper()
	result, err := env.engine.Login(context.Background(), email, pw)
	if err != nil {
		t.Fatalf("Login(%q): %v", email, err)
	}
	return result
}
