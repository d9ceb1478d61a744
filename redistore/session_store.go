package redistore

import (
	"context"
	"errors"

	credcore "github.com/credware/credcore"
	"github.com/redis/go-redis/v9"
)

// SessionStore implements credcore.SessionStore on Redis. Session records
// carry their own TTL; the per-owner index structures are cleaned lazily on
// lookup and fully on DeleteAllForOwner.
type SessionStore struct {
	client *redis.Client
	prefix string
}

// NewSessionStore creates a SessionStore. prefix namespaces every key and
// may be empty.
func NewSessionStore(client *redis.Client, prefix string) *SessionStore {
	return &SessionStore{client: client, prefix: prefix}
}

func (s *SessionStore) sessionKey(ownerID, sessionID string) string {
	return s.prefix + "sess:" + ownerID + ":" + sessionID
}

func (s *SessionStore) indexKey(ownerID string) string {
	return s.prefix + "sessidx:" + ownerID
}

func (s *SessionStore) hashKey(ownerID string) string {
	return s.prefix + "sesshash:" + ownerID
}

// Add persists a new session record keyed by owner and session ID and
// indexes its refresh hash for O(1) lookup.
func (s *SessionStore) Add(ctx context.Context, session credcore.Session) error {
	data, err := encodeSession(session)
	if err != nil {
		return err
	}

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, s.sessionKey(session.OwnerID, session.ID), data, 0)
	pipe.ExpireAt(ctx, s.sessionKey(session.OwnerID, session.ID), session.ExpiresAt)
	pipe.SAdd(ctx, s.indexKey(session.OwnerID), session.ID)
	pipe.HSet(ctx, s.hashKey(session.OwnerID), session.RefreshHash, session.ID)
	_, err = pipe.Exec(ctx)
	return err
}

// GetByOwnerAndHash resolves the session holding refreshHash. Stale hash
// index entries left behind by Redis key expiry are removed on the way.
func (s *SessionStore) GetByOwnerAndHash(ctx context.Context, ownerID, refreshHash string) (*credcore.Session, error) {
	sessionID, err := s.client.HGet(ctx, s.hashKey(ownerID), refreshHash).Result()
	if errors.Is(err, redis.Nil) {
		return nil, credcore.ErrSessionNotFound
	}
	if err != nil {
		return nil, err
	}

	data, err := s.client.Get(ctx, s.sessionKey(ownerID, sessionID)).Bytes()
	if errors.Is(err, redis.Nil) {
		pipe := s.client.TxPipeline()
		pipe.HDel(ctx, s.hashKey(ownerID), refreshHash)
		pipe.SRem(ctx, s.indexKey(ownerID), sessionID)
		_, _ = pipe.Exec(ctx)
		return nil, credcore.ErrSessionNotFound
	}
	if err != nil {
		return nil, err
	}

	session, err := decodeSession(data)
	if err != nil {
		return nil, err
	}
	if session.RefreshHash != refreshHash {
		// Hash index entry outlived a rotation.
		_ = s.client.HDel(ctx, s.hashKey(ownerID), refreshHash).Err()
		return nil, credcore.ErrSessionNotFound
	}
	return session, nil
}

// Update rewrites a session record in place, re-indexing the refresh hash
// when rotation changed it.
func (s *SessionStore) Update(ctx context.Context, session credcore.Session) error {
	key := s.sessionKey(session.OwnerID, session.ID)

	current, err := s.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return credcore.ErrSessionNotFound
	}
	if err != nil {
		return err
	}
	previous, err := decodeSession(current)
	if err != nil {
		return err
	}

	data, err := encodeSession(session)
	if err != nil {
		return err
	}

	pipe := s.client.TxPipeline()
	if previous.RefreshHash != session.RefreshHash {
		pipe.HDel(ctx, s.hashKey(session.OwnerID), previous.RefreshHash)
	}
	pipe.HSet(ctx, s.hashKey(session.OwnerID), session.RefreshHash, session.ID)
	pipe.Set(ctx, key, data, 0)
	pipe.ExpireAt(ctx, key, session.ExpiresAt)
	_, err = pipe.Exec(ctx)
	return err
}

// Delete removes one session. Deleting a missing session is a no-op.
func (s *SessionStore) Delete(ctx context.Context, ownerID, sessionID string) error {
	key := s.sessionKey(ownerID, sessionID)

	data, err := s.client.Get(ctx, key).Bytes()
	if err != nil && !errors.Is(err, redis.Nil) {
		return err
	}

	pipe := s.client.TxPipeline()
	pipe.Del(ctx, key)
	pipe.SRem(ctx, s.indexKey(ownerID), sessionID)
	if err == nil {
		if session, decodeErr := decodeSession(data); decodeErr == nil {
			pipe.HDel(ctx, s.hashKey(ownerID), session.RefreshHash)
		}
	}
	_, err = pipe.Exec(ctx)
	return err
}

// DeleteAllForOwner removes every session and index structure of ownerID.
func (s *SessionStore) DeleteAllForOwner(ctx context.Context, ownerID string) error {
	sessionIDs, err := s.client.SMembers(ctx, s.indexKey(ownerID)).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return err
	}

	pipe := s.client.TxPipeline()
	for _, sessionID := range sessionIDs {
		pipe.Del(ctx, s.sessionKey(ownerID, sessionID))
	}
	pipe.Del(ctx, s.indexKey(ownerID))
	pipe.Del(ctx, s.hashKey(ownerID))
	_, err = pipe.Exec(ctx)
	return err
}

var _ credcore.SessionStore = (*SessionStore)(nil)
