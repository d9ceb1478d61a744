package redistore

import (
	"context"
	"errors"
	"strconv"

	credcore "github.com/credware/credcore"
	"github.com/redis/go-redis/v9"
)

// TokenStore implements credcore.TokenStore on Redis. Token records carry
// their own TTL. Delete uses GETDEL, so concurrent redemptions of the same
// token resolve to exactly one winner.
type TokenStore struct {
	client *redis.Client
	prefix string
}

// NewTokenStore creates a TokenStore. prefix namespaces every key and may
// be empty.
func NewTokenStore(client *redis.Client, prefix string) *TokenStore {
	return &TokenStore{client: client, prefix: prefix}
}

func (s *TokenStore) tokenKey(purpose credcore.Purpose, hash string) string {
	return s.prefix + "tok:" + strconv.Itoa(int(purpose)) + ":" + hash
}

func (s *TokenStore) indexKey(ownerID string, purpose credcore.Purpose) string {
	return s.prefix + "tokidx:" + ownerID + ":" + strconv.Itoa(int(purpose))
}

// Add persists a purpose token record keyed by its hash.
func (s *TokenStore) Add(ctx context.Context, token credcore.PurposeToken) error {
	data, err := encodeToken(token)
	if err != nil {
		return err
	}

	key := s.tokenKey(token.Purpose, token.Hash)
	pipe := s.client.TxPipeline()
	pipe.Set(ctx, key, data, 0)
	pipe.ExpireAt(ctx, key, token.ExpiresAt)
	pipe.SAdd(ctx, s.indexKey(token.OwnerID, token.Purpose), token.Hash)
	_, err = pipe.Exec(ctx)
	return err
}

// GetByHashAndPurpose returns the token record matching hash, or
// credcore.ErrTokenNotFound.
func (s *TokenStore) GetByHashAndPurpose(ctx context.Context, hash string, purpose credcore.Purpose) (*credcore.PurposeToken, error) {
	data, err := s.client.Get(ctx, s.tokenKey(purpose, hash)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, credcore.ErrTokenNotFound
	}
	if err != nil {
		return nil, err
	}
	return decodeToken(data)
}

// Delete consumes the token record. An already-consumed or unknown token
// returns credcore.ErrTokenNotFound; GETDEL guarantees a single winner
// under concurrent redemption.
func (s *TokenStore) Delete(ctx context.Context, hash string, purpose credcore.Purpose) error {
	data, err := s.client.GetDel(ctx, s.tokenKey(purpose, hash)).Bytes()
	if errors.Is(err, redis.Nil) {
		return credcore.ErrTokenNotFound
	}
	if err != nil {
		return err
	}

	if token, decodeErr := decodeToken(data); decodeErr == nil {
		_ = s.client.SRem(ctx, s.indexKey(token.OwnerID, purpose), hash).Err()
	}
	return nil
}

// DeleteAllForOwnerAndPurpose removes every live token of the purpose for
// ownerID. Used to invalidate outstanding tokens before issuing a fresh one.
func (s *TokenStore) DeleteAllForOwnerAndPurpose(ctx context.Context, ownerID string, purpose credcore.Purpose) error {
	idx := s.indexKey(ownerID, purpose)
	hashes, err := s.client.SMembers(ctx, idx).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return err
	}

	pipe := s.client.TxPipeline()
	for _, hash := range hashes {
		pipe.Del(ctx, s.tokenKey(purpose, hash))
	}
	pipe.Del(ctx, idx)
	_, err = pipe.Exec(ctx)
	return err
}

var _ credcore.TokenStore = (*TokenStore)(nil)
