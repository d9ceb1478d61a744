package flows

import (
	"context"
	"time"
)

// PurposeTokenDeps is the shared dependency set for issuing and redeeming
// single-use purpose tokens.
type PurposeTokenDeps struct {
	GenerateToken   func(n int) (string, error)
	HashToken       func(string) string
	AddToken        func(context.Context, TokenRecord) error
	GetToken        func(ctx context.Context, hash string, purpose uint8) (*TokenRecord, error)
	DeleteToken     func(ctx context.Context, hash string, purpose uint8) error
	DeleteAllTokens func(ctx context.Context, ownerID string, purpose uint8) error
	InTx            func(ctx context.Context, fn func(ctx context.Context) error) error

	Now func() time.Time

	TokenNotFound error
	TokenExpired  error
}

// issueTokenTx replaces any live tokens of the purpose for the owner and
// stores the hash of a fresh one. The caller owns the transaction boundary;
// the raw token is returned for out-of-band delivery and never persisted.
func issueTokenTx(ctx context.Context, ownerID string, purpose uint8, length int, ttl time.Duration, deps PurposeTokenDeps) (string, error) {
	raw, err := deps.GenerateToken(length)
	if err != nil {
		return "", err
	}

	now := deps.Now()
	record := TokenRecord{
		Hash:      deps.HashToken(raw),
		Purpose:   purpose,
		OwnerID:   ownerID,
		ExpiresAt: now.Add(ttl),
		CreatedAt: now,
	}

	if err := deps.DeleteAllTokens(ctx, ownerID, purpose); err != nil {
		return "", err
	}
	if err := deps.AddToken(ctx, record); err != nil {
		return "", err
	}
	return raw, nil
}

// IssuePurposeToken runs issueTokenTx inside its own transaction.
func IssuePurposeToken(ctx context.Context, ownerID string, purpose uint8, length int, ttl time.Duration, deps PurposeTokenDeps) (string, error) {
	if deps.Now == nil {
		deps.Now = time.Now
	}

	var raw string
	err := deps.InTx(ctx, func(ctx context.Context) error {
		var err error
		raw, err = issueTokenTx(ctx, ownerID, purpose, length, ttl, deps)
		return err
	})
	if err != nil {
		return "", err
	}
	return raw, nil
}

// RedeemPurposeToken consumes the token matching raw, then runs apply inside
// the same transaction. The token is deleted before the expiry check: a
// presented token is burned whether or not it is still valid. An expired
// token is consumed (committed) and reported as TokenExpired; an apply
// failure rolls the whole redemption back.
func RedeemPurposeToken(ctx context.Context, raw string, purpose uint8, deps PurposeTokenDeps, apply func(ctx context.Context, record TokenRecord) error) (string, error) {
	if deps.Now == nil {
		deps.Now = time.Now
	}

	hash := deps.HashToken(raw)

	record, err := deps.GetToken(ctx, hash, purpose)
	if err != nil || record == nil {
		return "", deps.TokenNotFound
	}

	expired := deps.Now().After(record.ExpiresAt)

	err = deps.InTx(ctx, func(ctx context.Context) error {
		if err := deps.DeleteToken(ctx, hash, purpose); err != nil {
			return err
		}
		if expired {
			return nil
		}
		return apply(ctx, *record)
	})
	if err != nil {
		return "", err
	}
	if expired {
		return record.OwnerID, deps.TokenExpired
	}
	return record.OwnerID, nil
}
