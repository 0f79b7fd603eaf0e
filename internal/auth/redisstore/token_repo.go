// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 GymUCT Contributors

package redisstore

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/samber/oops"

	"github.com/uctgym/gymauth/internal/auth"
)

// DefaultPrefix namespaces every key written by TokenRepository.
const DefaultPrefix = "gymauth"

// RetainAfterExpiry keeps expired tokens readable for a while so callers
// can tell an expired token from an unknown one. CleanExpiredTokens removes
// them earlier.
const RetainAfterExpiry = 24 * time.Hour

type kind string

const (
	refreshKind kind = "refresh"
	resetKind   kind = "reset"
)

// TokenRepository implements auth.TokenRepository on Redis.
//
// Each token is a hash at <prefix>:<kind>:<sha256> holding the user ID and
// expiry. Per-user sets index a user's tokens and one sorted set orders all
// tokens by expiry for sweeping. Sorted set members carry the owner so the
// sweep can clean the user index after the token hash itself has expired.
type TokenRepository struct {
	client redis.UniversalClient
	prefix string
}

// NewTokenRepository creates a TokenRepository. An empty prefix means DefaultPrefix.
func NewTokenRepository(client redis.UniversalClient, prefix string) *TokenRepository {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &TokenRepository{client: client, prefix: prefix}
}

// SaveRefreshToken implements auth.TokenRepository.
func (r *TokenRepository) SaveRefreshToken(ctx context.Context, userID, token string, expiresAt time.Time) error {
	return r.save(ctx, refreshKind, userID, token, expiresAt)
}

// FindRefreshToken implements auth.TokenRepository.
func (r *TokenRepository) FindRefreshToken(ctx context.Context, token string) (*auth.TokenRecord, error) {
	return r.find(ctx, refreshKind, token)
}

// RevokeRefreshToken implements auth.TokenRepository.
func (r *TokenRepository) RevokeRefreshToken(ctx context.Context, token string) error {
	return r.revoke(ctx, refreshKind, auth.HashToken(token))
}

// SaveResetToken implements auth.TokenRepository.
func (r *TokenRepository) SaveResetToken(ctx context.Context, userID, token string, expiresAt time.Time) error {
	return r.save(ctx, resetKind, userID, token, expiresAt)
}

// FindResetToken implements auth.TokenRepository.
func (r *TokenRepository) FindResetToken(ctx context.Context, token string) (*auth.TokenRecord, error) {
	return r.find(ctx, resetKind, token)
}

// RevokeResetToken implements auth.TokenRepository.
func (r *TokenRepository) RevokeResetToken(ctx context.Context, token string) error {
	return r.revoke(ctx, resetKind, auth.HashToken(token))
}

// maxWatchRetries bounds how often RevokeAllUserTokens restarts after a
// concurrent write to the user's token index.
const maxWatchRetries = 10

// RevokeAllUserTokens implements auth.TokenRepository.
//
// The user index is WATCHed so a token saved between listing and deleting
// aborts the transaction and the listing is retried.
func (r *TokenRepository) RevokeAllUserTokens(ctx context.Context, userID string) error {
	for _, k := range []kind{refreshKind, resetKind} {
		if err := r.revokeAll(ctx, k, userID); err != nil {
			return oops.Code("TOKEN_REVOKE_ALL_FAILED").
				With("kind", string(k)).
				With("user_id", userID).
				Wrap(err)
		}
	}
	return nil
}

func (r *TokenRepository) revokeAll(ctx context.Context, k kind, userID string) error {
	userKey := r.userKey(k, userID)
	txf := func(tx *redis.Tx) error {
		hashes, err := tx.SMembers(ctx, userKey).Result()
		if err != nil {
			return oops.With("operation", "list user tokens").Wrap(err)
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			for _, h := range hashes {
				pipe.Del(ctx, r.tokenKey(k, h))
				pipe.ZRem(ctx, r.expiryKey(), member(k, h, userID))
			}
			pipe.Del(ctx, userKey)
			return nil
		})
		return err
	}

	for range maxWatchRetries {
		err := r.client.Watch(ctx, txf, userKey)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err != nil {
			return oops.With("operation", "delete user tokens").Wrap(err)
		}
		return nil
	}
	return oops.With("operation", "delete user tokens").
		With("attempts", maxWatchRetries).
		Errorf("user token index kept changing")
}

// CleanExpiredTokens implements auth.TokenRepository.
func (r *TokenRepository) CleanExpiredTokens(ctx context.Context, now time.Time) (int64, error) {
	members, err := r.client.ZRangeByScore(ctx, r.expiryKey(), &redis.ZRangeBy{
		Min: "-inf",
		Max: strconv.FormatInt(now.UnixMilli(), 10),
	}).Result()
	if err != nil {
		return 0, oops.Code("TOKEN_CLEANUP_FAILED").With("operation", "list expired tokens").Wrap(err)
	}

	if len(members) == 0 {
		return 0, nil
	}

	// Only DELs that hit a key count: a hash that already outlived its TTL
	// is not reported as removed, but its index entries are still dropped.
	dels := make([]*redis.IntCmd, 0, len(members))
	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, m := range members {
			pipe.ZRem(ctx, r.expiryKey(), m)
			k, hash, userID, ok := parseMember(m)
			if !ok {
				continue
			}
			dels = append(dels, pipe.Del(ctx, r.tokenKey(k, hash)))
			pipe.SRem(ctx, r.userKey(k, userID), hash)
		}
		return nil
	})
	if err != nil {
		return 0, oops.Code("TOKEN_CLEANUP_FAILED").With("operation", "delete expired tokens").Wrap(err)
	}

	var removed int64
	for _, del := range dels {
		removed += del.Val()
	}
	return removed, nil
}

func (r *TokenRepository) save(ctx context.Context, k kind, userID, token string, expiresAt time.Time) error {
	hash := auth.HashToken(token)
	key := r.tokenKey(k, hash)

	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, key,
			"user_id", userID,
			"expires_at", strconv.FormatInt(expiresAt.UnixMilli(), 10))
		pipe.PExpireAt(ctx, key, expiresAt.Add(RetainAfterExpiry))
		pipe.SAdd(ctx, r.userKey(k, userID), hash)
		pipe.ZAdd(ctx, r.expiryKey(), redis.Z{Score: float64(expiresAt.UnixMilli()), Member: member(k, hash, userID)})
		return nil
	})
	if err != nil {
		return oops.Code("TOKEN_CREATE_FAILED").
			With("operation", "store token").
			With("kind", string(k)).
			With("user_id", userID).
			Wrap(err)
	}
	return nil
}

func (r *TokenRepository) find(ctx context.Context, k kind, token string) (*auth.TokenRecord, error) {
	vals, err := r.client.HMGet(ctx, r.tokenKey(k, auth.HashToken(token)), "user_id", "expires_at").Result()
	if err != nil {
		return nil, oops.Code("TOKEN_GET_FAILED").With("operation", "get token").With("kind", string(k)).Wrap(err)
	}
	userID, _ := vals[0].(string)
	rawExpiry, _ := vals[1].(string)
	if userID == "" || rawExpiry == "" {
		return nil, oops.With("kind", string(k)).Wrap(auth.ErrNotFound)
	}
	ms, err := strconv.ParseInt(rawExpiry, 10, 64)
	if err != nil {
		return nil, oops.Code("TOKEN_DECODE_FAILED").With("kind", string(k)).Errorf("decode token expiry: %s", err)
	}
	return &auth.TokenRecord{UserID: userID, ExpiresAt: time.UnixMilli(ms).UTC()}, nil
}

// revoke deletes one token and its index entries. Unknown hashes are
// ignored; index entries of hashes that already expired are left to
// CleanExpiredTokens.
func (r *TokenRepository) revoke(ctx context.Context, k kind, hash string) error {
	key := r.tokenKey(k, hash)
	userID, err := r.client.HGet(ctx, key, "user_id").Result()
	if errors.Is(err, redis.Nil) {
		return nil
	}
	if err != nil {
		return oops.Code("TOKEN_DELETE_FAILED").With("operation", "get token owner").With("kind", string(k)).Wrap(err)
	}

	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, key)
		pipe.ZRem(ctx, r.expiryKey(), member(k, hash, userID))
		pipe.SRem(ctx, r.userKey(k, userID), hash)
		return nil
	})
	if err != nil {
		return oops.Code("TOKEN_DELETE_FAILED").With("operation", "delete token").With("kind", string(k)).Wrap(err)
	}
	return nil
}

func (r *TokenRepository) tokenKey(k kind, hash string) string {
	return r.prefix + ":" + string(k) + ":" + hash
}

func (r *TokenRepository) userKey(k kind, userID string) string {
	return r.prefix + ":user:" + userID + ":" + string(k)
}

func (r *TokenRepository) expiryKey() string {
	return r.prefix + ":expiry"
}

// member is the expiry sorted set entry: <kind>:<sha256>:<user id>.
func member(k kind, hash, userID string) string {
	return string(k) + ":" + hash + ":" + userID
}

func parseMember(m string) (k kind, hash, userID string, ok bool) {
	rawKind, rest, found := strings.Cut(m, ":")
	if !found || (kind(rawKind) != refreshKind && kind(rawKind) != resetKind) {
		return "", "", "", false
	}
	hash, userID, found = strings.Cut(rest, ":")
	if !found || hash == "" || userID == "" {
		return "", "", "", false
	}
	return kind(rawKind), hash, userID, true
}

var _ auth.TokenRepository = (*TokenRepository)(nil)
