// Package redis stores dialog sessions in Redis so several bot replicas can
// share them, and keeps per-user rate limit counters.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"posterbot/internal/session"
	pkgredis "posterbot/pkg/redis"
)

// KV is the subset of Redis commands the store uses. *pkgredis.Client
// implements it.
type KV interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error
	Del(ctx context.Context, key string) error
	Incr(ctx context.Context, key string) (int64, error)
	Expire(ctx context.Context, key string, expiration time.Duration) (bool, error)
}

type Storage struct {
	kv     KV
	ttl    time.Duration
	logger *zap.Logger
}

var _ session.Store = (*Storage)(nil)

// New creates a session store. Every Save refreshes the key's ttl, so idle
// sessions expire on their own.
func New(kv KV, ttl time.Duration, logger *zap.Logger) *Storage {
	return &Storage{kv: kv, ttl: ttl, logger: logger}
}

func (s *Storage) Get(ctx context.Context, userID string) (*session.Session, error) {
	data, err := s.kv.Get(ctx, buildStateKey(userID))
	if errors.Is(err, pkgredis.ErrNil) {
		return nil, session.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get state: %w", err)
	}

	var rec record
	if err := json.Unmarshal(data, &rec); err != nil || rec.Session == nil || rec.Version != recordVersion {
		// unreadable state is treated as absent so the user starts over
		s.logger.Warn("Dropping unreadable session",
			zap.String("user_id", userID),
			zap.Int("version", rec.Version),
			zap.Error(err))
		return nil, session.ErrNotFound
	}
	if rec.Session.Cart == nil {
		rec.Session.Cart = []session.CartItem{}
	}
	return rec.Session, nil
}

func (s *Storage) Save(ctx context.Context, sess *session.Session) error {
	data, err := json.Marshal(record{Version: recordVersion, Session: sess})
	if err != nil {
		return fmt.Errorf("marshal state: %w", err)
	}
	return s.kv.Set(ctx, buildStateKey(sess.UserID), data, s.ttl)
}

func (s *Storage) Delete(ctx context.Context, userID string) error {
	return s.kv.Del(ctx, buildStateKey(userID))
}

// CheckRateLimit counts a message from userID in the current minute and
// reports whether the user is still within limit messages per minute.
func (s *Storage) CheckRateLimit(ctx context.Context, userID string, limit int) (bool, error) {
	if limit <= 0 {
		return true, nil
	}
	key := buildRateKey(userID)

	count, err := s.kv.Incr(ctx, key)
	if err != nil {
		return false, fmt.Errorf("incr rate counter: %w", err)
	}
	if count == 1 {
		if _, err := s.kv.Expire(ctx, key, time.Minute); err != nil {
			return false, fmt.Errorf("expire rate counter: %w", err)
		}
	}
	return count <= int64(limit), nil
}

func buildStateKey(userID string) string {
	return fmt.Sprintf("session:%s", userID)
}

func buildRateKey(userID string) string {
	return fmt.Sprintf("ratelimit:%s", userID)
}
