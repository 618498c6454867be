package bot

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const sessionKeyPrefix = "bot:session:"

// RedisStore keeps sessions in Redis as JSON with a TTL, so state survives
// restarts and is shared between replicas.
type RedisStore struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewRedisStore builds a RedisStore. ttl <= 0 keeps sessions forever.
func NewRedisStore(rdb *redis.Client, ttl time.Duration) *RedisStore {
	if ttl < 0 {
		ttl = 0
	}
	return &RedisStore{rdb: rdb, ttl: ttl}
}

func sessionKey(chatID int64) string {
	return sessionKeyPrefix + strconv.FormatInt(chatID, 10)
}

// Get reads the chat's session. A missing key or an entry that is not valid
// JSON reads as the zero Session; only transport errors are returned.
func (r *RedisStore) Get(ctx context.Context, chatID int64) (Session, error) {
	raw, err := r.rdb.Get(ctx, sessionKey(chatID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return Session{}, nil
	}
	if err != nil {
		return Session{}, err
	}
	var s Session
	if err := json.Unmarshal(raw, &s); err != nil {
		// A corrupt entry is treated as no session.
		return Session{}, nil
	}
	return s, nil
}

// Set writes s as JSON under the chat's key with the store TTL.
func (r *RedisStore) Set(ctx context.Context, chatID int64, s Session) error {
	b, err := json.Marshal(s)
	if err != nil {
		return err
	}
	return r.rdb.Set(ctx, sessionKey(chatID), b, r.ttl).Err()
}

// Clear deletes the chat's key.
func (r *RedisStore) Clear(ctx context.Context, chatID int64) error {
	return r.rdb.Del(ctx, sessionKey(chatID)).Err()
}
