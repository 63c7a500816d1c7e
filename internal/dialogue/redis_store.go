package dialogue

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

const sessionKeyPrefix = "dialogue:session:"

// RedisSessionStore keeps sessions in Redis as JSON with a sliding TTL, so
// dialogues survive a restart. Turns on one session are serialized by the
// engine's in-process lock, so a session must only be driven by a single
// server instance at a time.
type RedisSessionStore struct {
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

// NewRedisSessionStore creates a store on client. A zero ttl stores keys
// without expiry.
func NewRedisSessionStore(client *redis.Client, ttl time.Duration, logger *zap.Logger) *RedisSessionStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisSessionStore{client: client, ttl: ttl, logger: logger}
}

func (s *RedisSessionStore) Load(ctx context.Context, id string) (State, error) {
	data, err := s.client.Get(ctx, sessionKeyPrefix+id).Bytes()
	if err == redis.Nil {
		return NewState(), nil
	}
	if err != nil {
		return State{}, fmt.Errorf("loading session %s: %w", id, err)
	}

	// An undecodable value restarts the dialogue rather than wedging it.
	var st State
	if err := json.Unmarshal(data, &st); err != nil {
		s.logger.Warn("discarding undecodable session",
			zap.String("session", id),
			zap.Error(err),
		)
		return NewState(), nil
	}
	return st, nil
}

func (s *RedisSessionStore) Save(ctx context.Context, id string, st State) error {
	data, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("encoding session %s: %w", id, err)
	}
	if err := s.client.Set(ctx, sessionKeyPrefix+id, data, s.ttl).Err(); err != nil {
		return fmt.Errorf("saving session %s: %w", id, err)
	}
	return nil
}

func (s *RedisSessionStore) Delete(ctx context.Context, id string) error {
	if err := s.client.Del(ctx, sessionKeyPrefix+id).Err(); err != nil {
		return fmt.Errorf("deleting session %s: %w", id, err)
	}
	return nil
}

func (s *RedisSessionStore) IDs(ctx context.Context) ([]string, error) {
	var ids []string
	iter := s.client.Scan(ctx, 0, sessionKeyPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		ids = append(ids, strings.TrimPrefix(iter.Val(), sessionKeyPrefix))
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("scanning sessions: %w", err)
	}
	return ids, nil
}

// Ping checks the Redis connection.
func (s *RedisSessionStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}
