package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"pacer_agent/internal/domain/behavior"

	"github.com/redis/go-redis/v9"
)

const defaultKey = "pacer_agent:behavior_state"

// Config describes the Redis connection used for state snapshots.
type Config struct {
	Address  string
	Password string
	DB       int
	Key      string
	// TTL of a snapshot; zero keeps it forever.
	TTL time.Duration
}

type kv interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
	Close() error
}

// StateStore persists behavior.State snapshots as JSON under one key.
type StateStore struct {
	client kv
	key    string
	ttl    time.Duration
}

// NewStateStore connects to Redis and verifies the connection.
func NewStateStore(ctx context.Context, cfg Config) (*StateStore, error) {
	if cfg.Address == "" {
		return nil, errors.New("redis address must not be empty")
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return newStateStore(client, cfg.Key, cfg.TTL), nil
}

func newStateStore(client kv, key string, ttl time.Duration) *StateStore {
	if key == "" {
		key = defaultKey
	}
	return &StateStore{client: client, key: key, ttl: ttl}
}

// Load returns the stored snapshot. found is false when no snapshot exists.
func (s *StateStore) Load(ctx context.Context) (state behavior.State, found bool, err error) {
	raw, err := s.client.Get(ctx, s.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return behavior.State{}, false, nil
	}
	if err != nil {
		return behavior.State{}, false, fmt.Errorf("failed to read behavior state: %w", err)
	}
	if err := json.Unmarshal(raw, &state); err != nil {
		return behavior.State{}, false, fmt.Errorf("failed to decode behavior state: %w", err)
	}
	return state, true, nil
}

// Save overwrites the stored snapshot.
func (s *StateStore) Save(ctx context.Context, state behavior.State) error {
	raw, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to encode behavior state: %w", err)
	}
	if err := s.client.Set(ctx, s.key, raw, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to write behavior state: %w", err)
	}
	return nil
}

// Close releases the Redis connection.
func (s *StateStore) Close() error {
	if s == nil || s.client == nil {
		return nil
	}
	return s.client.Close()
}
