package runstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/BaSui01/agentrun/agent"
)

// RedisConfig Redis 快照存储配置
type RedisConfig struct {
	// Addr host:port，默认 localhost:6379
	Addr     string `yaml:"addr" json:"addr"`
	Password string `yaml:"password" json:"password"`
	DB       int    `yaml:"db" json:"db"`
	PoolSize int    `yaml:"pool_size" json:"pool_size"`
	// KeyPrefix 默认 "agentrun:"
	KeyPrefix string `yaml:"key_prefix" json:"key_prefix"`
	// TTL bounds how long an unresolved snapshot lives. Zero means no expiry.
	TTL time.Duration `yaml:"ttl" json:"ttl"`
}

// RedisStore persists snapshots in Redis. Suitable for distributed
// deployments where the pausing and the resuming process differ.
type RedisStore struct {
	client    *redis.Client
	keyPrefix string
	ttl       time.Duration
}

// NewRedisStore creates a Redis-backed store and verifies connectivity.
func NewRedisStore(config RedisConfig) (*RedisStore, error) {
	addr := config.Addr
	if addr == "" {
		addr = "localhost:6379"
	}
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: config.Password,
		DB:       config.DB,
		PoolSize: config.PoolSize,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("runstore: connect to redis: %w", err)
	}

	keyPrefix := config.KeyPrefix
	if keyPrefix == "" {
		keyPrefix = "agentrun:"
	}
	return &RedisStore{
		client:    client,
		keyPrefix: keyPrefix + "paused:",
		ttl:       config.TTL,
	}, nil
}

// NewRedisStoreWithClient wraps an existing client, mainly for tests.
func NewRedisStoreWithClient(client *redis.Client, keyPrefix string, ttl time.Duration) *RedisStore {
	if keyPrefix == "" {
		keyPrefix = "agentrun:"
	}
	return &RedisStore{client: client, keyPrefix: keyPrefix + "paused:", ttl: ttl}
}

// Close releases the underlying client.
func (s *RedisStore) Close() error { return s.client.Close() }

// Ping checks store health.
func (s *RedisStore) Ping(ctx context.Context) error { return s.client.Ping(ctx).Err() }

func (s *RedisStore) key(runID string) string { return s.keyPrefix + runID }

// Save implements Store.
func (s *RedisStore) Save(ctx context.Context, paused *agent.PausedAgentRun) error {
	if paused == nil || paused.RunID == "" {
		return errors.New("runstore: snapshot missing run_id")
	}
	data, err := paused.Marshal()
	if err != nil {
		return fmt.Errorf("runstore: marshal snapshot: %w", err)
	}
	if err := s.client.Set(ctx, s.key(paused.RunID), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("runstore: save snapshot: %w", err)
	}
	return nil
}

// Load implements Store.
func (s *RedisStore) Load(ctx context.Context, runID string) (*agent.PausedAgentRun, error) {
	data, err := s.client.Get(ctx, s.key(runID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("runstore: load snapshot: %w", err)
	}
	paused, err := agent.UnmarshalPausedRun(data)
	if err != nil {
		return nil, fmt.Errorf("runstore: decode snapshot: %w", err)
	}
	return paused, nil
}

// Delete implements Store.
func (s *RedisStore) Delete(ctx context.Context, runID string) error {
	if err := s.client.Del(ctx, s.key(runID)).Err(); err != nil {
		return fmt.Errorf("runstore: delete snapshot: %w", err)
	}
	return nil
}

// List implements Store. Uses SCAN to stay safe on large keyspaces.
func (s *RedisStore) List(ctx context.Context) ([]string, error) {
	var ids []string
	iter := s.client.Scan(ctx, 0, s.keyPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		ids = append(ids, iter.Val()[len(s.keyPrefix):])
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("runstore: scan snapshots: %w", err)
	}
	return ids, nil
}
