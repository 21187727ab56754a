// Package redisstore keeps session summaries in Redis.
package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"Go2NetScope/internal/config"
	"Go2NetScope/internal/report"

	"github.com/redis/go-redis/v9"
)

const (
	defaultTTL = 24 * time.Hour
	keyPrefix  = "gons:summary:"
	// indexKey is a sorted set of session IDs scored by save time.
	indexKey = "gons:sessions"
)

// ErrNotFound is returned when no summary is stored for a session.
var ErrNotFound = errors.New("summary not found")

// StoredSummary is the value saved per session.
type StoredSummary struct {
	SessionID string         `json:"session_id"`
	SavedAt   time.Time      `json:"saved_at"`
	Summary   report.Summary `json:"summary"`
}

// Store defines how session summaries are saved and read back.
type Store interface {
	Save(ctx context.Context, sessionID string, summary report.Summary) error
	Load(ctx context.Context, sessionID string) (*StoredSummary, error)
	Recent(ctx context.Context, n int) ([]string, error)
}

// RedisStore implements Store using go-redis.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
	now    func() time.Time
}

// NewRedisStore returns a RedisStore with auto-reconnect and retry.
func NewRedisStore(cfg config.RedisConfig) *RedisStore {
	client := redis.NewClient(&redis.Options{
		Addr:            cfg.Addr,
		Password:        cfg.Password,
		DB:              cfg.DB,
		MaxRetries:      5,
		MinRetryBackoff: 100 * time.Millisecond,
		MaxRetryBackoff: 1 * time.Second,
	})
	return &RedisStore{client: client, ttl: config.Duration(cfg.TTL, defaultTTL), now: time.Now}
}

func key(sessionID string) string {
	return keyPrefix + sessionID
}

// Save stores the summary with the configured TTL and records the session in
// the recency index.
func (r *RedisStore) Save(ctx context.Context, sessionID string, summary report.Summary) error {
	now := r.now().UTC()
	value, err := json.Marshal(StoredSummary{SessionID: sessionID, SavedAt: now, Summary: summary})
	if err != nil {
		return fmt.Errorf("failed to marshal summary: %w", err)
	}

	if err := r.client.Set(ctx, key(sessionID), string(value), r.ttl).Err(); err != nil {
		return fmt.Errorf("failed to save summary in redis: %w", err)
	}

	err = r.client.ZAdd(ctx, indexKey, redis.Z{Score: float64(now.Unix()), Member: sessionID}).Err()
	if err != nil {
		return fmt.Errorf("failed to index session in redis: %w", err)
	}
	return nil
}

// Load fetches the summary saved for sessionID.
func (r *RedisStore) Load(ctx context.Context, sessionID string) (*StoredSummary, error) {
	value, err := r.client.Get(ctx, key(sessionID)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load summary from redis: %w", err)
	}

	var stored StoredSummary
	if err := json.Unmarshal([]byte(value), &stored); err != nil {
		return nil, fmt.Errorf("failed to unmarshal summary: %w", err)
	}
	return &stored, nil
}

// Recent returns up to n session IDs, newest first. Entries may outlive
// their summaries, in which case Load reports ErrNotFound.
func (r *RedisStore) Recent(ctx context.Context, n int) ([]string, error) {
	if n <= 0 {
		return nil, nil
	}
	ids, err := r.client.ZRevRange(ctx, indexKey, 0, int64(n-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions from redis: %w", err)
	}
	return ids, nil
}

// Close closes the client.
func (r *RedisStore) Close() error {
	return r.client.Close()
}
