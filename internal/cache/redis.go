// Package cache keeps materialized leaderboards in Redis.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"virtual-casino/internal/config"
	"virtual-casino/internal/model"
)

const (
	keyPrefix   = "leaderboard:"
	computedKey = "_computed_at"
)

// NewClient connects to Redis and verifies the connection.
func NewClient(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	log.Info().Str("addr", cfg.Addr).Int("db", cfg.DB).Int("pool_size", cfg.PoolSize).Msg("Connected to Redis")
	return rdb, nil
}

// Leaderboards stores each board as a sorted set of account ids scored
// by rank, plus a hash of the entry bodies.
type Leaderboards struct {
	rdb redis.UniversalClient
	ttl time.Duration
}

// NewLeaderboards creates a leaderboard cache; a non-positive ttl keeps
// keys until the next recompute overwrites them.
func NewLeaderboards(rdb redis.UniversalClient, ttl time.Duration) *Leaderboards {
	return &Leaderboards{rdb: rdb, ttl: ttl}
}

func rankKey(id uuid.UUID) string { return keyPrefix + id.String() }
func metaKey(id uuid.UUID) string { return keyPrefix + id.String() + ":meta" }

// Get returns up to limit entries in rank order. ok is false on a miss.
func (c *Leaderboards) Get(ctx context.Context, id uuid.UUID, limit int) ([]model.LeaderboardEntry, bool, error) {
	members, err := c.rdb.ZRange(ctx, rankKey(id), 0, int64(limit)-1).Result()
	if err != nil {
		return nil, false, fmt.Errorf("failed to read leaderboard ranks: %w", err)
	}

	if len(members) == 0 {
		// an empty board is cached as a bare marker in the meta hash
		n, err := c.rdb.HExists(ctx, metaKey(id), computedKey).Result()
		if err != nil {
			return nil, false, fmt.Errorf("failed to read leaderboard marker: %w", err)
		}
		if !n {
			return nil, false, nil
		}
		return []model.LeaderboardEntry{}, true, nil
	}

	bodies, err := c.rdb.HMGet(ctx, metaKey(id), members...).Result()
	if err != nil {
		return nil, false, fmt.Errorf("failed to read leaderboard entries: %w", err)
	}

	entries := make([]model.LeaderboardEntry, 0, len(bodies))
	for _, body := range bodies {
		s, ok := body.(string)
		if !ok {
			// ranks and bodies disagree; treat as a miss and let the caller reload
			return nil, false, nil
		}
		var e model.LeaderboardEntry
		if err := json.Unmarshal([]byte(s), &e); err != nil {
			return nil, false, fmt.Errorf("failed to decode leaderboard entry: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, true, nil
}

// Set replaces a cached board atomically.
func (c *Leaderboards) Set(ctx context.Context, id uuid.UUID, entries []model.LeaderboardEntry) error {
	fields := make([]any, 0, 2*len(entries)+2)
	fields = append(fields, computedKey, time.Now().UTC().Format(time.RFC3339))
	ranks := make([]redis.Z, 0, len(entries))
	for _, e := range entries {
		body, err := json.Marshal(e)
		if err != nil {
			return fmt.Errorf("failed to encode leaderboard entry: %w", err)
		}
		member := e.AccountID.String()
		fields = append(fields, member, string(body))
		ranks = append(ranks, redis.Z{Score: float64(e.Rank), Member: member})
	}

	_, err := c.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, rankKey(id), metaKey(id))
		pipe.HSet(ctx, metaKey(id), fields...)
		if len(ranks) > 0 {
			pipe.ZAdd(ctx, rankKey(id), ranks...)
		}
		if c.ttl > 0 {
			pipe.Expire(ctx, rankKey(id), c.ttl)
			pipe.Expire(ctx, metaKey(id), c.ttl)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to cache leaderboard: %w", err)
	}
	return nil
}

// Noop is the cache used when Redis is disabled: every read misses.
type Noop struct{}

// Get always misses.
func (Noop) Get(context.Context, uuid.UUID, int) ([]model.LeaderboardEntry, bool, error) {
	return nil, false, nil
}

// Set discards the entries.
func (Noop) Set(context.Context, uuid.UUID, []model.LeaderboardEntry) error {
	return nil
}
