package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/vietddude/luna/internal/core/domain"
)

// RunRepo implements storage.RunRepository using Redis. Each run is a JSON
// value; a sorted set scored by start time indexes them.
type RunRepo struct {
	client    *Client
	retention time.Duration
}

// NewRunRepo creates a new Redis-backed run repository.
func NewRunRepo(client *Client, retention time.Duration) *RunRepo {
	return &RunRepo{client: client, retention: retention}
}

// Key helpers
func (r *RunRepo) indexKey() string {
	return fmt.Sprintf("%s:runs", r.client.prefix)
}

func (r *RunRepo) runKey(id string) string {
	return fmt.Sprintf("%s:run:%s", r.client.prefix, id)
}

// Save stores a run and indexes it by start time.
func (r *RunRepo) Save(ctx context.Context, run *domain.Run) error {
	data, err := json.Marshal(run)
	if err != nil {
		return fmt.Errorf("failed to marshal run: %w", err)
	}

	pipe := r.client.rdb.TxPipeline()
	pipe.Set(ctx, r.runKey(run.ID), data, r.retention)
	pipe.ZAdd(ctx, r.indexKey(), redis.Z{
		Score:  float64(run.StartedAt.UnixMilli()),
		Member: run.ID,
	})
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to save run: %w", err)
	}
	return nil
}

// Get retrieves a run by id.
func (r *RunRepo) Get(ctx context.Context, id string) (*domain.Run, error) {
	data, err := r.client.rdb.Get(ctx, r.runKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, domain.ErrRunNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}

	var run domain.Run
	if err := json.Unmarshal(data, &run); err != nil {
		return nil, fmt.Errorf("failed to unmarshal run: %w", err)
	}
	return &run, nil
}

// List returns runs newest first. Index entries whose data expired are pruned.
func (r *RunRepo) List(ctx context.Context, limit int) ([]*domain.Run, error) {
	stop := int64(-1)
	if limit > 0 {
		stop = int64(limit - 1)
	}
	ids, err := r.client.rdb.ZRevRange(ctx, r.indexKey(), 0, stop).Result()
	if err != nil {
		return nil, fmt.Errorf("zrevrange failed: %w", err)
	}

	runs := make([]*domain.Run, 0, len(ids))
	for _, id := range ids {
		run, err := r.Get(ctx, id)
		if errors.Is(err, domain.ErrRunNotFound) {
			// Data expired but ID still indexed, remove it
			r.client.rdb.ZRem(ctx, r.indexKey(), id)
			continue
		}
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, nil
}

// DeleteOlderThan removes runs whose start time is before the given time.
func (r *RunRepo) DeleteOlderThan(ctx context.Context, before time.Time) (int, error) {
	upper := fmt.Sprintf("(%d", before.UnixMilli())
	ids, err := r.client.rdb.ZRangeByScore(ctx, r.indexKey(), &redis.ZRangeBy{Min: "-inf", Max: upper}).Result()
	if err != nil {
		return 0, fmt.Errorf("zrangebyscore failed: %w", err)
	}
	if len(ids) == 0 {
		return 0, nil
	}

	keys := make([]string, 0, len(ids))
	members := make([]interface{}, 0, len(ids))
	for _, id := range ids {
		keys = append(keys, r.runKey(id))
		members = append(members, id)
	}

	pipe := r.client.rdb.TxPipeline()
	pipe.Del(ctx, keys...)
	pipe.ZRem(ctx, r.indexKey(), members...)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("failed to delete runs: %w", err)
	}
	return len(ids), nil
}

// Close closes the Redis connection.
func (r *RunRepo) Close() error {
	return r.client.Close()
}
