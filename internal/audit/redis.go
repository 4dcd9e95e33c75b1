package audit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"kinderwise/internal/model"

	"github.com/redis/go-redis/v9"
)

const (
	queueKey   = "queue:audit"
	popTimeout = time.Second
)

// RedisQueue keeps pending audit entries in a Redis list.
type RedisQueue struct {
	rdb *redis.Client
}

// NewRedisQueue connects to addr and verifies the connection.
func NewRedisQueue(addr string) (*RedisQueue, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr: addr,
	})
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return &RedisQueue{rdb: rdb}, nil
}

func (q *RedisQueue) Close() error {
	return q.rdb.Close()
}

func (q *RedisQueue) Push(ctx context.Context, entry model.IngestionLogEntry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("encode audit entry: %w", err)
	}
	return q.rdb.LPush(ctx, queueKey, data).Err()
}

// Pop blocks until an entry is available or ctx is done. BRPOP is issued
// with a short timeout so cancellation is noticed between calls.
func (q *RedisQueue) Pop(ctx context.Context) (model.IngestionLogEntry, error) {
	var entry model.IngestionLogEntry

	for {
		result, err := q.rdb.BRPop(ctx, popTimeout, queueKey).Result()
		switch {
		case errors.Is(err, redis.Nil):
			if ctx.Err() != nil {
				return entry, ctx.Err()
			}
			continue
		case err != nil:
			return entry, err
		}

		if err := json.Unmarshal([]byte(result[1]), &entry); err != nil {
			return entry, fmt.Errorf("decode audit entry: %w", err)
		}
		return entry, nil
	}
}

// Len reports the number of entries waiting to be drained.
func (q *RedisQueue) Len(ctx context.Context) (int64, error) {
	return q.rdb.LLen(ctx, queueKey).Result()
}
