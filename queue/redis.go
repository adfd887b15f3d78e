package queue

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"
)

// RedisConfig holds the Redis queue store configuration.
type RedisConfig struct {
	Addr     string `yaml:"addr" default:"localhost:6379" validate:"required"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db" default:"0" validate:"gte=0"`
}

// Redis is a Store shared by every engine instance. Membership lives in one
// hash per queue, callSID -> enter timestamp, so occupancy and wait derive
// from the same atomic structure.
type Redis struct {
	client *redis.Client
	clock  func() time.Time
}

func NewRedis(cfg RedisConfig) (*Redis, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return &Redis{client: client, clock: time.Now}, nil
}

// SetClock pins the wait clock. Test helper.
func (r *Redis) SetClock(clock func() time.Time) {
	r.clock = clock
}

func waitingKey(tenant, queue string) string {
	return fmt.Sprintf("queue:%s:%s:waiting", tenant, queue)
}

// Enter marks the call as waiting. Re-entry from wait-loop polling keeps the
// original enter time so measured waits stay accurate.
func (r *Redis) Enter(ctx context.Context, tenant, queue, callSID string) error {
	err := r.client.HSetNX(ctx, waitingKey(tenant, queue), callSID, r.clock().Unix()).Err()
	if err != nil {
		return fmt.Errorf("enter queue %s: %w", queue, err)
	}
	return nil
}

func (r *Redis) Leave(ctx context.Context, tenant, queue, callSID string) error {
	err := r.client.HDel(ctx, waitingKey(tenant, queue), callSID).Err()
	if err != nil {
		return fmt.Errorf("leave queue %s: %w", queue, err)
	}
	return nil
}

func (r *Redis) Occupancy(ctx context.Context, tenant, queue string) (int, error) {
	n, err := r.client.HLen(ctx, waitingKey(tenant, queue)).Result()
	if err != nil {
		return 0, fmt.Errorf("queue %s occupancy: %w", queue, err)
	}
	return int(n), nil
}

func (r *Redis) AverageWait(ctx context.Context, tenant, queue string) (time.Duration, error) {
	entered, err := r.client.HVals(ctx, waitingKey(tenant, queue)).Result()
	if err != nil {
		return 0, fmt.Errorf("queue %s waits: %w", queue, err)
	}
	if len(entered) == 0 {
		return 0, nil
	}

	now := r.clock().Unix()
	var total int64
	for _, raw := range entered {
		ts, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			continue
		}
		if ts < now {
			total += now - ts
		}
	}
	return time.Duration(total/int64(len(entered))) * time.Second, nil
}

// Close releases the Redis connection pool.
func (r *Redis) Close() error {
	return r.client.Close()
}
