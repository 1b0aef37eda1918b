package travel

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStreamPublisher mirrors saga progress into Redis: the latest state of
// each package lives in a hash, and every event is appended to a stream for
// downstream consumers.
type RedisStreamPublisher struct {
	client    RedisPipelineClient
	stream    string
	keyPrefix string
	ttl       time.Duration
	maxLen    int64
}

// RedisPipelineClient is the minimal client surface used by RedisStreamPublisher.
type RedisPipelineClient interface {
	Pipeline() RedisPipeliner
}

// RedisPipeliner is the subset of commands used within a pipeline.
type RedisPipeliner interface {
	HSet(ctx context.Context, key string, values ...any) *redis.IntCmd
	Expire(ctx context.Context, key string, expiration time.Duration) *redis.BoolCmd
	XAdd(ctx context.Context, a *redis.XAddArgs) *redis.StringCmd
	Exec(ctx context.Context) ([]redis.Cmder, error)
}

// NewRedisStreamPublisher constructs a Redis-backed event publisher.
func NewRedisStreamPublisher(client RedisPipelineClient, stream string, ttl time.Duration, maxLen int64) *RedisStreamPublisher {
	if stream == "" {
		stream = "travel_events"
	}
	return &RedisStreamPublisher{
		client:    client,
		stream:    stream,
		keyPrefix: "saga:",
		ttl:       ttl,
		maxLen:    maxLen,
	}
}

// Publish updates the package's hash and appends the event to the stream.
func (r *RedisStreamPublisher) Publish(ctx context.Context, ev Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	payload, err := marshalEvent(ev)
	if err != nil {
		return err
	}

	correlationID := ev.Correlation().String()
	key := r.keyPrefix + correlationID
	timestamp := time.Now().UTC().Format(time.RFC3339Nano)

	pipe := r.client.Pipeline()
	pipe.HSet(ctx, key, map[string]any{
		"correlation_id": correlationID,
		"last_event":     ev.EventName(),
		"payload":        string(payload),
		"timestamp":      timestamp,
	})
	if r.ttl > 0 {
		pipe.Expire(ctx, key, r.ttl)
	}

	args := &redis.XAddArgs{
		Stream: r.stream,
		Values: map[string]any{
			"correlation_id": correlationID,
			"event":          ev.EventName(),
			"payload":        string(payload),
			"timestamp":      timestamp,
		},
	}
	if r.maxLen > 0 {
		args.MaxLen = r.maxLen
		args.Approx = true
	}
	pipe.XAdd(ctx, args)

	_, err = pipe.Exec(ctx)
	return err
}
