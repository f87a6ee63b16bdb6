package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/aimd54/mystery-box/internal/config"
	"github.com/aimd54/mystery-box/internal/metrics"
)

// Queue is a Redis outbox: a pending list, a retry sorted set scored by due
// time in unix milliseconds, and a dead-letter list.
type Queue struct {
	client *redis.Client
	key    string
	now    func() time.Time
}

// Depth reports the size of each part of the outbox.
type Depth struct {
	Pending    int64 `json:"pending"`
	Retrying   int64 `json:"retrying"`
	DeadLetter int64 `json:"dead_letter"`
}

// NewRedisClient connects to Redis and verifies the connection.
func NewRedisClient(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return client, nil
}

// NewQueue creates a queue rooted at key.
func NewQueue(client *redis.Client, key string) *Queue {
	return &Queue{client: client, key: key, now: time.Now}
}

func (q *Queue) pendingKey() string { return q.key }
func (q *Queue) retryKey() string   { return q.key + ":retry" }
func (q *Queue) deadKey() string    { return q.key + ":dlq" }

// Enqueue appends a message to the pending list.
func (q *Queue) Enqueue(ctx context.Context, msg Message) error {
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = q.now()
	}

	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to encode notification: %w", err)
	}

	if err := q.client.LPush(ctx, q.pendingKey(), payload).Err(); err != nil {
		return fmt.Errorf("failed to enqueue notification: %w", err)
	}

	metrics.RecordNotificationEnqueued(msg.Type)
	return nil
}

// pop takes the oldest pending message. ok is false when the list is empty.
func (q *Queue) pop(ctx context.Context) (msg Message, raw string, ok bool, err error) {
	raw, err = q.client.RPop(ctx, q.pendingKey()).Result()
	if errors.Is(err, redis.Nil) {
		return Message{}, "", false, nil
	}
	if err != nil {
		return Message{}, "", false, fmt.Errorf("failed to pop notification: %w", err)
	}

	if err := json.Unmarshal([]byte(raw), &msg); err != nil {
		return Message{}, raw, true, fmt.Errorf("failed to decode notification: %w", err)
	}
	return msg, raw, true, nil
}

// requeue puts a popped payload back at the head of the pending list.
func (q *Queue) requeue(ctx context.Context, raw string) error {
	if err := q.client.RPush(ctx, q.pendingKey(), raw).Err(); err != nil {
		return fmt.Errorf("failed to requeue notification: %w", err)
	}
	return nil
}

func encode(msg Message) ([]byte, error) {
	payload, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("failed to encode notification: %w", err)
	}
	return payload, nil
}

// scheduleRetry parks a message until its backoff has elapsed.
func (q *Queue) scheduleRetry(ctx context.Context, msg Message, delay time.Duration) error {
	payload, err := encode(msg)
	if err != nil {
		return err
	}

	due := q.now().Add(delay).UnixMilli()
	if err := q.client.ZAdd(ctx, q.retryKey(), redis.Z{Score: float64(due), Member: payload}).Err(); err != nil {
		return fmt.Errorf("failed to schedule notification retry: %w", err)
	}
	return nil
}

// deadLetter stores a payload that will not be retried again.
func (q *Queue) deadLetter(ctx context.Context, payload []byte) error {
	if err := q.client.LPush(ctx, q.deadKey(), payload).Err(); err != nil {
		return fmt.Errorf("failed to dead-letter notification: %w", err)
	}
	metrics.RecordNotificationDeadLettered()
	return nil
}

// PromoteDue moves retries whose backoff has elapsed back to the pending list.
func (q *Queue) PromoteDue(ctx context.Context) (int, error) {
	upTo := strconv.FormatInt(q.now().UnixMilli(), 10)
	due, err := q.client.ZRangeByScore(ctx, q.retryKey(), &redis.ZRangeBy{Min: "-inf", Max: upTo}).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to read due retries: %w", err)
	}

	promoted := 0
	for _, payload := range due {
		// ZREM decides ownership when several dispatchers race for the same entry.
		removed, err := q.client.ZRem(ctx, q.retryKey(), payload).Result()
		if err != nil {
			return promoted, fmt.Errorf("failed to claim retry: %w", err)
		}
		if removed == 0 {
			continue
		}
		if err := q.client.LPush(ctx, q.pendingKey(), payload).Err(); err != nil {
			return promoted, fmt.Errorf("failed to requeue retry: %w", err)
		}
		promoted++
	}
	return promoted, nil
}

// ReplayDeadLetters moves every dead-lettered message back to pending with a
// fresh attempt budget.
func (q *Queue) ReplayDeadLetters(ctx context.Context) (int, error) {
	replayed := 0
	for {
		raw, err := q.client.RPop(ctx, q.deadKey()).Result()
		if errors.Is(err, redis.Nil) {
			return replayed, nil
		}
		if err != nil {
			return replayed, fmt.Errorf("failed to pop dead letter: %w", err)
		}

		var msg Message
		if err := json.Unmarshal([]byte(raw), &msg); err != nil {
			// Undecodable payloads go back where they came from.
			if perr := q.client.LPush(ctx, q.deadKey(), raw).Err(); perr != nil {
				return replayed, fmt.Errorf("failed to restore dead letter: %w", perr)
			}
			return replayed, fmt.Errorf("failed to decode dead letter: %w", err)
		}

		msg.Attempts = 0
		msg.LastError = ""
		payload, err := json.Marshal(msg)
		if err != nil {
			return replayed, fmt.Errorf("failed to encode notification: %w", err)
		}
		if err := q.client.LPush(ctx, q.pendingKey(), payload).Err(); err != nil {
			return replayed, fmt.Errorf("failed to replay dead letter: %w", err)
		}
		replayed++
	}
}

// Depth returns the current outbox sizes and publishes them as gauges.
func (q *Queue) Depth(ctx context.Context) (Depth, error) {
	pipe := q.client.Pipeline()
	pending := pipe.LLen(ctx, q.pendingKey())
	retrying := pipe.ZCard(ctx, q.retryKey())
	dead := pipe.LLen(ctx, q.deadKey())
	if _, err := pipe.Exec(ctx); err != nil {
		return Depth{}, fmt.Errorf("failed to read queue depth: %w", err)
	}

	d := Depth{
		Pending:    pending.Val(),
		Retrying:   retrying.Val(),
		DeadLetter: dead.Val(),
	}
	metrics.SetNotificationQueueDepth("pending", d.Pending)
	metrics.SetNotificationQueueDepth("retry", d.Retrying)
	metrics.SetNotificationQueueDepth("dlq", d.DeadLetter)
	return d, nil
}

// Purge removes every queued, retrying and dead-lettered message.
func (q *Queue) Purge(ctx context.Context) error {
	if err := q.client.Del(ctx, q.pendingKey(), q.retryKey(), q.deadKey()).Err(); err != nil {
		return fmt.Errorf("failed to purge notification queue: %w", err)
	}
	return nil
}
