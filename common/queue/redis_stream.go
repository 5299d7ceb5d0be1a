package queue

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/finvault/affiliate/common/logger"
)

// RedisStreamQueue implements Queue on Redis streams with consumer groups.
// Acknowledgment happens only after the handler succeeds, so a crash
// between delivery and commit leaves the entry pending for redelivery
// (at-least-once).
type RedisStreamQueue struct {
	redis        *redis.Client
	group        string
	consumerName string
	readBlock    time.Duration
	log          *logger.Logger
}

// NewRedisStreamQueue creates a stream-backed queue bound to one consumer
// group. Each instance gets a unique consumer name within the group.
func NewRedisStreamQueue(redisClient *redis.Client, group string, readBlock time.Duration, log *logger.Logger) *RedisStreamQueue {
	return &RedisStreamQueue{
		redis:        redisClient,
		group:        group,
		consumerName: fmt.Sprintf("consumer_%s", uuid.New().String()[:8]),
		readBlock:    readBlock,
		log:          log,
	}
}

// Publish appends a message to a stream
func (q *RedisStreamQueue) Publish(ctx context.Context, topic string, key string, message []byte) error {
	err := q.redis.XAdd(ctx, &redis.XAddArgs{
		Stream: topic,
		Values: map[string]any{
			"key":     key,
			"payload": message,
		},
	}).Err()
	if err != nil {
		return fmt.Errorf("XADD to %s: %w", topic, err)
	}
	return nil
}

// Subscribe consumes a stream through the consumer group until ctx is
// cancelled
func (q *RedisStreamQueue) Subscribe(ctx context.Context, topic string, handler MessageHandler) error {
	err := q.redis.XGroupCreateMkStream(ctx, topic, q.group, "0").Err()
	if err != nil && !strings.Contains(err.Error(), "BUSYGROUP") {
		return fmt.Errorf("create consumer group: %w", err)
	}

	q.log.Info("subscribing to stream",
		"stream", topic,
		"group", q.group,
		"consumer", q.consumerName)

	for {
		select {
		case <-ctx.Done():
			q.log.Info("stream subscription cancelled", "stream", topic)
			return nil
		default:
			if err := q.readBatch(ctx, topic, handler); err != nil {
				q.log.Error("failed to read stream batch", "stream", topic, "error", err)
				time.Sleep(1 * time.Second) // Back off on error
			}
		}
	}
}

// Close is a no-op; the redis client is owned by the caller
func (q *RedisStreamQueue) Close() error {
	return nil
}

func (q *RedisStreamQueue) readBatch(ctx context.Context, topic string, handler MessageHandler) error {
	streams, err := q.redis.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    q.group,
		Consumer: q.consumerName,
		Streams:  []string{topic, ">"},
		Count:    10,
		Block:    q.readBlock,
	}).Result()

	if err == redis.Nil {
		return nil
	}
	if err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("XREADGROUP: %w", err)
	}

	for _, stream := range streams {
		for _, message := range stream.Messages {
			key, _ := message.Values["key"].(string)
			payload, _ := message.Values["payload"].(string)

			if err := handler(ctx, key, []byte(payload)); err != nil {
				// No ack: the entry stays pending and is redelivered
				q.log.Error("message handler failed, leaving pending",
					"stream", topic,
					"message_id", message.ID,
					"error", err)
				continue
			}

			if err := q.redis.XAck(ctx, topic, q.group, message.ID).Err(); err != nil {
				q.log.Error("failed to ACK message",
					"stream", topic,
					"message_id", message.ID,
					"error", err)
			}
		}
	}

	return nil
}
