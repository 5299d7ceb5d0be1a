package queue

import (
	"context"
	"sync"

	"github.com/finvault/affiliate/common/logger"
)

// Queue interface for message passing
type Queue interface {
	Publish(ctx context.Context, topic string, key string, message []byte) error
	// Subscribe consumes a topic until ctx is cancelled. A message is
	// acknowledged only when the handler returns nil; a failed message is
	// left for redelivery, so handlers must be idempotent.
	Subscribe(ctx context.Context, topic string, handler MessageHandler) error
	Close() error
}

// MessageHandler processes messages
type MessageHandler func(ctx context.Context, key string, value []byte) error

// Message represents a queue message
type Message struct {
	Topic string
	Key   string
	Value []byte
}

// MemoryQueue is an in-memory queue for tests and local development.
// It does not simulate redelivery of failed messages.
type MemoryQueue struct {
	topics map[string]chan *Message
	mu     sync.RWMutex
	log    *logger.Logger
}

// NewMemoryQueue creates a new in-memory queue
func NewMemoryQueue(log *logger.Logger) *MemoryQueue {
	return &MemoryQueue{
		topics: make(map[string]chan *Message),
		log:    log,
	}
}

// Publish publishes a message to a topic
func (q *MemoryQueue) Publish(ctx context.Context, topic string, key string, message []byte) error {
	ch := q.channel(topic)

	msg := &Message{
		Topic: topic,
		Key:   key,
		Value: message,
	}

	select {
	case ch <- msg:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	default:
		q.log.Warn("queue full", "topic", topic)
		return nil
	}
}

// Subscribe consumes messages from a topic until ctx is cancelled
func (q *MemoryQueue) Subscribe(ctx context.Context, topic string, handler MessageHandler) error {
	ch := q.channel(topic)

	q.log.Info("subscribing to topic", "topic", topic)

	for {
		select {
		case <-ctx.Done():
			q.log.Info("subscription cancelled", "topic", topic)
			return nil
		case msg := <-ch:
			if msg == nil {
				return nil
			}
			if err := handler(ctx, msg.Key, msg.Value); err != nil {
				q.log.Error("message handler error", "topic", topic, "key", msg.Key, "error", err)
			}
		}
	}
}

// Close closes the queue
func (q *MemoryQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	for topic, ch := range q.topics {
		close(ch)
		q.log.Info("closed topic", "topic", topic)
	}
	q.topics = make(map[string]chan *Message)

	return nil
}

func (q *MemoryQueue) channel(topic string) chan *Message {
	q.mu.Lock()
	defer q.mu.Unlock()

	ch, exists := q.topics[topic]
	if !exists {
		ch = make(chan *Message, 1000)
		q.topics[topic] = ch
	}
	return ch
}
