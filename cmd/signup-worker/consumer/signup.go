package consumer

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/finvault/affiliate/cmd/signup-worker/registrar"
	"github.com/finvault/affiliate/common/logger"
	"github.com/finvault/affiliate/common/models"
	"github.com/finvault/affiliate/common/queue"
)

// DedupStore marks signup events as processed. The mark is written only
// after a successful registration, so a crash mid-event leaves no mark and
// the redelivery is processed again (the edge PK makes that a no-op).
type DedupStore interface {
	Exists(ctx context.Context, key string) (bool, error)
	SetNX(ctx context.Context, key, value string, expiry time.Duration) (bool, error)
}

// SignupConsumer drains the signup stream and feeds events to the registrar
type SignupConsumer struct {
	queue     queue.Queue
	dedup     DedupStore
	registrar *registrar.Registrar
	stream    string
	dedupTTL  time.Duration
	log       *logger.Logger
}

// New creates a signup consumer
func New(q queue.Queue, dedup DedupStore, reg *registrar.Registrar, stream string, dedupTTL time.Duration, log *logger.Logger) *SignupConsumer {
	return &SignupConsumer{
		queue:     q,
		dedup:     dedup,
		registrar: reg,
		stream:    stream,
		dedupTTL:  dedupTTL,
		log:       log,
	}
}

// Run consumes the signup stream until ctx is cancelled
func (c *SignupConsumer) Run(ctx context.Context) error {
	return c.queue.Subscribe(ctx, c.stream, c.handle)
}

// handle processes one delivery. Returning nil acks the entry; returning
// an error leaves it pending for redelivery.
func (c *SignupConsumer) handle(ctx context.Context, key string, payload []byte) error {
	var event models.SignupEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		c.log.Warn("undecodable signup event, discarding",
			"key", key,
			"error", err)
		return nil
	}

	dedupKey := fmt.Sprintf("signup:seen:%d:%d", event.UID, event.Refid)

	// Cheap short-circuit for redeliveries; correctness never depends on
	// it because the edge primary key absorbs duplicates.
	if seen, err := c.dedup.Exists(ctx, dedupKey); err == nil && seen {
		c.log.Debug("duplicate signup event, skipping",
			"uid", event.UID,
			"refid", event.Refid)
		return nil
	}

	if err := c.registrar.Register(ctx, event); err != nil {
		return err
	}

	if _, err := c.dedup.SetNX(ctx, dedupKey, "1", c.dedupTTL); err != nil {
		c.log.Warn("failed to mark signup as processed",
			"uid", event.UID,
			"refid", event.Refid,
			"error", err)
	}

	return nil
}
