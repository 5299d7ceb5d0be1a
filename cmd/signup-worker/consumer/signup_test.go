package consumer

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/finvault/affiliate/cmd/signup-worker/registrar"
	"github.com/finvault/affiliate/common/apperr"
	"github.com/finvault/affiliate/common/logger"
	"github.com/finvault/affiliate/common/models"
	"github.com/finvault/affiliate/common/queue"
)

type fakeDedup struct {
	mu   sync.Mutex
	seen map[string]bool
}

func newFakeDedup() *fakeDedup {
	return &fakeDedup{seen: make(map[string]bool)}
}

func (f *fakeDedup) Exists(ctx context.Context, key string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.seen[key], nil
}

func (f *fakeDedup) SetNX(ctx context.Context, key, value string, expiry time.Duration) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.seen[key] {
		return false, nil
	}
	f.seen[key] = true
	return true, nil
}

type fakeStores struct {
	mu       sync.Mutex
	reflinks map[int64]*models.Reflink
	edges    map[[2]int64]int16
}

func newFakeStores() *fakeStores {
	return &fakeStores{
		reflinks: make(map[int64]*models.Reflink),
		edges:    make(map[[2]int64]int16),
	}
}

func (f *fakeStores) Get(ctx context.Context, refid int64) (*models.Reflink, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	reflink, ok := f.reflinks[refid]
	if !ok {
		return nil, apperr.NotFound("reflink %d not found", refid)
	}
	return reflink, nil
}

func (f *fakeStores) ActiveMemberships(ctx context.Context, uid int64, maxLevel int16) ([]models.Affiliation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var memberships []models.Affiliation
	for key, level := range f.edges {
		if key[1] == uid && level <= maxLevel && f.reflinks[key[0]] != nil && f.reflinks[key[0]].Active {
			memberships = append(memberships, models.Affiliation{Refid: key[0], SlaveUID: key[1], SlaveLevel: level})
		}
	}
	return memberships, nil
}

func (f *fakeStores) InsertEdges(ctx context.Context, edges []models.Affiliation) ([]models.Affiliation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var inserted []models.Affiliation
	for _, edge := range edges {
		key := [2]int64{edge.Refid, edge.SlaveUID}
		if _, exists := f.edges[key]; exists {
			continue
		}
		f.edges[key] = edge.SlaveLevel
		inserted = append(inserted, edge)
	}
	return inserted, nil
}

func (f *fakeStores) edgeCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.edges)
}

func newTestConsumer(t *testing.T, stores *fakeStores, dedup *fakeDedup) (*SignupConsumer, queue.Queue) {
	t.Helper()
	log := logger.New("error", "text")
	q := queue.NewMemoryQueue(log)
	reg := registrar.New(stores, stores, log)
	return New(q, dedup, reg, "affiliate.signups", time.Hour, log), q
}

func publishSignup(t *testing.T, q queue.Queue, event models.SignupEvent) {
	t.Helper()
	payload, err := json.Marshal(event)
	require.NoError(t, err)
	require.NoError(t, q.Publish(context.Background(), "affiliate.signups", "signup", payload))
}

func TestConsumer_RegistersSignup(t *testing.T) {
	stores := newFakeStores()
	stores.reflinks[10] = &models.Reflink{Refid: 10, OwnerUID: 1, Active: true}

	consumer, q := newTestConsumer(t, stores, newFakeDedup())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go consumer.Run(ctx)

	publishSignup(t, q, models.SignupEvent{UID: 2, Refid: 10})

	require.Eventually(t, func() bool {
		return stores.edgeCount() == 1
	}, 2*time.Second, 10*time.Millisecond)
}

func TestConsumer_SkipsSeenEvent(t *testing.T) {
	stores := newFakeStores()
	stores.reflinks[10] = &models.Reflink{Refid: 10, OwnerUID: 1, Active: true}

	dedup := newFakeDedup()
	dedup.seen["signup:seen:2:10"] = true

	consumer, _ := newTestConsumer(t, stores, dedup)

	payload, _ := json.Marshal(models.SignupEvent{UID: 2, Refid: 10})
	require.NoError(t, consumer.handle(context.Background(), "signup", payload))
	require.Zero(t, stores.edgeCount())
}

func TestConsumer_MarksProcessedAfterSuccess(t *testing.T) {
	stores := newFakeStores()
	stores.reflinks[10] = &models.Reflink{Refid: 10, OwnerUID: 1, Active: true}

	dedup := newFakeDedup()
	consumer, _ := newTestConsumer(t, stores, dedup)

	payload, _ := json.Marshal(models.SignupEvent{UID: 2, Refid: 10})
	require.NoError(t, consumer.handle(context.Background(), "signup", payload))

	seen, err := dedup.Exists(context.Background(), "signup:seen:2:10")
	require.NoError(t, err)
	require.True(t, seen)
}

func TestConsumer_UndecodablePayloadAcked(t *testing.T) {
	stores := newFakeStores()
	consumer, _ := newTestConsumer(t, stores, newFakeDedup())

	// nil return acks the entry so a poison payload cannot wedge the stream
	require.NoError(t, consumer.handle(context.Background(), "signup", []byte("{not json")))
	require.Zero(t, stores.edgeCount())
}

func TestConsumer_UnknownReflinkAcked(t *testing.T) {
	stores := newFakeStores()
	dedup := newFakeDedup()
	consumer, _ := newTestConsumer(t, stores, dedup)

	payload, _ := json.Marshal(models.SignupEvent{UID: 2, Refid: 99})
	require.NoError(t, consumer.handle(context.Background(), "signup", payload))
	require.Zero(t, stores.edgeCount())
}
