package outbox

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
)

// memStore serves one batch, then reports empty.
type memStore struct {
	mu       sync.Mutex
	batch    []Event
	sentIDs  []int64
	failedID int64
}

func (s *memStore) LockBatch(ctx context.Context, relayID string, batchSize int, lease time.Duration) ([]Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	batch := s.batch
	s.batch = nil
	return batch, nil
}

func (s *memStore) MarkSent(ctx context.Context, ids []int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sentIDs = append(s.sentIDs, ids...)
	return nil
}

func (s *memStore) MarkFailed(ctx context.Context, id int64, errMsg string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failedID = id
	return nil
}

func (s *memStore) ExtendLease(ctx context.Context, relayID string, ids []int64, lease time.Duration) error {
	return nil
}

func (s *memStore) snapshot() ([]int64, int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]int64(nil), s.sentIDs...), s.failedID
}

// selectiveProducer fails messages whose key matches failKey.
type selectiveProducer struct {
	failKey string
}

func (p *selectiveProducer) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	for _, m := range msgs {
		if string(m.Key) == p.failKey {
			return errors.New("broker rejected message")
		}
	}
	return nil
}

func TestRelay_MarksSentAndFailed(t *testing.T) {
	store := &memStore{batch: []Event{
		{ID: 1, AggregateID: "MC-AAAA1111", Type: "OrderCreated"},
		{ID: 2, AggregateID: "poison", Type: "OrderCreated"},
		{ID: 3, AggregateID: "MC-BBBB2222", Type: "OrderShipped"},
	}}

	producer := &selectiveProducer{failKey: "poison"}
	log := slog.New(slog.DiscardHandler)
	relay := NewRelay(log, store, NewDispatcher(log, producer, "order.events"), "test-relay")
	relay.interval = 10 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = relay.Run(ctx)
		close(done)
	}()

	assert.Eventually(t, func() bool {
		sent, failed := store.snapshot()
		return len(sent) == 2 && failed == 2
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	<-done

	sent, failed := store.snapshot()
	assert.ElementsMatch(t, []int64{1, 3}, sent)
	assert.Equal(t, int64(2), failed)
}
