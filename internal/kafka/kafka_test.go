package kafka

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/ariefcatur/go-saga-orders/internal/orders"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memWriter struct {
	mu     sync.Mutex
	msgs   []kafka.Message
	closed bool
}

func (w *memWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *memWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.closed = true
	return nil
}

func TestEventPublisherWritesEnvelopes(t *testing.T) {
	w := &memWriter{}
	prod := NewProducerWithWriter(w, 16, nil)
	prod.Start(context.Background())
	pub := &EventPublisher{Producer: prod, Service: "order-api"}

	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	err := pub.Publish(context.Background(),
		orders.Event{Type: orders.EventOrderPaymentAuthorized, OrderID: "ORD-AAAA1111", Status: orders.StatusPaymentAuthorized, PaymentID: "PAY-1", OccurredAt: at},
		orders.Event{Type: orders.EventOrderRolledBack, OrderID: "ORD-AAAA1111", Status: orders.StatusRollbackCompleted, PaymentID: "PAY-1", Reason: "Inventory deduction failed: out", OccurredAt: at},
	)
	require.NoError(t, err)
	prod.Close()
	prod.WaitClosed()

	require.Len(t, w.msgs, 2)
	assert.True(t, w.closed)
	m := w.msgs[1]
	assert.Equal(t, []byte("ORD-AAAA1111"), m.Key)
	assert.Equal(t, HeaderEventType, m.Headers[0].Key)
	assert.Equal(t, orders.EventOrderRolledBack, string(m.Headers[0].Value))

	env, p, err := DecodeOrderStatus(m.Value)
	require.NoError(t, err)
	assert.Equal(t, "order-api", env.Producer)
	assert.Equal(t, "ORD-AAAA1111", env.CorrelationID)
	assert.Equal(t, at, env.OccurredAt)
	assert.Equal(t, orders.StatusRollbackCompleted, p.Status)
	assert.Equal(t, "Inventory deduction failed: out", p.Reason)
}

func TestPublishNeverBlocks(t *testing.T) {
	prod := NewProducerWithWriter(&memWriter{}, 1, nil) // not started
	require.NoError(t, prod.Publish([]byte("k"), []byte("v")))
	assert.ErrorIs(t, prod.Publish([]byte("k"), []byte("v")), ErrProducerFull)
}

func TestDecodeOrderStatusRejectsGarbage(t *testing.T) {
	_, _, err := DecodeOrderStatus([]byte("{"))
	assert.Error(t, err)
	_, _, err = DecodeOrderStatus([]byte(`{"event_version":2,"payload":{}}`))
	assert.Error(t, err)
	_, _, err = DecodeOrderStatus([]byte(`{"event_version":1,"payload":{"order_id":"ORD-1","status":"SHIPPED"}}`))
	assert.Error(t, err)
}

type memReader struct {
	mu      sync.Mutex
	queue   []kafka.Message
	commits []int64
}

func (r *memReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	r.mu.Lock()
	if len(r.queue) > 0 {
		m := r.queue[0]
		r.queue = r.queue[1:]
		r.mu.Unlock()
		return m, nil
	}
	r.mu.Unlock()
	<-ctx.Done()
	return kafka.Message{}, ctx.Err()
}

func (r *memReader) CommitMessages(_ context.Context, msgs ...kafka.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range msgs {
		r.commits = append(r.commits, m.Offset)
	}
	return nil
}

func (r *memReader) Close() error { return nil }

func runConsumer(t *testing.T, c *Consumer, ctx context.Context, h Handler) {
	t.Helper()
	errCh := make(chan error, 1)
	go func() { errCh <- c.Start(ctx, h) }()
	select {
	case err := <-errCh:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("consumer did not stop")
	}
}

func TestConsumerRetriesFailedMessageBeforeCommittingLater(t *testing.T) {
	r := &memReader{}
	for i := int64(0); i < 4; i++ {
		r.queue = append(r.queue, kafka.Message{Partition: 0, Offset: i})
	}
	c := NewConsumerWithReader(r, 3, nil)
	c.backoff = time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	var mu sync.Mutex
	attempts := map[int64]int{}
	var handled []int64
	runConsumer(t, c, ctx, func(_ context.Context, m kafka.Message) error {
		mu.Lock()
		defer mu.Unlock()
		attempts[m.Offset]++
		if m.Offset == 1 && attempts[m.Offset] == 1 {
			return errors.New("cache down")
		}
		handled = append(handled, m.Offset)
		if m.Offset == 3 {
			// commit of offset 3 happens after this returns
			go func() {
				assert.Eventually(t, func() bool {
					r.mu.Lock()
					defer r.mu.Unlock()
					return len(r.commits) == 4
				}, 2*time.Second, time.Millisecond)
				cancel()
			}()
		}
		return nil
	})

	assert.Equal(t, 2, attempts[1])
	assert.Equal(t, []int64{0, 1, 2, 3}, handled)
	assert.Equal(t, []int64{0, 1, 2, 3}, r.commits)
}

func TestConsumerHoldsPartitionBehindFailingMessage(t *testing.T) {
	r := &memReader{queue: []kafka.Message{
		{Partition: 0, Offset: 0},
		{Partition: 0, Offset: 1},
		{Partition: 1, Offset: 0},
	}}
	c := NewConsumerWithReader(r, 2, nil)
	c.backoff = time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	var mu sync.Mutex
	stuck := 0
	var others []kafka.Message
	runConsumer(t, c, ctx, func(_ context.Context, m kafka.Message) error {
		mu.Lock()
		defer mu.Unlock()
		if m.Partition == 0 && m.Offset == 0 {
			if stuck++; stuck == 5 {
				cancel()
			}
			return errors.New("poison")
		}
		others = append(others, m)
		return nil
	})

	assert.Equal(t, 5, stuck)
	// partition 1 keeps flowing, partition 0 offset 1 waits behind offset 0
	for _, m := range others {
		assert.NotEqual(t, 0, m.Partition)
	}
	assert.NotContains(t, r.commits, int64(1))
}

func TestPublishAfterCloseFails(t *testing.T) {
	w := &memWriter{}
	prod := NewProducerWithWriter(w, 4, nil)
	prod.Start(context.Background())
	require.NoError(t, prod.Publish([]byte("k"), []byte("v")))
	prod.Close()
	prod.WaitClosed()

	assert.NotPanics(t, func() {
		assert.ErrorIs(t, prod.Publish([]byte("k"), []byte("late")), ErrProducerClosed)
		prod.Close()
	})
	assert.True(t, w.closed)
	assert.Len(t, w.msgs, 1)
}
