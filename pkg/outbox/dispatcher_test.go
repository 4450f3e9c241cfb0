package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"habitflow/pkg/trace"
)

type fakeStore struct {
	mu      sync.Mutex
	pending []*Event
	sent    []int64
	failed  []int64
	listErr error
}

func (s *fakeStore) GetPendingEvents(_ context.Context, limit int) ([]*Event, error) {
	if s.listErr != nil {
		return nil, s.listErr
	}
	if len(s.pending) > limit {
		return s.pending[:limit], nil
	}
	return s.pending, nil
}

func (s *fakeStore) MarkAsSent(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, id)
	return nil
}

func (s *fakeStore) sentCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sent)
}

func (s *fakeStore) MarkAsFailed(_ context.Context, id int64, _ int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failed = append(s.failed, id)
	return nil
}

type published struct {
	routingKey, messageID, traceID string
	body                           []byte
}

type fakePublisher struct {
	failKey string
	out     []published
}

func (p *fakePublisher) Publish(ctx context.Context, routingKey, messageID string, payload any) error {
	if routingKey == p.failKey {
		return errors.New("channel closed")
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	p.out = append(p.out, published{routingKey, messageID, trace.FromContext(ctx), body})
	return nil
}

func TestDispatchOnce(t *testing.T) {
	store := &fakeStore{pending: []*Event{
		{ID: 1, MessageID: "m1", RoutingKey: "completion.toggled", Payload: json.RawMessage(`{"user_id":1,"trace_id":"t-1"}`)},
		{ID: 2, MessageID: "m2", RoutingKey: "routine.changed", Payload: json.RawMessage(`{"user_id":1}`)},
		{ID: 3, MessageID: "m3", RoutingKey: "history.cleared", Payload: json.RawMessage(`{"user_id":2}`)},
	}}
	pub := &fakePublisher{failKey: "routine.changed"}
	d := NewDispatcher(store, pub, zap.NewNop())

	sent := d.DispatchOnce(context.Background())

	assert.Equal(t, 2, sent)
	assert.Equal(t, []int64{1, 3}, store.sent)
	assert.Equal(t, []int64{2}, store.failed)

	require.Len(t, pub.out, 2)
	assert.Equal(t, "m1", pub.out[0].messageID)
	assert.Equal(t, "t-1", pub.out[0].traceID)
	assert.JSONEq(t, `{"user_id":1,"trace_id":"t-1"}`, string(pub.out[0].body))
	assert.Empty(t, pub.out[1].traceID)
}

func TestDispatchOnce_InvalidPayloadFails(t *testing.T) {
	store := &fakeStore{pending: []*Event{{ID: 7, RoutingKey: "routine.changed", Payload: json.RawMessage(`{oops`)}}}
	pub := &fakePublisher{}

	assert.Zero(t, NewDispatcher(store, pub, zap.NewNop()).DispatchOnce(context.Background()))
	assert.Equal(t, []int64{7}, store.failed)
	assert.Empty(t, pub.out)
}

func TestDispatchOnce_RespectsBatchSize(t *testing.T) {
	store := &fakeStore{}
	for i := int64(1); i <= 5; i++ {
		store.pending = append(store.pending, &Event{ID: i, RoutingKey: "routine.changed", Payload: json.RawMessage(`{}`)})
	}
	d := NewDispatcher(store, &fakePublisher{}, zap.NewNop()).WithBatchSize(2)

	assert.Equal(t, 2, d.DispatchOnce(context.Background()))
}

func TestDispatchOnce_StoreError(t *testing.T) {
	store := &fakeStore{listErr: errors.New("db down")}
	assert.Zero(t, NewDispatcher(store, &fakePublisher{}, zap.NewNop()).DispatchOnce(context.Background()))
}

func TestStartStopsOnCancel(t *testing.T) {
	store := &fakeStore{pending: []*Event{{ID: 1, RoutingKey: "routine.changed", Payload: json.RawMessage(`{}`)}}}
	d := NewDispatcher(store, &fakePublisher{}, zap.NewNop()).WithInterval(time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		d.Start(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool { return store.sentCount() > 0 }, time.Second, time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("dispatcher did not stop")
	}
}

func TestRetryDelay(t *testing.T) {
	assert.Equal(t, 5*time.Second, RetryDelay(1))
	assert.Equal(t, 15*time.Second, RetryDelay(3))
}
