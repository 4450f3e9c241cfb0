package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	contractsmq "habitflow/contracts/mq"
	"habitflow/pkg/outbox"
	"habitflow/pkg/trace"
)

type fakeOutbox struct {
	err    error
	events []*outbox.Event
}

func (o *fakeOutbox) Insert(_ context.Context, e *outbox.Event) error {
	if o.err != nil {
		return o.err
	}
	o.events = append(o.events, e)
	return nil
}

func TestOutboxPublisher_StoresEnvelope(t *testing.T) {
	w := &fakeOutbox{}
	pub := NewOutboxPublisher(w, zap.NewNop())
	ctx := trace.WithContext(context.Background(), "trace-9")

	pub.Publish(ctx, contractsmq.RoutingKeyCompletionToggled, contractsmq.HabitEvent{
		UserID:     4,
		Date:       "2026-03-18",
		Completion: &contractsmq.CompletionToggledPayload{RoutineID: "r1", Completed: true},
	})

	require.Len(t, w.events, 1)
	stored := w.events[0]
	assert.Equal(t, contractsmq.RoutingKeyCompletionToggled, stored.RoutingKey)

	var ev contractsmq.HabitEvent
	require.NoError(t, json.Unmarshal(stored.Payload, &ev))
	assert.Equal(t, stored.MessageID, ev.EventID)
	assert.Equal(t, "trace-9", ev.TraceID)
	assert.Equal(t, contractsmq.RoutingKeyCompletionToggled, ev.Type)
	assert.Equal(t, 4, ev.UserID)
}

func TestOutboxPublisher_InsertErrorIsSwallowed(t *testing.T) {
	w := &fakeOutbox{err: errors.New("db down")}
	pub := NewOutboxPublisher(w, zap.NewNop())

	assert.NotPanics(t, func() {
		pub.Publish(context.Background(), contractsmq.RoutingKeyHistoryCleared, contractsmq.HabitEvent{UserID: 1})
	})
	assert.Empty(t, w.events)
}
