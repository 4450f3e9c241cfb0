package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	contractsmq "habitflow/contracts/mq"
	"habitflow/pkg/circuitbreaker"
)

type fakeBroker struct {
	err   error
	calls int
	ids   []string
	last  any
}

func (b *fakeBroker) Publish(_ context.Context, _ string, messageID string, payload any) error {
	b.calls++
	b.ids = append(b.ids, messageID)
	b.last = payload
	return b.err
}

func TestBrokerPublisher_FillsEnvelope(t *testing.T) {
	broker := &fakeBroker{}
	pub := NewBrokerPublisher(broker, circuitbreaker.NewCircuitBreaker(circuitbreaker.DefaultConfig()), zap.NewNop())

	pub.Publish(context.Background(), contractsmq.RoutingKeyHistoryCleared, contractsmq.HabitEvent{UserID: 3})

	require.Equal(t, 1, broker.calls)
	ev, ok := broker.last.(contractsmq.HabitEvent)
	require.True(t, ok)
	assert.NotEmpty(t, ev.EventID)
	assert.Equal(t, ev.EventID, broker.ids[0])
	assert.Equal(t, contractsmq.RoutingKeyHistoryCleared, ev.Type)
	assert.False(t, ev.OccurredAt.IsZero())
}

func TestBrokerPublisher_OpenCircuitDropsEvents(t *testing.T) {
	broker := &fakeBroker{err: errors.New("connection reset")}
	breaker := circuitbreaker.NewCircuitBreaker(circuitbreaker.Config{
		FailureThreshold:    2,
		SuccessThreshold:    1,
		Timeout:             time.Hour,
		HalfOpenMaxRequests: 1,
	})
	pub := NewBrokerPublisher(broker, breaker, zap.NewNop())

	for i := 0; i < 5; i++ {
		pub.Publish(context.Background(), contractsmq.RoutingKeyRoutineChanged, contractsmq.HabitEvent{UserID: 1})
	}

	assert.Equal(t, 2, broker.calls)
	assert.Equal(t, circuitbreaker.StateOpen, breaker.GetState())
}

func TestReportCacheKey(t *testing.T) {
	assert.Equal(t, "analytics:42:2026-03-18", ReportCacheKey(42, "2026-03-18"))
}
