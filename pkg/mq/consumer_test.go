package mq

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"sync"
	"testing"

	"github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestDecide(t *testing.T) {
	jsonErr := json.Unmarshal([]byte("{"), &struct{}{})
	netErr := &net.OpError{Op: "dial", Err: errors.New("refused")}

	tests := []struct {
		name       string
		err        error
		attempt    int64
		want       Action
		wantReason string
	}{
		{"success", nil, 1, ActionAck, ""},
		{"bad payload goes straight to dlq", jsonErr, 1, ActionDeadLetter, "json_decode_error"},
		{"network error is retried", netErr, 1, ActionRequeue, "network_error"},
		{"network error on last attempt", netErr, 3, ActionRequeue, "network_error"},
		{"network error exhausted", netErr, 4, ActionDeadLetter, "network_error"},
		{"timeout", context.DeadlineExceeded, 2, ActionRequeue, "timeout"},
		{"unknown error", errors.New("boom"), 1, ActionDeadLetter, "unknown_error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, reason := Decide(tt.err, tt.attempt, 3)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.wantReason, reason)
		})
	}
}

func TestActionString(t *testing.T) {
	assert.Equal(t, "ack", ActionAck.String())
	assert.Equal(t, "requeue", ActionRequeue.String())
	assert.Equal(t, "dead_letter", ActionDeadLetter.String())
	assert.Equal(t, "unknown", Action(42).String())
}

type fakeAcker struct {
	mu      sync.Mutex
	acks    int
	requeue []bool
}

func (a *fakeAcker) Ack(uint64, bool) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.acks++
	return nil
}

func (a *fakeAcker) Nack(_ uint64, _ bool, requeue bool) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.requeue = append(a.requeue, requeue)
	return nil
}

func (a *fakeAcker) Reject(tag uint64, requeue bool) error {
	return a.Nack(tag, false, requeue)
}

type brokenCounter struct{}

func (brokenCounter) IncrementAndGet(context.Context, string) (int64, error) {
	return 0, errors.New("redis: connection refused")
}

func (brokenCounter) Reset(context.Context, string) error { return nil }

type parkedMessage struct {
	messageID string
	reason    string
}

type fakeDLQ struct {
	parked []parkedMessage
}

func (d *fakeDLQ) PublishToDLQ(_ context.Context, _, messageID string, _ []byte, reason string) error {
	d.parked = append(d.parked, parkedMessage{messageID: messageID, reason: reason})
	return nil
}

func newTestConsumer(h MessageHandler, policy *RetryPolicy) *Consumer {
	return &Consumer{handler: h, retry: policy, logger: zap.NewNop()}
}

func TestAttemptFallsBackToRedelivered(t *testing.T) {
	tests := []struct {
		name        string
		counter     RetryCounter
		messageID   string
		redelivered bool
		want        int64
	}{
		{"counter error first delivery", brokenCounter{}, "m1", false, 1},
		{"counter error redelivery", brokenCounter{}, "m1", true, 4},
		{"no message id first delivery", nil, "", false, 1},
		{"no message id redelivery", nil, "", true, 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestConsumer(nil, &RetryPolicy{Counter: tt.counter, MaxRetries: 3})
			got := c.attempt(context.Background(), amqp091.Delivery{MessageId: tt.messageID, Redelivered: tt.redelivered})
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestHandleRetryableErrorIsBoundedWithoutCounter(t *testing.T) {
	netErr := &net.OpError{Op: "dial", Err: errors.New("refused")}
	dlq := &fakeDLQ{}
	c := newTestConsumer(func(context.Context, json.RawMessage) error { return netErr },
		&RetryPolicy{Counter: brokenCounter{}, MaxRetries: 3, DLQ: dlq})

	acker := &fakeAcker{}
	c.handle(context.Background(), amqp091.Delivery{Acknowledger: acker, MessageId: "m1"})
	assert.Equal(t, []bool{true}, acker.requeue)
	assert.Empty(t, dlq.parked)

	c.handle(context.Background(), amqp091.Delivery{Acknowledger: acker, MessageId: "m1", Redelivered: true})
	assert.Equal(t, []bool{true}, acker.requeue)
	assert.Equal(t, 1, acker.acks)
	assert.Equal(t, []parkedMessage{{messageID: "m1", reason: "network_error"}}, dlq.parked)
}

func TestHandlePanicGoesToDLQ(t *testing.T) {
	dlq := &fakeDLQ{}
	c := newTestConsumer(func(context.Context, json.RawMessage) error { panic("nil map") },
		&RetryPolicy{MaxRetries: 3, DLQ: dlq})

	acker := &fakeAcker{}
	require.NotPanics(t, func() {
		c.handle(context.Background(), amqp091.Delivery{Acknowledger: acker, MessageId: "m2"})
	})
	assert.Equal(t, []parkedMessage{{messageID: "m2", reason: "handler_panic"}}, dlq.parked)
	assert.Equal(t, 1, acker.acks)
	assert.Empty(t, acker.requeue)
}

func TestHandlePanicWithoutPolicyIsRejected(t *testing.T) {
	c := newTestConsumer(func(context.Context, json.RawMessage) error { panic("nil map") }, nil)

	acker := &fakeAcker{}
	c.handle(context.Background(), amqp091.Delivery{Acknowledger: acker})
	assert.Equal(t, []bool{false}, acker.requeue)
	assert.Zero(t, acker.acks)
}
