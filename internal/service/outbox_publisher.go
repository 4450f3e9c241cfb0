package service

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	contractsmq "habitflow/contracts/mq"
	"habitflow/pkg/logger"
	"habitflow/pkg/metrics"
	"habitflow/pkg/outbox"
)

// OutboxWriter is satisfied by *outbox.Repository.
type OutboxWriter interface {
	Insert(ctx context.Context, event *outbox.Event) error
}

// OutboxPublisher stores events in the outbox table instead of talking to
// the broker; outbox.Dispatcher relays them. Events survive broker outages
// at the cost of one extra insert per change.
type OutboxPublisher struct {
	outbox  OutboxWriter
	timeout time.Duration
	logger  *zap.Logger
}

func NewOutboxPublisher(w OutboxWriter, logger *zap.Logger) *OutboxPublisher {
	return &OutboxPublisher{outbox: w, timeout: 2 * time.Second, logger: logger}
}

func (p *OutboxPublisher) Publish(ctx context.Context, routingKey string, event contractsmq.HabitEvent) {
	event = envelope(ctx, routingKey, event)
	log := logger.WithTrace(ctx, p.logger).With(
		zap.String("routing_key", routingKey),
		zap.String("event_id", event.EventID),
	)

	payload, err := json.Marshal(event)
	if err != nil {
		metrics.IncrementEventPublished(routingKey, "failed")
		log.Error("Failed to encode event", zap.Error(err))
		return
	}

	insertCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.timeout)
	defer cancel()

	if err := p.outbox.Insert(insertCtx, &outbox.Event{
		MessageID:  event.EventID,
		RoutingKey: routingKey,
		Payload:    payload,
	}); err != nil {
		metrics.IncrementEventPublished(routingKey, "failed")
		log.Error("Failed to store event in outbox", zap.Error(err))
		return
	}
	metrics.IncrementEventPublished(routingKey, "queued")
}
