package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	contractsmq "habitflow/contracts/mq"
	"habitflow/pkg/circuitbreaker"
	"habitflow/pkg/logger"
	"habitflow/pkg/metrics"
	"habitflow/pkg/trace"
)

// EventPublisher announces habit changes to the worker. Publish failures
// must never fail the user's request, so implementations only log.
type EventPublisher interface {
	Publish(ctx context.Context, routingKey string, event contractsmq.HabitEvent)
}

// Broker is the slice of *mq.Publisher the services need.
type Broker interface {
	Publish(ctx context.Context, routingKey, messageID string, payload any) error
}

// NoopPublisher is used when MQ is not configured.
type NoopPublisher struct{}

func (NoopPublisher) Publish(_ context.Context, routingKey string, _ contractsmq.HabitEvent) {
	metrics.IncrementEventPublished(routingKey, "dropped")
}

type BrokerPublisher struct {
	broker  Broker
	breaker *circuitbreaker.CircuitBreaker
	timeout time.Duration
	logger  *zap.Logger
}

func NewBrokerPublisher(broker Broker, breaker *circuitbreaker.CircuitBreaker, logger *zap.Logger) *BrokerPublisher {
	return &BrokerPublisher{
		broker:  broker,
		breaker: breaker,
		timeout: 2 * time.Second,
		logger:  logger,
	}
}

// envelope fills the fields every published event carries.
func envelope(ctx context.Context, routingKey string, event contractsmq.HabitEvent) contractsmq.HabitEvent {
	if event.EventID == "" {
		event.EventID = uuid.NewString()
	}
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now().UTC()
	}
	if event.TraceID == "" {
		event.TraceID = trace.FromContext(ctx)
	}
	event.Type = routingKey
	return event
}

func (p *BrokerPublisher) Publish(ctx context.Context, routingKey string, event contractsmq.HabitEvent) {
	event = envelope(ctx, routingKey, event)

	// The request context may be cancelled as soon as the response is
	// written; the publish gets its own deadline.
	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.timeout)
	defer cancel()

	err := p.breaker.Execute(func() error {
		return p.broker.Publish(pubCtx, routingKey, event.EventID, event)
	})

	log := logger.WithTrace(ctx, p.logger)
	switch {
	case err == nil:
		metrics.IncrementEventPublished(routingKey, "ok")
	case errors.Is(err, circuitbreaker.ErrCircuitBreakerOpen):
		metrics.IncrementEventPublished(routingKey, "dropped")
		log.Warn("Event dropped, broker circuit open",
			zap.String("routing_key", routingKey),
			zap.String("event_id", event.EventID),
		)
	default:
		metrics.IncrementEventPublished(routingKey, "failed")
		log.Error("Failed to publish event",
			zap.String("routing_key", routingKey),
			zap.String("event_id", event.EventID),
			zap.Error(err),
		)
	}
}
