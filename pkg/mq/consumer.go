package mq

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"habitflow/pkg/metrics"
	"habitflow/pkg/trace"
	"habitflow/pkg/util"
)

type MessageHandler func(ctx context.Context, data json.RawMessage) error

// RetryCounter tracks delivery attempts per message. *util.RetryCounter
// implements it on Redis.
type RetryCounter interface {
	IncrementAndGet(ctx context.Context, key string) (int64, error)
	Reset(ctx context.Context, key string) error
}

// DeadLetterPublisher receives messages that will not be retried.
type DeadLetterPublisher interface {
	PublishToDLQ(ctx context.Context, routingKey, messageID string, body []byte, reason string) error
}

// RetryPolicy decides what happens to a message whose handler failed.
// Without a policy every failure is requeued.
type RetryPolicy struct {
	Counter    RetryCounter
	MaxRetries int64
	DLQ        DeadLetterPublisher
	// Name scopes the retry counter keys, usually the queue name.
	Name string
}

// Action is the outcome for a delivered message.
type Action int

const (
	ActionAck Action = iota
	ActionRequeue
	ActionDeadLetter
)

func (a Action) String() string {
	switch a {
	case ActionAck:
		return "ack"
	case ActionRequeue:
		return "requeue"
	case ActionDeadLetter:
		return "dead_letter"
	default:
		return "unknown"
	}
}

// Decide maps a handler error and the attempt count to an Action.
func Decide(handlerErr error, attempt, maxRetries int64) (Action, string) {
	if handlerErr == nil {
		return ActionAck, ""
	}
	retryable, reason := util.IsRetryableError(handlerErr)
	if util.ShouldRetry(attempt, maxRetries, retryable) {
		return ActionRequeue, reason
	}
	return ActionDeadLetter, reason
}

type Consumer struct {
	channel     *amqp091.Channel
	queue       amqp091.Queue
	routingKeys []string
	handler     MessageHandler
	retry       *RetryPolicy
	conn        *amqp091.Connection
	logger      *zap.Logger
}

// NewConsumer declares queueName and binds it to every routing key.
func NewConsumer(url, queueName string, routingKeys []string, logger *zap.Logger) (*Consumer, error) {
	conn, err := NewConnection(url)
	if err != nil {
		return nil, err
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	if err := DeclareExchange(ch); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to declare exchange: %w", err)
	}

	q, err := ch.QueueDeclare(
		queueName,
		true,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to declare queue: %w", err)
	}

	for _, key := range routingKeys {
		if err := ch.QueueBind(q.Name, key, ExchangeName, false, nil); err != nil {
			ch.Close()
			conn.Close()
			return nil, fmt.Errorf("failed to bind queue to %s: %w", key, err)
		}
	}

	if err := ch.Qos(16, 0, false); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to set qos: %w", err)
	}

	logger.Info("Consumer initialized",
		zap.Strings("routing_keys", routingKeys),
		zap.String("queue", queueName),
		zap.String("exchange", ExchangeName),
	)

	return &Consumer{
		conn:        conn,
		channel:     ch,
		queue:       q,
		routingKeys: routingKeys,
		logger:      logger,
	}, nil
}

func (c *Consumer) SetHandler(h MessageHandler) {
	c.handler = h
}

// SetRetryPolicy enables bounded retries and dead lettering. The DLQ queue
// is declared on the consumer's channel.
func (c *Consumer) SetRetryPolicy(p *RetryPolicy) error {
	if p.DLQ != nil && c.channel != nil {
		if err := DeclareDLQExchange(c.channel); err != nil {
			return fmt.Errorf("failed to declare dlq exchange: %w", err)
		}
		if _, err := DeclareDLQQueue(c.channel, c.queue.Name); err != nil {
			return err
		}
	}
	if p.Name == "" {
		p.Name = c.queue.Name
	}
	c.retry = p
	return nil
}

func (c *Consumer) Close() {
	if c.channel != nil {
		_ = c.channel.Close()
	}
	if c.conn != nil {
		_ = c.conn.Close()
	}
}

// StartConsuming blocks until ctx is cancelled or the delivery channel
// closes. Every message is acked, requeued or dead lettered exactly once.
func (c *Consumer) StartConsuming(ctx context.Context) error {
	if c.handler == nil {
		return fmt.Errorf("consumer handler not set")
	}

	deliveries, err := c.channel.Consume(
		c.queue.Name,
		"",
		false, // manual ack
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		return fmt.Errorf("failed to register consumer: %w", err)
	}

	c.logger.Info("Consumer started consuming messages",
		zap.Strings("routing_keys", c.routingKeys),
		zap.String("queue", c.queue.Name),
	)

	for {
		select {
		case <-ctx.Done():
			c.logger.Info("Consumer stopping", zap.String("queue", c.queue.Name))
			return nil
		case msg, ok := <-deliveries:
			if !ok {
				return fmt.Errorf("delivery channel closed for queue %s", c.queue.Name)
			}
			c.handle(ctx, msg)
		}
	}
}

func (c *Consumer) handle(parent context.Context, msg amqp091.Delivery) {
	start := time.Now()
	ctx := parent
	if traceID, ok := msg.Headers[trace.HeaderName].(string); ok && traceID != "" {
		ctx = trace.WithContext(ctx, traceID)
	}

	log := c.logger.With(
		zap.String("routing_key", msg.RoutingKey),
		zap.String("queue", c.queue.Name),
		zap.String("message_id", msg.MessageId),
	)
	log.Debug("Received message", zap.Int("message_size", len(msg.Body)))

	defer func() {
		if r := recover(); r != nil {
			log.Error("Handler panic recovered", zap.Any("panic", r))
			if c.retry != nil && c.retry.DLQ != nil {
				c.deadLetter(ctx, log, msg, "handler_panic")
			} else if err := msg.Nack(false, false); err != nil {
				log.Error("Failed to nack message after panic", zap.Error(err))
			}
		}
		metrics.RecordMQConsumeLatency(msg.RoutingKey, c.queue.Name, time.Since(start))
	}()

	handlerErr := c.handler(ctx, msg.Body)
	if handlerErr == nil {
		c.ack(log, msg)
		c.resetRetries(ctx, msg)
		return
	}

	if c.retry == nil {
		log.Error("Handler error", zap.Error(handlerErr))
		if err := msg.Nack(false, true); err != nil {
			log.Error("Failed to nack message", zap.Error(err))
		}
		return
	}

	attempt := c.attempt(ctx, msg)
	action, reason := Decide(handlerErr, attempt, c.retry.MaxRetries)
	log.Error("Handler error",
		zap.Error(handlerErr),
		zap.String("reason", reason),
		zap.Int64("attempt", attempt),
		zap.Stringer("action", action),
	)

	switch action {
	case ActionRequeue:
		if err := msg.Nack(false, true); err != nil {
			log.Error("Failed to nack message", zap.Error(err))
		}
	case ActionDeadLetter:
		c.deadLetter(ctx, log, msg, reason)
	}
}

// deadLetter publishes msg to the DLQ, when one is configured, and acks it.
// A failed publish requeues the message instead.
func (c *Consumer) deadLetter(ctx context.Context, log *zap.Logger, msg amqp091.Delivery, reason string) {
	if c.retry.DLQ != nil {
		if err := c.retry.DLQ.PublishToDLQ(ctx, msg.RoutingKey, msg.MessageId, msg.Body, reason); err != nil {
			log.Error("Failed to publish to DLQ, requeueing", zap.Error(err))
			_ = msg.Nack(false, true)
			return
		}
	}
	c.ack(log, msg)
	c.resetRetries(ctx, msg)
}

func (c *Consumer) ack(log *zap.Logger, msg amqp091.Delivery) {
	if err := msg.Ack(false); err != nil {
		log.Error("Failed to ack message", zap.Error(err))
		return
	}
	log.Debug("Message processed successfully")
}

// attempt returns the 1-based delivery count of msg. Without a usable
// counter it falls back to the broker's redelivered flag, so such a message
// is retried at most once.
func (c *Consumer) attempt(ctx context.Context, msg amqp091.Delivery) int64 {
	if c.retry.Counter == nil || msg.MessageId == "" {
		return c.redeliveryAttempt(msg)
	}
	n, err := c.retry.Counter.IncrementAndGet(ctx, util.FormatRetryKey(c.retry.Name, msg.MessageId))
	if err != nil {
		c.logger.Warn("Retry counter unavailable", zap.Error(err))
		return c.redeliveryAttempt(msg)
	}
	return n
}

func (c *Consumer) redeliveryAttempt(msg amqp091.Delivery) int64 {
	if msg.Redelivered {
		return c.retry.MaxRetries + 1
	}
	return 1
}

func (c *Consumer) resetRetries(ctx context.Context, msg amqp091.Delivery) {
	if c.retry == nil || c.retry.Counter == nil || msg.MessageId == "" {
		return
	}
	_ = c.retry.Counter.Reset(ctx, util.FormatRetryKey(c.retry.Name, msg.MessageId))
}
