package messaging

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/peoplehub/peoplehub-backend/pkg/logger"
	amqp "github.com/rabbitmq/amqp091-go"
)

// MessageHandler is a function that handles a message
type MessageHandler func(ctx context.Context, event *Event) error

// Consumer handles consuming events from RabbitMQ
type Consumer struct {
	rmq       *RabbitMQ
	queueName string
	handlers  map[string]MessageHandler
	logger    *logger.Logger
}

// NewDetachedConsumer builds a consumer with no broker attached. Only
// Dispatch may be used on it.
func NewDetachedConsumer(queueName string, log *logger.Logger) *Consumer {
	return &Consumer{
		queueName: queueName,
		handlers:  make(map[string]MessageHandler),
		logger:    log,
	}
}

// NewConsumer creates a new consumer for the given queue
func NewConsumer(rmq *RabbitMQ, queueName string, log *logger.Logger) (*Consumer, error) {
	// Declare the queue
	_, err := rmq.DeclareQueue(queueName)
	if err != nil {
		return nil, fmt.Errorf("failed to declare queue %s: %w", queueName, err)
	}

	return &Consumer{
		rmq:       rmq,
		queueName: queueName,
		handlers:  make(map[string]MessageHandler),
		logger:    log,
	}, nil
}

// Subscribe subscribes to an exchange with a routing key pattern
func (c *Consumer) Subscribe(exchange, routingKeyPattern string) error {
	// Declare the exchange first
	if err := c.rmq.DeclareExchange(exchange); err != nil {
		return fmt.Errorf("failed to declare exchange: %w", err)
	}

	// Bind the queue to the exchange
	if err := c.rmq.BindQueue(c.queueName, exchange, routingKeyPattern); err != nil {
		return fmt.Errorf("failed to bind queue: %w", err)
	}

	c.logger.Info().
		Str("queue", c.queueName).
		Str("exchange", exchange).
		Str("routing_key", routingKeyPattern).
		Msg("subscribed to exchange")

	return nil
}

// RegisterHandler registers a handler for a specific event type
func (c *Consumer) RegisterHandler(eventType string, handler MessageHandler) {
	c.handlers[eventType] = handler
}

// Start starts consuming messages from the queue
func (c *Consumer) Start(ctx context.Context) error {
	msgs, err := c.rmq.Channel().Consume(
		c.queueName, // queue
		"",          // consumer tag (auto-generated)
		false,       // auto-ack
		false,       // exclusive
		false,       // no-local
		false,       // no-wait
		nil,         // arguments
	)
	if err != nil {
		return fmt.Errorf("failed to start consuming: %w", err)
	}

	c.logger.Info().Str("queue", c.queueName).Msg("consumer started")

	go func() {
		for {
			select {
			case <-ctx.Done():
				c.logger.Info().Str("queue", c.queueName).Msg("consumer stopped")
				return
			case msg, ok := <-msgs:
				if !ok {
					c.logger.Warn().Msg("message channel closed")
					return
				}
				c.handleMessage(ctx, msg)
			}
		}
	}()

	return nil
}

// Outcome tells the broker loop what to do with a delivery
type Outcome int

const (
	OutcomeAck Outcome = iota
	// OutcomeRequeue redelivers the message with its attempt count raised
	OutcomeRequeue
	OutcomeReject
)

// maxRedeliveries is how many times a failing event is retried before it
// is dead-lettered
const maxRedeliveries = 3

// retryCountHeader counts redeliveries. A plain broker requeue carries no
// count, so failed messages are republished with it raised instead.
const retryCountHeader = "x-retry-count"

func (c *Consumer) handleMessage(ctx context.Context, msg amqp.Delivery) {
	attempt := getRetryCount(msg)
	switch c.Dispatch(ctx, msg.Body, attempt) {
	case OutcomeAck:
		msg.Ack(false)
	case OutcomeRequeue:
		retry := retryPublishing(msg, attempt+1)
		if err := c.rmq.Channel().PublishWithContext(ctx, "", c.queueName, false, false, retry); err != nil {
			c.logger.Error().Err(err).
				Str("message_id", msg.MessageId).
				Msg("failed to republish for retry, dead-lettering")
			msg.Reject(false)
			return
		}
		msg.Ack(false)
	default:
		msg.Reject(false)
	}
}

// Dispatch decodes one message body and runs the registered handler.
// It is broker-agnostic so handlers can be exercised without RabbitMQ.
func (c *Consumer) Dispatch(ctx context.Context, body []byte, retryCount int) Outcome {
	var event Event
	if err := json.Unmarshal(body, &event); err != nil {
		c.logger.Error().Err(err).Msg("failed to unmarshal event")
		return OutcomeReject
	}

	ctx = WithCorrelationID(ctx, event.CorrelationID)

	handler, ok := c.handlers[event.Type]
	if !ok {
		c.logger.Debug().
			Str("event_type", event.Type).
			Msg("no handler registered for event type")
		return OutcomeAck
	}

	log := c.logger.WithCorrelationID(event.CorrelationID)
	log.Debug().
		Str("event_type", event.Type).
		Str("event_id", event.ID).
		Int("retry_count", retryCount).
		Msg("processing event")

	if err := handler(ctx, &event); err != nil {
		log.Error().
			Err(err).
			Str("event_type", event.Type).
			Str("event_id", event.ID).
			Int("retry_count", retryCount).
			Msg("failed to process event")

		if retryCount >= maxRedeliveries {
			log.Warn().
				Str("event_id", event.ID).
				Int("retry_count", retryCount).
				Msg("max retries exceeded, sending to DLQ")
			return OutcomeReject
		}
		return OutcomeRequeue
	}

	return OutcomeAck
}

// retryPublishing copies msg for the default exchange with the attempt
// count set. msg's own headers are left untouched.
func retryPublishing(msg amqp.Delivery, attempt int) amqp.Publishing {
	headers := make(amqp.Table, len(msg.Headers)+1)
	for k, v := range msg.Headers {
		headers[k] = v
	}
	headers[retryCountHeader] = int32(attempt)

	return amqp.Publishing{
		Headers:       headers,
		ContentType:   msg.ContentType,
		DeliveryMode:  amqp.Persistent,
		MessageId:     msg.MessageId,
		CorrelationId: msg.CorrelationId,
		Type:          msg.Type,
		AppId:         msg.AppId,
		Timestamp:     msg.Timestamp,
		Body:          msg.Body,
	}
}

func getRetryCount(msg amqp.Delivery) int {
	switch n := msg.Headers[retryCountHeader].(type) {
	case int32:
		return int(n)
	case int64:
		return int(n)
	case int16:
		return int(n)
	case int8:
		return int(n)
	case int:
		return n
	default:
		return 0
	}
}
