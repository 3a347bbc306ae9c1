package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/peoplehub/peoplehub-backend/pkg/httputil"
	"github.com/peoplehub/peoplehub-backend/pkg/logger"
	amqp "github.com/rabbitmq/amqp091-go"
)

// exchangeNamespaces maps each exchange to the event type prefix it carries.
// The event type doubles as the routing key.
var exchangeNamespaces = map[string]string{
	ExchangeHREvents:   "hr.",
	ExchangeAuthEvents: "auth.",
}

// Publisher publishes events of one namespace to its topic exchange
type Publisher struct {
	channel   *amqp.Channel
	exchange  string
	namespace string
	source    string
	logger    *logger.Logger
}

// NewPublisher declares exchange and returns a publisher for it. Only the
// exchanges of the event catalogue are accepted.
func NewPublisher(rmq *RabbitMQ, exchange, source string, log *logger.Logger) (*Publisher, error) {
	namespace, ok := exchangeNamespaces[exchange]
	if !ok {
		return nil, fmt.Errorf("unknown exchange %q", exchange)
	}

	if err := rmq.DeclareExchange(exchange); err != nil {
		return nil, fmt.Errorf("failed to declare exchange %s: %w", exchange, err)
	}

	return &Publisher{
		channel:   rmq.Channel(),
		exchange:  exchange,
		namespace: namespace,
		source:    source,
		logger:    log.WithComponent("publisher"),
	}, nil
}

// Publish publishes an event to the exchange, routed by its type
func (p *Publisher) Publish(ctx context.Context, eventType string, data interface{}) error {
	if err := checkNamespace(p.exchange, eventType); err != nil {
		return err
	}

	event, err := NewEvent(eventType, p.source, correlationIDFrom(ctx), data)
	if err != nil {
		return fmt.Errorf("failed to create event: %w", err)
	}

	msg, err := newPublishing(event)
	if err != nil {
		return err
	}

	if err := p.channel.PublishWithContext(ctx, p.exchange, eventType, false, false, msg); err != nil {
		return fmt.Errorf("failed to publish %s: %w", eventType, err)
	}

	p.logger.WithCorrelationID(event.CorrelationID).Debug().
		Str("event_type", eventType).
		Str("event_id", event.ID).
		Msg("event published")

	return nil
}

func checkNamespace(exchange, eventType string) error {
	namespace, ok := exchangeNamespaces[exchange]
	if !ok {
		return fmt.Errorf("unknown exchange %q", exchange)
	}
	if !strings.HasPrefix(eventType, namespace) {
		return fmt.Errorf("event %q cannot be published on %s", eventType, exchange)
	}
	return nil
}

// newPublishing builds the AMQP message for event. An event without a
// correlation ID starts its own chain.
func newPublishing(event *Event) (amqp.Publishing, error) {
	if event.CorrelationID == "" {
		event.CorrelationID = event.ID
	}
	body, err := json.Marshal(event)
	if err != nil {
		return amqp.Publishing{}, fmt.Errorf("failed to marshal event: %w", err)
	}
	return amqp.Publishing{
		ContentType:   "application/json",
		DeliveryMode:  amqp.Persistent,
		MessageId:     event.ID,
		CorrelationId: event.CorrelationID,
		Type:          event.Type,
		AppId:         event.Source,
		Timestamp:     event.Timestamp,
		Body:          body,
	}, nil
}

type contextKey string

const correlationIDKey contextKey = "correlation_id"

// WithCorrelationID adds a correlation ID to the context
func WithCorrelationID(ctx context.Context, correlationID string) context.Context {
	return context.WithValue(ctx, correlationIDKey, correlationID)
}

// correlationIDFrom prefers an explicit correlation ID, e.g. one carried
// over from a consumed event, and falls back to the HTTP request ID.
func correlationIDFrom(ctx context.Context) string {
	if id, ok := ctx.Value(correlationIDKey).(string); ok && id != "" {
		return id
	}
	return httputil.GetRequestID(ctx)
}
