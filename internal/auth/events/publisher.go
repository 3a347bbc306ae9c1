package events

import (
	"context"

	"github.com/peoplehub/peoplehub-backend/pkg/logger"
	"github.com/peoplehub/peoplehub-backend/pkg/messaging"
)

// Source identifies the auth module on published events
const Source = "auth-service"

// AuthEventPublisher publishes account events. Failures are logged only.
type AuthEventPublisher struct {
	publisher messaging.EventPublisher
	logger    *logger.Logger
}

// NewAuthEventPublisher wraps any EventPublisher
func NewAuthEventPublisher(publisher messaging.EventPublisher, log *logger.Logger) *AuthEventPublisher {
	return &AuthEventPublisher{publisher: publisher, logger: log}
}

// NewRabbitAuthEventPublisher declares the auth.events exchange and publishes to it
func NewRabbitAuthEventPublisher(rmq *messaging.RabbitMQ, log *logger.Logger) (*AuthEventPublisher, error) {
	publisher, err := messaging.NewPublisher(rmq, messaging.ExchangeAuthEvents, Source, log)
	if err != nil {
		return nil, err
	}
	return NewAuthEventPublisher(publisher, log), nil
}

// PublishUserRegistered announces a new employee account
func (p *AuthEventPublisher) PublishUserRegistered(ctx context.Context, data messaging.UserRegisteredEvent) {
	if p == nil {
		return
	}
	if err := p.publisher.Publish(ctx, messaging.EventUserRegistered, data); err != nil {
		p.logger.Error().Err(err).Str("user_id", data.UserID).Msg("failed to publish user registered event")
	}
}
