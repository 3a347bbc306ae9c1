package events

import (
	"context"

	"github.com/peoplehub/peoplehub-backend/internal/hr/domain"
	"github.com/peoplehub/peoplehub-backend/pkg/logger"
	"github.com/peoplehub/peoplehub-backend/pkg/messaging"
)

// Source identifies this service on published events
const Source = "hr-service"

// HREventPublisher publishes employee and import events. Publishing is
// best-effort: failures are logged and never returned to the caller. A nil
// publisher drops everything.
type HREventPublisher struct {
	publisher messaging.EventPublisher
	logger    *logger.Logger
}

// NewHREventPublisher wraps any EventPublisher
func NewHREventPublisher(publisher messaging.EventPublisher, log *logger.Logger) *HREventPublisher {
	return &HREventPublisher{
		publisher: publisher,
		logger:    log,
	}
}

// NewRabbitHREventPublisher declares the hr.events exchange and publishes to it
func NewRabbitHREventPublisher(rmq *messaging.RabbitMQ, log *logger.Logger) (*HREventPublisher, error) {
	publisher, err := messaging.NewPublisher(rmq, messaging.ExchangeHREvents, Source, log)
	if err != nil {
		return nil, err
	}
	return NewHREventPublisher(publisher, log), nil
}

// PublishEmployeeCreated publishes an employee created event
func (p *HREventPublisher) PublishEmployeeCreated(ctx context.Context, emp *domain.Employee) {
	if p == nil {
		return
	}
	data := messaging.EmployeeCreatedEvent{
		EmployeeID: emp.ID,
		Document:   emp.Document,
		Name:       emp.FullName(),
		Email:      emp.Email,
	}

	if err := p.publisher.Publish(ctx, messaging.EventEmployeeCreated, data); err != nil {
		p.logger.Error().Err(err).Str("employee_id", emp.ID).Msg("failed to publish employee created event")
	}
}

// PublishEmployeeUpdated publishes an employee updated event
func (p *HREventPublisher) PublishEmployeeUpdated(ctx context.Context, emp *domain.Employee) {
	if p == nil {
		return
	}
	data := messaging.EmployeeUpdatedEvent{
		EmployeeID: emp.ID,
		Fields: map[string]any{
			"name":   emp.FullName(),
			"status": emp.Status,
		},
	}

	if err := p.publisher.Publish(ctx, messaging.EventEmployeeUpdated, data); err != nil {
		p.logger.Error().Err(err).Str("employee_id", emp.ID).Msg("failed to publish employee updated event")
	}
}

// PublishEmployeeDeleted publishes an employee deleted event
func (p *HREventPublisher) PublishEmployeeDeleted(ctx context.Context, employeeID string) {
	if p == nil {
		return
	}
	data := messaging.EmployeeDeletedEvent{
		EmployeeID: employeeID,
	}

	if err := p.publisher.Publish(ctx, messaging.EventEmployeeDeleted, data); err != nil {
		p.logger.Error().Err(err).Str("employee_id", employeeID).Msg("failed to publish employee deleted event")
	}
}

// PublishImportCompleted announces a committed import
func (p *HREventPublisher) PublishImportCompleted(ctx context.Context, data messaging.ImportCompletedEvent) {
	if p == nil {
		return
	}
	if err := p.publisher.Publish(ctx, messaging.EventImportCompleted, data); err != nil {
		p.logger.Error().Err(err).Str("import_id", data.ImportID).Msg("failed to publish import completed event")
	}
}
