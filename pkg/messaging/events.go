package messaging

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Event types
const (
	// Employee events
	EventEmployeeCreated = "hr.employee.created"
	EventEmployeeUpdated = "hr.employee.updated"
	EventEmployeeDeleted = "hr.employee.deleted"

	// Import events
	EventImportCompleted = "hr.import.completed"

	// Auth events
	EventUserRegistered = "auth.user.registered"
)

// Exchange names
const (
	ExchangeHREvents   = "hr.events"
	ExchangeAuthEvents = "auth.events"
)

// EventPublisher is satisfied by *Publisher and by test doubles
type EventPublisher interface {
	Publish(ctx context.Context, eventType string, data interface{}) error
}

// Event is the base event structure
type Event struct {
	ID            string          `json:"id"`
	Type          string          `json:"type"`
	Source        string          `json:"source"`
	Timestamp     time.Time       `json:"timestamp"`
	CorrelationID string          `json:"correlation_id"`
	Data          json.RawMessage `json:"data"`
}

// NewEvent creates a new event with the given type and data
func NewEvent(eventType, source, correlationID string, data interface{}) (*Event, error) {
	dataBytes, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}

	return &Event{
		ID:            GenerateEventID(),
		Type:          eventType,
		Source:        source,
		Timestamp:     time.Now().UTC(),
		CorrelationID: correlationID,
		Data:          dataBytes,
	}, nil
}

// UnmarshalData unmarshals the event data into the provided struct
func (e *Event) UnmarshalData(v interface{}) error {
	return json.Unmarshal(e.Data, v)
}

// Employee Events

// EmployeeCreatedEvent is published when an employee is created through the API
type EmployeeCreatedEvent struct {
	EmployeeID string  `json:"employee_id"`
	Document   string  `json:"document"`
	Name       string  `json:"name"`
	Email      *string `json:"email,omitempty"`
}

// EmployeeUpdatedEvent is published when an employee is updated
type EmployeeUpdatedEvent struct {
	EmployeeID string         `json:"employee_id"`
	Fields     map[string]any `json:"fields"`
}

// EmployeeDeletedEvent is published when an employee is deleted
type EmployeeDeletedEvent struct {
	EmployeeID string `json:"employee_id"`
}

// ImportCompletedEvent summarises a committed spreadsheet import
type ImportCompletedEvent struct {
	ImportID           string `json:"import_id"`
	FileName           string `json:"file_name,omitempty"`
	RequestedBy        string `json:"requested_by,omitempty"`
	RequestedByEmail   string `json:"requested_by_email,omitempty"`
	RowsRead           int    `json:"rows_read"`
	RowsSkipped        int    `json:"rows_skipped"`
	DepartmentsCreated int    `json:"departments_created"`
	EmployeesCreated   int    `json:"employees_created"`
	EmployeesUpdated   int    `json:"employees_updated"`
	EducationCreated   int    `json:"education_created"`
	EducationUpdated   int    `json:"education_updated"`
}

// Auth Events

// UserRegisteredEvent is published when an employee self-registers
type UserRegisteredEvent struct {
	UserID     string `json:"user_id"`
	EmployeeID string `json:"employee_id"`
	Email      string `json:"email"`
	FullName   string `json:"full_name"`
	Role       string `json:"role"`
}

// GenerateEventID generates a unique event ID
func GenerateEventID() string {
	return uuid.New().String()
}
