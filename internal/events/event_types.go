package events

import (
	"time"

	"github.com/soporte-bpo/incident-service/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventIncidentCreated       EventType = "incident_created"
	EventIncidentAssigned      EventType = "incident_assigned"
	EventIncidentStatusChanged EventType = "incident_status_changed"
	EventIncidentReturned      EventType = "incident_returned"
	EventSupervisionAlertSent  EventType = "supervision_alert_sent"
)

// Event represents a domain event emitted by services.
type Event struct {
	ID         string      `json:"id"`
	Type       EventType   `json:"type"`
	IncidentID string      `json:"incident_id"`
	ActorID    string      `json:"actor_id"`
	Timestamp  time.Time   `json:"timestamp"`
	Payload    interface{} `json:"payload"`
}

// IncidentCreatedPayload payload.
type IncidentCreatedPayload struct {
	StationCode  string              `json:"station_code"`
	Sede         domain.Sede         `json:"sede"`
	Departamento domain.Departamento `json:"departamento"`
	FailureType  domain.FailureType  `json:"failure_type"`
}

// IncidentAssignedPayload payload.
type IncidentAssignedPayload struct {
	TechnicianID   string  `json:"technician_id"`
	TechnicianName string  `json:"technician_name"`
	PreviousID     *string `json:"previous_id,omitempty"`
}

// IncidentStatusChangedPayload payload.
type IncidentStatusChangedPayload struct {
	OldStatus domain.IncidentStatus `json:"old_status"`
	NewStatus domain.IncidentStatus `json:"new_status"`
	Comment   string                `json:"comment,omitempty"`
}

// IncidentReturnedPayload payload.
type IncidentReturnedPayload struct {
	ReporterID  string `json:"reporter_id"`
	Reason      string `json:"reason"`
	ReturnCount int    `json:"return_count"`
}

// SupervisionAlertPayload payload.
type SupervisionAlertPayload struct {
	RecipientID string `json:"recipient_id"`
	Message     string `json:"message"`
}
