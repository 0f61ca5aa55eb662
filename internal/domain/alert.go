package domain

import "time"

// AlertStatus tracks what the recipient did with a supervision alert.
type AlertStatus string

const (
	AlertActive    AlertStatus = "active"
	AlertRead      AlertStatus = "read"
	AlertDismissed AlertStatus = "dismissed"
)

// SupervisionAlert nudges the reporter of an incident that has sat in
// supervision too long.
type SupervisionAlert struct {
	ID          string
	IncidentID  string
	RecipientID string
	Message     string
	Status      AlertStatus
	CreatedAt   time.Time
	ReadAt      *time.Time
	DismissedAt *time.Time
}
