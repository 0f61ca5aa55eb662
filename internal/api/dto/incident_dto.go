package dto

import (
	"time"

	"github.com/soporte-bpo/incident-service/internal/domain"
)

// CreateIncidentRequest payload.
type CreateIncidentRequest struct {
	Sede            domain.Sede         `json:"sede"`
	Departamento    domain.Departamento `json:"departamento"`
	SeatNumber      int                 `json:"seat_number"`
	LocationDetails string              `json:"location_details"`
	FailureType     domain.FailureType  `json:"failure_type"`
	Description     string              `json:"description"`
	AnydeskAddress  *string             `json:"anydesk_address"`
	AdvisorCedula   *string             `json:"advisor_cedula"`
}

// AssignIncidentRequest payload.
type AssignIncidentRequest struct {
	TechnicianID string `json:"technician_id"`
}

// ResolveIncidentRequest payload.
type ResolveIncidentRequest struct {
	Comment string `json:"comment"`
}

// ApproveIncidentRequest payload. Rating is optional.
type ApproveIncidentRequest struct {
	Rating   *int    `json:"rating"`
	Feedback *string `json:"feedback"`
}

// ReasonRequest payload shared by reject and return.
type ReasonRequest struct {
	Reason string `json:"reason"`
}

// CorrectIncidentRequest payload; nil fields keep the stored values.
type CorrectIncidentRequest struct {
	Description    *string             `json:"description"`
	FailureType    *domain.FailureType `json:"failure_type"`
	AnydeskAddress *string             `json:"anydesk_address"`
	AdvisorCedula  *string             `json:"advisor_cedula"`
}

// AttachmentRequest records an uploaded file reference.
type AttachmentRequest struct {
	FileName     string `json:"file_name"`
	OriginalName string `json:"original_name"`
	MimeType     string `json:"mime_type"`
	SizeBytes    int64  `json:"size_bytes"`
}

// IncidentSummary response.
type IncidentSummary struct {
	ID              string                `json:"id"`
	FailureType     domain.FailureType    `json:"failure_type"`
	Description     string                `json:"description"`
	Status          domain.IncidentStatus `json:"status"`
	StationCode     string                `json:"station_code"`
	LocationDetails string                `json:"location_details,omitempty"`
	Sede            domain.Sede           `json:"sede"`
	Departamento    domain.Departamento   `json:"departamento"`
	ReportedByID    string                `json:"reported_by_id"`
	ReportedByName  string                `json:"reported_by_name"`
	ReporterRole    domain.Role           `json:"reporter_role"`
	AssignedToID    *string               `json:"assigned_to_id"`
	AssignedToName  *string               `json:"assigned_to_name"`
	ReturnReason    *string               `json:"return_reason,omitempty"`
	ReturnCount     int                   `json:"return_count"`
	ReturnedAt      *time.Time            `json:"returned_at,omitempty"`
	CreatedAt       time.Time             `json:"created_at"`
	UpdatedAt       time.Time             `json:"updated_at"`
}

// StatusCountsResponse summarizes a reporter's incidents.
type StatusCountsResponse struct {
	Total         int `json:"total"`
	Pending       int `json:"pendiente"`
	InProgress    int `json:"en_proceso"`
	InSupervision int `json:"en_supervision"`
	Approved      int `json:"aprobado"`
	Returned      int `json:"devuelto"`
}

// HistoryEntryResponse is one ledger row of an incident.
type HistoryEntryResponse struct {
	ID        string               `json:"id"`
	UserID    string               `json:"user_id"`
	Action    domain.HistoryAction `json:"action"`
	Details   string               `json:"details"`
	Timestamp time.Time            `json:"timestamp"`
}

// AttachmentResponse metadata.
type AttachmentResponse struct {
	ID           string    `json:"id"`
	FileName     string    `json:"file_name"`
	OriginalName string    `json:"original_name"`
	MimeType     string    `json:"mime_type"`
	SizeBytes    int64     `json:"size_bytes"`
	UploadedByID string    `json:"uploaded_by_id"`
	CreatedAt    time.Time `json:"created_at"`
}

// SedeStatsResponse is one site's incident breakdown.
type SedeStatsResponse struct {
	Sede          domain.Sede `json:"sede"`
	Pending       int         `json:"pendiente"`
	InProgress    int         `json:"en_proceso"`
	InSupervision int         `json:"en_supervision"`
	Approved      int         `json:"aprobado"`
	Total         int         `json:"total"`
}
