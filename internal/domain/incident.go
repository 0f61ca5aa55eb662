package domain

import "time"

// IncidentStatus enumerates lifecycle states. Wire values stay in Spanish to
// match the persisted vocabulary.
type IncidentStatus string

const (
	StatusPending       IncidentStatus = "pendiente"
	StatusInProgress    IncidentStatus = "en_proceso"
	StatusInSupervision IncidentStatus = "en_supervision"
	StatusApproved      IncidentStatus = "aprobado"
	StatusReturned      IncidentStatus = "devuelto"
)

// Valid reports whether the status belongs to the closed set.
func (s IncidentStatus) Valid() bool {
	switch s {
	case StatusPending, StatusInProgress, StatusInSupervision, StatusApproved, StatusReturned:
		return true
	}
	return false
}

// FailureType classifies what broke at the workstation.
type FailureType string

const (
	FailureScreen      FailureType = "pantalla"
	FailurePeripherals FailureType = "perifericos"
	FailureInternet    FailureType = "internet"
	FailureSoftware    FailureType = "software"
	FailureOther       FailureType = "otro"
)

// Valid reports whether the failure type belongs to the closed set.
func (f FailureType) Valid() bool {
	switch f {
	case FailureScreen, FailurePeripherals, FailureInternet, FailureSoftware, FailureOther:
		return true
	}
	return false
}

// Incident is the support-ticket aggregate. AssignedToID is set only while a
// technician owns the incident; every status change goes through a guarded
// transition, never a plain update.
type Incident struct {
	ID            string
	WorkstationID string
	ReportedByID  string
	AssignedToID  *string
	FailureType   FailureType
	Description   string
	Status        IncidentStatus
	ReturnReason  *string
	ReturnCount   int
	ReturnedAt    *time.Time
	ReturnedByID  *string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// IncidentSummary is an incident row joined with its workstation and the
// names of the people involved, the shape list endpoints return.
type IncidentSummary struct {
	ID              string
	FailureType     FailureType
	Description     string
	Status          IncidentStatus
	StationCode     string
	LocationDetails string
	Sede            Sede
	Departamento    Departamento
	ReportedByID    string
	ReportedByName  string
	ReporterRole    Role
	AssignedToID    *string
	AssignedToName  *string
	ReturnReason    *string
	ReturnCount     int
	ReturnedAt      *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// StatusCounts tallies a reporter's incidents per lifecycle state.
type StatusCounts struct {
	Total         int
	Pending       int
	InProgress    int
	InSupervision int
	Approved      int
	Returned      int
}

// SedeStats is the per-site incident breakdown.
type SedeStats struct {
	Sede          Sede
	Pending       int
	InProgress    int
	InSupervision int
	Approved      int
	Total         int
}

// TechnicianStatus describes a technician's current load.
type TechnicianStatus struct {
	ID              string
	FullName        string
	Sede            Sede
	ActiveIncidents int
}
