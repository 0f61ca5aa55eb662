package domain

import "time"

// HistoryAction is the closed vocabulary of ledger actions. The strings are
// persisted verbatim; adding a value here means adding a transition.
type HistoryAction string

const (
	ActionCreated    HistoryAction = "Creación"
	ActionAssigned   HistoryAction = "Asignación de técnico"
	ActionReassigned HistoryAction = "Reasignación de técnico"
	ActionResolved   HistoryAction = "Marcado como resuelto"
	ActionApproved   HistoryAction = "Aprobado por supervisor"
	ActionRejected   HistoryAction = "Rechazado por supervisor"
	ActionReturned   HistoryAction = "Devuelto por técnico"
	ActionCorrected  HistoryAction = "Corregido y reenviado"
)

// HistoryEntry is one append-only ledger row. Entries are never updated or
// deleted once written.
type HistoryEntry struct {
	ID         string
	IncidentID string
	UserID     string
	Action     HistoryAction
	Details    string
	Timestamp  time.Time
}

// LedgerEntry is a history row joined with human-readable identifiers for
// the global ledger listing.
type LedgerEntry struct {
	HistoryEntry
	UserName    string
	UserRole    Role
	StationCode string
}

// ActorActivity counts ledger entries per actor.
type ActorActivity struct {
	UserID   string
	UserName string
	Entries  int
}

// ActionActivity counts ledger entries per action.
type ActionActivity struct {
	Action  HistoryAction
	Entries int
}

// DailyActivity is one day of the rolling trend.
type DailyActivity struct {
	Day     time.Time
	Entries int
}

// LedgerStats aggregates the ledger; all values are derived at read time,
// never stored.
type LedgerStats struct {
	TotalEntries      int
	DistinctIncidents int
	DistinctActors    int
	ByActor           []ActorActivity
	ByAction          []ActionActivity
	Last7Days         []DailyActivity
}
