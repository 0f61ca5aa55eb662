package dto

import (
	"time"

	"github.com/soporte-bpo/incident-service/internal/domain"
)

// LedgerEntryResponse is a global ledger row with joined context.
type LedgerEntryResponse struct {
	ID          string               `json:"id"`
	IncidentID  string               `json:"incident_id"`
	UserID      string               `json:"user_id"`
	UserName    string               `json:"user_name"`
	UserRole    domain.Role          `json:"user_role"`
	StationCode string               `json:"station_code"`
	Action      domain.HistoryAction `json:"action"`
	Details     string               `json:"details"`
	Timestamp   time.Time            `json:"timestamp"`
}

// ActorActivityResponse counts ledger entries per actor.
type ActorActivityResponse struct {
	UserID   string `json:"user_id"`
	UserName string `json:"user_name"`
	Entries  int    `json:"entries"`
}

// ActionActivityResponse counts ledger entries per action.
type ActionActivityResponse struct {
	Action  domain.HistoryAction `json:"action"`
	Entries int                  `json:"entries"`
}

// DailyActivityResponse is one day of the rolling trend.
type DailyActivityResponse struct {
	Day     string `json:"day"`
	Entries int    `json:"entries"`
}

// LedgerStatsResponse aggregates the ledger.
type LedgerStatsResponse struct {
	TotalEntries      int                      `json:"total_entries"`
	DistinctIncidents int                      `json:"distinct_incidents"`
	DistinctActors    int                      `json:"distinct_actors"`
	ByActor           []ActorActivityResponse  `json:"by_actor"`
	ByAction          []ActionActivityResponse `json:"by_action"`
	Last7Days         []DailyActivityResponse  `json:"last_7_days"`
}

// RatedIncidentResponse is one technician rating with incident context.
type RatedIncidentResponse struct {
	ID          string             `json:"id"`
	IncidentID  string             `json:"incident_id"`
	Rating      int                `json:"rating"`
	Feedback    *string            `json:"feedback,omitempty"`
	RatedByName string             `json:"rated_by_name"`
	StationCode string             `json:"station_code"`
	FailureType domain.FailureType `json:"failure_type"`
	Description string             `json:"description"`
	CreatedAt   time.Time          `json:"created_at"`
}

// RatingAverageResponse summarizes a technician's scores.
type RatingAverageResponse struct {
	Average float64 `json:"average"`
	Total   int     `json:"total"`
}

// AlertResponse is one supervision alert.
type AlertResponse struct {
	ID         string             `json:"id"`
	IncidentID string             `json:"incident_id"`
	Message    string             `json:"message"`
	Status     domain.AlertStatus `json:"status"`
	CreatedAt  time.Time          `json:"created_at"`
	ReadAt     *time.Time         `json:"read_at,omitempty"`
}
