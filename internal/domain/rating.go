package domain

import "time"

// TechnicianRating is the one-per-(incident, technician) score recorded when
// an approval carries a rating payload. Re-approval overwrites it.
type TechnicianRating struct {
	ID           string
	IncidentID   string
	TechnicianID string
	RatedByID    string
	Rating       int
	Feedback     *string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// ValidRating reports whether the score is in the accepted 1..5 range.
func ValidRating(rating int) bool {
	return rating >= 1 && rating <= 5
}

// RatedIncident is a rating joined with incident context for listing.
type RatedIncident struct {
	TechnicianRating
	RatedByName         string
	StationCode         string
	FailureType         FailureType
	IncidentDescription string
}

// RatingAverage summarizes a technician's scores.
type RatingAverage struct {
	Average float64
	Total   int
}
