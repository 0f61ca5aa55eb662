package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/soporte-bpo/incident-service/internal/domain"
)

// RatingRepository stores technician ratings with upsert semantics on the
// (incident, technician) pair.
type RatingRepository interface {
	Upsert(ctx context.Context, rating *domain.TechnicianRating) error
	ListByTechnician(ctx context.Context, technicianID string) ([]domain.RatedIncident, error)
	AverageForTechnician(ctx context.Context, technicianID string) (*domain.RatingAverage, error)
}

type ratingRepository struct {
	pool *pgxpool.Pool
}

// NewRatingRepository builds the repository.
func NewRatingRepository(pool *pgxpool.Pool) RatingRepository {
	return &ratingRepository{pool: pool}
}

func (r *ratingRepository) Upsert(ctx context.Context, rating *domain.TechnicianRating) error {
	const query = `
        INSERT INTO technician_ratings (incident_id, technician_id, rated_by_id, rating, feedback)
        VALUES ($1,$2,$3,$4,$5)
        ON CONFLICT (incident_id, technician_id) DO UPDATE
        SET rating = EXCLUDED.rating,
            feedback = EXCLUDED.feedback,
            rated_by_id = EXCLUDED.rated_by_id,
            updated_at = NOW()
        RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, query,
		rating.IncidentID,
		rating.TechnicianID,
		rating.RatedByID,
		rating.Rating,
		rating.Feedback,
	).Scan(&rating.ID, &rating.CreatedAt, &rating.UpdatedAt)
}

func (r *ratingRepository) ListByTechnician(ctx context.Context, technicianID string) ([]domain.RatedIncident, error) {
	const query = `
        SELECT tr.id, tr.incident_id, tr.technician_id, tr.rated_by_id, tr.rating, tr.feedback,
               tr.created_at, tr.updated_at,
               u.full_name, w.station_code, i.failure_type, i.description
        FROM technician_ratings tr
        JOIN users u ON tr.rated_by_id = u.id
        JOIN incidents i ON tr.incident_id = i.id
        JOIN workstations w ON i.workstation_id = w.id
        WHERE tr.technician_id = $1
        ORDER BY tr.created_at DESC`
	rows, err := r.pool.Query(ctx, query, technicianID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.RatedIncident
	for rows.Next() {
		var rated domain.RatedIncident
		if err := rows.Scan(
			&rated.ID,
			&rated.IncidentID,
			&rated.TechnicianID,
			&rated.RatedByID,
			&rated.Rating,
			&rated.Feedback,
			&rated.CreatedAt,
			&rated.UpdatedAt,
			&rated.RatedByName,
			&rated.StationCode,
			&rated.FailureType,
			&rated.IncidentDescription,
		); err != nil {
			return nil, err
		}
		result = append(result, rated)
	}
	return result, rows.Err()
}

func (r *ratingRepository) AverageForTechnician(ctx context.Context, technicianID string) (*domain.RatingAverage, error) {
	const query = `
        SELECT COALESCE(AVG(rating), 0), COUNT(*)
        FROM technician_ratings WHERE technician_id = $1`
	var average domain.RatingAverage
	if err := r.pool.QueryRow(ctx, query, technicianID).Scan(&average.Average, &average.Total); err != nil {
		return nil, err
	}
	return &average, nil
}
