package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/soporte-bpo/incident-service/internal/domain"
)

// AlertRepository persists supervision alerts.
type AlertRepository interface {
	Create(ctx context.Context, alert *domain.SupervisionAlert) error
	ListByRecipient(ctx context.Context, recipientID string, limit int) ([]domain.SupervisionAlert, error)
	MarkRead(ctx context.Context, alertID, recipientID string) error
	Dismiss(ctx context.Context, alertID, recipientID string) error
}

type alertRepository struct {
	pool *pgxpool.Pool
}

// NewAlertRepository instantiates the repository.
func NewAlertRepository(pool *pgxpool.Pool) AlertRepository {
	return &alertRepository{pool: pool}
}

func (r *alertRepository) Create(ctx context.Context, alert *domain.SupervisionAlert) error {
	const query = `
        INSERT INTO supervision_alerts (incident_id, recipient_id, message, status)
        VALUES ($1,$2,$3,'active')
        RETURNING id, created_at`
	alert.Status = domain.AlertActive
	return r.pool.QueryRow(ctx, query,
		alert.IncidentID,
		alert.RecipientID,
		alert.Message,
	).Scan(&alert.ID, &alert.CreatedAt)
}

func (r *alertRepository) ListByRecipient(ctx context.Context, recipientID string, limit int) ([]domain.SupervisionAlert, error) {
	if limit <= 0 {
		limit = 50
	}
	const query = `
        SELECT id, incident_id, recipient_id, message, status, created_at, read_at, dismissed_at
        FROM supervision_alerts
        WHERE recipient_id=$1
        ORDER BY created_at DESC
        LIMIT $2`
	rows, err := r.pool.Query(ctx, query, recipientID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.SupervisionAlert
	for rows.Next() {
		var alert domain.SupervisionAlert
		if err := rows.Scan(
			&alert.ID,
			&alert.IncidentID,
			&alert.RecipientID,
			&alert.Message,
			&alert.Status,
			&alert.CreatedAt,
			&alert.ReadAt,
			&alert.DismissedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, alert)
	}
	return result, rows.Err()
}

func (r *alertRepository) MarkRead(ctx context.Context, alertID, recipientID string) error {
	const query = `
        UPDATE supervision_alerts
        SET status='read', read_at=NOW()
        WHERE id=$1 AND recipient_id=$2 AND status='active'`
	cmd, err := r.pool.Exec(ctx, query, alertID, recipientID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *alertRepository) Dismiss(ctx context.Context, alertID, recipientID string) error {
	const query = `
        UPDATE supervision_alerts
        SET status='dismissed', dismissed_at=NOW()
        WHERE id=$1 AND recipient_id=$2`
	cmd, err := r.pool.Exec(ctx, query, alertID, recipientID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}
