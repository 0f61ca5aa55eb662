package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/soporte-bpo/incident-service/internal/domain"
)

// AttachmentRepository stores references to files held by the external
// storage collaborator.
type AttachmentRepository interface {
	Create(ctx context.Context, ref *domain.AttachmentReference) error
	ListByIncident(ctx context.Context, incidentID string) ([]domain.AttachmentReference, error)
}

type attachmentRepository struct {
	pool *pgxpool.Pool
}

// NewAttachmentRepository instantiates the repository.
func NewAttachmentRepository(pool *pgxpool.Pool) AttachmentRepository {
	return &attachmentRepository{pool: pool}
}

func (r *attachmentRepository) Create(ctx context.Context, ref *domain.AttachmentReference) error {
	const query = `
        INSERT INTO incident_attachments (incident_id, file_name, original_name, mime_type, size_bytes, uploaded_by_id)
        VALUES ($1,$2,$3,$4,$5,$6)
        RETURNING id, created_at`
	return r.pool.QueryRow(ctx, query,
		ref.IncidentID,
		ref.FileName,
		ref.OriginalName,
		ref.MimeType,
		ref.SizeBytes,
		ref.UploadedByID,
	).Scan(&ref.ID, &ref.CreatedAt)
}

func (r *attachmentRepository) ListByIncident(ctx context.Context, incidentID string) ([]domain.AttachmentReference, error) {
	const query = `
        SELECT id, incident_id, file_name, original_name, mime_type, size_bytes, uploaded_by_id, created_at
        FROM incident_attachments WHERE incident_id=$1 ORDER BY created_at DESC`
	rows, err := r.pool.Query(ctx, query, incidentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.AttachmentReference
	for rows.Next() {
		var ref domain.AttachmentReference
		if err := rows.Scan(
			&ref.ID,
			&ref.IncidentID,
			&ref.FileName,
			&ref.OriginalName,
			&ref.MimeType,
			&ref.SizeBytes,
			&ref.UploadedByID,
			&ref.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, ref)
	}
	return result, rows.Err()
}
