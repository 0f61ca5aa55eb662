package domain

import "time"

// AttachmentReference points at a file held by the external storage
// collaborator; only the reference is persisted here.
type AttachmentReference struct {
	ID           string
	IncidentID   string
	FileName     string
	OriginalName string
	MimeType     string
	SizeBytes    int64
	UploadedByID string
	CreatedAt    time.Time
}
