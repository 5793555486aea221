package nabl

import (
	"time"

	"github.com/google/uuid"
)

// New documents start as drafts. Approval happens outside this service.
const (
	StatusDraft    = "draft"
	StatusApproved = "approved"
	StatusArchived = "archived"
)

// Document is a controlled quality document kept for accreditation: an SOP,
// NCR, CAPA, training or audit record.
type Document struct {
	ID           uuid.UUID `json:"id"`
	DocumentType string    `json:"document_type"`
	DocumentID   string    `json:"document_id"`
	Title        string    `json:"title"`
	Version      string    `json:"version"`
	Status       string    `json:"status"`
	UploadedBy   string    `json:"uploaded_by"`
	ApprovedBy   *string   `json:"approved_by,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
