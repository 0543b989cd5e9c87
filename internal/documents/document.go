// Package documents implements the document domain for Verdict.
// It provides types, data access, and business logic for document
// upload, registration, metadata management, and blob storage integration.
// Each document belongs to a submission and carries the declared planning
// document type alongside the collaborator's classification confidence.
package documents

import (
	"time"

	"github.com/google/uuid"
)

// Document represents a registered document with its metadata and blob
// storage reference. Type is one of the planning document types (see
// pkg/extract); Scanned marks image-based files whose text came from OCR
// rather than an embedded text layer.
type Document struct {
	ID             uuid.UUID `json:"id"`
	SubmissionID   uuid.UUID `json:"submission_id"`
	Filename       string    `json:"filename"`
	ContentType    string    `json:"content_type"`
	SizeBytes      int64     `json:"size_bytes"`
	PageCount      *int      `json:"page_count"`
	Type           string    `json:"type"`
	TypeConfidence float64   `json:"type_confidence"`
	Scanned        bool      `json:"scanned"`
	StorageKey     string    `json:"storage_key"`
	UploadedAt     time.Time `json:"uploaded_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// CreateCommand carries the data needed to upload and register a new document.
// Data holds the raw file bytes. PageCount is optional and may be extracted
// by the caller via pdfcpu; nil values are stored as NULL.
type CreateCommand struct {
	Data           []byte
	SubmissionID   uuid.UUID
	Filename       string
	ContentType    string
	Type           string
	TypeConfidence float64
	Scanned        bool
	PageCount      *int
}
