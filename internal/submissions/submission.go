// Package submissions implements the submission domain for Verdict. A
// submission is one round of documents lodged against an application; its
// extracted fields and parent link are persisted here. Validated
// submissions are immutable.
package submissions

import (
	"time"

	"github.com/google/uuid"
)

// Status is the processing state of a submission.
type Status string

// Submission statuses. A submission is created as received, moves to
// processing when a validation run starts, and lands on validated or
// failed. Once validated it never changes again.
const (
	StatusReceived   Status = "received"
	StatusProcessing Status = "processing"
	StatusValidated  Status = "validated"
	StatusFailed     Status = "failed"
)

// Submission represents one round of documents for an application.
// ParentID, LinkConfidence, and LinkReason record the accepted link to
// the submission this one revises; they are append-only and set at most
// once.
type Submission struct {
	ID             uuid.UUID  `json:"id"`
	ApplicationID  uuid.UUID  `json:"application_id"`
	Status         Status     `json:"status"`
	ParentID       *uuid.UUID `json:"parent_id"`
	LinkConfidence *float64   `json:"link_confidence"`
	LinkReason     *string    `json:"link_reason"`
	CreatedAt      time.Time  `json:"created_at"`
	ValidatedAt    *time.Time `json:"validated_at"`
}

// CreateCommand carries the data needed to open a submission against an
// application.
type CreateCommand struct {
	ApplicationID uuid.UUID `json:"application_id"`
}
