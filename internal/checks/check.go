// Package checks implements the validation check domain for Verdict. It
// executes the validation pipeline for a submission and persists the
// resulting findings as an append-only run history. Officer review
// decisions are recorded alongside checks without ever rewriting them.
package checks

import (
	"time"

	"github.com/google/uuid"

	"github.com/planverify/verdict/internal/pipeline"
	"github.com/planverify/verdict/pkg/evidence"
	"github.com/planverify/verdict/pkg/rules"
)

// Check is one persisted rule finding from a validation run. Runs are
// append-only: a revalidation writes a new run under a fresh RunID and
// leaves earlier runs untouched.
type Check struct {
	ID           uuid.UUID                 `json:"id"`
	SubmissionID uuid.UUID                 `json:"submission_id"`
	RunID        uuid.UUID                 `json:"run_id"`
	Position     int                       `json:"position"`
	RuleID       string                    `json:"rule_id"`
	Status       rules.Status              `json:"status"`
	Severity     rules.Severity            `json:"severity"`
	Message      string                    `json:"message"`
	Evidence     []evidence.Evidence       `json:"evidence,omitempty"`
	NoEvidence   bool                      `json:"no_evidence,omitempty"`
	Documents    []rules.CandidateDocument `json:"documents,omitempty"`
	CreatedAt    time.Time                 `json:"created_at"`
}

// ReviewDecision records an officer's confirm/reject call on one check,
// optionally naming the document the decision concerns. Decisions are
// append-only and never alter the check they refer to.
type ReviewDecision struct {
	ID         uuid.UUID  `json:"id"`
	CheckID    uuid.UUID  `json:"check_id"`
	DocumentID *uuid.UUID `json:"document_id"`
	Action     string     `json:"action"`
	Note       *string    `json:"note"`
	DecidedBy  string     `json:"decided_by"`
	DecidedAt  time.Time  `json:"decided_at"`
}

// Review actions.
const (
	ActionConfirm = "confirm"
	ActionReject  = "reject"
)

// ValidateCommand carries the OCR collaborator's layout blocks for every
// document in the submission, grouped per document.
type ValidateCommand struct {
	Documents []pipeline.DocumentInput `json:"documents"`
}

// ReviewCommand carries the data needed to record a review decision.
type ReviewCommand struct {
	DocumentID *uuid.UUID `json:"document_id,omitempty"`
	Action     string     `json:"action"`
	Note       *string    `json:"note,omitempty"`
	DecidedBy  string     `json:"decided_by"`
}
