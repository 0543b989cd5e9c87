package rules

import (
	"github.com/google/uuid"

	"github.com/planverify/verdict/pkg/evidence"
)

// Status is the outcome of one rule evaluation. needs_review is the
// designated "pipeline was uncertain" signal: officers always see a
// finding per rule, never a blank result.
type Status string

// Finding statuses.
const (
	StatusPass        Status = "pass"
	StatusFail        Status = "fail"
	StatusNeedsReview Status = "needs_review"
)

// Document is one submitted document as the engine sees it: identity,
// classified type, classification confidence, and whether it has been
// scanned for content.
type Document struct {
	ID         uuid.UUID `json:"id"`
	Name       string    `json:"name"`
	Type       string    `json:"type"`
	Confidence float64   `json:"confidence"`
	Scanned    bool      `json:"scanned"`
}

// Candidate-document reasons.
const (
	DocumentPrimary     = "primary"
	DocumentAlternative = "alternative"
)

// CandidateDocument records one document a finding considered and why.
// The list is descriptive only: officer confirm/reject feedback never
// mutates document identity or the recorded finding.
type CandidateDocument struct {
	ID         uuid.UUID `json:"id"`
	Name       string    `json:"name"`
	Type       string    `json:"type"`
	Confidence float64   `json:"confidence"`
	Reason     string    `json:"reason"`
	Scanned    bool      `json:"scanned"`
}

// Finding is the result of evaluating one rule. Any finding with a
// status other than pass carries at least one evidence record or sets
// NoEvidence explicitly; silent unexplained failures are disallowed.
type Finding struct {
	RuleID     string              `json:"rule_id"`
	Status     Status              `json:"status"`
	Severity   Severity            `json:"severity"`
	Message    string              `json:"message"`
	Evidence   []evidence.Evidence `json:"evidence,omitempty"`
	NoEvidence bool                `json:"no_evidence,omitempty"`
	Documents  []CandidateDocument `json:"documents,omitempty"`
}

func candidateOf(d Document, reason string) CandidateDocument {
	return CandidateDocument{
		ID:         d.ID,
		Name:       d.Name,
		Type:       d.Type,
		Confidence: d.Confidence,
		Reason:     reason,
		Scanned:    d.Scanned,
	}
}
