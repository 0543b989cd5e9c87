package checks

import (
	"encoding/json"
	"fmt"
	"net/url"

	"github.com/google/uuid"

	"github.com/planverify/verdict/pkg/query"
	"github.com/planverify/verdict/pkg/repository"
	"github.com/planverify/verdict/pkg/rules"
)

var projection = query.
	NewProjectionMap("public", "validation_checks", "vc").
	Project("id", "ID").
	Project("submission_id", "SubmissionID").
	Project("run_id", "RunID").
	Project("position", "Position").
	Project("rule_id", "RuleID").
	Project("status", "Status").
	Project("severity", "Severity").
	Project("message", "Message").
	Project("evidence", "Evidence").
	Project("no_evidence", "NoEvidence").
	Project("documents", "Documents").
	Project("created_at", "CreatedAt")

var defaultSort = query.SortField{
	Field:      "CreatedAt",
	Descending: true,
}

// Filters contains optional filtering criteria for check queries.
// Nil fields are ignored. All fields use exact matching.
type Filters struct {
	SubmissionID *uuid.UUID      `json:"submission_id,omitempty"`
	RunID        *uuid.UUID      `json:"run_id,omitempty"`
	RuleID       *string         `json:"rule_id,omitempty"`
	Status       *rules.Status   `json:"status,omitempty"`
	Severity     *rules.Severity `json:"severity,omitempty"`
}

// Apply adds filter conditions to a query builder.
func (f Filters) Apply(b *query.Builder) *query.Builder {
	return b.
		WhereEquals("SubmissionID", f.SubmissionID).
		WhereEquals("RunID", f.RunID).
		WhereEquals("RuleID", f.RuleID).
		WhereEquals("Status", f.Status).
		WhereEquals("Severity", f.Severity)
}

// FiltersFromQuery extracts filter values from URL query parameters.
func FiltersFromQuery(values url.Values) Filters {
	var f Filters

	if s := values.Get("submission_id"); s != "" {
		if id, err := uuid.Parse(s); err == nil {
			f.SubmissionID = &id
		}
	}

	if r := values.Get("run_id"); r != "" {
		if id, err := uuid.Parse(r); err == nil {
			f.RunID = &id
		}
	}

	if r := values.Get("rule_id"); r != "" {
		f.RuleID = &r
	}

	if s := values.Get("status"); s != "" {
		status := rules.Status(s)
		f.Status = &status
	}

	if s := values.Get("severity"); s != "" {
		severity := rules.Severity(s)
		f.Severity = &severity
	}

	return f
}

func scanCheck(s repository.Scanner) (Check, error) {
	var c Check
	var evidenceRaw, documentsRaw []byte

	err := s.Scan(
		&c.ID,
		&c.SubmissionID,
		&c.RunID,
		&c.Position,
		&c.RuleID,
		&c.Status,
		&c.Severity,
		&c.Message,
		&evidenceRaw,
		&c.NoEvidence,
		&documentsRaw,
		&c.CreatedAt,
	)
	if err != nil {
		return c, err
	}

	if len(evidenceRaw) > 0 {
		if err := json.Unmarshal(evidenceRaw, &c.Evidence); err != nil {
			return c, fmt.Errorf("unmarshal evidence: %w", err)
		}
	}

	if len(documentsRaw) > 0 {
		if err := json.Unmarshal(documentsRaw, &c.Documents); err != nil {
			return c, fmt.Errorf("unmarshal documents: %w", err)
		}
	}

	return c, nil
}

func scanDecision(s repository.Scanner) (ReviewDecision, error) {
	var d ReviewDecision

	err := s.Scan(
		&d.ID,
		&d.CheckID,
		&d.DocumentID,
		&d.Action,
		&d.Note,
		&d.DecidedBy,
		&d.DecidedAt,
	)

	return d, err
}

func toFinding(c Check) rules.Finding {
	return rules.Finding{
		RuleID:     c.RuleID,
		Status:     c.Status,
		Severity:   c.Severity,
		Message:    c.Message,
		Evidence:   c.Evidence,
		NoEvidence: c.NoEvidence,
		Documents:  c.Documents,
	}
}
