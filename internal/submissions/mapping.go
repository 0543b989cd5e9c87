package submissions

import (
	"net/url"

	"github.com/google/uuid"

	"github.com/planverify/verdict/pkg/query"
	"github.com/planverify/verdict/pkg/repository"
)

var projection = query.
	NewProjectionMap("public", "submissions", "s").
	Project("id", "ID").
	Project("application_id", "ApplicationID").
	Project("status", "Status").
	Project("parent_id", "ParentID").
	Project("link_confidence", "LinkConfidence").
	Project("link_reason", "LinkReason").
	Project("created_at", "CreatedAt").
	Project("validated_at", "ValidatedAt")

var defaultSort = query.SortField{
	Field:      "CreatedAt",
	Descending: true,
}

// Filters contains optional filtering criteria for submission queries.
// Nil fields are ignored. All fields use exact matching.
type Filters struct {
	ApplicationID *uuid.UUID `json:"application_id,omitempty"`
	Status        *Status    `json:"status,omitempty"`
}

// Apply adds filter conditions to a query builder.
func (f Filters) Apply(b *query.Builder) *query.Builder {
	return b.
		WhereEquals("ApplicationID", f.ApplicationID).
		WhereEquals("Status", f.Status)
}

// FiltersFromQuery extracts filter values from URL query parameters.
func FiltersFromQuery(values url.Values) Filters {
	var f Filters

	if a := values.Get("application_id"); a != "" {
		if id, err := uuid.Parse(a); err == nil {
			f.ApplicationID = &id
		}
	}

	if s := values.Get("status"); s != "" {
		status := Status(s)
		f.Status = &status
	}

	return f
}

func scanSubmission(s repository.Scanner) (Submission, error) {
	var sub Submission

	err := s.Scan(
		&sub.ID,
		&sub.ApplicationID,
		&sub.Status,
		&sub.ParentID,
		&sub.LinkConfidence,
		&sub.LinkReason,
		&sub.CreatedAt,
		&sub.ValidatedAt,
	)

	return sub, err
}
