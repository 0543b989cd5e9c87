package applications

import (
	"net/url"

	"github.com/planverify/verdict/pkg/query"
	"github.com/planverify/verdict/pkg/repository"
)

var projection = query.
	NewProjectionMap("public", "applications", "a").
	Project("id", "ID").
	Project("reference", "Reference").
	Project("site_address", "SiteAddress").
	Project("postcode", "Postcode").
	Project("proposal", "Proposal").
	Project("created_at", "CreatedAt").
	Project("updated_at", "UpdatedAt")

var defaultSort = query.SortField{
	Field:      "CreatedAt",
	Descending: true,
}

// Filters contains optional filtering criteria for application queries.
// Nil fields are ignored. All fields use exact matching.
type Filters struct {
	Reference *string `json:"reference,omitempty"`
	Postcode  *string `json:"postcode,omitempty"`
}

// Apply adds filter conditions to a query builder.
func (f Filters) Apply(b *query.Builder) *query.Builder {
	return b.
		WhereEquals("Reference", f.Reference).
		WhereEquals("Postcode", f.Postcode)
}

// FiltersFromQuery extracts filter values from URL query parameters.
func FiltersFromQuery(values url.Values) Filters {
	var f Filters

	if r := values.Get("reference"); r != "" {
		f.Reference = &r
	}

	if p := values.Get("postcode"); p != "" {
		f.Postcode = &p
	}

	return f
}

func scanApplication(s repository.Scanner) (Application, error) {
	var a Application

	err := s.Scan(
		&a.ID,
		&a.Reference,
		&a.SiteAddress,
		&a.Postcode,
		&a.Proposal,
		&a.CreatedAt,
		&a.UpdatedAt,
	)

	return a, err
}
