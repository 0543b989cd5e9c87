package documents

import (
	"net/url"
	"strconv"

	"github.com/google/uuid"

	"github.com/planverify/verdict/pkg/query"
	"github.com/planverify/verdict/pkg/repository"
)

var projection = query.
	NewProjectionMap("public", "documents", "d").
	Project("id", "ID").
	Project("submission_id", "SubmissionID").
	Project("filename", "Filename").
	Project("content_type", "ContentType").
	Project("size_bytes", "SizeBytes").
	Project("page_count", "PageCount").
	Project("type", "Type").
	Project("type_confidence", "TypeConfidence").
	Project("scanned", "Scanned").
	Project("storage_key", "StorageKey").
	Project("uploaded_at", "UploadedAt").
	Project("updated_at", "UpdatedAt")

var defaultSort = query.SortField{
	Field:      "UploadedAt",
	Descending: true,
}

// Filters contains optional filtering criteria for document queries.
// Nil fields are ignored. SubmissionID, Type, ContentType, and Scanned
// use exact matching. Filename uses case-insensitive contains matching.
type Filters struct {
	SubmissionID *uuid.UUID `json:"submission_id,omitempty"`
	Type         *string    `json:"type,omitempty"`
	ContentType  *string    `json:"content_type,omitempty"`
	Scanned      *bool      `json:"scanned,omitempty"`
	Filename     *string    `json:"filename,omitempty"`
}

// Apply adds filter conditions to a query builder.
func (f Filters) Apply(b *query.Builder) *query.Builder {
	return b.
		WhereEquals("SubmissionID", f.SubmissionID).
		WhereEquals("Type", f.Type).
		WhereEquals("ContentType", f.ContentType).
		WhereEquals("Scanned", f.Scanned).
		WhereContains("Filename", f.Filename)
}

// FiltersFromQuery extracts filter values from URL query parameters.
func FiltersFromQuery(values url.Values) Filters {
	var f Filters

	if s := values.Get("submission_id"); s != "" {
		if id, err := uuid.Parse(s); err == nil {
			f.SubmissionID = &id
		}
	}

	if t := values.Get("type"); t != "" {
		f.Type = &t
	}

	if ct := values.Get("content_type"); ct != "" {
		f.ContentType = &ct
	}

	if sc := values.Get("scanned"); sc != "" {
		if v, err := strconv.ParseBool(sc); err == nil {
			f.Scanned = &v
		}
	}

	if fn := values.Get("filename"); fn != "" {
		f.Filename = &fn
	}

	return f
}

func scanDocument(s repository.Scanner) (Document, error) {
	var d Document
	err := s.Scan(
		&d.ID,
		&d.SubmissionID,
		&d.Filename,
		&d.ContentType,
		&d.SizeBytes,
		&d.PageCount,
		&d.Type,
		&d.TypeConfidence,
		&d.Scanned,
		&d.StorageKey,
		&d.UploadedAt,
		&d.UpdatedAt,
	)
	return d, err
}
