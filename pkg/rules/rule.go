// Package rules evaluates a versioned catalog of business rules against
// a resolved field set, the submitted document list, and (for linked
// submissions) the field delta from the parent version. Every rule
// yields exactly one finding per run; evaluators are pure with respect
// to their declared inputs and never see another rule's output.
package rules

import (
	"errors"
	"fmt"
	"slices"
)

// Category selects the evaluator for a rule.
type Category string

// Rule categories.
const (
	CategoryFieldRequired    Category = "field_required"
	CategoryDocumentRequired Category = "document_required"
	CategoryCrossField       Category = "cross_field"
	CategoryNumericThreshold Category = "numeric_threshold"
	CategoryCertificate      Category = "certificate"
	CategoryFee              Category = "fee"
	CategorySpatial          Category = "spatial"
	CategoryModification     Category = "modification"
)

var categories = []Category{
	CategoryFieldRequired,
	CategoryDocumentRequired,
	CategoryCrossField,
	CategoryNumericThreshold,
	CategoryCertificate,
	CategoryFee,
	CategorySpatial,
	CategoryModification,
}

// Severity grades the impact of a violated rule.
type Severity string

// Severity levels.
const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Config carries the per-rule parameters read from the catalog. Fields
// irrelevant to a rule's category are ignored by its evaluator.
type Config struct {
	// Field is the primary field a rule inspects.
	Field string `json:"field,omitempty" yaml:"field,omitempty"`
	// Fields lists additional fields (cross-field consistency, watched
	// fields for modification rules).
	Fields []string `json:"fields,omitempty" yaml:"fields,omitempty"`
	// DocumentType is the required document type.
	DocumentType string `json:"document_type,omitempty" yaml:"document_type,omitempty"`
	// Alternatives are document types accepted in place of
	// DocumentType.
	Alternatives []string `json:"alternatives,omitempty" yaml:"alternatives,omitempty"`
	// Min and Max bound numeric and spatial checks.
	Min *float64 `json:"min,omitempty" yaml:"min,omitempty"`
	Max *float64 `json:"max,omitempty" yaml:"max,omitempty"`
	// AllowedValues enumerates valid values (certificate types).
	AllowedValues []string `json:"allowed_values,omitempty" yaml:"allowed_values,omitempty"`
	// ConfidenceFloor is the evidence confidence below which a violated
	// condition reads needs_review instead of fail.
	ConfidenceFloor float64 `json:"confidence_floor,omitempty" yaml:"confidence_floor,omitempty"`
	// DeltaSensitive marks the rule for targeted revalidation when a
	// parent link exists.
	DeltaSensitive bool `json:"delta_sensitive,omitempty" yaml:"delta_sensitive,omitempty"`
}

// Rule is one entry of the rule catalog, read-only at evaluation time.
type Rule struct {
	ID       string   `json:"rule_id" yaml:"rule_id"`
	Category Category `json:"category" yaml:"category"`
	Severity Severity `json:"severity" yaml:"severity"`
	Message  string   `json:"message" yaml:"message"`
	Config   Config   `json:"config" yaml:"config"`
}

// Catalog validation errors.
var (
	ErrDuplicateRule   = errors.New("duplicate rule id")
	ErrUnknownCategory = errors.New("unknown rule category")
)

// Validate checks the rule for catalog-level consistency.
func (r Rule) Validate() error {
	if r.ID == "" {
		return errors.New("rule id required")
	}
	if !slices.Contains(categories, r.Category) {
		return fmt.Errorf("%w: %s (rule %s)", ErrUnknownCategory, r.Category, r.ID)
	}
	return nil
}

// declaredFields returns the fields a rule depends on, used to decide
// whether a delta-sensitive rule is affected by a modification.
func (r Rule) declaredFields() []string {
	var fields []string
	if r.Config.Field != "" {
		fields = append(fields, r.Config.Field)
	}
	fields = append(fields, r.Config.Fields...)

	switch r.Category {
	case CategoryFee:
		fields = append(fields, "fee_paid_amount", "exemption_claimed")
	case CategoryCertificate:
		if r.Config.Field == "" {
			fields = append(fields, "certificate_type")
		}
	}

	return fields
}
