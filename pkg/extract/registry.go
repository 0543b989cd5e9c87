package extract

import "github.com/planverify/verdict/pkg/evidence"

// Candidate is one proposed value for a named field, with the evidence
// that produced it. Extractors may emit zero or many candidates.
type Candidate struct {
	Field      string
	Value      evidence.Value
	Confidence float64
	Evidence   []evidence.Evidence
}

// Extractor is a pure function over layout blocks. Implementations must
// not retain or mutate the block slice.
type Extractor interface {
	Name() string
	Extract(blocks []evidence.LayoutBlock) []Candidate
}

// Registry holds the ordered extractor set per document type and the
// field ownership table. Registration order is the tie-break priority
// when two candidates share a confidence.
type Registry struct {
	owners     map[string]DocumentType
	extractors map[DocumentType][]Extractor
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		owners:     make(map[string]DocumentType),
		extractors: make(map[DocumentType][]Extractor),
	}
}

// Own declares the owning document type for a field. Candidates for an
// owned field are discarded on any other document type, preventing
// cross-document contamination.
func (r *Registry) Own(field string, dt DocumentType) {
	r.owners[field] = dt
}

// Owner returns the owning document type for a field, if declared.
func (r *Registry) Owner(field string) (DocumentType, bool) {
	dt, ok := r.owners[field]
	return dt, ok
}

// Owned returns the fields owned by the given document type, in
// registration order of their extractors.
func (r *Registry) Owned(dt DocumentType) []string {
	var fields []string
	seen := make(map[string]bool)
	for _, ex := range r.extractors[dt] {
		for _, c := range probeFields(ex) {
			if owner, ok := r.owners[c]; ok && owner != dt {
				continue
			}
			if !seen[c] {
				seen[c] = true
				fields = append(fields, c)
			}
		}
	}
	return fields
}

// Register appends an extractor to the document type's ordered set.
func (r *Registry) Register(dt DocumentType, ex Extractor) {
	r.extractors[dt] = append(r.extractors[dt], ex)
}

// For returns the extractors registered for a document type in
// registration order.
func (r *Registry) For(dt DocumentType) []Extractor {
	return r.extractors[dt]
}

// FieldLister is implemented by extractors that can declare their output
// fields without running, used to compute ownership coverage.
type FieldLister interface {
	Fields() []string
}

func probeFields(ex Extractor) []string {
	if fl, ok := ex.(FieldLister); ok {
		return fl.Fields()
	}
	return nil
}

// DefaultRegistry wires the built-in extractors and ownership table for
// the standard planning document types.
func DefaultRegistry() *Registry {
	r := NewRegistry()

	r.Own(FieldApplicationReference, TypeApplicationForm)
	r.Own(FieldSiteAddress, TypeApplicationForm)
	r.Own(FieldSitePostcode, TypeApplicationForm)
	r.Own(FieldApplicantName, TypeApplicationForm)
	r.Own(FieldProposal, TypeApplicationForm)
	r.Own(FieldApplicationDate, TypeApplicationForm)
	r.Own(FieldCertificateType, TypeApplicationForm)
	r.Own(FieldSignatures, TypeApplicationForm)
	r.Own(FieldIsSigned, TypeApplicationForm)
	r.Own(FieldExemptionClaimed, TypeApplicationForm)
	r.Own(FieldFeePaidAmount, TypeFeeReceipt)
	r.Own(FieldSiteAreaSqm, TypeSitePlan)
	r.Own(FieldBoundarySetbackM, TypeSitePlan)

	for _, ex := range formExtractors() {
		r.Register(TypeApplicationForm, ex)
	}
	for _, ex := range feeExtractors() {
		r.Register(TypeFeeReceipt, ex)
	}
	for _, ex := range planExtractors() {
		r.Register(TypeSitePlan, ex)
	}

	return r
}
