package extract

import (
	"log/slog"

	"github.com/planverify/verdict/pkg/evidence"
)

// Mapper converts layout blocks into a FieldSet by running the
// registry's deterministic extractors for the document type. Mapping is
// a pure pass over the input: the accumulator is local to one call and
// rerunning on identical blocks yields an identical FieldSet.
type Mapper struct {
	registry *Registry
	logger   *slog.Logger
}

// NewMapper creates a Mapper over the given registry.
func NewMapper(registry *Registry, logger *slog.Logger) *Mapper {
	return &Mapper{
		registry: registry,
		logger:   logger.With("system", "extract"),
	}
}

// Registry exposes the mapper's extractor registry for ownership lookups.
func (m *Mapper) Registry() *Registry {
	return m.registry
}

// MapFields runs every registered extractor for the document type in
// registration order and resolves candidates highest-confidence-wins.
// Candidates for fields owned by a different document type are dropped.
// A field matching no extractor is simply absent from the result.
func (m *Mapper) MapFields(blocks []evidence.LayoutBlock, docType DocumentType) *evidence.FieldSet {
	fields := evidence.NewFieldSet()

	for _, ex := range m.registry.For(docType) {
		for _, c := range ex.Extract(blocks) {
			if owner, ok := m.registry.Owner(c.Field); ok && owner != docType {
				continue
			}

			kept := fields.Add(evidence.Field{
				Name:         c.Field,
				Value:        c.Value,
				Confidence:   c.Confidence,
				Evidence:     c.Evidence,
				Extractor:    evidence.ExtractorDeterministic,
				DocumentType: string(docType),
			})
			if !kept {
				m.logger.Debug(
					"candidate discarded",
					"field", c.Field,
					"extractor", ex.Name(),
					"confidence", c.Confidence,
				)
			}
		}
	}

	m.derive(fields, docType)
	return fields
}

// derive computes summary fields from multi-signal results. is_signed is
// an OR across the signature list and is always emitted when the list is
// present, never silently dropped.
func (m *Mapper) derive(fields *evidence.FieldSet, docType DocumentType) {
	if sigs, ok := fields.Get(FieldSignatures); ok {
		fields.Set(evidence.Field{
			Name:         FieldIsSigned,
			Value:        evidence.Bool(len(sigs.Value.List) > 0),
			Confidence:   sigs.Confidence,
			Evidence:     sigs.Evidence,
			Extractor:    evidence.ExtractorDeterministic,
			DocumentType: string(docType),
		})
	}
}
