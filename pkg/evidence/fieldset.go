package evidence

import (
	"maps"
	"slices"
)

// Extractor identifies the stage that produced a field value.
type Extractor string

// Extractor kinds.
const (
	ExtractorDeterministic Extractor = "deterministic"
	ExtractorLLM           Extractor = "llm"
)

// Field is a resolved extraction result: a named, typed value with the
// evidence that justifies it.
type Field struct {
	Name         string     `json:"name"`
	Value        Value      `json:"value"`
	Confidence   float64    `json:"confidence"`
	Evidence     []Evidence `json:"evidence"`
	Extractor    Extractor  `json:"extractor"`
	DocumentType string     `json:"document_type"`
}

// FieldSet maps field names to their best-known values. Keys are unique;
// Add enforces highest-confidence-wins so the set never depends on
// insertion order beyond deliberate tie-breaking.
type FieldSet struct {
	fields map[string]Field
}

// NewFieldSet creates an empty FieldSet.
func NewFieldSet() *FieldSet {
	return &FieldSet{fields: make(map[string]Field)}
}

// Add records a candidate for the field's name. An existing entry is
// replaced only by a strictly higher confidence; on ties the earlier
// write survives, which is how extractor registration priority is
// expressed. Reports whether the candidate was kept.
func (fs *FieldSet) Add(f Field) bool {
	existing, ok := fs.fields[f.Name]
	if ok && existing.Confidence >= f.Confidence {
		return false
	}
	fs.fields[f.Name] = f
	return true
}

// Set unconditionally stores the field, bypassing confidence comparison.
// Used for derived fields whose value is computed, not extracted.
func (fs *FieldSet) Set(f Field) {
	fs.fields[f.Name] = f
}

// Get returns the field for name. The second result reports presence;
// absence is a valid outcome, not an error.
func (fs *FieldSet) Get(name string) (Field, bool) {
	f, ok := fs.fields[name]
	return f, ok
}

// Has reports whether name is present.
func (fs *FieldSet) Has(name string) bool {
	_, ok := fs.fields[name]
	return ok
}

// Names returns all present field names in sorted order, so iteration
// over a FieldSet is deterministic.
func (fs *FieldSet) Names() []string {
	return slices.Sorted(maps.Keys(fs.fields))
}

// Len returns the number of resolved fields.
func (fs *FieldSet) Len() int {
	return len(fs.fields)
}

// Fields returns all fields ordered by name.
func (fs *FieldSet) Fields() []Field {
	names := fs.Names()
	out := make([]Field, 0, len(names))
	for _, n := range names {
		out = append(out, fs.fields[n])
	}
	return out
}

// Clone returns an independent copy of the set.
func (fs *FieldSet) Clone() *FieldSet {
	return &FieldSet{fields: maps.Clone(fs.fields)}
}

// Changed returns the names of fields whose value differs from the
// parent set, including fields present on only one side. Used for
// targeted revalidation of delta-sensitive rules.
func (fs *FieldSet) Changed(parent *FieldSet) []string {
	if parent == nil {
		return nil
	}

	var changed []string
	for _, name := range fs.Names() {
		current := fs.fields[name]
		prior, ok := parent.fields[name]
		if !ok || !current.Value.Equal(prior.Value) {
			changed = append(changed, name)
		}
	}

	for _, name := range parent.Names() {
		if !fs.Has(name) {
			changed = append(changed, name)
		}
	}

	slices.Sort(changed)
	return changed
}
