package linker_test

import (
	"log/slog"
	"testing"

	"github.com/google/uuid"

	"github.com/planverify/verdict/pkg/evidence"
	"github.com/planverify/verdict/pkg/linker"
)

func newLinker() *linker.Linker {
	return linker.New(linker.DefaultConfig(), slog.Default())
}

func fieldSet(pairs map[string]string) *evidence.FieldSet {
	fs := evidence.NewFieldSet()
	for name, value := range pairs {
		fs.Add(evidence.Field{
			Name:       name,
			Value:      evidence.String(value),
			Confidence: 0.9,
			Extractor:  evidence.ExtractorDeterministic,
		})
	}
	return fs
}

func prior(reference, address, postcode string) linker.Prior {
	return linker.Prior{
		ApplicationID: uuid.New(),
		SubmissionID:  uuid.New(),
		Reference:     reference,
		SiteAddress:   address,
		Postcode:      postcode,
	}
}

func TestDiscoverByReference(t *testing.T) {
	p := prior("24/01234/FUL", "1 High Street", "AB1 2CD")
	fields := fieldSet(map[string]string{
		"proposal_description": "Amendment to approved scheme 24/01234/FUL",
	})

	result := newLinker().Discover(fields, uuid.New(), []linker.Prior{p})

	if result.Parent == nil {
		t.Fatal("expected automatic parent link")
	}
	if result.Parent.ApplicationID != p.ApplicationID {
		t.Error("linked to wrong application")
	}
	if result.Parent.Reason != linker.ReasonReference {
		t.Errorf("reason = %s, want reference-match", result.Parent.Reason)
	}
	if result.Parent.Confidence != 0.95 {
		t.Errorf("confidence = %g, want 0.95", result.Parent.Confidence)
	}
}

func TestDiscoverReferenceBeatsAddress(t *testing.T) {
	byRef := prior("24/01234/FUL", "99 Other Road", "ZZ9 9ZZ")
	byAddr := prior("24/09999/FUL", "1 High Street", "AB1 2CD")

	fields := fieldSet(map[string]string{
		"proposal_description": "Variation of condition on 24/01234/FUL",
		"site_address":         "1 High Street",
	})

	result := newLinker().Discover(fields, uuid.New(), []linker.Prior{byAddr, byRef})

	if result.Parent == nil {
		t.Fatal("expected automatic parent link")
	}
	if result.Parent.ApplicationID != byRef.ApplicationID {
		t.Error("reference strategy should take priority over address")
	}
}

func TestDiscoverByAddressAbbreviation(t *testing.T) {
	p := prior("24/01234/FUL", "123 Main Street, Testington", "AB1 2CD")
	fields := fieldSet(map[string]string{
		"site_address": "123 Main St, Testington",
	})

	result := newLinker().Discover(fields, uuid.New(), []linker.Prior{p})

	if result.Parent == nil {
		t.Fatal("abbreviated street suffix should still auto-link")
	}
	if result.Parent.Reason != linker.ReasonAddress {
		t.Errorf("reason = %s, want address-match", result.Parent.Reason)
	}
	if result.Parent.Confidence < 0.90 {
		t.Errorf("confidence = %g, want >= 0.90", result.Parent.Confidence)
	}
}

func TestDiscoverAddressBelowAcceptSurfacesCandidate(t *testing.T) {
	p := prior("24/01234/FUL", "123 Main Street, Testington", "AB1 2CD")
	fields := fieldSet(map[string]string{
		"site_address": "123 Maine Street West, Testington",
	})

	result := newLinker().Discover(fields, uuid.New(), []linker.Prior{p})

	if result.Parent != nil {
		t.Fatal("similar-but-not-matching address must not auto-link")
	}
	if len(result.Candidates) != 1 {
		t.Fatalf("candidates = %d, want 1", len(result.Candidates))
	}
	c := result.Candidates[0]
	if c.Confidence < 0.70 || c.Confidence >= 0.90 {
		t.Errorf("confidence = %g, want in [0.70, 0.90)", c.Confidence)
	}
}

func TestDiscoverByPostcodeSingleMatch(t *testing.T) {
	p := prior("24/01234/FUL", "1 High Street", "AB1 2CD")
	fields := fieldSet(map[string]string{
		"site_postcode": "ab1 2cd",
	})

	result := newLinker().Discover(fields, uuid.New(), []linker.Prior{p})

	if result.Parent != nil {
		t.Fatal("postcode confidence 0.70 is below auto-link, must not persist")
	}
	if len(result.Candidates) != 1 {
		t.Fatalf("candidates = %d, want 1", len(result.Candidates))
	}
	if result.Candidates[0].Reason != linker.ReasonPostcode {
		t.Errorf("reason = %s, want postcode-match", result.Candidates[0].Reason)
	}
}

func TestDiscoverPostcodeAmbiguous(t *testing.T) {
	a := prior("24/01111/FUL", "1 High Street", "AB1 2CD")
	b := prior("24/02222/FUL", "2 High Street", "AB1 2CD")
	fields := fieldSet(map[string]string{
		"site_postcode": "AB1 2CD",
	})

	result := newLinker().Discover(fields, uuid.New(), []linker.Prior{a, b})

	if result.Parent != nil {
		t.Fatal("ambiguous postcode must not auto-link")
	}
	if len(result.Candidates) != 2 {
		t.Fatalf("candidates = %d, want 2", len(result.Candidates))
	}
}

func TestDiscoverExcludesOwnApplication(t *testing.T) {
	p := prior("24/01234/FUL", "1 High Street", "AB1 2CD")
	fields := fieldSet(map[string]string{
		"proposal_description": "Amendment to 24/01234/FUL",
	})

	result := newLinker().Discover(fields, p.ApplicationID, []linker.Prior{p})

	if result.Parent != nil || len(result.Candidates) != 0 {
		t.Error("submission must never link to its own application")
	}
}

func TestDiscoverNoSignals(t *testing.T) {
	p := prior("24/01234/FUL", "1 High Street", "AB1 2CD")

	result := newLinker().Discover(evidence.NewFieldSet(), uuid.New(), []linker.Prior{p})

	if result.Parent != nil || len(result.Candidates) != 0 {
		t.Error("no extracted signals should produce no links")
	}
}

func TestSimilarity(t *testing.T) {
	tests := []struct {
		name string
		a    string
		b    string
		min  float64
		max  float64
	}{
		{"identical", "1 High Street", "1 High Street", 1, 1},
		{"case and punctuation", "1 High Street.", "1 HIGH STREET", 1, 1},
		{"abbreviation expanded", "123 Main St", "123 Main Street", 1, 1},
		{"road abbreviation", "5 Station Rd", "5 Station Road", 1, 1},
		{"minor difference", "123 Main Street", "124 Main Street", 0.9, 0.999},
		{"unrelated", "1 High Street", "74 Acacia Gardens North", 0, 0.5},
		{"both empty", "", "", 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := linker.Similarity(tt.a, tt.b)
			if got < tt.min || got > tt.max {
				t.Errorf("Similarity(%q, %q) = %g, want in [%g, %g]", tt.a, tt.b, got, tt.min, tt.max)
			}
		})
	}
}

func TestSimilarityMonotonic(t *testing.T) {
	base := "123 Main Street, Testington"
	closer := linker.Similarity(base, "123 Main Street, Testingtan")
	farther := linker.Similarity(base, "45 Other Avenue, Elsewhere")
	if closer <= farther {
		t.Errorf("closer address scored %g, farther %g; want closer > farther", closer, farther)
	}
}

func TestNormalizePostcode(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"standard", "AB1 2CD", "AB12CD"},
		{"lowercase", "ab1 2cd", "AB12CD"},
		{"no space", "AB12CD", "AB12CD"},
		{"embedded in address", "1 High Street, Testington AB1 2CD", "AB12CD"},
		{"london style", "SW1A 1AA", "SW1A1AA"},
		{"not a postcode", "1 High Street", ""},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := linker.NormalizePostcode(tt.input); got != tt.want {
				t.Errorf("NormalizePostcode(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}
