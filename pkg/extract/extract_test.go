package extract_test

import (
	"log/slog"
	"slices"
	"testing"
	"time"

	"github.com/planverify/verdict/pkg/evidence"
	"github.com/planverify/verdict/pkg/extract"
)

func newMapper() *extract.Mapper {
	return extract.NewMapper(extract.DefaultRegistry(), slog.Default())
}

func block(id string, page int, text string) evidence.LayoutBlock {
	return evidence.LayoutBlock{
		ID:         id,
		Page:       page,
		Text:       text,
		Confidence: 0.95,
	}
}

func formBlocks() []evidence.LayoutBlock {
	return []evidence.LayoutBlock{
		block("b1", 1, "Application reference: 24/01234/FUL"),
		block("b2", 1, "Site address: 1 High Street, Testington"),
		block("b3", 1, "Postcode: AB1 2CD"),
		block("b4", 1, "Applicant name: J Smith"),
		block("b5", 1, "Proposal: Single storey rear extension"),
		block("b6", 2, "Certificate of ownership"),
		block("b7", 2, "Certificate A"),
		block("b8", 2, "Date: 14/03/2026"),
		block("b9", 2, "Signed: J Smith"),
	}
}

func TestMapFieldsApplicationForm(t *testing.T) {
	fields := newMapper().MapFields(formBlocks(), extract.TypeApplicationForm)

	tests := []struct {
		field string
		want  evidence.Value
	}{
		{extract.FieldApplicationReference, evidence.String("24/01234/FUL")},
		{extract.FieldSiteAddress, evidence.String("1 High Street, Testington")},
		{extract.FieldSitePostcode, evidence.String("AB1 2CD")},
		{extract.FieldApplicantName, evidence.String("J Smith")},
		{extract.FieldProposal, evidence.String("Single storey rear extension")},
		{extract.FieldCertificateType, evidence.String("A")},
		{extract.FieldApplicationDate, evidence.Date(time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC))},
		{extract.FieldIsSigned, evidence.Bool(true)},
	}

	for _, tt := range tests {
		t.Run(tt.field, func(t *testing.T) {
			got, ok := fields.Get(tt.field)
			if !ok {
				t.Fatalf("field %s missing", tt.field)
			}
			if !got.Value.Equal(tt.want) {
				t.Errorf("value = %+v, want %+v", got.Value, tt.want)
			}
			if len(got.Evidence) == 0 {
				t.Errorf("field %s has no evidence", tt.field)
			}
		})
	}
}

func TestMapFieldsDeterministic(t *testing.T) {
	blocks := formBlocks()
	first := newMapper().MapFields(blocks, extract.TypeApplicationForm)
	second := newMapper().MapFields(blocks, extract.TypeApplicationForm)

	if !slices.Equal(first.Names(), second.Names()) {
		t.Fatalf("field names differ: %v vs %v", first.Names(), second.Names())
	}
	for _, name := range first.Names() {
		a, _ := first.Get(name)
		b, _ := second.Get(name)
		if !a.Value.Equal(b.Value) {
			t.Errorf("field %s: %+v vs %+v", name, a.Value, b.Value)
		}
		if a.Confidence != b.Confidence {
			t.Errorf("field %s confidence: %g vs %g", name, a.Confidence, b.Confidence)
		}
	}
}

func TestMapFieldsOwnershipFiltering(t *testing.T) {
	// A fee receipt mentioning a reference-shaped string must not claim
	// application_reference, which the application form owns.
	blocks := []evidence.LayoutBlock{
		block("b1", 1, "Payment received for 24/01234/FUL"),
		block("b2", 1, "Fee paid: £462.00"),
	}

	fields := newMapper().MapFields(blocks, extract.TypeFeeReceipt)

	if fields.Has(extract.FieldApplicationReference) {
		t.Error("fee receipt should not produce application_reference")
	}

	fee, ok := fields.Get(extract.FieldFeePaidAmount)
	if !ok {
		t.Fatal("fee_paid_amount missing")
	}
	if fee.Value.Num != 462 {
		t.Errorf("fee = %g, want 462", fee.Value.Num)
	}
}

func TestMapFieldsContextGating(t *testing.T) {
	t.Run("amount without fee context ignored", func(t *testing.T) {
		blocks := []evidence.LayoutBlock{
			block("b1", 1, "Total £462.00"),
		}
		fields := newMapper().MapFields(blocks, extract.TypeFeeReceipt)
		if fields.Has(extract.FieldFeePaidAmount) {
			t.Error("amount with no fee context should be ignored")
		}
	})

	t.Run("context in adjacent block accepted", func(t *testing.T) {
		blocks := []evidence.LayoutBlock{
			block("b1", 1, "Planning fee payment"),
			block("b2", 1, "£462.00"),
		}
		fields := newMapper().MapFields(blocks, extract.TypeFeeReceipt)
		if !fields.Has(extract.FieldFeePaidAmount) {
			t.Error("amount with fee context in adjacent block should fire")
		}
	})

	t.Run("adjacent context on different page ignored", func(t *testing.T) {
		blocks := []evidence.LayoutBlock{
			block("b1", 1, "Planning fee payment"),
			block("b2", 2, "£462.00"),
		}
		fields := newMapper().MapFields(blocks, extract.TypeFeeReceipt)
		if fields.Has(extract.FieldFeePaidAmount) {
			t.Error("context on a different page should not count")
		}
	})
}

func TestMapFieldsFeeSanityBounds(t *testing.T) {
	blocks := []evidence.LayoutBlock{
		block("b1", 1, "Fee paid: £2.50"),
	}
	fields := newMapper().MapFields(blocks, extract.TypeFeeReceipt)
	if fields.Has(extract.FieldFeePaidAmount) {
		t.Error("amount below sanity floor should be rejected")
	}
}

func TestMapFieldsSitePlan(t *testing.T) {
	blocks := []evidence.LayoutBlock{
		block("b1", 1, "Site area: 250 sq m"),
		block("b2", 1, "Distance to boundary: 1.5 m"),
	}

	fields := newMapper().MapFields(blocks, extract.TypeSitePlan)

	area, ok := fields.Get(extract.FieldSiteAreaSqm)
	if !ok {
		t.Fatal("site_area_sqm missing")
	}
	if area.Value.Num != 250 {
		t.Errorf("area = %g, want 250", area.Value.Num)
	}

	setback, ok := fields.Get(extract.FieldBoundarySetbackM)
	if !ok {
		t.Fatal("boundary_setback_m missing")
	}
	if setback.Value.Num != 1.5 {
		t.Errorf("setback = %g, want 1.5", setback.Value.Num)
	}
}

func TestMapFieldsNoMatches(t *testing.T) {
	blocks := []evidence.LayoutBlock{
		block("b1", 1, "Lorem ipsum dolor sit amet"),
	}
	fields := newMapper().MapFields(blocks, extract.TypeApplicationForm)
	if fields.Len() != 0 {
		t.Errorf("Len() = %d, want 0 for unmatched text", fields.Len())
	}
}

func TestDerivedIsSigned(t *testing.T) {
	t.Run("signature present", func(t *testing.T) {
		blocks := []evidence.LayoutBlock{
			block("b1", 1, "Signature: J Smith"),
		}
		fields := newMapper().MapFields(blocks, extract.TypeApplicationForm)

		signed, ok := fields.Get(extract.FieldIsSigned)
		if !ok {
			t.Fatal("is_signed missing")
		}
		if !signed.Value.Bool {
			t.Error("is_signed = false, want true")
		}

		sigs, ok := fields.Get(extract.FieldSignatures)
		if !ok {
			t.Fatal("signatures missing")
		}
		if len(sigs.Value.List) != 1 {
			t.Errorf("signatures list length = %d, want 1", len(sigs.Value.List))
		}
	})

	t.Run("no signature signal", func(t *testing.T) {
		blocks := []evidence.LayoutBlock{
			block("b1", 1, "Site address: 1 High Street"),
		}
		fields := newMapper().MapFields(blocks, extract.TypeApplicationForm)
		if fields.Has(extract.FieldIsSigned) {
			t.Error("is_signed should be absent when no signature signal exists")
		}
	})
}

func TestRegistryOwned(t *testing.T) {
	r := extract.DefaultRegistry()

	form := r.Owned(extract.TypeApplicationForm)
	if !slices.Contains(form, extract.FieldApplicationReference) {
		t.Errorf("form owned fields missing application_reference: %v", form)
	}
	if slices.Contains(form, extract.FieldFeePaidAmount) {
		t.Errorf("form owned fields should not include fee_paid_amount: %v", form)
	}

	fee := r.Owned(extract.TypeFeeReceipt)
	if !slices.Contains(fee, extract.FieldFeePaidAmount) {
		t.Errorf("fee receipt owned fields missing fee_paid_amount: %v", fee)
	}
}

func TestRegistryOwner(t *testing.T) {
	r := extract.DefaultRegistry()

	owner, ok := r.Owner(extract.FieldSiteAreaSqm)
	if !ok {
		t.Fatal("site_area_sqm has no owner")
	}
	if owner != extract.TypeSitePlan {
		t.Errorf("owner = %s, want site_plan", owner)
	}

	if _, ok := r.Owner("unknown_field"); ok {
		t.Error("unknown field should have no owner")
	}
}

func TestEvidenceConfidenceCappedByBlock(t *testing.T) {
	blocks := []evidence.LayoutBlock{
		{ID: "b1", Page: 1, Text: "Application reference: 24/01234/FUL", Confidence: 0.5},
	}

	fields := newMapper().MapFields(blocks, extract.TypeApplicationForm)
	ref, ok := fields.Get(extract.FieldApplicationReference)
	if !ok {
		t.Fatal("application_reference missing")
	}
	if ref.Evidence[0].Confidence != 0.5 {
		t.Errorf("evidence confidence = %g, want 0.5 (capped by block)", ref.Evidence[0].Confidence)
	}
}
