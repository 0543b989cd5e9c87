package gate_test

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/planverify/verdict/pkg/evidence"
	"github.com/planverify/verdict/pkg/gate"
)

// fakeModel returns canned responses per field name and counts calls.
type fakeModel struct {
	mu        sync.Mutex
	calls     int
	responses map[string]string
	err       error
	block     bool
}

func (m *fakeModel) Extract(ctx context.Context, prompt string) (string, error) {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()

	if m.block {
		<-ctx.Done()
		return "", ctx.Err()
	}
	if m.err != nil {
		return "", m.err
	}
	for field, resp := range m.responses {
		if strings.Contains(prompt, fmt.Sprintf("%q", field)) {
			return resp, nil
		}
	}
	return `{"value": "", "confidence": 0}`, nil
}

func (m *fakeModel) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

func testPolicy() gate.Policy {
	p := gate.DefaultPolicy()
	p.Timeout = time.Second
	return p
}

func detField(name string, value evidence.Value, confidence float64) evidence.Field {
	return evidence.Field{
		Name:       name,
		Value:      value,
		Confidence: confidence,
		Extractor:  evidence.ExtractorDeterministic,
	}
}

func TestResolveAcceptsConfidentFields(t *testing.T) {
	model := &fakeModel{}
	g := gate.New(model, testPolicy(), slog.Default())

	fields := evidence.NewFieldSet()
	fields.Add(detField("site_postcode", evidence.String("AB1 2CD"), 0.9))

	resolved := g.Resolve(context.Background(), fields, nil, []string{"site_postcode"}, "application_form")

	if model.callCount() != 0 {
		t.Errorf("model called %d times, want 0", model.callCount())
	}
	got, _ := resolved.Get("site_postcode")
	if got.Confidence != 0.9 {
		t.Errorf("confidence = %g, want 0.9 unchanged", got.Confidence)
	}
	if got.Extractor != evidence.ExtractorDeterministic {
		t.Errorf("extractor = %s, want deterministic", got.Extractor)
	}
}

func TestResolveEscalatesAbsentField(t *testing.T) {
	model := &fakeModel{
		responses: map[string]string{
			"site_postcode": `{"value": "AB1 2CD", "confidence": 0.85, "page": 1, "block_id": "b3"}`,
		},
	}
	g := gate.New(model, testPolicy(), slog.Default())

	blocks := []evidence.LayoutBlock{
		{ID: "b3", Page: 1, Bounds: evidence.Bounds{X: 5, Y: 10}, Text: "AB1 2CD"},
	}

	resolved := g.Resolve(context.Background(), evidence.NewFieldSet(), blocks, []string{"site_postcode"}, "application_form")

	got, ok := resolved.Get("site_postcode")
	if !ok {
		t.Fatal("escalated field missing from result")
	}
	if got.Value.Str != "AB1 2CD" {
		t.Errorf("value = %q, want AB1 2CD", got.Value.Str)
	}
	if got.Confidence != 0.85 {
		t.Errorf("confidence = %g, want 0.85", got.Confidence)
	}
	if got.Extractor != evidence.ExtractorLLM {
		t.Errorf("extractor = %s, want llm", got.Extractor)
	}
	if len(got.Evidence) != 1 || got.Evidence[0].Method != evidence.MethodLLM {
		t.Fatalf("evidence = %+v, want one llm record", got.Evidence)
	}
	if got.Evidence[0].Bounds.X != 5 {
		t.Error("evidence bounds not resolved from cited block")
	}
}

func TestResolveDegradesOnModelError(t *testing.T) {
	model := &fakeModel{err: errors.New("connection refused")}
	g := gate.New(model, testPolicy(), slog.Default())

	fields := evidence.NewFieldSet()
	fields.Add(detField("site_address", evidence.String("1 High St"), 0.5))

	resolved := g.Resolve(context.Background(), fields, nil, []string{"site_address"}, "application_form")

	got, ok := resolved.Get("site_address")
	if !ok {
		t.Fatal("degraded field should keep its deterministic value")
	}
	if got.Value.Str != "1 High St" {
		t.Errorf("value = %q, want deterministic value kept", got.Value.Str)
	}
	if got.Confidence != 0.5*0.8 {
		t.Errorf("confidence = %g, want 0.4 (degraded)", got.Confidence)
	}
}

func TestResolveDegradesOnTimeout(t *testing.T) {
	model := &fakeModel{block: true}
	policy := testPolicy()
	policy.Timeout = 10 * time.Millisecond
	g := gate.New(model, policy, slog.Default())

	fields := evidence.NewFieldSet()
	fields.Add(detField("site_address", evidence.String("1 High St"), 0.5))

	resolved := g.Resolve(context.Background(), fields, nil, []string{"site_address"}, "application_form")

	got, _ := resolved.Get("site_address")
	if got.Confidence != 0.5*0.8 {
		t.Errorf("confidence = %g, want 0.4 (degraded after timeout)", got.Confidence)
	}
}

func TestResolveDegradesOnMalformedOutput(t *testing.T) {
	model := &fakeModel{
		responses: map[string]string{
			"site_address": `the address is probably 1 High St`,
		},
	}
	g := gate.New(model, testPolicy(), slog.Default())

	fields := evidence.NewFieldSet()
	fields.Add(detField("site_address", evidence.String("1 High St"), 0.5))

	resolved := g.Resolve(context.Background(), fields, nil, []string{"site_address"}, "application_form")

	got, _ := resolved.Get("site_address")
	if got.Extractor != evidence.ExtractorDeterministic {
		t.Error("malformed output should keep the deterministic value")
	}
	if got.Confidence != 0.5*0.8 {
		t.Errorf("confidence = %g, want 0.4 (degraded)", got.Confidence)
	}
}

func TestResolveAbsentFieldStaysAbsentOnFailure(t *testing.T) {
	model := &fakeModel{err: errors.New("unavailable")}
	g := gate.New(model, testPolicy(), slog.Default())

	resolved := g.Resolve(context.Background(), evidence.NewFieldSet(), nil, []string{"site_postcode"}, "application_form")

	if resolved.Has("site_postcode") {
		t.Error("field with no deterministic value should stay absent after a failed fallback")
	}
}

func TestResolveIdempotent(t *testing.T) {
	model := &fakeModel{
		responses: map[string]string{
			"site_postcode": `{"value": "AB1 2CD", "confidence": 0.85}`,
		},
	}
	g := gate.New(model, testPolicy(), slog.Default())

	first := g.Resolve(context.Background(), evidence.NewFieldSet(), nil, []string{"site_postcode"}, "application_form")
	if model.callCount() != 1 {
		t.Fatalf("model called %d times, want 1", model.callCount())
	}

	second := g.Resolve(context.Background(), first, nil, []string{"site_postcode"}, "application_form")
	if model.callCount() != 1 {
		t.Errorf("model called %d times after second Resolve, want 1 (short-circuit)", model.callCount())
	}

	got, _ := second.Get("site_postcode")
	if got.Value.Str != "AB1 2CD" {
		t.Errorf("value = %q, want AB1 2CD", got.Value.Str)
	}
}

func TestResolveAuthoritativeCapsModelConfidence(t *testing.T) {
	model := &fakeModel{
		responses: map[string]string{
			"application_reference": `{"value": "24/01234/FUL", "confidence": 0.99}`,
		},
	}
	g := gate.New(model, testPolicy(), slog.Default())

	fields := evidence.NewFieldSet()
	// Below the 0.85 reference threshold, so the gate escalates.
	fields.Add(detField("application_reference", evidence.String("24/01234/FUL"), 0.6))

	resolved := g.Resolve(context.Background(), fields, nil, []string{"application_reference"}, "application_form")

	got, _ := resolved.Get("application_reference")
	if got.Confidence != 0.6 {
		t.Errorf("confidence = %g, want 0.6 (capped at deterministic)", got.Confidence)
	}
}

func TestResolveAmbiguousAlwaysEscalates(t *testing.T) {
	model := &fakeModel{
		responses: map[string]string{
			"proposal_description": `{"value": "Two storey side extension", "confidence": 0.98}`,
		},
	}
	g := gate.New(model, testPolicy(), slog.Default())

	fields := evidence.NewFieldSet()
	fields.Add(detField("proposal_description", evidence.String("extension"), 0.95))

	resolved := g.Resolve(context.Background(), fields, nil, []string{"proposal_description"}, "application_form")

	if model.callCount() != 1 {
		t.Errorf("model called %d times, want 1 (ambiguous field escalates)", model.callCount())
	}
	got, _ := resolved.Get("proposal_description")
	if got.Extractor != evidence.ExtractorLLM {
		t.Error("ambiguous field should be resolved by the model when it wins on confidence")
	}
}

func TestResolveCoercesToDeterministicKind(t *testing.T) {
	model := &fakeModel{
		responses: map[string]string{
			"site_area_sqm": `{"value": "300", "confidence": 0.9}`,
		},
	}
	g := gate.New(model, testPolicy(), slog.Default())

	fields := evidence.NewFieldSet()
	fields.Add(detField("site_area_sqm", evidence.Number(250), 0.4))

	resolved := g.Resolve(context.Background(), fields, nil, []string{"site_area_sqm"}, "site_plan")

	got, _ := resolved.Get("site_area_sqm")
	if got.Value.Kind != evidence.KindNumber {
		t.Fatalf("kind = %s, want number", got.Value.Kind)
	}
	if got.Value.Num != 300 {
		t.Errorf("value = %g, want 300", got.Value.Num)
	}
}

func TestResolveDoesNotMutateInput(t *testing.T) {
	model := &fakeModel{
		responses: map[string]string{
			"site_address": `{"value": "2 Low Rd", "confidence": 0.95}`,
		},
	}
	g := gate.New(model, testPolicy(), slog.Default())

	fields := evidence.NewFieldSet()
	fields.Add(detField("site_address", evidence.String("1 High St"), 0.5))

	g.Resolve(context.Background(), fields, nil, []string{"site_address"}, "application_form")

	got, _ := fields.Get("site_address")
	if got.Value.Str != "1 High St" || got.Confidence != 0.5 {
		t.Error("Resolve mutated its input FieldSet")
	}
}

func TestPending(t *testing.T) {
	g := gate.New(nil, testPolicy(), slog.Default())

	fields := evidence.NewFieldSet()
	fields.Add(detField("site_postcode", evidence.String("AB1 2CD"), 0.9))
	fields.Add(detField("site_address", evidence.String("1 High St"), 0.5))
	fields.Add(detField("proposal_description", evidence.String("extension"), 0.95))

	owned := []string{"site_postcode", "site_address", "proposal_description", "applicant_name"}
	pending := g.Pending(fields, owned)

	want := []string{"site_address", "proposal_description", "applicant_name"}
	if !slices.Equal(pending, want) {
		t.Errorf("Pending() = %v, want %v", pending, want)
	}
}

func TestPendingSkipsModelResolvedFields(t *testing.T) {
	g := gate.New(nil, testPolicy(), slog.Default())

	fields := evidence.NewFieldSet()
	fields.Set(evidence.Field{
		Name:       "proposal_description",
		Value:      evidence.String("extension"),
		Confidence: 0.3,
		Extractor:  evidence.ExtractorLLM,
	})

	if pending := g.Pending(fields, []string{"proposal_description"}); len(pending) != 0 {
		t.Errorf("Pending() = %v, want empty for model-resolved field", pending)
	}
}
