package rules_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/planverify/verdict/pkg/rules"
)

func writeCatalog(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write catalog: %v", err)
	}
	return path
}

func TestLoadCatalogJSON(t *testing.T) {
	path := writeCatalog(t, "rules.json", `{
  "version": "2026.1",
  "rules": [
    {
      "rule_id": "REF-001",
      "category": "field_required",
      "severity": "high",
      "message": "Application reference must be present",
      "config": {"field": "application_reference"}
    },
    {
      "rule_id": "AREA-001",
      "category": "numeric_threshold",
      "severity": "medium",
      "message": "Site area within plausible bounds",
      "config": {"field": "site_area_sqm", "min": 1, "max": 100000, "delta_sensitive": true}
    }
  ]
}`)

	catalog, err := rules.LoadCatalog(path)
	if err != nil {
		t.Fatalf("LoadCatalog() error = %v", err)
	}

	if catalog.Version != "2026.1" {
		t.Errorf("version = %s, want 2026.1", catalog.Version)
	}
	if len(catalog.Rules) != 2 {
		t.Fatalf("rules = %d, want 2", len(catalog.Rules))
	}

	area, ok := catalog.Find("AREA-001")
	if !ok {
		t.Fatal("AREA-001 not found")
	}
	if area.Config.Min == nil || *area.Config.Min != 1 {
		t.Errorf("min = %v, want 1", area.Config.Min)
	}
	if !area.Config.DeltaSensitive {
		t.Error("delta_sensitive not parsed")
	}
}

func TestLoadCatalogYAML(t *testing.T) {
	path := writeCatalog(t, "rules.yaml", `
version: "2026.1"
rules:
  - rule_id: DOC-001
    category: document_required
    severity: critical
    message: Application form must be submitted
    config:
      document_type: application_form
  - rule_id: DOC-002
    category: document_required
    severity: critical
    message: Location plan must be submitted
    config:
      document_type: location_plan
      alternatives:
        - site_plan
`)

	catalog, err := rules.LoadCatalog(path)
	if err != nil {
		t.Fatalf("LoadCatalog() error = %v", err)
	}

	if len(catalog.Rules) != 2 {
		t.Fatalf("rules = %d, want 2", len(catalog.Rules))
	}

	plan, ok := catalog.Find("DOC-002")
	if !ok {
		t.Fatal("DOC-002 not found")
	}
	if len(plan.Config.Alternatives) != 1 || plan.Config.Alternatives[0] != "site_plan" {
		t.Errorf("alternatives = %v, want [site_plan]", plan.Config.Alternatives)
	}
}

func TestLoadCatalogDuplicateID(t *testing.T) {
	path := writeCatalog(t, "rules.json", `{
  "version": "2026.1",
  "rules": [
    {"rule_id": "REF-001", "category": "field_required", "severity": "high", "config": {"field": "a"}},
    {"rule_id": "REF-001", "category": "field_required", "severity": "high", "config": {"field": "b"}}
  ]
}`)

	_, err := rules.LoadCatalog(path)
	if !errors.Is(err, rules.ErrDuplicateRule) {
		t.Errorf("error = %v, want ErrDuplicateRule", err)
	}
}

func TestLoadCatalogUnknownCategory(t *testing.T) {
	path := writeCatalog(t, "rules.json", `{
  "version": "2026.1",
  "rules": [
    {"rule_id": "X-001", "category": "astrological", "severity": "low"}
  ]
}`)

	_, err := rules.LoadCatalog(path)
	if !errors.Is(err, rules.ErrUnknownCategory) {
		t.Errorf("error = %v, want ErrUnknownCategory", err)
	}
}

func TestLoadCatalogMissingFile(t *testing.T) {
	if _, err := rules.LoadCatalog(filepath.Join(t.TempDir(), "absent.json")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestLoadCatalogMalformed(t *testing.T) {
	path := writeCatalog(t, "rules.json", `{"version": `)
	if _, err := rules.LoadCatalog(path); err == nil {
		t.Error("expected error for malformed JSON")
	}
}

func TestRuleValidate(t *testing.T) {
	tests := []struct {
		name    string
		rule    rules.Rule
		wantErr bool
	}{
		{
			name:    "valid",
			rule:    rules.Rule{ID: "R-001", Category: rules.CategoryFee, Severity: rules.SeverityHigh},
			wantErr: false,
		},
		{
			name:    "missing id",
			rule:    rules.Rule{Category: rules.CategoryFee},
			wantErr: true,
		},
		{
			name:    "unknown category",
			rule:    rules.Rule{ID: "R-001", Category: "bogus"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.rule.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %t", err, tt.wantErr)
			}
		})
	}
}
