package rules

import (
	"fmt"
	"log/slog"
	"slices"

	"github.com/planverify/verdict/pkg/evidence"
)

// DefaultConfidenceFloor applies when a rule does not configure its own:
// violated conditions backed by evidence below this confidence read
// needs_review instead of fail.
const DefaultConfidenceFloor = 0.60

// Input carries everything a validation run evaluates against. When
// ParentFields is set the submission is a modification of an earlier
// version; Prior then supplies the previous findings for targeted
// revalidation.
type Input struct {
	Fields       *evidence.FieldSet
	Documents    []Document
	ParentFields *evidence.FieldSet
	Prior        []Finding
}

type evaluator func(r Rule, in Input) Finding

// Engine evaluates rule catalogs. Evaluators are keyed by category and
// independent of each other; a fault in one rule is contained to that
// rule's finding.
type Engine struct {
	logger     *slog.Logger
	evaluators map[Category]evaluator
}

// NewEngine creates an Engine with the built-in category evaluators.
func NewEngine(logger *slog.Logger) *Engine {
	e := &Engine{logger: logger.With("system", "rules")}
	e.evaluators = map[Category]evaluator{
		CategoryFieldRequired:    e.evaluateFieldRequired,
		CategoryDocumentRequired: e.evaluateDocumentRequired,
		CategoryCrossField:       e.evaluateCrossField,
		CategoryNumericThreshold: e.evaluateNumericThreshold,
		CategoryCertificate:      e.evaluateCertificate,
		CategoryFee:              e.evaluateFee,
		CategorySpatial:          e.evaluateSpatial,
		CategoryModification:     e.evaluateModification,
	}
	return e
}

// Evaluate produces exactly one finding per catalog rule, in catalog
// order. When a parent link exists, delta-sensitive rules re-run only if
// a field they declare changed; unaffected rules retain their prior
// finding rather than being recomputed.
func (e *Engine) Evaluate(catalog *Catalog, in Input) []Finding {
	var changed []string
	if in.ParentFields != nil {
		changed = in.Fields.Changed(in.ParentFields)
	}

	prior := make(map[string]Finding, len(in.Prior))
	for _, f := range in.Prior {
		prior[f.RuleID] = f
	}

	findings := make([]Finding, 0, len(catalog.Rules))
	for _, rule := range catalog.Rules {
		if retained, ok := e.retain(rule, in, changed, prior); ok {
			findings = append(findings, retained)
			continue
		}
		findings = append(findings, e.evaluateRule(rule, in))
	}

	return findings
}

// retain implements targeted revalidation: with a parent link and a
// prior finding available, a rule is recomputed only when it is
// delta-sensitive and one of its declared fields changed.
func (e *Engine) retain(rule Rule, in Input, changed []string, prior map[string]Finding) (Finding, bool) {
	if in.ParentFields == nil {
		return Finding{}, false
	}
	previous, ok := prior[rule.ID]
	if !ok {
		return Finding{}, false
	}
	if !rule.Config.DeltaSensitive {
		return previous, true
	}

	declared := rule.declaredFields()
	if len(declared) == 0 {
		// Nothing declared means the affected set is unknowable;
		// recompute.
		return Finding{}, false
	}
	for _, f := range declared {
		if slices.Contains(changed, f) {
			return Finding{}, false
		}
	}
	return previous, true
}

// evaluateRule dispatches to the category evaluator, containing panics
// to a needs_review finding so one faulty rule cannot abort the rest of
// the catalog.
func (e *Engine) evaluateRule(rule Rule, in Input) (finding Finding) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("rule evaluation fault", "rule_id", rule.ID, "panic", r)
			finding = Finding{
				RuleID:     rule.ID,
				Status:     StatusNeedsReview,
				Severity:   rule.Severity,
				Message:    fmt.Sprintf("rule evaluation fault: %v", r),
				NoEvidence: true,
			}
		}
	}()

	eval, ok := e.evaluators[rule.Category]
	if !ok {
		return Finding{
			RuleID:     rule.ID,
			Status:     StatusNeedsReview,
			Severity:   rule.Severity,
			Message:    fmt.Sprintf("no evaluator for category %s", rule.Category),
			NoEvidence: true,
		}
	}

	return eval(rule, in)
}

func (e *Engine) floor(rule Rule) float64 {
	if rule.Config.ConfidenceFloor > 0 {
		return rule.Config.ConfidenceFloor
	}
	return DefaultConfidenceFloor
}

// pass builds a passing finding, carrying evidence when available.
func pass(rule Rule, message string, cites []evidence.Evidence, docs []CandidateDocument) Finding {
	return Finding{
		RuleID:    rule.ID,
		Status:    StatusPass,
		Severity:  rule.Severity,
		Message:   message,
		Evidence:  cites,
		Documents: docs,
	}
}

// violation builds a fail or needs_review finding depending on whether
// the supporting evidence clears the rule's confidence floor.
func (e *Engine) violation(rule Rule, message string, cites []evidence.Evidence, docs []CandidateDocument) Finding {
	status := StatusFail
	if !clearsFloor(cites, e.floor(rule)) {
		status = StatusNeedsReview
	}

	f := Finding{
		RuleID:    rule.ID,
		Status:    status,
		Severity:  rule.Severity,
		Message:   message,
		Evidence:  cites,
		Documents: docs,
	}
	if len(cites) == 0 {
		f.NoEvidence = true
	}
	return f
}

// review builds a needs_review finding for conditions that cannot be
// confirmed, tagging the absence of evidence explicitly when there is
// none.
func review(rule Rule, message string, cites []evidence.Evidence, docs []CandidateDocument) Finding {
	return Finding{
		RuleID:     rule.ID,
		Status:     StatusNeedsReview,
		Severity:   rule.Severity,
		Message:    message,
		Evidence:   cites,
		NoEvidence: len(cites) == 0,
		Documents:  docs,
	}
}

func clearsFloor(cites []evidence.Evidence, floor float64) bool {
	for _, c := range cites {
		if c.Confidence >= floor {
			return true
		}
	}
	return false
}
