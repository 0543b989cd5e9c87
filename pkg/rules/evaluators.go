package rules

import (
	"fmt"
	"slices"
	"strings"

	"github.com/planverify/verdict/pkg/evidence"
)

var defaultCertificateTypes = []string{"A", "B", "C", "D"}

// evaluateFieldRequired checks presence of a single field. Absence is
// "cannot confirm", not a confirmed violation: extraction is known to be
// imperfect, so the finding is needs_review rather than fail.
func (e *Engine) evaluateFieldRequired(rule Rule, in Input) Finding {
	f, ok := in.Fields.Get(rule.Config.Field)
	if !ok {
		return review(rule, fmt.Sprintf("required field %q was not extracted", rule.Config.Field), nil, nil)
	}

	if f.Confidence < e.floor(rule) {
		msg := fmt.Sprintf("field %q extracted at low confidence (%.2f)", rule.Config.Field, f.Confidence)
		return review(rule, msg, f.Evidence, nil)
	}

	return pass(rule, fmt.Sprintf("field %q present", rule.Config.Field), f.Evidence, nil)
}

// evaluateDocumentRequired checks the document list for the required
// type, falling back to configured alternatives. The document list is
// definitive input, so a missing document is a confirmed violation.
func (e *Engine) evaluateDocumentRequired(rule Rule, in Input) Finding {
	var primary, alternative []CandidateDocument
	for _, d := range in.Documents {
		if d.Type == rule.Config.DocumentType {
			primary = append(primary, candidateOf(d, DocumentPrimary))
		} else if slices.Contains(rule.Config.Alternatives, d.Type) {
			alternative = append(alternative, candidateOf(d, DocumentAlternative))
		}
	}

	if len(primary) > 0 {
		return pass(rule, fmt.Sprintf("document %q present", rule.Config.DocumentType), nil, primary)
	}
	if len(alternative) > 0 {
		msg := fmt.Sprintf("document %q absent; alternative accepted", rule.Config.DocumentType)
		return pass(rule, msg, nil, alternative)
	}

	msg := fmt.Sprintf("required document %q not submitted", rule.Config.DocumentType)
	if len(rule.Config.Alternatives) > 0 {
		msg = fmt.Sprintf("%s (alternatives: %s)", msg, strings.Join(rule.Config.Alternatives, ", "))
	}
	return Finding{
		RuleID:     rule.ID,
		Status:     StatusFail,
		Severity:   rule.Severity,
		Message:    msg,
		NoEvidence: true,
	}
}

// evaluateCrossField checks that the configured fields agree. Two string
// values agree when equal or when one normalized value contains the
// other (a postcode inside a full address).
func (e *Engine) evaluateCrossField(rule Rule, in Input) Finding {
	if len(rule.Config.Fields) < 2 {
		return review(rule, "cross-field rule requires at least two fields", nil, nil)
	}

	fields := make([]evidence.Field, 0, len(rule.Config.Fields))
	var cites []evidence.Evidence
	for _, name := range rule.Config.Fields {
		f, ok := in.Fields.Get(name)
		if !ok {
			return review(rule, fmt.Sprintf("field %q not extracted; consistency cannot be confirmed", name), nil, nil)
		}
		fields = append(fields, f)
		cites = append(cites, f.Evidence...)
	}

	for i := 1; i < len(fields); i++ {
		if !consistent(fields[0].Value, fields[i].Value) {
			msg := fmt.Sprintf(
				"fields %q (%s) and %q (%s) conflict",
				fields[0].Name, fields[0].Value.Display(),
				fields[i].Name, fields[i].Value.Display(),
			)
			return e.violation(rule, msg, cites, nil)
		}
	}

	return pass(rule, "fields consistent", cites, nil)
}

func consistent(a, b evidence.Value) bool {
	if a.Equal(b) {
		return true
	}
	if a.Kind == evidence.KindString && b.Kind == evidence.KindString {
		na := strings.ToLower(strings.Join(strings.Fields(a.Str), " "))
		nb := strings.ToLower(strings.Join(strings.Fields(b.Str), " "))
		return strings.Contains(na, nb) || strings.Contains(nb, na)
	}
	return false
}

// evaluateNumericThreshold bounds a numeric field. A non-numeric payload
// is an evaluator fault and surfaces through the engine's recovery path.
func (e *Engine) evaluateNumericThreshold(rule Rule, in Input) Finding {
	f, ok := in.Fields.Get(rule.Config.Field)
	if !ok {
		return review(rule, fmt.Sprintf("field %q not extracted", rule.Config.Field), nil, nil)
	}

	value := mustNumber(f)

	if rule.Config.Min != nil && value < *rule.Config.Min {
		msg := fmt.Sprintf("%s is %g, below minimum %g", rule.Config.Field, value, *rule.Config.Min)
		return e.violation(rule, msg, f.Evidence, nil)
	}
	if rule.Config.Max != nil && value > *rule.Config.Max {
		msg := fmt.Sprintf("%s is %g, above maximum %g", rule.Config.Field, value, *rule.Config.Max)
		return e.violation(rule, msg, f.Evidence, nil)
	}

	return pass(rule, fmt.Sprintf("%s within bounds (%g)", rule.Config.Field, value), f.Evidence, nil)
}

// evaluateCertificate checks an ownership certificate type against the
// known set.
func (e *Engine) evaluateCertificate(rule Rule, in Input) Finding {
	field := rule.Config.Field
	if field == "" {
		field = "certificate_type"
	}

	f, ok := in.Fields.Get(field)
	if !ok {
		return review(rule, "ownership certificate type not extracted", nil, nil)
	}

	allowed := rule.Config.AllowedValues
	if len(allowed) == 0 {
		allowed = defaultCertificateTypes
	}

	value := strings.ToUpper(strings.TrimSpace(f.Value.Str))
	if !slices.Contains(allowed, value) {
		msg := fmt.Sprintf("certificate type %q is not one of %s", f.Value.Str, strings.Join(allowed, "/"))
		return e.violation(rule, msg, f.Evidence, nil)
	}

	return pass(rule, fmt.Sprintf("certificate type %s valid", value), f.Evidence, nil)
}

// evaluateFee passes when a positive fee amount was paid or an exemption
// is claimed. When neither signal was extracted the finding is
// needs_review, consistent with the absence policy: missing extraction
// is "cannot confirm", not a confirmed non-payment.
func (e *Engine) evaluateFee(rule Rule, in Input) Finding {
	amount, hasAmount := in.Fields.Get("fee_paid_amount")
	exemption, hasExemption := in.Fields.Get("exemption_claimed")

	if hasAmount && mustNumber(amount) > 0 {
		msg := fmt.Sprintf("fee of %s paid", amount.Value.Display())
		return pass(rule, msg, amount.Evidence, nil)
	}
	if hasExemption && exemption.Value.Bool {
		return pass(rule, "fee exemption claimed", exemption.Evidence, nil)
	}

	if !hasAmount && !hasExemption {
		return review(rule, "neither fee payment nor exemption could be confirmed", nil, nil)
	}

	var cites []evidence.Evidence
	if hasAmount {
		cites = append(cites, amount.Evidence...)
	}
	if hasExemption {
		cites = append(cites, exemption.Evidence...)
	}
	return e.violation(rule, "no fee paid and no exemption claimed", cites, nil)
}

// evaluateSpatial bounds a geometric measurement and additionally
// requires that its evidence is positioned on the page, since a spatial
// claim without coordinates cannot be verified against the drawing.
func (e *Engine) evaluateSpatial(rule Rule, in Input) Finding {
	f, ok := in.Fields.Get(rule.Config.Field)
	if !ok {
		return review(rule, fmt.Sprintf("measurement %q not extracted", rule.Config.Field), nil, nil)
	}

	value := mustNumber(f)

	if !positioned(f.Evidence) {
		msg := fmt.Sprintf("measurement %q has no page position; cannot verify against drawing", rule.Config.Field)
		return review(rule, msg, f.Evidence, nil)
	}

	if rule.Config.Min != nil && value < *rule.Config.Min {
		msg := fmt.Sprintf("%s is %gm, below required %gm", rule.Config.Field, value, *rule.Config.Min)
		return e.violation(rule, msg, f.Evidence, nil)
	}
	if rule.Config.Max != nil && value > *rule.Config.Max {
		msg := fmt.Sprintf("%s is %gm, above permitted %gm", rule.Config.Field, value, *rule.Config.Max)
		return e.violation(rule, msg, f.Evidence, nil)
	}

	return pass(rule, fmt.Sprintf("%s of %gm within bounds", rule.Config.Field, value), f.Evidence, nil)
}

func positioned(cites []evidence.Evidence) bool {
	for _, c := range cites {
		if c.Page > 0 && c.Bounds.Width > 0 && c.Bounds.Height > 0 {
			return true
		}
	}
	return false
}

// evaluateModification reports which watched fields changed relative to
// the parent version, flagging them for officer review.
func (e *Engine) evaluateModification(rule Rule, in Input) Finding {
	if in.ParentFields == nil {
		return pass(rule, "no prior version linked", nil, nil)
	}

	changed := in.Fields.Changed(in.ParentFields)
	watched := rule.Config.Fields
	if len(watched) == 0 {
		watched = changed
	}

	var affected []string
	var cites []evidence.Evidence
	for _, name := range changed {
		if !slices.Contains(watched, name) {
			continue
		}
		affected = append(affected, name)
		if f, ok := in.Fields.Get(name); ok {
			cites = append(cites, f.Evidence...)
		}
	}

	if len(affected) == 0 {
		return pass(rule, "no watched fields changed from prior version", nil, nil)
	}

	msg := fmt.Sprintf("fields changed from prior version: %s", strings.Join(affected, ", "))
	return review(rule, msg, cites, nil)
}

// mustNumber panics when the field payload is not numeric; the engine's
// recovery turns the fault into a needs_review finding for that rule.
func mustNumber(f evidence.Field) float64 {
	if f.Value.Kind != evidence.KindNumber {
		panic(fmt.Sprintf("field %s: expected number, got %s", f.Name, f.Value.Kind))
	}
	return f.Value.Num
}
