package extract

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/planverify/verdict/pkg/evidence"
)

// patternExtractor matches a single regex against each block and emits
// one candidate per match. When context tokens are configured, a match
// only fires if one of the tokens appears in the matching block or an
// adjacent block; this keeps numeric extractors from latching onto
// unrelated numbers. The optional parse hook converts the first capture
// group into a typed value and may reject it (sanity bounds).
type patternExtractor struct {
	name       string
	field      string
	pattern    *regexp.Regexp
	confidence float64
	method     evidence.Method
	context    []string
	parse      func(raw string) (evidence.Value, bool)
}

func (e *patternExtractor) Name() string { return e.name }

func (e *patternExtractor) Fields() []string { return []string{e.field} }

func (e *patternExtractor) Extract(blocks []evidence.LayoutBlock) []Candidate {
	var out []Candidate

	for i, block := range blocks {
		match := e.pattern.FindStringSubmatch(block.Text)
		if match == nil {
			continue
		}
		if len(e.context) > 0 && !hasContext(blocks, i, e.context) {
			continue
		}

		raw := match[0]
		if len(match) > 1 {
			raw = match[1]
		}

		value := evidence.String(strings.TrimSpace(raw))
		if e.parse != nil {
			parsed, ok := e.parse(raw)
			if !ok {
				continue
			}
			value = parsed
		}

		out = append(out, Candidate{
			Field:      e.field,
			Value:      value,
			Confidence: e.confidence,
			Evidence: []evidence.Evidence{
				evidence.FromBlock(block, match[0], e.confidence, e.method),
			},
		})
	}

	return out
}

// hasContext reports whether any token appears in the block at idx or an
// immediately adjacent block on the same page.
func hasContext(blocks []evidence.LayoutBlock, idx int, tokens []string) bool {
	check := func(i int) bool {
		if i < 0 || i >= len(blocks) {
			return false
		}
		if blocks[i].Page != blocks[idx].Page {
			return false
		}
		text := strings.ToLower(blocks[i].Text)
		for _, token := range tokens {
			if strings.Contains(text, token) {
				return true
			}
		}
		return false
	}
	return check(idx) || check(idx-1) || check(idx+1)
}

// signatureExtractor collects every signature signal across all blocks
// into a single list-valued candidate. The derived is_signed summary is
// computed by the mapper as an OR over the list.
type signatureExtractor struct {
	pattern *regexp.Regexp
}

func (e *signatureExtractor) Name() string { return "signatures" }

func (e *signatureExtractor) Fields() []string {
	return []string{FieldSignatures, FieldIsSigned}
}

func (e *signatureExtractor) Extract(blocks []evidence.LayoutBlock) []Candidate {
	var signals []string
	var cites []evidence.Evidence

	for _, block := range blocks {
		match := e.pattern.FindString(block.Text)
		if match == "" {
			continue
		}
		signals = append(signals, strings.TrimSpace(match))
		cites = append(cites, evidence.FromBlock(block, match, 0.70, evidence.MethodPattern))
	}

	if len(signals) == 0 {
		return nil
	}

	return []Candidate{{
		Field:      FieldSignatures,
		Value:      evidence.List(signals),
		Confidence: 0.70,
		Evidence:   cites,
	}}
}

var (
	referencePattern   = regexp.MustCompile(`\b(\d{2}/\d{4,5}/[A-Z]{1,5})\b`)
	postcodePattern    = regexp.MustCompile(`\b([A-Z]{1,2}\d{1,2}[A-Z]?\s*\d[A-Z]{2})\b`)
	addressPattern     = regexp.MustCompile(`(?i)(?:site\s+address|address\s+of\s+(?:the\s+)?site)\s*[:\-]\s*(.+)`)
	applicantPattern   = regexp.MustCompile(`(?i)applicant(?:\s+name)?\s*[:\-]\s*(.+)`)
	proposalPattern    = regexp.MustCompile(`(?i)(?:proposal|description\s+of\s+(?:the\s+)?(?:works|development))\s*[:\-]\s*(.+)`)
	datePattern        = regexp.MustCompile(`(?i)date\s*[:\-]\s*(\d{1,2}[/\-]\d{1,2}[/\-]\d{2,4})`)
	certificatePattern = regexp.MustCompile(`(?i)certificate\s+([A-D])\b`)
	exemptionPattern   = regexp.MustCompile(`(?i)\b(?:fee\s+)?exempt(?:ion)?\s+(?:claimed|applies|from)\b|\bclaims?\s+(?:a\s+)?(?:fee\s+)?exemption\b`)
	amountPattern      = regexp.MustCompile(`£\s*([\d,]+(?:\.\d{1,2})?)`)
	areaPattern        = regexp.MustCompile(`([\d,]+(?:\.\d+)?)\s*(?:sq\.?\s*m\b|m2\b|m²|square\s+met)`)
	setbackPattern     = regexp.MustCompile(`([\d.]+)\s*m(?:etres?|eters?)?\b`)
	signaturePattern   = regexp.MustCompile(`(?i)\bsigned\s*[:\-]?|\bsignature\b`)
)

func formExtractors() []Extractor {
	return []Extractor{
		&patternExtractor{
			name:       "application_reference",
			field:      FieldApplicationReference,
			pattern:    referencePattern,
			confidence: 0.90,
			method:     evidence.MethodRegex,
		},
		&patternExtractor{
			name:       "site_address",
			field:      FieldSiteAddress,
			pattern:    addressPattern,
			confidence: 0.80,
			method:     evidence.MethodPattern,
		},
		&patternExtractor{
			name:       "site_postcode",
			field:      FieldSitePostcode,
			pattern:    postcodePattern,
			confidence: 0.85,
			method:     evidence.MethodRegex,
			parse: func(raw string) (evidence.Value, bool) {
				return evidence.String(strings.ToUpper(strings.TrimSpace(raw))), true
			},
		},
		&patternExtractor{
			name:       "applicant_name",
			field:      FieldApplicantName,
			pattern:    applicantPattern,
			confidence: 0.75,
			method:     evidence.MethodPattern,
		},
		&patternExtractor{
			name:       "proposal_description",
			field:      FieldProposal,
			pattern:    proposalPattern,
			confidence: 0.60,
			method:     evidence.MethodPattern,
		},
		&patternExtractor{
			name:       "application_date",
			field:      FieldApplicationDate,
			pattern:    datePattern,
			confidence: 0.70,
			method:     evidence.MethodRegex,
			parse:      parseDate,
		},
		&patternExtractor{
			name:       "certificate_type",
			field:      FieldCertificateType,
			pattern:    certificatePattern,
			confidence: 0.85,
			method:     evidence.MethodPattern,
			context:    []string{"certificate", "ownership"},
			parse: func(raw string) (evidence.Value, bool) {
				return evidence.String(strings.ToUpper(strings.TrimSpace(raw))), true
			},
		},
		&patternExtractor{
			name:       "exemption_claimed",
			field:      FieldExemptionClaimed,
			pattern:    exemptionPattern,
			confidence: 0.70,
			method:     evidence.MethodPattern,
			context:    []string{"fee", "exempt"},
			parse: func(string) (evidence.Value, bool) {
				return evidence.Bool(true), true
			},
		},
		&signatureExtractor{pattern: signaturePattern},
	}
}

func feeExtractors() []Extractor {
	return []Extractor{
		&patternExtractor{
			name:       "fee_paid_amount",
			field:      FieldFeePaidAmount,
			pattern:    amountPattern,
			confidence: 0.80,
			method:     evidence.MethodRegex,
			context:    []string{"fee", "payment", "paid", "amount due"},
			parse: func(raw string) (evidence.Value, bool) {
				amount, err := parseAmount(raw)
				if err != nil || amount < FeeMin || amount > FeeMax {
					return evidence.Value{}, false
				}
				return evidence.Number(amount), true
			},
		},
	}
}

func planExtractors() []Extractor {
	return []Extractor{
		&patternExtractor{
			name:       "site_area_sqm",
			field:      FieldSiteAreaSqm,
			pattern:    areaPattern,
			confidence: 0.75,
			method:     evidence.MethodRegex,
			context:    []string{"area", "site"},
			parse: func(raw string) (evidence.Value, bool) {
				area, err := parseAmount(raw)
				if err != nil || area <= 0 {
					return evidence.Value{}, false
				}
				return evidence.Number(area), true
			},
		},
		&patternExtractor{
			name:       "boundary_setback_m",
			field:      FieldBoundarySetbackM,
			pattern:    setbackPattern,
			confidence: 0.70,
			method:     evidence.MethodRegex,
			context:    []string{"setback", "boundary", "distance to"},
			parse: func(raw string) (evidence.Value, bool) {
				dist, err := parseAmount(raw)
				if err != nil || dist < 0 {
					return evidence.Value{}, false
				}
				return evidence.Number(dist), true
			},
		},
	}
}

func parseAmount(raw string) (float64, error) {
	cleaned := strings.ReplaceAll(strings.TrimSpace(raw), ",", "")
	return strconv.ParseFloat(cleaned, 64)
}

var dateLayouts = []string{"02/01/2006", "2/1/2006", "02-01-2006", "02/01/06", "2/1/06"}

func parseDate(raw string) (evidence.Value, bool) {
	raw = strings.TrimSpace(raw)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return evidence.Date(t), true
		}
	}
	return evidence.Value{}, false
}
