// Package linker determines whether a new submission modifies a prior
// planning case. Three strategies run in strict priority order —
// explicit reference, address similarity, postcode — and stop at the
// first acceptance, so ties between strategies cannot occur. Links below
// the auto-link threshold are surfaced as candidates for manual
// confirmation, never persisted.
package linker

import (
	"log/slog"
	"regexp"

	"github.com/google/uuid"

	"github.com/planverify/verdict/pkg/evidence"
)

// Reason classifies why a parent link was proposed.
type Reason string

// Link reasons.
const (
	ReasonReference Reason = "reference-match"
	ReasonAddress   Reason = "address-match"
	ReasonPostcode  Reason = "postcode-match"
)

// Prior is one existing application in the shared index. Only
// applications with at least one validated submission appear here, so a
// submission is never linked to a case that is mid-creation.
type Prior struct {
	ApplicationID uuid.UUID
	SubmissionID  uuid.UUID
	Reference     string
	SiteAddress   string
	Postcode      string
}

// Candidate is a confidence-scored potential parent.
type Candidate struct {
	ApplicationID uuid.UUID `json:"application_id"`
	SubmissionID  uuid.UUID `json:"submission_id"`
	Confidence    float64   `json:"confidence"`
	Reason        Reason    `json:"reason"`
}

// Result is the outcome of parent discovery. Parent is set only when a
// strategy accepted at or above the auto-link threshold; Candidates
// lists everything at or above the candidate floor for manual choice.
type Result struct {
	Parent     *Candidate  `json:"parent,omitempty"`
	Candidates []Candidate `json:"candidates,omitempty"`
}

// Config holds the linker's confidence thresholds.
type Config struct {
	// AutoLink is the minimum confidence to persist a parent link.
	AutoLink float64 `toml:"auto_link"`
	// AddressAccept is the minimum address similarity for the address
	// strategy to accept.
	AddressAccept float64 `toml:"address_accept"`
	// CandidateFloor is the minimum confidence for a manual candidate.
	CandidateFloor float64 `toml:"candidate_floor"`
}

// DefaultConfig returns the standard linker thresholds.
func DefaultConfig() Config {
	return Config{
		AutoLink:       0.85,
		AddressAccept:  0.90,
		CandidateFloor: 0.70,
	}
}

const (
	referenceConfidence = 0.95
	postcodeConfidence  = 0.70
)

var referencePattern = regexp.MustCompile(`\b(\d{2}/\d{4,5}/[A-Z]{1,5})\b`)

// Linker discovers parent submissions against a prior-application index.
type Linker struct {
	cfg    Config
	logger *slog.Logger
}

// New creates a Linker with the given thresholds.
func New(cfg Config, logger *slog.Logger) *Linker {
	return &Linker{
		cfg:    cfg,
		logger: logger.With("system", "linker"),
	}
}

// Discover evaluates the linking strategies against the prior index,
// excluding the submission's own application.
func (l *Linker) Discover(fields *evidence.FieldSet, excludeApp uuid.UUID, priors []Prior) Result {
	scoped := make([]Prior, 0, len(priors))
	for _, p := range priors {
		if p.ApplicationID != excludeApp {
			scoped = append(scoped, p)
		}
	}

	if result, ok := l.byReference(fields, scoped); ok {
		return result
	}
	if result, ok := l.byAddress(fields, scoped); ok {
		return result
	}
	return l.byPostcode(fields, scoped)
}

// byReference matches planning-reference patterns in the proposal
// description against known application references.
func (l *Linker) byReference(fields *evidence.FieldSet, priors []Prior) (Result, bool) {
	proposal, ok := fields.Get("proposal_description")
	if !ok {
		return Result{}, false
	}

	for _, ref := range referencePattern.FindAllString(proposal.Value.Str, -1) {
		for _, p := range priors {
			if p.Reference != ref {
				continue
			}
			c := Candidate{
				ApplicationID: p.ApplicationID,
				SubmissionID:  p.SubmissionID,
				Confidence:    referenceConfidence,
				Reason:        ReasonReference,
			}
			l.logger.Info("parent matched by reference", "reference", ref, "application_id", p.ApplicationID)
			return l.accept(c), true
		}
	}

	return Result{}, false
}

// byAddress scores fuzzy similarity between the submission's site
// address and every prior application's address. The best match is
// accepted when it clears the acceptance threshold; otherwise everything
// above the candidate floor is surfaced for manual choice.
func (l *Linker) byAddress(fields *evidence.FieldSet, priors []Prior) (Result, bool) {
	address, ok := fields.Get("site_address")
	if !ok || address.Value.Str == "" {
		return Result{}, false
	}

	var candidates []Candidate
	for _, p := range priors {
		sim := Similarity(address.Value.Str, p.SiteAddress)
		if sim < l.cfg.CandidateFloor {
			continue
		}
		candidates = append(candidates, Candidate{
			ApplicationID: p.ApplicationID,
			SubmissionID:  p.SubmissionID,
			Confidence:    sim,
			Reason:        ReasonAddress,
		})
	}
	if len(candidates) == 0 {
		return Result{}, false
	}

	best := candidates[0]
	for _, c := range candidates[1:] {
		if c.Confidence > best.Confidence {
			best = c
		}
	}

	if best.Confidence >= l.cfg.AddressAccept {
		l.logger.Info(
			"parent matched by address",
			"application_id", best.ApplicationID,
			"similarity", best.Confidence,
		)
		return l.accept(best), true
	}

	return Result{Candidates: candidates}, true
}

// byPostcode accepts only when exactly one prior application shares the
// normalized postcode; multiple matches are ambiguous and all surface as
// candidates with no automatic link.
func (l *Linker) byPostcode(fields *evidence.FieldSet, priors []Prior) Result {
	postcode := l.submissionPostcode(fields)
	if postcode == "" {
		return Result{}
	}

	var matches []Candidate
	for _, p := range priors {
		if NormalizePostcode(p.Postcode) != postcode {
			continue
		}
		matches = append(matches, Candidate{
			ApplicationID: p.ApplicationID,
			SubmissionID:  p.SubmissionID,
			Confidence:    postcodeConfidence,
			Reason:        ReasonPostcode,
		})
	}

	switch len(matches) {
	case 0:
		return Result{}
	case 1:
		return l.accept(matches[0])
	default:
		l.logger.Info("postcode match ambiguous", "postcode", postcode, "count", len(matches))
		return Result{Candidates: matches}
	}
}

func (l *Linker) submissionPostcode(fields *evidence.FieldSet) string {
	if f, ok := fields.Get("site_postcode"); ok {
		if pc := NormalizePostcode(f.Value.Str); pc != "" {
			return pc
		}
	}
	if f, ok := fields.Get("site_address"); ok {
		return NormalizePostcode(f.Value.Str)
	}
	return ""
}

// accept applies the auto-link gate: a strategy acceptance below the
// threshold becomes a manual candidate instead of a persisted link.
func (l *Linker) accept(c Candidate) Result {
	if c.Confidence >= l.cfg.AutoLink {
		return Result{Parent: &c, Candidates: []Candidate{c}}
	}
	return Result{Candidates: []Candidate{c}}
}
