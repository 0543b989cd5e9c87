package gate

import "time"

// Policy controls when the model fallback is invoked and how its results
// reconcile against deterministic extraction. Thresholds are defaults
// taken from operational tuning and are expected to be overridden from
// configuration.
type Policy struct {
	// DefaultThreshold is the confidence below which a deterministic
	// result is not trusted on its own.
	DefaultThreshold float64

	// Thresholds overrides the default per field name.
	Thresholds map[string]float64

	// Ambiguous marks fields whose deterministic extraction is
	// inherently unreliable (free text); they are escalated even when
	// the deterministic confidence clears the threshold.
	Ambiguous map[string]bool

	// Authoritative marks fields where deterministic sources win ties:
	// the model's self-reported confidence is capped at the
	// deterministic confidence for the same field.
	Authoritative map[string]bool

	// Timeout bounds each model call independently, so one slow field
	// cannot stall the mapping pass.
	Timeout time.Duration

	// DegradeFactor scales the deterministic confidence down when the
	// fallback fails, signalling the unresolved escalation downstream.
	DegradeFactor float64

	// MaxConcurrent limits in-flight model calls.
	MaxConcurrent int
}

// DefaultPolicy returns the standard gate policy.
func DefaultPolicy() Policy {
	return Policy{
		DefaultThreshold: 0.75,
		Thresholds: map[string]float64{
			"site_address":          0.80,
			"application_reference": 0.85,
		},
		Ambiguous: map[string]bool{
			"proposal_description": true,
		},
		Authoritative: map[string]bool{
			"application_reference": true,
			"site_postcode":         true,
		},
		Timeout:       30 * time.Second,
		DegradeFactor: 0.8,
		MaxConcurrent: 4,
	}
}

func (p Policy) threshold(field string) float64 {
	if t, ok := p.Thresholds[field]; ok {
		return t
	}
	return p.DefaultThreshold
}
