// Package gate decides, per field, whether a deterministic extraction is
// trustworthy enough to keep or whether the costlier model fallback
// should be invoked and reconciled. Every failure mode of the fallback
// degrades to a kept deterministic value; the gate never aborts a
// mapping pass.
package gate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/planverify/verdict/pkg/evidence"
	"github.com/planverify/verdict/pkg/formatting"
)

// Model is the injected language-model collaborator. Calls may take
// arbitrary time, fail, or return malformed output; the gate handles
// all three.
type Model interface {
	Extract(ctx context.Context, prompt string) (string, error)
}

// Sentinel errors for fallback failure modes. These never propagate out
// of Resolve; they classify degradations for logging.
var (
	ErrTimeout   = errors.New("model call timed out")
	ErrMalformed = errors.New("model output unparseable")
)

type modelResult struct {
	Value      string  `json:"value"`
	Confidence float64 `json:"confidence"`
	Page       int     `json:"page"`
	BlockID    string  `json:"block_id"`
}

// Gate applies the fallback policy to a mapped FieldSet.
type Gate struct {
	model  Model
	policy Policy
	logger *slog.Logger
}

// New creates a Gate over the injected model.
func New(model Model, policy Policy, logger *slog.Logger) *Gate {
	return &Gate{
		model:  model,
		policy: policy,
		logger: logger.With("system", "gate"),
	}
}

// Resolve returns a new FieldSet where every owned field has either been
// accepted deterministically or reconciled against a model extraction.
// The input set is not mutated. Resolve is idempotent: fields already
// above threshold, and fields already resolved by the model, are
// short-circuited without re-invocation.
func (g *Gate) Resolve(
	ctx context.Context,
	fields *evidence.FieldSet,
	blocks []evidence.LayoutBlock,
	owned []string,
	docType string,
) *evidence.FieldSet {
	resolved := fields.Clone()

	escalate := g.Pending(resolved, owned)
	if len(escalate) == 0 {
		return resolved
	}

	results := make([]*evidence.Field, len(escalate))
	blockText := blockContext(blocks)

	eg, egctx := errgroup.WithContext(ctx)
	eg.SetLimit(max(g.policy.MaxConcurrent, 1))

	for i, name := range escalate {
		eg.Go(func() error {
			results[i] = g.resolveField(egctx, name, docType, blockText, blocks, resolved)
			return nil
		})
	}
	eg.Wait()

	// Apply in the escalation order (owned order is stable) so the
	// result does not depend on goroutine completion order.
	for i, name := range escalate {
		field := results[i]
		if field == nil {
			g.degrade(resolved, name)
			continue
		}
		resolved.Add(*field)
	}

	return resolved
}

// Pending lists the owned fields Resolve would escalate: absent fields,
// ambiguous fields, and fields below their confidence threshold, unless
// a prior model extraction already settled them.
func (g *Gate) Pending(fields *evidence.FieldSet, owned []string) []string {
	var pending []string
	for _, name := range owned {
		if g.needsFallback(fields, name) {
			pending = append(pending, name)
		}
	}
	return pending
}

func (g *Gate) needsFallback(fields *evidence.FieldSet, name string) bool {
	det, ok := fields.Get(name)
	if !ok {
		return true
	}
	if det.Extractor == evidence.ExtractorLLM {
		return false
	}
	if g.policy.Ambiguous[name] {
		return true
	}
	return det.Confidence < g.policy.threshold(name)
}

// resolveField invokes the model for one field with an independent
// timeout. Returns nil on any failure; the caller degrades instead.
func (g *Gate) resolveField(
	ctx context.Context,
	name string,
	docType string,
	blockText string,
	blocks []evidence.LayoutBlock,
	fields *evidence.FieldSet,
) *evidence.Field {
	timeout := g.policy.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	prompt := buildPrompt(name, docType, blockText)

	raw, err := g.model.Extract(callCtx, prompt)
	if err != nil {
		reason := err
		if callCtx.Err() != nil {
			reason = fmt.Errorf("%w: %w", ErrTimeout, err)
		}
		g.logger.Warn("model extraction failed", "field", name, "error", reason)
		return nil
	}

	parsed, err := formatting.Parse[modelResult](raw)
	if err != nil {
		g.logger.Warn("model extraction failed", "field", name, "error", fmt.Errorf("%w: %w", ErrMalformed, err))
		return nil
	}
	if parsed.Value == "" {
		return nil
	}

	confidence := clamp(parsed.Confidence)
	det, hasDet := fields.Get(name)
	if hasDet && g.policy.Authoritative[name] && confidence > det.Confidence {
		confidence = det.Confidence
	}

	value := coerceValue(parsed.Value, det, hasDet)

	return &evidence.Field{
		Name:         name,
		Value:        value,
		Confidence:   confidence,
		Evidence:     []evidence.Evidence{modelEvidence(parsed, confidence, blocks)},
		Extractor:    evidence.ExtractorLLM,
		DocumentType: docType,
	}
}

// degrade keeps the deterministic value at reduced confidence after a
// failed fallback; an absent field stays absent.
func (g *Gate) degrade(fields *evidence.FieldSet, name string) {
	det, ok := fields.Get(name)
	if !ok {
		return
	}
	det.Confidence = clamp(det.Confidence * g.policy.DegradeFactor)
	fields.Set(det)
}

// coerceValue converts the model's string payload into the kind the
// deterministic candidate established, falling back to a string value.
func coerceValue(raw string, det evidence.Field, hasDet bool) evidence.Value {
	raw = strings.TrimSpace(raw)
	if !hasDet {
		return evidence.String(raw)
	}

	switch det.Value.Kind {
	case evidence.KindNumber:
		if n, err := strconv.ParseFloat(strings.ReplaceAll(raw, ",", ""), 64); err == nil {
			return evidence.Number(n)
		}
	case evidence.KindBool:
		if b, err := strconv.ParseBool(raw); err == nil {
			return evidence.Bool(b)
		}
	}
	return evidence.String(raw)
}

func modelEvidence(r modelResult, confidence float64, blocks []evidence.LayoutBlock) evidence.Evidence {
	ev := evidence.Evidence{
		Page:       r.Page,
		Snippet:    r.Value,
		Confidence: confidence,
		Method:     evidence.MethodLLM,
		BlockID:    r.BlockID,
	}
	for _, b := range blocks {
		if b.ID == r.BlockID {
			ev.Page = b.Page
			ev.Bounds = b.Bounds
			break
		}
	}
	return ev
}

func buildPrompt(name, docType, blockText string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Extract the value of %q from this %s.\n", name, docType)
	sb.WriteString("Respond with JSON: {\"value\": string, \"confidence\": number 0-1, \"page\": number, \"block_id\": string}.\n")
	sb.WriteString("Use an empty value when the field is not present.\n\n")
	sb.WriteString(blockText)
	return sb.String()
}

func blockContext(blocks []evidence.LayoutBlock) string {
	var sb strings.Builder
	for _, b := range blocks {
		fmt.Fprintf(&sb, "[page %d, block %s] %s\n", b.Page, b.ID, b.Text)
	}
	return sb.String()
}

func clamp(v float64) float64 {
	return max(min(v, 1.0), 0.0)
}
