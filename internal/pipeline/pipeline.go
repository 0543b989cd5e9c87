// Package pipeline implements the submission validation workflow: field
// extraction across documents, the confidence-gated model fallback, parent
// discovery against prior applications, and rule catalog evaluation. The
// stages run as a state graph so the gate is skipped entirely when the
// deterministic extraction already cleared every threshold.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	gaoconfig "github.com/JaimeStill/go-agents-orchestration/pkg/config"
	"github.com/JaimeStill/go-agents-orchestration/pkg/state"

	"github.com/planverify/verdict/pkg/evidence"
	"github.com/planverify/verdict/pkg/extract"
	"github.com/planverify/verdict/pkg/linker"
	"github.com/planverify/verdict/pkg/rules"
)

// State keys used by the pipeline graph.
const (
	KeySubmission  = "submission_id"
	KeyApplication = "application_id"
	KeyInputs      = "inputs"
	KeyFields      = "fields"
	KeyPending     = "pending"
	KeyLink        = "link"
	KeyFindings    = "findings"
)

// DocumentInput is the per-document payload of a validation request: the
// layout blocks the OCR collaborator produced for one document, tagged
// with the document it belongs to and its planning document type.
type DocumentInput struct {
	DocumentID uuid.UUID              `json:"document_id"`
	Type       extract.DocumentType   `json:"type"`
	Blocks     []evidence.LayoutBlock `json:"blocks"`
}

// Result is the outcome of one validation run.
type Result struct {
	SubmissionID uuid.UUID          `json:"submission_id"`
	Fields       *evidence.FieldSet `json:"fields"`
	Link         linker.Result      `json:"link"`
	Findings     []rules.Finding    `json:"findings"`
	CompletedAt  time.Time          `json:"completed_at"`
}

// Execute runs the validation pipeline for a single submission. It builds
// the state graph (extract → gate? → link → evaluate), executes it, and
// extracts the Result from the final state. Execute does not persist
// anything; the checks system owns persistence of the run.
func Execute(ctx context.Context, rt *Runtime, submissionID uuid.UUID, inputs []DocumentInput) (*Result, error) {
	sub, err := rt.Submissions.Find(ctx, submissionID)
	if err != nil {
		return nil, fmt.Errorf("load submission: %w", err)
	}

	graph, err := buildGraph(rt)
	if err != nil {
		return nil, fmt.Errorf("build graph: %w", err)
	}

	initialState := state.New(nil)
	initialState = initialState.Set(KeySubmission, submissionID)
	initialState = initialState.Set(KeyApplication, sub.ApplicationID)
	initialState = initialState.Set(KeyInputs, inputs)

	finalState, err := graph.Execute(ctx, initialState)
	if err != nil {
		return nil, fmt.Errorf("execute graph: %w", err)
	}

	return extractResult(finalState)
}

func buildGraph(rt *Runtime) (state.StateGraph, error) {
	cfg := gaoconfig.DefaultGraphConfig("verdict-validate")
	cfg.Observer = "noop"

	graph, err := state.NewGraph(cfg)
	if err != nil {
		return nil, err
	}

	if err := graph.AddNode("extract", ExtractNode(rt)); err != nil {
		return nil, err
	}

	if err := graph.AddNode("gate", GateNode(rt)); err != nil {
		return nil, err
	}

	if err := graph.AddNode("link", LinkNode(rt)); err != nil {
		return nil, err
	}

	if err := graph.AddNode("evaluate", EvaluateNode(rt)); err != nil {
		return nil, err
	}

	// extract → gate (when any owned field needs the model fallback)
	if err := graph.AddEdge("extract", "gate", needsGate); err != nil {
		return nil, err
	}

	// extract → link (when deterministic extraction settled everything)
	if err := graph.AddEdge("extract", "link", state.Not(needsGate)); err != nil {
		return nil, err
	}

	// gate → link (unconditional)
	if err := graph.AddEdge("gate", "link", nil); err != nil {
		return nil, err
	}

	// link → evaluate (unconditional)
	if err := graph.AddEdge("link", "evaluate", nil); err != nil {
		return nil, err
	}

	if err := graph.SetEntryPoint("extract"); err != nil {
		return nil, err
	}

	if err := graph.SetExitPoint("evaluate"); err != nil {
		return nil, err
	}

	return graph, nil
}

func extractResult(s state.State) (*Result, error) {
	submissionID, err := stateValue[uuid.UUID](s, KeySubmission)
	if err != nil {
		return nil, err
	}

	fields, err := stateValue[*evidence.FieldSet](s, KeyFields)
	if err != nil {
		return nil, err
	}

	link, err := stateValue[linker.Result](s, KeyLink)
	if err != nil {
		return nil, err
	}

	findings, err := stateValue[[]rules.Finding](s, KeyFindings)
	if err != nil {
		return nil, err
	}

	return &Result{
		SubmissionID: submissionID,
		Fields:       fields,
		Link:         link,
		Findings:     findings,
		CompletedAt:  time.Now(),
	}, nil
}

func stateValue[T any](s state.State, key string) (T, error) {
	var zero T

	val, ok := s.Get(key)
	if !ok {
		return zero, fmt.Errorf("missing %s in state", key)
	}

	typed, ok := val.(T)
	if !ok {
		return zero, fmt.Errorf("%s has unexpected type %T", key, val)
	}

	return typed, nil
}

func needsGate(s state.State) bool {
	val, ok := s.Get(KeyPending)
	if !ok {
		return false
	}

	pending, ok := val.(int)
	if !ok {
		return false
	}

	return pending > 0
}
