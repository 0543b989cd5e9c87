package pipeline

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/JaimeStill/go-agents-orchestration/pkg/state"

	"github.com/planverify/verdict/pkg/evidence"
	"github.com/planverify/verdict/pkg/linker"
	"github.com/planverify/verdict/pkg/rules"
)

// EvaluateNode returns a state node that runs the rule catalog over the
// resolved fields. When a parent link was accepted, the parent's fields
// and prior findings feed targeted revalidation so unchanged rules retain
// their previous outcome.
func EvaluateNode(rt *Runtime) state.StateNode {
	return state.NewFunctionNode(func(ctx context.Context, s state.State) (state.State, error) {
		submissionID, err := stateValue[uuid.UUID](s, KeySubmission)
		if err != nil {
			return s, fmt.Errorf("evaluate: %w", err)
		}

		fields, err := stateValue[*evidence.FieldSet](s, KeyFields)
		if err != nil {
			return s, fmt.Errorf("evaluate: %w", err)
		}

		link, err := stateValue[linker.Result](s, KeyLink)
		if err != nil {
			return s, fmt.Errorf("evaluate: %w", err)
		}

		docs, err := rt.Documents.BySubmission(ctx, submissionID)
		if err != nil {
			return s, fmt.Errorf("evaluate: %w", err)
		}

		input := rules.Input{
			Fields:    fields,
			Documents: make([]rules.Document, 0, len(docs)),
		}

		for _, d := range docs {
			input.Documents = append(input.Documents, rules.Document{
				ID:         d.ID,
				Name:       d.Filename,
				Type:       d.Type,
				Confidence: d.TypeConfidence,
				Scanned:    d.Scanned,
			})
		}

		if link.Parent != nil {
			parentFields, err := rt.Submissions.Fields(ctx, link.Parent.SubmissionID)
			if err != nil {
				return s, fmt.Errorf("evaluate: parent fields: %w", err)
			}
			input.ParentFields = parentFields

			prior, err := rt.Findings.LatestFindings(ctx, link.Parent.SubmissionID)
			if err != nil {
				return s, fmt.Errorf("evaluate: prior findings: %w", err)
			}
			input.Prior = prior
		}

		engine := rules.NewEngine(rt.Logger)
		findings := engine.Evaluate(rt.Catalog, input)

		rt.Logger.InfoContext(
			ctx, "evaluate node complete",
			"rule_count", len(rt.Catalog.Rules),
			"finding_count", len(findings),
		)

		s = s.Set(KeyFindings, findings)
		return s, nil
	})
}
