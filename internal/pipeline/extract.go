package pipeline

import (
	"context"
	"fmt"

	"github.com/JaimeStill/go-agents-orchestration/pkg/state"

	"github.com/planverify/verdict/pkg/evidence"
	"github.com/planverify/verdict/pkg/extract"
	"github.com/planverify/verdict/pkg/gate"
)

// ExtractNode returns a state node that runs deterministic field mapping
// over every document input and merges the results into one field set.
// Document-type ownership keeps the merge free of cross-document
// contamination; within a field, highest confidence wins. The node also
// counts the fields the gate would escalate so the graph can skip the
// gate stage when nothing needs the model.
func ExtractNode(rt *Runtime) state.StateNode {
	return state.NewFunctionNode(func(ctx context.Context, s state.State) (state.State, error) {
		inputs, err := stateValue[[]DocumentInput](s, KeyInputs)
		if err != nil {
			return s, fmt.Errorf("extract: %w", err)
		}

		registry := extract.DefaultRegistry()
		mapper := extract.NewMapper(registry, rt.Logger)

		merged := evidence.NewFieldSet()
		for _, input := range inputs {
			mapped := mapper.MapFields(input.Blocks, input.Type)
			for _, f := range mapped.Fields() {
				merged.Add(f)
			}
		}

		pending := 0
		probe := gate.New(nil, rt.Policy, rt.Logger)
		for _, input := range inputs {
			pending += len(probe.Pending(merged, registry.Owned(input.Type)))
		}

		rt.Logger.InfoContext(
			ctx, "extract node complete",
			"document_count", len(inputs),
			"field_count", merged.Len(),
			"pending", pending,
		)

		s = s.Set(KeyFields, merged)
		s = s.Set(KeyPending, pending)
		return s, nil
	})
}
