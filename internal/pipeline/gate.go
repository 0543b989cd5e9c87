package pipeline

import (
	"context"
	"fmt"

	"github.com/JaimeStill/go-agents/pkg/agent"

	"github.com/JaimeStill/go-agents-orchestration/pkg/state"

	"github.com/planverify/verdict/pkg/evidence"
	"github.com/planverify/verdict/pkg/extract"
	"github.com/planverify/verdict/pkg/gate"
)

// agentModel adapts a chat agent to the gate's Model contract.
type agentModel struct {
	agent agent.Agent
}

func (m agentModel) Extract(ctx context.Context, prompt string) (string, error) {
	resp, err := m.agent.Chat(ctx, prompt)
	if err != nil {
		return "", err
	}
	return resp.Content(), nil
}

// GateNode returns a state node that reconciles low-confidence and absent
// fields against the language model, one document at a time so each
// escalation carries only that document's blocks as context. The gate
// itself decides per field whether to escalate, degrade, or keep the
// deterministic result.
func GateNode(rt *Runtime) state.StateNode {
	return state.NewFunctionNode(func(ctx context.Context, s state.State) (state.State, error) {
		inputs, err := stateValue[[]DocumentInput](s, KeyInputs)
		if err != nil {
			return s, fmt.Errorf("gate: %w", err)
		}

		fields, err := stateValue[*evidence.FieldSet](s, KeyFields)
		if err != nil {
			return s, fmt.Errorf("gate: %w", err)
		}

		a, err := agent.New(&rt.Agent)
		if err != nil {
			return s, fmt.Errorf("gate: create agent: %w", err)
		}

		g := gate.New(agentModel{agent: a}, rt.Policy, rt.Logger)
		registry := extract.DefaultRegistry()

		for _, input := range inputs {
			owned := registry.Owned(input.Type)
			if len(owned) == 0 {
				continue
			}
			fields = g.Resolve(ctx, fields, input.Blocks, owned, string(input.Type))
		}

		rt.Logger.InfoContext(
			ctx, "gate node complete",
			"field_count", fields.Len(),
		)

		s = s.Set(KeyFields, fields)
		return s, nil
	})
}
