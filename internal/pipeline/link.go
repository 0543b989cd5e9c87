package pipeline

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/JaimeStill/go-agents-orchestration/pkg/state"

	"github.com/planverify/verdict/pkg/evidence"
	"github.com/planverify/verdict/pkg/linker"
)

// LinkNode returns a state node that discovers the submission's parent
// among prior applications. The prior index only contains applications
// with at least one validated submission, and the submission's own
// application is excluded before the strategies run.
func LinkNode(rt *Runtime) state.StateNode {
	return state.NewFunctionNode(func(ctx context.Context, s state.State) (state.State, error) {
		applicationID, err := stateValue[uuid.UUID](s, KeyApplication)
		if err != nil {
			return s, fmt.Errorf("link: %w", err)
		}

		fields, err := stateValue[*evidence.FieldSet](s, KeyFields)
		if err != nil {
			return s, fmt.Errorf("link: %w", err)
		}

		priors, err := rt.Applications.Priors(ctx, applicationID)
		if err != nil {
			return s, fmt.Errorf("link: %w", err)
		}

		l := linker.New(rt.Linker, rt.Logger)
		result := l.Discover(fields, applicationID, priors)

		rt.Logger.InfoContext(
			ctx, "link node complete",
			"prior_count", len(priors),
			"linked", result.Parent != nil,
			"candidate_count", len(result.Candidates),
		)

		s = s.Set(KeyLink, result)
		return s, nil
	})
}
