package checks

import (
	"context"

	"github.com/google/uuid"

	"github.com/planverify/verdict/internal/pipeline"
	"github.com/planverify/verdict/pkg/pagination"
	"github.com/planverify/verdict/pkg/rules"
)

// System defines the public contract for validation check operations.
type System interface {
	Handler() *Handler

	List(
		ctx context.Context,
		page pagination.PageRequest,
		filters Filters,
	) (*pagination.PageResult[Check], error)

	Find(ctx context.Context, id uuid.UUID) (*Check, error)

	// BySubmission returns the checks of the submission's most recent
	// run in catalog order.
	BySubmission(ctx context.Context, submissionID uuid.UUID) ([]Check, error)

	// LatestFindings returns the most recent run's findings, used as
	// prior outcomes during targeted revalidation of child submissions.
	LatestFindings(ctx context.Context, submissionID uuid.UUID) ([]rules.Finding, error)

	// Validate executes the validation pipeline for a submission and
	// persists the full outcome: extracted fields, parent link or
	// candidates, a new check run, and the validated status.
	Validate(ctx context.Context, submissionID uuid.UUID, cmd ValidateCommand) (*pipeline.Result, error)

	// Review records an officer decision against a check.
	Review(ctx context.Context, id uuid.UUID, cmd ReviewCommand) (*ReviewDecision, error)

	// Decisions lists the review decisions recorded for a check.
	Decisions(ctx context.Context, id uuid.UUID) ([]ReviewDecision, error)
}
