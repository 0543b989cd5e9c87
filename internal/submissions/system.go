package submissions

import (
	"context"

	"github.com/google/uuid"

	"github.com/planverify/verdict/pkg/evidence"
	"github.com/planverify/verdict/pkg/linker"
	"github.com/planverify/verdict/pkg/pagination"
)

// System defines the public contract for submission domain operations.
type System interface {
	Handler() *Handler

	List(
		ctx context.Context,
		page pagination.PageRequest,
		filters Filters,
	) (*pagination.PageResult[Submission], error)

	Find(ctx context.Context, id uuid.UUID) (*Submission, error)
	Create(ctx context.Context, cmd CreateCommand) (*Submission, error)

	// Fields loads the persisted extracted fields of a submission.
	Fields(ctx context.Context, id uuid.UUID) (*evidence.FieldSet, error)

	// SaveFields replaces the submission's extracted fields. Fails with
	// ErrImmutable once the submission is validated.
	SaveFields(ctx context.Context, id uuid.UUID, fields *evidence.FieldSet) error

	// AcceptLink records the accepted parent link. Links are append-only:
	// a second accept fails with ErrLinked.
	AcceptLink(ctx context.Context, id uuid.UUID, candidate linker.Candidate) error

	// SaveCandidates stores below-threshold link candidates for manual
	// review, replacing any previous set.
	SaveCandidates(ctx context.Context, id uuid.UUID, candidates []linker.Candidate) error

	// Candidates loads the stored link candidates for a submission.
	Candidates(ctx context.Context, id uuid.UUID) ([]linker.Candidate, error)

	// MarkProcessing transitions a received submission into processing.
	MarkProcessing(ctx context.Context, id uuid.UUID) error

	// MarkValidated finalizes a submission. Fails with ErrImmutable if
	// it is already validated.
	MarkValidated(ctx context.Context, id uuid.UUID) (*Submission, error)

	// MarkFailed records that a validation run did not complete.
	MarkFailed(ctx context.Context, id uuid.UUID) error
}
