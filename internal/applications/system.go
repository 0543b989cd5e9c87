package applications

import (
	"context"

	"github.com/google/uuid"

	"github.com/planverify/verdict/pkg/linker"
	"github.com/planverify/verdict/pkg/pagination"
)

// System defines the public contract for application registry operations.
type System interface {
	Handler() *Handler

	List(
		ctx context.Context,
		page pagination.PageRequest,
		filters Filters,
	) (*pagination.PageResult[Application], error)

	Find(ctx context.Context, id uuid.UUID) (*Application, error)
	FindByReference(ctx context.Context, reference string) (*Application, error)
	Create(ctx context.Context, cmd CreateCommand) (*Application, error)
	Delete(ctx context.Context, id uuid.UUID) error

	// Priors returns the parent-discovery index: one entry per
	// application that has at least one validated submission, built
	// from its most recent one. The application identified by exclude
	// is omitted so a submission never links to its own case.
	Priors(ctx context.Context, exclude uuid.UUID) ([]linker.Prior, error)

	// RefreshCache overwrites the application's cached site fields
	// from a validated submission's extraction.
	RefreshCache(ctx context.Context, id uuid.UUID, cmd CacheCommand) error
}
