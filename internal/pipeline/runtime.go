package pipeline

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/planverify/verdict/internal/applications"
	"github.com/planverify/verdict/internal/documents"
	"github.com/planverify/verdict/internal/submissions"
	"github.com/planverify/verdict/pkg/gate"
	"github.com/planverify/verdict/pkg/linker"
	"github.com/planverify/verdict/pkg/rules"

	gaconfig "github.com/JaimeStill/go-agents/pkg/config"
)

// PriorFindings loads the latest persisted findings for a submission.
// The checks system implements it; the pipeline depends on this narrow
// contract so targeted revalidation can read a parent's prior run.
type PriorFindings interface {
	LatestFindings(ctx context.Context, submissionID uuid.UUID) ([]rules.Finding, error)
}

// Runtime bundles the dependencies that pipeline nodes require.
// It is constructed by higher-level composition code from Infrastructure
// and Domain systems.
type Runtime struct {
	Agent        gaconfig.AgentConfig
	Policy       gate.Policy
	Linker       linker.Config
	Catalog      *rules.Catalog
	Applications applications.System
	Submissions  submissions.System
	Documents    documents.System
	Findings     PriorFindings
	Logger       *slog.Logger
}
