package checks

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/planverify/verdict/internal/applications"
	"github.com/planverify/verdict/internal/documents"
	"github.com/planverify/verdict/internal/pipeline"
	"github.com/planverify/verdict/internal/submissions"
	"github.com/planverify/verdict/pkg/evidence"
	"github.com/planverify/verdict/pkg/extract"
	"github.com/planverify/verdict/pkg/gate"
	"github.com/planverify/verdict/pkg/linker"
	"github.com/planverify/verdict/pkg/pagination"
	"github.com/planverify/verdict/pkg/query"
	"github.com/planverify/verdict/pkg/repository"
	"github.com/planverify/verdict/pkg/rules"

	gaconfig "github.com/JaimeStill/go-agents/pkg/config"
)

type repo struct {
	db         *sql.DB
	rt         *pipeline.Runtime
	subs       submissions.System
	apps       applications.System
	logger     *slog.Logger
	pagination pagination.Config
}

// New creates a check repository implementing the System interface.
// It internally constructs the pipeline runtime from the provided
// dependencies, registering itself as the prior-findings source.
func New(
	db *sql.DB,
	agent gaconfig.AgentConfig,
	policy gate.Policy,
	linkCfg linker.Config,
	catalog *rules.Catalog,
	logger *slog.Logger,
	pagination pagination.Config,
	apps applications.System,
	subs submissions.System,
	docs documents.System,
) System {
	r := &repo{
		db:         db,
		subs:       subs,
		apps:       apps,
		logger:     logger.With("system", "checks"),
		pagination: pagination,
	}
	r.rt = &pipeline.Runtime{
		Agent:        agent,
		Policy:       policy,
		Linker:       linkCfg,
		Catalog:      catalog,
		Applications: apps,
		Submissions:  subs,
		Documents:    docs,
		Findings:     r,
		Logger:       logger.With("pipeline", "validate"),
	}
	return r
}

func (r *repo) Handler() *Handler {
	return NewHandler(r, r.logger, r.pagination)
}

func (r *repo) List(
	ctx context.Context,
	page pagination.PageRequest,
	filters Filters,
) (*pagination.PageResult[Check], error) {
	page.Normalize(r.pagination)

	qb := query.
		NewBuilder(projection, defaultSort).
		WhereSearch(page.Search, "RuleID", "Message")

	filters.Apply(qb)

	countSQL, countArgs := qb.BuildCount()
	var total int
	if err := r.db.QueryRowContext(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, fmt.Errorf("count checks: %w", err)
	}

	pageSQL, pageArgs := qb.BuildPage(page.Page, page.PageSize)
	items, err := repository.QueryMany(ctx, r.db, pageSQL, pageArgs, scanCheck)
	if err != nil {
		return nil, fmt.Errorf("query checks: %w", err)
	}

	result := pagination.NewPageResult(items, total, page.Page, page.PageSize)
	return &result, nil
}

func (r *repo) Find(ctx context.Context, id uuid.UUID) (*Check, error) {
	q, args := query.NewBuilder(projection).BuildSingle("ID", id)

	c, err := repository.QueryOne(ctx, r.db, q, args, scanCheck)
	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}
	return &c, nil
}

func (r *repo) BySubmission(ctx context.Context, submissionID uuid.UUID) ([]Check, error) {
	q := `
		SELECT id, submission_id, run_id, position, rule_id, status,
			   severity, message, evidence, no_evidence, documents, created_at
		FROM validation_checks
		WHERE submission_id = $1
		  AND run_id = (
			SELECT run_id FROM validation_checks
			WHERE submission_id = $1
			ORDER BY created_at DESC
			LIMIT 1
		  )
		ORDER BY position`

	items, err := repository.QueryMany(ctx, r.db, q, []any{submissionID}, scanCheck)
	if err != nil {
		return nil, fmt.Errorf("query submission checks: %w", err)
	}
	return items, nil
}

func (r *repo) LatestFindings(ctx context.Context, submissionID uuid.UUID) ([]rules.Finding, error) {
	checks, err := r.BySubmission(ctx, submissionID)
	if err != nil {
		return nil, err
	}

	findings := make([]rules.Finding, 0, len(checks))
	for _, c := range checks {
		findings = append(findings, toFinding(c))
	}
	return findings, nil
}

// Validate executes the pipeline and persists the complete run outcome.
// Failures before persistence move the submission to failed; a validated
// submission rejects the run up front.
func (r *repo) Validate(ctx context.Context, submissionID uuid.UUID, cmd ValidateCommand) (*pipeline.Result, error) {
	if len(cmd.Documents) == 0 {
		return nil, ErrNoDocuments
	}

	if err := r.subs.MarkProcessing(ctx, submissionID); err != nil {
		return nil, fmt.Errorf("start validation %s: %w", submissionID, err)
	}

	result, err := pipeline.Execute(ctx, r.rt, submissionID, cmd.Documents)
	if err != nil {
		if failErr := r.subs.MarkFailed(ctx, submissionID); failErr != nil {
			r.logger.Warn("mark failed after pipeline error",
				"submission_id", submissionID,
				"error", failErr,
			)
		}
		return nil, fmt.Errorf("validate submission %s: %w", submissionID, err)
	}

	if err := r.persist(ctx, submissionID, result); err != nil {
		if failErr := r.subs.MarkFailed(ctx, submissionID); failErr != nil {
			r.logger.Warn("mark failed after persistence error",
				"submission_id", submissionID,
				"error", failErr,
			)
		}
		return nil, err
	}

	r.logger.Info("submission validated",
		"submission_id", submissionID,
		"field_count", result.Fields.Len(),
		"finding_count", len(result.Findings),
		"linked", result.Link.Parent != nil,
	)
	return result, nil
}

func (r *repo) persist(ctx context.Context, submissionID uuid.UUID, result *pipeline.Result) error {
	if err := r.subs.SaveFields(ctx, submissionID, result.Fields); err != nil {
		return fmt.Errorf("save fields: %w", err)
	}

	if result.Link.Parent != nil {
		err := r.subs.AcceptLink(ctx, submissionID, *result.Link.Parent)
		if err != nil && !errors.Is(err, submissions.ErrLinked) {
			return fmt.Errorf("accept link: %w", err)
		}
	}

	if err := r.subs.SaveCandidates(ctx, submissionID, result.Link.Candidates); err != nil {
		return fmt.Errorf("save candidates: %w", err)
	}

	if err := r.saveRun(ctx, submissionID, result.Findings); err != nil {
		return fmt.Errorf("save check run: %w", err)
	}

	sub, err := r.subs.MarkValidated(ctx, submissionID)
	if err != nil {
		return fmt.Errorf("mark validated: %w", err)
	}

	r.refreshCache(ctx, sub.ApplicationID, result.Fields)
	return nil
}

// saveRun appends one run of checks under a fresh run id, preserving
// catalog order through the position column.
func (r *repo) saveRun(ctx context.Context, submissionID uuid.UUID, findings []rules.Finding) error {
	runID := uuid.New()

	insertQ := `
		INSERT INTO validation_checks(
			submission_id, run_id, position, rule_id, status,
			severity, message, evidence, no_evidence, documents
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	_, err := repository.WithTx(ctx, r.db, func(tx *sql.Tx) (struct{}, error) {
		for i, f := range findings {
			evidenceJSON, err := json.Marshal(f.Evidence)
			if err != nil {
				return struct{}{}, fmt.Errorf("marshal evidence %s: %w", f.RuleID, err)
			}

			documentsJSON, err := json.Marshal(f.Documents)
			if err != nil {
				return struct{}{}, fmt.Errorf("marshal documents %s: %w", f.RuleID, err)
			}

			if _, err := tx.ExecContext(ctx, insertQ,
				submissionID, runID, i, f.RuleID, f.Status,
				f.Severity, f.Message, evidenceJSON, f.NoEvidence, documentsJSON,
			); err != nil {
				return struct{}{}, fmt.Errorf("insert check %s: %w", f.RuleID, err)
			}
		}
		return struct{}{}, nil
	})

	if err != nil {
		return err
	}

	r.logger.Info("check run saved",
		"submission_id", submissionID,
		"run_id", runID,
		"check_count", len(findings),
	)
	return nil
}

// refreshCache pushes high-confidence site fields onto the application
// record. Cache failures are logged, not fatal: the read path falls back
// to the submission's fields regardless.
func (r *repo) refreshCache(ctx context.Context, applicationID uuid.UUID, fields *evidence.FieldSet) {
	var cmd applications.CacheCommand

	assign := func(name string, target **string) {
		f, ok := fields.Get(name)
		if !ok || f.Confidence < r.rt.Policy.DefaultThreshold {
			return
		}
		v := f.Value.Display()
		*target = &v
	}

	assign(extract.FieldSiteAddress, &cmd.SiteAddress)
	assign(extract.FieldSitePostcode, &cmd.Postcode)
	assign(extract.FieldProposal, &cmd.Proposal)

	if cmd.SiteAddress == nil && cmd.Postcode == nil && cmd.Proposal == nil {
		return
	}

	if err := r.apps.RefreshCache(ctx, applicationID, cmd); err != nil {
		r.logger.Warn("application cache refresh failed",
			"application_id", applicationID,
			"error", err,
		)
	}
}

func (r *repo) Review(ctx context.Context, id uuid.UUID, cmd ReviewCommand) (*ReviewDecision, error) {
	if cmd.Action != ActionConfirm && cmd.Action != ActionReject {
		return nil, ErrInvalidAction
	}
	if cmd.DecidedBy == "" {
		return nil, ErrReviewer
	}

	insertQ := `
		INSERT INTO review_decisions(check_id, document_id, action, note, decided_by)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, check_id, document_id, action, note, decided_by, decided_at`

	d, err := repository.WithTx(ctx, r.db, func(tx *sql.Tx) (ReviewDecision, error) {
		return repository.QueryOne(ctx, tx, insertQ,
			[]any{id, cmd.DocumentID, cmd.Action, cmd.Note, cmd.DecidedBy},
			scanDecision,
		)
	})

	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}

	r.logger.Info("review decision recorded",
		"check_id", id,
		"action", d.Action,
		"decided_by", d.DecidedBy,
	)
	return &d, nil
}

func (r *repo) Decisions(ctx context.Context, id uuid.UUID) ([]ReviewDecision, error) {
	q := `
		SELECT id, check_id, document_id, action, note, decided_by, decided_at
		FROM review_decisions
		WHERE check_id = $1
		ORDER BY decided_at`

	items, err := repository.QueryMany(ctx, r.db, q, []any{id}, scanDecision)
	if err != nil {
		return nil, fmt.Errorf("query review decisions: %w", err)
	}
	return items, nil
}
