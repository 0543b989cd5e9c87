package submissions

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/planverify/verdict/pkg/evidence"
	"github.com/planverify/verdict/pkg/linker"
	"github.com/planverify/verdict/pkg/pagination"
	"github.com/planverify/verdict/pkg/query"
	"github.com/planverify/verdict/pkg/repository"
)

type repo struct {
	db         *sql.DB
	logger     *slog.Logger
	pagination pagination.Config
}

// New creates a submission repository implementing the System interface.
func New(db *sql.DB, logger *slog.Logger, pagination pagination.Config) System {
	return &repo{
		db:         db,
		logger:     logger.With("system", "submissions"),
		pagination: pagination,
	}
}

func (r *repo) Handler() *Handler {
	return NewHandler(r, r.logger, r.pagination)
}

func (r *repo) List(
	ctx context.Context,
	page pagination.PageRequest,
	filters Filters,
) (*pagination.PageResult[Submission], error) {
	page.Normalize(r.pagination)

	qb := query.NewBuilder(projection, defaultSort)
	filters.Apply(qb)

	countSQL, countArgs := qb.BuildCount()
	var total int
	if err := r.db.QueryRowContext(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, fmt.Errorf("count submissions: %w", err)
	}

	pageSQL, pageArgs := qb.BuildPage(page.Page, page.PageSize)
	items, err := repository.QueryMany(ctx, r.db, pageSQL, pageArgs, scanSubmission)
	if err != nil {
		return nil, fmt.Errorf("query submissions: %w", err)
	}

	result := pagination.NewPageResult(items, total, page.Page, page.PageSize)
	return &result, nil
}

func (r *repo) Find(ctx context.Context, id uuid.UUID) (*Submission, error) {
	q, args := query.NewBuilder(projection).BuildSingle("ID", id)

	s, err := repository.QueryOne(ctx, r.db, q, args, scanSubmission)
	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}
	return &s, nil
}

func (r *repo) Create(ctx context.Context, cmd CreateCommand) (*Submission, error) {
	insertQ := `
		INSERT INTO submissions(application_id, status)
		VALUES ($1, $2)
		RETURNING id, application_id, status, parent_id, link_confidence,
				  link_reason, created_at, validated_at`

	s, err := repository.WithTx(ctx, r.db, func(tx *sql.Tx) (Submission, error) {
		return repository.QueryOne(ctx, tx, insertQ,
			[]any{cmd.ApplicationID, StatusReceived},
			scanSubmission,
		)
	})

	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}

	r.logger.Info("submission opened",
		"id", s.ID,
		"application_id", s.ApplicationID,
	)
	return &s, nil
}

func (r *repo) Fields(ctx context.Context, id uuid.UUID) (*evidence.FieldSet, error) {
	q := `
		SELECT name, value, confidence, evidence, extractor, document_type
		FROM extracted_fields
		WHERE submission_id = $1
		ORDER BY name`

	items, err := repository.QueryMany(ctx, r.db, q, []any{id}, scanField)
	if err != nil {
		return nil, fmt.Errorf("query extracted fields: %w", err)
	}

	fields := evidence.NewFieldSet()
	for _, f := range items {
		fields.Set(f)
	}
	return fields, nil
}

// SaveFields replaces the submission's extracted fields inside one
// transaction. The submission row is locked first so a concurrent
// validation cannot slip a write past the immutability check.
func (r *repo) SaveFields(ctx context.Context, id uuid.UUID, fields *evidence.FieldSet) error {
	_, err := repository.WithTx(ctx, r.db, func(tx *sql.Tx) (struct{}, error) {
		if err := lockMutable(ctx, tx, id); err != nil {
			return struct{}{}, err
		}

		if _, err := tx.ExecContext(ctx,
			"DELETE FROM extracted_fields WHERE submission_id = $1", id,
		); err != nil {
			return struct{}{}, fmt.Errorf("clear extracted fields: %w", err)
		}

		insertQ := `
			INSERT INTO extracted_fields(
				submission_id, name, value, confidence,
				evidence, extractor, document_type
			)
			VALUES ($1, $2, $3, $4, $5, $6, $7)`

		for _, f := range fields.Fields() {
			valueJSON, err := json.Marshal(f.Value)
			if err != nil {
				return struct{}{}, fmt.Errorf("marshal value %s: %w", f.Name, err)
			}

			evidenceJSON, err := json.Marshal(f.Evidence)
			if err != nil {
				return struct{}{}, fmt.Errorf("marshal evidence %s: %w", f.Name, err)
			}

			if _, err := tx.ExecContext(ctx, insertQ,
				id, f.Name, valueJSON, f.Confidence,
				evidenceJSON, f.Extractor, f.DocumentType,
			); err != nil {
				return struct{}{}, fmt.Errorf("insert field %s: %w", f.Name, err)
			}
		}

		return struct{}{}, nil
	})

	if err != nil {
		return err
	}

	r.logger.Info("extracted fields saved",
		"submission_id", id,
		"field_count", fields.Len(),
	)
	return nil
}

func (r *repo) AcceptLink(ctx context.Context, id uuid.UUID, candidate linker.Candidate) error {
	linkQ := `
		UPDATE submissions
		SET parent_id = $1, link_confidence = $2, link_reason = $3
		WHERE id = $4 AND parent_id IS NULL`

	_, err := repository.WithTx(ctx, r.db, func(tx *sql.Tx) (struct{}, error) {
		if err := lockMutable(ctx, tx, id); err != nil {
			return struct{}{}, err
		}

		if err := repository.ExecExpectOne(ctx, tx, linkQ,
			candidate.SubmissionID, candidate.Confidence, string(candidate.Reason), id,
		); err != nil {
			return struct{}{}, ErrLinked
		}

		return struct{}{}, nil
	})

	if err != nil {
		return err
	}

	r.logger.Info("parent link accepted",
		"submission_id", id,
		"parent_id", candidate.SubmissionID,
		"confidence", candidate.Confidence,
		"reason", candidate.Reason,
	)
	return nil
}

func (r *repo) SaveCandidates(ctx context.Context, id uuid.UUID, candidates []linker.Candidate) error {
	_, err := repository.WithTx(ctx, r.db, func(tx *sql.Tx) (struct{}, error) {
		if _, err := tx.ExecContext(ctx,
			"DELETE FROM link_candidates WHERE submission_id = $1", id,
		); err != nil {
			return struct{}{}, fmt.Errorf("clear link candidates: %w", err)
		}

		insertQ := `
			INSERT INTO link_candidates(
				submission_id, application_id, candidate_id, confidence, reason
			)
			VALUES ($1, $2, $3, $4, $5)`

		for _, c := range candidates {
			if _, err := tx.ExecContext(ctx, insertQ,
				id, c.ApplicationID, c.SubmissionID, c.Confidence, string(c.Reason),
			); err != nil {
				return struct{}{}, fmt.Errorf("insert link candidate: %w", err)
			}
		}

		return struct{}{}, nil
	})

	if err != nil {
		return err
	}

	r.logger.Info("link candidates saved",
		"submission_id", id,
		"candidate_count", len(candidates),
	)
	return nil
}

func (r *repo) Candidates(ctx context.Context, id uuid.UUID) ([]linker.Candidate, error) {
	q := `
		SELECT application_id, candidate_id, confidence, reason
		FROM link_candidates
		WHERE submission_id = $1
		ORDER BY confidence DESC`

	items, err := repository.QueryMany(ctx, r.db, q, []any{id},
		func(s repository.Scanner) (linker.Candidate, error) {
			var c linker.Candidate
			var reason string
			if err := s.Scan(&c.ApplicationID, &c.SubmissionID, &c.Confidence, &reason); err != nil {
				return c, err
			}
			c.Reason = linker.Reason(reason)
			return c, nil
		})
	if err != nil {
		return nil, fmt.Errorf("query link candidates: %w", err)
	}

	return items, nil
}

func (r *repo) MarkProcessing(ctx context.Context, id uuid.UUID) error {
	return r.transition(ctx, id, StatusProcessing, "status <> $3",
		string(StatusValidated))
}

func (r *repo) MarkValidated(ctx context.Context, id uuid.UUID) (*Submission, error) {
	validateQ := `
		UPDATE submissions
		SET status = $1, validated_at = NOW()
		WHERE id = $2 AND status <> $3
		RETURNING id, application_id, status, parent_id, link_confidence,
				  link_reason, created_at, validated_at`

	s, err := repository.WithTx(ctx, r.db, func(tx *sql.Tx) (Submission, error) {
		sub, err := repository.QueryOne(ctx, tx, validateQ,
			[]any{StatusValidated, id, StatusValidated},
			scanSubmission,
		)
		if err != nil {
			if exists, findErr := r.exists(ctx, tx, id); findErr == nil && exists {
				return Submission{}, ErrImmutable
			}
			return Submission{}, repository.MapError(err, ErrNotFound, ErrDuplicate)
		}
		return sub, nil
	})

	if err != nil {
		return nil, err
	}

	r.logger.Info("submission validated",
		"id", s.ID,
		"application_id", s.ApplicationID,
	)
	return &s, nil
}

func (r *repo) MarkFailed(ctx context.Context, id uuid.UUID) error {
	return r.transition(ctx, id, StatusFailed, "status <> $3",
		string(StatusValidated))
}

func (r *repo) transition(ctx context.Context, id uuid.UUID, to Status, guard string, guardArg string) error {
	q := fmt.Sprintf(
		"UPDATE submissions SET status = $1 WHERE id = $2 AND %s", guard)

	_, err := repository.WithTx(ctx, r.db, func(tx *sql.Tx) (struct{}, error) {
		if err := repository.ExecExpectOne(ctx, tx, q, to, id, guardArg); err != nil {
			return struct{}{}, ErrImmutable
		}
		return struct{}{}, nil
	})

	if err != nil {
		return err
	}

	r.logger.Info("submission status changed", "id", id, "status", to)
	return nil
}

func (r *repo) exists(ctx context.Context, tx *sql.Tx, id uuid.UUID) (bool, error) {
	var found bool
	err := tx.QueryRowContext(ctx,
		"SELECT EXISTS (SELECT 1 FROM submissions WHERE id = $1)", id,
	).Scan(&found)
	return found, err
}

// lockMutable locks the submission row and fails with ErrImmutable when
// it has already been validated.
func lockMutable(ctx context.Context, tx *sql.Tx, id uuid.UUID) error {
	var status Status
	err := tx.QueryRowContext(ctx,
		"SELECT status FROM submissions WHERE id = $1 FOR UPDATE", id,
	).Scan(&status)
	if err != nil {
		return repository.MapError(err, ErrNotFound, ErrDuplicate)
	}

	if status == StatusValidated {
		return ErrImmutable
	}
	return nil
}

func scanField(s repository.Scanner) (evidence.Field, error) {
	var f evidence.Field
	var valueRaw, evidenceRaw []byte

	err := s.Scan(
		&f.Name,
		&valueRaw,
		&f.Confidence,
		&evidenceRaw,
		&f.Extractor,
		&f.DocumentType,
	)
	if err != nil {
		return f, err
	}

	if err := json.Unmarshal(valueRaw, &f.Value); err != nil {
		return f, fmt.Errorf("unmarshal value: %w", err)
	}

	if len(evidenceRaw) > 0 {
		if err := json.Unmarshal(evidenceRaw, &f.Evidence); err != nil {
			return f, fmt.Errorf("unmarshal evidence: %w", err)
		}
	}

	return f, nil
}
