package applications

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/planverify/verdict/pkg/evidence"
	"github.com/planverify/verdict/pkg/extract"
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

// New creates an application repository implementing the System interface.
func New(db *sql.DB, logger *slog.Logger, pagination pagination.Config) System {
	return &repo{
		db:         db,
		logger:     logger.With("system", "applications"),
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
) (*pagination.PageResult[Application], error) {
	page.Normalize(r.pagination)

	qb := query.
		NewBuilder(projection, defaultSort).
		WhereSearch(page.Search, "Reference", "SiteAddress", "Proposal")

	filters.Apply(qb)

	countSQL, countArgs := qb.BuildCount()
	var total int
	if err := r.db.QueryRowContext(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, fmt.Errorf("count applications: %w", err)
	}

	pageSQL, pageArgs := qb.BuildPage(page.Page, page.PageSize)
	items, err := repository.QueryMany(ctx, r.db, pageSQL, pageArgs, scanApplication)
	if err != nil {
		return nil, fmt.Errorf("query applications: %w", err)
	}

	result := pagination.NewPageResult(items, total, page.Page, page.PageSize)
	return &result, nil
}

func (r *repo) Find(ctx context.Context, id uuid.UUID) (*Application, error) {
	q, args := query.NewBuilder(projection).BuildSingle("ID", id)

	a, err := repository.QueryOne(ctx, r.db, q, args, scanApplication)
	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}

	if err := r.fillFromLatest(ctx, &a); err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *repo) FindByReference(ctx context.Context, reference string) (*Application, error) {
	q, args := query.NewBuilder(projection).BuildSingle("Reference", strings.TrimSpace(reference))

	a, err := repository.QueryOne(ctx, r.db, q, args, scanApplication)
	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}

	if err := r.fillFromLatest(ctx, &a); err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *repo) Create(ctx context.Context, cmd CreateCommand) (*Application, error) {
	reference := strings.TrimSpace(cmd.Reference)
	if reference == "" {
		return nil, ErrReference
	}

	insertQ := `
		INSERT INTO applications(reference, site_address, postcode, proposal)
		VALUES ($1, $2, $3, $4)
		RETURNING id, reference, site_address, postcode, proposal,
				  created_at, updated_at`

	a, err := repository.WithTx(ctx, r.db, func(tx *sql.Tx) (Application, error) {
		return repository.QueryOne(ctx, tx, insertQ,
			[]any{reference, cmd.SiteAddress, cmd.Postcode, cmd.Proposal},
			scanApplication,
		)
	})

	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}

	r.logger.Info("application registered",
		"id", a.ID,
		"reference", a.Reference,
	)
	return &a, nil
}

func (r *repo) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := repository.WithTx(ctx, r.db, func(tx *sql.Tx) (struct{}, error) {
		if err := repository.ExecExpectOne(
			ctx, tx,
			"DELETE FROM applications WHERE id = $1",
			id,
		); err != nil {
			return struct{}{}, err
		}
		return struct{}{}, nil
	})

	if err != nil {
		return repository.MapError(err, ErrNotFound, ErrDuplicate)
	}

	r.logger.Info("application deleted", "id", id)
	return nil
}

// Priors builds the parent-discovery index. Only applications with at
// least one validated submission participate; each contributes its most
// recent validated submission together with its site fields. Unset cache
// columns fall back to the latest validated submission's extracted
// fields, the same read-through fillFromLatest performs, so an
// application whose fields never cleared the cache threshold still
// carries address and postcode signals for the linker.
func (r *repo) Priors(ctx context.Context, exclude uuid.UUID) ([]linker.Prior, error) {
	q := `
		SELECT DISTINCT ON (a.id)
			a.id, s.id, a.reference,
			COALESCE(a.site_address, addr.value->>'str', ''),
			COALESCE(a.postcode, pc.value->>'str', '')
		FROM applications a
		JOIN submissions s ON s.application_id = a.id AND s.status = 'validated'
		LEFT JOIN LATERAL (
			SELECT f.value
			FROM extracted_fields f
			JOIN submissions fs ON fs.id = f.submission_id
			WHERE fs.application_id = a.id
			  AND fs.status = 'validated'
			  AND f.name = $2
			ORDER BY fs.validated_at DESC
			LIMIT 1
		) addr ON TRUE
		LEFT JOIN LATERAL (
			SELECT f.value
			FROM extracted_fields f
			JOIN submissions fs ON fs.id = f.submission_id
			WHERE fs.application_id = a.id
			  AND fs.status = 'validated'
			  AND f.name = $3
			ORDER BY fs.validated_at DESC
			LIMIT 1
		) pc ON TRUE
		WHERE a.id <> $1
		ORDER BY a.id, s.validated_at DESC`

	priors, err := repository.QueryMany(ctx, r.db, q,
		[]any{exclude, extract.FieldSiteAddress, extract.FieldSitePostcode},
		func(s repository.Scanner) (linker.Prior, error) {
			var p linker.Prior
			err := s.Scan(&p.ApplicationID, &p.SubmissionID, &p.Reference, &p.SiteAddress, &p.Postcode)
			return p, err
		})
	if err != nil {
		return nil, fmt.Errorf("query priors: %w", err)
	}

	return priors, nil
}

func (r *repo) RefreshCache(ctx context.Context, id uuid.UUID, cmd CacheCommand) error {
	updateQ := `
		UPDATE applications
		SET site_address = COALESCE($1, site_address),
			postcode = COALESCE($2, postcode),
			proposal = COALESCE($3, proposal),
			updated_at = NOW()
		WHERE id = $4`

	_, err := repository.WithTx(ctx, r.db, func(tx *sql.Tx) (struct{}, error) {
		if err := repository.ExecExpectOne(
			ctx, tx, updateQ,
			cmd.SiteAddress, cmd.Postcode, cmd.Proposal, id,
		); err != nil {
			return struct{}{}, err
		}
		return struct{}{}, nil
	})

	if err != nil {
		return repository.MapError(err, ErrNotFound, ErrDuplicate)
	}

	r.logger.Info("application cache refreshed", "id", id)
	return nil
}

// fillFromLatest backfills unset cache columns from the extracted fields
// of the application's most recent validated submission. The cache stays
// unset in storage; only the returned projection is completed.
func (r *repo) fillFromLatest(ctx context.Context, a *Application) error {
	if a.SiteAddress != nil && a.Postcode != nil && a.Proposal != nil {
		return nil
	}

	q := `
		SELECT DISTINCT ON (f.name) f.name, f.value
		FROM extracted_fields f
		JOIN submissions s ON s.id = f.submission_id
		WHERE s.application_id = $1
		  AND s.status = 'validated'
		  AND f.name = ANY($2)
		ORDER BY f.name, s.validated_at DESC`

	names := []string{extract.FieldSiteAddress, extract.FieldSitePostcode, extract.FieldProposal}

	type row struct {
		name  string
		value evidence.Value
	}

	rows, err := repository.QueryMany(ctx, r.db, q, []any{a.ID, names},
		func(s repository.Scanner) (row, error) {
			var rw row
			var raw []byte
			if err := s.Scan(&rw.name, &raw); err != nil {
				return rw, err
			}
			if err := json.Unmarshal(raw, &rw.value); err != nil {
				return rw, fmt.Errorf("unmarshal field value: %w", err)
			}
			return rw, nil
		})
	if err != nil {
		return fmt.Errorf("query latest fields: %w", err)
	}

	for _, rw := range rows {
		v := rw.value.Display()
		switch rw.name {
		case extract.FieldSiteAddress:
			if a.SiteAddress == nil {
				a.SiteAddress = &v
			}
		case extract.FieldSitePostcode:
			if a.Postcode == nil {
				a.Postcode = &v
			}
		case extract.FieldProposal:
			if a.Proposal == nil {
				a.Proposal = &v
			}
		}
	}

	return nil
}
