package cases

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/copperline/arbiter/pkg/pagination"
	"github.com/copperline/arbiter/pkg/query"
	"github.com/copperline/arbiter/pkg/repository"
)

type postgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates the PostgreSQL-backed case store.
func NewPostgresStore(db *sql.DB) Store {
	return &postgresStore{db: db}
}

func (s *postgresStore) Insert(ctx context.Context, c *Case) error {
	evidenceJSON, err := json.Marshal(c.Evidence)
	if err != nil {
		return fmt.Errorf("marshal evidence: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO cases(
			id, phase, action_type, reason_code, category, amount, currency,
			evidence, version, review_id, submission_ref, resolution,
			reject_reason, created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`,
		c.ID,
		string(c.Phase),
		c.ActionType,
		c.ReasonCode,
		c.Category,
		c.Amount,
		c.Currency,
		evidenceJSON,
		c.Version,
		c.ReviewID,
		c.SubmissionRef,
		c.Resolution,
		c.RejectReason,
		c.CreatedAt,
		c.UpdatedAt,
	)
	if err != nil {
		return repository.MapError(err, ErrCaseNotFound, ErrDuplicate)
	}
	return nil
}

func (s *postgresStore) Load(ctx context.Context, id uuid.UUID) (*Case, error) {
	q, args := query.NewBuilder(caseProjection).BuildSingle("ID", id)

	c, err := repository.QueryOne(ctx, s.db, q, args, scanCase)
	if err != nil {
		return nil, repository.MapError(err, ErrCaseNotFound, ErrDuplicate)
	}
	return &c, nil
}

// Save writes the full case row guarded by the expected version. Zero rows
// affected means another writer won the race.
func (s *postgresStore) Save(ctx context.Context, c *Case, expectedVersion int) error {
	evidenceJSON, err := json.Marshal(c.Evidence)
	if err != nil {
		return fmt.Errorf("marshal evidence: %w", err)
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE cases
		SET phase = $1, category = $2, evidence = $3, version = $4,
			review_id = $5, submission_ref = $6, resolution = $7,
			reject_reason = $8, updated_at = $9
		WHERE id = $10 AND version = $11`,
		string(c.Phase),
		c.Category,
		evidenceJSON,
		c.Version,
		c.ReviewID,
		c.SubmissionRef,
		c.Resolution,
		c.RejectReason,
		c.UpdatedAt,
		c.ID,
		expectedVersion,
	)
	if err != nil {
		return fmt.Errorf("save case %s: %w", c.ID, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("save case %s: %w", c.ID, err)
	}
	if affected == 0 {
		// Either the row is gone or the version moved underneath us.
		if _, loadErr := s.Load(ctx, c.ID); loadErr != nil {
			return loadErr
		}
		return ErrConcurrentModification
	}
	return nil
}

func (s *postgresStore) List(
	ctx context.Context,
	page pagination.PageRequest,
	filters Filters,
) (*pagination.PageResult[Case], error) {
	qb := query.
		NewBuilder(caseProjection, defaultCaseSort).
		WhereSearch(page.Search, "ReasonCode", "Category", "RejectReason")

	filters.Apply(qb)

	if len(page.Sort) > 0 {
		qb.OrderByFields(page.Sort)
	}

	countSQL, countArgs := qb.BuildCount()
	var total int
	if err := s.db.QueryRowContext(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, fmt.Errorf("count cases: %w", err)
	}

	pageSQL, pageArgs := qb.BuildPage(page.Page, page.PageSize)
	items, err := repository.QueryMany(ctx, s.db, pageSQL, pageArgs, scanCase)
	if err != nil {
		return nil, fmt.Errorf("query cases: %w", err)
	}

	result := pagination.NewPageResult(items, total, page.Page, page.PageSize)
	return &result, nil
}

func (s *postgresStore) FindByReview(ctx context.Context, reviewID uuid.UUID) (*Case, error) {
	q, args := query.NewBuilder(caseProjection).BuildSingle("ReviewID", reviewID)

	c, err := repository.QueryOne(ctx, s.db, q, args, scanCase)
	if err != nil {
		return nil, repository.MapError(err, ErrCaseNotFound, ErrDuplicate)
	}
	return &c, nil
}

func scanCase(s repository.Scanner) (Case, error) {
	var (
		c            Case
		phase        string
		evidenceJSON []byte
	)

	err := s.Scan(
		&c.ID,
		&phase,
		&c.ActionType,
		&c.ReasonCode,
		&c.Category,
		&c.Amount,
		&c.Currency,
		&evidenceJSON,
		&c.Version,
		&c.ReviewID,
		&c.SubmissionRef,
		&c.Resolution,
		&c.RejectReason,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	if err != nil {
		return Case{}, err
	}

	c.Phase = Phase(phase)

	c.Evidence = make(map[string]string)
	if len(evidenceJSON) > 0 {
		if err := json.Unmarshal(evidenceJSON, &c.Evidence); err != nil {
			return Case{}, fmt.Errorf("unmarshal evidence: %w", err)
		}
	}

	return c, nil
}
