package oversight

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/copperline/arbiter/pkg/pagination"
	"github.com/copperline/arbiter/pkg/query"
	"github.com/copperline/arbiter/pkg/repository"
)

type postgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates the PostgreSQL-backed oversight store.
func NewPostgresStore(db *sql.DB) Store {
	return &postgresStore{db: db}
}

func (s *postgresStore) InsertDecision(ctx context.Context, decision Decision) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO decisions(id, action_type, tier, interrupt, reason, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		decision.ID,
		decision.ActionType,
		string(decision.Tier),
		decision.Interrupt,
		decision.Reason,
		decision.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert decision: %w", err)
	}
	return nil
}

func (s *postgresStore) InsertReview(ctx context.Context, review *Review) error {
	contextJSON, err := json.Marshal(review.Context)
	if err != nil {
		return fmt.Errorf("marshal review context: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO reviews(
			id, decision_id, case_id, context, evidence_digest,
			status, created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		review.ID,
		review.DecisionID,
		review.CaseID,
		contextJSON,
		review.EvidenceDigest,
		string(review.Status),
		review.CreatedAt,
	)
	if err != nil {
		return repository.MapError(err, ErrReviewNotFound, ErrDuplicate)
	}
	return nil
}

func (s *postgresStore) FindReview(ctx context.Context, id uuid.UUID) (*Review, error) {
	q, args := query.NewBuilder(reviewProjection).BuildSingle("ID", id)

	review, err := repository.QueryOne(ctx, s.db, q, args, scanReview)
	if err != nil {
		return nil, repository.MapError(err, ErrReviewNotFound, ErrDuplicate)
	}
	return &review, nil
}

func (s *postgresStore) ResolveReview(
	ctx context.Context,
	id uuid.UUID,
	status ReviewStatus,
	reviewer, notes string,
	at time.Time,
) (*Review, error) {
	resolveQ := `
		UPDATE reviews
		SET status = $1, reviewer = $2, notes = $3, resolved_at = $4
		WHERE id = $5 AND status = 'pending'
		RETURNING id, decision_id, case_id, context, evidence_digest,
				  status, reviewer, notes, created_at, resolved_at`

	review, err := repository.QueryOne(
		ctx, s.db, resolveQ,
		[]any{string(status), reviewer, notes, at, id},
		scanReview,
	)
	if err != nil {
		// Distinguish "missing" from "already resolved" for the caller.
		if _, findErr := s.FindReview(ctx, id); findErr == nil {
			return nil, ErrReviewResolved
		}
		return nil, repository.MapError(err, ErrReviewNotFound, ErrDuplicate)
	}
	return &review, nil
}

func (s *postgresStore) ListReviews(
	ctx context.Context,
	page pagination.PageRequest,
	filters Filters,
) (*pagination.PageResult[Review], error) {
	qb := query.
		NewBuilder(reviewProjection, defaultReviewSort).
		WhereSearch(page.Search, "EvidenceDigest", "Notes")

	filters.Apply(qb)

	if len(page.Sort) > 0 {
		qb.OrderByFields(page.Sort)
	}

	countSQL, countArgs := qb.BuildCount()
	var total int
	if err := s.db.QueryRowContext(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, fmt.Errorf("count reviews: %w", err)
	}

	pageSQL, pageArgs := qb.BuildPage(page.Page, page.PageSize)
	items, err := repository.QueryMany(ctx, s.db, pageSQL, pageArgs, scanReview)
	if err != nil {
		return nil, fmt.Errorf("query reviews: %w", err)
	}

	result := pagination.NewPageResult(items, total, page.Page, page.PageSize)
	return &result, nil
}

func (s *postgresStore) ExpirePending(ctx context.Context, olderThan, at time.Time) ([]Review, error) {
	expireQ := `
		UPDATE reviews
		SET status = 'expired', resolved_at = $2
		WHERE status = 'pending' AND created_at < $1
		RETURNING id, decision_id, case_id, context, evidence_digest,
				  status, reviewer, notes, created_at, resolved_at`

	return repository.QueryMany(ctx, s.db, expireQ, []any{olderThan, at}, scanReview)
}

func (s *postgresStore) DecisionStats(ctx context.Context, since time.Time) (*EscalationStats, error) {
	statsQ := `
		SELECT
			COUNT(*) FILTER (WHERE tier = 'tier1_high'),
			COUNT(*) FILTER (WHERE tier = 'tier2_medium'),
			COUNT(*) FILTER (WHERE tier = 'tier3_low'),
			COUNT(*) FILTER (WHERE interrupt)
		FROM decisions
		WHERE created_at >= $1`

	var stats EscalationStats
	err := s.db.QueryRowContext(ctx, statsQ, since).Scan(
		&stats.Tier1,
		&stats.Tier2,
		&stats.Tier3,
		&stats.Interrupts,
	)
	if err != nil {
		return nil, err
	}
	return &stats, nil
}

func scanReview(s repository.Scanner) (Review, error) {
	var (
		review      Review
		contextJSON []byte
		status      string
	)

	err := s.Scan(
		&review.ID,
		&review.DecisionID,
		&review.CaseID,
		&contextJSON,
		&review.EvidenceDigest,
		&status,
		&review.Reviewer,
		&review.Notes,
		&review.CreatedAt,
		&review.ResolvedAt,
	)
	if err != nil {
		return Review{}, err
	}

	review.Status = ReviewStatus(status)

	if len(contextJSON) > 0 {
		if err := json.Unmarshal(contextJSON, &review.Context); err != nil {
			return Review{}, fmt.Errorf("unmarshal review context: %w", err)
		}
	}

	return review, nil
}
