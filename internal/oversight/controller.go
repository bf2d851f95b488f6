package oversight

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/copperline/arbiter/pkg/lifecycle"
	"github.com/copperline/arbiter/pkg/pagination"
)

type controller struct {
	cfg        *Config
	store      Store
	logger     *slog.Logger
	pagination pagination.Config
	now        func() time.Time
}

// New creates the oversight controller over the given store.
func New(cfg *Config, store Store, logger *slog.Logger, pageCfg pagination.Config) System {
	return &controller{
		cfg:        cfg,
		store:      store,
		logger:     logger.With("system", "oversight"),
		pagination: pageCfg,
		now:        time.Now,
	}
}

func (c *controller) Handler() *Handler {
	return NewHandler(c, c.logger, c.pagination)
}

// Classify evaluates the tier rules in order; the first match wins.
// Tier1 ignores confidence and amount entirely: restricted action types are
// never bypassable by model score.
func (c *controller) Classify(action Action) Decision {
	decision := Decision{
		ID:         uuid.New(),
		ActionType: action.Type,
		CreatedAt:  c.now().UTC(),
	}

	switch {
	case c.cfg.AlwaysInterrupts(action.Type):
		decision.Tier = Tier1High
		decision.Interrupt = true
		decision.Reason = "restricted action type"
	case action.Confidence < c.cfg.ConfidenceThreshold:
		decision.Tier = Tier2Medium
		decision.Interrupt = true
		decision.Reason = fmt.Sprintf("confidence %.2f below threshold %.2f", action.Confidence, c.cfg.ConfidenceThreshold)
	case action.Amount > c.cfg.AmountThreshold:
		decision.Tier = Tier2Medium
		decision.Interrupt = true
		decision.Reason = fmt.Sprintf("amount %d exceeds threshold %d", action.Amount, c.cfg.AmountThreshold)
	case c.cfg.HighRisk(action.Category):
		decision.Tier = Tier2Medium
		decision.Interrupt = true
		decision.Reason = fmt.Sprintf("high-risk category %q", action.Category)
	default:
		decision.Tier = Tier3Low
		decision.Interrupt = false
		decision.Reason = "below all thresholds"
	}

	return decision
}

func (c *controller) Record(ctx context.Context, decision Decision) error {
	if err := c.store.InsertDecision(ctx, decision); err != nil {
		return fmt.Errorf("record decision %s: %w", decision.ID, err)
	}

	c.logger.InfoContext(ctx, "action classified",
		"decision_id", decision.ID,
		"action", decision.ActionType,
		"tier", decision.Tier,
		"interrupt", decision.Interrupt,
		"reason", decision.Reason,
	)
	return nil
}

func (c *controller) RequestReview(
	ctx context.Context,
	decision Decision,
	caseID uuid.UUID,
	digest string,
	reviewContext map[string]string,
) (*Review, error) {
	review := &Review{
		ID:             uuid.New(),
		DecisionID:     decision.ID,
		CaseID:         caseID,
		Context:        reviewContext,
		EvidenceDigest: digest,
		Status:         ReviewPending,
		CreatedAt:      c.now().UTC(),
	}

	if err := c.store.InsertReview(ctx, review); err != nil {
		return nil, fmt.Errorf("create review for case %s: %w", caseID, err)
	}

	c.logger.InfoContext(ctx, "review requested",
		"review_id", review.ID,
		"case_id", caseID,
		"decision_id", decision.ID,
	)
	return review, nil
}

func (c *controller) RecordDecision(ctx context.Context, reviewID uuid.UUID, cmd DecisionCommand) (*Review, error) {
	if cmd.Reviewer == "" {
		return nil, ErrMissingReviewer
	}

	status := ReviewRejected
	if cmd.Approved {
		status = ReviewApproved
	}

	review, err := c.store.ResolveReview(ctx, reviewID, status, cmd.Reviewer, cmd.Notes, c.now().UTC())
	if err != nil {
		return nil, err
	}

	c.logger.InfoContext(ctx, "review resolved",
		"review_id", review.ID,
		"case_id", review.CaseID,
		"status", review.Status,
		"reviewer", cmd.Reviewer,
	)
	return review, nil
}

func (c *controller) Find(ctx context.Context, id uuid.UUID) (*Review, error) {
	return c.store.FindReview(ctx, id)
}

func (c *controller) List(ctx context.Context, page pagination.PageRequest, filters Filters) (*pagination.PageResult[Review], error) {
	page.Normalize(c.pagination)
	return c.store.ListReviews(ctx, page, filters)
}

func (c *controller) ExpireStale(ctx context.Context) ([]Review, error) {
	now := c.now().UTC()
	cutoff := now.Add(-c.cfg.ReviewTTLDuration())

	expired, err := c.store.ExpirePending(ctx, cutoff, now)
	if err != nil {
		return nil, fmt.Errorf("expire stale reviews: %w", err)
	}

	for _, review := range expired {
		c.logger.InfoContext(ctx, "review expired",
			"review_id", review.ID,
			"case_id", review.CaseID,
			"created_at", review.CreatedAt,
		)
	}
	return expired, nil
}

func (c *controller) Stats(ctx context.Context, window time.Duration) (*EscalationStats, error) {
	since := c.now().UTC().Add(-window)

	stats, err := c.store.DecisionStats(ctx, since)
	if err != nil {
		return nil, fmt.Errorf("escalation stats: %w", err)
	}

	stats.Since = since
	stats.Total = stats.Tier1 + stats.Tier2 + stats.Tier3
	if stats.Total > 0 {
		stats.InterruptRate = float64(stats.Interrupts) / float64(stats.Total)
	}
	return stats, nil
}

// Start registers the expiry sweep. The sweep only flips review status;
// owning cases observe the expiry on their next Advance.
func (c *controller) Start(lc *lifecycle.Coordinator) error {
	interval := c.cfg.SweepIntervalDuration()
	c.logger.Info("starting review expiry sweep", "interval", interval)

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-lc.Context().Done():
				return
			case <-ticker.C:
				if _, err := c.ExpireStale(lc.Context()); err != nil {
					c.logger.Error("expiry sweep failed", "error", err)
				}
			}
		}
	}()

	return nil
}
