package cases

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/copperline/arbiter/internal/oversight"
	"github.com/copperline/arbiter/internal/panel"
	"github.com/copperline/arbiter/internal/submission"
	"github.com/copperline/arbiter/pkg/pagination"
	"github.com/copperline/arbiter/pkg/storage"
)

// Evaluator is the judge panel contract consumed during Validating.
type Evaluator interface {
	Evaluate(ctx context.Context, input panel.Input) (*panel.Result, error)
}

type orchestrator struct {
	store        Store
	panel        Evaluator
	oversight    oversight.System
	submitter    submission.Submitter
	resolution   ResolutionSource
	storage      storage.System
	logger       *slog.Logger
	pagination   pagination.Config
	maxUpload    int64
	batchWorkers int
	now          func() time.Time
}

// Options collects the orchestrator's collaborators.
type Options struct {
	Store        Store
	Panel        Evaluator
	Oversight    oversight.System
	Submitter    submission.Submitter
	Resolution   ResolutionSource
	Storage      storage.System
	Logger       *slog.Logger
	Pagination   pagination.Config
	MaxUpload    int64
	BatchWorkers int
}

// New creates the case orchestrator.
func New(opts Options) System {
	workers := opts.BatchWorkers
	if workers < 1 {
		workers = 4
	}

	return &orchestrator{
		store:        opts.Store,
		panel:        opts.Panel,
		oversight:    opts.Oversight,
		submitter:    opts.Submitter,
		resolution:   opts.Resolution,
		storage:      opts.Storage,
		logger:       opts.Logger.With("system", "cases"),
		pagination:   opts.Pagination,
		maxUpload:    opts.MaxUpload,
		batchWorkers: workers,
		now:          time.Now,
	}
}

func (o *orchestrator) Handler() *Handler {
	return NewHandler(o, o.logger, o.pagination, o.maxUpload)
}

func (o *orchestrator) Create(ctx context.Context, cmd CreateCommand) (*Case, error) {
	if cmd.ReasonCode == "" {
		return nil, fmt.Errorf("%w: reason_code required", ErrInvalidCommand)
	}
	if cmd.Amount <= 0 {
		return nil, fmt.Errorf("%w: amount must be positive", ErrInvalidCommand)
	}
	if len(cmd.Currency) != 3 {
		return nil, fmt.Errorf("%w: currency must be an ISO 4217 code", ErrInvalidCommand)
	}
	if cmd.ActionType == "" {
		cmd.ActionType = "submitDispute"
	}

	now := o.now().UTC()
	c := &Case{
		ID:         uuid.New(),
		Phase:      PhaseCreated,
		ActionType: cmd.ActionType,
		ReasonCode: cmd.ReasonCode,
		Amount:     cmd.Amount,
		Currency:   strings.ToUpper(cmd.Currency),
		Evidence:   make(map[string]string),
		Version:    1,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	if err := o.store.Insert(ctx, c); err != nil {
		return nil, fmt.Errorf("create case: %w", err)
	}

	o.logger.InfoContext(ctx, "case created",
		"case_id", c.ID,
		"reason_code", c.ReasonCode,
		"amount", c.Amount,
		"currency", c.Currency,
	)
	return c, nil
}

func (o *orchestrator) Find(ctx context.Context, id uuid.UUID) (*Case, error) {
	return o.store.Load(ctx, id)
}

func (o *orchestrator) List(ctx context.Context, page pagination.PageRequest, filters Filters) (*pagination.PageResult[Case], error) {
	page.Normalize(o.pagination)
	return o.store.List(ctx, page, filters)
}

// Advance executes exactly one phase's logic. Every path either persists a
// single transition or returns an error with the stored phase untouched, so
// a crash mid-call is always recoverable by calling Advance again.
func (o *orchestrator) Advance(ctx context.Context, id uuid.UUID) (Phase, error) {
	c, err := o.store.Load(ctx, id)
	if err != nil {
		return "", err
	}

	if c.Phase.Terminal() {
		return c.Phase, fmt.Errorf("%w: case %s is %s", ErrInvalidTransition, c.ID, c.Phase)
	}

	switch c.Phase {
	case PhaseCreated:
		return o.transition(ctx, c, PhaseClassifying)

	case PhaseClassifying:
		c.Category = Classify(c.ReasonCode).Category
		return o.transition(ctx, c, PhaseGatheringEvidence)

	case PhaseGatheringEvidence:
		if missing := MissingEvidence(c); len(missing) > 0 {
			return c.Phase, fmt.Errorf("%w: missing %s", ErrEvidenceIncomplete, strings.Join(missing, ", "))
		}
		return o.transition(ctx, c, PhaseValidating)

	case PhaseValidating:
		return o.advanceValidating(ctx, c)

	case PhasePendingReview:
		return o.advancePendingReview(ctx, c)

	case PhaseSubmitting:
		return o.advanceSubmitting(ctx, c)

	case PhaseMonitoring:
		return o.advanceMonitoring(ctx, c)

	default:
		return c.Phase, fmt.Errorf("%w: unknown phase %q", ErrInvalidTransition, c.Phase)
	}
}

// advanceValidating runs the panel and, on pass, consults oversight before
// allowing submission. The panel call is synchronous: nothing submits until
// validation has produced a verdict or the review path has been taken.
func (o *orchestrator) advanceValidating(ctx context.Context, c *Case) (Phase, error) {
	result, err := o.panel.Evaluate(ctx, panelInput(c))
	if err != nil {
		return c.Phase, fmt.Errorf("evaluate case %s: %w", c.ID, err)
	}

	if !result.Pass {
		return o.reject(ctx, c, "validation failed: "+strings.Join(result.FailReasons(), "; "))
	}

	decision := o.oversight.Classify(oversight.Action{
		Type:       c.ActionType,
		Confidence: result.MinConfidence(),
		Amount:     c.Amount,
		Category:   c.Category,
	})
	if err := o.oversight.Record(ctx, decision); err != nil {
		return c.Phase, err
	}

	if !decision.Interrupt {
		return o.transition(ctx, c, PhaseSubmitting)
	}

	review, err := o.oversight.RequestReview(ctx, decision, c.ID, o.digest(c), reviewContext(c, result))
	if err != nil {
		return c.Phase, err
	}

	c.ReviewID = &review.ID
	return o.transition(ctx, c, PhasePendingReview)
}

// advancePendingReview never resumes autonomously: a pending review keeps
// the case parked, and only an expired one forces movement (to Rejected).
// Approvals and rejections arrive through RecordHumanDecision instead.
func (o *orchestrator) advancePendingReview(ctx context.Context, c *Case) (Phase, error) {
	if c.ReviewID == nil {
		return o.reject(ctx, c, "pending review without review request")
	}

	review, err := o.oversight.Find(ctx, *c.ReviewID)
	if err != nil {
		return c.Phase, err
	}

	switch review.Status {
	case oversight.ReviewPending:
		return c.Phase, fmt.Errorf("%w: review %s", ErrAwaitingReview, review.ID)
	case oversight.ReviewExpired:
		return o.reject(ctx, c, ErrReviewExpired.Error())
	case oversight.ReviewApproved:
		return o.resumeApproved(ctx, c, review)
	default:
		return o.reject(ctx, c, "review rejected")
	}
}

func (o *orchestrator) advanceSubmitting(ctx context.Context, c *Case) (Phase, error) {
	result, err := o.submitter.Submit(ctx, submission.Request{
		CaseID:   c.ID,
		Reason:   c.ReasonCode,
		Category: c.Category,
		Amount:   c.Amount,
		Currency: c.Currency,
		Evidence: c.Evidence,
	})
	if err != nil {
		if ctx.Err() != nil {
			return c.Phase, err
		}
		return o.reject(ctx, c, "submission failed: "+err.Error())
	}

	c.SubmissionRef = &result.Reference
	return o.transition(ctx, c, PhaseMonitoring)
}

func (o *orchestrator) advanceMonitoring(ctx context.Context, c *Case) (Phase, error) {
	outcome, resolved, err := o.resolution.Check(ctx, c.ID)
	if err != nil {
		return c.Phase, fmt.Errorf("check resolution for case %s: %w", c.ID, err)
	}
	if !resolved {
		return c.Phase, nil
	}

	c.Resolution = &outcome
	return o.transition(ctx, c, PhaseResolved)
}

func (o *orchestrator) AppendEvidence(
	ctx context.Context,
	id uuid.UUID,
	kind, content string,
	attachment io.Reader,
	contentType string,
) (*Case, error) {
	if kind == "" {
		return nil, fmt.Errorf("%w: evidence kind required", ErrInvalidCommand)
	}

	c, err := o.store.Load(ctx, id)
	if err != nil {
		return nil, err
	}

	if !evidenceOpen(c.Phase) {
		return nil, fmt.Errorf("%w: case %s is %s", ErrEvidenceClosed, c.ID, c.Phase)
	}

	value := content
	if attachment != nil {
		key := storage.AttachmentKey(c.ID.String(), kind)
		if err := o.storage.Upload(ctx, key, attachment, contentType); err != nil {
			return nil, fmt.Errorf("upload evidence %s for case %s: %w", kind, c.ID, err)
		}
		value = key
	}

	c.Evidence[kind] = value
	if err := o.save(ctx, c); err != nil {
		return nil, err
	}

	o.logger.InfoContext(ctx, "evidence appended",
		"case_id", c.ID,
		"kind", kind,
		"attachment", attachment != nil,
	)
	return c, nil
}

func (o *orchestrator) Validate(ctx context.Context, id uuid.UUID) (*panel.Result, error) {
	c, err := o.store.Load(ctx, id)
	if err != nil {
		return nil, err
	}
	return o.panel.Evaluate(ctx, panelInput(c))
}

// ValidateBatch fans the panel out over many cases with a bounded worker
// count. Evaluate is read-through cached, so a batch run doubles as cache
// warming for a backlog of cases. Output preserves input order; the first
// failure cancels the batch.
func (o *orchestrator) ValidateBatch(ctx context.Context, ids []uuid.UUID) ([]BatchValidation, error) {
	out := make([]BatchValidation, len(ids))

	group, ctx := errgroup.WithContext(ctx)
	group.SetLimit(o.batchWorkers)

	for i, id := range ids {
		group.Go(func() error {
			c, err := o.store.Load(ctx, id)
			if err != nil {
				return err
			}

			result, err := o.panel.Evaluate(ctx, panelInput(c))
			if err != nil {
				return fmt.Errorf("evaluate case %s: %w", id, err)
			}

			out[i] = BatchValidation{CaseID: id, Result: result}
			return nil
		})
	}

	if err := group.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func (o *orchestrator) RecordHumanDecision(ctx context.Context, reviewID uuid.UUID, cmd DecisionCommand) (*Case, error) {
	review, err := o.oversight.RecordDecision(ctx, reviewID, oversight.DecisionCommand{
		Approved: cmd.Approved,
		Reviewer: cmd.Reviewer,
		Notes:    cmd.Notes,
	})
	if err != nil {
		return nil, err
	}

	c, err := o.store.FindByReview(ctx, reviewID)
	if err != nil {
		return nil, err
	}

	if c.Phase != PhasePendingReview {
		return nil, fmt.Errorf("%w: case %s is %s", ErrInvalidTransition, c.ID, c.Phase)
	}

	if cmd.Approved {
		if _, err := o.resumeApproved(ctx, c, review); err != nil {
			return nil, err
		}
		return c, nil
	}

	if _, err := o.reject(ctx, c, "review rejected by "+cmd.Reviewer); err != nil {
		return nil, err
	}
	return c, nil
}

// resumeApproved moves an approved case forward. If the evidence changed
// since the reviewer looked at it, the approval no longer covers the case
// and it goes back through validation instead of straight to submission.
func (o *orchestrator) resumeApproved(ctx context.Context, c *Case, review *oversight.Review) (Phase, error) {
	c.ReviewID = nil

	if o.digest(c) != review.EvidenceDigest {
		o.logger.InfoContext(ctx, "evidence changed since review, revalidating",
			"case_id", c.ID,
			"review_id", review.ID,
		)
		return o.transition(ctx, c, PhaseValidating)
	}

	return o.transition(ctx, c, PhaseSubmitting)
}

func (o *orchestrator) reject(ctx context.Context, c *Case, reason string) (Phase, error) {
	c.RejectReason = &reason
	return o.transition(ctx, c, PhaseRejected)
}

// transition persists exactly one phase change with the optimistic version
// check. The in-memory Case is only trusted after save succeeds.
func (o *orchestrator) transition(ctx context.Context, c *Case, next Phase) (Phase, error) {
	if !c.Phase.CanTransition(next) {
		return c.Phase, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, c.Phase, next)
	}

	prior := c.Phase
	c.Phase = next
	if err := o.save(ctx, c); err != nil {
		c.Phase = prior
		return prior, err
	}

	o.logger.InfoContext(ctx, "case advanced",
		"case_id", c.ID,
		"from", prior,
		"to", next,
		"version", c.Version,
	)
	return next, nil
}

func (o *orchestrator) save(ctx context.Context, c *Case) error {
	expected := c.Version
	c.Version++
	c.UpdatedAt = o.now().UTC()

	if err := o.store.Save(ctx, c, expected); err != nil {
		c.Version = expected
		return err
	}
	return nil
}

func (o *orchestrator) digest(c *Case) string {
	return panel.EvidenceDigest(c.ReasonCode, c.Evidence)
}

func panelInput(c *Case) panel.Input {
	return panel.Input{
		CaseID:   c.ID,
		Reason:   c.ReasonCode,
		Amount:   c.Amount,
		Currency: c.Currency,
		Evidence: c.Evidence,
	}
}

// reviewContext serializes what a human reviewer needs to judge the case.
func reviewContext(c *Case, result *panel.Result) map[string]string {
	ctx := map[string]string{
		"reason_code":    c.ReasonCode,
		"category":       c.Category,
		"amount":         strconv.FormatInt(c.Amount, 10),
		"currency":       c.Currency,
		"min_confidence": strconv.FormatFloat(result.MinConfidence(), 'f', 2, 64),
	}
	for kind := range c.Evidence {
		ctx["evidence:"+kind] = c.Evidence[kind]
	}
	return ctx
}

// evidenceOpen reports whether evidence may still be appended. Evidence is
// open before validation and while a review is pending; once a case is
// validating, submitted, or terminal the record is frozen.
func evidenceOpen(p Phase) bool {
	switch p {
	case PhaseCreated, PhaseClassifying, PhaseGatheringEvidence, PhasePendingReview:
		return true
	default:
		return false
	}
}
