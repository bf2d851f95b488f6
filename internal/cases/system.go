package cases

import (
	"context"
	"io"

	"github.com/google/uuid"

	"github.com/copperline/arbiter/internal/panel"
	"github.com/copperline/arbiter/pkg/pagination"
)

// System defines the public contract for the case orchestrator.
type System interface {
	Handler() *Handler

	// Create initializes a new case in the Created phase and persists it.
	Create(ctx context.Context, cmd CreateCommand) (*Case, error)

	// Find returns a single case by id.
	Find(ctx context.Context, id uuid.UUID) (*Case, error)

	// List returns a page of cases matching the filters.
	List(ctx context.Context, page pagination.PageRequest, filters Filters) (*pagination.PageResult[Case], error)

	// Advance loads the case, executes its current-phase logic, and persists
	// the resulting transition with an optimistic version check. Any failure
	// leaves the persisted phase untouched; the call is safe to retry.
	Advance(ctx context.Context, id uuid.UUID) (Phase, error)

	// AppendEvidence records one evidence entry. When attachment is non-nil
	// the bytes go to blob storage and the storage key becomes the entry's
	// value. Legal only before validation and while a review is pending.
	AppendEvidence(ctx context.Context, id uuid.UUID, kind, content string, attachment io.Reader, contentType string) (*Case, error)

	// Validate runs the judge panel against the case's current evidence
	// without changing phase. A dry run for the review surface.
	Validate(ctx context.Context, id uuid.UUID) (*panel.Result, error)

	// ValidateBatch runs the judge panel over many cases with bounded
	// concurrency, warming the verdict cache without changing any phase.
	ValidateBatch(ctx context.Context, ids []uuid.UUID) ([]BatchValidation, error)

	// RecordHumanDecision resolves the case's outstanding review and moves
	// it out of PendingReview.
	RecordHumanDecision(ctx context.Context, reviewID uuid.UUID, cmd DecisionCommand) (*Case, error)
}

// BatchValidation pairs a case with its panel result for batch runs.
type BatchValidation struct {
	CaseID uuid.UUID     `json:"case_id"`
	Result *panel.Result `json:"result"`
}

// Store is the persistence collaborator. Save enforces single-writer-per-
// version semantics: a mismatch between expectedVersion and the stored row
// yields ErrConcurrentModification and writes nothing.
type Store interface {
	Insert(ctx context.Context, c *Case) error
	Load(ctx context.Context, id uuid.UUID) (*Case, error)
	Save(ctx context.Context, c *Case, expectedVersion int) error
	List(ctx context.Context, page pagination.PageRequest, filters Filters) (*pagination.PageResult[Case], error)
	FindByReview(ctx context.Context, reviewID uuid.UUID) (*Case, error)
}

// ResolutionSource is the external signal consumed during Monitoring.
// Implementations poll the payment network for a terminal outcome.
type ResolutionSource interface {
	Check(ctx context.Context, caseID uuid.UUID) (outcome string, resolved bool, err error)
}
