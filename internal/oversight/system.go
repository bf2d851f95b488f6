package oversight

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/copperline/arbiter/pkg/lifecycle"
	"github.com/copperline/arbiter/pkg/pagination"
)

// System defines the public contract for the oversight controller.
// Classify is pure and side-effect free; the remaining operations manage
// the persisted decision log and review queue.
type System interface {
	Handler() *Handler

	// Classify assigns a risk tier to a pending action. First match wins;
	// the result is logged asynchronously-safe via Record.
	Classify(action Action) Decision

	// Record persists a decision to the audit log. All tiers are recorded.
	Record(ctx context.Context, decision Decision) error

	// RequestReview creates a pending review request for an interrupting decision.
	RequestReview(ctx context.Context, decision Decision, caseID uuid.UUID, digest string, reviewContext map[string]string) (*Review, error)

	// RecordDecision resolves a pending review. It is the only way a case in
	// review can move forward.
	RecordDecision(ctx context.Context, reviewID uuid.UUID, cmd DecisionCommand) (*Review, error)

	// Find returns a single review by id.
	Find(ctx context.Context, id uuid.UUID) (*Review, error)

	// List returns a page of reviews matching the filters.
	List(ctx context.Context, page pagination.PageRequest, filters Filters) (*pagination.PageResult[Review], error)

	// ExpireStale marks pending reviews older than the configured TTL as
	// expired and returns them so owning cases can be rejected.
	ExpireStale(ctx context.Context) ([]Review, error)

	// Stats returns per-tier decision counts and the interrupt rate over the
	// trailing window. Pure read, no side effects.
	Stats(ctx context.Context, window time.Duration) (*EscalationStats, error)

	// Start registers the periodic expiry sweep with the lifecycle coordinator.
	Start(lc *lifecycle.Coordinator) error
}

// Store is the persistence collaborator for decisions and reviews.
type Store interface {
	InsertDecision(ctx context.Context, decision Decision) error
	InsertReview(ctx context.Context, review *Review) error
	FindReview(ctx context.Context, id uuid.UUID) (*Review, error)
	ResolveReview(ctx context.Context, id uuid.UUID, status ReviewStatus, reviewer, notes string, at time.Time) (*Review, error)
	ListReviews(ctx context.Context, page pagination.PageRequest, filters Filters) (*pagination.PageResult[Review], error)
	ExpirePending(ctx context.Context, olderThan, at time.Time) ([]Review, error)
	DecisionStats(ctx context.Context, since time.Time) (*EscalationStats, error)
}
