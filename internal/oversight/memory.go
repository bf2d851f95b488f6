package oversight

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/copperline/arbiter/pkg/pagination"
)

// memoryStore is the in-process store used for local development and tests.
// It mirrors the PostgreSQL store's semantics, including the pending-only
// resolve guard.
type memoryStore struct {
	mu        sync.RWMutex
	decisions []Decision
	reviews   map[uuid.UUID]*Review
}

// NewMemoryStore creates an empty in-memory oversight store.
func NewMemoryStore() Store {
	return &memoryStore{
		reviews: make(map[uuid.UUID]*Review),
	}
}

func (s *memoryStore) InsertDecision(_ context.Context, decision Decision) error {
	s.mu.Lock()
	s.decisions = append(s.decisions, decision)
	s.mu.Unlock()
	return nil
}

func (s *memoryStore) InsertReview(_ context.Context, review *Review) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.reviews[review.ID]; exists {
		return ErrDuplicate
	}

	clone := *review
	s.reviews[review.ID] = &clone
	return nil
}

func (s *memoryStore) FindReview(_ context.Context, id uuid.UUID) (*Review, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	review, ok := s.reviews[id]
	if !ok {
		return nil, ErrReviewNotFound
	}

	clone := *review
	return &clone, nil
}

func (s *memoryStore) ResolveReview(
	_ context.Context,
	id uuid.UUID,
	status ReviewStatus,
	reviewer, notes string,
	at time.Time,
) (*Review, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	review, ok := s.reviews[id]
	if !ok {
		return nil, ErrReviewNotFound
	}
	if review.Status != ReviewPending {
		return nil, ErrReviewResolved
	}

	review.Status = status
	review.Reviewer = &reviewer
	review.Notes = &notes
	review.ResolvedAt = &at

	clone := *review
	return &clone, nil
}

func (s *memoryStore) ListReviews(
	_ context.Context,
	page pagination.PageRequest,
	filters Filters,
) (*pagination.PageResult[Review], error) {
	s.mu.RLock()
	matched := make([]Review, 0, len(s.reviews))
	for _, review := range s.reviews {
		if matchesFilters(review, filters) {
			matched = append(matched, *review)
		}
	}
	s.mu.RUnlock()

	sort.Slice(matched, func(i, k int) bool {
		return matched[i].CreatedAt.Before(matched[k].CreatedAt)
	})

	total := len(matched)
	offset := page.Offset()
	if offset > total {
		offset = total
	}
	end := offset + page.PageSize
	if end > total {
		end = total
	}

	result := pagination.NewPageResult(matched[offset:end], total, page.Page, page.PageSize)
	return &result, nil
}

func (s *memoryStore) ExpirePending(_ context.Context, olderThan, at time.Time) ([]Review, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var expired []Review
	for _, review := range s.reviews {
		if review.Status == ReviewPending && review.CreatedAt.Before(olderThan) {
			review.Status = ReviewExpired
			resolvedAt := at
			review.ResolvedAt = &resolvedAt
			expired = append(expired, *review)
		}
	}
	return expired, nil
}

func (s *memoryStore) DecisionStats(_ context.Context, since time.Time) (*EscalationStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var stats EscalationStats
	for _, decision := range s.decisions {
		if decision.CreatedAt.Before(since) {
			continue
		}
		switch decision.Tier {
		case Tier1High:
			stats.Tier1++
		case Tier2Medium:
			stats.Tier2++
		case Tier3Low:
			stats.Tier3++
		}
		if decision.Interrupt {
			stats.Interrupts++
		}
	}
	return &stats, nil
}

func matchesFilters(review *Review, filters Filters) bool {
	if filters.Status != nil && string(review.Status) != *filters.Status {
		return false
	}
	if filters.CaseID != nil && review.CaseID != *filters.CaseID {
		return false
	}
	if filters.Reviewer != nil {
		if review.Reviewer == nil || *review.Reviewer != *filters.Reviewer {
			return false
		}
	}
	return true
}
