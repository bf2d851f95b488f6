package cases

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/copperline/arbiter/pkg/pagination"
)

// memoryStore is the in-process store used for local development and tests.
// It enforces the same optimistic version check as the PostgreSQL store.
type memoryStore struct {
	mu    sync.RWMutex
	cases map[uuid.UUID]*Case
}

// NewMemoryStore creates an empty in-memory case store.
func NewMemoryStore() Store {
	return &memoryStore{
		cases: make(map[uuid.UUID]*Case),
	}
}

func (s *memoryStore) Insert(_ context.Context, c *Case) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.cases[c.ID]; exists {
		return ErrDuplicate
	}

	s.cases[c.ID] = cloneCase(c)
	return nil
}

func (s *memoryStore) Load(_ context.Context, id uuid.UUID) (*Case, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.cases[id]
	if !ok {
		return nil, ErrCaseNotFound
	}
	return cloneCase(c), nil
}

func (s *memoryStore) Save(_ context.Context, c *Case, expectedVersion int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.cases[c.ID]
	if !ok {
		return ErrCaseNotFound
	}
	if stored.Version != expectedVersion {
		return ErrConcurrentModification
	}

	s.cases[c.ID] = cloneCase(c)
	return nil
}

func (s *memoryStore) List(
	_ context.Context,
	page pagination.PageRequest,
	filters Filters,
) (*pagination.PageResult[Case], error) {
	s.mu.RLock()
	matched := make([]Case, 0, len(s.cases))
	for _, c := range s.cases {
		if matchesFilters(c, filters) {
			matched = append(matched, *cloneCase(c))
		}
	}
	s.mu.RUnlock()

	sort.Slice(matched, func(i, k int) bool {
		return matched[i].CreatedAt.After(matched[k].CreatedAt)
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

func (s *memoryStore) FindByReview(_ context.Context, reviewID uuid.UUID) (*Case, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, c := range s.cases {
		if c.ReviewID != nil && *c.ReviewID == reviewID {
			return cloneCase(c), nil
		}
	}
	return nil, ErrCaseNotFound
}

func matchesFilters(c *Case, filters Filters) bool {
	if filters.Phase != nil && string(c.Phase) != *filters.Phase {
		return false
	}
	if filters.Category != nil && c.Category != *filters.Category {
		return false
	}
	if filters.ReasonCode != nil && c.ReasonCode != *filters.ReasonCode {
		return false
	}
	if filters.Currency != nil && c.Currency != *filters.Currency {
		return false
	}
	return true
}

// cloneCase deep-copies a case so callers never share the stored evidence map.
func cloneCase(c *Case) *Case {
	clone := *c
	clone.Evidence = make(map[string]string, len(c.Evidence))
	for kind, value := range c.Evidence {
		clone.Evidence[kind] = value
	}
	return &clone
}
