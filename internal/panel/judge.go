package panel

import (
	"context"
	"sort"
	"sync"
)

// Judge is an opaque evaluator that scores a case's evidence.
// Implementations must respect ctx cancellation; the panel enforces
// deadlines around every Score call.
type Judge interface {
	// Name uniquely identifies the judge within a registry.
	Name() string
	// Critical reports whether a failing verdict from this judge
	// vetoes the aggregate regardless of other verdicts.
	Critical() bool
	// Score evaluates the input and returns a verdict.
	Score(ctx context.Context, input Input) (Verdict, error)
}

// Registry holds the set of judges invoked together for one validation pass.
// Iteration order is stable (sorted by name) so aggregation is deterministic.
type Registry struct {
	mu     sync.RWMutex
	judges map[string]Judge
}

// NewRegistry creates an empty judge registry.
func NewRegistry() *Registry {
	return &Registry{
		judges: make(map[string]Judge),
	}
}

// Register adds a judge, replacing any previous judge with the same name.
func (r *Registry) Register(j Judge) {
	r.mu.Lock()
	r.judges[j.Name()] = j
	r.mu.Unlock()
}

// Judges returns all registered judges sorted by name.
func (r *Registry) Judges() []Judge {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Judge, 0, len(r.judges))
	for _, j := range r.judges {
		out = append(out, j)
	}
	sort.Slice(out, func(i, k int) bool {
		return out[i].Name() < out[k].Name()
	})
	return out
}
