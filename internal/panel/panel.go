package panel

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sort"
	"time"

	"github.com/copperline/arbiter/pkg/cache"
)

// Panel runs all registered judges concurrently against a case and
// aggregates their verdicts. Evaluation is deliberately synchronous:
// the orchestrator must not submit a case before validation completes.
type Panel struct {
	registry     *Registry
	cache        cache.System
	logger       *slog.Logger
	judgeTimeout time.Duration
	hardTimeout  time.Duration
	cacheTTL     time.Duration
}

// New creates a Panel over the given registry and verdict cache.
func New(cfg *Config, registry *Registry, verdicts cache.System, logger *slog.Logger) *Panel {
	return &Panel{
		registry:     registry,
		cache:        verdicts,
		logger:       logger.With("system", "panel"),
		judgeTimeout: cfg.JudgeTimeoutDuration(),
		hardTimeout:  cfg.HardTimeoutDuration(),
		cacheTTL:     cfg.CacheTTLDuration(),
	}
}

// cachedVerdict is the cache wire form; judge identity and criticality are
// re-attached from the registry on read so a judge reconfiguration never
// resurrects stale metadata.
type cachedVerdict struct {
	Pass       bool    `json:"pass"`
	Confidence float64 `json:"confidence"`
	Reason     string  `json:"reason"`
}

// Evaluate scores the input with every registered judge. It returns when all
// judges have reported or the panel-wide hard timeout elapses, whichever
// comes first. Judges still outstanding at the hard deadline are recorded as
// failing, non-critical verdicts with reason "timeout". A caller deadline
// that expires before the panel finishes returns ErrTimeout.
func (p *Panel) Evaluate(ctx context.Context, input Input) (*Result, error) {
	judges := p.registry.Judges()
	if len(judges) == 0 {
		return nil, ErrNoJudges
	}

	if err := ctx.Err(); err != nil {
		return nil, ErrTimeout
	}

	start := time.Now()

	hardCtx, cancel := context.WithTimeout(ctx, p.hardTimeout)
	defer cancel()

	// Buffered so judges finishing after the hard deadline never block;
	// their results are simply discarded.
	results := make(chan Verdict, len(judges))

	for _, j := range judges {
		go func(j Judge) {
			results <- p.scoreOne(hardCtx, j, input)
		}(j)
	}

	verdicts := make(map[string]Verdict, len(judges))

collect:
	for range judges {
		select {
		case v := <-results:
			verdicts[v.Judge] = v
		case <-hardCtx.Done():
			break collect
		}
	}

	if err := ctx.Err(); err != nil {
		// The caller's own deadline expired, not the panel budget.
		return nil, ErrTimeout
	}

	for _, j := range judges {
		if _, ok := verdicts[j.Name()]; !ok {
			verdicts[j.Name()] = Verdict{
				Judge:      j.Name(),
				Pass:       false,
				Confidence: 0,
				Reason:     "timeout",
				Critical:   false,
			}
		}
	}

	result := aggregate(verdicts, time.Since(start))

	p.logger.InfoContext(ctx, "panel evaluated",
		"case_id", input.CaseID,
		"pass", result.Pass,
		"judges", len(result.Verdicts),
		"from_cache", result.FromCache,
		"duration", result.Duration,
	)

	return result, nil
}

// scoreOne wraps a single judge call with read-through caching and the
// per-judge soft timeout. It always returns a verdict, never an error:
// failures become failing verdicts per the panel failure semantics.
func (p *Panel) scoreOne(ctx context.Context, j Judge, input Input) Verdict {
	key := cacheKey(input, j.Name())

	if data, found, err := p.cache.Get(ctx, key); err == nil && found {
		var cached cachedVerdict
		if err := json.Unmarshal(data, &cached); err == nil {
			return Verdict{
				Judge:      j.Name(),
				Pass:       cached.Pass,
				Confidence: cached.Confidence,
				Reason:     cached.Reason,
				Critical:   j.Critical(),
				FromCache:  true,
			}
		}
	}

	judgeCtx, cancel := context.WithTimeout(ctx, p.judgeTimeout)
	defer cancel()

	verdict, err := j.Score(judgeCtx, input)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			return Verdict{
				Judge:    j.Name(),
				Pass:     false,
				Reason:   "timeout",
				Critical: false,
			}
		}
		return Verdict{
			Judge:    j.Name(),
			Pass:     false,
			Reason:   "judge unavailable: " + err.Error(),
			Critical: j.Critical(),
		}
	}

	verdict.Judge = j.Name()
	verdict.Critical = j.Critical()

	data, err := json.Marshal(cachedVerdict{
		Pass:       verdict.Pass,
		Confidence: verdict.Confidence,
		Reason:     verdict.Reason,
	})
	if err == nil {
		if err := p.cache.Put(ctx, key, data, p.cacheTTL); err != nil {
			p.logger.Warn("verdict cache write failed", "judge", j.Name(), "error", err)
		}
	}

	return verdict
}

// aggregate reduces verdicts into a Result. Verdicts are sorted by judge name
// first, so the outcome is identical regardless of completion order.
func aggregate(verdicts map[string]Verdict, duration time.Duration) *Result {
	sorted := make([]Verdict, 0, len(verdicts))
	for _, v := range verdicts {
		sorted = append(sorted, v)
	}
	sort.Slice(sorted, func(i, k int) bool {
		return sorted[i].Judge < sorted[k].Judge
	})

	pass := true
	fromCache := len(sorted) > 0
	for _, v := range sorted {
		if v.Critical && !v.Pass {
			pass = false
		}
		if !v.FromCache {
			fromCache = false
		}
	}

	return &Result{
		Pass:      pass,
		Verdicts:  sorted,
		Duration:  duration,
		FromCache: fromCache,
	}
}
