// Package panel implements the evidence judge panel for arbiter.
// It fans out a case's evidence to all registered judges concurrently,
// enforces soft and hard deadlines, and reduces the individual verdicts
// into a single deterministic pass/fail result.
package panel

import (
	"time"

	"github.com/google/uuid"
)

// Input carries the case material a judge scores. Judges receive decisions
// only; they never mutate case state.
type Input struct {
	CaseID   uuid.UUID         `json:"case_id"`
	Reason   string            `json:"reason"`
	Amount   int64             `json:"amount"`
	Currency string            `json:"currency"`
	Evidence map[string]string `json:"evidence"`
}

// Verdict is the output of a single judge evaluation.
type Verdict struct {
	Judge      string  `json:"judge"`
	Pass       bool    `json:"pass"`
	Confidence float64 `json:"confidence"`
	Reason     string  `json:"reason"`
	Critical   bool    `json:"critical"`
	FromCache  bool    `json:"from_cache"`
}

// Result aggregates all verdicts for one panel invocation.
// Pass requires every critical judge to pass; non-critical verdicts are
// carried for telemetry only. FromCache is true only when every verdict
// was served from cache.
type Result struct {
	Pass      bool          `json:"pass"`
	Verdicts  []Verdict     `json:"verdicts"`
	Duration  time.Duration `json:"duration"`
	FromCache bool          `json:"from_cache"`
}

// MinConfidence returns the lowest confidence across all verdicts,
// or 1.0 for an empty result. The orchestrator feeds this to oversight
// so a single shaky judge forces the confidence check.
func (r *Result) MinConfidence() float64 {
	min := 1.0
	for _, v := range r.Verdicts {
		if v.Confidence < min {
			min = v.Confidence
		}
	}
	return min
}

// FailReasons returns the reasons of all failing verdicts in judge order.
func (r *Result) FailReasons() []string {
	var reasons []string
	for _, v := range r.Verdicts {
		if !v.Pass {
			reasons = append(reasons, v.Judge+": "+v.Reason)
		}
	}
	return reasons
}
