// Package judges provides the evaluators registered with the panel:
// two rule-based critical checks and one model-backed advisory check.
package judges

import (
	"context"
	"fmt"
	"strings"

	"github.com/copperline/arbiter/internal/cases"
	"github.com/copperline/arbiter/internal/panel"
)

// Completeness verifies that every evidence kind required for the case's
// classified reason is present and non-empty. Critical: a dispute missing
// mandatory evidence must never reach the network.
type Completeness struct{}

func (Completeness) Name() string   { return "completeness" }
func (Completeness) Critical() bool { return true }

func (Completeness) Score(_ context.Context, input panel.Input) (panel.Verdict, error) {
	classification := cases.Classify(input.Reason)

	var missing []string
	for _, kind := range classification.Required {
		if strings.TrimSpace(input.Evidence[kind]) == "" {
			missing = append(missing, kind)
		}
	}

	if len(missing) > 0 {
		return panel.Verdict{
			Pass:       false,
			Confidence: 1.0,
			Reason:     fmt.Sprintf("missing required evidence: %s", strings.Join(missing, ", ")),
		}, nil
	}

	return panel.Verdict{
		Pass:       true,
		Confidence: 1.0,
		Reason:     fmt.Sprintf("all %d required evidence kinds present", len(classification.Required)),
	}, nil
}
