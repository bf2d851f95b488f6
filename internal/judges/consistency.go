package judges

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/copperline/arbiter/internal/panel"
)

// currencies the network adapters accept.
var supportedCurrencies = map[string]bool{
	"USD": true,
	"EUR": true,
	"GBP": true,
	"CAD": true,
	"AUD": true,
	"JPY": true,
}

// maxDisputeAmount is the network ceiling in minor units.
const maxDisputeAmount = 100_000_00

// Consistency runs structural sanity checks on the case itself: amount
// bounds, currency support, and agreement between the declared amount and
// any amount stated in the transaction record. Critical.
type Consistency struct{}

func (Consistency) Name() string   { return "consistency" }
func (Consistency) Critical() bool { return true }

func (Consistency) Score(_ context.Context, input panel.Input) (panel.Verdict, error) {
	if input.Amount <= 0 {
		return fail("amount must be positive"), nil
	}
	if input.Amount > maxDisputeAmount {
		return fail(fmt.Sprintf("amount %d exceeds network ceiling %d", input.Amount, maxDisputeAmount)), nil
	}
	if !supportedCurrencies[strings.ToUpper(input.Currency)] {
		return fail(fmt.Sprintf("unsupported currency %q", input.Currency)), nil
	}

	// The transaction record may declare its own amount; a mismatch with the
	// case is a hard signal of a mis-filed dispute.
	if declared, ok := declaredAmount(input.Evidence["transaction_record"]); ok && declared != input.Amount {
		return fail(fmt.Sprintf("case amount %d disagrees with transaction record amount %d", input.Amount, declared)), nil
	}

	return panel.Verdict{
		Pass:       true,
		Confidence: 1.0,
		Reason:     "amount, currency, and transaction record agree",
	}, nil
}

func fail(reason string) panel.Verdict {
	return panel.Verdict{Pass: false, Confidence: 1.0, Reason: reason}
}

// declaredAmount extracts an "amount=<minor units>" token from the
// transaction record evidence, if present.
func declaredAmount(record string) (int64, bool) {
	for _, field := range strings.Fields(record) {
		value, found := strings.CutPrefix(field, "amount=")
		if !found {
			continue
		}
		amount, err := strconv.ParseInt(strings.TrimRight(value, ",;"), 10, 64)
		if err != nil {
			return 0, false
		}
		return amount, true
	}
	return 0, false
}
