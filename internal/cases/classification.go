package cases

import "sort"

// Classification maps a declared reason code onto a canonical category and
// the evidence kinds that must be present before validation can run.
// Classification is deterministic given the same inputs; no external calls.
type Classification struct {
	Category string
	Required []string
}

// classifications is the reason-code table. Unknown codes fall back to
// the general classification.
var classifications = map[string]Classification{
	"fraud_unauthorized": {
		Category: "fraud",
		Required: []string{"transaction_record", "cardholder_statement"},
	},
	"fraud_card_absent": {
		Category: "fraud",
		Required: []string{"transaction_record", "cardholder_statement", "device_fingerprint"},
	},
	"goods_not_received": {
		Category: "service",
		Required: []string{"transaction_record", "shipping_proof"},
	},
	"goods_defective": {
		Category: "service",
		Required: []string{"transaction_record", "merchant_response"},
	},
	"duplicate_charge": {
		Category: "processing",
		Required: []string{"transaction_record", "duplicate_reference"},
	},
	"credit_not_processed": {
		Category: "processing",
		Required: []string{"transaction_record", "refund_agreement"},
	},
}

var generalClassification = Classification{
	Category: "general",
	Required: []string{"transaction_record"},
}

// Classify resolves a reason code to its classification.
func Classify(reasonCode string) Classification {
	if c, ok := classifications[reasonCode]; ok {
		return c
	}
	return generalClassification
}

// MissingEvidence returns the required evidence kinds the case does not yet
// hold, sorted for stable output. Empty means the completeness predicate holds.
func MissingEvidence(c *Case) []string {
	classification := Classify(c.ReasonCode)

	var missing []string
	for _, kind := range classification.Required {
		if _, ok := c.Evidence[kind]; !ok {
			missing = append(missing, kind)
		}
	}

	sort.Strings(missing)
	return missing
}
