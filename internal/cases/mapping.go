package cases

import (
	"net/url"

	"github.com/copperline/arbiter/pkg/query"
)

var caseProjection = query.
	NewProjectionMap("public", "cases", "c").
	Project("id", "ID").
	Project("phase", "Phase").
	Project("action_type", "ActionType").
	Project("reason_code", "ReasonCode").
	Project("category", "Category").
	Project("amount", "Amount").
	Project("currency", "Currency").
	Project("evidence", "Evidence").
	Project("version", "Version").
	Project("review_id", "ReviewID").
	Project("submission_ref", "SubmissionRef").
	Project("resolution", "Resolution").
	Project("reject_reason", "RejectReason").
	Project("created_at", "CreatedAt").
	Project("updated_at", "UpdatedAt")

var defaultCaseSort = query.SortField{
	Field:      "CreatedAt",
	Descending: true,
}

// Filters contains optional filtering criteria for case queries.
// Nil fields are ignored.
type Filters struct {
	Phase      *string `json:"phase,omitempty"`
	Category   *string `json:"category,omitempty"`
	ReasonCode *string `json:"reason_code,omitempty"`
	Currency   *string `json:"currency,omitempty"`
}

// Apply adds filter conditions to a query builder.
func (f Filters) Apply(b *query.Builder) *query.Builder {
	return b.
		WhereEquals("Phase", f.Phase).
		WhereEquals("Category", f.Category).
		WhereEquals("ReasonCode", f.ReasonCode).
		WhereEquals("Currency", f.Currency)
}

// FiltersFromQuery extracts filter values from URL query parameters.
func FiltersFromQuery(values url.Values) Filters {
	var f Filters

	if p := values.Get("phase"); p != "" {
		f.Phase = &p
	}

	if c := values.Get("category"); c != "" {
		f.Category = &c
	}

	if r := values.Get("reason_code"); r != "" {
		f.ReasonCode = &r
	}

	if cur := values.Get("currency"); cur != "" {
		f.Currency = &cur
	}

	return f
}
