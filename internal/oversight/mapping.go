package oversight

import (
	"net/url"

	"github.com/google/uuid"

	"github.com/copperline/arbiter/pkg/query"
)

var reviewProjection = query.
	NewProjectionMap("public", "reviews", "r").
	Project("id", "ID").
	Project("decision_id", "DecisionID").
	Project("case_id", "CaseID").
	Project("context", "Context").
	Project("evidence_digest", "EvidenceDigest").
	Project("status", "Status").
	Project("reviewer", "Reviewer").
	Project("notes", "Notes").
	Project("created_at", "CreatedAt").
	Project("resolved_at", "ResolvedAt")

var defaultReviewSort = query.SortField{
	Field:      "CreatedAt",
	Descending: false,
}

// Filters contains optional filtering criteria for review queries.
// Nil fields are ignored.
type Filters struct {
	Status   *string    `json:"status,omitempty"`
	CaseID   *uuid.UUID `json:"case_id,omitempty"`
	Reviewer *string    `json:"reviewer,omitempty"`
}

// Apply adds filter conditions to a query builder.
func (f Filters) Apply(b *query.Builder) *query.Builder {
	return b.
		WhereEquals("Status", f.Status).
		WhereEquals("CaseID", f.CaseID).
		WhereEquals("Reviewer", f.Reviewer)
}

// FiltersFromQuery extracts filter values from URL query parameters.
func FiltersFromQuery(values url.Values) Filters {
	var f Filters

	if s := values.Get("status"); s != "" {
		f.Status = &s
	}

	if c := values.Get("case_id"); c != "" {
		if id, err := uuid.Parse(c); err == nil {
			f.CaseID = &id
		}
	}

	if r := values.Get("reviewer"); r != "" {
		f.Reviewer = &r
	}

	return f
}
