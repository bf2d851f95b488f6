// Package cases implements the dispute case orchestrator: a persisted,
// resumable state machine that drives a case from creation through
// evidence validation, human review, network submission, and resolution.
package cases

import (
	"time"

	"github.com/google/uuid"
)

// Phase is a case lifecycle state.
type Phase string

const (
	PhaseCreated           Phase = "created"
	PhaseClassifying       Phase = "classifying"
	PhaseGatheringEvidence Phase = "gathering_evidence"
	PhaseValidating        Phase = "validating"
	PhasePendingReview     Phase = "pending_review"
	PhaseSubmitting        Phase = "submitting"
	PhaseMonitoring        Phase = "monitoring"
	PhaseResolved          Phase = "resolved"
	PhaseRejected          Phase = "rejected"
)

// transitions is the full directed graph of legal phase changes. Movement
// is strictly forward except the review loop out of PendingReview; any
// non-terminal phase may fall to Rejected.
var transitions = map[Phase][]Phase{
	PhaseCreated:           {PhaseClassifying, PhaseRejected},
	PhaseClassifying:       {PhaseGatheringEvidence, PhaseRejected},
	PhaseGatheringEvidence: {PhaseValidating, PhaseRejected},
	PhaseValidating:        {PhasePendingReview, PhaseSubmitting, PhaseRejected},
	PhasePendingReview:     {PhaseValidating, PhaseSubmitting, PhaseRejected},
	PhaseSubmitting:        {PhaseMonitoring, PhaseRejected},
	PhaseMonitoring:        {PhaseResolved, PhaseRejected},
}

// Terminal reports whether no further transitions are allowed.
func (p Phase) Terminal() bool {
	return p == PhaseResolved || p == PhaseRejected
}

// CanTransition reports whether moving from p to next is legal.
func (p Phase) CanTransition(next Phase) bool {
	for _, allowed := range transitions[p] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Case is the unit of work. It is owned exclusively by the orchestrator
// and mutated only through phase transitions; judges and the oversight
// controller return decisions, never mutations.
type Case struct {
	ID            uuid.UUID         `json:"id"`
	Phase         Phase             `json:"phase"`
	ActionType    string            `json:"action_type"`
	ReasonCode    string            `json:"reason_code"`
	Category      string            `json:"category,omitempty"`
	Amount        int64             `json:"amount"`
	Currency      string            `json:"currency"`
	Evidence      map[string]string `json:"evidence"`
	Version       int               `json:"version"`
	ReviewID      *uuid.UUID        `json:"review_id,omitempty"`
	SubmissionRef *string           `json:"submission_ref,omitempty"`
	Resolution    *string           `json:"resolution,omitempty"`
	RejectReason  *string           `json:"reject_reason,omitempty"`
	CreatedAt     time.Time         `json:"created_at"`
	UpdatedAt     time.Time         `json:"updated_at"`
}

// CreateCommand carries the declared inputs for a new case.
type CreateCommand struct {
	ActionType string `json:"action_type"`
	ReasonCode string `json:"reason_code"`
	Amount     int64  `json:"amount"`
	Currency   string `json:"currency"`
}

// DecisionCommand records a human reviewer's verdict on a pending review.
type DecisionCommand struct {
	Approved bool   `json:"approved"`
	Reviewer string `json:"reviewer"`
	Notes    string `json:"notes"`
}
