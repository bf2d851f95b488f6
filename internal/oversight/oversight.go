// Package oversight implements the tiered human-oversight policy for arbiter.
// It classifies risk-bearing actions into tiers, decides whether automated
// progress must be interrupted for human approval, and manages the lifecycle
// of the resulting review requests.
package oversight

import (
	"time"

	"github.com/google/uuid"
)

// Tier is an ordered risk classification. Tier1 always interrupts regardless
// of any score; Tier2 interrupts conditionally; Tier3 never interrupts but is
// still logged for audit.
type Tier string

// Risk tiers, highest first.
const (
	Tier1High   Tier = "tier1_high"
	Tier2Medium Tier = "tier2_medium"
	Tier3Low    Tier = "tier3_low"
)

// Action describes a pending risk-bearing action to classify.
type Action struct {
	Type       string  `json:"type"`
	Confidence float64 `json:"confidence"`
	Amount     int64   `json:"amount"`
	Category   string  `json:"category"`
}

// Decision is the immutable result of one tier classification.
// Every decision is logged, including non-interrupting Tier3 ones.
type Decision struct {
	ID         uuid.UUID `json:"id"`
	ActionType string    `json:"action_type"`
	Tier       Tier      `json:"tier"`
	Interrupt  bool      `json:"interrupt"`
	Reason     string    `json:"reason"`
	CreatedAt  time.Time `json:"created_at"`
}

// ReviewStatus is the lifecycle state of a review request.
type ReviewStatus string

// Review request states. Reviewers never delete requests; they transition status.
const (
	ReviewPending  ReviewStatus = "pending"
	ReviewApproved ReviewStatus = "approved"
	ReviewRejected ReviewStatus = "rejected"
	ReviewExpired  ReviewStatus = "expired"
)

// Review is a persisted human-approval task created when a classification
// interrupts. EvidenceDigest pins the case state the reviewer saw.
type Review struct {
	ID             uuid.UUID         `json:"id"`
	DecisionID     uuid.UUID         `json:"decision_id"`
	CaseID         uuid.UUID         `json:"case_id"`
	Context        map[string]string `json:"context"`
	EvidenceDigest string            `json:"evidence_digest"`
	Status         ReviewStatus      `json:"status"`
	Reviewer       *string           `json:"reviewer"`
	Notes          *string           `json:"notes"`
	CreatedAt      time.Time         `json:"created_at"`
	ResolvedAt     *time.Time        `json:"resolved_at"`
}

// Resolved reports whether the review has reached a terminal status.
func (r *Review) Resolved() bool {
	return r.Status != ReviewPending
}

// DecisionCommand carries the data needed to resolve a pending review.
type DecisionCommand struct {
	Approved bool   `json:"approved"`
	Reviewer string `json:"reviewer"`
	Notes    string `json:"notes"`
}

// EscalationStats summarizes classification outcomes over a time window.
type EscalationStats struct {
	Since         time.Time `json:"since"`
	Tier1         int       `json:"tier1"`
	Tier2         int       `json:"tier2"`
	Tier3         int       `json:"tier3"`
	Total         int       `json:"total"`
	Interrupts    int       `json:"interrupts"`
	InterruptRate float64   `json:"interrupt_rate"`
}
