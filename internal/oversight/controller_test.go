package oversight_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/copperline/arbiter/internal/oversight"
	"github.com/copperline/arbiter/pkg/pagination"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testConfig(t *testing.T) *oversight.Config {
	t.Helper()

	cfg := &oversight.Config{}
	if err := cfg.Finalize(nil); err != nil {
		t.Fatalf("finalize config: %v", err)
	}
	return cfg
}

func newController(t *testing.T) oversight.System {
	t.Helper()

	return oversight.New(
		testConfig(t),
		oversight.NewMemoryStore(),
		testLogger(),
		pagination.Config{DefaultPageSize: 20, MaxPageSize: 100},
	)
}

func TestClassify(t *testing.T) {
	sys := newController(t)

	tests := []struct {
		name          string
		action        oversight.Action
		wantTier      oversight.Tier
		wantInterrupt bool
		wantReason    string
	}{
		{
			name:          "restricted action interrupts at full confidence",
			action:        oversight.Action{Type: "blockPayment", Confidence: 1.0, Amount: 1, Category: "general"},
			wantTier:      oversight.Tier1High,
			wantInterrupt: true,
			wantReason:    "restricted action type",
		},
		{
			name:          "restricted action ignores amount",
			action:        oversight.Action{Type: "closeAccount", Confidence: 0.99, Amount: 0, Category: "general"},
			wantTier:      oversight.Tier1High,
			wantInterrupt: true,
			wantReason:    "restricted action type",
		},
		{
			name:          "low confidence",
			action:        oversight.Action{Type: "submitDispute", Confidence: 0.5, Amount: 100, Category: "general"},
			wantTier:      oversight.Tier2Medium,
			wantInterrupt: true,
			wantReason:    "confidence",
		},
		{
			name:          "amount over threshold",
			action:        oversight.Action{Type: "submitDispute", Confidence: 0.95, Amount: 900_00, Category: "general"},
			wantTier:      oversight.Tier2Medium,
			wantInterrupt: true,
			wantReason:    "amount",
		},
		{
			name:          "high-risk category",
			action:        oversight.Action{Type: "submitDispute", Confidence: 0.95, Amount: 100_00, Category: "fraud"},
			wantTier:      oversight.Tier2Medium,
			wantInterrupt: true,
			wantReason:    "high-risk category",
		},
		{
			name:          "below all thresholds",
			action:        oversight.Action{Type: "submitDispute", Confidence: 0.95, Amount: 50, Category: "general"},
			wantTier:      oversight.Tier3Low,
			wantInterrupt: false,
			wantReason:    "below all thresholds",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			decision := sys.Classify(tt.action)

			if decision.Tier != tt.wantTier {
				t.Errorf("Tier = %s, want %s", decision.Tier, tt.wantTier)
			}
			if decision.Interrupt != tt.wantInterrupt {
				t.Errorf("Interrupt = %v, want %v", decision.Interrupt, tt.wantInterrupt)
			}
			if !strings.Contains(decision.Reason, tt.wantReason) {
				t.Errorf("Reason = %q, want it to contain %q", decision.Reason, tt.wantReason)
			}
			if decision.ID == uuid.Nil {
				t.Error("decision ID not assigned")
			}
		})
	}
}

func TestReviewLifecycle(t *testing.T) {
	ctx := context.Background()
	sys := newController(t)

	decision := sys.Classify(oversight.Action{Type: "blockPayment", Confidence: 1.0})
	caseID := uuid.New()

	review, err := sys.RequestReview(ctx, decision, caseID, "digest-1", map[string]string{"amount": "100"})
	if err != nil {
		t.Fatalf("request review failed: %v", err)
	}
	if review.Status != oversight.ReviewPending {
		t.Errorf("Status = %s, want pending", review.Status)
	}
	if review.Resolved() {
		t.Error("pending review reports resolved")
	}

	found, err := sys.Find(ctx, review.ID)
	if err != nil {
		t.Fatalf("find failed: %v", err)
	}
	if found.CaseID != caseID || found.EvidenceDigest != "digest-1" {
		t.Errorf("found review %+v does not match request", found)
	}

	resolved, err := sys.RecordDecision(ctx, review.ID, oversight.DecisionCommand{
		Approved: true,
		Reviewer: "analyst-1",
		Notes:    "evidence checks out",
	})
	if err != nil {
		t.Fatalf("record decision failed: %v", err)
	}
	if resolved.Status != oversight.ReviewApproved {
		t.Errorf("Status = %s, want approved", resolved.Status)
	}
	if resolved.Reviewer == nil || *resolved.Reviewer != "analyst-1" {
		t.Error("reviewer not recorded")
	}
	if resolved.ResolvedAt == nil {
		t.Error("ResolvedAt not set")
	}

	// A resolved review cannot be decided again.
	_, err = sys.RecordDecision(ctx, review.ID, oversight.DecisionCommand{Approved: false, Reviewer: "analyst-2"})
	if !errors.Is(err, oversight.ErrReviewResolved) {
		t.Errorf("second decision err = %v, want ErrReviewResolved", err)
	}
}

func TestRecordDecisionRequiresReviewer(t *testing.T) {
	sys := newController(t)

	_, err := sys.RecordDecision(context.Background(), uuid.New(), oversight.DecisionCommand{Approved: true})
	if !errors.Is(err, oversight.ErrMissingReviewer) {
		t.Errorf("err = %v, want ErrMissingReviewer", err)
	}
}

func TestRecordDecisionNotFound(t *testing.T) {
	sys := newController(t)

	_, err := sys.RecordDecision(context.Background(), uuid.New(), oversight.DecisionCommand{
		Approved: true,
		Reviewer: "analyst-1",
	})
	if !errors.Is(err, oversight.ErrReviewNotFound) {
		t.Errorf("err = %v, want ErrReviewNotFound", err)
	}
}

func TestExpireStale(t *testing.T) {
	ctx := context.Background()

	cfg := testConfig(t)
	cfg.ReviewTTL = "1ms"

	sys := oversight.New(cfg, oversight.NewMemoryStore(), testLogger(), pagination.Config{DefaultPageSize: 20, MaxPageSize: 100})

	decision := sys.Classify(oversight.Action{Type: "blockPayment"})
	review, err := sys.RequestReview(ctx, decision, uuid.New(), "digest", nil)
	if err != nil {
		t.Fatalf("request review failed: %v", err)
	}

	time.Sleep(5 * time.Millisecond)

	expired, err := sys.ExpireStale(ctx)
	if err != nil {
		t.Fatalf("expire failed: %v", err)
	}
	if len(expired) != 1 || expired[0].ID != review.ID {
		t.Fatalf("expired = %v, want the pending review", expired)
	}

	found, err := sys.Find(ctx, review.ID)
	if err != nil {
		t.Fatalf("find failed: %v", err)
	}
	if found.Status != oversight.ReviewExpired {
		t.Errorf("Status = %s, want expired", found.Status)
	}

	// Expired reviews cannot be decided.
	_, err = sys.RecordDecision(ctx, review.ID, oversight.DecisionCommand{Approved: true, Reviewer: "analyst-1"})
	if !errors.Is(err, oversight.ErrReviewResolved) {
		t.Errorf("decision on expired review err = %v, want ErrReviewResolved", err)
	}
}

func TestExpirePendingStampsGivenTime(t *testing.T) {
	ctx := context.Background()
	store := oversight.NewMemoryStore()

	review := &oversight.Review{
		ID:        uuid.New(),
		CaseID:    uuid.New(),
		Status:    oversight.ReviewPending,
		CreatedAt: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	if err := store.InsertReview(ctx, review); err != nil {
		t.Fatalf("insert review failed: %v", err)
	}

	at := time.Date(2026, 1, 5, 12, 0, 0, 0, time.UTC)
	expired, err := store.ExpirePending(ctx, at, at)
	if err != nil {
		t.Fatalf("expire failed: %v", err)
	}
	if len(expired) != 1 {
		t.Fatalf("expired %d reviews, want 1", len(expired))
	}
	if expired[0].ResolvedAt == nil || !expired[0].ResolvedAt.Equal(at) {
		t.Errorf("ResolvedAt = %v, want exactly %v", expired[0].ResolvedAt, at)
	}
}

func TestStats(t *testing.T) {
	ctx := context.Background()
	sys := newController(t)

	actions := []oversight.Action{
		{Type: "blockPayment", Confidence: 1.0},                                 // tier1
		{Type: "submitDispute", Confidence: 0.5},                                // tier2
		{Type: "submitDispute", Confidence: 0.95, Amount: 50},                   // tier3
		{Type: "submitDispute", Confidence: 0.95, Amount: 40, Category: "misc"}, // tier3
	}
	for _, action := range actions {
		if err := sys.Record(ctx, sys.Classify(action)); err != nil {
			t.Fatalf("record failed: %v", err)
		}
	}

	stats, err := sys.Stats(ctx, time.Hour)
	if err != nil {
		t.Fatalf("stats failed: %v", err)
	}

	if stats.Tier1 != 1 || stats.Tier2 != 1 || stats.Tier3 != 2 {
		t.Errorf("tier counts = %d/%d/%d, want 1/1/2", stats.Tier1, stats.Tier2, stats.Tier3)
	}
	if stats.Total != 4 {
		t.Errorf("Total = %d, want 4", stats.Total)
	}
	if stats.Interrupts != 2 {
		t.Errorf("Interrupts = %d, want 2", stats.Interrupts)
	}
	if stats.InterruptRate != 0.5 {
		t.Errorf("InterruptRate = %v, want 0.5", stats.InterruptRate)
	}
}

func TestListReviewsFilters(t *testing.T) {
	ctx := context.Background()
	sys := newController(t)

	caseA := uuid.New()
	decision := sys.Classify(oversight.Action{Type: "blockPayment"})

	first, err := sys.RequestReview(ctx, decision, caseA, "d1", nil)
	if err != nil {
		t.Fatalf("request review failed: %v", err)
	}
	if _, err := sys.RequestReview(ctx, decision, uuid.New(), "d2", nil); err != nil {
		t.Fatalf("request review failed: %v", err)
	}
	if _, err := sys.RecordDecision(ctx, first.ID, oversight.DecisionCommand{Approved: true, Reviewer: "analyst-1"}); err != nil {
		t.Fatalf("record decision failed: %v", err)
	}

	pending := string(oversight.ReviewPending)
	page := pagination.PageRequest{Page: 1, PageSize: 10}

	result, err := sys.List(ctx, page, oversight.Filters{Status: &pending})
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if result.Total != 1 {
		t.Errorf("pending Total = %d, want 1", result.Total)
	}

	result, err = sys.List(ctx, page, oversight.Filters{CaseID: &caseA})
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if result.Total != 1 {
		t.Errorf("caseA Total = %d, want 1", result.Total)
	}

	result, err = sys.List(ctx, page, oversight.Filters{})
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if result.Total != 2 {
		t.Errorf("unfiltered Total = %d, want 2", result.Total)
	}
}
