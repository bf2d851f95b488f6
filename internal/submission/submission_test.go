package submission_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/copperline/arbiter/internal/submission"
)

// scriptedSubmitter returns the scripted errors in order, then succeeds.
type scriptedSubmitter struct {
	errs  []error
	calls int
}

func (s *scriptedSubmitter) Submit(_ context.Context, req submission.Request) (*submission.Result, error) {
	s.calls++
	if s.calls <= len(s.errs) {
		return nil, s.errs[s.calls-1]
	}
	return &submission.Result{
		Reference:   "ref-" + req.CaseID.String(),
		SubmittedAt: time.Now().UTC(),
	}, nil
}

func newRetrier(t *testing.T, submitter submission.Submitter, attempts int) *submission.Retrier {
	t.Helper()

	cfg := &submission.Config{MaxAttempts: attempts, BaseDelay: "1ms"}
	if err := cfg.Finalize(nil); err != nil {
		t.Fatalf("finalize config: %v", err)
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return submission.NewRetrier(cfg, submitter, logger)
}

func testRequest() submission.Request {
	return submission.Request{
		CaseID:   uuid.New(),
		Reason:   "duplicate_charge",
		Category: "processing",
		Amount:   100_00,
		Currency: "USD",
		Evidence: map[string]string{"transaction_record": "txn"},
	}
}

func TestSubmitFirstAttempt(t *testing.T) {
	adapter := &scriptedSubmitter{}
	retrier := newRetrier(t, adapter, 3)

	result, err := retrier.Submit(context.Background(), testRequest())
	if err != nil {
		t.Fatalf("submit failed: %v", err)
	}
	if result.Reference == "" {
		t.Error("reference not set")
	}
	if adapter.calls != 1 {
		t.Errorf("calls = %d, want 1", adapter.calls)
	}
}

func TestSubmitRetriesTransientFailures(t *testing.T) {
	adapter := &scriptedSubmitter{errs: []error{
		errors.New("gateway timeout"),
		errors.New("gateway timeout"),
	}}
	retrier := newRetrier(t, adapter, 3)

	result, err := retrier.Submit(context.Background(), testRequest())
	if err != nil {
		t.Fatalf("submit failed: %v", err)
	}
	if result == nil {
		t.Fatal("nil result on success")
	}
	if adapter.calls != 3 {
		t.Errorf("calls = %d, want 3", adapter.calls)
	}
}

func TestSubmitExhaustsAttempts(t *testing.T) {
	cause := errors.New("connection refused")
	adapter := &scriptedSubmitter{errs: []error{cause, cause, cause}}
	retrier := newRetrier(t, adapter, 3)

	_, err := retrier.Submit(context.Background(), testRequest())
	if !errors.Is(err, submission.ErrExhausted) {
		t.Fatalf("err = %v, want ErrExhausted", err)
	}
	if !errors.Is(err, cause) {
		t.Errorf("err = %v, want the last attempt error in the chain", err)
	}
	if adapter.calls != 3 {
		t.Errorf("calls = %d, want exactly the attempt cap", adapter.calls)
	}
}

func TestSubmitCancelledDuringBackoff(t *testing.T) {
	adapter := &scriptedSubmitter{errs: []error{
		errors.New("gateway timeout"),
		errors.New("gateway timeout"),
		errors.New("gateway timeout"),
	}}

	cfg := &submission.Config{MaxAttempts: 3, BaseDelay: "1h"}
	if err := cfg.Finalize(nil); err != nil {
		t.Fatalf("finalize config: %v", err)
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	retrier := submission.NewRetrier(cfg, adapter, logger)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := retrier.Submit(ctx, testRequest())
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("err = %v, want context deadline", err)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("submit blocked %v past the context deadline", elapsed)
	}
	if adapter.calls != 1 {
		t.Errorf("calls = %d, want 1 before cancellation", adapter.calls)
	}
}

func TestConfigValidation(t *testing.T) {
	cfg := &submission.Config{MaxAttempts: -1}
	if err := cfg.Finalize(nil); err == nil {
		t.Error("negative max_attempts accepted")
	}

	cfg = &submission.Config{BaseDelay: "not-a-duration"}
	if err := cfg.Finalize(nil); err == nil {
		t.Error("unparseable base_delay accepted")
	}

	cfg = &submission.Config{}
	if err := cfg.Finalize(nil); err != nil {
		t.Fatalf("defaults rejected: %v", err)
	}
	if cfg.MaxAttempts != 3 || cfg.BaseDelayDuration() != 500*time.Millisecond {
		t.Errorf("defaults = %d/%v, want 3/500ms", cfg.MaxAttempts, cfg.BaseDelayDuration())
	}
}
