// Package submission wraps the external network adapter that transmits a
// case to the payment network. The adapter itself is a collaborator; this
// package owns only the retry discipline around it.
package submission

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// ErrExhausted reports that every submission attempt failed.
var ErrExhausted = errors.New("submission attempts exhausted")

// Request carries the case material the network adapter needs.
// Translation into the network-specific schema belongs to the adapter.
type Request struct {
	CaseID   uuid.UUID         `json:"case_id"`
	Reason   string            `json:"reason"`
	Category string            `json:"category"`
	Amount   int64             `json:"amount"`
	Currency string            `json:"currency"`
	Evidence map[string]string `json:"evidence"`
}

// Result is the adapter's acknowledgment of an accepted submission.
type Result struct {
	Reference   string    `json:"reference"`
	SubmittedAt time.Time `json:"submitted_at"`
}

// Submitter is the network adapter contract.
type Submitter interface {
	Submit(ctx context.Context, req Request) (*Result, error)
}

// Retrier wraps a Submitter with bounded exponential backoff. Each failed
// attempt doubles the delay; the caller's context cancels the wait.
type Retrier struct {
	submitter Submitter
	logger    *slog.Logger
	attempts  int
	baseDelay time.Duration
}

// NewRetrier creates a Retrier around the given adapter.
func NewRetrier(cfg *Config, submitter Submitter, logger *slog.Logger) *Retrier {
	return &Retrier{
		submitter: submitter,
		logger:    logger.With("system", "submission"),
		attempts:  cfg.MaxAttempts,
		baseDelay: cfg.BaseDelayDuration(),
	}
}

// Submit attempts the submission up to the configured attempt cap.
// All attempt errors are folded into the returned ErrExhausted chain.
func (r *Retrier) Submit(ctx context.Context, req Request) (*Result, error) {
	delay := r.baseDelay
	var lastErr error

	for attempt := 1; attempt <= r.attempts; attempt++ {
		result, err := r.submitter.Submit(ctx, req)
		if err == nil {
			r.logger.InfoContext(ctx, "case submitted",
				"case_id", req.CaseID,
				"reference", result.Reference,
				"attempt", attempt,
			)
			return result, nil
		}

		lastErr = err
		r.logger.WarnContext(ctx, "submission attempt failed",
			"case_id", req.CaseID,
			"attempt", attempt,
			"error", err,
		)

		if attempt == r.attempts {
			break
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2
	}

	return nil, fmt.Errorf("%w after %d attempts: %w", ErrExhausted, r.attempts, lastErr)
}
