package api

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/copperline/arbiter/internal/submission"
)

// localSubmitter stands in for the payment-network adapter. It acknowledges
// every submission with a synthetic reference; production deployments swap
// in a real adapter behind the same interface.
type localSubmitter struct {
	logger *slog.Logger
}

func newLocalSubmitter(logger *slog.Logger) submission.Submitter {
	return &localSubmitter{logger: logger.With("adapter", "local-submitter")}
}

func (s *localSubmitter) Submit(ctx context.Context, req submission.Request) (*submission.Result, error) {
	s.logger.InfoContext(ctx, "acknowledging submission locally", "case_id", req.CaseID)
	return &submission.Result{
		Reference:   "local-" + uuid.NewString(),
		SubmittedAt: time.Now().UTC(),
	}, nil
}

// localResolution stands in for the network's resolution feed. It resolves
// every monitored case immediately as accepted.
type localResolution struct{}

func newLocalResolution() *localResolution {
	return &localResolution{}
}

func (localResolution) Check(_ context.Context, _ uuid.UUID) (string, bool, error) {
	return "accepted", true, nil
}
