package api

import (
	"fmt"

	"github.com/copperline/arbiter/internal/cases"
	"github.com/copperline/arbiter/internal/config"
	"github.com/copperline/arbiter/internal/judges"
	"github.com/copperline/arbiter/internal/oversight"
	"github.com/copperline/arbiter/internal/panel"
	"github.com/copperline/arbiter/internal/submission"
)

// Domain holds all domain systems that comprise the API.
type Domain struct {
	Cases     cases.System
	Oversight oversight.System
	Panel     *panel.Panel
}

// NewDomain creates all domain systems from the API runtime. The local
// environment runs on in-memory stores and stand-in network adapters so
// the service works without a database or gateway; every other
// environment uses PostgreSQL and requires a configured submission
// endpoint.
func NewDomain(cfg *config.Config, runtime *Runtime) (*Domain, error) {
	registry := panel.NewRegistry()
	judges.Register(&cfg.Judges, registry)

	judgePanel := panel.New(
		&cfg.Panel,
		registry,
		runtime.Cache,
		runtime.Logger,
	)

	var (
		caseStore      cases.Store
		oversightStore oversight.Store
		submitter      submission.Submitter
		resolution     cases.ResolutionSource
	)
	if cfg.Env() == "local" {
		caseStore = cases.NewMemoryStore()
		oversightStore = oversight.NewMemoryStore()
		submitter = newLocalSubmitter(runtime.Logger)
		resolution = newLocalResolution()
	} else {
		if cfg.Submission.Endpoint == "" {
			return nil, fmt.Errorf("environment %q requires a submission endpoint", cfg.Env())
		}
		caseStore = cases.NewPostgresStore(runtime.Database.Connection())
		oversightStore = oversight.NewPostgresStore(runtime.Database.Connection())
		gateway := submission.NewClient(cfg.Submission.Endpoint)
		submitter = gateway
		resolution = gateway
	}

	oversightSystem := oversight.New(
		&cfg.Oversight,
		oversightStore,
		runtime.Logger,
		runtime.Pagination,
	)

	casesSystem := cases.New(cases.Options{
		Store:        caseStore,
		Panel:        judgePanel,
		Oversight:    oversightSystem,
		Submitter:    submission.NewRetrier(&cfg.Submission, submitter, runtime.Logger),
		Resolution:   resolution,
		Storage:      runtime.Storage,
		Logger:       runtime.Logger,
		Pagination:   runtime.Pagination,
		MaxUpload:    cfg.API.MaxUploadSizeBytes(),
		BatchWorkers: cfg.Judges.BatchWorkers,
	})

	return &Domain{
		Cases:     casesSystem,
		Oversight: oversightSystem,
		Panel:     judgePanel,
	}, nil
}
