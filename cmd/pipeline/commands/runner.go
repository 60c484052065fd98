package commands

import (
	"context"

	"github.com/okian/civicrank/internal/adapters/repository"
	"github.com/okian/civicrank/internal/adapters/upstream"
	"github.com/okian/civicrank/internal/adapters/upstream/clerk"
	"github.com/okian/civicrank/internal/adapters/upstream/congressgov"
	"github.com/okian/civicrank/internal/adapters/upstream/govtrack"
	"github.com/okian/civicrank/internal/adapters/upstream/legislators"
	"github.com/okian/civicrank/internal/config"
	"github.com/okian/civicrank/internal/domain/scoring"
	"github.com/okian/civicrank/internal/pipeline"
	"github.com/okian/civicrank/pkg/logger"
)

func upstreamConfig(c *config.Config, baseURL string) upstream.Config {
	return upstream.Config{
		BaseURL:    baseURL,
		Timeout:    c.HTTPTimeout(),
		MaxRetries: c.MaxRetries,
		Backoff:    c.RetryBackoff(),
		Delay:      c.RequestDelay(),
	}
}

// newRunner wires the upstream clients, stores and scorer from c. The
// returned closer releases the history database when one is configured.
func newRunner(ctx context.Context, c *config.Config) (*pipeline.Runner, func(), error) {
	log := logger.Named("pipeline")

	scorer := scoring.NewPowerScorer(
		scoring.WithWeightsFromConfig(c.PowerWeights),
		scoring.WithRoleWeights(c.CommitteeRoleWeights),
		scoring.WithMisconductPenalty(c.MisconductPenalty),
	)

	opts := []pipeline.Option{
		pipeline.WithLogger(log),
		pipeline.WithStore(repository.NewFileStore(c.DataDir, repository.WithLogger(log))),
		pipeline.WithReports(repository.NewFileStore(c.ReportsDir, repository.WithLogger(log))),
		pipeline.WithRoster(legislators.New(upstreamConfig(c, c.LegislatorsBaseURL))),
		pipeline.WithRoles(govtrack.New(upstreamConfig(c, c.GovTrackBaseURL))),
		pipeline.WithLegislation(congressgov.New(upstreamConfig(c, c.CongressBaseURL), c.CongressAPIKey,
			congressgov.WithCongress(c.Congress))),
		pipeline.WithVotes(clerk.New(upstreamConfig(c, c.SenateBaseURL), upstreamConfig(c, c.HouseClerkBaseURL))),
		pipeline.WithScorer(scorer),
		pipeline.WithSession(c.Congress, c.Session),
		pipeline.WithWorkers(c.FetchWorkers),
		pipeline.WithMaxRollCalls(c.MaxRollCalls),
		pipeline.WithNameThreshold(c.NameMatchThreshold),
	}

	closer := func() {}
	if c.HistoryDB != "" {
		h, err := repository.OpenHistory(ctx, c.HistoryDB, repository.WithMkdirAll())
		if err != nil {
			return nil, nil, err
		}
		opts = append(opts, pipeline.WithHistory(h))
		closer = func() {
			if err := h.Close(); err != nil {
				log.Warn(ctx, "closing history failed", logger.Error(err))
			}
		}
	}
	return pipeline.NewRunner(opts...), closer, nil
}

func openHistory(ctx context.Context, c *config.Config) (*repository.HistoryStore, error) {
	if c.HistoryDB == "" {
		return nil, ErrNoHistory
	}
	return repository.OpenHistory(ctx, c.HistoryDB)
}
