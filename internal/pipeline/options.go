package pipeline

import (
	"time"

	"github.com/okian/civicrank/internal/adapters/repository"
	"github.com/okian/civicrank/internal/domain/scoring"
	"github.com/okian/civicrank/pkg/logger"
)

// Option configures a Runner.
type Option func(*Runner)

// WithStore sets the data directory store. Required by every stage.
func WithStore(s *repository.FileStore) Option {
	return func(r *Runner) { r.store = s }
}

// WithReports sets where diagnostics are written.
func WithReports(s *repository.FileStore) Option {
	return func(r *Runner) { r.reports = s }
}

// WithHistory records every streak update in h.
func WithHistory(h *repository.HistoryStore) Option {
	return func(r *Runner) { r.history = h }
}

// WithRoster sets the congress-legislators source.
func WithRoster(s RosterSource) Option {
	return func(r *Runner) { r.roster = s }
}

// WithRoles sets the GovTrack source. Without it bootstrap writes no profiles.
func WithRoles(s RoleSource) Option {
	return func(r *Runner) { r.roles = s }
}

// WithLegislation sets the Congress.gov source.
func WithLegislation(s LegislationSource) Option {
	return func(r *Runner) { r.bills = s }
}

// WithVotes sets the clerk feeds source.
func WithVotes(s VoteSource) Option {
	return func(r *Runner) { r.votes = s }
}

// WithScorer replaces the default power scorer.
func WithScorer(s scoring.Scorer) Option {
	return func(r *Runner) {
		if s != nil {
			r.scorer = s
		}
	}
}

// WithSession selects the congress and session to aggregate.
func WithSession(congress, session int) Option {
	return func(r *Runner) {
		if congress > 0 {
			r.congress = congress
		}
		if session > 0 {
			r.session = session
		}
	}
}

// WithWorkers sets the fetch pool width.
func WithWorkers(n int) Option {
	return func(r *Runner) {
		if n > 0 {
			r.workers = n
		}
	}
}

// WithMaxRollCalls keeps only the latest n roll calls per chamber; 0 keeps all.
func WithMaxRollCalls(n int) Option {
	return func(r *Runner) {
		if n >= 0 {
			r.maxRollCalls = n
		}
	}
}

// WithNameThreshold sets the fuzzy name match threshold.
func WithNameThreshold(t float64) Option {
	return func(r *Runner) {
		if t > 0 && t <= 1 {
			r.nameThreshold = t
		}
	}
}

// WithClock sets the time source.
func WithClock(now func() time.Time) Option {
	return func(r *Runner) {
		if now != nil {
			r.now = now
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(r *Runner) {
		if l != nil {
			r.log = l
		}
	}
}
