// Package pipeline runs the fetch, merge and derive stages that produce the
// per-chamber rankings files.
//
// Each stage reads JSON inputs from the data directory, optionally calls an
// upstream source and writes one JSON output. Stages run in a fixed order per
// chamber; a failed stage stops the run. Per-record failures inside a stage
// are logged, counted and skipped.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/okian/civicrank/internal/adapters/repository"
	"github.com/okian/civicrank/internal/domain/model"
	"github.com/okian/civicrank/internal/domain/scoring"
	"github.com/okian/civicrank/internal/domain/streaks"
	"github.com/okian/civicrank/internal/report"
	"github.com/okian/civicrank/pkg/logger"
	"github.com/okian/civicrank/pkg/metrics"
)

// Stage names in run order.
const (
	StageBootstrap   = "bootstrap"
	StageLegislation = "legislation"
	StageVotes       = "votes"
	StageCommittees  = "committees"
	StageMisconduct  = "misconduct"
	StageMerge       = "merge"
	StageStreaks     = "streaks"
	StageScores      = "scores"
	StageReport      = "report"
	StageVerify      = "verify"
)

// Order is the full pipeline.
var Order = []string{
	StageBootstrap, StageLegislation, StageVotes, StageCommittees, StageMisconduct,
	StageMerge, StageStreaks, StageScores, StageReport, StageVerify,
}

// Data file kinds, see model.Chamber.File.
const (
	KindRankings    = "rankings"
	KindProfiles    = "profiles"
	KindLegislation = "legislation"
	KindVotes       = "votes"
	KindCommittees  = "committees"
	KindMisconduct  = "misconduct"
	KindStreaks     = "streaks"
	KindScores      = "scores"
)

const (
	defaultCongress      = 119
	defaultSession       = 1
	defaultWorkers       = 1
	defaultNameThreshold = 0.92
)

// Stage is one named step.
type Stage struct {
	Name string
	Run  func(ctx context.Context, ch model.Chamber) error
}

// Notes collects what stages learned during a run for the report.
type Notes struct {
	RunID      string
	Duplicates []string
	Unmatched  []report.Unmatched
	Streaks    *streaks.Summary
	Skipped    map[string]int
}

// Runner owns the stage dependencies.
type Runner struct {
	store   *repository.FileStore
	reports *repository.FileStore
	history *repository.HistoryStore

	roster RosterSource
	roles  RoleSource
	bills  LegislationSource
	votes  VoteSource
	scorer scoring.Scorer

	congress      int
	session       int
	workers       int
	maxRollCalls  int
	nameThreshold float64

	now func() time.Time
	log logger.Logger

	mu    sync.Mutex
	notes map[model.Chamber]*Notes
}

// NewRunner creates a runner.
func NewRunner(opts ...Option) *Runner {
	r := &Runner{
		scorer:        scoring.NewPowerScorer(),
		congress:      defaultCongress,
		session:       defaultSession,
		workers:       defaultWorkers,
		nameThreshold: defaultNameThreshold,
		now:           time.Now,
		log:           logger.Get().Named("pipeline"),
		notes:         map[model.Chamber]*Notes{},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Stages returns every stage in run order.
func (r *Runner) Stages() []Stage {
	return []Stage{
		{StageBootstrap, r.bootstrap},
		{StageLegislation, r.legislation},
		{StageVotes, r.fetchVotes},
		{StageCommittees, r.assignCommittees},
		{StageMisconduct, r.tagMisconduct},
		{StageMerge, r.merge},
		{StageStreaks, r.updateStreaks},
		{StageScores, r.scores},
		{StageReport, r.writeReport},
		{StageVerify, r.verify},
	}
}

// Stage looks up a stage by name.
func (r *Runner) Stage(name string) (Stage, bool) {
	for _, s := range r.Stages() {
		if s.Name == name {
			return s, true
		}
	}
	return Stage{}, false
}

// Run executes the named stages (all of Order when none are given) for each
// chamber in turn. The first failing stage stops the run.
func (r *Runner) Run(ctx context.Context, chambers []model.Chamber, names ...string) error {
	if len(names) == 0 {
		names = Order
	}
	stages := make([]Stage, 0, len(names))
	for _, n := range names {
		s, ok := r.Stage(n)
		if !ok {
			return fmt.Errorf("%w: %q", ErrUnknownStage, n)
		}
		stages = append(stages, s)
	}
	if r.store == nil {
		return fmt.Errorf("%w: data store", ErrNotConfigured)
	}

	for _, ch := range chambers {
		for _, s := range stages {
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := r.runStage(ctx, s, ch); err != nil {
				return fmt.Errorf("%s %s: %w", s.Name, ch, err)
			}
		}
	}
	return nil
}

func (r *Runner) runStage(ctx context.Context, s Stage, ch model.Chamber) error {
	log := r.log.With(logger.Stage(s.Name), logger.Chamber(string(ch)))
	log.Info(ctx, "stage started")

	start := time.Now()
	err := s.Run(ctx, ch)
	d := time.Since(start)
	metrics.RecordStage(s.Name, string(ch), d, err)

	if err != nil {
		log.Error(ctx, "stage failed", logger.Duration("duration", d), logger.Error(err))
		return err
	}
	log.Info(ctx, "stage finished", logger.Duration("duration", d))
	return nil
}

// Notes returns a copy of what the run has learned about a chamber so far.
func (r *Runner) Notes(ch model.Chamber) Notes {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := r.notes[ch]
	if n == nil {
		return Notes{}
	}
	out := *n
	out.Skipped = make(map[string]int, len(n.Skipped))
	for k, v := range n.Skipped {
		out.Skipped[k] = v
	}
	return out
}

func (r *Runner) note(ch model.Chamber, fn func(*Notes)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := r.notes[ch]
	if n == nil {
		n = &Notes{Skipped: map[string]int{}}
		r.notes[ch] = n
	}
	fn(n)
}

// skip counts a skipped record.
func (r *Runner) skip(ch model.Chamber, stage, reason string) {
	metrics.RecordSkipped(stage, reason)
	r.note(ch, func(n *Notes) { n.Skipped[stage]++ })
}

func (r *Runner) loadRankings(ctx context.Context, ch model.Chamber) ([]model.Legislator, error) {
	records, err := r.store.LoadLegislators(ctx, ch.File(KindRankings))
	if err != nil {
		return nil, fmt.Errorf("load rankings: %w", err)
	}
	return records, nil
}

func (r *Runner) saveRankings(ctx context.Context, ch model.Chamber, records []model.Legislator) error {
	if err := r.store.SaveLegislators(ctx, ch.File(KindRankings), records); err != nil {
		return fmt.Errorf("save rankings: %w", err)
	}
	return nil
}

// loadRows reads an optional partial file into a map keyed by id. A missing
// file yields ok == false; an unreadable one is logged and counted.
func loadRows[T any](ctx context.Context, r *Runner, ch model.Chamber, kind string, id func(*T) string) (map[string]T, bool) {
	var rows []T
	name := ch.File(kind)
	if err := r.store.LoadJSON(ctx, name, &rows); err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			r.log.Warn(ctx, "skipping unreadable partial", logger.File(name), logger.Error(err))
			r.skip(ch, StageMerge, "partial")
		}
		return nil, false
	}
	out := make(map[string]T, len(rows))
	for i := range rows {
		if key := id(&rows[i]); key != "" {
			out[key] = rows[i]
		}
	}
	return out, true
}

// HouseYear is the calendar year of a congress session.
func HouseYear(congress, session int) int {
	if session < 1 {
		session = 1
	}
	return 1789 + 2*(congress-1) + session - 1
}
