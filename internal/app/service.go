// Package service loads the pipeline's output files and answers the queries
// behind the site's HTTP API.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/okian/civicrank/internal/adapters/repository"
	"github.com/okian/civicrank/internal/domain/model"
	"github.com/okian/civicrank/internal/domain/scoring"
	"github.com/okian/civicrank/pkg/logger"
	"github.com/okian/civicrank/pkg/metrics"
)

// Site dataset files read from the data directory besides the rankings.
const (
	EventsFile   = "events.json"
	PollsFile    = "polls.json"
	CalendarFile = "calendar.json"
)

const (
	defaultDataDir  = "public/data"
	defaultMaxLimit = 535
	defaultDebounce = 500 * time.Millisecond
	maxCompare      = 4
)

// Profile is a full legislator record with its chamber rank and, when the
// scores file has one, the power score breakdown.
type Profile struct {
	model.Legislator
	Rank  int             `json:"rank"`
	Score *scoring.Result `json:"score,omitempty"`
}

// StateSummary gathers everything the site shows for one state.
type StateSummary struct {
	State           string                `json:"state"`
	Senators        []model.Entry         `json:"senators"`
	Representatives []model.Entry         `json:"representatives"`
	Events          []model.Event         `json:"events"`
	Polls           []model.Poll          `json:"polls"`
	Calendar        []model.CalendarEntry `json:"calendar"`
}

// Query selects leaderboard entries. Empty State and Party match everything.
type Query struct {
	Chamber model.Chamber
	State   string
	Party   string
	Limit   int
}

// dataset is one consistent load of every file. It is never mutated after
// Reload publishes it.
type dataset struct {
	boards   map[model.Chamber]*repository.Leaderboard
	scores   map[model.Chamber]map[string]scoring.Result
	events   []model.Event
	polls    []model.Poll
	calendar []model.CalendarEntry
	loadedAt time.Time
}

// Service implements the API dependencies for the site.
type Service struct {
	mu sync.RWMutex

	// Configuration
	dataDir  string
	maxLimit int
	watch    bool
	debounce time.Duration

	// State
	store        *repository.FileStore
	data         *dataset
	started      bool
	reloads      int
	reloadErrors int
	watcher      *fsnotify.Watcher
	stopCh       chan struct{}
	wg           sync.WaitGroup

	// Logging
	logger logger.Logger
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		dataDir:  defaultDataDir,
		maxLimit: defaultMaxLimit,
		debounce: defaultDebounce,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("site")
	}
	s.store = repository.NewFileStore(s.dataDir, repository.WithLogger(s.logger))
	return s
}

// Start loads the data files and, when enabled, starts watching them.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return nil
	}
	s.mu.Unlock()

	if err := s.Reload(ctx); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopCh = make(chan struct{})
	if s.watch {
		if err := s.startWatcher(); err != nil {
			return err
		}
	}
	s.started = true
	s.logger.Info(ctx, "site service started",
		logger.String("data_dir", s.dataDir), logger.Any("watch", s.watch))
	return nil
}

// Stop stops the watcher. Loaded data stays queryable.
func (s *Service) Stop() {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return
	}
	s.started = false
	close(s.stopCh)
	w := s.watcher
	s.watcher = nil
	s.mu.Unlock()

	if w != nil {
		_ = w.Close()
	}
	s.wg.Wait()
	s.logger.Info(context.Background(), "site service stopped")
}

// Reload reads every data file and swaps them in at once. On error the
// previously loaded data keeps being served.
func (s *Service) Reload(ctx context.Context) (err error) {
	defer func() {
		metrics.RecordReload(err)
		s.mu.Lock()
		s.reloads++
		if err != nil {
			s.reloadErrors++
		}
		s.mu.Unlock()
	}()

	d := &dataset{
		boards:   make(map[model.Chamber]*repository.Leaderboard, len(model.Chambers)),
		scores:   make(map[model.Chamber]map[string]scoring.Result, len(model.Chambers)),
		loadedAt: time.Now().UTC(),
	}
	for _, ch := range model.Chambers {
		records, err := s.store.LoadLegislators(ctx, ch.File("rankings"))
		if err != nil && !errors.Is(err, repository.ErrNotFound) {
			return fmt.Errorf("reload %s: %w", ch, err)
		}
		if errors.Is(err, repository.ErrNotFound) {
			s.logger.Warn(ctx, "rankings file missing", logger.File(ch.File("rankings")))
		}
		d.boards[ch] = repository.NewLeaderboard(ch, records)

		var results []scoring.Result
		if err := s.loadOptional(ctx, ch.File("scores"), &results); err != nil {
			return err
		}
		byID := make(map[string]scoring.Result, len(results))
		for _, r := range results {
			byID[r.BioguideID] = r
		}
		d.scores[ch] = byID
	}
	if err := s.loadOptional(ctx, EventsFile, &d.events); err != nil {
		return err
	}
	if err := s.loadOptional(ctx, PollsFile, &d.polls); err != nil {
		return err
	}
	if err := s.loadOptional(ctx, CalendarFile, &d.calendar); err != nil {
		return err
	}

	s.mu.Lock()
	s.data = d
	s.mu.Unlock()

	for ch, b := range d.boards {
		metrics.UpdateLoadedRecords(string(ch), b.Count(ctx))
	}
	metrics.UpdateLoadedRecords("events", len(d.events))
	metrics.UpdateLoadedRecords("polls", len(d.polls))
	metrics.UpdateLoadedRecords("calendar", len(d.calendar))

	s.logger.Info(ctx, "data loaded",
		logger.Int("senate", d.boards[model.Senate].Count(ctx)),
		logger.Int("house", d.boards[model.House].Count(ctx)),
		logger.Int("events", len(d.events)), logger.Int("polls", len(d.polls)),
		logger.Int("calendar", len(d.calendar)))
	return nil
}

func (s *Service) loadOptional(ctx context.Context, name string, v any) error {
	err := s.store.LoadJSON(ctx, name, v)
	if err == nil || errors.Is(err, repository.ErrNotFound) {
		return nil
	}
	return fmt.Errorf("reload %s: %w", name, err)
}

func (s *Service) current() (*dataset, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.data == nil {
		return nil, ErrNotStarted
	}
	return s.data, nil
}

func (d *dataset) board(ch model.Chamber) (*repository.Leaderboard, error) {
	b, ok := d.boards[ch]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownChamber, ch)
	}
	return b, nil
}

// TopN returns the top n entries of a chamber.
func (s *Service) TopN(ctx context.Context, ch model.Chamber, n int) ([]model.Entry, error) {
	return s.Leaderboard(ctx, Query{Chamber: ch, Limit: n})
}

// Leaderboard returns entries in rank order, filtered by state and party.
// Limit must be positive and is capped at the configured maximum.
func (s *Service) Leaderboard(ctx context.Context, q Query) ([]model.Entry, error) {
	if q.Limit <= 0 {
		return nil, repository.ErrInvalidLimit
	}
	if q.Limit > s.maxLimit {
		q.Limit = s.maxLimit
	}
	d, err := s.current()
	if err != nil {
		return nil, err
	}
	b, err := d.board(q.Chamber)
	if err != nil {
		return nil, err
	}
	if q.State == "" && q.Party == "" {
		return b.TopN(ctx, q.Limit)
	}
	out := b.Filter(q.State, q.Party)
	if len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, nil
}

// Legislator looks a bioguide id up in both chambers.
func (s *Service) Legislator(ctx context.Context, bioguideID string) (Profile, error) {
	d, err := s.current()
	if err != nil {
		return Profile{}, err
	}
	return d.profile(ctx, strings.ToUpper(strings.TrimSpace(bioguideID)))
}

func (d *dataset) profile(ctx context.Context, id string) (Profile, error) {
	for _, ch := range model.Chambers {
		b := d.boards[ch]
		l, ok := b.Get(id)
		if !ok {
			continue
		}
		p := Profile{Legislator: l}
		if e, err := b.Rank(ctx, id); err == nil {
			p.Rank = e.Rank
		}
		if r, ok := d.scores[ch][id]; ok {
			p.Score = &r
		}
		return p, nil
	}
	return Profile{}, fmt.Errorf("legislator %q: %w", id, repository.ErrNotFound)
}

// Compare returns the profiles of 2 to 4 distinct legislators in the order given.
func (s *Service) Compare(ctx context.Context, ids []string) ([]Profile, error) {
	seen := make(map[string]bool, len(ids))
	uniq := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.ToUpper(strings.TrimSpace(id))
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		uniq = append(uniq, id)
	}
	if len(uniq) < 2 || len(uniq) > maxCompare {
		return nil, ErrInvalidCompare
	}

	d, err := s.current()
	if err != nil {
		return nil, err
	}
	out := make([]Profile, 0, len(uniq))
	for _, id := range uniq {
		p, err := d.profile(ctx, id)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

// State returns both delegations of a state with its events, polls and calendar.
func (s *Service) State(_ context.Context, code string) (StateSummary, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if !validStateCode(code) {
		return StateSummary{}, fmt.Errorf("%w: %q", ErrInvalidState, code)
	}
	d, err := s.current()
	if err != nil {
		return StateSummary{}, err
	}

	sum := StateSummary{
		State:           code,
		Senators:        d.boards[model.Senate].Filter(code, ""),
		Representatives: d.boards[model.House].Filter(code, ""),
		Events:          []model.Event{},
		Polls:           []model.Poll{},
		Calendar:        []model.CalendarEntry{},
	}
	for _, e := range d.events {
		if strings.EqualFold(e.State, code) {
			sum.Events = append(sum.Events, e)
		}
	}
	for _, p := range d.polls {
		if strings.EqualFold(p.State, code) {
			sum.Polls = append(sum.Polls, p)
		}
	}
	for _, c := range d.calendar {
		if c.State == "" || strings.EqualFold(c.State, code) {
			sum.Calendar = append(sum.Calendar, c)
		}
	}
	return sum, nil
}

func validStateCode(code string) bool {
	if len(code) != 2 {
		return false
	}
	for _, r := range code {
		if r < 'A' || r > 'Z' {
			return false
		}
	}
	return true
}

// Streaks returns up to n rows ordered by streak.
func (s *Service) Streaks(_ context.Context, ch model.Chamber, n int) ([]model.StreakRow, error) {
	if n <= 0 {
		return nil, repository.ErrInvalidLimit
	}
	if n > s.maxLimit {
		n = s.maxLimit
	}
	d, err := s.current()
	if err != nil {
		return nil, err
	}
	b, err := d.board(ch)
	if err != nil {
		return nil, err
	}
	return b.TopStreaks(n), nil
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx := context.Background()
	stats := map[string]interface{}{
		"started":      s.started,
		"watching":     s.watcher != nil,
		"dataDir":      s.dataDir,
		"maxLimit":     s.maxLimit,
		"reloads":      s.reloads,
		"reloadErrors": s.reloadErrors,
	}
	if d := s.data; d != nil {
		stats["loadedAt"] = d.loadedAt.Format(time.RFC3339)
		stats["senators"] = d.boards[model.Senate].Count(ctx)
		stats["representatives"] = d.boards[model.House].Count(ctx)
		stats["events"] = len(d.events)
		stats["polls"] = len(d.polls)
		stats["calendar"] = len(d.calendar)
	}
	return stats
}

// Ready reports whether data has been loaded.
func (s *Service) Ready() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.data != nil
}
