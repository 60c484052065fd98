package repository

import (
	"context"
	"math"
	"sort"
	"strings"

	"github.com/okian/civicrank/internal/domain/model"
	"github.com/okian/civicrank/internal/domain/streaks"
)

// Leaderboard is an immutable ranking of one chamber.
//
// Ordering: powerScore DESC, then bioguideId ASC (deterministic). Build a new
// Leaderboard to reflect new data; readers may share one without locking.
type Leaderboard struct {
	chamber model.Chamber
	records []model.Legislator
	entries []model.Entry  // rank order
	rankBy  map[string]int // bioguideId -> index into entries
	byID    map[string]int // bioguideId -> index into records
}

// NewLeaderboard ranks records. Records without a bioguideId are ranked but
// cannot be looked up; a repeated bioguideId keeps its last occurrence.
func NewLeaderboard(chamber model.Chamber, records []model.Legislator) *Leaderboard {
	lb := &Leaderboard{
		chamber: chamber,
		rankBy:  make(map[string]int, len(records)),
		byID:    make(map[string]int, len(records)),
	}

	for _, r := range records {
		r.Normalize()
		if r.Chamber == "" {
			r.Chamber = chamber
		}
		if i, dup := lb.byID[r.BioguideID]; dup && r.BioguideID != "" {
			lb.records[i] = r
			continue
		}
		if r.BioguideID != "" {
			lb.byID[r.BioguideID] = len(lb.records)
		}
		lb.records = append(lb.records, r)
	}

	order := make([]int, len(lb.records))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		ra, rb := &lb.records[order[a]], &lb.records[order[b]]
		sa, sb := sortScore(ra.PowerScore), sortScore(rb.PowerScore)
		if sa != sb {
			return sa > sb
		}
		return ra.BioguideID < rb.BioguideID
	})

	lb.entries = make([]model.Entry, len(order))
	for pos, idx := range order {
		r := &lb.records[idx]
		lb.entries[pos] = model.EntryOf(pos+1, r)
		if r.BioguideID != "" {
			lb.rankBy[r.BioguideID] = pos
		}
	}
	return lb
}

func sortScore(x float64) float64 {
	if math.IsNaN(x) {
		return math.Inf(-1)
	}
	return x
}

// Chamber returns the chamber this leaderboard ranks.
func (lb *Leaderboard) Chamber() model.Chamber { return lb.chamber }

// Rank implements Ranking.
func (lb *Leaderboard) Rank(_ context.Context, bioguideID string) (model.Entry, error) {
	pos, ok := lb.rankBy[bioguideID]
	if !ok {
		return model.Entry{}, ErrNotFound
	}
	return lb.entries[pos], nil
}

// TopN implements Ranking.
func (lb *Leaderboard) TopN(_ context.Context, n int) ([]model.Entry, error) {
	if n <= 0 {
		return nil, ErrInvalidLimit
	}
	if n > len(lb.entries) {
		n = len(lb.entries)
	}
	out := make([]model.Entry, n)
	copy(out, lb.entries[:n])
	return out, nil
}

// Count implements Ranking.
func (lb *Leaderboard) Count(_ context.Context) int { return len(lb.entries) }

// Get returns a copy of the full record.
func (lb *Leaderboard) Get(bioguideID string) (model.Legislator, bool) {
	i, ok := lb.byID[bioguideID]
	if !ok {
		return model.Legislator{}, false
	}
	return lb.records[i], true
}

// Filter returns entries matching state and party (case-insensitive, empty
// matches all) in rank order.
func (lb *Leaderboard) Filter(state, party string) []model.Entry {
	out := make([]model.Entry, 0)
	for i := range lb.entries {
		e := &lb.entries[i]
		if state != "" && !strings.EqualFold(e.State, state) {
			continue
		}
		if party != "" && !strings.EqualFold(e.Party, party) && !strings.EqualFold(partyInitial(e.Party), party) {
			continue
		}
		out = append(out, *e)
	}
	return out
}

// Records returns a copy of every record in input order.
func (lb *Leaderboard) Records() []model.Legislator {
	out := make([]model.Legislator, len(lb.records))
	copy(out, lb.records)
	return out
}

// TopStreaks returns up to n rows ordered by streak desc then bioguideId.
func (lb *Leaderboard) TopStreaks(n int) []model.StreakRow {
	rows := streaks.Rows(lb.records)
	if n > 0 && n < len(rows) {
		rows = rows[:n]
	}
	return rows
}

func partyInitial(p string) string {
	if p == "" {
		return ""
	}
	return strings.ToUpper(p[:1])
}
