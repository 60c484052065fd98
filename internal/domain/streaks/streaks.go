// Package streaks derives activity, voting and leader streaks by diffing each
// record's current counters against the snapshot stored on it by the previous run.
package streaks

import (
	"math"
	"time"

	"github.com/okian/civicrank/internal/domain/model"
)

// Kinds of streak, used as metric and report labels.
const (
	KindActivity = "activity"
	KindVoting   = "voting"
	KindLeader   = "leader"
)

// ScoreFunc returns the power score used to pick the leader.
type ScoreFunc func(l *model.Legislator) float64

// Option configures an update.
type Option func(*updater)

// WithScoreFunc picks the leader by fn instead of the stored powerScore.
func WithScoreFunc(fn ScoreFunc) Option {
	return func(u *updater) {
		if fn != nil {
			u.score = fn
		}
	}
}

// WithClock sets the time source for metrics.updatedAt.
func WithClock(now func() time.Time) Option {
	return func(u *updater) {
		if now != nil {
			u.now = now
		}
	}
}

type updater struct {
	score ScoreFunc
	now   func() time.Time
}

// Summary describes what one update changed.
type Summary struct {
	Records   int    `json:"records"`
	LeaderID  string `json:"leaderId"`
	LeaderIdx int    `json:"-"`
	MissingID int    `json:"missingId"`

	ActivityIncremented int `json:"activityIncremented"`
	ActivityReset       int `json:"activityReset"`
	VotingIncremented   int `json:"votingIncremented"`
	VotingReset         int `json:"votingReset"`
	VotingUnchanged     int `json:"votingUnchanged"`
	LeaderReset         int `json:"leaderReset"`

	// LeaderStreak is the leader's streak after the update.
	LeaderStreak int `json:"leaderStreak"`
}

// Incremented returns the number of increments of the given kind.
func (s Summary) Incremented(kind string) int {
	switch kind {
	case KindActivity:
		return s.ActivityIncremented
	case KindVoting:
		return s.VotingIncremented
	case KindLeader:
		if s.LeaderIdx >= 0 && s.Records > 0 {
			return 1
		}
	}
	return 0
}

// Resets returns the number of resets of the given kind.
func (s Summary) Resets(kind string) int {
	switch kind {
	case KindActivity:
		return s.ActivityReset
	case KindVoting:
		return s.VotingReset
	case KindLeader:
		return s.LeaderReset
	}
	return 0
}

// Update advances the streaks of every record in place and refreshes the
// stored snapshot. A record without a previous snapshot compares against zero.
//
// Activity increments when sponsored or cosponsored bills strictly increased,
// otherwise it resets. Voting increments when new votes were cast and none were
// missed, resets when any new vote was missed, and is left as is when no new
// votes occurred. Leader increments for the single highest scoring record (ties
// go to the lowest bioguideId, then the earliest position) and resets for the rest.
func Update(records []model.Legislator, opts ...Option) Summary {
	u := &updater{
		score: func(l *model.Legislator) float64 { return l.PowerScore },
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(u)
	}

	sum := Summary{Records: len(records), LeaderIdx: leaderIndex(records, u.score)}
	stamp := u.now().UTC().Format(time.RFC3339)

	for i := range records {
		l := &records[i]
		if l.BioguideID == "" {
			sum.MissingID++
		}

		var prev model.Totals
		if l.Metrics.LastTotals != nil {
			prev = *l.Metrics.LastTotals
		}
		cur := model.TotalsOf(l)

		if cur.SponsoredBills > prev.SponsoredBills || cur.CosponsoredBills > prev.CosponsoredBills {
			l.Streaks.Activity++
			sum.ActivityIncremented++
		} else {
			l.Streaks.Activity = 0
			sum.ActivityReset++
		}

		newVotes := cur.TotalVotes - prev.TotalVotes
		newMissed := cur.MissedVotes - prev.MissedVotes
		switch {
		case newVotes <= 0:
			sum.VotingUnchanged++
		case newMissed > 0:
			l.Streaks.Voting = 0
			sum.VotingReset++
		default:
			l.Streaks.Voting++
			sum.VotingIncremented++
		}

		if i == sum.LeaderIdx {
			l.Streaks.Leader++
			sum.LeaderID = l.BioguideID
			sum.LeaderStreak = l.Streaks.Leader.Int()
		} else {
			l.Streaks.Leader = 0
			sum.LeaderReset++
		}

		l.Streak = l.Streaks.Max()
		snapshot := cur
		l.Metrics.LastTotals = &snapshot
		l.Metrics.UpdatedAt = stamp
	}
	return sum
}

// leaderIndex returns the position of the single leader, or -1 for no records.
// Ties go to the lowest bioguideId, matching the leaderboard order; NaN
// scores rank last.
func leaderIndex(records []model.Legislator, score ScoreFunc) int {
	best := -1
	var bestScore float64
	for i := range records {
		s := score(&records[i])
		if math.IsNaN(s) {
			s = math.Inf(-1)
		}
		if best < 0 || s > bestScore || (s == bestScore && records[i].BioguideID < records[best].BioguideID) {
			best = i
			bestScore = s
		}
	}
	return best
}

// Rows builds the streaks file rows, ordered by streak descending then bioguideId.
func Rows(records []model.Legislator) []model.StreakRow {
	rows := make([]model.StreakRow, 0, len(records))
	for i := range records {
		l := &records[i]
		rows = append(rows, model.StreakRow{
			BioguideID: l.BioguideID,
			Name:       l.DisplayName(),
			State:      l.State,
			Party:      l.Party,
			Streaks:    l.Streaks,
			Streak:     l.Streak,
			PowerScore: l.PowerScore,
		})
	}
	sortRows(rows)
	return rows
}
