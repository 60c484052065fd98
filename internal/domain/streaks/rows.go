package streaks

import (
	"fmt"
	"sort"

	"github.com/okian/civicrank/internal/domain/model"
)

func sortRows(rows []model.StreakRow) {
	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].Streak != rows[j].Streak {
			return rows[i].Streak > rows[j].Streak
		}
		return rows[i].BioguideID < rows[j].BioguideID
	})
}

// Violation is a record whose streak fields break an update invariant.
type Violation struct {
	BioguideID string `json:"bioguideId"`
	Problem    string `json:"problem"`
}

func (v Violation) String() string {
	return fmt.Sprintf("%s: %s", v.BioguideID, v.Problem)
}

// Check inspects records written by Update: the legacy streak must equal the
// largest of the three, no streak may be negative, and at most one record may
// hold a positive leader streak.
func Check(records []model.Legislator) []Violation {
	var out []Violation
	leaders := 0
	for i := range records {
		l := &records[i]
		id := l.BioguideID
		if id == "" {
			id = fmt.Sprintf("#%d", i)
		}
		if l.Streak != l.Streaks.Max() {
			out = append(out, Violation{id, fmt.Sprintf("streak %d != max(%d, %d, %d)",
				l.Streak, l.Streaks.Activity, l.Streaks.Voting, l.Streaks.Leader)})
		}
		if l.Streaks.Activity < 0 || l.Streaks.Voting < 0 || l.Streaks.Leader < 0 {
			out = append(out, Violation{id, "negative streak"})
		}
		if l.Streaks.Leader > 0 {
			leaders++
			if leaders > 1 {
				out = append(out, Violation{id, "more than one leader streak"})
			}
		}
	}
	return out
}
