package report_test

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/okian/civicrank/internal/adapters/repository"
	"github.com/okian/civicrank/internal/domain/model"
	"github.com/okian/civicrank/internal/domain/streaks"
	"github.com/okian/civicrank/internal/report"
	. "github.com/smartystreets/goconvey/convey"
)

func legislator(id, name, state, party string, score float64, total model.Count) model.Legislator {
	var l model.Legislator
	l.BioguideID, l.Name, l.State, l.Party = id, name, state, party
	l.PowerScore = score
	l.TotalVotes = total
	l.Normalize()
	return l
}

func fixture() []model.Legislator {
	recs := []model.Legislator{
		legislator("A000001", "Ann Adams", "NY", "Democrat", 40, 10),
		legislator("B000002", "Bo Baker", "TX", "Republican", 55, 0),
		legislator("C000003", "", "", "Independent", 12, 4),
	}
	recs[1].Streaks = model.Streaks{Activity: 2, Voting: 0, Leader: 3}
	recs[1].Streak = 3
	recs[0].Streaks = model.Streaks{Activity: 1}
	recs[0].Streak = 1
	return recs
}

func TestBuild(t *testing.T) {
	clock := func() time.Time { return time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC) }

	Convey("Given merged records for a chamber", t, func() {
		in := report.Input{
			Chamber:    model.Senate,
			Records:    fixture(),
			Duplicates: []string{"Z000009", "A000001"},
			Unmatched:  []report.Unmatched{{Name: "Somebody", Person: 4}},
			Streaks:    &streaks.Summary{LeaderID: "B000002", LeaderStreak: 3},
			Skipped:    map[string]int{"votes": 2},
		}

		d := report.Build(in, report.WithClock(clock), report.WithTopN(2), report.WithRunID("run-1"))

		Convey("Then the checks are computed", func() {
			So(d.RunID, ShouldEqual, "run-1")
			So(d.GeneratedAt, ShouldEqual, "2025-03-01T12:00:00Z")
			So(d.Records, ShouldEqual, 3)
			So(d.ZeroVotes, ShouldResemble, []string{"B000002"})
			So(d.MissingIdentity, ShouldHaveLength, 1)
			So(d.MissingIdentity[0].Fields, ShouldResemble, []string{"name", "state"})
			So(d.Duplicates, ShouldResemble, []string{"A000001", "Z000009"})
			So(d.Violations, ShouldBeEmpty)
		})

		Convey("Then the top list is ranked by power score", func() {
			So(d.Top, ShouldHaveLength, 2)
			So(d.Top[0].BioguideID, ShouldEqual, "B000002")
			So(d.Top[1].BioguideID, ShouldEqual, "A000001")
			So(d.StreakLeaders[0].BioguideID, ShouldEqual, "B000002")
		})

		Convey("Then the markdown carries every section", func() {
			md := d.Markdown()
			So(md, ShouldStartWith, "# Senate diagnostics")
			So(md, ShouldContainSubstring, "| Records | 3 |")
			So(md, ShouldContainSubstring, "| Skipped in votes | 2 |")
			So(md, ShouldContainSubstring, "## Top by power score")
			So(md, ShouldContainSubstring, "Leader this run: `B000002` (streak 3).")
			So(md, ShouldContainSubstring, "- Somebody (govtrack 4)")
			So(md, ShouldNotContainSubstring, "## Streak violations")
		})

		Convey("Then the JSON round-trips", func() {
			b, err := d.JSON()
			So(err, ShouldBeNil)
			var back report.Diagnostics
			So(json.Unmarshal(b, &back), ShouldBeNil)
			So(back.Records, ShouldEqual, 3)
			So(back.Streaks.LeaderID, ShouldEqual, "B000002")
		})
	})

	Convey("Given records that break the streak invariants", t, func() {
		recs := fixture()
		recs[0].Streaks.Leader = 1
		recs[2].Streak = 9

		d := report.Build(report.Input{Chamber: model.House, Records: recs})

		Convey("Then violations are listed", func() {
			So(d.Violations, ShouldHaveLength, 2)
			So(d.RunID, ShouldNotBeEmpty)
			So(d.Markdown(), ShouldContainSubstring, "## Streak violations")
		})
	})

	Convey("Given no records", t, func() {
		d := report.Build(report.Input{Chamber: model.House})
		So(d.Top, ShouldBeEmpty)
		So(d.ZeroVotes, ShouldNotBeNil)
	})
}

func TestWrite(t *testing.T) {
	Convey("Given a reports directory", t, func() {
		dir := t.TempDir()
		store := repository.NewFileStore(filepath.Join(dir, "reports"))
		d := report.Build(report.Input{Chamber: model.House, Records: fixture()})

		So(report.Write(context.Background(), store, d), ShouldBeNil)

		Convey("Then both renderings are written", func() {
			md, err := os.ReadFile(filepath.Join(dir, "reports", "representatives-diagnostics.md"))
			So(err, ShouldBeNil)
			So(strings.HasPrefix(string(md), "# House diagnostics"), ShouldBeTrue)
			So(store.Exists(report.FileName(model.House, "json")), ShouldBeTrue)
		})
	})
}
