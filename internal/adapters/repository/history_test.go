package repository_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/okian/civicrank/internal/adapters/repository"
	"github.com/okian/civicrank/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func TestHistoryStore(t *testing.T) {
	ctx := context.Background()

	Convey("Given a history store in a temp directory", t, func() {
		h, err := repository.OpenHistory(ctx, filepath.Join(t.TempDir(), "db", "history.db"), repository.WithMkdirAll())
		So(err, ShouldBeNil)
		Reset(func() { _ = h.Close() })

		base := time.Date(2025, 1, 6, 0, 0, 0, 0, time.UTC)
		records := []model.Legislator{rec("A1", "MA", "D", 70, 4), rec("B2", "TX", "R", 20, 0)}
		records[0].SponsoredBills = 3
		records[0].TotalVotes = 12
		records[0].MissedVotes = 1
		records[0].Streaks.Leader = 4

		Convey("When runs are recorded", func() {
			leaders := []string{"A1", "A1", "B2", "A1"}
			var ids []string
			for i, leader := range leaders {
				run := repository.NewRun(model.Senate, base.Add(time.Duration(i)*7*24*time.Hour))
				run.LeaderID = leader
				run.LeaderStreak = i + 1
				So(h.RecordRun(ctx, run, records), ShouldBeNil)
				ids = append(ids, run.ID)
			}
			house := repository.NewRun(model.House, base)
			So(h.RecordRun(ctx, house, nil), ShouldBeNil)

			Convey("Then Runs lists a chamber newest first", func() {
				runs, err := h.Runs(ctx, model.Senate, 10)
				So(err, ShouldBeNil)
				So(len(runs), ShouldEqual, 4)
				So(runs[0].ID, ShouldEqual, ids[3])
				So(runs[0].Records, ShouldEqual, 2)
				So(runs[0].StartedAt.Equal(base.Add(21*24*time.Hour)), ShouldBeTrue)

				all, err := h.Runs(ctx, "", 10)
				So(err, ShouldBeNil)
				So(len(all), ShouldEqual, 5)

				_, err = h.Runs(ctx, model.Senate, 0)
				So(errors.Is(err, repository.ErrInvalidLimit), ShouldBeTrue)
			})

			Convey("Then Snapshots returns stored counters in order", func() {
				snaps, err := h.Snapshots(ctx, ids[0])
				So(err, ShouldBeNil)
				So(len(snaps), ShouldEqual, 2)
				So(snaps[0].BioguideID, ShouldEqual, "A1")
				So(snaps[0].Totals.SponsoredBills, ShouldEqual, 3)
				So(snaps[0].Totals.MissedVotes, ShouldEqual, 1)
				So(snaps[0].Streaks.Leader, ShouldEqual, 4)
				So(snaps[0].PowerScore, ShouldEqual, 70)
			})

			Convey("Then unknown runs are not found", func() {
				_, err := h.Snapshots(ctx, "nope")
				So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)
			})

			Convey("Then LeaderHistory collapses consecutive leaders", func() {
				tenures, err := h.LeaderHistory(ctx, model.Senate, 10)
				So(err, ShouldBeNil)
				So(len(tenures), ShouldEqual, 3)
				So(tenures[0].BioguideID, ShouldEqual, "A1")
				So(tenures[0].Runs, ShouldEqual, 1)
				So(tenures[1].BioguideID, ShouldEqual, "B2")
				So(tenures[2].BioguideID, ShouldEqual, "A1")
				So(tenures[2].Runs, ShouldEqual, 2)
				So(tenures[2].From.Equal(base), ShouldBeTrue)
			})
		})

		Convey("When the same run id is recorded twice", func() {
			run := repository.NewRun(model.Senate, base)
			So(h.RecordRun(ctx, run, records), ShouldBeNil)
			err := h.RecordRun(ctx, run, records)

			Convey("Then the second insert fails and nothing partial is kept", func() {
				So(errors.Is(err, repository.ErrHistory), ShouldBeTrue)
				snaps, err := h.Snapshots(ctx, run.ID)
				So(err, ShouldBeNil)
				So(len(snaps), ShouldEqual, 2)
			})
		})
	})
}
