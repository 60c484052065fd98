package repository_test

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/okian/civicrank/internal/adapters/repository"
	"github.com/okian/civicrank/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func rec(id, state, party string, score float64, streak int) model.Legislator {
	l := model.Legislator{}
	l.BioguideID = id
	l.Name = "Member " + id
	l.State = state
	l.Party = party
	l.PowerScore = score
	l.Streak = model.Count(streak)
	l.Streaks.Voting = model.Count(streak)
	return l
}

func TestLeaderboard(t *testing.T) {
	ctx := context.Background()

	Convey("Given a leaderboard built from records", t, func() {
		lb := repository.NewLeaderboard(model.Senate, []model.Legislator{
			rec("C3", "VT", "Independent", 40, 1),
			rec("A1", "MA", "Democrat", 70, 5),
			rec("B2", "TX", "Republican", 70, 2),
			rec("D4", "MA", "Republican", math.NaN(), 0),
			rec("C3", "VT", "Independent", 55, 3),
		})

		Convey("Then duplicates keep the last occurrence", func() {
			So(lb.Count(ctx), ShouldEqual, 4)
			r, ok := lb.Get("C3")
			So(ok, ShouldBeTrue)
			So(r.PowerScore, ShouldEqual, 55)
			So(r.Chamber, ShouldEqual, model.Senate)
		})

		Convey("Then TopN orders by score and breaks ties by bioguideId", func() {
			top, err := lb.TopN(ctx, 3)
			So(err, ShouldBeNil)
			So(len(top), ShouldEqual, 3)
			So(top[0].BioguideID, ShouldEqual, "A1")
			So(top[1].BioguideID, ShouldEqual, "B2")
			So(top[2].BioguideID, ShouldEqual, "C3")
			So(top[2].Rank, ShouldEqual, 3)
		})

		Convey("Then NaN scores rank last", func() {
			e, err := lb.Rank(ctx, "D4")
			So(err, ShouldBeNil)
			So(e.Rank, ShouldEqual, 4)
		})

		Convey("Then limits are validated and capped", func() {
			_, err := lb.TopN(ctx, 0)
			So(errors.Is(err, repository.ErrInvalidLimit), ShouldBeTrue)
			all, err := lb.TopN(ctx, 100)
			So(err, ShouldBeNil)
			So(len(all), ShouldEqual, 4)
		})

		Convey("Then unknown ids are not found", func() {
			_, err := lb.Rank(ctx, "Z9")
			So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)
		})

		Convey("Then Filter matches state and party initials", func() {
			ma := lb.Filter("ma", "")
			So(len(ma), ShouldEqual, 2)
			So(ma[0].BioguideID, ShouldEqual, "A1")

			r := lb.Filter("", "R")
			So(len(r), ShouldEqual, 2)
			So(r[0].BioguideID, ShouldEqual, "B2")
		})

		Convey("Then TopStreaks orders by streak", func() {
			rows := lb.TopStreaks(2)
			So(len(rows), ShouldEqual, 2)
			So(rows[0].BioguideID, ShouldEqual, "A1")
			So(rows[1].BioguideID, ShouldEqual, "C3")
		})
	})

	Convey("Given an empty leaderboard", t, func() {
		lb := repository.NewLeaderboard(model.House, nil)

		top, err := lb.TopN(ctx, 5)
		So(err, ShouldBeNil)
		So(top, ShouldBeEmpty)
		So(lb.Records(), ShouldBeEmpty)
	})
}
