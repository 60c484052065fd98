package model_test

import (
	"encoding/json"
	"testing"

	"github.com/okian/civicrank/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func TestCount(t *testing.T) {
	Convey("Given counters from loosely typed files", t, func() {
		cases := map[string]model.Count{
			`12`:       12,
			`"7"`:      7,
			`" 3 "`:    3,
			`null`:     0,
			`"abc"`:    0,
			`-4`:       0,
			`2.9`:      2,
			`"1e3"`:    1000,
			`1e12`:     model.Count(2147483647),
			`{"a": 1}`: 0,
		}
		for raw, want := range cases {
			var c model.Count
			So(json.Unmarshal([]byte(raw), &c), ShouldBeNil)
			So(c, ShouldEqual, want)
		}
	})

	Convey("Given a record with string counters", t, func() {
		raw := `{"bioguideId":"A000001","name":"Ann","sponsoredBills":"5","totalVotes":null,"missedVotes":"n/a"}`
		var l model.Legislator
		So(json.Unmarshal([]byte(raw), &l), ShouldBeNil)

		So(l.SponsoredBills, ShouldEqual, 5)
		So(l.TotalVotes, ShouldEqual, 0)
		So(l.MissedVotes, ShouldEqual, 0)

		Convey("Then it marshals back as plain numbers", func() {
			out, err := json.Marshal(&l)
			So(err, ShouldBeNil)
			So(string(out), ShouldContainSubstring, `"sponsoredBills":5`)
			So(string(out), ShouldContainSubstring, `"totalVotes":0`)
		})
	})
}

func TestChamber(t *testing.T) {
	Convey("Chamber helpers", t, func() {
		So(model.Senate.FilePrefix(), ShouldEqual, "senators")
		So(model.House.FilePrefix(), ShouldEqual, "representatives")
		So(model.House.File("rankings"), ShouldEqual, "representatives-rankings.json")

		c, ok := model.ParseChamber(" Rep ")
		So(ok, ShouldBeTrue)
		So(c, ShouldEqual, model.House)

		_, ok = model.ParseChamber("all")
		So(ok, ShouldBeFalse)
	})
}

func TestRecomputePercentages(t *testing.T) {
	Convey("Given vote counters", t, func() {
		l := &model.Legislator{}

		Convey("When there are no votes", func() {
			l.MissedVotes = 3
			l.RecomputePercentages()
			So(l.ParticipationPct, ShouldEqual, 0)
			So(l.MissedVotePct, ShouldEqual, 0)
		})

		Convey("When one of three votes was missed", func() {
			l.TotalVotes = 3
			l.MissedVotes = 1
			l.RecomputePercentages()
			So(l.ParticipationPct, ShouldEqual, 66.67)
			So(l.MissedVotePct, ShouldEqual, 33.33)
		})

		Convey("When missed exceeds total it is capped", func() {
			l.TotalVotes = 2
			l.MissedVotes = 5
			l.RecomputePercentages()
			So(l.ParticipationPct, ShouldEqual, 0)
			So(l.MissedVotePct, ShouldEqual, 100)
		})
	})
}

func TestStreaksAndTotals(t *testing.T) {
	Convey("Streaks.Max picks the largest counter", t, func() {
		So(model.Streaks{Activity: 1, Voting: 4, Leader: 2}.Max(), ShouldEqual, 4)
		So(model.Streaks{}.Max(), ShouldEqual, 0)
	})

	Convey("TotalsOf snapshots the six compared counters", t, func() {
		l := &model.Legislator{}
		l.SponsoredBills = 2
		l.CosponsoredBills = 9
		l.YeaVotes = 10
		l.NayVotes = 4
		l.MissedVotes = 1
		l.TotalVotes = 15
		l.BecameLawBills = 1

		tot := model.TotalsOf(l)
		So(tot, ShouldResemble, model.Totals{
			SponsoredBills: 2, CosponsoredBills: 9,
			YeaVotes: 10, NayVotes: 4, MissedVotes: 1, TotalVotes: 15,
		})
	})

	Convey("Normalize and DisplayName", t, func() {
		l := &model.Legislator{}
		l.FirstName = "Ann"
		l.LastName = "Lee"
		l.Normalize()
		So(l.Committees, ShouldNotBeNil)
		So(l.MisconductTags, ShouldNotBeNil)
		So(l.DisplayName(), ShouldEqual, "Ann Lee")

		b, err := json.Marshal(l)
		So(err, ShouldBeNil)
		So(string(b), ShouldContainSubstring, `"committees":[]`)
	})
}
