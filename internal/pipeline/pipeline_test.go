package pipeline_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/okian/civicrank/internal/adapters/repository"
	"github.com/okian/civicrank/internal/adapters/upstream/clerk"
	"github.com/okian/civicrank/internal/adapters/upstream/congressgov"
	"github.com/okian/civicrank/internal/adapters/upstream/govtrack"
	"github.com/okian/civicrank/internal/adapters/upstream/legislators"
	"github.com/okian/civicrank/internal/domain/model"
	"github.com/okian/civicrank/internal/domain/scoring"
	"github.com/okian/civicrank/internal/pipeline"
	. "github.com/smartystreets/goconvey/convey"
)

func person(bioguide, lis string, govtrackID int, first, last, typ, state, party string) legislators.Person {
	var p legislators.Person
	p.ID.Bioguide, p.ID.LIS, p.ID.GovTrack = bioguide, lis, govtrackID
	p.Name.First, p.Name.Last = first, last
	t := legislators.Term{Type: typ, State: state, Party: party}
	if typ == "rep" {
		d := 3
		t.District = &d
	}
	p.Terms = []legislators.Term{t}
	return p
}

type fakeRoster struct {
	people     []legislators.Person
	committees []legislators.Committee
	membership map[string][]legislators.Member
}

func (f *fakeRoster) Current(context.Context) ([]legislators.Person, error) { return f.people, nil }
func (f *fakeRoster) Committees(context.Context) ([]legislators.Committee, error) {
	return f.committees, nil
}
func (f *fakeRoster) CommitteeMembership(context.Context) (map[string][]legislators.Member, error) {
	return f.membership, nil
}

type fakeRoles struct{ roles []govtrack.Role }

func (f *fakeRoles) CurrentRoles(_ context.Context, roleType string) ([]govtrack.Role, error) {
	if roleType != govtrack.RoleSenator {
		return nil, nil
	}
	return f.roles, nil
}

type fakeBills struct {
	sponsored   map[string]congressgov.Summary
	cosponsored map[string]congressgov.Summary
	failing     map[string]bool
}

func (f *fakeBills) SponsoredLegislation(_ context.Context, id string) (congressgov.Summary, error) {
	if f.failing[id] {
		return congressgov.Summary{}, fmt.Errorf("fetch %s: boom", id)
	}
	return f.sponsored[id], nil
}

func (f *fakeBills) CosponsoredLegislation(_ context.Context, id string) (congressgov.Summary, error) {
	return f.cosponsored[id], nil
}

type fakeVotes struct {
	menu   []int
	senate map[int]clerk.RollCall
	latest int
	house  map[int]clerk.RollCall
	years  []int
}

func (f *fakeVotes) SenateVoteMenu(context.Context, int, int) ([]int, error) { return f.menu, nil }
func (f *fakeVotes) SenateVote(_ context.Context, _, _, n int) (clerk.RollCall, error) {
	rc, ok := f.senate[n]
	if !ok {
		return clerk.RollCall{}, errors.New("missing roll call")
	}
	return rc, nil
}
func (f *fakeVotes) HouseLatestRoll(_ context.Context, year int) (int, error) {
	f.years = append(f.years, year)
	return f.latest, nil
}
func (f *fakeVotes) HouseVote(_ context.Context, _, n int) (clerk.RollCall, error) {
	return f.house[n], nil
}

func ballot(id string, c clerk.Cast) clerk.Ballot { return clerk.Ballot{MemberID: id, Cast: c} }

type fixture struct {
	dir     string
	store   *repository.FileStore
	roster  *fakeRoster
	bills   *fakeBills
	votes   *fakeVotes
	history *repository.HistoryStore
}

func newFixture(t *testing.T) *fixture {
	dir := t.TempDir()
	h, err := repository.OpenHistory(context.Background(), filepath.Join(dir, "history.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = h.Close() })

	return &fixture{
		dir:     dir,
		store:   repository.NewFileStore(filepath.Join(dir, "data")),
		history: h,
		roster: &fakeRoster{
			people: []legislators.Person{
				person("S000001", "S101", 400001, "Ann", "Adams", "sen", "NY", "Democrat"),
				person("S000002", "S102", 400002, "Bo", "Baker", "sen", "TX", "Republican"),
				person("S000003", "S103", 400003, "Cy", "Cole", "sen", "VT", "Independent"),
				person("R000001", "", 400004, "Rob", "Jones", "rep", "OH", "Republican"),
			},
			committees: []legislators.Committee{{Name: "Finance", ThomasID: "SSFI"}},
			membership: map[string][]legislators.Member{
				"SSFI": {
					{Name: "Ann Adams", Rank: 1, Title: "Chairman", Bioguide: "S000001"},
					{Name: "Bo Baker", Rank: 2, Bioguide: "S000002"},
				},
			},
		},
		bills: &fakeBills{
			sponsored: map[string]congressgov.Summary{
				"S000001": {Count: 10, BecameLaw: 2},
				"S000002": {Count: 4},
			},
			cosponsored: map[string]congressgov.Summary{
				"S000001": {Count: 20},
				"S000002": {Count: 8},
			},
			failing: map[string]bool{"S000003": true},
		},
		votes: &fakeVotes{
			menu: []int{1, 2},
			senate: map[int]clerk.RollCall{
				1: {Ballots: []clerk.Ballot{
					ballot("S101", clerk.CastYea), ballot("S102", clerk.CastNay), ballot("S103", clerk.CastMissed),
				}},
				2: {Ballots: []clerk.Ballot{
					ballot("S101", clerk.CastYea), ballot("S102", clerk.CastMissed),
					ballot("S103", clerk.CastYea), ballot("S999", clerk.CastYea),
				}},
			},
			latest: 2,
			house: map[int]clerk.RollCall{
				1: {Ballots: []clerk.Ballot{ballot("R000001", clerk.CastYea)}},
				2: {Ballots: []clerk.Ballot{ballot("R000001", clerk.CastPresent)}},
			},
		},
	}
}

func (f *fixture) runner(opts ...pipeline.Option) *pipeline.Runner {
	clock := func() time.Time { return time.Date(2025, 5, 5, 8, 0, 0, 0, time.UTC) }
	base := []pipeline.Option{
		pipeline.WithStore(f.store),
		pipeline.WithReports(repository.NewFileStore(filepath.Join(f.dir, "reports"))),
		pipeline.WithHistory(f.history),
		pipeline.WithRoster(f.roster),
		pipeline.WithRoles(&fakeRoles{roles: []govtrack.Role{
			{BioguideID: "S000001", GovTrackID: 400001, LeadershipTitle: "President pro tempore", Website: "https://adams.senate.gov"},
		}}),
		pipeline.WithLegislation(f.bills),
		pipeline.WithVotes(f.votes),
		pipeline.WithSession(119, 1),
		pipeline.WithWorkers(2),
		pipeline.WithClock(clock),
	}
	return pipeline.NewRunner(append(base, opts...)...)
}

func (f *fixture) writeFile(t *testing.T, name, content string) {
	p := filepath.Join(f.dir, "data", name)
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func byID(records []model.Legislator) map[string]model.Legislator {
	out := make(map[string]model.Legislator, len(records))
	for _, l := range records {
		out[l.BioguideID] = l
	}
	return out
}

func TestRunSenate(t *testing.T) {
	ctx := context.Background()

	Convey("Given upstream sources for the Senate", t, func() {
		f := newFixture(t)
		f.writeFile(t, "misconduct.yaml", "- person: 400002\n  name: Bo Baker\n  tags: ethics\n- name: Nobody Known\n  tags: fraud\n")
		r := f.runner()

		Convey("When the full pipeline runs", func() {
			err := r.Run(ctx, []model.Chamber{model.Senate})
			So(err, ShouldBeNil)

			records, err := f.store.LoadLegislators(ctx, "senators-rankings.json")
			So(err, ShouldBeNil)
			So(records, ShouldHaveLength, 3)
			got := byID(records)

			Convey("Then counters from every partial are merged", func() {
				a := got["S000001"]
				So(a.SponsoredBills, ShouldEqual, 10)
				So(a.CosponsoredBills, ShouldEqual, 20)
				So(a.BecameLawBills, ShouldEqual, 2)
				So(a.YeaVotes, ShouldEqual, 2)
				So(a.TotalVotes, ShouldEqual, 2)
				So(a.ParticipationPct, ShouldEqual, 100)
				So(a.Committees, ShouldResemble, []model.Committee{{ID: "SSFI", Name: "Finance", Role: "Chairman", Rank: 1}})
				So(a.LeadershipTitle, ShouldEqual, "President pro tempore")
				So(a.Website, ShouldEqual, "https://adams.senate.gov")

				b := got["S000002"]
				So(b.MissedVotes, ShouldEqual, 1)
				So(b.MissedVotePct, ShouldEqual, 50)
				So(b.MisconductTags, ShouldResemble, []string{"ethics"})
			})

			Convey("Then a failed fetch leaves the record at zero", func() {
				c := got["S000003"]
				So(c.SponsoredBills, ShouldEqual, 0)
				So(c.TotalVotes, ShouldEqual, 2)
				So(r.Notes(model.Senate).Skipped[pipeline.StageLegislation], ShouldEqual, 1)
			})

			Convey("Then scores are computed and ranked", func() {
				So(got["S000001"].PowerScore, ShouldEqual, 80)
				So(got["S000002"].PowerScore, ShouldEqual, 22)
				So(got["S000003"].PowerScore, ShouldEqual, 25)

				var results []scoring.Result
				So(f.store.LoadJSON(ctx, "senators-scores.json", &results), ShouldBeNil)
				So(results[0].BioguideID, ShouldEqual, "S000001")
				So(results[1].BioguideID, ShouldEqual, "S000003")
				So(results[2].Rank, ShouldEqual, 3)
			})

			Convey("Then streaks start from the empty snapshot", func() {
				So(got["S000001"].Streaks, ShouldResemble, model.Streaks{Activity: 1, Voting: 1, Leader: 1})
				So(got["S000002"].Streaks, ShouldResemble, model.Streaks{Activity: 1})
				So(got["S000003"].Streaks, ShouldResemble, model.Streaks{})
				So(got["S000001"].Metrics.UpdatedAt, ShouldEqual, "2025-05-05T08:00:00Z")
				So(f.store.Exists("senators-streaks.json"), ShouldBeTrue)
			})

			Convey("Then the report and history are written", func() {
				_, err := os.Stat(filepath.Join(f.dir, "reports", "senators-diagnostics.md"))
				So(err, ShouldBeNil)
				notes := r.Notes(model.Senate)
				So(notes.Unmatched, ShouldHaveLength, 1)
				So(notes.RunID, ShouldNotBeEmpty)

				runs, err := f.history.Runs(ctx, model.Senate, 10)
				So(err, ShouldBeNil)
				So(runs, ShouldHaveLength, 1)
				So(runs[0].LeaderID, ShouldEqual, "S000001")
			})

			Convey("And when it runs again with no new activity", func() {
				So(r.Run(ctx, []model.Chamber{model.Senate}), ShouldBeNil)
				again, err := f.store.LoadLegislators(ctx, "senators-rankings.json")
				So(err, ShouldBeNil)
				got := byID(again)

				Convey("Then activity resets, voting holds and the leader extends", func() {
					So(got["S000001"].Streaks, ShouldResemble, model.Streaks{Activity: 0, Voting: 1, Leader: 2})
					So(got["S000001"].Streak, ShouldEqual, 2)
					So(got["S000002"].Streaks, ShouldResemble, model.Streaks{})
				})

				Convey("Then the history holds both runs", func() {
					tenures, err := f.history.LeaderHistory(ctx, model.Senate, 10)
					So(err, ShouldBeNil)
					So(tenures, ShouldHaveLength, 1)
					So(tenures[0].Runs, ShouldEqual, 2)
				})
			})
		})

		Convey("When every legislation fetch fails", func() {
			f.bills.failing = map[string]bool{"S000001": true, "S000002": true, "S000003": true}
			err := r.Run(ctx, []model.Chamber{model.Senate})

			Convey("Then the run stops at that stage", func() {
				So(errors.Is(err, pipeline.ErrNoData), ShouldBeTrue)
				So(f.store.Exists("senators-rankings.json"), ShouldBeTrue)
				So(f.store.Exists("senators-votes.json"), ShouldBeFalse)
			})
		})

		Convey("When an unknown stage is requested", func() {
			err := r.Run(ctx, []model.Chamber{model.Senate}, "bootstrap", "nope")
			So(errors.Is(err, pipeline.ErrUnknownStage), ShouldBeTrue)
			So(f.store.Exists("senators-rankings.json"), ShouldBeFalse)
		})
	})
}

func TestRunHouse(t *testing.T) {
	ctx := context.Background()

	Convey("Given a House override file", t, func() {
		f := newFixture(t)
		f.writeFile(t, "housereps.json", `[{"name": "Jones, Rob", "phone": "202-555-0199", "office": "1 Cannon"}]`)
		r := f.runner(pipeline.WithMaxRollCalls(1))

		So(r.Run(ctx, []model.Chamber{model.House}, pipeline.StageBootstrap, pipeline.StageVotes, pipeline.StageMerge), ShouldBeNil)

		records, err := f.store.LoadLegislators(ctx, "representatives-rankings.json")
		So(err, ShouldBeNil)
		So(records, ShouldHaveLength, 1)

		Convey("Then the override is matched by name", func() {
			So(records[0].Phone, ShouldEqual, "202-555-0199")
			So(records[0].Office, ShouldEqual, "1 Cannon")
			So(records[0].BioguideID, ShouldEqual, "R000001")
			So(*records[0].District, ShouldEqual, 3)
		})

		Convey("Then only the latest roll calls are tallied", func() {
			So(f.votes.years, ShouldResemble, []int{2025})
			So(records[0].TotalVotes, ShouldEqual, 1)
			So(records[0].PresentVotes, ShouldEqual, 1)
		})
	})
}

func TestBootstrapKeepsHistory(t *testing.T) {
	ctx := context.Background()

	Convey("Given rankings from an earlier run", t, func() {
		f := newFixture(t)
		var old model.Legislator
		old.BioguideID, old.Name, old.State = "S000001", "Old Name", "NY"
		old.Streaks = model.Streaks{Activity: 4}
		old.Streak = 4
		old.SponsoredBills = 9
		So(f.store.SaveLegislators(ctx, "senators-rankings.json", []model.Legislator{old}), ShouldBeNil)

		So(f.runner().Run(ctx, []model.Chamber{model.Senate}, pipeline.StageBootstrap), ShouldBeNil)

		records, err := f.store.LoadLegislators(ctx, "senators-rankings.json")
		So(err, ShouldBeNil)
		got := byID(records)

		Convey("Then identity is refreshed and counters and streaks are kept", func() {
			So(records, ShouldHaveLength, 3)
			So(got["S000001"].Name, ShouldEqual, "Ann Adams")
			So(got["S000001"].Streak, ShouldEqual, 4)
			So(got["S000001"].SponsoredBills, ShouldEqual, 9)
			So(f.store.Exists("senators-profiles.json"), ShouldBeTrue)
		})
	})
}

func TestMergeDuplicates(t *testing.T) {
	ctx := context.Background()

	Convey("Given rankings with a duplicated id", t, func() {
		f := newFixture(t)
		f.writeFile(t, "senators-rankings.json", `[
  {"bioguideId": "S000001", "name": "First", "sponsoredBills": "3"},
  {"bioguideId": "S000002", "name": "Other"},
  {"bioguideId": "S000001", "name": "Second", "totalVotes": 4, "missedVotes": 1}
]`)
		r := f.runner()

		So(r.Run(ctx, []model.Chamber{model.Senate}, pipeline.StageMerge), ShouldBeNil)
		records, err := f.store.LoadLegislators(ctx, "senators-rankings.json")
		So(err, ShouldBeNil)

		Convey("Then the last occurrence wins in its position", func() {
			So(records, ShouldHaveLength, 2)
			So(records[0].BioguideID, ShouldEqual, "S000002")
			So(records[1].Name, ShouldEqual, "Second")
			So(records[1].ParticipationPct, ShouldEqual, 75)
			So(r.Notes(model.Senate).Duplicates, ShouldResemble, []string{"S000001"})
		})

		Convey("Then verify accepts the rewritten file", func() {
			problems, err := r.Verify(ctx, model.Senate)
			So(err, ShouldBeNil)
			So(problems, ShouldBeEmpty)
		})
	})

	Convey("Given a hand-edited rankings file", t, func() {
		f := newFixture(t)
		f.writeFile(t, "senators-rankings.json", `[{"bioguideId": "S000001", "streak": 2, "streaks": {"activity": 1}}]`)

		problems, err := f.runner().Verify(ctx, model.Senate)

		Convey("Then verify reports every problem", func() {
			So(err, ShouldBeNil)
			So(problems, ShouldHaveLength, 2)
		})
	})
}

func TestHouseYear(t *testing.T) {
	Convey("HouseYear maps a congress session to its year", t, func() {
		So(pipeline.HouseYear(119, 1), ShouldEqual, 2025)
		So(pipeline.HouseYear(118, 2), ShouldEqual, 2024)
		So(pipeline.HouseYear(1, 0), ShouldEqual, 1789)
	})
}
