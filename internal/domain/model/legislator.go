// Package model contains domain models passed between layers.
package model

import (
	"math"
	"strings"
)

// Chamber identifies one house of Congress.
type Chamber string

const (
	Senate Chamber = "senate"
	House  Chamber = "house"
)

// Chambers lists both chambers in pipeline order.
var Chambers = []Chamber{Senate, House}

// ParseChamber accepts senate/house and the sen/rep/representatives aliases.
func ParseChamber(s string) (Chamber, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "senate", "sen", "senator", "senators":
		return Senate, true
	case "house", "rep", "representative", "representatives":
		return House, true
	}
	return "", false
}

// FilePrefix is the prefix of every data file written for the chamber.
func (c Chamber) FilePrefix() string {
	if c == Senate {
		return "senators"
	}
	return "representatives"
}

// Title returns the display name, e.g. "Senate".
func (c Chamber) Title() string {
	switch c {
	case Senate:
		return "Senate"
	case House:
		return "House"
	}
	return string(c)
}

// File names the chamber's data file of the given kind, e.g. senators-rankings.json.
func (c Chamber) File(kind string) string {
	return c.FilePrefix() + "-" + kind + ".json"
}

// Identity holds who a legislator is. Every field is optional; merges only
// overwrite fields that the newer source actually knows.
type Identity struct {
	BioguideID      string  `json:"bioguideId" yaml:"bioguideId"`
	Name            string  `json:"name" yaml:"name"`
	FirstName       string  `json:"firstName,omitempty" yaml:"firstName,omitempty"`
	LastName        string  `json:"lastName,omitempty" yaml:"lastName,omitempty"`
	State           string  `json:"state" yaml:"state"`
	Party           string  `json:"party" yaml:"party"`
	Chamber         Chamber `json:"chamber,omitempty" yaml:"chamber,omitempty"`
	District        *int    `json:"district,omitempty" yaml:"district,omitempty"`
	Office          string  `json:"office,omitempty" yaml:"office,omitempty"`
	Website         string  `json:"website,omitempty" yaml:"website,omitempty"`
	Phone           string  `json:"phone,omitempty" yaml:"phone,omitempty"`
	LeadershipTitle string  `json:"leadershipTitle,omitempty" yaml:"leadershipTitle,omitempty"`
	GovTrackID      int     `json:"govtrackId,omitempty" yaml:"govtrackId,omitempty"`
	LISID           string  `json:"lisId,omitempty" yaml:"lisId,omitempty"`
}

// Legislation holds bill counters from Congress.gov.
type Legislation struct {
	SponsoredBills   Count `json:"sponsoredBills"`
	CosponsoredBills Count `json:"cosponsoredBills"`
	BecameLawBills   Count `json:"becameLawBills"`
}

// Votes holds roll-call counters from the clerk feeds.
type Votes struct {
	YeaVotes     Count `json:"yeaVotes"`
	NayVotes     Count `json:"nayVotes"`
	PresentVotes Count `json:"presentVotes"`
	MissedVotes  Count `json:"missedVotes"`
	TotalVotes   Count `json:"totalVotes"`
}

// Committee is one committee assignment.
type Committee struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Role string `json:"role"`
	Rank int    `json:"rank,omitempty"`
}

// Streaks are the three independent consecutive-run counters.
type Streaks struct {
	Activity Count `json:"activity"`
	Voting   Count `json:"voting"`
	Leader   Count `json:"leader"`
}

// Max returns the largest of the three streaks.
func (s Streaks) Max() Count {
	m := s.Activity
	if s.Voting > m {
		m = s.Voting
	}
	if s.Leader > m {
		m = s.Leader
	}
	return m
}

// Totals is the counter snapshot compared between runs.
type Totals struct {
	SponsoredBills   Count `json:"sponsoredBills"`
	CosponsoredBills Count `json:"cosponsoredBills"`
	YeaVotes         Count `json:"yeaVotes"`
	NayVotes         Count `json:"nayVotes"`
	MissedVotes      Count `json:"missedVotes"`
	TotalVotes       Count `json:"totalVotes"`
}

// RecordMetrics carries the previous snapshot used for week-over-week deltas.
type RecordMetrics struct {
	LastTotals *Totals `json:"lastTotals,omitempty"`
	UpdatedAt  string  `json:"updatedAt,omitempty"`
}

// Legislator is one row of a rankings file.
type Legislator struct {
	Identity
	Legislation
	Votes

	ParticipationPct float64 `json:"participationPct"`
	MissedVotePct    float64 `json:"missedVotePct"`

	Committees     []Committee `json:"committees"`
	MisconductTags []string    `json:"misconductTags"`

	PowerScore float64       `json:"powerScore"`
	Streaks    Streaks       `json:"streaks"`
	Streak     Count         `json:"streak"`
	Metrics    RecordMetrics `json:"metrics"`
}

// TotalsOf extracts the current counter snapshot of a record.
func TotalsOf(l *Legislator) Totals {
	return Totals{
		SponsoredBills:   l.SponsoredBills,
		CosponsoredBills: l.CosponsoredBills,
		YeaVotes:         l.YeaVotes,
		NayVotes:         l.NayVotes,
		MissedVotes:      l.MissedVotes,
		TotalVotes:       l.TotalVotes,
	}
}

// RecomputePercentages derives participation and missed-vote percentages from
// the vote counters, rounded to two decimals. Zero total votes yields zeros.
func (l *Legislator) RecomputePercentages() {
	total := float64(l.TotalVotes)
	if total <= 0 {
		l.ParticipationPct = 0
		l.MissedVotePct = 0
		return
	}
	missed := math.Min(float64(l.MissedVotes), total)
	l.ParticipationPct = Round2((total - missed) / total * 100)
	l.MissedVotePct = Round2(missed / total * 100)
}

// Normalize replaces nil slices with empty ones so files always carry arrays.
func (l *Legislator) Normalize() {
	if l.Committees == nil {
		l.Committees = []Committee{}
	}
	if l.MisconductTags == nil {
		l.MisconductTags = []string{}
	}
}

// DisplayName falls back to "First Last" when Name is empty.
func (l *Legislator) DisplayName() string {
	if l.Name != "" {
		return l.Name
	}
	return strings.TrimSpace(l.FirstName + " " + l.LastName)
}

// Round2 rounds to two decimal places.
func Round2(f float64) float64 {
	return math.Round(f*100) / 100
}
