// Package clerk reads roll-call votes from the Senate LIS and House Clerk XML feeds.
package clerk

import (
	"strings"

	"github.com/okian/civicrank/internal/adapters/upstream"
	"github.com/okian/civicrank/internal/domain/model"
)

// Metrics labels of the two feeds.
const (
	SenateSource = "senate_clerk"
	HouseSource  = "house_clerk"
)

// Cast is a normalised vote.
type Cast int

const (
	CastUnknown Cast = iota
	CastYea
	CastNay
	CastPresent
	CastMissed
)

func (c Cast) String() string {
	switch c {
	case CastYea:
		return "yea"
	case CastNay:
		return "nay"
	case CastPresent:
		return "present"
	case CastMissed:
		return "missed"
	}
	return "unknown"
}

// ParseCast normalises the vote strings used by both chambers. Anything else
// that is not empty (e.g. a name in a Speaker election) counts as present.
func ParseCast(s string) Cast {
	v := strings.ToLower(strings.TrimSpace(s))
	switch {
	case v == "":
		return CastUnknown
	case v == "yea" || v == "aye" || v == "yes" || v == "guilty":
		return CastYea
	case v == "nay" || v == "no" || v == "not guilty":
		return CastNay
	case v == "not voting" || v == "absent":
		return CastMissed
	case strings.HasPrefix(v, "present"):
		return CastPresent
	}
	return CastPresent
}

// Ballot is one member's vote on a roll call. MemberID is a bioguide id for
// the House and a LIS id for the Senate.
type Ballot struct {
	MemberID string
	Name     string
	Cast     Cast
}

// RollCall is one recorded vote.
type RollCall struct {
	Chamber model.Chamber
	// Period is the congress for the Senate and the year for the House.
	Period  int
	Session int
	Number  int
	Date    string
	Ballots []Ballot
}

// Tally accumulates per-member vote counters keyed by bioguide id.
type Tally map[string]model.Votes

// Add counts one ballot. Unknown casts are ignored.
func (t Tally) Add(bioguideID string, c Cast) {
	if bioguideID == "" || c == CastUnknown {
		return
	}
	v := t[bioguideID]
	switch c {
	case CastYea:
		v.YeaVotes++
	case CastNay:
		v.NayVotes++
	case CastPresent:
		v.PresentVotes++
	case CastMissed:
		v.MissedVotes++
	}
	v.TotalVotes++
	t[bioguideID] = v
}

// AddRollCall counts every ballot, translating member ids with resolve. A
// ballot whose id resolves to "" is skipped and returned.
func (t Tally) AddRollCall(rc RollCall, resolve func(string) string) []Ballot {
	var skipped []Ballot
	for _, b := range rc.Ballots {
		id := b.MemberID
		if resolve != nil {
			id = resolve(id)
		}
		if id == "" {
			skipped = append(skipped, b)
			continue
		}
		t.Add(id, b.Cast)
	}
	return skipped
}

// Client reads both feeds.
type Client struct {
	senate *upstream.Client
	house  *upstream.Client
}

// New creates a client from the Senate and House feed settings.
func New(senate, house upstream.Config) *Client {
	return &Client{
		senate: upstream.NewClient(SenateSource, senate),
		house:  upstream.NewClient(HouseSource, house),
	}
}
