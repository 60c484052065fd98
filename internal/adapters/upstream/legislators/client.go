// Package legislators reads the unitedstates/congress-legislators datasets:
// current legislators (JSON) and committees with their membership (YAML).
package legislators

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/okian/civicrank/internal/adapters/upstream"
	"github.com/okian/civicrank/internal/domain/model"
)

// Source is the metrics label of this client.
const Source = "legislators"

// Dataset paths relative to the base URL.
const (
	CurrentPath    = "/legislators-current.json"
	CommitteesPath = "/committees-current.yaml"
	MembershipPath = "/committee-membership-current.yaml"
)

// Person is one entry of legislators-current.json.
type Person struct {
	ID struct {
		Bioguide string `json:"bioguide"`
		LIS      string `json:"lis"`
		GovTrack int    `json:"govtrack"`
	} `json:"id"`
	Name struct {
		First        string `json:"first"`
		Last         string `json:"last"`
		Nickname     string `json:"nickname"`
		OfficialFull string `json:"official_full"`
	} `json:"name"`
	Terms []Term `json:"terms"`
}

// Term is one term of service.
type Term struct {
	Type     string `json:"type"` // sen or rep
	Start    string `json:"start"`
	End      string `json:"end"`
	State    string `json:"state"`
	District *int   `json:"district"`
	Party    string `json:"party"`
	URL      string `json:"url"`
	Address  string `json:"address"`
	Phone    string `json:"phone"`
}

// CurrentTerm returns the latest term; ok is false when there are none.
func (p Person) CurrentTerm() (Term, bool) {
	if len(p.Terms) == 0 {
		return Term{}, false
	}
	return p.Terms[len(p.Terms)-1], true
}

// Chamber returns the chamber of the current term.
func (p Person) Chamber() (model.Chamber, bool) {
	t, ok := p.CurrentTerm()
	if !ok {
		return "", false
	}
	switch t.Type {
	case "sen":
		return model.Senate, true
	case "rep":
		return model.House, true
	}
	return "", false
}

// Legislator converts the person to a base rankings record.
func (p Person) Legislator() model.Legislator {
	var l model.Legislator
	l.BioguideID = p.ID.Bioguide
	l.LISID = p.ID.LIS
	l.GovTrackID = p.ID.GovTrack
	l.FirstName = p.Name.First
	l.LastName = p.Name.Last
	l.Name = p.Name.OfficialFull
	if l.Name == "" {
		first := p.Name.First
		if p.Name.Nickname != "" {
			first = p.Name.Nickname
		}
		l.Name = strings.TrimSpace(first + " " + p.Name.Last)
	}
	if t, ok := p.CurrentTerm(); ok {
		l.State = t.State
		l.Party = t.Party
		l.Website = t.URL
		l.Phone = t.Phone
		l.Office = t.Address
		if t.Type == "rep" {
			l.District = t.District
		}
	}
	if c, ok := p.Chamber(); ok {
		l.Chamber = c
	}
	l.Normalize()
	return l
}

// Committee is one entry of committees-current.yaml.
type Committee struct {
	Type          string         `yaml:"type"`
	Name          string         `yaml:"name"`
	ThomasID      string         `yaml:"thomas_id"`
	Subcommittees []Subcommittee `yaml:"subcommittees"`
}

// Subcommittee is nested under a committee.
type Subcommittee struct {
	Name     string `yaml:"name"`
	ThomasID string `yaml:"thomas_id"`
}

// Member is one entry of a committee roster.
type Member struct {
	Name     string `yaml:"name"`
	Party    string `yaml:"party"`
	Rank     int    `yaml:"rank"`
	Title    string `yaml:"title"`
	Bioguide string `yaml:"bioguide"`
}

// Client reads the datasets.
type Client struct {
	api *upstream.Client
}

// New creates a client.
func New(cfg upstream.Config) *Client {
	return &Client{api: upstream.NewClient(Source, cfg)}
}

// Current returns every current legislator.
func (c *Client) Current(ctx context.Context) ([]Person, error) {
	body, err := c.api.Get(ctx, CurrentPath, nil)
	if err != nil {
		return nil, fmt.Errorf("current legislators: %w", err)
	}
	var people []Person
	if err := json.Unmarshal(body, &people); err != nil {
		return nil, fmt.Errorf("%w: current legislators: %v", upstream.ErrDecode, err)
	}
	return people, nil
}

// Committees returns the current committees.
func (c *Client) Committees(ctx context.Context) ([]Committee, error) {
	body, err := c.api.Get(ctx, CommitteesPath, nil)
	if err != nil {
		return nil, fmt.Errorf("committees: %w", err)
	}
	var out []Committee
	if err := yaml.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("%w: committees: %v", upstream.ErrDecode, err)
	}
	return out, nil
}

// CommitteeMembership returns rosters keyed by committee or subcommittee thomas id.
func (c *Client) CommitteeMembership(ctx context.Context) (map[string][]Member, error) {
	body, err := c.api.Get(ctx, MembershipPath, nil)
	if err != nil {
		return nil, fmt.Errorf("committee membership: %w", err)
	}
	out := map[string][]Member{}
	if err := yaml.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("%w: committee membership: %v", upstream.ErrDecode, err)
	}
	return out, nil
}

// Assignments joins committees and rosters into per-legislator committee
// lists. Only full committees count; subcommittee rosters are ignored.
// Each list is sorted by committee id.
func Assignments(committees []Committee, membership map[string][]Member) map[string][]model.Committee {
	out := map[string][]model.Committee{}
	for _, com := range committees {
		for _, m := range membership[com.ThomasID] {
			if m.Bioguide == "" {
				continue
			}
			role := strings.TrimSpace(m.Title)
			if role == "" {
				role = "Member"
			}
			out[m.Bioguide] = append(out[m.Bioguide], model.Committee{
				ID:   com.ThomasID,
				Name: com.Name,
				Role: role,
				Rank: m.Rank,
			})
		}
	}
	for id := range out {
		list := out[id]
		sort.SliceStable(list, func(i, j int) bool { return list[i].ID < list[j].ID })
	}
	return out
}

// LISIndex maps Senate LIS member ids to bioguide ids.
func LISIndex(people []Person) map[string]string {
	idx := make(map[string]string, len(people))
	for _, p := range people {
		if p.ID.LIS != "" && p.ID.Bioguide != "" {
			idx[p.ID.LIS] = p.ID.Bioguide
		}
	}
	return idx
}
