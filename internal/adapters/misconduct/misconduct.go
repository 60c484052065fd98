// Package misconduct reads GovTrack-style misconduct records and attaches
// their tags to legislators.
package misconduct

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/antzucaro/matchr"
	"gopkg.in/yaml.v3"

	"github.com/okian/civicrank/internal/domain/model"
)

// Default settings.
const (
	DefaultFile      = "misconduct.yaml"
	defaultThreshold = 0.92
)

// Tags is a tag list. It decodes from a space separated string or a sequence.
type Tags []string

// UnmarshalYAML implements yaml.Unmarshaler.
func (t *Tags) UnmarshalYAML(n *yaml.Node) error {
	switch n.Kind {
	case yaml.ScalarNode:
		*t = strings.Fields(n.Value)
		return nil
	case yaml.SequenceNode:
		var list []string
		if err := n.Decode(&list); err != nil {
			return err
		}
		out := make([]string, 0, len(list))
		for _, s := range list {
			out = append(out, strings.Fields(s)...)
		}
		*t = out
		return nil
	}
	return fmt.Errorf("%w: tags at line %d", ErrDecode, n.Line)
}

// Consequence is one outcome of an allegation.
type Consequence struct {
	Date string `yaml:"date"`
	Text string `yaml:"text"`
	Tags Tags   `yaml:"tags"`
}

// Entry is one allegation.
type Entry struct {
	Person       int           `yaml:"person"`
	Name         string        `yaml:"name"`
	Bioguide     string        `yaml:"bioguide"`
	Text         string        `yaml:"text"`
	Tags         Tags          `yaml:"tags"`
	Consequences []Consequence `yaml:"consequences"`
}

// AllTags returns the entry's tags and its consequences' tags.
func (e Entry) AllTags() []string {
	out := append([]string(nil), e.Tags...)
	for _, c := range e.Consequences {
		out = append(out, c.Tags...)
	}
	return out
}

// Parse decodes a misconduct file.
func Parse(r io.Reader) ([]Entry, error) {
	var entries []Entry
	if err := yaml.NewDecoder(r).Decode(&entries); err != nil {
		if err == io.EOF {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	return entries, nil
}

// Result of Resolve.
type Result struct {
	// Tags maps bioguide ids to sorted unique tags.
	Tags map[string][]string `json:"tags"`
	// Fuzzy lists entries that were resolved by name similarity.
	Fuzzy []Match `json:"fuzzy,omitempty"`
	// Unmatched lists entries that could not be tied to the roster.
	Unmatched []Entry `json:"unmatched,omitempty"`
}

// Match records a fuzzy name resolution.
type Match struct {
	Name       string  `json:"name"`
	BioguideID string  `json:"bioguideId"`
	Similarity float64 `json:"similarity"`
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithThreshold sets the minimum Jaro-Winkler similarity for name matches.
// Values outside (0, 1] are ignored.
func WithThreshold(t float64) Option {
	return func(r *Resolver) {
		if t > 0 && t <= 1 {
			r.threshold = t
		}
	}
}

// Resolver ties entries to a chamber roster.
type Resolver struct {
	threshold  float64
	byGovTrack map[int]string
	byBioguide map[string]bool
	names      []rosterName
}

type rosterName struct {
	id   string
	keys []string
}

// NewResolver indexes the roster.
func NewResolver(roster []model.Legislator, opts ...Option) *Resolver {
	r := &Resolver{
		threshold:  defaultThreshold,
		byGovTrack: make(map[int]string, len(roster)),
		byBioguide: make(map[string]bool, len(roster)),
	}
	for _, opt := range opts {
		opt(r)
	}
	for i := range roster {
		l := &roster[i]
		if l.BioguideID == "" {
			continue
		}
		r.byBioguide[l.BioguideID] = true
		if l.GovTrackID > 0 {
			r.byGovTrack[l.GovTrackID] = l.BioguideID
		}
		keys := uniqueKeys(NormalizeName(l.Name), NormalizeName(l.FirstName+" "+l.LastName))
		if len(keys) > 0 {
			r.names = append(r.names, rosterName{id: l.BioguideID, keys: keys})
		}
	}
	return r
}

// Resolve maps entries to bioguide ids: an explicit bioguide id first, then
// the GovTrack person id, then the best unambiguous name match.
func (r *Resolver) Resolve(entries []Entry) Result {
	res := Result{Tags: map[string][]string{}}
	seen := map[string]map[string]bool{}

	for _, e := range entries {
		id := r.lookup(e)
		if id == "" {
			m, ok := r.MatchName(e.Name)
			if !ok {
				res.Unmatched = append(res.Unmatched, e)
				continue
			}
			id = m.BioguideID
			res.Fuzzy = append(res.Fuzzy, m)
		}
		if seen[id] == nil {
			seen[id] = map[string]bool{}
		}
		for _, tag := range e.AllTags() {
			tag = strings.ToLower(strings.TrimSpace(tag))
			if tag == "" || seen[id][tag] {
				continue
			}
			seen[id][tag] = true
			res.Tags[id] = append(res.Tags[id], tag)
		}
		if res.Tags[id] == nil {
			res.Tags[id] = []string{}
		}
	}
	for id := range res.Tags {
		sort.Strings(res.Tags[id])
	}
	return res
}

func (r *Resolver) lookup(e Entry) string {
	if id := strings.ToUpper(strings.TrimSpace(e.Bioguide)); id != "" && r.byBioguide[id] {
		return id
	}
	if e.Person > 0 {
		return r.byGovTrack[e.Person]
	}
	return ""
}

// MatchName returns the roster member whose name is most similar. A tie
// between two different members is not a match.
func (r *Resolver) MatchName(name string) (Match, bool) {
	key := NormalizeName(name)
	if key == "" {
		return Match{}, false
	}
	best := Match{Name: name}
	ambiguous := false
	for _, rn := range r.names {
		score := 0.0
		for _, k := range rn.keys {
			if s := matchr.JaroWinkler(key, k, false); s > score {
				score = s
			}
		}
		switch {
		case score > best.Similarity:
			best.BioguideID, best.Similarity = rn.id, score
			ambiguous = false
		case score == best.Similarity && rn.id != best.BioguideID:
			ambiguous = true
		}
	}
	if best.BioguideID == "" || ambiguous || best.Similarity < r.threshold {
		return Match{}, false
	}
	best.Similarity = model.Round2(best.Similarity)
	return best, true
}

var honorifics = map[string]bool{
	"sen": true, "senator": true, "rep": true, "representative": true,
	"del": true, "delegate": true, "mr": true, "mrs": true, "ms": true, "dr": true,
	"jr": true, "sr": true, "ii": true, "iii": true, "iv": true,
}

// NormalizeName lowercases a name, turns "Last, First" around and drops
// punctuation, honorifics and GovTrack's "[D-NY]" suffixes.
func NormalizeName(s string) string {
	if i := strings.IndexByte(s, '['); i >= 0 {
		s = s[:i]
	}
	if last, first, ok := strings.Cut(s, ","); ok {
		rest := strings.TrimSpace(first)
		if rest != "" && !honorifics[strings.Trim(strings.ToLower(rest), ". ")] {
			s = rest + " " + last
		}
	}
	s = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r > 127:
			return r
		}
		return ' '
	}, strings.ToLower(s))

	words := strings.Fields(s)
	out := words[:0]
	for _, w := range words {
		if honorifics[w] {
			continue
		}
		out = append(out, w)
	}
	return strings.Join(out, " ")
}

func uniqueKeys(keys ...string) []string {
	var out []string
	for _, k := range keys {
		if k == "" {
			continue
		}
		dup := false
		for _, o := range out {
			if o == k {
				dup = true
				break
			}
		}
		if !dup {
			out = append(out, k)
		}
	}
	return out
}
