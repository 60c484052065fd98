// Package scoring computes the composite power score used to rank legislators.
package scoring

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/okian/civicrank/internal/domain/model"
)

// Default weight constants.
const (
	defaultSponsoredWeight     = 1.0
	defaultCosponsoredWeight   = 0.25
	defaultBecameLawWeight     = 5.0
	defaultParticipationWeight = 0.5
	defaultMisconductPenalty   = 10.0
)

// Committee role names recognised by the default role weights.
const (
	RoleChair         = "chair"
	RoleRankingMember = "ranking member"
	RoleViceChair     = "vice chair"
	RoleMember        = "member"
)

// Weights holds the multipliers applied to each score component.
type Weights struct {
	Sponsored     float64
	Cosponsored   float64
	BecameLaw     float64
	Participation float64
	// Roles maps a lower-case committee role to its weight.
	Roles             map[string]float64
	MisconductPenalty float64
}

// DefaultWeights returns the stock weights.
func DefaultWeights() Weights {
	return Weights{
		Sponsored:     defaultSponsoredWeight,
		Cosponsored:   defaultCosponsoredWeight,
		BecameLaw:     defaultBecameLawWeight,
		Participation: defaultParticipationWeight,
		Roles: map[string]float64{
			RoleChair:         5,
			RoleRankingMember: 4,
			RoleViceChair:     3,
			RoleMember:        1,
		},
		MisconductPenalty: defaultMisconductPenalty,
	}
}

// Option applies a configuration option to the PowerScorer.
type Option func(*PowerScorer)

// WithWeightsFromConfig overrides component weights from a config map keyed by
// sponsored, cosponsored, became_law and participation. Negative values are ignored.
func WithWeightsFromConfig(weights map[string]float64) Option {
	return func(s *PowerScorer) {
		for k, v := range weights {
			if v < 0 {
				continue
			}
			switch k {
			case "sponsored":
				s.weights.Sponsored = v
			case "cosponsored":
				s.weights.Cosponsored = v
			case "became_law", "becamelaw":
				s.weights.BecameLaw = v
			case "participation":
				s.weights.Participation = v
			}
		}
	}
}

// WithRoleWeights replaces the committee role weights.
func WithRoleWeights(roles map[string]float64) Option {
	return func(s *PowerScorer) {
		if len(roles) == 0 {
			return
		}
		s.weights.Roles = make(map[string]float64, len(roles))
		for role, w := range roles {
			if w >= 0 {
				s.weights.Roles[normalizeRole(role)] = w
			}
		}
	}
}

// WithMisconductPenalty sets the penalty subtracted per misconduct tag.
func WithMisconductPenalty(p float64) Option {
	return func(s *PowerScorer) {
		if p >= 0 {
			s.weights.MisconductPenalty = p
		}
	}
}

// Result contains the computed score for a legislator.
type Result struct {
	BioguideID    string  `json:"bioguideId"`
	Name          string  `json:"name"`
	State         string  `json:"state"`
	Party         string  `json:"party"`
	Rank          int     `json:"rank"`
	Legislation   float64 `json:"legislation"`
	Participation float64 `json:"participation"`
	Committees    float64 `json:"committees"`
	Penalty       float64 `json:"penalty"`
	PowerScore    float64 `json:"powerScore"`
}

// Scorer computes a power score from a legislator record.
type Scorer interface {
	// Score computes a score, honoring ctx for cancellation.
	Score(ctx context.Context, l *model.Legislator) (Result, error)
}

// PowerScorer implements Scorer with a weighted linear sum.
type PowerScorer struct {
	weights Weights
}

// NewPowerScorer creates a scorer with default weights adjusted by options.
func NewPowerScorer(opts ...Option) *PowerScorer {
	s := &PowerScorer{weights: DefaultWeights()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Weights returns a copy of the active weights.
func (s *PowerScorer) Weights() Weights {
	w := s.weights
	w.Roles = make(map[string]float64, len(s.weights.Roles))
	for k, v := range s.weights.Roles {
		w.Roles[k] = v
	}
	return w
}

// Score computes the power score for the given record.
func (s *PowerScorer) Score(ctx context.Context, l *model.Legislator) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, fmt.Errorf("score %s: %w", l.BioguideID, err)
	}

	w := s.weights
	legislation := float64(l.SponsoredBills)*w.Sponsored +
		float64(l.CosponsoredBills)*w.Cosponsored +
		float64(l.BecameLawBills)*w.BecameLaw

	pct := l.ParticipationPct
	if math.IsNaN(pct) || pct < 0 {
		pct = 0
	}
	participation := math.Min(pct, 100) * w.Participation

	var committees float64
	for _, c := range l.Committees {
		committees += s.roleWeight(c.Role)
	}

	penalty := float64(len(l.MisconductTags)) * w.MisconductPenalty

	score := math.Max(0, legislation+participation+committees-penalty)

	return Result{
		BioguideID:    l.BioguideID,
		Name:          l.DisplayName(),
		State:         l.State,
		Party:         l.Party,
		Legislation:   model.Round2(legislation),
		Participation: model.Round2(participation),
		Committees:    model.Round2(committees),
		Penalty:       model.Round2(penalty),
		PowerScore:    model.Round2(score),
	}, nil
}

// roleWeight maps a free-form role to a weight; unknown roles count as member.
func (s *PowerScorer) roleWeight(role string) float64 {
	r := normalizeRole(role)
	if w, ok := s.weights.Roles[r]; ok {
		return w
	}
	switch {
	case strings.Contains(r, "ranking"):
		return s.weights.Roles[RoleRankingMember]
	case strings.Contains(r, "vice"):
		return s.weights.Roles[RoleViceChair]
	case strings.Contains(r, "chair"):
		return s.weights.Roles[RoleChair]
	}
	return s.weights.Roles[RoleMember]
}

func normalizeRole(role string) string {
	r := strings.ToLower(strings.TrimSpace(role))
	r = strings.ReplaceAll(r, "_", " ")
	r = strings.ReplaceAll(r, "-", " ")
	for _, suffix := range []string{"woman", "person", "man"} {
		if strings.HasSuffix(r, suffix) && strings.Contains(r, "chair") {
			r = strings.TrimSuffix(r, suffix)
			break
		}
	}
	return strings.Join(strings.Fields(r), " ")
}

// Rank sorts results by power score descending, ties by bioguideId ascending,
// and assigns 1-based ranks in place.
func Rank(results []Result) {
	sort.SliceStable(results, func(i, j int) bool {
		if results[i].PowerScore != results[j].PowerScore {
			return results[i].PowerScore > results[j].PowerScore
		}
		return results[i].BioguideID < results[j].BioguideID
	})
	for i := range results {
		results[i].Rank = i + 1
	}
}

// ScoreAll scores every record, writes powerScore back onto it and returns
// ranked results. A cancelled context stops scoring and returns the error.
func ScoreAll(ctx context.Context, s Scorer, records []model.Legislator) ([]Result, error) {
	results := make([]Result, 0, len(records))
	for i := range records {
		r, err := s.Score(ctx, &records[i])
		if err != nil {
			return nil, err
		}
		records[i].PowerScore = r.PowerScore
		results = append(results, r)
	}
	Rank(results)
	return results, nil
}
