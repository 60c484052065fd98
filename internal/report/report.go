// Package report builds the per-chamber diagnostics written after a pipeline run.
package report

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/okian/civicrank/internal/adapters/repository"
	"github.com/okian/civicrank/internal/domain/model"
	"github.com/okian/civicrank/internal/domain/streaks"
)

const (
	defaultTopN       = 10
	defaultStreakRows = 5
)

// Unmatched is a misconduct entry that could not be tied to a legislator.
type Unmatched struct {
	Name   string `json:"name"`
	Person int    `json:"person,omitempty"`
}

// MissingFields lists the identity fields a record lacks.
type MissingFields struct {
	BioguideID string   `json:"bioguideId"`
	Name       string   `json:"name"`
	Fields     []string `json:"fields"`
}

// Input is everything a report is built from. Only Chamber and Records are required.
type Input struct {
	Chamber    model.Chamber
	Records    []model.Legislator
	Duplicates []string
	Unmatched  []Unmatched
	Streaks    *streaks.Summary
	Skipped    map[string]int
}

// Diagnostics is the report for one chamber.
type Diagnostics struct {
	RunID           string              `json:"runId"`
	Chamber         model.Chamber       `json:"chamber"`
	GeneratedAt     string              `json:"generatedAt"`
	Records         int                 `json:"records"`
	ZeroVotes       []string            `json:"zeroVotes"`
	MissingIdentity []MissingFields     `json:"missingIdentity"`
	Duplicates      []string            `json:"duplicates"`
	Unmatched       []Unmatched         `json:"unmatchedMisconduct"`
	Skipped         map[string]int      `json:"skipped,omitempty"`
	Top             []model.Entry       `json:"top"`
	StreakLeaders   []model.StreakRow   `json:"streakLeaders"`
	Streaks         *streaks.Summary    `json:"streaks,omitempty"`
	Violations      []streaks.Violation `json:"violations"`
}

// Option configures Build.
type Option func(*builder)

type builder struct {
	now   func() time.Time
	topN  int
	runID string
}

// WithClock sets the time source for generatedAt.
func WithClock(now func() time.Time) Option {
	return func(b *builder) {
		if now != nil {
			b.now = now
		}
	}
}

// WithTopN sets how many leaderboard rows are listed.
func WithTopN(n int) Option {
	return func(b *builder) {
		if n > 0 {
			b.topN = n
		}
	}
}

// WithRunID stamps the report with an existing run id instead of a new one.
func WithRunID(id string) Option {
	return func(b *builder) {
		if id != "" {
			b.runID = id
		}
	}
}

// Build computes diagnostics for in.
func Build(in Input, opts ...Option) Diagnostics {
	b := &builder{now: time.Now, topN: defaultTopN}
	for _, opt := range opts {
		opt(b)
	}
	if b.runID == "" {
		b.runID = uuid.NewString()
	}

	d := Diagnostics{
		RunID:           b.runID,
		Chamber:         in.Chamber,
		GeneratedAt:     b.now().UTC().Format(time.RFC3339),
		Records:         len(in.Records),
		ZeroVotes:       []string{},
		MissingIdentity: []MissingFields{},
		Duplicates:      append([]string{}, in.Duplicates...),
		Unmatched:       append([]Unmatched{}, in.Unmatched...),
		Skipped:         in.Skipped,
		Streaks:         in.Streaks,
		Violations:      streaks.Check(in.Records),
	}
	if d.Violations == nil {
		d.Violations = []streaks.Violation{}
	}
	sort.Strings(d.Duplicates)

	for i := range in.Records {
		l := &in.Records[i]
		if l.TotalVotes == 0 {
			d.ZeroVotes = append(d.ZeroVotes, l.BioguideID)
		}
		if missing := missingIdentity(l); len(missing) > 0 {
			d.MissingIdentity = append(d.MissingIdentity, MissingFields{
				BioguideID: l.BioguideID,
				Name:       l.DisplayName(),
				Fields:     missing,
			})
		}
	}

	lb := repository.NewLeaderboard(in.Chamber, in.Records)
	if top, err := lb.TopN(context.Background(), b.topN); err == nil {
		d.Top = top
	}
	if d.Top == nil {
		d.Top = []model.Entry{}
	}
	d.StreakLeaders = lb.TopStreaks(defaultStreakRows)
	return d
}

func missingIdentity(l *model.Legislator) []string {
	var out []string
	if l.BioguideID == "" {
		out = append(out, "bioguideId")
	}
	if l.DisplayName() == "" {
		out = append(out, "name")
	}
	if l.State == "" {
		out = append(out, "state")
	}
	if l.Party == "" {
		out = append(out, "party")
	}
	return out
}

// JSON encodes the diagnostics the way data files are encoded.
func (d Diagnostics) JSON() ([]byte, error) {
	return repository.EncodeJSON(d)
}

// Markdown renders the diagnostics as a markdown document.
func (d Diagnostics) Markdown() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "# %s diagnostics\n\n", d.Chamber.Title())
	fmt.Fprintf(&sb, "Run `%s`, generated %s.\n\n", d.RunID, d.GeneratedAt)

	summary := table.NewWriter()
	summary.AppendHeader(table.Row{"Check", "Count"})
	summary.AppendRows([]table.Row{
		{"Records", d.Records},
		{"Zero-vote records", len(d.ZeroVotes)},
		{"Missing identity fields", len(d.MissingIdentity)},
		{"Duplicate ids dropped", len(d.Duplicates)},
		{"Unmatched misconduct entries", len(d.Unmatched)},
		{"Streak violations", len(d.Violations)},
	})
	skipped := make([]string, 0, len(d.Skipped))
	for stage := range d.Skipped {
		skipped = append(skipped, stage)
	}
	sort.Strings(skipped)
	for _, stage := range skipped {
		summary.AppendRow(table.Row{"Skipped in " + stage, d.Skipped[stage]})
	}
	sb.WriteString(summary.RenderMarkdown())
	sb.WriteString("\n\n## Top by power score\n\n")

	top := table.NewWriter()
	top.AppendHeader(table.Row{"Rank", "Bioguide", "Name", "State", "Party", "Power", "Streak"})
	for _, e := range d.Top {
		top.AppendRow(table.Row{e.Rank, e.BioguideID, e.Name, e.State, e.Party, fmt.Sprintf("%.2f", e.PowerScore), e.Streak})
	}
	sb.WriteString(top.RenderMarkdown())
	sb.WriteString("\n\n## Streak leaders\n\n")

	st := table.NewWriter()
	st.AppendHeader(table.Row{"Bioguide", "Name", "Activity", "Voting", "Leader", "Streak"})
	for _, r := range d.StreakLeaders {
		st.AppendRow(table.Row{r.BioguideID, r.Name, r.Streaks.Activity, r.Streaks.Voting, r.Streaks.Leader, r.Streak})
	}
	sb.WriteString(st.RenderMarkdown())
	sb.WriteString("\n")

	if d.Streaks != nil {
		fmt.Fprintf(&sb, "\nLeader this run: `%s` (streak %d).\n", d.Streaks.LeaderID, d.Streaks.LeaderStreak)
	}
	writeList(&sb, "Zero-vote records", d.ZeroVotes)
	if len(d.MissingIdentity) > 0 {
		sb.WriteString("\n## Missing identity fields\n\n")
		for _, m := range d.MissingIdentity {
			fmt.Fprintf(&sb, "- `%s` %s: %s\n", m.BioguideID, m.Name, strings.Join(m.Fields, ", "))
		}
	}
	writeList(&sb, "Duplicate ids", d.Duplicates)
	if len(d.Unmatched) > 0 {
		sb.WriteString("\n## Unmatched misconduct entries\n\n")
		for _, u := range d.Unmatched {
			fmt.Fprintf(&sb, "- %s (govtrack %d)\n", u.Name, u.Person)
		}
	}
	if len(d.Violations) > 0 {
		sb.WriteString("\n## Streak violations\n\n")
		for _, v := range d.Violations {
			fmt.Fprintf(&sb, "- %s\n", v)
		}
	}
	return sb.String()
}

func writeList(sb *strings.Builder, title string, ids []string) {
	if len(ids) == 0 {
		return
	}
	fmt.Fprintf(sb, "\n## %s\n\n", title)
	for _, id := range ids {
		fmt.Fprintf(sb, "- `%s`\n", id)
	}
}

// FileName names the chamber's diagnostics file with the given extension.
func FileName(c model.Chamber, ext string) string {
	return c.FilePrefix() + "-diagnostics." + ext
}

// Write stores the markdown and JSON renderings in store.
func Write(ctx context.Context, store *repository.FileStore, d Diagnostics) error {
	b, err := d.JSON()
	if err != nil {
		return fmt.Errorf("encode diagnostics: %w", err)
	}
	if err := store.WriteFile(FileName(d.Chamber, "json"), b); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return store.WriteFile(FileName(d.Chamber, "md"), []byte(d.Markdown()))
}
