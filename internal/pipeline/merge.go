package pipeline

import (
	"context"
	"errors"

	"dario.cat/mergo"

	"github.com/okian/civicrank/internal/adapters/repository"
	"github.com/okian/civicrank/internal/domain/dedupe"
	"github.com/okian/civicrank/internal/domain/model"
	"github.com/okian/civicrank/pkg/logger"
)

// merge folds every present partial into the rankings. Identity fields from
// profiles are merged field by field; counter blocks, committees and tags
// are replaced wholesale for records the partial covers. Duplicate ids keep
// their last occurrence.
func (r *Runner) merge(ctx context.Context, ch model.Chamber) error {
	records, err := r.loadRankings(ctx, ch)
	if err != nil {
		return err
	}
	records, dups := r.dropDuplicates(ctx, ch, records)

	profiles, _ := loadRows(ctx, r, ch, KindProfiles, func(p *model.Identity) string { return p.BioguideID })
	bills, _ := loadRows(ctx, r, ch, KindLegislation, func(l *LegislationRow) string { return l.BioguideID })
	votes, _ := loadRows(ctx, r, ch, KindVotes, func(v *VoteRow) string { return v.BioguideID })
	committees, _ := loadRows(ctx, r, ch, KindCommittees, func(c *CommitteeRow) string { return c.BioguideID })
	tags := r.loadMisconduct(ctx, ch)

	for i := range records {
		l := &records[i]
		id := l.BioguideID
		if p, ok := profiles[id]; ok {
			p.Chamber = ""
			if err := mergo.Merge(&l.Identity, p, mergo.WithOverride); err != nil {
				r.log.Warn(ctx, "profile not merged", logger.BioguideID(id), logger.Error(err))
				r.skip(ch, StageMerge, "profile")
			}
		}
		if row, ok := bills[id]; ok {
			l.Legislation = row.Legislation
		}
		if row, ok := votes[id]; ok {
			l.Votes = row.Votes
		}
		if row, ok := committees[id]; ok {
			l.Committees = row.Committees
		}
		if t, ok := tags[id]; ok {
			l.MisconductTags = t
		}
		l.Chamber = ch
		l.RecomputePercentages()
		l.Normalize()
	}

	if err := r.saveRankings(ctx, ch, records); err != nil {
		return err
	}
	r.note(ch, func(n *Notes) { n.Duplicates = dups })
	r.log.Info(ctx, "rankings merged", logger.Records(len(records)), logger.Int("duplicates", len(dups)),
		logger.Int("profiles", len(profiles)), logger.Int("legislation", len(bills)),
		logger.Int("votes", len(votes)), logger.Int("committees", len(committees)))
	return nil
}

// dropDuplicates keeps the last occurrence of each bioguide id and returns
// the ids that were dropped.
func (r *Runner) dropDuplicates(ctx context.Context, ch model.Chamber, records []model.Legislator) ([]model.Legislator, []string) {
	seen := dedupe.NewInMemoryDeduper()
	kept := make([]model.Legislator, 0, len(records))
	var dups []string
	for i := len(records) - 1; i >= 0; i-- {
		id := records[i].BioguideID
		if id == "" {
			r.log.Warn(ctx, "record without bioguide id", logger.String("name", records[i].DisplayName()))
			kept = append(kept, records[i])
			continue
		}
		if seen.SeenAndRecord(ctx, id) {
			r.log.Warn(ctx, "dropping duplicate record", logger.BioguideID(id), logger.Int("index", i))
			r.skip(ch, StageMerge, "duplicate")
			dups = append(dups, id)
			continue
		}
		kept = append(kept, records[i])
	}
	for i, j := 0, len(kept)-1; i < j; i, j = i+1, j-1 {
		kept[i], kept[j] = kept[j], kept[i]
	}
	return kept, dups
}

func (r *Runner) loadMisconduct(ctx context.Context, ch model.Chamber) map[string][]string {
	var f MisconductFile
	name := ch.File(KindMisconduct)
	if err := r.store.LoadJSON(ctx, name, &f); err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			r.log.Warn(ctx, "skipping unreadable partial", logger.File(name), logger.Error(err))
			r.skip(ch, StageMerge, "partial")
		}
		return nil
	}
	out := make(map[string][]string, len(f.Records))
	for _, row := range f.Records {
		if row.MisconductTags == nil {
			row.MisconductTags = []string{}
		}
		out[row.BioguideID] = row.MisconductTags
	}
	return out
}
