package pipeline

import (
	"context"
	"errors"
	"fmt"

	"dario.cat/mergo"

	"github.com/okian/civicrank/internal/adapters/misconduct"
	"github.com/okian/civicrank/internal/adapters/repository"
	"github.com/okian/civicrank/internal/adapters/upstream/govtrack"
	"github.com/okian/civicrank/internal/domain/model"
	"github.com/okian/civicrank/pkg/logger"
)

// OverridesFile holds hand-maintained House identity corrections.
const OverridesFile = "housereps.json"

// bootstrap writes the chamber's base records from the current legislators
// dataset. Records already present keep their counters, streaks and snapshot;
// only identity fields are refreshed.
func (r *Runner) bootstrap(ctx context.Context, ch model.Chamber) error {
	if r.roster == nil {
		return fmt.Errorf("%w: roster source", ErrNotConfigured)
	}
	people, err := r.roster.Current(ctx)
	if err != nil {
		return err
	}

	existing, err := r.store.LoadLegislators(ctx, ch.File(KindRankings))
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return fmt.Errorf("load rankings: %w", err)
	}
	prev := make(map[string]model.Legislator, len(existing))
	for _, l := range existing {
		prev[l.BioguideID] = l
	}

	records := make([]model.Legislator, 0, len(people))
	for _, p := range people {
		if c, ok := p.Chamber(); !ok || c != ch {
			continue
		}
		fresh := p.Legislator()
		if fresh.BioguideID == "" {
			r.log.Warn(ctx, "skipping legislator without bioguide id", logger.String("name", fresh.Name))
			r.skip(ch, StageBootstrap, "missing_id")
			continue
		}
		rec := fresh
		if old, ok := prev[fresh.BioguideID]; ok {
			rec = old
			if err := mergo.Merge(&rec.Identity, fresh.Identity, mergo.WithOverride); err != nil {
				return fmt.Errorf("merge identity %s: %w", fresh.BioguideID, err)
			}
		}
		rec.Chamber = ch
		rec.Normalize()
		records = append(records, rec)
	}

	if ch == model.House {
		if err := r.applyOverrides(ctx, ch, records); err != nil {
			return err
		}
	}
	if err := r.saveRankings(ctx, ch, records); err != nil {
		return err
	}
	r.log.Info(ctx, "base records written", logger.Chamber(string(ch)), logger.Records(len(records)),
		logger.Int("kept", len(records)-countNew(records, prev)))

	r.writeProfiles(ctx, ch)
	return nil
}

func countNew(records []model.Legislator, prev map[string]model.Legislator) int {
	n := 0
	for i := range records {
		if _, ok := prev[records[i].BioguideID]; !ok {
			n++
		}
	}
	return n
}

// applyOverrides merges OverridesFile entries into records, matching by
// bioguide id or, failing that, by name similarity.
func (r *Runner) applyOverrides(ctx context.Context, ch model.Chamber, records []model.Legislator) error {
	var overrides []model.Identity
	if err := r.store.LoadJSON(ctx, OverridesFile, &overrides); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("load overrides: %w", err)
	}

	index := make(map[string]int, len(records))
	for i := range records {
		index[records[i].BioguideID] = i
	}
	resolver := misconduct.NewResolver(records, misconduct.WithThreshold(r.nameThreshold))

	applied := 0
	for _, ov := range overrides {
		i, ok := index[ov.BioguideID]
		if !ok {
			m, found := resolver.MatchName(ov.Name)
			if !found {
				r.log.Warn(ctx, "override matches no legislator",
					logger.BioguideID(ov.BioguideID), logger.String("name", ov.Name))
				r.skip(ch, StageBootstrap, "override_unmatched")
				continue
			}
			i = index[m.BioguideID]
		}
		ov.BioguideID = records[i].BioguideID
		ov.Chamber = ""
		if err := mergo.Merge(&records[i].Identity, ov, mergo.WithOverride); err != nil {
			return fmt.Errorf("merge override %s: %w", ov.BioguideID, err)
		}
		applied++
	}
	r.log.Info(ctx, "overrides applied", logger.Int("applied", applied), logger.Int("total", len(overrides)))
	return nil
}

// writeProfiles stores GovTrack contact details for the merge stage. A
// failing source is logged; the previous profiles file is left in place.
func (r *Runner) writeProfiles(ctx context.Context, ch model.Chamber) {
	if r.roles == nil {
		return
	}
	roles, err := r.roles.CurrentRoles(ctx, govtrack.RoleTypeFor(ch))
	if err != nil {
		r.log.Warn(ctx, "govtrack roles unavailable", logger.Source(govtrack.Source), logger.Error(err))
		r.skip(ch, StageBootstrap, "upstream")
		return
	}
	profiles := make([]model.Identity, 0, len(roles))
	for _, role := range roles {
		if role.BioguideID == "" {
			continue
		}
		profiles = append(profiles, model.Identity{
			BioguideID:      role.BioguideID,
			GovTrackID:      role.GovTrackID,
			Website:         role.Website,
			Phone:           role.Phone,
			LeadershipTitle: role.LeadershipTitle,
			District:        role.District,
		})
	}
	if err := r.store.SaveJSON(ctx, ch.File(KindProfiles), profiles); err != nil {
		r.log.Warn(ctx, "profiles not written", logger.Error(err))
	}
}
