package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/okian/civicrank/internal/adapters/misconduct"
	"github.com/okian/civicrank/internal/adapters/repository"
	"github.com/okian/civicrank/internal/domain/model"
	"github.com/okian/civicrank/internal/report"
	"github.com/okian/civicrank/pkg/logger"
)

// tagMisconduct attaches tags from the local misconduct file. Entries are
// resolved against both chambers so that an entry about the other chamber is
// not reported as unmatched.
func (r *Runner) tagMisconduct(ctx context.Context, ch model.Chamber) error {
	records, err := r.loadRankings(ctx, ch)
	if err != nil {
		return err
	}

	var entries []misconduct.Entry
	b, err := r.store.ReadFile(misconduct.DefaultFile)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		r.log.Info(ctx, "no misconduct file", logger.File(misconduct.DefaultFile))
	case err != nil:
		return err
	default:
		if entries, err = misconduct.Parse(bytes.NewReader(b)); err != nil {
			return fmt.Errorf("%s: %w", misconduct.DefaultFile, err)
		}
	}

	roster := append([]model.Legislator(nil), records...)
	for _, other := range model.Chambers {
		if other == ch {
			continue
		}
		more, err := r.store.LoadLegislators(ctx, other.File(KindRankings))
		if err != nil && !errors.Is(err, repository.ErrNotFound) {
			return fmt.Errorf("load %s rankings: %w", other, err)
		}
		roster = append(roster, more...)
	}
	res := misconduct.NewResolver(roster, misconduct.WithThreshold(r.nameThreshold)).Resolve(entries)

	mine := make(map[string]bool, len(records))
	file := MisconductFile{
		Records:   make([]MisconductRow, 0, len(records)),
		Fuzzy:     []misconduct.Match{},
		Unmatched: make([]report.Unmatched, 0, len(res.Unmatched)),
	}
	for i := range records {
		id := records[i].BioguideID
		if id == "" {
			continue
		}
		mine[id] = true
		tags := res.Tags[id]
		if tags == nil {
			tags = []string{}
		}
		file.Records = append(file.Records, MisconductRow{BioguideID: id, MisconductTags: tags})
	}
	for _, m := range res.Fuzzy {
		if mine[m.BioguideID] {
			r.log.Info(ctx, "misconduct entry matched by name",
				logger.String("name", m.Name), logger.BioguideID(m.BioguideID), logger.Float64("similarity", m.Similarity))
			file.Fuzzy = append(file.Fuzzy, m)
		}
	}
	for _, e := range res.Unmatched {
		file.Unmatched = append(file.Unmatched, report.Unmatched{Name: e.Name, Person: e.Person})
	}

	if err := r.store.SaveJSON(ctx, ch.File(KindMisconduct), file); err != nil {
		return err
	}
	r.note(ch, func(n *Notes) { n.Unmatched = file.Unmatched })
	r.log.Info(ctx, "misconduct tags written",
		logger.Int("entries", len(entries)), logger.Int("unmatched", len(file.Unmatched)))
	return nil
}
