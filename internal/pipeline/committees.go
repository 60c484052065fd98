package pipeline

import (
	"context"
	"fmt"

	"github.com/okian/civicrank/internal/adapters/upstream/legislators"
	"github.com/okian/civicrank/internal/domain/model"
	"github.com/okian/civicrank/pkg/logger"
)

// assignCommittees writes each record's full-committee assignments.
func (r *Runner) assignCommittees(ctx context.Context, ch model.Chamber) error {
	if r.roster == nil {
		return fmt.Errorf("%w: roster source", ErrNotConfigured)
	}
	records, err := r.loadRankings(ctx, ch)
	if err != nil {
		return err
	}
	committees, err := r.roster.Committees(ctx)
	if err != nil {
		return err
	}
	membership, err := r.roster.CommitteeMembership(ctx)
	if err != nil {
		return err
	}
	assignments := legislators.Assignments(committees, membership)

	rows := make([]CommitteeRow, 0, len(records))
	assigned := 0
	for i := range records {
		id := records[i].BioguideID
		if id == "" {
			continue
		}
		list := assignments[id]
		if list == nil {
			list = []model.Committee{}
		} else {
			assigned++
		}
		rows = append(rows, CommitteeRow{BioguideID: id, Committees: list})
	}
	if err := r.store.SaveJSON(ctx, ch.File(KindCommittees), rows); err != nil {
		return err
	}
	r.log.Info(ctx, "committee assignments written", logger.Records(len(rows)), logger.Int("assigned", assigned))
	return nil
}
