package pipeline

import (
	"context"
	"fmt"
	"sync"

	"github.com/okian/civicrank/internal/adapters/mq/queue"
	"github.com/okian/civicrank/internal/adapters/mq/worker"
	"github.com/okian/civicrank/internal/domain/model"
	"github.com/okian/civicrank/pkg/logger"
)

// legislation fetches bill counters for every record.
func (r *Runner) legislation(ctx context.Context, ch model.Chamber) error {
	if r.bills == nil {
		return fmt.Errorf("%w: legislation source", ErrNotConfigured)
	}
	records, err := r.loadRankings(ctx, ch)
	if err != nil {
		return err
	}

	var mu sync.Mutex
	rows := make(map[string]LegislationRow, len(records))
	jobs := make([]queue.Job, 0, len(records))
	for i := range records {
		id := records[i].BioguideID
		if id == "" {
			r.skip(ch, StageLegislation, "missing_id")
			continue
		}
		jobs = append(jobs, queue.Job{Key: id, Do: func(ctx context.Context) error {
			sp, err := r.bills.SponsoredLegislation(ctx, id)
			if err != nil {
				return err
			}
			cs, err := r.bills.CosponsoredLegislation(ctx, id)
			if err != nil {
				return err
			}
			mu.Lock()
			rows[id] = LegislationRow{BioguideID: id, Legislation: model.Legislation{
				SponsoredBills:   model.Count(sp.Count),
				CosponsoredBills: model.Count(cs.Count),
				BecameLawBills:   model.Count(sp.BecameLaw),
			}}
			mu.Unlock()
			return nil
		}})
	}

	stats := worker.RunJobs(ctx, r.workers, jobs, worker.WithLogger(r.log.Named(StageLegislation)))
	for range stats.Errors {
		r.skip(ch, StageLegislation, "upstream")
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if len(jobs) > 0 && len(rows) == 0 {
		return fmt.Errorf("%w: %d legislation fetches failed", ErrNoData, stats.Failed)
	}

	out := make([]LegislationRow, 0, len(rows))
	for i := range records {
		if row, ok := rows[records[i].BioguideID]; ok {
			out = append(out, row)
		}
	}
	if err := r.store.SaveJSON(ctx, ch.File(KindLegislation), out); err != nil {
		return err
	}
	r.log.Info(ctx, "legislation counted", logger.Records(len(out)), logger.Int("failed", stats.Failed))
	return nil
}
