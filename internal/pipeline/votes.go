package pipeline

import (
	"context"
	"fmt"
	"sync"

	"github.com/okian/civicrank/internal/adapters/mq/queue"
	"github.com/okian/civicrank/internal/adapters/mq/worker"
	"github.com/okian/civicrank/internal/adapters/upstream/clerk"
	"github.com/okian/civicrank/internal/domain/dedupe"
	"github.com/okian/civicrank/internal/domain/model"
	"github.com/okian/civicrank/pkg/logger"
)

// fetchVotes tallies the session's roll calls per legislator.
func (r *Runner) fetchVotes(ctx context.Context, ch model.Chamber) error {
	if r.votes == nil {
		return fmt.Errorf("%w: vote source", ErrNotConfigured)
	}
	records, err := r.loadRankings(ctx, ch)
	if err != nil {
		return err
	}

	period, numbers, err := r.rollCalls(ctx, ch)
	if err != nil {
		return err
	}
	if r.maxRollCalls > 0 && len(numbers) > r.maxRollCalls {
		numbers = numbers[len(numbers)-r.maxRollCalls:]
	}

	resolve := r.ballotResolver(ch, records)
	seen := dedupe.NewInMemoryDeduper()
	tally := clerk.Tally{}
	var mu sync.Mutex
	unresolved := 0

	jobs := make([]queue.Job, 0, len(numbers))
	for _, n := range numbers {
		n := n
		key := dedupe.RollCallKey(string(ch), period, r.session, n)
		if seen.SeenAndRecord(ctx, key) {
			continue
		}
		jobs = append(jobs, queue.Job{Key: key, Do: func(ctx context.Context) error {
			rc, err := r.rollCall(ctx, ch, period, n)
			if err != nil {
				return err
			}
			mu.Lock()
			skipped := tally.AddRollCall(rc, resolve)
			unresolved += len(skipped)
			mu.Unlock()
			return nil
		}})
	}

	stats := worker.RunJobs(ctx, r.workers, jobs, worker.WithLogger(r.log.Named(StageVotes)))
	for range stats.Errors {
		r.skip(ch, StageVotes, "upstream")
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if len(jobs) > 0 && stats.Done == 0 {
		return fmt.Errorf("%w: %d roll call fetches failed", ErrNoData, stats.Failed)
	}
	if unresolved > 0 {
		r.log.Warn(ctx, "ballots without a known legislator", logger.Int("ballots", unresolved))
	}

	rows := make([]VoteRow, 0, len(records))
	for i := range records {
		id := records[i].BioguideID
		if id == "" {
			continue
		}
		rows = append(rows, VoteRow{BioguideID: id, Votes: tally[id]})
	}
	if err := r.store.SaveJSON(ctx, ch.File(KindVotes), rows); err != nil {
		return err
	}
	r.log.Info(ctx, "votes tallied",
		logger.Int("roll_calls", stats.Done), logger.Int("failed", stats.Failed), logger.Records(len(rows)))
	return nil
}

// rollCalls lists the roll-call numbers of the configured session. period is
// the congress for the Senate and the year for the House.
func (r *Runner) rollCalls(ctx context.Context, ch model.Chamber) (period int, numbers []int, err error) {
	if ch == model.Senate {
		numbers, err = r.votes.SenateVoteMenu(ctx, r.congress, r.session)
		return r.congress, numbers, err
	}
	year := HouseYear(r.congress, r.session)
	latest, err := r.votes.HouseLatestRoll(ctx, year)
	if err != nil {
		return year, nil, err
	}
	numbers = make([]int, 0, latest)
	for n := 1; n <= latest; n++ {
		numbers = append(numbers, n)
	}
	return year, numbers, nil
}

func (r *Runner) rollCall(ctx context.Context, ch model.Chamber, period, number int) (clerk.RollCall, error) {
	if ch == model.Senate {
		return r.votes.SenateVote(ctx, period, r.session, number)
	}
	return r.votes.HouseVote(ctx, period, number)
}

// ballotResolver maps ballot member ids to bioguide ids of the chamber's
// records. Senate ballots carry LIS ids.
func (r *Runner) ballotResolver(ch model.Chamber, records []model.Legislator) func(string) string {
	index := make(map[string]string, len(records))
	for i := range records {
		l := &records[i]
		if l.BioguideID == "" {
			continue
		}
		if ch == model.Senate {
			if l.LISID != "" {
				index[l.LISID] = l.BioguideID
			}
			continue
		}
		index[l.BioguideID] = l.BioguideID
	}
	return func(id string) string { return index[id] }
}
