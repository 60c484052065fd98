package pipeline

import (
	"context"
	"errors"
	"fmt"

	"github.com/okian/civicrank/internal/adapters/repository"
	"github.com/okian/civicrank/internal/domain/model"
	"github.com/okian/civicrank/internal/domain/scoring"
	"github.com/okian/civicrank/internal/domain/streaks"
	"github.com/okian/civicrank/internal/report"
	"github.com/okian/civicrank/pkg/logger"
	"github.com/okian/civicrank/pkg/metrics"
)

// updateStreaks advances the streak counters. The leader is picked by the
// power score of the current counters, not the score stored by the last run.
func (r *Runner) updateStreaks(ctx context.Context, ch model.Chamber) error {
	records, err := r.loadRankings(ctx, ch)
	if err != nil {
		return err
	}

	score := func(l *model.Legislator) float64 {
		res, err := r.scorer.Score(ctx, l)
		if err != nil {
			return l.PowerScore
		}
		return res.PowerScore
	}
	sum := streaks.Update(records, streaks.WithScoreFunc(score), streaks.WithClock(r.now))
	if err := ctx.Err(); err != nil {
		return err
	}
	if sum.MissingID > 0 {
		r.log.Warn(ctx, "records without bioguide id took part in the streak update", logger.Int("records", sum.MissingID))
	}

	if err := r.saveRankings(ctx, ch, records); err != nil {
		return err
	}
	if err := r.store.SaveJSON(ctx, ch.File(KindStreaks), streaks.Rows(records)); err != nil {
		return err
	}

	for _, kind := range []string{streaks.KindActivity, streaks.KindVoting, streaks.KindLeader} {
		metrics.RecordStreakIncrements(string(ch), kind, sum.Incremented(kind))
		metrics.RecordStreakResets(string(ch), kind, sum.Resets(kind))
	}
	metrics.UpdateLeaderStreak(string(ch), sum.LeaderStreak)

	runID := ""
	if r.history != nil {
		run := repository.NewRun(ch, r.now())
		run.LeaderID = sum.LeaderID
		run.LeaderStreak = sum.LeaderStreak
		if err := r.history.RecordRun(ctx, run, records); err != nil {
			r.log.Warn(ctx, "run history not recorded", logger.Error(err))
		} else {
			runID = run.ID
		}
	}
	r.note(ch, func(n *Notes) {
		n.Streaks = &sum
		if runID != "" {
			n.RunID = runID
		}
	})
	r.log.Info(ctx, "streaks updated", logger.BioguideID(sum.LeaderID),
		logger.Int("leader_streak", sum.LeaderStreak),
		logger.Int("activity", sum.ActivityIncremented), logger.Int("voting", sum.VotingIncremented))
	return nil
}

// scores writes ranked power scores and stores each score on its record.
func (r *Runner) scores(ctx context.Context, ch model.Chamber) error {
	records, err := r.loadRankings(ctx, ch)
	if err != nil {
		return err
	}
	results, err := scoring.ScoreAll(ctx, r.scorer, records)
	if err != nil {
		return err
	}
	if err := r.saveRankings(ctx, ch, records); err != nil {
		return err
	}
	if err := r.store.SaveJSON(ctx, ch.File(KindScores), results); err != nil {
		return err
	}
	if len(results) > 0 {
		r.log.Info(ctx, "scores written", logger.Records(len(results)),
			logger.BioguideID(results[0].BioguideID), logger.Float64("top", results[0].PowerScore))
	}
	return nil
}

// writeReport writes the chamber diagnostics.
func (r *Runner) writeReport(ctx context.Context, ch model.Chamber) error {
	if r.reports == nil {
		return fmt.Errorf("%w: reports directory", ErrNotConfigured)
	}
	records, err := r.loadRankings(ctx, ch)
	if err != nil {
		return err
	}
	notes := r.Notes(ch)
	if notes.Unmatched == nil {
		var f MisconductFile
		if err := r.store.LoadJSON(ctx, ch.File(KindMisconduct), &f); err == nil {
			notes.Unmatched = f.Unmatched
		}
	}

	d := report.Build(report.Input{
		Chamber:    ch,
		Records:    records,
		Duplicates: notes.Duplicates,
		Unmatched:  notes.Unmatched,
		Streaks:    notes.Streaks,
		Skipped:    notes.Skipped,
	}, report.WithClock(r.now), report.WithRunID(notes.RunID))

	if err := report.Write(ctx, r.reports, d); err != nil {
		return err
	}
	r.log.Info(ctx, "diagnostics written", logger.String("run_id", d.RunID),
		logger.Int("zero_votes", len(d.ZeroVotes)), logger.Int("violations", len(d.Violations)))
	return nil
}

// verify fails when the written rankings break a streak invariant, are not
// in canonical form, or disagree with the scores file.
func (r *Runner) verify(ctx context.Context, ch model.Chamber) error {
	problems, err := r.Verify(ctx, ch)
	if err != nil {
		return err
	}
	for _, p := range problems {
		r.log.Error(ctx, "verification problem", logger.String("problem", p))
	}
	if len(problems) > 0 {
		return fmt.Errorf("%w: %d problems", ErrVerify, len(problems))
	}
	return nil
}

// Verify lists the problems of a chamber's written files.
func (r *Runner) Verify(ctx context.Context, ch model.Chamber) ([]string, error) {
	name := ch.File(KindRankings)
	raw, err := r.store.ReadFile(name)
	if err != nil {
		return nil, err
	}
	records, err := r.loadRankings(ctx, ch)
	if err != nil {
		return nil, err
	}

	var problems []string
	for _, v := range streaks.Check(records) {
		problems = append(problems, v.String())
	}

	canonical, err := repository.EncodeJSON(records)
	if err != nil {
		return nil, err
	}
	if string(canonical) != string(raw) {
		problems = append(problems, name+": not in canonical form")
	}

	var results []scoring.Result
	err = r.store.LoadJSON(ctx, ch.File(KindScores), &results)
	switch {
	case errors.Is(err, repository.ErrNotFound):
	case err != nil:
		problems = append(problems, err.Error())
	default:
		byID := make(map[string]float64, len(records))
		for i := range records {
			byID[records[i].BioguideID] = records[i].PowerScore
		}
		for _, res := range results {
			score, ok := byID[res.BioguideID]
			switch {
			case !ok:
				problems = append(problems, fmt.Sprintf("%s: scored but not in rankings", res.BioguideID))
			case score != res.PowerScore:
				problems = append(problems, fmt.Sprintf("%s: powerScore %.2f != scores file %.2f",
					res.BioguideID, score, res.PowerScore))
			}
		}
	}
	return problems, nil
}
