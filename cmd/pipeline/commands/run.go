package commands

import (
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/okian/civicrank/internal/domain/model"
	"github.com/okian/civicrank/internal/pipeline"
)

var stageHelp = map[string]string{ //nolint:gochecknoglobals // command help
	pipeline.StageBootstrap:   "Write the legislator list and profiles from the current roster.",
	pipeline.StageLegislation: "Fetch sponsored, cosponsored and enacted bill counts.",
	pipeline.StageVotes:       "Fetch roll calls and tally yea, nay, present and missed votes.",
	pipeline.StageCommittees:  "Assign committee memberships and roles.",
	pipeline.StageMisconduct:  "Tag legislators named in the misconduct file.",
	pipeline.StageMerge:       "Merge partial files into the rankings file.",
	pipeline.StageStreaks:     "Advance activity, voting and leader streaks.",
	pipeline.StageScores:      "Compute power scores and order the rankings.",
	pipeline.StageReport:      "Write the diagnostics report.",
}

var runCmd = &cobra.Command{
	Use:   "run [stage...]",
	Short: "Runs the whole pipeline, or the named stages in pipeline order.",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runStages(cmd, args...)
	},
}

func init() { //nolint:gochecknoinits // cobra command tree
	rootCmd.AddCommand(runCmd)
	for _, name := range pipeline.Order {
		if name == pipeline.StageVerify {
			continue
		}
		rootCmd.AddCommand(&cobra.Command{
			Use:   name,
			Short: stageHelp[name],
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return runStages(cmd, name)
			},
		})
	}
}

func runStages(cmd *cobra.Command, names ...string) error {
	chambers, err := parseChambers(chamberFlag)
	if err != nil {
		return err
	}
	r, closeRunner, err := newRunner(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer closeRunner()

	runErr := r.Run(cmd.Context(), chambers, names...)
	printNotes(r, chambers)
	return runErr
}

func printNotes(r *pipeline.Runner, chambers []model.Chamber) {
	t := newTable()
	t.AppendHeader(table.Row{"Chamber", "Run", "Duplicates", "Unmatched", "Skipped", "Leader", "Leader streak"})
	for _, ch := range chambers {
		n := r.Notes(ch)
		skipped := 0
		for _, v := range n.Skipped {
			skipped += v
		}
		leader, streak := "", ""
		if n.Streaks != nil {
			leader = n.Streaks.LeaderID
			streak = fmt.Sprint(n.Streaks.LeaderStreak)
		}
		t.AppendRow(table.Row{ch.Title(), n.RunID, len(n.Duplicates), len(n.Unmatched), skipped, leader, streak})
	}
	t.Render()
}
