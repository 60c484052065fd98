package commands

import (
	"fmt"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var historyLimit int //nolint:gochecknoglobals // cobra flag

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Lists recorded runs and leader tenures.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		chambers, err := parseChambers(chamberFlag)
		if err != nil {
			return err
		}
		h, err := openHistory(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer func() { _ = h.Close() }()

		for _, ch := range chambers {
			runs, err := h.Runs(cmd.Context(), ch, historyLimit)
			if err != nil {
				return fmt.Errorf("history %s: %w", ch, err)
			}
			t := newTable()
			t.SetTitle(ch.Title() + " runs")
			t.AppendHeader(table.Row{"Run", "Started", "Records", "Leader", "Leader streak"})
			for _, run := range runs {
				t.AppendRow(table.Row{run.ID, run.StartedAt.UTC().Format(time.RFC3339), run.Records, run.LeaderID, run.LeaderStreak})
			}
			t.Render()

			tenures, err := h.LeaderHistory(cmd.Context(), ch, historyLimit)
			if err != nil {
				return fmt.Errorf("history %s: %w", ch, err)
			}
			lt := newTable()
			lt.SetTitle(ch.Title() + " leaders")
			lt.AppendHeader(table.Row{"Bioguide", "From", "To", "Runs"})
			for _, tn := range tenures {
				lt.AppendRow(table.Row{tn.BioguideID, tn.From.UTC().Format(time.DateOnly), tn.To.UTC().Format(time.DateOnly), tn.Runs})
			}
			lt.Render()
		}
		return nil
	},
}

func init() { //nolint:gochecknoinits // cobra command tree
	historyCmd.Flags().IntVar(&historyLimit, "limit", 20, "maximum rows per table")
	rootCmd.AddCommand(historyCmd)
}
