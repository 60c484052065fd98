package commands

import (
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/okian/civicrank/internal/pipeline"
)

var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Checks the written rankings files without changing them.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		chambers, err := parseChambers(chamberFlag)
		if err != nil {
			return err
		}
		r, closeRunner, err := newRunner(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer closeRunner()

		t := newTable()
		t.AppendHeader(table.Row{"Chamber", "Problem"})
		total := 0
		for _, ch := range chambers {
			problems, err := r.Verify(cmd.Context(), ch)
			if err != nil {
				return fmt.Errorf("verify %s: %w", ch, err)
			}
			for _, p := range problems {
				t.AppendRow(table.Row{ch.Title(), p})
			}
			total += len(problems)
		}
		t.AppendFooter(table.Row{"Total", total})
		t.Render()
		if total > 0 {
			return fmt.Errorf("%w: %d problems", pipeline.ErrVerify, total)
		}
		return nil
	},
}

func init() { //nolint:gochecknoinits // cobra command tree
	rootCmd.AddCommand(verifyCmd)
}
