// Package commands is the cobra tree of the pipeline command.
package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/okian/civicrank/internal/config"
	"github.com/okian/civicrank/internal/domain/model"
	"github.com/okian/civicrank/pkg/logger"
	"github.com/okian/civicrank/pkg/metrics"
)

//nolint:gochecknoglobals // cobra command tree
var (
	configPath  string
	chamberFlag string
	dataDirFlag string

	cfg *config.Config
	out io.Writer = os.Stdout
)

var rootCmd = &cobra.Command{
	Use:           "pipeline",
	Short:         "pipeline builds the senate and house rankings files.",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		loaded, err := config.LoadFile(cmd.Context(), configFile())
		if err != nil {
			return err
		}
		if dataDirFlag != "" {
			loaded.DataDir = dataDirFlag
		}
		if err := logger.InitWithOptions(logger.Options{Format: loaded.LogFormat, Writer: os.Stderr}); err != nil {
			return err
		}
		if err := logger.SetLevelString(loaded.LogLevel); err != nil {
			logger.Get().Warn(cmd.Context(), "invalid log_level; falling back to info", logger.String("log_level", loaded.LogLevel))
			_ = logger.SetLevelString("info")
		}
		cfg = loaded
		return nil
	},
	PersistentPostRunE: func(cmd *cobra.Command, _ []string) error {
		return exportMetrics(cmd.Context())
	},
}

func init() { //nolint:gochecknoinits // cobra flags
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "YAML config file (defaults to $CIVICRANK_CONFIG)")
	rootCmd.PersistentFlags().StringVar(&chamberFlag, "chamber", "all", "senate, house or all")
	rootCmd.PersistentFlags().StringVar(&dataDirFlag, "data-dir", "", "override data_dir")
}

// ExecuteContext runs the command tree and returns the process exit code.
func ExecuteContext(ctx context.Context) int {
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		// failed runs still leave their metrics behind
		_ = exportMetrics(ctx)
		return 1
	}
	return 0
}

func configFile() string {
	if configPath != "" {
		return configPath
	}
	return os.Getenv("CIVICRANK_CONFIG")
}

func exportMetrics(ctx context.Context) error {
	if cfg == nil || cfg.MetricsTextfile == "" {
		return nil
	}
	if err := metrics.WriteTextfile(cfg.MetricsTextfile); err != nil {
		logger.Get().Warn(ctx, "metrics export failed", logger.File(cfg.MetricsTextfile), logger.Error(err))
		return err
	}
	return nil
}

// parseChambers turns --chamber into the chambers to process, senate first.
func parseChambers(s string) ([]model.Chamber, error) {
	if strings.EqualFold(strings.TrimSpace(s), "all") || s == "" {
		return model.Chambers, nil
	}
	ch, ok := model.ParseChamber(s)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrBadChamber, s)
	}
	return []model.Chamber{ch}, nil
}

func newTable() table.Writer {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.SetOutputMirror(out)
	return t
}
