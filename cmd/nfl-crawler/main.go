package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/tobyfan1980/nfl-project/internal/config"
	"github.com/tobyfan1980/nfl-project/internal/crawl"
	"github.com/tobyfan1980/nfl-project/internal/export"
	"github.com/tobyfan1980/nfl-project/pkg/types"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		year    int
		week    string
		cfgPath string
		output  string
	)

	cmd := &cobra.Command{
		Use:   "nfl-crawler",
		Short: "Fetch NFL game statistics for one week or playoff round",
		Long: `Fetches per-game statistics (scores, rushing and passing yards) from a
sports-reference site for a single NFL week or playoff round, honoring the
site's robots.txt and crawl delay, and writes the results to CSV.`,
		Example: `  nfl-crawler --year 2020 --week 1
  nfl-crawler --year 2020 --week wild-card -o games.csv`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), year, week, cfgPath, output)
		},
	}

	cmd.Flags().IntVar(&year, "year", 0, "season year (required, e.g. 2020)")
	cmd.Flags().StringVar(&week, "week", "", "week 1-18 or playoff round: wild-card, divisional, conference, super-bowl (required)")
	cmd.Flags().StringVar(&cfgPath, "config", "", "path to YAML configuration file")
	cmd.Flags().StringVarP(&output, "output", "o", "", "output CSV path (default derived from year and week)")
	cmd.MarkFlagRequired("year")
	cmd.MarkFlagRequired("week")

	return cmd
}

func run(ctx context.Context, year int, week, cfgPath, output string) error {
	// Target validation happens before configuration or any network I/O.
	target, err := types.NewCrawlTarget(year, week)
	if err != nil {
		return err
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return err
	}

	logger, err := config.BuildLogger(cfg.Logging, os.Stderr)
	if err != nil {
		return err
	}

	crawler, err := crawl.New(ctx, *cfg, logger)
	if err != nil {
		return err
	}

	result, runErr := crawler.Run(ctx, target)
	if result == nil {
		return runErr
	}
	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		return runErr
	}

	if output == "" {
		output = export.DefaultPath(cfg.Output.Directory, target)
	}
	if err := export.WriteFile(output, result); err != nil {
		return err
	}

	logger.Info("wrote results", "path", output, "games", len(result.Games), "failed", result.Failed)
	if runErr != nil {
		// Interrupted: the partial CSV is on disk, but exit non-zero.
		return runErr
	}
	return nil
}
