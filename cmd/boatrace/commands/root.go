package commands

import (
	"boatrace-results/internal/collect"
	"boatrace-results/internal/components/chrono"
	"boatrace-results/internal/components/telemetry"
	"boatrace-results/internal/configutil"
	"boatrace-results/internal/resultfile"
	"boatrace-results/internal/scrapers/boatrace"
	"boatrace-results/internal/serviceutil"
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "boatrace [YYYYMMDD]",
	Short: "boatrace saves the payouts of every race held on a day (today in JST by default) to race_results_<YYYYMMDD>.json.",
	Args:  validateDateArgs,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := configutil.ReadConfigOr("config.json5", defaultConfig)
		if err != nil {
			serviceutil.Fatal("failed to read config", err)
		}
		telemetry.InitSlog(cfg.Verbose)

		err = run(cmd.Context(), cfg, args, chrono.NewStandardImpl(), cmd.OutOrStdout())
		if err != nil {
			serviceutil.Fatal("collection failed", err)
		}
	},
}

func validateDateArgs(cmd *cobra.Command, args []string) error {
	err := cobra.MaximumNArgs(1)(cmd, args)
	if err != nil {
		return err
	}
	if len(args) == 1 {
		_, err := chrono.ParseDate(args[0])
		if err != nil {
			return fmt.Errorf("invalid date %q, expected YYYYMMDD", args[0])
		}
	}
	return nil
}

func run(ctx context.Context, cfg Config, args []string, clock chrono.API, out io.Writer) error {
	tel := telemetry.API(telemetry.SlogAPI{})

	if cfg.Telemetry.Enabled() {
		t, err := telemetry.Setup(ctx, "boatrace", cfg.Telemetry)
		if err != nil {
			return fmt.Errorf("setup telemetry: %w", err)
		}
		defer func() {
			err := t.Shutdown(context.Background())
			if err != nil {
				tel.ReportWarning("telemetry.shutdown", err)
			}
		}()
		telemetry.InstrumentPerfStats(ctx, tel)
	}

	date := collect.ResolveDate(args, clock)

	client, err := boatrace.NewClient(cfg.clientOptions(), tel)
	if err != nil {
		return err
	}
	collector := collect.NewCollector(client, clock, tel)

	result, err := collector.Collect(ctx, date)
	if err != nil {
		return err
	}
	if len(result.Venues) == 0 {
		tel.ReportInfo("no venues held races (or the schedule isn't settled yet)", date)
		return nil
	}
	renderSummary(out, result)

	path, err := resultfile.Save(cfg.OutputDir, date, result.Records)
	if errors.Is(err, resultfile.ErrNoRecords) {
		tel.ReportInfo("no valid payout data, nothing saved", date)
		return nil
	}
	if err != nil {
		return fmt.Errorf("save results: %w", err)
	}
	tel.ReportInfo("saved results", path, len(result.Records))
	return nil
}

func ExecuteContext(ctx context.Context) {
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
