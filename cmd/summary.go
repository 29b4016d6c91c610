package cmd

import (
	"fmt"

	"github.com/ethpandaops/allure-runtime/internal/metrics"
	"github.com/ethpandaops/allure-runtime/internal/output"
	"github.com/ethpandaops/allure-runtime/internal/results"
	"github.com/spf13/cobra"
)

var (
	summaryFailOnError bool
	summaryConcurrency int

	summaryCmd = &cobra.Command{
		Use:   "summary [dir]",
		Short: "Print a summary of a results directory",
		Long:  `Loads every result of a results directory and prints a per-test table and aggregate statistics.`,
		Args:  cobra.MaximumNArgs(1),
		RunE:  runSummary,
	}
)

func init() {
	summaryCmd.Flags().BoolVar(&summaryFailOnError, "fail", false, "Exit non-zero when any test failed or broke")
	summaryCmd.Flags().IntVar(&summaryConcurrency, "concurrency", results.DefaultConcurrency, "Files decoded in parallel")
	rootCmd.AddCommand(summaryCmd)
}

func runSummary(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	dir := cfg.ResultsDir
	if len(args) == 1 {
		dir = args[0]
	}

	set, err := results.NewLoader(Logger, summaryConcurrency).Load(cmd.Context(), dir)
	if err != nil {
		return err
	}

	collector := metrics.NewCollector(Logger)
	for _, r := range set.Results {
		collector.ObserveTest(r)
	}
	for _, c := range set.Containers {
		collector.ObserveContainer(c)
	}
	for _, size := range set.Attachments {
		collector.ObserveAttachment(int(size))
	}

	renderer := output.NewRenderer(Logger)
	formatter := output.NewFormatter(
		cmd.OutOrStdout(),
		collector,
		output.NewResultsFormatter(Logger, renderer),
		output.NewSummaryFormatter(Logger, renderer),
	)
	formatter.PrintTestResults()
	formatter.PrintSummary()

	if cfg.MetricsFile != "" {
		if err := collector.WriteTextfile(cfg.MetricsFile); err != nil {
			return err
		}
	}

	summary := collector.GetSummary()
	if summaryFailOnError && summary.FailedTests+summary.BrokenTests > 0 {
		return fmt.Errorf("%d failed and %d broken tests", summary.FailedTests, summary.BrokenTests) //nolint:err113 // Include counts for debugging
	}

	return nil
}
