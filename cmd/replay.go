package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/ethpandaops/allure-runtime/internal/config"
	"github.com/ethpandaops/allure-runtime/internal/replay"
	"github.com/ethpandaops/allure-runtime/pkg/runtime"
	"github.com/spf13/cobra"
)

var (
	replayPublish bool

	replayCmd = &cobra.Command{
		Use:   "replay [journal...]",
		Short: "Replay adapter operation journals into Allure results",
		Long: `Reads JSON-lines journals of adapter operations (start_test, start_step,
messages, stop_test, write_test, ...) and drives the reporter runtime with them.
Journals are read from stdin when no file, or "-", is given.

With --publish the finished records are sent over ALLURE_TRANSPORT instead of
being written to the results directory.`,
		RunE: runReplay,
	}
)

func init() {
	replayCmd.Flags().BoolVar(&replayPublish, "publish", false, "Publish records over ALLURE_TRANSPORT")
	rootCmd.AddCommand(replayCmd)
}

func runReplay(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	p, err := newPipeline(ctx, cfg, Logger, replayPublish)
	if err != nil {
		return err
	}

	rt, err := p.runtime()
	if err != nil {
		return err
	}

	if len(args) == 0 {
		args = []string{"-"}
	}

	var errs []error
	for _, name := range args {
		if err := replayJournal(cmd, rt, name); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
		}
	}

	rt.Close()

	out := cmd.OutOrStdout()
	if replayPublish && cfg.Transport == config.TransportStream {
		out = cmd.ErrOrStderr()
	}
	errs = append(errs, p.close(ctx, out))

	return errors.Join(errs...)
}

func replayJournal(cmd *cobra.Command, rt *runtime.Runtime, name string) error {
	var in io.Reader = cmd.InOrStdin()
	if name != "-" {
		f, err := os.Open(name) //nolint:gosec // G304: journal path is supplied by the user
		if err != nil {
			return fmt.Errorf("failed to open journal: %w", err)
		}
		defer func() {
			_ = f.Close()
		}()
		in = f
	}

	_, err := replay.NewReplayer(Logger.WithField("journal", name), rt).Run(cmd.Context(), in)
	return err
}
