package cmd

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ethpandaops/allure-runtime/internal/config"
	"github.com/ethpandaops/allure-runtime/pkg/transport"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	collectSource      string
	collectIdleTimeout time.Duration

	collectCmd = &cobra.Command{
		Use:   "collect [stream...]",
		Short: "Collect records published by workers",
		Long: `Drains envelopes published by worker processes and writes the records they
carry to the results directory. Envelopes are deduplicated per worker.

The stream source reads JSON lines from the given files, or stdin. The redis
source pops REDIS_QUEUE until it stays empty for --idle-timeout.`,
		RunE: runCollect,
	}
)

func init() {
	collectCmd.Flags().StringVar(&collectSource, "source", "", "Envelope source: stream or redis (defaults to ALLURE_TRANSPORT)")
	collectCmd.Flags().DurationVar(&collectIdleTimeout, "idle-timeout", 10*time.Second, "Stop once the redis queue stayed empty this long (0 waits forever)")
	rootCmd.AddCommand(collectCmd)
}

func runCollect(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	source := collectSource
	if source == "" {
		source = cfg.Transport
	}

	var (
		sources []transport.Source
		closers []func() error
	)

	switch source {
	case config.TransportRedis:
		client, err := transport.ConnectRedis(ctx, cfg.RedisURL)
		if err != nil {
			return err
		}
		closers = append(closers, client.Close)
		sources = append(sources, transport.NewRedisSource(client, cfg.RedisQueue, transport.WithIdleTimeout(collectIdleTimeout)))

	case config.TransportStream, config.TransportNone:
		if len(args) == 0 {
			sources = append(sources, transport.NewStreamSource(cmd.InOrStdin()))
		}
		for _, name := range args {
			f, err := os.Open(name) //nolint:gosec // G304: stream path is supplied by the user
			if err != nil {
				return fmt.Errorf("failed to open stream: %w", err)
			}
			closers = append(closers, f.Close)
			sources = append(sources, transport.NewStreamSource(f))
		}

	default:
		return fmt.Errorf("unsupported source %q", source) //nolint:err113 // Include source for debugging
	}

	defer func() {
		for _, c := range closers {
			_ = c()
		}
	}()

	p, err := newPipeline(ctx, cfg, Logger, false)
	if err != nil {
		return err
	}

	rt, err := p.runtime()
	if err != nil {
		return err
	}

	router := transport.NewRouter(Logger, rt, p.writer)
	runErr := router.Run(ctx, sources...)

	rt.Close()

	stats := router.Stats()
	Logger.WithFields(logrus.Fields{
		"messages":   stats.Messages,
		"records":    stats.Records,
		"duplicates": stats.Duplicates,
		"dropped":    stats.Dropped,
	}).Info("Collection finished")

	return errors.Join(runErr, p.close(ctx, cmd.OutOrStdout()))
}
