package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"github.com/ethpandaops/allure-runtime/internal/clickhouse"
	"github.com/ethpandaops/allure-runtime/internal/config"
	"github.com/ethpandaops/allure-runtime/internal/metrics"
	"github.com/ethpandaops/allure-runtime/internal/output"
	"github.com/ethpandaops/allure-runtime/pkg/runtime"
	"github.com/ethpandaops/allure-runtime/pkg/transport"
	"github.com/ethpandaops/allure-runtime/pkg/writer"
	"github.com/sirupsen/logrus"
)

// pipeline is the writer stack shared by the commands that produce results.
type pipeline struct {
	cfg       *config.Config
	log       logrus.FieldLogger
	collector metrics.Collector
	writer    writer.Writer

	publisher *transport.Publisher
	chWriter  *clickhouse.Writer
	chConn    driver.Conn
}

// newPipeline builds the writer stack from cfg. Records go to the results
// directory, or onto the configured transport when publish is set, and to
// ClickHouse when it is enabled. Every write is observed for the summary.
func newPipeline(ctx context.Context, cfg *config.Config, log logrus.FieldLogger, publish bool) (*pipeline, error) {
	p := &pipeline{
		cfg:       cfg,
		log:       log.WithField("component", "pipeline"),
		collector: metrics.NewCollector(log),
	}

	var primary writer.Writer
	if publish && cfg.Transport != config.TransportNone {
		sink, err := newSink(ctx, cfg)
		if err != nil {
			return nil, err
		}
		p.publisher = transport.NewPublisher(sink, cfg.Worker)
		primary = writer.NewMessageWriter(p.publisher)
		p.log.WithField("transport", cfg.Transport).Info("Publishing records")
	} else {
		fsWriter, err := writer.NewFileSystemWriter(log, cfg.ResultsDir)
		if err != nil {
			return nil, fmt.Errorf("failed to open results directory: %w", err)
		}
		primary = fsWriter
	}

	writers := []writer.Writer{primary}
	if cfg.ClickhouseEnabled {
		conn, err := clickhouse.Connect(ctx, cfg)
		if err != nil {
			return nil, err
		}
		p.chConn = conn
		p.chWriter = clickhouse.NewWriter(log, conn, cfg.ClickhouseDatabase, cfg.Worker, clickhouse.DefaultBatchSize)
		writers = append(writers, p.chWriter)
	}

	p.writer = metrics.NewObservingWriter(writer.NewMultiWriter(writers...), p.collector)

	return p, nil
}

func newSink(ctx context.Context, cfg *config.Config) (transport.Sink, error) {
	switch cfg.Transport {
	case config.TransportRedis:
		client, err := transport.ConnectRedis(ctx, cfg.RedisURL)
		if err != nil {
			return nil, err
		}
		return transport.NewRedisSink(client, cfg.RedisQueue), nil
	case config.TransportStream:
		return transport.NewStreamSink(os.Stdout), nil
	default:
		return nil, fmt.Errorf("unsupported transport %q", cfg.Transport) //nolint:err113 // Include transport for debugging
	}
}

// runtime creates a reporter runtime writing through the pipeline, with the
// project's global labels and link templates, and writes the project's
// environment and categories.
func (p *pipeline) runtime() (*runtime.Runtime, error) {
	project := p.cfg.Project
	if project == nil {
		project = &config.Project{}
	}

	rt := runtime.New(p.log, p.writer,
		runtime.WithGlobalLabels(project.Labels...),
		runtime.WithLinkTemplates(project.Links),
	)

	if project.Environment != nil && project.Environment.Len() > 0 {
		if err := rt.WriteEnvironmentInfo(project.Environment); err != nil {
			return nil, err
		}
	}
	if len(project.Categories) > 0 {
		if err := rt.WriteCategoriesDefinitions(project.Categories); err != nil {
			return nil, err
		}
	}

	return rt, nil
}

// close flushes and releases every sink, writes the metrics file and prints
// the run summary to out.
func (p *pipeline) close(ctx context.Context, out io.Writer) error {
	var errs []error

	if p.chWriter != nil {
		flushCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
		errs = append(errs, p.chWriter.Close(flushCtx))
		cancel()
	}
	if p.chConn != nil {
		errs = append(errs, p.chConn.Close())
	}
	if p.publisher != nil {
		errs = append(errs, p.publisher.Close())
	}
	if p.cfg.MetricsFile != "" {
		errs = append(errs, p.collector.WriteTextfile(p.cfg.MetricsFile))
	}

	if out != nil {
		renderer := output.NewRenderer(p.log)
		formatter := output.NewFormatter(
			out,
			p.collector,
			output.NewResultsFormatter(p.log, renderer),
			output.NewSummaryFormatter(p.log, renderer),
		)
		if verbose {
			formatter.PrintTestResults()
		}
		formatter.PrintSummary()
	}

	return errors.Join(errs...)
}
