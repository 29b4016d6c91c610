package clickhouse

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"github.com/ethpandaops/allure-runtime/pkg/model"
	"github.com/ethpandaops/allure-runtime/pkg/writer"
	"github.com/sirupsen/logrus"
)

const (
	// DefaultBatchSize is the number of rows buffered before an insert.
	DefaultBatchSize = 500
	flushTimeout     = 30 * time.Second
)

// BatchPreparer is the part of driver.Conn the writer needs.
type BatchPreparer interface {
	PrepareBatch(ctx context.Context, query string, opts ...driver.PrepareBatchOption) (driver.Batch, error)
}

// Writer is a writer.Writer that inserts results and containers into
// ClickHouse in batches. Attachments, environment and categories are not
// stored.
type Writer struct {
	log       logrus.FieldLogger
	conn      BatchPreparer
	database  string
	worker    string
	batchSize int

	mu         sync.Mutex
	results    []resultRow
	containers []containerRow
}

// NewWriter creates a Writer inserting into database.
func NewWriter(log logrus.FieldLogger, conn BatchPreparer, database, worker string, batchSize int) *Writer {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &Writer{
		log:       log.WithField("component", "clickhouse_writer"),
		conn:      conn,
		database:  database,
		worker:    worker,
		batchSize: batchSize,
	}
}

// WriteResult buffers the result and flushes a full batch.
func (w *Writer) WriteResult(result *model.TestResult) error {
	w.mu.Lock()
	w.results = append(w.results, newResultRow(result, w.worker))
	full := len(w.results) >= w.batchSize
	w.mu.Unlock()

	if full {
		return w.flushWithTimeout()
	}
	return nil
}

// WriteGroup buffers the container and flushes a full batch.
func (w *Writer) WriteGroup(container *model.TestResultContainer) error {
	w.mu.Lock()
	w.containers = append(w.containers, newContainerRow(container, w.worker))
	full := len(w.containers) >= w.batchSize
	w.mu.Unlock()

	if full {
		return w.flushWithTimeout()
	}
	return nil
}

// WriteAttachment implements writer.Writer.
func (w *Writer) WriteAttachment(_ string, _ []byte) error {
	return nil
}

// WriteAttachmentFromPath implements writer.Writer.
func (w *Writer) WriteAttachmentFromPath(_, _ string) error {
	return nil
}

// WriteEnvironmentInfo implements writer.Writer.
func (w *Writer) WriteEnvironmentInfo(_ *model.EnvironmentInfo) error {
	return nil
}

// WriteCategories implements writer.Writer.
func (w *Writer) WriteCategories(_ []model.Category) error {
	return nil
}

// Pending returns the number of buffered rows.
func (w *Writer) Pending() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.results) + len(w.containers)
}

func (w *Writer) flushWithTimeout() error {
	ctx, cancel := context.WithTimeout(context.Background(), flushTimeout)
	defer cancel()
	return w.Flush(ctx)
}

// Flush inserts every buffered row. The buffer is emptied even when an
// insert fails.
func (w *Writer) Flush(ctx context.Context) error {
	w.mu.Lock()
	results, containers := w.results, w.containers
	w.results, w.containers = nil, nil
	w.mu.Unlock()

	if len(results) > 0 {
		if err := w.send(ctx, "test_results", len(results), func(i int) []any {
			return results[i].values()
		}); err != nil {
			return err
		}
	}

	if len(containers) > 0 {
		if err := w.send(ctx, "test_containers", len(containers), func(i int) []any {
			return containers[i].values()
		}); err != nil {
			return err
		}
	}

	return nil
}

func (w *Writer) send(ctx context.Context, table string, n int, row func(int) []any) error {
	batch, err := w.conn.PrepareBatch(ctx, fmt.Sprintf("INSERT INTO `%s`.%s", w.database, table))
	if err != nil {
		return fmt.Errorf("failed to prepare %s batch: %w", table, err)
	}

	for i := 0; i < n; i++ {
		if err := batch.Append(row(i)...); err != nil {
			_ = batch.Abort()
			return fmt.Errorf("failed to append %s row: %w", table, err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("failed to send %s batch: %w", table, err)
	}

	w.log.WithFields(logrus.Fields{
		"table": table,
		"rows":  n,
	}).Debug("Inserted batch")

	return nil
}

// Close flushes the remaining rows.
func (w *Writer) Close(ctx context.Context) error {
	return w.Flush(ctx)
}

var _ writer.Writer = (*Writer)(nil)
