package metrics

import (
	"os"

	"github.com/ethpandaops/allure-runtime/pkg/model"
	"github.com/ethpandaops/allure-runtime/pkg/writer"
)

// ObservingWriter records every successful write with a Collector before
// passing it on.
type ObservingWriter struct {
	next      writer.Writer
	collector Collector
}

// NewObservingWriter wraps next.
func NewObservingWriter(next writer.Writer, collector Collector) *ObservingWriter {
	return &ObservingWriter{next: next, collector: collector}
}

// WriteResult implements writer.Writer.
func (w *ObservingWriter) WriteResult(result *model.TestResult) error {
	if err := w.next.WriteResult(result); err != nil {
		return err
	}
	w.collector.ObserveTest(result)
	return nil
}

// WriteGroup implements writer.Writer.
func (w *ObservingWriter) WriteGroup(container *model.TestResultContainer) error {
	if err := w.next.WriteGroup(container); err != nil {
		return err
	}
	w.collector.ObserveContainer(container)
	return nil
}

// WriteAttachment implements writer.Writer.
func (w *ObservingWriter) WriteAttachment(source string, content []byte) error {
	if err := w.next.WriteAttachment(source, content); err != nil {
		return err
	}
	w.collector.ObserveAttachment(len(content))
	return nil
}

// WriteAttachmentFromPath implements writer.Writer.
func (w *ObservingWriter) WriteAttachmentFromPath(source, path string) error {
	if err := w.next.WriteAttachmentFromPath(source, path); err != nil {
		return err
	}
	size := 0
	if info, err := os.Stat(path); err == nil {
		size = int(info.Size())
	}
	w.collector.ObserveAttachment(size)
	return nil
}

// WriteEnvironmentInfo implements writer.Writer.
func (w *ObservingWriter) WriteEnvironmentInfo(info *model.EnvironmentInfo) error {
	return w.next.WriteEnvironmentInfo(info)
}

// WriteCategories implements writer.Writer.
func (w *ObservingWriter) WriteCategories(categories []model.Category) error {
	return w.next.WriteCategories(categories)
}

var _ writer.Writer = (*ObservingWriter)(nil)
