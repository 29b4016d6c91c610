package writer

import (
	"fmt"
	"os"

	"github.com/ethpandaops/allure-runtime/pkg/model"
)

// RecordSink receives finished records in order.
type RecordSink interface {
	Publish(rec Record) error
}

// ChannelSink publishes records onto a Go channel. Publish blocks until the
// receiver takes the record.
type ChannelSink chan<- Record

// Publish implements RecordSink.
func (c ChannelSink) Publish(rec Record) error {
	c <- rec
	return nil
}

// MessageWriter turns every write into a Record and hands it to a sink. It
// is used to ship records from worker processes to the process that
// persists them, and by in-process harnesses that inspect the stream.
type MessageWriter struct {
	sink RecordSink
}

// NewMessageWriter creates a MessageWriter publishing to sink.
func NewMessageWriter(sink RecordSink) *MessageWriter {
	return &MessageWriter{sink: sink}
}

func (w *MessageWriter) publish(rec Record) error {
	if err := w.sink.Publish(rec); err != nil {
		return fmt.Errorf("publishing %s record: %w", rec.Kind, err)
	}
	return nil
}

// WriteResult implements Writer.
func (w *MessageWriter) WriteResult(result *model.TestResult) error {
	return w.publish(Record{Kind: KindResult, Result: result})
}

// WriteGroup implements Writer.
func (w *MessageWriter) WriteGroup(container *model.TestResultContainer) error {
	return w.publish(Record{Kind: KindContainer, Container: container})
}

// WriteAttachment implements Writer.
func (w *MessageWriter) WriteAttachment(source string, content []byte) error {
	return w.publish(Record{Kind: KindAttachment, Attachment: &AttachmentPayload{Source: source, Content: content}})
}

// WriteAttachmentFromPath inlines the file content, since the receiving
// side may not share a file system with this process.
func (w *MessageWriter) WriteAttachmentFromPath(source, path string) error {
	content, err := os.ReadFile(path) //nolint:gosec // G304: path is supplied by the test being reported
	if err != nil {
		return fmt.Errorf("reading attachment %s: %w", path, err)
	}
	return w.WriteAttachment(source, content)
}

// WriteEnvironmentInfo implements Writer.
func (w *MessageWriter) WriteEnvironmentInfo(info *model.EnvironmentInfo) error {
	return w.publish(Record{Kind: KindEnvironment, Environment: info})
}

// WriteCategories implements Writer.
func (w *MessageWriter) WriteCategories(categories []model.Category) error {
	return w.publish(Record{Kind: KindCategories, Categories: categories})
}

var _ Writer = (*MessageWriter)(nil)
