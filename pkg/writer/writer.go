// Package writer persists finished result records.
//
// Writers only ever receive records that were already stopped and released
// by the runtime; they never see a record that can still change.
package writer

import (
	"errors"
	"fmt"

	"github.com/ethpandaops/allure-runtime/pkg/model"
)

// ErrAlreadyWritten is returned when a record with the same identifier was
// written before.
var ErrAlreadyWritten = errors.New("record already written")

// File name suffixes used for persisted records.
const (
	ResultSuffix        = "-result.json"
	ContainerSuffix     = "-container.json"
	EnvironmentFileName = "environment.properties"
	CategoriesFileName  = "categories.json"
)

// Writer persists finished records.
type Writer interface {
	WriteResult(result *model.TestResult) error
	WriteGroup(container *model.TestResultContainer) error
	WriteAttachment(source string, content []byte) error
	WriteAttachmentFromPath(source, path string) error
	WriteEnvironmentInfo(info *model.EnvironmentInfo) error
	WriteCategories(categories []model.Category) error
}

// ResultFileName returns the file name of a test result.
func ResultFileName(uuid string) string {
	return uuid + ResultSuffix
}

// ContainerFileName returns the file name of a container.
func ContainerFileName(uuid string) string {
	return uuid + ContainerSuffix
}

// MultiWriter fans every call out to all writers and joins their errors.
type MultiWriter struct {
	writers []Writer
}

// NewMultiWriter creates a MultiWriter. Nil writers are skipped.
func NewMultiWriter(writers ...Writer) *MultiWriter {
	kept := make([]Writer, 0, len(writers))
	for _, w := range writers {
		if w != nil {
			kept = append(kept, w)
		}
	}
	return &MultiWriter{writers: kept}
}

func (m *MultiWriter) each(fn func(Writer) error) error {
	var errs []error
	for _, w := range m.writers {
		if err := fn(w); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// WriteResult implements Writer.
func (m *MultiWriter) WriteResult(result *model.TestResult) error {
	return m.each(func(w Writer) error { return w.WriteResult(result) })
}

// WriteGroup implements Writer.
func (m *MultiWriter) WriteGroup(container *model.TestResultContainer) error {
	return m.each(func(w Writer) error { return w.WriteGroup(container) })
}

// WriteAttachment implements Writer.
func (m *MultiWriter) WriteAttachment(source string, content []byte) error {
	return m.each(func(w Writer) error { return w.WriteAttachment(source, content) })
}

// WriteAttachmentFromPath implements Writer.
func (m *MultiWriter) WriteAttachmentFromPath(source, path string) error {
	return m.each(func(w Writer) error { return w.WriteAttachmentFromPath(source, path) })
}

// WriteEnvironmentInfo implements Writer.
func (m *MultiWriter) WriteEnvironmentInfo(info *model.EnvironmentInfo) error {
	return m.each(func(w Writer) error { return w.WriteEnvironmentInfo(info) })
}

// WriteCategories implements Writer.
func (m *MultiWriter) WriteCategories(categories []model.Category) error {
	return m.each(func(w Writer) error { return w.WriteCategories(categories) })
}

// RecordKind tags the payload of a Record.
type RecordKind string

const (
	// KindResult carries a test result.
	KindResult RecordKind = "result"
	// KindContainer carries a container.
	KindContainer RecordKind = "container"
	// KindAttachment carries attachment content.
	KindAttachment RecordKind = "attachment"
	// KindEnvironment carries environment info.
	KindEnvironment RecordKind = "environment"
	// KindCategories carries category definitions.
	KindCategories RecordKind = "categories"
)

// AttachmentPayload is attachment content addressed by its source name.
type AttachmentPayload struct {
	Source  string `json:"source"`
	Content []byte `json:"content"`
}

// Record is one finished record in transit between a writer and the place
// it is eventually persisted.
type Record struct {
	Kind        RecordKind                 `json:"kind"`
	Result      *model.TestResult          `json:"result,omitempty"`
	Container   *model.TestResultContainer `json:"container,omitempty"`
	Attachment  *AttachmentPayload         `json:"attachment,omitempty"`
	Environment *model.EnvironmentInfo     `json:"environment,omitempty"`
	Categories  []model.Category           `json:"categories,omitempty"`
}

// Deliver replays rec into w.
func Deliver(w Writer, rec Record) error {
	switch rec.Kind {
	case KindResult:
		if rec.Result == nil {
			return fmt.Errorf("%s record without payload", rec.Kind) //nolint:err113 // Include kind for debugging
		}
		return w.WriteResult(rec.Result)
	case KindContainer:
		if rec.Container == nil {
			return fmt.Errorf("%s record without payload", rec.Kind) //nolint:err113 // Include kind for debugging
		}
		return w.WriteGroup(rec.Container)
	case KindAttachment:
		if rec.Attachment == nil {
			return fmt.Errorf("%s record without payload", rec.Kind) //nolint:err113 // Include kind for debugging
		}
		return w.WriteAttachment(rec.Attachment.Source, rec.Attachment.Content)
	case KindEnvironment:
		if rec.Environment == nil {
			return fmt.Errorf("%s record without payload", rec.Kind) //nolint:err113 // Include kind for debugging
		}
		return w.WriteEnvironmentInfo(rec.Environment)
	case KindCategories:
		return w.WriteCategories(rec.Categories)
	default:
		return fmt.Errorf("unknown record kind %q", rec.Kind) //nolint:err113 // Include kind for debugging
	}
}

var _ Writer = (*MultiWriter)(nil)
