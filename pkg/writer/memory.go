package writer

import (
	"fmt"
	"os"
	"sync"

	"github.com/ethpandaops/allure-runtime/pkg/model"
)

// InMemoryWriter keeps every record in memory. It is safe for concurrent use.
type InMemoryWriter struct {
	mu          sync.RWMutex
	results     []*model.TestResult
	groups      []*model.TestResultContainer
	attachments map[string][]byte
	environment *model.EnvironmentInfo
	categories  []model.Category
	seen        map[string]struct{}
}

// NewInMemoryWriter creates an empty InMemoryWriter.
func NewInMemoryWriter() *InMemoryWriter {
	return &InMemoryWriter{
		attachments: make(map[string][]byte),
		seen:        make(map[string]struct{}),
	}
}

func (w *InMemoryWriter) claim(name string) error {
	if _, ok := w.seen[name]; ok {
		return fmt.Errorf("%s: %w", name, ErrAlreadyWritten)
	}
	w.seen[name] = struct{}{}
	return nil
}

// WriteResult implements Writer.
func (w *InMemoryWriter) WriteResult(result *model.TestResult) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.claim(ResultFileName(result.UUID)); err != nil {
		return err
	}
	w.results = append(w.results, result)
	return nil
}

// WriteGroup implements Writer.
func (w *InMemoryWriter) WriteGroup(container *model.TestResultContainer) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.claim(ContainerFileName(container.UUID)); err != nil {
		return err
	}
	w.groups = append(w.groups, container)
	return nil
}

// WriteAttachment implements Writer.
func (w *InMemoryWriter) WriteAttachment(source string, content []byte) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.claim(source); err != nil {
		return err
	}
	w.attachments[source] = append([]byte(nil), content...)
	return nil
}

// WriteAttachmentFromPath reads path and stores its content.
func (w *InMemoryWriter) WriteAttachmentFromPath(source, path string) error {
	content, err := os.ReadFile(path) //nolint:gosec // G304: path is supplied by the test being reported
	if err != nil {
		return fmt.Errorf("reading attachment %s: %w", path, err)
	}
	return w.WriteAttachment(source, content)
}

// WriteEnvironmentInfo implements Writer. The last call wins.
func (w *InMemoryWriter) WriteEnvironmentInfo(info *model.EnvironmentInfo) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.environment = info
	return nil
}

// WriteCategories implements Writer. The last call wins.
func (w *InMemoryWriter) WriteCategories(categories []model.Category) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.categories = append([]model.Category(nil), categories...)
	return nil
}

// Results returns the written test results in write order.
func (w *InMemoryWriter) Results() []*model.TestResult {
	w.mu.RLock()
	defer w.mu.RUnlock()

	out := make([]*model.TestResult, len(w.results))
	copy(out, w.results)
	return out
}

// Result returns the written test result with the given identifier.
func (w *InMemoryWriter) Result(uuid string) (*model.TestResult, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()

	for _, r := range w.results {
		if r.UUID == uuid {
			return r, true
		}
	}
	return nil, false
}

// Groups returns the written containers in write order.
func (w *InMemoryWriter) Groups() []*model.TestResultContainer {
	w.mu.RLock()
	defer w.mu.RUnlock()

	out := make([]*model.TestResultContainer, len(w.groups))
	copy(out, w.groups)
	return out
}

// Attachment returns the content written under source.
func (w *InMemoryWriter) Attachment(source string) ([]byte, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()

	content, ok := w.attachments[source]
	return content, ok
}

// Environment returns the last environment info written.
func (w *InMemoryWriter) Environment() *model.EnvironmentInfo {
	w.mu.RLock()
	defer w.mu.RUnlock()

	return w.environment
}

// Categories returns the last categories written.
func (w *InMemoryWriter) Categories() []model.Category {
	w.mu.RLock()
	defer w.mu.RUnlock()

	return append([]model.Category(nil), w.categories...)
}

var _ Writer = (*InMemoryWriter)(nil)
