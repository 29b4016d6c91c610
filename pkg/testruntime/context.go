package testruntime

import (
	"context"
	"sync"

	"github.com/ethpandaops/allure-runtime/pkg/model"
	"github.com/ethpandaops/allure-runtime/pkg/status"
	"github.com/sirupsen/logrus"
)

type contextKey struct{}

// WithRuntime returns a copy of ctx carrying rt.
func WithRuntime(ctx context.Context, rt TestRuntime) context.Context {
	return context.WithValue(ctx, contextKey{}, rt)
}

// FromContext returns the TestRuntime carried by ctx, or a no-op runtime
// that logs once when none is installed.
func FromContext(ctx context.Context) TestRuntime {
	if rt, ok := ctx.Value(contextKey{}).(TestRuntime); ok && rt != nil {
		return rt
	}
	return fallback
}

var fallback = Noop(logrus.StandardLogger())

// Holder is a swappable reference to a TestRuntime for harnesses that cannot
// thread a context through the code under test.
type Holder struct {
	mu sync.RWMutex
	rt TestRuntime
}

// NewHolder creates a Holder starting out with rt.
func NewHolder(rt TestRuntime) *Holder {
	return &Holder{rt: rt}
}

// Set replaces the held runtime and returns the previous one.
func (h *Holder) Set(rt TestRuntime) TestRuntime {
	h.mu.Lock()
	defer h.mu.Unlock()

	prev := h.rt
	h.rt = rt
	return prev
}

// Get returns the held runtime, or the no-op runtime when none is set.
func (h *Holder) Get() TestRuntime {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if h.rt == nil {
		return fallback
	}
	return h.rt
}

// Context returns a copy of ctx carrying the held runtime.
func (h *Holder) Context(ctx context.Context) context.Context {
	return WithRuntime(ctx, h.Get())
}

type noopRuntime struct {
	log  logrus.FieldLogger
	once sync.Once
}

// Noop returns a TestRuntime that discards everything. The first call logs a
// warning so a missing runtime does not go unnoticed.
func Noop(log logrus.FieldLogger) TestRuntime {
	return &noopRuntime{log: log.WithField("component", "test_runtime")}
}

func (n *noopRuntime) discard() error {
	n.once.Do(func() {
		n.log.Warn("No test runtime is installed, runtime calls are discarded")
	})
	return nil
}

func (n *noopRuntime) Labels(context.Context, ...model.Label) error {
	return n.discard()
}

func (n *noopRuntime) Links(context.Context, ...model.Link) error {
	return n.discard()
}

func (n *noopRuntime) Parameter(context.Context, string, string, ...ParameterOption) error {
	return n.discard()
}

func (n *noopRuntime) Description(context.Context, string) error {
	return n.discard()
}

func (n *noopRuntime) DescriptionHTML(context.Context, string) error {
	return n.discard()
}

func (n *noopRuntime) DisplayName(context.Context, string) error {
	return n.discard()
}

func (n *noopRuntime) HistoryID(context.Context, string) error {
	return n.discard()
}

func (n *noopRuntime) TestCaseID(context.Context, string) error {
	return n.discard()
}

func (n *noopRuntime) Attachment(context.Context, string, []byte, string) error {
	return n.discard()
}

func (n *noopRuntime) AttachmentFromPath(context.Context, string, string, string) error {
	return n.discard()
}

func (n *noopRuntime) StartStep(context.Context, string) error {
	return n.discard()
}

func (n *noopRuntime) StopStep(context.Context, model.Status, *model.StatusDetails) error {
	return n.discard()
}

func (n *noopRuntime) StepDisplayName(context.Context, string) error {
	return n.discard()
}

func (n *noopRuntime) StepParameter(context.Context, string, string, ...ParameterOption) error {
	return n.discard()
}

func (n *noopRuntime) Classify(err error) (model.Status, *model.StatusDetails) {
	return status.Default.Classify(err)
}

var (
	_ TestRuntime = (*noopRuntime)(nil)
	_ TestRuntime = (*messageRuntime)(nil)
)
