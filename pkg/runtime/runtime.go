// Package runtime is the reporter runtime: the stateful engine that framework
// adapters drive to build a tree of tests, fixtures and steps and to hand the
// finished records to a writer.
//
// Records are addressed by opaque identifiers returned from the Start*
// methods. An adapter mutates them with Update* and runtime messages, closes
// them with Stop* and releases them with Write*. Misuse of an identifier is
// logged and otherwise ignored so one misbehaving hook cannot abort a run.
package runtime

import (
	"fmt"
	"sync"
	"time"

	"github.com/ethpandaops/allure-runtime/pkg/labels"
	"github.com/ethpandaops/allure-runtime/pkg/model"
	"github.com/ethpandaops/allure-runtime/pkg/status"
	"github.com/ethpandaops/allure-runtime/pkg/writer"
	lru "github.com/hashicorp/golang-lru"
	"github.com/sirupsen/logrus"
)

// DefaultHistorySize is how many released and dropped identifiers a Runtime
// remembers for its diagnostics.
const DefaultHistorySize = 10000

// Option configures a Runtime.
type Option func(*Runtime)

// WithClassifier sets the classifier used to turn stop errors into statuses.
func WithClassifier(c status.Classifier) Option {
	return func(r *Runtime) {
		if c != nil {
			r.classifier = c
		}
	}
}

// WithClock overrides the time source. Used by tests.
func WithClock(clock func() time.Time) Option {
	return func(r *Runtime) {
		if clock != nil {
			r.clock = clock
		}
	}
}

// WithGlobalLabels adds labels to every test that does not already carry a
// label with the same name.
func WithGlobalLabels(ls ...model.Label) Option {
	return func(r *Runtime) {
		r.globalLabels = append(r.globalLabels, labels.FilterBlank(ls)...)
	}
}

// WithLinkTemplates expands short link values (for example an issue number)
// into full URLs by link type.
func WithLinkTemplates(t labels.LinkTemplates) Option {
	return func(r *Runtime) {
		r.links = t
	}
}

// WithHistorySize bounds how many released and dropped identifiers are
// remembered. Older ones are reported as unknown.
func WithHistorySize(n int) Option {
	return func(r *Runtime) {
		r.historySize = n
	}
}

type testEntry struct {
	result          *model.TestResult
	scopes          []string
	stack           []string
	owned           []string
	stopped         bool
	explicitSuite   bool
	explicitHistory bool
	explicitCase    bool
}

type fixtureEntry struct {
	result  *model.FixtureResult
	scope   string
	stack   []string
	owned   []string
	stopped bool
}

type stepEntry struct {
	result  *model.StepResult
	root    string
	stopped bool
}

type scopeEntry struct {
	container *model.TestResultContainer
	parents   int
	fixtures  []string
	labels    []model.Label
	links     []model.Link
	params    []model.Parameter
}

// Runtime is the reporter runtime. It is safe for concurrent use by the
// adapters of parallel tests.
type Runtime struct {
	log          logrus.FieldLogger
	writer       writer.Writer
	classifier   status.Classifier
	clock        func() time.Time
	globalLabels []model.Label
	links        labels.LinkTemplates

	// mu guards every map below and the records they point at. Record
	// mutators run under it and must not call back into the Runtime.
	mu          sync.Mutex
	tests       map[string]*testEntry
	fixtures    map[string]*fixtureEntry
	steps       map[string]*stepEntry
	scopes      map[string]*scopeEntry
	finished    map[string]*finishedScope
	historySize int
	released    *lru.Cache
	dropped     *lru.Cache
}

// finishedScope is a written scope that live parents still list as a child.
type finishedScope struct {
	materialized bool
	parents      int
}

// New creates a Runtime handing finished records to w.
func New(log logrus.FieldLogger, w writer.Writer, opts ...Option) *Runtime {
	r := &Runtime{
		log:         log.WithField("component", "reporter_runtime"),
		writer:      w,
		classifier:  status.Default,
		clock:       time.Now,
		tests:       make(map[string]*testEntry),
		fixtures:    make(map[string]*fixtureEntry),
		steps:       make(map[string]*stepEntry),
		scopes:      make(map[string]*scopeEntry),
		finished:    make(map[string]*finishedScope),
		historySize: DefaultHistorySize,
	}
	for _, opt := range opts {
		opt(r)
	}
	r.released = newHistory(r.historySize)
	r.dropped = newHistory(r.historySize)
	return r
}

func newHistory(size int) *lru.Cache {
	if size <= 0 {
		size = DefaultHistorySize
	}
	c, err := lru.New(size)
	if err != nil {
		// lru.New only fails for non-positive sizes.
		panic(err)
	}
	return c
}

// release remembers that id was written.
func (r *Runtime) release(id string) {
	r.released.Add(id, struct{}{})
}

func (r *Runtime) now() int64 {
	return model.Timestamp(r.clock())
}

// WriteEnvironmentInfo hands the run's environment properties to the writer.
// Calling it more than once replaces the previous value.
func (r *Runtime) WriteEnvironmentInfo(info *model.EnvironmentInfo) error {
	if info == nil {
		return nil
	}
	if err := r.writer.WriteEnvironmentInfo(info); err != nil {
		return fmt.Errorf("failed to write environment info: %w", err)
	}
	return nil
}

// WriteCategoriesDefinitions hands the run's defect categories to the writer.
// Calling it more than once replaces the previous value.
func (r *Runtime) WriteCategoriesDefinitions(categories []model.Category) error {
	if err := r.writer.WriteCategories(categories); err != nil {
		return fmt.Errorf("failed to write categories: %w", err)
	}
	return nil
}

// Live returns the number of records that were started but not released.
func (r *Runtime) Live() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return len(r.tests) + len(r.fixtures) + len(r.steps) + len(r.scopes)
}

// Close logs every record that was started but never released. The records
// are dropped; nothing is written.
func (r *Runtime) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()

	for id, t := range r.tests {
		r.log.WithFields(logrus.Fields{"uuid": id, "name": t.result.Name}).Warn("Test was never written")
	}
	for id, f := range r.fixtures {
		r.log.WithFields(logrus.Fields{"uuid": id, "name": f.result.Name}).Warn("Fixture was never written")
	}
	for id, s := range r.scopes {
		r.log.WithFields(logrus.Fields{"uuid": id, "name": s.container.Name}).Warn("Scope was never written")
	}
	if len(r.steps) > 0 {
		r.log.WithField("count", len(r.steps)).Warn("Steps were never released")
	}

	r.tests = make(map[string]*testEntry)
	r.fixtures = make(map[string]*fixtureEntry)
	r.steps = make(map[string]*stepEntry)
	r.scopes = make(map[string]*scopeEntry)
	r.finished = make(map[string]*finishedScope)
}

// missing logs an operation on an identifier that is not live.
func (r *Runtime) missing(op, id string) {
	entry := r.log.WithFields(logrus.Fields{"op": op, "uuid": id})
	if r.released.Contains(id) {
		entry.Warn("Identifier was already released")
		return
	}
	entry.Warn("Unknown identifier")
}
