// Package metrics collects statistics about the records a run produced and
// exposes them as Prometheus metrics.
package metrics

import (
	"fmt"
	"sync"
	"time"

	"github.com/ethpandaops/allure-runtime/pkg/model"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
)

// Summary provides aggregate statistics across all written records
type Summary struct {
	TotalDuration   time.Duration
	TotalTests      int
	PassedTests     int
	FailedTests     int
	BrokenTests     int
	SkippedTests    int
	UnknownTests    int
	TotalSteps      int
	Containers      int
	Attachments     int
	AttachmentBytes int64
}

// PassRate returns the share of passed tests in percent.
func (s Summary) PassRate() float64 {
	if s.TotalTests == 0 {
		return 0
	}
	return float64(s.PassedTests) / float64(s.TotalTests) * 100.0
}

// Collector interface for metrics collection
type Collector interface {
	ObserveTest(result *model.TestResult)
	ObserveContainer(container *model.TestResultContainer)
	ObserveAttachment(size int)
	GetTests() []*model.TestResult
	GetSummary() Summary
	Registry() *prometheus.Registry
	WriteTextfile(path string) error
}

// collector implements Collector interface
type collector struct {
	log       logrus.FieldLogger
	mu        sync.RWMutex
	tests     []*model.TestResult
	summary   Summary
	startTime time.Time

	registry       *prometheus.Registry
	testsTotal     *prometheus.CounterVec
	stepsTotal     *prometheus.CounterVec
	testDuration   *prometheus.HistogramVec
	containers     prometheus.Counter
	attachmentSize prometheus.Counter
}

// NewCollector creates a new metrics collector backed by its own registry.
func NewCollector(log logrus.FieldLogger) Collector {
	c := &collector{
		log:       log.WithField("component", "metrics_collector"),
		tests:     make([]*model.TestResult, 0, 64),
		startTime: time.Now(),
		registry:  prometheus.NewRegistry(),
		testsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: "allure_tests_total", Help: "Total number of written tests"},
			[]string{"status"},
		),
		stepsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: "allure_steps_total", Help: "Total number of steps in written tests"},
			[]string{"status"},
		),
		testDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "allure_test_duration_seconds",
				Help:    "Test duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"status"},
		),
		containers: prometheus.NewCounter(
			prometheus.CounterOpts{Name: "allure_containers_total", Help: "Total number of written containers"},
		),
		attachmentSize: prometheus.NewCounter(
			prometheus.CounterOpts{Name: "allure_attachment_bytes_total", Help: "Total size of written attachments"},
		),
	}

	c.registry.MustRegister(c.testsTotal, c.stepsTotal, c.testDuration, c.containers, c.attachmentSize)

	return c
}

// statusLabel maps the absent status onto a printable label value.
func statusLabel(s model.Status) string {
	if s == "" {
		return "unknown"
	}
	return string(s)
}

func (c *collector) ObserveTest(result *model.TestResult) {
	steps := c.observeSteps(result.Steps)

	duration := time.Duration(0)
	if result.Stop > result.Start {
		duration = time.Duration(result.Stop-result.Start) * time.Millisecond
	}
	c.testsTotal.WithLabelValues(statusLabel(result.Status)).Inc()
	c.testDuration.WithLabelValues(statusLabel(result.Status)).Observe(duration.Seconds())

	c.mu.Lock()
	defer c.mu.Unlock()

	c.tests = append(c.tests, result)
	c.summary.TotalTests++
	c.summary.TotalSteps += steps
	switch result.Status {
	case model.StatusPassed:
		c.summary.PassedTests++
	case model.StatusFailed:
		c.summary.FailedTests++
	case model.StatusBroken:
		c.summary.BrokenTests++
	case model.StatusSkipped:
		c.summary.SkippedTests++
	default:
		c.summary.UnknownTests++
	}
}

func (c *collector) observeSteps(steps []*model.StepResult) int {
	n := 0
	for _, step := range steps {
		c.stepsTotal.WithLabelValues(statusLabel(step.Status)).Inc()
		n += 1 + c.observeSteps(step.Steps)
	}
	return n
}

func (c *collector) ObserveContainer(_ *model.TestResultContainer) {
	c.containers.Inc()

	c.mu.Lock()
	defer c.mu.Unlock()
	c.summary.Containers++
}

func (c *collector) ObserveAttachment(size int) {
	c.attachmentSize.Add(float64(size))

	c.mu.Lock()
	defer c.mu.Unlock()
	c.summary.Attachments++
	c.summary.AttachmentBytes += int64(size)
}

func (c *collector) GetTests() []*model.TestResult {
	c.mu.RLock()
	defer c.mu.RUnlock()
	// Return copy to avoid race conditions
	result := make([]*model.TestResult, len(c.tests))
	copy(result, c.tests)
	return result
}

func (c *collector) GetSummary() Summary {
	c.mu.RLock()
	defer c.mu.RUnlock()

	summary := c.summary
	summary.TotalDuration = time.Since(c.startTime)
	return summary
}

func (c *collector) Registry() *prometheus.Registry {
	return c.registry
}

// WriteTextfile writes all metrics in the Prometheus text format, for the
// node exporter textfile collector.
func (c *collector) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, c.registry); err != nil {
		return fmt.Errorf("failed to write metrics to %s: %w", path, err)
	}
	c.log.WithField("path", path).Debug("metrics written")
	return nil
}

// Compile-time interface compliance check
var _ Collector = (*collector)(nil)
