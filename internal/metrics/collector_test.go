package metrics

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/ethpandaops/allure-runtime/pkg/model"
	"github.com/ethpandaops/allure-runtime/pkg/writer"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func counterValue(t *testing.T, c Collector, name, status string) float64 {
	t.Helper()

	families, err := c.Registry().Gather()
	require.NoError(t, err)

	for _, family := range families {
		if family.GetName() != name {
			continue
		}
		for _, metric := range family.GetMetric() {
			matches := status == ""
			for _, label := range metric.GetLabel() {
				if label.GetName() == "status" && label.GetValue() == status {
					matches = true
				}
			}
			if matches {
				return metric.GetCounter().GetValue()
			}
		}
	}
	return 0
}

func TestObservingWriter(t *testing.T) {
	t.Parallel()

	logger, _ := test.NewNullLogger()
	collector := NewCollector(logger)
	w := NewObservingWriter(writer.NewInMemoryWriter(), collector)

	step := func(s model.Status, children ...*model.StepResult) *model.StepResult {
		return &model.StepResult{Executable: model.Executable{Status: s, Steps: children}}
	}

	require.NoError(t, w.WriteResult(&model.TestResult{
		UUID: "a",
		Executable: model.Executable{
			Status: model.StatusPassed,
			Start:  1000,
			Stop:   3000,
			Steps:  []*model.StepResult{step(model.StatusPassed, step(model.StatusPassed))},
		},
	}))
	require.NoError(t, w.WriteResult(&model.TestResult{UUID: "b", Executable: model.Executable{Status: model.StatusFailed}}))
	require.NoError(t, w.WriteResult(&model.TestResult{UUID: "c"}))
	require.Error(t, w.WriteResult(&model.TestResult{UUID: "c"}))
	require.NoError(t, w.WriteGroup(&model.TestResultContainer{UUID: "g"}))
	require.NoError(t, w.WriteAttachment("x.txt", []byte("12345")))

	summary := collector.GetSummary()
	assert.Equal(t, 3, summary.TotalTests)
	assert.Equal(t, 1, summary.PassedTests)
	assert.Equal(t, 1, summary.FailedTests)
	assert.Equal(t, 1, summary.UnknownTests)
	assert.Equal(t, 2, summary.TotalSteps)
	assert.Equal(t, 1, summary.Containers)
	assert.Equal(t, int64(5), summary.AttachmentBytes)
	assert.InDelta(t, 33.3, summary.PassRate(), 0.1)
	assert.Len(t, collector.GetTests(), 3)

	assert.InDelta(t, 1.0, counterValue(t, collector, "allure_tests_total", "passed"), 0)
	assert.InDelta(t, 1.0, counterValue(t, collector, "allure_tests_total", "unknown"), 0)
	assert.InDelta(t, 2.0, counterValue(t, collector, "allure_steps_total", "passed"), 0)
	assert.InDelta(t, 5.0, counterValue(t, collector, "allure_attachment_bytes_total", ""), 0)
}

func TestWriteTextfile(t *testing.T) {
	t.Parallel()

	logger, _ := test.NewNullLogger()
	collector := NewCollector(logger)
	collector.ObserveTest(&model.TestResult{Executable: model.Executable{Status: model.StatusBroken}})

	path := filepath.Join(t.TempDir(), "allure.prom")
	require.NoError(t, collector.WriteTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `allure_tests_total{status="broken"} 1`)
}
