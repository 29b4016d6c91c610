package output

import (
	"fmt"

	"github.com/ethpandaops/allure-runtime/internal/metrics"
	"github.com/sirupsen/logrus"
)

// SummaryFormatter formats summary statistics as a table.
type SummaryFormatter struct {
	log      logrus.FieldLogger
	renderer Renderer
	colors   *ColorHelper
}

// NewSummaryFormatter creates a new summary table formatter.
func NewSummaryFormatter(log logrus.FieldLogger, renderer Renderer) *SummaryFormatter {
	return &SummaryFormatter{
		log:      log.WithField("component", "output.summary_formatter"),
		renderer: renderer,
		colors:   NewColorHelper(),
	}
}

func share(n, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(n) / float64(total) * 100.0
}

// Format converts summary metrics into a formatted table string.
func (f *SummaryFormatter) Format(summary metrics.Summary) string {
	passRate := summary.PassRate()

	passedValue := fmt.Sprintf("%d (%s)", summary.PassedTests, f.colors.FormatPercentage(passRate))
	if summary.PassedTests == summary.TotalTests {
		passedValue = f.colors.Success(fmt.Sprintf("%d (%.1f%%)", summary.PassedTests, passRate))
	}

	failedValue := fmt.Sprintf("%d (%.1f%%)", summary.FailedTests, share(summary.FailedTests, summary.TotalTests))
	if summary.FailedTests > 0 {
		failedValue = f.colors.Failure(failedValue)
	} else {
		failedValue = f.colors.Success(failedValue)
	}

	brokenValue := fmt.Sprintf("%d (%.1f%%)", summary.BrokenTests, share(summary.BrokenTests, summary.TotalTests))
	if summary.BrokenTests > 0 {
		brokenValue = f.colors.Warning(brokenValue)
	}

	var (
		headers = []string{"Metric", "Value"}
		rows    = [][]string{
			{"Total Tests", f.colors.Bold(fmt.Sprintf("%d", summary.TotalTests))},
			{"Passed", passedValue},
			{"Failed", failedValue},
			{"Broken", brokenValue},
			{"Skipped", f.colors.Muted(fmt.Sprintf("%d", summary.SkippedTests))},
			{"Unknown", f.colors.Muted(fmt.Sprintf("%d", summary.UnknownTests))},
			{"Steps", fmt.Sprintf("%d", summary.TotalSteps)},
			{"Containers", fmt.Sprintf("%d", summary.Containers)},
			{"Attachments", fmt.Sprintf("%d (%s)", summary.Attachments, Bytes(summary.AttachmentBytes))},
			{"Total Duration", Duration(summary.TotalDuration)},
		}
	)

	return "\n" + f.colors.Header("▸ Summary") + "\n\n" + f.renderer.RenderToString(headers, rows)
}
