package output

import (
	"fmt"
	"strings"

	"github.com/ethpandaops/allure-runtime/pkg/model"
	"github.com/sirupsen/logrus"
)

const (
	detailsWidth = 50
	traceLines   = 5
)

// ResultsFormatter formats test results as a table.
type ResultsFormatter struct {
	log      logrus.FieldLogger
	renderer Renderer
	colors   *ColorHelper
}

// NewResultsFormatter creates a new results table formatter.
func NewResultsFormatter(log logrus.FieldLogger, renderer Renderer) *ResultsFormatter {
	return &ResultsFormatter{
		log:      log.WithField("component", "output.results_formatter"),
		renderer: renderer,
		colors:   NewColorHelper(),
	}
}

// countSteps returns the number of passed steps and the total, recursively.
func countSteps(steps []*model.StepResult) (passed, total int) {
	for _, step := range steps {
		total++
		if step.Status == model.StatusPassed {
			passed++
		}
		p, t := countSteps(step.Steps)
		passed += p
		total += t
	}
	return passed, total
}

func testName(result *model.TestResult) string {
	if result.Name != "" {
		return result.Name
	}
	if result.FullName != "" {
		return result.FullName
	}
	return result.UUID
}

func unsuccessful(s model.Status) bool {
	return s == model.StatusFailed || s == model.StatusBroken
}

// Format converts test results into a formatted table string with failure details.
func (f *ResultsFormatter) Format(results []*model.TestResult) string {
	if len(results) == 0 {
		return "No test results found"
	}

	var (
		headers = []string{"Test", "Status", "Steps", "Duration", "Details"}
		rows    = make([][]string, 0, len(results))
		failed  = make([]*model.TestResult, 0)
	)

	for _, result := range results {
		var details string
		if unsuccessful(result.Status) {
			failed = append(failed, result)
		}
		if result.StatusDetails != nil && result.StatusDetails.Message != "" {
			details = f.colors.Muted(Truncate(firstLine(result.StatusDetails.Message), detailsWidth))
		}

		passed, total := countSteps(result.Steps)
		steps := ""
		if total > 0 {
			steps = f.colors.FormatSteps(passed, total)
		}

		rows = append(rows, []string{
			testName(result),
			f.colors.FormatStatus(result.Status),
			steps,
			Duration(Elapsed(result.Start, result.Stop)),
			details,
		})
	}

	output := "\n" + f.colors.Header("▸ Test Results") + "\n\n" + f.renderer.RenderToString(headers, rows)

	if len(failed) > 0 {
		output += f.formatFailureDetails(failed)
	}

	return output
}

// formatFailureDetails lists the message, the unsuccessful step path and the
// head of the trace for every failed or broken test.
func (f *ResultsFormatter) formatFailureDetails(failed []*model.TestResult) string {
	var builder strings.Builder

	builder.WriteString("\n\n" + f.colors.Header("▸ Failed Test Details") + "\n\n")

	for i, result := range failed {
		if i > 0 {
			builder.WriteString("\n")
		}

		builder.WriteString(fmt.Sprintf("%s (%s)\n", f.colors.Bold(testName(result)), f.colors.ByStatus(result.Status, string(result.Status))))

		details := result.StatusDetails
		if details == nil || details.Message == "" {
			builder.WriteString(fmt.Sprintf("  %s: no details available\n", f.colors.Failure("Error")))
		} else {
			builder.WriteString(fmt.Sprintf("  %s: %s\n", f.colors.Failure("Error"), details.Message))
		}

		if path := failingPath(result.Steps); len(path) > 0 {
			builder.WriteString(fmt.Sprintf("  %s: %s\n", f.colors.Info("Step"), strings.Join(path, " › ")))
		}

		if details != nil && details.Trace != "" {
			lines := strings.Split(strings.TrimRight(details.Trace, "\n"), "\n")
			if len(lines) > traceLines {
				lines = append(lines[:traceLines], "...")
			}
			for _, line := range lines {
				builder.WriteString("    " + f.colors.Muted(line) + "\n")
			}
		}
	}

	return builder.String()
}

// failingPath follows the first unsuccessful step at each level.
func failingPath(steps []*model.StepResult) []string {
	for _, step := range steps {
		if unsuccessful(step.Status) {
			return append([]string{step.Name}, failingPath(step.Steps)...)
		}
	}
	return nil
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
