package output

import (
	"fmt"
	"io"
	"time"

	"github.com/ethpandaops/allure-runtime/internal/metrics"
	"github.com/fatih/color"
)

// Formatter provides clean, human-friendly output
type Formatter interface {
	PrintPhase(phase string)
	PrintProgress(message string, duration time.Duration)
	PrintSuccess(message string)
	PrintError(message string, err error)
	PrintTestResults()
	PrintSummary()
}

type formatter struct {
	writer io.Writer

	metrics          metrics.Collector
	resultsFormatter *ResultsFormatter
	summaryFormatter *SummaryFormatter

	green *color.Color
	red   *color.Color
	blue  *color.Color
	gray  *color.Color
}

// NewFormatter creates a new output formatter
func NewFormatter(
	writer io.Writer,
	metricsCollector metrics.Collector,
	resultsFormatter *ResultsFormatter,
	summaryFormatter *SummaryFormatter,
) Formatter {
	return &formatter{
		writer:           writer,
		metrics:          metricsCollector,
		resultsFormatter: resultsFormatter,
		summaryFormatter: summaryFormatter,
		green:            color.New(color.FgGreen),
		red:              color.New(color.FgRed),
		blue:             color.New(color.FgBlue),
		gray:             color.New(color.FgHiBlack),
	}
}

// PrintPhase prints phase separator
func (f *formatter) PrintPhase(phase string) {
	f.blue.Fprintf(f.writer, "\n▸ %s\n", phase)
}

// PrintProgress prints progress with timing
func (f *formatter) PrintProgress(message string, duration time.Duration) {
	if duration > 0 {
		f.gray.Fprintf(f.writer, "%s (%s)\n", message, Duration(duration))
	} else {
		fmt.Fprintf(f.writer, "%s\n", message)
	}
}

// PrintSuccess prints a green message
func (f *formatter) PrintSuccess(message string) {
	f.green.Fprintf(f.writer, "%s\n", message)
}

// PrintError prints a red message with the error details
func (f *formatter) PrintError(message string, err error) {
	f.red.Fprintf(f.writer, "%s", message)
	if err != nil {
		f.red.Fprintf(f.writer, ": %v", err)
	}
	fmt.Fprintf(f.writer, "\n")
}

// PrintTestResults prints a table of the collected test results
func (f *formatter) PrintTestResults() {
	fmt.Fprintln(f.writer, f.resultsFormatter.Format(f.metrics.GetTests()))
}

// PrintSummary prints a summary table with aggregate statistics
func (f *formatter) PrintSummary() {
	fmt.Fprintln(f.writer, f.summaryFormatter.Format(f.metrics.GetSummary()))
}
