package output

import (
	"fmt"

	"github.com/ethpandaops/allure-runtime/pkg/model"
	"github.com/fatih/color"
)

// statusStyles maps each status to its table label and color.
var statusStyles = map[model.Status]struct {
	label string
	attrs []color.Attribute
}{
	model.StatusPassed:  {"✓ PASSED", []color.Attribute{color.FgGreen}},
	model.StatusFailed:  {"✗ FAILED", []color.Attribute{color.FgRed}},
	model.StatusBroken:  {"! BROKEN", []color.Attribute{color.FgYellow}},
	model.StatusSkipped: {"- SKIPPED", []color.Attribute{color.FgHiBlack}},
}

// ColorHelper colors result output. Colors are off when fatih/color decided
// the output is not a terminal.
type ColorHelper struct {
	enabled bool
}

// NewColorHelper creates a new color helper
func NewColorHelper() *ColorHelper {
	return &ColorHelper{
		enabled: !color.NoColor,
	}
}

func (c *ColorHelper) paint(text string, attrs ...color.Attribute) string {
	if !c.enabled {
		return text
	}
	return color.New(attrs...).Sprint(text)
}

// Success returns green text
func (c *ColorHelper) Success(text string) string { return c.paint(text, color.FgGreen) }

// Failure returns red text
func (c *ColorHelper) Failure(text string) string { return c.paint(text, color.FgRed) }

// Warning returns yellow text
func (c *ColorHelper) Warning(text string) string { return c.paint(text, color.FgYellow) }

// Info returns cyan text
func (c *ColorHelper) Info(text string) string { return c.paint(text, color.FgCyan) }

// Muted returns gray text
func (c *ColorHelper) Muted(text string) string { return c.paint(text, color.FgHiBlack) }

// Bold returns bold text
func (c *ColorHelper) Bold(text string) string { return c.paint(text, color.Bold) }

// Header styles section titles.
func (c *ColorHelper) Header(text string) string {
	return c.paint(text, color.FgCyan, color.Bold)
}

// FormatStatus renders a status label. An absent or unknown status is
// rendered as UNKNOWN.
func (c *ColorHelper) FormatStatus(s model.Status) string {
	style, ok := statusStyles[s]
	if !ok {
		return c.Muted("? UNKNOWN")
	}
	return c.paint(style.label, style.attrs...)
}

// ByStatus colors text the way FormatStatus colors s.
func (c *ColorHelper) ByStatus(s model.Status, text string) string {
	style, ok := statusStyles[s]
	if !ok {
		return c.Muted(text)
	}
	return c.paint(text, style.attrs...)
}

// FormatSteps renders "passed/total", green when every step passed and red
// when none did.
func (c *ColorHelper) FormatSteps(passed, total int) string {
	text := fmt.Sprintf("%d/%d", passed, total)
	switch {
	case passed == total:
		return c.Success(text)
	case passed == 0:
		return c.Failure(text)
	default:
		return c.Warning(text)
	}
}

// FormatPercentage renders a pass rate.
func (c *ColorHelper) FormatPercentage(value float64) string {
	text := fmt.Sprintf("%.1f%%", value)
	switch {
	case value >= 100:
		return c.Success(text)
	case value >= 90:
		return c.Warning(text)
	default:
		return c.Failure(text)
	}
}
