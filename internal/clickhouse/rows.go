package clickhouse

import (
	"time"

	"github.com/ethpandaops/allure-runtime/pkg/model"
)

// resultRow is one row of the test_results table, in column order.
type resultRow struct {
	UUID            string
	HistoryID       string
	TestCaseID      string
	FullName        string
	Name            string
	Status          string
	Stage           string
	Message         string
	Trace           string
	Flaky           bool
	Suite           string
	ParentSuite     string
	SubSuite        string
	LabelNames      []string
	LabelValues     []string
	ParameterNames  []string
	ParameterValues []string
	Steps           uint32
	FailedSteps     uint32
	Attachments     uint32
	Start           time.Time
	Stop            time.Time
	DurationMS      uint64
	Worker          string
}

func (r resultRow) values() []any {
	return []any{
		r.UUID, r.HistoryID, r.TestCaseID, r.FullName, r.Name,
		r.Status, r.Stage, r.Message, r.Trace, r.Flaky,
		r.Suite, r.ParentSuite, r.SubSuite,
		r.LabelNames, r.LabelValues, r.ParameterNames, r.ParameterValues,
		r.Steps, r.FailedSteps, r.Attachments,
		r.Start, r.Stop, r.DurationMS, r.Worker,
	}
}

func millis(ts int64) time.Time {
	return time.UnixMilli(ts).UTC()
}

// countSteps returns the number of steps, failed or broken steps and
// attachments in the tree, attachments of the root included.
func countSteps(e *model.Executable) (steps, failed, attachments uint32) {
	attachments = uint32(len(e.Attachments)) //nolint:gosec // G115: slice lengths fit
	for _, step := range e.Steps {
		steps++
		if step.Status == model.StatusFailed || step.Status == model.StatusBroken {
			failed++
		}
		s, f, a := countSteps(&step.Executable)
		steps += s
		failed += f
		attachments += a
	}
	return steps, failed, attachments
}

func firstLabel(r *model.TestResult, name string) string {
	if values := r.LabelValues(name); len(values) > 0 {
		return values[0]
	}
	return ""
}

func newResultRow(r *model.TestResult, worker string) resultRow {
	row := resultRow{
		UUID:        r.UUID,
		HistoryID:   r.HistoryID,
		TestCaseID:  r.TestCaseID,
		FullName:    r.FullName,
		Name:        r.Name,
		Status:      string(r.Status),
		Stage:       string(r.Stage),
		Suite:       firstLabel(r, model.LabelSuite),
		ParentSuite: firstLabel(r, model.LabelParentSuite),
		SubSuite:    firstLabel(r, model.LabelSubSuite),
		Start:       millis(r.Start),
		Stop:        millis(r.Stop),
		Worker:      worker,
	}

	if row.Status == "" {
		row.Status = "unknown"
	}

	if d := r.StatusDetails; d != nil {
		row.Message = d.Message
		row.Trace = d.Trace
		row.Flaky = d.Flaky
	}

	row.LabelNames = make([]string, 0, len(r.Labels))
	row.LabelValues = make([]string, 0, len(r.Labels))
	for _, l := range r.Labels {
		row.LabelNames = append(row.LabelNames, l.Name)
		row.LabelValues = append(row.LabelValues, l.Value)
	}

	row.ParameterNames = make([]string, 0, len(r.Parameters))
	row.ParameterValues = make([]string, 0, len(r.Parameters))
	for _, p := range r.Parameters {
		if p.Mode == model.ParameterModeHidden {
			continue
		}
		value := p.Value
		if p.Mode == model.ParameterModeMasked {
			value = "******"
		}
		row.ParameterNames = append(row.ParameterNames, p.Name)
		row.ParameterValues = append(row.ParameterValues, value)
	}

	row.Steps, row.FailedSteps, row.Attachments = countSteps(&r.Executable)

	if r.Stop > r.Start {
		row.DurationMS = uint64(r.Stop - r.Start) //nolint:gosec // G115: checked positive
	}

	return row
}

// containerRow is one row of the test_containers table, in column order.
type containerRow struct {
	UUID           string
	Name           string
	Children       []string
	BeforeNames    []string
	BeforeStatuses []string
	AfterNames     []string
	AfterStatuses  []string
	Start          time.Time
	Stop           time.Time
	Worker         string
}

func (r containerRow) values() []any {
	return []any{
		r.UUID, r.Name, r.Children,
		r.BeforeNames, r.BeforeStatuses, r.AfterNames, r.AfterStatuses,
		r.Start, r.Stop, r.Worker,
	}
}

func fixtureColumns(fixtures []*model.FixtureResult) (names, statuses []string) {
	names = make([]string, 0, len(fixtures))
	statuses = make([]string, 0, len(fixtures))
	for _, f := range fixtures {
		names = append(names, f.Name)
		statuses = append(statuses, string(f.Status))
	}
	return names, statuses
}

func newContainerRow(c *model.TestResultContainer, worker string) containerRow {
	row := containerRow{
		UUID:     c.UUID,
		Name:     c.Name,
		Children: append([]string{}, c.Children...),
		Start:    millis(c.Start),
		Stop:     millis(c.Stop),
		Worker:   worker,
	}
	row.BeforeNames, row.BeforeStatuses = fixtureColumns(c.Befores)
	row.AfterNames, row.AfterStatuses = fixtureColumns(c.Afters)
	return row
}
