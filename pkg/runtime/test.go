package runtime

import (
	"fmt"
	"strings"

	"github.com/ethpandaops/allure-runtime/pkg/identity"
	"github.com/ethpandaops/allure-runtime/pkg/labels"
	"github.com/ethpandaops/allure-runtime/pkg/model"
	"github.com/sirupsen/logrus"
)

// StartTest creates a running test from seed and registers it as a child of
// every scope in scopeChain.
//
// Inline metadata tags are moved from the name into labels, the full name is
// derived from the title path when the seed has none, and the suite labels
// are derived from the title path unless the seed carries any explicitly.
// Global labels are added when no label of the same name is present.
func (r *Runtime) StartTest(seed model.TestResult, scopeChain []string) string {
	id := identity.NewUUID()

	result := seed
	result.UUID = id
	result.Labels = append([]model.Label(nil), seed.Labels...)
	result.Links = append([]model.Link(nil), seed.Links...)
	result.TitlePath = append([]string(nil), seed.TitlePath...)
	result.Parameters = append([]model.Parameter(nil), seed.Parameters...)
	result.Stage = model.StageRunning
	result.Status = ""
	result.StatusDetails = nil

	name, inline := labels.ExtractMetadata(result.Name)
	result.Name = name
	result.Labels = labels.FilterBlank(append(result.Labels, inline...))

	if strings.TrimSpace(result.FullName) == "" {
		result.FullName = identity.FullName(result.TitlePath, result.Name)
	}

	entry := &testEntry{
		result:          &result,
		scopes:          append([]string(nil), scopeChain...),
		explicitSuite:   labels.HasSuiteLabels(result.Labels),
		explicitHistory: result.HistoryID != "",
		explicitCase:    result.TestCaseID != "",
	}
	if !entry.explicitSuite {
		result.Labels = append(result.Labels, labels.SuiteLabels(result.TitlePath)...)
	}
	for _, global := range r.globalLabels {
		if !labels.Has(result.Labels, global.Name) {
			result.Labels = append(result.Labels, global)
		}
	}
	for i, link := range result.Links {
		result.Links[i] = r.links.Apply(link)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if result.Start == 0 {
		result.Start = r.now()
	}
	r.tests[id] = entry
	r.attach(id, scopeChain)

	return id
}

// UpdateTest applies fn to a live test that was not stopped yet.
func (r *Runtime) UpdateTest(id string, fn func(*model.TestResult)) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.tests[id]
	if !ok {
		r.missing("update_test", id)
		return
	}
	if entry.stopped {
		r.log.WithField("uuid", id).Warn("Test was already stopped, ignoring update")
		return
	}
	fn(entry.result)
}

// StopTest closes a test. Steps left open are force-closed first and the
// history and test case identifiers are computed unless they were set
// explicitly. Stopping a test twice is logged and ignored.
func (r *Runtime) StopTest(id string, opts ...StopOption) {
	cfg := r.stopConfig(opts)

	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.tests[id]
	if !ok {
		r.missing("stop_test", id)
		return
	}
	if entry.stopped {
		r.log.WithField("uuid", id).Warn("Test was already stopped")
		return
	}
	r.stopTest(entry, cfg)
}

func (r *Runtime) stopTest(entry *testEntry, cfg stopConfig) {
	entry.stack = r.closeStack(entry.stack, 0, cfg)
	r.finish(&entry.result.Executable, cfg)
	r.computeIDs(entry)
	entry.stopped = true
}

func (r *Runtime) computeIDs(entry *testEntry) {
	result := entry.result
	if !entry.explicitCase {
		result.TestCaseID = identity.TestCaseID(result.FullName, result.Labels)
	}
	if !entry.explicitHistory {
		result.HistoryID = identity.HistoryID(result.TestCaseID, result.Parameters)
	}
}

// WriteTest releases a test and hands it to the writer. A test that was not
// stopped is force-stopped as broken and interrupted. Labels, links and
// parameters that fixtures of its scopes reported are merged in. Writing a
// released test is a no-op.
func (r *Runtime) WriteTest(id string) error {
	r.mu.Lock()

	entry, ok := r.tests[id]
	if !ok {
		r.missing("write_test", id)
		r.mu.Unlock()
		return nil
	}
	if !entry.stopped {
		r.log.WithFields(logrus.Fields{"uuid": id, "name": entry.result.Name}).Warn("Writing a test that was not stopped")
		r.stopTest(entry, stopConfig{
			status:  model.StatusBroken,
			details: &model.StatusDetails{Message: "test was not stopped"},
			stage:   model.StageInterrupted,
		})
	}

	for _, scopeID := range entry.scopes {
		scope, live := r.scopes[scopeID]
		if !live {
			continue
		}
		for _, l := range scope.labels {
			r.addLabel(entry, l)
		}
		entry.result.Links = append(entry.result.Links, scope.links...)
		entry.result.Parameters = append(entry.result.Parameters, scope.params...)
	}
	r.computeIDs(entry)

	r.releaseOwned(entry.owned)
	delete(r.tests, id)
	r.release(id)

	result := entry.result
	result.Normalize()
	r.mu.Unlock()

	if err := r.writer.WriteResult(result); err != nil {
		return fmt.Errorf("failed to write test %s: %w", id, err)
	}
	return nil
}

// addLabel appends l to a test. The first explicit suite label replaces all
// derived suite labels.
func (r *Runtime) addLabel(entry *testEntry, l model.Label) {
	if strings.TrimSpace(l.Name) == "" || strings.TrimSpace(l.Value) == "" {
		return
	}
	if labels.IsSuiteLabel(l.Name) && !entry.explicitSuite {
		entry.result.Labels = labels.StripSuiteLabels(entry.result.Labels)
		entry.explicitSuite = true
	}
	entry.result.Labels = append(entry.result.Labels, l)
}

func (r *Runtime) releaseOwned(owned []string) {
	for _, stepID := range owned {
		delete(r.steps, stepID)
		r.release(stepID)
	}
}
