package runtime

import (
	"slices"

	"github.com/ethpandaops/allure-runtime/pkg/identity"
	"github.com/ethpandaops/allure-runtime/pkg/model"
	"github.com/sirupsen/logrus"
)

// executable is a live test or fixture together with its open step stack.
type executable struct {
	id      string
	exec    *model.Executable
	stack   *[]string
	owned   *[]string
	stopped bool
	test    *testEntry
	fixture *fixtureEntry
}

// lookup resolves id to the live test or fixture owning it. A step id
// resolves to the test or fixture the step belongs to.
func (r *Runtime) lookup(id string) (executable, bool) {
	if step, ok := r.steps[id]; ok {
		id = step.root
	}
	if t, ok := r.tests[id]; ok {
		return executable{
			id: id, exec: &t.result.Executable, stack: &t.stack, owned: &t.owned,
			stopped: t.stopped, test: t,
		}, true
	}
	if f, ok := r.fixtures[id]; ok {
		return executable{
			id: id, exec: &f.result.Executable, stack: &f.stack, owned: &f.owned,
			stopped: f.stopped, fixture: f,
		}, true
	}
	return executable{}, false
}

// current returns the innermost open step of root, or the root itself.
func (r *Runtime) current(root executable) *model.Executable {
	stack := *root.stack
	if len(stack) == 0 {
		return root.exec
	}
	return &r.steps[stack[len(stack)-1]].result.Executable
}

// StartStep opens a step. parentID is a test, a fixture or an open step.
// Given a test or fixture, the step nests under its innermost open step.
// The new step becomes the innermost open step of its test or fixture. It
// returns "" when the parent is not live.
func (r *Runtime) StartStep(parentID string, seed model.StepResult) string {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.startStep(parentID, seed)
}

func (r *Runtime) startStep(parentID string, seed model.StepResult) string {
	root, ok := r.lookup(parentID)
	if !ok {
		r.missing("start_step", parentID)
		return ""
	}
	if root.stopped {
		r.log.WithField("uuid", parentID).Warn("Cannot start a step under a stopped record")
		return ""
	}

	parent := r.current(root)
	if step, isStep := r.steps[parentID]; isStep {
		if step.stopped {
			r.log.WithField("uuid", parentID).Warn("Cannot start a step under a stopped step")
			return ""
		}
		parent = &step.result.Executable
	}

	id := identity.NewUUID()
	result := seed
	result.Parameters = append([]model.Parameter(nil), seed.Parameters...)
	result.Stage = model.StageRunning
	result.Status = ""
	result.StatusDetails = nil
	if result.Start == 0 {
		result.Start = r.now()
	}

	parent.Steps = append(parent.Steps, &result)
	r.steps[id] = &stepEntry{result: &result, root: root.id}
	*root.stack = append(*root.stack, id)
	*root.owned = append(*root.owned, id)

	return id
}

// UpdateStep applies fn to an open step.
func (r *Runtime) UpdateStep(id string, fn func(*model.StepResult)) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.steps[id]
	if !ok {
		r.missing("update_step", id)
		return
	}
	if entry.stopped {
		r.log.WithField("uuid", id).Warn("Step was already stopped, ignoring update")
		return
	}
	fn(entry.result)
}

// StopStep closes an open step. Steps opened after it and still open are
// force-closed first. The step's status is the worst of its own and its
// failed or broken children.
func (r *Runtime) StopStep(id string, opts ...StopOption) {
	cfg := r.stopConfig(opts)

	r.mu.Lock()
	defer r.mu.Unlock()

	r.stopStep(id, cfg)
}

func (r *Runtime) stopStep(id string, cfg stopConfig) {
	entry, ok := r.steps[id]
	if !ok {
		r.missing("stop_step", id)
		return
	}
	if entry.stopped {
		r.log.WithField("uuid", id).Warn("Step was already stopped")
		return
	}
	root, ok := r.lookup(entry.root)
	if !ok {
		r.missing("stop_step", entry.root)
		return
	}

	stack := *root.stack
	pos := slices.Index(stack, id)
	if pos < 0 {
		r.log.WithField("uuid", id).Warn("Step is not on the open step stack")
		return
	}
	if pos < len(stack)-1 {
		r.log.WithFields(logrus.Fields{
			"uuid":  id,
			"above": len(stack) - 1 - pos,
		}).Warn("Step closed out of order, closing the steps above it")
		stack = r.closeStack(stack, pos+1, stopConfig{stop: cfg.stop})
	}

	r.finish(&entry.result.Executable, cfg)
	entry.stopped = true
	*root.stack = stack[:pos]
}

// CurrentStep returns the innermost open step of a test or fixture.
func (r *Runtime) CurrentStep(rootID string) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	root, ok := r.lookup(rootID)
	if !ok || len(*root.stack) == 0 {
		return "", false
	}
	stack := *root.stack
	return stack[len(stack)-1], true
}
