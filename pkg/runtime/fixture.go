package runtime

import (
	"github.com/ethpandaops/allure-runtime/pkg/identity"
	"github.com/ethpandaops/allure-runtime/pkg/model"
)

// StartFixture creates a running fixture and appends it to the befores or
// afters of scopeID. It returns "" when the scope is not live.
func (r *Runtime) StartFixture(scopeID string, kind FixtureKind, seed model.FixtureResult) string {
	id := identity.NewUUID()

	result := seed
	result.Parameters = append([]model.Parameter(nil), seed.Parameters...)
	result.Stage = model.StageRunning
	result.Status = ""
	result.StatusDetails = nil

	r.mu.Lock()
	defer r.mu.Unlock()

	scope, ok := r.scopes[scopeID]
	if !ok {
		r.missing("start_fixture", scopeID)
		return ""
	}
	if result.Start == 0 {
		result.Start = r.now()
	}

	switch kind {
	case After:
		scope.container.Afters = append(scope.container.Afters, &result)
	default:
		scope.container.Befores = append(scope.container.Befores, &result)
	}
	scope.fixtures = append(scope.fixtures, id)
	r.fixtures[id] = &fixtureEntry{result: &result, scope: scopeID}

	return id
}

// UpdateFixture applies fn to a live fixture that was not stopped yet.
func (r *Runtime) UpdateFixture(id string, fn func(*model.FixtureResult)) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.fixtures[id]
	if !ok {
		r.missing("update_fixture", id)
		return
	}
	if entry.stopped {
		r.log.WithField("uuid", id).Warn("Fixture was already stopped, ignoring update")
		return
	}
	fn(entry.result)
}

// StopFixture closes a fixture, force-closing any steps left open. The
// fixture stays in its scope until the scope is written.
func (r *Runtime) StopFixture(id string, opts ...StopOption) {
	cfg := r.stopConfig(opts)

	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.fixtures[id]
	if !ok {
		r.missing("stop_fixture", id)
		return
	}
	if entry.stopped {
		r.log.WithField("uuid", id).Warn("Fixture was already stopped")
		return
	}
	r.stopFixture(entry, cfg)
}

func (r *Runtime) stopFixture(entry *fixtureEntry, cfg stopConfig) {
	entry.stack = r.closeStack(entry.stack, 0, cfg)
	r.finish(&entry.result.Executable, cfg)
	entry.stopped = true
}
