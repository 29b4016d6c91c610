package runtime

import (
	"fmt"

	"github.com/ethpandaops/allure-runtime/pkg/identity"
	"github.com/ethpandaops/allure-runtime/pkg/model"
	"github.com/sirupsen/logrus"
)

// FixtureKind says whether a fixture runs before or after the tests of its
// scope.
type FixtureKind string

// Fixture kinds.
const (
	Before FixtureKind = "before"
	After  FixtureKind = "after"
)

// StartScope creates a scope and registers it as a child of every live
// scope in parents. It returns the scope identifier.
func (r *Runtime) StartScope(parents ...string) string {
	id := identity.NewUUID()

	r.mu.Lock()
	defer r.mu.Unlock()

	scope := &scopeEntry{
		container: &model.TestResultContainer{UUID: id, Start: r.now()},
	}
	r.scopes[id] = scope
	scope.parents = r.attach(id, parents)

	return id
}

// attach appends child to the children of every live scope in chain and
// returns how many scopes it was attached to.
func (r *Runtime) attach(child string, chain []string) int {
	attached := 0
	for _, scopeID := range chain {
		scope, ok := r.scopes[scopeID]
		if !ok {
			r.missing("attach", scopeID)
			continue
		}
		scope.container.Children = append(scope.container.Children, child)
		attached++
	}
	return attached
}

// UpdateScope applies fn to a live scope.
func (r *Runtime) UpdateScope(id string, fn func(*model.TestResultContainer)) {
	r.mu.Lock()
	defer r.mu.Unlock()

	scope, ok := r.scopes[id]
	if !ok {
		r.missing("update_scope", id)
		return
	}
	fn(scope.container)
}

// WriteScope releases a scope. Children that are still live are logged as
// abandoned and open fixtures are force-stopped. A scope without fixtures is
// released without reaching the writer. Writing a released scope is a no-op.
func (r *Runtime) WriteScope(id string) error {
	r.mu.Lock()

	scope, ok := r.scopes[id]
	if !ok {
		r.missing("write_scope", id)
		r.mu.Unlock()
		return nil
	}

	log := r.log.WithField("scope", id)
	children := make([]string, 0, len(scope.container.Children))
	for _, child := range scope.container.Children {
		if t, live := r.tests[child]; live {
			log.WithFields(logrus.Fields{"uuid": child, "name": t.result.Name}).Warn("Scope written before its test, test abandoned")
			children = append(children, child)
			continue
		}
		if nested, live := r.scopes[child]; live {
			log.WithField("uuid", child).Warn("Scope written before its nested scope, nested scope abandoned")
			nested.parents--
			continue
		}
		if nested, wasScope := r.finished[child]; wasScope {
			nested.parents--
			if nested.parents <= 0 {
				delete(r.finished, child)
			}
			if !nested.materialized {
				continue
			}
		}
		children = append(children, child)
	}

	for _, fixtureID := range scope.fixtures {
		fixture, live := r.fixtures[fixtureID]
		if !live {
			continue
		}
		if !fixture.stopped {
			log.WithFields(logrus.Fields{"uuid": fixtureID, "name": fixture.result.Name}).Warn("Force-stopping open fixture")
			r.stopFixture(fixture, stopConfig{
				status:  model.StatusBroken,
				details: &model.StatusDetails{Message: "fixture was not stopped"},
				stage:   model.StageInterrupted,
			})
		}
		r.releaseOwned(fixture.owned)
		delete(r.fixtures, fixtureID)
		r.release(fixtureID)
	}

	delete(r.scopes, id)
	r.release(id)

	container := scope.container
	materialized := len(container.Befores) > 0 || len(container.Afters) > 0
	if scope.parents > 0 {
		r.finished[id] = &finishedScope{materialized: materialized, parents: scope.parents}
	}
	if !materialized {
		r.mu.Unlock()
		log.Debug("Scope has no fixtures, not writing")
		return nil
	}

	container.Children = children
	container.Stop = r.now()
	container.Normalize()
	r.mu.Unlock()

	if err := r.writer.WriteGroup(container); err != nil {
		return fmt.Errorf("failed to write scope %s: %w", id, err)
	}
	return nil
}
