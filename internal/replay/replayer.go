package replay

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/ethpandaops/allure-runtime/pkg/model"
	"github.com/ethpandaops/allure-runtime/pkg/runtime"
	"github.com/sirupsen/logrus"
)

// Stats counts what a replay did.
type Stats struct {
	Applied int
	Skipped int
	Failed  int
}

// Replayer applies journal operations to a runtime.
type Replayer struct {
	log  logrus.FieldLogger
	rt   *runtime.Runtime
	refs map[string]string
}

// NewReplayer creates a Replayer driving rt.
func NewReplayer(log logrus.FieldLogger, rt *runtime.Runtime) *Replayer {
	return &Replayer{
		log:  log.WithField("component", "replayer"),
		rt:   rt,
		refs: make(map[string]string),
	}
}

// Resolve returns the runtime identifier bound to ref, or ref itself.
func (p *Replayer) Resolve(ref string) string {
	if id, ok := p.refs[ref]; ok {
		return id
	}
	return ref
}

func (p *Replayer) resolveAll(refs []string) []string {
	ids := make([]string, 0, len(refs))
	for _, ref := range refs {
		ids = append(ids, p.Resolve(ref))
	}
	return ids
}

func (p *Replayer) bind(ref, id string) error {
	if id == "" {
		return fmt.Errorf("runtime refused to start %q: %w", ref, ErrInvalidOp)
	}
	p.refs[ref] = id
	return nil
}

// Apply executes one operation. Operations that fail validation return an
// error wrapping ErrInvalidOp; write failures are returned as is.
func (p *Replayer) Apply(op Op) error {
	if err := op.validate(); err != nil {
		return err
	}

	if op.Ref != "" && isStart(op.Op) {
		if _, bound := p.refs[op.Ref]; bound {
			return fmt.Errorf("ref %q is already bound: %w", op.Ref, ErrInvalidOp)
		}
	}

	switch op.Op {
	case OpStartScope:
		return p.bind(op.Ref, p.rt.StartScope(p.resolveAll(op.Parents)...))

	case OpStartTest:
		var seed model.TestResult
		if op.Test != nil {
			seed = *op.Test
		}
		return p.bind(op.Ref, p.rt.StartTest(seed, p.resolveAll(op.Scopes)))

	case OpStartFixture:
		var seed model.FixtureResult
		if op.Fixture != nil {
			seed = *op.Fixture
		}
		return p.bind(op.Ref, p.rt.StartFixture(p.Resolve(op.Parent), op.Kind, seed))

	case OpStartStep:
		var seed model.StepResult
		if op.Step != nil {
			seed = *op.Step
		}
		return p.bind(op.Ref, p.rt.StartStep(p.Resolve(op.Parent), seed))

	case OpMessages:
		return p.rt.ApplyRuntimeMessages(p.Resolve(op.Ref), op.Messages)

	case OpAttachment:
		return p.rt.WriteAttachment(p.Resolve(op.Ref), *op.Attachment)

	case OpStopTest:
		p.rt.StopTest(p.Resolve(op.Ref), op.Stop.options()...)

	case OpStopFixture:
		p.rt.StopFixture(p.Resolve(op.Ref), op.Stop.options()...)

	case OpStopStep:
		p.rt.StopStep(p.Resolve(op.Ref), op.Stop.options()...)

	case OpWriteTest:
		return p.rt.WriteTest(p.Resolve(op.Ref))

	case OpWriteScope:
		return p.rt.WriteScope(p.Resolve(op.Ref))

	case OpEnvironment:
		return p.rt.WriteEnvironmentInfo(op.Environment)

	case OpCategories:
		return p.rt.WriteCategoriesDefinitions(op.Categories)
	}

	return nil
}

func isStart(k Kind) bool {
	return k == OpStartScope || k == OpStartTest || k == OpStartFixture || k == OpStartStep
}

// Run applies every operation read from r, one JSON object per line. Invalid
// operations are logged and skipped; write failures are collected and
// returned together once the journal is exhausted. A line that is not JSON
// stops the replay.
func (p *Replayer) Run(ctx context.Context, r io.Reader) (Stats, error) {
	var (
		stats  Stats
		errs   []error
		reader = bufio.NewReader(r)
		line   int
	)

	for {
		if err := ctx.Err(); err != nil {
			return stats, err
		}

		raw, readErr := reader.ReadBytes('\n')
		if len(raw) > 0 {
			line++
		}

		if trimmed := bytes.TrimSpace(raw); len(trimmed) > 0 {
			var op Op
			if err := json.Unmarshal(trimmed, &op); err != nil {
				return stats, fmt.Errorf("line %d: %w", line, err)
			}

			err := p.Apply(op)
			switch {
			case err == nil:
				stats.Applied++
			case errors.Is(err, ErrInvalidOp):
				stats.Skipped++
				p.log.WithError(err).WithField("line", line).Warn("Skipping journal operation")
			default:
				stats.Failed++
				errs = append(errs, fmt.Errorf("line %d: %s: %w", line, op.Op, err))
			}
		}

		if readErr != nil {
			if errors.Is(readErr, io.EOF) {
				break
			}
			return stats, fmt.Errorf("failed to read journal: %w", readErr)
		}
	}

	p.log.WithFields(logrus.Fields{
		"applied": stats.Applied,
		"skipped": stats.Skipped,
		"failed":  stats.Failed,
	}).Info("Journal replayed")

	return stats, errors.Join(errs...)
}
