// Package replay drives the reporter runtime from a JSON-lines journal of
// adapter operations, so frameworks outside this process can report through
// the command line.
package replay

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ethpandaops/allure-runtime/pkg/message"
	"github.com/ethpandaops/allure-runtime/pkg/model"
	"github.com/ethpandaops/allure-runtime/pkg/runtime"
)

// ErrInvalidOp is returned for operations missing a required field.
var ErrInvalidOp = errors.New("invalid operation")

// Kind names a journal operation.
type Kind string

// Operation kinds.
const (
	OpStartScope   Kind = "start_scope"
	OpStartTest    Kind = "start_test"
	OpStartFixture Kind = "start_fixture"
	OpStartStep    Kind = "start_step"
	OpMessages     Kind = "messages"
	OpAttachment   Kind = "attachment"
	OpStopTest     Kind = "stop_test"
	OpStopFixture  Kind = "stop_fixture"
	OpStopStep     Kind = "stop_step"
	OpWriteTest    Kind = "write_test"
	OpWriteScope   Kind = "write_scope"
	OpEnvironment  Kind = "environment"
	OpCategories   Kind = "categories"
)

// Op is one line of a journal. Ref names the record the operation creates
// or targets; Parent, Parents and Scopes name other records by their refs.
// Refs that were never bound are passed to the runtime unchanged.
type Op struct {
	Op          Kind                   `json:"op"`
	Ref         string                 `json:"ref,omitempty"`
	Parent      string                 `json:"parent,omitempty"`
	Parents     []string               `json:"parents,omitempty"`
	Scopes      []string               `json:"scopes,omitempty"`
	Kind        runtime.FixtureKind    `json:"kind,omitempty"`
	Test        *model.TestResult      `json:"test,omitempty"`
	Fixture     *model.FixtureResult   `json:"fixture,omitempty"`
	Step        *model.StepResult      `json:"step,omitempty"`
	Messages    []message.Message      `json:"messages,omitempty"`
	Attachment  *message.Attachment    `json:"attachment,omitempty"`
	Stop        *Stop                  `json:"stop,omitempty"`
	Environment *model.EnvironmentInfo `json:"environment,omitempty"`
	Categories  []model.Category       `json:"categories,omitempty"`
}

// Stop describes how a test, fixture or step ended.
type Stop struct {
	Status           model.Status         `json:"status,omitempty"`
	StatusDetails    *model.StatusDetails `json:"statusDetails,omitempty"`
	Error            *Error               `json:"error,omitempty"`
	Stage            model.Stage          `json:"stage,omitempty"`
	Time             int64                `json:"time,omitempty"`
	NoImplementation bool                 `json:"noImplementation,omitempty"`
}

// options converts s into runtime stop options.
func (s *Stop) options() []runtime.StopOption {
	if s == nil {
		return nil
	}

	var opts []runtime.StopOption
	if s.Error != nil {
		opts = append(opts, runtime.WithError(s.Error.classified()))
	}
	if s.Status != "" {
		opts = append(opts, runtime.WithStatus(s.Status, s.StatusDetails))
	}
	if s.Stage != "" {
		opts = append(opts, runtime.WithStage(s.Stage))
	}
	if s.Time > 0 {
		opts = append(opts, runtime.WithStopTime(time.UnixMilli(s.Time)))
	}
	if s.NoImplementation {
		opts = append(opts, runtime.WithNoImplementation())
	}
	return opts
}

// Error is an error raised by the reported framework. A Type naming an
// assertion makes it a failure; otherwise the message decides.
type Error struct {
	Type    string `json:"type,omitempty"`
	Message string `json:"message"`
	Trace   string `json:"trace,omitempty"`
}

func (e *Error) Error() string {
	return e.Message
}

// classified returns e in the form the classifier expects: errors whose type
// names an assertion are marked as such, others are judged by their message.
func (e *Error) classified() error {
	if strings.Contains(strings.ToLower(e.Type), "assert") {
		return assertionError{err: e}
	}
	return e
}

type assertionError struct {
	err *Error
}

func (a assertionError) Error() string { return a.err.Error() }

func (a assertionError) Format(f fmt.State, verb rune) { a.err.Format(f, verb) }

func (assertionError) Assertion() bool { return true }

// Format prints the trace for the %+v verb.
func (e *Error) Format(f fmt.State, verb rune) {
	if verb == 'v' && f.Flag('+') && e.Trace != "" {
		fmt.Fprint(f, e.Trace)
		return
	}
	fmt.Fprint(f, e.Message)
}

func (o Op) validate() error {
	switch o.Op {
	case OpStartScope, OpStartTest, OpStartFixture, OpStartStep,
		OpMessages, OpStopTest, OpStopFixture, OpStopStep, OpWriteTest, OpWriteScope:
		if o.Ref == "" {
			return fmt.Errorf("%s requires a ref: %w", o.Op, ErrInvalidOp)
		}
	case OpAttachment:
		if o.Ref == "" || o.Attachment == nil {
			return fmt.Errorf("%s requires a ref and an attachment: %w", o.Op, ErrInvalidOp)
		}
	case OpEnvironment, OpCategories:
	default:
		return fmt.Errorf("unknown op %q: %w", o.Op, ErrInvalidOp)
	}

	if o.Op == OpStartFixture && o.Kind != runtime.Before && o.Kind != runtime.After {
		return fmt.Errorf("%s requires kind before or after: %w", o.Op, ErrInvalidOp)
	}
	return nil
}
