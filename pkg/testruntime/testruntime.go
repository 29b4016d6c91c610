// Package testruntime is the API test code uses to enrich the result of the
// test it runs in: labels, links, parameters, attachments and steps.
//
// Every call becomes a runtime message. A Sender decides where messages go:
// straight into a reporter runtime in the same process, or over a transport
// to the process that owns the runtime.
package testruntime

import (
	"context"
	"errors"
	"time"

	"github.com/ethpandaops/allure-runtime/pkg/message"
	"github.com/ethpandaops/allure-runtime/pkg/model"
	"github.com/ethpandaops/allure-runtime/pkg/status"
)

// ErrNoCurrentTest is returned when no test or fixture is running in the
// calling context.
var ErrNoCurrentTest = errors.New("no test or fixture is currently running")

// TestRuntime is the capability set available to test code.
type TestRuntime interface {
	Labels(ctx context.Context, labels ...model.Label) error
	Links(ctx context.Context, links ...model.Link) error
	Parameter(ctx context.Context, name, value string, opts ...ParameterOption) error
	Description(ctx context.Context, markdown string) error
	DescriptionHTML(ctx context.Context, html string) error
	DisplayName(ctx context.Context, name string) error
	HistoryID(ctx context.Context, id string) error
	TestCaseID(ctx context.Context, id string) error
	Attachment(ctx context.Context, name string, content []byte, contentType string) error
	AttachmentFromPath(ctx context.Context, name, path, contentType string) error
	StartStep(ctx context.Context, name string) error
	StopStep(ctx context.Context, s model.Status, details *model.StatusDetails) error
	StepDisplayName(ctx context.Context, name string) error
	StepParameter(ctx context.Context, name, value string, opts ...ParameterOption) error
	Classify(err error) (model.Status, *model.StatusDetails)
}

// Sender delivers runtime messages for the executable currently running in
// ctx.
type Sender func(ctx context.Context, msgs ...message.Message) error

// ParameterOption configures a parameter.
type ParameterOption func(*model.Parameter)

// Excluded leaves the parameter out of the history identifier.
func Excluded() ParameterOption {
	return func(p *model.Parameter) {
		p.Excluded = true
	}
}

// Mode sets how the parameter value is displayed.
func Mode(mode model.ParameterMode) ParameterOption {
	return func(p *model.Parameter) {
		p.Mode = mode
	}
}

// Option configures a message runtime.
type Option func(*messageRuntime)

// WithClassifier sets the classifier used for step errors.
func WithClassifier(c status.Classifier) Option {
	return func(m *messageRuntime) {
		if c != nil {
			m.classifier = c
		}
	}
}

// WithClock overrides the time source used for step timestamps.
func WithClock(clock func() time.Time) Option {
	return func(m *messageRuntime) {
		if clock != nil {
			m.clock = clock
		}
	}
}

type messageRuntime struct {
	send       Sender
	classifier status.Classifier
	clock      func() time.Time
}

// NewMessageRuntime returns a TestRuntime that turns every call into runtime
// messages handed to send.
func NewMessageRuntime(send Sender, opts ...Option) TestRuntime {
	m := &messageRuntime{
		send:       send,
		classifier: status.Default,
		clock:      time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func parameter(name, value string, opts []ParameterOption) model.Parameter {
	p := model.Parameter{Name: name, Value: value}
	for _, opt := range opts {
		opt(&p)
	}
	return p
}

func (m *messageRuntime) Labels(ctx context.Context, labels ...model.Label) error {
	msgs := make([]message.Message, 0, len(labels))
	for _, l := range labels {
		msgs = append(msgs, message.NewLabel(l.Name, l.Value))
	}
	return m.send(ctx, msgs...)
}

func (m *messageRuntime) Links(ctx context.Context, links ...model.Link) error {
	msgs := make([]message.Message, 0, len(links))
	for _, l := range links {
		msgs = append(msgs, message.NewLink(l.URL, l.Name, l.Type))
	}
	return m.send(ctx, msgs...)
}

func (m *messageRuntime) Parameter(ctx context.Context, name, value string, opts ...ParameterOption) error {
	return m.send(ctx, message.NewParameter(parameter(name, value, opts)))
}

func (m *messageRuntime) Description(ctx context.Context, markdown string) error {
	return m.send(ctx, message.NewDescription(markdown))
}

func (m *messageRuntime) DescriptionHTML(ctx context.Context, html string) error {
	return m.send(ctx, message.NewDescriptionHTML(html))
}

func (m *messageRuntime) DisplayName(ctx context.Context, name string) error {
	return m.send(ctx, message.NewDisplayName(name))
}

func (m *messageRuntime) HistoryID(ctx context.Context, id string) error {
	return m.send(ctx, message.NewHistoryID(id))
}

func (m *messageRuntime) TestCaseID(ctx context.Context, id string) error {
	return m.send(ctx, message.NewTestCaseID(id))
}

func (m *messageRuntime) Attachment(ctx context.Context, name string, content []byte, contentType string) error {
	return m.send(ctx, message.NewAttachmentContent(name, contentType, content))
}

func (m *messageRuntime) AttachmentFromPath(ctx context.Context, name, path, contentType string) error {
	return m.send(ctx, message.NewAttachmentPath(name, contentType, path))
}

func (m *messageRuntime) StartStep(ctx context.Context, name string) error {
	return m.send(ctx, message.NewStepStart(name, model.Timestamp(m.clock())))
}

func (m *messageRuntime) StopStep(ctx context.Context, s model.Status, details *model.StatusDetails) error {
	return m.send(ctx, message.NewStepStop(s, details, model.Timestamp(m.clock())))
}

func (m *messageRuntime) StepDisplayName(ctx context.Context, name string) error {
	return m.send(ctx, message.NewStepMetadata(name))
}

func (m *messageRuntime) StepParameter(ctx context.Context, name, value string, opts ...ParameterOption) error {
	return m.send(ctx, message.NewStepMetadata("", parameter(name, value, opts)))
}

func (m *messageRuntime) Classify(err error) (model.Status, *model.StatusDetails) {
	return m.classifier.Classify(err)
}
