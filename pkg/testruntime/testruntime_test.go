package testruntime

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/ethpandaops/allure-runtime/pkg/message"
	"github.com/ethpandaops/allure-runtime/pkg/model"
	"github.com/ethpandaops/allure-runtime/pkg/runtime"
	"github.com/ethpandaops/allure-runtime/pkg/status"
	"github.com/ethpandaops/allure-runtime/pkg/transport"
	"github.com/ethpandaops/allure-runtime/pkg/writer"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	mu   sync.Mutex
	msgs []message.Message
}

func (r *recorder) send(_ context.Context, msgs ...message.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.msgs = append(r.msgs, msgs...)
	return nil
}

func (r *recorder) types() []message.Type {
	r.mu.Lock()
	defer r.mu.Unlock()

	types := make([]message.Type, 0, len(r.msgs))
	for _, m := range r.msgs {
		types = append(types, m.Type)
	}
	return types
}

func TestHelpersProduceMessages(t *testing.T) {
	t.Parallel()

	rec := &recorder{}
	ctx := WithRuntime(context.Background(), NewMessageRuntime(rec.send))

	require.NoError(t, Epic(ctx, "billing"))
	require.NoError(t, Tags(ctx, "a", "b"))
	require.NoError(t, Issue(ctx, "BUG-1", ""))
	require.NoError(t, Parameter(ctx, "token", "secret", Mode(model.ParameterModeMasked), Excluded()))
	require.NoError(t, Description(ctx, "text"))
	require.NoError(t, DisplayName(ctx, "name"))
	require.NoError(t, AllureID(ctx, "42"))

	assert.Equal(t, []message.Type{
		message.TypeLabel,
		message.TypeLabel,
		message.TypeLabel,
		message.TypeLink,
		message.TypeParameter,
		message.TypeDescription,
		message.TypeDisplayName,
		message.TypeLabel,
	}, rec.types())

	assert.Equal(t, model.Parameter{Name: "token", Value: "secret", Excluded: true, Mode: model.ParameterModeMasked}, *rec.msgs[4].Parameter)
	assert.Equal(t, model.LinkTypeIssue, rec.msgs[3].Link.Type)
	assert.Equal(t, model.LabelAllureID, rec.msgs[7].Label.Name)
}

func TestLabelShortcuts(t *testing.T) {
	t.Parallel()

	tests := []struct {
		label string
		set   func(context.Context, string) error
	}{
		{model.LabelEpic, Epic},
		{model.LabelFeature, Feature},
		{model.LabelStory, Story},
		{model.LabelOwner, Owner},
		{model.LabelLayer, Layer},
		{model.LabelTag, Tag},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.label, func(t *testing.T) {
			t.Parallel()

			rec := &recorder{}
			ctx := WithRuntime(context.Background(), NewMessageRuntime(rec.send))

			require.NoError(t, tt.set(ctx, "value"))
			require.Len(t, rec.msgs, 1)
			assert.Equal(t, model.Label{Name: tt.label, Value: "value"}, *rec.msgs[0].Label)
		})
	}
}

func TestStep(t *testing.T) {
	t.Parallel()

	rec := &recorder{}
	ctx := WithRuntime(context.Background(), NewMessageRuntime(rec.send))

	require.NoError(t, Step(ctx, "ok", func(context.Context) error { return nil }))

	err := Step(ctx, "assert", func(context.Context) error {
		return &status.AssertionError{Message: "expected 1"}
	})
	require.Error(t, err)

	assert.Panics(t, func() {
		_ = Step(ctx, "panics", func(context.Context) error { panic("boom") })
	})

	require.Len(t, rec.msgs, 6)
	assert.Equal(t, "ok", rec.msgs[0].Step.Name)
	assert.Equal(t, model.StatusPassed, rec.msgs[1].Step.Status)
	assert.Equal(t, model.StatusFailed, rec.msgs[3].Step.Status)
	assert.Equal(t, "expected 1", rec.msgs[3].Step.StatusDetails.Message)
	assert.Equal(t, model.StatusBroken, rec.msgs[5].Step.Status)
	assert.Equal(t, "panic: boom", rec.msgs[5].Step.StatusDetails.Message)
}

func TestInProcess(t *testing.T) {
	t.Parallel()

	logger, _ := test.NewNullLogger()
	w := writer.NewInMemoryWriter()
	rt := runtime.New(logger, w)

	id := rt.StartTest(model.TestResult{
		TitlePath:  []string{"pkg", "Suite"},
		Executable: model.Executable{Name: "T"},
	}, nil)
	ctx := WithRuntime(context.Background(), NewMessageRuntime(InProcess(rt, Fixed(id))))

	require.NoError(t, Feature(ctx, "search"))
	require.NoError(t, SubSuite(ctx, "manual"))
	err := Step(ctx, "outer", func(ctx context.Context) error {
		require.NoError(t, Attachment(ctx, "log", []byte("hello"), "text/plain"))
		return Step(ctx, "inner", func(context.Context) error {
			return errors.New("timeout")
		})
	})
	require.Error(t, err)

	rt.StopTest(id, runtime.WithError(err))
	require.NoError(t, rt.WriteTest(id))

	result, ok := w.Result(id)
	require.True(t, ok)
	assert.Equal(t, model.StatusBroken, result.Status)
	assert.Equal(t, []string{"search"}, result.LabelValues(model.LabelFeature))
	assert.Equal(t, []string{"manual"}, result.LabelValues(model.LabelSubSuite))
	assert.Empty(t, result.LabelValues(model.LabelParentSuite))

	require.Len(t, result.Steps, 1)
	outer := result.Steps[0]
	assert.Equal(t, model.StatusBroken, outer.Status)
	require.Len(t, outer.Attachments, 1)
	require.Len(t, outer.Steps, 1)
	assert.Equal(t, "timeout", outer.Steps[0].StatusDetails.Message)
}

func TestInProcess_NoCurrentTest(t *testing.T) {
	t.Parallel()

	logger, _ := test.NewNullLogger()
	rt := runtime.New(logger, writer.NewInMemoryWriter())
	send := InProcess(rt, Fixed(""))

	require.ErrorIs(t, send(context.Background(), message.NewLabel("a", "b")), ErrNoCurrentTest)
	require.NoError(t, send(context.Background()))
}

func TestRemote(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	pub := transport.NewPublisher(transport.NewStreamSink(&buf), "worker-3")
	ctx := WithRuntime(context.Background(), NewMessageRuntime(Remote(pub, Fixed("test-1"))))

	require.NoError(t, Owner(ctx, "qa"))

	env, err := transport.NewStreamSource(&buf).Receive(context.Background())
	require.NoError(t, err)
	assert.Equal(t, transport.KindMessages, env.Kind)
	assert.Equal(t, "worker-3", env.Worker)
	assert.Equal(t, "test-1", env.Target)
	assert.Equal(t, "qa", env.Messages[0].Label.Value)
}

func TestNoopLogsOnce(t *testing.T) {
	t.Parallel()

	logger, hook := test.NewNullLogger()
	ctx := WithRuntime(context.Background(), Noop(logger))

	require.NoError(t, Label(ctx, "a", "b"))
	require.NoError(t, Step(ctx, "s", func(context.Context) error { return nil }))

	assert.Len(t, hook.AllEntries(), 1)
}

func TestHolder(t *testing.T) {
	t.Parallel()

	rec := &recorder{}
	holder := NewHolder(nil)
	_, isNoop := holder.Get().(*noopRuntime)
	assert.True(t, isNoop)

	prev := holder.Set(NewMessageRuntime(rec.send))
	assert.Nil(t, prev)

	require.NoError(t, Story(holder.Context(context.Background()), "signup"))
	assert.Equal(t, []message.Type{message.TypeLabel}, rec.types())
}
