package replay

import (
	"context"
	"strings"
	"testing"

	"github.com/ethpandaops/allure-runtime/pkg/model"
	"github.com/ethpandaops/allure-runtime/pkg/runtime"
	"github.com/ethpandaops/allure-runtime/pkg/writer"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const journal = `{"op":"start_scope","ref":"s"}
{"op":"start_fixture","ref":"f","parent":"s","kind":"before","fixture":{"name":"setup"}}
{"op":"stop_fixture","ref":"f"}
{"op":"start_test","ref":"t","scopes":["s"],"test":{"name":"login","titlePath":["api","auth"]}}
{"op":"start_step","ref":"st","parent":"t","step":{"name":"open"}}

{"op":"stop_step","ref":"st","stop":{"error":{"type":"AssertionError","message":"wanted 1","trace":"at line 3"}}}
{"op":"messages","ref":"t","messages":[{"type":"label","label":{"name":"owner","value":"bob"}}]}
{"op":"stop_test","ref":"t"}
{"op":"write_test","ref":"t"}
{"op":"write_scope","ref":"s"}
{"op":"bogus"}
{"op":"environment","environment":{"os":"linux"}}`

func newReplayer(t *testing.T) (*Replayer, *writer.InMemoryWriter, *test.Hook) {
	t.Helper()

	logger, hook := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)
	mem := writer.NewInMemoryWriter()

	return NewReplayer(logger, runtime.New(logger, mem)), mem, hook
}

func TestReplayer_Run(t *testing.T) {
	t.Parallel()

	p, mem, _ := newReplayer(t)

	stats, err := p.Run(context.Background(), strings.NewReader(journal))
	require.NoError(t, err)
	assert.Equal(t, Stats{Applied: 11, Skipped: 1}, stats)

	results := mem.Results()
	require.Len(t, results, 1)
	result := results[0]
	assert.Equal(t, "login", result.Name)
	assert.Equal(t, p.Resolve("t"), result.UUID)
	assert.Equal(t, model.StatusFailed, result.Status)
	assert.Equal(t, []string{"bob"}, result.LabelValues("owner"))
	assert.Equal(t, []string{"auth"}, result.LabelValues(model.LabelSuite))

	require.Len(t, result.Steps, 1)
	step := result.Steps[0]
	assert.Equal(t, model.StatusFailed, step.Status)
	require.NotNil(t, step.StatusDetails)
	assert.Equal(t, "wanted 1", step.StatusDetails.Message)
	assert.Equal(t, "at line 3", step.StatusDetails.Trace)

	groups := mem.Groups()
	require.Len(t, groups, 1)
	assert.Equal(t, []string{result.UUID}, groups[0].Children)
	require.Len(t, groups[0].Befores, 1)
	assert.Equal(t, "setup", groups[0].Befores[0].Name)
	assert.Equal(t, model.StatusPassed, groups[0].Befores[0].Status)

	value, ok := mem.Environment().Get("os")
	require.True(t, ok)
	assert.Equal(t, "linux", value)
}

func TestReplayer_ErrorClassification(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		stop     *Stop
		expected model.Status
	}{
		{"typed assertion", &Stop{Error: &Error{Type: "AssertionError", Message: "boom"}}, model.StatusFailed},
		{"assertion by message", &Stop{Error: &Error{Message: "expected 1 to equal 2"}}, model.StatusFailed},
		{"unexpected error", &Stop{Error: &Error{Type: "TypeError", Message: "x is undefined"}}, model.StatusBroken},
		{"explicit status wins", &Stop{Status: model.StatusSkipped, Error: &Error{Message: "boom"}}, model.StatusSkipped},
		{"no stop details", nil, model.StatusPassed},
		{"no implementation", &Stop{NoImplementation: true}, ""},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			p, mem, _ := newReplayer(t)
			require.NoError(t, p.Apply(Op{Op: OpStartTest, Ref: "t", Test: &model.TestResult{Executable: model.Executable{Name: tt.name}}}))
			require.NoError(t, p.Apply(Op{Op: OpStopTest, Ref: "t", Stop: tt.stop}))
			require.NoError(t, p.Apply(Op{Op: OpWriteTest, Ref: "t"}))

			result, ok := mem.Result(p.Resolve("t"))
			require.True(t, ok)
			assert.Equal(t, tt.expected, result.Status)
		})
	}
}

func TestReplayer_InvalidOps(t *testing.T) {
	t.Parallel()

	p, _, hook := newReplayer(t)

	require.ErrorIs(t, p.Apply(Op{Op: OpStartTest}), ErrInvalidOp)
	require.ErrorIs(t, p.Apply(Op{Op: OpStartFixture, Ref: "f", Parent: "s"}), ErrInvalidOp)
	require.ErrorIs(t, p.Apply(Op{Op: OpAttachment, Ref: "t"}), ErrInvalidOp)
	require.ErrorIs(t, p.Apply(Op{Op: "explode"}), ErrInvalidOp)

	require.NoError(t, p.Apply(Op{Op: OpStartScope, Ref: "s"}))
	require.ErrorIs(t, p.Apply(Op{Op: OpStartScope, Ref: "s"}), ErrInvalidOp)

	err := p.Apply(Op{Op: OpStartFixture, Ref: "f", Parent: "missing", Kind: runtime.After})
	require.ErrorIs(t, err, ErrInvalidOp)

	stats, err := p.Run(context.Background(), strings.NewReader("{\"op\":\"start_scope\",\"ref\":\"x\"}\nnot json\n"))
	require.ErrorContains(t, err, "line 2")
	assert.Equal(t, 1, stats.Applied)

	assert.NotEmpty(t, hook.AllEntries())
}

func TestReplayer_Attachment(t *testing.T) {
	t.Parallel()

	p, mem, _ := newReplayer(t)

	const ops = `{"op":"start_test","ref":"t","test":{"name":"with attachment"}}
{"op":"attachment","ref":"t","attachment":{"name":"log","contentType":"text/plain","content":"aGVsbG8="}}
{"op":"stop_test","ref":"t"}
{"op":"write_test","ref":"t"}
`

	stats, err := p.Run(context.Background(), strings.NewReader(ops))
	require.NoError(t, err)
	assert.Equal(t, 4, stats.Applied)

	result, ok := mem.Result(p.Resolve("t"))
	require.True(t, ok)
	require.Len(t, result.Attachments, 1)

	content, ok := mem.Attachment(result.Attachments[0].Source)
	require.True(t, ok)
	assert.Equal(t, "hello", string(content))
}
