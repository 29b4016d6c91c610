package runtime

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ethpandaops/allure-runtime/pkg/message"
	"github.com/ethpandaops/allure-runtime/pkg/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplyRuntimeMessages_WrittenTestIsDroppedOnce(t *testing.T) {
	t.Parallel()

	rt, w, hook := newTestRuntime(t)

	id := rt.StartTest(model.TestResult{Executable: model.Executable{Name: "T"}}, nil)
	rt.StopTest(id)
	require.NoError(t, rt.WriteTest(id))

	msgs := []message.Message{message.NewLabel(model.LabelFeature, "x")}
	require.NoError(t, rt.ApplyRuntimeMessages(id, msgs))
	require.NoError(t, rt.ApplyRuntimeMessages(id, msgs))
	require.NoError(t, rt.ApplyRuntimeMessages(id, []message.Message{message.NewAttachmentContent("log", "text/plain", []byte("late"))}))

	assert.Equal(t, 1, countLogs(hook, "Dropping runtime message"))
	assert.Equal(t, "identifier already written", hook.LastEntry().Data["reason"])

	result, _ := w.Result(id)
	assert.Empty(t, result.LabelValues(model.LabelFeature))
}

func TestApplyRuntimeMessages_StoppedRecordIsNotChanged(t *testing.T) {
	t.Parallel()

	rt, w, hook := newTestRuntime(t)

	id := rt.StartTest(model.TestResult{Executable: model.Executable{Name: "t"}}, nil)
	rt.StopTest(id)

	require.NoError(t, rt.ApplyRuntimeMessages(id, []message.Message{
		message.NewDisplayName("renamed after stop"),
		message.NewLabel(model.LabelFeature, "late"),
		message.NewDescription("late description"),
		message.NewAttachmentContent("log", "text/plain", []byte("late")),
	}))

	assert.Equal(t, 1, countLogs(hook, "Dropping runtime message"))
	for _, entry := range hook.AllEntries() {
		if entry.Message == "Dropping runtime message" {
			assert.Equal(t, "record already stopped", entry.Data["reason"])
		}
	}

	require.NoError(t, rt.WriteTest(id))
	result, ok := w.Result(id)
	require.True(t, ok)
	assert.Equal(t, "t", result.Name)
	assert.Empty(t, result.LabelValues(model.LabelFeature))
	assert.Empty(t, result.Description)
	assert.Empty(t, result.Attachments)
}

func TestApplyRuntimeMessages_StoppedFixtureIsNotChanged(t *testing.T) {
	t.Parallel()

	rt, w, _ := newTestRuntime(t)

	scope := rt.StartScope()
	fixture := rt.StartFixture(scope, Before, model.FixtureResult{Executable: model.Executable{Name: "setup"}})
	rt.StopFixture(fixture)
	require.NoError(t, rt.ApplyRuntimeMessages(fixture, []message.Message{
		message.NewLabel(model.LabelFeature, "late"),
	}))

	id := rt.StartTest(model.TestResult{Executable: model.Executable{Name: "T"}}, []string{scope})
	rt.StopTest(id)
	require.NoError(t, rt.WriteTest(id))

	result, _ := w.Result(id)
	assert.Empty(t, result.LabelValues(model.LabelFeature))
}

func TestApplyRuntimeMessages_Metadata(t *testing.T) {
	t.Parallel()

	rt, w, _ := newTestRuntime(t)

	id := rt.StartTest(model.TestResult{
		TitlePath:  []string{"A", "B", "C", "D"},
		Executable: model.Executable{Name: "T"},
	}, nil)

	require.NoError(t, rt.ApplyRuntimeMessages(id, []message.Message{
		message.NewLabel(model.LabelFeature, "auth"),
		message.NewLabel(model.LabelTag, "smoke"),
		message.NewLabel(model.LabelTag, "fast"),
		message.NewLabel(model.LabelSubSuite, "manual"),
		message.NewLink("https://example.com/doc", "doc", model.LinkTypeLink),
		message.NewParameter(model.Parameter{Name: "user", Value: "bob"}),
		message.NewDescription("**markdown**"),
		message.NewDescriptionHTML("<b>html</b>"),
		message.NewDisplayName("renamed"),
	}))
	rt.StopTest(id)
	require.NoError(t, rt.WriteTest(id))

	result, _ := w.Result(id)
	assert.Equal(t, "renamed", result.Name)
	assert.Equal(t, "**markdown**", result.Description)
	assert.Equal(t, "<b>html</b>", result.DescriptionHTML)
	assert.Equal(t, []string{"smoke", "fast"}, result.LabelValues(model.LabelTag))
	assert.Equal(t, []string{"manual"}, result.LabelValues(model.LabelSubSuite))
	assert.Empty(t, result.LabelValues(model.LabelParentSuite))
	assert.Empty(t, result.LabelValues(model.LabelSuite))
	assert.Equal(t, []model.Link{{URL: "https://example.com/doc", Name: "doc", Type: model.LinkTypeLink}}, result.Links)
	assert.Equal(t, []model.Parameter{{Name: "user", Value: "bob"}}, result.Parameters)
	assert.Equal(t, "A > B > C > D > T", result.FullName)
}

func TestApplyRuntimeMessages_ExplicitIdentifiers(t *testing.T) {
	t.Parallel()

	rt, w, _ := newTestRuntime(t)

	id := rt.StartTest(model.TestResult{Executable: model.Executable{Name: "T"}}, nil)
	require.NoError(t, rt.ApplyRuntimeMessages(id, []message.Message{
		message.NewHistoryID("h-1"),
		message.NewTestCaseID("c-1"),
	}))
	rt.StopTest(id)
	require.NoError(t, rt.WriteTest(id))

	result, _ := w.Result(id)
	assert.Equal(t, "h-1", result.HistoryID)
	assert.Equal(t, "c-1", result.TestCaseID)
}

func TestApplyRuntimeMessages_Steps(t *testing.T) {
	t.Parallel()

	rt, w, _ := newTestRuntime(t)

	id := rt.StartTest(model.TestResult{Executable: model.Executable{Name: "T"}}, nil)
	require.NoError(t, rt.ApplyRuntimeMessages(id, []message.Message{
		message.NewStepStart("open page", 0),
		message.NewStepMetadata("open login page", model.Parameter{Name: "url", Value: "/login"}),
		message.NewStepStart("click", 0),
		message.NewStepStop(model.StatusFailed, &model.StatusDetails{Message: "button missing"}, 0),
		message.NewStepStop(model.StatusPassed, nil, 0),
		message.NewStepStop(model.StatusPassed, nil, 0),
	}))

	_, open := rt.CurrentStep(id)
	assert.False(t, open)

	rt.StopTest(id)
	require.NoError(t, rt.WriteTest(id))

	result, _ := w.Result(id)
	require.Len(t, result.Steps, 1)
	page := result.Steps[0]
	assert.Equal(t, "open login page", page.Name)
	assert.Equal(t, []model.Parameter{{Name: "url", Value: "/login"}}, page.Parameters)
	assert.Equal(t, model.StatusFailed, page.Status)
	require.Len(t, page.Steps, 1)
	assert.Equal(t, "button missing", page.Steps[0].StatusDetails.Message)
	assert.Equal(t, model.StatusFailed, result.Status)
}

func TestApplyRuntimeMessages_FixtureMetadataReachesTests(t *testing.T) {
	t.Parallel()

	rt, w, _ := newTestRuntime(t)

	scope := rt.StartScope()
	fixture := rt.StartFixture(scope, Before, model.FixtureResult{Executable: model.Executable{Name: "beforeAll"}})
	require.NoError(t, rt.ApplyRuntimeMessages(fixture, []message.Message{
		message.NewLabel(model.LabelEpic, "payments"),
		message.NewLink("https://example.com", "", ""),
		message.NewParameter(model.Parameter{Name: "region", Value: "eu"}),
		message.NewDescription("fixture description"),
	}))
	rt.StopFixture(fixture)

	first := rt.StartTest(model.TestResult{Executable: model.Executable{Name: "first"}}, []string{scope})
	second := rt.StartTest(model.TestResult{Executable: model.Executable{Name: "second"}}, []string{scope})
	for _, id := range []string{first, second} {
		rt.StopTest(id)
		require.NoError(t, rt.WriteTest(id))
	}
	require.NoError(t, rt.WriteScope(scope))

	for _, id := range []string{first, second} {
		result, ok := w.Result(id)
		require.True(t, ok)
		assert.Equal(t, []string{"payments"}, result.LabelValues(model.LabelEpic))
		assert.Len(t, result.Links, 1)
		assert.Equal(t, []model.Parameter{{Name: "region", Value: "eu"}}, result.Parameters)
	}
	assert.Equal(t, "fixture description", w.Groups()[0].Befores[0].Description)
}

func TestApplyRuntimeMessages_Attachments(t *testing.T) {
	t.Parallel()

	rt, w, _ := newTestRuntime(t)

	path := filepath.Join(t.TempDir(), "trace.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"ok":true}`), 0o600))

	id := rt.StartTest(model.TestResult{Executable: model.Executable{Name: "T"}}, nil)
	step := rt.StartStep(id, model.StepResult{Executable: model.Executable{Name: "request"}})
	require.NoError(t, rt.ApplyRuntimeMessages(id, []message.Message{
		message.NewAttachmentContent("response", "text/plain", []byte("200 OK")),
	}))
	rt.StopStep(step)
	require.NoError(t, rt.ApplyRuntimeMessages(id, []message.Message{
		message.NewAttachmentPath("trace", "", path),
	}))
	rt.StopTest(id)
	require.NoError(t, rt.WriteTest(id))

	result, _ := w.Result(id)
	require.Len(t, result.Steps[0].Attachments, 1)
	stepAttachment := result.Steps[0].Attachments[0]
	assert.Equal(t, "response", stepAttachment.Name)
	assert.Equal(t, "text/plain", stepAttachment.Type)
	assert.True(t, strings.HasSuffix(stepAttachment.Source, AttachmentSuffix+".txt"))

	content, ok := w.Attachment(stepAttachment.Source)
	require.True(t, ok)
	assert.Equal(t, "200 OK", string(content))

	require.Len(t, result.Attachments, 1)
	testAttachment := result.Attachments[0]
	assert.Equal(t, "application/json", testAttachment.Type)
	assert.True(t, strings.HasSuffix(testAttachment.Source, ".json"))

	content, ok = w.Attachment(testAttachment.Source)
	require.True(t, ok)
	assert.JSONEq(t, `{"ok":true}`, string(content))
}

func TestApplyRuntimeMessages_Malformed(t *testing.T) {
	t.Parallel()

	rt, _, hook := newTestRuntime(t)

	id := rt.StartTest(model.TestResult{Executable: model.Executable{Name: "T"}}, nil)
	require.NoError(t, rt.ApplyRuntimeMessages(id, []message.Message{
		{Type: message.TypeLabel},
		{Type: message.TypeAttachmentContent},
		{Type: "unknown"},
		message.NewStepStop(model.StatusPassed, nil, 0),
	}))

	assert.Equal(t, 3, countLogs(hook, "Ignoring malformed runtime message"))
	assert.Equal(t, 1, countLogs(hook, "No open step to stop"))
}

func TestAttachmentSource(t *testing.T) {
	t.Parallel()

	assert.True(t, strings.HasSuffix(AttachmentSource(message.Attachment{FileExtension: "png"}), "-attachment.png"))
	assert.True(t, strings.HasSuffix(AttachmentSource(message.Attachment{Path: "/tmp/out.log"}), "-attachment.log"))
	assert.True(t, strings.HasSuffix(AttachmentSource(message.Attachment{ContentType: "application/json"}), "-attachment.json"))
	assert.True(t, strings.HasSuffix(AttachmentSource(message.Attachment{}), "-attachment"))
}
