package writer

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/ethpandaops/allure-runtime/pkg/model"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

func newTestFSWriter(t *testing.T) *FileSystemWriter {
	t.Helper()

	w, err := NewFileSystemWriter(logrus.New(), filepath.Join(t.TempDir(), "allure-results"))
	require.NoError(t, err)
	return w
}

func TestFileSystemWriter_WriteResultOnce(t *testing.T) {
	t.Parallel()

	w := newTestFSWriter(t)
	result := &model.TestResult{UUID: "abc", Executable: model.Executable{Name: "works", Status: model.StatusPassed}}
	result.Normalize()

	require.NoError(t, w.WriteResult(result))
	require.ErrorIs(t, w.WriteResult(result), ErrAlreadyWritten)

	payload, err := os.ReadFile(filepath.Join(w.Dir(), "abc-result.json"))
	require.NoError(t, err)

	var decoded model.TestResult
	require.NoError(t, json.Unmarshal(payload, &decoded))
	require.Equal(t, "works", decoded.Name)
	require.Equal(t, model.StatusPassed, decoded.Status)
}

func TestFileSystemWriter_WriteGroup(t *testing.T) {
	t.Parallel()

	w := newTestFSWriter(t)
	container := &model.TestResultContainer{UUID: "scope", Children: []string{"t1"}}
	container.Normalize()

	require.NoError(t, w.WriteGroup(container))
	_, err := os.Stat(filepath.Join(w.Dir(), "scope-container.json"))
	require.NoError(t, err)
}

func TestFileSystemWriter_Attachments(t *testing.T) {
	t.Parallel()

	w := newTestFSWriter(t)

	require.NoError(t, w.WriteAttachment("a-attachment.txt", []byte("hello")))
	content, err := os.ReadFile(filepath.Join(w.Dir(), "a-attachment.txt"))
	require.NoError(t, err)
	require.Equal(t, "hello", string(content))

	src := filepath.Join(t.TempDir(), "screenshot.png")
	require.NoError(t, os.WriteFile(src, []byte{0x89, 0x50}, 0o600))
	require.NoError(t, w.WriteAttachmentFromPath("b-attachment.png", src))
	content, err = os.ReadFile(filepath.Join(w.Dir(), "b-attachment.png"))
	require.NoError(t, err)
	require.Equal(t, []byte{0x89, 0x50}, content)

	require.Error(t, w.WriteAttachment("../escape.txt", []byte("x")))
	require.Error(t, w.WriteAttachment("", []byte("x")))
	require.ErrorIs(t, w.WriteAttachment("a-attachment.txt", []byte("again")), ErrAlreadyWritten)
}

func TestFileSystemWriter_FailedCopyCanBeRetried(t *testing.T) {
	t.Parallel()

	w := newTestFSWriter(t)

	// Reading a directory fails after the target file was created.
	require.Error(t, w.WriteAttachmentFromPath("c-attachment.txt", t.TempDir()))
	_, err := os.Stat(filepath.Join(w.Dir(), "c-attachment.txt"))
	require.ErrorIs(t, err, os.ErrNotExist)

	src := filepath.Join(t.TempDir(), "log.txt")
	require.NoError(t, os.WriteFile(src, []byte("retry"), 0o600))
	require.NoError(t, w.WriteAttachmentFromPath("c-attachment.txt", src))

	content, err := os.ReadFile(filepath.Join(w.Dir(), "c-attachment.txt"))
	require.NoError(t, err)
	require.Equal(t, "retry", string(content))
}

func TestFileSystemWriter_EnvironmentAndCategoriesLastWriterWins(t *testing.T) {
	t.Parallel()

	w := newTestFSWriter(t)

	first := model.NewEnvironmentInfo()
	first.Set("os", "linux")
	require.NoError(t, w.WriteEnvironmentInfo(first))

	second := model.NewEnvironmentInfo()
	second.Set("os", "darwin")
	second.Set("node", "20")
	require.NoError(t, w.WriteEnvironmentInfo(second))

	content, err := os.ReadFile(filepath.Join(w.Dir(), EnvironmentFileName))
	require.NoError(t, err)
	require.Equal(t, "os = darwin\nnode = 20\n", string(content))

	require.NoError(t, w.WriteCategories([]model.Category{{Name: "Timeouts", MessageRegex: ".*timeout.*"}}))
	content, err = os.ReadFile(filepath.Join(w.Dir(), CategoriesFileName))
	require.NoError(t, err)
	require.JSONEq(t, `[{"name":"Timeouts","messageRegex":".*timeout.*"}]`, string(content))

	entries, err := os.ReadDir(w.Dir())
	require.NoError(t, err)
	require.Len(t, entries, 2, "temporary files must be cleaned up")
}
