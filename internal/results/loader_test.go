package results

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/ethpandaops/allure-runtime/pkg/model"
	"github.com/ethpandaops/allure-runtime/pkg/writer"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFixtureDir(t *testing.T) string {
	t.Helper()

	logger, _ := test.NewNullLogger()
	dir := t.TempDir()
	w, err := writer.NewFileSystemWriter(logger, dir)
	require.NoError(t, err)

	for i, uuid := range []string{"b", "a", "c"} {
		r := &model.TestResult{
			UUID:       uuid,
			Executable: model.Executable{Name: "test " + uuid, Status: model.StatusPassed, Start: int64(100 - i)},
		}
		r.Normalize()
		require.NoError(t, w.WriteResult(r))
	}

	c := &model.TestResultContainer{UUID: "g", Children: []string{"a", "b"}}
	c.Normalize()
	require.NoError(t, w.WriteGroup(c))
	require.NoError(t, w.WriteAttachment("x-attachment.txt", []byte("hello")))

	env := model.NewEnvironmentInfo()
	env.Set("os", "linux")
	env.Set("base url", "http://host:8080/a=b")
	require.NoError(t, w.WriteEnvironmentInfo(env))
	require.NoError(t, w.WriteCategories([]model.Category{{Name: "Infra"}}))

	return dir
}

func TestLoader_Load(t *testing.T) {
	t.Parallel()

	dir := writeFixtureDir(t)
	logger, _ := test.NewNullLogger()

	set, err := NewLoader(logger, 2).Load(context.Background(), dir)
	require.NoError(t, err)

	require.Len(t, set.Results, 3)
	assert.Equal(t, "c", set.Results[0].UUID)
	assert.Equal(t, "a", set.Results[1].UUID)
	assert.Equal(t, "b", set.Results[2].UUID)

	require.Len(t, set.Containers, 1)
	assert.Equal(t, []string{"a", "b"}, set.Containers[0].Children)

	assert.Equal(t, map[string]int64{"x-attachment.txt": 5}, set.Attachments)

	require.NotNil(t, set.Environment)
	assert.Equal(t, []string{"os", "base url"}, set.Environment.Keys())
	value, ok := set.Environment.Get("base url")
	require.True(t, ok)
	assert.Equal(t, "http://host:8080/a=b", value)

	require.Len(t, set.Categories, 1)
	assert.Equal(t, "Infra", set.Categories[0].Name)

	r, ok := set.Result("a")
	require.True(t, ok)
	assert.Equal(t, "test a", r.Name)
}

func TestLoader_Errors(t *testing.T) {
	t.Parallel()

	logger, _ := test.NewNullLogger()
	loader := NewLoader(logger, 0)

	_, err := loader.Load(context.Background(), filepath.Join(t.TempDir(), "missing"))
	require.Error(t, err)

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "x"+writer.ResultSuffix), []byte("{"), 0o600))
	_, err = loader.Load(context.Background(), dir)
	require.ErrorContains(t, err, "failed to decode")
}

func TestSet_Replay(t *testing.T) {
	t.Parallel()

	dir := writeFixtureDir(t)
	logger, _ := test.NewNullLogger()

	set, err := NewLoader(logger, 4).Load(context.Background(), dir)
	require.NoError(t, err)

	mem := writer.NewInMemoryWriter()
	require.NoError(t, set.Replay(dir, mem))

	assert.Len(t, mem.Results(), 3)
	assert.Len(t, mem.Groups(), 1)
	content, ok := mem.Attachment("x-attachment.txt")
	require.True(t, ok)
	assert.Equal(t, "hello", string(content))
	assert.Equal(t, 2, mem.Environment().Len())
	assert.Len(t, mem.Categories(), 1)
}
