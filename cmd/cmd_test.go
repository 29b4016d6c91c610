package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ethpandaops/allure-runtime/pkg/writer"
	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testJournal = `{"op":"start_scope","ref":"s"}
{"op":"start_fixture","ref":"f","parent":"s","kind":"before","fixture":{"name":"seed database"}}
{"op":"stop_fixture","ref":"f"}
{"op":"start_test","ref":"t1","scopes":["s"],"test":{"name":"creates user","titlePath":["users"]}}
{"op":"stop_test","ref":"t1"}
{"op":"write_test","ref":"t1"}
{"op":"start_test","ref":"t2","scopes":["s"],"test":{"name":"rejects duplicate","titlePath":["users"]}}
{"op":"stop_test","ref":"t2","stop":{"error":{"message":"expected status 409, got 200"}}}
{"op":"write_test","ref":"t2"}
{"op":"write_scope","ref":"s"}
`

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()

	buf := &bytes.Buffer{}
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()

	return buf.String(), err
}

// The commands share package level flags and environment, so these tests do
// not run in parallel.
func TestCommands_ReplayValidateSummary(t *testing.T) {
	color.NoColor = true

	dir := t.TempDir()
	t.Setenv("ALLURE_RESULTS_DIR", filepath.Join(dir, "results"))
	t.Setenv("ALLURE_CONFIG", filepath.Join(dir, "missing.yaml"))
	t.Setenv("ALLURE_TRANSPORT", "none")
	t.Setenv("CLICKHOUSE_ENABLED", "false")
	t.Setenv("ALLURE_METRICS_FILE", filepath.Join(dir, "allure.prom"))

	journal := filepath.Join(dir, "journal.jsonl")
	require.NoError(t, os.WriteFile(journal, []byte(testJournal), 0o600))

	out, err := execute(t, "replay", journal)
	require.NoError(t, err)
	assert.Contains(t, out, "Total Tests")

	entries, err := os.ReadDir(filepath.Join(dir, "results"))
	require.NoError(t, err)
	var results, containers int
	for _, e := range entries {
		switch {
		case strings.HasSuffix(e.Name(), writer.ResultSuffix):
			results++
		case strings.HasSuffix(e.Name(), writer.ContainerSuffix):
			containers++
		}
	}
	assert.Equal(t, 2, results)
	assert.Equal(t, 1, containers)

	metrics, err := os.ReadFile(filepath.Join(dir, "allure.prom"))
	require.NoError(t, err)
	assert.Contains(t, string(metrics), `allure_tests_total{status="failed"} 1`)

	out, err = execute(t, "validate")
	require.NoError(t, err)
	assert.Contains(t, out, "3 files valid")

	out, err = execute(t, "summary", "--fail")
	require.Error(t, err)
	assert.Contains(t, out, "rejects duplicate")
	assert.Contains(t, out, "expected status 409")
}

func TestCommands_ShowConfig(t *testing.T) {
	t.Setenv("ALLURE_CONFIG", filepath.Join(t.TempDir(), "missing.yaml"))
	t.Setenv("CLICKHOUSE_PASSWORD", "hunter2")

	out, err := execute(t, "show-config")
	require.NoError(t, err)
	assert.Contains(t, out, "ClickHouse Password:    ********")
	assert.NotContains(t, out, "hunter2")
}
