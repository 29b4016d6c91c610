package schema

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/ethpandaops/allure-runtime/pkg/model"
	"github.com/ethpandaops/allure-runtime/pkg/writer"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validResult() *model.TestResult {
	r := &model.TestResult{
		UUID:   "5f1c",
		Labels: []model.Label{{Name: "suite", Value: "api"}},
		Links:  []model.Link{{URL: "https://example.com/1", Type: "issue"}},
		Executable: model.Executable{
			Name:   "works",
			Status: model.StatusPassed,
			Stage:  model.StageFinished,
			Steps: []*model.StepResult{{Executable: model.Executable{
				Name:        "step",
				Status:      model.StatusPassed,
				Attachments: []model.Attachment{{Name: "log", Source: "a-attachment.txt", Type: "text/plain"}},
			}}},
			Parameters: []model.Parameter{{Name: "p", Value: "1", Mode: model.ParameterModeMasked}},
			Start:      1,
			Stop:       2,
		},
	}
	r.Normalize()
	return r
}

func TestValidateResult(t *testing.T) {
	t.Parallel()

	data, err := json.Marshal(validResult())
	require.NoError(t, err)
	require.NoError(t, ValidateResult(data))

	tests := []struct {
		name   string
		mutate func(r *model.TestResult)
	}{
		{"unknown status", func(r *model.TestResult) { r.Status = "exploded" }},
		{"unknown stage", func(r *model.TestResult) { r.Stage = "paused" }},
		{"empty uuid", func(r *model.TestResult) { r.UUID = "" }},
		{"nested step status", func(r *model.TestResult) { r.Steps[0].Status = "bad" }},
		{"attachment path", func(r *model.TestResult) { r.Steps[0].Attachments[0].Source = "../x.txt" }},
		{"parameter mode", func(r *model.TestResult) { r.Parameters[0].Mode = "secret" }},
		{"empty link url", func(r *model.TestResult) { r.Links[0].URL = "" }},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			r := validResult()
			tt.mutate(r)
			data, err := json.Marshal(r)
			require.NoError(t, err)
			assert.Error(t, ValidateResult(data))
		})
	}
}

func TestValidateResult_NullCollections(t *testing.T) {
	t.Parallel()

	err := ValidateResult([]byte(`{"uuid":"x","labels":null,"links":[],"steps":[],"attachments":[],"parameters":[]}`))
	require.Error(t, err)

	err = ValidateResult([]byte(`{"uuid":`))
	require.ErrorContains(t, err, "invalid JSON")
}

func TestValidateContainerAndCategories(t *testing.T) {
	t.Parallel()

	c := &model.TestResultContainer{UUID: "g", Children: []string{"a"}}
	c.Normalize()
	data, err := json.Marshal(c)
	require.NoError(t, err)
	require.NoError(t, ValidateContainer(data))
	require.Error(t, ValidateContainer([]byte(`{"uuid":"g"}`)))

	require.NoError(t, ValidateCategories([]byte(`[{"name":"Infra","matchedStatuses":["broken"]}]`)))
	require.Error(t, ValidateCategories([]byte(`[{"name":"Infra","matchedStatuses":["weird"]}]`)))
}

func TestValidateDir(t *testing.T) {
	t.Parallel()

	logger, _ := test.NewNullLogger()
	dir := t.TempDir()
	w, err := writer.NewFileSystemWriter(logger, dir)
	require.NoError(t, err)

	require.NoError(t, w.WriteResult(validResult()))
	require.NoError(t, w.WriteCategories([]model.Category{{Name: "Infra"}}))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bad"+writer.ResultSuffix), []byte(`{"uuid":""}`), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0o600))

	checked, err := ValidateDir(dir)
	assert.Equal(t, 3, checked)
	require.Error(t, err)

	var fileErr *FileError
	require.True(t, errors.As(err, &fileErr))
	assert.Equal(t, "bad"+writer.ResultSuffix, fileErr.File)
}
