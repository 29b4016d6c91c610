package labels

import (
	"testing"

	"github.com/ethpandaops/allure-runtime/pkg/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSuiteLabels(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		titlePath []string
		expected  []model.Label
	}{
		{
			name:      "four segments",
			titlePath: []string{"A", "B", "C", "D"},
			expected: []model.Label{
				{Name: model.LabelParentSuite, Value: "A"},
				{Name: model.LabelSuite, Value: "B"},
				{Name: model.LabelSubSuite, Value: "C > D"},
			},
		},
		{
			name:      "single segment",
			titlePath: []string{"A"},
			expected:  []model.Label{{Name: model.LabelParentSuite, Value: "A"}},
		},
		{
			name:      "blank segments dropped",
			titlePath: []string{"", "A", "  ", "B"},
			expected: []model.Label{
				{Name: model.LabelParentSuite, Value: "A"},
				{Name: model.LabelSuite, Value: "B"},
			},
		},
		{
			name:      "empty path",
			titlePath: nil,
			expected:  []model.Label{},
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.expected, SuiteLabels(tt.titlePath))
		})
	}
}

func TestStripSuiteLabels(t *testing.T) {
	t.Parallel()

	in := []model.Label{
		{Name: model.LabelParentSuite, Value: "A"},
		{Name: model.LabelFeature, Value: "f"},
		{Name: model.LabelSubSuite, Value: "C"},
	}
	out := StripSuiteLabels(in)
	assert.Equal(t, []model.Label{{Name: model.LabelFeature, Value: "f"}}, out)
	assert.Len(t, in, 3, "input must not be modified")
	assert.True(t, HasSuiteLabels(in))
	assert.False(t, HasSuiteLabels(out))
}

func TestFilterBlank(t *testing.T) {
	t.Parallel()

	out := FilterBlank([]model.Label{
		{Name: "tag", Value: "smoke"},
		{Name: "", Value: "x"},
		{Name: "tag", Value: "  "},
	})
	assert.Equal(t, []model.Label{{Name: "tag", Value: "smoke"}}, out)
}

func TestExtractMetadata(t *testing.T) {
	t.Parallel()

	clean, got := ExtractMetadata("logs in @allure.label.feature:auth with sso @allure.id:1004 allure.label.tag=smoke")
	assert.Equal(t, "logs in with sso", clean)
	assert.Equal(t, []model.Label{
		{Name: model.LabelFeature, Value: "auth"},
		{Name: model.LabelAllureID, Value: "1004"},
		{Name: model.LabelTag, Value: "smoke"},
	}, got)

	clean, got = ExtractMetadata("plain title")
	assert.Equal(t, "plain title", clean)
	assert.Empty(t, got)

	// an email-like token is not metadata
	clean, got = ExtractMetadata("mail to user@allure.id.example")
	assert.Equal(t, "mail to user@allure.id.example", clean)
	assert.Empty(t, got)
}

func TestEnvironmentLabels(t *testing.T) {
	t.Parallel()

	got := EnvironmentLabels([]string{
		"PATH=/bin",
		"ALLURE_LABEL_EPIC=payments",
		"ALLURE_LABEL_ALLURE_ID=7",
		"ALLURE_LABEL_OWNER=",
		"ALLURE_LABEL_=x",
	})
	assert.Equal(t, []model.Label{
		{Name: model.LabelEpic, Value: "payments"},
		{Name: model.LabelAllureID, Value: "7"},
	}, got)
}

func TestLinkTemplates(t *testing.T) {
	t.Parallel()

	templates := LinkTemplates{
		model.LinkTypeIssue: {URLTemplate: "https://jira.example.com/browse/%s", NameTemplate: "Issue %s"},
	}

	got := templates.Apply(model.Link{URL: "PAY-1", Type: model.LinkTypeIssue})
	require.Equal(t, model.Link{URL: "https://jira.example.com/browse/PAY-1", Name: "Issue PAY-1", Type: model.LinkTypeIssue}, got)

	got = templates.Apply(model.Link{URL: "https://other/x", Type: model.LinkTypeIssue, Name: "keep"})
	require.Equal(t, model.Link{URL: "https://other/x", Type: model.LinkTypeIssue, Name: "keep"}, got)

	got = templates.Apply(model.Link{URL: "T-1", Type: model.LinkTypeTMS})
	require.Equal(t, model.Link{URL: "T-1", Type: model.LinkTypeTMS}, got)
}
