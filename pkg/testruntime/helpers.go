package testruntime

import (
	"context"
	"runtime/debug"

	"github.com/ethpandaops/allure-runtime/pkg/model"
	"github.com/ethpandaops/allure-runtime/pkg/status"
)

// Label adds a label to the current test.
func Label(ctx context.Context, name, value string) error {
	return FromContext(ctx).Labels(ctx, model.Label{Name: name, Value: value})
}

// Link adds a link to the current test.
func Link(ctx context.Context, url, name, linkType string) error {
	return FromContext(ctx).Links(ctx, model.Link{URL: url, Name: name, Type: linkType})
}

// Issue links the current test to an issue. url may be a bare issue key when
// an issue link template is configured.
func Issue(ctx context.Context, url, name string) error {
	return Link(ctx, url, name, model.LinkTypeIssue)
}

// TMS links the current test to a test management system entry.
func TMS(ctx context.Context, url, name string) error {
	return Link(ctx, url, name, model.LinkTypeTMS)
}

// Parameter adds a parameter to the current test.
func Parameter(ctx context.Context, name, value string, opts ...ParameterOption) error {
	return FromContext(ctx).Parameter(ctx, name, value, opts...)
}

// Description sets the markdown description of the current test.
func Description(ctx context.Context, markdown string) error {
	return FromContext(ctx).Description(ctx, markdown)
}

// DescriptionHTML sets the HTML description of the current test.
func DescriptionHTML(ctx context.Context, html string) error {
	return FromContext(ctx).DescriptionHTML(ctx, html)
}

// DisplayName renames the current test.
func DisplayName(ctx context.Context, name string) error {
	return FromContext(ctx).DisplayName(ctx, name)
}

// HistoryID overrides the history identifier of the current test.
func HistoryID(ctx context.Context, id string) error {
	return FromContext(ctx).HistoryID(ctx, id)
}

// TestCaseID overrides the test case identifier of the current test.
func TestCaseID(ctx context.Context, id string) error {
	return FromContext(ctx).TestCaseID(ctx, id)
}

// Attachment attaches content to the current step or test.
func Attachment(ctx context.Context, name string, content []byte, contentType string) error {
	return FromContext(ctx).Attachment(ctx, name, content, contentType)
}

// AttachmentFromPath attaches a file to the current step or test.
func AttachmentFromPath(ctx context.Context, name, path, contentType string) error {
	return FromContext(ctx).AttachmentFromPath(ctx, name, path, contentType)
}

// Epic adds an epic label to the current test.
func Epic(ctx context.Context, value string) error { return Label(ctx, model.LabelEpic, value) }

// Feature adds a feature label to the current test.
func Feature(ctx context.Context, value string) error { return Label(ctx, model.LabelFeature, value) }

// Story adds a story label to the current test.
func Story(ctx context.Context, value string) error { return Label(ctx, model.LabelStory, value) }

// Owner names who is responsible for the current test.
func Owner(ctx context.Context, value string) error { return Label(ctx, model.LabelOwner, value) }

// Layer adds a layer label, such as "api" or "e2e", to the current test.
func Layer(ctx context.Context, value string) error { return Label(ctx, model.LabelLayer, value) }

// Tag adds one tag label to the current test.
func Tag(ctx context.Context, value string) error { return Label(ctx, model.LabelTag, value) }

// Suite overrides the suite label. Any explicit suite label replaces all
// three labels derived from the title path.
func Suite(ctx context.Context, value string) error {
	return Label(ctx, model.LabelSuite, value)
}

// ParentSuite overrides the parent suite label.
func ParentSuite(ctx context.Context, value string) error {
	return Label(ctx, model.LabelParentSuite, value)
}

// SubSuite overrides the sub suite label.
func SubSuite(ctx context.Context, value string) error {
	return Label(ctx, model.LabelSubSuite, value)
}

// Severity sets the severity label.
func Severity(ctx context.Context, value string) error {
	return Label(ctx, model.LabelSeverity, value)
}

// AllureID sets the ALLURE_ID label, which also feeds the test case
// identifier.
func AllureID(ctx context.Context, value string) error {
	return Label(ctx, model.LabelAllureID, value)
}

// Tags adds one tag label per value.
func Tags(ctx context.Context, values ...string) error {
	labels := make([]model.Label, 0, len(values))
	for _, v := range values {
		labels = append(labels, model.Label{Name: model.LabelTag, Value: v})
	}
	return FromContext(ctx).Labels(ctx, labels...)
}

// Step runs body as a named step of the current test. The step status comes
// from the error body returns. A panic in body is recorded as broken and
// re-raised. Failing to report the step never fails the step: only the
// error of body is returned.
func Step(ctx context.Context, name string, body func(ctx context.Context) error) (err error) {
	rt := FromContext(ctx)
	started := rt.StartStep(ctx, name) == nil

	defer func() {
		recovered := recover()
		if recovered == nil {
			return
		}
		if started {
			s, details := status.FromPanic(recovered, debug.Stack())
			_ = rt.StopStep(ctx, s, details)
		}
		panic(recovered)
	}()

	err = body(ctx)

	if started {
		s, details := rt.Classify(err)
		_ = rt.StopStep(ctx, s, details)
	}
	return err
}
