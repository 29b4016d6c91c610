// Package labels derives structured labels from titles, title paths and the
// process environment.
package labels

import (
	"strings"

	"github.com/ethpandaops/allure-runtime/pkg/model"
)

// SubSuiteSeparator joins the title path segments below the suite level.
const SubSuiteSeparator = " > "

// SuiteLabels derives at most three labels from an ordered title path:
// parentSuite from the first segment, suite from the second and subSuite
// from the remaining ones. Blank segments are dropped first, so no blank
// label is ever produced.
func SuiteLabels(titlePath []string) []model.Label {
	segments := make([]string, 0, len(titlePath))
	for _, title := range titlePath {
		if title = strings.TrimSpace(title); title != "" {
			segments = append(segments, title)
		}
	}

	labels := make([]model.Label, 0, 3)
	if len(segments) > 0 {
		labels = append(labels, model.Label{Name: model.LabelParentSuite, Value: segments[0]})
	}
	if len(segments) > 1 {
		labels = append(labels, model.Label{Name: model.LabelSuite, Value: segments[1]})
	}
	if len(segments) > 2 {
		labels = append(labels, model.Label{
			Name:  model.LabelSubSuite,
			Value: strings.Join(segments[2:], SubSuiteSeparator),
		})
	}
	return labels
}

// IsSuiteLabel reports whether name is one of the suite triple.
func IsSuiteLabel(name string) bool {
	switch name {
	case model.LabelParentSuite, model.LabelSuite, model.LabelSubSuite:
		return true
	default:
		return false
	}
}

// HasSuiteLabels reports whether any label belongs to the suite triple.
func HasSuiteLabels(labels []model.Label) bool {
	for _, l := range labels {
		if IsSuiteLabel(l.Name) {
			return true
		}
	}
	return false
}

// StripSuiteLabels returns labels without the suite triple.
func StripSuiteLabels(labels []model.Label) []model.Label {
	kept := labels[:0:0]
	for _, l := range labels {
		if !IsSuiteLabel(l.Name) {
			kept = append(kept, l)
		}
	}
	return kept
}

// FilterBlank drops labels whose name or value is blank.
func FilterBlank(labels []model.Label) []model.Label {
	kept := make([]model.Label, 0, len(labels))
	for _, l := range labels {
		if strings.TrimSpace(l.Name) == "" || strings.TrimSpace(l.Value) == "" {
			continue
		}
		kept = append(kept, l)
	}
	return kept
}

// Has reports whether a label called name is present.
func Has(labels []model.Label, name string) bool {
	for _, l := range labels {
		if l.Name == name {
			return true
		}
	}
	return false
}
