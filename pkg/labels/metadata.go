package labels

import (
	"regexp"
	"sort"
	"strings"

	"github.com/ethpandaops/allure-runtime/pkg/model"
)

var (
	allureIDPattern    = regexp.MustCompile(`(?:^|\s)@?allure\.id[:=](\S+)`)
	allureLabelPattern = regexp.MustCompile(`(?:^|\s)@?allure\.label\.([^:=\s]+)[:=](\S+)`)
	spaces             = regexp.MustCompile(`\s+`)
)

// ExtractMetadata pulls inline metadata tags out of a free-text title.
// Recognised tags are "@allure.id:<id>" and "@allure.label.<name>:<value>"
// (the leading @ is optional and "=" may replace ":"). It returns the title
// with the tags removed and the labels they describe, in title order.
func ExtractMetadata(title string) (string, []model.Label) {
	type match struct {
		start int
		label model.Label
	}

	var matches []match
	for _, m := range allureIDPattern.FindAllStringSubmatchIndex(title, -1) {
		matches = append(matches, match{
			start: m[0],
			label: model.Label{Name: model.LabelAllureID, Value: title[m[2]:m[3]]},
		})
	}
	for _, m := range allureLabelPattern.FindAllStringSubmatchIndex(title, -1) {
		matches = append(matches, match{
			start: m[0],
			label: model.Label{Name: title[m[2]:m[3]], Value: title[m[4]:m[5]]},
		})
	}
	if len(matches) == 0 {
		return title, nil
	}

	sort.SliceStable(matches, func(i, j int) bool { return matches[i].start < matches[j].start })

	clean := allureIDPattern.ReplaceAllString(title, " ")
	clean = allureLabelPattern.ReplaceAllString(clean, " ")
	clean = strings.TrimSpace(spaces.ReplaceAllString(clean, " "))

	labels := make([]model.Label, 0, len(matches))
	for _, m := range matches {
		labels = append(labels, m.label)
	}
	return clean, FilterBlank(labels)
}
