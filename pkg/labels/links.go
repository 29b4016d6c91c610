package labels

import (
	"strings"

	"github.com/ethpandaops/allure-runtime/pkg/model"
)

// LinkTemplate expands short link values (for example an issue key) into
// full links. Both templates substitute the value for "%s".
type LinkTemplate struct {
	URLTemplate  string `yaml:"urlTemplate"`
	NameTemplate string `yaml:"nameTemplate,omitempty"`
}

// LinkTemplates maps a link type to its template.
type LinkTemplates map[string]LinkTemplate

// Apply expands link using the template registered for its type. Links that
// already carry an absolute URL are only given a name.
func (t LinkTemplates) Apply(link model.Link) model.Link {
	tmpl, ok := t[link.Type]
	if !ok {
		return link
	}

	value := link.URL
	if !isAbsoluteURL(value) && tmpl.URLTemplate != "" {
		link.URL = strings.ReplaceAll(tmpl.URLTemplate, "%s", value)
	}
	if link.Name == "" && tmpl.NameTemplate != "" {
		link.Name = strings.ReplaceAll(tmpl.NameTemplate, "%s", value)
	}
	return link
}

func isAbsoluteURL(s string) bool {
	scheme, _, ok := strings.Cut(s, "://")
	return ok && scheme != "" && !strings.ContainsAny(scheme, "/ ")
}
