package model

// ParameterMode controls how a parameter value is displayed.
type ParameterMode string

const (
	// ParameterModeDefault shows the value as is.
	ParameterModeDefault ParameterMode = "default"
	// ParameterModeHidden hides the parameter entirely.
	ParameterModeHidden ParameterMode = "hidden"
	// ParameterModeMasked shows the parameter with its value masked.
	ParameterModeMasked ParameterMode = "masked"
)

// Label is a key/value pair attached to a test. Keys may repeat.
type Label struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Link points a test at an external resource such as an issue tracker.
type Link struct {
	Name string `json:"name,omitempty"`
	URL  string `json:"url"`
	Type string `json:"type,omitempty"`
}

// Parameter is a named input of an executable.
type Parameter struct {
	Name     string        `json:"name"`
	Value    string        `json:"value"`
	Excluded bool          `json:"excluded,omitempty"`
	Mode     ParameterMode `json:"mode,omitempty"`
}

// Attachment references content stored by a writer under Source.
type Attachment struct {
	Name   string `json:"name"`
	Source string `json:"source"`
	Type   string `json:"type,omitempty"`
}

// Executable is the shape shared by tests, fixtures and steps.
type Executable struct {
	Name            string         `json:"name,omitempty"`
	Status          Status         `json:"status,omitempty"`
	StatusDetails   *StatusDetails `json:"statusDetails,omitempty"`
	Stage           Stage          `json:"stage,omitempty"`
	Description     string         `json:"description,omitempty"`
	DescriptionHTML string         `json:"descriptionHtml,omitempty"`
	Steps           []*StepResult  `json:"steps"`
	Attachments     []Attachment   `json:"attachments"`
	Parameters      []Parameter    `json:"parameters"`
	Start           int64          `json:"start,omitempty"`
	Stop            int64          `json:"stop,omitempty"`
}

// Normalize replaces nil collections with empty ones, recursively, so the
// record serialises with arrays instead of nulls.
func (e *Executable) Normalize() {
	if e.Steps == nil {
		e.Steps = []*StepResult{}
	}
	if e.Attachments == nil {
		e.Attachments = []Attachment{}
	}
	if e.Parameters == nil {
		e.Parameters = []Parameter{}
	}
	for _, step := range e.Steps {
		step.Normalize()
	}
}

// StepResult is a nested unit of work inside a test, fixture or step.
type StepResult struct {
	Executable
}

// FixtureResult is a setup or teardown executable owned by a scope.
type FixtureResult struct {
	Executable
}

// TestResult is the root record of a single test.
type TestResult struct {
	UUID       string   `json:"uuid"`
	HistoryID  string   `json:"historyId,omitempty"`
	TestCaseID string   `json:"testCaseId,omitempty"`
	FullName   string   `json:"fullName,omitempty"`
	TitlePath  []string `json:"titlePath,omitempty"`
	Labels     []Label  `json:"labels"`
	Links      []Link   `json:"links"`
	Executable
}

// Normalize replaces nil collections with empty ones.
func (r *TestResult) Normalize() {
	if r.Labels == nil {
		r.Labels = []Label{}
	}
	if r.Links == nil {
		r.Links = []Link{}
	}
	r.Executable.Normalize()
}

// LabelValues returns the values of every label called name, in order.
func (r *TestResult) LabelValues(name string) []string {
	var values []string
	for _, l := range r.Labels {
		if l.Name == name {
			values = append(values, l.Value)
		}
	}
	return values
}

// TestResultContainer groups fixtures with the tests they apply to.
// Containers are also called scopes.
type TestResultContainer struct {
	UUID     string           `json:"uuid"`
	Name     string           `json:"name,omitempty"`
	Children []string         `json:"children"`
	Befores  []*FixtureResult `json:"befores"`
	Afters   []*FixtureResult `json:"afters"`
	Start    int64            `json:"start,omitempty"`
	Stop     int64            `json:"stop,omitempty"`
}

// Normalize replaces nil collections with empty ones.
func (c *TestResultContainer) Normalize() {
	if c.Children == nil {
		c.Children = []string{}
	}
	if c.Befores == nil {
		c.Befores = []*FixtureResult{}
	}
	if c.Afters == nil {
		c.Afters = []*FixtureResult{}
	}
	for _, f := range c.Befores {
		f.Normalize()
	}
	for _, f := range c.Afters {
		f.Normalize()
	}
}
