package model

// Well-known label names.
const (
	LabelAllureID    = "ALLURE_ID"
	LabelEpic        = "epic"
	LabelFeature     = "feature"
	LabelStory       = "story"
	LabelSuite       = "suite"
	LabelParentSuite = "parentSuite"
	LabelSubSuite    = "subSuite"
	LabelOwner       = "owner"
	LabelSeverity    = "severity"
	LabelTag         = "tag"
	LabelHost        = "host"
	LabelThread      = "thread"
	LabelFramework   = "framework"
	LabelLanguage    = "language"
	LabelPackage     = "package"
	LabelTestClass   = "testClass"
	LabelTestMethod  = "testMethod"
	LabelLayer       = "layer"
)

// Well-known link types.
const (
	LinkTypeIssue = "issue"
	LinkTypeTMS   = "tms"
	LinkTypeLink  = "link"
)

// Severity levels accepted by the severity label.
const (
	SeverityBlocker  = "blocker"
	SeverityCritical = "critical"
	SeverityNormal   = "normal"
	SeverityMinor    = "minor"
	SeverityTrivial  = "trivial"
)
