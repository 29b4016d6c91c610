// Package status maps errors onto result statuses.
//
// Deciding whether an error is an assertion failure or an unexpected error
// depends on the assertion library in use, so the mapping is pluggable: each
// adapter can supply its own Classifier.
package status

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/ethpandaops/allure-runtime/pkg/model"
)

// NoImplementationMessage is the diagnostic attached to tests whose body
// never executed.
const NoImplementationMessage = "No implementation"

// Classifier maps an error (or its absence) to a status and details.
type Classifier interface {
	Classify(err error) (model.Status, *model.StatusDetails)
}

// ClassifierFunc adapts a function to the Classifier interface.
type ClassifierFunc func(err error) (model.Status, *model.StatusDetails)

// Classify calls f(err).
func (f ClassifierFunc) Classify(err error) (model.Status, *model.StatusDetails) {
	return f(err)
}

// Assertion is implemented by errors that know whether they represent a
// failed assertion.
type Assertion interface {
	Assertion() bool
}

// DefaultMarkers are the message prefixes recognised as assertion failures.
var DefaultMarkers = []string{"assert", "expect", "Error Trace:"}

type assertionClassifier struct {
	markers []string
}

// NewAssertionClassifier returns a Classifier reporting failed for assertion
// errors and broken for everything else. An error is an assertion when its
// chain contains an Assertion reporting true, a value whose type name
// contains "Assertion", or when its message starts with one of markers
// (case-insensitive). DefaultMarkers are used when markers is empty.
func NewAssertionClassifier(markers ...string) Classifier {
	if len(markers) == 0 {
		markers = DefaultMarkers
	}
	lowered := make([]string, 0, len(markers))
	for _, m := range markers {
		lowered = append(lowered, strings.ToLower(m))
	}
	return &assertionClassifier{markers: lowered}
}

// Default is the classifier used when none is configured.
var Default = NewAssertionClassifier()

func (c *assertionClassifier) Classify(err error) (model.Status, *model.StatusDetails) {
	if err == nil {
		return model.StatusPassed, nil
	}
	if c.isAssertion(err) {
		return model.StatusFailed, Details(err)
	}
	return model.StatusBroken, Details(err)
}

func (c *assertionClassifier) isAssertion(err error) bool {
	var marked Assertion
	if errors.As(err, &marked) {
		return marked.Assertion()
	}

	for e := err; e != nil; e = errors.Unwrap(e) {
		if strings.Contains(typeName(e), "Assertion") {
			return true
		}
	}

	msg := strings.ToLower(strings.TrimSpace(err.Error()))
	for _, m := range c.markers {
		if strings.HasPrefix(msg, m) {
			return true
		}
	}
	return false
}

func typeName(v any) string {
	t := reflect.TypeOf(v)
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t == nil {
		return ""
	}
	return t.Name()
}

// Details builds status details from err. The trace holds the verbose
// formatting of err when it adds anything over the message.
func Details(err error) *model.StatusDetails {
	if err == nil {
		return nil
	}
	details := &model.StatusDetails{Message: err.Error()}
	if verbose := fmt.Sprintf("%+v", err); verbose != details.Message {
		details.Trace = verbose
	}
	return details
}

// FromPanic classifies a recovered panic value as broken.
func FromPanic(recovered any, stack []byte) (model.Status, *model.StatusDetails) {
	return model.StatusBroken, &model.StatusDetails{
		Message: fmt.Sprintf("panic: %v", recovered),
		Trace:   string(stack),
	}
}

// NoImplementation returns the absent status and its fixed diagnostic.
func NoImplementation() (model.Status, *model.StatusDetails) {
	return "", &model.StatusDetails{Message: NoImplementationMessage}
}

// AssertionError is a ready-made assertion error for callers that do not
// bring their own assertion library.
type AssertionError struct {
	Message string
}

func (e *AssertionError) Error() string { return e.Message }

// Assertion implements Assertion.
func (e *AssertionError) Assertion() bool { return true }

var _ Assertion = (*AssertionError)(nil)
