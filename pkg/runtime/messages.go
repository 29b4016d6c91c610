package runtime

import (
	"errors"
	"time"

	"github.com/ethpandaops/allure-runtime/pkg/message"
	"github.com/ethpandaops/allure-runtime/pkg/model"
	"github.com/sirupsen/logrus"
)

// ApplyRuntimeMessages applies msgs in order to the test or fixture rootID.
// Step messages act on its innermost open step.
//
// Messages for an identifier that is not live, or whose test or fixture was
// already stopped, are dropped with one diagnostic per identifier. Label, link and parameter messages sent to a
// fixture are kept on the fixture's scope and added to the scope's tests
// when they are written. Only attachment writer failures are returned.
func (r *Runtime) ApplyRuntimeMessages(rootID string, msgs []message.Message) error {
	var errs []error
	for _, msg := range msgs {
		if msg.Type == message.TypeAttachmentContent || msg.Type == message.TypeAttachmentPath {
			if msg.Attachment == nil {
				r.invalid(rootID, msg)
				continue
			}
			if err := r.WriteAttachment(rootID, *msg.Attachment); err != nil {
				errs = append(errs, err)
			}
			continue
		}
		r.applyMessage(rootID, msg)
	}
	return errors.Join(errs...)
}

func (r *Runtime) applyMessage(rootID string, msg message.Message) {
	r.mu.Lock()
	defer r.mu.Unlock()

	root, ok := r.lookup(rootID)
	if !ok || root.stopped {
		r.drop(rootID, string(msg.Type))
		return
	}

	switch msg.Type {
	case message.TypeLabel:
		if msg.Label == nil {
			r.invalid(rootID, msg)
			return
		}
		if root.fixture != nil {
			scope := r.scopes[root.fixture.scope]
			scope.labels = append(scope.labels, *msg.Label)
			return
		}
		r.addLabel(root.test, *msg.Label)

	case message.TypeLink:
		if msg.Link == nil {
			r.invalid(rootID, msg)
			return
		}
		link := r.links.Apply(*msg.Link)
		if root.fixture != nil {
			scope := r.scopes[root.fixture.scope]
			scope.links = append(scope.links, link)
			return
		}
		root.test.result.Links = append(root.test.result.Links, link)

	case message.TypeParameter:
		if msg.Parameter == nil {
			r.invalid(rootID, msg)
			return
		}
		if root.fixture != nil {
			scope := r.scopes[root.fixture.scope]
			scope.params = append(scope.params, *msg.Parameter)
			return
		}
		root.exec.Parameters = append(root.exec.Parameters, *msg.Parameter)

	case message.TypeDescription:
		root.exec.Description = msg.Text

	case message.TypeDescriptionHTML:
		root.exec.DescriptionHTML = msg.Text

	case message.TypeDisplayName:
		root.exec.Name = msg.Text

	case message.TypeHistoryID:
		if root.test == nil {
			r.invalid(rootID, msg)
			return
		}
		root.test.result.HistoryID = msg.Text
		root.test.explicitHistory = msg.Text != ""

	case message.TypeTestCaseID:
		if root.test == nil {
			r.invalid(rootID, msg)
			return
		}
		root.test.result.TestCaseID = msg.Text
		root.test.explicitCase = msg.Text != ""

	case message.TypeStepStart:
		seed := model.StepResult{}
		if msg.Step != nil {
			seed.Name = msg.Step.Name
			seed.Start = msg.Step.Timestamp
		}
		r.startStep(root.id, seed)

	case message.TypeStepStop:
		stack := *root.stack
		if len(stack) == 0 {
			r.log.WithField("uuid", rootID).Warn("No open step to stop")
			return
		}
		var cfg stopConfig
		if msg.Step != nil {
			cfg.status = msg.Step.Status
			cfg.details = msg.Step.StatusDetails
			if msg.Step.Timestamp != 0 {
				cfg.stop = time.UnixMilli(msg.Step.Timestamp)
			}
		}
		r.stopStep(stack[len(stack)-1], cfg)

	case message.TypeStepMetadata:
		stack := *root.stack
		if len(stack) == 0 || msg.Step == nil {
			r.log.WithField("uuid", rootID).Warn("No open step to update")
			return
		}
		step := r.steps[stack[len(stack)-1]].result
		if msg.Step.Name != "" {
			step.Name = msg.Step.Name
		}
		step.Parameters = append(step.Parameters, msg.Step.Parameters...)

	default:
		r.invalid(rootID, msg)
	}
}

// drop logs a message that cannot be applied to id. Each identifier is
// reported once.
func (r *Runtime) drop(id, kind string) {
	if seen, _ := r.dropped.ContainsOrAdd(id, struct{}{}); seen {
		return
	}

	reason := "unknown identifier"
	if root, ok := r.lookup(id); ok && root.stopped {
		reason = "record already stopped"
	} else if r.released.Contains(id) {
		reason = "identifier already written"
	}
	r.log.WithFields(logrus.Fields{
		"uuid":   id,
		"type":   kind,
		"reason": reason,
	}).Warn("Dropping runtime message")
}

func (r *Runtime) invalid(id string, msg message.Message) {
	r.log.WithFields(logrus.Fields{"uuid": id, "type": msg.Type}).Warn("Ignoring malformed runtime message")
}
