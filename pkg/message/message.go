// Package message defines the runtime messages that code running inside a
// test body sends to the reporter, in process or across a process boundary.
package message

import (
	"github.com/ethpandaops/allure-runtime/pkg/model"
)

// Type tags the payload of a Message.
type Type string

// Message types.
const (
	TypeLabel             Type = "label"
	TypeLink              Type = "link"
	TypeParameter         Type = "parameter"
	TypeAttachmentContent Type = "attachment_content"
	TypeAttachmentPath    Type = "attachment_path"
	TypeDescription       Type = "description"
	TypeDescriptionHTML   Type = "description_html"
	TypeDisplayName       Type = "display_name"
	TypeHistoryID         Type = "history_id"
	TypeTestCaseID        Type = "test_case_id"
	TypeStepStart         Type = "step_start"
	TypeStepStop          Type = "step_stop"
	TypeStepMetadata      Type = "step_metadata"
)

// Attachment is the payload of the attachment messages. Exactly one of
// Content and Path is used, depending on the message type.
type Attachment struct {
	Name          string `json:"name"`
	ContentType   string `json:"contentType,omitempty"`
	FileExtension string `json:"fileExtension,omitempty"`
	Content       []byte `json:"content,omitempty"`
	Path          string `json:"path,omitempty"`
}

// Step is the payload of the step messages.
type Step struct {
	Name          string               `json:"name,omitempty"`
	Status        model.Status         `json:"status,omitempty"`
	StatusDetails *model.StatusDetails `json:"statusDetails,omitempty"`
	Parameters    []model.Parameter    `json:"parameters,omitempty"`
	Timestamp     int64                `json:"timestamp,omitempty"`
}

// Message is a single runtime message. Type selects which payload field is
// meaningful; the others are left empty.
type Message struct {
	Type       Type             `json:"type"`
	Label      *model.Label     `json:"label,omitempty"`
	Link       *model.Link      `json:"link,omitempty"`
	Parameter  *model.Parameter `json:"parameter,omitempty"`
	Attachment *Attachment      `json:"attachment,omitempty"`
	Step       *Step            `json:"step,omitempty"`
	Text       string           `json:"text,omitempty"`
}

// NewLabel creates a label message.
func NewLabel(name, value string) Message {
	return Message{Type: TypeLabel, Label: &model.Label{Name: name, Value: value}}
}

// NewLink creates a link message.
func NewLink(url, name, linkType string) Message {
	return Message{Type: TypeLink, Link: &model.Link{URL: url, Name: name, Type: linkType}}
}

// NewParameter creates a parameter message.
func NewParameter(p model.Parameter) Message {
	return Message{Type: TypeParameter, Parameter: &p}
}

// NewAttachmentContent creates a message carrying attachment content.
func NewAttachmentContent(name, contentType string, content []byte) Message {
	return Message{Type: TypeAttachmentContent, Attachment: &Attachment{
		Name:        name,
		ContentType: contentType,
		Content:     content,
	}}
}

// NewAttachmentPath creates a message referencing a file to attach.
func NewAttachmentPath(name, contentType, path string) Message {
	return Message{Type: TypeAttachmentPath, Attachment: &Attachment{
		Name:        name,
		ContentType: contentType,
		Path:        path,
	}}
}

// NewDescription creates a markdown description message.
func NewDescription(markdown string) Message {
	return Message{Type: TypeDescription, Text: markdown}
}

// NewDescriptionHTML creates an HTML description message.
func NewDescriptionHTML(html string) Message {
	return Message{Type: TypeDescriptionHTML, Text: html}
}

// NewDisplayName creates a message renaming the executable.
func NewDisplayName(name string) Message {
	return Message{Type: TypeDisplayName, Text: name}
}

// NewHistoryID creates a message overriding the history identifier.
func NewHistoryID(id string) Message {
	return Message{Type: TypeHistoryID, Text: id}
}

// NewTestCaseID creates a message overriding the test case identifier.
func NewTestCaseID(id string) Message {
	return Message{Type: TypeTestCaseID, Text: id}
}

// NewStepStart creates a message opening a step.
func NewStepStart(name string, timestamp int64) Message {
	return Message{Type: TypeStepStart, Step: &Step{Name: name, Timestamp: timestamp}}
}

// NewStepStop creates a message closing the innermost open step.
func NewStepStop(s model.Status, details *model.StatusDetails, timestamp int64) Message {
	return Message{Type: TypeStepStop, Step: &Step{Status: s, StatusDetails: details, Timestamp: timestamp}}
}

// NewStepMetadata creates a message renaming the innermost open step or
// adding parameters to it.
func NewStepMetadata(name string, params ...model.Parameter) Message {
	return Message{Type: TypeStepMetadata, Step: &Step{Name: name, Parameters: params}}
}
