package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	orderedmap "github.com/wk8/go-ordered-map/v2"
	"gopkg.in/yaml.v3"
)

// Category groups results in a report by status and message/trace patterns.
type Category struct {
	Name            string   `json:"name" yaml:"name"`
	Description     string   `json:"description,omitempty" yaml:"description,omitempty"`
	MessageRegex    string   `json:"messageRegex,omitempty" yaml:"messageRegex,omitempty"`
	TraceRegex      string   `json:"traceRegex,omitempty" yaml:"traceRegex,omitempty"`
	MatchedStatuses []Status `json:"matchedStatuses,omitempty" yaml:"matchedStatuses,omitempty"`
	Flaky           bool     `json:"flaky,omitempty" yaml:"flaky,omitempty"`
}

// EnvironmentInfo is the run-wide key/value table shown on a report's
// overview page. Keys keep their insertion order.
type EnvironmentInfo struct {
	entries *orderedmap.OrderedMap[string, string]
}

// NewEnvironmentInfo creates an empty EnvironmentInfo.
func NewEnvironmentInfo() *EnvironmentInfo {
	return &EnvironmentInfo{entries: orderedmap.New[string, string]()}
}

func (e *EnvironmentInfo) ensure() {
	if e.entries == nil {
		e.entries = orderedmap.New[string, string]()
	}
}

// Set stores value under key. Existing keys keep their position.
func (e *EnvironmentInfo) Set(key, value string) {
	e.ensure()
	e.entries.Set(key, value)
}

// Get returns the value stored under key.
func (e *EnvironmentInfo) Get(key string) (string, bool) {
	if e == nil || e.entries == nil {
		return "", false
	}
	return e.entries.Get(key)
}

// Len returns the number of entries.
func (e *EnvironmentInfo) Len() int {
	if e == nil || e.entries == nil {
		return 0
	}
	return e.entries.Len()
}

// Keys returns the keys in insertion order.
func (e *EnvironmentInfo) Keys() []string {
	if e == nil || e.entries == nil {
		return nil
	}
	keys := make([]string, 0, e.entries.Len())
	for pair := e.entries.Oldest(); pair != nil; pair = pair.Next() {
		keys = append(keys, pair.Key)
	}
	return keys
}

// Properties renders the entries in Java properties format.
func (e *EnvironmentInfo) Properties() []byte {
	var buf bytes.Buffer
	if e == nil || e.entries == nil {
		return buf.Bytes()
	}
	for pair := e.entries.Oldest(); pair != nil; pair = pair.Next() {
		fmt.Fprintf(&buf, "%s = %s\n", escapeProperty(pair.Key, true), escapeProperty(pair.Value, false))
	}
	return buf.Bytes()
}

var (
	keyEscaper = strings.NewReplacer(
		`\`, `\\`, "\n", `\n`, "\r", `\r`, "\t", `\t`, "=", `\=`, ":", `\:`, " ", `\ `,
	)
	valueEscaper = strings.NewReplacer(`\`, `\\`, "\n", `\n`, "\r", `\r`, "\t", `\t`)
)

func escapeProperty(s string, key bool) string {
	if key {
		return keyEscaper.Replace(s)
	}
	return valueEscaper.Replace(s)
}

// MarshalJSON encodes the entries as a JSON object in insertion order.
func (e *EnvironmentInfo) MarshalJSON() ([]byte, error) {
	e.ensure()
	return e.entries.MarshalJSON()
}

// UnmarshalJSON decodes a JSON object, keeping the document order.
func (e *EnvironmentInfo) UnmarshalJSON(data []byte) error {
	e.ensure()
	if err := e.entries.UnmarshalJSON(data); err != nil {
		return fmt.Errorf("decoding environment info: %w", err)
	}
	return nil
}

// UnmarshalYAML decodes a YAML mapping, keeping the document order.
func (e *EnvironmentInfo) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("environment must be a mapping, got line %d", node.Line) //nolint:err113 // Include position for debugging
	}
	e.ensure()
	for i := 0; i+1 < len(node.Content); i += 2 {
		var key, value string
		if err := node.Content[i].Decode(&key); err != nil {
			return fmt.Errorf("decoding environment key: %w", err)
		}
		if err := node.Content[i+1].Decode(&value); err != nil {
			return fmt.Errorf("decoding environment value for %q: %w", key, err)
		}
		e.entries.Set(key, value)
	}
	return nil
}

// MarshalYAML encodes the entries as a YAML mapping in insertion order.
func (e *EnvironmentInfo) MarshalYAML() (any, error) {
	e.ensure()
	node := &yaml.Node{Kind: yaml.MappingNode}
	for pair := e.entries.Oldest(); pair != nil; pair = pair.Next() {
		node.Content = append(node.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: pair.Key},
			&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: pair.Value},
		)
	}
	return node, nil
}

var (
	_ json.Marshaler   = (*EnvironmentInfo)(nil)
	_ json.Unmarshaler = (*EnvironmentInfo)(nil)
	_ yaml.Marshaler   = (*EnvironmentInfo)(nil)
	_ yaml.Unmarshaler = (*EnvironmentInfo)(nil)
)
