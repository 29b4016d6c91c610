// Package interactive provides terminal prompts for the setup commands
package interactive

import (
	"errors"
	"fmt"
	"strings"

	"github.com/AlecAivazis/survey/v2"
)

// ErrAborted is returned when the user interrupts a prompt
var ErrAborted = errors.New("aborted")

// Confirm asks for user confirmation
func Confirm(message string, def bool) (bool, error) {
	confirmed := def
	prompt := &survey.Confirm{
		Message: message,
		Default: def,
	}
	if err := survey.AskOne(prompt, &confirmed); err != nil {
		return false, fmt.Errorf("%w: %w", ErrAborted, err)
	}
	return confirmed, nil
}

// Input asks for a single line of text, offering def as the default
func Input(message, def, help string) (string, error) {
	answer := def
	prompt := &survey.Input{
		Message: message,
		Default: def,
		Help:    help,
	}
	if err := survey.AskOne(prompt, &answer); err != nil {
		return "", fmt.Errorf("%w: %w", ErrAborted, err)
	}
	return strings.TrimSpace(answer), nil
}

// Select asks the user to pick one of options
func Select(message string, options []string, def string) (string, error) {
	var selected string
	prompt := &survey.Select{
		Message: message,
		Options: options,
		Default: def,
	}
	if err := survey.AskOne(prompt, &selected); err != nil {
		return "", fmt.Errorf("%w: %w", ErrAborted, err)
	}
	return selected, nil
}

// ParsePairs splits "a=1, b=2" into ordered key/value pairs. Entries
// without a key are skipped.
func ParsePairs(s string) [][2]string {
	var pairs [][2]string
	for _, part := range strings.Split(s, ",") {
		key, value, _ := strings.Cut(part, "=")
		key = strings.TrimSpace(key)
		if key == "" {
			continue
		}
		pairs = append(pairs, [2]string{key, strings.TrimSpace(value)})
	}
	return pairs
}
