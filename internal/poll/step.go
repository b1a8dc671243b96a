package poll

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Option is one selectable answer within a step.
type Option struct {
	Icon  string `yaml:"icon"`
	Label string `yaml:"label"`
}

// Step is one poll question with its answer options.
type Step struct {
	Title   string   `yaml:"title"`
	Options []Option `yaml:"options"`
}

// HasOption reports whether label is one of the step's option labels.
func (s Step) HasOption(label string) bool {
	for _, opt := range s.Options {
		if opt.Label == label {
			return true
		}
	}
	return false
}

// ErrInvalidSteps is returned when a step configuration cannot be used.
var ErrInvalidSteps = errors.New("invalid step configuration")

type stepFile struct {
	Steps []Step `yaml:"steps"`
}

// DefaultSteps returns the built-in three question poll.
func DefaultSteps() []Step {
	return []Step{
		{
			Title: "How was your week overall?",
			Options: []Option{
				{Icon: "like", Label: "Great"},
				{Icon: "smile", Label: "Good"},
				{Icon: "dislike", Label: "Not so great"},
			},
		},
		{
			Title: "How satisfied are you with your productivity?",
			Options: []Option{
				{Icon: "like", Label: "Very satisfied"},
				{Icon: "smile", Label: "Somewhat satisfied"},
				{Icon: "dislike", Label: "Not satisfied"},
			},
		},
		{
			Title: "What describes your mood the best?",
			Options: []Option{
				{Icon: "like", Label: "Happy"},
				{Icon: "smile", Label: "Neutral"},
				{Icon: "dislike", Label: "Sad"},
			},
		},
	}
}

// LoadSteps reads a YAML step file. An empty path yields DefaultSteps.
//
// The file layout is:
//
//	steps:
//	  - title: How was your week overall?
//	    options:
//	      - {icon: like, label: Great}
//	      - {icon: dislike, label: Not so great}
func LoadSteps(path string) ([]Step, error) {
	if strings.TrimSpace(path) == "" {
		return DefaultSteps(), nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read steps file: %w", err)
	}

	steps, err := ParseSteps(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return steps, nil
}

// ParseSteps decodes and validates a YAML step document.
func ParseSteps(r io.Reader) ([]Step, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var doc stepFile
	if err := dec.Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: document is empty", ErrInvalidSteps)
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidSteps, err)
	}

	if err := ValidateSteps(doc.Steps); err != nil {
		return nil, err
	}
	return doc.Steps, nil
}

// ValidateSteps checks that there is at least one step and that every step
// has a title and at least one labelled option.
func ValidateSteps(steps []Step) error {
	if len(steps) == 0 {
		return fmt.Errorf("%w: at least one step is required", ErrInvalidSteps)
	}
	for i, step := range steps {
		if strings.TrimSpace(step.Title) == "" {
			return fmt.Errorf("%w: step %d has no title", ErrInvalidSteps, i)
		}
		if len(step.Options) == 0 {
			return fmt.Errorf("%w: step %d has no options", ErrInvalidSteps, i)
		}
		for j, opt := range step.Options {
			if strings.TrimSpace(opt.Label) == "" {
				return fmt.Errorf("%w: step %d option %d has no label", ErrInvalidSteps, i, j)
			}
		}
	}
	return nil
}
