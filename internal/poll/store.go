package poll

import (
	"errors"
	"fmt"
)

var (
	// ErrStepOutOfRange is returned when an answer targets a step that does not exist.
	ErrStepOutOfRange = errors.New("step index out of range")
	// ErrUnknownOption is returned when an answer label is not one of the step's options.
	ErrUnknownOption = errors.New("label is not an option of the step")
)

// State is a point-in-time copy of the poll's mutable state.
type State struct {
	Answers   map[int]string
	Submitted bool
	Loading   bool
	Error     string
}

// Store owns the answers and submission lifecycle of one running poll.
//
// A Store is not safe for concurrent use. Each session owns one and mutates
// it only from its event loop.
type Store struct {
	steps     []Step
	answers   map[int]string
	submitted bool
	loading   bool
	errMsg    string
}

// NewStore returns an empty store for the given steps.
func NewStore(steps []Step) *Store {
	return &Store{steps: steps, answers: make(map[int]string)}
}

// SetAnswer records label as the answer for stepIndex, replacing any earlier
// answer. A rejected answer leaves the store unchanged.
func (s *Store) SetAnswer(stepIndex int, label string) error {
	if stepIndex < 0 || stepIndex >= len(s.steps) {
		return fmt.Errorf("%w: %d not in [0,%d)", ErrStepOutOfRange, stepIndex, len(s.steps))
	}
	if !s.steps[stepIndex].HasOption(label) {
		return fmt.Errorf("%w: %q for step %d", ErrUnknownOption, label, stepIndex)
	}
	s.answers[stepIndex] = label
	return nil
}

// BeginSubmit marks a submission as in flight and clears the last error.
func (s *Store) BeginSubmit() {
	s.loading = true
	s.submitted = false
	s.errMsg = ""
}

// SubmitSucceeded records a successful submission.
func (s *Store) SubmitSucceeded() {
	s.submitted = true
	s.loading = false
}

// SubmitFailed records a failed submission with a user-facing message.
func (s *Store) SubmitFailed(message string) {
	s.loading = false
	s.errMsg = message
}

// Reset returns the store to its initial empty state.
func (s *Store) Reset() {
	s.answers = make(map[int]string)
	s.submitted = false
	s.loading = false
	s.errMsg = ""
}

// Answer returns the recorded answer for stepIndex.
func (s *Store) Answer(stepIndex int) (string, bool) {
	label, ok := s.answers[stepIndex]
	return label, ok
}

// Answers returns a copy of the recorded answers.
func (s *Store) Answers() map[int]string {
	out := make(map[int]string, len(s.answers))
	for k, v := range s.answers {
		out[k] = v
	}
	return out
}

// Loading reports whether a submission is in flight.
func (s *Store) Loading() bool { return s.loading }

// Submitted reports whether the last submission succeeded.
func (s *Store) Submitted() bool { return s.submitted }

// Err returns the last submission error message, or "" if there is none.
func (s *Store) Err() string { return s.errMsg }

// Snapshot returns a copy of the full state.
func (s *Store) Snapshot() State {
	return State{
		Answers:   s.Answers(),
		Submitted: s.submitted,
		Loading:   s.loading,
		Error:     s.errMsg,
	}
}
