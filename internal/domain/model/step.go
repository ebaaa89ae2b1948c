// Package model contains the domain types shared across the runner system.
package model

import (
	"fmt"
	"strings"
)

// Action identifies what a test step does.
type Action string

const (
	ActionNavigate Action = "navigate"
	ActionClick    Action = "click"
	ActionFill     Action = "fill"
	ActionVerify   Action = "verify"
)

// Valid reports whether the action is one of the recognized step actions.
func (a Action) Valid() bool {
	switch a {
	case ActionNavigate, ActionClick, ActionFill, ActionVerify:
		return true
	default:
		return false
	}
}

// Step is one step of a test definition. Steps are immutable input owned by
// the test definition; the runner never mutates them.
type Step struct {
	Action Action `json:"action"`

	// Instruction is a natural-language description of the step, e.g.
	// "Click the Login button". Used by the semantic resolution strategy
	// when no explicit selector is available or the selector fails.
	Instruction string `json:"instruction,omitempty"`

	// Selector is an explicit CSS selector for click/fill steps.
	Selector string `json:"advanced_selector,omitempty"`

	// Target is the URL for navigate steps. Optional; the run's base URL is
	// used when empty.
	Target string `json:"target,omitempty"`

	// Value is the text to enter for fill steps.
	Value string `json:"value,omitempty"`

	// Expected is the text that must appear in the page for verify steps.
	Expected string `json:"expected,omitempty"`
}

// HasSelector reports whether the step carries a non-blank explicit selector.
func (s Step) HasSelector() bool {
	return strings.TrimSpace(s.Selector) != ""
}

// HasInstruction reports whether the step carries a non-blank instruction.
func (s Step) HasInstruction() bool {
	return strings.TrimSpace(s.Instruction) != ""
}

// TestDefinition is the executable part of a test: an ordered list of steps.
type TestDefinition struct {
	Steps []Step `json:"steps"`
}

// Test is a stored test definition. Owned by the external CRUD surface; the
// runner only reads it.
type Test struct {
	ID         string
	Name       string
	URL        string
	Definition TestDefinition
}

// ValidateStep checks a single step for structural problems. The index is
// used for one-based step numbering in error messages. Returns nil when the
// step is valid.
func ValidateStep(s Step, idx int) error {
	if s.Action == "" {
		return fmt.Errorf("step %d: missing action", idx+1)
	}
	if !s.Action.Valid() {
		return fmt.Errorf("step %d: unknown action %q", idx+1, s.Action)
	}
	switch s.Action {
	case ActionNavigate:
		// Target is optional: the run's base URL is used when empty.
	case ActionClick:
		if !s.HasSelector() && !s.HasInstruction() {
			return fmt.Errorf("step %d: click requires a selector or instruction", idx+1)
		}
	case ActionFill:
		if !s.HasSelector() && !s.HasInstruction() {
			return fmt.Errorf("step %d: fill requires a selector or instruction", idx+1)
		}
	case ActionVerify:
		if strings.TrimSpace(s.Expected) == "" {
			return fmt.Errorf("step %d: verify requires expected text", idx+1)
		}
	}
	return nil
}

// ValidateSteps checks a full step list before execution. The first invalid
// step fails the whole list; an empty list is invalid.
func ValidateSteps(steps []Step) error {
	if len(steps) == 0 {
		return ErrNoSteps
	}
	for i, s := range steps {
		if err := ValidateStep(s, i); err != nil {
			return err
		}
	}
	return nil
}
