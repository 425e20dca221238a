package domain

import (
	"slices"
	"strings"
	"time"
)

// Step is one numbered action inside a scenario. Order is 1-based and dense.
type Step struct {
	Order       int
	Action      string
	Description string
	ActorID     string
	Notes       string
}

// StepInput holds the caller-supplied values of a step; order is assigned by the scenario.
type StepInput struct {
	Action      string
	Description string `validate:"required"`
	ActorID     string `validate:"omitempty,kebab"`
	Notes       string
}

var stepFieldErrors = map[string]error{
	"Description": ErrInvalidStep,
	"ActorID":     ErrInvalidID,
}

func normalizeStepInputs(in []StepInput) []StepInput {
	if len(in) == 0 {
		return nil
	}
	out := make([]StepInput, len(in))
	for i, step := range in {
		out[i] = StepInput{
			Action:      strings.TrimSpace(step.Action),
			Description: strings.TrimSpace(step.Description),
			ActorID:     strings.TrimSpace(step.ActorID),
			Notes:       strings.TrimSpace(step.Notes),
		}
	}
	return out
}

func buildSteps(in []StepInput) []Step {
	if len(in) == 0 {
		return nil
	}
	out := make([]Step, len(in))
	for i, step := range in {
		out[i] = Step{
			Order:       i + 1,
			Action:      step.Action,
			Description: step.Description,
			ActorID:     step.ActorID,
			Notes:       step.Notes,
		}
	}
	return out
}

func renumber(steps []Step) []Step {
	for i := range steps {
		steps[i].Order = i + 1
	}
	if len(steps) == 0 {
		return nil
	}
	return steps
}

// DenseSteps reports whether step orders run 1..n without gaps.
func DenseSteps(steps []Step) bool {
	for i, step := range steps {
		if step.Order != i+1 {
			return false
		}
	}
	return true
}

// AddStep inserts a step at a 1-based position. A position of zero or past the end appends.
func (s *Scenario) AddStep(in StepInput, position int, now time.Time) (Step, error) {
	normalized := normalizeStepInputs([]StepInput{in})[0]
	if err := checkInput(normalized, stepFieldErrors); err != nil {
		return Step{}, err
	}
	if position < 0 {
		return Step{}, ErrInvalidStepOrder
	}
	steps := slices.Clone(s.Steps)
	idx := len(steps)
	if position > 0 && position <= len(steps) {
		idx = position - 1
	}
	step := buildSteps([]StepInput{normalized})[0]
	steps = slices.Insert(steps, idx, step)
	s.Steps = renumber(steps)
	s.Touch(now)
	return s.Steps[idx], nil
}

// RemoveStep deletes the step with the given order and closes the gap.
func (s *Scenario) RemoveStep(order int, now time.Time) error {
	if order < 1 || order > len(s.Steps) {
		return ErrInvalidStepOrder
	}
	steps := slices.Delete(slices.Clone(s.Steps), order-1, order)
	s.Steps = renumber(steps)
	s.Touch(now)
	return nil
}

// MoveStep moves the step at order from to order to, shifting the steps in between.
func (s *Scenario) MoveStep(from, to int, now time.Time) error {
	n := len(s.Steps)
	if from < 1 || from > n || to < 1 || to > n {
		return ErrInvalidStepOrder
	}
	if from == to {
		return nil
	}
	steps := slices.Clone(s.Steps)
	step := steps[from-1]
	steps = slices.Delete(steps, from-1, from)
	steps = slices.Insert(steps, to-1, step)
	s.Steps = renumber(steps)
	s.Touch(now)
	return nil
}

// ReplaceSteps swaps the whole step list.
func (s *Scenario) ReplaceSteps(in []StepInput, now time.Time) error {
	in = normalizeStepInputs(in)
	for _, step := range in {
		if err := checkInput(step, stepFieldErrors); err != nil {
			return err
		}
	}
	s.Steps = buildSteps(in)
	s.Touch(now)
	return nil
}
