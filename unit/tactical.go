// Copyright (C) 2025, Corticalmesh Contributors. All rights reserved.
// See the file LICENSE for licensing terms.

package unit

import (
	"strconv"

	"github.com/corticalmesh/substrate/gradient"
)

// PlanStep is one ordered step of a Tactical unit's plan.
type PlanStep struct {
	Name     string
	Progress float64 // 0..1, fraction of this step completed
}

// Tactical is the L4 unit: holds an ordered sequence of plan steps with
// fractional progress, advancing as Process calls report completion
// deltas (spec.md §4.D).
type Tactical struct {
	base

	steps   []PlanStep
	current int
	advance func(Input, PlanStep) (Output, float64, error)
}

// NewTactical constructs an L4 unit over the given ordered steps.
// advance computes an Output and the progress delta to apply to the
// current step for one Input.
func NewTactical(descriptor Descriptor, steps []PlanStep, advance func(Input, PlanStep) (Output, float64, error)) *Tactical {
	return &Tactical{
		base:    newBase(L4, descriptor),
		steps:   append([]PlanStep(nil), steps...),
		advance: advance,
	}
}

func (t *Tactical) Process(in Input) (Output, error) {
	t.mu.Lock()
	if t.current >= len(t.steps) {
		t.mu.Unlock()
		return Output{Confidence: 1, Metadata: map[string]string{"plan_complete": "true"}}, nil
	}
	step := t.steps[t.current]
	t.mu.Unlock()

	out, delta, err := t.advance(in, step)
	t.recordProcess(0, err)
	if err != nil {
		return Output{}, err
	}

	t.mu.Lock()
	step = t.steps[t.current]
	step.Progress += delta
	if step.Progress >= 1 {
		step.Progress = 1
		t.steps[t.current] = step
		t.current++
	} else {
		t.steps[t.current] = step
	}
	t.mu.Unlock()

	return out, nil
}

// Learn advances or rewinds the current step's progress directly, the
// mechanism by which a reinforcement gradient accelerates a plan that is
// performing well (spec.md §4.D, §4.H).
func (t *Tactical) Learn(g gradient.Gradient) error {
	t.recordLearn()
	delta, ok := applyAdjustment(g, "progress_delta")
	if !ok {
		return nil
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.current >= len(t.steps) {
		return nil
	}
	step := t.steps[t.current]
	step.Progress += delta
	if step.Progress < 0 {
		step.Progress = 0
	}
	if step.Progress >= 1 {
		step.Progress = 1
		t.steps[t.current] = step
		t.current++
	} else {
		t.steps[t.current] = step
	}
	return nil
}

// PlanProgress returns the index of the current step and its fractional
// progress, or (len(steps), 0) once the plan is complete.
func (t *Tactical) PlanProgress() (step int, progress float64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.current >= len(t.steps) {
		return len(t.steps), 0
	}
	return t.current, t.steps[t.current].Progress
}

func (t *Tactical) Introspect() Snapshot {
	step, progress := t.PlanProgress()
	return t.snapshot(0, map[string]string{
		"plan_step":     strconv.Itoa(step),
		"plan_total":    strconv.Itoa(len(t.steps)),
		"step_progress": strconv.FormatFloat(progress, 'f', 4, 64),
	})
}

func (t *Tactical) Reset() {
	t.mu.Lock()
	for i := range t.steps {
		t.steps[i].Progress = 0
	}
	t.current = 0
	t.mu.Unlock()
	t.reset()
}

var _ Unit = (*Tactical)(nil)
