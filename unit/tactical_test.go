// Copyright (C) 2025, Corticalmesh Contributors. All rights reserved.
// See the file LICENSE for licensing terms.

package unit

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/corticalmesh/substrate/gradient"
	"github.com/corticalmesh/substrate/ids"
)

func newTestTactical() *Tactical {
	steps := []PlanStep{{Name: "step-a"}, {Name: "step-b"}}
	return NewTactical(Descriptor{ID: ids.GenerateUnitID()}, steps, func(in Input, step PlanStep) (Output, float64, error) {
		return Output{}, 0.5, nil
	})
}

func TestTacticalProcessAdvancesStepProgress(t *testing.T) {
	tac := newTestTactical()
	_, err := tac.Process(Input{})
	require.NoError(t, err)

	step, progress := tac.PlanProgress()
	require.Equal(t, 0, step)
	require.Equal(t, 0.5, progress)
}

func TestTacticalProcessCompletesStepAndAdvances(t *testing.T) {
	tac := newTestTactical()
	_, _ = tac.Process(Input{})
	_, _ = tac.Process(Input{})

	step, progress := tac.PlanProgress()
	require.Equal(t, 1, step)
	require.Equal(t, float64(0), progress)
}

func TestTacticalProcessAfterPlanCompleteReportsComplete(t *testing.T) {
	tac := newTestTactical()
	for i := 0; i < 4; i++ {
		_, _ = tac.Process(Input{})
	}
	out, err := tac.Process(Input{})
	require.NoError(t, err)
	require.Equal(t, "true", out.Metadata["plan_complete"])
}

func TestTacticalLearnAdjustsProgress(t *testing.T) {
	tac := newTestTactical()
	require.NoError(t, tac.Learn(gradient.New(ids.GenerateUnitID(), nil, 0, map[string]interface{}{"progress_delta": float64(0.3)})))

	step, progress := tac.PlanProgress()
	require.Equal(t, 0, step)
	require.Equal(t, 0.3, progress)
}

func TestTacticalLearnClampsNegativeProgressToZero(t *testing.T) {
	tac := newTestTactical()
	require.NoError(t, tac.Learn(gradient.New(ids.GenerateUnitID(), nil, 0, map[string]interface{}{"progress_delta": float64(-1)})))

	_, progress := tac.PlanProgress()
	require.Equal(t, float64(0), progress)
}

func TestTacticalResetZeroesProgress(t *testing.T) {
	tac := newTestTactical()
	_, _ = tac.Process(Input{})
	tac.Reset()

	step, progress := tac.PlanProgress()
	require.Equal(t, 0, step)
	require.Equal(t, float64(0), progress)
}
