package strategy

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/driftlock/actorsched"
)

func TestReplay_ReproducesScheduleChoices(t *testing.T) {
	runnable := mkMachines(3)
	recorded := []actorsched.TraceEntry{
		{Kind: actorsched.ScheduleChoiceKind, MachineID: runnable[2].ID()},
		{Kind: actorsched.ScheduleChoiceKind, MachineID: runnable[0].ID()},
		{Kind: actorsched.ScheduleChoiceKind, MachineID: runnable[1].ID()},
	}

	r := NewReplay(recorded)
	for _, want := range []*actorsched.MachineInfo{runnable[2], runnable[0], runnable[1]} {
		got, ok := r.TryGetNext(runnable, nil)
		require.True(t, ok)
		require.Equal(t, want.ID(), got.ID())
	}
	_, ok := r.TryGetNext(runnable, nil)
	require.False(t, ok)
}

func TestReplay_ReproducesBoolAndIntChoices(t *testing.T) {
	recorded := []actorsched.TraceEntry{
		{Kind: actorsched.BoolChoiceKind, BoolValue: true},
		{Kind: actorsched.IntChoiceKind, IntValue: 7},
		{Kind: actorsched.FairBoolChoiceKind, BoolValue: false, UniqueID: "x"},
	}
	r := NewReplay(recorded)

	b, ok := r.NextBool(0)
	require.True(t, ok)
	require.True(t, b)

	n, ok := r.NextInt(0)
	require.True(t, ok)
	require.Equal(t, 7, n)

	b2, ok := r.NextBool(0)
	require.True(t, ok)
	require.False(t, b2)
}

func TestReplay_DivergesWhenMachineNotRunnable(t *testing.T) {
	all := mkMachines(3)
	runnable, other := all[:2], all[2] // other's id is not in the runnable slice

	recorded := []actorsched.TraceEntry{
		{Kind: actorsched.ScheduleChoiceKind, MachineID: other.ID()},
	}
	r := NewReplay(recorded)
	_, ok := r.TryGetNext(runnable, nil)
	require.False(t, ok)
}

func TestReplay_FinishesAfterOneIteration(t *testing.T) {
	r := NewReplay(nil)
	require.False(t, r.HasFinished())
	r.ConfigureNextIteration()
	require.True(t, r.HasFinished())
}
