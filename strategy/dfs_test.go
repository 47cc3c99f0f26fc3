package strategy

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// runDFSSchedule simulates a program with depth sequential binary choices,
// driven entirely by d.NextBool, and returns the sequence of booleans
// chosen.
func runDFSSchedule(d *DFS, depth int) []bool {
	out := make([]bool, depth)
	for i := 0; i < depth; i++ {
		v, ok := d.NextBool(0)
		if !ok {
			break
		}
		out[i] = v
	}
	return out
}

func TestDFS_ExploresAllCombinationsThenFinishes(t *testing.T) {
	d := NewDFS(0)
	seen := make(map[[3]bool]bool)

	for iter := 0; iter < 16 && !d.HasFinished(); iter++ {
		seq := runDFSSchedule(d, 3)
		seen[[3]bool{seq[0], seq[1], seq[2]}] = true
		d.ConfigureNextIteration()
	}

	require.True(t, d.HasFinished())
	require.Len(t, seen, 8) // 2^3 combinations
}

func TestDFS_IsFair(t *testing.T) {
	require.True(t, NewDFS(0).IsFair())
}

func TestDFS_FirstIterationIsAllFalse(t *testing.T) {
	d := NewDFS(0)
	seq := runDFSSchedule(d, 4)
	for _, v := range seq {
		require.False(t, v)
	}
}

func TestDFS_MaxDepthReached(t *testing.T) {
	d := NewDFS(2)
	require.False(t, d.MaxStepsReached())
	runDFSSchedule(d, 2)
	require.True(t, d.MaxStepsReached())
}
