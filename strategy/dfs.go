package strategy

import (
	"fmt"

	"github.com/driftlock/actorsched"
)

// dfsFrame records one decision point: how many candidates were available,
// and which one was chosen.
type dfsFrame struct {
	numChoices int
	chosen     int
}

// DFS is a fair, exhaustive depth-first explorer with backtracking: it
// replays the previous iteration's prefix exactly up to the last decision
// point with an unexplored alternative, increments that decision, then
// free-runs (always choosing the first candidate) for the remainder of
// the iteration. [Strategy.HasFinished] reports true once every decision
// point has been exhausted back to the root — the schedule space is fully
// covered.
type DFS struct {
	maxDepth int

	replay  []dfsFrame // prefix to replay this iteration, set by ConfigureNextIteration
	current []dfsFrame // frames recorded so far this iteration
	finished bool
	iter     int
}

// NewDFS returns a DFS explorer. maxDepth, if positive, is the number of
// decision points in the current iteration at which MaxStepsReached starts
// reporting true; DFS itself keeps answering past it. Zero means
// MaxStepsReached never reports true.
func NewDFS(maxDepth int) *DFS {
	return &DFS{maxDepth: maxDepth}
}

func (d *DFS) nextChoice(n int) int {
	if n <= 0 {
		n = 1
	}
	pos := len(d.current)
	chosen := 0
	if pos < len(d.replay) {
		chosen = d.replay[pos].chosen
		if chosen >= n {
			chosen = 0
		}
	}
	d.current = append(d.current, dfsFrame{numChoices: n, chosen: chosen})
	return chosen
}

func (d *DFS) TryGetNext(runnable []*actorsched.MachineInfo, _ *actorsched.MachineInfo) (*actorsched.MachineInfo, bool) {
	if len(runnable) == 0 {
		return nil, false
	}
	return runnable[d.nextChoice(len(runnable))], true
}

func (d *DFS) NextBool(int) (bool, bool) {
	return d.nextChoice(2) == 1, true
}

func (d *DFS) NextInt(maxValue int) (int, bool) {
	if maxValue <= 0 {
		maxValue = 1
	}
	return d.nextChoice(maxValue), true
}

func (d *DFS) ExploredSteps() int { return len(d.current) }

func (d *DFS) MaxStepsReached() bool {
	return d.maxDepth > 0 && len(d.current) >= d.maxDepth
}

func (d *DFS) IsFair() bool      { return true }
func (d *DFS) HasFinished() bool { return d.finished }

// ConfigureNextIteration backtracks the decision tree: the last decision
// point with an unexplored alternative is incremented and becomes the
// replay prefix for the next iteration; everything after it is discarded.
// If no such decision point remains, the search space is exhausted.
func (d *DFS) ConfigureNextIteration() {
	d.iter++
	d.replay = backtrack(d.current)
	d.current = nil
	if d.replay == nil {
		d.finished = true
	}
}

func backtrack(frames []dfsFrame) []dfsFrame {
	for i := len(frames) - 1; i >= 0; i-- {
		if frames[i].chosen+1 < frames[i].numChoices {
			out := make([]dfsFrame, i+1)
			copy(out, frames[:i+1])
			out[i].chosen++
			return out
		}
	}
	return nil
}

func (d *DFS) Reset() {
	d.replay = nil
	d.current = nil
	d.finished = false
	d.iter = 0
}

func (d *DFS) Description() string {
	return fmt.Sprintf("dfs(iteration=%d, finished=%v)", d.iter, d.finished)
}
