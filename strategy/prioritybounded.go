package strategy

import (
	"fmt"
	"math/rand"

	"github.com/driftlock/actorsched"
)

// PriorityBounded is a probabilistic concurrency-testing strategy: it
// assigns each machine a priority rank, always runs the highest-priority
// runnable machine, and at a small number of randomly chosen "priority
// change points" per iteration demotes the current highest-priority
// machine to the back of the ranking. Bounding the number of change
// points concentrates search on schedules reachable by a small number of
// priority inversions, which in practice surfaces many concurrency bugs
// with far fewer iterations than uniform random search.
type PriorityBounded struct {
	rng  *rand.Rand
	seed int64
	bound int

	priority    []uint64
	changePoint map[int]bool
	horizon     int
	steps       int
}

// NewPriorityBounded returns a priority-bounded strategy seeded with seed,
// allowing at most bound priority-change points per iteration.
func NewPriorityBounded(seed int64, bound int) *PriorityBounded {
	p := &PriorityBounded{
		rng:   rand.New(rand.NewSource(seed)),
		seed:  seed,
		bound: bound,
		horizon: 64,
	}
	p.regenerateChangePoints()
	return p
}

func (p *PriorityBounded) regenerateChangePoints() {
	p.changePoint = make(map[int]bool, p.bound)
	for i := 0; i < p.bound; i++ {
		if p.horizon <= 0 {
			break
		}
		p.changePoint[1+p.rng.Intn(p.horizon)] = true
	}
}

func (p *PriorityBounded) ensurePriority(runnable []*actorsched.MachineInfo) {
	known := make(map[uint64]bool, len(p.priority))
	for _, v := range p.priority {
		known[v] = true
	}
	for _, m := range runnable {
		if v := m.ID().Value; !known[v] {
			p.priority = append(p.priority, v)
			known[v] = true
		}
	}
}

func (p *PriorityBounded) highestPriority(runnable []*actorsched.MachineInfo) *actorsched.MachineInfo {
	byID := make(map[uint64]*actorsched.MachineInfo, len(runnable))
	for _, m := range runnable {
		byID[m.ID().Value] = m
	}
	for _, v := range p.priority {
		if m, ok := byID[v]; ok {
			return m
		}
	}
	return runnable[0]
}

func (p *PriorityBounded) demoteTopEnabled(runnable []*actorsched.MachineInfo) {
	top := p.highestPriority(runnable)
	id := top.ID().Value
	for i, v := range p.priority {
		if v == id {
			p.priority = append(append(p.priority[:i:i], p.priority[i+1:]...), id)
			return
		}
	}
}

func (p *PriorityBounded) TryGetNext(runnable []*actorsched.MachineInfo, _ *actorsched.MachineInfo) (*actorsched.MachineInfo, bool) {
	if len(runnable) == 0 {
		return nil, false
	}
	p.ensurePriority(runnable)
	p.steps++
	if p.changePoint[p.steps] {
		p.demoteTopEnabled(runnable)
	}
	return p.highestPriority(runnable), true
}

func (p *PriorityBounded) NextBool(maxValue int) (bool, bool) {
	p.steps++
	if maxValue <= 0 {
		maxValue = 2
	}
	return p.rng.Intn(maxValue) == 0, true
}

func (p *PriorityBounded) NextInt(maxValue int) (int, bool) {
	p.steps++
	if maxValue <= 0 {
		return 0, true
	}
	return p.rng.Intn(maxValue), true
}

func (p *PriorityBounded) ExploredSteps() int     { return p.steps }
func (p *PriorityBounded) MaxStepsReached() bool  { return false }
func (p *PriorityBounded) IsFair() bool           { return false }
func (p *PriorityBounded) HasFinished() bool      { return false }

func (p *PriorityBounded) ConfigureNextIteration() {
	if p.steps*2 > p.horizon {
		p.horizon = p.steps * 2
	}
	p.steps = 0
	p.rng.Shuffle(len(p.priority), func(i, j int) {
		p.priority[i], p.priority[j] = p.priority[j], p.priority[i]
	})
	p.regenerateChangePoints()
}

func (p *PriorityBounded) Reset() {
	p.rng = rand.New(rand.NewSource(p.seed))
	p.priority = nil
	p.horizon = 64
	p.steps = 0
	p.regenerateChangePoints()
}

// SeedWith implements actorsched.Seedable.
func (p *PriorityBounded) SeedWith(seed int64) {
	p.seed = seed
	p.rng = rand.New(rand.NewSource(seed))
}

func (p *PriorityBounded) Description() string {
	return fmt.Sprintf("priority-bounded(seed=%d, bound=%d, horizon=%d)", p.seed, p.bound, p.horizon)
}
