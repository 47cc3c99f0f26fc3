package strategy

import (
	"fmt"

	"github.com/driftlock/actorsched"
)

// Combo chains two strategies within a single iteration: prefix drives
// the first prefixBound decisions, then suffix takes over for the
// remainder. This lets a cheap, targeted explorer (e.g. [PriorityBounded]
// with a small bound) probe the schedule's early divergence points while
// a broad explorer (e.g. [Random]) fills in the long tail, rather than
// paying either strategy's full cost for the whole run.
type Combo struct {
	prefix, suffix actorsched.Strategy
	prefixBound    int
	steps          int
}

// NewCombo returns a Combo strategy: prefix governs the first
// prefixBound decision points of each iteration, suffix governs the rest.
func NewCombo(prefix, suffix actorsched.Strategy, prefixBound int) *Combo {
	return &Combo{prefix: prefix, suffix: suffix, prefixBound: prefixBound}
}

func (c *Combo) active() actorsched.Strategy {
	if c.steps < c.prefixBound {
		return c.prefix
	}
	return c.suffix
}

func (c *Combo) TryGetNext(runnable []*actorsched.MachineInfo, current *actorsched.MachineInfo) (*actorsched.MachineInfo, bool) {
	next, ok := c.active().TryGetNext(runnable, current)
	if ok {
		c.steps++
	}
	return next, ok
}

func (c *Combo) NextBool(maxValue int) (bool, bool) {
	v, ok := c.active().NextBool(maxValue)
	if ok {
		c.steps++
	}
	return v, ok
}

func (c *Combo) NextInt(maxValue int) (int, bool) {
	v, ok := c.active().NextInt(maxValue)
	if ok {
		c.steps++
	}
	return v, ok
}

func (c *Combo) ExploredSteps() int { return c.steps }

func (c *Combo) MaxStepsReached() bool {
	return c.active().MaxStepsReached()
}

// IsFair defers to suffix: the prefix strategy only ever governs a
// bounded number of decisions per iteration, so long-run fairness is
// determined by whichever strategy drives the unbounded remainder.
func (c *Combo) IsFair() bool { return c.suffix.IsFair() }

func (c *Combo) HasFinished() bool { return c.prefix.HasFinished() || c.suffix.HasFinished() }

func (c *Combo) ConfigureNextIteration() {
	c.steps = 0
	c.prefix.ConfigureNextIteration()
	c.suffix.ConfigureNextIteration()
}

func (c *Combo) Reset() {
	c.steps = 0
	c.prefix.Reset()
	c.suffix.Reset()
}

func (c *Combo) Description() string {
	return fmt.Sprintf("combo(prefix=%s, suffix=%s, prefixBound=%d)", c.prefix.Description(), c.suffix.Description(), c.prefixBound)
}
