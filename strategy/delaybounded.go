package strategy

import (
	"fmt"
	"math/rand"

	"github.com/driftlock/actorsched"
)

// DelayBounded is a probabilistic strategy complementary to
// [PriorityBounded]: rather than reordering by priority rank, it follows
// the natural (lowest MachineID) schedule order by default, and at a
// small number of randomly chosen steps per iteration instead picks the
// highest-MachineID runnable candidate — simulating an adversarial
// scheduling delay of the "expected" next machine. Bounding the number of
// delay points, like bounding priority changes, concentrates search on
// schedules a small number of perturbations away from the default order.
type DelayBounded struct {
	rng   *rand.Rand
	seed  int64
	bound int

	delayPoint map[int]bool
	horizon    int
	steps      int
}

// NewDelayBounded returns a delay-bounded strategy seeded with seed,
// allowing at most bound delay points per iteration.
func NewDelayBounded(seed int64, bound int) *DelayBounded {
	d := &DelayBounded{rng: rand.New(rand.NewSource(seed)), seed: seed, bound: bound, horizon: 64}
	d.regenerateDelayPoints()
	return d
}

func (d *DelayBounded) regenerateDelayPoints() {
	d.delayPoint = make(map[int]bool, d.bound)
	for i := 0; i < d.bound; i++ {
		if d.horizon <= 0 {
			break
		}
		d.delayPoint[1+d.rng.Intn(d.horizon)] = true
	}
}

func (d *DelayBounded) TryGetNext(runnable []*actorsched.MachineInfo, _ *actorsched.MachineInfo) (*actorsched.MachineInfo, bool) {
	if len(runnable) == 0 {
		return nil, false
	}
	d.steps++
	if d.delayPoint[d.steps] && len(runnable) > 1 {
		return runnable[len(runnable)-1], true
	}
	return runnable[0], true
}

func (d *DelayBounded) NextBool(maxValue int) (bool, bool) {
	d.steps++
	if maxValue <= 0 {
		maxValue = 2
	}
	return d.rng.Intn(maxValue) == 0, true
}

func (d *DelayBounded) NextInt(maxValue int) (int, bool) {
	d.steps++
	if maxValue <= 0 {
		return 0, true
	}
	return d.rng.Intn(maxValue), true
}

func (d *DelayBounded) ExploredSteps() int    { return d.steps }
func (d *DelayBounded) MaxStepsReached() bool { return false }
func (d *DelayBounded) IsFair() bool          { return false }
func (d *DelayBounded) HasFinished() bool     { return false }

func (d *DelayBounded) ConfigureNextIteration() {
	if d.steps*2 > d.horizon {
		d.horizon = d.steps * 2
	}
	d.steps = 0
	d.regenerateDelayPoints()
}

func (d *DelayBounded) Reset() {
	d.rng = rand.New(rand.NewSource(d.seed))
	d.horizon = 64
	d.steps = 0
	d.regenerateDelayPoints()
}

// SeedWith implements actorsched.Seedable.
func (d *DelayBounded) SeedWith(seed int64) {
	d.seed = seed
	d.rng = rand.New(rand.NewSource(seed))
}

func (d *DelayBounded) Description() string {
	return fmt.Sprintf("delay-bounded(seed=%d, bound=%d, horizon=%d)", d.seed, d.bound, d.horizon)
}
