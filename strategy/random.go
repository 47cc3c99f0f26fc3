package strategy

import (
	"fmt"
	"math/rand"

	"github.com/driftlock/actorsched"
)

// Random is an unfair, memoryless scheduling strategy: at every
// scheduling and choice point it draws uniformly from the candidates
// using its own seeded PRNG. It never reports [Strategy.HasFinished] on
// its own — bound the run with [actorsched.WithIterations].
type Random struct {
	rng   *rand.Rand
	seed  int64
	steps int
}

// NewRandom returns a Random strategy seeded with seed.
func NewRandom(seed int64) *Random {
	return &Random{rng: rand.New(rand.NewSource(seed)), seed: seed}
}

func (r *Random) TryGetNext(runnable []*actorsched.MachineInfo, _ *actorsched.MachineInfo) (*actorsched.MachineInfo, bool) {
	if len(runnable) == 0 {
		return nil, false
	}
	r.steps++
	return runnable[r.rng.Intn(len(runnable))], true
}

func (r *Random) NextBool(maxValue int) (bool, bool) {
	r.steps++
	if maxValue <= 0 {
		maxValue = 2
	}
	return r.rng.Intn(maxValue) == 0, true
}

func (r *Random) NextInt(maxValue int) (int, bool) {
	r.steps++
	if maxValue <= 0 {
		return 0, true
	}
	return r.rng.Intn(maxValue), true
}

func (r *Random) ExploredSteps() int     { return r.steps }
func (r *Random) MaxStepsReached() bool  { return false }
func (r *Random) IsFair() bool           { return false }
func (r *Random) HasFinished() bool      { return false }
func (r *Random) ConfigureNextIteration() { r.steps = 0 }
func (r *Random) Reset() {
	r.rng = rand.New(rand.NewSource(r.seed))
	r.steps = 0
}

// SeedWith implements actorsched.Seedable.
func (r *Random) SeedWith(seed int64) {
	r.seed = seed
	r.rng = rand.New(rand.NewSource(seed))
}
func (r *Random) Description() string {
	return fmt.Sprintf("random(seed=%d)", r.seed)
}
