package actorsched

// Strategy is the pluggable decision oracle consulted at every scheduling
// point and nondeterministic choice point. The scheduler is the only
// caller; it never calls into a Strategy concurrently, and always while
// holding the current turn — strategies may therefore be implemented
// without their own internal locking.
//
// Concrete implementations live in package strategy (random, DFS,
// priority-bounded, delay-bounded, combo, replay); Strategy is declared
// here because the scheduler itself depends on it.
type Strategy interface {
	// TryGetNext selects the next machine to run from runnable, which is
	// supplied already sorted by MachineID for determinism. current is
	// the machine about to yield (nil if none has run yet). Returns
	// ok=false to signal the current schedule is exhausted.
	TryGetNext(runnable []*MachineInfo, current *MachineInfo) (next *MachineInfo, ok bool)

	// NextBool returns a nondeterministic boolean choice. maxValue is a
	// hint (e.g. a probability denominator); ok=false signals exhaustion.
	NextBool(maxValue int) (value bool, ok bool)

	// NextInt returns a nondeterministic integer choice in [0, maxValue).
	// ok=false signals exhaustion.
	NextInt(maxValue int) (value int, ok bool)

	// ExploredSteps reports the number of scheduling/choice decisions
	// made so far in the current iteration.
	ExploredSteps() int

	// MaxStepsReached reports whether the strategy has internally hit a
	// step bound of its own (distinct from the scheduler's configured
	// fair/unfair bounds).
	MaxStepsReached() bool

	// IsFair reports whether this strategy guarantees, in the limit,
	// progress for every always-enabled machine.
	IsFair() bool

	// HasFinished reports whether the strategy considers exploration
	// complete across iterations (e.g. an exhaustive explorer that has
	// covered its search space).
	HasFinished() bool

	// ConfigureNextIteration prepares the strategy for the next
	// iteration, preserving whatever cross-iteration state the strategy
	// needs (e.g. a DFS explorer's choice stack).
	ConfigureNextIteration()

	// Reset restores the strategy's initial state, discarding any
	// cross-iteration state.
	Reset()

	// Description returns a short human-readable description of the
	// strategy and its current configuration, included in bug reports.
	Description() string
}

// Seedable is implemented by strategies whose PRNG can be reseeded after
// construction. [NewIterationDriver] consults it: when [Config.Seed] is
// set and the supplied Strategy satisfies Seedable, the seed is applied
// before the first iteration runs, so a caller can pin reproducibility
// through [WithSeed] rather than by threading the seed through strategy
// construction by hand.
type Seedable interface {
	SeedWith(seed int64)
}
