package actorsched

// StrategyKind names a built-in scheduling strategy selector, for callers
// that configure the scheduler declaratively rather than constructing a
// Strategy value themselves.
type StrategyKind int

const (
	StrategyRandom StrategyKind = iota
	StrategyDFS
	StrategyIDDFS
	StrategyPriorityBounded
	StrategyDelayBounded
	StrategyCombo
	StrategyReplay
)

// Config is the scheduler and driver's configuration surface, built via
// functional [Option] values over sane defaults — see [NewConfig].
type Config struct {
	NumIterations              int
	SchedulingStrategy         StrategyKind
	Seed                       *int64
	MaxFairSteps               int
	MaxUnfairSteps             int
	SafetyPrefixBound          int
	CacheProgramState          bool
	ConsiderDepthBoundHitAsBug bool
	AttachDebugger             bool
	Verbose                    int

	Logger     Logger
	OnFailure  func(Failure)
	StateCache StateCacheHook
	Liveness   LivenessMonitor
}

// Option configures a Config. Modeled on the teacher package's
// LoopOption/resolveLoopOptions functional-options idiom.
type Option interface {
	apply(*Config)
}

type optionFunc func(*Config)

func (f optionFunc) apply(c *Config) { f(c) }

// WithIterations sets the number of exploration iterations the driver runs.
func WithIterations(n int) Option {
	return optionFunc(func(c *Config) { c.NumIterations = n })
}

// WithStrategyKind selects one of the built-in strategy kinds.
func WithStrategyKind(kind StrategyKind) Option {
	return optionFunc(func(c *Config) { c.SchedulingStrategy = kind })
}

// WithSeed pins the PRNG seed used by randomized strategies.
// [NewIterationDriver] applies it to any supplied [Strategy] implementing
// [Seedable] (Random, PriorityBounded, DelayBounded); a strategy that
// doesn't implement Seedable (DFS, Combo, Replay) ignores it.
func WithSeed(seed int64) Option {
	return optionFunc(func(c *Config) { c.Seed = &seed })
}

// WithMaxFairSteps bounds the number of steps a fair strategy may explore
// before the iteration is cut short.
func WithMaxFairSteps(n int) Option {
	return optionFunc(func(c *Config) { c.MaxFairSteps = n })
}

// WithMaxUnfairSteps bounds the number of steps an unfair strategy may
// explore before the iteration is cut short.
func WithMaxUnfairSteps(n int) Option {
	return optionFunc(func(c *Config) { c.MaxUnfairSteps = n })
}

// WithSafetyPrefixBound sets the step threshold before which only safety
// (not liveness) properties are checked, and before which the state cache
// is not consulted. Zero means "use MaxUnfairSteps".
func WithSafetyPrefixBound(n int) Option {
	return optionFunc(func(c *Config) { c.SafetyPrefixBound = n })
}

// WithProgramStateCache enables the state-cache hook.
func WithProgramStateCache(enabled bool) Option {
	return optionFunc(func(c *Config) { c.CacheProgramState = enabled })
}

// WithDepthBoundAsBug configures whether hitting a step bound is recorded
// as a bug, rather than a normal (silent) termination.
func WithDepthBoundAsBug(enabled bool) Option {
	return optionFunc(func(c *Config) { c.ConsiderDepthBoundHitAsBug = enabled })
}

// WithAttachDebugger is a passthrough configuration flag; actorsched does
// not itself attach a debugger, but records the intent for front-end
// tooling (out of scope for this module) to act on.
func WithAttachDebugger(enabled bool) Option {
	return optionFunc(func(c *Config) { c.AttachDebugger = enabled })
}

// WithVerbose sets the verbosity level: 0 (default) logs only bugs, 1 adds
// a one-line Info summary per iteration, 2 additionally dumps the full
// schedule trace at Debug level. See [IterationDriver.Run].
func WithVerbose(level int) Option {
	return optionFunc(func(c *Config) { c.Verbose = level })
}

// WithLogger installs the structured logging seam. Defaults to
// [NoopLogger] when unset.
func WithLogger(logger Logger) Option {
	return optionFunc(func(c *Config) { c.Logger = logger })
}

// WithOnFailure installs an observer invoked exactly once per iteration,
// the first time a failure (of any kind) is recorded.
func WithOnFailure(fn func(Failure)) Option {
	return optionFunc(func(c *Config) { c.OnFailure = fn })
}

// WithStateCache installs the state-cache hook. Defaults to a no-op.
func WithStateCache(hook StateCacheHook) Option {
	return optionFunc(func(c *Config) { c.StateCache = hook })
}

// WithLiveness installs the liveness-check hook. Defaults to a no-op.
func WithLiveness(hook LivenessMonitor) Option {
	return optionFunc(func(c *Config) { c.Liveness = hook })
}

// NewConfig builds a Config from defaults plus the given options.
func NewConfig(opts ...Option) *Config {
	c := &Config{
		NumIterations:      1,
		SchedulingStrategy: StrategyRandom,
		MaxFairSteps:       100000,
		MaxUnfairSteps:     10000,
		Logger:             NoopLogger{},
		StateCache:         NopStateCache{},
		Liveness:           NopLivenessMonitor{},
	}
	for _, o := range opts {
		if o == nil {
			continue
		}
		o.apply(c)
	}
	if c.SafetyPrefixBound == 0 {
		c.SafetyPrefixBound = c.MaxUnfairSteps
	}
	return c
}
