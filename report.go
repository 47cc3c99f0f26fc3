package actorsched

import "fmt"

// FailureKind classifies a recorded Failure, mirroring spec.md §7's
// abstract error kinds.
type FailureKind int

const (
	FailureAssertion FailureKind = iota
	FailureLivelock
	FailureExternalSynchronization
	FailureStepBound
	FailureUnhandledException
	FailureDisposedRuntime
)

func (k FailureKind) String() string {
	switch k {
	case FailureAssertion:
		return "AssertionFailure"
	case FailureLivelock:
		return "LivelockDetected"
	case FailureExternalSynchronization:
		return "ExternalSynchronization"
	case FailureStepBound:
		return "StepBoundReached"
	case FailureUnhandledException:
		return "UnhandledUserException"
	case FailureDisposedRuntime:
		return "DisposedRuntimeUse"
	default:
		return "Unknown"
	}
}

// Failure is delivered to an installed OnFailure observer exactly once
// per iteration, the first time a failure is recorded.
type Failure struct {
	Kind FailureKind
	Err  error
}

// BugReport is the structured record of one discovered bug: its message,
// the schedule trace that produced it, and the strategy's description at
// the time.
type BugReport struct {
	Message             string
	Trace               []TraceEntry
	StrategyDescription string
}

// TestReport aggregates statistics and bug reports across every iteration
// an IterationDriver ran.
type TestReport struct {
	NumBugs              int
	BugReports           []BugReport
	NumExploredFair      int
	NumExploredUnfair    int
	MaxFairHitsInFair    int
	MaxUnfairHitsInFair  int
	MaxUnfairHitsInUnfair int
	TotalExploredFairSteps int
	MinExploredFairSteps   int // negative means unset
	MaxExploredFairSteps   int
	Config                 *Config
}

// NewTestReport returns a zero-valued report with MinExploredFairSteps
// marked unset, ready for IterationDriver to accumulate into.
func NewTestReport(cfg *Config) *TestReport {
	return &TestReport{
		MinExploredFairSteps: -1,
		Config:               cfg,
	}
}

func (r *TestReport) String() string {
	return fmt.Sprintf(
		"TestReport{bugs=%d fair=%d unfair=%d}",
		r.NumBugs, r.NumExploredFair, r.NumExploredUnfair,
	)
}

// recordIteration folds one completed iteration's outcome into the
// report. stepBoundHit is the scheduler's own governing-bound signal
// (MaxFairSteps for a fair strategy, MaxUnfairSteps for an unfair one,
// per stepBoundExceededLocked); unfairThresholdCrossed is an independent
// check of exploredSteps against MaxUnfairSteps, regardless of which
// bound actually governed termination. A fair iteration can cross the
// (typically much smaller) unfair-steps threshold on its way to its own,
// higher fair bound — max_unfair_hits_in_fair counts exactly that.
func (r *TestReport) recordIteration(fair bool, exploredSteps int, stepBoundHit, unfairThresholdCrossed bool) {
	if fair {
		r.NumExploredFair++
		r.TotalExploredFairSteps += exploredSteps
		if r.MinExploredFairSteps < 0 || exploredSteps < r.MinExploredFairSteps {
			r.MinExploredFairSteps = exploredSteps
		}
		if exploredSteps > r.MaxExploredFairSteps {
			r.MaxExploredFairSteps = exploredSteps
		}
		if stepBoundHit {
			r.MaxFairHitsInFair++
		}
		if unfairThresholdCrossed {
			r.MaxUnfairHitsInFair++
		}
	} else {
		r.NumExploredUnfair++
		if stepBoundHit {
			r.MaxUnfairHitsInUnfair++
		}
	}
}

func (r *TestReport) recordBug(b BugReport) {
	r.NumBugs++
	r.BugReports = append(r.BugReports, b)
}
