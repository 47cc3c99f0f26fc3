package actorsched

import (
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
)

// roundRobinStrategy is a minimal unfair Strategy fixture used by the
// scheduler's own unit tests: it always runs the lowest-MachineID
// runnable candidate and resolves every nondeterministic choice to the
// zero value, so test machine bodies can be written without depending on
// the concrete strategy package (which itself depends on this package).
type roundRobinStrategy struct {
	steps int
	fair  bool // zero value false: existing tests exercise the unfair path
}

func (s *roundRobinStrategy) TryGetNext(runnable []*MachineInfo, _ *MachineInfo) (*MachineInfo, bool) {
	if len(runnable) == 0 {
		return nil, false
	}
	s.steps++
	return runnable[0], true
}
func (s *roundRobinStrategy) NextBool(int) (bool, bool)   { s.steps++; return false, true }
func (s *roundRobinStrategy) NextInt(int) (int, bool)     { s.steps++; return 0, true }
func (s *roundRobinStrategy) ExploredSteps() int          { return s.steps }
func (s *roundRobinStrategy) MaxStepsReached() bool       { return false }
func (s *roundRobinStrategy) IsFair() bool                { return s.fair }
func (s *roundRobinStrategy) HasFinished() bool           { return false }
func (s *roundRobinStrategy) ConfigureNextIteration()     { s.steps = 0 }
func (s *roundRobinStrategy) Reset()                      { s.steps = 0 }
func (s *roundRobinStrategy) Description() string         { return "roundrobin-test" }

// highestIDStrategy always runs the highest-MachineID runnable candidate
// — the opposite preference of roundRobinStrategy — so a test can swap
// it in mid-run and observe a scheduling decision that only the new
// strategy would make.
type highestIDStrategy struct {
	steps int
}

func (s *highestIDStrategy) TryGetNext(runnable []*MachineInfo, _ *MachineInfo) (*MachineInfo, bool) {
	if len(runnable) == 0 {
		return nil, false
	}
	s.steps++
	return runnable[len(runnable)-1], true
}
func (s *highestIDStrategy) NextBool(int) (bool, bool)   { s.steps++; return false, true }
func (s *highestIDStrategy) NextInt(int) (int, bool)     { s.steps++; return 0, true }
func (s *highestIDStrategy) ExploredSteps() int          { return s.steps }
func (s *highestIDStrategy) MaxStepsReached() bool       { return false }
func (s *highestIDStrategy) IsFair() bool                { return false }
func (s *highestIDStrategy) HasFinished() bool           { return false }
func (s *highestIDStrategy) ConfigureNextIteration()     { s.steps = 0 }
func (s *highestIDStrategy) Reset()                      { s.steps = 0 }
func (s *highestIDStrategy) Description() string         { return "highest-id-test" }

func TestScheduler_MutualExclusion(t *testing.T) {
	var active int32
	var violations int32

	cfg := NewConfig(WithIterations(1))
	driver := NewIterationDriver(&roundRobinStrategy{}, cfg, func(rt *Runtime) {
		body := func(rt *Runtime, id MachineID) {
			for i := 0; i < 5; i++ {
				if atomic.AddInt32(&active, 1) > 1 {
					atomic.AddInt32(&violations, 1)
				}
				atomic.AddInt32(&active, -1)
				rt.Yield(id)
			}
		}
		rt.CreateMachine("a", body)
		rt.CreateMachine("b", body)
		rt.CreateMachine("c", body)
	})

	report := driver.Run()
	require.Equal(t, int32(0), atomic.LoadInt32(&violations))
	require.Equal(t, 0, report.NumBugs)
}

func TestScheduler_TraceCompleteness(t *testing.T) {
	cfg := NewConfig(WithIterations(1))
	var sched *Scheduler

	driver := NewIterationDriver(&roundRobinStrategy{}, cfg, func(rt *Runtime) {
		sched = rt.Scheduler()
		rt.CreateMachine("a", func(rt *Runtime, id MachineID) {
			rt.NextBool(id, 0, "")
			rt.Yield(id)
			rt.NextInt(id, 4)
		})
	})
	driver.Run()

	var schedules, choices int
	for _, e := range sched.Trace().Entries() {
		switch e.Kind {
		case ScheduleChoiceKind:
			schedules++
		case BoolChoiceKind, FairBoolChoiceKind, IntChoiceKind:
			choices++
		}
	}
	require.Equal(t, 2, choices) // one bool, one int
	require.Greater(t, schedules, 0)
}

func TestScheduler_LivelockNamesCorrectMachine(t *testing.T) {
	cfg := NewConfig(WithIterations(1))
	var bug *Failure
	cfg.OnFailure = func(f Failure) { bug = &f }

	driver := NewIterationDriver(&roundRobinStrategy{}, cfg, func(rt *Runtime) {
		rt.CreateMachine("M0", func(rt *Runtime, id MachineID) {
			rt.BlockOnReceive(id)
		})
	})
	report := driver.Run()

	require.Equal(t, 1, report.NumBugs)
	require.NotNil(t, bug)
	require.Equal(t, FailureLivelock, bug.Kind)
	require.Contains(t, bug.Err.Error(), "Machine 'M0(1)' is waiting for an event, but no other machine is enabled.")
}

func TestScheduler_UnbalancedPopExactMessage(t *testing.T) {
	cfg := NewConfig(WithIterations(1))
	driver := NewIterationDriver(&roundRobinStrategy{}, cfg, func(rt *Runtime) {
		rt.CreateMachine("M", func(rt *Runtime, id MachineID) {
			rt.Scheduler().NotifyAssertionFailure("Machine 'M()' popped with no matching push.")
			panic(errCancelled{})
		})
	})
	report := driver.Run()

	require.Equal(t, 1, report.NumBugs)
	require.Equal(t, "Machine 'M()' popped with no matching push.", report.BugReports[0].Message)
}

func TestScheduler_AssertionPropagation_WithAndWithoutOnFailure(t *testing.T) {
	for _, withHandler := range []bool{false, true} {
		var calls int
		cfg := NewConfig(WithIterations(1))
		if withHandler {
			cfg.OnFailure = func(Failure) { calls++ }
		}
		driver := NewIterationDriver(&roundRobinStrategy{}, cfg, func(rt *Runtime) {
			rt.CreateMachine("m", func(rt *Runtime, id MachineID) {
				rt.Assert(false, "invariant violated")
			})
		})
		report := driver.Run()

		require.Equal(t, 1, report.NumBugs)
		require.Contains(t, report.BugReports[0].Message, "Assertion failed")
		if withHandler {
			require.Equal(t, 1, calls)
		}
	}
}

func TestScheduler_UnhandledExceptionSurfacesViaOnFailure(t *testing.T) {
	var captured Failure
	cfg := NewConfig(WithIterations(1))
	cfg.OnFailure = func(f Failure) { captured = f }

	cause := fmt.Errorf("boom")
	driver := NewIterationDriver(&roundRobinStrategy{}, cfg, func(rt *Runtime) {
		rt.CreateMachine("m", func(rt *Runtime, id MachineID) {
			panic(cause)
		})
	})
	report := driver.Run()

	require.Equal(t, 1, report.NumBugs)
	require.Equal(t, FailureUnhandledException, captured.Kind)
	require.ErrorIs(t, captured.Err, cause)
}

func TestScheduler_StepBoundHitCounting(t *testing.T) {
	cfg := NewConfig(WithMaxUnfairSteps(5), WithIterations(1))
	driver := NewIterationDriver(&roundRobinStrategy{}, cfg, func(rt *Runtime) {
		rt.CreateMachine("m", func(rt *Runtime, id MachineID) {
			for {
				rt.Yield(id)
			}
		})
	})
	report := driver.Run()

	require.Equal(t, 0, report.NumBugs)
	require.Equal(t, 1, report.NumExploredUnfair)
	require.Equal(t, 1, report.MaxUnfairHitsInUnfair)
}

func TestScheduler_StepBoundAsBug(t *testing.T) {
	var captured Failure
	cfg := NewConfig(WithMaxUnfairSteps(5), WithIterations(1), WithDepthBoundAsBug(true))
	cfg.OnFailure = func(f Failure) { captured = f }

	driver := NewIterationDriver(&roundRobinStrategy{}, cfg, func(rt *Runtime) {
		rt.CreateMachine("m", func(rt *Runtime, id MachineID) {
			for {
				rt.Yield(id)
			}
		})
	})
	report := driver.Run()

	require.Equal(t, 1, report.NumBugs)
	require.Equal(t, FailureStepBound, captured.Kind)
}

// TestScheduler_MaxUnfairHitsInFair exercises a fair iteration that
// crosses MaxUnfairSteps on its way to completing naturally, well short
// of the much higher MaxFairSteps bound. This is the only way
// max_unfair_hits_in_fair can legitimately increment: it is independent
// of whichever bound actually governs the iteration's termination.
func TestScheduler_MaxUnfairHitsInFair(t *testing.T) {
	cfg := NewConfig(WithIterations(1), WithMaxUnfairSteps(3), WithMaxFairSteps(1000))
	driver := NewIterationDriver(&roundRobinStrategy{fair: true}, cfg, func(rt *Runtime) {
		rt.CreateMachine("m", func(rt *Runtime, id MachineID) {
			for i := 0; i < 5; i++ {
				rt.Yield(id)
			}
		})
	})
	report := driver.Run()

	require.Equal(t, 0, report.NumBugs)
	require.Equal(t, 1, report.NumExploredFair)
	require.Equal(t, 0, report.MaxFairHitsInFair)
	require.Equal(t, 1, report.MaxUnfairHitsInFair)
}

// TestScheduler_NotifyScheduledMachineTaskChanged exercises the re-key
// semantics directly: after the hand-off, the old WorkerHandle is no
// longer a valid scheduling point (treated as synchronization from
// outside the runtime's control) while the new handle resolves to the
// same machine and remains schedulable.
func TestScheduler_NotifyScheduledMachineTaskChanged(t *testing.T) {
	var failure Failure
	cfg := NewConfig(WithIterations(1))
	cfg.OnFailure = func(f Failure) { failure = f }
	sched := NewScheduler(&roundRobinStrategy{}, cfg)
	sched.NewRootWorker()

	oldWorker := sched.NewWorkerHandle()
	info := sched.NotifyNewTaskCreated(oldWorker, "m")

	newWorker := sched.NewWorkerHandle()
	sched.NotifyScheduledMachineTaskChanged(oldWorker, newWorker)

	_, stillOld := sched.infoForWorker(oldWorker)
	require.False(t, stillOld)
	got, ok := sched.infoForWorker(newWorker)
	require.True(t, ok)
	require.True(t, got.ID().Equal(info.ID()))
	require.Equal(t, newWorker, sched.workerForMachine(info.ID()))

	// the re-keyed handle is still a valid scheduling point: it is the
	// sole runnable machine, so this is a self-continuation and Schedule
	// returns normally rather than parking.
	sched.Schedule(newWorker)
	require.False(t, sched.BugFound())

	func() {
		defer func() { require.True(t, IsCancelled(recover())) }()
		sched.Schedule(oldWorker)
	}()
	require.Equal(t, FailureExternalSynchronization, failure.Kind)
}

// TestScheduler_SwitchSchedulingStrategy exercises the atomic-swap
// contract: SwitchSchedulingStrategy returns the previous strategy, and
// the very next scheduling decision is made by the new one.
func TestScheduler_SwitchSchedulingStrategy(t *testing.T) {
	sched := NewScheduler(&roundRobinStrategy{}, NewConfig(WithIterations(1)))
	sched.NewRootWorker()

	w1 := sched.NewWorkerHandle()
	sched.NotifyNewTaskCreated(w1, "m1") // bootstrap: hasStarted set automatically

	w2 := sched.NewWorkerHandle()
	m2 := sched.NotifyNewTaskCreated(w2, "m2")
	m2.hasStarted = true // runnable without driving a goroutine through park()

	w3 := sched.NewWorkerHandle()
	m3 := sched.NotifyNewTaskCreated(w3, "m3")
	m3.hasStarted = true

	old := sched.SwitchSchedulingStrategy(&highestIDStrategy{})
	_, ok := old.(*roundRobinStrategy)
	require.True(t, ok)

	// m1 completing drives a real hand-off through advanceLocked without
	// parking any goroutine (NotifyTaskCompleted never parks its caller).
	sched.NotifyTaskCompleted(w1)

	// roundRobinStrategy would have picked m2 (lowest remaining id); the
	// swapped-in highestIDStrategy picks m3, proving the swap took effect.
	require.True(t, sched.current.ID().Equal(m3.ID()))
}

func TestScheduler_IterationIsolation_DisposedRuntime(t *testing.T) {
	var captured *Runtime
	cfg := NewConfig(WithIterations(2))

	var secondIterationPanic any
	driver := NewIterationDriver(&roundRobinStrategy{}, cfg, func(rt *Runtime) {
		if captured == nil {
			captured = rt
			return
		}
		func() {
			defer func() { secondIterationPanic = recover() }()
			captured.Scheduler()
		}()
	})
	driver.Run()

	require.NotNil(t, secondIterationPanic)
	_, ok := secondIterationPanic.(*DisposedRuntimeError)
	require.True(t, ok)
}
