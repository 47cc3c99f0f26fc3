package actorsched

import (
	"fmt"
	"sync"
)

// Runtime is the per-iteration handle a test entry point uses to spawn
// machines and talk to that iteration's [Scheduler]. A Runtime from a
// previous iteration must never be reused: every method checks a disposed
// flag and raises [DisposedRuntimeError] if it has been.
//
// Modeled on the teacher package's pattern of a short-lived per-call
// context object (see eventloop's loop-scoped state) rather than a single
// long-lived object reused across calls.
type Runtime struct {
	iteration int
	scheduler *Scheduler

	mu       sync.Mutex
	disposed bool
	wg       sync.WaitGroup
}

func newRuntime(iteration int, scheduler *Scheduler) *Runtime {
	return &Runtime{iteration: iteration, scheduler: scheduler}
}

func (r *Runtime) checkDisposed() {
	r.mu.Lock()
	d := r.disposed
	r.mu.Unlock()
	if d {
		panic(&DisposedRuntimeError{Iteration: r.iteration})
	}
}

func (r *Runtime) dispose() {
	r.mu.Lock()
	r.disposed = true
	r.mu.Unlock()
}

// Scheduler returns the iteration's scheduler, for callers that need
// direct access to the lower-level choice APIs (GetNextBoolChoice etc.).
func (r *Runtime) Scheduler() *Scheduler {
	r.checkDisposed()
	return r.scheduler
}

// CreateMachine registers and launches a new machine, running fn on a
// fresh goroutine. fn receives the Runtime and the machine's own
// MachineID. CreateMachine blocks until the spawned goroutine has
// registered with the scheduler (mirroring WaitForTaskToStart), so that by
// the time CreateMachine returns the machine is a visible scheduling
// candidate.
func (r *Runtime) CreateMachine(name string, fn func(rt *Runtime, id MachineID)) MachineID {
	r.checkDisposed()
	worker := r.scheduler.NewWorkerHandle()
	info := r.scheduler.NotifyNewTaskCreated(worker, name)

	r.wg.Add(1)
	go r.runMachine(worker, info.ID(), fn)

	r.scheduler.WaitForTaskToStart(worker)
	return info.ID()
}

func (r *Runtime) runMachine(worker WorkerHandle, id MachineID, fn func(*Runtime, MachineID)) {
	defer r.wg.Done()
	defer func() {
		if v := recover(); v != nil && !IsCancelled(v) {
			err := toError(v)
			r.scheduler.fail(&UnhandledUserExceptionError{Cause: err}, FailureUnhandledException, true)
		}
		r.scheduler.NotifyTaskCompleted(worker)
	}()
	r.scheduler.NotifyTaskStarted(worker)
	fn(r, id)
}

func toError(v any) error {
	if err, ok := v.(error); ok {
		return err
	}
	return fmt.Errorf("%v", v)
}

// Yield is a voluntary scheduling point with no side effect beyond
// consulting the strategy. It is the runtime-level equivalent of the
// state-machine layer's internal "step to the next action".
func (r *Runtime) Yield(self MachineID) {
	r.checkDisposed()
	r.scheduler.Schedule(r.workerFor(self))
}

// BlockOnReceive marks self as waiting to receive, then yields. The
// caller is expected to have already set up whatever channel or queue it
// is waiting on; BlockOnReceive only updates scheduler bookkeeping.
func (r *Runtime) BlockOnReceive(self MachineID) {
	r.checkDisposed()
	worker := r.workerFor(self)
	r.scheduler.NotifyTaskBlockedOnEvent(worker)
	r.scheduler.Schedule(worker)
}

// ReceiveEvent clears self's waiting-to-receive flag. Call this once an
// event has actually been delivered to self, before resuming normal
// execution.
func (r *Runtime) ReceiveEvent(self MachineID) {
	r.checkDisposed()
	if info, ok := r.scheduler.infoForWorker(r.workerFor(self)); ok {
		r.scheduler.NotifyTaskReceivedEvent(info)
	}
}

// NotifyPeerReceivedEvent clears the waiting-to-receive flag of a machine
// other than the caller — for use when delivering an event to a peer that
// is parked in BlockOnReceive, as opposed to ReceiveEvent's self case.
func (r *Runtime) NotifyPeerReceivedEvent(id MachineID) {
	r.checkDisposed()
	if info, ok := r.scheduler.infoForWorker(r.workerFor(id)); ok {
		r.scheduler.NotifyTaskReceivedEvent(info)
	}
}

func (r *Runtime) workerFor(id MachineID) WorkerHandle {
	return r.scheduler.workerForMachine(id)
}

// NextBool is a convenience wrapper over Scheduler.GetNextBoolChoice.
func (r *Runtime) NextBool(self MachineID, maxValue int, uniqueID string) bool {
	r.checkDisposed()
	return r.scheduler.GetNextBoolChoice(r.workerFor(self), maxValue, uniqueID)
}

// NextInt is a convenience wrapper over Scheduler.GetNextIntChoice.
func (r *Runtime) NextInt(self MachineID, maxValue int) int {
	r.checkDisposed()
	return r.scheduler.GetNextIntChoice(r.workerFor(self), maxValue)
}

// Assert raises an assertion failure if cond is false, using the
// conventional "Assertion failed: ..." message framing.
func (r *Runtime) Assert(cond bool, format string, args ...any) {
	r.checkDisposed()
	if cond {
		return
	}
	r.scheduler.NotifyAssertionFailure("Assertion failed: " + fmt.Sprintf(format, args...))
	panic(errCancelled{})
}

// wait blocks until every machine spawned this iteration has returned (or
// been cancelled), then disposes the runtime.
func (r *Runtime) wait() {
	r.wg.Wait()
	r.dispose()
}

// IterationDriver runs an actor-model program under a [Scheduler] across
// multiple iterations, swapping in a fresh [Runtime] and [Scheduler] each
// time, and aggregating the results into a [TestReport].
//
// Modeled on the teacher package's event-loop run/drain pattern: a bounded
// driving loop that owns the lifecycle of per-run state, rather than a
// single object that is reused and must reset its own fields.
type IterationDriver struct {
	cfg      *Config
	strategy Strategy
	entry    func(rt *Runtime)
}

// NewIterationDriver builds a driver that will run entry once per
// iteration, per cfg and strategy. If cfg.Seed is set and strategy
// implements [Seedable], the seed is applied before the first iteration.
func NewIterationDriver(strategy Strategy, cfg *Config, entry func(rt *Runtime)) *IterationDriver {
	if cfg == nil {
		cfg = NewConfig()
	}
	if cfg.Seed != nil {
		if seedable, ok := strategy.(Seedable); ok {
			seedable.SeedWith(*cfg.Seed)
		}
	}
	return &IterationDriver{cfg: cfg, strategy: strategy, entry: entry}
}

// Run drives NumIterations iterations (or fewer, if the strategy reports
// HasFinished or a fatal bound is hit) and returns the aggregate report.
func (d *IterationDriver) Run() *TestReport {
	report := NewTestReport(d.cfg)

	for i := 0; i < d.cfg.NumIterations; i++ {
		if d.strategy.HasFinished() || d.strategy.MaxStepsReached() {
			break
		}

		sched := NewScheduler(d.strategy, d.cfg)
		rt := newRuntime(i, sched)
		sched.NewRootWorker()

		d.runIteration(i, sched, rt)

		fair := d.strategy.IsFair()
		exploredSteps := sched.ExploredSteps()
		unfairThresholdCrossed := d.cfg.MaxUnfairSteps > 0 && exploredSteps >= d.cfg.MaxUnfairSteps
		report.recordIteration(fair, exploredSteps, sched.StepBoundHit(), unfairThresholdCrossed)
		for _, b := range sched.Bugs() {
			report.recordBug(b)
			d.cfg.Logger.Log(LogEntry{
				Level:     LevelError,
				Category:  "report",
				Iteration: i,
				Message:   "bug found: " + b.Message,
			})
		}

		d.logIterationSummary(i, sched, fair, exploredSteps)

		d.strategy.ConfigureNextIteration()
	}

	return report
}

// logIterationSummary emits per-iteration progress through the Logger
// seam, gated on Config.Verbose: 0 (the default) logs nothing beyond the
// bug/report entries Run already emits, 1 logs a one-line summary per
// iteration, 2 additionally dumps the full schedule trace.
func (d *IterationDriver) logIterationSummary(i int, sched *Scheduler, fair bool, exploredSteps int) {
	if d.cfg.Verbose < 1 {
		return
	}
	d.cfg.Logger.Log(LogEntry{
		Level:     LevelInfo,
		Category:  "iteration",
		Iteration: i,
		Message:   "iteration complete",
		Fields: map[string]any{
			"fair":          fair,
			"exploredSteps": exploredSteps,
			"fullyExplored": sched.FullyExplored(),
			"stepBoundHit":  sched.StepBoundHit(),
			"strategy":      d.strategy.Description(),
		},
	})
	if d.cfg.Verbose < 2 {
		return
	}
	for _, e := range sched.Trace().Entries() {
		d.cfg.Logger.Log(LogEntry{
			Level:     LevelDebug,
			Category:  "trace",
			Iteration: i,
			Message:   "trace entry",
			Fields:    map[string]any{"entry": e},
		})
	}
}

func (d *IterationDriver) runIteration(i int, sched *Scheduler, rt *Runtime) {
	defer func() {
		if v := recover(); v != nil && !IsCancelled(v) {
			err := toError(v)
			sched.fail(&UnhandledUserExceptionError{Cause: err}, FailureUnhandledException, true)
		}
	}()
	defer sched.Stop()
	defer rt.wait()

	d.entry(rt)
}
