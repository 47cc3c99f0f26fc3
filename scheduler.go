package actorsched

import (
	"sort"
	"sync"
)

// Scheduler is the serialization engine: it forces all machine activity
// onto one logical execution at a time, consults a [Strategy] at every
// hand-off and nondeterministic choice, records a [ScheduleTrace], and
// enforces termination, cancellation, fairness bounds, and deadlock
// detection.
//
// A Scheduler is scoped to exactly one iteration. [IterationDriver]
// creates a fresh Scheduler per iteration.
type Scheduler struct {
	cfg      *Config
	strategy Strategy
	trace    *ScheduleTrace

	mu               sync.Mutex
	infos            map[uint64]*MachineInfo
	taskMap          map[WorkerHandle]*MachineInfo
	order            []uint64 // machine ids in creation order, for sorted candidate lists
	nextMachineValue uint64
	nextWorker       WorkerHandle
	root             WorkerHandle
	rootAssigned     bool

	current *MachineInfo
	running bool

	stepCount        int
	fullyExplored    bool
	stepBoundHit     bool

	bugFound   bool
	bugs       []BugReport
	failureKind FailureKind

	doneOnce sync.Once
	doneCh   chan struct{}
}

// NewScheduler creates a Scheduler bound to the given strategy and
// configuration. A nil cfg is replaced by the defaults of [NewConfig].
func NewScheduler(strategy Strategy, cfg *Config) *Scheduler {
	if cfg == nil {
		cfg = NewConfig()
	}
	return &Scheduler{
		cfg:      cfg,
		strategy: strategy,
		trace:    NewScheduleTrace(),
		infos:    make(map[uint64]*MachineInfo),
		taskMap:  make(map[WorkerHandle]*MachineInfo),
		running:  true,
		doneCh:   make(chan struct{}),
	}
}

// Trace returns the schedule trace accumulated so far.
func (s *Scheduler) Trace() *ScheduleTrace { return s.trace }

// NewRootWorker allocates the handle for the driver's own (non-machine)
// worker: Schedule calls from this handle are no-ops, per spec.md §4.2.
func (s *Scheduler) NewRootWorker() WorkerHandle {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.root = s.allocWorkerLocked()
	s.rootAssigned = true
	return s.root
}

// NewWorkerHandle allocates a fresh, runtime-local worker handle. Callers
// spawn one goroutine per machine and register it under the handle
// returned here.
func (s *Scheduler) NewWorkerHandle() WorkerHandle {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.allocWorkerLocked()
}

func (s *Scheduler) allocWorkerLocked() WorkerHandle {
	s.nextWorker++
	return s.nextWorker
}

// NotifyNewTaskCreated registers a new machine under worker, assigning it
// a dense MachineID in creation order. If this is the very first machine
// registered, it is marked active and started immediately so the
// bootstrap worker may proceed without waiting to be scheduled in.
func (s *Scheduler) NotifyNewTaskCreated(worker WorkerHandle, name string) *MachineInfo {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextMachineValue++
	id := MachineID{Value: s.nextMachineValue, Name: name}
	info := newMachineInfo(id, worker)

	s.infos[id.Value] = info
	s.taskMap[worker] = info
	s.order = append(s.order, id.Value)

	if len(s.infos) == 1 {
		info.isActive = true
		info.hasStarted = true
		info.markStarted()
		s.current = info
	}
	return info
}

// NotifyTaskStarted is called from inside a newly spawned worker before it
// runs user code. It marks the machine started, unblocks any
// WaitForTaskToStart caller, then parks until granted the turn. On wake,
// if the machine has been disabled it panics the cancellation signal.
func (s *Scheduler) NotifyTaskStarted(worker WorkerHandle) {
	s.mu.Lock()
	info, ok := s.taskMap[worker]
	if !ok {
		s.mu.Unlock()
		s.fail(&ExternalSynchronizationError{}, FailureExternalSynchronization, true)
		panic(errCancelled{})
	}
	alreadyActive := info.isActive
	info.hasStarted = true
	info.markStarted()
	s.mu.Unlock()

	if alreadyActive {
		return
	}
	info.park()
	s.mu.Lock()
	enabled := info.isEnabled
	s.mu.Unlock()
	if !enabled {
		panic(errCancelled{})
	}
}

// WaitForTaskToStart blocks the calling (creator) goroutine until the
// machine registered under worker has registered and parked for its first
// turn. If worker is the only machine registered so far, it short-circuits
// immediately.
func (s *Scheduler) WaitForTaskToStart(worker WorkerHandle) {
	s.mu.Lock()
	info, ok := s.taskMap[worker]
	if !ok {
		s.mu.Unlock()
		return
	}
	onlyOne := len(s.infos) == 1
	s.mu.Unlock()
	if onlyOne {
		return
	}
	<-info.started
}

// NotifyTaskBlockedOnEvent marks worker's machine as waiting to receive an
// event. It does not itself yield — the caller is expected to then call
// Schedule.
func (s *Scheduler) NotifyTaskBlockedOnEvent(worker WorkerHandle) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if info, ok := s.taskMap[worker]; ok {
		info.isWaitingToReceive = true
	}
}

// NotifyTaskReceivedEvent clears the waiting-to-receive flag on the given
// machine.
func (s *Scheduler) NotifyTaskReceivedEvent(info *MachineInfo) {
	s.mu.Lock()
	defer s.mu.Unlock()
	info.isWaitingToReceive = false
}

// NotifyScheduledMachineTaskChanged re-keys a machine's TaskMap entry when
// its execution crosses an asynchronous boundary onto a new worker
// (spec.md §9, open question 2): the simplest deterministic trigger is the
// first scheduling point after the continuation resumes, which callers
// achieve by calling this immediately before that point.
func (s *Scheduler) NotifyScheduledMachineTaskChanged(oldWorker, newWorker WorkerHandle) {
	s.mu.Lock()
	defer s.mu.Unlock()
	info, ok := s.taskMap[oldWorker]
	if !ok {
		return
	}
	delete(s.taskMap, oldWorker)
	info.worker = newWorker
	s.taskMap[newWorker] = info
}

// NotifyTaskCompleted marks worker's machine completed and disabled, hands
// off the turn to another runnable machine, and removes worker from the
// TaskMap. Unlike Schedule, the completing worker is never parked — it is
// exiting and must not wait to be rescheduled.
func (s *Scheduler) NotifyTaskCompleted(worker WorkerHandle) {
	s.mu.Lock()
	info, ok := s.taskMap[worker]
	if !ok {
		s.mu.Unlock()
		return
	}
	info.isCompleted = true
	info.isEnabled = false
	if s.running {
		s.advanceLocked(info, false)
	}
	delete(s.taskMap, worker)
	s.mu.Unlock()
}

// Schedule is called by whichever worker is currently running, at every
// scheduling point. See spec.md §4.2 for the full contract.
func (s *Scheduler) Schedule(worker WorkerHandle) {
	s.mu.Lock()
	if s.rootAssigned && worker == s.root {
		s.mu.Unlock()
		return
	}
	info, ok := s.taskMap[worker]
	if !ok {
		s.mu.Unlock()
		s.fail(&ExternalSynchronizationError{}, FailureExternalSynchronization, true)
		panic(errCancelled{})
	}
	if !s.running {
		s.stopLocked()
		s.mu.Unlock()
		panic(errCancelled{})
	}
	if s.stepBoundExceededLocked() {
		s.handleStepBoundLocked()
		s.mu.Unlock()
		panic(errCancelled{})
	}

	parkSelf := s.advanceLocked(info, true)
	enabled := info.isEnabled
	s.mu.Unlock()

	if parkSelf {
		info.park()
		s.mu.Lock()
		enabled = info.isEnabled
		s.mu.Unlock()
	}
	if !enabled {
		panic(errCancelled{})
	}
}

// advanceLocked implements the shared core of Schedule and
// NotifyTaskCompleted's hand-off: it asks the strategy for the next
// runnable machine, records the choice, runs the state-cache and liveness
// hooks, and flips the active flags. It must be called with s.mu held,
// and must not be called after stopLocked.
//
// If mayParkCaller is true and the next machine differs from caller, it
// returns true to tell Schedule to park caller's goroutine. When caller is
// already completed (NotifyTaskCompleted's hand-off), mayParkCaller is
// false and advanceLocked never asks the caller to park — it only wakes
// the chosen next machine, since the caller's goroutine is exiting.
func (s *Scheduler) advanceLocked(caller *MachineInfo, mayParkCaller bool) bool {
	runnable := s.runnableLocked()
	next, ok := s.strategy.TryGetNext(runnable, caller)
	if !ok {
		if waiter := s.firstWaitingToReceiveLocked(); waiter != nil && len(runnable) == 0 {
			s.mu.Unlock()
			s.fail(newLivelockError(waiter.ID()), FailureLivelock, true)
			s.mu.Lock()
			return false
		}
		s.fullyExplored = true
		s.stopLocked()
		return false
	}

	s.current = next
	s.trace.append(TraceEntry{Kind: ScheduleChoiceKind, MachineID: next.ID()})
	next.programCounter = 0
	s.stepCount++

	s.runHooksLocked()

	if next == caller {
		return false
	}
	if caller != nil {
		caller.isActive = false
	}
	next.isActive = true
	next.wake()
	return mayParkCaller
}

// runnableLocked returns the candidate set for TryGetNext: enabled,
// started, not completed, not waiting-to-receive machines, sorted by
// MachineID for determinism. Must be called with s.mu held.
func (s *Scheduler) runnableLocked() []*MachineInfo {
	out := make([]*MachineInfo, 0, len(s.order))
	for _, v := range s.order {
		info := s.infos[v]
		if info.runnable() {
			out = append(out, info)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].id.Value < out[j].id.Value })
	return out
}

// firstWaitingToReceiveLocked returns, in MachineID order, the first
// enabled machine blocked on a receive, or nil. Must be called with s.mu
// held.
func (s *Scheduler) firstWaitingToReceiveLocked() *MachineInfo {
	for _, v := range s.order {
		info := s.infos[v]
		if info.isEnabled && !info.isCompleted && info.isWaitingToReceive {
			return info
		}
	}
	return nil
}

func (s *Scheduler) stepBoundExceededLocked() bool {
	if s.strategy.IsFair() {
		return s.cfg.MaxFairSteps > 0 && s.stepCount >= s.cfg.MaxFairSteps
	}
	return s.cfg.MaxUnfairSteps > 0 && s.stepCount >= s.cfg.MaxUnfairSteps
}

func (s *Scheduler) handleStepBoundLocked() {
	s.stepBoundHit = true
	bound := s.cfg.MaxUnfairSteps
	if s.strategy.IsFair() {
		bound = s.cfg.MaxFairSteps
	}
	if s.cfg.ConsiderDepthBoundHitAsBug {
		s.mu.Unlock()
		s.fail(&StepBoundReachedError{Fair: s.strategy.IsFair(), Bound: bound}, FailureStepBound, true)
		s.mu.Lock()
		return
	}
	s.stopLocked()
}

// runHooksLocked invokes the state-cache hook (when enabled and past the
// safety-prefix bound) and the liveness hook. Must be called with s.mu
// held; it releases s.mu while the hooks run, so that a hook may call back
// into the scheduler (e.g. NotifyAssertionFailure), and re-acquires it
// before returning. The hooks run synchronously on the calling worker,
// matching the teacher package's pattern of invoking cross-cutting hooks
// from the hot path.
func (s *Scheduler) runHooksLocked() {
	capture := s.cfg.CacheProgramState && s.cfg.SafetyPrefixBound <= s.stepCount
	head, hasHead := s.trace.Head()
	s.mu.Unlock()
	if capture && hasHead {
		s.cfg.StateCache.Capture(head)
	}
	s.cfg.Liveness.CheckAtSchedulingStep()
	s.mu.Lock()
}

// GetNextBoolChoice is called at a nondeterministic boolean branch. When
// uniqueID is non-empty, the choice is recorded as a fair bool choice.
func (s *Scheduler) GetNextBoolChoice(worker WorkerHandle, maxValue int, uniqueID string) bool {
	return s.nextChoice(worker, func() (TraceEntry, bool) {
		v, ok := s.strategy.NextBool(maxValue)
		if !ok {
			return TraceEntry{}, false
		}
		kind := BoolChoiceKind
		if uniqueID != "" {
			kind = FairBoolChoiceKind
		}
		return TraceEntry{Kind: kind, BoolValue: v, UniqueID: uniqueID}, true
	}).BoolValue
}

// GetNextIntChoice is called at a nondeterministic integer branch.
func (s *Scheduler) GetNextIntChoice(worker WorkerHandle, maxValue int) int {
	return s.nextChoice(worker, func() (TraceEntry, bool) {
		v, ok := s.strategy.NextInt(maxValue)
		if !ok {
			return TraceEntry{}, false
		}
		return TraceEntry{Kind: IntChoiceKind, IntValue: v}, true
	}).IntValue
}

func (s *Scheduler) nextChoice(worker WorkerHandle, draw func() (TraceEntry, bool)) TraceEntry {
	s.mu.Lock()
	info, ok := s.taskMap[worker]
	if !ok {
		s.mu.Unlock()
		s.fail(&ExternalSynchronizationError{}, FailureExternalSynchronization, true)
		panic(errCancelled{})
	}
	if !s.running {
		s.stopLocked()
		s.mu.Unlock()
		panic(errCancelled{})
	}
	if s.stepBoundExceededLocked() {
		s.handleStepBoundLocked()
		s.mu.Unlock()
		panic(errCancelled{})
	}

	entry, ok := draw()
	if !ok {
		s.fullyExplored = true
		s.stopLocked()
		s.mu.Unlock()
		panic(errCancelled{})
	}
	s.trace.append(entry)
	info.programCounter++
	s.stepCount++
	s.runHooksLocked()
	s.mu.Unlock()
	return entry
}

// NotifyAssertionFailure records a bug the first time it is called in an
// iteration; subsequent calls are no-ops (first call wins). By default,
// and whenever killTasks is true, it also stops the scheduler.
func (s *Scheduler) NotifyAssertionFailure(text string, killTasks ...bool) {
	kill := true
	if len(killTasks) > 0 {
		kill = killTasks[0]
	}
	s.fail(&AssertionFailureError{Message: text}, FailureAssertion, kill)
}

func (s *Scheduler) fail(err error, kind FailureKind, stop bool) {
	s.mu.Lock()
	if s.bugFound {
		s.mu.Unlock()
		return
	}
	s.bugFound = true
	s.failureKind = kind
	report := BugReport{
		Message:             err.Error(),
		Trace:               s.trace.Entries(),
		StrategyDescription: s.strategy.Description(),
	}
	s.bugs = append(s.bugs, report)
	logger := s.cfg.Logger
	s.mu.Unlock()

	logger.Log(LogEntry{
		Level:    LevelError,
		Category: "bug",
		Message:  err.Error(),
		Fields:   map[string]any{"kind": kind.String(), "strategy": report.StrategyDescription},
		Err:      err,
	})
	if s.cfg.OnFailure != nil {
		s.cfg.OnFailure(Failure{Kind: kind, Err: err})
	}
	if stop {
		s.mu.Lock()
		s.stopLocked()
		s.mu.Unlock()
	}
}

// Stop halts the scheduler: every remaining machine is marked disabled,
// every parking token is fired so sleeping workers wake and observe
// disablement, and the done signal is fired.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	s.stopLocked()
	s.mu.Unlock()
}

func (s *Scheduler) stopLocked() {
	if !s.running {
		return
	}
	s.running = false
	for _, v := range s.order {
		info := s.infos[v]
		info.isEnabled = false
		info.isActive = true // force out of park, regardless of prior state
		info.wake()
	}
	s.doneOnce.Do(func() { close(s.doneCh) })
}

// Wait blocks until the scheduler has stopped. Idempotent and safe to
// call multiple times or concurrently.
func (s *Scheduler) Wait() {
	<-s.doneCh
}

// workerForMachine looks up the current WorkerHandle registered for id.
func (s *Scheduler) workerForMachine(id MachineID) WorkerHandle {
	s.mu.Lock()
	defer s.mu.Unlock()
	if info, ok := s.infos[id.Value]; ok {
		return info.worker
	}
	return 0
}

// infoForWorker looks up the MachineInfo registered under worker, if any.
func (s *Scheduler) infoForWorker(worker WorkerHandle) (*MachineInfo, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	info, ok := s.taskMap[worker]
	return info, ok
}

// SwitchSchedulingStrategy atomically swaps in a new strategy, returning
// the previous one.
func (s *Scheduler) SwitchSchedulingStrategy(next Strategy) Strategy {
	s.mu.Lock()
	defer s.mu.Unlock()
	old := s.strategy
	s.strategy = next
	return old
}

// BugFound reports whether any bug has been recorded this iteration.
func (s *Scheduler) BugFound() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.bugFound
}

// Bugs returns the bug reports recorded this iteration.
func (s *Scheduler) Bugs() []BugReport {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]BugReport, len(s.bugs))
	copy(out, s.bugs)
	return out
}

// FullyExplored reports whether the current schedule ran to exhaustion
// (the strategy returned ok=false with no livelock).
func (s *Scheduler) FullyExplored() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fullyExplored
}

// StepBoundHit reports whether a configured step bound was hit this
// iteration.
func (s *Scheduler) StepBoundHit() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stepBoundHit
}

// ExploredSteps returns the number of scheduling/choice steps taken this
// iteration.
func (s *Scheduler) ExploredSteps() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stepCount
}
