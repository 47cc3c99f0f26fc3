package actorsched

import (
	"fmt"
)

// AssertionFailureError is a user or runtime invariant violation. It is
// fatal to the iteration in which it occurs and is recorded in the
// [TestReport] as a bug. Message is used verbatim as the error text —
// callers that want the conventional "Assertion failed: ..." framing
// (e.g. [Runtime.Assert]) format it in before raising the failure, since
// other callers (livelock detection, machine-layer faults surfaced
// through NotifyAssertionFailure) supply their own, differently shaped
// canonical text.
type AssertionFailureError struct {
	Message string
}

func (e *AssertionFailureError) Error() string {
	return e.Message
}

// LivelockError is a specialization of AssertionFailureError reported when
// some machine is waiting to receive an event while no other machine is
// runnable.
type LivelockError struct {
	*AssertionFailureError
	MachineID MachineID
}

func (e *LivelockError) Unwrap() error {
	return e.AssertionFailureError
}

func newLivelockError(id MachineID) *LivelockError {
	return &LivelockError{
		AssertionFailureError: &AssertionFailureError{
			Message: fmt.Sprintf("Livelock detected. Machine '%s' is waiting for an event, but no other machine is enabled.", id),
		},
		MachineID: id,
	}
}

// ExternalSynchronizationError is reported when a worker not registered
// with the scheduler calls into it — the scheduler's serialization
// invariant has been broken by code synchronizing outside its control.
type ExternalSynchronizationError struct{}

func (e *ExternalSynchronizationError) Error() string {
	return "synchronization not controlled by the runtime"
}

// StepBoundReachedError is reported when a configured fair or unfair step
// bound is hit and the scheduler is configured to treat that as a bug.
type StepBoundReachedError struct {
	Fair  bool
	Bound int
}

func (e *StepBoundReachedError) Error() string {
	kind := "unfair"
	if e.Fair {
		kind = "fair"
	}
	return fmt.Sprintf("reached the configured %s step bound (%d)", kind, e.Bound)
}

// UnhandledUserExceptionError wraps a panic value that escaped a machine
// action. The original cause is reachable via Unwrap.
type UnhandledUserExceptionError struct {
	Cause error
}

func (e *UnhandledUserExceptionError) Error() string {
	return "unhandled exception: " + e.Cause.Error()
}

func (e *UnhandledUserExceptionError) Unwrap() error {
	return e.Cause
}

// DisposedRuntimeError is reported when a [Runtime] from a prior iteration
// is used after that iteration has ended (including Runtime.Scheduler). A
// *Scheduler reference retained from that iteration is not checked.
type DisposedRuntimeError struct {
	Iteration int
}

func (e *DisposedRuntimeError) Error() string {
	return fmt.Sprintf("use of runtime from a disposed iteration (iteration %d)", e.Iteration)
}

// errCancelled is the internal control-flow signal used to unwind a
// machine's worker goroutine. It is never surfaced to callers: every
// goroutine the driver spawns installs a deferred recover for it at the
// top of its call stack. See [Scheduler.Schedule] and the driver's
// runMachine wrapper.
type errCancelled struct{}

func (errCancelled) Error() string { return "execution cancelled" }

// IsCancelled reports whether the recovered value v is the internal
// cancellation signal itself; a value that merely wraps it is not matched. Exposed only so a caller's own recover-based wrapper can
// distinguish "the scheduler cancelled me" from a genuine panic, without
// needing to import unexported types.
func IsCancelled(v any) bool {
	_, ok := v.(errCancelled)
	return ok
}

// WrapError mirrors the teacher package's cause-chain helper: it wraps an
// error with a message while keeping errors.Is/errors.As working against
// the original cause.
func WrapError(message string, cause error) error {
	return fmt.Errorf("%s: %w", message, cause)
}
