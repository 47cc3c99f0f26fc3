package strategy

import (
	"fmt"

	"github.com/driftlock/actorsched"
)

// Replay deterministically re-drives a previously recorded
// [actorsched.ScheduleTrace]: each call consumes the next recorded entry
// and returns the same decision as the original run. If the live run
// diverges from the recording (the next entry's machine is no longer
// runnable, or the recording runs out early), Replay reports exhaustion
// (ok=false) rather than guessing — a divergent replay is not a faithful
// reproduction and should surface as "schedule explored" rather than
// silently continuing on a different path.
type Replay struct {
	entries []actorsched.TraceEntry
	pos     int

	finished bool
}

// NewReplay returns a Replay strategy that reproduces entries exactly
// once. HasFinished reports true after that single iteration completes.
func NewReplay(entries []actorsched.TraceEntry) *Replay {
	cp := make([]actorsched.TraceEntry, len(entries))
	copy(cp, entries)
	return &Replay{entries: cp}
}

func (r *Replay) take(kind actorsched.ChoiceKind) (actorsched.TraceEntry, bool) {
	if r.pos >= len(r.entries) {
		return actorsched.TraceEntry{}, false
	}
	e := r.entries[r.pos]
	if e.Kind != kind {
		return actorsched.TraceEntry{}, false
	}
	r.pos++
	return e, true
}

func (r *Replay) TryGetNext(runnable []*actorsched.MachineInfo, _ *actorsched.MachineInfo) (*actorsched.MachineInfo, bool) {
	e, ok := r.take(actorsched.ScheduleChoiceKind)
	if !ok {
		return nil, false
	}
	for _, m := range runnable {
		if m.ID().Equal(e.MachineID) {
			return m, true
		}
	}
	return nil, false
}

func (r *Replay) NextBool(int) (bool, bool) {
	e, ok := r.take(actorsched.BoolChoiceKind)
	if !ok {
		e, ok = r.take(actorsched.FairBoolChoiceKind)
	}
	if !ok {
		return false, false
	}
	return e.BoolValue, true
}

func (r *Replay) NextInt(int) (int, bool) {
	e, ok := r.take(actorsched.IntChoiceKind)
	if !ok {
		return 0, false
	}
	return e.IntValue, true
}

func (r *Replay) ExploredSteps() int    { return r.pos }
func (r *Replay) MaxStepsReached() bool { return r.pos >= len(r.entries) }
func (r *Replay) IsFair() bool          { return false }
func (r *Replay) HasFinished() bool     { return r.finished }

func (r *Replay) ConfigureNextIteration() {
	r.finished = true
	r.pos = 0
}

func (r *Replay) Reset() {
	r.pos = 0
	r.finished = false
}

func (r *Replay) Description() string {
	return fmt.Sprintf("replay(entries=%d, pos=%d)", len(r.entries), r.pos)
}
