// Package actorsched implements a serialized, strategy-driven scheduler for
// actor-style state machines.
//
// The scheduler forces all machine activity onto a single logical
// execution at a time: at every scheduling point exactly one goroutine
// ("worker") runs user code, all others park on a per-machine token
// channel. A pluggable [Strategy] is consulted at each hand-off and at
// each nondeterministic choice, so that repeated iterations of the same
// program can explore different interleavings and nondeterministic
// choices in search of assertion failures, livelocks, and unhandled
// events.
//
// The state-machine semantic layer itself (states, transitions, inboxes,
// handler dispatch) is out of scope: callers drive the [Scheduler]
// directly from their own machine goroutines via the notification methods
// documented on [Scheduler].
package actorsched
