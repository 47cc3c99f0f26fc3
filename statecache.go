package actorsched

// StateCacheHook is the opaque sink invoked at each step once the
// safety-prefix bound has been passed. It receives the most recent trace
// entry (the "trace head") and is otherwise unspecified by the scheduler:
// a real implementation might fingerprint program state for livelock
// detection via state revisiting.
type StateCacheHook interface {
	Capture(head TraceEntry)
}

// NopStateCache discards every capture. It is the default.
type NopStateCache struct{}

func (NopStateCache) Capture(TraceEntry) {}

// StateCacheFunc adapts a function to StateCacheHook.
type StateCacheFunc func(TraceEntry)

func (f StateCacheFunc) Capture(head TraceEntry) { f(head) }
