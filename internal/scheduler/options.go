package scheduler

// Options carries the engine-wide tunables the core needs as a plain
// struct, mirroring the teacher's pkg/engine ExecutionOptions: the
// core engine package takes options as a value at construction, not a
// config file — ambient config layering belongs to the embedding
// service, not the core.
type Options struct {
	// MaxParallelExecutions caps how many nodes within one wave run
	// concurrently. 0 means unlimited (the whole wave dispatches at
	// once).
	MaxParallelExecutions int
}

// DefaultOptions returns the engine's default tunables: unlimited
// per-wave parallelism.
func DefaultOptions() Options {
	return Options{MaxParallelExecutions: 0}
}
