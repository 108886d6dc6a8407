// Package execstate implements ExecutionState: the single-run,
// per-node output map that is both the downstream-input source and a
// free-form lookup for any node, plus timing/status metadata.
package execstate

import (
	"sync"
	"time"

	"github.com/flowcraft/corerun/internal/domain"
)

// NodeTiming is the per-node timing/status record ExecutionState
// maintains in parallel with node outputs.
type NodeTiming struct {
	Status    domain.Status
	StartTime time.Time
	EndTime   time.Time
	Duration  time.Duration
}

// Snapshot is the structural form export/import hand to a
// PersistenceHook: both maps, stripped of the mutex.
type Snapshot struct {
	Outputs map[string]map[string]domain.PortValue
	Timing  map[string]NodeTiming
}

// ExecutionState is created empty at the start of each run, populated
// monotonically as nodes complete, and cleared when the next run
// starts. Each NodeRunner writes its own node's entries as that node
// finishes, and an internal lock serializes those writes; any
// NodeRunner's process may read prior outputs through the
// domain.StateView it implements.
type ExecutionState struct {
	mu      sync.RWMutex
	outputs map[string]map[string]domain.PortValue
	timing  map[string]NodeTiming
}

// New returns an empty ExecutionState.
func New() *ExecutionState {
	return &ExecutionState{
		outputs: make(map[string]map[string]domain.PortValue),
		timing:  make(map[string]NodeTiming),
	}
}

// RecordNodeStart sets startTime = now and status = Running for node.
func (es *ExecutionState) RecordNodeStart(name string) {
	es.mu.Lock()
	defer es.mu.Unlock()
	es.timing[name] = NodeTiming{Status: domain.StatusRunning, StartTime: time.Now()}
}

// RecordNodeEnd sets endTime = now, duration, and status for node.
func (es *ExecutionState) RecordNodeEnd(name string, status domain.Status) {
	es.mu.Lock()
	defer es.mu.Unlock()
	t := es.timing[name]
	t.Status = status
	t.EndTime = time.Now()
	if !t.StartTime.IsZero() {
		t.Duration = t.EndTime.Sub(t.StartTime)
	}
	es.timing[name] = t
}

// Timing returns the timing/status record for a node.
func (es *ExecutionState) Timing(name string) (NodeTiming, bool) {
	es.mu.RLock()
	defer es.mu.RUnlock()
	t, ok := es.timing[name]
	return t, ok
}

// SetNodeOutput writes the node's port -> value map, replacing any
// prior contents for that node.
func (es *ExecutionState) SetNodeOutput(name string, output map[string]domain.PortValue) {
	es.mu.Lock()
	defer es.mu.Unlock()
	es.outputs[name] = output
}

// NodeOutput implements domain.StateView.
func (es *ExecutionState) NodeOutput(name string) (map[string]domain.PortValue, bool) {
	es.mu.RLock()
	defer es.mu.RUnlock()
	out, ok := es.outputs[name]
	return out, ok
}

// NodeOutputPort implements domain.StateView: it reads a single port
// of a node's output, applying the length-one collapse for ergonomic
// single-value reads described in spec §9's Open Question 3.
func (es *ExecutionState) NodeOutputPort(name, port string) (any, bool) {
	es.mu.RLock()
	defer es.mu.RUnlock()
	nodeOut, ok := es.outputs[name]
	if !ok {
		return nil, false
	}
	v, ok := nodeOut[port]
	if !ok {
		return nil, false
	}
	return v.Single(), true
}

// RawOutputPort returns the uncollapsed PortValue list for one output
// port of a node — the form NodeRunner needs for fan-in concatenation,
// as opposed to NodeOutputPort's single-record-collapsed form.
func (es *ExecutionState) RawOutputPort(name, port string) (domain.PortValue, bool) {
	es.mu.RLock()
	defer es.mu.RUnlock()
	nodeOut, ok := es.outputs[name]
	if !ok {
		return nil, false
	}
	v, ok := nodeOut[port]
	return v, ok
}

// Export returns a structural snapshot of both maps for the
// persistence hook.
func (es *ExecutionState) Export() Snapshot {
	es.mu.RLock()
	defer es.mu.RUnlock()
	outputs := make(map[string]map[string]domain.PortValue, len(es.outputs))
	for node, ports := range es.outputs {
		cp := make(map[string]domain.PortValue, len(ports))
		for port, v := range ports {
			cp[port] = v
		}
		outputs[node] = cp
	}
	timing := make(map[string]NodeTiming, len(es.timing))
	for k, v := range es.timing {
		timing[k] = v
	}
	return Snapshot{Outputs: outputs, Timing: timing}
}

// Import replaces both maps with the contents of a prior snapshot.
func (es *ExecutionState) Import(snap Snapshot) {
	es.mu.Lock()
	defer es.mu.Unlock()
	es.outputs = snap.Outputs
	es.timing = snap.Timing
	if es.outputs == nil {
		es.outputs = make(map[string]map[string]domain.PortValue)
	}
	if es.timing == nil {
		es.timing = make(map[string]NodeTiming)
	}
}

// Clear fully resets the state for the next run.
func (es *ExecutionState) Clear() {
	es.mu.Lock()
	defer es.mu.Unlock()
	es.outputs = make(map[string]map[string]domain.PortValue)
	es.timing = make(map[string]NodeTiming)
}
