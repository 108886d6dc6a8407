// Package persistence implements PersistenceHook: the snapshot/restore
// boundary for ExecutionState. Memory is the default, in-process
// implementation; Bun (bun.go) is an opt-in Postgres-backed one.
package persistence

import (
	"sync"

	"github.com/flowcraft/corerun/internal/execstate"
)

type entry struct {
	snapshot execstate.Snapshot
	metadata map[string]any
}

// Memory is an in-memory PersistenceHook: the last snapshot per
// workflowID, nothing more. It is the natural choice for tests and
// embedding; an Engine built with a nil hook persists nothing.
type Memory struct {
	mu      sync.RWMutex
	entries map[string]entry
}

// NewMemory returns an empty Memory store.
func NewMemory() *Memory {
	return &Memory{entries: make(map[string]entry)}
}

// Persist stores the most recent snapshot for workflowID, overwriting
// any prior one.
func (m *Memory) Persist(workflowID string, snap execstate.Snapshot, metadata map[string]any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[workflowID] = entry{snapshot: snap, metadata: metadata}
}

// Recover returns the last snapshot persisted for workflowID, if any.
func (m *Memory) Recover(workflowID string) (execstate.Snapshot, map[string]any, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.entries[workflowID]
	if !ok {
		return execstate.Snapshot{}, nil, false
	}
	return e.snapshot, e.metadata, true
}
