// Package registry implements the NodeType registry: the consumed
// interface Graph validation and workflow import/export use to check
// which node types are currently available. It is not consulted on
// the hot execution path.
package registry

import (
	"fmt"
	"sync"

	"github.com/flowcraft/corerun/internal/domain"
)

// NewProcessor builds a Processor from a node's resolved configuration.
// Concrete node bodies (HTTP, code runner, ...) are external
// collaborators; the registry only needs their construction entry
// point.
type NewProcessor func(config map[string]any) (domain.Processor, error)

// NodeType is one registrable node kind: a name, a version, and the
// factory that builds a Processor for it.
type NodeType struct {
	Name    string
	Version int
	New     NewProcessor
}

// Registry is the thread-safe byName/byVersion store node types
// register into.
type Registry struct {
	mu       sync.RWMutex
	byName   map[string]map[int]*NodeType
	latest   map[string]int
	byPlugin map[string][]string // pluginKey -> node type names it registered
}

// New returns an empty Registry.
func New() *Registry {
	return &Registry{
		byName:   make(map[string]map[int]*NodeType),
		latest:   make(map[string]int),
		byPlugin: make(map[string][]string),
	}
}

// Get returns the NodeType registered under name. version == 0 selects
// the highest registered version.
func (r *Registry) Get(name string, version int) (*NodeType, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	versions, ok := r.byName[name]
	if !ok {
		return nil, false
	}
	if version == 0 {
		version = r.latest[name]
	}
	nt, ok := versions[version]
	return nt, ok
}

// Has reports whether any version of name is registered. It is the
// sole method graph.TypeAvailability requires.
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.byName[name]
	return ok
}

// Register adds a NodeType, failing if that exact name+version pair is
// already registered.
func (r *Registry) Register(nt *NodeType) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.registerLocked(nt)
}

func (r *Registry) registerLocked(nt *NodeType) error {
	versions, ok := r.byName[nt.Name]
	if !ok {
		versions = make(map[int]*NodeType)
		r.byName[nt.Name] = versions
	}
	if _, exists := versions[nt.Version]; exists {
		return fmt.Errorf("register node type %s v%d: already registered", nt.Name, nt.Version)
	}
	versions[nt.Version] = nt
	if nt.Version > r.latest[nt.Name] {
		r.latest[nt.Name] = nt.Version
	}
	return nil
}

// RegisterFromPlugin registers every type a plugin contributes, tagged
// under pluginKey so UnregisterFromPlugin can later remove those type
// names on hot-unload.
func (r *Registry) RegisterFromPlugin(pluginKey string, types []*NodeType) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, nt := range types {
		if err := r.registerLocked(nt); err != nil {
			return err
		}
		r.byPlugin[pluginKey] = append(r.byPlugin[pluginKey], nt.Name)
	}
	return nil
}

// UnregisterFromPlugin removes every type name previously registered
// through RegisterFromPlugin under pluginKey. All versions of such a
// name are removed, including versions registered through Register.
func (r *Registry) UnregisterFromPlugin(pluginKey string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, name := range r.byPlugin[pluginKey] {
		delete(r.byName, name)
		delete(r.latest, name)
	}
	delete(r.byPlugin, pluginKey)
}
