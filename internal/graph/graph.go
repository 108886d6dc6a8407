// Package graph owns the mutable node/link collection a workflow is
// authored as, and the adjacency indexes every other engine package
// queries against.
package graph

import (
	"fmt"
	"sync"

	"github.com/flowcraft/corerun/internal/domain"
)

// TypeAvailability is the slice of the NodeType registry Graph
// validation needs: whether a given type tag is currently registered.
// Satisfied by internal/registry.Registry without either package
// importing the other.
type TypeAvailability interface {
	Has(nodeType string) bool
}

// Graph is the triple (nodes-by-name, links-by-source, links-by-target)
// from the data model, plus the two adjacency indexes that keep both
// directions constant-time per port.
type Graph struct {
	mu sync.RWMutex

	nodes map[string]*domain.Node

	// bySource[node][port] -> links leaving that output port.
	bySource map[string]map[string][]*domain.Link
	// byTarget[node][port] -> links arriving at that input port, in
	// the order they were added (fan-in concatenation order).
	byTarget map[string]map[string][]*domain.Link
}

// New returns an empty Graph.
func New() *Graph {
	return &Graph{
		nodes:    make(map[string]*domain.Node),
		bySource: make(map[string]map[string][]*domain.Link),
		byTarget: make(map[string]map[string][]*domain.Link),
	}
}

// AddNode inserts node, failing if a node of the same name already exists.
func (g *Graph) AddNode(node *domain.Node) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, exists := g.nodes[node.Name]; exists {
		return fmt.Errorf("add node %q: %w", node.Name, domain.ErrNodeExists)
	}
	g.nodes[node.Name] = node
	g.bySource[node.Name] = make(map[string][]*domain.Link)
	g.byTarget[node.Name] = make(map[string][]*domain.Link)
	return nil
}

// Node looks up a node by name.
func (g *Graph) Node(name string) (*domain.Node, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	n, ok := g.nodes[name]
	return n, ok
}

// Nodes returns every node in the graph, in no particular order.
func (g *Graph) Nodes() []*domain.Node {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make([]*domain.Node, 0, len(g.nodes))
	for _, n := range g.nodes {
		out = append(out, n)
	}
	return out
}

// RemoveNode deletes a node and purges every link touching it from both
// adjacency indexes.
func (g *Graph) RemoveNode(name string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.removeNodeLocked(name)
}

func (g *Graph) removeNodeLocked(name string) {
	delete(g.nodes, name)
	delete(g.bySource, name)
	delete(g.byTarget, name)

	for srcNode, ports := range g.bySource {
		for port, links := range ports {
			filtered := links[:0]
			for _, l := range links {
				if l.Target != name {
					filtered = append(filtered, l)
				}
			}
			g.bySource[srcNode][port] = filtered
		}
	}
	for tgtNode, ports := range g.byTarget {
		for port, links := range ports {
			filtered := links[:0]
			for _, l := range links {
				if l.Source != name {
					filtered = append(filtered, l)
				}
			}
			g.byTarget[tgtNode][port] = filtered
		}
	}
}

// LinkNodes connects srcPort on src to dstPort on dst, failing with a
// domain.LinkError (wrapping domain.ErrLinkInvalid) if either endpoint
// or port is missing or the port dataType tags disagree. Duplicate
// identical links are permitted — fan-in treats repeats as multiple
// contributing values.
func (g *Graph) LinkNodes(src, srcPort, dst, dstPort string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	srcNode, ok := g.nodes[src]
	if !ok {
		return &domain.LinkError{Source: src, SourcePort: srcPort, Target: dst, TargetPort: dstPort, Reason: "source node not found"}
	}
	dstNode, ok := g.nodes[dst]
	if !ok {
		return &domain.LinkError{Source: src, SourcePort: srcPort, Target: dst, TargetPort: dstPort, Reason: "target node not found"}
	}
	out, ok := srcNode.OutputPort(srcPort)
	if !ok {
		return &domain.LinkError{Source: src, SourcePort: srcPort, Target: dst, TargetPort: dstPort, Reason: "source port not found"}
	}
	in, ok := dstNode.InputPort(dstPort)
	if !ok {
		return &domain.LinkError{Source: src, SourcePort: srcPort, Target: dst, TargetPort: dstPort, Reason: "target port not found"}
	}
	if out.DataType != in.DataType {
		return &domain.LinkError{Source: src, SourcePort: srcPort, Target: dst, TargetPort: dstPort, Reason: fmt.Sprintf("dataType mismatch: %s != %s", out.DataType, in.DataType)}
	}

	link := &domain.Link{Source: src, SourcePort: srcPort, Target: dst, TargetPort: dstPort, Kind: out.Kind}
	g.bySource[src][srcPort] = append(g.bySource[src][srcPort], link)
	g.byTarget[dst][dstPort] = append(g.byTarget[dst][dstPort], link)
	return nil
}

// IncomingLinks returns, in insertion order, every link feeding a given
// node's input port.
func (g *Graph) IncomingLinks(node, port string) []*domain.Link {
	g.mu.RLock()
	defer g.mu.RUnlock()
	links := g.byTarget[node][port]
	out := make([]*domain.Link, len(links))
	copy(out, links)
	return out
}

// Dependencies returns the set of distinct upstream node names that
// feed any input port of the given node — the adjacency map DAGPlanner
// consumes.
func (g *Graph) Dependencies(node string) map[string]struct{} {
	g.mu.RLock()
	defer g.mu.RUnlock()
	deps := make(map[string]struct{})
	for _, links := range g.byTarget[node] {
		for _, l := range links {
			deps[l.Source] = struct{}{}
		}
	}
	return deps
}

// AdjacencyFrom builds the dependency map DAGPlanner needs (node name ->
// set of node names it depends on) restricted to the given set of node
// names, so a trigger's unreachable peers never enter the computation.
func (g *Graph) AdjacencyFrom(names map[string]struct{}) map[string]map[string]struct{} {
	g.mu.RLock()
	defer g.mu.RUnlock()
	adj := make(map[string]map[string]struct{}, len(names))
	for name := range names {
		deps := make(map[string]struct{})
		for _, links := range g.byTarget[name] {
			for _, l := range links {
				if _, in := names[l.Source]; in {
					deps[l.Source] = struct{}{}
				}
			}
		}
		adj[name] = deps
	}
	return adj
}

// Reachable returns every node name reachable by following outgoing
// links from start (start included).
func (g *Graph) Reachable(start string) map[string]struct{} {
	g.mu.RLock()
	defer g.mu.RUnlock()

	seen := map[string]struct{}{start: {}}
	queue := []string{start}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, links := range g.bySource[cur] {
			for _, l := range links {
				if _, ok := seen[l.Target]; !ok {
					seen[l.Target] = struct{}{}
					queue = append(queue, l.Target)
				}
			}
		}
	}
	return seen
}

// ValidateNodeTypeAvailability reports every NodeType tag used in the
// graph that is not currently registered, each tag listed once.
func (g *Graph) ValidateNodeTypeAvailability(registry TypeAvailability) (valid bool, missingTypes []string) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	seen := make(map[string]struct{})
	for _, n := range g.nodes {
		if registry.Has(n.NodeType) {
			continue
		}
		if _, ok := seen[n.NodeType]; ok {
			continue
		}
		seen[n.NodeType] = struct{}{}
		missingTypes = append(missingTypes, n.NodeType)
	}
	return len(missingTypes) == 0, missingTypes
}

// RemoveNodesWithUnavailableTypes cascade-removes every node whose type
// is not registered, along with their incident links, returning the
// names removed.
func (g *Graph) RemoveNodesWithUnavailableTypes(registry TypeAvailability) []string {
	g.mu.Lock()
	defer g.mu.Unlock()

	var removed []string
	for name, n := range g.nodes {
		if !registry.Has(n.NodeType) {
			removed = append(removed, name)
		}
	}
	for _, name := range removed {
		g.removeNodeLocked(name)
	}
	return removed
}
