// Package planner computes topological execution waves from a
// dependency adjacency map, the DAGPlanner component of the engine.
package planner

import (
	"fmt"

	"github.com/flowcraft/corerun/internal/domain"
)

// Plan runs Kahn's algorithm (layer variant) over adjacency, a map of
// node name to the set of node names it depends on. It returns the
// waves in dependency order, or a domain.ErrCycleDetected error naming
// the nodes that could not be placed in any wave.
func Plan(adjacency map[string]map[string]struct{}) ([][]string, error) {
	indegree := make(map[string]int, len(adjacency))
	dependents := make(map[string][]string, len(adjacency))

	for name, deps := range adjacency {
		indegree[name] = len(deps)
		for dep := range deps {
			dependents[dep] = append(dependents[dep], name)
		}
	}

	remaining := make(map[string]int, len(indegree))
	for name, d := range indegree {
		remaining[name] = d
	}

	var waves [][]string
	placed := 0

	for placed < len(adjacency) {
		var wave []string
		for name, d := range remaining {
			if d == 0 {
				wave = append(wave, name)
			}
		}
		if len(wave) == 0 {
			break
		}
		for _, name := range wave {
			delete(remaining, name)
			placed++
			for _, child := range dependents[name] {
				if _, stillPending := remaining[child]; stillPending {
					remaining[child]--
				}
			}
		}
		waves = append(waves, wave)
	}

	if placed != len(adjacency) {
		var stuck []string
		for name := range remaining {
			stuck = append(stuck, name)
		}
		return nil, fmt.Errorf("%w: %v", domain.ErrCycleDetected, stuck)
	}

	return waves, nil
}
