package domain

import (
	"fmt"
	"sort"
	"strings"
)

// TopologicalSort orders all nodes so that every execution edge points forward.
// Data edges are ignored. Among nodes that are ready at the same time the smallest id comes first,
// which makes the order deterministic.
func (g *Graph) TopologicalSort() ([]string, error) {
	inDegree := make(map[string]int, len(g.order))
	adj := make(map[string][]string, len(g.order))
	for _, id := range g.order {
		inDegree[id] = 0
	}
	for _, e := range g.edges {
		if e.Kind != EdgeExecution {
			continue
		}
		adj[e.Source] = append(adj[e.Source], e.Target)
		inDegree[e.Target]++
	}

	var ready []string
	for _, id := range g.order {
		if inDegree[id] == 0 {
			ready = append(ready, id)
		}
	}

	result := make([]string, 0, len(g.order))
	for len(ready) > 0 {
		id := ready[0]
		ready = ready[1:]
		result = append(result, id)

		released := false
		for _, next := range adj[id] {
			inDegree[next]--
			if inDegree[next] == 0 {
				ready = append(ready, next)
				released = true
			}
		}
		if released {
			sort.Strings(ready)
		}
	}

	if len(result) != len(g.order) {
		var stuck []string
		for _, id := range g.order {
			if inDegree[id] > 0 {
				stuck = append(stuck, id)
			}
		}
		return nil, &GraphError{
			Op:  "sort",
			Err: fmt.Errorf("%w: unresolved nodes %s", ErrCycle, strings.Join(stuck, ", ")),
		}
	}
	return result, nil
}
