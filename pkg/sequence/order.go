package sequence

import (
	"github.com/dd0wney/flowsim/pkg/network"
)

// computeTopologicalOrder returns the node names of fs in an order where
// every active regular arc's source precedes its destination, using Kahn's
// algorithm. Tear arcs and deactivated arcs impose no constraint. If the
// remaining graph is cyclic the returned error names one offending cycle.
func computeTopologicalOrder(fs *network.Flowsheet) ([]string, error) {
	nodes := fs.Nodes()

	inDegree := make(map[string]int, len(nodes))
	for _, n := range nodes {
		inDegree[n.Name] = 0
	}
	for _, a := range fs.Arcs() {
		if a.Tear || !a.Active() {
			continue
		}
		inDegree[a.Dest.Node]++
	}

	// Seed the queue in registration order so the result is deterministic.
	queue := make([]string, 0, len(nodes))
	for _, n := range nodes {
		if inDegree[n.Name] == 0 {
			queue = append(queue, n.Name)
		}
	}

	sorted := make([]string, 0, len(nodes))
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		sorted = append(sorted, current)

		for _, a := range fs.Outgoing(current) {
			if a.Tear {
				continue
			}
			inDegree[a.Dest.Node]--
			if inDegree[a.Dest.Node] == 0 {
				queue = append(queue, a.Dest.Node)
			}
		}
	}

	if len(sorted) != len(nodes) {
		return nil, &CyclicGraphError{Cycle: findRemainingCycle(fs, sorted)}
	}
	return sorted, nil
}

// findRemainingCycle extracts one cycle among the nodes Kahn's algorithm
// could not place, via depth-first search with three-colour marking. A back
// edge to a gray node closes the cycle; parent pointers reconstruct it.
func findRemainingCycle(fs *network.Flowsheet, sorted []string) []string {
	const (
		white = 0
		gray  = 1
		black = 2
	)

	placed := make(map[string]bool, len(sorted))
	for _, name := range sorted {
		placed[name] = true
	}

	color := make(map[string]int)
	parent := make(map[string]string)

	var cycle []string
	var dfs func(node string) bool
	dfs = func(node string) bool {
		color[node] = gray
		for _, a := range fs.Outgoing(node) {
			if a.Tear {
				continue
			}
			next := a.Dest.Node
			if placed[next] {
				continue
			}
			switch color[next] {
			case white:
				parent[next] = node
				if dfs(next) {
					return true
				}
			case gray:
				// Back edge: walk parents from node back to next.
				cycle = []string{next}
				for cur := node; cur != next; cur = parent[cur] {
					cycle = append(cycle, cur)
				}
				// Reverse into traversal order.
				for i, j := 0, len(cycle)-1; i < j; i, j = i+1, j-1 {
					cycle[i], cycle[j] = cycle[j], cycle[i]
				}
				return true
			}
		}
		color[node] = black
		return false
	}

	for _, n := range fs.Nodes() {
		if placed[n.Name] || color[n.Name] != white {
			continue
		}
		if dfs(n.Name) {
			break
		}
	}
	return cycle
}
