package automation

import "github.com/pubflow/pubflow/pkg/models"

// graph is the sequential-trigger subgraph as an adjacency map of action
// instance IDs, source -> targets. It is rebuilt from rows on every
// validation call rather than held in memory, so checks always run against
// the transaction's snapshot.
type graph map[string][]string

// buildGraph materializes the sequential edges of a stage's automations,
// excluding the automation being replaced so an edit does not collide with
// its own prior edge.
func buildGraph(automations []*models.Automation, excludeID string) graph {
	g := make(graph)

	for _, a := range automations {
		if !a.IsSequential() || a.ID == excludeID {
			continue
		}

		g.addEdge(a.Source(), a.ActionInstanceID)
	}

	return g
}

func (g graph) addEdge(source, target string) {
	g[source] = append(g[source], target)
}

// reachable reports whether a directed path from -> ... -> to exists.
func (g graph) reachable(from, to string) bool {
	if from == to {
		return true
	}

	visited := make(map[string]bool)
	stack := []string{from}

	for len(stack) > 0 {
		node := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if visited[node] {
			continue
		}

		visited[node] = true

		for _, next := range g[node] {
			if next == to {
				return true
			}

			stack = append(stack, next)
		}
	}

	return false
}

// longestPath returns the longest directed path in the graph, measured in
// edges, via memoized depth-first traversal. Callers only invoke it on
// acyclic graphs; the memo keeps it linear in edges.
func (g graph) longestPath() int {
	memo := make(map[string]int)
	longest := 0

	for node := range g {
		if depth := g.longestFrom(node, memo); depth > longest {
			longest = depth
		}
	}

	return longest
}

func (g graph) longestFrom(node string, memo map[string]int) int {
	if depth, ok := memo[node]; ok {
		return depth
	}

	longest := 0

	for _, next := range g[node] {
		if depth := g.longestFrom(next, memo) + 1; depth > longest {
			longest = depth
		}
	}

	memo[node] = longest

	return longest
}
