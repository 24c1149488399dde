package engine

import (
	"sort"

	"github.com/flowgrid/flowgrid/internal/workflow"
)

// Analysis is the result of dependency resolution over a workflow graph.
type Analysis struct {
	// Graph maps each node to the set of nodes it depends on, sorted.
	Graph map[string][]string
	// Levels groups nodes into parallel execution levels: nodes in a level
	// depend only on earlier levels, never on each other. Sorted by name
	// within a level for determinism.
	Levels [][]string
}

// Analyze builds the dependency graph for every node in the workflow,
// detects cycles, and groups the nodes into topological levels. Returns a
// KindCycle error listing every distinct cycle when the graph is not a DAG.
func Analyze(wf *workflow.Workflow) (*Analysis, error) {
	graph := buildGraph(wf)
	levels, ok := levelSort(graph)
	if !ok {
		cycles := findCycles(graph)
		return nil, cycleError(cycles)
	}
	return &Analysis{Graph: graph, Levels: levels}, nil
}

// buildGraph walks the reverse link index and collects each node's upstream
// dependency set.
func buildGraph(wf *workflow.Workflow) map[string][]string {
	graph := make(map[string][]string)
	for _, name := range wf.NodeNames() {
		deps := make(map[string]struct{})
		for _, links := range wf.LinksByTarget(name) {
			for _, l := range links {
				deps[l.SourceNode] = struct{}{}
			}
		}
		sortedDeps := make([]string, 0, len(deps))
		for d := range deps {
			sortedDeps = append(sortedDeps, d)
		}
		sort.Strings(sortedDeps)
		graph[name] = sortedDeps
	}
	return graph
}

// levelSort runs Kahn's algorithm, emitting whole levels. Returns ok=false
// when nodes remain unemitted, which indicates a cycle.
func levelSort(graph map[string][]string) ([][]string, bool) {
	inDegree := make(map[string]int, len(graph))
	dependents := make(map[string][]string, len(graph))
	for name, deps := range graph {
		inDegree[name] = len(deps)
		for _, d := range deps {
			dependents[d] = append(dependents[d], name)
		}
	}

	var current []string
	for name, deg := range inDegree {
		if deg == 0 {
			current = append(current, name)
		}
	}

	var levels [][]string
	emitted := 0
	for len(current) > 0 {
		sort.Strings(current)
		levels = append(levels, current)
		emitted += len(current)

		var next []string
		for _, name := range current {
			for _, dep := range dependents[name] {
				inDegree[dep]--
				if inDegree[dep] == 0 {
					next = append(next, dep)
				}
			}
		}
		current = next
	}

	if emitted != len(graph) {
		return nil, false
	}
	return levels, true
}

// findCycles runs a depth-first search over the dependency graph and returns
// every distinct cycle, each reported as the path suffix starting and ending
// at the repeated node.
func findCycles(graph map[string][]string) [][]string {
	names := make([]string, 0, len(graph))
	for name := range graph {
		names = append(names, name)
	}
	sort.Strings(names)

	var cycles [][]string
	seen := make(map[string]struct{})
	visited := make(map[string]bool)
	onStack := make(map[string]bool)
	var path []string

	var dfs func(name string)
	dfs = func(name string) {
		visited[name] = true
		onStack[name] = true
		path = append(path, name)

		for _, dep := range graph[name] {
			if onStack[dep] {
				cycle := extractCycle(path, dep)
				key := cycleKey(cycle)
				if _, dup := seen[key]; !dup {
					seen[key] = struct{}{}
					cycles = append(cycles, cycle)
				}
				continue
			}
			if !visited[dep] {
				dfs(dep)
			}
		}

		path = path[:len(path)-1]
		onStack[name] = false
	}

	for _, name := range names {
		if !visited[name] {
			dfs(name)
		}
	}
	return cycles
}

// extractCycle returns the suffix of path starting at start, closed with a
// repeat of the starting node.
func extractCycle(path []string, start string) []string {
	for i, name := range path {
		if name == start {
			cycle := append([]string(nil), path[i:]...)
			return append(cycle, start)
		}
	}
	return nil
}

// cycleKey canonicalizes a cycle under rotation so the same loop discovered
// from different entry points is reported once.
func cycleKey(cycle []string) string {
	if len(cycle) < 2 {
		return ""
	}
	ring := cycle[:len(cycle)-1]
	min := 0
	for i := range ring {
		if ring[i] < ring[min] {
			min = i
		}
	}
	key := ""
	for i := range ring {
		key += ring[(min+i)%len(ring)] + "\x00"
	}
	return key
}
