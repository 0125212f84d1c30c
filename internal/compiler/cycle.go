package compiler

import (
	"slices"
	"strings"

	"github.com/roach88/repp/internal/ir"
)

// checkRecursion rejects iterative groups that call themselves, directly
// (#1 contains >1) or through other groups (#1 calls >2, #2 calls >1).
//
// Applying such a group would never return, so this is an error rather
// than a warning. The algorithm:
//  1. Build the group → called groups graph from the group bodies
//  2. Use Tarjan's algorithm to find strongly connected components
//  3. Report the first SCC with size > 1 or a self-loop
func checkRecursion(groups map[string]*ir.IterativeGroup) error {
	if len(groups) == 0 {
		return nil
	}

	graph := buildCallGraph(groups)
	for _, scc := range tarjanSCC(graph) {
		if len(scc) > 1 || hasSelfLoop(scc[0], graph) {
			path := reconstructCyclePath(scc, graph)
			g := groups[path[0]]
			labels := make([]string, len(path))
			for i, id := range path {
				labels[i] = "#" + id
			}
			return errorf(ErrCodeRecursiveGroup, g.Pos.File, g.Pos.Line,
				"iterative group #%s calls itself: %s", g.ID, strings.Join(labels, " → "))
		}
	}
	return nil
}

// callGraph maps group id → ids of the iterative groups it calls.
type callGraph map[string][]string

func buildCallGraph(groups map[string]*ir.IterativeGroup) callGraph {
	graph := make(callGraph, len(groups))
	for id, g := range groups {
		graph[id] = collectCalls(g.Ops, nil)
	}
	return graph
}

// collectCalls returns the iterative groups called from ops, descending
// into plain nested groups but not into called iterative groups.
func collectCalls(ops []ir.Operation, into []string) []string {
	for _, op := range ops {
		switch op := op.(type) {
		case *ir.IterativeGroup:
			into = append(into, op.ID)
		case *ir.Group:
			into = collectCalls(op.Ops, into)
		}
	}
	return into
}

func hasSelfLoop(node string, graph callGraph) bool {
	return slices.Contains(graph[node], node)
}

// tarjanSCC finds strongly connected components using Tarjan's algorithm.
//
// Nodes are visited in sorted order so the reported cycle does not depend
// on map iteration order.
func tarjanSCC(graph callGraph) [][]string {
	var (
		index   = 0
		stack   []string
		indices = make(map[string]int)
		lowlink = make(map[string]int)
		onStack = make(map[string]bool)
		sccs    [][]string
	)

	var strongConnect func(string)
	strongConnect = func(v string) {
		indices[v] = index
		lowlink[v] = index
		index++
		stack = append(stack, v)
		onStack[v] = true

		for _, w := range graph[v] {
			if _, visited := indices[w]; !visited {
				strongConnect(w)
				lowlink[v] = min(lowlink[v], lowlink[w])
			} else if onStack[w] {
				lowlink[v] = min(lowlink[v], indices[w])
			}
		}

		if lowlink[v] == indices[v] {
			var scc []string
			for {
				w := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				onStack[w] = false
				scc = append(scc, w)
				if w == v {
					break
				}
			}
			slices.Sort(scc)
			sccs = append(sccs, scc)
		}
	}

	nodes := make([]string, 0, len(graph))
	for node := range graph {
		nodes = append(nodes, node)
	}
	slices.Sort(nodes)
	for _, node := range nodes {
		if _, visited := indices[node]; !visited {
			strongConnect(node)
		}
	}

	return sccs
}

// reconstructCyclePath builds a cycle path through an SCC, starting and
// ending at its first member. For a self-loop the path is [id, id].
func reconstructCyclePath(scc []string, graph callGraph) []string {
	start := scc[0]
	if len(scc) == 1 {
		return []string{start, start}
	}

	members := make(map[string]bool, len(scc))
	for _, node := range scc {
		members[node] = true
	}

	current := start
	path := []string{current}
	visited := make(map[string]bool)
	for {
		visited[current] = true

		var next string
		for _, neighbor := range graph[current] {
			if members[neighbor] && (!visited[neighbor] || neighbor == start) {
				next = neighbor
				break
			}
		}
		if next == "" {
			break
		}

		path = append(path, next)
		if next == start {
			break
		}
		current = next
	}

	return path
}

