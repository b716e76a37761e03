// Package recipegraph builds the step dependency graph of a recipe and
// answers readiness questions against it.
//
// Nodes are step positions 0..N-1. An edge i -> j means step j consumes
// something step i produced. Edges only ever point from a lower to a
// higher index, so graphs built from recipes are acyclic.
package recipegraph

import "sort"

// Edge is a dependency between two steps, by 0-based index.
type Edge struct {
	From int
	To   int
}

// Graph is an adjacency-list dependency graph over step indices.
// It is immutable once built and safe for concurrent reads.
type Graph struct {
	preds [][]int
	succs [][]int
}

// NewGraph returns a graph with n nodes and no edges.
func NewGraph(n int) *Graph {
	if n < 0 {
		n = 0
	}
	return &Graph{
		preds: make([][]int, n),
		succs: make([][]int, n),
	}
}

// Len returns the number of nodes.
func (g *Graph) Len() int { return len(g.preds) }

// addEdge records from -> to once. Callers guarantee both indices exist.
func (g *Graph) addEdge(from, to int) bool {
	if g.HasEdge(from, to) {
		return false
	}
	g.succs[from] = insertSorted(g.succs[from], to)
	g.preds[to] = insertSorted(g.preds[to], from)
	return true
}

// HasEdge reports whether from -> to exists. Out-of-range indices report false.
func (g *Graph) HasEdge(from, to int) bool {
	if from < 0 || from >= g.Len() || to < 0 || to >= g.Len() {
		return false
	}
	i := sort.SearchInts(g.succs[from], to)
	return i < len(g.succs[from]) && g.succs[from][i] == to
}

// Predecessors returns the direct prerequisites of step i, ascending.
func (g *Graph) Predecessors(i int) []int {
	return append([]int(nil), g.preds[i]...)
}

// Successors returns the steps that directly consume step i's output, ascending.
func (g *Graph) Successors(i int) []int {
	return append([]int(nil), g.succs[i]...)
}

// Edges returns every edge ordered by From then To.
func (g *Graph) Edges() []Edge {
	var out []Edge
	for from, tos := range g.succs {
		for _, to := range tos {
			out = append(out, Edge{From: from, To: to})
		}
	}
	return out
}

// Roots returns the steps with no incoming edges.
func (g *Graph) Roots() []int {
	var out []int
	for i, p := range g.preds {
		if len(p) == 0 {
			out = append(out, i)
		}
	}
	return out
}

func insertSorted(s []int, v int) []int {
	i := sort.SearchInts(s, v)
	s = append(s, 0)
	copy(s[i+1:], s[i:])
	s[i] = v
	return s
}
