package recipegraph

import (
	"fmt"
	"sort"

	"github.com/hammamikhairi/ottoflow/internal/domain"
)

// Ancestors returns every step that must be finished before step i,
// ascending. Shared ancestors are visited once, and a cyclic graph (only
// possible when built by hand) terminates with the cycle members counted
// as each other's ancestors.
//
// Panics if i is not a node of g.
func (g *Graph) Ancestors(i int) []int {
	g.mustContain(i)

	visited := make(map[int]bool)
	queue := append([]int(nil), g.preds[i]...)
	for len(queue) > 0 {
		n := queue[0]
		queue = queue[1:]
		if visited[n] {
			continue
		}
		visited[n] = true
		for _, p := range g.preds[n] {
			if !visited[p] {
				queue = append(queue, p)
			}
		}
	}

	out := make([]int, 0, len(visited))
	for n := range visited {
		out = append(out, n)
	}
	sort.Ints(out)
	return out
}

// Blocked reports whether step i must wait: true when at least one
// ancestor is still pending, false when every ancestor is completed or
// the step has no ancestors at all. The step's own entry is irrelevant.
//
// Panics if i is out of range for g or an ancestor is out of range for v.
func Blocked(g *Graph, v domain.CompletionVector, i int) bool {
	ancestors := g.Ancestors(i)
	if len(ancestors) == 0 {
		return false
	}
	for _, a := range ancestors {
		if a >= len(v) {
			panic(fmt.Sprintf("recipegraph: completion vector has %d entries, ancestor %d out of range", len(v), a))
		}
		if v.IsPending(a) {
			return true
		}
	}
	return false
}

// CanStepBePerformed answers whether step i's checkbox has to stay
// disabled. Despite the name it returns true when the step is blocked
// and false when it is eligible; it is the same answer as Blocked and is
// kept under this name for callers ported from the web cook view.
func CanStepBePerformed(g *Graph, v domain.CompletionVector, i int) bool {
	return Blocked(g, v, i)
}

// CanStepBePerformedNeeds is CanStepBePerformed for a needs-completion
// vector (true = not done yet).
func CanStepBePerformedNeeds(g *Graph, needs []bool, i int) bool {
	return Blocked(g, domain.CompletionFromNeeds(needs), i)
}

// Eligible reports whether step i may be marked performed now.
func Eligible(g *Graph, v domain.CompletionVector, i int) bool {
	return !Blocked(g, v, i)
}

// ReadySteps returns the pending steps whose prerequisites are all done, ascending.
func ReadySteps(g *Graph, v domain.CompletionVector) []int {
	var ready []int
	for i := 0; i < g.Len(); i++ {
		if i < len(v) && !v.IsPending(i) {
			continue
		}
		if !Blocked(g, v, i) {
			ready = append(ready, i)
		}
	}
	return ready
}

// Unblocked returns the steps that were blocked under before and are not
// under after. Both vectors must cover the graph.
func Unblocked(g *Graph, before, after domain.CompletionVector) []int {
	var out []int
	for i := 0; i < g.Len(); i++ {
		if Blocked(g, before, i) && !Blocked(g, after, i) {
			out = append(out, i)
		}
	}
	return out
}

func (g *Graph) mustContain(i int) {
	if i < 0 || i >= g.Len() {
		panic(fmt.Sprintf("recipegraph: step index %d out of range [0,%d)", i, g.Len()))
	}
}
