package recipegraph

import "github.com/hammamikhairi/ottoflow/internal/domain"

// BuildGraph converts a recipe into its step dependency graph. Every step
// gets a node; every use bound to an earlier step's product adds an edge
// from the producing step to the using step.
//
// References that point at the same or a later step, at a step that does
// not exist, or at a product index the producing step does not have are
// ignored. Recipes get edited into transiently dangling states and the
// graph is a display aid, so they count as no dependency rather than an error.
func BuildGraph(recipe *domain.Recipe) *Graph {
	if recipe == nil {
		return NewGraph(0)
	}

	g := NewGraph(len(recipe.Steps))
	for owner := range recipe.Steps {
		for _, use := range recipe.Steps[owner].Uses() {
			ref, ok := use.Source()
			if !ok || !validReference(recipe, owner, ref) {
				continue
			}
			g.addEdge(ref.StepIndex, owner)
		}
	}
	return g
}

// validReference reports whether ref names an existing product of a step
// strictly before owner.
func validReference(recipe *domain.Recipe, owner int, ref domain.ProductRef) bool {
	if ref.StepIndex < 0 || ref.StepIndex >= owner {
		return false
	}
	products := recipe.Steps[ref.StepIndex].Products
	return ref.ProductIndex >= 0 && ref.ProductIndex < len(products)
}

// ResolveProduct returns the product a reference points at, if the
// reference is valid for a use owned by step owner.
func ResolveProduct(recipe *domain.Recipe, owner int, ref domain.ProductRef) (domain.Product, bool) {
	if recipe == nil || owner < 0 || owner >= len(recipe.Steps) || !validReference(recipe, owner, ref) {
		return domain.Product{}, false
	}
	return recipe.Steps[ref.StepIndex].Products[ref.ProductIndex], true
}
