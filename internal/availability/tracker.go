// Package availability works out which step products are still free to
// be consumed at a given point in a recipe.
//
// A product becomes available when its step runs and stays available until
// some use references it. Authoring tools call this when offering "use the
// output of an earlier step" choices for a new ingredient, instrument or
// vessel at a given step position.
package availability

import "github.com/hammamikhairi/ottoflow/internal/domain"

// Candidate is an unconsumed product and where it was produced.
type Candidate struct {
	StepIndex    int
	ProductIndex int
	Product      domain.Product
}

// Ref returns the product reference a new use would bind to.
func (c Candidate) Ref() domain.ProductRef {
	return domain.ProductRef{StepIndex: c.StepIndex, ProductIndex: c.ProductIndex}
}

// AvailableProducts returns the products of type t produced by steps
// 0..upto-1 that no use in those steps has consumed, in the order they
// were produced. upto past the end of the recipe is clamped; upto <= 0
// yields nothing.
func AvailableProducts(recipe *domain.Recipe, upto int, t domain.ProductType) []Candidate {
	if recipe == nil || upto <= 0 {
		return nil
	}
	if upto > len(recipe.Steps) {
		upto = len(recipe.Steps)
	}

	var pool []Candidate
	for stepIndex := 0; stepIndex < upto; stepIndex++ {
		step := &recipe.Steps[stepIndex]

		for productIndex, product := range step.Products {
			if product.Type != t {
				continue
			}
			pool = append(pool, Candidate{
				StepIndex:    stepIndex,
				ProductIndex: productIndex,
				Product:      product,
			})
		}

		for _, use := range step.Uses() {
			if ref, ok := use.Source(); ok {
				pool = consume(pool, ref)
			}
		}
	}
	return pool
}

// consume drops the candidate at ref, if present.
func consume(pool []Candidate, ref domain.ProductRef) []Candidate {
	for i, c := range pool {
		if c.StepIndex == ref.StepIndex && c.ProductIndex == ref.ProductIndex {
			return append(pool[:i], pool[i+1:]...)
		}
	}
	return pool
}

// Remaining returns every product no step ever consumes: the recipe's
// end results plus anything left over. Candidates are grouped by type in
// ingredient, instrument, vessel order.
func Remaining(recipe *domain.Recipe) []Candidate {
	if recipe == nil {
		return nil
	}
	var out []Candidate
	for _, t := range domain.ProductTypes {
		out = append(out, AvailableProducts(recipe, len(recipe.Steps), t)...)
	}
	return out
}
