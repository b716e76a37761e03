package recipegraph

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hammamikhairi/ottoflow/internal/domain"
)

func ref(step, product int) *domain.ProductRef {
	return &domain.ProductRef{StepIndex: step, ProductIndex: product}
}

// onionChain: dice -> sauté -> simmer, each consuming the previous product.
func onionChain() *domain.Recipe {
	return &domain.Recipe{
		ID: "onions",
		Steps: []domain.Step{
			{
				Preparation: "dice",
				Ingredients: []domain.IngredientUse{{Name: "onion", MinimumQuantity: 1}},
				Products:    []domain.Product{{Name: "chopped onions", Type: domain.ProductIngredient}},
			},
			{
				Preparation: "sauté",
				Ingredients: []domain.IngredientUse{{Name: "chopped onions", From: ref(0, 0)}},
				Products:    []domain.Product{{Name: "sautéed onions", Type: domain.ProductIngredient}},
			},
			{
				Preparation: "simmer",
				Ingredients: []domain.IngredientUse{{Name: "sautéed onions", From: ref(1, 0)}},
			},
		},
	}
}

// diamond: step 0 yields a vessel used by 1 and 2; step 3 uses products of 1 and 2.
func diamond() *domain.Recipe {
	return &domain.Recipe{
		ID: "diamond",
		Steps: []domain.Step{
			{Preparation: "heat", Products: []domain.Product{{Name: "hot pan", Type: domain.ProductVessel}}},
			{
				Preparation: "fry",
				Vessels:     []domain.VesselUse{{Name: "hot pan", From: ref(0, 0)}},
				Products:    []domain.Product{{Name: "fried eggs", Type: domain.ProductIngredient}},
			},
			{
				Preparation: "toast",
				Vessels:     []domain.VesselUse{{Name: "hot pan", From: ref(0, 0)}},
				Products:    []domain.Product{{Name: "toast", Type: domain.ProductIngredient}},
			},
			{
				Preparation: "plate",
				Ingredients: []domain.IngredientUse{
					{Name: "fried eggs", From: ref(1, 0)},
					{Name: "toast", From: ref(2, 0)},
				},
			},
		},
	}
}

func TestBuildGraphChain(t *testing.T) {
	g := BuildGraph(onionChain())

	require.Equal(t, 3, g.Len())
	assert.Equal(t, []Edge{{0, 1}, {1, 2}}, g.Edges())
	assert.Equal(t, []int{0}, g.Roots())
	assert.Equal(t, []int{1}, g.Predecessors(2))
	assert.Equal(t, []int{2}, g.Successors(1))
}

func TestBuildGraphDeduplicatesEdges(t *testing.T) {
	r := diamond()
	// A second use of the same product must not add a second edge.
	r.Steps[3].Instruments = []domain.InstrumentUse{{Name: "spatula"}}
	r.Steps[3].Vessels = []domain.VesselUse{{Name: "eggs again", From: ref(1, 0)}}

	g := BuildGraph(r)
	assert.Equal(t, []Edge{{0, 1}, {0, 2}, {1, 3}, {2, 3}}, g.Edges())
}

func TestBuildGraphKeepsIsolatedSteps(t *testing.T) {
	r := &domain.Recipe{Steps: []domain.Step{{Preparation: "boil"}, {Preparation: "whisk"}}}
	g := BuildGraph(r)

	assert.Equal(t, 2, g.Len())
	assert.Empty(t, g.Edges())
	assert.Equal(t, []int{0, 1}, g.Roots())
}

func TestBuildGraphNilAndEmpty(t *testing.T) {
	assert.Equal(t, 0, BuildGraph(nil).Len())
	assert.Equal(t, 0, BuildGraph(&domain.Recipe{}).Len())
}

func TestBuildGraphIgnoresMalformedReferences(t *testing.T) {
	tests := []struct {
		name string
		ref  *domain.ProductRef
	}{
		{"beyond recipe length", ref(5, 0)},
		{"self reference", ref(2, 0)},
		{"forward reference", ref(3, 0)},
		{"negative step", ref(-1, 0)},
		{"missing product", ref(0, 4)},
		{"negative product", ref(0, -1)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := &domain.Recipe{Steps: []domain.Step{
				{Products: []domain.Product{{Name: "a"}}},
				{Products: []domain.Product{{Name: "b"}}},
				{
					Ingredients: []domain.IngredientUse{{Name: "x", From: tt.ref}},
					Products:    []domain.Product{{Name: "c"}},
				},
				{Products: []domain.Product{{Name: "d"}}},
			}}

			var g *Graph
			require.NotPanics(t, func() { g = BuildGraph(r) })
			assert.Empty(t, g.Predecessors(2))
			assert.Empty(t, g.Edges())
		})
	}
}

func TestResolveProduct(t *testing.T) {
	r := onionChain()

	p, ok := ResolveProduct(r, 1, domain.ProductRef{StepIndex: 0, ProductIndex: 0})
	require.True(t, ok)
	assert.Equal(t, "chopped onions", p.Name)

	_, ok = ResolveProduct(r, 0, domain.ProductRef{StepIndex: 0, ProductIndex: 0})
	assert.False(t, ok)
	_, ok = ResolveProduct(r, 9, domain.ProductRef{StepIndex: 0, ProductIndex: 0})
	assert.False(t, ok)
}

func TestAncestorsDiamondDeduplicates(t *testing.T) {
	g := BuildGraph(diamond())

	assert.Equal(t, []int{0, 1, 2}, g.Ancestors(3))
	assert.Equal(t, []int{0}, g.Ancestors(1))
	assert.Empty(t, g.Ancestors(0))
}

func TestAncestorsTerminatesOnCycle(t *testing.T) {
	g := NewGraph(3)
	g.addEdge(0, 1)
	g.addEdge(1, 2)
	g.addEdge(2, 0)

	assert.Equal(t, []int{0, 1, 2}, g.Ancestors(0))
	assert.Equal(t, []int{0, 1, 2}, g.Ancestors(2))
}

func TestAncestorsPanicsOutOfRange(t *testing.T) {
	g := BuildGraph(onionChain())
	assert.Panics(t, func() { g.Ancestors(3) })
	assert.Panics(t, func() { g.Ancestors(-1) })
}

func TestCanStepBePerformedChainScenario(t *testing.T) {
	g := BuildGraph(onionChain())

	// Needs-completion form: true = not done yet.
	assert.True(t, CanStepBePerformedNeeds(g, []bool{true, true, true}, 2))
	assert.True(t, CanStepBePerformedNeeds(g, []bool{false, true, true}, 2))
	assert.False(t, CanStepBePerformedNeeds(g, []bool{false, true, true}, 1))
	assert.False(t, CanStepBePerformedNeeds(g, []bool{false, false, true}, 2))
}

func TestBlockedDiamond(t *testing.T) {
	g := BuildGraph(diamond())
	v := domain.NewCompletionVector(4)

	assert.True(t, Blocked(g, v, 3))
	v[0], v[1] = domain.Completed, domain.Completed
	assert.True(t, Blocked(g, v, 3), "step 2 still pending")
	v[2] = domain.Completed
	assert.False(t, Blocked(g, v, 3))
	assert.True(t, Eligible(g, v, 3))
}

func TestBlockedIgnoresOwnEntry(t *testing.T) {
	g := BuildGraph(onionChain())
	v := domain.CompletionVector{domain.Completed, domain.Pending, domain.Completed}

	assert.False(t, Blocked(g, v, 1))
}

func TestRootsNeverBlocked(t *testing.T) {
	g := BuildGraph(diamond())
	for _, v := range []domain.CompletionVector{
		{domain.Pending, domain.Pending, domain.Pending, domain.Pending},
		{domain.Completed, domain.Completed, domain.Completed, domain.Completed},
		{domain.Pending, domain.Completed, domain.Pending, domain.Completed},
	} {
		assert.False(t, CanStepBePerformed(g, v, 0))
	}
}

func TestBlockedPanicsOnShortVector(t *testing.T) {
	g := BuildGraph(onionChain())
	assert.Panics(t, func() { Blocked(g, domain.CompletionVector{}, 2) })
	assert.Panics(t, func() { Blocked(g, domain.NewCompletionVector(3), 7) })
}

func TestReadySteps(t *testing.T) {
	g := BuildGraph(diamond())
	v := domain.NewCompletionVector(4)

	assert.Equal(t, []int{0}, ReadySteps(g, v))
	v[0] = domain.Completed
	assert.Equal(t, []int{1, 2}, ReadySteps(g, v))
	v[1], v[2] = domain.Completed, domain.Completed
	assert.Equal(t, []int{3}, ReadySteps(g, v))
	v[3] = domain.Completed
	assert.Empty(t, ReadySteps(g, v))
}

func TestUnblocked(t *testing.T) {
	g := BuildGraph(diamond())
	before := domain.NewCompletionVector(4)
	after := before.Clone()
	after[0] = domain.Completed

	assert.Equal(t, []int{1, 2}, Unblocked(g, before, after))
}

// randomRecipe builds a recipe whose uses point anywhere, including
// forward, backward and out of range.
func randomRecipe(rng *rand.Rand, n int) *domain.Recipe {
	r := &domain.Recipe{Steps: make([]domain.Step, n)}
	for i := range r.Steps {
		r.Steps[i].Products = []domain.Product{{Name: "p"}, {Name: "q", Type: domain.ProductInstrument}}
		for k := 0; k < 3; k++ {
			src := ref(rng.Intn(n+2)-1, rng.Intn(3))
			r.Steps[i].Ingredients = append(r.Steps[i].Ingredients, domain.IngredientUse{Name: "x", From: src})
		}
	}
	return r
}

func TestBuildGraphIsAlwaysAcyclic(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for round := 0; round < 50; round++ {
		g := BuildGraph(randomRecipe(rng, 1+rng.Intn(20)))
		for _, e := range g.Edges() {
			require.Less(t, e.From, e.To)
		}
		for i := 0; i < g.Len(); i++ {
			assert.NotContains(t, g.Ancestors(i), i)
		}
	}
}

func TestBlockedMatchesAncestorStates(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	for round := 0; round < 50; round++ {
		n := 1 + rng.Intn(15)
		g := BuildGraph(randomRecipe(rng, n))
		v := domain.NewCompletionVector(n)
		for i := range v {
			if rng.Intn(2) == 0 {
				v[i] = domain.Completed
			}
		}
		for s := 0; s < n; s++ {
			anyPending := false
			for _, a := range g.Ancestors(s) {
				anyPending = anyPending || v.IsPending(a)
			}
			assert.Equal(t, anyPending, Blocked(g, v, s))
		}
	}
}
