package diagram

import (
	"math/rand"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hammamikhairi/ottoflow/internal/domain"
	"github.com/hammamikhairi/ottoflow/internal/recipegraph"
)

func ref(step, product int) *domain.ProductRef {
	return &domain.ProductRef{StepIndex: step, ProductIndex: product}
}

func onions() *domain.Recipe {
	return &domain.Recipe{
		ID:   "onions",
		Name: "Onions",
		Steps: []domain.Step{
			{
				Preparation: "dice",
				Ingredients: []domain.IngredientUse{{Name: "onion"}},
				Products:    []domain.Product{{Name: "chopped onions"}},
			},
			{
				Preparation: "sauté",
				Ingredients: []domain.IngredientUse{{Name: "chopped onions", From: ref(0, 0)}},
				Products:    []domain.Product{{Name: "sautéed onions"}},
			},
			{
				Preparation: "simmer",
				Ingredients: []domain.IngredientUse{{Name: "sautéed onions", From: ref(1, 0)}},
				Vessels:     []domain.VesselUse{{Name: "pot"}},
			},
		},
	}
}

func TestRenderDiagramChain(t *testing.T) {
	want := `flowchart LR;
onions_Step0["dice onion"];
onions_Step1["sauté chopped onions"];
onions_Step2["simmer sautéed onions"];
onions_Step0 --->|chopped onions| onions_Step1;
onions_Step1 --->|sautéed onions| onions_Step2;
subgraph onions ["Onions"]
direction LR
onions_Step0;
onions_Step1;
onions_Step2;
end
`
	assert.Equal(t, want, RenderDiagram(onions(), LeftRight))
}

func TestRenderDiagramEdgeKinds(t *testing.T) {
	r := &domain.Recipe{
		ID:   "bread",
		Name: "Bread",
		Steps: []domain.Step{
			{
				Preparation: "prepare",
				Products: []domain.Product{
					{Name: "dough", Type: domain.ProductIngredient},
					{Name: "floured peel", Type: domain.ProductInstrument},
					{Name: "hot oven", Type: domain.ProductVessel},
				},
			},
			{
				Preparation: "bake",
				Ingredients: []domain.IngredientUse{{Name: "dough", From: ref(0, 0)}},
				Instruments: []domain.InstrumentUse{{Name: "floured peel", From: ref(0, 1)}},
				Vessels:     []domain.VesselUse{{Name: "hot oven", From: ref(0, 2)}},
			},
		},
	}

	out := RenderDiagram(r, TopBottom)
	assert.Contains(t, out, "bread_Step0 --->|dough| bread_Step1;\n")
	assert.Contains(t, out, "bread_Step0 ===>|floured peel| bread_Step1;\n")
	assert.Contains(t, out, "bread_Step0 -. hot oven .-> bread_Step1;\n")
}

func TestRenderDiagramLabelTruncation(t *testing.T) {
	tests := []struct {
		name  string
		names []string
		want  string
	}{
		{"one", []string{"salt"}, `mix salt`},
		{"two", []string{"salt", "pepper"}, `mix salt and pepper`},
		{"three", []string{"salt", "pepper", "oil"}, `mix salt, pepper, and oil`},
		{"four", []string{"salt", "pepper", "oil", "vinegar"}, `mix salt, pepper, etc...`},
		{"none", nil, `mix`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			step := domain.Step{Preparation: "mix"}
			for _, n := range tt.names {
				step.Ingredients = append(step.Ingredients, domain.IngredientUse{Name: n})
			}
			assert.Equal(t, tt.want, nodeLabel(&step))
		})
	}
}

func TestNodeLabelListsRawIngredientsFirst(t *testing.T) {
	step := domain.Step{
		Preparation: "fold",
		Ingredients: []domain.IngredientUse{
			{Name: "whipped cream", From: ref(0, 0)},
			{Name: "sugar"},
		},
	}
	assert.Equal(t, "fold sugar and whipped cream", nodeLabel(&step))
}

func TestRenderDiagramPrepTasksAndSupportingRecipes(t *testing.T) {
	sauce := &domain.Recipe{
		ID:    "tomato-sauce",
		Name:  "Tomato Sauce",
		Steps: []domain.Step{{Preparation: "simmer", Ingredients: []domain.IngredientUse{{Name: "tomatoes"}}}},
	}
	r := onions()
	r.SupportingRecipes = []*domain.Recipe{sauce}
	r.PrepTasks = []domain.PrepTask{
		{Name: "chop", StepIndices: []int{0}},
		{Name: "ahead", MaxBufferBeforeRecipe: 90 * time.Minute, StepIndices: []int{0, 1, 42}},
	}

	out := RenderDiagram(r, "sideways")

	assert.Equal(t, 1, strings.Count(out, "flowchart"), "header is emitted once")
	assert.True(t, strings.HasPrefix(out, "flowchart TB;\ntomato_sauce_Step0[\"simmer tomatoes\"];\n"))
	assert.Contains(t, out, "subgraph tomato_sauce [\"Tomato Sauce\"]\ndirection TB\ntomato_sauce_Step0;\nend\n")
	assert.Contains(t, out, "subgraph onions_0 [\"prep task: chop\"]\ndirection TB\nonions_Step0;\nend\n")
	assert.Contains(t, out, "subgraph onions_1 [\"(up to 1 hour 30 minutes in advance)\"]\ndirection TB\nonions_Step0;\nonions_Step1;\nend\nend\n")
	assert.NotContains(t, out, "onions_Step42")
}

func TestRenderDiagramSelfSupportingRecipeTerminates(t *testing.T) {
	r := onions()
	r.SupportingRecipes = []*domain.Recipe{r, nil}

	out := RenderDiagram(r, LeftRight)
	assert.Equal(t, 1, strings.Count(out, "subgraph onions "))
}

func TestRenderDiagramKindAndDegenerateInput(t *testing.T) {
	assert.Equal(t, "graph RL;\n", RenderDiagramAs(nil, RightLeft, GraphKind))
	assert.Equal(t, "flowchart TB;\n", RenderDiagramAs(nil, "td", "sequence"))

	out := RenderDiagram(&domain.Recipe{Name: `Mom's "best"`, Steps: []domain.Step{{}}}, LeftRight)
	assert.Contains(t, out, `recipe_Step0[""];`)
	assert.Contains(t, out, `subgraph recipe ["Mom's #quot;best#quot;"]`)
}

func TestRenderDiagramSkipsDanglingReferences(t *testing.T) {
	r := onions()
	r.Steps[2].Ingredients = append(r.Steps[2].Ingredients, domain.IngredientUse{Name: "ghost", From: ref(7, 0)})

	out := RenderDiagram(r, LeftRight)
	assert.NotContains(t, out, "ghost|")
	assert.Equal(t, recipegraph.BuildGraph(r).Edges(), ParseEdges(out, r.ID))
}

func TestDiagramRoundTrip(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	kinds := []domain.ProductType{domain.ProductIngredient, domain.ProductInstrument, domain.ProductVessel}

	for round := 0; round < 40; round++ {
		n := 1 + rng.Intn(12)
		r := &domain.Recipe{ID: "r-" + string(rune('a'+round%26)), Name: "random"}
		r.Steps = make([]domain.Step, n)
		for i := range r.Steps {
			r.Steps[i].Preparation = "step"
			r.Steps[i].Products = []domain.Product{{Name: "p", Type: kinds[rng.Intn(3)]}}
			for k := rng.Intn(4); k > 0; k-- {
				src := ref(rng.Intn(n+1)-1, rng.Intn(2))
				switch rng.Intn(3) {
				case 0:
					r.Steps[i].Ingredients = append(r.Steps[i].Ingredients, domain.IngredientUse{Name: "i", From: src})
				case 1:
					r.Steps[i].Instruments = append(r.Steps[i].Instruments, domain.InstrumentUse{Name: "t", From: src})
				default:
					r.Steps[i].Vessels = append(r.Steps[i].Vessels, domain.VesselUse{From: src})
				}
			}
		}

		want := recipegraph.BuildGraph(r).Edges()
		got := ParseEdges(RenderDiagram(r, LeftRight), r.ID)
		require.Equal(t, want, got, "round %d", round)
	}
}

func TestParseDirection(t *testing.T) {
	assert.Equal(t, LeftRight, ParseDirection("lr"))
	assert.Equal(t, TopBottom, ParseDirection("TD"))
	assert.Equal(t, BottomTop, ParseDirection(" bt "))
	assert.Equal(t, TopBottom, ParseDirection(""))
}

func TestStepSummary(t *testing.T) {
	r := &domain.Recipe{Steps: []domain.Step{
		{
			Preparation: "whisk",
			Instruments: []domain.InstrumentUse{{Name: "whisk", MinimumQuantity: 1}},
			Ingredients: []domain.IngredientUse{
				{Name: "flour", MinimumQuantity: 2, MeasurementUnit: "cups"},
				{Name: "egg", PluralName: "eggs", MinimumQuantity: 2, MeasurementUnit: "units"},
			},
			Vessels:  []domain.VesselUse{{Name: "bowl", Preposition: "in", MinimumQuantity: 1}},
			Products: []domain.Product{{Name: "batter", Type: domain.ProductIngredient}},
		},
		{
			Preparation: "fry",
			Ingredients: []domain.IngredientUse{{Name: "batter", From: ref(0, 0)}},
			Vessels:     []domain.VesselUse{{Name: "skillet", PluralName: "skillets", MinimumQuantity: 2, MaximumQuantity: 3}},
			Products: []domain.Product{
				{Name: "pancakes", Type: domain.ProductIngredient},
				{Name: "crumbs", Type: domain.ProductIngredient},
				{Name: "greasy skillet", Type: domain.ProductVessel},
			},
		},
		{Notes: "let everything rest."},
	}}

	assert.Equal(t, "Using a whisk, whisk 2 cups flour and 2 eggs in a bowl to yield the ingredient batter.", StepSummary(r, 0, 1))
	assert.Equal(t, "Using a whisk, whisk 4 cups flour and 4 eggs in a bowl to yield the ingredient batter.", StepSummary(r, 0, 2))
	assert.Equal(t, "Using a whisk, whisk 1 cups flour and 1 egg in a bowl to yield the ingredient batter.", StepSummary(r, 0, 0.5))
	assert.Equal(t, "Fry the batter from step #1 2 to 3 skillets to yield the ingredients pancakes and crumbs and a greasy skillet.", StepSummary(r, 1, 1))
	assert.Equal(t, "Let everything rest.", StepSummary(r, 2, 1))
	assert.Equal(t, "", StepSummary(r, 3, 1))
	assert.Equal(t, "", StepSummary(nil, 0, 1))
}

func TestWords(t *testing.T) {
	assert.Equal(t, "", EnglishList(nil))
	assert.Equal(t, "a, b, and c", EnglishList([]string{"a", " ", "b", "c"}))
	assert.Equal(t, "2 days 1 second", humanDuration(48*time.Hour+time.Second))
	assert.Equal(t, "1.33", cleanFloat(1.3333))
	assert.Equal(t, "Éclair", capitalize("éclair"))
}
