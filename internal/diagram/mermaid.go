// Package diagram renders recipes as Mermaid flowcharts and step text.
//
// Everything here is presentational. Rendering never fails: anything that
// cannot be resolved (a dangling product reference, an empty name) is
// left out of the output.
package diagram

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/hammamikhairi/ottoflow/internal/domain"
	"github.com/hammamikhairi/ottoflow/internal/recipegraph"
)

// Direction is a Mermaid layout direction.
type Direction string

const (
	TopBottom Direction = "TB"
	LeftRight Direction = "LR"
	BottomTop Direction = "BT"
	RightLeft Direction = "RL"
)

// ParseDirection normalises s, falling back to TopBottom.
func ParseDirection(s string) Direction {
	switch d := Direction(strings.ToUpper(strings.TrimSpace(s))); d {
	case TopBottom, LeftRight, BottomTop, RightLeft:
		return d
	case "TD":
		return TopBottom
	default:
		return TopBottom
	}
}

// Kind is the Mermaid diagram keyword.
type Kind string

const (
	Flowchart Kind = "flowchart"
	GraphKind Kind = "graph"
)

// maxLabelItems is how many ingredient names a node label lists before
// cutting to two plus "etc...".
const maxLabelItems = 3

// RenderDiagram renders recipe as a Mermaid flowchart.
func RenderDiagram(recipe *domain.Recipe, direction Direction) string {
	return RenderDiagramAs(recipe, direction, Flowchart)
}

// RenderDiagramAs renders recipe with an explicit diagram keyword.
func RenderDiagramAs(recipe *domain.Recipe, direction Direction, kind Kind) string {
	direction = ParseDirection(string(direction))
	if kind != GraphKind {
		kind = Flowchart
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s %s;\n", kind, direction)
	if recipe != nil {
		writeRecipe(&b, recipe, direction, map[*domain.Recipe]bool{})
	}
	return b.String()
}

// writeRecipe emits supporting recipes, then this recipe's nodes, edges
// and subgraph. seen stops a recipe that supports itself.
func writeRecipe(b *strings.Builder, recipe *domain.Recipe, direction Direction, seen map[*domain.Recipe]bool) {
	if seen[recipe] {
		return
	}
	seen[recipe] = true

	for _, supporting := range recipe.SupportingRecipes {
		if supporting != nil {
			writeRecipe(b, supporting, direction, seen)
		}
	}

	id := nodePrefix(recipe)

	for i := range recipe.Steps {
		fmt.Fprintf(b, "%s[\"%s\"];\n", stepNode(id, i), escapeLabel(nodeLabel(&recipe.Steps[i])))
	}

	g := recipegraph.BuildGraph(recipe)
	for _, e := range g.Edges() {
		ingredients, instruments, vessels := provides(recipe, e.From, e.To)
		from, to := stepNode(id, e.From), stepNode(id, e.To)
		if len(ingredients) > 0 {
			fmt.Fprintf(b, "%s --->%s %s;\n", from, pipeLabel(ingredients), to)
		}
		if len(instruments) > 0 {
			fmt.Fprintf(b, "%s ===>%s %s;\n", from, pipeLabel(instruments), to)
		}
		if len(vessels) > 0 {
			if label := escapeLabel(EnglishList(vessels)); label != "" {
				fmt.Fprintf(b, "%s -. %s .-> %s;\n", from, label, to)
			} else {
				fmt.Fprintf(b, "%s -.-> %s;\n", from, to)
			}
		}
	}

	fmt.Fprintf(b, "subgraph %s [\"%s\"]\ndirection %s\n", id, escapeLabel(recipe.Name), direction)
	for i := range recipe.Steps {
		fmt.Fprintf(b, "%s;\n", stepNode(id, i))
	}
	for i, task := range recipe.PrepTasks {
		fmt.Fprintf(b, "subgraph %s_%d [\"%s\"]\ndirection %s\n", id, i, escapeLabel(prepTaskLabel(task)), direction)
		for _, s := range task.StepIndices {
			if s >= 0 && s < len(recipe.Steps) {
				fmt.Fprintf(b, "%s;\n", stepNode(id, s))
			}
		}
		b.WriteString("end\n")
	}
	b.WriteString("end\n")
}

// nodeLabel is "<preparation> <ingredients>", raw ingredients first.
func nodeLabel(step *domain.Step) string {
	var raw, fromProducts []string
	for _, ing := range step.Ingredients {
		if ing.Name == "" {
			continue
		}
		if ing.From == nil {
			raw = append(raw, ing.Name)
		} else {
			fromProducts = append(fromProducts, ing.Name)
		}
	}

	names := append(raw, fromProducts...)
	list := EnglishList(names)
	if len(names) > maxLabelItems {
		list = strings.Join(append(names[:2:2], "etc..."), ", ")
	}
	return strings.TrimSpace(step.Preparation + " " + list)
}

// provides lists, by kind, the names of step to's uses bound to products of step from.
func provides(recipe *domain.Recipe, from, to int) (ingredients, instruments, vessels []string) {
	for _, use := range recipe.Steps[to].Uses() {
		ref, ok := use.Source()
		if !ok || ref.StepIndex != from {
			continue
		}
		product, ok := recipegraph.ResolveProduct(recipe, to, ref)
		if !ok {
			continue
		}
		name := use.UseName()
		if name == "" {
			name = product.Name
		}
		switch use.UseKind() {
		case domain.ProductIngredient:
			ingredients = append(ingredients, name)
		case domain.ProductInstrument:
			instruments = append(instruments, name)
		case domain.ProductVessel:
			vessels = append(vessels, name)
		}
	}
	return ingredients, instruments, vessels
}

func prepTaskLabel(task domain.PrepTask) string {
	if task.MaxBufferBeforeRecipe <= 0 {
		return "prep task: " + task.Name
	}
	return fmt.Sprintf("(up to %s in advance)", humanDuration(task.MaxBufferBeforeRecipe))
}

func pipeLabel(names []string) string {
	label := escapeLabel(EnglishList(names))
	if label == "" {
		return ""
	}
	return "|" + label + "|"
}

var nonIdent = regexp.MustCompile(`[^A-Za-z0-9_]+`)

// nodePrefix turns a recipe ID into a Mermaid-safe identifier.
func nodePrefix(recipe *domain.Recipe) string {
	id := nonIdent.ReplaceAllString(recipe.ID, "_")
	if id == "" || id == "_" {
		return "recipe"
	}
	return id
}

func stepNode(prefix string, i int) string {
	return prefix + "_Step" + strconv.Itoa(i)
}

// escapeLabel makes s safe inside a quoted Mermaid label.
func escapeLabel(s string) string {
	s = strings.ReplaceAll(s, `"`, "#quot;")
	s = strings.ReplaceAll(s, "|", "#124;")
	return strings.ReplaceAll(s, "\n", " ")
}

var edgeLine = regexp.MustCompile(`^(\w+)_Step(\d+)\s+(?:--->|===>|-\.)(?:.*?)\s(\w+)_Step(\d+);$`)

// ParseEdges reads the step edges back out of rendered diagram text for
// the recipe with the given ID. The result is deduplicated and ordered by
// From then To.
func ParseEdges(text, recipeID string) []recipegraph.Edge {
	prefix := nodePrefix(&domain.Recipe{ID: recipeID})
	seen := make(map[recipegraph.Edge]bool)
	var out []recipegraph.Edge

	for _, line := range strings.Split(text, "\n") {
		m := edgeLine.FindStringSubmatch(strings.TrimSpace(line))
		if m == nil || m[1] != prefix || m[3] != prefix {
			continue
		}
		from, err1 := strconv.Atoi(m[2])
		to, err2 := strconv.Atoi(m[4])
		if err1 != nil || err2 != nil {
			continue
		}
		e := recipegraph.Edge{From: from, To: to}
		if !seen[e] {
			seen[e] = true
			out = append(out, e)
		}
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].From != out[j].From {
			return out[i].From < out[j].From
		}
		return out[i].To < out[j].To
	})
	return out
}
