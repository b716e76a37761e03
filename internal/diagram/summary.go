package diagram

import (
	"fmt"
	"strings"

	"github.com/hammamikhairi/ottoflow/internal/domain"
	"github.com/hammamikhairi/ottoflow/internal/recipegraph"
)

// StepSummary renders step i of recipe as one sentence, e.g.
// "Using a whisk, whisk 2 cups flour and the batter from step #1 in a bowl
// to yield the ingredient pancake batter." Quantities are multiplied by
// scale (values <= 0 mean 1). Explicit step notes win over generated text.
// An out-of-range index yields "".
func StepSummary(recipe *domain.Recipe, i int, scale float64) string {
	if recipe == nil || i < 0 || i >= len(recipe.Steps) {
		return ""
	}
	if scale <= 0 {
		scale = 1
	}
	step := &recipe.Steps[i]
	if notes := strings.TrimSpace(step.Notes); notes != "" {
		return capitalize(notes)
	}

	var parts []string
	if len(step.Instruments) > 0 {
		parts = append(parts, "using "+EnglishList(instrumentPhrases(recipe, i))+",")
	}
	parts = append(parts, step.Preparation, EnglishList(ingredientPhrases(recipe, i, scale)), EnglishList(vesselPhrases(recipe, i)))
	if yield := productPhrase(step.Products); yield != "" {
		parts = append(parts, "to yield "+yield)
	}

	out := collapseSpaces(strings.Join(parts, " "))
	out = strings.TrimSuffix(out, ",")
	if out == "" {
		return ""
	}
	return capitalize(out) + "."
}

// fromStep is " from step #N" for a resolvable product reference.
func fromStep(recipe *domain.Recipe, owner int, ref *domain.ProductRef) string {
	if ref == nil {
		return ""
	}
	if _, ok := recipegraph.ResolveProduct(recipe, owner, *ref); !ok {
		return ""
	}
	return fmt.Sprintf(" from step #%d", ref.StepIndex+1)
}

func ingredientPhrases(recipe *domain.Recipe, i int, scale float64) []string {
	var out []string
	for _, ing := range recipe.Steps[i].Ingredients {
		if ing.From != nil {
			out = append(out, "the "+ing.Name+fromStep(recipe, i, ing.From))
			continue
		}

		qty := ing.MinimumQuantity * scale
		name := ing.Name
		if cleanFloat(qty) != "1" && ing.PluralName != "" {
			name = ing.PluralName
		}
		amount := ""
		if qty > 0 {
			amount = cleanFloat(qty)
			if ing.MaximumQuantity > ing.MinimumQuantity {
				amount += " to " + cleanFloat(ing.MaximumQuantity*scale)
			}
		}
		unit := ing.MeasurementUnit
		if unit == "unit" || unit == "units" {
			unit = ""
		}
		out = append(out, collapseSpaces(amount+" "+unit+" "+name))
	}
	return out
}

func instrumentPhrases(recipe *domain.Recipe, i int) []string {
	var out []string
	for _, in := range recipe.Steps[i].Instruments {
		out = append(out, countedPhrase(in.Name, in.PluralName, in.MinimumQuantity, in.MaximumQuantity, in.From != nil)+fromStep(recipe, i, in.From))
	}
	return out
}

func vesselPhrases(recipe *domain.Recipe, i int) []string {
	var out []string
	for _, v := range recipe.Steps[i].Vessels {
		phrase := countedPhrase(v.Name, v.PluralName, v.MinimumQuantity, v.MaximumQuantity, v.From != nil)
		if v.Preposition != "" && v.MinimumQuantity <= 1 {
			phrase = v.Preposition + " " + phrase
		}
		out = append(out, phrase+fromStep(recipe, i, v.From))
	}
	return out
}

// countedPhrase is "a whisk", "the whisk" (for a product), or "2 to 3 whisks".
func countedPhrase(name, plural string, minQty, maxQty int, isProduct bool) string {
	if minQty <= 1 {
		if isProduct {
			return "the " + name
		}
		return "a " + name
	}
	if plural == "" {
		plural = name
	}
	if maxQty > minQty {
		return fmt.Sprintf("%d to %d %s", minQty, maxQty, plural)
	}
	return fmt.Sprintf("%d %s", minQty, plural)
}

// productPhrase is "the ingredients a and b, a whisk, and a lined tray".
func productPhrase(products []domain.Product) string {
	byType := map[domain.ProductType][]string{}
	for _, p := range products {
		byType[p.Type] = append(byType[p.Type], p.Name)
	}

	var groups []string
	if names := byType[domain.ProductIngredient]; len(names) > 0 {
		noun := "ingredient"
		if len(names) > 1 {
			noun = "ingredients"
		}
		groups = append(groups, "the "+noun+" "+EnglishList(names))
	}
	for _, t := range []domain.ProductType{domain.ProductInstrument, domain.ProductVessel} {
		var items []string
		for _, name := range byType[t] {
			items = append(items, "a "+name)
		}
		if len(items) > 0 {
			groups = append(groups, EnglishList(items))
		}
	}
	return EnglishList(groups)
}
