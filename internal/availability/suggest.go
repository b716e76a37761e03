package availability

import "github.com/hammamikhairi/ottoflow/internal/domain"

// Suggestion is a ready-made use bound to an available product.
type Suggestion[U domain.Use] struct {
	StepIndex    int
	ProductIndex int
	Use          U
}

// suggest turns the candidates of type t into uses via convert.
func suggest[U domain.Use](recipe *domain.Recipe, upto int, t domain.ProductType, convert func(Candidate) U) []Suggestion[U] {
	candidates := AvailableProducts(recipe, upto, t)
	if len(candidates) == 0 {
		return nil
	}
	out := make([]Suggestion[U], 0, len(candidates))
	for _, c := range candidates {
		out = append(out, Suggestion[U]{
			StepIndex:    c.StepIndex,
			ProductIndex: c.ProductIndex,
			Use:          convert(c),
		})
	}
	return out
}

// IngredientSuggestions offers the unconsumed ingredient products before step upto.
func IngredientSuggestions(recipe *domain.Recipe, upto int) []Suggestion[domain.IngredientUse] {
	return suggest(recipe, upto, domain.ProductIngredient, func(c Candidate) domain.IngredientUse {
		ref := c.Ref()
		return domain.IngredientUse{
			Name:            c.Product.Name,
			MinimumQuantity: c.Product.MinimumQuantity,
			MeasurementUnit: c.Product.MeasurementUnit,
			From:            &ref,
		}
	})
}

// InstrumentSuggestions offers the unconsumed instrument products before step upto.
func InstrumentSuggestions(recipe *domain.Recipe, upto int) []Suggestion[domain.InstrumentUse] {
	return suggest(recipe, upto, domain.ProductInstrument, func(c Candidate) domain.InstrumentUse {
		ref := c.Ref()
		return domain.InstrumentUse{
			Name:            c.Product.Name,
			MinimumQuantity: 1,
			From:            &ref,
		}
	})
}

// VesselSuggestions offers the unconsumed vessel products before step upto.
func VesselSuggestions(recipe *domain.Recipe, upto int) []Suggestion[domain.VesselUse] {
	return suggest(recipe, upto, domain.ProductVessel, func(c Candidate) domain.VesselUse {
		ref := c.Ref()
		qty := int(c.Product.MinimumQuantity)
		if qty < 1 {
			qty = 1
		}
		return domain.VesselUse{
			Name:            c.Product.Name,
			MinimumQuantity: qty,
			From:            &ref,
		}
	})
}
