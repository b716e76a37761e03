// Package domain defines the core types and interfaces for the recipe flow tools.
// All other packages depend on domain; domain depends on nothing.
package domain

import (
	"fmt"
	"strings"
	"time"
)

// Recipe is an ordered sequence of steps. Step order is stable and is the
// only natural ordering: a step may only consume products of steps at a
// strictly earlier position.
type Recipe struct {
	ID                string
	Name              string
	Description       string
	Servings          int
	Steps             []Step
	PrepTasks         []PrepTask
	SupportingRecipes []*Recipe
	Tags              []string
	Version           int
}

// RecipeSummary is a lightweight view of a recipe for listing.
type RecipeSummary struct {
	ID          string
	Name        string
	Description string
	Tags        []string
	StepCount   int
}

// Summary returns the listing view of the recipe.
func (r *Recipe) Summary() RecipeSummary {
	return RecipeSummary{
		ID:          r.ID,
		Name:        r.Name,
		Description: r.Description,
		Tags:        r.Tags,
		StepCount:   len(r.Steps),
	}
}

// Step is one instruction unit. It is identified by its position in
// Recipe.Steps (0-based; displayed 1-based).
type Step struct {
	ID          string
	Preparation string // "dice", "sauté", "bake"
	Notes       string // explicit instructions override the generated text
	Ingredients []IngredientUse
	Instruments []InstrumentUse
	Vessels     []VesselUse
	Products    []Product
}

// Uses returns every use of the step: ingredients, then instruments, then vessels.
func (s *Step) Uses() []Use {
	out := make([]Use, 0, len(s.Ingredients)+len(s.Instruments)+len(s.Vessels))
	for i := range s.Ingredients {
		out = append(out, s.Ingredients[i])
	}
	for i := range s.Instruments {
		out = append(out, s.Instruments[i])
	}
	for i := range s.Vessels {
		out = append(out, s.Vessels[i])
	}
	return out
}

// ProductType is the category of a step product.
type ProductType int

const (
	ProductIngredient ProductType = iota
	ProductInstrument
	ProductVessel
)

// ProductTypes lists every category in display order.
var ProductTypes = []ProductType{ProductIngredient, ProductInstrument, ProductVessel}

// String returns a human-readable product type.
func (t ProductType) String() string {
	switch t {
	case ProductIngredient:
		return "ingredient"
	case ProductInstrument:
		return "instrument"
	case ProductVessel:
		return "vessel"
	default:
		return "unknown"
	}
}

// ParseProductType converts "ingredient", "instrument" or "vessel" (any case)
// into a ProductType.
func ParseProductType(s string) (ProductType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "ingredient", "":
		return ProductIngredient, nil
	case "instrument":
		return ProductInstrument, nil
	case "vessel":
		return ProductVessel, nil
	default:
		return 0, fmt.Errorf("%w: unknown product type %q", ErrInvalidRecipe, s)
	}
}

// Product is a named output of a step that a later step may consume.
type Product struct {
	Name            string
	Type            ProductType
	MinimumQuantity float64
	MeasurementUnit string
	QuantityNotes   string
}

// ProductRef identifies a product by producing step and its index within
// that step's product list.
type ProductRef struct {
	StepIndex    int
	ProductIndex int
}

// String returns "step#product" using 1-based step numbers.
func (r ProductRef) String() string {
	return fmt.Sprintf("%d#%d", r.StepIndex+1, r.ProductIndex)
}

// Use is what the graph builder and availability tracker need from any
// ingredient, instrument or vessel reference.
type Use interface {
	UseKind() ProductType
	UseName() string
	// Source returns the upstream product this use consumes. ok is false
	// for externally sourced items.
	Source() (ref ProductRef, ok bool)
}

// IngredientUse is an ingredient a step needs.
type IngredientUse struct {
	Name            string
	PluralName      string
	MinimumQuantity float64
	MaximumQuantity float64
	MeasurementUnit string
	Optional        bool
	From            *ProductRef // nil for raw ingredients
}

func (u IngredientUse) UseKind() ProductType { return ProductIngredient }
func (u IngredientUse) UseName() string      { return u.Name }
func (u IngredientUse) Source() (ProductRef, bool) {
	if u.From == nil {
		return ProductRef{}, false
	}
	return *u.From, true
}

// InstrumentUse is a tool a step needs.
type InstrumentUse struct {
	Name            string
	PluralName      string
	MinimumQuantity int
	MaximumQuantity int
	From            *ProductRef
}

func (u InstrumentUse) UseKind() ProductType { return ProductInstrument }
func (u InstrumentUse) UseName() string      { return u.Name }
func (u InstrumentUse) Source() (ProductRef, bool) {
	if u.From == nil {
		return ProductRef{}, false
	}
	return *u.From, true
}

// VesselUse is a container a step needs.
type VesselUse struct {
	Name            string
	PluralName      string
	Preposition     string // "in", "on", "into"
	MinimumQuantity int
	MaximumQuantity int
	From            *ProductRef
}

func (u VesselUse) UseKind() ProductType { return ProductVessel }
func (u VesselUse) UseName() string      { return u.Name }
func (u VesselUse) Source() (ProductRef, bool) {
	if u.From == nil {
		return ProductRef{}, false
	}
	return *u.From, true
}

// PrepTask groups steps that may be done ahead of the main cook.
type PrepTask struct {
	Name                  string
	MaxBufferBeforeRecipe time.Duration // 0 when there is no advance window
	StepIndices           []int
}
