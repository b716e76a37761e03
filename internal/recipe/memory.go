// Package recipe provides recipe source implementations.
package recipe

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/hammamikhairi/ottoflow/internal/domain"
	"github.com/hammamikhairi/ottoflow/internal/logger"
)

// Compile-time interface check.
var _ domain.RecipeSource = (*MemorySource)(nil)

// MemorySource holds recipes in memory. Safe for concurrent reads.
type MemorySource struct {
	mu      sync.RWMutex
	recipes map[string]*domain.Recipe
	log     *logger.Logger
}

// NewMemorySource creates a recipe source preloaded with built-in recipes.
func NewMemorySource(log *logger.Logger) *MemorySource {
	src := NewEmptySource(log)
	src.seed()
	return src
}

// NewEmptySource creates a recipe source with no recipes.
func NewEmptySource(log *logger.Logger) *MemorySource {
	return &MemorySource{
		recipes: make(map[string]*domain.Recipe),
		log:     log,
	}
}

// List returns summaries of all available recipes.
func (s *MemorySource) List(ctx context.Context) ([]domain.RecipeSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	s.log.Debug("listing all recipes, count=%d", len(s.recipes))

	out := make([]domain.RecipeSummary, 0, len(s.recipes))
	for _, r := range s.recipes {
		out = append(out, r.Summary())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// Get returns a recipe by ID.
func (s *MemorySource) Get(ctx context.Context, id string) (*domain.Recipe, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.recipes[id]
	if !ok {
		s.log.Debug("recipe not found: %s", id)
		return nil, fmt.Errorf("recipe %q: %w", id, domain.ErrNotFound)
	}
	return r, nil
}

// Add inserts a new recipe. The ID must not be taken.
func (s *MemorySource) Add(ctx context.Context, recipe *domain.Recipe) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if recipe.ID == "" {
		return fmt.Errorf("recipe %q has no id: %w", recipe.Name, domain.ErrInvalidRecipe)
	}
	if _, ok := s.recipes[recipe.ID]; ok {
		return fmt.Errorf("recipe %q: %w", recipe.ID, domain.ErrAlreadyExists)
	}
	if recipe.Version == 0 {
		recipe.Version = 1
	}
	s.recipes[recipe.ID] = recipe
	s.log.Debug("recipe added: %s", recipe.ID)
	return nil
}

// Update replaces a recipe in the source. The recipe ID must already exist.
func (s *MemorySource) Update(ctx context.Context, recipe *domain.Recipe) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	old, ok := s.recipes[recipe.ID]
	if !ok {
		return fmt.Errorf("recipe %q: %w", recipe.ID, domain.ErrNotFound)
	}
	recipe.Version = old.Version + 1
	s.recipes[recipe.ID] = recipe
	s.log.Info("recipe updated: %s (v%d)", recipe.Name, recipe.Version)
	return nil
}

// Search returns recipes whose name, description or tags contain the query string.
func (s *MemorySource) Search(ctx context.Context, query string) ([]domain.RecipeSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	q := strings.ToLower(query)
	s.log.Debug("searching recipes for: %s", q)

	var out []domain.RecipeSummary
	for _, r := range s.recipes {
		if s.matches(r, q) {
			out = append(out, r.Summary())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *MemorySource) matches(r *domain.Recipe, query string) bool {
	if strings.Contains(strings.ToLower(r.Name), query) {
		return true
	}
	if strings.Contains(strings.ToLower(r.Description), query) {
		return true
	}
	for _, tag := range r.Tags {
		if strings.Contains(strings.ToLower(tag), query) {
			return true
		}
	}
	return false
}

// seed populates the source with built-in recipes.
func (s *MemorySource) seed() {
	butter := garlicButter()
	recipes := []*domain.Recipe{
		vegetableStirFry(),
		chickenAlfredo(butter),
		butter,
	}
	for _, r := range recipes {
		s.recipes[r.ID] = r
	}
	s.log.Debug("seeded %d recipes", len(recipes))
}

func from(step, product int) *domain.ProductRef {
	return &domain.ProductRef{StepIndex: step, ProductIndex: product}
}

func garlicButter() *domain.Recipe {
	return &domain.Recipe{
		ID:          "garlic-butter",
		Name:        "Garlic Butter",
		Description: "Soft butter beaten with garlic and parsley. Keeps a week in the fridge.",
		Servings:    4,
		Tags:        []string{"sauce", "basics", "vegetarian"},
		Steps: []domain.Step{
			{
				ID:          "gb-1",
				Preparation: "mince",
				Ingredients: []domain.IngredientUse{
					{Name: "garlic clove", PluralName: "garlic cloves", MinimumQuantity: 4, MeasurementUnit: "units"},
					{Name: "parsley", MinimumQuantity: 2, MeasurementUnit: "tablespoons"},
				},
				Instruments: []domain.InstrumentUse{{Name: "chef's knife", MinimumQuantity: 1}},
				Vessels:     []domain.VesselUse{{Name: "cutting board", Preposition: "on", MinimumQuantity: 1}},
				Products:    []domain.Product{{Name: "minced garlic", Type: domain.ProductIngredient}},
			},
			{
				ID:          "gb-2",
				Preparation: "beat",
				Ingredients: []domain.IngredientUse{
					{Name: "butter", MinimumQuantity: 100, MeasurementUnit: "grams"},
					{Name: "minced garlic", From: from(0, 0)},
				},
				Instruments: []domain.InstrumentUse{{Name: "fork", MinimumQuantity: 1}},
				Vessels:     []domain.VesselUse{{Name: "small bowl", Preposition: "in", MinimumQuantity: 1}},
				Products:    []domain.Product{{Name: "garlic butter", Type: domain.ProductIngredient, MinimumQuantity: 100, MeasurementUnit: "grams"}},
			},
		},
		PrepTasks: []domain.PrepTask{
			{Name: "make garlic butter", MaxBufferBeforeRecipe: 7 * 24 * time.Hour, StepIndices: []int{0, 1}},
		},
		Version: 1,
	}
}

func chickenAlfredo(butter *domain.Recipe) *domain.Recipe {
	return &domain.Recipe{
		ID:                "chicken-alfredo",
		Name:              "Chicken Alfredo",
		Description:       "Creamy spaghetti alfredo with pan-seared chicken. Rich, indulgent, and not from a jar.",
		Servings:          2,
		Tags:              []string{"italian", "pasta", "chicken", "comfort"},
		SupportingRecipes: []*domain.Recipe{butter},
		Steps: []domain.Step{
			{
				ID:          "ca-1",
				Preparation: "boil",
				Ingredients: []domain.IngredientUse{
					{Name: "water", MinimumQuantity: 4, MeasurementUnit: "liters"},
					{Name: "salt", MinimumQuantity: 1, MeasurementUnit: "tablespoon"},
				},
				Vessels:  []domain.VesselUse{{Name: "large pot", Preposition: "in", MinimumQuantity: 1}},
				Products: []domain.Product{{Name: "salted boiling water", Type: domain.ProductIngredient}},
			},
			{
				ID:          "ca-2",
				Preparation: "season",
				Notes:       "Season the chicken on both sides and pound it to an even thickness so it cooks evenly.",
				Ingredients: []domain.IngredientUse{
					{Name: "chicken breast", PluralName: "chicken breasts", MinimumQuantity: 2, MeasurementUnit: "units"},
					{Name: "black pepper"},
				},
				Instruments: []domain.InstrumentUse{{Name: "meat mallet", MinimumQuantity: 1}},
				Products:    []domain.Product{{Name: "seasoned chicken", Type: domain.ProductIngredient}},
			},
			{
				ID:          "ca-3",
				Preparation: "sear",
				Ingredients: []domain.IngredientUse{
					{Name: "seasoned chicken", From: from(1, 0)},
					{Name: "olive oil", MinimumQuantity: 1, MeasurementUnit: "tablespoon"},
				},
				Vessels: []domain.VesselUse{{Name: "skillet", Preposition: "in", MinimumQuantity: 1}},
				Products: []domain.Product{
					{Name: "seared chicken", Type: domain.ProductIngredient},
					{Name: "used skillet", Type: domain.ProductVessel},
				},
			},
			{
				ID:          "ca-4",
				Preparation: "cook",
				Ingredients: []domain.IngredientUse{
					{Name: "spaghetti", MinimumQuantity: 250, MeasurementUnit: "grams"},
					{Name: "salted boiling water", From: from(0, 0)},
				},
				Products: []domain.Product{
					{Name: "al dente spaghetti", Type: domain.ProductIngredient},
					{Name: "pasta water", Type: domain.ProductIngredient, MinimumQuantity: 1, MeasurementUnit: "cup"},
				},
			},
			{
				ID:          "ca-5",
				Preparation: "melt",
				Ingredients: []domain.IngredientUse{
					{Name: "garlic butter", MinimumQuantity: 3, MeasurementUnit: "tablespoons"},
				},
				Vessels: []domain.VesselUse{{Name: "used skillet", Preposition: "in", MinimumQuantity: 1, From: from(2, 1)}},
				Products: []domain.Product{
					{Name: "melted garlic butter", Type: domain.ProductIngredient},
					{Name: "warm skillet", Type: domain.ProductVessel},
				},
			},
			{
				ID:          "ca-6",
				Preparation: "simmer",
				Ingredients: []domain.IngredientUse{
					{Name: "creme fraiche", MinimumQuantity: 1, MeasurementUnit: "cup"},
					{Name: "melted garlic butter", From: from(4, 0)},
				},
				Vessels:  []domain.VesselUse{{Name: "warm skillet", Preposition: "in", MinimumQuantity: 1, From: from(4, 1)}},
				Products: []domain.Product{{Name: "cream sauce", Type: domain.ProductIngredient}},
			},
			{
				ID:          "ca-7",
				Preparation: "stir",
				Ingredients: []domain.IngredientUse{
					{Name: "gruyere cheese", MinimumQuantity: 1, MeasurementUnit: "cup"},
					{Name: "cream sauce", From: from(5, 0)},
					{Name: "pasta water", Optional: true, From: from(3, 1)},
				},
				Products: []domain.Product{{Name: "alfredo sauce", Type: domain.ProductIngredient}},
			},
			{
				ID:          "ca-8",
				Preparation: "toss",
				Ingredients: []domain.IngredientUse{
					{Name: "al dente spaghetti", From: from(3, 0)},
					{Name: "alfredo sauce", From: from(6, 0)},
					{Name: "seared chicken", From: from(2, 0)},
				},
				Instruments: []domain.InstrumentUse{{Name: "pair of tongs", PluralName: "pairs of tongs", MinimumQuantity: 1}},
			},
		},
		Version: 1,
	}
}

func vegetableStirFry() *domain.Recipe {
	return &domain.Recipe{
		ID:          "vegetable-stir-fry",
		Name:        "Vegetable Stir Fry",
		Description: "Fast, crunchy, and customizable. The key is a screaming hot pan and not overcrowding it.",
		Servings:    2,
		Tags:        []string{"asian", "vegetables", "quick", "vegan", "healthy"},
		Steps: []domain.Step{
			{
				ID:          "vsf-1",
				Preparation: "cook",
				Ingredients: []domain.IngredientUse{
					{Name: "rice", MinimumQuantity: 1, MeasurementUnit: "cup", Optional: true},
					{Name: "water", MinimumQuantity: 2, MeasurementUnit: "cups"},
				},
				Vessels:  []domain.VesselUse{{Name: "rice cooker", Preposition: "in", MinimumQuantity: 1}},
				Products: []domain.Product{{Name: "cooked rice", Type: domain.ProductIngredient}},
			},
			{
				ID:          "vsf-2",
				Preparation: "slice",
				Ingredients: []domain.IngredientUse{
					{Name: "bell pepper", PluralName: "bell peppers", MinimumQuantity: 1, MeasurementUnit: "units"},
					{Name: "broccoli florets", MinimumQuantity: 2, MeasurementUnit: "cups"},
					{Name: "carrot", PluralName: "carrots", MinimumQuantity: 1, MeasurementUnit: "units"},
					{Name: "snap peas", MinimumQuantity: 1, MeasurementUnit: "cup"},
				},
				Instruments: []domain.InstrumentUse{{Name: "chef's knife", MinimumQuantity: 1}},
				Vessels:     []domain.VesselUse{{Name: "cutting board", Preposition: "on", MinimumQuantity: 1}},
				Products: []domain.Product{
					{Name: "sliced vegetables", Type: domain.ProductIngredient},
					{Name: "used cutting board", Type: domain.ProductVessel},
				},
			},
			{
				ID:          "vsf-3",
				Preparation: "mince",
				Ingredients: []domain.IngredientUse{
					{Name: "garlic clove", PluralName: "garlic cloves", MinimumQuantity: 3, MeasurementUnit: "units"},
					{Name: "fresh ginger", MinimumQuantity: 1, MeasurementUnit: "tablespoon"},
				},
				Instruments: []domain.InstrumentUse{{Name: "grater", MinimumQuantity: 1}},
				Vessels:     []domain.VesselUse{{Name: "used cutting board", Preposition: "on", MinimumQuantity: 1, From: from(1, 1)}},
				Products:    []domain.Product{{Name: "aromatics", Type: domain.ProductIngredient}},
			},
			{
				ID:          "vsf-4",
				Preparation: "mix",
				Ingredients: []domain.IngredientUse{
					{Name: "soy sauce", MinimumQuantity: 2, MeasurementUnit: "tablespoons"},
					{Name: "sesame oil", MinimumQuantity: 1, MeasurementUnit: "tablespoon"},
					{Name: "cornstarch", MinimumQuantity: 1, MeasurementUnit: "teaspoon", Optional: true},
					{Name: "water", MinimumQuantity: 2, MeasurementUnit: "tablespoons"},
				},
				Vessels:  []domain.VesselUse{{Name: "small bowl", Preposition: "in", MinimumQuantity: 1}},
				Products: []domain.Product{{Name: "stir-fry sauce", Type: domain.ProductIngredient}},
			},
			{
				ID:          "vsf-5",
				Preparation: "heat",
				Ingredients: []domain.IngredientUse{
					{Name: "vegetable oil", MinimumQuantity: 2, MeasurementUnit: "tablespoons"},
				},
				Vessels:  []domain.VesselUse{{Name: "wok", Preposition: "in", MinimumQuantity: 1}},
				Products: []domain.Product{{Name: "smoking wok", Type: domain.ProductVessel}},
			},
			{
				ID:          "vsf-6",
				Preparation: "stir-fry",
				Notes:       "Stir-fry the broccoli and carrots for 2 minutes, then the peppers and snap peas for 2 more. Let them char.",
				Ingredients: []domain.IngredientUse{{Name: "sliced vegetables", From: from(1, 0)}},
				Vessels:     []domain.VesselUse{{Name: "smoking wok", Preposition: "in", MinimumQuantity: 1, From: from(4, 0)}},
				Products: []domain.Product{
					{Name: "charred vegetables", Type: domain.ProductIngredient},
					{Name: "hot wok", Type: domain.ProductVessel},
				},
			},
			{
				ID:          "vsf-7",
				Preparation: "toss",
				Ingredients: []domain.IngredientUse{
					{Name: "aromatics", From: from(2, 0)},
					{Name: "charred vegetables", From: from(5, 0)},
					{Name: "stir-fry sauce", From: from(3, 0)},
				},
				Vessels:  []domain.VesselUse{{Name: "hot wok", Preposition: "in", MinimumQuantity: 1, From: from(5, 1)}},
				Products: []domain.Product{{Name: "stir-fried vegetables", Type: domain.ProductIngredient}},
			},
			{
				ID:          "vsf-8",
				Preparation: "serve",
				Ingredients: []domain.IngredientUse{
					{Name: "stir-fried vegetables", From: from(6, 0)},
					{Name: "cooked rice", Optional: true, From: from(0, 0)},
				},
			},
		},
		PrepTasks: []domain.PrepTask{
			{Name: "prep vegetables", MaxBufferBeforeRecipe: 4 * time.Hour, StepIndices: []int{1, 2}},
			{Name: "mix sauce", StepIndices: []int{3}},
		},
		Version: 1,
	}
}
