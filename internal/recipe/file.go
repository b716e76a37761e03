package recipe

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/zclconf/go-cty/cty"
	"gopkg.in/yaml.v3"

	"github.com/hammamikhairi/ottoflow/internal/domain"
)

// Recipe files hold one or more recipes. The three formats share one shape:
//
//	recipe "pancakes" {
//	  name     = "Pancakes"
//	  servings = 4
//	  requires = ["whipped-cream"]
//
//	  step "whisk" {
//	    preparation = "whisk"
//	    ingredient "flour" {
//	      quantity = 50 * servings
//	      unit     = "grams"
//	    }
//	    product "batter" {}
//	  }
//	  step "fry" {
//	    preparation = "fry"
//	    ingredient "batter" { from = "whisk.batter" }
//	  }
//	}
//
// A "from" reference names an earlier step (by id or 1-based number) and
// one of its products (by name or 1-based number). In HCL files the
// recipe's servings is available to expressions as `servings`.

type fileDocument struct {
	Recipes []fileRecipe `toml:"recipe" yaml:"recipes"`
}

type fileRecipe struct {
	ID          string         `toml:"id" yaml:"id"`
	Servings    int            `toml:"servings" yaml:"servings"`
	Name        string         `hcl:"name" toml:"name" yaml:"name"`
	Description string         `hcl:"description,optional" toml:"description" yaml:"description"`
	Tags        []string       `hcl:"tags,optional" toml:"tags" yaml:"tags"`
	Requires    []string       `hcl:"requires,optional" toml:"requires" yaml:"requires"`
	Steps       []fileStep     `hcl:"step,block" toml:"step" yaml:"steps"`
	PrepTasks   []filePrepTask `hcl:"prep_task,block" toml:"prep_task" yaml:"prep_tasks"`
}

type fileStep struct {
	ID          string           `hcl:"id,label" toml:"id" yaml:"id"`
	Preparation string           `hcl:"preparation,optional" toml:"preparation" yaml:"preparation"`
	Notes       string           `hcl:"notes,optional" toml:"notes" yaml:"notes"`
	Ingredients []fileIngredient `hcl:"ingredient,block" toml:"ingredient" yaml:"ingredients"`
	Instruments []fileTool       `hcl:"instrument,block" toml:"instrument" yaml:"instruments"`
	Vessels     []fileTool       `hcl:"vessel,block" toml:"vessel" yaml:"vessels"`
	Products    []fileProduct    `hcl:"product,block" toml:"product" yaml:"products"`
}

type fileIngredient struct {
	Name        string  `hcl:"name,label" toml:"name" yaml:"name"`
	Plural      string  `hcl:"plural,optional" toml:"plural" yaml:"plural"`
	Quantity    float64 `hcl:"quantity,optional" toml:"quantity" yaml:"quantity"`
	MaxQuantity float64 `hcl:"max_quantity,optional" toml:"max_quantity" yaml:"max_quantity"`
	Unit        string  `hcl:"unit,optional" toml:"unit" yaml:"unit"`
	Optional    bool    `hcl:"optional,optional" toml:"optional" yaml:"optional"`
	From        string  `hcl:"from,optional" toml:"from" yaml:"from"`
}

// fileTool is an instrument or vessel use.
type fileTool struct {
	Name        string `hcl:"name,label" toml:"name" yaml:"name"`
	Plural      string `hcl:"plural,optional" toml:"plural" yaml:"plural"`
	Preposition string `hcl:"preposition,optional" toml:"preposition" yaml:"preposition"`
	Quantity    int    `hcl:"quantity,optional" toml:"quantity" yaml:"quantity"`
	MaxQuantity int    `hcl:"max_quantity,optional" toml:"max_quantity" yaml:"max_quantity"`
	From        string `hcl:"from,optional" toml:"from" yaml:"from"`
}

type fileProduct struct {
	Name     string  `hcl:"name,label" toml:"name" yaml:"name"`
	Type     string  `hcl:"type,optional" toml:"type" yaml:"type"`
	Quantity float64 `hcl:"quantity,optional" toml:"quantity" yaml:"quantity"`
	Unit     string  `hcl:"unit,optional" toml:"unit" yaml:"unit"`
	Notes    string  `hcl:"notes,optional" toml:"notes" yaml:"notes"`
}

type filePrepTask struct {
	Name   string   `hcl:"name,label" toml:"name" yaml:"name"`
	Buffer string   `hcl:"buffer,optional" toml:"buffer" yaml:"buffer"`
	Steps  []string `hcl:"steps,optional" toml:"steps" yaml:"steps"`
}

// hclFile reads the recipe label and servings first so servings can be
// put in the evaluation context for the rest of the block.
type hclFile struct {
	Recipes []hclRecipeHead `hcl:"recipe,block"`
}

type hclRecipeHead struct {
	ID       string   `hcl:"id,label"`
	Servings int      `hcl:"servings,optional"`
	Body     hcl.Body `hcl:",remain"`
}

// Extensions lists the recipe file extensions the loader understands.
var Extensions = []string{".hcl", ".toml", ".yaml", ".yml"}

// draft is a decoded recipe whose supporting recipes are still IDs.
type draft struct {
	recipe   *domain.Recipe
	requires []string
}

// ParseRecipes decodes recipe file content. The format is picked from the
// extension of filename. Supporting recipes are resolved among the
// recipes of the same file only.
func ParseRecipes(filename string, data []byte) ([]*domain.Recipe, error) {
	drafts, err := parseFile(filename, data)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]*domain.Recipe, len(drafts))
	for _, d := range drafts {
		byID[d.recipe.ID] = d.recipe
	}
	if err := link(drafts, func(id string) *domain.Recipe { return byID[id] }); err != nil {
		return nil, err
	}
	out := make([]*domain.Recipe, len(drafts))
	for i, d := range drafts {
		out[i] = d.recipe
	}
	return out, nil
}

// LoadDir adds every recipe file directly inside dir to the source and
// returns how many recipes were added. A file recipe replaces a built-in
// recipe with the same ID; two files defining the same ID is an error.
// Supporting recipes may live in any file of the directory or be built in.
func (s *MemorySource) LoadDir(ctx context.Context, dir string) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, fmt.Errorf("reading recipe dir %s: %w", dir, err)
	}

	var paths []string
	for _, e := range entries {
		if !e.IsDir() && isRecipeFile(e.Name()) {
			paths = append(paths, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(paths)
	if len(paths) == 0 {
		s.log.Warn("no recipe files found in %s", dir)
		return 0, nil
	}
	return s.LoadFiles(ctx, paths...)
}

// LoadFiles adds the recipes of the given files to the source.
func (s *MemorySource) LoadFiles(ctx context.Context, paths ...string) (int, error) {
	var drafts []draft
	fromFile := make(map[string]string)

	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return 0, fmt.Errorf("reading recipe file: %w", err)
		}
		ds, err := parseFile(path, data)
		if err != nil {
			return 0, err
		}
		for _, d := range ds {
			if prev, ok := fromFile[d.recipe.ID]; ok {
				return 0, fmt.Errorf("recipe %q in %s already defined in %s: %w", d.recipe.ID, path, prev, domain.ErrAlreadyExists)
			}
			fromFile[d.recipe.ID] = path
		}
		drafts = append(drafts, ds...)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	loaded := make(map[string]*domain.Recipe, len(drafts))
	for _, d := range drafts {
		loaded[d.recipe.ID] = d.recipe
	}
	lookup := func(id string) *domain.Recipe {
		if r, ok := loaded[id]; ok {
			return r
		}
		return s.recipes[id]
	}
	if err := link(drafts, lookup); err != nil {
		return 0, err
	}

	for _, d := range drafts {
		if old, ok := s.recipes[d.recipe.ID]; ok {
			s.log.Warn("recipe %s from %s replaces an existing recipe", d.recipe.ID, fromFile[d.recipe.ID])
			d.recipe.Version = old.Version + 1
		}
		s.recipes[d.recipe.ID] = d.recipe
	}

	s.log.Info("loaded %d recipes from %d files", len(drafts), len(paths))
	return len(drafts), nil
}

func isRecipeFile(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, e := range Extensions {
		if ext == e {
			return true
		}
	}
	return false
}

// link resolves required recipe IDs through lookup.
func link(drafts []draft, lookup func(string) *domain.Recipe) error {
	for _, d := range drafts {
		d.recipe.SupportingRecipes = nil
		for _, id := range d.requires {
			sup := lookup(id)
			if sup == nil {
				return fmt.Errorf("recipe %q requires %q: %w", d.recipe.ID, id, domain.ErrNotFound)
			}
			d.recipe.SupportingRecipes = append(d.recipe.SupportingRecipes, sup)
		}
	}
	return nil
}

func parseFile(filename string, data []byte) ([]draft, error) {
	var (
		doc fileDocument
		err error
	)
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".hcl":
		doc, err = decodeHCL(filename, data)
	case ".toml":
		_, err = toml.Decode(string(data), &doc)
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &doc)
	default:
		return nil, fmt.Errorf("%s: unsupported recipe file type: %w", filename, domain.ErrInvalidRecipe)
	}
	if err != nil {
		return nil, fmt.Errorf("decoding %s: %w", filename, err)
	}

	out := make([]draft, 0, len(doc.Recipes))
	for i := range doc.Recipes {
		r, err := doc.Recipes[i].toDomain()
		if err != nil {
			return nil, fmt.Errorf("%s: %w", filename, err)
		}
		out = append(out, draft{recipe: r, requires: doc.Recipes[i].Requires})
	}
	return out, nil
}

func decodeHCL(filename string, data []byte) (fileDocument, error) {
	var doc fileDocument

	parser := hclparse.NewParser()
	f, diags := parser.ParseHCL(data, filename)
	if diags.HasErrors() {
		return doc, diags
	}

	var heads hclFile
	if diags := gohcl.DecodeBody(f.Body, nil, &heads); diags.HasErrors() {
		return doc, diags
	}

	for _, head := range heads.Recipes {
		servings := head.Servings
		if servings <= 0 {
			servings = 1
		}
		ctx := &hcl.EvalContext{
			Variables: map[string]cty.Value{
				"servings": cty.NumberIntVal(int64(servings)),
			},
		}

		var r fileRecipe
		if diags := gohcl.DecodeBody(head.Body, ctx, &r); diags.HasErrors() {
			return doc, diags
		}
		r.ID = head.ID
		r.Servings = head.Servings
		doc.Recipes = append(doc.Recipes, r)
	}
	return doc, nil
}

func (fr *fileRecipe) toDomain() (*domain.Recipe, error) {
	if fr.ID == "" {
		return nil, fmt.Errorf("recipe %q has no id: %w", fr.Name, domain.ErrInvalidRecipe)
	}
	r := &domain.Recipe{
		ID:          fr.ID,
		Name:        fr.Name,
		Description: fr.Description,
		Servings:    fr.Servings,
		Tags:        fr.Tags,
		Version:     1,
	}
	if r.Name == "" {
		r.Name = fr.ID
	}

	for i, fs := range fr.Steps {
		step := domain.Step{ID: fs.ID, Preparation: fs.Preparation, Notes: fs.Notes}
		if step.ID == "" {
			step.ID = strconv.Itoa(i + 1)
		}

		for _, p := range fs.Products {
			typ, err := domain.ParseProductType(p.Type)
			if err != nil {
				return nil, fmt.Errorf("recipe %q step %d product %q: %w", fr.ID, i+1, p.Name, err)
			}
			step.Products = append(step.Products, domain.Product{
				Name:            p.Name,
				Type:            typ,
				MinimumQuantity: p.Quantity,
				MeasurementUnit: p.Unit,
				QuantityNotes:   p.Notes,
			})
		}

		r.Steps = append(r.Steps, step)
	}

	// Uses are bound once every step's products are known, so that a
	// reference error can say what is wrong.
	for i, fs := range fr.Steps {
		step := &r.Steps[i]
		for _, in := range fs.Ingredients {
			ref, err := resolveRef(r, i, in.From)
			if err != nil {
				return nil, fmt.Errorf("recipe %q step %d ingredient %q: %w", fr.ID, i+1, in.Name, err)
			}
			step.Ingredients = append(step.Ingredients, domain.IngredientUse{
				Name:            in.Name,
				PluralName:      in.Plural,
				MinimumQuantity: in.Quantity,
				MaximumQuantity: in.MaxQuantity,
				MeasurementUnit: in.Unit,
				Optional:        in.Optional,
				From:            ref,
			})
		}
		for _, in := range fs.Instruments {
			ref, err := resolveRef(r, i, in.From)
			if err != nil {
				return nil, fmt.Errorf("recipe %q step %d instrument %q: %w", fr.ID, i+1, in.Name, err)
			}
			step.Instruments = append(step.Instruments, domain.InstrumentUse{
				Name:            in.Name,
				PluralName:      in.Plural,
				MinimumQuantity: atLeastOne(in.Quantity),
				MaximumQuantity: in.MaxQuantity,
				From:            ref,
			})
		}
		for _, v := range fs.Vessels {
			ref, err := resolveRef(r, i, v.From)
			if err != nil {
				return nil, fmt.Errorf("recipe %q step %d vessel %q: %w", fr.ID, i+1, v.Name, err)
			}
			step.Vessels = append(step.Vessels, domain.VesselUse{
				Name:            v.Name,
				PluralName:      v.Plural,
				Preposition:     v.Preposition,
				MinimumQuantity: atLeastOne(v.Quantity),
				MaximumQuantity: v.MaxQuantity,
				From:            ref,
			})
		}
	}

	for _, pt := range fr.PrepTasks {
		task := domain.PrepTask{Name: pt.Name}
		if pt.Buffer != "" {
			d, err := time.ParseDuration(pt.Buffer)
			if err != nil {
				return nil, fmt.Errorf("recipe %q prep task %q: %w: %v", fr.ID, pt.Name, domain.ErrInvalidRecipe, err)
			}
			task.MaxBufferBeforeRecipe = d
		}
		for _, name := range pt.Steps {
			idx, ok := stepIndex(r, name)
			if !ok {
				return nil, fmt.Errorf("recipe %q prep task %q: unknown step %q: %w", fr.ID, pt.Name, name, domain.ErrInvalidRecipe)
			}
			task.StepIndices = append(task.StepIndices, idx)
		}
		r.PrepTasks = append(r.PrepTasks, task)
	}

	return r, nil
}

var errBadRef = errors.New("bad product reference")

// resolveRef turns "step.product" into a reference to a product of a
// step before owner. An empty string means an external item.
func resolveRef(r *domain.Recipe, owner int, s string) (*domain.ProductRef, error) {
	if s == "" {
		return nil, nil
	}
	stepName, productName, ok := strings.Cut(s, ".")
	if !ok {
		return nil, fmt.Errorf("%w %q: want step.product: %w", errBadRef, s, domain.ErrInvalidRecipe)
	}

	si, ok := stepIndex(r, stepName)
	if !ok {
		return nil, fmt.Errorf("%w %q: unknown step: %w", errBadRef, s, domain.ErrInvalidRecipe)
	}
	if si >= owner {
		return nil, fmt.Errorf("%w %q: must name an earlier step: %w", errBadRef, s, domain.ErrInvalidRecipe)
	}

	products := r.Steps[si].Products
	if n, err := strconv.Atoi(productName); err == nil && n >= 1 && n <= len(products) {
		return &domain.ProductRef{StepIndex: si, ProductIndex: n - 1}, nil
	}
	for pi, p := range products {
		if p.Name == productName {
			return &domain.ProductRef{StepIndex: si, ProductIndex: pi}, nil
		}
	}
	return nil, fmt.Errorf("%w %q: unknown product: %w", errBadRef, s, domain.ErrInvalidRecipe)
}

// stepIndex finds a step by ID, falling back to a 1-based number.
func stepIndex(r *domain.Recipe, name string) (int, bool) {
	for i, st := range r.Steps {
		if st.ID == name {
			return i, true
		}
	}
	if n, err := strconv.Atoi(name); err == nil && n >= 1 && n <= len(r.Steps) {
		return n - 1, true
	}
	return 0, false
}

func atLeastOne(n int) int {
	if n < 1 {
		return 1
	}
	return n
}
