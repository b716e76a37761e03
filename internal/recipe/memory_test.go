package recipe

import (
	"context"
	"errors"
	"testing"

	"github.com/hammamikhairi/ottoflow/internal/domain"
	"github.com/hammamikhairi/ottoflow/internal/logger"
	"github.com/hammamikhairi/ottoflow/internal/recipegraph"
)

func TestMemorySourceList(t *testing.T) {
	log := logger.New(logger.LevelOff, nil)
	src := NewMemorySource(log)
	ctx := context.Background()

	recipes, err := src.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(recipes) < 3 {
		t.Fatalf("expected at least 3 recipes, got %d", len(recipes))
	}
	for i := 1; i < len(recipes); i++ {
		if recipes[i-1].Name > recipes[i].Name {
			t.Fatalf("list not sorted by name: %q before %q", recipes[i-1].Name, recipes[i].Name)
		}
	}
}

func TestMemorySourceGet(t *testing.T) {
	log := logger.New(logger.LevelOff, nil)
	src := NewMemorySource(log)
	ctx := context.Background()

	tests := []struct {
		id      string
		wantErr error
	}{
		{"chicken-alfredo", nil},
		{"vegetable-stir-fry", nil},
		{"garlic-butter", nil},
		{"nonexistent", domain.ErrNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			r, err := src.Get(ctx, tt.id)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("expected %v, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if r.ID != tt.id {
				t.Fatalf("expected ID %s, got %s", tt.id, r.ID)
			}
			if len(r.Steps) == 0 {
				t.Fatal("recipe has no steps")
			}
		})
	}
}

// Every reference in the built-in recipes must resolve; a typo would
// silently drop a dependency edge.
func TestBuiltinReferencesResolve(t *testing.T) {
	src := NewMemorySource(logger.New(logger.LevelOff, nil))
	ctx := context.Background()

	summaries, _ := src.List(ctx)
	for _, sum := range summaries {
		r, err := src.Get(ctx, sum.ID)
		if err != nil {
			t.Fatalf("get %s: %v", sum.ID, err)
		}
		for i := range r.Steps {
			for _, use := range r.Steps[i].Uses() {
				ref, ok := use.Source()
				if !ok {
					continue
				}
				p, ok := recipegraph.ResolveProduct(r, i, ref)
				if !ok {
					t.Fatalf("%s step %d: reference %s does not resolve", r.ID, i+1, ref)
				}
				if p.Name != use.UseName() {
					t.Fatalf("%s step %d: use %q bound to product %q", r.ID, i+1, use.UseName(), p.Name)
				}
			}
		}
	}
}

func TestBuiltinStirFryGraph(t *testing.T) {
	src := NewMemorySource(logger.New(logger.LevelOff, nil))
	r, err := src.Get(context.Background(), "vegetable-stir-fry")
	if err != nil {
		t.Fatalf("get: %v", err)
	}

	g := recipegraph.BuildGraph(r)
	roots := g.Roots()
	want := []int{0, 1, 3, 4}
	if len(roots) != len(want) {
		t.Fatalf("roots = %v, want %v", roots, want)
	}
	for i := range want {
		if roots[i] != want[i] {
			t.Fatalf("roots = %v, want %v", roots, want)
		}
	}

	anc := g.Ancestors(7)
	if len(anc) != 7 {
		t.Fatalf("serving should depend on every other step, got %v", anc)
	}
}

func TestMemorySourceSearch(t *testing.T) {
	log := logger.New(logger.LevelOff, nil)
	src := NewMemorySource(log)
	ctx := context.Background()

	tests := []struct {
		query    string
		minCount int
	}{
		{"chicken", 1},
		{"pasta", 1},
		{"vegan", 1},
		{"BUTTER", 1},
		{"nonexistent-query-xyz", 0},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			results, err := src.Search(ctx, tt.query)
			if err != nil {
				t.Fatalf("search: %v", err)
			}
			if len(results) < tt.minCount {
				t.Fatalf("query=%q: expected at least %d results, got %d", tt.query, tt.minCount, len(results))
			}
		})
	}
}

func TestMemorySourceAddAndUpdate(t *testing.T) {
	src := NewEmptySource(logger.New(logger.LevelOff, nil))
	ctx := context.Background()

	r := &domain.Recipe{ID: "toast", Name: "Toast", Steps: []domain.Step{{Preparation: "toast"}}}
	if err := src.Add(ctx, r); err != nil {
		t.Fatalf("add: %v", err)
	}
	if r.Version != 1 {
		t.Fatalf("expected version 1, got %d", r.Version)
	}
	if err := src.Add(ctx, r); !errors.Is(err, domain.ErrAlreadyExists) {
		t.Fatalf("expected ErrAlreadyExists, got %v", err)
	}
	if err := src.Add(ctx, &domain.Recipe{Name: "nameless"}); !errors.Is(err, domain.ErrInvalidRecipe) {
		t.Fatalf("expected ErrInvalidRecipe, got %v", err)
	}

	edited := &domain.Recipe{ID: "toast", Name: "Buttered Toast"}
	if err := src.Update(ctx, edited); err != nil {
		t.Fatalf("update: %v", err)
	}
	if edited.Version != 2 {
		t.Fatalf("expected version 2, got %d", edited.Version)
	}
	if err := src.Update(ctx, &domain.Recipe{ID: "missing"}); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
