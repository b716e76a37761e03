// Package engine implements cook sessions on top of the recipe dependency
// graph. A session owns the completion vector; the engine checks every
// toggle against the graph before it is saved.
package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hammamikhairi/ottoflow/internal/diagram"
	"github.com/hammamikhairi/ottoflow/internal/domain"
	"github.com/hammamikhairi/ottoflow/internal/logger"
	"github.com/hammamikhairi/ottoflow/internal/recipegraph"
)

// Option configures the engine.
type Option func(*Engine)

// WithServingsDefault sets the default number of servings for new sessions.
func WithServingsDefault(n int) Option {
	return func(e *Engine) {
		e.defaultServings = n
	}
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		e.now = now
	}
}

// WithIDGenerator replaces the session ID generator.
func WithIDGenerator(gen func() string) Option {
	return func(e *Engine) {
		e.newID = gen
	}
}

// Engine manages cook sessions. It depends only on interfaces and is
// fully testable with in-memory implementations.
type Engine struct {
	recipes         domain.RecipeSource
	store           domain.SessionStore
	log             *logger.Logger
	defaultServings int
	now             func() time.Time
	newID           func() string

	// mu serialises load-modify-save of sessions.
	mu sync.Mutex

	graphMu sync.Mutex
	graphs  map[graphKey]*recipegraph.Graph
}

type graphKey struct {
	id      string
	version int
}

// RecipeUpdater is an optional interface that RecipeSource implementations
// can satisfy to support in-place recipe mutations.
type RecipeUpdater interface {
	Update(ctx context.Context, recipe *domain.Recipe) error
}

// New creates a cook engine with the given dependencies and options.
func New(recipes domain.RecipeSource, store domain.SessionStore, log *logger.Logger, opts ...Option) *Engine {
	e := &Engine{
		recipes: recipes,
		store:   store,
		log:     log,
		now:     time.Now,
		newID:   uuid.NewString,
		graphs:  make(map[graphKey]*recipegraph.Graph),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// ListRecipes returns all available recipes.
func (e *Engine) ListRecipes(ctx context.Context) ([]domain.RecipeSummary, error) {
	return e.recipes.List(ctx)
}

// GetRecipe returns a full recipe by ID.
func (e *Engine) GetRecipe(ctx context.Context, id string) (*domain.Recipe, error) {
	return e.recipes.Get(ctx, id)
}

// UpdateRecipe persists a mutated recipe. Returns an error if the
// underlying RecipeSource does not support updates.
func (e *Engine) UpdateRecipe(ctx context.Context, recipe *domain.Recipe) error {
	updater, ok := e.recipes.(RecipeUpdater)
	if !ok {
		return fmt.Errorf("recipe source does not support updates")
	}
	return updater.Update(ctx, recipe)
}

// Graph returns a recipe with its dependency graph. Graphs are cached per
// recipe ID and version.
func (e *Engine) Graph(ctx context.Context, recipeID string) (*domain.Recipe, *recipegraph.Graph, error) {
	recipe, err := e.recipes.Get(ctx, recipeID)
	if err != nil {
		return nil, nil, fmt.Errorf("getting recipe: %w", err)
	}
	return recipe, e.graphFor(recipe), nil
}

func (e *Engine) graphFor(recipe *domain.Recipe) *recipegraph.Graph {
	key := graphKey{id: recipe.ID, version: recipe.Version}

	e.graphMu.Lock()
	defer e.graphMu.Unlock()

	if g, ok := e.graphs[key]; ok {
		return g
	}
	g := recipegraph.BuildGraph(recipe)
	e.graphs[key] = g
	e.log.Debug("built graph for %s v%d: %d steps, %d edges", recipe.ID, recipe.Version, g.Len(), len(g.Edges()))
	return g
}

// StartSession begins a new cook session for the given recipe with every
// step pending.
func (e *Engine) StartSession(ctx context.Context, recipeID string, servings int) (*domain.Session, error) {
	recipe, err := e.recipes.Get(ctx, recipeID)
	if err != nil {
		return nil, fmt.Errorf("getting recipe: %w", err)
	}
	if len(recipe.Steps) == 0 {
		return nil, fmt.Errorf("recipe %q has no steps: %w", recipe.ID, domain.ErrInvalidRecipe)
	}

	if servings <= 0 {
		servings = e.defaultServings
	}
	if servings <= 0 {
		servings = recipe.Servings
	}

	now := e.now()
	session := &domain.Session{
		ID:            e.newID(),
		RecipeID:      recipe.ID,
		RecipeName:    recipe.Name,
		RecipeVersion: recipe.Version,
		Servings:      servings,
		Completion:    domain.NewCompletionVector(len(recipe.Steps)),
		CompletedAt:   make(map[int]time.Time),
		Status:        domain.SessionActive,
		StartedAt:     now,
		UpdatedAt:     now,
	}

	if err := e.store.Save(ctx, session); err != nil {
		return nil, fmt.Errorf("saving session: %w", err)
	}

	e.log.Info("started session %s for recipe %q (%d steps, %d servings)", session.ID, recipe.Name, len(recipe.Steps), servings)
	return session, nil
}

// ResumeLatest returns the most recently updated active session for the
// recipe, or ErrNotFound.
func (e *Engine) ResumeLatest(ctx context.Context, recipeID string) (*domain.Session, error) {
	active, err := e.store.ListActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing sessions: %w", err)
	}
	for _, s := range active {
		if s.RecipeID == recipeID {
			e.log.Debug("resuming session %s for %s", s.ID, recipeID)
			return s, nil
		}
	}
	return nil, fmt.Errorf("active session for %q: %w", recipeID, domain.ErrNotFound)
}

// Transition reports what a toggle changed.
type Transition struct {
	Step        int   // 0-based step that was toggled
	Unblocked   []int // pending steps that became performable
	Blocked     []int // pending steps that stopped being performable
	SessionDone bool  // every step is now completed
}

// Complete marks step (0-based) performed. It fails with ErrStepBlocked
// while any ancestor of the step is pending. Completing a step that is
// already completed is a no-op.
func (e *Engine) Complete(ctx context.Context, sessionID string, step int) (*Transition, error) {
	return e.update(ctx, sessionID, step, func(session *domain.Session, g *recipegraph.Graph) error {
		if !session.Completion.IsPending(step) {
			return nil
		}
		if recipegraph.CanStepBePerformed(g, session.Completion, step) {
			return fmt.Errorf("step %d waits on steps %v: %w", step+1, oneBased(pendingAncestors(g, session.Completion, step)), domain.ErrStepBlocked)
		}
		session.Completion[step] = domain.Completed
		session.CompletedAt[step] = e.now()
		return nil
	})
}

// Reopen marks step (0-based) pending again. Completed steps that depend
// on it stay completed; pending dependents become blocked.
func (e *Engine) Reopen(ctx context.Context, sessionID string, step int) (*Transition, error) {
	return e.update(ctx, sessionID, step, func(session *domain.Session, _ *recipegraph.Graph) error {
		session.Completion[step] = domain.Pending
		delete(session.CompletedAt, step)
		return nil
	})
}

// Toggle completes a pending step or reopens a completed one.
func (e *Engine) Toggle(ctx context.Context, sessionID string, step int) (*Transition, error) {
	session, err := e.store.Load(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("loading session: %w", err)
	}
	if step < 0 || step >= len(session.Completion) {
		return nil, fmt.Errorf("step %d of %d: %w", step+1, len(session.Completion), domain.ErrStepOutOfRange)
	}
	if session.Completion.IsPending(step) {
		return e.Complete(ctx, sessionID, step)
	}
	return e.Reopen(ctx, sessionID, step)
}

// update runs one load-check-mutate-save cycle on a session.
func (e *Engine) update(ctx context.Context, sessionID string, step int, mutate func(*domain.Session, *recipegraph.Graph) error) (*Transition, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	session, recipe, err := e.load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session.Status == domain.SessionAbandoned {
		return nil, domain.ErrSessionNotActive
	}
	if step < 0 || step >= len(recipe.Steps) {
		return nil, fmt.Errorf("step %d of %d: %w", step+1, len(recipe.Steps), domain.ErrStepOutOfRange)
	}

	g := e.graphFor(recipe)
	before := session.Completion.Clone()
	if err := mutate(session, g); err != nil {
		return nil, err
	}

	tr := &Transition{
		Step:        step,
		Unblocked:   pendingOnly(session.Completion, recipegraph.Unblocked(g, before, session.Completion)),
		Blocked:     pendingOnly(session.Completion, recipegraph.Unblocked(g, session.Completion, before)),
		SessionDone: session.Completion.AllCompleted(),
	}

	if tr.SessionDone {
		session.Status = domain.SessionCompleted
	} else {
		session.Status = domain.SessionActive
	}
	session.UpdatedAt = e.now()

	if err := e.store.Save(ctx, session); err != nil {
		return nil, fmt.Errorf("saving session: %w", err)
	}

	e.log.Debug("session %s step %d -> %s (unblocked=%v, blocked=%v)",
		sessionID, step+1, session.Completion[step], oneBased(tr.Unblocked), oneBased(tr.Blocked))
	if tr.SessionDone {
		e.log.Info("session %s completed", sessionID)
	}
	return tr, nil
}

// load fetches a session and its recipe and checks they still line up.
func (e *Engine) load(ctx context.Context, sessionID string) (*domain.Session, *domain.Recipe, error) {
	session, err := e.store.Load(ctx, sessionID)
	if err != nil {
		return nil, nil, fmt.Errorf("loading session: %w", err)
	}
	recipe, err := e.recipes.Get(ctx, session.RecipeID)
	if err != nil {
		return nil, nil, fmt.Errorf("getting recipe: %w", err)
	}
	if len(session.Completion) != len(recipe.Steps) {
		return nil, nil, fmt.Errorf("session %s tracks %d steps but %s now has %d: %w",
			session.ID, len(session.Completion), recipe.ID, len(recipe.Steps), domain.ErrInvalidRecipe)
	}
	if session.CompletedAt == nil {
		session.CompletedAt = make(map[int]time.Time)
	}
	return session, recipe, nil
}

// StepView is one row of the cook board.
type StepView struct {
	Index     int // 0-based
	Label     string
	Summary   string
	Completed bool
	Blocked   bool
	WaitingOn []int // pending ancestors, 0-based
}

// Board is the full state of a session as the cook sees it.
type Board struct {
	Session *domain.Session
	Recipe  *domain.Recipe
	Steps   []StepView
	Ready   []int
}

// Done returns how many steps are completed.
func (b *Board) Done() int { return b.Session.Completion.CompletedCount() }

// Board returns every step of the session with its completion and
// readiness.
func (e *Engine) Board(ctx context.Context, sessionID string) (*Board, error) {
	session, recipe, err := e.load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	g := e.graphFor(recipe)

	scale := 1.0
	if recipe.Servings > 0 && session.Servings > 0 {
		scale = float64(session.Servings) / float64(recipe.Servings)
	}

	b := &Board{
		Session: session,
		Recipe:  recipe,
		Steps:   make([]StepView, len(recipe.Steps)),
		Ready:   recipegraph.ReadySteps(g, session.Completion),
	}
	for i := range recipe.Steps {
		view := StepView{
			Index:     i,
			Label:     stepLabel(&recipe.Steps[i]),
			Summary:   diagram.StepSummary(recipe, i, scale),
			Completed: !session.Completion.IsPending(i),
		}
		if !view.Completed {
			view.Blocked = recipegraph.Blocked(g, session.Completion, i)
			view.WaitingOn = pendingAncestors(g, session.Completion, i)
		}
		b.Steps[i] = view
	}
	return b, nil
}

// Ready returns the 0-based steps that can be performed now.
func (e *Engine) Ready(ctx context.Context, sessionID string) ([]int, error) {
	session, recipe, err := e.load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return recipegraph.ReadySteps(e.graphFor(recipe), session.Completion), nil
}

// Diagram renders the session's recipe as a Mermaid flowchart.
func (e *Engine) Diagram(ctx context.Context, sessionID string, direction diagram.Direction) (string, error) {
	_, recipe, err := e.load(ctx, sessionID)
	if err != nil {
		return "", err
	}
	return diagram.RenderDiagram(recipe, direction), nil
}

// Status returns the full session state.
func (e *Engine) Status(ctx context.Context, sessionID string) (*domain.Session, error) {
	return e.store.Load(ctx, sessionID)
}

// Abandon marks a session as abandoned.
func (e *Engine) Abandon(ctx context.Context, sessionID string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	session, err := e.store.Load(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("loading session: %w", err)
	}

	session.Status = domain.SessionAbandoned
	session.UpdatedAt = e.now()

	if err := e.store.Save(ctx, session); err != nil {
		return fmt.Errorf("saving session: %w", err)
	}

	e.log.Info("session %s abandoned", sessionID)
	return nil
}

func pendingAncestors(g *recipegraph.Graph, v domain.CompletionVector, i int) []int {
	var out []int
	for _, a := range g.Ancestors(i) {
		if v.IsPending(a) {
			out = append(out, a)
		}
	}
	return out
}

func pendingOnly(v domain.CompletionVector, steps []int) []int {
	var out []int
	for _, s := range steps {
		if v.IsPending(s) {
			out = append(out, s)
		}
	}
	return out
}

func stepLabel(step *domain.Step) string {
	if step.Preparation != "" {
		return step.Preparation
	}
	if step.ID != "" {
		return step.ID
	}
	return "step"
}

// oneBased converts step indices for messages.
func oneBased(steps []int) []int {
	out := make([]int, len(steps))
	for i, s := range steps {
		out[i] = s + 1
	}
	return out
}
