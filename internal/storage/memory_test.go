package storage

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/hammamikhairi/ottoflow/internal/domain"
	"github.com/hammamikhairi/ottoflow/internal/logger"
)

func newSession(id string, status domain.SessionStatus, updated time.Time) *domain.Session {
	return &domain.Session{
		ID:          id,
		RecipeID:    "test-recipe",
		RecipeName:  "Test Recipe",
		Completion:  domain.CompletionVector{domain.Completed, domain.Pending, domain.Pending},
		CompletedAt: map[int]time.Time{0: updated},
		Status:      status,
		StartedAt:   updated.Add(-time.Minute),
		UpdatedAt:   updated,
	}
}

// storeContract runs the same CRUD checks against any SessionStore.
func storeContract(t *testing.T, store domain.SessionStore) {
	t.Helper()
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 18, 0, 0, 0, time.UTC)

	session := newSession("test-session-1", domain.SessionActive, now)

	// Save.
	if err := store.Save(ctx, session); err != nil {
		t.Fatalf("save: %v", err)
	}

	// Load.
	loaded, err := store.Load(ctx, "test-session-1")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if loaded.ID != session.ID || loaded.RecipeID != session.RecipeID {
		t.Fatalf("expected %s/%s, got %s/%s", session.ID, session.RecipeID, loaded.ID, loaded.RecipeID)
	}
	if loaded.Completion.CompletedCount() != 1 || !loaded.Completion.IsPending(1) {
		t.Fatalf("completion not preserved: %v", loaded.Completion)
	}
	if !loaded.CompletedAt[0].Equal(now) {
		t.Fatalf("completed-at not preserved: %v", loaded.CompletedAt)
	}

	// Load nonexistent.
	_, err = store.Load(ctx, "nonexistent")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	// ListActive.
	active, err := store.ListActive(ctx)
	if err != nil {
		t.Fatalf("list active: %v", err)
	}
	if len(active) != 1 {
		t.Fatalf("expected 1 active session, got %d", len(active))
	}

	// Delete.
	if err := store.Delete(ctx, "test-session-1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	_, err = store.Load(ctx, "test-session-1")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}

	// Delete nonexistent.
	if err := store.Delete(ctx, "nonexistent"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func listActiveContract(t *testing.T, store domain.SessionStore) {
	t.Helper()
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 18, 0, 0, 0, time.UTC)

	sessions := []*domain.Session{
		newSession("s1", domain.SessionActive, base),
		newSession("s2", domain.SessionActive, base.Add(time.Hour)),
		newSession("s3", domain.SessionCompleted, base),
		newSession("s4", domain.SessionAbandoned, base),
	}

	for _, s := range sessions {
		if err := store.Save(ctx, s); err != nil {
			t.Fatalf("save %s: %v", s.ID, err)
		}
	}

	active, err := store.ListActive(ctx)
	if err != nil {
		t.Fatalf("list active: %v", err)
	}
	if len(active) != 2 {
		t.Fatalf("expected 2 active sessions, got %d", len(active))
	}
	if active[0].ID != "s2" {
		t.Fatalf("expected most recent session first, got %s", active[0].ID)
	}
}

func TestMemoryStoreCRUD(t *testing.T) {
	storeContract(t, NewMemoryStore(logger.New(logger.LevelOff, nil)))
}

func TestMemoryStoreListActiveFilters(t *testing.T) {
	listActiveContract(t, NewMemoryStore(logger.New(logger.LevelOff, nil)))
}
