package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/hammamikhairi/ottoflow/internal/domain"
	"github.com/hammamikhairi/ottoflow/internal/logger"
)

func newFileStore(t *testing.T) *FileStore {
	t.Helper()
	store, err := NewFileStore(filepath.Join(t.TempDir(), "sessions"), logger.New(logger.LevelOff, nil))
	if err != nil {
		t.Fatalf("new file store: %v", err)
	}
	return store
}

func TestFileStoreCRUD(t *testing.T) {
	storeContract(t, newFileStore(t))
}

func TestFileStoreListActiveFilters(t *testing.T) {
	listActiveContract(t, newFileStore(t))
}

func TestFileStoreSurvivesReopen(t *testing.T) {
	dir := t.TempDir()
	log := logger.New(logger.LevelOff, nil)
	ctx := context.Background()

	first, err := NewFileStore(dir, log)
	if err != nil {
		t.Fatal(err)
	}
	sess := newSession("persist", domain.SessionCompleted, time.Now().UTC())
	if err := first.Save(ctx, sess); err != nil {
		t.Fatalf("save: %v", err)
	}

	second, err := NewFileStore(dir, log)
	if err != nil {
		t.Fatal(err)
	}
	loaded, err := second.Load(ctx, "persist")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if loaded.Status != domain.SessionCompleted {
		t.Fatalf("expected completed status, got %v", loaded.Status)
	}
}

func TestFileStoreSkipsCorruptFiles(t *testing.T) {
	store := newFileStore(t)
	ctx := context.Background()

	if err := os.WriteFile(filepath.Join(store.Dir(), "broken.json"), []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := store.Save(ctx, newSession("good", domain.SessionActive, time.Now())); err != nil {
		t.Fatalf("save: %v", err)
	}

	active, err := store.ListActive(ctx)
	if err != nil {
		t.Fatalf("list active: %v", err)
	}
	if len(active) != 1 || active[0].ID != "good" {
		t.Fatalf("expected only the good session, got %v", active)
	}

	if _, err := store.Load(ctx, "broken"); err == nil || errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected a decode error, got %v", err)
	}
}

func TestFileStoreRejectsPathIDs(t *testing.T) {
	store := newFileStore(t)
	ctx := context.Background()

	for _, id := range []string{"", "../escape", ".hidden", `a\b`} {
		if _, err := store.Load(ctx, id); !errors.Is(err, domain.ErrNotFound) {
			t.Fatalf("id %q: expected ErrNotFound, got %v", id, err)
		}
	}
}

func TestFileStoreConcurrentSaves(t *testing.T) {
	store := newFileStore(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			sess := newSession(fmt.Sprintf("s-%02d", i), domain.SessionActive, time.Now())
			if err := store.Save(ctx, sess); err != nil {
				t.Errorf("save %d: %v", i, err)
			}
		}(i)
	}
	wg.Wait()

	active, err := store.ListActive(ctx)
	if err != nil {
		t.Fatalf("list active: %v", err)
	}
	if len(active) != 16 {
		t.Fatalf("expected 16 sessions, got %d", len(active))
	}
}
