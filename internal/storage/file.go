package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/gofrs/flock"

	"github.com/hammamikhairi/ottoflow/internal/domain"
	"github.com/hammamikhairi/ottoflow/internal/logger"
)

// Compile-time interface check.
var _ domain.SessionStore = (*FileStore)(nil)

const (
	lockFileName  = ".sessions.lock"
	lockRetry     = 50 * time.Millisecond
	lockTimeout   = 5 * time.Second
	sessionSuffix = ".json"
)

// FileStore keeps one JSON file per session in a directory. A lock file
// in the same directory serialises writers across processes.
type FileStore struct {
	mu   sync.Mutex // flock is per process; mu covers goroutines
	dir  string
	lock *flock.Flock
	log  *logger.Logger
}

// NewFileStore creates the directory if needed.
func NewFileStore(dir string, log *logger.Logger) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating session dir: %w", err)
	}
	return &FileStore{
		dir:  dir,
		lock: flock.New(filepath.Join(dir, lockFileName)),
		log:  log,
	}, nil
}

// Dir returns the directory the store writes to.
func (s *FileStore) Dir() string { return s.dir }

// sessionRecord is the on-disk form of a session.
type sessionRecord struct {
	ID            string            `json:"id"`
	RecipeID      string            `json:"recipe_id"`
	RecipeName    string            `json:"recipe_name"`
	RecipeVersion int               `json:"recipe_version"`
	Servings      int               `json:"servings,omitempty"`
	Steps         []string          `json:"steps"`
	CompletedAt   map[int]time.Time `json:"completed_at,omitempty"`
	Status        string            `json:"status"`
	StartedAt     time.Time         `json:"started_at"`
	UpdatedAt     time.Time         `json:"updated_at"`
}

func toRecord(sess *domain.Session) sessionRecord {
	steps := make([]string, len(sess.Completion))
	for i, c := range sess.Completion {
		steps[i] = c.String()
	}
	return sessionRecord{
		ID:            sess.ID,
		RecipeID:      sess.RecipeID,
		RecipeName:    sess.RecipeName,
		RecipeVersion: sess.RecipeVersion,
		Servings:      sess.Servings,
		Steps:         steps,
		CompletedAt:   sess.CompletedAt,
		Status:        sess.Status.String(),
		StartedAt:     sess.StartedAt,
		UpdatedAt:     sess.UpdatedAt,
	}
}

func (r sessionRecord) toSession() *domain.Session {
	v := domain.NewCompletionVector(len(r.Steps))
	for i, st := range r.Steps {
		if st == domain.Completed.String() {
			v[i] = domain.Completed
		}
	}
	completedAt := r.CompletedAt
	if completedAt == nil {
		completedAt = make(map[int]time.Time)
	}
	return &domain.Session{
		ID:            r.ID,
		RecipeID:      r.RecipeID,
		RecipeName:    r.RecipeName,
		RecipeVersion: r.RecipeVersion,
		Servings:      r.Servings,
		Completion:    v,
		CompletedAt:   completedAt,
		Status:        domain.ParseSessionStatus(r.Status),
		StartedAt:     r.StartedAt,
		UpdatedAt:     r.UpdatedAt,
	}
}

func (s *FileStore) path(id string) (string, error) {
	if id == "" || strings.ContainsAny(id, `/\`) || strings.HasPrefix(id, ".") {
		return "", fmt.Errorf("invalid session id %q: %w", id, domain.ErrNotFound)
	}
	return filepath.Join(s.dir, id+sessionSuffix), nil
}

func (s *FileStore) withLock(ctx context.Context, shared bool, fn func() error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, lockTimeout)
	defer cancel()

	var (
		locked bool
		err    error
	)
	if shared {
		locked, err = s.lock.TryRLockContext(ctx, lockRetry)
	} else {
		locked, err = s.lock.TryLockContext(ctx, lockRetry)
	}
	if err != nil {
		return fmt.Errorf("locking session dir: %w", err)
	}
	if !locked {
		return fmt.Errorf("session dir %s is locked by another process", s.dir)
	}
	defer func() { _ = s.lock.Unlock() }()

	return fn()
}

// Save writes the session atomically (temp file + rename).
func (s *FileStore) Save(ctx context.Context, session *domain.Session) error {
	path, err := s.path(session.ID)
	if err != nil {
		return err
	}
	data, err := json.MarshalIndent(toRecord(session), "", "  ")
	if err != nil {
		return fmt.Errorf("encoding session: %w", err)
	}

	return s.withLock(ctx, false, func() error {
		tmp, err := os.CreateTemp(s.dir, ".session-*")
		if err != nil {
			return fmt.Errorf("writing session: %w", err)
		}
		defer func() { _ = os.Remove(tmp.Name()) }()

		if _, err := tmp.Write(data); err != nil {
			_ = tmp.Close()
			return fmt.Errorf("writing session: %w", err)
		}
		if err := tmp.Close(); err != nil {
			return fmt.Errorf("writing session: %w", err)
		}
		if err := os.Rename(tmp.Name(), path); err != nil {
			return fmt.Errorf("writing session: %w", err)
		}
		s.log.Debug("saved session %s to %s", session.ID, path)
		return nil
	})
}

// Load reads a session by ID.
func (s *FileStore) Load(ctx context.Context, id string) (*domain.Session, error) {
	path, err := s.path(id)
	if err != nil {
		return nil, err
	}

	var sess *domain.Session
	err = s.withLock(ctx, true, func() error {
		sess, err = readSession(path)
		return err
	})
	if err != nil {
		return nil, err
	}
	return sess, nil
}

func readSession(path string) (*domain.Session, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("session file %s: %w", filepath.Base(path), domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("reading session: %w", err)
	}
	var rec sessionRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("decoding %s: %w", filepath.Base(path), err)
	}
	return rec.toSession(), nil
}

// Delete removes a session file.
func (s *FileStore) Delete(ctx context.Context, id string) error {
	path, err := s.path(id)
	if err != nil {
		return err
	}
	return s.withLock(ctx, false, func() error {
		err := os.Remove(path)
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("session %q: %w", id, domain.ErrNotFound)
		}
		if err != nil {
			return fmt.Errorf("deleting session: %w", err)
		}
		s.log.Debug("deleted session %s", id)
		return nil
	})
}

// ListActive returns all active sessions, most recently updated first.
// Unreadable files are logged and skipped.
func (s *FileStore) ListActive(ctx context.Context) ([]*domain.Session, error) {
	var out []*domain.Session
	err := s.withLock(ctx, true, func() error {
		entries, err := os.ReadDir(s.dir)
		if err != nil {
			return fmt.Errorf("listing sessions: %w", err)
		}
		for _, e := range entries {
			name := e.Name()
			if e.IsDir() || strings.HasPrefix(name, ".") || !strings.HasSuffix(name, sessionSuffix) {
				continue
			}
			sess, err := readSession(filepath.Join(s.dir, name))
			if err != nil {
				s.log.Warn("skipping session file %s: %v", name, err)
				continue
			}
			if sess.Status == domain.SessionActive {
				out = append(out, sess)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sortByRecent(out)
	s.log.Debug("listing active sessions, count=%d", len(out))
	return out, nil
}
