// Package reminder nudges the cook when a session goes quiet while steps
// are ready to be done.
package reminder

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/hammamikhairi/ottoflow/internal/domain"
	"github.com/hammamikhairi/ottoflow/internal/engine"
	"github.com/hammamikhairi/ottoflow/internal/logger"
)

// Boards loads the current board of a session.
type Boards interface {
	Board(ctx context.Context, sessionID string) (*engine.Board, error)
}

// Option configures the watcher.
type Option func(*Watcher)

// WithInterval sets how often the watcher looks at the session.
func WithInterval(d time.Duration) Option {
	return func(w *Watcher) {
		w.interval = d
	}
}

// WithIdleAfter sets how long a session may go without a checked-off
// step before the cook is reminded. It is also the gap between reminders.
func WithIdleAfter(d time.Duration) Option {
	return func(w *Watcher) {
		w.idleAfter = d
	}
}

// WithMaxNudges sets how many reminders are sent before the watcher goes
// quiet. Any change to the session starts the count again.
func WithMaxNudges(n int) Option {
	return func(w *Watcher) {
		w.maxNudges = n
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(w *Watcher) {
		w.now = now
	}
}

// Watcher polls one session and reminds the cook of the ready steps
// once it has been idle for a while.
type Watcher struct {
	boards    Boards
	notifier  domain.Notifier
	log       *logger.Logger
	sessionID string

	interval  time.Duration
	idleAfter time.Duration
	maxNudges int
	now       func() time.Time

	// Only touched by the Run goroutine.
	lastUpdate time.Time
	lastNudge  time.Time
	nudges     int
}

// NewWatcher creates a watcher for sessionID.
func NewWatcher(boards Boards, notifier domain.Notifier, log *logger.Logger, sessionID string, opts ...Option) *Watcher {
	w := &Watcher{
		boards:    boards,
		notifier:  notifier,
		log:       log,
		sessionID: sessionID,
		interval:  30 * time.Second,
		idleAfter: 10 * time.Minute,
		maxNudges: 3,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Run checks the session every interval. Blocks until ctx is cancelled.
func (w *Watcher) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.log.Info("reminder watcher started (interval=%s, idle=%s)", w.interval, w.idleAfter)

	for {
		select {
		case <-ctx.Done():
			w.log.Info("reminder watcher stopped")
			return
		case <-ticker.C:
			w.check(ctx)
		}
	}
}

// check runs one cycle and reports whether a reminder was sent.
func (w *Watcher) check(ctx context.Context) bool {
	b, err := w.boards.Board(ctx, w.sessionID)
	if err != nil {
		if ctx.Err() == nil {
			w.log.Error("reminder: loading board for %s: %v", w.sessionID, err)
		}
		return false
	}
	s := b.Session
	if s.Status != domain.SessionActive || len(b.Ready) == 0 {
		return false
	}

	if !s.UpdatedAt.Equal(w.lastUpdate) {
		w.lastUpdate = s.UpdatedAt
		w.lastNudge = time.Time{}
		w.nudges = 0
	}

	now := w.now()
	idle := now.Sub(s.UpdatedAt)
	switch {
	case idle < w.idleAfter:
		return false
	case w.nudges >= w.maxNudges:
		w.log.Debug("reminder: session %s idle for %s, done nagging", s.ID, idle.Round(time.Second))
		return false
	case !w.lastNudge.IsZero() && now.Sub(w.lastNudge) < w.idleAfter:
		return false
	}

	msg := nudgeMessage(b, idle, w.nudges)
	if w.nudges == w.maxNudges-1 {
		err = w.notifier.NotifyUrgent(ctx, msg)
	} else {
		err = w.notifier.Notify(ctx, msg)
	}
	if err != nil {
		w.log.Error("reminder: notify: %v", err)
	}
	w.lastNudge = now
	w.nudges++
	return true
}

// nudgeMessage gets shorter the more often the cook has been reminded.
func nudgeMessage(b *engine.Board, idle time.Duration, level int) string {
	ready := readyList(b)
	switch level {
	case 0:
		return fmt.Sprintf("Still cooking? Ready now: %s.", ready)
	case 1:
		return fmt.Sprintf("Nothing checked off for %s. Ready now: %s.", formatIdle(idle), ready)
	default:
		return fmt.Sprintf("%s idle. Ready: %s.", capitalize(formatIdle(idle)), ready)
	}
}

func readyList(b *engine.Board) string {
	parts := make([]string, len(b.Ready))
	for i, s := range b.Ready {
		parts[i] = fmt.Sprintf("%d (%s)", s+1, b.Steps[s].Label)
	}
	return strings.Join(parts, ", ")
}

// formatIdle rounds to whole minutes once a minute has passed.
func formatIdle(d time.Duration) string {
	totalSec := int(d.Round(time.Second).Seconds())
	if totalSec < 60 {
		if totalSec == 1 {
			return "1 second"
		}
		return fmt.Sprintf("%d seconds", totalSec)
	}
	m := (totalSec + 30) / 60
	if m == 1 {
		return "1 minute"
	}
	return fmt.Sprintf("%d minutes", m)
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
