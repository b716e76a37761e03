package speech

import (
	"context"
	"sync"

	"github.com/hammamikhairi/ottoflow/internal/domain"
	"github.com/hammamikhairi/ottoflow/internal/logger"
)

// Compile-time interface check.
var _ domain.Notifier = (*ChimeNotifier)(nil)

// ChimeNotifier wraps a text notifier and plays a chime with every
// message. Chimes play in the background, one at a time; a chime that
// arrives while another is playing is dropped.
type ChimeNotifier struct {
	text   domain.Notifier // may be nil
	player AudioPlayer
	log    *logger.Logger

	ready []byte
	alert []byte

	mu      sync.Mutex
	playing bool
	wg      sync.WaitGroup
}

// NewChimeNotifier creates a notifier that prints through text (when not
// nil) and chimes through player.
func NewChimeNotifier(text domain.Notifier, player AudioPlayer, log *logger.Logger) *ChimeNotifier {
	return &ChimeNotifier{
		text:   text,
		player: player,
		log:    log,
		ready:  EncodeWAV(Synthesize(ReadyChime...)),
		alert:  EncodeWAV(Synthesize(AlertChime...)),
	}
}

// Notify prints the message and plays the ready chime.
func (n *ChimeNotifier) Notify(ctx context.Context, message string) error {
	if n.text != nil {
		if err := n.text.Notify(ctx, message); err != nil {
			return err
		}
	}
	n.play(n.ready)
	return nil
}

// NotifyUrgent prints the message and plays the alert chime.
func (n *ChimeNotifier) NotifyUrgent(ctx context.Context, message string) error {
	if n.text != nil {
		if err := n.text.NotifyUrgent(ctx, message); err != nil {
			return err
		}
	}
	n.play(n.alert)
	return nil
}

func (n *ChimeNotifier) play(wav []byte) {
	n.mu.Lock()
	if n.playing {
		n.mu.Unlock()
		n.log.Debug("chime already playing, skipping")
		return
	}
	n.playing = true
	n.wg.Add(1)
	n.mu.Unlock()

	go func() {
		defer n.wg.Done()
		if err := n.player.Play(wav); err != nil {
			n.log.Warn("chime: %v", err)
		}
		n.mu.Lock()
		n.playing = false
		n.mu.Unlock()
	}()
}

// Wait blocks until the current chime, if any, has finished.
func (n *ChimeNotifier) Wait() {
	n.wg.Wait()
}

// Close stops playback and waits for it to end.
func (n *ChimeNotifier) Close() {
	n.player.Stop()
	n.wg.Wait()
}
