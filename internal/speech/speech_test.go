package speech

import (
	"context"
	"encoding/binary"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/hammamikhairi/ottoflow/internal/logger"
)

func TestSynthesizeLength(t *testing.T) {
	tests := []struct {
		name  string
		tones []Tone
		want  int // bytes
	}{
		{"empty", nil, 0},
		{"one tone", []Tone{{Frequency: 440, Duration: 100 * time.Millisecond, Volume: 1}}, 2400 * 2},
		{"tone and rest", []Tone{
			{Frequency: 440, Duration: 50 * time.Millisecond, Volume: 1},
			{Duration: 50 * time.Millisecond},
		}, 2400 * 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := len(Synthesize(tt.tones...)); got != tt.want {
				t.Errorf("got %d bytes, want %d", got, tt.want)
			}
		})
	}
}

func TestSynthesizeSilenceAndFade(t *testing.T) {
	pcm := Synthesize(
		Tone{Duration: 10 * time.Millisecond},
		Tone{Frequency: 1000, Duration: 50 * time.Millisecond, Volume: 2},
	)
	samples := make([]int16, len(pcm)/2)
	for i := range samples {
		samples[i] = int16(binary.LittleEndian.Uint16(pcm[2*i:]))
	}

	silent := int(0.01 * SampleRate)
	for i := 0; i < silent; i++ {
		if samples[i] != 0 {
			t.Fatalf("sample %d = %d, want silence", i, samples[i])
		}
	}
	// First sample of the tone fades in from zero.
	if samples[silent] != 0 {
		t.Errorf("tone starts at %d, want 0", samples[silent])
	}
	var peak int16
	for _, s := range samples[silent:] {
		if s > peak {
			peak = s
		}
	}
	// Volume is clamped to 1.
	if peak < 30000 {
		t.Errorf("peak %d too quiet", peak)
	}
}

func TestEncodeWAVRoundTrip(t *testing.T) {
	pcm := Synthesize(ReadyChime...)
	wav := EncodeWAV(pcm)

	if string(wav[0:4]) != "RIFF" || string(wav[8:12]) != "WAVE" {
		t.Fatalf("bad header %q", wav[:12])
	}
	if got := binary.LittleEndian.Uint32(wav[24:28]); got != SampleRate {
		t.Errorf("sample rate %d", got)
	}

	got, err := extractPCM(wav)
	if err != nil {
		t.Fatalf("extractPCM: %v", err)
	}
	if len(got) != len(pcm) {
		t.Errorf("got %d PCM bytes, want %d", len(got), len(pcm))
	}
}

func TestExtractPCMErrors(t *testing.T) {
	noData := EncodeWAV(nil)
	copy(noData[36:40], "junk")

	tests := []struct {
		name string
		wav  []byte
	}{
		{"too short", []byte("RIFF")},
		{"not riff", append([]byte("RIFX"), make([]byte, 60)...)},
		{"no data chunk", noData},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := extractPCM(tt.wav); err == nil {
				t.Error("expected error")
			}
		})
	}
}

type fakePlayer struct {
	mu      sync.Mutex
	played  [][]byte
	release chan struct{}
	err     error
}

func (p *fakePlayer) Play(wav []byte) error {
	if p.release != nil {
		<-p.release
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.played = append(p.played, wav)
	return p.err
}

func (p *fakePlayer) Stop() {}

func (p *fakePlayer) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.played)
}

type textNotifier struct {
	normal, urgent []string
}

func (n *textNotifier) Notify(ctx context.Context, message string) error {
	n.normal = append(n.normal, message)
	return nil
}

func (n *textNotifier) NotifyUrgent(ctx context.Context, message string) error {
	n.urgent = append(n.urgent, message)
	return nil
}

func TestChimeNotifier(t *testing.T) {
	log := logger.New(logger.LevelOff, nil)
	text := &textNotifier{}
	player := &fakePlayer{}
	n := NewChimeNotifier(text, player, log)
	ctx := context.Background()

	if err := n.Notify(ctx, "step 3 is ready"); err != nil {
		t.Fatalf("Notify: %v", err)
	}
	n.Wait()
	if err := n.NotifyUrgent(ctx, "burning"); err != nil {
		t.Fatalf("NotifyUrgent: %v", err)
	}
	n.Wait()

	if len(text.normal) != 1 || len(text.urgent) != 1 {
		t.Errorf("text notifier got %v / %v", text.normal, text.urgent)
	}
	if player.count() != 2 {
		t.Fatalf("played %d chimes, want 2", player.count())
	}
	if string(player.played[0]) == string(player.played[1]) {
		t.Error("ready and alert chimes should differ")
	}
}

func TestChimeNotifierDropsOverlap(t *testing.T) {
	log := logger.New(logger.LevelOff, nil)
	player := &fakePlayer{release: make(chan struct{})}
	n := NewChimeNotifier(nil, player, log)
	ctx := context.Background()

	_ = n.Notify(ctx, "one")
	_ = n.Notify(ctx, "two")
	close(player.release)
	n.Wait()

	if player.count() != 1 {
		t.Errorf("played %d chimes, want 1", player.count())
	}
}

func TestChimeNotifierPlayerError(t *testing.T) {
	log := logger.New(logger.LevelOff, nil)
	player := &fakePlayer{err: errors.New("device gone")}
	n := NewChimeNotifier(nil, player, log)

	if err := n.Notify(context.Background(), "ready"); err != nil {
		t.Fatalf("player errors must not reach the caller: %v", err)
	}
	n.Close()
}

func TestSilent(t *testing.T) {
	s := NewSilent(logger.New(logger.LevelOff, nil))
	if err := s.Play(EncodeWAV(Synthesize(ReadyChime...))); err != nil {
		t.Fatal(err)
	}
	s.Stop()
}
