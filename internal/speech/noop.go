package speech

import "github.com/hammamikhairi/ottoflow/internal/logger"

// Compile-time interface check.
var _ AudioPlayer = (*Silent)(nil)

// Silent is a player that plays nothing. Used when chimes are disabled or
// no audio device is available.
type Silent struct {
	log *logger.Logger
}

// NewSilent creates a silent player.
func NewSilent(log *logger.Logger) *Silent {
	return &Silent{log: log}
}

// Play discards the audio.
func (s *Silent) Play(wav []byte) error {
	s.log.Debug("silent player: dropping %d bytes", len(wav))
	return nil
}

// Stop does nothing.
func (s *Silent) Stop() {}
