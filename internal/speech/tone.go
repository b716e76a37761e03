// Package speech plays short audio cues while cooking.
package speech

import (
	"bytes"
	"encoding/binary"
	"math"
	"time"
)

// Audio parameters shared by the synthesiser and the player.
const (
	SampleRate   = 24000
	ChannelCount = 1
	BitDepth     = 16
)

// fadeDuration smooths the start and end of each tone to avoid clicks.
const fadeDuration = 5 * time.Millisecond

// Tone is one sine note. A zero Frequency is silence.
type Tone struct {
	Frequency float64
	Duration  time.Duration
	Volume    float64 // 0..1
}

// ReadyChime is played when steps become ready: a rising major third.
var ReadyChime = []Tone{
	{Frequency: 880, Duration: 90 * time.Millisecond, Volume: 0.35},
	{Duration: 30 * time.Millisecond},
	{Frequency: 1108.73, Duration: 160 * time.Millisecond, Volume: 0.35},
}

// AlertChime is played for urgent notifications: two low beeps.
var AlertChime = []Tone{
	{Frequency: 440, Duration: 120 * time.Millisecond, Volume: 0.4},
	{Duration: 60 * time.Millisecond},
	{Frequency: 440, Duration: 120 * time.Millisecond, Volume: 0.4},
}

// Synthesize renders tones back to back as 16-bit mono PCM.
func Synthesize(tones ...Tone) []byte {
	var buf bytes.Buffer
	fade := int(fadeDuration.Seconds() * SampleRate)
	for _, t := range tones {
		n := int(t.Duration.Seconds() * SampleRate)
		vol := math.Max(0, math.Min(1, t.Volume))
		for i := 0; i < n; i++ {
			var v float64
			if t.Frequency > 0 {
				v = math.Sin(2*math.Pi*t.Frequency*float64(i)/SampleRate) * vol
				if i < fade {
					v *= float64(i) / float64(fade)
				} else if n-i < fade {
					v *= float64(n-i) / float64(fade)
				}
			}
			_ = binary.Write(&buf, binary.LittleEndian, int16(v*math.MaxInt16))
		}
	}
	return buf.Bytes()
}

// EncodeWAV wraps raw PCM in a RIFF/WAVE header.
func EncodeWAV(pcm []byte) []byte {
	const headerSize = 44
	blockAlign := ChannelCount * BitDepth / 8
	out := make([]byte, headerSize, headerSize+len(pcm))

	copy(out[0:4], "RIFF")
	binary.LittleEndian.PutUint32(out[4:8], uint32(36+len(pcm)))
	copy(out[8:12], "WAVE")
	copy(out[12:16], "fmt ")
	binary.LittleEndian.PutUint32(out[16:20], 16) // PCM fmt chunk size
	binary.LittleEndian.PutUint16(out[20:22], 1)  // PCM
	binary.LittleEndian.PutUint16(out[22:24], ChannelCount)
	binary.LittleEndian.PutUint32(out[24:28], SampleRate)
	binary.LittleEndian.PutUint32(out[28:32], uint32(SampleRate*blockAlign))
	binary.LittleEndian.PutUint16(out[32:34], uint16(blockAlign))
	binary.LittleEndian.PutUint16(out[34:36], BitDepth)
	copy(out[36:40], "data")
	binary.LittleEndian.PutUint32(out[40:44], uint32(len(pcm)))

	return append(out, pcm...)
}
