// Package voice implements the client audio pipeline: capture, chunking,
// decoding, playback and the session state machine that ties them to the
// bridge transport.
package voice

import (
	"errors"
	"time"

	"github.com/Raikerian/go-voicelive/pkg/audio"
)

// Pipeline error kinds. Both end the session that raised them.
var (
	// ErrDeviceAcquisition means an audio device could not be acquired.
	ErrDeviceAcquisition = errors.New("audio device acquisition failed")
	// ErrTransportConnect means the bridge connection never opened.
	ErrTransportConnect = errors.New("transport connect failed")
)

const (
	// DefaultChunkDuration is the outbound chunk length when none is
	// configured.
	DefaultChunkDuration = 200 * time.Millisecond

	// capturePeriodMillis is the capture device callback period.
	capturePeriodMillis = 20

	// blockBufferSize bounds the capture block channel so the device
	// callback never blocks.
	blockBufferSize = 100
)

// AudioFrame is one block of mono 16-bit samples at a fixed rate.
type AudioFrame struct {
	Samples []int16
	Rate    int
}

// Duration returns the frame's play time.
func (f AudioFrame) Duration() time.Duration {
	if f.Rate <= 0 {
		return 0
	}
	return time.Duration(len(f.Samples)) * time.Second / time.Duration(f.Rate)
}

// Normalized returns the samples on the [-1, 1] scale used at rendering
// boundaries.
func (f AudioFrame) Normalized() []float64 {
	return audio.Normalize(f.Samples)
}

// PCM returns the samples as raw little-endian bytes.
func (f AudioFrame) PCM() []byte {
	return audio.PCMInt16ToLE(f.Samples)
}

// Phase is the client session's conversation phase.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseConnecting
	PhaseReady
	PhaseListening
	PhaseProcessing
	PhaseSpeaking
)

// String implements fmt.Stringer.
func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseConnecting:
		return "connecting"
	case PhaseReady:
		return "ready"
	case PhaseListening:
		return "listening"
	case PhaseProcessing:
		return "processing"
	case PhaseSpeaking:
		return "speaking"
	default:
		return "unknown"
	}
}
