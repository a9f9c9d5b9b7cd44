package voice

import (
	"encoding/base64"
	"errors"
	"fmt"

	"github.com/Raikerian/go-voicelive/internal/protocol"
	"github.com/Raikerian/go-voicelive/pkg/audio"
)

// Decoder converts assistant_audio payloads into playable frames.
type Decoder struct {
	defaultRate int
}

// NewDecoder creates a Decoder. defaultRate applies to pcm16 payloads that
// omit their sample rate; wav payloads always take the rate from their
// header.
func NewDecoder(defaultRate int) *Decoder {
	return &Decoder{defaultRate: defaultRate}
}

// Decode validates and decodes one audio envelope.
func (d *Decoder) Decode(env protocol.AssistantAudio) (AudioFrame, error) {
	if env.Audio == "" {
		return AudioFrame{}, errors.New("empty audio payload")
	}
	raw, err := base64.StdEncoding.DecodeString(env.Audio)
	if err != nil {
		return AudioFrame{}, fmt.Errorf("decode base64: %w", err)
	}

	switch env.Format {
	case protocol.FormatPCM16, "":
		rate := env.SampleRate
		if rate <= 0 {
			rate = d.defaultRate
		}
		return AudioFrame{Samples: audio.LEToPCMInt16(raw), Rate: rate}, nil
	case protocol.FormatWAV:
		samples, rate, err := audio.DecodeWAV(raw)
		if err != nil {
			return AudioFrame{}, fmt.Errorf("decode wav: %w", err)
		}
		if rate <= 0 {
			rate = env.SampleRate
		}
		if rate <= 0 {
			rate = d.defaultRate
		}
		return AudioFrame{Samples: samples, Rate: rate}, nil
	default:
		return AudioFrame{}, fmt.Errorf("unsupported audio format %q", env.Format)
	}
}
