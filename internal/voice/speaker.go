package voice

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/ebitengine/oto/v3"
	"go.uber.org/zap"

	"github.com/Raikerian/go-voicelive/internal/config"
	"github.com/Raikerian/go-voicelive/pkg/audio"
)

// Speaker renders frames through the default output device. One oto context
// serves the whole process; frames at other rates are resampled to the
// context rate before rendering.
type Speaker struct {
	logger *zap.Logger
	ctx    *oto.Context
	rate   int
}

// NewSpeaker initializes the playback context at the configured sample rate
// and blocks until the device is ready.
func NewSpeaker(logger *zap.Logger, cfg *config.Config) (Renderer, error) {
	rate := cfg.Client.SampleRate
	otoCtx, ready, err := oto.NewContext(&oto.NewContextOptions{
		SampleRate:   rate,
		ChannelCount: audio.WireChannels,
		Format:       oto.FormatSignedInt16LE,
		BufferSize:   100 * time.Millisecond,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: init playback: %v", ErrDeviceAcquisition, err)
	}
	<-ready

	logger.Info("Playback device ready", zap.Int("rate", rate))
	return &Speaker{logger: logger, ctx: otoCtx, rate: rate}, nil
}

// Play renders one frame and blocks until it has drained or ctx is
// canceled.
func (s *Speaker) Play(ctx context.Context, frame AudioFrame) error {
	if len(frame.Samples) == 0 {
		return nil
	}

	samples := frame.Samples
	if frame.Rate != s.rate {
		resampled, err := audio.Resample(frame.Normalized(), frame.Rate, s.rate)
		if err != nil {
			return fmt.Errorf("resample %d -> %d: %w", frame.Rate, s.rate, err)
		}
		samples = resampled
	}

	player := s.ctx.NewPlayer(bytes.NewReader(audio.PCMInt16ToLE(samples)))
	defer player.Close()
	player.Play()

	ticker := time.NewTicker(5 * time.Millisecond)
	defer ticker.Stop()
	for player.IsPlaying() {
		select {
		case <-ctx.Done():
			player.Pause()
			return ctx.Err()
		case <-ticker.C:
		}
	}
	return nil
}

// Close suspends the playback context; oto contexts live for the process.
func (s *Speaker) Close() error {
	return s.ctx.Suspend()
}
