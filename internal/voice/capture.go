package voice

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/gen2brain/malgo"
	"go.uber.org/zap"

	"github.com/Raikerian/go-voicelive/internal/config"
	"github.com/Raikerian/go-voicelive/pkg/audio"
)

// Source produces blocks of 16-bit samples already resampled to the target
// rate. Start acquires the device; Stop halts capture and releases it.
type Source interface {
	Start(ctx context.Context) error
	Blocks() <-chan []int16
	Stop()
}

// Recorder captures microphone audio through malgo. The device runs at its
// native rate; every callback block is resampled to the target rate before
// it is handed to the consumer.
type Recorder struct {
	logger     *zap.Logger
	targetRate int

	mu          sync.Mutex
	malgoCtx    *malgo.AllocatedContext
	device      *malgo.Device
	blocks      chan []int16
	captureRate int

	dropped atomic.Uint64
}

// NewRecorder creates a Recorder targeting the configured sample rate.
func NewRecorder(logger *zap.Logger, cfg *config.Config) Source {
	return &Recorder{
		logger:     logger,
		targetRate: cfg.Client.SampleRate,
	}
}

// Start acquires the default capture device and begins streaming resampled
// blocks. Failures to acquire the backend or the device are reported as
// ErrDeviceAcquisition.
func (r *Recorder) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.device != nil {
		return nil
	}

	malgoCtx, err := malgo.InitContext(nil, malgo.ContextConfig{
		ThreadPriority: malgo.ThreadPriorityRealtime,
	}, func(message string) {
		r.logger.Debug("malgo: " + strings.TrimSpace(message))
	})
	if err != nil {
		return fmt.Errorf("%w: init context: %v", ErrDeviceAcquisition, err)
	}

	blocks := make(chan []int16, blockBufferSize)

	deviceConfig := malgo.DefaultDeviceConfig(malgo.Capture)
	deviceConfig.Capture.Format = malgo.FormatS16
	deviceConfig.Capture.Channels = 1
	deviceConfig.PeriodSizeInMilliseconds = capturePeriodMillis
	// SampleRate stays zero: the backend keeps the device at its native
	// rate and the resampler converts each block.

	device, err := malgo.InitDevice(malgoCtx.Context, deviceConfig, malgo.DeviceCallbacks{
		Data: func(_, pInputSamples []byte, _ uint32) {
			r.onBlock(blocks, pInputSamples)
		},
	})
	if err != nil {
		_ = malgoCtx.Uninit()
		malgoCtx.Free()
		return fmt.Errorf("%w: init device: %v", ErrDeviceAcquisition, err)
	}

	// Callbacks do not fire until the device starts, so the resolved rate
	// is safe to publish here.
	r.captureRate = int(device.SampleRate())

	if err := device.Start(); err != nil {
		device.Uninit()
		_ = malgoCtx.Uninit()
		malgoCtx.Free()
		return fmt.Errorf("%w: start device: %v", ErrDeviceAcquisition, err)
	}

	r.malgoCtx = malgoCtx
	r.device = device
	r.blocks = blocks

	r.logger.Info("Capture device started",
		zap.Int("deviceRate", r.captureRate),
		zap.Int("targetRate", r.targetRate))
	return nil
}

// Blocks returns the resampled block stream. The channel is closed by Stop.
func (r *Recorder) Blocks() <-chan []int16 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.blocks
}

// Stop halts capture, then releases the device and the backend context.
// Each release step runs even if an earlier one failed; calling Stop again
// is a no-op.
func (r *Recorder) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.device == nil {
		return
	}

	if err := r.device.Stop(); err != nil {
		r.logger.Warn("Capture device stop failed", zap.Error(err))
	}
	r.device.Uninit()
	if err := r.malgoCtx.Uninit(); err != nil {
		r.logger.Warn("Audio backend release failed", zap.Error(err))
	}
	r.malgoCtx.Free()

	// The device is fully stopped, so no callback can race this close.
	close(r.blocks)
	r.device = nil
	r.malgoCtx = nil
	r.blocks = nil

	r.logger.Info("Capture device released")
}

// onBlock runs on the device thread and must never block.
func (r *Recorder) onBlock(blocks chan<- []int16, raw []byte) {
	block, err := audio.Resample(audio.Normalize(audio.LEToPCMInt16(raw)), r.captureRate, r.targetRate)
	if err != nil || len(block) == 0 {
		return
	}

	select {
	case blocks <- block:
	default:
		if n := r.dropped.Add(1); n%50 == 1 {
			r.logger.Warn("Capture consumer behind, dropping blocks", zap.Uint64("dropped", n))
		}
	}
}
