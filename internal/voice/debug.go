package voice

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/Raikerian/go-voicelive/pkg/audio"
)

// debugAudioDir collects WAV dumps of decoded assistant speech when
// VOICELIVE_DEBUG_AUDIO is set.
const debugAudioDir = "debug_audio"

func debugAudioEnabled() bool {
	return os.Getenv("VOICELIVE_DEBUG_AUDIO") != ""
}

// saveDebugWAV writes a mono 16-bit PCM buffer to disk as a WAV file so
// decode and resampling issues can be inspected offline.
func saveDebugWAV(samples []int16, sampleRate int, prefix string) (string, error) {
	if len(samples) == 0 {
		return "", errors.New("saveDebugWAV: empty sample slice")
	}

	if err := os.MkdirAll(debugAudioDir, 0o755); err != nil {
		return "", fmt.Errorf("debug dir: %w", err)
	}

	filename := filepath.Join(
		debugAudioDir,
		fmt.Sprintf("%s_audio_%s.wav", prefix, time.Now().Format("20060102_150405.000")),
	)

	if err := os.WriteFile(filename, audio.EncodeWAV(samples, sampleRate), 0o644); err != nil {
		return "", fmt.Errorf("write wav: %w", err)
	}

	return filename, nil
}
