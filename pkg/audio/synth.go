package audio

import (
	"math"
	"time"
)

// Tone synthesizes a mono sine burst as PCM16 samples. The amplitude scale
// truncates toward zero, matching common integer tone generators, so two
// renditions of the same parameters are sample-identical.
func Tone(rate int, duration time.Duration, frequency, volume float64) []int16 {
	total := int(int64(rate) * int64(duration) / int64(time.Second))
	if total <= 0 {
		return nil
	}

	amplitude := float64(int(volume * MaxSampleValue))
	samples := make([]int16, total)
	for i := range samples {
		samples[i] = int16(amplitude * math.Sin(2*math.Pi*frequency*float64(i)/float64(rate)))
	}
	return samples
}
