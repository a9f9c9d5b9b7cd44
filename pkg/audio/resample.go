package audio

import (
	"fmt"
	"math"
)

// Resample converts a block of normalized samples from inRate to outRate and
// quantizes the result to 16-bit PCM. Equal rates skip rate conversion and
// only clamp and scale; lower target rates are produced by averaging each
// output window of input samples.
func Resample(src []float64, inRate, outRate int) ([]int16, error) {
	if inRate <= 0 || outRate <= 0 {
		return nil, fmt.Errorf("invalid sample rates: %d -> %d", inRate, outRate)
	}
	if inRate == outRate {
		return QuantizeAll(src), nil
	}
	if len(src) == 0 {
		return nil, nil
	}

	ratio := float64(inRate) / float64(outRate)
	out := make([]int16, len(src)*outRate/inRate)
	for i := range out {
		lo := int(math.Round(float64(i) * ratio))
		hi := int(math.Round(float64(i+1) * ratio))
		if hi > len(src) {
			hi = len(src)
		}
		if lo >= hi {
			// Degenerate window, take the nearest sample instead.
			if lo >= len(src) {
				lo = len(src) - 1
			}
			hi = lo + 1
		}

		var sum float64
		for _, x := range src[lo:hi] {
			sum += x
		}
		out[i] = Quantize(sum / float64(hi-lo))
	}
	return out, nil
}
