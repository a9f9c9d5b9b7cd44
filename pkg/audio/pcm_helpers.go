package audio

import (
	"bytes"
	"encoding/binary"
	"math"
)

// PCMInt16ToLE converts int16 samples to raw little-endian bytes.
func PCMInt16ToLE(samples []int16) []byte {
	var buf bytes.Buffer
	_ = binary.Write(&buf, binary.LittleEndian, samples)
	return buf.Bytes()
}

// LEToPCMInt16 converts raw little-endian bytes back to int16 samples.
func LEToPCMInt16(b []byte) []int16 {
	out := make([]int16, len(b)/2)
	_ = binary.Read(bytes.NewReader(b), binary.LittleEndian, &out)
	return out
}

// Normalize converts 16-bit samples to floats on the [-1, 1] scale.
// -32768 maps slightly below -1; Quantize clamps it back on the way out.
func Normalize(samples []int16) []float64 {
	out := make([]float64, len(samples))
	for i, s := range samples {
		out[i] = float64(s) / MaxSampleValue
	}
	return out
}

// Quantize clamps x to [-1, 1] and scales it to a 16-bit sample.
func Quantize(x float64) int16 {
	if x > 1 {
		x = 1
	} else if x < -1 {
		x = -1
	}
	return int16(math.Round(x * MaxSampleValue))
}

// QuantizeAll applies Quantize to a block of normalized samples.
func QuantizeAll(src []float64) []int16 {
	out := make([]int16, len(src))
	for i, x := range src {
		out[i] = Quantize(x)
	}
	return out
}
