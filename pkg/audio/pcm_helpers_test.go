package audio_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Raikerian/go-voicelive/pkg/audio"
)

func TestPCMConversion_PreservesExtremes(t *testing.T) {
	samples := []int16{-32768, -1, 0, 1, 32767}
	raw := audio.PCMInt16ToLE(samples)

	require.Len(t, raw, len(samples)*2, "Each sample is two bytes")
	assert.Equal(t, []byte{0x00, 0x80}, raw[:2], "Minimum sample is little endian")
	assert.Equal(t, samples, audio.LEToPCMInt16(raw), "Conversion must be lossless, including the int16 minimum")
}

func TestLEToPCMInt16_TruncatesOddTrailingByte(t *testing.T) {
	out := audio.LEToPCMInt16([]byte{0x01, 0x00, 0xFF})
	assert.Equal(t, []int16{1}, out, "A dangling byte cannot form a sample")
}
