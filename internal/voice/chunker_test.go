package voice_test

import (
	"encoding/base64"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Raikerian/go-voicelive/internal/protocol"
	"github.com/Raikerian/go-voicelive/internal/voice"
	"github.com/Raikerian/go-voicelive/pkg/audio"
)

func TestNewChunker_ChunkSize(t *testing.T) {
	tests := map[string]struct {
		sampleRate  int
		duration    time.Duration
		expected    int
		description string
	}{
		"wire_rate_200ms": {
			sampleRate:  24000,
			duration:    200 * time.Millisecond,
			expected:    4800,
			description: "24kHz at 200ms should produce 4800-sample chunks",
		},
		"zero_duration_uses_default": {
			sampleRate:  24000,
			duration:    0,
			expected:    4800,
			description: "Zero duration should fall back to the 200ms default",
		},
		"odd_rate_floors": {
			sampleRate:  44100,
			duration:    150 * time.Millisecond,
			expected:    6615,
			description: "Non-integer products should floor to whole samples",
		},
		"tiny_rate_clamps_to_one": {
			sampleRate:  1,
			duration:    time.Millisecond,
			expected:    1,
			description: "Degenerate sizes should clamp to one sample",
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			c := voice.NewChunker(tc.sampleRate, tc.duration)
			assert.Equal(t, tc.expected, c.ChunkSize(), tc.description)
		})
	}
}

func TestChunker_SplitPushesKeepBoundaries(t *testing.T) {
	c := voice.NewChunker(24000, 200*time.Millisecond)
	size := c.ChunkSize()
	require.Equal(t, 4800, size)

	// Feed 2.5 chunks of ramp samples in uneven blocks and make sure the
	// chunk boundaries land on exact multiples of the chunk size.
	total := size*2 + size/2
	samples := makeRamp(total)

	var chunks []protocol.AudioChunk
	for off := 0; off < total; {
		blockLen := 1000
		if off+blockLen > total {
			blockLen = total - off
		}
		chunks = append(chunks, c.Push(samples[off:off+blockLen])...)
		assert.Less(t, c.Buffered(), size, "residue must stay below one chunk")
		off += blockLen
	}

	require.Len(t, chunks, 2)
	assert.Equal(t, size/2, c.Buffered())

	for i, chunk := range chunks {
		assert.Equal(t, protocol.TypeAudioChunk, chunk.Type)
		assert.Equal(t, protocol.FormatPCM16, chunk.Format)
		assert.Equal(t, 24000, chunk.SampleRate)
		assert.Equal(t, uint64(i+1), chunk.Sequence)

		decoded := decodeChunkPayload(t, chunk)
		assert.Equal(t, samples[i*size:(i+1)*size], decoded,
			"chunk %d should carry the next contiguous window of samples", i)
	}
}

func TestChunker_SingleExactBlock(t *testing.T) {
	c := voice.NewChunker(24000, 200*time.Millisecond)
	samples := makeRamp(c.ChunkSize())

	chunks := c.Push(samples)

	require.Len(t, chunks, 1)
	assert.Equal(t, uint64(1), chunks[0].Sequence)
	assert.Equal(t, 0, c.Buffered())
	assert.Equal(t, samples, decodeChunkPayload(t, chunks[0]))
}

func TestChunker_ShortPushEmitsNothing(t *testing.T) {
	c := voice.NewChunker(24000, 200*time.Millisecond)

	chunks := c.Push(makeRamp(100))

	assert.Empty(t, chunks)
	assert.Equal(t, 100, c.Buffered())
	assert.Equal(t, uint64(0), c.Sequence())
}

func TestChunker_ResetRewindsSequence(t *testing.T) {
	c := voice.NewChunker(24000, 200*time.Millisecond)

	c.Push(makeRamp(c.ChunkSize() + 50))
	require.Equal(t, uint64(1), c.Sequence())
	require.Equal(t, 50, c.Buffered())

	c.Reset()

	assert.Equal(t, uint64(0), c.Sequence())
	assert.Equal(t, 0, c.Buffered())

	chunks := c.Push(makeRamp(c.ChunkSize()))
	require.Len(t, chunks, 1)
	assert.Equal(t, uint64(1), chunks[0].Sequence, "sequence should restart at 1 after reset")
}

// Helper functions

func makeRamp(n int) []int16 {
	samples := make([]int16, n)
	for i := range samples {
		samples[i] = int16(i % 1000)
	}
	return samples
}

func decodeChunkPayload(t *testing.T, chunk protocol.AudioChunk) []int16 {
	t.Helper()
	raw, err := base64.StdEncoding.DecodeString(chunk.Audio)
	require.NoError(t, err)
	return audio.LEToPCMInt16(raw)
}

func BenchmarkChunker_Push(b *testing.B) {
	c := voice.NewChunker(24000, 200*time.Millisecond)
	block := makeRamp(480)

	b.ResetTimer()
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		c.Push(block)
	}
}
