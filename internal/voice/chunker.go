package voice

import (
	"encoding/base64"
	"time"

	"github.com/Raikerian/go-voicelive/internal/protocol"
	"github.com/Raikerian/go-voicelive/pkg/audio"
)

// Chunker slices resampled capture blocks into fixed-duration chunks and
// encodes them as audio_chunk envelopes. Leftover samples carry over to the
// next pass, so after every Push less than one chunk's worth remains
// buffered. Sequence numbers start at 1 and only rewind on Reset.
type Chunker struct {
	sampleRate int
	chunkSize  int
	residue    []int16
	sequence   uint64
}

// NewChunker creates a Chunker producing chunks of the given duration.
func NewChunker(sampleRate int, chunkDuration time.Duration) *Chunker {
	if chunkDuration <= 0 {
		chunkDuration = DefaultChunkDuration
	}
	size := int(int64(sampleRate) * int64(chunkDuration) / int64(time.Second))
	if size < 1 {
		size = 1
	}
	return &Chunker{
		sampleRate: sampleRate,
		chunkSize:  size,
	}
}

// Push appends a block of samples and returns every chunk it completed, in
// order.
func (c *Chunker) Push(samples []int16) []protocol.AudioChunk {
	c.residue = append(c.residue, samples...)

	var out []protocol.AudioChunk
	for len(c.residue) >= c.chunkSize {
		c.sequence++
		payload := base64.StdEncoding.EncodeToString(audio.PCMInt16ToLE(c.residue[:c.chunkSize]))
		out = append(out, protocol.NewAudioChunk(payload, c.sequence, c.sampleRate))
		c.residue = c.residue[c.chunkSize:]
	}
	if len(out) > 0 {
		c.residue = append([]int16(nil), c.residue...)
	}
	return out
}

// ChunkSize returns the number of samples per chunk.
func (c *Chunker) ChunkSize() int { return c.chunkSize }

// Sequence returns the sequence number of the most recently emitted chunk.
func (c *Chunker) Sequence() uint64 { return c.sequence }

// Buffered returns how many samples are waiting for the next chunk.
func (c *Chunker) Buffered() int { return len(c.residue) }

// Reset drops buffered samples and rewinds the sequence counter for a new
// session.
func (c *Chunker) Reset() {
	c.residue = nil
	c.sequence = 0
}
