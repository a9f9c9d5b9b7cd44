package audio

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
)

// EncodeWAV wraps mono 16-bit samples in a minimal RIFF container.
func EncodeWAV(samples []int16, sampleRate int) []byte {
	pcm := PCMInt16ToLE(samples)
	dataSize := uint32(len(pcm))

	var buf bytes.Buffer
	buf.WriteString("RIFF")
	_ = binary.Write(&buf, binary.LittleEndian, dataSize+36)
	buf.WriteString("WAVE")

	buf.WriteString("fmt ")
	_ = binary.Write(&buf, binary.LittleEndian, uint32(16)) // fmt chunk size
	_ = binary.Write(&buf, binary.LittleEndian, uint16(1))  // PCM
	_ = binary.Write(&buf, binary.LittleEndian, uint16(WireChannels))
	_ = binary.Write(&buf, binary.LittleEndian, uint32(sampleRate))
	_ = binary.Write(&buf, binary.LittleEndian, uint32(sampleRate*WireChannels*WireSampleSize)) // byte rate
	_ = binary.Write(&buf, binary.LittleEndian, uint16(WireChannels*WireSampleSize))            // block align
	_ = binary.Write(&buf, binary.LittleEndian, uint16(16))                                     // bits per sample

	buf.WriteString("data")
	_ = binary.Write(&buf, binary.LittleEndian, dataSize)
	buf.Write(pcm)
	return buf.Bytes()
}

// DecodeWAV extracts mono 16-bit samples and the sample rate from a RIFF
// container. Unknown chunks are skipped; fmt must precede data.
func DecodeWAV(b []byte) ([]int16, int, error) {
	if len(b) < 12 || string(b[0:4]) != "RIFF" || string(b[8:12]) != "WAVE" {
		return nil, 0, errors.New("not a RIFF/WAVE container")
	}

	var (
		sampleRate int
		haveFmt    bool
	)
	off := 12
	for off+8 <= len(b) {
		id := string(b[off : off+4])
		size := int(binary.LittleEndian.Uint32(b[off+4 : off+8]))
		body := off + 8
		if body+size > len(b) {
			return nil, 0, fmt.Errorf("truncated %q chunk", id)
		}

		switch id {
		case "fmt ":
			if size < 16 {
				return nil, 0, errors.New("fmt chunk too short")
			}
			format := binary.LittleEndian.Uint16(b[body : body+2])
			channels := binary.LittleEndian.Uint16(b[body+2 : body+4])
			rate := binary.LittleEndian.Uint32(b[body+4 : body+8])
			bits := binary.LittleEndian.Uint16(b[body+14 : body+16])
			if format != 1 || bits != 16 {
				return nil, 0, fmt.Errorf("unsupported encoding: format %d, %d bits", format, bits)
			}
			if channels != 1 {
				return nil, 0, fmt.Errorf("unsupported channel count %d", channels)
			}
			sampleRate = int(rate)
			haveFmt = true
		case "data":
			if !haveFmt {
				return nil, 0, errors.New("data chunk before fmt")
			}
			return LEToPCMInt16(b[body : body+size]), sampleRate, nil
		}

		off = body + size
		if size%2 == 1 {
			off++ // chunks are word aligned
		}
	}
	return nil, 0, errors.New("missing data chunk")
}
