package audio

// Format constants shared by the capture, codec and playback layers.
const (
	// Wire format carried by audio envelopes in both directions.
	WireSampleRate = 24_000 // Hz
	WireChannels   = 1
	WireSampleSize = 2 // bytes, 16-bit PCM

	// MaxSampleValue is the positive bound of the normalized scale. Both
	// normalization and quantization divide or multiply by this value, so
	// a full round trip reproduces the original sample bits.
	MaxSampleValue = 32767
)
