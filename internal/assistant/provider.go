// Package assistant abstracts the conversational backends the bridge can
// relay a voice session to: the OpenAI realtime API or an offline mock.
package assistant

import (
	"context"
	"errors"
)

// ErrSessionClosed is returned by session operations after Close.
var ErrSessionClosed = errors.New("assistant session closed")

// EventKind discriminates provider events.
type EventKind int

const (
	// EventReady fires once the provider session accepts audio.
	EventReady EventKind = iota
	// EventSpeechStarted fires when the provider detects user speech.
	EventSpeechStarted
	// EventSpeechStopped fires when user speech ends.
	EventSpeechStopped
	// EventAudioDelta carries one segment of synthesized assistant speech.
	EventAudioDelta
	// EventAudioDone fires when the assistant finished speaking a response.
	EventAudioDone
	// EventTextDelta carries one fragment of the assistant's text reply.
	EventTextDelta
	// EventTranscriptDelta carries one fragment of the assistant speech
	// transcript.
	EventTranscriptDelta
	// EventAssistantTranscript carries a completed assistant speech
	// transcript.
	EventAssistantTranscript
	// EventUserTranscript carries a completed transcription of user speech.
	EventUserTranscript
	// EventFunctionCall announces a function tool invocation.
	EventFunctionCall
	// EventResponseDone closes one assistant response.
	EventResponseDone
	// EventError carries a provider-level error the client should see.
	EventError
)

// String implements fmt.Stringer.
func (k EventKind) String() string {
	switch k {
	case EventReady:
		return "ready"
	case EventSpeechStarted:
		return "speech_started"
	case EventSpeechStopped:
		return "speech_stopped"
	case EventAudioDelta:
		return "audio_delta"
	case EventAudioDone:
		return "audio_done"
	case EventTextDelta:
		return "text_delta"
	case EventTranscriptDelta:
		return "transcript_delta"
	case EventAssistantTranscript:
		return "assistant_transcript"
	case EventUserTranscript:
		return "user_transcript"
	case EventFunctionCall:
		return "function_call"
	case EventResponseDone:
		return "response_done"
	case EventError:
		return "error"
	default:
		return "unknown"
	}
}

// Event is one normalized provider occurrence. Only the fields relevant to
// the kind are set.
type Event struct {
	Kind EventKind

	// Text carries transcripts, deltas and error messages.
	Text string
	// Transcript is the response transcript attached to EventResponseDone,
	// when the backend supplies one.
	Transcript string
	// ItemID identifies the conversation item for transcript events.
	ItemID string
	// ResponseID groups deltas belonging to one response.
	ResponseID string
	// OutputIndex disambiguates parallel outputs within one response.
	OutputIndex int
	// Function is the tool name on EventFunctionCall.
	Function string

	// Audio, Format and SampleRate describe EventAudioDelta payloads.
	Audio      []byte
	Format     string
	SampleRate int
}

// SessionConfig carries the per-session conversation settings.
type SessionConfig struct {
	Model        string
	Voice        string
	Instructions string
}

// Provider opens conversation sessions against one assistant backend.
type Provider interface {
	// StartSession opens one realtime conversation session.
	StartSession(ctx context.Context, cfg SessionConfig) (Session, error)
	// TextTurn answers a single standalone text prompt.
	TextTurn(ctx context.Context, text string) (string, error)
}

// Session is one realtime conversation. Implementations deliver events in
// upstream order and close the event channel when the session ends.
type Session interface {
	// SendAudio forwards one chunk of raw little-endian PCM16 audio.
	SendAudio(pcm []byte) error
	// Commit marks the buffered user audio as a finished utterance.
	Commit() error
	// Events returns the provider's event stream.
	Events() <-chan Event
	// Close tears the session down. Safe to call more than once.
	Close() error
}
