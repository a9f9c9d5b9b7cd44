// Package protocol defines the JSON envelopes exchanged between the voice
// client and the bridge server. Every websocket text frame carries exactly
// one envelope, discriminated by its "type" field.
package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Envelope type discriminators.
const (
	// Client to server.
	TypeAudioChunk = "audio_chunk"
	TypeStop       = "stop"
	TypePing       = "ping"

	// Server to client.
	TypeAssistantMessage    = "assistant_message"
	TypeAssistantAudio      = "assistant_audio"
	TypeAssistantTranscript = "assistant_transcript"
	TypeAssistantState      = "assistant_state"
	TypeUserTranscript      = "user_transcript"
	TypeSystemMessage       = "system_message"
	TypeError               = "error"
	TypeAck                 = "ack"
	TypePong                = "pong"
)

// Audio payload formats.
const (
	FormatPCM16 = "pcm16"
	FormatWAV   = "wav"
)

// Conversation state labels carried by assistant_state envelopes.
const (
	StateReady        = "ready"
	StateListening    = "listening"
	StateProcessing   = "processing"
	StateSpeaking     = "speaking"
	StateIdle         = "idle"
	StateFunctionCall = "function_call"
)

// ErrUnknownType reports an envelope whose type discriminator is not part of
// the vocabulary. Receivers drop such envelopes without failing the session.
var ErrUnknownType = errors.New("unknown envelope type")

// ClientMessage is an envelope sent by the client to the server.
type ClientMessage interface {
	Kind() string
}

// ServerEvent is an envelope sent by the server to the client.
type ServerEvent interface {
	Kind() string
}

// AudioChunk carries one fixed-duration block of captured audio, encoded as
// base64 little-endian 16-bit PCM. Sequence numbers increase by one per
// chunk within a session, starting at 1.
type AudioChunk struct {
	Type       string `json:"type"`
	Audio      string `json:"audio"`
	Sequence   uint64 `json:"sequence"`
	Format     string `json:"format"`
	SampleRate int    `json:"sampleRate"`
}

// NewAudioChunk builds an audio_chunk envelope for base64 PCM payloads.
func NewAudioChunk(audio string, sequence uint64, sampleRate int) AudioChunk {
	return AudioChunk{
		Type:       TypeAudioChunk,
		Audio:      audio,
		Sequence:   sequence,
		Format:     FormatPCM16,
		SampleRate: sampleRate,
	}
}

func (AudioChunk) Kind() string { return TypeAudioChunk }

// Stop asks the server to end the session.
type Stop struct {
	Type string `json:"type"`
}

// NewStop builds a stop envelope.
func NewStop() Stop { return Stop{Type: TypeStop} }

func (Stop) Kind() string { return TypeStop }

// Ping is a client liveness probe. The server answers with a Pong.
type Ping struct {
	Type string `json:"type"`
}

// NewPing builds a ping envelope.
func NewPing() Ping { return Ping{Type: TypePing} }

func (Ping) Kind() string { return TypePing }

// AssistantMessage is the completed assistant reply for one turn. Transcript
// is present when the upstream provider reported one alongside the text.
type AssistantMessage struct {
	Type       string  `json:"type"`
	Text       string  `json:"text"`
	Transcript *string `json:"transcript,omitempty"`
}

// NewAssistantMessage builds an assistant_message envelope. An empty
// transcript is omitted from the payload.
func NewAssistantMessage(text, transcript string) AssistantMessage {
	msg := AssistantMessage{Type: TypeAssistantMessage, Text: text}
	if transcript != "" {
		msg.Transcript = &transcript
	}
	return msg
}

func (AssistantMessage) Kind() string { return TypeAssistantMessage }

// AssistantAudio carries one block of synthesized speech. Format is pcm16
// for raw base64 samples or wav for a base64 RIFF container.
type AssistantAudio struct {
	Type       string `json:"type"`
	Audio      string `json:"audio"`
	Format     string `json:"format"`
	SampleRate int    `json:"sampleRate,omitempty"`
}

// NewAssistantAudio builds an assistant_audio envelope.
func NewAssistantAudio(audio, format string, sampleRate int) AssistantAudio {
	return AssistantAudio{Type: TypeAssistantAudio, Audio: audio, Format: format, SampleRate: sampleRate}
}

func (AssistantAudio) Kind() string { return TypeAssistantAudio }

// AssistantTranscript is the transcript of one finished assistant utterance.
type AssistantTranscript struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// NewAssistantTranscript builds an assistant_transcript envelope.
func NewAssistantTranscript(text string) AssistantTranscript {
	return AssistantTranscript{Type: TypeAssistantTranscript, Text: text}
}

func (AssistantTranscript) Kind() string { return TypeAssistantTranscript }

// AssistantState announces a conversation state change. Function names the
// tool being invoked when State is function_call.
type AssistantState struct {
	Type     string `json:"type"`
	State    string `json:"state"`
	Function string `json:"function,omitempty"`
}

// NewAssistantState builds an assistant_state envelope.
func NewAssistantState(state string) AssistantState {
	return AssistantState{Type: TypeAssistantState, State: state}
}

func (AssistantState) Kind() string { return TypeAssistantState }

// UserTranscript is the transcription of one user utterance.
type UserTranscript struct {
	Type   string `json:"type"`
	Text   string `json:"text"`
	ItemID string `json:"item_id,omitempty"`
}

// NewUserTranscript builds a user_transcript envelope.
func NewUserTranscript(text, itemID string) UserTranscript {
	return UserTranscript{Type: TypeUserTranscript, Text: text, ItemID: itemID}
}

func (UserTranscript) Kind() string { return TypeUserTranscript }

// SystemMessage is informational text from the bridge itself, such as the
// connect greeting.
type SystemMessage struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// NewSystemMessage builds a system_message envelope.
func NewSystemMessage(text string) SystemMessage {
	return SystemMessage{Type: TypeSystemMessage, Text: text}
}

func (SystemMessage) Kind() string { return TypeSystemMessage }

// ErrorMessage surfaces a recoverable server-side failure. Servers populate
// Message; Text is accepted on the wire for compatibility.
type ErrorMessage struct {
	Type    string `json:"type"`
	Message string `json:"message,omitempty"`
	Text    string `json:"text,omitempty"`
}

// NewErrorMessage builds an error envelope.
func NewErrorMessage(message string) ErrorMessage {
	return ErrorMessage{Type: TypeError, Message: message}
}

func (ErrorMessage) Kind() string { return TypeError }

// Reason returns the human-readable error text regardless of which field the
// server populated.
func (e ErrorMessage) Reason() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Text != "" {
		return e.Text
	}
	return "unknown error"
}

// Ack confirms receipt of one audio chunk. Sequence echoes the chunk's
// sequence number when the server tracks it.
type Ack struct {
	Type     string  `json:"type"`
	Sequence *uint64 `json:"sequence,omitempty"`
}

// NewAck builds an ack envelope echoing the given sequence number.
func NewAck(sequence uint64) Ack {
	return Ack{Type: TypeAck, Sequence: &sequence}
}

func (Ack) Kind() string { return TypeAck }

// Pong answers a client Ping.
type Pong struct {
	Type string `json:"type"`
}

// NewPong builds a pong envelope.
func NewPong() Pong { return Pong{Type: TypePong} }

func (Pong) Kind() string { return TypePong }

// ParseServerEvent decodes one server envelope. Malformed JSON and envelopes
// without a type field yield an error; a recognizable but unknown type is
// reported via ErrUnknownType so callers can drop it quietly.
func ParseServerEvent(data []byte) (ServerEvent, error) {
	head, err := peekType(data)
	if err != nil {
		return nil, err
	}

	switch head {
	case TypeAssistantMessage:
		return decodeAs[AssistantMessage](data)
	case TypeAssistantAudio:
		return decodeAs[AssistantAudio](data)
	case TypeAssistantTranscript:
		return decodeAs[AssistantTranscript](data)
	case TypeAssistantState:
		return decodeAs[AssistantState](data)
	case TypeUserTranscript:
		return decodeAs[UserTranscript](data)
	case TypeSystemMessage:
		return decodeAs[SystemMessage](data)
	case TypeError:
		return decodeAs[ErrorMessage](data)
	case TypeAck:
		return decodeAs[Ack](data)
	case TypePong:
		return decodeAs[Pong](data)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, head)
	}
}

// ParseClientMessage decodes one client envelope using the same rules as
// ParseServerEvent.
func ParseClientMessage(data []byte) (ClientMessage, error) {
	head, err := peekType(data)
	if err != nil {
		return nil, err
	}

	switch head {
	case TypeAudioChunk:
		return decodeAs[AudioChunk](data)
	case TypeStop:
		return decodeAs[Stop](data)
	case TypePing:
		return decodeAs[Ping](data)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, head)
	}
}

// MessageType reports the type discriminator of an envelope, or an empty
// string when none can be read.
func MessageType(data []byte) string {
	head, err := peekType(data)
	if err != nil {
		return ""
	}
	return head
}

func peekType(data []byte) (string, error) {
	var head struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return "", fmt.Errorf("decode envelope: %w", err)
	}
	if head.Type == "" {
		return "", errors.New("envelope missing type field")
	}
	return head.Type, nil
}

func decodeAs[T any](data []byte) (T, error) {
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return v, fmt.Errorf("decode envelope: %w", err)
	}
	return v, nil
}
