package assistant

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"

	openairt "github.com/WqyJh/go-openai-realtime"
	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/Raikerian/go-voicelive/internal/config"
	"github.com/Raikerian/go-voicelive/internal/protocol"
	pkgopenai "github.com/Raikerian/go-voicelive/pkg/openai"
)

const (
	// realtimeSampleRate is the PCM16 rate the Realtime API produces.
	realtimeSampleRate  = 24_000
	realtimeEventBuffer = 256

	textTurnModel     = openai.GPT4oMini
	textTurnMaxTokens = 300
)

// OpenAIProvider backs the bridge with the OpenAI Realtime API for voice
// sessions and the chat completion API for plain text turns.
type OpenAIProvider struct {
	logger       *zap.Logger
	tools        *ToolRegistry
	pricing      pkgopenai.PricingService
	instructions string
	realtime     *openairt.Client
	chat         *openai.Client
}

// NewOpenAIProvider creates the OpenAI backed provider.
func NewOpenAIProvider(logger *zap.Logger, cfg *config.Config, tools *ToolRegistry, pricing pkgopenai.PricingService) *OpenAIProvider {
	return &OpenAIProvider{
		logger:       logger,
		tools:        tools,
		pricing:      pricing,
		instructions: cfg.Bridge.Instructions,
		realtime:     openairt.NewClient(cfg.OpenAI.APIKey),
		chat:         openai.NewClient(cfg.OpenAI.APIKey),
	}
}

// StartSession connects to the Realtime API and configures the session for
// bidirectional PCM16 audio with function tools.
func (p *OpenAIProvider) StartSession(ctx context.Context, cfg SessionConfig) (Session, error) {
	p.logger.Info("Connecting to OpenAI Realtime API", zap.String("model", cfg.Model))

	conn, err := p.realtime.Connect(ctx, openairt.WithModel(cfg.Model))
	if err != nil {
		return nil, fmt.Errorf("connect realtime api: %w", err)
	}

	s := &realtimeSession{
		logger:  p.logger,
		tools:   p.tools,
		pricing: p.pricing,
		model:   cfg.Model,
		conn:    conn,
		events:  make(chan Event, realtimeEventBuffer),
	}
	if err := s.configure(ctx, cfg); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("configure realtime session: %w", err)
	}

	// The handler outlives the dial context; Close cancels it.
	handlerCtx, cancel := context.WithCancel(context.Background())
	s.ctx = handlerCtx
	s.cancel = cancel
	s.handler = openairt.NewConnHandler(handlerCtx, conn, s.handleServerEvent)
	go s.run()

	return s, nil
}

// TextTurn answers a one-shot text interaction with a chat completion.
func (p *OpenAIProvider) TextTurn(ctx context.Context, text string) (string, error) {
	resp, err := p.chat.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: textTurnModel,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: p.instructions},
			{Role: openai.ChatMessageRoleUser, Content: text},
		},
		MaxTokens: textTurnMaxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("chat completion returned no choices")
	}

	fields := []zap.Field{
		zap.Int("prompt_tokens", resp.Usage.PromptTokens),
		zap.Int("completion_tokens", resp.Usage.CompletionTokens),
	}
	if cost, err := p.pricing.CalculateTokenCost(textTurnModel, resp.Usage.PromptTokens, resp.Usage.CompletionTokens); err == nil {
		fields = append(fields, zap.Float64("estimated_cost_usd", cost))
	}
	p.logger.Info("Text interaction completed", fields...)

	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

// realtimeSession adapts one Realtime API connection to the Session event
// stream.
type realtimeSession struct {
	logger  *zap.Logger
	tools   *ToolRegistry
	pricing pkgopenai.PricingService
	model   string
	conn    *openairt.Conn
	handler *openairt.ConnHandler
	ctx     context.Context
	cancel  context.CancelFunc
	events  chan Event

	closeOnce sync.Once
	closed    atomic.Bool
}

func (s *realtimeSession) configure(ctx context.Context, cfg SessionConfig) error {
	defs := s.tools.Definitions()
	tools := make([]openairt.Tool, len(defs))
	for i, def := range defs {
		tools[i] = openairt.Tool{
			Type:        openairt.ToolTypeFunction,
			Name:        def.Name,
			Description: def.Description,
			Parameters:  def.Parameters,
		}
	}

	// TurnDetection stays unset: the API default server VAD drives the
	// speech started/stopped events.
	sessionUpdate := &openairt.SessionUpdateEvent{
		Session: openairt.ClientSession{
			Modalities:        []openairt.Modality{openairt.ModalityText, openairt.ModalityAudio},
			Instructions:      cfg.Instructions,
			Voice:             mapVoice(cfg.Voice),
			InputAudioFormat:  openairt.AudioFormatPcm16,
			OutputAudioFormat: openairt.AudioFormatPcm16,
			InputAudioTranscription: &openairt.InputAudioTranscription{
				Model: openai.Whisper1,
			},
			Tools: tools,
		},
	}

	return s.conn.SendMessage(ctx, sessionUpdate)
}

// run starts the read loop and closes the event stream once it terminates.
func (s *realtimeSession) run() {
	s.handler.Start()
	if err := <-s.handler.Err(); err != nil && !errors.Is(err, context.Canceled) && !s.closed.Load() {
		s.logger.Warn("Realtime read loop ended", zap.Error(err))
	}
	s.closeOnce.Do(func() { close(s.events) })
}

// SendAudio forwards raw PCM16 audio to the input buffer.
func (s *realtimeSession) SendAudio(pcm []byte) error {
	if s.closed.Load() {
		return ErrSessionClosed
	}

	event := &openairt.InputAudioBufferAppendEvent{
		Audio: base64.StdEncoding.EncodeToString(pcm),
	}
	return s.conn.SendMessage(s.ctx, event)
}

// Commit closes out the pending input buffer so the server finalizes the
// current utterance.
func (s *realtimeSession) Commit() error {
	if s.closed.Load() {
		return ErrSessionClosed
	}
	return s.conn.SendMessage(s.ctx, &openairt.InputAudioBufferCommitEvent{})
}

// Events returns the session's event stream.
func (s *realtimeSession) Events() <-chan Event { return s.events }

// Close tears down the connection and stops the event handler.
func (s *realtimeSession) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}

	s.cancel()
	if err := s.conn.Close(); err != nil {
		s.logger.Warn("Failed to close realtime connection", zap.Error(err))
	}
	return nil
}

func (s *realtimeSession) handleServerEvent(ctx context.Context, event openairt.ServerEvent) {
	s.logger.Debug("Received server event",
		zap.String("event_type", string(event.ServerEventType())))

	switch event.ServerEventType() {
	case openairt.ServerEventTypeSessionUpdated:
		s.emit(Event{Kind: EventReady})

	case openairt.ServerEventTypeInputAudioBufferSpeechStarted:
		s.emit(Event{Kind: EventSpeechStarted})

	case openairt.ServerEventTypeInputAudioBufferSpeechStopped:
		s.emit(Event{Kind: EventSpeechStopped})

	case openairt.ServerEventTypeResponseAudioDelta:
		delta := event.(openairt.ResponseAudioDeltaEvent)
		if delta.Delta == "" {
			return
		}
		audioData, err := base64.StdEncoding.DecodeString(delta.Delta)
		if err != nil {
			s.logger.Error("Failed to decode audio delta", zap.Error(err))
			return
		}
		s.emit(Event{
			Kind:       EventAudioDelta,
			Audio:      audioData,
			Format:     protocol.FormatPCM16,
			SampleRate: realtimeSampleRate,
		})

	case openairt.ServerEventTypeResponseAudioDone:
		s.emit(Event{Kind: EventAudioDone})

	case openairt.ServerEventTypeResponseTextDelta:
		delta := event.(openairt.ResponseTextDeltaEvent)
		s.emit(Event{Kind: EventTextDelta, ResponseID: delta.ResponseID, Text: delta.Delta})

	case openairt.ServerEventTypeResponseAudioTranscriptDelta:
		delta := event.(openairt.ResponseAudioTranscriptDeltaEvent)
		s.emit(Event{
			Kind:        EventTranscriptDelta,
			ResponseID:  delta.ResponseID,
			ItemID:      delta.ItemID,
			OutputIndex: delta.OutputIndex,
			Text:        delta.Delta,
		})

	case openairt.ServerEventTypeResponseAudioTranscriptDone:
		transcript := event.(openairt.ResponseAudioTranscriptDoneEvent)
		s.emit(Event{
			Kind:        EventAssistantTranscript,
			ResponseID:  transcript.ResponseID,
			ItemID:      transcript.ItemID,
			OutputIndex: transcript.OutputIndex,
			Text:        transcript.Transcript,
		})

	case openairt.ServerEventTypeConversationItemInputAudioTranscriptionCompleted:
		inputTranscript := event.(openairt.ConversationItemInputAudioTranscriptionCompletedEvent)
		s.emit(Event{
			Kind:   EventUserTranscript,
			ItemID: inputTranscript.ItemID,
			Text:   inputTranscript.Transcript,
		})

	case openairt.ServerEventTypeConversationItemInputAudioTranscriptionFailed:
		failed := event.(openairt.ConversationItemInputAudioTranscriptionFailedEvent)
		s.logger.Warn("User audio transcription failed",
			zap.String("item_id", failed.ItemID),
			zap.String("error", failed.Error.Message))
		message := failed.Error.Message
		if message == "" {
			message = "Unable to transcribe your last utterance."
		}
		s.emit(Event{Kind: EventError, Text: message})

	case openairt.ServerEventTypeResponseFunctionCallArgumentsDone:
		call := event.(openairt.ResponseFunctionCallArgumentsDoneEvent)
		s.emit(Event{Kind: EventFunctionCall, Function: call.Name})
		s.dispatchFunctionCall(ctx, call)

	case openairt.ServerEventTypeResponseDone:
		done := event.(openairt.ResponseDoneEvent)
		if done.Response.Usage != nil {
			s.logUsage(done.Response.Usage)
		}
		s.emit(Event{Kind: EventResponseDone, ResponseID: done.Response.ID})

	case openairt.ServerEventTypeError:
		errorEvent := event.(openairt.ErrorEvent)
		message := errorEvent.Error.Message
		if message == "" {
			message = "Voice assistant error"
		}
		s.logger.Warn("Realtime API error", zap.String("error", message))
		s.emit(Event{Kind: EventError, Text: message})
	}
}

// logUsage reports token counts for one response, with an estimated cost
// when pricing data covers the session's model.
func (s *realtimeSession) logUsage(usage *openairt.Usage) {
	audioIn := usage.InputTokenDetails.AudioTokens
	audioOut := usage.OutputTokenDetails.AudioTokens

	fields := []zap.Field{
		zap.Int("input_tokens", usage.InputTokens),
		zap.Int("output_tokens", usage.OutputTokens),
		zap.Int("input_audio_tokens", audioIn),
		zap.Int("output_audio_tokens", audioOut),
	}

	textCost, textErr := s.pricing.CalculateTokenCost(s.model, usage.InputTokens-audioIn, usage.OutputTokens-audioOut)
	audioCost, audioErr := s.pricing.CalculateAudioTokenCost(s.model, audioIn, audioOut)
	if textErr == nil && audioErr == nil {
		fields = append(fields, zap.Float64("estimated_cost_usd", textCost+audioCost))
	}

	s.logger.Info("Response completed", fields...)
}

// dispatchFunctionCall runs the named tool and feeds its output back so the
// model can finish the spoken answer.
func (s *realtimeSession) dispatchFunctionCall(ctx context.Context, call openairt.ResponseFunctionCallArgumentsDoneEvent) {
	output := s.tools.Dispatch(call.Name, call.Arguments)

	item := &openairt.ConversationItemCreateEvent{
		Item: openairt.MessageItem{
			Type:   openairt.MessageItemTypeFunctionCallOutput,
			CallID: call.CallID,
			Output: output,
		},
	}
	if err := s.conn.SendMessage(ctx, item); err != nil {
		s.logger.Error("Failed to send function call output", zap.Error(err))
		return
	}
	if err := s.conn.SendMessage(ctx, &openairt.ResponseCreateEvent{}); err != nil {
		s.logger.Error("Failed to request response after function call", zap.Error(err))
	}
}

func (s *realtimeSession) emit(event Event) {
	select {
	case s.events <- event:
	default:
		s.logger.Warn("Realtime event buffer full, dropping event", zap.Stringer("kind", event.Kind))
	}
}

func mapVoice(name string) openairt.Voice {
	switch name {
	case "alloy":
		return openairt.VoiceAlloy
	case "echo":
		return openairt.VoiceEcho
	default:
		return openairt.VoiceShimmer
	}
}
