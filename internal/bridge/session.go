package bridge

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/Raikerian/go-voicelive/internal/assistant"
	"github.com/Raikerian/go-voicelive/internal/config"
	"github.com/Raikerian/go-voicelive/internal/protocol"
)

// sessionGreeting is sent to every client right after the upgrade.
const sessionGreeting = "Connected. You can start speaking!"

const closeGraceTimeout = 2 * time.Second

// errSessionEnded marks a clean session teardown. Both pump goroutines
// return it instead of nil so the group context always cancels and the
// peer pump unblocks.
var errSessionEnded = errors.New("session ended")

// session relays envelopes between one WebSocket client and one assistant
// session.
type session struct {
	logger   *zap.Logger
	cfg      *config.Config
	provider assistant.Provider
	conn     *websocket.Conn
	store    *TranscriptStore

	writeMu  sync.Mutex
	speaking bool
}

func newSession(logger *zap.Logger, cfg *config.Config, provider assistant.Provider, conn *websocket.Conn) *session {
	return &session{
		logger:   logger,
		cfg:      cfg,
		provider: provider,
		conn:     conn,
	}
}

func (s *session) run(ctx context.Context) {
	defer s.conn.Close()

	store, err := NewTranscriptStore(s.cfg.Bridge.TranscriptCacheSize)
	if err != nil {
		s.logger.Error("Failed to create transcript store", zap.Error(err))
		return
	}
	s.store = store

	s.send(protocol.NewSystemMessage(sessionGreeting))

	upstream, err := s.provider.StartSession(ctx, assistant.SessionConfig{
		Model:        s.cfg.Bridge.Model,
		Voice:        s.cfg.Bridge.Voice,
		Instructions: s.cfg.Bridge.Instructions,
	})
	if err != nil {
		s.logger.Error("Assistant session failed to start", zap.Error(err))
		s.send(protocol.NewErrorMessage("Assistant connection failed"))
		return
	}

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error { return s.pumpClient(upstream) })
	group.Go(func() error { return s.pumpProvider(upstream) })
	group.Go(func() error {
		// First pump to finish cancels the context; unblock the other.
		<-groupCtx.Done()
		deadline := time.Now().Add(closeGraceTimeout)
		_ = s.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), deadline)
		_ = upstream.Close()
		_ = s.conn.Close()
		return nil
	})

	if err := group.Wait(); err != nil && !errors.Is(err, errSessionEnded) {
		s.logger.Warn("Session ended with error", zap.Error(err))
		return
	}
	s.logger.Info("Session ended")
}

// pumpClient reads client envelopes and forwards audio upstream.
func (s *session) pumpClient(upstream assistant.Session) error {
	for {
		kind, data, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err,
				websocket.CloseNormalClosure,
				websocket.CloseGoingAway,
				websocket.CloseNoStatusReceived) {
				s.logger.Info("Client disconnected")
				return errSessionEnded
			}
			return fmt.Errorf("client read: %w", err)
		}
		if kind != websocket.TextMessage {
			continue
		}

		msg, err := protocol.ParseClientMessage(data)
		if err != nil {
			if errors.Is(err, protocol.ErrUnknownType) {
				s.send(protocol.NewErrorMessage("Unsupported message type: " + protocol.MessageType(data)))
				continue
			}
			s.send(protocol.NewErrorMessage("Invalid payload received"))
			continue
		}

		switch m := msg.(type) {
		case protocol.AudioChunk:
			pcm, err := base64.StdEncoding.DecodeString(m.Audio)
			if err != nil || len(pcm) == 0 {
				s.send(protocol.NewErrorMessage("Audio payload missing or invalid"))
				continue
			}
			if err := upstream.SendAudio(pcm); err != nil {
				s.logger.Error("Failed to forward audio", zap.Error(err))
				s.send(protocol.NewErrorMessage("Unable to forward audio to assistant"))
				continue
			}
			s.send(protocol.NewAck(m.Sequence))

		case protocol.Ping:
			s.send(protocol.NewPong())

		case protocol.Stop:
			s.logger.Info("Client requested stop")
			_ = upstream.Commit()
			return errSessionEnded
		}
	}
}

// pumpProvider relays assistant events to the client.
func (s *session) pumpProvider(upstream assistant.Session) error {
	for event := range upstream.Events() {
		s.relay(event)
	}
	return errSessionEnded
}

func (s *session) relay(event assistant.Event) {
	switch event.Kind {
	case assistant.EventReady:
		s.send(protocol.NewAssistantState(protocol.StateReady))

	case assistant.EventSpeechStarted:
		s.send(protocol.NewAssistantState(protocol.StateListening))

	case assistant.EventSpeechStopped:
		s.send(protocol.NewAssistantState(protocol.StateProcessing))

	case assistant.EventTextDelta:
		if event.ResponseID != "" {
			s.store.AppendText(event.ResponseID, event.Text)
		}

	case assistant.EventTranscriptDelta:
		if event.ResponseID != "" && event.ItemID != "" {
			s.store.AppendFragment(transcriptKeyFor(event), event.Text)
		}

	case assistant.EventAudioDelta:
		s.send(protocol.NewAssistantAudio(
			base64.StdEncoding.EncodeToString(event.Audio), event.Format, event.SampleRate))
		if !s.speaking {
			s.speaking = true
			s.send(protocol.NewAssistantState(protocol.StateSpeaking))
		}

	case assistant.EventAudioDone:
		s.send(protocol.NewAssistantState(protocol.StateProcessing))

	case assistant.EventUserTranscript:
		if event.ItemID != "" && event.Text != "" {
			s.store.RecordUser(event.ItemID, event.Text)
		}
		if s.cfg.Bridge.TranscriptionsEnabled() && event.Text != "" {
			s.send(protocol.NewUserTranscript(event.Text, event.ItemID))
		}

	case assistant.EventAssistantTranscript:
		text := event.Text
		if text == "" {
			text = s.store.TakeFragment(transcriptKeyFor(event))
		}
		if s.cfg.Bridge.TranscriptionsEnabled() && text != "" {
			s.send(protocol.NewAssistantTranscript(text))
		}

	case assistant.EventFunctionCall:
		state := protocol.NewAssistantState(protocol.StateFunctionCall)
		state.Function = event.Function
		s.send(state)

	case assistant.EventResponseDone:
		text := s.store.TakeText(event.ResponseID)
		if text == "" {
			text = event.Transcript
		}
		if text == "" {
			text = "Assistant response completed."
		}
		s.send(protocol.NewAssistantMessage(text, event.Transcript))
		s.speaking = false
		s.send(protocol.NewAssistantState(protocol.StateIdle))

	case assistant.EventError:
		s.send(protocol.NewErrorMessage(event.Text))

	default:
		s.logger.Debug("Unhandled assistant event", zap.Stringer("kind", event.Kind))
	}
}

// send serializes one envelope to the client. Pump goroutines share the
// connection, so writes are serialized here.
func (s *session) send(event protocol.ServerEvent) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if err := s.conn.WriteJSON(event); err != nil {
		s.logger.Warn("Failed to send envelope",
			zap.String("kind", event.Kind()), zap.Error(err))
	}
}

func transcriptKeyFor(event assistant.Event) TranscriptKey {
	return TranscriptKey{
		ResponseID:  event.ResponseID,
		ItemID:      event.ItemID,
		OutputIndex: event.OutputIndex,
	}
}
