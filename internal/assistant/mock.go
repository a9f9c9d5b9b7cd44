package assistant

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/Raikerian/go-voicelive/internal/protocol"
	"github.com/Raikerian/go-voicelive/pkg/audio"
)

var (
	mockGreetings = []string{
		"Hello there! I'm your friendly voice assistant.",
		"Hi! Ready to chat whenever you are.",
		"Hey! Let's talk—I'm all ears.",
	}
	mockResponses = []string{
		"I heard you loud and clear.",
		"That's interesting! Tell me more.",
		"Thanks for sharing that with me.",
	}
)

const (
	// mockChunksPerTurn is how many audio chunks stand in for one finished
	// utterance.
	mockChunksPerTurn = 3
	mockToneRate      = 16_000
	mockToneDuration  = 320 * time.Millisecond
	mockToneBaseHz    = 440.0
	mockToneStepHz    = 30.0
	mockToneVolume    = 0.28
	mockEventBuffer   = 64
)

// MockProvider is the offline assistant backend: canned phrases, pseudo
// transcripts and sine-tone speech. It keeps the whole pipeline exercisable
// without upstream credentials.
type MockProvider struct {
	logger *zap.Logger

	randMu sync.Mutex
	rand   *rand.Rand
}

// NewMockProvider creates the offline provider.
func NewMockProvider(logger *zap.Logger) *MockProvider {
	return &MockProvider{
		logger: logger,
		rand:   rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// StartSession opens an offline conversation session. The session greets
// immediately and replies after every few audio chunks.
func (p *MockProvider) StartSession(ctx context.Context, cfg SessionConfig) (Session, error) {
	s := &mockSession{
		provider: p,
		logger:   p.logger,
		events:   make(chan Event, mockEventBuffer),
	}

	s.mu.Lock()
	s.emitLocked(Event{Kind: EventReady})
	s.emitLocked(Event{
		Kind:       EventResponseDone,
		ResponseID: s.nextResponseIDLocked(),
		Transcript: p.pick(mockGreetings),
	})
	s.mu.Unlock()

	p.logger.Info("Mock assistant session started")
	return s, nil
}

// TextTurn answers the REST fallback with a canned two-part reply.
func (p *MockProvider) TextTurn(ctx context.Context, text string) (string, error) {
	return p.buildReply(), nil
}

func (p *MockProvider) buildReply() string {
	return p.pick(mockGreetings) + " " + p.pick(mockResponses)
}

func (p *MockProvider) pick(phrases []string) string {
	p.randMu.Lock()
	defer p.randMu.Unlock()
	return phrases[p.rand.Intn(len(phrases))]
}

// mockSession simulates one conversation. Every mockChunksPerTurn audio
// chunks it fabricates a user transcript, a canned reply and three tone-WAV
// speech segments.
type mockSession struct {
	provider *MockProvider
	logger   *zap.Logger
	events   chan Event

	mu        sync.Mutex
	closed    bool
	chunks    int
	turns     int
	responses int
}

// SendAudio counts one chunk toward the current turn and replies once
// enough have arrived.
func (s *mockSession) SendAudio(pcm []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrSessionClosed
	}

	s.chunks++
	if s.chunks == 1 {
		s.emitLocked(Event{Kind: EventSpeechStarted})
	}
	if s.chunks < mockChunksPerTurn {
		return nil
	}

	s.chunks = 0
	s.replyLocked()
	return nil
}

// Commit ends the current utterance early, as if the silence window had
// elapsed.
func (s *mockSession) Commit() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrSessionClosed
	}
	if s.chunks == 0 {
		return nil
	}

	s.chunks = 0
	s.replyLocked()
	return nil
}

// Events returns the session's event stream.
func (s *mockSession) Events() <-chan Event { return s.events }

// Close ends the session and closes the event stream.
func (s *mockSession) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	close(s.events)
	return nil
}

func (s *mockSession) replyLocked() {
	s.turns++
	itemID := fmt.Sprintf("item-%d", s.turns)
	responseID := s.nextResponseIDLocked()
	transcript := pseudoTranscript(time.Now())
	reply := s.provider.buildReply()

	s.emitLocked(Event{Kind: EventSpeechStopped})
	s.emitLocked(Event{Kind: EventUserTranscript, ItemID: itemID, Text: transcript})

	for i := 0; i < 3; i++ {
		tone := audio.Tone(mockToneRate, mockToneDuration, mockToneBaseHz+mockToneStepHz*float64(i), mockToneVolume)
		s.emitLocked(Event{
			Kind:       EventAudioDelta,
			Audio:      audio.EncodeWAV(tone, mockToneRate),
			Format:     protocol.FormatWAV,
			SampleRate: mockToneRate,
		})
	}
	s.emitLocked(Event{Kind: EventAudioDone})

	s.emitLocked(Event{
		Kind:       EventAssistantTranscript,
		ResponseID: responseID,
		ItemID:     itemID,
		Text:       reply,
	})
	s.emitLocked(Event{Kind: EventResponseDone, ResponseID: responseID, Transcript: reply})
}

func (s *mockSession) nextResponseIDLocked() string {
	s.responses++
	return fmt.Sprintf("resp-%d", s.responses)
}

func (s *mockSession) emitLocked(event Event) {
	select {
	case s.events <- event:
	default:
		s.logger.Warn("Mock event buffer full, dropping event", zap.Stringer("kind", event.Kind))
	}
}

func pseudoTranscript(now time.Time) string {
	return "You spoke to me at " + now.Format("03:04 PM") + "."
}
