package voice

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/Raikerian/go-voicelive/internal/config"
	"github.com/Raikerian/go-voicelive/internal/protocol"
	"github.com/Raikerian/go-voicelive/internal/transport"
)

// Service drives one conversation session end to end. Capture blocks flow
// out as audio_chunk envelopes; inbound envelopes update the state machine
// and feed the playback queue.
type Service struct {
	logger  *zap.Logger
	cfg     *config.Config
	dialer  *transport.Dialer
	source  Source
	queue   *Queue
	machine *Machine
	decoder *Decoder
	chunker *Chunker

	debugAudio bool

	mu       sync.Mutex
	stopping atomic.Bool
	session  *transport.Session
	running  bool
	loops    sync.WaitGroup
}

// NewService wires the pipeline around the given capture source and
// renderer.
func NewService(logger *zap.Logger, cfg *config.Config, dialer *transport.Dialer, source Source, renderer Renderer) *Service {
	s := &Service{
		logger:     logger,
		cfg:        cfg,
		dialer:     dialer,
		source:     source,
		decoder:    NewDecoder(cfg.Client.SampleRate),
		chunker:    NewChunker(cfg.Client.SampleRate, cfg.Client.ChunkDuration()),
		debugAudio: debugAudioEnabled(),
	}
	s.queue = NewQueue(logger, renderer)
	s.machine = NewMachine(logger, s.onPhaseChange)
	return s
}

// Phase returns the session's current conversation phase.
func (s *Service) Phase() Phase {
	return s.machine.Phase()
}

// Start acquires the capture device, connects to the bridge and launches
// the session loops. Device and connect failures are fatal; anything
// acquired before the failure is released again.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return nil
	}

	s.machine.Begin()

	if err := s.source.Start(ctx); err != nil {
		s.machine.Reset()
		return err
	}

	session, err := s.dialer.Dial(ctx, s.cfg.Client.ServerURL)
	if err != nil {
		s.source.Stop()
		s.machine.Reset()
		return fmt.Errorf("%w: %v", ErrTransportConnect, err)
	}

	s.machine.Opened()
	s.session = session
	s.running = true
	s.stopping.Store(false)

	s.loops.Add(2)
	go s.captureLoop(session)
	go s.eventLoop(session)

	s.logger.Info("Voice session started", zap.String("server", s.cfg.Client.ServerURL))
	return nil
}

// Stop tears the session down in a fixed order: halt capture, release the
// device, close the transport, flush playback, reset the chunker, return to
// idle. Every step runs even if an earlier one failed, and calling Stop
// again is a no-op.
func (s *Service) Stop() {
	if !s.stopping.CompareAndSwap(false, true) {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return
	}

	s.logger.Info("Stopping voice session")

	s.source.Stop()

	if s.session != nil {
		_ = s.session.Send(protocol.NewStop())
		_ = s.session.Close()
	}

	s.loops.Wait()

	s.queue.Flush()
	s.chunker.Reset()
	s.session = nil
	s.running = false
	s.machine.Reset()

	s.logger.Info("Voice session stopped")
}

// onPhaseChange runs after every phase transition. Entering listening
// discards any assistant speech still playing.
func (s *Service) onPhaseChange(from, to Phase) {
	if to == PhaseListening {
		s.queue.Flush()
	}
}

func (s *Service) captureLoop(session *transport.Session) {
	defer s.loops.Done()

	for block := range s.source.Blocks() {
		for _, chunk := range s.chunker.Push(block) {
			if err := session.Send(chunk); err != nil {
				if errors.Is(err, transport.ErrSessionClosed) {
					continue
				}
				s.logger.Warn("Chunk send failed", zap.Uint64("sequence", chunk.Sequence), zap.Error(err))
			}
		}
	}
}

func (s *Service) eventLoop(session *transport.Session) {
	defer s.loops.Done()

	for event := range session.Events() {
		s.dispatch(event)
	}

	// The transport ended. Unless Stop is already driving the teardown,
	// run it from a fresh goroutine so this loop can exit.
	if !s.stopping.Load() {
		if err := session.Err(); err != nil {
			s.logger.Warn("Transport ended unexpectedly", zap.Error(err))
		} else {
			s.logger.Info("Transport closed by server")
		}
		go s.Stop()
	}
}

func (s *Service) dispatch(event protocol.ServerEvent) {
	switch e := event.(type) {
	case protocol.AssistantAudio:
		frame, err := s.decoder.Decode(e)
		if err != nil {
			s.logger.Warn("Dropping undecodable audio envelope",
				zap.String("format", e.Format), zap.Error(err))
			return
		}
		if s.debugAudio {
			if name, err := saveDebugWAV(frame.Samples, frame.Rate, "assistant"); err != nil {
				s.logger.Warn("Debug WAV dump failed", zap.Error(err))
			} else {
				s.logger.Debug("Debug WAV saved", zap.String("file", name))
			}
		}
		s.queue.Enqueue(frame)
	case protocol.AssistantState:
		s.machine.ApplyState(e.State)
	case protocol.Ack:
		s.machine.ApplyAck()
	case protocol.AssistantMessage:
		if e.Transcript != nil {
			s.logger.Info("Assistant reply",
				zap.String("text", e.Text), zap.String("transcript", *e.Transcript))
		} else {
			s.logger.Info("Assistant reply", zap.String("text", e.Text))
		}
	case protocol.AssistantTranscript:
		s.logger.Info("Assistant transcript", zap.String("text", e.Text))
	case protocol.UserTranscript:
		s.logger.Info("User transcript",
			zap.String("text", e.Text), zap.String("itemID", e.ItemID))
	case protocol.SystemMessage:
		s.logger.Info(e.Text)
	case protocol.ErrorMessage:
		s.logger.Warn("Server reported an error", zap.String("message", e.Reason()))
	case protocol.Pong:
		s.logger.Debug("Pong received")
	default:
		s.logger.Debug("Ignoring envelope", zap.String("kind", event.Kind()))
	}
}
