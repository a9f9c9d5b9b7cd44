// Package transport maintains the duplex websocket session between the voice
// client and the bridge server.
package transport

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/Raikerian/go-voicelive/internal/config"
	"github.com/Raikerian/go-voicelive/internal/protocol"
)

// ErrSessionClosed is returned by Send once the session has been closed.
var ErrSessionClosed = errors.New("transport session closed")

const eventBufferSize = 256

// Dialer opens envelope sessions against a bridge server.
type Dialer struct {
	logger           *zap.Logger
	handshakeTimeout time.Duration
}

// NewDialer creates a Dialer using the configured handshake timeout.
func NewDialer(logger *zap.Logger, cfg *config.Config) *Dialer {
	return &Dialer{
		logger:           logger,
		handshakeTimeout: cfg.Client.HandshakeTimeout,
	}
}

// Dial connects to the bridge and starts the session's read loop.
func (d *Dialer) Dial(ctx context.Context, url string) (*Session, error) {
	dialCtx := ctx
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		dialCtx, cancel = context.WithTimeout(ctx, d.handshakeTimeout)
		defer cancel()
	}

	conn, resp, err := websocket.DefaultDialer.DialContext(dialCtx, url, nil)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("dial %s: %w (status %s)", url, err, resp.Status)
		}
		return nil, fmt.Errorf("dial %s: %w", url, err)
	}

	s := &Session{
		logger: d.logger,
		conn:   conn,
		events: make(chan protocol.ServerEvent, eventBufferSize),
		done:   make(chan struct{}),
	}
	go s.readLoop()

	d.logger.Info("Transport session opened", zap.String("url", url))
	return s, nil
}

// Session is one duplex envelope stream. Sends are safe for concurrent use;
// inbound envelopes are consumed from Events until the session ends.
type Session struct {
	logger *zap.Logger
	conn   *websocket.Conn

	writeMu   sync.Mutex
	closed    atomic.Bool
	closeOnce sync.Once

	events chan protocol.ServerEvent
	done   chan struct{}

	errMu sync.Mutex
	err   error
}

// Events returns the inbound envelope stream. The channel is closed when the
// session ends.
func (s *Session) Events() <-chan protocol.ServerEvent { return s.events }

// Done is closed once the read loop has finished, for any reason.
func (s *Session) Done() <-chan struct{} { return s.done }

// Err reports the failure that ended the session. It is nil after a clean
// closing handshake.
func (s *Session) Err() error {
	s.errMu.Lock()
	defer s.errMu.Unlock()
	return s.err
}

// Send writes one envelope as a JSON text frame.
func (s *Session) Send(msg protocol.ClientMessage) error {
	if s.closed.Load() {
		return ErrSessionClosed
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if s.closed.Load() {
		return ErrSessionClosed
	}
	return s.conn.WriteJSON(msg)
}

// Close performs the websocket closing handshake and waits for the read loop
// to finish. It is safe to call more than once.
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		s.closed.Store(true)

		s.writeMu.Lock()
		deadline := time.Now().Add(2 * time.Second)
		_ = s.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), deadline)
		s.writeMu.Unlock()

		_ = s.conn.Close()
		<-s.done
		s.logger.Info("Transport session closed")
	})
	return nil
}

func (s *Session) setErr(err error) {
	s.errMu.Lock()
	defer s.errMu.Unlock()
	if s.err == nil {
		s.err = err
	}
}

func (s *Session) readLoop() {
	defer close(s.done)
	defer close(s.events)

	for {
		msgType, data, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) || s.closed.Load() {
				return
			}
			s.setErr(err)
			s.logger.Warn("Transport read failed", zap.Error(err))
			return
		}
		if msgType != websocket.TextMessage {
			s.logger.Debug("Ignoring non-text frame", zap.Int("messageType", msgType))
			continue
		}

		event, err := protocol.ParseServerEvent(data)
		if err != nil {
			if errors.Is(err, protocol.ErrUnknownType) {
				s.logger.Debug("Dropping envelope of unknown type", zap.Error(err))
			} else {
				s.logger.Warn("Dropping malformed envelope", zap.Error(err), zap.Int("bytes", len(data)))
			}
			continue
		}

		select {
		case s.events <- event:
		default:
			s.logger.Warn("Event buffer full, dropping envelope", zap.String("kind", event.Kind()))
		}
	}
}
