package voice

import (
	"sync"

	"go.uber.org/zap"

	"github.com/Raikerian/go-voicelive/internal/protocol"
)

// stateLabels maps assistant_state labels to client phases. The mapping is
// deliberately asymmetric: the assistant reporting idle means it is ready
// for the next turn, and a function call keeps the client in processing.
var stateLabels = map[string]Phase{
	protocol.StateReady:        PhaseReady,
	protocol.StateListening:    PhaseListening,
	protocol.StateProcessing:   PhaseProcessing,
	protocol.StateSpeaking:     PhaseSpeaking,
	protocol.StateIdle:         PhaseReady,
	protocol.StateFunctionCall: PhaseProcessing,
}

// Machine tracks one session's conversation phase.
type Machine struct {
	logger   *zap.Logger
	onChange func(from, to Phase)

	mu    sync.Mutex
	phase Phase
}

// NewMachine creates a Machine in the idle phase. onChange runs after every
// phase change, outside the machine's lock; it may be nil.
func NewMachine(logger *zap.Logger, onChange func(from, to Phase)) *Machine {
	return &Machine{
		logger:   logger,
		onChange: onChange,
		phase:    PhaseIdle,
	}
}

// Phase returns the current phase.
func (m *Machine) Phase() Phase {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.phase
}

// Begin moves idle to connecting when a session starts.
func (m *Machine) Begin() bool {
	return m.apply(PhaseConnecting, func(p Phase) bool { return p == PhaseIdle })
}

// Opened moves connecting to ready once the transport is up.
func (m *Machine) Opened() bool {
	return m.apply(PhaseReady, func(p Phase) bool { return p == PhaseConnecting })
}

// Reset returns to idle from any phase.
func (m *Machine) Reset() bool {
	return m.apply(PhaseIdle, func(p Phase) bool { return p != PhaseIdle })
}

// ApplyState applies an assistant_state label. Unrecognized labels, and any
// label arriving before the session is active, are ignored.
func (m *Machine) ApplyState(label string) bool {
	to, ok := stateLabels[label]
	if !ok {
		m.logger.Debug("Ignoring unrecognized state label", zap.String("state", label))
		return false
	}
	return m.apply(to, phaseActive)
}

// ApplyAck forces the listening phase in response to a chunk
// acknowledgement. Repeated acks while already listening are no-ops.
func (m *Machine) ApplyAck() bool {
	return m.apply(PhaseListening, phaseActive)
}

func (m *Machine) apply(to Phase, allowed func(Phase) bool) bool {
	m.mu.Lock()
	from := m.phase
	if !allowed(from) || from == to {
		m.mu.Unlock()
		return false
	}
	m.phase = to
	m.mu.Unlock()

	m.logger.Info("Session phase changed", zap.Stringer("from", from), zap.Stringer("to", to))
	if m.onChange != nil {
		m.onChange(from, to)
	}
	return true
}

func phaseActive(p Phase) bool {
	return p != PhaseIdle && p != PhaseConnecting
}
