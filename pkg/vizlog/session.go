// pkg/vizlog/session.go

package vizlog

import (
	"encoding/json"
	"sync"
	"time"
)

// Wire protocol: signal names and the logical namespace they are scoped to.
// A remote collector depends on these exact values.
const (
	// EventRecord carries one serialized log record to the collector.
	EventRecord = "ProgramToServer"
	// EventDisconnectRequest asks the collector to acknowledge before the
	// channel closes.
	EventDisconnectRequest = "ProgramRequestDisconnect"
	// EventDisconnectApprove is the collector's acknowledgment; on receipt
	// the client performs the physical close.
	EventDisconnectApprove = "ServerApproveDisconnect"

	// DefaultNamespace scopes all of the above signals.
	DefaultNamespace = "/program"
	// DefaultURL is the collector address used when none is given.
	DefaultURL = "http://localhost:4000"
)

// Channel is the external event transport a session sends records over.
// Implementations must deliver emitted events in order on a single reliable
// connection; inbound handlers run on the transport's receive goroutine.
type Channel interface {
	Emit(event string, payload interface{}) error
	On(event string, handler func(payload json.RawMessage))
	Close() error
}

// SessionState tracks where a session is in its lifecycle.
type SessionState int

const (
	StateDisconnected SessionState = iota
	StateConnected
	StateDisconnectRequested
)

// String returns a readable state name.
func (s SessionState) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnected:
		return "connected"
	case StateDisconnectRequested:
		return "disconnect-requested"
	default:
		return "unknown"
	}
}

// Session owns the single outbound channel to the collector. All loggers of
// a client share one session. Lifecycle:
//
//	Connected -> Disconnect() -> DisconnectRequested -> (collector ack) -> Disconnected
//
// Closing the channel immediately on Disconnect would risk discarding
// records the collector has not consumed yet, which wedges the collector's
// own shutdown accounting. Instead the session emits a disconnect request
// and only closes the channel once the collector approves.
type Session struct {
	mu      sync.Mutex
	channel Channel
	state   SessionState

	// closeTimeout bounds how long the session waits for the collector's
	// approval after a disconnect request. Zero waits forever.
	closeTimeout time.Duration

	diag *diagnostics
}

func newSession(channel Channel, diag *diagnostics, closeTimeout time.Duration) *Session {
	s := &Session{
		channel:      channel,
		state:        StateConnected,
		closeTimeout: closeTimeout,
		diag:         diag,
	}

	// The collector's approval arrives on the transport's receive goroutine,
	// after every previously queued outbound record has been accepted.
	channel.On(EventDisconnectApprove, func(json.RawMessage) {
		s.closeChannel()
	})

	return s
}

// State reports the session's current lifecycle state.
func (s *Session) State() SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Send emits one record on the channel. Outside the Connected state the
// record is silently dropped: logging must never fail or block the host
// program.
func (s *Session) Send(record *Record) {
	s.mu.Lock()
	channel := s.channel
	connected := s.state == StateConnected
	s.mu.Unlock()

	if !connected || channel == nil {
		s.diag.drop(DropNoSession, nil)
		return
	}

	if err := channel.Emit(EventRecord, record); err != nil {
		s.diag.drop(DropTransport, err)
	}
}

// Disconnect initiates the graceful teardown handshake. Only the first call
// emits the disconnect request; later calls are no-ops. The physical close
// happens asynchronously when the collector approves (or, if a close timeout
// is configured, when it expires).
func (s *Session) Disconnect() {
	s.mu.Lock()
	if s.state != StateConnected {
		s.mu.Unlock()
		return
	}
	s.state = StateDisconnectRequested
	channel := s.channel
	timeout := s.closeTimeout
	s.mu.Unlock()

	if err := channel.Emit(EventDisconnectRequest, nil); err != nil {
		// The request never left, so no approval will ever arrive.
		s.diag.drop(DropTransport, err)
		s.closeChannel()
		return
	}

	if timeout > 0 {
		time.AfterFunc(timeout, s.closeChannel)
	}
}

// teardown discards the session immediately, without waiting for the
// handshake. Used when a new connect supersedes this session.
func (s *Session) teardown() {
	s.closeChannel()
}

func (s *Session) closeChannel() {
	s.mu.Lock()
	channel := s.channel
	s.channel = nil
	s.state = StateDisconnected
	s.mu.Unlock()

	if channel != nil {
		_ = channel.Close()
	}
}
