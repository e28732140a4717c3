// internal/eventchan/eventchan.go

package eventchan

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Envelope is the wire frame carried on an event channel. Every signal is a
// JSON object naming the event and carrying an optional payload.
type Envelope struct {
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Options configures Dial.
type Options struct {
	// DialTimeout bounds the websocket handshake. Zero means the dialer
	// default.
	DialTimeout time.Duration
}

// Channel is a persistent bidirectional event connection to a collector.
// Events are delivered in order on a single websocket; inbound events are
// dispatched to handlers registered with On from a background read loop.
type Channel struct {
	conn *websocket.Conn

	// gorilla/websocket allows at most one concurrent writer.
	writeMu sync.Mutex

	mu       sync.Mutex
	handlers map[string]func(payload json.RawMessage)

	closeOnce sync.Once
	done      chan struct{}
}

// Dial opens an event channel to the collector at rawURL, scoped to the
// given namespace. http/https URLs are converted to their websocket
// equivalents; ws/wss URLs are used as-is.
func Dial(ctx context.Context, rawURL, namespace string, opts Options) (*Channel, error) {
	target, err := endpointURL(rawURL, namespace)
	if err != nil {
		return nil, err
	}

	dialer := websocket.Dialer{
		Proxy:            websocket.DefaultDialer.Proxy,
		HandshakeTimeout: opts.DialTimeout,
	}

	conn, _, err := dialer.DialContext(ctx, target, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to dial event channel %s: %w", target, err)
	}

	ch := &Channel{
		conn:     conn,
		handlers: make(map[string]func(payload json.RawMessage)),
		done:     make(chan struct{}),
	}
	go ch.readLoop()
	return ch, nil
}

// endpointURL converts rawURL into a websocket URL with the namespace as its
// path.
func endpointURL(rawURL, namespace string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("invalid collector URL '%s': %w", rawURL, err)
	}

	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	case "ws", "wss":
		// Already a websocket URL.
	default:
		return "", fmt.Errorf("unsupported collector URL scheme '%s'", u.Scheme)
	}
	if u.Host == "" {
		return "", fmt.Errorf("collector URL '%s' has no host", rawURL)
	}

	if namespace != "" {
		if !strings.HasPrefix(namespace, "/") {
			namespace = "/" + namespace
		}
		u.Path = strings.TrimRight(u.Path, "/") + namespace
	}
	return u.String(), nil
}

// On registers the handler for a named inbound event, replacing any previous
// handler for that event. Handlers run on the channel's read goroutine.
func (c *Channel) On(event string, handler func(payload json.RawMessage)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handlers[event] = handler
}

// Emit sends a named event with the given payload. A nil payload sends a
// bare signal.
func (c *Channel) Emit(event string, payload interface{}) error {
	env := Envelope{Event: event}
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("failed to marshal payload for event '%s': %w", event, err)
		}
		env.Payload = data
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	select {
	case <-c.done:
		return fmt.Errorf("event channel is closed")
	default:
	}

	if err := c.conn.WriteJSON(env); err != nil {
		return fmt.Errorf("failed to emit event '%s': %w", event, err)
	}
	return nil
}

// Close tears down the physical connection. Safe to call multiple times.
func (c *Channel) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.done)
		err = c.conn.Close()
	})
	return err
}

// Done is closed once the channel is no longer usable, either after Close or
// after the read loop observes a connection failure.
func (c *Channel) Done() <-chan struct{} {
	return c.done
}

// readLoop dispatches inbound envelopes until the connection fails or is
// closed. Events without a registered handler are dropped.
func (c *Channel) readLoop() {
	for {
		var env Envelope
		if err := c.conn.ReadJSON(&env); err != nil {
			_ = c.Close()
			return
		}

		c.mu.Lock()
		handler := c.handlers[env.Event]
		c.mu.Unlock()

		if handler != nil {
			handler(env.Payload)
		}
	}
}
