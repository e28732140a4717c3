// pkg/vizlog/client.go

package vizlog

import (
	"context"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/vizlog/vizlog/internal/eventchan"
	"github.com/vizlog/vizlog/internal/security"
)

// How long a freshly generated connect token stays valid. It is only checked
// once, during the channel handshake.
const connectTokenTTL = time.Minute

var optionsValidator = validator.New()

// Options configures a connection to the collector.
type Options struct {
	// Namespace scopes the channel's signals. Default "/program".
	Namespace string `validate:"omitempty,startswith=/"`

	// DialTimeout bounds the channel handshake. Zero uses the transport
	// default.
	DialTimeout time.Duration `validate:"min=0"`

	// DisconnectTimeout bounds how long a disconnect waits for the
	// collector's approval before force-closing the channel. Zero waits
	// forever, matching the original protocol.
	DisconnectTimeout time.Duration `validate:"min=0"`

	// TokenSecret, when set, authenticates the connection: a short-lived
	// HMAC token is generated from it and presented to the collector, which
	// must be configured with the same secret.
	TokenSecret string
}

func (o *Options) normalize() {
	if o.Namespace == "" {
		o.Namespace = DefaultNamespace
	}
}

// Client owns one shared session and the registry of named loggers that
// multiplex over it. The zero value is not usable; create clients with
// NewClient or use the package-level default.
type Client struct {
	mu      sync.Mutex
	session *Session

	registry *Registry
	diag     diagnostics

	// dial is swapped out in tests.
	dial func(ctx context.Context, rawURL, namespace string, opts Options) (Channel, error)
}

// NewClient creates a client with no active session. Loggers obtained from
// it drop records until Connect succeeds.
func NewClient() *Client {
	c := &Client{dial: dialEventChannel}
	c.registry = newRegistry(c)
	return c
}

func dialEventChannel(ctx context.Context, rawURL, namespace string, opts Options) (Channel, error) {
	return eventchan.Dial(ctx, rawURL, namespace, eventchan.Options{DialTimeout: opts.DialTimeout})
}

// Connection is the scoped handle returned by Connect. Closing it initiates
// the graceful disconnect of the session it belongs to.
type Connection struct {
	client  *Client
	session *Session
}

// Close requests a graceful disconnect. It never blocks on the handshake.
func (c *Connection) Close() error {
	c.client.disconnectSession(c.session)
	return nil
}

// Session exposes the underlying session, mainly for state inspection.
func (c *Connection) Session() *Session {
	return c.session
}

// Connect establishes a session to the collector at rawURL with default
// options. An empty URL connects to DefaultURL.
func (c *Client) Connect(rawURL string) (*Connection, error) {
	return c.ConnectContext(context.Background(), rawURL, Options{})
}

// ConnectContext establishes a session to the collector, tearing down any
// previously active session first (last writer wins; the prior channel is
// discarded without waiting for its handshake). All loggers of this client
// share the new session.
func (c *Client) ConnectContext(ctx context.Context, rawURL string, opts Options) (*Connection, error) {
	if rawURL == "" {
		rawURL = DefaultURL
	}

	opts.normalize()
	if err := optionsValidator.Struct(&opts); err != nil {
		return nil, fmt.Errorf("invalid connect options: %w", err)
	}

	if opts.TokenSecret != "" {
		token, err := security.GenerateToken(opts.TokenSecret, opts.Namespace, connectTokenTTL)
		if err != nil {
			return nil, fmt.Errorf("failed to generate connect token: %w", err)
		}
		rawURL, err = withTokenParam(rawURL, token)
		if err != nil {
			return nil, err
		}
	}

	// Tear down any prior session before dialing the new channel.
	c.mu.Lock()
	prior := c.session
	c.session = nil
	c.mu.Unlock()
	if prior != nil {
		prior.teardown()
	}

	channel, err := c.dial(ctx, rawURL, opts.Namespace, opts)
	if err != nil {
		return nil, err
	}

	session := newSession(channel, &c.diag, opts.DisconnectTimeout)

	c.mu.Lock()
	c.session = session
	c.mu.Unlock()

	return &Connection{client: c, session: session}, nil
}

func withTokenParam(rawURL, token string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("invalid collector URL '%s': %w", rawURL, err)
	}
	q := u.Query()
	q.Set("token", token)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// Disconnect initiates the graceful teardown of the active session, if any.
// The session reference is cleared immediately so no further records are
// sent; the channel physically closes once the collector approves. Calling
// Disconnect with no active session is a no-op.
func (c *Client) Disconnect() {
	c.mu.Lock()
	session := c.session
	c.session = nil
	c.mu.Unlock()

	if session != nil {
		session.Disconnect()
	}
}

// disconnectSession disconnects one specific session, clearing the client
// reference only if it is still the active one.
func (c *Client) disconnectSession(session *Session) {
	if session == nil {
		return
	}
	c.mu.Lock()
	if c.session == session {
		c.session = nil
	}
	c.mu.Unlock()
	session.Disconnect()
}

// GetLogger returns the client's logger for the given name, creating it on
// first use.
func (c *Client) GetLogger(name string) *Logger {
	return c.registry.GetLogger(name)
}

// Registry returns the client's logger registry.
func (c *Client) Registry() *Registry {
	return c.registry
}

// Dropped reports how many records were silently discarded since the client
// was created.
func (c *Client) Dropped() uint64 {
	return c.diag.count()
}

// OnDrop installs a hook invoked whenever a record is silently discarded.
// The hook must not log through this client. See RateLimitedDropWriter for a
// ready-made hook.
func (c *Client) OnDrop(hook func(reason DropReason, err error)) {
	c.diag.setHook(hook)
}

// send forwards a built record to the active session, dropping it silently
// when none is active.
func (c *Client) send(record *Record) {
	c.mu.Lock()
	session := c.session
	c.mu.Unlock()

	if session == nil {
		c.diag.drop(DropNoSession, nil)
		return
	}
	session.Send(record)
}

// The package-level default client backs the plain Connect / Disconnect /
// GetLogger functions, mirroring the per-process singleton most programs
// want.
var defaultClient = NewClient()

// Default returns the process-wide default client.
func Default() *Client {
	return defaultClient
}

// Connect establishes the default client's session. An empty URL connects
// to DefaultURL.
func Connect(rawURL string) (*Connection, error) {
	return defaultClient.Connect(rawURL)
}

// ConnectContext establishes the default client's session with options.
func ConnectContext(ctx context.Context, rawURL string, opts Options) (*Connection, error) {
	return defaultClient.ConnectContext(ctx, rawURL, opts)
}

// Disconnect gracefully tears down the default client's session.
func Disconnect() {
	defaultClient.Disconnect()
}

// GetLogger returns the default client's logger for the given name.
func GetLogger(name string) *Logger {
	return defaultClient.GetLogger(name)
}
