package service

import (
	"fmt"
	"log"
	"net"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const (
	DefaultReconnectInterval = 5 * time.Second
	DefaultLivenessWindow    = 10 * time.Second
	DefaultEventsPath        = "/api/events"
	DefaultBoardPort         = 3180
)

// TransportHandlers are the hooks a Connection registers on its transport.
// They are invoked from Transport.Loop, in arrival order.
type TransportHandlers struct {
	OnConnected    func()
	OnDisconnected func()
	OnMessage      func(payload []byte)
}

// Transport is the streaming socket behind a Connection. Implementations
// reconnect on their own after an unexpected drop, waiting the configured
// interval between attempts, until Stop is called.
type Transport interface {
	// Begin starts connecting to url. It does not block.
	Begin(url string)
	// SetHandlers replaces any previously registered handlers.
	SetHandlers(h TransportHandlers)
	SetReconnectInterval(d time.Duration)
	// Loop delivers pending events to the handlers and returns without blocking.
	Loop()
	// Disconnect drops the current connection. The reconnect loop keeps running.
	Disconnect()
	// Stop tears the transport down for good.
	Stop()
}

// TransportFactory builds a fresh transport for a new board.
type TransportFactory func() Transport

type ConnectionOptions struct {
	ReconnectInterval time.Duration
	LivenessWindow    time.Duration
	EventsPath        string
	DefaultPort       int
}

func DefaultConnectionOptions() ConnectionOptions {
	return ConnectionOptions{
		ReconnectInterval: DefaultReconnectInterval,
		LivenessWindow:    DefaultLivenessWindow,
		EventsPath:        DefaultEventsPath,
		DefaultPort:       DefaultBoardPort,
	}
}

func (o ConnectionOptions) withDefaults() ConnectionOptions {
	d := DefaultConnectionOptions()
	if o.ReconnectInterval <= 0 {
		o.ReconnectInterval = d.ReconnectInterval
	}
	if o.LivenessWindow <= 0 {
		o.LivenessWindow = d.LivenessWindow
	}
	if o.EventsPath == "" {
		o.EventsPath = d.EventsPath
	}
	if o.DefaultPort <= 0 {
		o.DefaultPort = d.DefaultPort
	}
	return o
}

// Connection owns the event stream of one board. It is Closed until the
// transport reports a connect, and is closed again when nothing at all has
// arrived within the liveness window.
type Connection struct {
	name      string
	endpoint  string
	transport Transport
	clock     Clock
	opts      ConnectionOptions

	open      bool
	lastAlive time.Time
	// generation invalidates handlers registered by an earlier Open.
	generation uint64

	onChange  func()
	onMessage func(payload []byte)
}

func NewConnection(name, endpoint string, transport Transport, clock Clock, opts ConnectionOptions) *Connection {
	if clock == nil {
		clock = RealClock()
	}
	return &Connection{
		name:      name,
		endpoint:  endpoint,
		transport: transport,
		clock:     clock,
		opts:      opts.withDefaults(),
		onChange:  func() {},
		onMessage: func([]byte) {},
	}
}

func (c *Connection) IsOpen() bool              { return c.open }
func (c *Connection) LastAliveAt() time.Time    { return c.lastAlive }
func (c *Connection) Endpoint() string          { return c.endpoint }
func (c *Connection) SetEndpoint(e string)      { c.endpoint = e }
func (c *Connection) SetName(name string)       { c.name = name }
func (c *Connection) OnChange(fn func())        { c.onChange = fn }
func (c *Connection) OnMessage(fn func([]byte)) { c.onMessage = fn }

// IsAlive reports whether anything arrived within the liveness window.
func (c *Connection) IsAlive() bool {
	return c.clock.Now().Sub(c.lastAlive) < c.opts.LivenessWindow
}

func (c *Connection) resetAlive() {
	c.lastAlive = c.clock.Now()
}

// Open starts connecting. It returns true without doing anything when the
// connection is already open and force is false, and false when there is no
// endpoint to connect to. With force the current connection is closed first.
// The connection becomes open only once the transport reports a connect.
func (c *Connection) Open(force bool) bool {
	if !force && c.open {
		return true
	}
	if c.endpoint == "" {
		return false
	}

	target, err := EventsURL(c.endpoint, c.opts)
	if err != nil {
		log.Printf("❌ [%s] Invalid endpoint %q: %v", c.name, c.endpoint, err)
		return false
	}

	if force {
		c.Close()
	}

	c.generation++
	gen := c.generation
	c.transport.SetHandlers(TransportHandlers{
		OnConnected: func() {
			if gen != c.generation {
				return
			}
			log.Printf("🔗 [%s] Connection opened", c.name)
			c.open = true
			c.resetAlive()
			c.onChange()
		},
		OnDisconnected: func() {
			if gen != c.generation {
				return
			}
			log.Printf("🔌 [%s] Connection closed", c.name)
			c.open = false
			c.resetAlive()
			c.onChange()
		},
		OnMessage: func(payload []byte) {
			if gen != c.generation {
				return
			}
			c.resetAlive()
			c.onMessage(payload)
		},
	})
	c.transport.SetReconnectInterval(c.opts.ReconnectInterval)

	log.Printf("🚀 [%s] Opening connection to %s", c.name, target)
	c.transport.Begin(target)
	return true
}

// Close disconnects and marks the connection closed whatever its state.
func (c *Connection) Close() {
	c.transport.Disconnect()
	c.open = false
}

// Release stops the transport for good. The connection cannot be used after.
func (c *Connection) Release() {
	c.generation++
	c.transport.Stop()
	c.open = false
}

// Tick runs one pass of transport processing and then checks liveness.
// It returns true when the connection was closed because it went silent.
func (c *Connection) Tick() bool {
	c.transport.Loop()

	if c.open && !c.IsAlive() {
		log.Printf("⏱️ [%s] Connection timeout!", c.name)
		c.Close()
		return true
	}
	return false
}

// EventsURL turns a board endpoint into the websocket URL of its event
// stream. A bare "host" or "host:port" gets the ws scheme, the default port
// and the events path; a full URL only gets the path when it has none.
func EventsURL(endpoint string, opts ConnectionOptions) (string, error) {
	opts = opts.withDefaults()
	endpoint = strings.TrimSpace(endpoint)
	if endpoint == "" {
		return "", ErrEmptyEndpoint
	}

	if strings.Contains(endpoint, "://") {
		u, err := url.Parse(endpoint)
		if err != nil {
			return "", fmt.Errorf("parse endpoint: %w", err)
		}
		if u.Host == "" {
			return "", fmt.Errorf("endpoint %q has no host", endpoint)
		}
		if u.Path == "" || u.Path == "/" {
			u.Path = opts.EventsPath
		}
		return u.String(), nil
	}

	hostport := endpoint
	if _, _, err := net.SplitHostPort(endpoint); err != nil {
		hostport = net.JoinHostPort(endpoint, strconv.Itoa(opts.DefaultPort))
	}
	return "ws://" + hostport + opts.EventsPath, nil
}
