// Package transport implements service.Transport over gorilla/websocket.
package transport

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"boardlink/service"
)

const (
	handshakeTimeout = 10 * time.Second
	writeWait        = 2 * time.Second
	maxMessageSize   = 64 << 10
	// maxPendingMessages bounds the queue between two Loop calls. Connect and
	// disconnect events are always queued.
	maxPendingMessages = 1024
)

type eventKind int

const (
	eventConnected eventKind = iota
	eventDisconnected
	eventMessage
)

type event struct {
	kind    eventKind
	payload []byte
}

// session is one Begin..Stop span. Events and connections from a session
// that is no longer current are discarded.
type session struct {
	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

// WebSocketClient reads a board's event stream in a background goroutine
// and queues what it sees until the owner calls Loop. After a drop or a
// failed dial it waits the reconnect interval and dials again.
//
// None of the methods wait on the network.
type WebSocketClient struct {
	dialer *websocket.Dialer

	mu                sync.Mutex
	handlers          service.TransportHandlers
	reconnectInterval time.Duration
	pending           []event
	messages          int
	conn              *websocket.Conn
	sess              *session
}

func NewWebSocketClient() *WebSocketClient {
	return &WebSocketClient{
		dialer: &websocket.Dialer{
			HandshakeTimeout: handshakeTimeout,
			ReadBufferSize:   4096,
			WriteBufferSize:  1024,
		},
		reconnectInterval: service.DefaultReconnectInterval,
	}
}

// Factory returns a TransportFactory producing WebSocketClients.
func Factory() service.TransportFactory {
	return func() service.Transport { return NewWebSocketClient() }
}

func (c *WebSocketClient) SetHandlers(h service.TransportHandlers) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handlers = h
}

func (c *WebSocketClient) SetReconnectInterval(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.reconnectInterval = d
}

// Begin stops any previous run and starts dialing url.
func (c *WebSocketClient) Begin(url string) {
	c.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	s := &session{ctx: ctx, cancel: cancel, done: make(chan struct{})}

	c.mu.Lock()
	c.pending = nil
	c.messages = 0
	c.sess = s
	c.mu.Unlock()

	go c.run(s, url)
}

// Loop hands every queued event to the handlers, oldest first.
func (c *WebSocketClient) Loop() {
	c.mu.Lock()
	events := c.pending
	c.pending = nil
	c.messages = 0
	h := c.handlers
	c.mu.Unlock()

	for _, ev := range events {
		switch ev.kind {
		case eventConnected:
			if h.OnConnected != nil {
				h.OnConnected()
			}
		case eventDisconnected:
			if h.OnDisconnected != nil {
				h.OnDisconnected()
			}
		case eventMessage:
			if h.OnMessage != nil {
				h.OnMessage(ev.payload)
			}
		}
	}
}

// Disconnect closes the live socket, if any. The run loop reports the
// disconnect and dials again after the reconnect interval.
func (c *WebSocketClient) Disconnect() {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()

	if conn != nil {
		go closeConn(conn)
	}
}

// Stop ends the current run. The socket is closed right away; the run
// goroutine exits on its own and nothing it reports afterwards is queued.
func (c *WebSocketClient) Stop() {
	c.mu.Lock()
	s, conn := c.sess, c.conn
	c.sess, c.conn = nil, nil
	c.pending = nil
	c.messages = 0
	c.mu.Unlock()

	if s == nil {
		return
	}
	s.cancel()
	if conn != nil {
		conn.Close()
	}
}

// closeConn sends a close frame and closes the socket. A peer that stops
// reading costs at most writeWait, spent off the caller's goroutine.
func closeConn(conn *websocket.Conn) {
	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(writeWait))
	conn.Close()
}

func (c *WebSocketClient) run(s *session, url string) {
	defer close(s.done)

	for {
		conn, _, err := c.dialer.DialContext(s.ctx, url, nil)
		if err != nil {
			if s.ctx.Err() != nil {
				return
			}
			log.Printf("⚠️ [%s] Dial failed: %v", url, err)
		} else {
			// The handshake is not aborted by cancel, so Stop may have
			// run while it was in flight.
			if !c.setConn(s, conn) {
				conn.Close()
				return
			}
			c.push(s, event{kind: eventConnected})
			c.readPump(s, url, conn)
			c.clearConn(s, conn)
			conn.Close()
			c.push(s, event{kind: eventDisconnected})
		}

		select {
		case <-s.ctx.Done():
			return
		case <-time.After(c.interval()):
		}
	}
}

func (c *WebSocketClient) readPump(s *session, url string, conn *websocket.Conn) {
	stop := context.AfterFunc(s.ctx, func() { conn.Close() })
	defer stop()

	conn.SetReadLimit(maxMessageSize)
	for {
		mt, data, err := conn.ReadMessage()
		if err != nil {
			if s.ctx.Err() == nil && websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Printf("⚠️ [%s] WebSocket error: %v", url, err)
			}
			return
		}
		if mt != websocket.TextMessage {
			continue
		}
		c.push(s, event{kind: eventMessage, payload: data})
	}
}

func (c *WebSocketClient) push(s *session, ev event) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.sess != s {
		return
	}
	if ev.kind == eventMessage {
		if c.messages >= maxPendingMessages {
			log.Printf("⚠️ Transport queue full, dropping message")
			return
		}
		c.messages++
	}
	c.pending = append(c.pending, ev)
}

// setConn records conn as the live socket. It reports false when s has
// been stopped in the meantime.
func (c *WebSocketClient) setConn(s *session, conn *websocket.Conn) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sess != s || s.ctx.Err() != nil {
		return false
	}
	c.conn = conn
	return true
}

func (c *WebSocketClient) clearConn(s *session, conn *websocket.Conn) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sess == s && c.conn == conn {
		c.conn = nil
	}
}

func (c *WebSocketClient) interval() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.reconnectInterval
}
