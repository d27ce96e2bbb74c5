package api

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"boardlink/models"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10 // 54 seconds

	// SubscribeAll receives events from every board.
	SubscribeAll = "all"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for development
	},
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
}

// subscription is what a client sends to pick the boards it follows.
type subscription struct {
	Type    string `json:"type"`
	BoardID string `json:"board_id"`
}

type Client struct {
	hub  *WebSocketHub
	conn *websocket.Conn
	send chan []byte

	mu         sync.RWMutex
	subscribed map[string]bool
}

func (c *Client) subscribe(boardID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.subscribed[boardID] = true
}

func (c *Client) unsubscribe(boardID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.subscribed, boardID)
}

func (c *Client) follows(boardID string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.subscribed[boardID] || c.subscribed[SubscribeAll]
}

// WebSocketHub fans board events out to browser clients.
type WebSocketHub struct {
	clients    map[*Client]bool
	register   chan *Client
	unregister chan *Client
	mu         sync.RWMutex
}

func NewWebSocketHub() *WebSocketHub {
	return &WebSocketHub{
		clients:    make(map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
	}
}

func (h *WebSocketHub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			n := len(h.clients)
			h.mu.Unlock()
			log.Printf("Client connected (total: %d)", n)

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			n := len(h.clients)
			h.mu.Unlock()
			log.Printf("Client disconnected (total: %d)", n)
		}
	}
}

// ClientCount returns the number of connected clients.
func (h *WebSocketHub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// BroadcastToBoard sends message to clients subscribed to boardID or to all boards.
func (h *WebSocketHub) BroadcastToBoard(boardID string, message interface{}) {
	messageBytes, err := json.Marshal(message)
	if err != nil {
		log.Printf("Failed to marshal message: %v", err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for client := range h.clients {
		if !client.follows(boardID) {
			continue
		}
		select {
		case client.send <- messageBytes:
		default:
			// Channel full - drop oldest and try again (backpressure)
			select {
			case <-client.send:
			default:
			}
			select {
			case client.send <- messageBytes:
			default:
				log.Printf("⚠️ Client channel full, skipping event")
			}
		}
	}
}

// BroadcastToAll sends a message to all connected clients
func (h *WebSocketHub) BroadcastToAll(message interface{}) {
	messageBytes, err := json.Marshal(message)
	if err != nil {
		log.Printf("Failed to marshal message: %v", err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for client := range h.clients {
		select {
		case client.send <- messageBytes:
		default:
			log.Printf("⚠️ Client channel full, skipping")
		}
	}
}

// Publish implements service.EventSink.
func (h *WebSocketHub) Publish(ev models.BoardEvent) {
	h.BroadcastToBoard(ev.BoardID, ev)
}

func HandleWebSocket(hub *WebSocketHub, c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("WebSocket upgrade failed: %v", err)
		return
	}

	client := &Client{
		hub:        hub,
		conn:       conn,
		send:       make(chan []byte, 256),
		subscribed: make(map[string]bool),
	}

	// ?board=<id> or ?board=all subscribes right away.
	if board := c.Query("board"); board != "" {
		client.subscribe(board)
	}

	client.hub.register <- client

	go client.writePump()
	go client.readPump()
}

// readPump handles incoming subscription messages
func (c *Client) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(4096)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("WebSocket error: %v", err)
			}
			break
		}

		var msg subscription
		if err := json.Unmarshal(message, &msg); err != nil || msg.BoardID == "" {
			continue
		}
		switch msg.Type {
		case "subscribe":
			c.subscribe(msg.BoardID)
			log.Printf("Client subscribed to board %s", msg.BoardID)
		case "unsubscribe":
			c.unsubscribe(msg.BoardID)
			log.Printf("Client unsubscribed from board %s", msg.BoardID)
		}
	}
}

// writePump handles outgoing events and pings
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
