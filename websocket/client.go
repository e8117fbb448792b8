package websocket

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
	sendBuffer     = 64
)

type connState int

const (
	stateConnecting connState = iota
	stateReady
	stateDisconnected
)

func (s connState) String() string {
	switch s {
	case stateConnecting:
		return "connecting"
	case stateReady:
		return "ready"
	}
	return "disconnected"
}

// Client is one websocket connection of a subject.
type Client struct {
	ID        string
	SubjectID string

	hub  *Hub
	conn *websocket.Conn
	send chan []byte

	ctx    context.Context
	cancel context.CancelFunc

	registered chan struct{}

	mu     sync.Mutex
	state  connState
	closed bool
}

func newClient(hub *Hub, conn *websocket.Conn, id string) *Client {
	ctx, cancel := context.WithCancel(context.Background())
	return &Client{
		ID:     id,
		hub:    hub,
		conn:   conn,
		send:   make(chan []byte, sendBuffer),
		ctx:    ctx,
		cancel: cancel,
		state:  stateConnecting,

		registered: make(chan struct{}),
	}
}

func (c *Client) status() connState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Client) setState(s connState) {
	c.mu.Lock()
	c.state = s
	c.mu.Unlock()
}

// enqueue hands msg to the write pump. It reports false when the connection is
// gone or its buffer is full; the caller then drops the connection.
func (c *Client) enqueue(msg []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.send <- msg:
		return true
	default:
		return false
	}
}

func (c *Client) emit(event string, data interface{}) bool {
	msg, err := encodeEvent(event, data)
	if err != nil {
		log.Printf("Failed to encode %s event: %v", event, err)
		return false
	}
	return c.enqueue(msg)
}

// shutdown stops the write pump after it flushes what is queued.
func (c *Client) shutdown() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	c.state = stateDisconnected
	close(c.send)
	c.cancel()
}

func (c *Client) fail(message string) {
	c.emit(EventError, ErrorPayload{Message: message})
	c.shutdown()
}

// readPump owns all reads. It drives the handshake and serves fetch-pending.
// A non-empty token authenticates before the first read.
func (c *Client) readPump(token string) {
	defer func() {
		if c.status() == stateReady {
			c.hub.unregisterClient(c)
		}
		c.shutdown()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(c.hub.handshakeTimeout))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	if token != "" && !c.hub.authenticate(c, token) {
		return
	}

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("websocket %s read error: %v", c.ID, err)
			}
			if c.status() == stateConnecting {
				c.fail("authentication timeout")
			}
			return
		}

		var env Envelope
		if err := json.Unmarshal(raw, &env); err != nil {
			c.emit(EventError, ErrorPayload{Message: "malformed event"})
			continue
		}

		switch c.status() {
		case stateConnecting:
			if env.Event != EventAuth {
				c.fail("authenticate first")
				return
			}
			var auth AuthPayload
			_ = json.Unmarshal(env.Data, &auth)
			if !c.hub.authenticate(c, auth.Token) {
				return
			}
		case stateReady:
			switch env.Event {
			case EventFetchPending:
				var req FetchPendingPayload
				_ = json.Unmarshal(env.Data, &req)
				c.hub.sendPending(c, req.Cursor)
			case EventAuth:
				// already authenticated
			default:
				c.emit(EventError, ErrorPayload{Message: "unknown event " + env.Event})
			}
		default:
			return
		}
	}
}

// writePump owns all writes and keeps the connection alive with pings.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
		c.cancel()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
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
