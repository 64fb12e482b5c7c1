package websocket

import (
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"

	fws "github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 8 << 20
	sendBuffer     = 64
)

// Close codes sent to producers.
const (
	CloseGoingAway     = fws.CloseGoingAway
	CloseInternalError = fws.CloseInternalServerErr
	CloseTryAgainLater = fws.CloseTryAgainLater
	CloseAuthFailed    = 4401
	CloseAuthTimeout   = 4408
)

type connState int32

const (
	stateConnecting connState = iota
	stateAuthenticating
	stateActive
	stateClosing
	stateClosed
)

func (s connState) String() string {
	switch s {
	case stateConnecting:
		return "connecting"
	case stateAuthenticating:
		return "authenticating"
	case stateActive:
		return "active"
	case stateClosing:
		return "closing"
	default:
		return "closed"
	}
}

// Conn is the part of a websocket connection the gateway needs. Both the
// fiber upgrade and a gorilla connection satisfy it.
type Conn interface {
	ReadMessage() (int, []byte, error)
	WriteMessage(messageType int, data []byte) error
	WriteControl(messageType int, data []byte, deadline time.Time) error
	SetReadLimit(limit int64)
	SetReadDeadline(t time.Time) error
	SetWriteDeadline(t time.Time) error
	SetPongHandler(h func(appData string) error)
	Close() error
}

var clientSeq atomic.Uint64

// Client is one producer connection.
type Client struct {
	hub  *Hub
	conn Conn

	id          uint64
	remoteAddr  string
	connectedAt time.Time

	state    atomic.Int32
	messages atomic.Int64
	errors   atomic.Int64
	lastSeen atomic.Int64

	mu        sync.RWMutex
	userID    string
	sessionID uuid.UUID

	send      chan []byte
	closeOnce sync.Once
}

func newClient(hub *Hub, conn Conn, remoteAddr string, now time.Time) *Client {
	return &Client{
		hub:         hub,
		conn:        conn,
		id:          clientSeq.Add(1),
		remoteAddr:  remoteAddr,
		connectedAt: now,
		send:        make(chan []byte, sendBuffer),
	}
}

func (c *Client) setState(s connState) { c.state.Store(int32(s)) }

func (c *Client) activate(userID string, sessionID uuid.UUID) {
	c.mu.Lock()
	c.userID = userID
	c.sessionID = sessionID
	c.mu.Unlock()
	c.setState(stateActive)
}

func (c *Client) identity() (string, uuid.UUID) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.userID, c.sessionID
}

func (c *Client) stats() ConnectionStats {
	userID, sessionID := c.identity()
	cs := ConnectionStats{
		ID:               c.id,
		RemoteAddr:       c.remoteAddr,
		State:            connState(c.state.Load()).String(),
		UserID:           userID,
		ConnectedAt:      c.connectedAt,
		MessagesReceived: c.messages.Load(),
		Errors:           c.errors.Load(),
	}
	if sessionID != uuid.Nil {
		cs.SessionID = &sessionID
	}
	if ns := c.lastSeen.Load(); ns != 0 {
		t := time.Unix(0, ns).UTC()
		cs.LastMessageAt = &t
	}
	return cs
}

// closeWith sends a close frame and drops the connection. Safe to call more
// than once and from any goroutine.
func (c *Client) closeWith(code int, reason string) {
	c.closeOnce.Do(func() {
		c.setState(stateClosing)
		msg := fws.FormatCloseMessage(code, reason)
		_ = c.conn.WriteControl(fws.CloseMessage, msg, time.Now().Add(writeWait))
		_ = c.conn.Close()
	})
}

func mustJSON(v interface{}) []byte {
	b, _ := json.Marshal(v)
	return b
}

// reply queues v for the write pump. A full queue drops the reply.
func (c *Client) reply(v interface{}) bool {
	data, err := json.Marshal(v)
	if err != nil {
		return false
	}
	select {
	case c.send <- data:
		return true
	default:
		return false
	}
}

// readLoop processes frames in receipt order until the connection fails.
func (c *Client) readLoop(handle func(messageType int, data []byte)) error {
	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		mt, data, err := c.conn.ReadMessage()
		if err != nil {
			return err
		}
		_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
		c.messages.Add(1)
		c.lastSeen.Store(time.Now().UnixNano())
		handle(mt, data)
	}
}

// writePump is the only writer of data frames once the client is active.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The hub closed the channel.
				_ = c.conn.WriteMessage(fws.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(fws.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(fws.PingMessage, nil); err != nil {
				return
			}
		case <-c.hub.Done():
			c.closeWith(CloseGoingAway, "server shutting down")
			return
		}
	}
}
