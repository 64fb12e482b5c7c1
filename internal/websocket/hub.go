package websocket

import (
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"eeg-workload-be/internal/pkg/logger"

	"github.com/google/uuid"
)

const DefaultMaxConnections = 100

type registration struct {
	client *Client
	result chan bool
}

// Hub tracks producer connections and enforces the process-wide ceiling.
type Hub struct {
	clients map[*Client]struct{}

	register   chan registration
	unregister chan *Client
	quit       chan struct{}
	closeOnce  sync.Once

	mu sync.RWMutex

	maxConnections int
	totalAccepted  atomic.Int64
	totalRejected  atomic.Int64

	logger logger.ILogger
}

func NewHub(maxConnections int, log logger.ILogger) *Hub {
	if maxConnections <= 0 {
		maxConnections = DefaultMaxConnections
	}
	return &Hub{
		clients:        make(map[*Client]struct{}),
		register:       make(chan registration),
		unregister:     make(chan *Client),
		quit:           make(chan struct{}),
		maxConnections: maxConnections,
		logger:         log,
	}
}

func (h *Hub) Run() {
	for {
		select {
		case reg := <-h.register:
			select {
			case <-h.quit:
				h.totalRejected.Add(1)
				reg.result <- false
				continue
			default:
			}

			h.mu.Lock()
			admitted := len(h.clients) < h.maxConnections
			if admitted {
				h.clients[reg.client] = struct{}{}
			}
			n := len(h.clients)
			h.mu.Unlock()

			if admitted {
				h.totalAccepted.Add(1)
			} else {
				h.totalRejected.Add(1)
				h.logger.Warn("Hub", "Connection limit reached", map[string]interface{}{
					"remote_addr": reg.client.remoteAddr,
					"active":      n,
				})
			}
			reg.result <- admitted

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			h.mu.Unlock()

		case <-h.quit:
			h.mu.Lock()
			for client := range h.clients {
				client.closeWith(CloseGoingAway, "server shutting down")
			}
			h.mu.Unlock()
			return
		}
	}
}

// Register admits the client unless the ceiling is reached or the hub is
// shutting down.
func (h *Hub) Register(c *Client) bool {
	reg := registration{client: c, result: make(chan bool, 1)}
	select {
	case h.register <- reg:
	case <-h.quit:
		h.totalRejected.Add(1)
		return false
	}
	return <-reg.result
}

func (h *Hub) Unregister(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.quit:
	}
}

// Close disconnects every client and stops Run.
func (h *Hub) Close() {
	h.closeOnce.Do(func() { close(h.quit) })
}

// Done is closed once the hub is shutting down.
func (h *Hub) Done() <-chan struct{} {
	return h.quit
}

type ConnectionStats struct {
	ID               uint64     `json:"id"`
	RemoteAddr       string     `json:"remote_addr"`
	State            string     `json:"state"`
	UserID           string     `json:"user_id,omitempty"`
	SessionID        *uuid.UUID `json:"session_id,omitempty"`
	ConnectedAt      time.Time  `json:"connected_at"`
	MessagesReceived int64      `json:"messages_received"`
	Errors           int64      `json:"errors"`
	LastMessageAt    *time.Time `json:"last_message_at,omitempty"`
}

type Stats struct {
	ActiveConnections     int               `json:"active_connections"`
	MaxConnections        int               `json:"max_connections"`
	ActiveSessions        int               `json:"active_sessions"`
	TotalAccepted         int64             `json:"total_accepted"`
	TotalRejected         int64             `json:"total_rejected"`
	TotalMessagesReceived int64             `json:"total_messages_received"`
	OldestConnectionAge   float64           `json:"oldest_connection_age_seconds"`
	Connections           []ConnectionStats `json:"connections"`
}

func (h *Hub) Stats(now time.Time) Stats {
	h.mu.RLock()
	clients := make([]*Client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.RUnlock()

	st := Stats{
		ActiveConnections: len(clients),
		MaxConnections:    h.maxConnections,
		TotalAccepted:     h.totalAccepted.Load(),
		TotalRejected:     h.totalRejected.Load(),
		Connections:       make([]ConnectionStats, 0, len(clients)),
	}
	sessions := make(map[uuid.UUID]struct{})
	for _, c := range clients {
		cs := c.stats()
		st.TotalMessagesReceived += cs.MessagesReceived
		if age := now.Sub(cs.ConnectedAt).Seconds(); age > st.OldestConnectionAge {
			st.OldestConnectionAge = age
		}
		if cs.SessionID != nil {
			sessions[*cs.SessionID] = struct{}{}
		}
		st.Connections = append(st.Connections, cs)
	}
	st.ActiveSessions = len(sessions)
	sort.Slice(st.Connections, func(i, j int) bool {
		return st.Connections[i].ID < st.Connections[j].ID
	})
	return st
}
