package brackets

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
)

// Event is one message pushed to subscribers of a tournament room.
type Event struct {
	Type         string      `json:"type"` // e.g. "STANDINGS_UPDATED", "BRACKET_UPDATED", "NOTIFICATION"
	TournamentID string      `json:"tournament_id"`
	Payload      interface{} `json:"payload,omitempty"`
}

type Client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte
	room string

	mu     sync.Mutex
	closed bool
}

func NewClient(hub *Hub, conn *websocket.Conn, tournamentID string) *Client {
	return &Client{
		hub:  hub,
		conn: conn,
		send: make(chan []byte, 16),
		room: tournamentID,
	}
}

// Hub fans tournament events out to websocket subscribers. One room per
// tournament; rooms are created on first subscriber and dropped on last
// leave.
type Hub struct {
	register   chan *Client
	unregister chan *Client
	broadcast  chan roomMessage

	rooms  map[string]map[*Client]bool
	logger *slog.Logger
}

type roomMessage struct {
	room string
	data []byte
}

func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan roomMessage, 64),
		rooms:      make(map[string]map[*Client]bool),
		logger:     logger,
	}
}

func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			if _, ok := h.rooms[client.room]; !ok {
				h.rooms[client.room] = make(map[*Client]bool)
			}
			h.rooms[client.room][client] = true
			h.logger.Debug("ws client joined", slog.String("room", client.room), slog.Int("clients", len(h.rooms[client.room])))

		case client := <-h.unregister:
			if clients, ok := h.rooms[client.room]; ok {
				if clients[client] {
					delete(clients, client)
					client.close()
					if len(clients) == 0 {
						delete(h.rooms, client.room)
					}
				}
			}

		case msg := <-h.broadcast:
			for client := range h.rooms[msg.room] {
				select {
				case client.send <- msg.data:
				default:
					// Slow consumer, drop it.
					delete(h.rooms[msg.room], client)
					client.close()
				}
			}
		}
	}
}

// BroadcastToRoom pushes an event to every subscriber of a tournament.
// Safe to call from any goroutine; marshalling failures are logged and
// swallowed, a broken broadcast must never fail the triggering write.
func (h *Hub) BroadcastToRoom(event Event) {
	data, err := json.Marshal(event)
	if err != nil {
		h.logger.Error("ws event marshal failed", slog.String("type", event.Type), slog.Any("error", err))
		return
	}
	h.broadcast <- roomMessage{room: event.TournamentID, data: data}
}

func (h *Hub) Register(client *Client) {
	h.register <- client
}

func (c *Client) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		close(c.send)
		c.closed = true
	}
}

// ReadPump discards inbound frames (the stream is server-to-client only)
// and keeps the connection alive until the peer goes away.
func (c *Client) ReadPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()
	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
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
