package websocket

import (
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 30 * time.Second
	maxMessageSize = 512
)

// Client is one websocket connection. rooms is guarded by the hub's mutex.
type Client struct {
	id     string
	userID string
	conn   *websocket.Conn
	send   chan []byte
	rooms  map[string]struct{}
	hub    *Hub
	log    *slog.Logger
}

func newClient(hub *Hub, conn *websocket.Conn, userID string, buffer int, rooms ...string) *Client {
	c := &Client{
		id:     uuid.NewString(),
		userID: userID,
		conn:   conn,
		send:   make(chan []byte, buffer),
		rooms:  make(map[string]struct{}, len(rooms)),
		hub:    hub,
	}
	for _, room := range rooms {
		c.rooms[room] = struct{}{}
	}
	c.log = hub.log.With("connection_id", c.id, "user_id", userID)
	return c
}

func (c *Client) ID() string     { return c.id }
func (c *Client) UserID() string { return c.userID }

// enqueue queues a frame for this client only.
func (c *Client) enqueue(event string, payload any) {
	frame, err := json.Marshal(Envelope{Type: event, Payload: payload})
	if err != nil {
		c.log.Error("encoding websocket frame", "event", event, "error", err)
		return
	}
	select {
	case c.send <- frame:
	default:
		c.log.Warn("websocket send buffer full, dropping event", "event", event)
	}
}

type inbound struct {
	Type string `json:"type"`
}

func (c *Client) readPump() {
	defer func() {
		c.hub.Unregister(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.log.Warn("websocket read failed", "error", err)
			}
			return
		}

		var msg inbound
		if err := json.Unmarshal(raw, &msg); err != nil {
			c.log.Debug("ignoring malformed websocket frame", "error", err)
			continue
		}

		switch msg.Type {
		case "ping":
			c.hub.mu.RLock()
			if !c.hub.closed {
				c.enqueue("pong", map[string]any{"time": time.Now().Unix()})
			}
			c.hub.mu.RUnlock()
		default:
			c.log.Debug("ignoring websocket frame", "type", msg.Type)
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case frame, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
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
