// Package websocket is the realtime notification channel: clients join rooms
// keyed by account id or group id and receive events published to them.
package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"libris/metrics"
)

var ErrHubClosed = errors.New("websocket hub is closed")

// Envelope is the frame written to clients for every event.
type Envelope struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

// Hub tracks live clients and the rooms they joined. Room membership is
// ephemeral and dropped when the client disconnects.
type Hub struct {
	rooms      map[string]map[*Client]struct{}
	clients    map[*Client]struct{}
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
	closed     bool
	mu         sync.RWMutex
	log        *slog.Logger
}

func NewHub(log *slog.Logger) *Hub {
	return &Hub{
		rooms:      make(map[string]map[*Client]struct{}),
		clients:    make(map[*Client]struct{}),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		log:        log,
	}
}

// Run processes registrations until ctx is cancelled, then closes every
// client. Publish fails with ErrHubClosed afterwards.
func (h *Hub) Run(ctx context.Context) {
	defer h.shutdown()

	for {
		select {
		case <-ctx.Done():
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = struct{}{}
			for room := range client.rooms {
				h.addLocked(client, room)
			}
			total := len(h.clients)
			h.mu.Unlock()

			metrics.WebsocketConnections.Inc()
			h.log.Debug("websocket client registered",
				"connection_id", client.id, "user_id", client.userID, "clients", total)

		case client := <-h.unregister:
			h.mu.Lock()
			_, ok := h.clients[client]
			if ok {
				h.removeLocked(client)
			}
			total := len(h.clients)
			h.mu.Unlock()

			if ok {
				metrics.WebsocketConnections.Dec()
				h.log.Debug("websocket client unregistered",
					"connection_id", client.id, "user_id", client.userID, "clients", total)
			}
		}
	}
}

func (h *Hub) shutdown() {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.closed = true
	close(h.done)
	for client := range h.clients {
		h.removeLocked(client)
		metrics.WebsocketConnections.Dec()
	}
}

// Register hands client to the run loop. It joins every room it was built with.
func (h *Hub) Register(client *Client) error {
	select {
	case h.register <- client:
		return nil
	case <-h.done:
		return ErrHubClosed
	}
}

func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// Join adds client to room.
func (h *Hub) Join(client *Client, room string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	client.rooms[room] = struct{}{}
	if _, ok := h.clients[client]; ok {
		h.addLocked(client, room)
	}
}

// Publish sends event to every client currently in room. Clients whose
// buffer is full miss the event. An empty room is not an error.
func (h *Hub) Publish(room, event string, payload any) error {
	frame, err := json.Marshal(Envelope{Type: event, Payload: payload})
	if err != nil {
		return fmt.Errorf("encoding %s event: %w", event, err)
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	if h.closed {
		return ErrHubClosed
	}
	for client := range h.rooms[room] {
		select {
		case client.send <- frame:
		default:
			h.log.Warn("websocket send buffer full, dropping event",
				"connection_id", client.id, "user_id", client.userID, "event", event)
		}
	}
	return nil
}

func (h *Hub) RoomSize(room string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[room])
}

func (h *Hub) ConnectedClients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) addLocked(client *Client, room string) {
	members, ok := h.rooms[room]
	if !ok {
		members = make(map[*Client]struct{})
		h.rooms[room] = members
	}
	members[client] = struct{}{}
}

func (h *Hub) removeLocked(client *Client) {
	for room := range client.rooms {
		members := h.rooms[room]
		delete(members, client)
		if len(members) == 0 {
			delete(h.rooms, room)
		}
	}
	delete(h.clients, client)
	close(client.send)
}
