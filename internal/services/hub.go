package services

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/knowsyapp/knowsy-server/internal/config"
	"github.com/knowsyapp/knowsy-server/internal/models"
)

// Hub fans messages out to every websocket connection in a room. It is
// best-effort push: a dropped or slow connection loses messages, which
// is fine because every session also polls.
type Hub struct {
	// Room connections: roomId -> set of clients
	rooms map[string]map[*Client]bool

	broadcast  chan *BroadcastMessage
	register   chan *Client
	unregister chan *Client

	metrics *Metrics
	logger  *slog.Logger

	mu          sync.RWMutex
	connections int
}

type BroadcastMessage struct {
	RoomID  string
	Message *models.WSMessage
}

func NewHub(metrics *Metrics, logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		rooms:      make(map[string]map[*Client]bool),
		broadcast:  make(chan *BroadcastMessage, config.HubBroadcastBufferSize),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		metrics:    metrics,
		logger:     logger,
	}
}

func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return

		case client := <-h.register:
			h.registerClient(client)

		case client := <-h.unregister:
			h.unregisterClient(client)

		case msg := <-h.broadcast:
			h.broadcastToRoom(msg)
		}
	}
}

func (h *Hub) registerClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.connections >= config.MaxTotalConnections ||
		len(h.rooms[client.roomID]) >= config.MaxConnectionsPerRoom ||
		(h.rooms[client.roomID] == nil && len(h.rooms) >= config.MaxRoomsPerInstance) {
		h.logger.Warn("connection limit reached, rejecting client",
			"room", client.roomID, "player", client.playerID,
			"total_connections", h.connections, "rooms", len(h.rooms))
		h.metrics.IncrementConnectionErrors()
		client.Close()
		return
	}

	if h.rooms[client.roomID] == nil {
		h.rooms[client.roomID] = make(map[*Client]bool)
		h.metrics.IncrementRooms()
	}
	h.rooms[client.roomID][client] = true
	h.connections++
	h.metrics.IncrementConnections()

	h.logger.Debug("websocket registered",
		"room", client.roomID, "player", client.playerID,
		"room_connections", len(h.rooms[client.roomID]))
}

func (h *Hub) unregisterClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if clients, ok := h.rooms[client.roomID]; ok {
		if _, exists := clients[client]; exists {
			delete(clients, client)
			h.connections--
			h.metrics.DecrementConnections()
			client.Close()

			// Clean up empty rooms
			if len(clients) == 0 {
				delete(h.rooms, client.roomID)
				h.metrics.DecrementRooms()
			}
		}
	}
}

func (h *Hub) broadcastToRoom(msg *BroadcastMessage) {
	h.mu.RLock()
	clients := make([]*Client, 0, len(h.rooms[msg.RoomID]))
	for c := range h.rooms[msg.RoomID] {
		clients = append(clients, c)
	}
	h.mu.RUnlock()

	if len(clients) == 0 {
		return
	}

	data, err := json.Marshal(msg.Message)
	if err != nil {
		h.logger.Error("failed to marshal broadcast", "error", err)
		return
	}

	for _, c := range clients {
		c.Send(data)
	}
}

// BroadcastToRoom queues a message for every connection in the room.
func (h *Hub) BroadcastToRoom(roomID string, message *models.WSMessage) {
	h.broadcast <- &BroadcastMessage{
		RoomID:  roomID,
		Message: message,
	}
}

// SendToClient delivers a message to one connection only.
func (h *Hub) SendToClient(client *Client, message *models.WSMessage) {
	data, err := json.Marshal(message)
	if err != nil {
		h.logger.Error("failed to marshal message", "error", err)
		return
	}
	client.Send(data)
}

func (h *Hub) Register(client *Client) {
	h.register <- client
}

func (h *Hub) Unregister(client *Client) {
	h.unregister <- client
}
