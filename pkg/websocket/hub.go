package websocket

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"ridepulse/pkg/logger"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Backend receives the domain side of socket session events. Implemented by
// the service layer; the hub stays a pure transport.
type Backend interface {
	CaptainJoined(ctx context.Context, captainID primitive.ObjectID, socketID string) (interface{}, error)
	CaptainLeft(ctx context.Context, socketID string) error
	CaptainLocation(ctx context.Context, captainID primitive.ObjectID, lat, lng float64) (interface{}, error)
	RideIgnored(ctx context.Context, rideID string, captainID primitive.ObjectID) error
}

// Hub tracks connections, the account presence map and rooms. The account
// map is ephemeral: it is rebuilt as parties reconnect, and a second
// connection for the same account simply becomes the new writer.
type Hub struct {
	clients    map[*Client]bool
	accounts   map[string]*Client
	rooms      map[string]map[*Client]bool
	register   chan *Client
	unregister chan *Client
	backend    Backend
	logger     *logger.Logger
	mutex      sync.RWMutex
}

// Message is the wire envelope in both directions.
type Message struct {
	Event     string      `json:"event"`
	Room      string      `json:"room,omitempty"`
	Data      interface{} `json:"data,omitempty"`
	Timestamp int64       `json:"timestamp"`
}

func NewHub(backend Backend, log *logger.Logger) *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		accounts:   make(map[string]*Client),
		rooms:      make(map[string]map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		backend:    backend,
		logger:     log,
	}
}

// SetBackend wires the domain side in after construction. The hub and the
// services reference each other, so one of them has to be attached late.
func (h *Hub) SetBackend(backend Backend) {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	h.backend = backend
}

func (h *Hub) getBackend() Backend {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return h.backend
}

func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.registerClient(client)

		case client := <-h.unregister:
			h.unregisterClient(client)
		}
	}
}

func (h *Hub) registerClient(client *Client) {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	h.clients[client] = true
	h.accounts[client.AccountID.Hex()] = client
	h.joinRoom(client, "user_"+client.AccountID.Hex())

	h.logger.WithFields(map[string]interface{}{
		"account": client.AccountID.Hex(),
		"role":    client.Role,
		"socket":  client.SocketID,
	}).Info("Client connected")
}

func (h *Hub) unregisterClient(client *Client) {
	h.mutex.Lock()

	if _, ok := h.clients[client]; !ok {
		h.mutex.Unlock()
		return
	}

	delete(h.clients, client)
	close(client.send)

	// Only drop the presence entry if this client is still the latest
	// connection for the account.
	if current, ok := h.accounts[client.AccountID.Hex()]; ok && current == client {
		delete(h.accounts, client.AccountID.Hex())
	}

	for roomID, room := range h.rooms {
		if _, exists := room[client]; exists {
			delete(room, client)
			if len(room) == 0 {
				delete(h.rooms, roomID)
			}
		}
	}

	h.mutex.Unlock()

	if backend := h.getBackend(); client.Role == RoleCaptain && backend != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := backend.CaptainLeft(ctx, client.SocketID); err != nil {
			h.logger.WithError(err).Warn("Failed to mark captain inactive")
		}
	}

	h.logger.WithField("account", client.AccountID.Hex()).Info("Client disconnected")
}

// EmitToAccount delivers to the account's current connection. Returns false
// when the account is offline; the caller treats that as a dropped
// best-effort send.
func (h *Hub) EmitToAccount(account primitive.ObjectID, event string, payload interface{}) bool {
	h.mutex.RLock()
	client, ok := h.accounts[account.Hex()]
	h.mutex.RUnlock()
	if !ok {
		return false
	}

	h.sendToClient(client, Message{
		Event:     event,
		Data:      payload,
		Timestamp: time.Now().Unix(),
	})
	return true
}

func (h *Hub) EmitToRoom(room, event string, payload interface{}) {
	h.mutex.RLock()
	defer h.mutex.RUnlock()

	h.emitToRoomLocked(room, Message{
		Event:     event,
		Room:      room,
		Data:      payload,
		Timestamp: time.Now().Unix(),
	})
}

func (h *Hub) EmitGlobal(event string, payload interface{}) {
	h.mutex.RLock()
	defer h.mutex.RUnlock()

	data, _ := json.Marshal(Message{
		Event:     event,
		Data:      payload,
		Timestamp: time.Now().Unix(),
	})
	for client := range h.clients {
		select {
		case client.send <- data:
		default:
		}
	}
}

func (h *Hub) IsConnected(account primitive.ObjectID) bool {
	h.mutex.RLock()
	defer h.mutex.RUnlock()

	_, ok := h.accounts[account.Hex()]
	return ok
}

func (h *Hub) JoinRideRoom(client *Client, rideID string) {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	h.joinRoom(client, "ride_"+rideID)
}

func (h *Hub) LeaveRoom(client *Client, roomID string) {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	if room, exists := h.rooms[roomID]; exists {
		delete(room, client)
		delete(client.rooms, roomID)

		if len(room) == 0 {
			delete(h.rooms, roomID)
		}
	}
}

func (h *Hub) emitToRoomLocked(roomID string, message Message) {
	room, exists := h.rooms[roomID]
	if !exists {
		return
	}

	data, _ := json.Marshal(message)
	for client := range room {
		select {
		case client.send <- data:
		default:
		}
	}
}

func (h *Hub) joinRoom(client *Client, roomID string) {
	if h.rooms[roomID] == nil {
		h.rooms[roomID] = make(map[*Client]bool)
	}
	h.rooms[roomID][client] = true
	client.rooms[roomID] = true
}

func (h *Hub) sendToClient(client *Client, message Message) {
	data, _ := json.Marshal(message)
	select {
	case client.send <- data:
	default:
	}
}
