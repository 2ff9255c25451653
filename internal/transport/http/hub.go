package http

import (
	"log"
	"strings"
	"sync"
)

type outboundMessage struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

// Hub tracks live connections and their room groups, and implements
// app.Broadcaster. Each connection owns a buffered send channel drained by a
// single writer goroutine, so no two goroutines write the same socket.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]chan outboundMessage
	groups  map[string]map[string]struct{} // room code -> connection ids
}

func NewHub() *Hub {
	return &Hub{
		clients: make(map[string]chan outboundMessage),
		groups:  make(map[string]map[string]struct{}),
	}
}

// Register adds a connection and returns the channel its writer drains.
func (h *Hub) Register(connID string) chan outboundMessage {
	send := make(chan outboundMessage, 16)
	h.mu.Lock()
	h.clients[connID] = send
	h.mu.Unlock()
	return send
}

// Unregister drops the connection from every group and closes its channel.
func (h *Hub) Unregister(connID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	send, ok := h.clients[connID]
	if !ok {
		return
	}
	delete(h.clients, connID)
	for code, members := range h.groups {
		delete(members, connID)
		if len(members) == 0 {
			delete(h.groups, code)
		}
	}
	close(send)
}

// JoinGroup subscribes the connection to a room's broadcasts.
func (h *Hub) JoinGroup(roomCode, connID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	code := strings.ToUpper(roomCode)
	members, ok := h.groups[code]
	if !ok {
		members = make(map[string]struct{})
		h.groups[code] = members
	}
	members[connID] = struct{}{}
}

// LeaveGroup unsubscribes the connection from a room's broadcasts.
func (h *Hub) LeaveGroup(roomCode, connID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	code := strings.ToUpper(roomCode)
	members, ok := h.groups[code]
	if !ok {
		return
	}
	delete(members, connID)
	if len(members) == 0 {
		delete(h.groups, code)
	}
}

// ToRoom fans an event out to every connection in the room's group.
func (h *Hub) ToRoom(roomCode, event string, payload any) {
	msg := outboundMessage{Type: event, Payload: payload}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for connID := range h.groups[strings.ToUpper(roomCode)] {
		h.sendLocked(connID, msg)
	}
}

// ToConnection sends an event to a single connection.
func (h *Hub) ToConnection(connID, event string, payload any) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	h.sendLocked(connID, outboundMessage{Type: event, Payload: payload})
}

func (h *Hub) sendLocked(connID string, msg outboundMessage) {
	send, ok := h.clients[connID]
	if !ok {
		return
	}
	select {
	case send <- msg:
	default:
		// Slow client; dropping beats blocking every other player's update.
		log.Printf("ws %s: send buffer full, dropping %s", connID, msg.Type)
	}
}
