package http

import (
	"encoding/json"
	"log"
	"net/http"

	"quizhub/internal/app"
	"quizhub/internal/domain"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// WSHandler upgrades client connections and translates the wire protocol
// into live-session operations. Identity (user id, display name, host role)
// arrives pre-verified from the gateway; the engine trusts it.
type WSHandler struct {
	service  *app.LiveService
	hub      *Hub
	upgrader websocket.Upgrader
}

func NewWSHandler(service *app.LiveService, hub *Hub) *WSHandler {
	return &WSHandler{
		service: service,
		hub:     hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type createRoomPayload struct {
	QuizID string `json:"quizId"`
}

type joinPayload struct {
	RoomCode string `json:"roomCode"`
}

type startPayload struct {
	RoomCode string `json:"roomCode"`
}

type answerPayload struct {
	RoomCode  string   `json:"roomCode"`
	OptionIDs []string `json:"optionIds"`
	Text      string   `json:"text"`
}

type roomCreatedPayload struct {
	RoomCode string `json:"roomCode"`
}

type joinedPayload struct {
	RoomCode  string `json:"roomCode"`
	QuizTitle string `json:"quizTitle"`
}

type errorPayload struct {
	Message string `json:"message"`
}

// ServeWS wires one websocket into the live session engine until it drops.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("userId")
	displayName := r.URL.Query().Get("name")
	isHost := r.URL.Query().Get("role") == "host"
	if userID == "" || displayName == "" {
		http.Error(w, "missing userId or name", http.StatusBadRequest)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	connID := uuid.New().String()
	send := h.hub.Register(connID)

	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		for msg := range send {
			if err := conn.WriteJSON(msg); err != nil {
				log.Printf("ws %s: write error: %v", connID, err)
				return
			}
		}
	}()

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		h.dispatch(r, connID, userID, displayName, isHost, inbound)
	}

	h.hub.Unregister(connID)
	if code, ok := h.service.Disconnect(connID); ok {
		log.Printf("ws %s: left room %s", connID, code)
	}
	<-writerDone
}

func (h *WSHandler) dispatch(r *http.Request, connID, userID, displayName string, isHost bool, inbound inboundMessage) {
	switch inbound.Type {
	case "createRoom":
		var payload createRoomPayload
		if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
			h.reject(connID, "invalid createRoom payload")
			return
		}
		code, err := h.service.CreateRoom(r.Context(), payload.QuizID, isHost)
		if err != nil {
			h.reject(connID, err.Error())
			return
		}
		// The host watches the lobby without being a scored player.
		h.hub.JoinGroup(code, connID)
		h.hub.ToConnection(connID, app.EventRoomCreated, roomCreatedPayload{RoomCode: code})

	case "join":
		var payload joinPayload
		if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
			h.reject(connID, "invalid join payload")
			return
		}
		// Group membership first so the player sees their own list update,
		// rolled back if the join is rejected.
		h.hub.JoinGroup(payload.RoomCode, connID)
		title, err := h.service.Join(payload.RoomCode, connID, userID, displayName)
		if err != nil {
			h.hub.LeaveGroup(payload.RoomCode, connID)
			h.reject(connID, err.Error())
			return
		}
		h.hub.ToConnection(connID, app.EventJoined, joinedPayload{RoomCode: payload.RoomCode, QuizTitle: title})

	case "start":
		var payload startPayload
		if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
			h.reject(connID, "invalid start payload")
			return
		}
		if err := h.service.Start(payload.RoomCode, isHost); err != nil {
			h.reject(connID, err.Error())
		}

	case "answer":
		var payload answerPayload
		if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
			h.reject(connID, "invalid answer payload")
			return
		}
		result, err := h.service.SubmitAnswer(payload.RoomCode, connID, domain.AnswerSubmission{
			OptionIDs: payload.OptionIDs,
			Text:      payload.Text,
		})
		if err != nil {
			h.reject(connID, err.Error())
			return
		}
		h.hub.ToConnection(connID, app.EventAnswerAck, result)

	default:
		h.reject(connID, "unsupported message type")
	}
}

func (h *WSHandler) reject(connID, message string) {
	h.hub.ToConnection(connID, app.EventError, errorPayload{Message: message})
}
