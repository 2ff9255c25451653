package http

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"quizhub/internal/app"
	"quizhub/internal/domain"
	"quizhub/internal/infra/memory"
	"github.com/gorilla/websocket"
)

func TestWebSocketLiveSessionFlow(t *testing.T) {
	rooms := memory.NewRoomStore()
	quizzes := memory.NewQuizRepository(memory.NewStaticQuizLoader(sampleQuiz()), time.Minute)
	hub := NewHub()
	service := app.NewLiveService(rooms, quizzes, hub, 150*time.Millisecond, 50*time.Millisecond)
	wsHandler := NewWSHandler(service, hub)

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", wsHandler.ServeWS)
	server := httptest.NewServer(mux)
	defer server.Close()

	wsURL := "ws" + server.URL[len("http"):] + "/ws"

	host, _, err := websocket.DefaultDialer.Dial(wsURL+"?userId=h1&name=Host&role=host", nil)
	if err != nil {
		t.Fatalf("dial host: %v", err)
	}
	defer host.Close()

	player, _, err := websocket.DefaultDialer.Dial(wsURL+"?userId=u1&name=Alice", nil)
	if err != nil {
		t.Fatalf("dial player: %v", err)
	}
	defer player.Close()

	// Host creates the room.
	writeMsg(t, host, "createRoom", map[string]any{"quizId": "quiz-1"})
	created := readUntil(t, host, "roomCreated")
	roomCode, _ := created["roomCode"].(string)
	if len(roomCode) != 4 {
		t.Fatalf("expected 4-character room code, got %q", roomCode)
	}

	// Player joins and gets the quiz title back.
	writeMsg(t, player, "join", map[string]any{"roomCode": roomCode})
	joined := readUntil(t, player, "joined")
	if joined["quizTitle"] != "Arithmetic" {
		t.Fatalf("expected quiz title in join ack, got %v", joined)
	}
	// The host watching the lobby sees the updated player list.
	list := readUntil(t, host, "playerList")
	if list == nil {
		t.Fatalf("expected player list payload")
	}

	// Non-host cannot start the session.
	writeMsg(t, player, "start", map[string]any{"roomCode": roomCode})
	if msg := readUntil(t, player, "error"); msg["message"] == "" {
		t.Fatalf("expected rejection message, got %v", msg)
	}

	// Host starts; everyone receives the question without correctness flags.
	writeMsg(t, host, "start", map[string]any{"roomCode": roomCode})
	question := readUntil(t, player, "question")
	options, _ := question["options"].([]any)
	if len(options) != 2 {
		t.Fatalf("expected 2 options, got %v", question)
	}
	for _, raw := range options {
		opt := raw.(map[string]any)
		if _, leaked := opt["correct"]; leaked {
			t.Fatalf("correctness leaked before reveal: %v", opt)
		}
	}

	// Player answers and is acknowledged privately.
	writeMsg(t, player, "answer", map[string]any{"roomCode": roomCode, "optionIds": []string{"o2"}})
	ack := readUntil(t, player, "answerAck")
	if ack["correct"] != true {
		t.Fatalf("expected correct answer ack, got %v", ack)
	}

	// Timer expiry reveals the correct option and the leaderboard.
	reveal := readUntil(t, player, "questionResult")
	ids, _ := reveal["correctOptionIds"].([]any)
	if len(ids) != 1 || ids[0] != "o2" {
		t.Fatalf("unexpected reveal payload: %v", reveal)
	}

	// Single-question quiz finishes after the reveal pause.
	final := readUntil(t, player, "quizFinished")
	if final == nil {
		t.Fatalf("expected final leaderboard")
	}
}

// A join rejected by the engine must not leave the connection subscribed to
// the room's broadcasts.
func TestRejectedJoinGetsNoRoomBroadcasts(t *testing.T) {
	rooms := memory.NewRoomStore()
	quizzes := memory.NewQuizRepository(memory.NewStaticQuizLoader(sampleQuiz()), time.Minute)
	hub := NewHub()
	service := app.NewLiveService(rooms, quizzes, hub, 150*time.Millisecond, 50*time.Millisecond)
	wsHandler := NewWSHandler(service, hub)

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", wsHandler.ServeWS)
	server := httptest.NewServer(mux)
	defer server.Close()

	wsURL := "ws" + server.URL[len("http"):] + "/ws"

	host, _, err := websocket.DefaultDialer.Dial(wsURL+"?userId=h1&name=Host&role=host", nil)
	if err != nil {
		t.Fatalf("dial host: %v", err)
	}
	defer host.Close()

	writeMsg(t, host, "createRoom", map[string]any{"quizId": "quiz-1"})
	created := readUntil(t, host, "roomCreated")
	roomCode, _ := created["roomCode"].(string)

	writeMsg(t, host, "start", map[string]any{"roomCode": roomCode})
	readUntil(t, host, "question")

	// Joining after start is rejected.
	late, _, err := websocket.DefaultDialer.Dial(wsURL+"?userId=u2&name=Bob", nil)
	if err != nil {
		t.Fatalf("dial late player: %v", err)
	}
	defer late.Close()
	writeMsg(t, late, "join", map[string]any{"roomCode": roomCode})
	if msg := readUntil(t, late, "error"); msg["message"] == "" {
		t.Fatalf("expected rejection message, got %v", msg)
	}

	// The reveal and final leaderboard go out within ~200ms; the rejected
	// connection must stay silent through both.
	_ = late.SetReadDeadline(time.Now().Add(500 * time.Millisecond))
	var msg struct {
		Type    string `json:"type"`
		Payload any    `json:"payload"`
	}
	if err := late.ReadJSON(&msg); err == nil {
		t.Fatalf("rejected join still received %q broadcast", msg.Type)
	}
}

func writeMsg(t *testing.T, conn *websocket.Conn, msgType string, payload any) {
	t.Helper()
	if err := conn.WriteJSON(map[string]any{"type": msgType, "payload": payload}); err != nil {
		t.Fatalf("write %s: %v", msgType, err)
	}
}

// readUntil drains messages until one of the wanted type arrives. The
// quizFinished payload is an array, so payloads are decoded loosely.
func readUntil(t *testing.T, conn *websocket.Conn, want string) map[string]any {
	t.Helper()
	for i := 0; i < 20; i++ {
		var msg struct {
			Type    string `json:"type"`
			Payload any    `json:"payload"`
		}
		_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
		if err := conn.ReadJSON(&msg); err != nil {
			t.Fatalf("read while waiting for %s: %v", want, err)
		}
		if msg.Type != want {
			continue
		}
		if payload, ok := msg.Payload.(map[string]any); ok {
			return payload
		}
		return map[string]any{}
	}
	t.Fatalf("gave up waiting for %s", want)
	return nil
}

func sampleQuiz() map[string]domain.Quiz {
	return map[string]domain.Quiz{
		"quiz-1": {
			ID:    "quiz-1",
			Title: "Arithmetic",
			Questions: []domain.Question{
				{
					ID:     "q1",
					Text:   "What is 2 + 2?",
					Type:   domain.SingleChoice,
					Points: 10,
					Options: []domain.Option{
						{ID: "o1", Text: "3", Correct: false},
						{ID: "o2", Text: "4", Correct: true},
					},
				},
			},
		},
	}
}
