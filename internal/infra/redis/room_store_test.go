package redis

import (
	"testing"
	"time"

	"quizhub/internal/app"
	"quizhub/internal/domain"
	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func testRoom(code string) *app.Room {
	return app.NewRoom(code, domain.Quiz{
		ID:    "quiz-1",
		Title: "Test",
		Questions: []domain.Question{
			{ID: "q1", Type: domain.SingleChoice, Options: []domain.Option{{ID: "o1", Correct: true}}},
		},
	})
}

func TestRoomStoreSetsAndClearsLivenessKeys(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	store := NewRoomStore(client, time.Minute)

	if !store.PutIfAbsent(testRoom("AB12")) {
		t.Fatalf("expected put to succeed")
	}
	if !mr.Exists("live:room:AB12") {
		t.Fatalf("expected liveness key to be set")
	}
	if store.PutIfAbsent(testRoom("ab12")) {
		t.Fatalf("expected case-insensitive duplicate to be rejected")
	}

	if _, ok := store.Get("ab12"); !ok {
		t.Fatalf("expected case-insensitive lookup to hit")
	}

	store.Delete("ab12")
	if mr.Exists("live:room:AB12") {
		t.Fatalf("expected liveness key to be removed")
	}
	if _, ok := store.Get("AB12"); ok {
		t.Fatalf("expected room removed")
	}
}

func TestRoomStoreFindByConnection(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	store := NewRoomStore(client, time.Minute)

	room := testRoom("CD34")
	store.PutIfAbsent(room)
	if _, err := room.Join("conn-1", "u1", "Alice"); err != nil {
		t.Fatalf("join: %v", err)
	}

	found, ok := store.FindByConnection("conn-1")
	if !ok || found.Code() != "CD34" {
		t.Fatalf("expected room CD34, got ok=%v", ok)
	}
	if _, ok := store.FindByConnection("conn-404"); ok {
		t.Fatalf("expected miss for unknown connection")
	}
}
