package redis

import (
	"context"
	"strings"
	"sync"
	"time"

	"quizhub/internal/app"
	"github.com/redis/go-redis/v9"
)

// RoomStore is a Redis-aware implementation of app.RoomRepository.
// Notes:
//   - Rooms themselves stay in a local map; timers and player state are
//     process-local and a room cannot migrate between instances.
//   - Redis marks room-code liveness so an operator (or a future code
//     allocator shared across instances) can see which codes are taken.
type RoomStore struct {
	client *redis.Client
	ttl    time.Duration

	mu    sync.RWMutex
	rooms map[string]*app.Room
}

func NewRoomStore(client *redis.Client, ttl time.Duration) *RoomStore {
	return &RoomStore{
		client: client,
		ttl:    ttl,
		rooms:  make(map[string]*app.Room),
	}
}

func (s *RoomStore) PutIfAbsent(room *app.Room) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	code := room.Code()
	if _, taken := s.rooms[code]; taken {
		return false
	}
	s.rooms[code] = room
	// best-effort liveness marker
	_ = s.client.Set(context.Background(), s.key(code), "1", s.ttl).Err()
	return true
}

func (s *RoomStore) Get(code string) (*app.Room, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	room, ok := s.rooms[strings.ToUpper(code)]
	return room, ok
}

func (s *RoomStore) FindByConnection(connID string) (*app.Room, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, room := range s.rooms {
		if room.HasConnection(connID) {
			return room, true
		}
	}
	return nil, false
}

func (s *RoomStore) Delete(code string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	code = strings.ToUpper(code)
	if _, ok := s.rooms[code]; !ok {
		return
	}
	delete(s.rooms, code)
	_ = s.client.Del(context.Background(), s.key(code)).Err()
}

func (s *RoomStore) key(code string) string {
	return "live:room:" + code
}
