package memory

import (
	"strings"
	"sync"

	"quizhub/internal/app"
)

// RoomStore is the in-memory implementation of app.RoomRepository. Codes are
// stored upper-cased so lookups are case-insensitive.
type RoomStore struct {
	mu    sync.RWMutex
	rooms map[string]*app.Room
}

func NewRoomStore() *RoomStore {
	return &RoomStore{
		rooms: make(map[string]*app.Room),
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
	return true
}

func (s *RoomStore) Get(code string) (*app.Room, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	room, ok := s.rooms[strings.ToUpper(code)]
	return room, ok
}

// FindByConnection linearly scans active rooms; used on disconnect where no
// room code accompanies the event.
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
	delete(s.rooms, strings.ToUpper(code))
}
