package app

import (
	"sort"
	"strings"
	"sync"
	"time"

	"quizhub/internal/domain"
)

// indexLobby is the question index of a room whose session has not started.
const indexLobby = -1

// Room is the in-memory state of one live quiz session. The quiz content is
// an immutable snapshot taken at creation; catalog edits cannot reach a
// running room. The question index only moves forward.
type Room struct {
	code string
	quiz domain.Quiz

	mu              sync.RWMutex
	players         map[string]*livePlayer // keyed by connection id
	currentQuestion int
	questionStart   time.Time
	finished        bool
	timer           *time.Timer

	now func() time.Time
}

type livePlayer struct {
	userID      string
	displayName string
	score       int
	answered    bool
}

// NewRoom is exported for infrastructure layers and tests that need to seed
// room stores directly.
func NewRoom(code string, quiz domain.Quiz) *Room {
	return newRoomWithClock(code, quiz, time.Now)
}

// newRoomWithClock allows deterministic timestamps in tests.
func newRoomWithClock(code string, quiz domain.Quiz, now func() time.Time) *Room {
	return &Room{
		code:            strings.ToUpper(code),
		quiz:            quiz,
		players:         make(map[string]*livePlayer),
		currentQuestion: indexLobby,
		now:             now,
	}
}

// Code returns the room's upper-cased join code.
func (r *Room) Code() string {
	return r.code
}

// Title returns the title of the quiz this room plays.
func (r *Room) Title() string {
	return r.quiz.Title
}

// HasConnection reports whether the connection belongs to this room's players.
func (r *Room) HasConnection(connID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.players[connID]
	return ok
}

// IsEmpty reports whether the room has no players left.
func (r *Room) IsEmpty() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.players) == 0
}

// Join admits a player while the room is still in the lobby.
func (r *Room) Join(connID, userID, displayName string) ([]domain.PlayerInfo, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.currentQuestion != indexLobby {
		return nil, domain.ErrRoomStarted
	}
	r.players[connID] = &livePlayer{userID: userID, displayName: displayName}
	return r.playerListLocked(), nil
}

func (r *Room) removePlayer(connID string) []domain.PlayerInfo {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.players, connID)
	return r.playerListLocked()
}

// start moves the room out of the lobby. It fails once the index has moved.
func (r *Room) start() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.currentQuestion != indexLobby {
		return domain.ErrRoomStarted
	}
	r.currentQuestion = 0
	r.questionStart = r.now()
	return nil
}

// advance resets every player's answered flag and moves to the next question.
// It returns the new index and false once the quiz is exhausted, in which
// case the room is marked finished.
func (r *Room) advance() (int, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.finished || r.currentQuestion == indexLobby {
		return r.currentQuestion, false
	}
	next := r.currentQuestion + 1
	if next >= len(r.quiz.Questions) {
		r.currentQuestion = len(r.quiz.Questions)
		r.finished = true
		return r.currentQuestion, false
	}
	for _, p := range r.players {
		p.answered = false
	}
	r.currentQuestion = next
	r.questionStart = r.now()
	return next, true
}

// activeQuestion returns the question currently accepting answers along with
// the elapsed time since it was presented.
func (r *Room) activeQuestion() (domain.Question, int, time.Duration, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.finished {
		return domain.Question{}, 0, 0, domain.ErrRoomFinished
	}
	if r.currentQuestion == indexLobby {
		return domain.Question{}, 0, 0, domain.ErrRoomNotStarted
	}
	q := r.quiz.Questions[r.currentQuestion]
	return q, r.currentQuestion, r.now().Sub(r.questionStart), nil
}

// question returns the question at index i, valid or not found.
func (r *Room) question(i int) (domain.Question, bool) {
	if i < 0 || i >= len(r.quiz.Questions) {
		return domain.Question{}, false
	}
	return r.quiz.Questions[i], true
}

// recordAnswer applies a scored submission for one player, at most once per
// question. The second return reports whether this submission was the first
// one and therefore counted.
func (r *Room) recordAnswer(connID string, awarded int) (int, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.players[connID]
	if !ok {
		return 0, false, domain.ErrPlayerNotFound
	}
	if p.answered {
		return p.score, false, nil
	}
	p.answered = true
	p.score += awarded
	return p.score, true, nil
}

// score returns the player's current total without mutating anything.
func (r *Room) score(connID string) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.players[connID]
	if !ok {
		return 0, domain.ErrPlayerNotFound
	}
	return p.score, nil
}

func (r *Room) playerList() []domain.PlayerInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.playerListLocked()
}

func (r *Room) playerListLocked() []domain.PlayerInfo {
	list := make([]domain.PlayerInfo, 0, len(r.players))
	for connID, p := range r.players {
		list = append(list, domain.PlayerInfo{
			ConnectionID: connID,
			UserID:       p.userID,
			DisplayName:  p.displayName,
			Score:        p.score,
		})
	}
	sort.Slice(list, func(i, j int) bool {
		return list[i].DisplayName < list[j].DisplayName
	})
	return list
}

// leaderboard returns all players sorted by score descending, name ascending
// on ties.
func (r *Room) leaderboard() []domain.LeaderboardEntry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entries := make([]domain.LeaderboardEntry, 0, len(r.players))
	for _, p := range r.players {
		entries = append(entries, domain.LeaderboardEntry{
			UserID:      p.userID,
			DisplayName: p.displayName,
			Score:       p.score,
		})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Score != entries[j].Score {
			return entries[i].Score > entries[j].Score
		}
		return entries[i].DisplayName < entries[j].DisplayName
	})
	return entries
}

// armTimer schedules fn after d, replacing any pending timer. The scheduled
// callback must re-fetch the room by code; it must not capture room state.
func (r *Room) armTimer(d time.Duration, fn func()) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.timer != nil {
		r.timer.Stop()
	}
	r.timer = time.AfterFunc(d, fn)
}

// stopTimer disposes a pending timer so no callback fires against a
// finished or abandoned room.
func (r *Room) stopTimer() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.timer != nil {
		r.timer.Stop()
		r.timer = nil
	}
}
