package app

import (
	"context"
	"log"
	"math/rand"
	"strings"
	"sync"
	"time"

	"quizhub/internal/domain"
)

// Event names pushed through the Broadcaster.
const (
	EventRoomCreated    = "roomCreated"
	EventJoined         = "joined"
	EventPlayerList     = "playerList"
	EventQuestion       = "question"
	EventAnswerAck      = "answerAck"
	EventQuestionResult = "questionResult"
	EventQuizFinished   = "quizFinished"
	EventError          = "error"
)

const (
	codeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	codeLength   = 4
)

// RoomRepository abstracts how active rooms are stored (in-memory, Redis-backed).
type RoomRepository interface {
	// PutIfAbsent stores the room under its code, failing if taken.
	PutIfAbsent(room *Room) bool
	Get(code string) (*Room, bool)
	// FindByConnection scans active rooms for the one holding the connection.
	FindByConnection(connID string) (*Room, bool)
	Delete(code string)
}

// QuizRepository loads quiz content (from cache/backing store).
type QuizRepository interface {
	GetQuiz(ctx context.Context, quizID string) (domain.Quiz, error)
}

// Broadcaster fans events out to a room's connection group or a single
// connection. Implemented by the websocket hub.
type Broadcaster interface {
	ToRoom(roomCode, event string, payload any)
	ToConnection(connID, event string, payload any)
}

// LiveService orchestrates live quiz rooms: creation, admission, the
// timer-driven question/reveal cycle, and scoring. The timer is the only
// source of phase-advancing mutation; joins and submissions never move the
// phase themselves.
type LiveService struct {
	rooms     RoomRepository
	quizzes   QuizRepository
	broadcast Broadcaster

	questionTime time.Duration
	revealPause  time.Duration

	rndMu sync.Mutex
	rnd   *rand.Rand
	now   func() time.Time
}

func NewLiveService(rooms RoomRepository, quizzes QuizRepository, broadcast Broadcaster, questionTime, revealPause time.Duration) *LiveService {
	if questionTime <= 0 {
		questionTime = 20 * time.Second
	}
	if revealPause <= 0 {
		revealPause = 5 * time.Second
	}
	return &LiveService{
		rooms:        rooms,
		quizzes:      quizzes,
		broadcast:    broadcast,
		questionTime: questionTime,
		revealPause:  revealPause,
		rnd:          rand.New(rand.NewSource(time.Now().UnixNano())),
		now:          time.Now,
	}
}

// CreateRoom snapshots the quiz and registers a room under a fresh code.
// Host-only; quizzes without questions are rejected.
func (s *LiveService) CreateRoom(ctx context.Context, quizID string, isHost bool) (string, error) {
	if !isHost {
		return "", domain.ErrNotHost
	}
	quiz, err := s.quizzes.GetQuiz(ctx, quizID)
	if err != nil {
		return "", err
	}
	if len(quiz.Questions) == 0 {
		return "", domain.ErrQuizHasNoQuestions
	}

	snapshot := snapshotQuiz(quiz)
	for {
		code := s.randomCode()
		room := newRoomWithClock(code, snapshot, s.now)
		if s.rooms.PutIfAbsent(room) {
			return room.Code(), nil
		}
	}
}

// Join admits a player into a lobby and broadcasts the updated player list.
// Returns the quiz title for the join acknowledgement.
func (s *LiveService) Join(roomCode, connID, userID, displayName string) (string, error) {
	room, ok := s.rooms.Get(roomCode)
	if !ok {
		return "", domain.ErrRoomNotFound
	}
	players, err := room.Join(connID, userID, displayName)
	if err != nil {
		return "", err
	}
	s.broadcast.ToRoom(room.Code(), EventPlayerList, players)
	return room.Title(), nil
}

// Start begins the session: index moves to 0, the first question view is
// broadcast, and the question timer is armed. Host-only; valid only from the
// lobby.
func (s *LiveService) Start(roomCode string, isHost bool) error {
	if !isHost {
		return domain.ErrNotHost
	}
	room, ok := s.rooms.Get(roomCode)
	if !ok {
		return domain.ErrRoomNotFound
	}
	if err := room.start(); err != nil {
		return err
	}
	s.presentQuestion(room, 0)
	return nil
}

// SubmitAnswer scores a submission for the active question, at most once per
// player per question. Late submissions (past the answer window, including
// the reveal pause) are discarded without error and acknowledged with the
// player's unchanged score.
func (s *LiveService) SubmitAnswer(roomCode, connID string, sub domain.AnswerSubmission) (domain.AnswerResult, error) {
	room, ok := s.rooms.Get(roomCode)
	if !ok {
		return domain.AnswerResult{}, domain.ErrRoomNotFound
	}
	question, _, elapsed, err := room.activeQuestion()
	if err != nil {
		return domain.AnswerResult{}, err
	}
	if elapsed >= s.questionTime {
		total, err := room.score(connID)
		if err != nil {
			return domain.AnswerResult{}, err
		}
		return domain.AnswerResult{TotalScore: total}, nil
	}

	correct, awarded := scoreSubmission(question, sub, elapsed, s.questionTime)
	total, counted, err := room.recordAnswer(connID, awarded)
	if err != nil {
		return domain.AnswerResult{}, err
	}
	if !counted {
		// Repeat submission for the same question; report the original total.
		return domain.AnswerResult{TotalScore: total}, nil
	}
	return domain.AnswerResult{Correct: correct, Awarded: awarded, TotalScore: total}, nil
}

// Disconnect removes the connection's player from whichever room holds it
// and broadcasts the updated player list to the remaining players. The
// returned flag reports whether the connection belonged to a room.
func (s *LiveService) Disconnect(connID string) (string, bool) {
	room, ok := s.rooms.FindByConnection(connID)
	if !ok {
		return "", false
	}
	players := room.removePlayer(connID)
	s.broadcast.ToRoom(room.Code(), EventPlayerList, players)
	if room.IsEmpty() {
		room.stopTimer()
		s.rooms.Delete(room.Code())
	}
	return room.Code(), true
}

// presentQuestion broadcasts the pre-reveal view of question i and arms the
// expiry timer. The callback re-fetches the room by code so a deleted room
// turns the expiry into a no-op.
func (s *LiveService) presentQuestion(room *Room, i int) {
	question, ok := room.question(i)
	if !ok {
		return
	}
	code := room.Code()
	s.broadcast.ToRoom(code, EventQuestion, questionView(question, i, s.questionTime))
	room.armTimer(s.questionTime, func() {
		s.onQuestionExpire(code)
	})
}

// onQuestionExpire closes the answer window: reveal the correct options and
// the leaderboard, hold for the reveal pause, then advance or finish.
func (s *LiveService) onQuestionExpire(code string) {
	defer s.recoverCallback(code, "question expiry")

	room, ok := s.rooms.Get(code)
	if !ok {
		// Room was cleaned up while the timer was pending; recoverable race.
		log.Printf("room %s: timer fired for missing room, dropping", code)
		return
	}
	question, index, _, err := room.activeQuestion()
	if err != nil {
		log.Printf("room %s: timer fired outside active question: %v", code, err)
		return
	}
	s.broadcast.ToRoom(code, EventQuestionResult, domain.QuestionResult{
		Index:            index,
		CorrectOptionIDs: correctOptionIDs(question),
		Leaderboard:      room.leaderboard(),
	})
	room.armTimer(s.revealPause, func() {
		s.afterReveal(code)
	})
}

// afterReveal ends the reveal pause: either the next question goes out and
// the timer re-arms, or the room finishes and is released.
func (s *LiveService) afterReveal(code string) {
	defer s.recoverCallback(code, "reveal")

	room, ok := s.rooms.Get(code)
	if !ok {
		log.Printf("room %s: reveal pause ended for missing room, dropping", code)
		return
	}
	next, more := room.advance()
	if more {
		s.presentQuestion(room, next)
		return
	}
	room.stopTimer()
	s.rooms.Delete(code)
	s.broadcast.ToRoom(code, EventQuizFinished, room.leaderboard())
	log.Printf("room %s: session finished", code)
}

// recoverCallback keeps a panicking timer callback from taking the process
// down; the room's progression is abandoned, not retried.
func (s *LiveService) recoverCallback(code, phase string) {
	if r := recover(); r != nil {
		log.Printf("room %s: panic during %s, abandoning round: %v", code, phase, r)
	}
}

func (s *LiveService) randomCode() string {
	s.rndMu.Lock()
	defer s.rndMu.Unlock()
	var b strings.Builder
	for i := 0; i < codeLength; i++ {
		b.WriteByte(codeAlphabet[s.rnd.Intn(len(codeAlphabet))])
	}
	return b.String()
}

// snapshotQuiz deep-copies quiz content so a room never aliases catalog data.
func snapshotQuiz(quiz domain.Quiz) domain.Quiz {
	questions := make([]domain.Question, len(quiz.Questions))
	for i, q := range quiz.Questions {
		options := make([]domain.Option, len(q.Options))
		copy(options, q.Options)
		q.Options = options
		questions[i] = q
	}
	quiz.Questions = questions
	return quiz
}

// questionView strips correctness before a question is sent to clients.
// Fill-in-blank options hold the accepted answers, so none are sent at all.
func questionView(q domain.Question, index int, limit time.Duration) domain.QuestionView {
	var options []domain.OptionView
	if q.Type != domain.FillInBlank {
		options = make([]domain.OptionView, len(q.Options))
		for i, opt := range q.Options {
			options[i] = domain.OptionView{ID: opt.ID, Text: opt.Text}
		}
	}
	return domain.QuestionView{
		Index:     index,
		Text:      q.Text,
		Type:      q.Type,
		Points:    questionPoints(q),
		TimeLimit: int(limit.Seconds()),
		Options:   options,
	}
}
