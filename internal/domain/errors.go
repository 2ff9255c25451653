package domain

import "errors"

var (
	// ErrQuizNotFound indicates the quiz content could not be loaded.
	ErrQuizNotFound = errors.New("quiz not found")
	// ErrQuizHasNoQuestions rejects room creation for empty quizzes.
	ErrQuizHasNoQuestions = errors.New("quiz has no questions")
	// ErrRoomNotFound is returned when a room code matches no active room.
	ErrRoomNotFound = errors.New("room not found")
	// ErrRoomStarted rejects joins and repeated starts once the session runs.
	ErrRoomStarted = errors.New("session already started")
	// ErrRoomNotStarted rejects submissions while the room is still in the lobby.
	ErrRoomNotStarted = errors.New("session not started")
	// ErrRoomFinished rejects submissions after the final question.
	ErrRoomFinished = errors.New("session already finished")
	// ErrPlayerNotFound is returned when a connection is not in the room.
	ErrPlayerNotFound = errors.New("player not found in room")
	// ErrNotHost guards host-only operations.
	ErrNotHost = errors.New("operation requires host role")
)
