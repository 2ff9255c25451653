package domain

// QuestionType discriminates how a submission is judged.
type QuestionType string

const (
	SingleChoice   QuestionType = "single-choice"
	MultipleChoice QuestionType = "multiple-choice"
	TrueFalse      QuestionType = "true-false"
	FillInBlank    QuestionType = "fill-in-blank"
)

// Option represents a possible answer for a question. Correct is never
// serialized toward clients before the reveal.
type Option struct {
	ID      string `json:"id"`
	Text    string `json:"text"`
	Correct bool   `json:"correct"`
}

// Question models one quiz question. For fill-in-blank questions the
// accepted answers are the texts of the options flagged correct.
type Question struct {
	ID      string       `json:"id"`
	Text    string       `json:"text"`
	Type    QuestionType `json:"type"`
	Points  int          `json:"points"` // defaults to 1 if zero
	Options []Option     `json:"options"`
}

// Quiz is a titled collection of questions.
type Quiz struct {
	ID        string     `json:"id"`
	Title     string     `json:"title"`
	Questions []Question `json:"questions"`
}

// AnswerSubmission carries a player's answer for the active question.
// OptionIDs is used by choice questions, Text by fill-in-blank.
type AnswerSubmission struct {
	OptionIDs []string `json:"optionIds"`
	Text      string   `json:"text"`
}

// AnswerResult acknowledges a submission back to the submitting player only.
type AnswerResult struct {
	Correct    bool `json:"correct"`
	Awarded    int  `json:"awarded"`
	TotalScore int  `json:"totalScore"`
}

// PlayerInfo is the lobby-safe view of a connected player.
type PlayerInfo struct {
	ConnectionID string `json:"connectionId"`
	UserID       string `json:"userId"`
	DisplayName  string `json:"displayName"`
	Score        int    `json:"score"`
}

// LeaderboardEntry is one row of the reveal/final scoreboard.
type LeaderboardEntry struct {
	UserID      string `json:"userId"`
	DisplayName string `json:"displayName"`
	Score       int    `json:"score"`
}

// OptionView is an option with its correctness withheld.
type OptionView struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

// QuestionView is the pre-reveal shape of a question sent at phase start.
type QuestionView struct {
	Index     int          `json:"index"`
	Text      string       `json:"text"`
	Type      QuestionType `json:"type"`
	Points    int          `json:"points"`
	TimeLimit int          `json:"timeLimit"` // seconds
	Options   []OptionView `json:"options"`
}

// QuestionResult is the reveal payload sent once the answer window closes.
type QuestionResult struct {
	Index            int                `json:"index"`
	CorrectOptionIDs []string           `json:"correctOptionIds"`
	Leaderboard      []LeaderboardEntry `json:"leaderboard"`
}
