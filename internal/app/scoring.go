package app

import (
	"math"
	"strings"
	"time"

	"quizhub/internal/domain"
)

// scoreSubmission judges a submission against the question snapshot and
// returns (correct, pointsAwarded). It is a pure function and safe to call
// concurrently for different players.
func scoreSubmission(q domain.Question, sub domain.AnswerSubmission, elapsed, limit time.Duration) (bool, int) {
	if !isCorrect(q, sub) {
		return false, 0
	}
	return true, awardPoints(questionPoints(q), elapsed, limit)
}

func isCorrect(q domain.Question, sub domain.AnswerSubmission) bool {
	switch q.Type {
	case domain.SingleChoice, domain.TrueFalse:
		if len(sub.OptionIDs) != 1 {
			return false
		}
		for _, opt := range q.Options {
			if opt.Correct {
				return opt.ID == sub.OptionIDs[0]
			}
		}
		return false
	case domain.MultipleChoice:
		correct := make(map[string]struct{})
		for _, opt := range q.Options {
			if opt.Correct {
				correct[opt.ID] = struct{}{}
			}
		}
		if len(sub.OptionIDs) != len(correct) || len(correct) == 0 {
			return false
		}
		seen := make(map[string]struct{}, len(sub.OptionIDs))
		for _, id := range sub.OptionIDs {
			if _, dup := seen[id]; dup {
				return false
			}
			seen[id] = struct{}{}
			if _, ok := correct[id]; !ok {
				return false
			}
		}
		return true
	case domain.FillInBlank:
		answer := strings.ToLower(strings.TrimSpace(sub.Text))
		if answer == "" {
			return false
		}
		for _, opt := range q.Options {
			if opt.Correct && strings.ToLower(strings.TrimSpace(opt.Text)) == answer {
				return true
			}
		}
		return false
	default:
		return false
	}
}

// awardPoints applies the time-decay bonus: base + round(base * 0.5 * factor)
// with factor = max(0, (limit-elapsed)/elapsed). The factor is intentionally
// not clamped to 1 and grows without bound as elapsed approaches zero; the
// 1ms floor only avoids dividing by zero.
func awardPoints(base int, elapsed, limit time.Duration) int {
	es := elapsed.Seconds()
	if es <= 0 {
		es = 0.001
	}
	factor := (limit.Seconds() - es) / es
	if factor < 0 {
		factor = 0
	}
	bonus := int(math.Round(float64(base) * 0.5 * factor))
	return base + bonus
}

// correctOptionIDs lists the ids revealed to clients after the answer window.
func correctOptionIDs(q domain.Question) []string {
	ids := make([]string, 0, len(q.Options))
	for _, opt := range q.Options {
		if opt.Correct {
			ids = append(ids, opt.ID)
		}
	}
	return ids
}

func questionPoints(q domain.Question) int {
	if q.Points == 0 {
		return 1
	}
	return q.Points
}
