package memory

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"quizhub/internal/domain"
)

func TestQuizRepositoryCaches(t *testing.T) {
	loader := &countingLoader{
		QuizLoader: NewStaticQuizLoader(map[string]domain.Quiz{
			"quiz-1": sampleQuiz(),
		}),
	}
	repo := NewQuizRepository(loader, time.Minute)

	if _, err := repo.GetQuiz(context.Background(), "quiz-1"); err != nil {
		t.Fatalf("get quiz: %v", err)
	}
	if loader.calls != 1 {
		t.Fatalf("expected loader once, got %d", loader.calls)
	}

	if _, err := repo.GetQuiz(context.Background(), "quiz-1"); err != nil {
		t.Fatalf("get quiz 2: %v", err)
	}
	if loader.calls != 1 {
		t.Fatalf("expected cache hit, loader calls %d", loader.calls)
	}
}

// Distinct quiz ids fill the cache from concurrent goroutines, which runs
// the jitter calculation in parallel.
func TestQuizRepositoryConcurrentLoads(t *testing.T) {
	quizzes := make(map[string]domain.Quiz, 16)
	for i := 0; i < 16; i++ {
		id := fmt.Sprintf("quiz-%d", i)
		quiz := sampleQuiz()
		quiz.ID = id
		quizzes[id] = quiz
	}
	repo := NewQuizRepository(NewStaticQuizLoader(quizzes), time.Minute)

	var wg sync.WaitGroup
	errs := make(chan error, len(quizzes))
	for id := range quizzes {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			if _, err := repo.GetQuiz(context.Background(), id); err != nil {
				errs <- fmt.Errorf("get %s: %w", id, err)
			}
		}(id)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatal(err)
	}
}

func TestStaticLoaderMiss(t *testing.T) {
	loader := NewStaticQuizLoader(map[string]domain.Quiz{})
	if _, err := loader.LoadQuiz(context.Background(), "nope"); err != domain.ErrQuizNotFound {
		t.Fatalf("expected ErrQuizNotFound, got %v", err)
	}
}

type countingLoader struct {
	QuizLoader
	calls int
}

func (l *countingLoader) LoadQuiz(ctx context.Context, quizID string) (domain.Quiz, error) {
	l.calls++
	return l.QuizLoader.LoadQuiz(ctx, quizID)
}

func sampleQuiz() domain.Quiz {
	return domain.Quiz{
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
	}
}
