package app_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"assessment-engine/internal/app"
	"assessment-engine/internal/domain"
	"assessment-engine/internal/infra/memory"
)

type fixture struct {
	store    *memory.Store
	engine   *app.Engine
	attempts *app.AttemptService
	answers  *app.AnswerRecorder
	now      time.Time
}

func newFixture(t *testing.T, questions []domain.Question) *fixture {
	t.Helper()
	f := &fixture{
		store: memory.NewStore(),
		now:   time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC),
	}
	catalog := memory.NewTestCatalog(f.store, time.Minute)
	clock := func() time.Time { return f.now }
	f.engine = app.NewEngine(memory.NewQuestionBank(questions), f.store, catalog, app.DefaultMaxQuestions, nil)
	f.attempts = app.NewAttemptServiceWithClock(f.store, catalog, nil, clock)
	f.answers = app.NewAnswerRecorderWithClock(f.store, catalog, nil, clock)
	return f
}

// bankQuestions builds n active single-choice questions whose correct choice is "b".
func bankQuestions(bank string, n int) []domain.Question {
	qs := make([]domain.Question, n)
	for i := range qs {
		qs[i] = domain.Question{
			ID:     fmt.Sprintf("%s-%02d", bank, i),
			Bank:   bank,
			Sector: "backend",
			Level:  "jr",
			Kind:   domain.KindSingleChoice,
			Prompt: fmt.Sprintf("%s question %d", bank, i),
			Config: domain.AnswerConfig{
				Choices:       []domain.Choice{{ID: "a", Text: "no"}, {ID: "b", Text: "yes"}},
				CorrectChoice: "b",
			},
			Active: true,
		}
	}
	return qs
}

func openQuestions(bank string, n int) []domain.Question {
	qs := make([]domain.Question, n)
	for i := range qs {
		qs[i] = domain.Question{
			ID:     fmt.Sprintf("%s-open-%02d", bank, i),
			Bank:   bank,
			Sector: "backend",
			Level:  "jr",
			Kind:   domain.KindOpenText,
			Prompt: "Describe a past project.",
			Config: domain.AnswerConfig{MinChars: 5, MaxChars: 50},
			Active: true,
		}
	}
	return qs
}

func intp(v int) *int { return &v }

// assembleN creates a single-bank PR test of exactly n questions.
func (f *fixture) assembleN(t *testing.T, n int) domain.AssembledTest {
	t.Helper()
	test, err := f.engine.Assemble(context.Background(), domain.AssembleRequest{
		UserID: "u1", Sector: "backend", Level: "jr", Mode: "MIX",
		Quotas: &domain.Quotas{PR: n},
	})
	if err != nil {
		t.Fatalf("assemble: %v", err)
	}
	if test.ActualCount != n {
		t.Fatalf("expected %d questions, got %d", n, test.ActualCount)
	}
	return test
}
