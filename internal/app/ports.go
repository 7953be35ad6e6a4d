package app

import (
	"context"

	"assessment-engine/internal/domain"
)

// QuestionBank draws active questions at random from the external bank.
type QuestionBank interface {
	Draw(ctx context.Context, filter domain.DrawFilter) ([]domain.Question, error)
}

// TestStore persists assembled tests.
type TestStore interface {
	// CreateTest writes the test and its questions atomically.
	CreateTest(ctx context.Context, test domain.Test, items []domain.TestQuestion) error
	GetTest(ctx context.Context, testID string) (domain.Test, error)
	GetTestQuestion(ctx context.Context, testQuestionID string) (domain.TestQuestion, error)
	ListTestQuestions(ctx context.Context, testID string) ([]domain.TestQuestion, error)
}

// AnswerCheck runs inside the answer transaction with the locked attempt and
// the number of answers already recorded for it.
type AnswerCheck func(attempt domain.Attempt, answered int) error

// FinishFunc runs inside the finalize transaction and returns the attempt to persist.
type FinishFunc func(attempt domain.Attempt, answers []domain.Answer) (domain.Attempt, error)

// AttemptStore persists attempts and their answers.
type AttemptStore interface {
	CreateAttempt(ctx context.Context, attempt domain.Attempt) error
	GetAttempt(ctx context.Context, attemptID string) (domain.Attempt, error)
	// ListAttempts returns the user's attempts, newest first.
	ListAttempts(ctx context.Context, userID string) ([]domain.Attempt, error)
	CountAnswers(ctx context.Context, attemptID string) (int, error)
	ListAnswers(ctx context.Context, attemptID string) ([]domain.Answer, error)
	// RecordAnswer inserts the answer unless one already exists for the same
	// (attempt, test question) pair, in which case it returns domain.ErrAlreadyAnswered.
	RecordAnswer(ctx context.Context, answer domain.Answer, check AnswerCheck) error
	FinalizeAttempt(ctx context.Context, attemptID string, finish FinishFunc) (domain.Attempt, error)
}

// Store is the relational store behind the engine.
type Store interface {
	TestStore
	AttemptStore
}

// TestCatalog returns the ordered questions of a test. Tests are immutable,
// so implementations may cache.
type TestCatalog interface {
	Items(ctx context.Context, testID string) ([]domain.TestQuestion, error)
}
