package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"assessment-engine/internal/domain"
)

// AnswerRecorder records at most one graded answer per attempt question.
type AnswerRecorder struct {
	store   Store
	catalog TestCatalog
	log     *zap.Logger
	now     func() time.Time
}

func NewAnswerRecorder(store Store, catalog TestCatalog, log *zap.Logger) *AnswerRecorder {
	return NewAnswerRecorderWithClock(store, catalog, log, time.Now)
}

// NewAnswerRecorderWithClock is test-only for deterministic timestamps.
func NewAnswerRecorderWithClock(store Store, catalog TestCatalog, log *zap.Logger, now func() time.Time) *AnswerRecorder {
	if log == nil {
		log = zap.NewNop()
	}
	return &AnswerRecorder{store: store, catalog: catalog, log: log, now: now}
}

// Record validates, grades and stores an answer, then returns the question
// that follows it.
func (r *AnswerRecorder) Record(ctx context.Context, userID, attemptID, testQuestionID, value string) (domain.AnswerReceipt, error) {
	value = strings.TrimSpace(value)
	if strings.TrimSpace(attemptID) == "" || strings.TrimSpace(testQuestionID) == "" {
		return domain.AnswerReceipt{}, domain.ErrMissingFields
	}
	if value == "" {
		return domain.AnswerReceipt{}, fmt.Errorf("%w: value is blank", domain.ErrInvalidAnswer)
	}

	attempt, err := r.store.GetAttempt(ctx, attemptID)
	if err != nil {
		return domain.AnswerReceipt{}, err
	}
	if attempt.UserID != userID {
		return domain.AnswerReceipt{}, domain.ErrForbidden
	}
	if attempt.State.Terminal() {
		return domain.AnswerReceipt{}, domain.ErrAttemptClosed
	}

	items, err := r.catalog.Items(ctx, attempt.TestID)
	if err != nil {
		return domain.AnswerReceipt{}, fmt.Errorf("load test questions: %w", err)
	}
	tq, ok := findItem(items, testQuestionID)
	if !ok {
		return domain.AnswerReceipt{}, r.unknownQuestion(ctx, testQuestionID)
	}
	if err := checkBounds(tq, value); err != nil {
		return domain.AnswerReceipt{}, err
	}

	answer := domain.Answer{
		ID:             uuid.NewString(),
		AttemptID:      attemptID,
		TestQuestionID: tq.ID,
		Value:          value,
		Correct:        grade(tq, value),
		SubmittedAt:    r.now().UTC(),
	}
	err = r.store.RecordAnswer(ctx, answer, func(a domain.Attempt, answered int) error {
		if a.State.Terminal() {
			return domain.ErrAttemptClosed
		}
		if tq.Order != answered+1 {
			return fmt.Errorf("%w: expected question %d, got %d", domain.ErrOutOfOrder, answered+1, tq.Order)
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, domain.ErrAlreadyAnswered) {
			r.log.Info("duplicate answer rejected",
				zap.String("attempt_id", attemptID), zap.String("test_question_id", tq.ID))
		}
		return domain.AnswerReceipt{}, err
	}

	r.log.Debug("answer recorded",
		zap.String("attempt_id", attemptID),
		zap.Int("order", tq.Order),
		zap.Bool("graded", answer.Correct != nil))

	return domain.AnswerReceipt{
		AnswerID:     answer.ID,
		Correct:      answer.Correct,
		NextQuestion: itemAt(items, tq.Order+1),
		Progress:     domain.NewProgress(tq.Order, len(items)),
	}, nil
}

// unknownQuestion distinguishes a question of another test from one that does not exist.
func (r *AnswerRecorder) unknownQuestion(ctx context.Context, testQuestionID string) error {
	if _, err := r.store.GetTestQuestion(ctx, testQuestionID); err != nil {
		return err
	}
	return domain.ErrMismatchedQuestion
}

func findItem(items []domain.TestQuestion, id string) (domain.TestQuestion, bool) {
	for _, it := range items {
		if it.ID == id {
			return it, true
		}
	}
	return domain.TestQuestion{}, false
}

// grade compares against the answer key ignoring case. Questions without
// a key stay ungraded.
func grade(tq domain.TestQuestion, value string) *bool {
	if !tq.HasAnswerKey() {
		return nil
	}
	ok := strings.EqualFold(value, tq.AnswerKey)
	return &ok
}

func checkBounds(tq domain.TestQuestion, value string) error {
	if tq.Kind != domain.KindOpenText {
		return nil
	}
	n := utf8.RuneCountInString(value)
	if tq.MinChars > 0 && n < tq.MinChars {
		return fmt.Errorf("%w: at least %d characters required", domain.ErrInvalidAnswer, tq.MinChars)
	}
	if tq.MaxChars > 0 && n > tq.MaxChars {
		return fmt.Errorf("%w: at most %d characters allowed", domain.ErrInvalidAnswer, tq.MaxChars)
	}
	return nil
}
