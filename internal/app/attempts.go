package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"assessment-engine/internal/domain"
)

// AttemptService owns the attempt state machine.
type AttemptService struct {
	store   Store
	catalog TestCatalog
	scorer  *ScoringEngine
	log     *zap.Logger
	now     func() time.Time
}

func NewAttemptService(store Store, catalog TestCatalog, log *zap.Logger) *AttemptService {
	return NewAttemptServiceWithClock(store, catalog, log, time.Now)
}

// NewAttemptServiceWithClock is test-only for deterministic timestamps.
func NewAttemptServiceWithClock(store Store, catalog TestCatalog, log *zap.Logger, now func() time.Time) *AttemptService {
	if log == nil {
		log = zap.NewNop()
	}
	return &AttemptService{store: store, catalog: catalog, scorer: NewScoringEngine(store), log: log, now: now}
}

// CreateAttempt starts an attempt on an existing, non-empty test.
func (s *AttemptService) CreateAttempt(ctx context.Context, userID, testID string) (domain.AttemptStarted, error) {
	if strings.TrimSpace(userID) == "" || strings.TrimSpace(testID) == "" {
		return domain.AttemptStarted{}, domain.ErrMissingFields
	}
	if _, err := s.store.GetTest(ctx, testID); err != nil {
		return domain.AttemptStarted{}, err
	}
	items, err := s.catalog.Items(ctx, testID)
	if err != nil {
		return domain.AttemptStarted{}, fmt.Errorf("load test questions: %w", err)
	}
	if len(items) == 0 {
		return domain.AttemptStarted{}, domain.ErrEmptyTest
	}

	attempt := domain.Attempt{
		ID:             uuid.NewString(),
		UserID:         userID,
		TestID:         testID,
		StartedAt:      s.now().UTC(),
		State:          domain.StateInProgress,
		TotalQuestions: len(items),
	}
	if err := s.store.CreateAttempt(ctx, attempt); err != nil {
		return domain.AttemptStarted{}, fmt.Errorf("create attempt: %w", err)
	}
	s.log.Info("attempt created",
		zap.String("attempt_id", attempt.ID),
		zap.String("test_id", testID),
		zap.String("user_id", userID),
		zap.Int("questions", len(items)))

	return domain.AttemptStarted{
		AttemptID:     attempt.ID,
		TestID:        testID,
		StartedAt:     attempt.StartedAt,
		State:         attempt.State,
		FirstQuestion: itemAt(items, 1),
	}, nil
}

// NextQuestion returns the question at position answers+1. A nil question
// means the attempt is ready to finalize.
func (s *AttemptService) NextQuestion(ctx context.Context, userID, attemptID string) (domain.NextQuestion, error) {
	attempt, err := s.owned(ctx, userID, attemptID)
	if err != nil {
		return domain.NextQuestion{}, err
	}
	if attempt.State.Terminal() {
		return domain.NextQuestion{}, domain.ErrAttemptClosed
	}
	answered, err := s.store.CountAnswers(ctx, attemptID)
	if err != nil {
		return domain.NextQuestion{}, fmt.Errorf("count answers: %w", err)
	}
	items, err := s.catalog.Items(ctx, attempt.TestID)
	if err != nil {
		return domain.NextQuestion{}, fmt.Errorf("load test questions: %w", err)
	}
	return domain.NextQuestion{
		Question: itemAt(items, answered+1),
		Progress: domain.NewProgress(answered, len(items)),
	}, nil
}

// Finalize moves an in-progress attempt to FINISHED, or ABANDONED when
// abandoned is set, scoring whatever was answered.
func (s *AttemptService) Finalize(ctx context.Context, userID, attemptID string, abandoned bool) (domain.FinalizationResult, error) {
	if _, err := s.owned(ctx, userID, attemptID); err != nil {
		return domain.FinalizationResult{}, err
	}

	var result domain.ScoreResult
	attempt, err := s.store.FinalizeAttempt(ctx, attemptID, func(a domain.Attempt, answers []domain.Answer) (domain.Attempt, error) {
		if a.State.Terminal() {
			return a, domain.ErrAttemptClosed
		}
		result = s.scorer.Evaluate(answers)
		end := s.now().UTC()
		pct := result.Percentage
		a.EndedAt = &end
		a.Score = &pct
		a.Feedback = result.FeedbackText
		a.State = domain.StateFinished
		if abandoned {
			a.State = domain.StateAbandoned
		}
		return a, nil
	})
	if err != nil {
		return domain.FinalizationResult{}, err
	}

	duration := int64(attempt.EndedAt.Sub(attempt.StartedAt).Seconds())
	if duration < 0 {
		duration = 0
	}
	s.log.Info("attempt finalized",
		zap.String("attempt_id", attemptID),
		zap.String("state", string(attempt.State)),
		zap.Int("percentage", result.Percentage),
		zap.Int("answered", result.TotalCount))

	return domain.FinalizationResult{
		AttemptID:       attemptID,
		State:           attempt.State,
		Percentage:      result.Percentage,
		CorrectCount:    result.CorrectCount,
		TotalCount:      result.TotalCount,
		Band:            result.Band,
		FeedbackText:    result.FeedbackText,
		Recommendations: result.Recommendations,
		DurationSeconds: duration,
	}, nil
}

// History lists the user's attempts, newest first.
func (s *AttemptService) History(ctx context.Context, userID string) ([]domain.AttemptSummary, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, domain.ErrMissingFields
	}
	attempts, err := s.store.ListAttempts(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list attempts: %w", err)
	}
	out := make([]domain.AttemptSummary, len(attempts))
	for i, a := range attempts {
		out[i] = domain.SummaryOf(a)
	}
	return out, nil
}

// Stats summarizes one attempt for its owner.
func (s *AttemptService) Stats(ctx context.Context, userID, attemptID string) (domain.AttemptStats, error) {
	attempt, err := s.owned(ctx, userID, attemptID)
	if err != nil {
		return domain.AttemptStats{}, err
	}
	answers, err := s.store.ListAnswers(ctx, attemptID)
	if err != nil {
		return domain.AttemptStats{}, fmt.Errorf("list answers: %w", err)
	}
	result := s.scorer.Evaluate(answers)
	return domain.AttemptStats{
		AttemptID:      attempt.ID,
		TestID:         attempt.TestID,
		State:          attempt.State,
		StartedAt:      attempt.StartedAt,
		EndedAt:        attempt.EndedAt,
		Score:          attempt.Score,
		TotalQuestions: attempt.TotalQuestions,
		Answered:       result.TotalCount,
		Correct:        result.CorrectCount,
		Percentage:     result.Percentage,
	}, nil
}

// owned loads the attempt and checks the caller owns it.
func (s *AttemptService) owned(ctx context.Context, userID, attemptID string) (domain.Attempt, error) {
	if strings.TrimSpace(attemptID) == "" {
		return domain.Attempt{}, domain.ErrMissingFields
	}
	attempt, err := s.store.GetAttempt(ctx, attemptID)
	if err != nil {
		return domain.Attempt{}, err
	}
	if attempt.UserID != userID {
		return domain.Attempt{}, domain.ErrForbidden
	}
	return attempt, nil
}

// itemAt finds the question at a 1-based position.
func itemAt(items []domain.TestQuestion, order int) *domain.TestItem {
	for _, it := range items {
		if it.Order == order {
			return domain.ItemOf(it)
		}
	}
	return nil
}
