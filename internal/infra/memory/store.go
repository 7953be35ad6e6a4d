package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"assessment-engine/internal/app"
	"assessment-engine/internal/domain"
)

var _ app.Store = (*Store)(nil)

// Store is an in-memory implementation of app.Store. A single mutex makes
// every multi-row write atomic.
type Store struct {
	mu            sync.RWMutex
	tests         map[string]domain.Test
	testQuestions map[string]domain.TestQuestion
	byTest        map[string][]string
	attempts      map[string]domain.Attempt
	answers       map[string][]domain.Answer
	answered      map[answerKey]struct{}
}

type answerKey struct {
	attemptID      string
	testQuestionID string
}

func NewStore() *Store {
	return &Store{
		tests:         make(map[string]domain.Test),
		testQuestions: make(map[string]domain.TestQuestion),
		byTest:        make(map[string][]string),
		attempts:      make(map[string]domain.Attempt),
		answers:       make(map[string][]domain.Answer),
		answered:      make(map[answerKey]struct{}),
	}
}

func (s *Store) CreateTest(_ context.Context, test domain.Test, items []domain.TestQuestion) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tests[test.ID]; ok {
		return fmt.Errorf("test %s already exists", test.ID)
	}
	seen := make(map[int]struct{}, len(items))
	for _, it := range items {
		if _, dup := seen[it.Order]; dup {
			return fmt.Errorf("duplicate position %d in test %s", it.Order, test.ID)
		}
		seen[it.Order] = struct{}{}
	}
	s.tests[test.ID] = test
	ids := make([]string, len(items))
	for i, it := range items {
		it.TestID = test.ID
		s.testQuestions[it.ID] = it
		ids[i] = it.ID
	}
	s.byTest[test.ID] = ids
	return nil
}

func (s *Store) GetTest(_ context.Context, testID string) (domain.Test, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	test, ok := s.tests[testID]
	if !ok || !test.Active {
		return domain.Test{}, domain.ErrTestNotFound
	}
	return test, nil
}

func (s *Store) GetTestQuestion(_ context.Context, testQuestionID string) (domain.TestQuestion, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	tq, ok := s.testQuestions[testQuestionID]
	if !ok {
		return domain.TestQuestion{}, domain.ErrTestQuestionNotFound
	}
	return tq, nil
}

func (s *Store) ListTestQuestions(_ context.Context, testID string) ([]domain.TestQuestion, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := s.byTest[testID]
	out := make([]domain.TestQuestion, 0, len(ids))
	for _, id := range ids {
		out = append(out, s.testQuestions[id])
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Order < out[j].Order })
	return out, nil
}

func (s *Store) CreateAttempt(_ context.Context, attempt domain.Attempt) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tests[attempt.TestID]; !ok {
		return domain.ErrTestNotFound
	}
	if _, ok := s.attempts[attempt.ID]; ok {
		return fmt.Errorf("attempt %s already exists", attempt.ID)
	}
	s.attempts[attempt.ID] = attempt
	return nil
}

func (s *Store) GetAttempt(_ context.Context, attemptID string) (domain.Attempt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	attempt, ok := s.attempts[attemptID]
	if !ok {
		return domain.Attempt{}, domain.ErrAttemptNotFound
	}
	return attempt, nil
}

func (s *Store) ListAttempts(_ context.Context, userID string) ([]domain.Attempt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.Attempt
	for _, a := range s.attempts {
		if a.UserID == userID {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartedAt.After(out[j].StartedAt) })
	return out, nil
}

func (s *Store) CountAnswers(_ context.Context, attemptID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.answers[attemptID]), nil
}

func (s *Store) ListAnswers(_ context.Context, attemptID string) ([]domain.Answer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domain.Answer(nil), s.answers[attemptID]...), nil
}

func (s *Store) RecordAnswer(_ context.Context, answer domain.Answer, check app.AnswerCheck) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	attempt, ok := s.attempts[answer.AttemptID]
	if !ok {
		return domain.ErrAttemptNotFound
	}
	key := answerKey{attemptID: answer.AttemptID, testQuestionID: answer.TestQuestionID}
	if _, dup := s.answered[key]; dup {
		return domain.ErrAlreadyAnswered
	}
	if check != nil {
		if err := check(attempt, len(s.answers[answer.AttemptID])); err != nil {
			return err
		}
	}
	s.answered[key] = struct{}{}
	s.answers[answer.AttemptID] = append(s.answers[answer.AttemptID], answer)
	return nil
}

func (s *Store) FinalizeAttempt(_ context.Context, attemptID string, finish app.FinishFunc) (domain.Attempt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	attempt, ok := s.attempts[attemptID]
	if !ok {
		return domain.Attempt{}, domain.ErrAttemptNotFound
	}
	answers := append([]domain.Answer(nil), s.answers[attemptID]...)
	updated, err := finish(attempt, answers)
	if err != nil {
		return domain.Attempt{}, err
	}
	s.attempts[attemptID] = updated
	return updated, nil
}

// TestIDs lists the identifiers of every stored test.
func (s *Store) TestIDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.tests))
	for id := range s.tests {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
