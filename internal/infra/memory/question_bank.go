package memory

import (
	"context"
	"math/rand"
	"strings"
	"sync"
	"time"

	"assessment-engine/internal/domain"
)

// QuestionBank serves random draws from a fixed question list (tests and demo mode).
type QuestionBank struct {
	questions []domain.Question

	mu  sync.Mutex
	rnd *rand.Rand
}

func NewQuestionBank(questions []domain.Question) *QuestionBank {
	return &QuestionBank{
		questions: questions,
		rnd:       rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (b *QuestionBank) Draw(_ context.Context, f domain.DrawFilter) ([]domain.Question, error) {
	if f.Limit <= 0 {
		return nil, nil
	}
	banks := make(map[string]struct{}, len(f.Banks))
	for _, tag := range f.Banks {
		banks[strings.ToLower(tag)] = struct{}{}
	}
	excluded := make(map[string]struct{}, len(f.Exclude))
	for _, id := range f.Exclude {
		excluded[id] = struct{}{}
	}

	var matches []domain.Question
	for _, q := range b.questions {
		if !q.Active || q.Sector != f.Sector || q.Level != f.Level {
			continue
		}
		if _, ok := banks[strings.ToLower(q.Bank)]; !ok {
			continue
		}
		if f.Kind != "" && q.Kind != f.Kind {
			continue
		}
		if _, ok := excluded[q.ID]; ok {
			continue
		}
		matches = append(matches, q)
	}

	b.mu.Lock()
	b.rnd.Shuffle(len(matches), func(i, j int) { matches[i], matches[j] = matches[j], matches[i] })
	b.mu.Unlock()

	if len(matches) > f.Limit {
		matches = matches[:f.Limit]
	}
	return matches, nil
}
