package app

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"assessment-engine/internal/domain"
)

const (
	// DefaultMaxQuestions caps the size of an assembled test.
	DefaultMaxQuestions = 10
	answerKeyLimit      = 40
)

// Assembler builds tests from the question bank under mode and quota rules.
type Assembler struct {
	bank  QuestionBank
	tests TestStore
	max   int
	log   *zap.Logger
	now   func() time.Time

	rndMu sync.Mutex
	rnd   *rand.Rand
}

func NewAssembler(bank QuestionBank, tests TestStore, maxQuestions int, log *zap.Logger) *Assembler {
	if maxQuestions <= 0 {
		maxQuestions = DefaultMaxQuestions
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Assembler{
		bank:  bank,
		tests: tests,
		max:   maxQuestions,
		log:   log,
		now:   time.Now,
		rnd:   rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Assemble validates the request, draws questions and persists the test.
// Nothing is written when validation fails or the draw comes back empty.
func (a *Assembler) Assemble(ctx context.Context, req domain.AssembleRequest) (domain.AssembledTest, error) {
	sector := strings.TrimSpace(req.Sector)
	level := strings.ToLower(strings.TrimSpace(req.Level))
	if sector == "" || level == "" || strings.TrimSpace(req.Mode) == "" {
		return domain.AssembledTest{}, domain.ErrMissingFields
	}
	mode, ok := domain.ParseMode(req.Mode)
	if !ok {
		return domain.AssembledTest{}, domain.ErrInvalidMode
	}
	if _, ok := domain.Levels[level]; !ok {
		return domain.AssembledTest{}, domain.ErrInvalidLevel
	}
	if kq := req.KindQuotas; kq != nil {
		if (kq.SingleChoice != nil && *kq.SingleChoice < 0) || (kq.OpenText != nil && *kq.OpenText < 0) {
			return domain.AssembledTest{}, fmt.Errorf("%w: kind quotas must not be negative", domain.ErrInvalidQuotas)
		}
	}

	plan, err := a.plan(mode, req.Quotas)
	if err != nil {
		return domain.AssembledTest{}, err
	}

	var picked []domain.Question
	requested := 0
	for _, bank := range domain.Banks {
		n := plan[bank]
		if n <= 0 {
			continue
		}
		requested += n
		qs, err := a.drawBank(ctx, bank, n, req.KindQuotas, sector, level)
		if err != nil {
			return domain.AssembledTest{}, fmt.Errorf("draw %s questions: %w", bank, err)
		}
		picked = append(picked, qs...)
	}
	a.shuffle(picked)
	if len(picked) > a.max {
		picked = picked[:a.max]
	}
	if len(picked) == 0 {
		a.log.Warn("assembly drew no questions",
			zap.String("mode", string(mode)), zap.String("sector", sector), zap.String("level", level))
		return domain.AssembledTest{}, domain.ErrEmptyTest
	}

	test := domain.Test{
		ID:        uuid.NewString(),
		TypeLabel: mode.Label(),
		Mode:      mode,
		Sector:    sector,
		Level:     level,
		Active:    true,
		CreatedAt: a.now().UTC(),
		Metadata: map[string]any{
			"targetRole":      req.TargetRole,
			"level":           level,
			"bank":            mode.BankTag(),
			"label":           mode.Label(),
			"requestedBy":     req.UserID,
			"requestedCounts": plan.counts(),
			"requestedTotal":  requested,
			"actualTotal":     len(picked),
		},
	}
	items := make([]domain.TestQuestion, len(picked))
	for i, q := range picked {
		items[i] = snapshot(test.ID, i+1, q)
	}
	if err := a.tests.CreateTest(ctx, test, items); err != nil {
		return domain.AssembledTest{}, fmt.Errorf("persist test: %w", err)
	}

	out := domain.AssembledTest{
		TestID:         test.ID,
		Mode:           mode,
		TypeLabel:      test.TypeLabel,
		Sector:         sector,
		Level:          level,
		RequestedCount: requested,
		ActualCount:    len(items),
		Underfilled:    len(items) < requested,
		Items:          make([]domain.TestItem, len(items)),
	}
	for i, it := range items {
		out.Items[i] = *domain.ItemOf(it)
	}

	fields := []zap.Field{
		zap.String("test_id", test.ID),
		zap.String("mode", string(mode)),
		zap.Int("requested", requested),
		zap.Int("actual", len(items)),
	}
	if out.Underfilled {
		a.log.Warn("test assembled with fewer questions than requested", fields...)
	} else {
		a.log.Info("test assembled", fields...)
	}
	return out, nil
}

type bankPlan map[domain.Mode]int

func (p bankPlan) counts() map[string]int {
	out := make(map[string]int, len(p))
	for bank, n := range p {
		out[string(bank)] = n
	}
	return out
}

// plan decides how many questions each bank contributes. Blended modes
// without quotas split the maximum evenly and drop the remainder.
func (a *Assembler) plan(mode domain.Mode, quotas *domain.Quotas) (bankPlan, error) {
	if !mode.Blended() {
		return bankPlan{mode: a.max}, nil
	}
	plan := bankPlan{}
	if quotas == nil {
		for _, bank := range domain.Banks {
			plan[bank] = a.max / len(domain.Banks)
		}
		return plan, nil
	}
	sum := 0
	for _, bank := range domain.Banks {
		n := quotas.For(bank)
		if n < 0 {
			return nil, fmt.Errorf("%w: %s quota is negative", domain.ErrInvalidQuotas, bank)
		}
		plan[bank] = n
		sum += n
	}
	if sum <= 0 {
		return nil, fmt.Errorf("%w: at least one question is required", domain.ErrInvalidQuotas)
	}
	if sum > a.max {
		return nil, fmt.Errorf("%w: total %d exceeds maximum %d", domain.ErrInvalidQuotas, sum, a.max)
	}
	return plan, nil
}

// drawBank takes up to limit questions from one bank. With kind quotas it
// takes single-choice first, then open-text, then fills with any kind.
func (a *Assembler) drawBank(ctx context.Context, bank domain.Mode, limit int, kq *domain.KindQuotas, sector, level string) ([]domain.Question, error) {
	filter := domain.DrawFilter{
		Banks:  domain.BankAliases(bank),
		Sector: sector,
		Level:  level,
		Limit:  limit,
	}
	if kq == nil {
		return a.bank.Draw(ctx, filter)
	}

	var picked []domain.Question
	take := func(kind domain.QuestionKind, n int) error {
		if n <= 0 {
			return nil
		}
		f := filter
		f.Kind = kind
		f.Limit = n
		f.Exclude = make([]string, len(picked))
		for i, q := range picked {
			f.Exclude[i] = q.ID
		}
		qs, err := a.bank.Draw(ctx, f)
		if err != nil {
			return err
		}
		picked = append(picked, qs...)
		return nil
	}

	single := limit
	if kq.SingleChoice != nil {
		single = min(limit, *kq.SingleChoice)
	}
	if err := take(domain.KindSingleChoice, single); err != nil {
		return nil, err
	}
	open := 0
	if kq.OpenText != nil {
		open = min(limit-len(picked), *kq.OpenText)
	}
	if err := take(domain.KindOpenText, open); err != nil {
		return nil, err
	}
	if err := take("", limit-len(picked)); err != nil {
		return nil, err
	}
	return picked, nil
}

func (a *Assembler) shuffle(qs []domain.Question) {
	a.rndMu.Lock()
	defer a.rndMu.Unlock()
	a.rnd.Shuffle(len(qs), func(i, j int) { qs[i], qs[j] = qs[j], qs[i] })
}

// snapshot copies what the attempt flow needs from a bank question. Only
// single-choice questions carry an answer key.
func snapshot(testID string, order int, q domain.Question) domain.TestQuestion {
	tq := domain.TestQuestion{
		ID:         uuid.NewString(),
		TestID:     testID,
		QuestionID: q.ID,
		Order:      order,
		Bank:       q.Bank,
		Kind:       q.Kind,
		Prompt:     q.Prompt,
		Hint:       q.Hint,
	}
	switch q.Kind {
	case domain.KindSingleChoice:
		tq.Choices = q.Config.Choices
		tq.AnswerKey = truncate(strings.TrimSpace(q.Config.CorrectChoice), answerKeyLimit)
	case domain.KindOpenText:
		tq.MinChars = q.Config.MinChars
		tq.MaxChars = q.Config.MaxChars
	}
	return tq
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
