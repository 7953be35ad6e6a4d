package app_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"assessment-engine/internal/domain"
)

func TestAssembleSingleBankFillsMaximum(t *testing.T) {
	questions := append(bankQuestions("PR", 15), bankQuestions("NV", 5)...)
	f := newFixture(t, questions)

	test, err := f.engine.Assemble(context.Background(), domain.AssembleRequest{
		UserID: "u1", Sector: "backend", Level: "jr", Mode: "PR",
	})
	if err != nil {
		t.Fatalf("assemble: %v", err)
	}
	if len(test.Items) != 10 || test.ActualCount != 10 || test.Underfilled {
		t.Fatalf("expected 10 items, got %+v", test)
	}
	if test.TypeLabel != "practice" {
		t.Fatalf("expected practice label, got %q", test.TypeLabel)
	}
	for _, it := range test.Items {
		if it.Bank != "PR" {
			t.Fatalf("expected only PR questions, got %q", it.Bank)
		}
	}
	assertDenseOrder(t, f, test.TestID, 10)
}

func TestAssembleBlendedDefaultSplitDropsRemainder(t *testing.T) {
	questions := append(bankQuestions("PR", 10), bankQuestions("NV", 10)...)
	questions = append(questions, bankQuestions("BL", 10)...)
	f := newFixture(t, questions)

	test, err := f.engine.Assemble(context.Background(), domain.AssembleRequest{
		UserID: "u1", Sector: "backend", Level: "jr", Mode: "ent",
	})
	if err != nil {
		t.Fatalf("assemble: %v", err)
	}
	if test.RequestedCount != 9 || test.ActualCount != 9 {
		t.Fatalf("expected 9 of 9 questions, got %d of %d", test.ActualCount, test.RequestedCount)
	}
	counts := bankCounts(test)
	for _, bank := range []string{"PR", "NV", "BL"} {
		if counts[bank] != 3 {
			t.Fatalf("expected 3 %s questions, got %d", bank, counts[bank])
		}
	}
	if test.TypeLabel != "interview" {
		t.Fatalf("expected interview label, got %q", test.TypeLabel)
	}
	assertDenseOrder(t, f, test.TestID, 9)
}

func TestAssembleQuotaConformanceAndUnderfill(t *testing.T) {
	questions := append(bankQuestions("PR", 10), bankQuestions("NV", 2)...)
	questions = append(questions, bankQuestions("BL", 10)...)
	f := newFixture(t, questions)

	test, err := f.engine.Assemble(context.Background(), domain.AssembleRequest{
		UserID: "u1", Sector: "backend", Level: "jr", Mode: "MIX",
		Quotas: &domain.Quotas{PR: 4, NV: 4, BL: 1},
	})
	if err != nil {
		t.Fatalf("assemble: %v", err)
	}
	counts := bankCounts(test)
	if counts["PR"] != 4 || counts["NV"] != 2 || counts["BL"] != 1 {
		t.Fatalf("unexpected bank counts %v", counts)
	}
	if !test.Underfilled || test.RequestedCount != 9 || test.ActualCount != 7 {
		t.Fatalf("expected under-filled 7 of 9, got %+v", test)
	}
	assertDenseOrder(t, f, test.TestID, 7)
}

func TestAssembleValidation(t *testing.T) {
	f := newFixture(t, bankQuestions("PR", 10))

	tests := []struct {
		name string
		req  domain.AssembleRequest
		want error
	}{
		{name: "blank sector", req: domain.AssembleRequest{Level: "jr", Mode: "PR"}, want: domain.ErrMissingFields},
		{name: "blank mode", req: domain.AssembleRequest{Sector: "backend", Level: "jr"}, want: domain.ErrMissingFields},
		{name: "unknown mode", req: domain.AssembleRequest{Sector: "backend", Level: "jr", Mode: "XX"}, want: domain.ErrInvalidMode},
		{name: "unknown level", req: domain.AssembleRequest{Sector: "backend", Level: "guru", Mode: "PR"}, want: domain.ErrInvalidLevel},
		{name: "all zero quotas", req: domain.AssembleRequest{Sector: "backend", Level: "jr", Mode: "MIX", Quotas: &domain.Quotas{}}, want: domain.ErrInvalidQuotas},
		{name: "negative quota", req: domain.AssembleRequest{Sector: "backend", Level: "jr", Mode: "MIX", Quotas: &domain.Quotas{PR: 5, NV: -1}}, want: domain.ErrInvalidQuotas},
		{name: "quota over max", req: domain.AssembleRequest{Sector: "backend", Level: "jr", Mode: "MIX", Quotas: &domain.Quotas{PR: 5, NV: 5, BL: 1}}, want: domain.ErrInvalidQuotas},
		{name: "negative kind quota", req: domain.AssembleRequest{Sector: "backend", Level: "jr", Mode: "PR", KindQuotas: &domain.KindQuotas{OpenText: intp(-1)}}, want: domain.ErrInvalidQuotas},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.engine.Assemble(context.Background(), tt.req)
			if !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
			if domain.KindOf(err) != domain.KindInvalidInput {
				t.Fatalf("expected invalid_input, got %s", domain.KindOf(err))
			}
		})
	}
	if n := len(f.store.TestIDs()); n != 0 {
		t.Fatalf("expected no tests written, got %d", n)
	}
}

func TestAssembleQuotaBoundaryAtMaximum(t *testing.T) {
	questions := append(bankQuestions("PR", 10), bankQuestions("NV", 10)...)
	f := newFixture(t, questions)

	test, err := f.engine.Assemble(context.Background(), domain.AssembleRequest{
		UserID: "u1", Sector: "backend", Level: "jr", Mode: "MIX",
		Quotas: &domain.Quotas{PR: 5, NV: 5},
	})
	if err != nil {
		t.Fatalf("assemble: %v", err)
	}
	if test.ActualCount != 10 {
		t.Fatalf("expected 10 questions, got %d", test.ActualCount)
	}
}

func TestAssembleKindQuotas(t *testing.T) {
	questions := append(bankQuestions("PR", 10), openQuestions("PR", 10)...)
	f := newFixture(t, questions)

	test, err := f.engine.Assemble(context.Background(), domain.AssembleRequest{
		UserID: "u1", Sector: "backend", Level: "jr", Mode: "PR",
		KindQuotas: &domain.KindQuotas{SingleChoice: intp(3), OpenText: intp(2)},
	})
	if err != nil {
		t.Fatalf("assemble: %v", err)
	}
	kinds := map[domain.QuestionKind]int{}
	for _, it := range test.Items {
		kinds[it.Kind]++
	}
	if test.ActualCount != 10 {
		t.Fatalf("expected remainder filled to 10, got %d", test.ActualCount)
	}
	if kinds[domain.KindSingleChoice] < 3 || kinds[domain.KindOpenText] < 2 {
		t.Fatalf("kind quotas not honored: %v", kinds)
	}
}

func TestAssembleSnapshotsAnswerKey(t *testing.T) {
	questions := bankQuestions("PR", 1)
	questions[0].Config.CorrectChoice = strings.Repeat("k", 60)
	questions = append(questions, openQuestions("PR", 1)...)
	f := newFixture(t, questions)

	test, err := f.engine.Assemble(context.Background(), domain.AssembleRequest{
		UserID: "u1", Sector: "backend", Level: "jr", Mode: "PR",
	})
	if err != nil {
		t.Fatalf("assemble: %v", err)
	}
	items, err := f.store.ListTestQuestions(context.Background(), test.TestID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	for _, it := range items {
		switch it.Kind {
		case domain.KindSingleChoice:
			if len(it.AnswerKey) != 40 {
				t.Fatalf("expected key truncated to 40, got %d", len(it.AnswerKey))
			}
			if len(it.Choices) != 2 {
				t.Fatalf("expected choices snapshot, got %+v", it.Choices)
			}
		case domain.KindOpenText:
			if it.HasAnswerKey() {
				t.Fatalf("open-text question must not carry a key")
			}
			if it.MinChars != 5 || it.MaxChars != 50 {
				t.Fatalf("expected bounds snapshot, got %d..%d", it.MinChars, it.MaxChars)
			}
		}
	}
}

func TestAssembleEmptyBank(t *testing.T) {
	f := newFixture(t, nil)
	_, err := f.engine.Assemble(context.Background(), domain.AssembleRequest{
		UserID: "u1", Sector: "backend", Level: "jr", Mode: "NV",
	})
	if !errors.Is(err, domain.ErrEmptyTest) {
		t.Fatalf("expected empty test, got %v", err)
	}
}

func bankCounts(test domain.AssembledTest) map[string]int {
	counts := map[string]int{}
	for _, it := range test.Items {
		counts[it.Bank]++
	}
	return counts
}

func assertDenseOrder(t *testing.T, f *fixture, testID string, n int) {
	t.Helper()
	items, err := f.store.ListTestQuestions(context.Background(), testID)
	if err != nil {
		t.Fatalf("list test questions: %v", err)
	}
	if len(items) != n {
		t.Fatalf("expected %d test questions, got %d", n, len(items))
	}
	for i, it := range items {
		if it.Order != i+1 {
			t.Fatalf("expected order %d at index %d, got %d", i+1, i, it.Order)
		}
	}
}
