package app_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"assessment-engine/internal/domain"
)

func TestRecordAtMostOnce(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, bankQuestions("PR", 3))
	test := f.assembleN(t, 3)
	started, err := f.attempts.CreateAttempt(ctx, "u1", test.TestID)
	if err != nil {
		t.Fatalf("create attempt: %v", err)
	}
	tqID := started.FirstQuestion.TestQuestionID

	if _, err := f.answers.Record(ctx, "u1", started.AttemptID, tqID, "b"); err != nil {
		t.Fatalf("record: %v", err)
	}
	_, err = f.answers.Record(ctx, "u1", started.AttemptID, tqID, "a")
	if !errors.Is(err, domain.ErrAlreadyAnswered) {
		t.Fatalf("expected already answered, got %v", err)
	}
	if domain.KindOf(err) != domain.KindInvalidState || domain.CodeOf(err) != "already_answered" {
		t.Fatalf("unexpected classification %s/%s", domain.KindOf(err), domain.CodeOf(err))
	}
	answers, _ := f.store.ListAnswers(ctx, started.AttemptID)
	if len(answers) != 1 || answers[0].Value != "b" {
		t.Fatalf("expected the first answer to survive, got %+v", answers)
	}
}

func TestRecordConcurrentDuplicates(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, bankQuestions("PR", 2))
	test := f.assembleN(t, 2)
	started, err := f.attempts.CreateAttempt(ctx, "u1", test.TestID)
	if err != nil {
		t.Fatalf("create attempt: %v", err)
	}

	var wg sync.WaitGroup
	results := make(chan error, 10)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.answers.Record(ctx, "u1", started.AttemptID, started.FirstQuestion.TestQuestionID, "b")
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	ok := 0
	for err := range results {
		if err == nil {
			ok++
		} else if !errors.Is(err, domain.ErrAlreadyAnswered) {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if ok != 1 {
		t.Fatalf("expected exactly one accepted answer, got %d", ok)
	}
	if n, _ := f.store.CountAnswers(ctx, started.AttemptID); n != 1 {
		t.Fatalf("expected 1 stored answer, got %d", n)
	}
}

func TestRecordRejections(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, bankQuestions("PR", 6))
	test := f.assembleN(t, 3)
	other := f.assembleN(t, 3)
	started, err := f.attempts.CreateAttempt(ctx, "u1", test.TestID)
	if err != nil {
		t.Fatalf("create attempt: %v", err)
	}
	secondID := test.Items[1].TestQuestionID
	firstID := started.FirstQuestion.TestQuestionID

	tests := []struct {
		name   string
		userID string
		tqID   string
		value  string
		want   error
		kind   domain.Kind
	}{
		{name: "blank value", userID: "u1", tqID: firstID, value: "  ", want: domain.ErrInvalidAnswer, kind: domain.KindInvalidInput},
		{name: "other user", userID: "u2", tqID: firstID, value: "b", want: domain.ErrForbidden, kind: domain.KindForbidden},
		{name: "question of another test", userID: "u1", tqID: other.Items[0].TestQuestionID, value: "b", want: domain.ErrMismatchedQuestion, kind: domain.KindMismatchedQuestion},
		{name: "unknown question", userID: "u1", tqID: "nope", value: "b", want: domain.ErrTestQuestionNotFound, kind: domain.KindNotFound},
		{name: "skipping ahead", userID: "u1", tqID: secondID, value: "b", want: domain.ErrOutOfOrder, kind: domain.KindInvalidState},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.answers.Record(ctx, tt.userID, started.AttemptID, tt.tqID, tt.value)
			if !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
			if domain.KindOf(err) != tt.kind {
				t.Fatalf("expected kind %s, got %s", tt.kind, domain.KindOf(err))
			}
		})
	}
	if n, _ := f.store.CountAnswers(ctx, started.AttemptID); n != 0 {
		t.Fatalf("rejected answers were stored: %d", n)
	}
}

func TestRecordOpenTextUngradedWithinBounds(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, openQuestions("PR", 1))
	test, err := f.engine.Assemble(ctx, domain.AssembleRequest{UserID: "u1", Sector: "backend", Level: "jr", Mode: "PR"})
	if err != nil {
		t.Fatalf("assemble: %v", err)
	}
	started, err := f.attempts.CreateAttempt(ctx, "u1", test.TestID)
	if err != nil {
		t.Fatalf("create attempt: %v", err)
	}
	tqID := started.FirstQuestion.TestQuestionID

	if _, err := f.answers.Record(ctx, "u1", started.AttemptID, tqID, "tiny"); !errors.Is(err, domain.ErrInvalidAnswer) {
		t.Fatalf("expected too short to be rejected, got %v", err)
	}
	if _, err := f.answers.Record(ctx, "u1", started.AttemptID, tqID, strings.Repeat("x", 51)); !errors.Is(err, domain.ErrInvalidAnswer) {
		t.Fatalf("expected too long to be rejected, got %v", err)
	}
	receipt, err := f.answers.Record(ctx, "u1", started.AttemptID, tqID, "I built a queue.")
	if err != nil {
		t.Fatalf("record: %v", err)
	}
	if receipt.Correct != nil {
		t.Fatalf("open-text answers must stay ungraded")
	}

	result, err := f.attempts.Finalize(ctx, "u1", started.AttemptID, false)
	if err != nil {
		t.Fatalf("finalize: %v", err)
	}
	if result.TotalCount != 1 || result.CorrectCount != 0 || result.Percentage != 0 {
		t.Fatalf("ungraded answer must count toward total only, got %+v", result)
	}
}
