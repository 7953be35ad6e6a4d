package app_test

import (
	"context"
	"reflect"
	"testing"

	"assessment-engine/internal/app"
	"assessment-engine/internal/domain"
)

func TestPercentageRoundsHalfUp(t *testing.T) {
	tests := []struct {
		correct, total, want int
	}{
		{0, 0, 0},
		{0, 5, 0},
		{1, 3, 33},
		{2, 3, 67},
		{1, 8, 13},
		{5, 8, 63},
		{1, 200, 1},
		{1, 201, 0},
		{7, 7, 100},
	}
	for _, tt := range tests {
		if got := app.Percentage(tt.correct, tt.total); got != tt.want {
			t.Fatalf("Percentage(%d, %d) = %d, want %d", tt.correct, tt.total, got, tt.want)
		}
	}
}

func TestBandBoundaries(t *testing.T) {
	tests := []struct {
		pct  int
		want domain.Band
	}{
		{100, domain.BandExcellent},
		{90, domain.BandExcellent},
		{89, domain.BandGood},
		{70, domain.BandGood},
		{69, domain.BandFair},
		{50, domain.BandFair},
		{49, domain.BandInsufficient},
		{0, domain.BandInsufficient},
	}
	for _, tt := range tests {
		if got := app.BandFor(tt.pct); got != tt.want {
			t.Fatalf("BandFor(%d) = %s, want %s", tt.pct, got, tt.want)
		}
	}
}

func TestScoreIgnoresUngradedForCorrect(t *testing.T) {
	yes, no := true, false
	answers := []domain.Answer{
		{Correct: &yes},
		{Correct: &yes},
		{Correct: &no},
		{Correct: nil},
	}
	got := app.Score(answers)
	if got.TotalCount != 4 || got.CorrectCount != 2 || got.Percentage != 50 || got.Band != domain.BandFair {
		t.Fatalf("unexpected score %+v", got)
	}
	if got.FeedbackText == "" || len(got.Recommendations) == 0 {
		t.Fatalf("expected feedback for band %s", got.Band)
	}
	if again := app.Score(answers); !reflect.DeepEqual(got, again) {
		t.Fatalf("scoring is not idempotent: %+v vs %+v", got, again)
	}
}

func TestScoringEngineComputeMatchesFinalize(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, bankQuestions("PR", 3))
	test := f.assembleN(t, 3)
	started, err := f.attempts.CreateAttempt(ctx, "u1", test.TestID)
	if err != nil {
		t.Fatalf("create attempt: %v", err)
	}
	next := started.FirstQuestion
	for _, value := range []string{"b", "a", "b"} {
		receipt, err := f.answers.Record(ctx, "u1", started.AttemptID, next.TestQuestionID, value)
		if err != nil {
			t.Fatalf("record: %v", err)
		}
		next = receipt.NextQuestion
	}

	computed, err := f.engine.Compute(ctx, started.AttemptID)
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	result, err := f.attempts.Finalize(ctx, "u1", started.AttemptID, false)
	if err != nil {
		t.Fatalf("finalize: %v", err)
	}
	if computed.Percentage != 67 || result.Percentage != computed.Percentage || result.Band != computed.Band {
		t.Fatalf("finalize %+v does not match recomputation %+v", result, computed)
	}
	if result.Band != domain.BandFair {
		t.Fatalf("expected fair band for 67%%, got %s", result.Band)
	}
}
