package app

import (
	"context"

	"assessment-engine/internal/domain"
)

type bandFeedback struct {
	min             int
	band            domain.Band
	text            string
	recommendations []string
}

// bands are ordered from the highest lower bound down.
var bands = []bandFeedback{
	{
		min:  90,
		band: domain.BandExcellent,
		text: "Excellent result: you have a solid command of this area.",
		recommendations: []string{
			"Move on to a higher level or a new sector.",
			"Practice under time pressure to sharpen your answers.",
		},
	},
	{
		min:  70,
		band: domain.BandGood,
		text: "Good result: you know most of this area, with a few gaps left.",
		recommendations: []string{
			"Review the questions you missed.",
			"Take another practice test at the same level.",
		},
	},
	{
		min:  50,
		band: domain.BandFair,
		text: "Fair result: the basics are there but need reinforcement.",
		recommendations: []string{
			"Study the core concepts of this area again.",
			"Try a practice test before attempting another evaluation.",
		},
	},
	{
		min:  0,
		band: domain.BandInsufficient,
		text: "Insufficient result: this area needs more preparation.",
		recommendations: []string{
			"Start with the fundamentals of this sector.",
			"Consider a lower level before retrying.",
		},
	},
}

// Percentage returns correct/total*100 rounded half-up, or 0 when total is 0.
func Percentage(correct, total int) int {
	if total <= 0 {
		return 0
	}
	return (correct*200 + total) / (2 * total)
}

// BandFor maps a percentage to its band. Lower bounds are inclusive.
func BandFor(percentage int) domain.Band {
	return feedbackFor(percentage).band
}

func feedbackFor(percentage int) bandFeedback {
	for _, b := range bands {
		if percentage >= b.min {
			return b
		}
	}
	return bands[len(bands)-1]
}

// Score aggregates a set of recorded answers. Ungraded answers count toward
// the total but never toward the correct count.
func Score(answers []domain.Answer) domain.ScoreResult {
	correct := 0
	for _, a := range answers {
		if a.Correct != nil && *a.Correct {
			correct++
		}
	}
	pct := Percentage(correct, len(answers))
	fb := feedbackFor(pct)
	recs := make([]string, len(fb.recommendations))
	copy(recs, fb.recommendations)
	return domain.ScoreResult{
		Percentage:      pct,
		CorrectCount:    correct,
		TotalCount:      len(answers),
		Band:            fb.band,
		FeedbackText:    fb.text,
		Recommendations: recs,
	}
}

// AnswerReader lists the recorded answers of an attempt.
type AnswerReader interface {
	ListAnswers(ctx context.Context, attemptID string) ([]domain.Answer, error)
}

// ScoringEngine computes scores from the stored answers of an attempt.
type ScoringEngine struct {
	answers AnswerReader
}

func NewScoringEngine(answers AnswerReader) *ScoringEngine {
	return &ScoringEngine{answers: answers}
}

// Evaluate scores a given answer set; finalize calls it inside its transaction.
func (e *ScoringEngine) Evaluate(answers []domain.Answer) domain.ScoreResult {
	return Score(answers)
}

// Compute recomputes the score of an attempt from its full answer set.
func (e *ScoringEngine) Compute(ctx context.Context, attemptID string) (domain.ScoreResult, error) {
	answers, err := e.answers.ListAnswers(ctx, attemptID)
	if err != nil {
		return domain.ScoreResult{}, err
	}
	return e.Evaluate(answers), nil
}
