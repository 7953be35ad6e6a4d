package domain

import (
	"strings"
	"time"
)

// Quotas are explicit per-bank counts for blended assemblies.
type Quotas struct {
	PR int `json:"PR"`
	NV int `json:"NV"`
	BL int `json:"BL"`
}

// For returns the quota of a single bank.
func (q Quotas) For(bank Mode) int {
	switch bank {
	case ModePractical:
		return q.PR
	case ModeLeveling:
		return q.NV
	case ModeSoftSkill:
		return q.BL
	default:
		return 0
	}
}

// KindQuotas optionally split each bank draw between question kinds.
type KindQuotas struct {
	SingleChoice *int `json:"singleChoice,omitempty"`
	OpenText     *int `json:"openText,omitempty"`
}

// AssembleRequest is the input of test assembly.
type AssembleRequest struct {
	UserID     string      `json:"-"`
	Sector     string      `json:"sector"`
	Level      string      `json:"level"`
	Mode       string      `json:"mode"`
	TargetRole string      `json:"targetRole,omitempty"`
	Quotas     *Quotas     `json:"quotas,omitempty"`
	KindQuotas *KindQuotas `json:"kindQuotas,omitempty"`
}

// TestItem is the client view of a TestQuestion; it never carries the answer key.
type TestItem struct {
	TestQuestionID string       `json:"testQuestionId"`
	QuestionID     string       `json:"questionId"`
	Order          int          `json:"order"`
	Prompt         string       `json:"prompt"`
	Kind           QuestionKind `json:"kind"`
	Bank           string       `json:"bank,omitempty"`
	Hint           string       `json:"hint,omitempty"`
	Choices        []Choice     `json:"choices,omitempty"`
}

// ItemOf builds the client view of a TestQuestion.
func ItemOf(q TestQuestion) *TestItem {
	return &TestItem{
		TestQuestionID: q.ID,
		QuestionID:     q.QuestionID,
		Order:          q.Order,
		Prompt:         q.Prompt,
		Kind:           q.Kind,
		Bank:           q.Bank,
		Hint:           q.Hint,
		Choices:        q.Choices,
	}
}

// AssembledTest is returned by test assembly.
type AssembledTest struct {
	TestID         string     `json:"testId"`
	Mode           Mode       `json:"mode"`
	TypeLabel      string     `json:"typeLabel"`
	Sector         string     `json:"sector"`
	Level          string     `json:"level"`
	RequestedCount int        `json:"requestedCount"`
	ActualCount    int        `json:"actualCount"`
	Underfilled    bool       `json:"underfilled"`
	Items          []TestItem `json:"items"`
}

// Progress reports how far an attempt has advanced.
type Progress struct {
	Answered        int     `json:"answered"`
	Total           int     `json:"total"`
	PercentComplete float64 `json:"percentComplete"`
}

// NewProgress computes the completion percentage.
func NewProgress(answered, total int) Progress {
	p := Progress{Answered: answered, Total: total}
	if total > 0 {
		p.PercentComplete = float64(answered) / float64(total) * 100
	}
	return p
}

// AttemptStarted is returned when an attempt is created.
type AttemptStarted struct {
	AttemptID     string       `json:"attemptId"`
	TestID        string       `json:"testId"`
	StartedAt     time.Time    `json:"startedAt"`
	State         AttemptState `json:"state"`
	FirstQuestion *TestItem    `json:"firstQuestion"`
}

// NextQuestion is the next unanswered question; Question is nil when the attempt is ready to finalize.
type NextQuestion struct {
	Question *TestItem `json:"question"`
	Progress Progress  `json:"progress"`
}

// AnswerReceipt is returned after an answer is recorded.
type AnswerReceipt struct {
	AnswerID     string    `json:"answerId"`
	Correct      *bool     `json:"correct"`
	NextQuestion *TestItem `json:"nextQuestion"`
	Progress     Progress  `json:"progress"`
}

// FinalizationResult is returned when an attempt reaches a terminal state.
type FinalizationResult struct {
	AttemptID       string       `json:"attemptId"`
	State           AttemptState `json:"state"`
	Percentage      int          `json:"percentage"`
	CorrectCount    int          `json:"correctCount"`
	TotalCount      int          `json:"totalCount"`
	Band            Band         `json:"band"`
	FeedbackText    string       `json:"feedbackText"`
	Recommendations []string     `json:"recommendations"`
	DurationSeconds int64        `json:"durationSeconds"`
}

// AttemptStats summarizes an attempt for history views.
type AttemptStats struct {
	AttemptID      string       `json:"attemptId"`
	TestID         string       `json:"testId"`
	State          AttemptState `json:"state"`
	StartedAt      time.Time    `json:"startedAt"`
	EndedAt        *time.Time   `json:"endedAt,omitempty"`
	Score          *int         `json:"score"`
	TotalQuestions int          `json:"totalQuestions"`
	Answered       int          `json:"answered"`
	Correct        int          `json:"correct"`
	Percentage     int          `json:"percentage"`
}

// AttemptSummary is one row of a user's attempt history.
type AttemptSummary struct {
	AttemptID       string       `json:"attemptId"`
	TestID          string       `json:"testId"`
	State           AttemptState `json:"state"`
	StartedAt       time.Time    `json:"startedAt"`
	EndedAt         *time.Time   `json:"endedAt,omitempty"`
	Score           *int         `json:"score"`
	DurationSeconds *int64       `json:"durationSeconds,omitempty"`
}

// SummaryOf builds the history row of an attempt.
func SummaryOf(a Attempt) AttemptSummary {
	s := AttemptSummary{
		AttemptID: a.ID,
		TestID:    a.TestID,
		State:     a.State,
		StartedAt: a.StartedAt,
		EndedAt:   a.EndedAt,
		Score:     a.Score,
	}
	if a.EndedAt != nil {
		d := int64(a.EndedAt.Sub(a.StartedAt).Seconds())
		s.DurationSeconds = &d
	}
	return s
}

func upper(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}
