package postgres

import (
	"time"

	"assessment-engine/internal/domain"
	"github.com/uptrace/bun"
)

type testRow struct {
	bun.BaseModel `bun:"table:tests,alias:t"`

	ID        string         `bun:"id,pk,type:uuid"`
	TypeLabel string         `bun:"type_label,notnull"`
	Mode      string         `bun:"mode,notnull"`
	Sector    string         `bun:"sector,notnull"`
	Level     string         `bun:"level,notnull"`
	Metadata  map[string]any `bun:"metadata,type:jsonb"`
	Active    bool           `bun:"active,notnull"`
	CreatedAt time.Time      `bun:"created_at,notnull"`
}

type testQuestionRow struct {
	bun.BaseModel `bun:"table:test_questions,alias:tq"`

	ID         string          `bun:"id,pk,type:uuid"`
	TestID     string          `bun:"test_id,notnull,type:uuid,unique:test_questions_position_key"`
	Position   int             `bun:"position,notnull,unique:test_questions_position_key"`
	QuestionID string          `bun:"question_id,notnull"`
	Bank       string          `bun:"bank,notnull"`
	Kind       string          `bun:"kind,notnull"`
	Prompt     string          `bun:"prompt,notnull"`
	Hint       string          `bun:"hint,nullzero"`
	Choices    []domain.Choice `bun:"choices,type:jsonb"`
	AnswerKey  string          `bun:"answer_key,type:varchar(40),nullzero"`
	MinChars   int             `bun:"min_chars,notnull"`
	MaxChars   int             `bun:"max_chars,notnull"`
}

type attemptRow struct {
	bun.BaseModel `bun:"table:attempts,alias:a"`

	ID             string     `bun:"id,pk,type:uuid"`
	UserID         string     `bun:"user_id,notnull"`
	TestID         string     `bun:"test_id,notnull,type:uuid"`
	StartedAt      time.Time  `bun:"started_at,notnull"`
	EndedAt        *time.Time `bun:"ended_at"`
	Score          *int       `bun:"score"`
	State          string     `bun:"state,notnull"`
	TotalQuestions int        `bun:"total_questions,notnull"`
	Feedback       string     `bun:"feedback,nullzero"`
}

type answerRow struct {
	bun.BaseModel `bun:"table:answers,alias:ans"`

	ID             string    `bun:"id,pk,type:uuid"`
	AttemptID      string    `bun:"attempt_id,notnull,type:uuid,unique:answers_attempt_question_key"`
	TestQuestionID string    `bun:"test_question_id,notnull,type:uuid,unique:answers_attempt_question_key"`
	Value          string    `bun:"value,notnull"`
	Correct        *bool     `bun:"correct"`
	SubmittedAt    time.Time `bun:"submitted_at,notnull"`
}

func testToRow(t domain.Test) testRow {
	return testRow{
		ID:        t.ID,
		TypeLabel: t.TypeLabel,
		Mode:      string(t.Mode),
		Sector:    t.Sector,
		Level:     t.Level,
		Metadata:  t.Metadata,
		Active:    t.Active,
		CreatedAt: t.CreatedAt,
	}
}

func (r testRow) toDomain() domain.Test {
	return domain.Test{
		ID:        r.ID,
		TypeLabel: r.TypeLabel,
		Mode:      domain.Mode(r.Mode),
		Sector:    r.Sector,
		Level:     r.Level,
		Metadata:  r.Metadata,
		Active:    r.Active,
		CreatedAt: r.CreatedAt,
	}
}

func testQuestionToRow(q domain.TestQuestion) testQuestionRow {
	return testQuestionRow{
		ID:         q.ID,
		TestID:     q.TestID,
		Position:   q.Order,
		QuestionID: q.QuestionID,
		Bank:       q.Bank,
		Kind:       string(q.Kind),
		Prompt:     q.Prompt,
		Hint:       q.Hint,
		Choices:    q.Choices,
		AnswerKey:  q.AnswerKey,
		MinChars:   q.MinChars,
		MaxChars:   q.MaxChars,
	}
}

func (r testQuestionRow) toDomain() domain.TestQuestion {
	return domain.TestQuestion{
		ID:         r.ID,
		TestID:     r.TestID,
		QuestionID: r.QuestionID,
		Order:      r.Position,
		Bank:       r.Bank,
		Kind:       domain.QuestionKind(r.Kind),
		Prompt:     r.Prompt,
		Hint:       r.Hint,
		Choices:    r.Choices,
		AnswerKey:  r.AnswerKey,
		MinChars:   r.MinChars,
		MaxChars:   r.MaxChars,
	}
}

func attemptToRow(a domain.Attempt) attemptRow {
	return attemptRow{
		ID:             a.ID,
		UserID:         a.UserID,
		TestID:         a.TestID,
		StartedAt:      a.StartedAt,
		EndedAt:        a.EndedAt,
		Score:          a.Score,
		State:          string(a.State),
		TotalQuestions: a.TotalQuestions,
		Feedback:       a.Feedback,
	}
}

func (r attemptRow) toDomain() domain.Attempt {
	return domain.Attempt{
		ID:             r.ID,
		UserID:         r.UserID,
		TestID:         r.TestID,
		StartedAt:      r.StartedAt,
		EndedAt:        r.EndedAt,
		Score:          r.Score,
		State:          domain.AttemptState(r.State),
		TotalQuestions: r.TotalQuestions,
		Feedback:       r.Feedback,
	}
}

func answerToRow(a domain.Answer) answerRow {
	return answerRow{
		ID:             a.ID,
		AttemptID:      a.AttemptID,
		TestQuestionID: a.TestQuestionID,
		Value:          a.Value,
		Correct:        a.Correct,
		SubmittedAt:    a.SubmittedAt,
	}
}

func (r answerRow) toDomain() domain.Answer {
	return domain.Answer{
		ID:             r.ID,
		AttemptID:      r.AttemptID,
		TestQuestionID: r.TestQuestionID,
		Value:          r.Value,
		Correct:        r.Correct,
		SubmittedAt:    r.SubmittedAt,
	}
}
