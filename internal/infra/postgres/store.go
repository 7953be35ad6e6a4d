package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"assessment-engine/internal/app"
	"assessment-engine/internal/domain"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect"
	"github.com/uptrace/bun/driver/pgdriver"
)

var _ app.Store = (*Store)(nil)

// Store persists tests, attempts and answers through bun. Every multi-row
// write runs in one transaction; attempts are row-locked on Postgres.
type Store struct {
	db *bun.DB
}

func NewStore(db *bun.DB) *Store {
	return &Store{db: db}
}

func (s *Store) CreateTest(ctx context.Context, test domain.Test, items []domain.TestQuestion) error {
	row := testToRow(test)
	rows := make([]testQuestionRow, len(items))
	for i, it := range items {
		it.TestID = test.ID
		rows[i] = testQuestionToRow(it)
	}
	return s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewInsert().Model(&row).Exec(ctx); err != nil {
			return fmt.Errorf("insert test: %w", err)
		}
		if len(rows) == 0 {
			return nil
		}
		if _, err := tx.NewInsert().Model(&rows).Exec(ctx); err != nil {
			return fmt.Errorf("insert test questions: %w", err)
		}
		return nil
	})
}

func (s *Store) GetTest(ctx context.Context, testID string) (domain.Test, error) {
	if !validID(testID) {
		return domain.Test{}, domain.ErrTestNotFound
	}
	var row testRow
	err := s.db.NewSelect().Model(&row).
		Where("t.id = ?", testID).
		Where("t.active = ?", true).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Test{}, domain.ErrTestNotFound
	}
	if err != nil {
		return domain.Test{}, fmt.Errorf("get test: %w", err)
	}
	return row.toDomain(), nil
}

func (s *Store) GetTestQuestion(ctx context.Context, testQuestionID string) (domain.TestQuestion, error) {
	if !validID(testQuestionID) {
		return domain.TestQuestion{}, domain.ErrTestQuestionNotFound
	}
	var row testQuestionRow
	err := s.db.NewSelect().Model(&row).Where("tq.id = ?", testQuestionID).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.TestQuestion{}, domain.ErrTestQuestionNotFound
	}
	if err != nil {
		return domain.TestQuestion{}, fmt.Errorf("get test question: %w", err)
	}
	return row.toDomain(), nil
}

func (s *Store) ListTestQuestions(ctx context.Context, testID string) ([]domain.TestQuestion, error) {
	var rows []testQuestionRow
	if err := s.db.NewSelect().Model(&rows).
		Where("tq.test_id = ?", testID).
		Order("tq.position ASC").
		Scan(ctx); err != nil {
		return nil, fmt.Errorf("list test questions: %w", err)
	}
	out := make([]domain.TestQuestion, len(rows))
	for i, r := range rows {
		out[i] = r.toDomain()
	}
	return out, nil
}

func (s *Store) CreateAttempt(ctx context.Context, attempt domain.Attempt) error {
	row := attemptToRow(attempt)
	if _, err := s.db.NewInsert().Model(&row).Exec(ctx); err != nil {
		return fmt.Errorf("insert attempt: %w", err)
	}
	return nil
}

func (s *Store) GetAttempt(ctx context.Context, attemptID string) (domain.Attempt, error) {
	return getAttempt(ctx, s.db, attemptID, false)
}

func (s *Store) ListAttempts(ctx context.Context, userID string) ([]domain.Attempt, error) {
	var rows []attemptRow
	if err := s.db.NewSelect().Model(&rows).
		Where("a.user_id = ?", userID).
		Order("a.started_at DESC").
		Scan(ctx); err != nil {
		return nil, fmt.Errorf("list attempts: %w", err)
	}
	out := make([]domain.Attempt, len(rows))
	for i, r := range rows {
		out[i] = r.toDomain()
	}
	return out, nil
}

func (s *Store) CountAnswers(ctx context.Context, attemptID string) (int, error) {
	return countAnswers(ctx, s.db, attemptID)
}

func (s *Store) ListAnswers(ctx context.Context, attemptID string) ([]domain.Answer, error) {
	return listAnswers(ctx, s.db, attemptID)
}

func (s *Store) RecordAnswer(ctx context.Context, answer domain.Answer, check app.AnswerCheck) error {
	return s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		attempt, err := getAttempt(ctx, tx, answer.AttemptID, true)
		if err != nil {
			return err
		}
		exists, err := tx.NewSelect().Model((*answerRow)(nil)).
			Where("ans.attempt_id = ?", answer.AttemptID).
			Where("ans.test_question_id = ?", answer.TestQuestionID).
			Exists(ctx)
		if err != nil {
			return fmt.Errorf("check answer: %w", err)
		}
		if exists {
			return domain.ErrAlreadyAnswered
		}
		if check != nil {
			answered, err := countAnswers(ctx, tx, answer.AttemptID)
			if err != nil {
				return err
			}
			if err := check(attempt, answered); err != nil {
				return err
			}
		}
		row := answerToRow(answer)
		if _, err := tx.NewInsert().Model(&row).Exec(ctx); err != nil {
			if isUniqueViolation(err) {
				return domain.ErrAlreadyAnswered
			}
			return fmt.Errorf("insert answer: %w", err)
		}
		return nil
	})
}

func (s *Store) FinalizeAttempt(ctx context.Context, attemptID string, finish app.FinishFunc) (domain.Attempt, error) {
	var updated domain.Attempt
	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		attempt, err := getAttempt(ctx, tx, attemptID, true)
		if err != nil {
			return err
		}
		answers, err := listAnswers(ctx, tx, attemptID)
		if err != nil {
			return err
		}
		updated, err = finish(attempt, answers)
		if err != nil {
			return err
		}
		row := attemptToRow(updated)
		if _, err := tx.NewUpdate().Model(&row).
			Column("state", "ended_at", "score", "feedback").
			WherePK().
			Exec(ctx); err != nil {
			return fmt.Errorf("update attempt: %w", err)
		}
		return nil
	})
	if err != nil {
		return domain.Attempt{}, err
	}
	return updated, nil
}

func getAttempt(ctx context.Context, db bun.IDB, attemptID string, lock bool) (domain.Attempt, error) {
	if !validID(attemptID) {
		return domain.Attempt{}, domain.ErrAttemptNotFound
	}
	var row attemptRow
	q := db.NewSelect().Model(&row).Where("a.id = ?", attemptID)
	if lock && db.Dialect().Name() == dialect.PG {
		q = q.For("UPDATE")
	}
	err := q.Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Attempt{}, domain.ErrAttemptNotFound
	}
	if err != nil {
		return domain.Attempt{}, fmt.Errorf("get attempt: %w", err)
	}
	return row.toDomain(), nil
}

func countAnswers(ctx context.Context, db bun.IDB, attemptID string) (int, error) {
	n, err := db.NewSelect().Model((*answerRow)(nil)).
		Where("ans.attempt_id = ?", attemptID).
		Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("count answers: %w", err)
	}
	return n, nil
}

func listAnswers(ctx context.Context, db bun.IDB, attemptID string) ([]domain.Answer, error) {
	var rows []answerRow
	if err := db.NewSelect().Model(&rows).
		Where("ans.attempt_id = ?", attemptID).
		Order("ans.submitted_at ASC").
		Scan(ctx); err != nil {
		return nil, fmt.Errorf("list answers: %w", err)
	}
	out := make([]domain.Answer, len(rows))
	for i, r := range rows {
		out[i] = r.toDomain()
	}
	return out, nil
}

// validID rejects ids that can never match a uuid column.
func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

func isUniqueViolation(err error) bool {
	var pgErr pgdriver.Error
	if errors.As(err, &pgErr) {
		return pgErr.Field('C') == "23505"
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
