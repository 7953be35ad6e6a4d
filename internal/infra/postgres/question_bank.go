package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"assessment-engine/internal/domain"
	"github.com/jackc/pgx/v4/pgxpool"
)

const drawQuestionsSQL = `
SELECT question_id::text, bank, sector, level, kind, prompt, COALESCE(hint, ''), answer_config, active
FROM questions
WHERE lower(bank) = ANY($1)
  AND sector = $2
  AND level = $3
  AND active
  AND ($4 = '' OR kind = $4)
  AND NOT (question_id::text = ANY($5))
ORDER BY random()
LIMIT $6`

// QuestionBank draws random questions from the externally owned questions table.
type QuestionBank struct {
	pool *pgxpool.Pool
}

func NewQuestionBank(pool *pgxpool.Pool) *QuestionBank {
	return &QuestionBank{pool: pool}
}

func (b *QuestionBank) Draw(ctx context.Context, f domain.DrawFilter) ([]domain.Question, error) {
	if f.Limit <= 0 || len(f.Banks) == 0 {
		return nil, nil
	}
	// a NULL array would make the NOT ... ANY predicate drop every row
	exclude := f.Exclude
	if exclude == nil {
		exclude = []string{}
	}

	rows, err := b.pool.Query(ctx, drawQuestionsSQL,
		f.Banks, f.Sector, f.Level, string(f.Kind), exclude, f.Limit)
	if err != nil {
		return nil, fmt.Errorf("draw questions: %w", err)
	}
	defer rows.Close()

	var out []domain.Question
	for rows.Next() {
		var (
			q    domain.Question
			kind string
			raw  []byte
		)
		if err := rows.Scan(&q.ID, &q.Bank, &q.Sector, &q.Level, &kind, &q.Prompt, &q.Hint, &raw, &q.Active); err != nil {
			return nil, fmt.Errorf("scan question: %w", err)
		}
		q.Kind = domain.QuestionKind(kind)
		if len(raw) > 0 {
			if err := json.Unmarshal(raw, &q.Config); err != nil {
				return nil, fmt.Errorf("unmarshal answer config of %s: %w", q.ID, err)
			}
		}
		out = append(out, q)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("draw questions: %w", err)
	}
	return out, nil
}
