package postgres

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"
)

type index struct {
	model   interface{}
	name    string
	columns []string
}

// CreateSchema creates the engine tables from the bun models. The uniqueness
// of (test_id, position) and (attempt_id, test_question_id) is enforced here.
func CreateSchema(ctx context.Context, db bun.IDB) error {
	if _, err := db.NewCreateTable().Model((*testRow)(nil)).IfNotExists().Exec(ctx); err != nil {
		return fmt.Errorf("create tests: %w", err)
	}
	if _, err := db.NewCreateTable().Model((*testQuestionRow)(nil)).IfNotExists().
		ForeignKey(`("test_id") REFERENCES "tests" ("id") ON DELETE CASCADE`).
		Exec(ctx); err != nil {
		return fmt.Errorf("create test_questions: %w", err)
	}
	if _, err := db.NewCreateTable().Model((*attemptRow)(nil)).IfNotExists().
		ForeignKey(`("test_id") REFERENCES "tests" ("id")`).
		Exec(ctx); err != nil {
		return fmt.Errorf("create attempts: %w", err)
	}
	if _, err := db.NewCreateTable().Model((*answerRow)(nil)).IfNotExists().
		ForeignKey(`("attempt_id") REFERENCES "attempts" ("id") ON DELETE CASCADE`).
		ForeignKey(`("test_question_id") REFERENCES "test_questions" ("id")`).
		Exec(ctx); err != nil {
		return fmt.Errorf("create answers: %w", err)
	}

	indexes := []index{
		{model: (*attemptRow)(nil), name: "attempts_user_started_idx", columns: []string{"user_id", "started_at"}},
		{model: (*answerRow)(nil), name: "answers_attempt_idx", columns: []string{"attempt_id", "submitted_at"}},
	}
	for _, idx := range indexes {
		if _, err := db.NewCreateIndex().Model(idx.model).Index(idx.name).Column(idx.columns...).IfNotExists().Exec(ctx); err != nil {
			return fmt.Errorf("create index %s: %w", idx.name, err)
		}
	}
	return nil
}

// DropSchema removes the engine tables.
func DropSchema(ctx context.Context, db bun.IDB) error {
	for _, model := range []interface{}{(*answerRow)(nil), (*attemptRow)(nil), (*testQuestionRow)(nil), (*testRow)(nil)} {
		if _, err := db.NewDropTable().Model(model).IfExists().Exec(ctx); err != nil {
			return fmt.Errorf("drop table: %w", err)
		}
	}
	return nil
}
