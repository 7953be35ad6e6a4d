package migrations

import (
	"context"
	_ "embed"

	"github.com/uptrace/bun"
)

//go:embed 0001_create_questions.sql
var createQuestionsSQL string

const createQuestionsIndexSQL = `CREATE INDEX IF NOT EXISTS questions_draw_idx ON questions (sector, level, active)`

func init() {
	Migrations.MustRegister(
		func(ctx context.Context, db *bun.DB) error {
			if _, err := db.ExecContext(ctx, createQuestionsSQL); err != nil {
				return err
			}
			_, err := db.ExecContext(ctx, createQuestionsIndexSQL)
			return err
		},
		func(ctx context.Context, db *bun.DB) error {
			_, err := db.ExecContext(ctx, `DROP TABLE IF EXISTS questions`)
			return err
		},
	)
}
