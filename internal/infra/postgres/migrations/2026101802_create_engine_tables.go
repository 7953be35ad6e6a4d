package migrations

import (
	"context"

	"assessment-engine/internal/infra/postgres"
	"github.com/uptrace/bun"
)

func init() {
	Migrations.MustRegister(
		func(ctx context.Context, db *bun.DB) error {
			return db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
				return postgres.CreateSchema(ctx, tx)
			})
		},
		func(ctx context.Context, db *bun.DB) error {
			return postgres.DropSchema(ctx, db)
		},
	)
}
