package competitionmigrations

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"
)

func init() {
	Migrations.MustRegister(func(ctx context.Context, db *bun.DB) error {
		fmt.Println("Creating competitions table...")

		return db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
			if _, err := tx.ExecContext(ctx, `
				CREATE TABLE IF NOT EXISTS competitions (
					id VARCHAR(64) PRIMARY KEY,
					name TEXT NOT NULL,
					revision UUID NOT NULL,
					document JSONB NOT NULL,
					created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
					updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
				);
				CREATE INDEX IF NOT EXISTS idx_competitions_updated_at ON competitions(updated_at DESC);
			`); err != nil {
				return fmt.Errorf("failed to create competitions table: %w", err)
			}
			return nil
		})
	}, func(ctx context.Context, db *bun.DB) error {
		fmt.Println("Dropping competitions table...")

		if _, err := db.ExecContext(ctx, `DROP TABLE IF EXISTS competitions;`); err != nil {
			return fmt.Errorf("failed to drop competitions table: %w", err)
		}
		return nil
	})
}
