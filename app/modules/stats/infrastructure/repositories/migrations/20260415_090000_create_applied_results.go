package statsmigrations

import (
	"context"
	"fmt"

	statsdb "github.com/YuTeChang/VibeBadminton-sub000/app/modules/stats/infrastructure/repositories"
	"github.com/uptrace/bun"
)

func init() {
	Migrations.MustRegister(func(ctx context.Context, db *bun.DB) error {
		fmt.Println("Creating applied_results table...")

		if _, err := db.NewCreateTable().Model((*statsdb.AppliedResult)(nil)).IfNotExists().Exec(ctx); err != nil {
			return fmt.Errorf("failed to create applied_results table: %w", err)
		}

		// Existing groups have no markers yet; a recalculation fills them in.
		fmt.Println("applied_results table created. Recalculate existing groups to backfill markers.")
		return nil
	}, func(ctx context.Context, db *bun.DB) error {
		fmt.Println("Dropping applied_results table...")
		_, err := db.NewDropTable().Model((*statsdb.AppliedResult)(nil)).IfExists().Exec(ctx)
		return err
	})
}
