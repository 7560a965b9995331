package statsmigrations

import (
	"context"
	"fmt"

	statsdb "github.com/YuTeChang/VibeBadminton-sub000/app/modules/stats/infrastructure/repositories"
	"github.com/uptrace/bun"
)

func init() {
	Migrations.MustRegister(func(ctx context.Context, db *bun.DB) error {
		fmt.Println("Creating stats tables...")

		models := []interface{}{
			(*statsdb.GroupPlayer)(nil),
			(*statsdb.Partnership)(nil),
			(*statsdb.Matchup)(nil),
			(*statsdb.Session)(nil),
			(*statsdb.SessionPlayer)(nil),
			(*statsdb.Game)(nil),
			(*statsdb.RatingHistory)(nil),
		}
		for _, model := range models {
			if _, err := db.NewCreateTable().Model(model).IfNotExists().Exec(ctx); err != nil {
				return fmt.Errorf("failed to create table for %T: %w", model, err)
			}
		}

		indexes := []string{
			"CREATE INDEX IF NOT EXISTS idx_group_players_group_id ON group_players (group_id)",
			"CREATE INDEX IF NOT EXISTS idx_group_players_rating ON group_players (group_id, rating DESC)",
			"CREATE INDEX IF NOT EXISTS idx_session_players_session_id ON session_players (session_id)",
			"CREATE INDEX IF NOT EXISTS idx_sessions_group_id ON sessions (group_id)",
			"CREATE INDEX IF NOT EXISTS idx_games_session_created ON games (session_id, created_at, id)",
			"CREATE INDEX IF NOT EXISTS idx_rating_history_player ON rating_history (group_id, player_id, created_at)",
		}
		for _, stmt := range indexes {
			if _, err := db.NewRaw(stmt).Exec(ctx); err != nil {
				return err
			}
		}

		fmt.Println("Stats tables created successfully!")
		return nil
	}, func(ctx context.Context, db *bun.DB) error {
		fmt.Println("Dropping stats tables...")

		models := []interface{}{
			(*statsdb.RatingHistory)(nil),
			(*statsdb.Game)(nil),
			(*statsdb.SessionPlayer)(nil),
			(*statsdb.Session)(nil),
			(*statsdb.Matchup)(nil),
			(*statsdb.Partnership)(nil),
			(*statsdb.GroupPlayer)(nil),
		}
		for _, model := range models {
			if _, err := db.NewDropTable().Model(model).IfExists().Exec(ctx); err != nil {
				return err
			}
		}

		fmt.Println("Stats tables dropped successfully!")
		return nil
	})
}
