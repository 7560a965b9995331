package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	statsservice "github.com/YuTeChang/VibeBadminton-sub000/app/modules/stats/application"
	statsdomain "github.com/YuTeChang/VibeBadminton-sub000/app/modules/stats/domain"
	"github.com/YuTeChang/VibeBadminton-sub000/config"
	"github.com/YuTeChang/VibeBadminton-sub000/db/bundb"
	"github.com/YuTeChang/VibeBadminton-sub000/internal/observability"
	"github.com/urfave/cli/v2"
)

// withService opens the database, builds a service without a queue and runs fn.
func withService(c *cli.Context, fn func(svc *statsservice.StatsService, groupID statsdomain.GroupID) error) error {
	cfg, err := config.LoadConfig(c.String("config"))
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	obs := observability.NewNoop()
	db, err := bundb.NewBunDBService(c.Context, cfg.Postgres, obs.Logger)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	svc := statsservice.NewStatsService(db.StatsDB, nil, nil, obs.Logger, obs.Metrics, obs.Tracer, db.GetDB())
	return fn(svc, statsdomain.GroupID(c.String("group")))
}

func recalculateCommand() *cli.Command {
	return &cli.Command{
		Name:  "recalculate",
		Usage: "reset the group and replay every completed result",
		Action: func(c *cli.Context) error {
			return withService(c, func(svc *statsservice.StatsService, groupID statsdomain.GroupID) error {
				start := time.Now()
				summary, err := svc.RecalculateGroup(c.Context, groupID)
				if err != nil {
					return err
				}
				fmt.Fprintf(c.App.Writer, "Recalculated %s in %s: %d players reset, %d games processed, %d skipped, %d players updated\n",
					groupID, time.Since(start).Round(time.Millisecond),
					summary.PlayersReset, summary.GamesProcessed, summary.GamesSkipped, summary.PlayersUpdated)
				return nil
			})
		},
	}
}

func leaderboardCommand() *cli.Command {
	return &cli.Command{
		Name:  "leaderboard",
		Usage: "print players ordered by rating",
		Action: func(c *cli.Context) error {
			return withService(c, func(svc *statsservice.StatsService, groupID statsdomain.GroupID) error {
				board, err := svc.GetLeaderboard(c.Context, groupID)
				if err != nil {
					return err
				}
				return writeLeaderboard(c.App.Writer, board)
			})
		},
	}
}

func historyCommand() *cli.Command {
	return &cli.Command{
		Name:  "history",
		Usage: "print a player's rating history as JSON lines",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "player", Aliases: []string{"p"}, Required: true},
			&cli.StringFlag{Name: "since", Usage: `e.g. "last month", "2 weeks ago" or RFC 3339`},
		},
		Action: func(c *cli.Context) error {
			since, err := parseSince(c.String("since"), time.Now())
			if err != nil {
				return err
			}
			return withService(c, func(svc *statsservice.StatsService, groupID statsdomain.GroupID) error {
				points, err := svc.GetRatingHistory(c.Context, groupID, statsdomain.PlayerID(c.String("player")), since)
				if err != nil {
					return err
				}
				enc := json.NewEncoder(c.App.Writer)
				for _, p := range points {
					if err := enc.Encode(p); err != nil {
						return err
					}
				}
				return nil
			})
		},
	}
}

func chartCommand() *cli.Command {
	return &cli.Command{
		Name:  "chart",
		Usage: "render a player's rating history to a PNG file",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "player", Aliases: []string{"p"}, Required: true},
			&cli.StringFlag{Name: "since"},
			&cli.StringFlag{Name: "out", Aliases: []string{"o"}, Value: "rating.png"},
		},
		Action: func(c *cli.Context) error {
			since, err := parseSince(c.String("since"), time.Now())
			if err != nil {
				return err
			}
			return withService(c, func(svc *statsservice.StatsService, groupID statsdomain.GroupID) error {
				png, err := svc.RatingHistoryChart(c.Context, groupID, statsdomain.PlayerID(c.String("player")), since)
				if err != nil {
					return err
				}
				if err := os.WriteFile(c.String("out"), png, 0o644); err != nil {
					return fmt.Errorf("failed to write chart: %w", err)
				}
				fmt.Fprintf(c.App.Writer, "Wrote %s\n", c.String("out"))
				return nil
			})
		},
	}
}

func exportCommand() *cli.Command {
	return &cli.Command{
		Name:  "export",
		Usage: "write player and partnership standings to an xlsx workbook",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "out", Aliases: []string{"o"}, Value: "standings.xlsx"},
		},
		Action: func(c *cli.Context) error {
			return withService(c, func(svc *statsservice.StatsService, groupID statsdomain.GroupID) error {
				f, err := os.Create(c.String("out"))
				if err != nil {
					return fmt.Errorf("failed to create workbook: %w", err)
				}
				if err := svc.ExportStandingsWorkbook(c.Context, groupID, f); err != nil {
					f.Close()
					return err
				}
				if err := f.Close(); err != nil {
					return err
				}
				fmt.Fprintf(c.App.Writer, "Wrote %s\n", c.String("out"))
				return nil
			})
		},
	}
}

func writeLeaderboard(w io.Writer, board []statsservice.PlayerStats) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "#\tPLAYER\tRATING\tW\tL\tWIN%\tSTREAK")
	for i, p := range board {
		fmt.Fprintf(tw, "%d\t%s\t%d\t%d\t%d\t%.1f\t%+d\n", i+1, p.Name, p.Rating, p.Wins, p.Losses, p.WinRate*100, p.CurrentStreak)
	}
	return tw.Flush()
}
