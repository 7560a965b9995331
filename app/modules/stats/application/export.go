package statsservice

import (
	"context"
	"fmt"
	"io"
	"slices"
	"strings"

	statsdomain "github.com/YuTeChang/VibeBadminton-sub000/app/modules/stats/domain"
	"github.com/xuri/excelize/v2"
)

const (
	playersSheet      = "Players"
	partnershipsSheet = "Partnerships"
)

var (
	playerHeader      = []any{"Rank", "Player", "Rating", "Wins", "Losses", "Games", "Win %", "Streak", "Best Streak", "Points For", "Points Against", "Diff"}
	partnershipHeader = []any{"Rank", "Player 1", "Player 2", "Rating", "Wins", "Losses", "Games", "Win %", "Streak", "Best Streak"}
)

// ExportStandingsWorkbook writes the group's player and partnership standings as xlsx.
func (s *StatsService) ExportStandingsWorkbook(ctx context.Context, groupID statsdomain.GroupID, w io.Writer) error {
	_, err := withTelemetry(s, ctx, "ExportStandingsWorkbook", groupID, func(ctx context.Context) (struct{}, error) {
		players, err := s.repo.ListLeaderboard(ctx, nil, groupID)
		if err != nil {
			return struct{}{}, err
		}
		partnerships, err := s.repo.ListPartnerships(ctx, nil, groupID)
		if err != nil {
			return struct{}{}, err
		}

		playerRows := make([]PlayerStats, 0, len(players))
		names := make(map[statsdomain.PlayerID]string, len(players))
		for _, p := range players {
			playerRows = append(playerRows, playerStats(p))
			names[p.ID] = p.Name
		}
		pairRows := make([]PartnershipStats, 0, len(partnerships))
		for _, p := range partnerships {
			pairRows = append(pairRows, partnershipStats(p))
		}

		return struct{}{}, WriteStandingsWorkbook(w, playerRows, pairRows, names)
	})
	return err
}

// WriteStandingsWorkbook renders standings into a two-sheet workbook. Rows are
// ordered by rating, then name, so exports of the same state are identical.
func WriteStandingsWorkbook(w io.Writer, players []PlayerStats, partnerships []PartnershipStats, names map[statsdomain.PlayerID]string) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(f.GetActiveSheetIndex()), playersSheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	if _, err := f.NewSheet(partnershipsSheet); err != nil {
		return fmt.Errorf("create sheet: %w", err)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"DDEBDD"}, Pattern: 1},
	})
	if err != nil {
		return fmt.Errorf("header style: %w", err)
	}

	players = slices.Clone(players)
	slices.SortStableFunc(players, func(a, b PlayerStats) int {
		if a.Rating != b.Rating {
			return b.Rating - a.Rating
		}
		return strings.Compare(strings.ToLower(a.Name), strings.ToLower(b.Name))
	})
	playerData := make([][]any, 0, len(players))
	for i, p := range players {
		playerData = append(playerData, []any{
			i + 1, p.Name, p.Rating, p.Wins, p.Losses, p.TotalGames,
			percent(p.WinRate), p.CurrentStreak, p.BestWinStreak,
			p.PointsFor, p.PointsAgainst, p.PointDifferential(),
		})
	}

	partnerships = slices.Clone(partnerships)
	slices.SortStableFunc(partnerships, func(a, b PartnershipStats) int {
		if a.Rating != b.Rating {
			return b.Rating - a.Rating
		}
		return strings.Compare(string(a.Key), string(b.Key))
	})
	pairData := make([][]any, 0, len(partnerships))
	for i, p := range partnerships {
		pairData = append(pairData, []any{
			i + 1, displayName(names, p.Player1ID), displayName(names, p.Player2ID),
			p.Rating, p.Wins, p.Losses, p.TotalGames,
			percent(p.WinRate), p.CurrentStreak, p.BestWinStreak,
		})
	}

	if err := writeSheet(f, playersSheet, playerHeader, playerData, headerStyle); err != nil {
		return err
	}
	if err := writeSheet(f, partnershipsSheet, partnershipHeader, pairData, headerStyle); err != nil {
		return err
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func writeSheet(f *excelize.File, sheet string, header []any, rows [][]any, headerStyle int) error {
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return fmt.Errorf("%s header: %w", sheet, err)
	}
	lastCol, err := excelize.ColumnNumberToName(len(header))
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(sheet, "A1", lastCol+"1", headerStyle); err != nil {
		return fmt.Errorf("%s header style: %w", sheet, err)
	}
	for idx, row := range rows {
		axis, err := excelize.CoordinatesToCellName(1, idx+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, axis, &row); err != nil {
			return fmt.Errorf("%s row %d: %w", sheet, idx+2, err)
		}
	}
	if err := f.SetColWidth(sheet, "B", "C", 20); err != nil {
		return err
	}
	return f.SetPanes(sheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	})
}

func percent(rate float64) float64 {
	return float64(int(rate*1000+0.5)) / 10
}

func displayName(names map[statsdomain.PlayerID]string, id statsdomain.PlayerID) string {
	if name, ok := names[id]; ok && name != "" {
		return name
	}
	return string(id)
}
