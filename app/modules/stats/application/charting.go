package statsservice

import (
	"bytes"
	"context"
	"time"

	statsdomain "github.com/YuTeChang/VibeBadminton-sub000/app/modules/stats/domain"
	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"
)

// ChartPalette holds the colors of a rendered chart.
type ChartPalette struct {
	Background  drawing.Color
	PrimaryLine drawing.Color
	AccentLine  drawing.Color
	FloorLine   drawing.Color
	TextColor   drawing.Color
}

// DefaultChartPalette is a light court-green theme.
var DefaultChartPalette = ChartPalette{
	Background:  drawing.ColorFromHex("f7f9f4"),
	PrimaryLine: drawing.ColorFromHex("2e7d32"),
	AccentLine:  drawing.ColorFromHex("f9a825"),
	FloorLine:   drawing.ColorFromHex("b0bec5"),
	TextColor:   drawing.ColorFromHex("263238"),
}

// RatingHistoryChart renders a player's rating over time as a PNG.
func (s *StatsService) RatingHistoryChart(ctx context.Context, groupID statsdomain.GroupID, playerID statsdomain.PlayerID, since time.Time) ([]byte, error) {
	return withTelemetry(s, ctx, "RatingHistoryChart", groupID, func(ctx context.Context) ([]byte, error) {
		points, err := s.ratingHistory(ctx, groupID, playerID, since)
		if err != nil {
			return nil, err
		}
		return GenerateRatingHistoryChart(points, DefaultChartPalette)
	})
}

// GenerateRatingHistoryChart draws the rating after each result. The first point is
// the rating before the earliest result so a single game still draws a line.
func GenerateRatingHistoryChart(history []RatingPoint, palette ChartPalette) ([]byte, error) {
	if len(history) == 0 {
		return renderNoDataPlaceholder(palette)
	}

	xValues := make([]time.Time, 0, len(history)+1)
	yValues := make([]float64, 0, len(history)+1)

	first := history[0]
	xValues = append(xValues, first.At.Add(-time.Minute))
	yValues = append(yValues, float64(first.RatingBefore))
	for _, p := range history {
		xValues = append(xValues, p.At)
		yValues = append(yValues, float64(p.RatingAfter))
	}

	ratingSeries := chart.TimeSeries{
		Name:    "Rating",
		XValues: xValues,
		YValues: yValues,
		Style: chart.Style{
			StrokeColor: palette.PrimaryLine,
			StrokeWidth: 2,
			DotWidth:    4,
			DotColor:    palette.AccentLine,
		},
	}

	baseline := chart.TimeSeries{
		Name:    "Starting rating",
		XValues: []time.Time{xValues[0], xValues[len(xValues)-1]},
		YValues: []float64{statsdomain.DefaultRating, statsdomain.DefaultRating},
		Style: chart.Style{
			StrokeColor:     palette.FloorLine,
			StrokeWidth:     1,
			StrokeDashArray: []float64{4, 4},
		},
	}

	graph := chart.Chart{
		Width:  800,
		Height: 400,
		Background: chart.Style{
			FillColor: palette.Background,
		},
		Canvas: chart.Style{
			FillColor: palette.Background,
		},
		XAxis: chart.XAxis{
			Name:           "Date",
			ValueFormatter: chart.TimeValueFormatterWithFormat("2006-01-02"),
			Style: chart.Style{
				FontColor: palette.TextColor,
			},
		},
		YAxis: chart.YAxis{
			Name: "Rating",
			Style: chart.Style{
				FontColor: palette.TextColor,
			},
		},
		Series: []chart.Series{baseline, ratingSeries},
	}

	buffer := bytes.NewBuffer([]byte{})
	if err := graph.Render(chart.PNG, buffer); err != nil {
		return nil, err
	}
	return buffer.Bytes(), nil
}

func renderNoDataPlaceholder(palette ChartPalette) ([]byte, error) {
	const (
		width  = 400
		height = 200
		msg    = "No rated games yet"
	)

	graph := chart.Chart{
		Width:  width,
		Height: height,
		Background: chart.Style{
			FillColor: palette.Background,
		},
		Canvas: chart.Style{
			FillColor: palette.Background,
		},
		XAxis: chart.XAxis{Style: chart.Hidden()},
		YAxis: chart.YAxis{Style: chart.Hidden()},
		// Render refuses a chart without a visible series.
		Series: []chart.Series{
			chart.ContinuousSeries{
				XValues: []float64{0, 1},
				YValues: []float64{0, 1},
				Style:   chart.Style{StrokeColor: drawing.ColorTransparent},
			},
		},
		Elements: []chart.Renderable{
			func(r chart.Renderer, cb chart.Box, _ chart.Style) {
				r.SetFontColor(palette.TextColor)
				r.SetFontSize(12.0)
				tb := r.MeasureText(msg)
				x := (cb.Width() - tb.Width()) / 2
				y := (cb.Height() + tb.Height()) / 2
				r.Text(msg, x, y)
			},
		},
	}
	buffer := bytes.NewBuffer([]byte{})
	if err := graph.Render(chart.PNG, buffer); err != nil {
		return nil, err
	}
	return buffer.Bytes(), nil
}
