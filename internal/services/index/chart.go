package index

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"github.com/absingh/folio/internal/models"
)

// RenderChart renders the snapshot history as a PNG line chart of the index
// value over time, with the 100.00 base marked as a dashed reference line.
func (s *Service) RenderChart(ctx context.Context) ([]byte, error) {
	snaps, err := s.History(ctx)
	if err != nil {
		return nil, err
	}
	return renderIndexChart(snaps)
}

func renderIndexChart(snaps []*models.PortfolioSnapshot) ([]byte, error) {
	if len(snaps) < 2 {
		// A too-short history is the caller's state, not a render fault.
		return nil, models.NewConsistencyError("chart", nil,
			"need at least 2 snapshots, got %d", len(snaps))
	}

	xValues := make([]time.Time, len(snaps))
	indexY := make([]float64, len(snaps))
	baseY := make([]float64, len(snaps))

	for i, snap := range snaps {
		xValues[i] = snap.BusinessDate.Time()
		indexY[i] = snap.IndexValue
		baseY[i] = BaseIndexValue
	}

	indexSeries := chart.TimeSeries{
		Name: "Portfolio Index",
		Style: chart.Style{
			StrokeColor: drawing.ColorFromHex("2563eb"), // blue-600
			StrokeWidth: 2.5,
		},
		XValues: xValues,
		YValues: indexY,
	}

	baseSeries := chart.TimeSeries{
		Name: "Base (100)",
		Style: chart.Style{
			StrokeColor:     drawing.ColorFromHex("9ca3af"), // gray-400
			StrokeWidth:     1.5,
			StrokeDashArray: []float64{5.0, 3.0},
		},
		XValues: xValues,
		YValues: baseY,
	}

	graph := chart.Chart{
		Title:  "Portfolio Index Performance",
		Width:  900,
		Height: 400,
		Background: chart.Style{
			Padding: chart.Box{Top: 40, Left: 10, Right: 20, Bottom: 10},
		},
		XAxis: chart.XAxis{
			TickPosition: chart.TickPositionBetweenTicks,
			ValueFormatter: func(v interface{}) string {
				if t, ok := v.(float64); ok {
					return chart.TimeFromFloat64(t).Format("Jan 06")
				}
				return ""
			},
		},
		YAxis: chart.YAxis{
			ValueFormatter: func(v interface{}) string {
				if f, ok := v.(float64); ok {
					return fmt.Sprintf("%.1f", f)
				}
				return ""
			},
		},
		Series: []chart.Series{
			indexSeries,
			baseSeries,
		},
	}

	graph.Elements = []chart.Renderable{
		chart.LegendLeft(&graph),
	}

	var buf bytes.Buffer
	if err := graph.Render(chart.PNG, &buf); err != nil {
		return nil, fmt.Errorf("chart render failed: %w", err)
	}

	return buf.Bytes(), nil
}
