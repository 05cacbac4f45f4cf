package snapshot

import (
	"bytes"
	"fmt"
	"time"

	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"github.com/bobmcallan/kessan/internal/models"
)

// MinChartPoints is the fewest closes a line chart can be drawn from.
const MinChartPoints = 2

// RenderPriceChart renders a PNG line chart of closing prices.
// Returns raw PNG bytes.
func RenderPriceChart(title string, history models.PriceHistory) ([]byte, error) {
	if len(history) < MinChartPoints {
		return nil, fmt.Errorf("need at least %d data points, got %d", MinChartPoints, len(history))
	}

	xValues := make([]time.Time, len(history))
	yValues := make([]float64, len(history))
	for i, p := range history {
		xValues[i] = p.Date
		yValues[i] = p.Close
	}

	closeSeries := chart.TimeSeries{
		Name: "Close",
		Style: chart.Style{
			StrokeColor: drawing.ColorFromHex("dc2626"), // red-600
			StrokeWidth: 2,
		},
		XValues: xValues,
		YValues: yValues,
	}

	graph := chart.Chart{
		Title:  title,
		Width:  900,
		Height: 360,
		Background: chart.Style{
			Padding: chart.Box{Top: 40, Left: 10, Right: 20, Bottom: 10},
		},
		XAxis: chart.XAxis{
			TickPosition: chart.TickPositionBetweenTicks,
			ValueFormatter: func(v interface{}) string {
				if t, ok := v.(float64); ok {
					return chart.TimeFromFloat64(t).Format("2006-01")
				}
				return ""
			},
		},
		YAxis: chart.YAxis{
			ValueFormatter: func(v interface{}) string {
				if f, ok := v.(float64); ok {
					return fmt.Sprintf("%.0f", f)
				}
				return ""
			},
		},
		Series: []chart.Series{closeSeries},
	}

	var buf bytes.Buffer
	if err := graph.Render(chart.PNG, &buf); err != nil {
		return nil, fmt.Errorf("chart render failed: %w", err)
	}

	return buf.Bytes(), nil
}
