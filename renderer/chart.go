package renderer

import (
	"fmt"
	"io"
	"time"

	"github.com/etnz/folio"
	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"
)

// TrendChart renders the closes of a trend, their moving average and the
// crossovers as a PNG line chart.
func TrendChart(w io.Writer, t *folio.Trend) error {
	if len(t.Closes) < 2 {
		return fmt.Errorf("cannot chart %s: need at least 2 trading days, got %d", t.Ticker, len(t.Closes))
	}

	days := make([]time.Time, len(t.Closes))
	for i, c := range t.Closes {
		days[i] = c.Date.Time()
	}
	closes := t.Closes.Floats()

	var marks []chart.Value2
	for _, x := range t.Crossovers {
		i := 0
		for i < len(t.Closes)-1 && t.Closes[i].Date.Before(x.Date) {
			i++
		}
		marks = append(marks, chart.Value2{
			XValue: chart.TimeToFloat64(days[i]),
			YValue: closes[i],
			Label:  string(x.Signal),
		})
	}

	graph := chart.Chart{
		Title:  fmt.Sprintf("%s and its %d days average", t.Ticker, t.Window),
		Width:  900,
		Height: 400,
		Background: chart.Style{
			Padding: chart.Box{Top: 40, Left: 10, Right: 20, Bottom: 10},
		},
		XAxis: chart.XAxis{
			ValueFormatter: func(v interface{}) string {
				if f, ok := v.(float64); ok {
					return chart.TimeFromFloat64(f).Format("2006-01-02")
				}
				return ""
			},
		},
		Series: []chart.Series{
			chart.TimeSeries{
				Name:    "Close",
				Style:   chart.Style{StrokeColor: drawing.ColorFromHex("2563eb"), StrokeWidth: 2},
				XValues: days,
				YValues: closes,
			},
			chart.TimeSeries{
				Name: fmt.Sprintf("%d days average", t.Window),
				Style: chart.Style{
					StrokeColor:     drawing.ColorFromHex("9ca3af"),
					StrokeWidth:     1.5,
					StrokeDashArray: []float64{5.0, 3.0},
				},
				XValues: days,
				YValues: t.Average,
			},
		},
	}
	if len(marks) > 0 {
		graph.Series = append(graph.Series, chart.AnnotationSeries{Name: "Crossovers", Annotations: marks})
	}
	graph.Elements = []chart.Renderable{chart.LegendLeft(&graph)}

	if err := graph.Render(chart.PNG, w); err != nil {
		return fmt.Errorf("cannot render %s chart: %w", t.Ticker, err)
	}
	return nil
}
