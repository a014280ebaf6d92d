package training

import (
	"fmt"
	"image/color"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

// ConfusionCharts writes one bar chart per label showing TN, FP, FN and TP counts.
// It returns the written file paths in label order.
func ConfusionCharts(dir string, r *Result) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}

	var paths []string
	for i, l := range r.Evaluation.Labels {
		p := plot.New()
		p.Title.Text = "Confusion Matrix for:\n" + shorten(l.Label)
		p.Title.TextStyle.Font.Size = vg.Points(10)
		p.Y.Label.Text = "Rows"

		c := l.Confusion
		values := plotter.Values{float64(c.TN), float64(c.FP), float64(c.FN), float64(c.TP)}
		bars, err := plotter.NewBarChart(values, vg.Points(30))
		if err != nil {
			return paths, err
		}
		bars.Color = color.RGBA{R: 70, G: 130, B: 180, A: 255}
		bars.LineStyle.Width = vg.Length(0)
		p.Add(bars)
		p.NominalX("TN", "FP", "FN", "TP")
		p.Y.Min = 0

		path := filepath.Join(dir, fmt.Sprintf("confusion_%02d.png", i+1))
		if err := p.Save(4*vg.Inch, 4*vg.Inch, path); err != nil {
			return paths, err
		}
		paths = append(paths, path)
	}
	zap.L().Info("confusion charts written", zap.String("dir", dir), zap.Int("charts", len(paths)))
	return paths, nil
}
