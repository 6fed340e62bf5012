package tracking

import (
	"image/color"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/YuminosukeSato/salesforecast/core/model"
	scierrors "github.com/YuminosukeSato/salesforecast/pkg/errors"
)

// LearningCurveArtifact is the artifact name used for learning-curve plots.
const LearningCurveArtifact = "learning_curve.png"

// FeatureImportanceArtifact is the JSON map of split gain per feature.
const FeatureImportanceArtifact = "feature_importance.json"

var (
	trainColor = color.RGBA{R: 31, G: 119, B: 180, A: 255}
	validColor = color.RGBA{R: 255, G: 127, B: 14, A: 255}
)

// RenderLearningCurve draws the per-round train and validation loss to a PNG.
func RenderLearningCurve(curve model.LearningCurve, title, path string) error {
	if len(curve.Train) == 0 {
		return scierrors.NewValueError("RenderLearningCurve", "learning curve is empty")
	}

	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "iteration"
	p.Y.Label.Text = curve.Metric
	p.Add(plotter.NewGrid())

	for _, series := range []struct {
		name   string
		values []float64
		color  color.Color
	}{
		{"train", curve.Train, trainColor},
		{"valid", curve.Valid, validColor},
	} {
		if len(series.values) == 0 {
			continue
		}
		pts := make(plotter.XYs, len(series.values))
		for i, v := range series.values {
			pts[i].X = float64(i + 1)
			pts[i].Y = v
		}
		line, err := plotter.NewLine(pts)
		if err != nil {
			return scierrors.Wrapf(err, "plot %s curve", series.name)
		}
		line.LineStyle.Color = series.color
		line.LineStyle.Width = vg.Points(1.5)
		p.Add(line)
		p.Legend.Add(series.name, line)
	}
	p.Legend.Top = true

	if err := p.Save(6*vg.Inch, 4*vg.Inch, path); err != nil {
		return scierrors.Wrapf(err, "save learning curve %s", path)
	}
	return nil
}
