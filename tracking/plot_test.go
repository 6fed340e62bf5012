package tracking

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YuminosukeSato/salesforecast/core/model"
)

func TestRenderLearningCurve(t *testing.T) {
	path := filepath.Join(t.TempDir(), LearningCurveArtifact)
	curve := model.LearningCurve{
		Metric: "rmse",
		Train:  []float64{3, 2, 1.5, 1.2},
		Valid:  []float64{3.2, 2.4, 2.0, 2.1},
	}
	require.NoError(t, RenderLearningCurve(curve, "xgboost", path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Greater(t, len(data), 8)
	assert.Equal(t, "\x89PNG", string(data[:4]))
}

func TestRenderLearningCurveTrainOnly(t *testing.T) {
	path := filepath.Join(t.TempDir(), "curve.png")
	curve := model.LearningCurve{Metric: "l2", Train: []float64{1, 0.5}}
	assert.NoError(t, RenderLearningCurve(curve, "lgbm", path))
}

func TestRenderLearningCurveEmpty(t *testing.T) {
	err := RenderLearningCurve(model.LearningCurve{}, "lgbm", filepath.Join(t.TempDir(), "c.png"))
	assert.Error(t, err)
}
