package tracking

import (
	"context"
	"encoding/gob"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/salesforecast/core/model"
)

// biasModel predicts a constant.
type biasModel struct {
	model.BaseEstimator
	Bias float64
}

func (b *biasModel) Predict(X mat.Matrix) (*mat.VecDense, error) {
	if err := b.CheckFitted("biasModel", "Predict"); err != nil {
		return nil, err
	}
	r, _ := X.Dims()
	out := mat.NewVecDense(r, nil)
	for i := 0; i < r; i++ {
		out.SetVec(i, b.Bias)
	}
	return out, nil
}

func init() {
	gob.Register(&biasModel{})
}

func newBias(v float64) *biasModel {
	m := &biasModel{Bias: v}
	m.SetFitted()
	return m
}

func openStore(t *testing.T) *Store {
	t.Helper()
	dir := t.TempDir()
	s, err := Open(context.Background(), filepath.Join(dir, "tracking.db"), filepath.Join(dir, "artifacts"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

// finishedRun logs a model and an rmse and ends the run with status.
func finishedRun(t *testing.T, s *Store, experiment, name string, rmse float64, status RunStatus) (Run, string) {
	t.Helper()
	ctx := context.Background()
	run, err := s.StartRun(ctx, experiment, name)
	require.NoError(t, err)
	require.NoError(t, run.LogMetric(ctx, "rmse", rmse))
	uri, err := run.LogModel(ctx, newBias(rmse), ModelArtifactPath)
	require.NoError(t, err)
	require.NoError(t, run.End(ctx, status))
	return run, uri
}

func predictOne(t *testing.T, m model.Regressor) float64 {
	t.Helper()
	pred, err := m.Predict(mat.NewDense(1, 1, []float64{0}))
	require.NoError(t, err)
	return pred.AtVec(0)
}
