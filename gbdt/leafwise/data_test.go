package leafwise

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/salesforecast/gbdt"
	"github.com/YuminosukeSato/salesforecast/pkg/log"
)

// synthetic returns rows where y = 3·x0 + 5·[x1 > 0.5] with a deterministic
// wobble on x2, which carries no signal.
func synthetic(n, offset int) gbdt.Dataset {
	X := mat.NewDense(n, 3, nil)
	y := make([]float64, n)
	for k := 0; k < n; k++ {
		i := k + offset
		x0 := float64(i%17) / 17
		x1 := float64(i%11) / 11
		x2 := math.Sin(float64(i))
		X.SetRow(k, []float64{x0, x1, x2})
		y[k] = 3 * x0
		if x1 > 0.5 {
			y[k] += 5
		}
	}
	return gbdt.Dataset{Names: []string{"x0", "x1", "x2"}, X: X, Y: y}
}

func testConfig(algorithm string) gbdt.Config {
	return gbdt.Config{
		Algorithm:           algorithm,
		NumRounds:           200,
		LearningRate:        0.1,
		Subsample:           1,
		ColsampleByTree:     1,
		MaxBin:              64,
		EarlyStoppingRounds: 10,
		Metric:              gbdt.MetricRMSE,
		Seed:                42,
		Logger:              log.NewTestLogger(log.LevelWarn),
	}
}

// baselineRMSE is the RMSE of predicting the training mean.
func baselineRMSE(train, valid gbdt.Dataset) float64 {
	var mean float64
	for _, v := range train.Y {
		mean += v
	}
	mean /= float64(len(train.Y))
	var sum float64
	for _, v := range valid.Y {
		sum += (v - mean) * (v - mean)
	}
	return math.Sqrt(sum / float64(len(valid.Y)))
}

func rmseOf(pred *mat.VecDense, y []float64) float64 {
	var sum float64
	for i, v := range y {
		d := pred.AtVec(i) - v
		sum += d * d
	}
	return math.Sqrt(sum / float64(len(y)))
}
