package metrics

import (
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/salesforecast/core/model"
	scierrors "github.com/YuminosukeSato/salesforecast/pkg/errors"
)

// 複合スコアの重み。値が小さいほど良いモデル。
const (
	WeightRMSE = 0.4
	WeightMAE  = 0.3
	WeightMSE  = 0.2
	WeightR2   = 0.1
)

// Map のキー
const (
	KeyRMSE     = "rmse"
	KeyMSE      = "mse"
	KeyMAE      = "mae"
	KeyR2       = "r2"
	KeyCombined = "combined_metric"
)

// Record はひとつの学習済みモデルに対する検証スコア
type Record struct {
	RMSE float64 `json:"rmse"`
	MSE  float64 `json:"mse"`
	MAE  float64 `json:"mae"`
	R2   float64 `json:"r2"`
}

// Composite は 0.4·RMSE + 0.3·MAE + 0.2·MSE + 0.1·(1−R²) を返す
func (r Record) Composite() float64 {
	return WeightRMSE*r.RMSE + WeightMAE*r.MAE + WeightMSE*r.MSE + WeightR2*(1-r.R2)
}

// Map はトラッキングに記録する指標名と値の組を返す
func (r Record) Map() map[string]float64 {
	return map[string]float64{
		KeyRMSE:     r.RMSE,
		KeyMSE:      r.MSE,
		KeyMAE:      r.MAE,
		KeyR2:       r.R2,
		KeyCombined: r.Composite(),
	}
}

// FromPredictions は予測済みのベクトルから Record を作る
func FromPredictions(yTrue, yPred *mat.VecDense) (Record, error) {
	mse, err := MSE(yTrue, yPred)
	if err != nil {
		return Record{}, err
	}
	mae, err := MAE(yTrue, yPred)
	if err != nil {
		return Record{}, err
	}
	r2, err := R2Score(yTrue, yPred)
	if err != nil {
		return Record{}, err
	}
	rmse, err := RMSE(yTrue, yPred)
	if err != nil {
		return Record{}, err
	}
	return Record{RMSE: rmse, MSE: mse, MAE: mae, R2: r2}, nil
}

// Evaluate はモデルで X を一度だけ予測し、y に対する Record を返す
func Evaluate(m model.Regressor, X mat.Matrix, y *mat.VecDense) (Record, error) {
	if m == nil {
		return Record{}, scierrors.NewValueError("Evaluate", "model is nil")
	}
	if y == nil || y.Len() == 0 {
		return Record{}, scierrors.NewMetricUndefinedError("rmse", "empty validation set")
	}
	rows, _ := X.Dims()
	if rows != y.Len() {
		return Record{}, scierrors.NewDimensionError("Evaluate", y.Len(), rows, 0)
	}

	pred, err := m.Predict(X)
	if err != nil {
		return Record{}, scierrors.Wrap(err, "predict on validation set")
	}
	// NaN が混じると全指標が NaN になり選択が壊れる
	if err := scierrors.CheckNumericalStability("validation_prediction", pred.RawVector().Data, -1); err != nil {
		return Record{}, err
	}
	return FromPredictions(y, pred)
}
