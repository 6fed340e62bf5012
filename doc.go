// Package salesforecast trains and serves daily sales-forecasting
// regressors.
//
// A training run takes the newest numbered snapshot of the sales table,
// splits it in time order (first 80% train, last 20% validation), fits three
// gradient-boosting regressors and scores each on the validation rows. Every
// model is logged to a local tracking store; only the one with the lowest
// composite score is registered as "BestRegressionModel". The prediction
// server loads that registered model and answers JSON requests.
//
// # Quick Start
//
//	go run ./cmd/train -config configs/config.yaml
//	go run ./cmd/serve -config configs/config.yaml
//
//	curl -s localhost:8000/api/predict -d '{"sell_price": 2.5, "sold_lag_1": 3, ...}'
//
// The pipeline can also be driven from Go:
//
//	store, err := tracking.Open(ctx, "mlruns/tracking.db", "mlruns/artifacts")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer store.Close()
//
//	res, err := pipeline.Run(ctx, pipeline.DefaultOptions(), store)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println("best:", res.Best.ModelName, res.Best.Score())
//
// # Packages
//
//   - dataset: snapshot discovery, codecs (gob, xz-gob, npy), temporal split, target separation
//   - gbdt: trees, binning, histogram split search, the boosting loop
//   - gbdt/leafwise, gbdt/symmetric, gbdt/histogram: the lgbm, catboost and xgboost engines
//   - train: model tokens, hyperparameter profiles, dispatcher
//   - metrics: RMSE, MSE, MAE, R² and the composite score
//   - tracking: SQLite run store, model registry, artifacts, learning-curve plots
//   - pipeline: the train, evaluate, select, register driver
//   - serve: the prediction HTTP API
//   - config: YAML configuration with SALES_* environment overrides
//   - core/model, core/parallel, pkg/errors, pkg/log: shared infrastructure
//
// # Composite score
//
//	0.4·RMSE + 0.3·MAE + 0.2·MSE + 0.1·(1 − R²)
//
// Lower is better. When two models score the same, the one trained first
// wins.
package salesforecast
