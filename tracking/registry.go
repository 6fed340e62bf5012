package tracking

import (
	"context"
	"strconv"

	"github.com/YuminosukeSato/salesforecast/core/model"
	scierrors "github.com/YuminosukeSato/salesforecast/pkg/errors"
	"github.com/YuminosukeSato/salesforecast/pkg/log"
)

// ModelArtifactPath is where the pipeline logs each run's model.
const ModelArtifactPath = "model"

// FallbackModelName names a model picked from experiment runs rather than
// the registry.
const FallbackModelName = "best_model_from_experiment"

// ModelInfo describes where a loaded model came from.
type ModelInfo struct {
	Name       string `json:"name"`
	Version    string `json:"version"`
	Stage      string `json:"stage,omitempty"`
	RunID      string `json:"run_id"`
	Experiment string `json:"experiment,omitempty"`
}

// LoadBest loads the latest registered version of name. When nothing is
// registered under name it falls back to the finished run of experiment with
// the lowest rmse.
func LoadBest(ctx context.Context, s *Store, experiment, name string) (model.Regressor, ModelInfo, error) {
	logger := log.GetLoggerWithName("tracking").With(log.OperationKey, log.OperationLoad)

	mv, err := s.LatestVersion(ctx, name)
	if err == nil {
		m, err := s.artifacts.LoadModel(mv.Source)
		if err != nil {
			return nil, ModelInfo{}, err
		}
		info := ModelInfo{
			Name:    mv.Name,
			Version: strconv.Itoa(mv.Version),
			Stage:   mv.Stage,
			RunID:   mv.RunID,
		}
		logger.Info("Loaded registered model", log.ModelNameKey, info.Name, log.ModelVersionKey, info.Version, log.RunIDKey, info.RunID)
		return m, info, nil
	}
	var nf *scierrors.NotFoundError
	if !scierrors.As(err, &nf) {
		return nil, ModelInfo{}, err
	}

	if experiment == "" {
		return nil, ModelInfo{}, scierrors.NewNotFoundError("registered model", name)
	}
	run, err := s.BestRun(ctx, experiment, "rmse")
	if err != nil {
		return nil, ModelInfo{}, err
	}
	m, err := s.artifacts.LoadModel(URI(run.ID, ModelArtifactPath+ModelArtifactExt))
	if err != nil {
		return nil, ModelInfo{}, err
	}
	info := ModelInfo{
		Name:       FallbackModelName,
		Version:    "N/A",
		RunID:      run.ID,
		Experiment: experiment,
	}
	logger.Warn("No registered model, using best experiment run",
		log.ModelNameKey, name,
		log.ExperimentKey, experiment,
		log.RunIDKey, run.ID,
	)
	return m, info, nil
}
