package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/YuminosukeSato/salesforecast/core/model"
	scierrors "github.com/YuminosukeSato/salesforecast/pkg/errors"
	"github.com/YuminosukeSato/salesforecast/tracking"
)

// timestampLayout is the YYYYMMDD_HHMMSS suffix of result files.
const timestampLayout = "20060102_150405"

type bestSummary struct {
	Name          string             `json:"name"`
	Metrics       map[string]float64 `json:"metrics"`
	CombinedScore float64            `json:"combined_score"`
	RunID         string             `json:"run_id"`
	Version       int                `json:"registered_version"`
}

type resultsFile struct {
	AllResults []ModelResult `json:"all_results"`
	BestModel  bestSummary   `json:"best_model"`
}

// writeResults saves training_results_<ts>.json and best_model_<name>_<ts>
// under opts.ResultsDir.
func writeResults(opts Options, res *Result) error {
	if err := os.MkdirAll(opts.ResultsDir, 0o755); err != nil {
		return scierrors.Wrapf(err, "create results dir %s", opts.ResultsDir)
	}
	stamp := opts.Now().Format(timestampLayout)

	payload := resultsFile{
		AllResults: res.All,
		BestModel: bestSummary{
			Name:          res.Best.ModelName,
			Metrics:       res.Best.Metrics,
			CombinedScore: res.Best.Score(),
			RunID:         res.Best.RunID,
			Version:       res.Registered.Version,
		},
	}
	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return scierrors.Wrap(err, "encode training results")
	}
	res.ResultsFile = filepath.Join(opts.ResultsDir, fmt.Sprintf("training_results_%s.json", stamp))
	if err := os.WriteFile(res.ResultsFile, data, 0o644); err != nil {
		return scierrors.Wrapf(err, "write %s", res.ResultsFile)
	}

	res.BestModelFile = filepath.Join(opts.ResultsDir,
		fmt.Sprintf("best_model_%s_%s%s", res.Best.ModelName, stamp, tracking.ModelArtifactExt))
	return model.SaveFile(res.Best.Model, res.BestModelFile)
}

// logCurve renders the per-round losses of m, if it kept any, and attaches
// the PNG to run.
func logCurve(ctx context.Context, run tracking.Run, name string, m model.Regressor) error {
	reporter, ok := m.(model.CurveReporter)
	if !ok {
		return nil
	}
	curve := reporter.Curve()
	if len(curve.Train) == 0 {
		return nil
	}

	dir, err := os.MkdirTemp("", "learning-curve-")
	if err != nil {
		return scierrors.Wrap(err, "create temp dir for learning curve")
	}
	defer os.RemoveAll(dir)

	path := filepath.Join(dir, tracking.LearningCurveArtifact)
	if err := tracking.RenderLearningCurve(curve, name, path); err != nil {
		return err
	}
	_, err = run.LogArtifact(ctx, tracking.LearningCurveArtifact, path)
	return err
}

// logImportance attaches the total split gain per feature of m, if it
// reports one, to run as JSON.
func logImportance(ctx context.Context, run tracking.Run, m model.Regressor) error {
	reporter, ok := m.(model.ImportanceReporter)
	if !ok {
		return nil
	}
	data, err := json.MarshalIndent(reporter.FeatureImportance(), "", "  ")
	if err != nil {
		return scierrors.Wrap(err, "encode feature importance")
	}

	dir, err := os.MkdirTemp("", "feature-importance-")
	if err != nil {
		return scierrors.Wrap(err, "create temp dir for feature importance")
	}
	defer os.RemoveAll(dir)

	path := filepath.Join(dir, tracking.FeatureImportanceArtifact)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return scierrors.Wrapf(err, "write %s", path)
	}
	_, err = run.LogArtifact(ctx, tracking.FeatureImportanceArtifact, path)
	return err
}
