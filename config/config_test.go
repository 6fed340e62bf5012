package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	scierrors "github.com/YuminosukeSato/salesforecast/pkg/errors"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
	assert.Equal(t, []string{"lgbm", "catboost", "xgboost"}, cfg.Training.Models)
	assert.Equal(t, 0.8, cfg.Data.TrainFraction)
	assert.Equal(t, "BestRegressionModel", cfg.Tracking.RegisteredName)
}

func TestLoadFileOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
data:
  dir: /srv/data
  pattern: "store_*.npy"
  columns: [sell_price, sold_lag_1, sold]
  train_fraction: 0.75
training:
  models: [xgboost, lgbm]
  common_params:
    learning_rate: 0.1
    n_estimators: 200
    random_state: 7
    time_limit: 90s
tracking:
  experiment: nightly
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/srv/data", cfg.Data.Dir)
	assert.Equal(t, "store_*.npy", cfg.Data.Pattern)
	assert.Equal(t, []string{"sell_price", "sold_lag_1", "sold"}, cfg.Data.Columns)
	assert.Equal(t, 0.75, cfg.Data.TrainFraction)
	assert.Equal(t, []string{"xgboost", "lgbm"}, cfg.Training.Models)
	assert.Equal(t, 0.1, cfg.Training.Common.LearningRate)
	assert.Equal(t, 200, cfg.Training.Common.NEstimators)
	assert.Equal(t, int64(7), cfg.Training.Common.RandomState)
	assert.Equal(t, 90*time.Second, cfg.Training.Common.TimeLimit)
	assert.Equal(t, "nightly", cfg.Tracking.Experiment)

	// untouched sections keep their defaults
	assert.Equal(t, "sold", cfg.Data.Target)
	assert.Equal(t, ":8000", cfg.Server.Addr)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	path := writeConfig(t, "tracking:\n  experiment: from_file\n")
	t.Setenv(EnvExperiment, "from_env")
	t.Setenv(EnvTrackingDB, "/tmp/t.db")
	t.Setenv(EnvDataDir, "/data")
	t.Setenv(EnvLogLevel, "debug")
	t.Setenv(EnvHTTPAddr, "127.0.0.1:9000")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "from_env", cfg.Tracking.Experiment)
	assert.Equal(t, "/tmp/t.db", cfg.Tracking.DB)
	assert.Equal(t, "/data", cfg.Data.Dir)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "127.0.0.1:9000", cfg.Server.Addr)
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	var nf *scierrors.NotFoundError
	assert.True(t, scierrors.As(err, &nf))

	_, err = Load(writeConfig(t, "data: [unclosed"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		check  func(*testing.T, error)
	}{
		{"unknown model", func(c *Config) { c.Training.Models = []string{"lgbm", "svm"} }, func(t *testing.T, err error) {
			var um *scierrors.UnknownModelError
			require.True(t, scierrors.As(err, &um))
			assert.Equal(t, "svm", um.Name)
		}},
		{"case sensitive model", func(c *Config) { c.Training.Models = []string{"LGBM"} }, func(t *testing.T, err error) {
			var um *scierrors.UnknownModelError
			assert.True(t, scierrors.As(err, &um))
		}},
		{"no models", func(c *Config) { c.Training.Models = nil }, isValidation("training.models")},
		{"fraction zero", func(c *Config) { c.Data.TrainFraction = 0 }, isValidation("data.train_fraction")},
		{"fraction one", func(c *Config) { c.Data.TrainFraction = 1 }, isValidation("data.train_fraction")},
		{"empty target", func(c *Config) { c.Data.Target = "" }, isValidation("data.target")},
		{"pattern without star", func(c *Config) { c.Data.Pattern = "CA_1.npy" }, isValidation("data.pattern")},
		{"pattern with two stars", func(c *Config) { c.Data.Pattern = "CA_*_*.npy" }, isValidation("data.pattern")},
		{"pattern with directory", func(c *Config) { c.Data.Pattern = "data/CA_1_*.npy" }, isValidation("data.pattern")},
		{"pattern with class", func(c *Config) { c.Data.Pattern = "CA_[12]_*.npy" }, isValidation("data.pattern")},
		{"empty registered model", func(c *Config) { c.Tracking.RegisteredName = "" }, isValidation("tracking.registered_model")},
		{"bad log level", func(c *Config) { c.LogLevel = "loud" }, isValidation("log_level")},
		{"bad learning rate", func(c *Config) { c.Training.Common.LearningRate = 0 }, isValidation("learning_rate")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			tt.check(t, cfg.Validate())
		})
	}
}

func isValidation(param string) func(*testing.T, error) {
	return func(t *testing.T, err error) {
		var ve *scierrors.ValidationError
		require.True(t, scierrors.As(err, &ve), "got %v", err)
		assert.Equal(t, param, ve.ParamName)
	}
}

func TestPipelineOptions(t *testing.T) {
	cfg := Default()
	cfg.Data.Dir = "/srv/data"
	cfg.Training.Models = []string{"catboost"}
	cfg.Tracking.RegisteredName = "Nightly"

	opts := cfg.PipelineOptions()
	assert.Equal(t, "/srv/data", opts.DataDir)
	assert.Equal(t, []string{"catboost"}, opts.Models)
	assert.Equal(t, "Nightly", opts.RegisteredName)
	assert.Equal(t, cfg.Training.Common, opts.Common)
	assert.Equal(t, cfg.Training.ResultsDir, opts.ResultsDir)
}
