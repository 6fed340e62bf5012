// Package config loads the YAML configuration shared by cmd/train and
// cmd/serve. Values come from built-in defaults, then the file, then
// SALES_* environment variables.
package config

import (
	"os"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/YuminosukeSato/salesforecast/dataset"
	"github.com/YuminosukeSato/salesforecast/pipeline"
	scierrors "github.com/YuminosukeSato/salesforecast/pkg/errors"
	"github.com/YuminosukeSato/salesforecast/pkg/log"
	"github.com/YuminosukeSato/salesforecast/train"
)

// Environment variables that override file values.
const (
	EnvTrackingDB = "SALES_TRACKING_DB"
	EnvExperiment = "SALES_EXPERIMENT_NAME"
	EnvDataDir    = "SALES_DATA_DIR"
	EnvLogLevel   = "SALES_LOG_LEVEL"
	EnvHTTPAddr   = "SALES_HTTP_ADDR"
)

// Data locates the snapshots and describes their columns.
type Data struct {
	Dir           string   `yaml:"dir"`
	Pattern       string   `yaml:"pattern"`
	Target        string   `yaml:"target"`
	Columns       []string `yaml:"columns"`
	TrainFraction float64  `yaml:"train_fraction"`
}

// Training lists the models to train and their shared parameters.
type Training struct {
	Models     []string           `yaml:"models"`
	Common     train.CommonParams `yaml:"common_params"`
	ResultsDir string             `yaml:"results_dir"`
}

// Tracking locates the experiment store.
type Tracking struct {
	DB             string `yaml:"db"`
	ArtifactRoot   string `yaml:"artifact_root"`
	Experiment     string `yaml:"experiment"`
	RegisteredName string `yaml:"registered_model"`
}

// Server configures the prediction API.
type Server struct {
	Addr string `yaml:"addr"`
}

// Config is the full configuration file.
type Config struct {
	Data     Data     `yaml:"data"`
	Training Training `yaml:"training"`
	Tracking Tracking `yaml:"tracking"`
	Server   Server   `yaml:"server"`
	LogLevel string   `yaml:"log_level"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		Data: Data{
			Dir:           "data",
			Pattern:       pipeline.DefaultPattern,
			Target:        pipeline.DefaultTarget,
			TrainFraction: dataset.DefaultTrainFraction,
		},
		Training: Training{
			Models:     train.Names(),
			Common:     train.DefaultCommonParams(),
			ResultsDir: pipeline.DefaultResultsDir,
		},
		Tracking: Tracking{
			DB:             "mlruns/tracking.db",
			ArtifactRoot:   "mlruns/artifacts",
			Experiment:     pipeline.DefaultExperiment,
			RegisteredName: pipeline.DefaultRegisteredName,
		},
		Server:   Server{Addr: ":8000"},
		LogLevel: "info",
	}
}

// Load reads path over the defaults and applies environment overrides. An
// empty path skips the file.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				return Config{}, scierrors.NewNotFoundError("config file", path)
			}
			return Config{}, scierrors.Wrapf(err, "read config %s", path)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, scierrors.Wrapf(err, "parse config %s", path)
		}
	}
	cfg.applyEnv(os.LookupEnv)
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) {
	for env, field := range map[string]*string{
		EnvTrackingDB: &c.Tracking.DB,
		EnvExperiment: &c.Tracking.Experiment,
		EnvDataDir:    &c.Data.Dir,
		EnvLogLevel:   &c.LogLevel,
		EnvHTTPAddr:   &c.Server.Addr,
	} {
		if v, ok := lookup(env); ok && strings.TrimSpace(v) != "" {
			*field = strings.TrimSpace(v)
		}
	}
}

// Validate checks model names, the split fraction and required fields.
func (c Config) Validate() error {
	if len(c.Training.Models) == 0 {
		return scierrors.NewValidationError("training.models", "at least one model is required", c.Training.Models)
	}
	for _, name := range c.Training.Models {
		if !slices.Contains(train.Names(), name) {
			return scierrors.NewUnknownModelError(name, train.Names())
		}
	}
	if !(c.Data.TrainFraction > 0 && c.Data.TrainFraction < 1) {
		return scierrors.NewValidationError("data.train_fraction", "must be in (0, 1)", c.Data.TrainFraction)
	}
	if c.Data.Target == "" {
		return scierrors.NewValidationError("data.target", "must not be empty", c.Data.Target)
	}
	if dataset.ValidatePattern(c.Data.Pattern) != nil {
		return scierrors.NewValidationError("data.pattern", "must be a file name glob with exactly one '*'", c.Data.Pattern)
	}
	if c.Tracking.Experiment == "" {
		return scierrors.NewValidationError("tracking.experiment", "must not be empty", c.Tracking.Experiment)
	}
	if c.Tracking.RegisteredName == "" {
		return scierrors.NewValidationError("tracking.registered_model", "must not be empty", c.Tracking.RegisteredName)
	}
	if _, err := log.ParseLevel(c.LogLevel); err != nil {
		return err
	}
	return c.Training.Common.Validate()
}

// PipelineOptions converts the configuration into pipeline options.
func (c Config) PipelineOptions() pipeline.Options {
	opts := pipeline.DefaultOptions()
	opts.DataDir = c.Data.Dir
	opts.Pattern = c.Data.Pattern
	opts.Target = c.Data.Target
	opts.Columns = c.Data.Columns
	opts.TrainFraction = c.Data.TrainFraction
	opts.Common = c.Training.Common
	opts.Models = c.Training.Models
	opts.Experiment = c.Tracking.Experiment
	opts.RegisteredName = c.Tracking.RegisteredName
	opts.ResultsDir = c.Training.ResultsDir
	return opts
}
