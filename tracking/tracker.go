// Package tracking records training runs, their parameters, metrics and
// artifacts, and keeps a registry of named model versions. The default
// implementation is a SQLite database next to a directory of artifacts.
package tracking

import (
	"context"
	"time"

	"github.com/YuminosukeSato/salesforecast/core/model"
)

// RunStatus is the lifecycle state of a run.
type RunStatus string

// Run states.
const (
	StatusRunning  RunStatus = "RUNNING"
	StatusFinished RunStatus = "FINISHED"
	StatusFailed   RunStatus = "FAILED"
)

// Tracker starts runs and registers models.
type Tracker interface {
	StartRun(ctx context.Context, experiment, runName string) (Run, error)
	RegisterModel(ctx context.Context, artifactURI, name string) (ModelVersion, error)
}

// Run collects everything logged for one trained model.
type Run interface {
	ID() string
	LogParam(ctx context.Context, key string, value any) error
	LogParams(ctx context.Context, params map[string]any) error
	LogMetric(ctx context.Context, key string, value float64) error
	LogMetrics(ctx context.Context, metrics map[string]float64) error
	// LogModel stores m as an artifact under path and returns its URI.
	LogModel(ctx context.Context, m model.Regressor, path string) (string, error)
	// LogArtifact copies a local file into the run's artifacts.
	LogArtifact(ctx context.Context, name, localPath string) (string, error)
	End(ctx context.Context, status RunStatus) error
}

// ModelVersion is one registered version of a named model.
type ModelVersion struct {
	Name      string    `json:"name"`
	Version   int       `json:"version"`
	RunID     string    `json:"run_id"`
	Source    string    `json:"source"`
	Stage     string    `json:"stage"`
	CreatedAt time.Time `json:"created_at"`
}

// RunInfo is a stored run.
type RunInfo struct {
	ID         string
	Experiment string
	Name       string
	Status     RunStatus
	StartTime  time.Time
	EndTime    time.Time
	Params     map[string]string
	Metrics    map[string]float64
}

// StageNone is the stage of a freshly registered version.
const StageNone = "None"
