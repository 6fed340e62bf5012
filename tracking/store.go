package tracking

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3" // database/sql driver "sqlite3"

	"github.com/YuminosukeSato/salesforecast/core/model"
	scierrors "github.com/YuminosukeSato/salesforecast/pkg/errors"
	"github.com/YuminosukeSato/salesforecast/pkg/log"
)

const schema = `
CREATE TABLE IF NOT EXISTS experiments (
	experiment_id INTEGER PRIMARY KEY AUTOINCREMENT,
	name          TEXT NOT NULL UNIQUE,
	created_at    INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS runs (
	run_id        TEXT PRIMARY KEY,
	experiment_id INTEGER NOT NULL REFERENCES experiments(experiment_id),
	run_name      TEXT NOT NULL,
	status        TEXT NOT NULL,
	start_time    INTEGER NOT NULL,
	end_time      INTEGER
);
CREATE TABLE IF NOT EXISTS params (
	run_id TEXT NOT NULL REFERENCES runs(run_id),
	key    TEXT NOT NULL,
	value  TEXT NOT NULL,
	PRIMARY KEY (run_id, key)
);
CREATE TABLE IF NOT EXISTS metrics (
	run_id    TEXT NOT NULL REFERENCES runs(run_id),
	key       TEXT NOT NULL,
	value     REAL NOT NULL,
	timestamp INTEGER NOT NULL,
	PRIMARY KEY (run_id, key)
);
CREATE TABLE IF NOT EXISTS registered_models (
	name       TEXT PRIMARY KEY,
	created_at INTEGER NOT NULL,
	updated_at INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS model_versions (
	name       TEXT NOT NULL REFERENCES registered_models(name),
	version    INTEGER NOT NULL,
	run_id     TEXT NOT NULL REFERENCES runs(run_id),
	source     TEXT NOT NULL,
	stage      TEXT NOT NULL,
	created_at INTEGER NOT NULL,
	PRIMARY KEY (name, version)
);
`

// Store is a Tracker backed by SQLite and an ArtifactStore.
type Store struct {
	db        *sql.DB
	artifacts *ArtifactStore
	logger    log.Logger
	now       func() time.Time

	// SQLite allows one writer; registering reads then writes the version.
	mu sync.Mutex
}

var _ Tracker = (*Store)(nil)

// Open opens (creating if needed) the tracking database at dbPath and the
// artifact directory at artifactRoot.
func Open(ctx context.Context, dbPath, artifactRoot string) (*Store, error) {
	artifacts, err := NewArtifactStore(artifactRoot)
	if err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_busy_timeout=5000")
	if err != nil {
		return nil, scierrors.Wrapf(err, "open tracking db %s", dbPath)
	}
	db.SetMaxOpenConns(1)
	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, scierrors.Wrap(err, "create tracking schema")
	}
	return &Store{
		db:        db,
		artifacts: artifacts,
		logger:    log.GetLoggerWithName("tracking"),
		now:       time.Now,
	}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Artifacts returns the artifact store.
func (s *Store) Artifacts() *ArtifactStore { return s.artifacts }

func (s *Store) experimentID(ctx context.Context, name string, create bool) (int64, error) {
	var id int64
	err := s.db.QueryRowContext(ctx, `SELECT experiment_id FROM experiments WHERE name = ?`, name).Scan(&id)
	switch {
	case err == nil:
		return id, nil
	case err != sql.ErrNoRows:
		return 0, scierrors.Wrapf(err, "look up experiment %s", name)
	case !create:
		return 0, scierrors.NewNotFoundError("experiment", name)
	}
	res, err := s.db.ExecContext(ctx, `INSERT INTO experiments (name, created_at) VALUES (?, ?)`, name, s.now().UnixMilli())
	if err != nil {
		return 0, scierrors.Wrapf(err, "create experiment %s", name)
	}
	return res.LastInsertId()
}

// StartRun implements Tracker.
func (s *Store) StartRun(ctx context.Context, experiment, runName string) (Run, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	expID, err := s.experimentID(ctx, experiment, true)
	if err != nil {
		return nil, err
	}
	id := uuid.NewString()
	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (run_id, experiment_id, run_name, status, start_time) VALUES (?, ?, ?, ?, ?)`,
		id, expID, runName, string(StatusRunning), s.now().UnixMilli(),
	); err != nil {
		return nil, scierrors.Wrapf(err, "start run %s", runName)
	}
	s.logger.Info("Run started", log.ExperimentKey, experiment, log.RunIDKey, id, log.ModelNameKey, runName)
	return &sqlRun{store: s, id: id}, nil
}

// RegisterModel implements Tracker. The first registration of a name creates
// it; each call adds the next version.
func (s *Store) RegisterModel(ctx context.Context, artifactURI, name string) (ModelVersion, error) {
	runID, _, err := ParseURI(artifactURI)
	if err != nil {
		return ModelVersion{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return ModelVersion{}, scierrors.Wrap(err, "begin register transaction")
	}
	defer tx.Rollback() //nolint:errcheck

	var exists int
	if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM runs WHERE run_id = ?`, runID).Scan(&exists); err != nil {
		return ModelVersion{}, scierrors.Wrap(err, "look up run")
	}
	if exists == 0 {
		return ModelVersion{}, scierrors.NewNotFoundError("run", runID)
	}

	now := s.now()
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO registered_models (name, created_at, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(name) DO UPDATE SET updated_at = excluded.updated_at`,
		name, now.UnixMilli(), now.UnixMilli(),
	); err != nil {
		return ModelVersion{}, scierrors.Wrapf(err, "register model %s", name)
	}

	var version int
	if err := tx.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(version), 0) + 1 FROM model_versions WHERE name = ?`, name,
	).Scan(&version); err != nil {
		return ModelVersion{}, scierrors.Wrap(err, "next model version")
	}

	mv := ModelVersion{Name: name, Version: version, RunID: runID, Source: artifactURI, Stage: StageNone, CreatedAt: time.UnixMilli(now.UnixMilli())}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO model_versions (name, version, run_id, source, stage, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		mv.Name, mv.Version, mv.RunID, mv.Source, mv.Stage, now.UnixMilli(),
	); err != nil {
		return ModelVersion{}, scierrors.Wrapf(err, "create version of %s", name)
	}
	if err := tx.Commit(); err != nil {
		return ModelVersion{}, scierrors.Wrap(err, "commit registration")
	}

	s.logger.Info("Model registered",
		log.ModelNameKey, name,
		log.ModelVersionKey, version,
		log.RunIDKey, runID,
		log.OperationKey, log.OperationRegister,
	)
	return mv, nil
}

// LatestVersion returns the highest version registered under name.
func (s *Store) LatestVersion(ctx context.Context, name string) (ModelVersion, error) {
	var (
		mv      ModelVersion
		created int64
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT name, version, run_id, source, stage, created_at FROM model_versions
		 WHERE name = ? ORDER BY version DESC LIMIT 1`, name,
	).Scan(&mv.Name, &mv.Version, &mv.RunID, &mv.Source, &mv.Stage, &created)
	if err == sql.ErrNoRows {
		return ModelVersion{}, scierrors.NewNotFoundError("registered model", name)
	}
	if err != nil {
		return ModelVersion{}, scierrors.Wrapf(err, "look up model %s", name)
	}
	mv.CreatedAt = time.UnixMilli(created)
	return mv, nil
}

// SetStage moves a model version to a new stage, e.g. "Production".
func (s *Store) SetStage(ctx context.Context, name string, version int, stage string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	res, err := s.db.ExecContext(ctx, `UPDATE model_versions SET stage = ? WHERE name = ? AND version = ?`, stage, name, version)
	if err != nil {
		return scierrors.Wrapf(err, "set stage of %s v%d", name, version)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return scierrors.NewNotFoundError("model version", fmt.Sprintf("%s v%d", name, version))
	}
	return nil
}

// BestRun returns the finished run of experiment with the lowest value of
// metric.
func (s *Store) BestRun(ctx context.Context, experiment, metric string) (RunInfo, error) {
	expID, err := s.experimentID(ctx, experiment, false)
	if err != nil {
		return RunInfo{}, err
	}
	var runID string
	err = s.db.QueryRowContext(ctx,
		`SELECT r.run_id FROM runs r JOIN metrics m ON m.run_id = r.run_id
		 WHERE r.experiment_id = ? AND r.status = ? AND m.key = ?
		 ORDER BY m.value ASC, r.start_time ASC LIMIT 1`,
		expID, string(StatusFinished), metric,
	).Scan(&runID)
	if err == sql.ErrNoRows {
		return RunInfo{}, scierrors.NewNotFoundError("finished run", experiment)
	}
	if err != nil {
		return RunInfo{}, scierrors.Wrapf(err, "find best run of %s", experiment)
	}
	return s.GetRun(ctx, runID)
}

// GetRun loads a run with its params and metrics.
func (s *Store) GetRun(ctx context.Context, runID string) (RunInfo, error) {
	info := RunInfo{ID: runID, Params: map[string]string{}, Metrics: map[string]float64{}}
	var (
		status string
		start  int64
		end    sql.NullInt64
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT e.name, r.run_name, r.status, r.start_time, r.end_time
		 FROM runs r JOIN experiments e ON e.experiment_id = r.experiment_id WHERE r.run_id = ?`, runID,
	).Scan(&info.Experiment, &info.Name, &status, &start, &end)
	if err == sql.ErrNoRows {
		return RunInfo{}, scierrors.NewNotFoundError("run", runID)
	}
	if err != nil {
		return RunInfo{}, scierrors.Wrapf(err, "load run %s", runID)
	}
	info.Status = RunStatus(status)
	info.StartTime = time.UnixMilli(start)
	if end.Valid {
		info.EndTime = time.UnixMilli(end.Int64)
	}

	if err := s.collect(ctx, `SELECT key, value FROM params WHERE run_id = ?`, runID, func(rows *sql.Rows) error {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return err
		}
		info.Params[k] = v
		return nil
	}); err != nil {
		return RunInfo{}, err
	}
	if err := s.collect(ctx, `SELECT key, value FROM metrics WHERE run_id = ?`, runID, func(rows *sql.Rows) error {
		var k string
		var v float64
		if err := rows.Scan(&k, &v); err != nil {
			return err
		}
		info.Metrics[k] = v
		return nil
	}); err != nil {
		return RunInfo{}, err
	}
	return info, nil
}

// ListRuns returns the runs of an experiment in start order.
func (s *Store) ListRuns(ctx context.Context, experiment string) ([]RunInfo, error) {
	expID, err := s.experimentID(ctx, experiment, false)
	if err != nil {
		return nil, err
	}
	var ids []string
	if err := s.collect(ctx, `SELECT run_id FROM runs WHERE experiment_id = ? ORDER BY start_time, rowid`, expID, func(rows *sql.Rows) error {
		var id string
		if err := rows.Scan(&id); err != nil {
			return err
		}
		ids = append(ids, id)
		return nil
	}); err != nil {
		return nil, err
	}
	out := make([]RunInfo, 0, len(ids))
	for _, id := range ids {
		info, err := s.GetRun(ctx, id)
		if err != nil {
			return nil, err
		}
		out = append(out, info)
	}
	return out, nil
}

func (s *Store) collect(ctx context.Context, query string, arg any, scan func(*sql.Rows) error) error {
	rows, err := s.db.QueryContext(ctx, query, arg)
	if err != nil {
		return scierrors.Wrap(err, "query tracking db")
	}
	defer rows.Close()
	for rows.Next() {
		if err := scan(rows); err != nil {
			return scierrors.Wrap(err, "scan tracking row")
		}
	}
	return scierrors.Wrap(rows.Err(), "iterate tracking rows")
}

// sqlRun is a Run stored in a Store.
type sqlRun struct {
	store *Store
	id    string
}

func (r *sqlRun) ID() string { return r.id }

func formatParam(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'g', -1, 64)
	default:
		return fmt.Sprint(v)
	}
}

func (r *sqlRun) LogParam(ctx context.Context, key string, value any) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	_, err := r.store.db.ExecContext(ctx,
		`INSERT INTO params (run_id, key, value) VALUES (?, ?, ?)
		 ON CONFLICT(run_id, key) DO UPDATE SET value = excluded.value`,
		r.id, key, formatParam(value))
	return scierrors.Wrapf(err, "log param %s", key)
}

func (r *sqlRun) LogParams(ctx context.Context, params map[string]any) error {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if err := r.LogParam(ctx, k, params[k]); err != nil {
			return err
		}
	}
	return nil
}

func (r *sqlRun) LogMetric(ctx context.Context, key string, value float64) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	_, err := r.store.db.ExecContext(ctx,
		`INSERT INTO metrics (run_id, key, value, timestamp) VALUES (?, ?, ?, ?)
		 ON CONFLICT(run_id, key) DO UPDATE SET value = excluded.value, timestamp = excluded.timestamp`,
		r.id, key, value, r.store.now().UnixMilli())
	return scierrors.Wrapf(err, "log metric %s", key)
}

func (r *sqlRun) LogMetrics(ctx context.Context, metrics map[string]float64) error {
	keys := make([]string, 0, len(metrics))
	for k := range metrics {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if err := r.LogMetric(ctx, k, metrics[k]); err != nil {
			return err
		}
	}
	return nil
}

func (r *sqlRun) LogModel(_ context.Context, m model.Regressor, path string) (string, error) {
	uri, err := r.store.artifacts.SaveModel(r.id, path, m)
	if err != nil {
		return "", err
	}
	r.store.logger.Debug("Model artifact saved", log.RunIDKey, r.id, log.ArtifactKey, uri)
	return uri, nil
}

func (r *sqlRun) LogArtifact(_ context.Context, name, localPath string) (string, error) {
	return r.store.artifacts.CopyFile(r.id, name, localPath)
}

func (r *sqlRun) End(ctx context.Context, status RunStatus) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	_, err := r.store.db.ExecContext(ctx,
		`UPDATE runs SET status = ?, end_time = ? WHERE run_id = ?`,
		string(status), r.store.now().UnixMilli(), r.id)
	return scierrors.Wrapf(err, "end run %s", r.id)
}
