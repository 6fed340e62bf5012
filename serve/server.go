// Package serve exposes the registered model over a small JSON HTTP API.
//
// The server holds an immutable snapshot of the current model behind an
// atomic pointer. Each request reads one snapshot; Reload builds a new one
// and swaps it in, so in-flight predictions never see a half-loaded model.
package serve

import (
	"context"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/YuminosukeSato/salesforecast/core/model"
	scierrors "github.com/YuminosukeSato/salesforecast/pkg/errors"
	"github.com/YuminosukeSato/salesforecast/pkg/log"
	"github.com/YuminosukeSato/salesforecast/tracking"
)

// maxBodyBytes bounds prediction request bodies.
const maxBodyBytes = 10 << 20

// LoaderFunc returns the model to serve, typically tracking.LoadBest.
type LoaderFunc func(ctx context.Context) (model.Regressor, tracking.ModelInfo, error)

// snapshot is never mutated after it is published.
type snapshot struct {
	model    model.Regressor
	info     tracking.ModelInfo
	features []string
	loadedAt time.Time
}

// Server serves predictions from the current snapshot.
type Server struct {
	current atomic.Pointer[snapshot]
	load    LoaderFunc
	logger  log.Logger
	mux     *http.ServeMux
}

// New creates a server with no model loaded. Call Reload or Set before
// serving predictions.
func New(load LoaderFunc) *Server {
	s := &Server{
		load:   load,
		logger: log.GetLoggerWithName("serve"),
		mux:    http.NewServeMux(),
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.mux.HandleFunc("GET /api/health", s.handleHealth)
	s.mux.HandleFunc("GET /api/model-info", s.handleModelInfo)
	s.mux.HandleFunc("POST /api/predict", s.handlePredict)
	s.mux.HandleFunc("POST /api/predict-batch", s.handlePredictBatch)
	s.mux.HandleFunc("POST /api/reload", s.handleReload)
}

// Handler returns the HTTP handler with request logging.
func (s *Server) Handler() http.Handler {
	return s.logRequests(s.mux)
}

// Set publishes m as the served model. m must report its feature names.
func (s *Server) Set(m model.Regressor, info tracking.ModelInfo) error {
	namer, ok := m.(model.FeatureNamer)
	if !ok {
		return scierrors.NewValueError("serve.Set", "model does not report feature names")
	}
	features := namer.FeatureNames()
	if len(features) == 0 {
		return scierrors.NewValueError("serve.Set", "model has no feature names")
	}
	s.current.Store(&snapshot{
		model:    m,
		info:     info,
		features: features,
		loadedAt: time.Now(),
	})
	s.logger.Info("Model published",
		log.ModelNameKey, info.Name,
		log.ModelVersionKey, info.Version,
		log.RunIDKey, info.RunID,
		log.FeaturesKey, len(features),
	)
	return nil
}

// Reload calls the loader and swaps in its model. On failure the previous
// model keeps serving.
func (s *Server) Reload(ctx context.Context) (tracking.ModelInfo, error) {
	if s.load == nil {
		return tracking.ModelInfo{}, scierrors.NewValueError("serve.Reload", "no loader configured")
	}
	m, info, err := s.load(ctx)
	if err != nil {
		return tracking.ModelInfo{}, err
	}
	if err := s.Set(m, info); err != nil {
		return tracking.ModelInfo{}, err
	}
	return info, nil
}

// Loaded reports whether a model is being served.
func (s *Server) Loaded() bool {
	return s.current.Load() != nil
}

func (s *Server) active() (*snapshot, error) {
	snap := s.current.Load()
	if snap == nil {
		return nil, scierrors.ErrModelNotLoaded
	}
	return snap, nil
}
