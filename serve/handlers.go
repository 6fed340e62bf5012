package serve

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"time"

	"gonum.org/v1/gonum/mat"

	scierrors "github.com/YuminosukeSato/salesforecast/pkg/errors"
	"github.com/YuminosukeSato/salesforecast/pkg/log"
	"github.com/YuminosukeSato/salesforecast/tracking"
)

// Row is one feature row keyed by feature name. Null values are rejected.
type Row map[string]*float64

// PredictionResponse answers /api/predict.
type PredictionResponse struct {
	Prediction   float64 `json:"prediction"`
	ModelName    string  `json:"model_name"`
	ModelVersion string  `json:"model_version"`
}

// BatchRequest is the body of /api/predict-batch.
type BatchRequest struct {
	Data []Row `json:"data"`
}

// BatchResponse answers /api/predict-batch.
type BatchResponse struct {
	Predictions  []float64 `json:"predictions"`
	ModelName    string    `json:"model_name"`
	ModelVersion string    `json:"model_version"`
}

// ReloadResponse answers /api/reload.
type ReloadResponse struct {
	Status string             `json:"status"`
	Model  tracking.ModelInfo `json:"model"`
}

type errorResponse struct {
	Detail string `json:"detail"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleModelInfo(w http.ResponseWriter, _ *http.Request) {
	snap := s.current.Load()
	if snap == nil {
		s.writeJSON(w, http.StatusNotFound, errorResponse{Detail: "Model not loaded"})
		return
	}
	s.writeJSON(w, http.StatusOK, snap.info)
}

func (s *Server) handlePredict(w http.ResponseWriter, r *http.Request) {
	snap, err := s.active()
	if err != nil {
		s.writeError(w, err)
		return
	}
	var row Row
	if err := decodeBody(w, r, &row); err != nil {
		s.writeError(w, err)
		return
	}
	preds, err := s.predict(snap, []Row{row})
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, PredictionResponse{
		Prediction:   preds[0],
		ModelName:    snap.info.Name,
		ModelVersion: snap.info.Version,
	})
}

func (s *Server) handlePredictBatch(w http.ResponseWriter, r *http.Request) {
	snap, err := s.active()
	if err != nil {
		s.writeError(w, err)
		return
	}
	var req BatchRequest
	if err := decodeBody(w, r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	if len(req.Data) == 0 {
		s.writeError(w, scierrors.NewValidationError("data", "must contain at least one row", len(req.Data)))
		return
	}
	preds, err := s.predict(snap, req.Data)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, BatchResponse{
		Predictions:  preds,
		ModelName:    snap.info.Name,
		ModelVersion: snap.info.Version,
	})
}

func (s *Server) handleReload(w http.ResponseWriter, r *http.Request) {
	info, err := s.Reload(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, ReloadResponse{Status: "reloaded", Model: info})
}

// predict orders each row by the model's features and scores all rows in
// one call.
func (s *Server) predict(snap *snapshot, rows []Row) ([]float64, error) {
	X := mat.NewDense(len(rows), len(snap.features), nil)
	for i, row := range rows {
		if err := fillRow(X, i, row, snap.features); err != nil {
			return nil, err
		}
	}
	start := time.Now()
	pred, err := snap.model.Predict(X)
	if err != nil {
		return nil, err
	}
	s.logger.Debug("Predicted",
		log.OperationKey, log.OperationPredict,
		log.PhaseKey, log.PhaseInference,
		log.BatchSizeKey, len(rows),
		log.DurationMsKey, time.Since(start).Milliseconds(),
	)
	out := make([]float64, pred.Len())
	for i := range out {
		out[i] = pred.AtVec(i)
	}
	return out, nil
}

func fillRow(X *mat.Dense, i int, row Row, features []string) error {
	for j, name := range features {
		v, ok := row[name]
		if !ok || v == nil {
			return scierrors.NewValidationError(name, fmt.Sprintf("row %d: field required", i), nil)
		}
		X.Set(i, j, *v)
	}
	if len(row) > len(features) {
		known := make(map[string]bool, len(features))
		for _, name := range features {
			known[name] = true
		}
		var extra []string
		for name := range row {
			if !known[name] {
				extra = append(extra, name)
			}
		}
		sort.Strings(extra)
		return scierrors.NewValidationError(extra[0], fmt.Sprintf("row %d: unknown field", i), extra)
	}
	return nil
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return scierrors.NewValidationError("body", "invalid JSON: "+err.Error(), nil)
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		return scierrors.NewValidationError("body", "unexpected data after JSON value", nil)
	}
	return nil
}

// statusOf maps domain errors to HTTP status codes.
func statusOf(err error) int {
	var (
		notFound   *scierrors.NotFoundError
		validation *scierrors.ValidationError
		schema     *scierrors.SchemaError
		dimension  *scierrors.DimensionError
	)
	switch {
	case scierrors.Is(err, scierrors.ErrModelNotLoaded):
		return http.StatusServiceUnavailable
	case scierrors.As(err, &notFound):
		return http.StatusNotFound
	case scierrors.As(err, &validation), scierrors.As(err, &schema), scierrors.As(err, &dimension):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := statusOf(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("Request failed", err, log.HTTPStatusKey, status)
	}
	s.writeJSON(w, status, errorResponse{Detail: err.Error()})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.logger.Error("Write response failed", err, log.HTTPStatusKey, status)
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()
		next.ServeHTTP(rec, r)
		s.logger.Info("HTTP request",
			log.HTTPMethodKey, r.Method,
			log.HTTPPathKey, r.URL.Path,
			log.HTTPStatusKey, rec.status,
			log.DurationMsKey, time.Since(start).Milliseconds(),
		)
	})
}
