package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/costlens/costlens-engine/internal/audit"
	"github.com/costlens/costlens-engine/internal/engine"
	"github.com/costlens/costlens-engine/internal/engine/anomaly"
	"github.com/costlens/costlens-engine/internal/engine/feature"
	"github.com/costlens/costlens-engine/internal/registry"
)

type errorResponse struct {
	Error string `json:"error"`
}

type trainRequest struct {
	Observations []feature.CostObservation `json:"observations"`
}

type trainResponse struct {
	SnapshotID   string    `json:"snapshot_id"`
	Version      int       `json:"version"`
	Observations int       `json:"observations"`
	BaselineMean float64   `json:"baseline_mean"`
	BaselineStd  float64   `json:"baseline_std"`
	TrainedAt    time.Time `json:"trained_at"`
}

func (s *Server) handleTrain(w http.ResponseWriter, r *http.Request) {
	tenantID := r.PathValue("tenant")

	var req trainRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body: " + err.Error()})
		return
	}

	start := time.Now()
	snapshot, err := s.engine.Train(r.Context(), tenantID, req.Observations)
	if err != nil {
		var insufficient *anomaly.TrainingDataInsufficientError
		if errors.As(err, &insufficient) {
			s.trail.Record(audit.NewEvent(audit.EventTrainingRejected).
				WithTenant(tenantID).
				WithResult(audit.ResultRejected).
				WithDescription(err.Error()))
			writeJSON(w, http.StatusUnprocessableEntity, errorResponse{Error: err.Error()})
			return
		}
		s.trail.Record(audit.NewEvent(audit.EventTrainingFailed).
			WithTenant(tenantID).
			WithError(err))
		s.log.Error("training failed", zap.String("tenant_id", tenantID), zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "training failed"})
		return
	}

	s.trail.Record(audit.NewEvent(audit.EventTrainingCompleted).
		WithTenant(tenantID).
		WithSnapshot(snapshot.ID, snapshot.Version).
		WithDuration(time.Since(start)).
		WithMetadata("observations", snapshot.Observations))

	writeJSON(w, http.StatusOK, trainResponse{
		SnapshotID:   snapshot.ID,
		Version:      snapshot.Version,
		Observations: snapshot.Observations,
		BaselineMean: snapshot.BaselineMean,
		BaselineStd:  snapshot.BaselineStd,
		TrainedAt:    snapshot.TrainedAt,
	})
}

type detectRequest struct {
	Observations []feature.CostObservation `json:"observations"`
	BatchStart   time.Time                 `json:"batch_start"`
}

func (s *Server) handleDetect(w http.ResponseWriter, r *http.Request) {
	tenantID := r.PathValue("tenant")

	var req detectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body: " + err.Error()})
		return
	}

	result, err := s.engine.DetectAnomalies(r.Context(), tenantID, req.Observations, req.BatchStart)
	if err != nil {
		if errors.Is(err, registry.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, errorResponse{Error: "no trained model for tenant " + tenantID})
			return
		}
		s.trail.Record(audit.NewEvent(audit.EventDetectionFailed).
			WithTenant(tenantID).
			WithError(err))
		s.log.Error("detection failed", zap.String("tenant_id", tenantID), zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "detection failed"})
		return
	}

	s.trail.Record(audit.NewEvent(audit.EventDetectionCompleted).
		WithTenant(tenantID).
		WithRun(result.RunID).
		WithMetadata("anomalies", result.Summary.Total).
		WithMetadata("critical", result.Summary.CriticalCount))

	writeJSON(w, http.StatusOK, result)
}

type recommendRequest struct {
	Resources []engine.ResourceUsage `json:"resources"`
}

func (s *Server) handleRecommend(w http.ResponseWriter, r *http.Request) {
	var req recommendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body: " + err.Error()})
		return
	}

	report := s.engine.Recommend(req.Resources, s.catalog)

	s.trail.Record(audit.NewEvent(audit.EventReportGenerated).
		WithMetadata("resources", len(req.Resources)).
		WithMetadata("recommendations", len(report.Recommendations)).
		WithMetadata("total_potential_savings", report.TotalPotentialSavings))

	writeJSON(w, http.StatusOK, report)
}

type forecastRequest struct {
	Observations []feature.CostObservation `json:"observations"`
	Horizon      int                       `json:"horizon"`
}

func (s *Server) handleForecast(w http.ResponseWriter, r *http.Request) {
	var req forecastRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body: " + err.Error()})
		return
	}

	result, err := s.engine.ForecastCost(req.Observations, req.Horizon)
	if err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, errorResponse{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
