package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/YuvrajArora777/Finsight-Clean/internal/pipeline"
	"github.com/YuvrajArora777/Finsight-Clean/internal/store"
	"github.com/YuvrajArora777/Finsight-Clean/pkg/logger"
)

// PipelineHandler exposes on-demand pipeline triggers and run observability
// ⭐ SSOT: pipeline control endpoints live in this struct only
type PipelineHandler struct {
	orch   *pipeline.Orchestrator
	store  store.Store
	logger *logger.Logger
}

// NewPipelineHandler creates a new pipeline handler
func NewPipelineHandler(orch *pipeline.Orchestrator, st store.Store, log *logger.Logger) *PipelineHandler {
	return &PipelineHandler{orch: orch, store: st, logger: log}
}

// TriggerRun starts a pipeline run in the background
// POST /api/pipeline/run?force=true
func (h *PipelineHandler) TriggerRun(w http.ResponseWriter, r *http.Request) {
	force := r.URL.Query().Get("force") == "true"
	asOf := time.Now().UTC()

	go func() {
		// Detached from the request context: the run outlives the response
		report, err := h.orch.Run(context.Background(), asOf, force)
		if err != nil {
			h.logger.WithError(err).Error("On-demand pipeline run failed to start")
			return
		}
		h.logger.WithFields(map[string]interface{}{
			"run_id":   report.RunID,
			"outcomes": report.Counts(),
		}).Info("On-demand pipeline run finished")
	}()

	respondJSON(w, http.StatusAccepted, map[string]interface{}{
		"status": "started",
		"as_of":  asOf,
		"force":  force,
	})
}

// GetLatestRun returns the persisted report of the most recent run
// GET /api/runs/latest
func (h *PipelineHandler) GetLatestRun(w http.ResponseWriter, r *http.Request) {
	run, err := h.store.LatestRun(r.Context())
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			respondError(w, http.StatusNotFound, "no pipeline run recorded yet")
			return
		}
		h.logger.WithError(err).Error("Failed to load latest run")
		respondError(w, http.StatusInternalServerError, "Failed to load latest run")
		return
	}

	var report pipeline.RunReport
	if err := json.Unmarshal(run.Report, &report); err != nil {
		respondError(w, http.StatusInternalServerError, "Corrupt run report")
		return
	}

	respondJSON(w, http.StatusOK, report)
}
