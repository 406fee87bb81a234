package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/Past-Tang/x/internal/models"
	"github.com/Past-Tang/x/internal/pipeline"
)

type TargetsHandler struct {
	repo    models.TargetRepository
	monitor *pipeline.Monitor
	logger  *slog.Logger
}

func NewTargetsHandler(repo models.TargetRepository, monitor *pipeline.Monitor, logger *slog.Logger) *TargetsHandler {
	return &TargetsHandler{
		repo:    repo,
		monitor: monitor,
		logger:  logger,
	}
}

// ListTargets returns all monitor targets
// GET /api/targets
func (h *TargetsHandler) ListTargets(w http.ResponseWriter, r *http.Request) {
	targets, err := h.repo.ListAll(r.Context())
	if err != nil {
		h.logger.Error("failed to list targets", "error", err)
		http.Error(w, "Failed to list targets", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"targets": targets,
		"count":   len(targets),
	})
}

// CreateTarget adds a new monitor target
// POST /api/targets
// Body: {"user_id": "44196397", "username": "elonmusk", "check_interval_minutes": 30, "fetch_count": 20}
func (h *TargetsHandler) CreateTarget(w http.ResponseWriter, r *http.Request) {
	var target models.MonitorTarget
	if err := json.NewDecoder(r.Body).Decode(&target); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	// Set defaults
	if target.CheckIntervalMinutes == 0 {
		target.CheckIntervalMinutes = 30
	}
	if target.FetchCount == 0 {
		target.FetchCount = 20
	}
	target.Username = strings.TrimPrefix(target.Username, "@")
	target.Status = models.EntityStatusActive

	if err := ValidateTarget(&target); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := h.repo.Create(r.Context(), &target); err != nil {
		h.logger.Error("failed to store target", "error", err)
		http.Error(w, "Failed to store target", http.StatusInternalServerError)
		return
	}

	h.logger.Info("added target", "id", target.ID, "user_id", target.UserID)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(target)
}

// GetTarget returns a specific monitor target
// GET /api/targets/:id
func (h *TargetsHandler) GetTarget(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/api/targets/")

	target, err := h.repo.GetByID(r.Context(), id)
	if err != nil {
		h.logger.Error("failed to get target", "error", err)
		http.Error(w, "Failed to get target", http.StatusInternalServerError)
		return
	}

	if target == nil {
		http.Error(w, "Target not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(target)
}

// UpdateTarget updates an existing target
// PUT /api/targets/:id
func (h *TargetsHandler) UpdateTarget(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/api/targets/")

	var updates models.MonitorTarget
	if err := json.NewDecoder(r.Body).Decode(&updates); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	existing, err := h.repo.GetByID(r.Context(), id)
	if err != nil {
		h.logger.Error("failed to get target", "error", err)
		http.Error(w, "Failed to get target", http.StatusInternalServerError)
		return
	}

	if existing == nil {
		http.Error(w, "Target not found", http.StatusNotFound)
		return
	}

	// Update fields; the watermark and counters belong to the pipeline
	if updates.Username != "" {
		existing.Username = strings.TrimPrefix(updates.Username, "@")
	}
	if updates.Name != "" {
		existing.Name = updates.Name
	}
	if updates.CheckIntervalMinutes != 0 {
		existing.CheckIntervalMinutes = updates.CheckIntervalMinutes
	}
	if updates.FetchCount != 0 {
		existing.FetchCount = updates.FetchCount
	}
	if updates.MaxNewPerCheck != 0 {
		existing.MaxNewPerCheck = updates.MaxNewPerCheck
	}

	if err := ValidateTarget(existing); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := h.repo.Update(r.Context(), existing); err != nil {
		h.logger.Error("failed to update target", "error", err)
		http.Error(w, "Failed to update target", http.StatusInternalServerError)
		return
	}

	h.logger.Info("updated target", "id", id)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(existing)
}

// DeleteTarget removes a monitor target
// DELETE /api/targets/:id
func (h *TargetsHandler) DeleteTarget(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/api/targets/")

	if err := h.repo.Delete(r.Context(), id); err != nil {
		h.logger.Error("failed to delete target", "error", err)
		http.Error(w, "Failed to delete target", http.StatusInternalServerError)
		return
	}

	h.logger.Info("deleted target", "id", id)

	w.WriteHeader(http.StatusNoContent)
}

// ToggleTarget switches a target between active and disabled
// POST /api/targets/:id/toggle
func (h *TargetsHandler) ToggleTarget(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/api/targets/")
	id = strings.TrimSuffix(id, "/toggle")

	var body struct {
		Enabled bool `json:"enabled"`
	}

	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	status := models.EntityStatusDisabled
	if body.Enabled {
		status = models.EntityStatusActive
	}

	if err := h.repo.SetStatus(r.Context(), id, status); err != nil {
		h.logger.Error("failed to toggle target", "error", err)
		http.Error(w, "Failed to toggle target", http.StatusInternalServerError)
		return
	}

	h.logger.Info("toggled target", "id", id, "enabled", body.Enabled)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"id":      id,
		"enabled": body.Enabled,
	})
}

// CheckNow triggers an immediate check cycle for a target
// POST /api/targets/:id/check
func (h *TargetsHandler) CheckNow(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/api/targets/")
	id = strings.TrimSuffix(id, "/check")

	target, err := h.repo.GetByID(r.Context(), id)
	if err != nil {
		h.logger.Error("failed to get target", "error", err)
		http.Error(w, "Failed to get target", http.StatusInternalServerError)
		return
	}

	if target == nil {
		http.Error(w, "Target not found", http.StatusNotFound)
		return
	}

	h.logger.Info("manual check triggered", "target", target.UserID)
	result := h.monitor.CheckTarget(r.Context(), target)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"result":        result.Result,
		"error":         result.Error,
		"posts_fetched": result.PostsFetched,
		"new_posts":     result.NewPosts,
		"replies_sent":  result.RepliesSent,
	})
}
