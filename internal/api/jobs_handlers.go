package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/Past-Tang/x/internal/models"
	"github.com/Past-Tang/x/internal/pipeline"
)

type JobsHandler struct {
	repo   models.JobRepository
	post   *pipeline.Post
	logger *slog.Logger
}

func NewJobsHandler(repo models.JobRepository, post *pipeline.Post, logger *slog.Logger) *JobsHandler {
	return &JobsHandler{
		repo:   repo,
		post:   post,
		logger: logger,
	}
}

// ListJobs returns all post jobs
// GET /api/post-jobs
func (h *JobsHandler) ListJobs(w http.ResponseWriter, r *http.Request) {
	jobs, err := h.repo.ListAll(r.Context())
	if err != nil {
		h.logger.Error("failed to list jobs", "error", err)
		http.Error(w, "Failed to list jobs", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"jobs":  jobs,
		"count": len(jobs),
	})
}

// CreateJob adds a new post job
// POST /api/post-jobs
// Body: {"name": "hourly promo", "interval_minutes": 60, "account_strategy": "round_robin"}
func (h *JobsHandler) CreateJob(w http.ResponseWriter, r *http.Request) {
	var job models.PostJob
	if err := json.NewDecoder(r.Body).Decode(&job); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	// Set defaults
	if job.IntervalMinutes == 0 {
		job.IntervalMinutes = 60
	}
	job.Status = models.EntityStatusActive
	job.ContentIndex = 0

	if err := ValidateJob(&job); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := h.repo.Create(r.Context(), &job); err != nil {
		h.logger.Error("failed to store job", "error", err)
		http.Error(w, "Failed to store job", http.StatusInternalServerError)
		return
	}

	h.logger.Info("added job", "id", job.ID, "name", job.Name)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(job)
}

// GetJob returns a specific post job
// GET /api/post-jobs/:id
func (h *JobsHandler) GetJob(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/api/post-jobs/")

	job, err := h.repo.GetByID(r.Context(), id)
	if err != nil {
		h.logger.Error("failed to get job", "error", err)
		http.Error(w, "Failed to get job", http.StatusInternalServerError)
		return
	}

	if job == nil {
		http.Error(w, "Job not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(job)
}

// UpdateJob updates an existing post job
// PUT /api/post-jobs/:id
func (h *JobsHandler) UpdateJob(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/api/post-jobs/")

	var updates models.PostJob
	if err := json.NewDecoder(r.Body).Decode(&updates); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	existing, err := h.repo.GetByID(r.Context(), id)
	if err != nil {
		h.logger.Error("failed to get job", "error", err)
		http.Error(w, "Failed to get job", http.StatusInternalServerError)
		return
	}

	if existing == nil {
		http.Error(w, "Job not found", http.StatusNotFound)
		return
	}

	// Update fields; the rotation pointer and run stats belong to the pipeline
	if updates.Name != "" {
		existing.Name = updates.Name
	}
	if updates.IntervalMinutes != 0 {
		existing.IntervalMinutes = updates.IntervalMinutes
	}
	if updates.AccountStrategy != "" {
		existing.AccountStrategy = updates.AccountStrategy
	}

	if err := ValidateJob(existing); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := h.repo.Update(r.Context(), existing); err != nil {
		h.logger.Error("failed to update job", "error", err)
		http.Error(w, "Failed to update job", http.StatusInternalServerError)
		return
	}

	h.logger.Info("updated job", "id", id)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(existing)
}

// DeleteJob removes a post job
// DELETE /api/post-jobs/:id
func (h *JobsHandler) DeleteJob(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/api/post-jobs/")

	if err := h.repo.Delete(r.Context(), id); err != nil {
		h.logger.Error("failed to delete job", "error", err)
		http.Error(w, "Failed to delete job", http.StatusInternalServerError)
		return
	}

	h.logger.Info("deleted job", "id", id)

	w.WriteHeader(http.StatusNoContent)
}

// ToggleJob switches a job between active and disabled
// POST /api/post-jobs/:id/toggle
func (h *JobsHandler) ToggleJob(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/api/post-jobs/")
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
		h.logger.Error("failed to toggle job", "error", err)
		http.Error(w, "Failed to toggle job", http.StatusInternalServerError)
		return
	}

	h.logger.Info("toggled job", "id", id, "enabled", body.Enabled)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"id":      id,
		"enabled": body.Enabled,
	})
}

// RunNow triggers an immediate run of a post job
// POST /api/post-jobs/:id/run
func (h *JobsHandler) RunNow(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/api/post-jobs/")
	id = strings.TrimSuffix(id, "/run")

	job, err := h.repo.GetByID(r.Context(), id)
	if err != nil {
		h.logger.Error("failed to get job", "error", err)
		http.Error(w, "Failed to get job", http.StatusInternalServerError)
		return
	}

	if job == nil {
		http.Error(w, "Job not found", http.StatusNotFound)
		return
	}

	h.logger.Info("manual run triggered", "job", job.Name)
	result := h.post.RunJob(r.Context(), job)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"result":     result.Result,
		"error":      result.Error,
		"post_id":    result.PostID,
		"content_id": result.ContentID,
		"account_id": result.AccountID,
	})
}
