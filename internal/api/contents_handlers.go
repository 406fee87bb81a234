package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/Past-Tang/x/internal/models"
)

type ContentsHandler struct {
	repo   models.ContentRepository
	logger *slog.Logger
}

func NewContentsHandler(repo models.ContentRepository, logger *slog.Logger) *ContentsHandler {
	return &ContentsHandler{repo: repo, logger: logger}
}

// ListContents returns all post contents
// GET /api/post-contents?active_only=true
func (h *ContentsHandler) ListContents(w http.ResponseWriter, r *http.Request) {
	var contents []*models.PostContent
	var err error

	if r.URL.Query().Get("active_only") == "true" {
		contents, err = h.repo.ListActive(r.Context())
	} else {
		contents, err = h.repo.ListAll(r.Context())
	}

	if err != nil {
		h.logger.Error("failed to list contents", "error", err)
		http.Error(w, "Failed to list contents", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"contents": contents,
		"count":    len(contents),
	})
}

// CreateContent adds a new post content
// POST /api/post-contents
// Body: {"text": "Check this out", "link": "https://example.com"}
func (h *ContentsHandler) CreateContent(w http.ResponseWriter, r *http.Request) {
	var content models.PostContent
	if err := json.NewDecoder(r.Body).Decode(&content); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	content.Status = models.EntityStatusActive

	if err := ValidateContent(&content); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := h.repo.Create(r.Context(), &content); err != nil {
		h.logger.Error("failed to store content", "error", err)
		http.Error(w, "Failed to store content", http.StatusInternalServerError)
		return
	}

	h.logger.Info("added content", "id", content.ID)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(content)
}

// GetContent returns a specific post content
// GET /api/post-contents/:id
func (h *ContentsHandler) GetContent(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/api/post-contents/")

	content, err := h.repo.GetByID(r.Context(), id)
	if err != nil {
		h.logger.Error("failed to get content", "error", err)
		http.Error(w, "Failed to get content", http.StatusInternalServerError)
		return
	}

	if content == nil {
		http.Error(w, "Content not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(content)
}

// UpdateContent updates an existing post content
// PUT /api/post-contents/:id
func (h *ContentsHandler) UpdateContent(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/api/post-contents/")

	var updates models.PostContent
	if err := json.NewDecoder(r.Body).Decode(&updates); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	existing, err := h.repo.GetByID(r.Context(), id)
	if err != nil {
		h.logger.Error("failed to get content", "error", err)
		http.Error(w, "Failed to get content", http.StatusInternalServerError)
		return
	}

	if existing == nil {
		http.Error(w, "Content not found", http.StatusNotFound)
		return
	}

	if updates.Text != "" {
		existing.Text = updates.Text
	}
	existing.Link = updates.Link
	existing.SortOrder = updates.SortOrder

	if err := ValidateContent(existing); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := h.repo.Update(r.Context(), existing); err != nil {
		h.logger.Error("failed to update content", "error", err)
		http.Error(w, "Failed to update content", http.StatusInternalServerError)
		return
	}

	h.logger.Info("updated content", "id", id)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(existing)
}

// DeleteContent removes a post content
// DELETE /api/post-contents/:id
func (h *ContentsHandler) DeleteContent(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/api/post-contents/")

	if err := h.repo.Delete(r.Context(), id); err != nil {
		h.logger.Error("failed to delete content", "error", err)
		http.Error(w, "Failed to delete content", http.StatusInternalServerError)
		return
	}

	h.logger.Info("deleted content", "id", id)

	w.WriteHeader(http.StatusNoContent)
}

// ToggleContent switches a content between active and disabled
// POST /api/post-contents/:id/toggle
func (h *ContentsHandler) ToggleContent(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/api/post-contents/")
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
		h.logger.Error("failed to toggle content", "error", err)
		http.Error(w, "Failed to toggle content", http.StatusInternalServerError)
		return
	}

	h.logger.Info("toggled content", "id", id, "enabled", body.Enabled)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"id":      id,
		"enabled": body.Enabled,
	})
}
