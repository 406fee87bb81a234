package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/Past-Tang/x/internal/models"
)

type TemplatesHandler struct {
	repo   models.TemplateRepository
	logger *slog.Logger
}

func NewTemplatesHandler(repo models.TemplateRepository, logger *slog.Logger) *TemplatesHandler {
	return &TemplatesHandler{repo: repo, logger: logger}
}

// ListTemplates returns all reply templates
// GET /api/reply-templates?target_id=abc
func (h *TemplatesHandler) ListTemplates(w http.ResponseWriter, r *http.Request) {
	var templates []*models.ReplyTemplate
	var err error

	if targetID := r.URL.Query().Get("target_id"); targetID != "" {
		templates, err = h.repo.ListForTarget(r.Context(), targetID)
	} else {
		templates, err = h.repo.ListAll(r.Context())
	}

	if err != nil {
		h.logger.Error("failed to list templates", "error", err)
		http.Error(w, "Failed to list templates", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"templates": templates,
		"count":     len(templates),
	})
}

// CreateTemplate adds a new reply template
// POST /api/reply-templates
// Body: {"content": "Great point!", "scope": "global"}
func (h *TemplatesHandler) CreateTemplate(w http.ResponseWriter, r *http.Request) {
	var tpl models.ReplyTemplate
	if err := json.NewDecoder(r.Body).Decode(&tpl); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if tpl.Scope == "" {
		tpl.Scope = models.ScopeGlobal
	}
	tpl.Status = models.EntityStatusActive

	if err := ValidateTemplate(&tpl); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := h.repo.Create(r.Context(), &tpl); err != nil {
		h.logger.Error("failed to store template", "error", err)
		http.Error(w, "Failed to store template", http.StatusInternalServerError)
		return
	}

	h.logger.Info("added template", "id", tpl.ID, "scope", tpl.Scope)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(tpl)
}

// GetTemplate returns a specific reply template
// GET /api/reply-templates/:id
func (h *TemplatesHandler) GetTemplate(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/api/reply-templates/")

	tpl, err := h.repo.GetByID(r.Context(), id)
	if err != nil {
		h.logger.Error("failed to get template", "error", err)
		http.Error(w, "Failed to get template", http.StatusInternalServerError)
		return
	}

	if tpl == nil {
		http.Error(w, "Template not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(tpl)
}

// UpdateTemplate updates an existing template
// PUT /api/reply-templates/:id
func (h *TemplatesHandler) UpdateTemplate(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/api/reply-templates/")

	var updates models.ReplyTemplate
	if err := json.NewDecoder(r.Body).Decode(&updates); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	existing, err := h.repo.GetByID(r.Context(), id)
	if err != nil {
		h.logger.Error("failed to get template", "error", err)
		http.Error(w, "Failed to get template", http.StatusInternalServerError)
		return
	}

	if existing == nil {
		http.Error(w, "Template not found", http.StatusNotFound)
		return
	}

	if updates.Content != "" {
		existing.Content = updates.Content
	}
	if updates.Scope != "" {
		existing.Scope = updates.Scope
		existing.TargetID = updates.TargetID
	}
	existing.SortOrder = updates.SortOrder

	if err := ValidateTemplate(existing); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := h.repo.Update(r.Context(), existing); err != nil {
		h.logger.Error("failed to update template", "error", err)
		http.Error(w, "Failed to update template", http.StatusInternalServerError)
		return
	}

	h.logger.Info("updated template", "id", id)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(existing)
}

// DeleteTemplate removes a reply template
// DELETE /api/reply-templates/:id
func (h *TemplatesHandler) DeleteTemplate(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/api/reply-templates/")

	if err := h.repo.Delete(r.Context(), id); err != nil {
		h.logger.Error("failed to delete template", "error", err)
		http.Error(w, "Failed to delete template", http.StatusInternalServerError)
		return
	}

	h.logger.Info("deleted template", "id", id)

	w.WriteHeader(http.StatusNoContent)
}

// ToggleTemplate switches a template between active and disabled
// POST /api/reply-templates/:id/toggle
func (h *TemplatesHandler) ToggleTemplate(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/api/reply-templates/")
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
		h.logger.Error("failed to toggle template", "error", err)
		http.Error(w, "Failed to toggle template", http.StatusInternalServerError)
		return
	}

	h.logger.Info("toggled template", "id", id, "enabled", body.Enabled)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"id":      id,
		"enabled": body.Enabled,
	})
}
