package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/Past-Tang/x/internal/models"
)

type SettingsHandler struct {
	repo   models.SettingRepository
	logger *slog.Logger
}

func NewSettingsHandler(repo models.SettingRepository, logger *slog.Logger) *SettingsHandler {
	return &SettingsHandler{repo: repo, logger: logger}
}

// GetSettings returns all stored settings
// GET /api/settings
func (h *SettingsHandler) GetSettings(w http.ResponseWriter, r *http.Request) {
	settings, err := h.repo.ListAll(r.Context())
	if err != nil {
		h.logger.Error("failed to list settings", "error", err)
		http.Error(w, "Failed to list settings", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"settings": settings,
		"count":    len(settings),
	})
}

// UpdateSettings upserts setting values. Changed values are persisted
// immediately and picked up at the next process start.
// PUT /api/settings
// Body: {"settings": [{"key": "account_hourly_limit", "value": "5"}]}
func (h *SettingsHandler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Settings []struct {
			Key   string `json:"key"`
			Value string `json:"value"`
		} `json:"settings"`
	}

	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if len(body.Settings) == 0 {
		http.Error(w, "No settings provided", http.StatusBadRequest)
		return
	}

	for _, update := range body.Settings {
		if update.Key == "" {
			http.Error(w, "Setting key is required", http.StatusBadRequest)
			return
		}

		existing, err := h.repo.Get(r.Context(), update.Key)
		if err != nil {
			h.logger.Error("failed to get setting", "key", update.Key, "error", err)
			http.Error(w, "Failed to update settings", http.StatusInternalServerError)
			return
		}

		setting := &models.Setting{
			Key:       update.Key,
			Value:     update.Value,
			ValueType: models.SettingTypeString,
		}
		if existing != nil {
			setting.ValueType = existing.ValueType
			setting.Description = existing.Description
		}

		// Typed settings must parse before they hit the store
		if setting.ValueType == models.SettingTypeInt {
			if _, err := strconv.Atoi(update.Value); err != nil {
				http.Error(w, "Setting "+update.Key+" must be an integer", http.StatusBadRequest)
				return
			}
		}

		if err := h.repo.Upsert(r.Context(), setting); err != nil {
			h.logger.Error("failed to upsert setting", "key", update.Key, "error", err)
			http.Error(w, "Failed to update settings", http.StatusInternalServerError)
			return
		}

		h.logger.Info("updated setting", "key", update.Key)
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"success": true,
		"updated": len(body.Settings),
		"message": "Settings saved. Runtime values are resolved at startup; restart to apply.",
	})
}
