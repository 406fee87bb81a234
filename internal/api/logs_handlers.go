package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/Past-Tang/x/internal/models"
)

type LogsHandler struct {
	repo   models.ExecutionLogRepository
	logger *slog.Logger
}

func NewLogsHandler(repo models.ExecutionLogRepository, logger *slog.Logger) *LogsHandler {
	return &LogsHandler{repo: repo, logger: logger}
}

// ListLogs returns execution log entries, newest first
// GET /api/logs?type=reply&account_id=abc&result=failed&since=2026-01-01T00:00:00Z&page=1&per_page=20
func (h *LogsHandler) ListLogs(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	filter := models.LogFilter{
		Type:      models.LogType(q.Get("type")),
		AccountID: q.Get("account_id"),
		TargetID:  q.Get("target_id"),
		JobID:     q.Get("job_id"),
		PostID:    q.Get("post_id"),
		Result:    models.RunResult(q.Get("result")),
	}

	if raw := q.Get("since"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			http.Error(w, "Invalid since timestamp", http.StatusBadRequest)
			return
		}
		filter.Since = &t
	}
	if raw := q.Get("until"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			http.Error(w, "Invalid until timestamp", http.StatusBadRequest)
			return
		}
		filter.Until = &t
	}

	if raw := q.Get("page"); raw != "" {
		page, err := strconv.Atoi(raw)
		if err != nil || page < 1 {
			http.Error(w, "Invalid page", http.StatusBadRequest)
			return
		}
		filter.Page = page
	}
	if raw := q.Get("per_page"); raw != "" {
		perPage, err := strconv.Atoi(raw)
		if err != nil || perPage < 1 || perPage > 200 {
			http.Error(w, "Invalid per_page", http.StatusBadRequest)
			return
		}
		filter.PerPage = perPage
	}

	entries, total, err := h.repo.List(r.Context(), filter)
	if err != nil {
		h.logger.Error("failed to list execution logs", "error", err)
		http.Error(w, "Failed to list logs", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"logs":  entries,
		"count": len(entries),
		"total": total,
	})
}
