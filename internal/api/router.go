package api

import (
	"net/http"
	"strings"

	"github.com/Past-Tang/x/internal/models"
	"github.com/Past-Tang/x/internal/pipeline"
	"github.com/Past-Tang/x/internal/pool"
	"github.com/Past-Tang/x/internal/vault"
	"log/slog"
)

// Deps bundles everything the REST API needs.
type Deps struct {
	Accounts  models.AccountRepository
	Targets   models.TargetRepository
	Templates models.TemplateRepository
	Contents  models.ContentRepository
	Jobs      models.JobRepository
	Logs      models.ExecutionLogRepository
	Settings  models.SettingRepository
	Pool      *pool.Pool
	Vault     *vault.Vault
	Monitor   *pipeline.Monitor
	Post      *pipeline.Post
	Logger    *slog.Logger
}

func corsPreflight(w http.ResponseWriter, methods string) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", methods)
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
	w.WriteHeader(http.StatusOK)
}

// SetupRoutes configures all API routes
func SetupRoutes(mux *http.ServeMux, deps Deps) {
	accountsHandler := NewAccountsHandler(deps.Accounts, deps.Pool, deps.Vault, deps.Logger)
	targetsHandler := NewTargetsHandler(deps.Targets, deps.Monitor, deps.Logger)
	templatesHandler := NewTemplatesHandler(deps.Templates, deps.Logger)
	contentsHandler := NewContentsHandler(deps.Contents, deps.Logger)
	jobsHandler := NewJobsHandler(deps.Jobs, deps.Post, deps.Logger)
	logsHandler := NewLogsHandler(deps.Logs, deps.Logger)
	settingsHandler := NewSettingsHandler(deps.Settings, deps.Logger)

	// Account pool routes
	mux.HandleFunc("/api/accounts", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodOptions {
			corsPreflight(w, "GET, POST, OPTIONS")
			return
		}
		switch r.Method {
		case http.MethodGet:
			accountsHandler.ListAccounts(w, r)
		case http.MethodPost:
			accountsHandler.CreateAccount(w, r)
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	})

	mux.HandleFunc("/api/accounts/available", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodOptions {
			corsPreflight(w, "GET, OPTIONS")
			return
		}
		if r.Method == http.MethodGet {
			accountsHandler.ListAvailableAccounts(w, r)
		} else {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	})

	mux.HandleFunc("/api/accounts/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/accounts/" {
			http.NotFound(w, r)
			return
		}
		if r.Method == http.MethodOptions {
			corsPreflight(w, "GET, POST, PUT, DELETE, OPTIONS")
			return
		}

		// Handle /api/accounts/:id/toggle
		if r.Method == http.MethodPost && strings.HasSuffix(r.URL.Path, "/toggle") {
			accountsHandler.ToggleAccount(w, r)
			return
		}

		// Handle /api/accounts/:id
		switch r.Method {
		case http.MethodGet:
			accountsHandler.GetAccount(w, r)
		case http.MethodPut:
			accountsHandler.UpdateAccount(w, r)
		case http.MethodDelete:
			accountsHandler.DeleteAccount(w, r)
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	})

	// Monitor target routes
	mux.HandleFunc("/api/targets", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodOptions {
			corsPreflight(w, "GET, POST, OPTIONS")
			return
		}
		switch r.Method {
		case http.MethodGet:
			targetsHandler.ListTargets(w, r)
		case http.MethodPost:
			targetsHandler.CreateTarget(w, r)
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	})

	mux.HandleFunc("/api/targets/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/targets/" {
			http.NotFound(w, r)
			return
		}
		if r.Method == http.MethodOptions {
			corsPreflight(w, "GET, POST, PUT, DELETE, OPTIONS")
			return
		}

		// Handle /api/targets/:id/toggle
		if r.Method == http.MethodPost && strings.HasSuffix(r.URL.Path, "/toggle") {
			targetsHandler.ToggleTarget(w, r)
			return
		}

		// Handle /api/targets/:id/check
		if r.Method == http.MethodPost && strings.HasSuffix(r.URL.Path, "/check") {
			targetsHandler.CheckNow(w, r)
			return
		}

		// Handle /api/targets/:id
		switch r.Method {
		case http.MethodGet:
			targetsHandler.GetTarget(w, r)
		case http.MethodPut:
			targetsHandler.UpdateTarget(w, r)
		case http.MethodDelete:
			targetsHandler.DeleteTarget(w, r)
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	})

	// Reply template routes
	mux.HandleFunc("/api/reply-templates", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodOptions {
			corsPreflight(w, "GET, POST, OPTIONS")
			return
		}
		switch r.Method {
		case http.MethodGet:
			templatesHandler.ListTemplates(w, r)
		case http.MethodPost:
			templatesHandler.CreateTemplate(w, r)
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	})

	mux.HandleFunc("/api/reply-templates/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/reply-templates/" {
			http.NotFound(w, r)
			return
		}
		if r.Method == http.MethodOptions {
			corsPreflight(w, "GET, POST, PUT, DELETE, OPTIONS")
			return
		}

		if r.Method == http.MethodPost && strings.HasSuffix(r.URL.Path, "/toggle") {
			templatesHandler.ToggleTemplate(w, r)
			return
		}

		switch r.Method {
		case http.MethodGet:
			templatesHandler.GetTemplate(w, r)
		case http.MethodPut:
			templatesHandler.UpdateTemplate(w, r)
		case http.MethodDelete:
			templatesHandler.DeleteTemplate(w, r)
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	})

	// Post content routes
	mux.HandleFunc("/api/post-contents", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodOptions {
			corsPreflight(w, "GET, POST, OPTIONS")
			return
		}
		switch r.Method {
		case http.MethodGet:
			contentsHandler.ListContents(w, r)
		case http.MethodPost:
			contentsHandler.CreateContent(w, r)
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	})

	mux.HandleFunc("/api/post-contents/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/post-contents/" {
			http.NotFound(w, r)
			return
		}
		if r.Method == http.MethodOptions {
			corsPreflight(w, "GET, POST, PUT, DELETE, OPTIONS")
			return
		}

		if r.Method == http.MethodPost && strings.HasSuffix(r.URL.Path, "/toggle") {
			contentsHandler.ToggleContent(w, r)
			return
		}

		switch r.Method {
		case http.MethodGet:
			contentsHandler.GetContent(w, r)
		case http.MethodPut:
			contentsHandler.UpdateContent(w, r)
		case http.MethodDelete:
			contentsHandler.DeleteContent(w, r)
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	})

	// Post job routes
	mux.HandleFunc("/api/post-jobs", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodOptions {
			corsPreflight(w, "GET, POST, OPTIONS")
			return
		}
		switch r.Method {
		case http.MethodGet:
			jobsHandler.ListJobs(w, r)
		case http.MethodPost:
			jobsHandler.CreateJob(w, r)
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	})

	mux.HandleFunc("/api/post-jobs/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/post-jobs/" {
			http.NotFound(w, r)
			return
		}
		if r.Method == http.MethodOptions {
			corsPreflight(w, "GET, POST, PUT, DELETE, OPTIONS")
			return
		}

		if r.Method == http.MethodPost && strings.HasSuffix(r.URL.Path, "/toggle") {
			jobsHandler.ToggleJob(w, r)
			return
		}

		// Handle /api/post-jobs/:id/run
		if r.Method == http.MethodPost && strings.HasSuffix(r.URL.Path, "/run") {
			jobsHandler.RunNow(w, r)
			return
		}

		switch r.Method {
		case http.MethodGet:
			jobsHandler.GetJob(w, r)
		case http.MethodPut:
			jobsHandler.UpdateJob(w, r)
		case http.MethodDelete:
			jobsHandler.DeleteJob(w, r)
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	})

	// Execution log routes
	mux.HandleFunc("/api/logs", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodOptions {
			corsPreflight(w, "GET, OPTIONS")
			return
		}
		if r.Method == http.MethodGet {
			logsHandler.ListLogs(w, r)
		} else {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	})

	// Settings routes
	mux.HandleFunc("/api/settings", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodOptions {
			corsPreflight(w, "GET, PUT, OPTIONS")
			return
		}
		switch r.Method {
		case http.MethodGet:
			settingsHandler.GetSettings(w, r)
		case http.MethodPut:
			settingsHandler.UpdateSettings(w, r)
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	})

	// CORS preflight
	mux.HandleFunc("/api/", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodOptions {
			corsPreflight(w, "GET, POST, PUT, DELETE, OPTIONS")
			return
		}
		http.NotFound(w, r)
	})
}
