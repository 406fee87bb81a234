package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/Past-Tang/x/internal/models"
	"github.com/Past-Tang/x/internal/pool"
	"github.com/Past-Tang/x/internal/vault"
)

type AccountsHandler struct {
	repo   models.AccountRepository
	pool   *pool.Pool
	tokens *vault.Vault
	logger *slog.Logger
}

func NewAccountsHandler(repo models.AccountRepository, accountPool *pool.Pool, tokens *vault.Vault, logger *slog.Logger) *AccountsHandler {
	return &AccountsHandler{
		repo:   repo,
		pool:   accountPool,
		tokens: tokens,
		logger: logger,
	}
}

// accountPayload is the request shape for create and update. The auth token
// arrives in plaintext exactly once and is sealed before it touches the store.
type accountPayload struct {
	models.Account
	AuthToken string `json:"auth_token,omitempty"`
}

// accountView is the response shape. The sealed token never serializes; the
// masked form is all the admin UI ever sees.
type accountView struct {
	*models.Account
	TokenMasked string `json:"token_masked"`
}

func (h *AccountsHandler) view(account *models.Account) accountView {
	masked := "********"
	if plain, err := h.tokens.Open(account.SealedToken); err == nil {
		masked = vault.Mask(plain)
	}
	return accountView{Account: account, TokenMasked: masked}
}

func (h *AccountsHandler) views(accounts []*models.Account) []accountView {
	out := make([]accountView, 0, len(accounts))
	for _, a := range accounts {
		out = append(out, h.view(a))
	}
	return out
}

// ListAccounts returns all pool accounts
// GET /api/accounts?status=active
func (h *AccountsHandler) ListAccounts(w http.ResponseWriter, r *http.Request) {
	var accounts []*models.Account
	var err error

	if raw := r.URL.Query().Get("status"); raw != "" {
		status, perr := models.ParseAccountStatus(raw)
		if perr != nil {
			http.Error(w, perr.Error(), http.StatusBadRequest)
			return
		}
		accounts, err = h.repo.ListByStatus(r.Context(), status)
	} else {
		accounts, err = h.repo.ListAll(r.Context())
	}

	if err != nil {
		h.logger.Error("failed to list accounts", "error", err)
		http.Error(w, "Failed to list accounts", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"accounts": h.views(accounts),
		"count":    len(accounts),
	})
}

// ListAvailableAccounts returns accounts that pass the usability checks now
// GET /api/accounts/available
func (h *AccountsHandler) ListAvailableAccounts(w http.ResponseWriter, r *http.Request) {
	accounts, err := h.pool.ListUsable(r.Context())
	if err != nil {
		h.logger.Error("failed to list usable accounts", "error", err)
		http.Error(w, "Failed to list accounts", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"accounts": h.views(accounts),
		"count":    len(accounts),
	})
}

// CreateAccount adds a new pool account
// POST /api/accounts
// Body: {"name": "main", "auth_token": "...", "max_slots": 1, "weight": 1}
func (h *AccountsHandler) CreateAccount(w http.ResponseWriter, r *http.Request) {
	var payload accountPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	account := payload.Account

	// Set defaults
	if account.MaxSlots == 0 {
		account.MaxSlots = 1
	}
	if account.Weight == 0 {
		account.Weight = 1
	}
	account.Status = models.AccountStatusActive

	if err := ValidateAccount(account.Name, account.MaxSlots, account.Weight); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if payload.AuthToken == "" {
		http.Error(w, "auth_token: Auth token is required", http.StatusBadRequest)
		return
	}

	sealed, err := h.tokens.Seal(payload.AuthToken)
	if err != nil {
		h.logger.Error("failed to seal auth token", "error", err)
		http.Error(w, "Failed to store account", http.StatusInternalServerError)
		return
	}
	account.SealedToken = sealed

	if err := h.repo.Create(r.Context(), &account); err != nil {
		h.logger.Error("failed to store account", "error", err)
		http.Error(w, "Failed to store account", http.StatusInternalServerError)
		return
	}

	h.logger.Info("added account", "id", account.ID, "name", account.Name)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(h.view(&account))
}

// GetAccount returns a specific account
// GET /api/accounts/:id
func (h *AccountsHandler) GetAccount(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/api/accounts/")

	account, err := h.repo.GetByID(r.Context(), id)
	if err != nil {
		h.logger.Error("failed to get account", "error", err)
		http.Error(w, "Failed to get account", http.StatusInternalServerError)
		return
	}

	if account == nil {
		http.Error(w, "Account not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(h.view(account))
}

// UpdateAccount updates an existing account
// PUT /api/accounts/:id
func (h *AccountsHandler) UpdateAccount(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/api/accounts/")

	var payload accountPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	existing, err := h.repo.GetByID(r.Context(), id)
	if err != nil {
		h.logger.Error("failed to get account", "error", err)
		http.Error(w, "Failed to get account", http.StatusInternalServerError)
		return
	}

	if existing == nil {
		http.Error(w, "Account not found", http.StatusNotFound)
		return
	}

	updates := payload.Account

	// Update fields
	if updates.Name != "" {
		existing.Name = updates.Name
	}
	if updates.UserID != "" {
		existing.UserID = updates.UserID
	}
	if updates.Handle != "" {
		existing.Handle = updates.Handle
	}
	if updates.MaxSlots != 0 {
		existing.MaxSlots = updates.MaxSlots
	}
	if updates.Weight != 0 {
		existing.Weight = updates.Weight
	}

	if err := ValidateAccount(existing.Name, existing.MaxSlots, existing.Weight); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	// Replace the credential only when a new token is supplied
	if payload.AuthToken != "" {
		sealed, err := h.tokens.Seal(payload.AuthToken)
		if err != nil {
			h.logger.Error("failed to seal auth token", "error", err)
			http.Error(w, "Failed to update account", http.StatusInternalServerError)
			return
		}
		existing.SealedToken = sealed
	}

	if err := h.repo.Update(r.Context(), existing); err != nil {
		h.logger.Error("failed to update account", "error", err)
		http.Error(w, "Failed to update account", http.StatusInternalServerError)
		return
	}

	// Status transitions go through SetStatus so reactivation clears the
	// failure streak.
	if updates.Status != "" && updates.Status != existing.Status {
		status, perr := models.ParseAccountStatus(string(updates.Status))
		if perr != nil {
			http.Error(w, perr.Error(), http.StatusBadRequest)
			return
		}
		if err := h.repo.SetStatus(r.Context(), id, status); err != nil {
			h.logger.Error("failed to set account status", "error", err)
			http.Error(w, "Failed to update account", http.StatusInternalServerError)
			return
		}
		existing, err = h.repo.GetByID(r.Context(), id)
		if err != nil || existing == nil {
			h.logger.Error("failed to reload account", "error", err)
			http.Error(w, "Failed to update account", http.StatusInternalServerError)
			return
		}
	}

	h.logger.Info("updated account", "id", id)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(h.view(existing))
}

// DeleteAccount removes an account from the pool
// DELETE /api/accounts/:id
func (h *AccountsHandler) DeleteAccount(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/api/accounts/")

	if err := h.repo.Delete(r.Context(), id); err != nil {
		h.logger.Error("failed to delete account", "error", err)
		http.Error(w, "Failed to delete account", http.StatusInternalServerError)
		return
	}

	h.logger.Info("deleted account", "id", id)

	w.WriteHeader(http.StatusNoContent)
}

// ToggleAccount switches an account between active and disabled
// POST /api/accounts/:id/toggle
func (h *AccountsHandler) ToggleAccount(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/api/accounts/")
	id = strings.TrimSuffix(id, "/toggle")

	var body struct {
		Enabled bool `json:"enabled"`
	}

	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	status := models.AccountStatusDisabled
	if body.Enabled {
		status = models.AccountStatusActive
	}

	if err := h.repo.SetStatus(r.Context(), id, status); err != nil {
		h.logger.Error("failed to toggle account", "error", err)
		http.Error(w, "Failed to toggle account", http.StatusInternalServerError)
		return
	}

	h.logger.Info("toggled account", "id", id, "enabled", body.Enabled)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"id":      id,
		"enabled": body.Enabled,
	})
}
