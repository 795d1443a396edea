package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/xstocklabs/xvault/api/middleware"
	"github.com/xstocklabs/xvault/api/types"
	"github.com/xstocklabs/xvault/metrics"
)

// VaultHandler handles vault API requests
type VaultHandler struct {
	service types.VaultService
	txLimit func(http.Handler) http.Handler
}

// NewVaultHandler creates a new VaultHandler
func NewVaultHandler(svc types.VaultService) *VaultHandler {
	return &VaultHandler{
		service: svc,
	}
}

// NewVaultHandlerWithLimiter creates a VaultHandler whose transaction routes
// run behind the stricter per-submitter rate limit tier
func NewVaultHandlerWithLimiter(svc types.VaultService, rl *middleware.RateLimiter) *VaultHandler {
	return &VaultHandler{
		service: svc,
		txLimit: middleware.TxRateLimitMiddleware(rl),
	}
}

// RegisterRoutes registers vault API routes
func (h *VaultHandler) RegisterRoutes(r *mux.Router) {
	// Vault routes
	r.HandleFunc("/v1/vault/vaults", h.GetVaults).Methods("GET")
	r.HandleFunc("/v1/vault/vaults", h.CreateVault).Methods("POST")
	r.HandleFunc("/v1/vault/vaults/{assetId}", h.GetVault).Methods("GET")
	r.HandleFunc("/v1/vault/vaults/{assetId}/epoch", h.GetEpochStats).Methods("GET")

	// Withdrawal queue routes
	r.HandleFunc("/v1/vault/vaults/{assetId}/withdrawals", h.GetPendingWithdrawals).Methods("GET")
	r.HandleFunc("/v1/vault/vaults/{assetId}/withdrawals/{user}", h.GetWithdrawalRequest).Methods("GET")

	// Exposure routes
	r.HandleFunc("/v1/vault/vaults/{assetId}/fills", h.GetExposureFills).Methods("GET")

	// User routes
	r.HandleFunc("/v1/vault/vaults/{assetId}/balance/{user}", h.GetUserShareBalance).Methods("GET")

	// Estimation routes
	r.HandleFunc("/v1/vault/vaults/{assetId}/estimate/deposit", h.EstimateDeposit).Methods("GET")
	r.HandleFunc("/v1/vault/vaults/{assetId}/estimate/withdrawal", h.EstimateWithdrawal).Methods("GET")

	// Transaction routes, behind the stricter tx rate limit tier when set
	r.Handle("/v1/vault/deposit", h.tx(h.Deposit)).Methods("POST")
	r.Handle("/v1/vault/withdrawal/request", h.tx(h.RequestWithdrawal)).Methods("POST")
	r.Handle("/v1/vault/withdrawal/process", h.tx(h.ProcessWithdrawal)).Methods("POST")
	r.Handle("/v1/vault/exposure", h.tx(h.RecordExposure)).Methods("POST")
	r.Handle("/v1/vault/epoch/advance", h.tx(h.AdvanceEpoch)).Methods("POST")
	r.Handle("/v1/vault/cap", h.tx(h.UpdateCap)).Methods("POST")
}

// tx wraps a transaction handler with the tx rate limit tier if configured
func (h *VaultHandler) tx(handlerFunc func(http.ResponseWriter, *http.Request)) http.Handler {
	handler := http.Handler(http.HandlerFunc(handlerFunc))
	if h.txLimit != nil {
		handler = h.txLimit(handler)
	}
	return handler
}

// writeError writes a JSON error response and records the error
func writeError(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	metrics.GetCollector().RecordAPIError(r.URL.Path, code)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{
		"error":   code,
		"message": message,
	})
}

// writeJSON writes a JSON response
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// GetVaults handles GET /v1/vault/vaults
func (h *VaultHandler) GetVaults(w http.ResponseWriter, r *http.Request) {
	vaults, err := h.service.GetVaults()
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "internal_error", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"vaults": vaults,
		"total":  len(vaults),
	})
}

// GetVault handles GET /v1/vault/vaults/{assetId}
func (h *VaultHandler) GetVault(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	assetID := vars["assetId"]

	vault, err := h.service.GetVault(assetID)
	if err != nil {
		writeError(w, r, http.StatusNotFound, "vault_not_found", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, vault)
}

// GetEpochStats handles GET /v1/vault/vaults/{assetId}/epoch
func (h *VaultHandler) GetEpochStats(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	assetID := vars["assetId"]

	stats, err := h.service.GetEpochStats(assetID)
	if err != nil {
		writeError(w, r, http.StatusNotFound, "vault_not_found", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, stats)
}

// GetPendingWithdrawals handles GET /v1/vault/vaults/{assetId}/withdrawals
func (h *VaultHandler) GetPendingWithdrawals(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	assetID := vars["assetId"]

	withdrawals, totalShares, err := h.service.GetPendingWithdrawals(assetID)
	if err != nil {
		writeError(w, r, http.StatusNotFound, "vault_not_found", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"withdrawals":  withdrawals,
		"total":        len(withdrawals),
		"total_shares": strconv.FormatUint(totalShares, 10),
	})
}

// GetWithdrawalRequest handles GET /v1/vault/vaults/{assetId}/withdrawals/{user}
func (h *VaultHandler) GetWithdrawalRequest(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	assetID := vars["assetId"]
	user := vars["user"]

	req, err := h.service.GetWithdrawalRequest(assetID, user)
	if err != nil {
		writeError(w, r, http.StatusNotFound, "request_not_found", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, req)
}

// GetExposureFills handles GET /v1/vault/vaults/{assetId}/fills
func (h *VaultHandler) GetExposureFills(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	assetID := vars["assetId"]

	fills, err := h.service.GetExposureFills(assetID)
	if err != nil {
		writeError(w, r, http.StatusNotFound, "vault_not_found", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"fills": fills,
		"total": len(fills),
	})
}

// GetUserShareBalance handles GET /v1/vault/vaults/{assetId}/balance/{user}
func (h *VaultHandler) GetUserShareBalance(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	assetID := vars["assetId"]
	user := vars["user"]

	balance, err := h.service.GetUserShareBalance(assetID, user)
	if err != nil {
		writeError(w, r, http.StatusNotFound, "vault_not_found", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, balance)
}

// EstimateDeposit handles GET /v1/vault/vaults/{assetId}/estimate/deposit
func (h *VaultHandler) EstimateDeposit(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	assetID := vars["assetId"]

	amount, err := strconv.ParseUint(r.URL.Query().Get("amount"), 10, 64)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid_amount", "amount must be a positive integer")
		return
	}

	estimate, err := h.service.EstimateDeposit(assetID, amount)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "estimate_failed", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, estimate)
}

// EstimateWithdrawal handles GET /v1/vault/vaults/{assetId}/estimate/withdrawal
func (h *VaultHandler) EstimateWithdrawal(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	assetID := vars["assetId"]

	shares, err := strconv.ParseUint(r.URL.Query().Get("shares"), 10, 64)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid_shares", "shares must be a positive integer")
		return
	}

	estimate, err := h.service.EstimateWithdrawal(assetID, shares)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "estimate_failed", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, estimate)
}

// CreateVaultRequest represents a vault creation request
type CreateVaultRequest struct {
	Authority         string `json:"authority"`
	AssetID           string `json:"asset_id"`
	UnderlyingDenom   string `json:"underlying_denom"`
	UtilizationCapBps uint16 `json:"utilization_cap_bps"`
}

// CreateVault handles POST /v1/vault/vaults
func (h *VaultHandler) CreateVault(w http.ResponseWriter, r *http.Request) {
	var req CreateVaultRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid_request", "invalid request body")
		return
	}

	vault, err := h.service.CreateVault(req.Authority, req.AssetID, req.UnderlyingDenom, req.UtilizationCapBps)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "create_failed", err.Error())
		return
	}

	writeJSON(w, http.StatusCreated, vault)
}

// DepositRequest represents a deposit request
type DepositRequest struct {
	Depositor string `json:"depositor"`
	AssetID   string `json:"asset_id"`
	Amount    uint64 `json:"amount,string"`
}

// Deposit handles POST /v1/vault/deposit
func (h *VaultHandler) Deposit(w http.ResponseWriter, r *http.Request) {
	var req DepositRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid_request", "invalid request body")
		return
	}

	result, err := h.service.Deposit(req.AssetID, req.Depositor, req.Amount)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "deposit_failed", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// WithdrawalRequest represents a withdrawal queue request
type WithdrawalRequest struct {
	User    string `json:"user"`
	AssetID string `json:"asset_id"`
	Shares  uint64 `json:"shares,string"`
}

// RequestWithdrawal handles POST /v1/vault/withdrawal/request
func (h *VaultHandler) RequestWithdrawal(w http.ResponseWriter, r *http.Request) {
	var req WithdrawalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid_request", "invalid request body")
		return
	}

	result, err := h.service.RequestWithdrawal(req.AssetID, req.User, req.Shares)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "request_failed", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// ProcessWithdrawalRequest represents a settlement request
type ProcessWithdrawalRequest struct {
	User    string `json:"user"`
	AssetID string `json:"asset_id"`
}

// ProcessWithdrawal handles POST /v1/vault/withdrawal/process
func (h *VaultHandler) ProcessWithdrawal(w http.ResponseWriter, r *http.Request) {
	var req ProcessWithdrawalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid_request", "invalid request body")
		return
	}

	result, err := h.service.ProcessWithdrawal(req.AssetID, req.User)
	if err != nil {
		writeError(w, r, http.StatusConflict, "process_failed", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// RecordExposureRequest represents a strategy fill report
type RecordExposureRequest struct {
	Operator string `json:"operator"`
	AssetID  string `json:"asset_id"`
	Notional uint64 `json:"notional,string"`
	Premium  uint64 `json:"premium,string"`
}

// RecordExposure handles POST /v1/vault/exposure
func (h *VaultHandler) RecordExposure(w http.ResponseWriter, r *http.Request) {
	var req RecordExposureRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid_request", "invalid request body")
		return
	}

	result, err := h.service.RecordExposure(req.AssetID, req.Operator, req.Notional, req.Premium)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "exposure_rejected", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// AdvanceEpochRequest represents an epoch close request
type AdvanceEpochRequest struct {
	Operator      string `json:"operator"`
	AssetID       string `json:"asset_id"`
	PremiumEarned uint64 `json:"premium_earned,string"`
}

// AdvanceEpoch handles POST /v1/vault/epoch/advance
func (h *VaultHandler) AdvanceEpoch(w http.ResponseWriter, r *http.Request) {
	var req AdvanceEpochRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid_request", "invalid request body")
		return
	}

	result, err := h.service.AdvanceEpoch(req.AssetID, req.Operator, req.PremiumEarned)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "advance_failed", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// UpdateCapRequest represents a utilization cap change request
type UpdateCapRequest struct {
	Authority string `json:"authority"`
	AssetID   string `json:"asset_id"`
	NewCapBps uint16 `json:"new_cap_bps"`
}

// UpdateCap handles POST /v1/vault/cap
func (h *VaultHandler) UpdateCap(w http.ResponseWriter, r *http.Request) {
	var req UpdateCapRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid_request", "invalid request body")
		return
	}

	result, err := h.service.UpdateUtilizationCap(req.AssetID, req.Authority, req.NewCapBps)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "cap_update_failed", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, result)
}
