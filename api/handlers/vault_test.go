package handlers_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/mux"

	"github.com/xstocklabs/xvault/api"
	"github.com/xstocklabs/xvault/api/handlers"
	"github.com/xstocklabs/xvault/api/middleware"
)

func newTestRouter(t *testing.T) *mux.Router {
	t.Helper()
	svc := api.NewStandaloneVaultService()
	handler := handlers.NewVaultHandler(svc)
	router := mux.NewRouter()
	handler.RegisterRoutes(router)
	return router
}

func doJSON(t *testing.T, router *mux.Router, method, path string, body interface{}) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encoding request body: %v", err)
		}
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	decoded := make(map[string]interface{})
	if rec.Body.Len() > 0 {
		if err := json.Unmarshal(rec.Body.Bytes(), &decoded); err != nil {
			t.Fatalf("decoding response %q: %v", rec.Body.String(), err)
		}
	}
	return rec, decoded
}

func createTestVault(t *testing.T, router *mux.Router) {
	t.Helper()
	rec, _ := doJSON(t, router, http.MethodPost, "/v1/vault/vaults", map[string]interface{}{
		"authority":           "authority1",
		"asset_id":            "xTSLA",
		"underlying_denom":    "uusdc",
		"utilization_cap_bps": 5000,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201 creating vault, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestCreateAndGetVault(t *testing.T) {
	router := newTestRouter(t)
	createTestVault(t, router)

	rec, resp := doJSON(t, router, http.MethodGet, "/v1/vault/vaults/xTSLA", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if resp["share_denom"] != "xvshare/xTSLA" {
		t.Errorf("expected share denom xvshare/xTSLA, got %v", resp["share_denom"])
	}
	if resp["total_assets"] != "0" {
		t.Errorf("expected empty vault, got assets %v", resp["total_assets"])
	}

	rec, _ = doJSON(t, router, http.MethodGet, "/v1/vault/vaults/xNVDA", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404 for unknown vault, got %d", rec.Code)
	}
}

func TestDepositEndpoint(t *testing.T) {
	router := newTestRouter(t)
	createTestVault(t, router)

	rec, resp := doJSON(t, router, http.MethodPost, "/v1/vault/deposit", map[string]interface{}{
		"depositor": "alice",
		"asset_id":  "xTSLA",
		"amount":    "1000000",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if resp["shares_minted"] != "1000000" {
		t.Errorf("expected bootstrap 1:1 mint, got %v", resp["shares_minted"])
	}

	rec, resp = doJSON(t, router, http.MethodGet, "/v1/vault/vaults/xTSLA/balance/alice", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if resp["shares"] != "1000000" {
		t.Errorf("expected 1000000 shares, got %v", resp["shares"])
	}
}

func TestWithdrawalLifecycleEndpoints(t *testing.T) {
	router := newTestRouter(t)
	createTestVault(t, router)

	doJSON(t, router, http.MethodPost, "/v1/vault/deposit", map[string]interface{}{
		"depositor": "alice",
		"asset_id":  "xTSLA",
		"amount":    "1000000",
	})

	rec, resp := doJSON(t, router, http.MethodPost, "/v1/vault/withdrawal/request", map[string]interface{}{
		"user":     "alice",
		"asset_id": "xTSLA",
		"shares":   "400000",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if resp["settleable_epoch"] != float64(1) {
		t.Errorf("expected settleable epoch 1, got %v", resp["settleable_epoch"])
	}

	// Settlement in the same epoch is gated
	rec, _ = doJSON(t, router, http.MethodPost, "/v1/vault/withdrawal/process", map[string]interface{}{
		"user":     "alice",
		"asset_id": "xTSLA",
	})
	if rec.Code != http.StatusConflict {
		t.Errorf("expected 409 for same-epoch settlement, got %d", rec.Code)
	}

	rec, _ = doJSON(t, router, http.MethodPost, "/v1/vault/epoch/advance", map[string]interface{}{
		"operator":       "authority1",
		"asset_id":       "xTSLA",
		"premium_earned": "0",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 advancing epoch, got %d: %s", rec.Code, rec.Body.String())
	}

	rec, resp = doJSON(t, router, http.MethodPost, "/v1/vault/withdrawal/process", map[string]interface{}{
		"user":     "alice",
		"asset_id": "xTSLA",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 settling, got %d: %s", rec.Code, rec.Body.String())
	}
	if resp["amount_paid"] != "400000" {
		t.Errorf("expected payout 400000, got %v", resp["amount_paid"])
	}

	// The pending queue is drained
	rec, resp = doJSON(t, router, http.MethodGet, "/v1/vault/vaults/xTSLA/withdrawals", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if resp["total"] != float64(0) {
		t.Errorf("expected no pending withdrawals, got %v", resp["total"])
	}
}

func TestExposureEndpointEnforcesCap(t *testing.T) {
	router := newTestRouter(t)
	createTestVault(t, router)

	doJSON(t, router, http.MethodPost, "/v1/vault/deposit", map[string]interface{}{
		"depositor": "alice",
		"asset_id":  "xTSLA",
		"amount":    "1200000",
	})

	// 1.2M at 5000 bps -> 600k cap
	rec, resp := doJSON(t, router, http.MethodPost, "/v1/vault/exposure", map[string]interface{}{
		"operator": "authority1",
		"asset_id": "xTSLA",
		"notional": "600000",
		"premium":  "3000",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if resp["remaining_capacity"] != "0" {
		t.Errorf("expected no remaining capacity, got %v", resp["remaining_capacity"])
	}

	rec, _ = doJSON(t, router, http.MethodPost, "/v1/vault/exposure", map[string]interface{}{
		"operator": "authority1",
		"asset_id": "xTSLA",
		"notional": "1",
		"premium":  "0",
	})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for over-cap fill, got %d", rec.Code)
	}

	rec, resp = doJSON(t, router, http.MethodGet, "/v1/vault/vaults/xTSLA/fills", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if resp["total"] != float64(1) {
		t.Errorf("expected 1 recorded fill, got %v", resp["total"])
	}
}

func TestEstimateEndpoints(t *testing.T) {
	router := newTestRouter(t)
	createTestVault(t, router)

	doJSON(t, router, http.MethodPost, "/v1/vault/deposit", map[string]interface{}{
		"depositor": "alice",
		"asset_id":  "xTSLA",
		"amount":    "1000000",
	})
	// Fold in premium so the share price moves off 1.0
	doJSON(t, router, http.MethodPost, "/v1/vault/epoch/advance", map[string]interface{}{
		"operator":       "authority1",
		"asset_id":       "xTSLA",
		"premium_earned": "500000",
	})

	rec, resp := doJSON(t, router, http.MethodGet, "/v1/vault/vaults/xTSLA/estimate/deposit?amount=300000", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	// 300000 * 1000000 / 1500000 = 200000
	if resp["shares"] != "200000" {
		t.Errorf("expected 200000 shares at 1.5 share price, got %v", resp["shares"])
	}

	rec, resp = doJSON(t, router, http.MethodGet, "/v1/vault/vaults/xTSLA/estimate/withdrawal?shares=200000", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if resp["amount"] != "300000" {
		t.Errorf("expected 300000 payout, got %v", resp["amount"])
	}

	rec, _ = doJSON(t, router, http.MethodGet, "/v1/vault/vaults/xTSLA/estimate/deposit?amount=abc", nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for bad amount, got %d", rec.Code)
	}
}

func TestEpochStatsEndpoint(t *testing.T) {
	router := newTestRouter(t)
	createTestVault(t, router)

	doJSON(t, router, http.MethodPost, "/v1/vault/deposit", map[string]interface{}{
		"depositor": "alice",
		"asset_id":  "xTSLA",
		"amount":    "1000000",
	})
	doJSON(t, router, http.MethodPost, "/v1/vault/exposure", map[string]interface{}{
		"operator": "authority1",
		"asset_id": "xTSLA",
		"notional": "200000",
		"premium":  "1000",
	})

	rec, resp := doJSON(t, router, http.MethodGet, "/v1/vault/vaults/xTSLA/epoch", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if resp["notional_exposed"] != "200000" {
		t.Errorf("expected exposure 200000, got %v", resp["notional_exposed"])
	}
	if resp["max_exposure"] != "500000" {
		t.Errorf("expected cap 500000, got %v", resp["max_exposure"])
	}
	if resp["remaining_capacity"] != "300000" {
		t.Errorf("expected remaining 300000, got %v", resp["remaining_capacity"])
	}
	// 1000 * 10000 / 200000 = 50 bps
	if resp["avg_premium_bps"] != float64(50) {
		t.Errorf("expected 50 bps average premium, got %v", resp["avg_premium_bps"])
	}
}

func TestTransactionRateLimit(t *testing.T) {
	rl := middleware.NewRateLimiter(&middleware.RateLimitConfig{
		IPRequestsPerSecond:   100,
		IPBurst:               200,
		IPBlockDuration:       time.Minute,
		UserRequestsPerSecond: 200,
		UserBurst:             400,
		TxPerSecond:           1,
		TxPerDay:              100,
		TxBurst:               2,
		CleanupInterval:       time.Minute,
		BucketTTL:             time.Hour,
	})
	defer rl.Stop()

	svc := api.NewStandaloneVaultService()
	handler := handlers.NewVaultHandlerWithLimiter(svc, rl)
	router := mux.NewRouter()
	handler.RegisterRoutes(router)
	createTestVault(t, router)

	deposit := map[string]interface{}{
		"depositor": "alice",
		"asset_id":  "xTSLA",
		"amount":    "1000",
	}

	// burst of 2 transaction submissions passes
	for i := 0; i < 2; i++ {
		rec, _ := doJSON(t, router, http.MethodPost, "/v1/vault/deposit", deposit)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected deposit %d to pass, got %d: %s", i+1, rec.Code, rec.Body.String())
		}
	}

	// the third exhausts the bucket
	rec, resp := doJSON(t, router, http.MethodPost, "/v1/vault/deposit", deposit)
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429 once tx burst is spent, got %d", rec.Code)
	}
	if resp["error"] != "tx_limit_exceeded" {
		t.Errorf("expected tx_limit_exceeded, got %v", resp["error"])
	}

	// query routes stay outside the transaction tier
	rec, _ = doJSON(t, router, http.MethodGet, "/v1/vault/vaults/xTSLA", nil)
	if rec.Code != http.StatusOK {
		t.Errorf("expected queries to stay unthrottled, got %d", rec.Code)
	}
}
