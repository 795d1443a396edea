package types

import "testing"

// TestNewWithdrawalRequest tests request creation
func TestNewWithdrawalRequest(t *testing.T) {
	req := NewWithdrawalRequest("cosmos1user...", "xTSLA", 500, 3, 1700000000)

	if req.User != "cosmos1user..." {
		t.Errorf("expected user cosmos1user..., got %s", req.User)
	}
	if req.AssetID != "xTSLA" {
		t.Errorf("expected asset xTSLA, got %s", req.AssetID)
	}
	if req.Shares != 500 {
		t.Errorf("expected 500 shares, got %d", req.Shares)
	}
	if req.RequestEpoch != 3 {
		t.Errorf("expected request epoch 3, got %d", req.RequestEpoch)
	}
	if req.Processed {
		t.Error("expected new request to be unprocessed")
	}
	if req.SettledEpoch != 0 || req.AmountPaid != 0 || req.SettledAt != 0 {
		t.Error("expected settlement fields to be empty on a new request")
	}
}

// TestSettleable tests the epoch gate
func TestSettleable(t *testing.T) {
	req := NewWithdrawalRequest("cosmos1user...", "xTSLA", 500, 3, 0)

	// same epoch: blocked
	if req.Settleable(3) {
		t.Error("expected same-epoch settlement to be blocked")
	}
	// earlier epoch: blocked
	if req.Settleable(2) {
		t.Error("expected earlier-epoch settlement to be blocked")
	}
	// next epoch: open
	if !req.Settleable(4) {
		t.Error("expected settlement open one epoch later")
	}
	// much later epoch: still open
	if !req.Settleable(10) {
		t.Error("expected settlement open at any later epoch")
	}

	// processed requests never re-settle
	req.Settle(4, 600, 1700000100)
	if req.Settleable(5) {
		t.Error("expected processed request to be terminal")
	}
}

// TestSettle tests the settlement echo
func TestSettle(t *testing.T) {
	req := NewWithdrawalRequest("cosmos1user...", "xTSLA", 500, 3, 1700000000)
	req.Settle(4, 600, 1700000100)

	if !req.Processed {
		t.Error("expected request marked processed")
	}
	if req.SettledEpoch != 4 {
		t.Errorf("expected settled epoch 4, got %d", req.SettledEpoch)
	}
	if req.AmountPaid != 600 {
		t.Errorf("expected amount paid 600, got %d", req.AmountPaid)
	}
	if req.SettledAt != 1700000100 {
		t.Errorf("expected settled at 1700000100, got %d", req.SettledAt)
	}
}
