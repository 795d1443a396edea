package api

import (
	"testing"
)

func newTestService(t *testing.T) *StandaloneVaultService {
	t.Helper()
	svc := NewStandaloneVaultService()
	if _, err := svc.CreateVault("authority1", "xTSLA", "uusdc", 5000); err != nil {
		t.Fatalf("CreateVault failed: %v", err)
	}
	return svc
}

func TestStandaloneCreateVault(t *testing.T) {
	svc := newTestService(t)

	vault, err := svc.GetVault("xTSLA")
	if err != nil {
		t.Fatalf("GetVault failed: %v", err)
	}
	if vault.ShareDenom != "xvshare/xTSLA" {
		t.Errorf("expected share denom xvshare/xTSLA, got %s", vault.ShareDenom)
	}
	if vault.Epoch != 0 {
		t.Errorf("expected epoch 0, got %d", vault.Epoch)
	}

	if _, err := svc.CreateVault("authority1", "xTSLA", "uusdc", 5000); err == nil {
		t.Error("expected duplicate vault creation to fail")
	}
	if _, err := svc.CreateVault("authority1", "xNVDA", "uusdc", 10001); err == nil {
		t.Error("expected cap above 10000 bps to fail")
	}
}

func TestStandaloneDepositMintsShares(t *testing.T) {
	svc := newTestService(t)

	result, err := svc.Deposit("xTSLA", "alice", 1_000_000)
	if err != nil {
		t.Fatalf("Deposit failed: %v", err)
	}
	if result.SharesMinted != "1000000" {
		t.Errorf("expected bootstrap 1:1 mint, got %s", result.SharesMinted)
	}

	balance, err := svc.GetUserShareBalance("xTSLA", "alice")
	if err != nil {
		t.Fatalf("GetUserShareBalance failed: %v", err)
	}
	if balance.Shares != "1000000" {
		t.Errorf("expected 1000000 shares, got %s", balance.Shares)
	}
}

func TestStandaloneWithdrawalEpochGate(t *testing.T) {
	svc := newTestService(t)

	if _, err := svc.Deposit("xTSLA", "alice", 1_000_000); err != nil {
		t.Fatalf("Deposit failed: %v", err)
	}
	if _, err := svc.RequestWithdrawal("xTSLA", "alice", 400_000); err != nil {
		t.Fatalf("RequestWithdrawal failed: %v", err)
	}

	// Same epoch: settlement is gated
	if _, err := svc.ProcessWithdrawal("xTSLA", "alice"); err == nil {
		t.Fatal("expected same-epoch settlement to be rejected")
	}

	if _, err := svc.AdvanceEpoch("xTSLA", "authority1", 0); err != nil {
		t.Fatalf("AdvanceEpoch failed: %v", err)
	}

	result, err := svc.ProcessWithdrawal("xTSLA", "alice")
	if err != nil {
		t.Fatalf("ProcessWithdrawal failed: %v", err)
	}
	if result.AmountPaid != "400000" {
		t.Errorf("expected payout 400000, got %s", result.AmountPaid)
	}

	// Second settlement attempt must fail
	if _, err := svc.ProcessWithdrawal("xTSLA", "alice"); err == nil {
		t.Error("expected second settlement to be rejected")
	}
}

func TestStandaloneWithdrawalCapturesYield(t *testing.T) {
	svc := newTestService(t)

	if _, err := svc.Deposit("xTSLA", "alice", 1_000_000); err != nil {
		t.Fatalf("Deposit failed: %v", err)
	}
	if _, err := svc.RequestWithdrawal("xTSLA", "alice", 1_000_000); err != nil {
		t.Fatalf("RequestWithdrawal failed: %v", err)
	}
	if _, err := svc.AdvanceEpoch("xTSLA", "authority1", 100_000); err != nil {
		t.Fatalf("AdvanceEpoch failed: %v", err)
	}

	result, err := svc.ProcessWithdrawal("xTSLA", "alice")
	if err != nil {
		t.Fatalf("ProcessWithdrawal failed: %v", err)
	}
	if result.AmountPaid != "1100000" {
		t.Errorf("expected payout to include epoch premium, got %s", result.AmountPaid)
	}
}

func TestStandaloneExposureCap(t *testing.T) {
	svc := newTestService(t)

	// 1.2M assets at 5000 bps -> 600k cap
	if _, err := svc.Deposit("xTSLA", "alice", 1_200_000); err != nil {
		t.Fatalf("Deposit failed: %v", err)
	}

	if _, err := svc.RecordExposure("xTSLA", "authority1", 400_000, 2_000); err != nil {
		t.Fatalf("RecordExposure failed: %v", err)
	}
	result, err := svc.RecordExposure("xTSLA", "authority1", 200_000, 1_000)
	if err != nil {
		t.Fatalf("expected fill to exactly reach cap: %v", err)
	}
	if result.RemainingCapacity != "0" {
		t.Errorf("expected no remaining capacity, got %s", result.RemainingCapacity)
	}

	if _, err := svc.RecordExposure("xTSLA", "authority1", 1, 0); err == nil {
		t.Error("expected fill beyond cap to be rejected")
	}

	// Not the authority
	if _, err := svc.RecordExposure("xTSLA", "mallory", 1, 0); err == nil {
		t.Error("expected non-authority exposure to be rejected")
	}

	fills, err := svc.GetExposureFills("xTSLA")
	if err != nil {
		t.Fatalf("GetExposureFills failed: %v", err)
	}
	if len(fills) != 2 {
		t.Errorf("expected 2 fills in audit trail, got %d", len(fills))
	}
}

func TestStandaloneRefileRebasesPending(t *testing.T) {
	svc := newTestService(t)

	if _, err := svc.Deposit("xTSLA", "alice", 1_000_000); err != nil {
		t.Fatalf("Deposit failed: %v", err)
	}
	if _, err := svc.RequestWithdrawal("xTSLA", "alice", 600_000); err != nil {
		t.Fatalf("RequestWithdrawal failed: %v", err)
	}
	if _, err := svc.RequestWithdrawal("xTSLA", "alice", 200_000); err != nil {
		t.Fatalf("refile failed: %v", err)
	}

	vault, err := svc.GetVault("xTSLA")
	if err != nil {
		t.Fatalf("GetVault failed: %v", err)
	}
	if vault.PendingWithdrawalShares != "200000" {
		t.Errorf("expected pending shares rebased to 200000, got %s", vault.PendingWithdrawalShares)
	}
}
