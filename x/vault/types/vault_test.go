package types

import (
	"errors"
	"math"
	"math/bits"
	"testing"

	"pgregory.net/rapid"
)

// TestNewVaultDefaults tests vault creation defaults
func TestNewVaultDefaults(t *testing.T) {
	v := NewVault("cosmos1authority...", "xTSLA", "uusdc", 5000, 1700000000)

	if v.AssetID != "xTSLA" {
		t.Errorf("expected asset ID xTSLA, got %s", v.AssetID)
	}
	if v.ShareDenom != "xvshare/xTSLA" {
		t.Errorf("expected share denom xvshare/xTSLA, got %s", v.ShareDenom)
	}
	if v.TotalAssets != 0 || v.TotalShares != 0 {
		t.Errorf("expected empty vault, got assets=%d shares=%d", v.TotalAssets, v.TotalShares)
	}
	if v.Epoch != 0 {
		t.Errorf("expected epoch 0, got %d", v.Epoch)
	}
	if v.UtilizationCapBps != 5000 {
		t.Errorf("expected cap 5000 bps, got %d", v.UtilizationCapBps)
	}
	if v.CreatedAt != 1700000000 || v.UpdatedAt != 1700000000 {
		t.Error("expected creation timestamps to be stamped")
	}
}

// TestSharesForDepositBootstrap tests the 1:1 first deposit
func TestSharesForDepositBootstrap(t *testing.T) {
	v := NewVault("auth", "xTSLA", "uusdc", 5000, 0)

	shares, err := v.SharesForDeposit(1_000_000)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if shares != 1_000_000 {
		t.Errorf("expected 1:1 bootstrap mint, got %d", shares)
	}
}

// TestSharesForDepositProRata tests pro-rata minting after yield accrual
func TestSharesForDepositProRata(t *testing.T) {
	v := NewVault("auth", "xTSLA", "uusdc", 5000, 0)
	v.TotalAssets = 1_500_000
	v.TotalShares = 1_000_000

	// 300000 * 1000000 / 1500000 = 200000
	shares, err := v.SharesForDeposit(300_000)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if shares != 200_000 {
		t.Errorf("expected 200000 shares, got %d", shares)
	}
}

// TestSharesForDepositFloorRounding tests that rounding favors the pool
func TestSharesForDepositFloorRounding(t *testing.T) {
	v := NewVault("auth", "xTSLA", "uusdc", 5000, 0)
	v.TotalAssets = 3_000_000
	v.TotalShares = 1_000_000

	// 100 * 1000000 / 3000000 = 33.33 -> 33
	shares, err := v.SharesForDeposit(100)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if shares != 33 {
		t.Errorf("expected floor to 33 shares, got %d", shares)
	}
}

// TestSharesForDepositZeroShares tests dust rejection
func TestSharesForDepositZeroShares(t *testing.T) {
	v := NewVault("auth", "xTSLA", "uusdc", 5000, 0)
	v.TotalAssets = 10_000_000
	v.TotalShares = 1

	// 1 * 1 / 10000000 floors to 0
	if _, err := v.SharesForDeposit(1); !errors.Is(err, ErrZeroShares) {
		t.Errorf("expected ErrZeroShares, got %v", err)
	}
}

// TestSharesForDepositZeroAmount tests zero-amount rejection
func TestSharesForDepositZeroAmount(t *testing.T) {
	v := NewVault("auth", "xTSLA", "uusdc", 5000, 0)
	if _, err := v.SharesForDeposit(0); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput, got %v", err)
	}
}

// TestSharesForDepositLargeIntermediate tests that the intermediate product
// surviving past uint64 does not corrupt the result
func TestSharesForDepositLargeIntermediate(t *testing.T) {
	v := NewVault("auth", "xTSLA", "uusdc", 5000, 0)
	v.TotalAssets = math.MaxUint64 / 2
	v.TotalShares = math.MaxUint64 / 2

	shares, err := v.SharesForDeposit(1_000_000)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if shares != 1_000_000 {
		t.Errorf("expected 1:1 at equal totals, got %d", shares)
	}
}

// TestAmountForShares tests redemption valuation
func TestAmountForShares(t *testing.T) {
	v := NewVault("auth", "xTSLA", "uusdc", 5000, 0)
	v.TotalAssets = 1_200_000
	v.TotalShares = 1_000_000

	// 500000 * 1200000 / 1000000 = 600000
	amount, err := v.AmountForShares(500_000)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if amount != 600_000 {
		t.Errorf("expected 600000, got %d", amount)
	}
}

// TestAmountForSharesEmptyVault tests redemption against empty supply
func TestAmountForSharesEmptyVault(t *testing.T) {
	v := NewVault("auth", "xTSLA", "uusdc", 5000, 0)
	amount, err := v.AmountForShares(100)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if amount != 0 {
		t.Errorf("expected 0 payout from empty vault, got %d", amount)
	}
}

// TestMaxExposure tests the utilization cap computation
func TestMaxExposure(t *testing.T) {
	v := NewVault("auth", "xTSLA", "uusdc", 5000, 0)
	v.TotalAssets = 1_000_000

	if max := v.MaxExposure(); max != 500_000 {
		t.Errorf("expected cap 500000 at 50%%, got %d", max)
	}

	v.UtilizationCapBps = 0
	if max := v.MaxExposure(); max != 0 {
		t.Errorf("expected zero cap at 0 bps, got %d", max)
	}

	v.UtilizationCapBps = 10000
	if max := v.MaxExposure(); max != 1_000_000 {
		t.Errorf("expected full cap at 10000 bps, got %d", max)
	}
}

// TestAvgPremiumBps tests the running average premium
func TestAvgPremiumBps(t *testing.T) {
	// 5000 / 100000 = 5% = 500 bps
	if bps := AvgPremiumBps(5_000, 100_000); bps != 500 {
		t.Errorf("expected 500 bps, got %d", bps)
	}
	// zero notional guards the division
	if bps := AvgPremiumBps(5_000, 0); bps != 0 {
		t.Errorf("expected 0 bps at zero notional, got %d", bps)
	}
	// floor: 1 / 30000 * 10000 = 0.33 -> 0
	if bps := AvgPremiumBps(1, 30_000); bps != 0 {
		t.Errorf("expected floor to 0 bps, got %d", bps)
	}
}

// TestSharePrice tests the telemetry price
func TestSharePrice(t *testing.T) {
	v := NewVault("auth", "xTSLA", "uusdc", 5000, 0)
	if !v.SharePrice().Equal(v.SharePrice()) || v.SharePrice().String() != "1.000000000000000000" {
		t.Errorf("expected price 1.0 on empty vault, got %s", v.SharePrice().String())
	}

	v.TotalAssets = 1_500_000
	v.TotalShares = 1_000_000
	if v.SharePrice().String() != "1.500000000000000000" {
		t.Errorf("expected price 1.5, got %s", v.SharePrice().String())
	}
}

// TestCheckedArithmetic tests wraparound detection
func TestCheckedArithmetic(t *testing.T) {
	if _, err := CheckedAdd(math.MaxUint64, 1); !errors.Is(err, ErrOverflow) {
		t.Error("expected overflow on MaxUint64+1")
	}
	if sum, err := CheckedAdd(40, 2); err != nil || sum != 42 {
		t.Errorf("expected 42, got %d (%v)", sum, err)
	}
	if _, err := CheckedSub(1, 2); !errors.Is(err, ErrOverflow) {
		t.Error("expected underflow on 1-2")
	}
	if diff, err := CheckedSub(44, 2); err != nil || diff != 42 {
		t.Errorf("expected 42, got %d (%v)", diff, err)
	}
}

// TestSharePriceMonotoneUnderDeposit checks that a deposit at the current
// price never increases existing holders' redemption value and never mints
// shares worth more than the amount paid in.
func TestSharePriceMonotoneUnderDeposit(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		totalAssets := rapid.Uint64Range(1, 1<<40).Draw(t, "totalAssets")
		totalShares := rapid.Uint64Range(1, 1<<40).Draw(t, "totalShares")
		amount := rapid.Uint64Range(1, 1<<40).Draw(t, "amount")

		v := NewVault("auth", "xTSLA", "uusdc", 5000, 0)
		v.TotalAssets = totalAssets
		v.TotalShares = totalShares

		shares, err := v.SharesForDeposit(amount)
		if errors.Is(err, ErrZeroShares) {
			return
		}
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		// minted shares valued at the pre-deposit price never exceed the
		// amount paid: shares * totalAssets <= amount * totalShares
		lhsHi, lhsLo := bits.Mul64(shares, totalAssets)
		rhsHi, rhsLo := bits.Mul64(amount, totalShares)
		if lhsHi > rhsHi || (lhsHi == rhsHi && lhsLo > rhsLo) {
			t.Fatalf("minted %d shares for %d units dilutes holders", shares, amount)
		}
	})
}

// TestRedemptionNeverExceedsDeposit checks the deposit/redeem round trip
// never pays out more than was paid in while the price is unchanged.
func TestRedemptionNeverExceedsDeposit(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		totalAssets := rapid.Uint64Range(1, 1<<40).Draw(t, "totalAssets")
		totalShares := rapid.Uint64Range(1, 1<<40).Draw(t, "totalShares")
		amount := rapid.Uint64Range(1, 1<<40).Draw(t, "amount")

		v := NewVault("auth", "xTSLA", "uusdc", 5000, 0)
		v.TotalAssets = totalAssets
		v.TotalShares = totalShares

		shares, err := v.SharesForDeposit(amount)
		if err != nil {
			return
		}

		v.TotalAssets += amount
		v.TotalShares += shares

		payout, err := v.AmountForShares(shares)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if payout > amount {
			t.Fatalf("round trip pays %d for deposit of %d", payout, amount)
		}
	})
}
