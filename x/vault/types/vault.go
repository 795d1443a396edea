package types

import (
	"fmt"

	"cosmossdk.io/math"
)

// Module name and store key
const (
	ModuleName = "vault"
	StoreKey   = ModuleName
)

// Basis point scale: 10000 bps = 100%
const (
	BpsScale   = uint64(10000)
	MaxCapBps  = uint16(10000)
	maxUint32  = uint64(1<<32 - 1)
)

// ShareDenomPrefix prefixes the denom of the shares minted against a vault.
const ShareDenomPrefix = "xvshare"

// Vault is the pooled-capital accounting record for one strategy asset.
// Share price is TotalAssets/TotalShares; the record is either empty
// (both zero) or carries a well-defined price.
type Vault struct {
	Authority       string `json:"authority"`
	AssetID         string `json:"asset_id"`
	UnderlyingDenom string `json:"underlying_denom"`
	ShareDenom      string `json:"share_denom"`

	TotalAssets uint64 `json:"total_assets"`
	TotalShares uint64 `json:"total_shares"`
	Epoch       uint64 `json:"epoch"`

	UtilizationCapBps uint16 `json:"utilization_cap_bps"`

	// Informational sum of shares queued in unsettled withdrawal requests.
	// Not a lock: deposits remain open while withdrawals are queued.
	PendingWithdrawalShares uint64 `json:"pending_withdrawal_shares"`

	// Per-epoch strategy telemetry, reset on every epoch advance.
	EpochNotionalExposed uint64 `json:"epoch_notional_exposed"`
	EpochPremiumEarned   uint64 `json:"epoch_premium_earned"`
	EpochAvgPremiumBps   uint32 `json:"epoch_avg_premium_bps"`

	LastEpochAdvanceTime int64 `json:"last_epoch_advance_time"`
	CreatedAt            int64 `json:"created_at"`
	UpdatedAt            int64 `json:"updated_at"`
}

// NewVault creates an empty vault for an asset at epoch 0.
func NewVault(authority, assetID, underlyingDenom string, capBps uint16, now int64) *Vault {
	return &Vault{
		Authority:         authority,
		AssetID:           assetID,
		UnderlyingDenom:   underlyingDenom,
		ShareDenom:        ShareDenomForAsset(assetID),
		UtilizationCapBps: capBps,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
}

// ShareDenomForAsset derives the share denom for a vault asset.
func ShareDenomForAsset(assetID string) string {
	return fmt.Sprintf("%s/%s", ShareDenomPrefix, assetID)
}

// SharesForDeposit returns the shares minted for a deposit of amount
// underlying units. The first deposit bootstraps at 1:1; afterwards
// shares = floor(amount * TotalShares / TotalAssets), computed over big
// integers so the intermediate product cannot overflow. Floor rounding
// biases against the depositor so dust deposits cannot dilute holders.
func (v *Vault) SharesForDeposit(amount uint64) (uint64, error) {
	if amount == 0 {
		return 0, ErrInvalidInput.Wrap("deposit amount must be greater than zero")
	}
	if v.TotalShares == 0 || v.TotalAssets == 0 {
		return amount, nil
	}
	shares := math.NewIntFromUint64(amount).
		Mul(math.NewIntFromUint64(v.TotalShares)).
		Quo(math.NewIntFromUint64(v.TotalAssets))
	if !shares.IsUint64() {
		return 0, ErrOverflow.Wrap("share calculation exceeds uint64")
	}
	minted := shares.Uint64()
	if minted == 0 {
		return 0, ErrZeroShares
	}
	return minted, nil
}

// AmountForShares returns the underlying units redeemable for shares at the
// vault's current valuation: floor(shares * TotalAssets / TotalShares).
func (v *Vault) AmountForShares(shares uint64) (uint64, error) {
	if shares == 0 {
		return 0, ErrInvalidInput.Wrap("shares must be greater than zero")
	}
	if v.TotalShares == 0 {
		return 0, nil
	}
	amount := math.NewIntFromUint64(shares).
		Mul(math.NewIntFromUint64(v.TotalAssets)).
		Quo(math.NewIntFromUint64(v.TotalShares))
	if !amount.IsUint64() {
		return 0, ErrOverflow.Wrap("redemption calculation exceeds uint64")
	}
	return amount.Uint64(), nil
}

// MaxExposure returns the notional cap for the current epoch:
// floor(TotalAssets * UtilizationCapBps / 10000). Evaluated against live
// TotalAssets, so mid-epoch deposits loosen the cap.
func (v *Vault) MaxExposure() uint64 {
	max := math.NewIntFromUint64(v.TotalAssets).
		MulRaw(int64(v.UtilizationCapBps)).
		Quo(math.NewIntFromUint64(BpsScale))
	return max.Uint64()
}

// AvgPremiumBps returns floor(premium * 10000 / notional), clamped to
// uint32. Zero notional yields zero.
func AvgPremiumBps(premium, notional uint64) uint32 {
	if notional == 0 {
		return 0
	}
	bps := math.NewIntFromUint64(premium).
		Mul(math.NewIntFromUint64(BpsScale)).
		Quo(math.NewIntFromUint64(notional))
	if !bps.IsUint64() || bps.Uint64() > maxUint32 {
		return uint32(maxUint32)
	}
	return uint32(bps.Uint64())
}

// SharePrice returns the current share price as a decimal, for telemetry.
func (v *Vault) SharePrice() math.LegacyDec {
	if v.TotalShares == 0 {
		return math.LegacyOneDec()
	}
	return math.LegacyNewDecFromInt(math.NewIntFromUint64(v.TotalAssets)).
		Quo(math.LegacyNewDecFromInt(math.NewIntFromUint64(v.TotalShares)))
}

// CheckedAdd adds two uint64 counters, failing on wraparound.
func CheckedAdd(a, b uint64) (uint64, error) {
	sum := a + b
	if sum < a {
		return 0, ErrOverflow
	}
	return sum, nil
}

// CheckedSub subtracts b from a, failing on underflow.
func CheckedSub(a, b uint64) (uint64, error) {
	if b > a {
		return 0, ErrOverflow.Wrap("subtraction underflow")
	}
	return a - b, nil
}

// ExposureFill is an audit record of one strategy fill reported against a
// vault within an epoch. Never read back by the accounting core.
type ExposureFill struct {
	FillID     string `json:"fill_id"`
	AssetID    string `json:"asset_id"`
	Notional   uint64 `json:"notional"`
	Premium    uint64 `json:"premium"`
	Epoch      uint64 `json:"epoch"`
	RecordedAt int64  `json:"recorded_at"`
}

// EpochStats is a telemetry snapshot of a vault's current epoch.
type EpochStats struct {
	AssetID              string `json:"asset_id"`
	Epoch                uint64 `json:"epoch"`
	TotalAssets          uint64 `json:"total_assets"`
	TotalShares          uint64 `json:"total_shares"`
	SharePrice           string `json:"share_price"`
	UtilizationCapBps    uint16 `json:"utilization_cap_bps"`
	MaxExposure          uint64 `json:"max_exposure"`
	NotionalExposed      uint64 `json:"notional_exposed"`
	RemainingCapacity    uint64 `json:"remaining_capacity"`
	PremiumEarned        uint64 `json:"premium_earned"`
	AvgPremiumBps        uint32 `json:"avg_premium_bps"`
	PendingShares        uint64 `json:"pending_withdrawal_shares"`
	LastEpochAdvanceTime int64  `json:"last_epoch_advance_time"`
}
