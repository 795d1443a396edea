package types

// VaultService defines the interface for vault operations
type VaultService interface {
	// Vault queries
	GetVaults() ([]*VaultInfo, error)
	GetVault(assetID string) (*VaultInfo, error)
	GetEpochStats(assetID string) (*EpochStatsInfo, error)

	// Withdrawal queries
	GetWithdrawalRequest(assetID, user string) (*WithdrawalInfo, error)
	GetPendingWithdrawals(assetID string) ([]*WithdrawalInfo, uint64, error)

	// Exposure queries
	GetExposureFills(assetID string) ([]*FillInfo, error)

	// User queries
	GetUserShareBalance(assetID, user string) (*ShareBalance, error)

	// Estimates
	EstimateDeposit(assetID string, amount uint64) (*DepositEstimate, error)
	EstimateWithdrawal(assetID string, shares uint64) (*WithdrawalEstimate, error)

	// Transactions
	CreateVault(authority, assetID, underlyingDenom string, capBps uint16) (*VaultInfo, error)
	Deposit(assetID, depositor string, amount uint64) (*DepositResult, error)
	RequestWithdrawal(assetID, user string, shares uint64) (*WithdrawalResult, error)
	ProcessWithdrawal(assetID, user string) (*SettleResult, error)
	RecordExposure(assetID, operator string, notional, premium uint64) (*ExposureResult, error)
	AdvanceEpoch(assetID, operator string, premiumEarned uint64) (*EpochResult, error)
	UpdateUtilizationCap(assetID, authority string, newCapBps uint16) (*CapResult, error)
}

// Data types for the vault service

type VaultInfo struct {
	AssetID                 string `json:"asset_id"`
	Authority               string `json:"authority"`
	UnderlyingDenom         string `json:"underlying_denom"`
	ShareDenom              string `json:"share_denom"`
	TotalAssets             string `json:"total_assets"`
	TotalShares             string `json:"total_shares"`
	SharePrice              string `json:"share_price"`
	Epoch                   uint64 `json:"epoch"`
	UtilizationCapBps       uint16 `json:"utilization_cap_bps"`
	PendingWithdrawalShares string `json:"pending_withdrawal_shares"`
	CreatedAt               int64  `json:"created_at"`
	UpdatedAt               int64  `json:"updated_at"`
}

type EpochStatsInfo struct {
	AssetID           string `json:"asset_id"`
	Epoch             uint64 `json:"epoch"`
	TotalAssets       string `json:"total_assets"`
	TotalShares       string `json:"total_shares"`
	SharePrice        string `json:"share_price"`
	NotionalExposed   string `json:"notional_exposed"`
	MaxExposure       string `json:"max_exposure"`
	RemainingCapacity string `json:"remaining_capacity"`
	PremiumEarned     string `json:"premium_earned"`
	AvgPremiumBps     uint32 `json:"avg_premium_bps"`
	PendingShares     string `json:"pending_withdrawal_shares"`
}

type WithdrawalInfo struct {
	User          string `json:"user"`
	AssetID       string `json:"asset_id"`
	Shares        string `json:"shares"`
	RequestEpoch  uint64 `json:"request_epoch"`
	Settleable    bool   `json:"settleable"`
	Processed     bool   `json:"processed"`
	RequestedAt   int64  `json:"requested_at"`
	SettledEpoch  uint64 `json:"settled_epoch,omitempty"`
	AmountPaid    string `json:"amount_paid,omitempty"`
	SettledAt     int64  `json:"settled_at,omitempty"`
}

type FillInfo struct {
	FillID     string `json:"fill_id"`
	AssetID    string `json:"asset_id"`
	Epoch      uint64 `json:"epoch"`
	Notional   string `json:"notional"`
	Premium    string `json:"premium"`
	RecordedAt int64  `json:"recorded_at"`
}

type ShareBalance struct {
	AssetID    string `json:"asset_id"`
	User       string `json:"user"`
	Shares     string `json:"shares"`
	Value      string `json:"value"`
	SharePrice string `json:"share_price"`
}

type DepositEstimate struct {
	AssetID    string `json:"asset_id"`
	Amount     string `json:"amount"`
	Shares     string `json:"shares"`
	SharePrice string `json:"share_price"`
}

type WithdrawalEstimate struct {
	AssetID    string `json:"asset_id"`
	Shares     string `json:"shares"`
	Amount     string `json:"amount"`
	SharePrice string `json:"share_price"`
}

type DepositResult struct {
	AssetID      string `json:"asset_id"`
	Depositor    string `json:"depositor"`
	Amount       string `json:"amount"`
	SharesMinted string `json:"shares_minted"`
	SharePrice   string `json:"share_price"`
	Epoch        uint64 `json:"epoch"`
}

type WithdrawalResult struct {
	AssetID         string `json:"asset_id"`
	User            string `json:"user"`
	Shares          string `json:"shares"`
	RequestEpoch    uint64 `json:"request_epoch"`
	SettleableEpoch uint64 `json:"settleable_epoch"`
}

type SettleResult struct {
	AssetID      string `json:"asset_id"`
	User         string `json:"user"`
	SharesBurned string `json:"shares_burned"`
	AmountPaid   string `json:"amount_paid"`
	SettledEpoch uint64 `json:"settled_epoch"`
}

type ExposureResult struct {
	FillID            string `json:"fill_id"`
	AssetID           string `json:"asset_id"`
	Epoch             uint64 `json:"epoch"`
	NotionalExposed   string `json:"notional_exposed"`
	RemainingCapacity string `json:"remaining_capacity"`
	AvgPremiumBps     uint32 `json:"avg_premium_bps"`
}

type EpochResult struct {
	AssetID     string `json:"asset_id"`
	NewEpoch    uint64 `json:"new_epoch"`
	TotalAssets string `json:"total_assets"`
	TotalShares string `json:"total_shares"`
	SharePrice  string `json:"share_price"`
}

type CapResult struct {
	AssetID   string `json:"asset_id"`
	OldCapBps uint16 `json:"old_cap_bps"`
	NewCapBps uint16 `json:"new_cap_bps"`
}
