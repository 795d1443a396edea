package types

// WithdrawalRequest is the single live redemption claim of a user against a
// vault. Filed at one epoch, settleable only after that epoch has closed,
// so the valuation used at settlement is always at least one epoch newer
// than the request. Re-filing before settlement overwrites the record.
type WithdrawalRequest struct {
	User    string `json:"user"`
	AssetID string `json:"asset_id"`

	Shares       uint64 `json:"shares"`
	RequestEpoch uint64 `json:"request_epoch"`
	Processed    bool   `json:"processed"`

	RequestedAt int64 `json:"requested_at"`

	// Settlement echo, populated by process_withdrawal.
	SettledEpoch uint64 `json:"settled_epoch,omitempty"`
	AmountPaid   uint64 `json:"amount_paid,omitempty"`
	SettledAt    int64  `json:"settled_at,omitempty"`
}

// NewWithdrawalRequest files a request at the vault's current epoch.
func NewWithdrawalRequest(user, assetID string, shares, requestEpoch uint64, now int64) *WithdrawalRequest {
	return &WithdrawalRequest{
		User:         user,
		AssetID:      assetID,
		Shares:       shares,
		RequestEpoch: requestEpoch,
		RequestedAt:  now,
	}
}

// Settleable reports whether the request may settle at the given vault
// epoch. Same-epoch settlement is forbidden: a user must not exit at the
// valuation of the epoch they filed in.
func (r *WithdrawalRequest) Settleable(vaultEpoch uint64) bool {
	return !r.Processed && vaultEpoch > r.RequestEpoch
}

// Settle marks the request terminal with its settlement outcome.
func (r *WithdrawalRequest) Settle(vaultEpoch, amount uint64, now int64) {
	r.Processed = true
	r.SettledEpoch = vaultEpoch
	r.AmountPaid = amount
	r.SettledAt = now
}
