package keeper

import (
	"context"

	sdk "github.com/cosmos/cosmos-sdk/types"
	"github.com/xstocklabs/xvault/x/vault/types"
)

// QueryServer defines the vault QueryServer
type QueryServer struct {
	keeper *Keeper
}

// NewQueryServerImpl creates a new QueryServer instance
func NewQueryServerImpl(keeper *Keeper) *QueryServer {
	return &QueryServer{keeper: keeper}
}

// Vault returns a vault by asset ID
func (q *QueryServer) Vault(ctx context.Context, assetID string) (*types.Vault, error) {
	sdkCtx := sdk.UnwrapSDKContext(ctx)
	vault := q.keeper.GetVault(sdkCtx, assetID)
	if vault == nil {
		return nil, types.ErrVaultNotFound
	}
	return vault, nil
}

// Vaults returns all vaults with pagination
func (q *QueryServer) Vaults(ctx context.Context, offset, limit uint64) ([]*types.Vault, uint64, error) {
	sdkCtx := sdk.UnwrapSDKContext(ctx)
	allVaults := q.keeper.GetAllVaults(sdkCtx)

	total := uint64(len(allVaults))

	// Apply pagination
	if offset >= total {
		return []*types.Vault{}, total, nil
	}

	end := offset + limit
	if end > total || limit == 0 {
		end = total
	}

	return allVaults[offset:end], total, nil
}

// WithdrawalRequest returns a user's request against a vault
func (q *QueryServer) WithdrawalRequest(ctx context.Context, assetID, user string) (*types.WithdrawalRequest, error) {
	sdkCtx := sdk.UnwrapSDKContext(ctx)
	req := q.keeper.GetWithdrawalRequest(sdkCtx, assetID, user)
	if req == nil {
		return nil, types.ErrRequestNotFound
	}
	return req, nil
}

// PendingWithdrawals returns unprocessed requests for a vault plus the total
// shares they queue
func (q *QueryServer) PendingWithdrawals(ctx context.Context, assetID string) ([]*types.WithdrawalRequest, uint64, error) {
	sdkCtx := sdk.UnwrapSDKContext(ctx)
	if q.keeper.GetVault(sdkCtx, assetID) == nil {
		return nil, 0, types.ErrVaultNotFound
	}

	pending := q.keeper.GetPendingWithdrawalRequests(sdkCtx, assetID)
	totalShares := uint64(0)
	for _, req := range pending {
		totalShares += req.Shares
	}
	return pending, totalShares, nil
}

// EpochStats returns the telemetry snapshot for a vault's current epoch
func (q *QueryServer) EpochStats(ctx context.Context, assetID string) (*types.EpochStats, error) {
	sdkCtx := sdk.UnwrapSDKContext(ctx)
	return q.keeper.GetEpochStats(sdkCtx, assetID)
}

// ExposureFills returns the fill audit trail for a vault
func (q *QueryServer) ExposureFills(ctx context.Context, assetID string) ([]*types.ExposureFill, error) {
	sdkCtx := sdk.UnwrapSDKContext(ctx)
	if q.keeper.GetVault(sdkCtx, assetID) == nil {
		return nil, types.ErrVaultNotFound
	}
	return q.keeper.GetExposureFills(sdkCtx, assetID), nil
}

// EstimateDeposit previews the shares minted for a deposit at the current
// share price
func (q *QueryServer) EstimateDeposit(ctx context.Context, assetID string, amount uint64) (uint64, string, error) {
	sdkCtx := sdk.UnwrapSDKContext(ctx)
	vault := q.keeper.GetVault(sdkCtx, assetID)
	if vault == nil {
		return 0, "", types.ErrVaultNotFound
	}

	shares, err := vault.SharesForDeposit(amount)
	if err != nil {
		return 0, "", err
	}
	return shares, vault.SharePrice().String(), nil
}

// EstimateWithdrawal previews the payout for redeeming shares at the current
// share price
func (q *QueryServer) EstimateWithdrawal(ctx context.Context, assetID string, shares uint64) (uint64, string, error) {
	sdkCtx := sdk.UnwrapSDKContext(ctx)
	vault := q.keeper.GetVault(sdkCtx, assetID)
	if vault == nil {
		return 0, "", types.ErrVaultNotFound
	}

	amount, err := vault.AmountForShares(shares)
	if err != nil {
		return 0, "", err
	}
	return amount, vault.SharePrice().String(), nil
}
