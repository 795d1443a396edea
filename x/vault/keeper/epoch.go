package keeper

import (
	"context"
	"strconv"

	"cosmossdk.io/math"
	sdk "github.com/cosmos/cosmos-sdk/types"

	"github.com/xstocklabs/xvault/metrics"
	"github.com/xstocklabs/xvault/x/vault/types"
)

// AdvanceEpoch closes the vault's current epoch. Realized premium is pulled
// from the operator into module custody and folded into TotalAssets with
// shares unchanged, which is what raises the share price. The per-epoch
// exposure counters then reset and the epoch number increments, unlocking
// settlement for requests filed in the closed epoch.
func (k *Keeper) AdvanceEpoch(ctx context.Context, operator, assetID string, premium uint64) (*types.Vault, error) {
	sdkCtx := sdk.UnwrapSDKContext(ctx)

	vault := k.GetVault(sdkCtx, assetID)
	if vault == nil {
		return nil, types.ErrVaultNotFound
	}
	if operator != vault.Authority {
		return nil, types.ErrUnauthorized
	}

	newAssets, err := types.CheckedAdd(vault.TotalAssets, premium)
	if err != nil {
		return nil, err
	}
	newEpoch, err := types.CheckedAdd(vault.Epoch, 1)
	if err != nil {
		return nil, err
	}

	if premium > 0 {
		operatorAddr, err := sdk.AccAddressFromBech32(operator)
		if err != nil {
			return nil, err
		}
		coins := sdk.NewCoins(sdk.NewCoin(vault.UnderlyingDenom, math.NewIntFromUint64(premium)))
		if err := k.bankKeeper.SendCoinsFromAccountToModule(ctx, operatorAddr, types.ModuleName, coins); err != nil {
			return nil, types.ErrTransferFailed.Wrap(err.Error())
		}
	}

	now := sdkCtx.BlockTime().Unix()
	prevAdvance := vault.LastEpochAdvanceTime
	vault.TotalAssets = newAssets
	vault.Epoch = newEpoch
	vault.EpochNotionalExposed = 0
	vault.EpochPremiumEarned = 0
	vault.EpochAvgPremiumBps = 0
	vault.LastEpochAdvanceTime = now
	vault.UpdatedAt = now
	k.SetVault(sdkCtx, vault)

	sdkCtx.EventManager().EmitEvent(
		sdk.NewEvent(
			"vault_epoch_advanced",
			sdk.NewAttribute("asset_id", assetID),
			sdk.NewAttribute("new_epoch", strconv.FormatUint(newEpoch, 10)),
			sdk.NewAttribute("premium_folded", strconv.FormatUint(premium, 10)),
			sdk.NewAttribute("total_assets", strconv.FormatUint(newAssets, 10)),
			sdk.NewAttribute("total_shares", strconv.FormatUint(vault.TotalShares, 10)),
		),
	)

	k.logger.Info("Epoch advanced",
		"asset_id", assetID,
		"new_epoch", newEpoch,
		"premium_folded", premium,
		"total_assets", newAssets,
	)

	elapsed := float64(0)
	if prevAdvance > 0 && now > prevAdvance {
		elapsed = float64(now - prevAdvance)
	}
	metrics.GetCollector().RecordEpochAdvance(assetID, premium, elapsed)

	return vault, nil
}

// UpdateUtilizationCap changes the vault's notional cap. Takes effect on the
// next exposure check; already-booked fills are never re-validated.
func (k *Keeper) UpdateUtilizationCap(ctx context.Context, authority, assetID string, newCapBps uint16) (uint16, error) {
	sdkCtx := sdk.UnwrapSDKContext(ctx)

	vault := k.GetVault(sdkCtx, assetID)
	if vault == nil {
		return 0, types.ErrVaultNotFound
	}
	if authority != vault.Authority {
		return 0, types.ErrUnauthorized
	}
	if newCapBps > types.MaxCapBps {
		return 0, types.ErrInvalidCap
	}

	oldCap := vault.UtilizationCapBps
	vault.UtilizationCapBps = newCapBps
	vault.UpdatedAt = sdkCtx.BlockTime().Unix()
	k.SetVault(sdkCtx, vault)

	sdkCtx.EventManager().EmitEvent(
		sdk.NewEvent(
			"vault_cap_updated",
			sdk.NewAttribute("asset_id", assetID),
			sdk.NewAttribute("old_cap_bps", strconv.FormatUint(uint64(oldCap), 10)),
			sdk.NewAttribute("new_cap_bps", strconv.FormatUint(uint64(newCapBps), 10)),
		),
	)

	k.logger.Info("Utilization cap updated",
		"asset_id", assetID,
		"old_cap_bps", oldCap,
		"new_cap_bps", newCapBps,
	)

	return oldCap, nil
}
