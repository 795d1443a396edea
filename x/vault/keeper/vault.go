package keeper

import (
	"context"
	"strconv"

	"cosmossdk.io/math"
	sdk "github.com/cosmos/cosmos-sdk/types"

	"github.com/xstocklabs/xvault/metrics"
	"github.com/xstocklabs/xvault/x/vault/types"
)

// CreateVault registers a new vault for an asset
func (k *Keeper) CreateVault(ctx context.Context, authority, assetID, underlyingDenom string, capBps uint16) (*types.Vault, error) {
	sdkCtx := sdk.UnwrapSDKContext(ctx)

	if capBps > types.MaxCapBps {
		return nil, types.ErrInvalidCap
	}
	if k.GetVault(sdkCtx, assetID) != nil {
		return nil, types.ErrVaultAlreadyExists
	}

	vault := types.NewVault(authority, assetID, underlyingDenom, capBps, sdkCtx.BlockTime().Unix())
	k.SetVault(sdkCtx, vault)

	sdkCtx.EventManager().EmitEvent(
		sdk.NewEvent(
			"vault_created",
			sdk.NewAttribute("asset_id", assetID),
			sdk.NewAttribute("authority", authority),
			sdk.NewAttribute("underlying_denom", underlyingDenom),
			sdk.NewAttribute("share_denom", vault.ShareDenom),
			sdk.NewAttribute("utilization_cap_bps", strconv.FormatUint(uint64(capBps), 10)),
		),
	)

	k.logger.Info("Vault created",
		"asset_id", assetID,
		"authority", authority,
		"cap_bps", capBps,
	)

	return vault, nil
}

// Deposit moves underlying units from the depositor into the vault and mints
// shares at the current share price. The transfer settles before any record
// mutates, so a failed transfer leaves the vault untouched.
func (k *Keeper) Deposit(ctx context.Context, depositor, assetID string, amount uint64) (uint64, *types.Vault, error) {
	sdkCtx := sdk.UnwrapSDKContext(ctx)

	vault := k.GetVault(sdkCtx, assetID)
	if vault == nil {
		return 0, nil, types.ErrVaultNotFound
	}

	shares, err := vault.SharesForDeposit(amount)
	if err != nil {
		return 0, nil, err
	}

	newAssets, err := types.CheckedAdd(vault.TotalAssets, amount)
	if err != nil {
		return 0, nil, err
	}
	newShares, err := types.CheckedAdd(vault.TotalShares, shares)
	if err != nil {
		return 0, nil, err
	}

	depositorAddr, err := sdk.AccAddressFromBech32(depositor)
	if err != nil {
		return 0, nil, err
	}

	// Pull the underlying into module custody, then mint shares to the
	// depositor. Both settle before the record mutates.
	underlying := sdk.NewCoins(sdk.NewCoin(vault.UnderlyingDenom, math.NewIntFromUint64(amount)))
	if err := k.bankKeeper.SendCoinsFromAccountToModule(ctx, depositorAddr, types.ModuleName, underlying); err != nil {
		return 0, nil, types.ErrTransferFailed.Wrap(err.Error())
	}

	shareCoins := sdk.NewCoins(sdk.NewCoin(vault.ShareDenom, math.NewIntFromUint64(shares)))
	if err := k.bankKeeper.MintCoins(ctx, types.ModuleName, shareCoins); err != nil {
		return 0, nil, types.ErrTransferFailed.Wrap(err.Error())
	}
	if err := k.bankKeeper.SendCoinsFromModuleToAccount(ctx, types.ModuleName, depositorAddr, shareCoins); err != nil {
		return 0, nil, types.ErrTransferFailed.Wrap(err.Error())
	}

	vault.TotalAssets = newAssets
	vault.TotalShares = newShares
	vault.UpdatedAt = sdkCtx.BlockTime().Unix()
	k.SetVault(sdkCtx, vault)

	sdkCtx.EventManager().EmitEvent(
		sdk.NewEvent(
			"vault_deposit",
			sdk.NewAttribute("asset_id", assetID),
			sdk.NewAttribute("depositor", depositor),
			sdk.NewAttribute("amount", strconv.FormatUint(amount, 10)),
			sdk.NewAttribute("shares_minted", strconv.FormatUint(shares, 10)),
			sdk.NewAttribute("epoch", strconv.FormatUint(vault.Epoch, 10)),
		),
	)

	k.logger.Info("Deposit processed",
		"asset_id", assetID,
		"depositor", depositor,
		"amount", amount,
		"shares_minted", shares,
	)
	metrics.GetCollector().RecordDeposit(assetID, amount, shares)

	return shares, vault, nil
}

// GetEpochStats assembles the telemetry snapshot for a vault's current epoch
func (k *Keeper) GetEpochStats(ctx sdk.Context, assetID string) (*types.EpochStats, error) {
	vault := k.GetVault(ctx, assetID)
	if vault == nil {
		return nil, types.ErrVaultNotFound
	}

	maxExposure := vault.MaxExposure()
	remaining := uint64(0)
	if maxExposure > vault.EpochNotionalExposed {
		remaining = maxExposure - vault.EpochNotionalExposed
	}

	return &types.EpochStats{
		AssetID:              vault.AssetID,
		Epoch:                vault.Epoch,
		TotalAssets:          vault.TotalAssets,
		TotalShares:          vault.TotalShares,
		SharePrice:           vault.SharePrice().String(),
		UtilizationCapBps:    vault.UtilizationCapBps,
		MaxExposure:          maxExposure,
		NotionalExposed:      vault.EpochNotionalExposed,
		RemainingCapacity:    remaining,
		PremiumEarned:        vault.EpochPremiumEarned,
		AvgPremiumBps:        vault.EpochAvgPremiumBps,
		PendingShares:        vault.PendingWithdrawalShares,
		LastEpochAdvanceTime: vault.LastEpochAdvanceTime,
	}, nil
}
