package keeper

import (
	"context"
	"strconv"

	sdk "github.com/cosmos/cosmos-sdk/types"
	"github.com/google/uuid"

	"github.com/xstocklabs/xvault/metrics"
	"github.com/xstocklabs/xvault/x/vault/types"
)

// RecordExposure books one strategy fill against the vault's per-epoch cap.
// The cap is evaluated against live TotalAssets, so deposits made mid-epoch
// raise the ceiling for subsequent fills.
func (k *Keeper) RecordExposure(ctx context.Context, operator, assetID string, notional, premium uint64) (*types.ExposureFill, *types.Vault, error) {
	sdkCtx := sdk.UnwrapSDKContext(ctx)

	vault := k.GetVault(sdkCtx, assetID)
	if vault == nil {
		return nil, nil, types.ErrVaultNotFound
	}
	if operator != vault.Authority {
		return nil, nil, types.ErrUnauthorized
	}
	if notional == 0 {
		return nil, nil, types.ErrInvalidInput.Wrap("notional must be greater than zero")
	}

	newExposed, err := types.CheckedAdd(vault.EpochNotionalExposed, notional)
	if err != nil {
		return nil, nil, err
	}
	maxExposure := vault.MaxExposure()
	if newExposed > maxExposure {
		metrics.GetCollector().RecordCapRejection(assetID)
		return nil, nil, types.ErrExceedsUtilizationCap.Wrapf(
			"exposed %d + notional %d exceeds cap %d", vault.EpochNotionalExposed, notional, maxExposure)
	}
	newPremium, err := types.CheckedAdd(vault.EpochPremiumEarned, premium)
	if err != nil {
		return nil, nil, err
	}

	now := sdkCtx.BlockTime().Unix()
	fill := &types.ExposureFill{
		FillID:     uuid.NewString(),
		AssetID:    assetID,
		Notional:   notional,
		Premium:    premium,
		Epoch:      vault.Epoch,
		RecordedAt: now,
	}
	k.SetExposureFill(sdkCtx, fill)

	vault.EpochNotionalExposed = newExposed
	vault.EpochPremiumEarned = newPremium
	vault.EpochAvgPremiumBps = types.AvgPremiumBps(newPremium, newExposed)
	vault.UpdatedAt = now
	k.SetVault(sdkCtx, vault)

	sdkCtx.EventManager().EmitEvent(
		sdk.NewEvent(
			"vault_exposure_recorded",
			sdk.NewAttribute("asset_id", assetID),
			sdk.NewAttribute("fill_id", fill.FillID),
			sdk.NewAttribute("notional", strconv.FormatUint(notional, 10)),
			sdk.NewAttribute("premium", strconv.FormatUint(premium, 10)),
			sdk.NewAttribute("epoch", strconv.FormatUint(vault.Epoch, 10)),
			sdk.NewAttribute("notional_exposed", strconv.FormatUint(newExposed, 10)),
			sdk.NewAttribute("avg_premium_bps", strconv.FormatUint(uint64(vault.EpochAvgPremiumBps), 10)),
		),
	)

	k.logger.Info("Exposure recorded",
		"asset_id", assetID,
		"fill_id", fill.FillID,
		"notional", notional,
		"premium", premium,
		"epoch_exposed", newExposed,
	)

	utilization := float64(0)
	if maxExposure > 0 {
		utilization = float64(newExposed) / float64(maxExposure)
	}
	metrics.GetCollector().RecordFill(assetID, notional, premium, utilization, vault.EpochAvgPremiumBps)

	return fill, vault, nil
}
