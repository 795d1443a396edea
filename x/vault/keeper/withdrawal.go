package keeper

import (
	"context"
	"strconv"

	"cosmossdk.io/math"
	sdk "github.com/cosmos/cosmos-sdk/types"

	"github.com/xstocklabs/xvault/metrics"
	"github.com/xstocklabs/xvault/x/vault/types"
)

// RequestWithdrawal queues the user's shares for redemption. A user holds at
// most one live request per vault; re-filing before settlement replaces the
// earlier request and restamps it at the current epoch, pushing the
// settlement horizon forward.
func (k *Keeper) RequestWithdrawal(ctx context.Context, user, assetID string, shares uint64) (*types.WithdrawalRequest, error) {
	sdkCtx := sdk.UnwrapSDKContext(ctx)

	vault := k.GetVault(sdkCtx, assetID)
	if vault == nil {
		return nil, types.ErrVaultNotFound
	}
	if shares == 0 {
		return nil, types.ErrInvalidInput.Wrap("shares must be greater than zero")
	}

	userAddr, err := sdk.AccAddressFromBech32(user)
	if err != nil {
		return nil, err
	}
	balance := k.bankKeeper.GetBalance(ctx, userAddr, vault.ShareDenom)
	if balance.Amount.LT(math.NewIntFromUint64(shares)) {
		return nil, types.ErrInsufficientBalance
	}

	pending := vault.PendingWithdrawalShares
	if prev := k.GetWithdrawalRequest(sdkCtx, assetID, user); prev != nil && !prev.Processed {
		// Replacing a live request: back its shares out of the pending
		// counter before adding the new figure.
		pending, err = types.CheckedSub(pending, prev.Shares)
		if err != nil {
			return nil, err
		}
	}
	pending, err = types.CheckedAdd(pending, shares)
	if err != nil {
		return nil, err
	}

	req := types.NewWithdrawalRequest(user, assetID, shares, vault.Epoch, sdkCtx.BlockTime().Unix())
	k.SetWithdrawalRequest(sdkCtx, req)

	vault.PendingWithdrawalShares = pending
	vault.UpdatedAt = sdkCtx.BlockTime().Unix()
	k.SetVault(sdkCtx, vault)

	sdkCtx.EventManager().EmitEvent(
		sdk.NewEvent(
			"vault_withdrawal_requested",
			sdk.NewAttribute("asset_id", assetID),
			sdk.NewAttribute("user", user),
			sdk.NewAttribute("shares", strconv.FormatUint(shares, 10)),
			sdk.NewAttribute("request_epoch", strconv.FormatUint(req.RequestEpoch, 10)),
			sdk.NewAttribute("settleable_epoch", strconv.FormatUint(req.RequestEpoch+1, 10)),
		),
	)

	k.logger.Info("Withdrawal requested",
		"asset_id", assetID,
		"user", user,
		"shares", shares,
		"request_epoch", req.RequestEpoch,
	)
	metrics.GetCollector().RecordWithdrawalRequested(assetID)

	return req, nil
}

// ProcessWithdrawal settles the caller's open request at the vault's current
// valuation. Settlement requires the vault epoch to have advanced past the
// request epoch, so the payout is always priced by a later epoch than the
// one the request was filed in.
func (k *Keeper) ProcessWithdrawal(ctx context.Context, user, assetID string) (*types.WithdrawalRequest, error) {
	sdkCtx := sdk.UnwrapSDKContext(ctx)

	vault := k.GetVault(sdkCtx, assetID)
	if vault == nil {
		return nil, types.ErrVaultNotFound
	}

	req := k.GetWithdrawalRequest(sdkCtx, assetID, user)
	if req == nil {
		return nil, types.ErrRequestNotFound
	}
	if req.Processed {
		return nil, types.ErrAlreadyProcessed
	}
	if !req.Settleable(vault.Epoch) {
		return nil, types.ErrEpochNotSettled
	}

	userAddr, err := sdk.AccAddressFromBech32(user)
	if err != nil {
		return nil, err
	}
	balance := k.bankKeeper.GetBalance(ctx, userAddr, vault.ShareDenom)
	if balance.Amount.LT(math.NewIntFromUint64(req.Shares)) {
		return nil, types.ErrInsufficientBalance
	}

	amount, err := vault.AmountForShares(req.Shares)
	if err != nil {
		return nil, err
	}

	newAssets, err := types.CheckedSub(vault.TotalAssets, amount)
	if err != nil {
		return nil, err
	}
	newShares, err := types.CheckedSub(vault.TotalShares, req.Shares)
	if err != nil {
		return nil, err
	}
	newPending, err := types.CheckedSub(vault.PendingWithdrawalShares, req.Shares)
	if err != nil {
		return nil, err
	}

	// Reclaim and burn the shares, then pay out the underlying. All
	// transfers settle before the records mutate.
	shareCoins := sdk.NewCoins(sdk.NewCoin(vault.ShareDenom, math.NewIntFromUint64(req.Shares)))
	if err := k.bankKeeper.SendCoinsFromAccountToModule(ctx, userAddr, types.ModuleName, shareCoins); err != nil {
		return nil, types.ErrTransferFailed.Wrap(err.Error())
	}
	if err := k.bankKeeper.BurnCoins(ctx, types.ModuleName, shareCoins); err != nil {
		return nil, types.ErrTransferFailed.Wrap(err.Error())
	}
	if amount > 0 {
		payout := sdk.NewCoins(sdk.NewCoin(vault.UnderlyingDenom, math.NewIntFromUint64(amount)))
		if err := k.bankKeeper.SendCoinsFromModuleToAccount(ctx, types.ModuleName, userAddr, payout); err != nil {
			return nil, types.ErrTransferFailed.Wrap(err.Error())
		}
	}

	now := sdkCtx.BlockTime().Unix()
	req.Settle(vault.Epoch, amount, now)
	k.SetWithdrawalRequest(sdkCtx, req)

	vault.TotalAssets = newAssets
	vault.TotalShares = newShares
	vault.PendingWithdrawalShares = newPending
	vault.UpdatedAt = now
	k.SetVault(sdkCtx, vault)

	sdkCtx.EventManager().EmitEvent(
		sdk.NewEvent(
			"vault_withdrawal_processed",
			sdk.NewAttribute("asset_id", assetID),
			sdk.NewAttribute("user", user),
			sdk.NewAttribute("shares_burned", strconv.FormatUint(req.Shares, 10)),
			sdk.NewAttribute("amount_paid", strconv.FormatUint(amount, 10)),
			sdk.NewAttribute("settled_epoch", strconv.FormatUint(req.SettledEpoch, 10)),
		),
	)

	k.logger.Info("Withdrawal processed",
		"asset_id", assetID,
		"user", user,
		"shares_burned", req.Shares,
		"amount_paid", amount,
	)
	metrics.GetCollector().RecordWithdrawalProcessed(assetID, amount, req.Shares)

	return req, nil
}
