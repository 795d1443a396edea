package keeper

import (
	"strconv"
	"time"

	sdk "github.com/cosmos/cosmos-sdk/types"

	"github.com/xstocklabs/xvault/metrics"
)

// EndBlocker runs at the end of each block. Epoch advancement is driven by
// the operator, never by block height, so this only surfaces telemetry for
// off-chain monitors.
func (k *Keeper) EndBlocker(ctx sdk.Context) error {
	start := time.Now()

	collector := metrics.GetCollector()
	vaults := k.GetAllVaults(ctx)
	pendingVaults := 0
	totalPendingShares := uint64(0)
	for _, vault := range vaults {
		if vault.PendingWithdrawalShares > 0 {
			pendingVaults++
			totalPendingShares += vault.PendingWithdrawalShares
		}
		sharePrice, _ := vault.SharePrice().Float64()
		collector.RecordVaultState(vault.AssetID, vault.TotalAssets, vault.TotalShares,
			vault.PendingWithdrawalShares, sharePrice, vault.Epoch)
	}
	collector.UpdateSystemMetrics(ctx.BlockHeight(), len(vaults))

	k.logger.Debug("Vault EndBlocker completed",
		"block", ctx.BlockHeight(),
		"vaults", len(vaults),
		"vaults_with_pending", pendingVaults,
		"total_ms", time.Since(start).Milliseconds(),
	)

	if len(vaults) > 0 {
		ctx.EventManager().EmitEvent(
			sdk.NewEvent(
				"vault_endblock",
				sdk.NewAttribute("block_height", strconv.FormatInt(ctx.BlockHeight(), 10)),
				sdk.NewAttribute("vaults", strconv.Itoa(len(vaults))),
				sdk.NewAttribute("pending_withdrawal_shares", strconv.FormatUint(totalPendingShares, 10)),
			),
		)
	}

	return nil
}
