package keeper

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"cosmossdk.io/log"
	"cosmossdk.io/math"
	storetypes "cosmossdk.io/store/types"
	"github.com/cosmos/cosmos-sdk/testutil"
	sdk "github.com/cosmos/cosmos-sdk/types"
	moduletestutil "github.com/cosmos/cosmos-sdk/types/module/testutil"
	promtestutil "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/xstocklabs/xvault/metrics"
	"github.com/xstocklabs/xvault/x/vault/types"
)

var (
	authority = sdk.AccAddress("authority___________").String()
	alice     = sdk.AccAddress("alice_______________").String()
	bob       = sdk.AccAddress("bob_________________").String()
)

// mockBank is a map-backed stand-in for the bank module. Module balances are
// keyed by "module/<name>".
type mockBank struct {
	balances      map[string]map[string]uint64
	failTransfers bool
}

func newMockBank() *mockBank {
	return &mockBank{balances: make(map[string]map[string]uint64)}
}

func moduleKey(name string) string { return "module/" + name }

func (b *mockBank) fund(holder, denom string, amount uint64) {
	if b.balances[holder] == nil {
		b.balances[holder] = make(map[string]uint64)
	}
	b.balances[holder][denom] += amount
}

func (b *mockBank) balanceOf(holder, denom string) uint64 {
	return b.balances[holder][denom]
}

func (b *mockBank) move(from, to string, amt sdk.Coins) error {
	if b.failTransfers {
		return errors.New("transfer rejected")
	}
	for _, coin := range amt {
		amount := coin.Amount.Uint64()
		if b.balanceOf(from, coin.Denom) < amount {
			return fmt.Errorf("insufficient funds: %s has %d %s", from, b.balanceOf(from, coin.Denom), coin.Denom)
		}
		b.balances[from][coin.Denom] -= amount
		b.fund(to, coin.Denom, amount)
	}
	return nil
}

func (b *mockBank) SendCoinsFromAccountToModule(_ context.Context, sender sdk.AccAddress, recipientModule string, amt sdk.Coins) error {
	return b.move(sender.String(), moduleKey(recipientModule), amt)
}

func (b *mockBank) SendCoinsFromModuleToAccount(_ context.Context, senderModule string, recipient sdk.AccAddress, amt sdk.Coins) error {
	return b.move(moduleKey(senderModule), recipient.String(), amt)
}

func (b *mockBank) MintCoins(_ context.Context, moduleName string, amt sdk.Coins) error {
	if b.failTransfers {
		return errors.New("mint rejected")
	}
	for _, coin := range amt {
		b.fund(moduleKey(moduleName), coin.Denom, coin.Amount.Uint64())
	}
	return nil
}

func (b *mockBank) BurnCoins(_ context.Context, moduleName string, amt sdk.Coins) error {
	if b.failTransfers {
		return errors.New("burn rejected")
	}
	for _, coin := range amt {
		amount := coin.Amount.Uint64()
		if b.balanceOf(moduleKey(moduleName), coin.Denom) < amount {
			return fmt.Errorf("insufficient funds to burn %d %s", amount, coin.Denom)
		}
		b.balances[moduleKey(moduleName)][coin.Denom] -= amount
	}
	return nil
}

func (b *mockBank) GetBalance(_ context.Context, addr sdk.AccAddress, denom string) sdk.Coin {
	return sdk.NewCoin(denom, math.NewIntFromUint64(b.balanceOf(addr.String(), denom)))
}

type fixture struct {
	ctx    sdk.Context
	keeper *Keeper
	bank   *mockBank
}

func initFixture(t *testing.T) *fixture {
	t.Helper()

	key := storetypes.NewKVStoreKey(types.StoreKey)
	tkey := storetypes.NewTransientStoreKey("transient_test")
	testCtx := testutil.DefaultContextWithDB(t, key, tkey)
	ctx := testCtx.Ctx.WithBlockTime(time.Unix(1700000000, 0))

	encCfg := moduletestutil.MakeTestEncodingConfig()
	bank := newMockBank()
	k := NewKeeper(encCfg.Codec, key, bank, authority, log.NewNopLogger())

	return &fixture{ctx: ctx, keeper: k, bank: bank}
}

// createVault is a shorthand for the common xTSLA fixture vault.
func (f *fixture) createVault(t *testing.T, capBps uint16) *types.Vault {
	t.Helper()
	vault, err := f.keeper.CreateVault(f.ctx, authority, "xTSLA", "uusdc", capBps)
	require.NoError(t, err)
	return vault
}

func TestCreateVault(t *testing.T) {
	f := initFixture(t)

	vault := f.createVault(t, 5000)
	require.Equal(t, "xTSLA", vault.AssetID)
	require.Equal(t, "xvshare/xTSLA", vault.ShareDenom)
	require.EqualValues(t, 0, vault.Epoch)
	require.EqualValues(t, 0, vault.TotalAssets)

	// duplicate registration rejected
	_, err := f.keeper.CreateVault(f.ctx, authority, "xTSLA", "uusdc", 5000)
	require.ErrorIs(t, err, types.ErrVaultAlreadyExists)

	// cap above 100% rejected
	_, err = f.keeper.CreateVault(f.ctx, authority, "xAAPL", "uusdc", 10001)
	require.ErrorIs(t, err, types.ErrInvalidCap)
}

func TestDepositBootstrapAndProRata(t *testing.T) {
	f := initFixture(t)
	f.createVault(t, 5000)
	f.bank.fund(alice, "uusdc", 2_000_000)
	f.bank.fund(bob, "uusdc", 1_000_000)

	// first deposit bootstraps 1:1
	shares, vault, err := f.keeper.Deposit(f.ctx, alice, "xTSLA", 1_000_000)
	require.NoError(t, err)
	require.EqualValues(t, 1_000_000, shares)
	require.EqualValues(t, 1_000_000, vault.TotalAssets)
	require.EqualValues(t, 1_000_000, vault.TotalShares)
	require.EqualValues(t, 1_000_000, f.bank.balanceOf(alice, "xvshare/xTSLA"))
	require.EqualValues(t, 1_000_000, f.bank.balanceOf(moduleKey(types.ModuleName), "uusdc"))

	// accrue yield so the price moves to 1.5
	_, err = f.keeper.AdvanceEpoch(f.ctx, authority, "xTSLA", 0)
	require.NoError(t, err)
	vault = f.keeper.GetVault(f.ctx, "xTSLA")
	vault.TotalAssets = 1_500_000
	f.keeper.SetVault(f.ctx, vault)
	f.bank.fund(moduleKey(types.ModuleName), "uusdc", 500_000)

	// 300000 at price 1.5 mints 200000 shares
	shares, vault, err = f.keeper.Deposit(f.ctx, bob, "xTSLA", 300_000)
	require.NoError(t, err)
	require.EqualValues(t, 200_000, shares)
	require.EqualValues(t, 1_800_000, vault.TotalAssets)
	require.EqualValues(t, 1_200_000, vault.TotalShares)
}

func TestDepositUnknownVault(t *testing.T) {
	f := initFixture(t)
	_, _, err := f.keeper.Deposit(f.ctx, alice, "xTSLA", 100)
	require.ErrorIs(t, err, types.ErrVaultNotFound)
}

func TestDepositTransferFailureAborts(t *testing.T) {
	f := initFixture(t)
	f.createVault(t, 5000)
	f.bank.fund(alice, "uusdc", 1_000_000)

	f.bank.failTransfers = true
	_, _, err := f.keeper.Deposit(f.ctx, alice, "xTSLA", 1_000_000)
	require.ErrorIs(t, err, types.ErrTransferFailed)

	// record untouched
	vault := f.keeper.GetVault(f.ctx, "xTSLA")
	require.EqualValues(t, 0, vault.TotalAssets)
	require.EqualValues(t, 0, vault.TotalShares)
}

func TestDepositDustRejected(t *testing.T) {
	f := initFixture(t)
	f.createVault(t, 5000)
	f.bank.fund(alice, "uusdc", 20_000_000)

	_, _, err := f.keeper.Deposit(f.ctx, alice, "xTSLA", 10_000_000)
	require.NoError(t, err)

	// crank the price so 1 unit floors to 0 shares
	vault := f.keeper.GetVault(f.ctx, "xTSLA")
	vault.TotalShares = 1
	f.keeper.SetVault(f.ctx, vault)

	_, _, err = f.keeper.Deposit(f.ctx, alice, "xTSLA", 1)
	require.ErrorIs(t, err, types.ErrZeroShares)
}

func TestRequestWithdrawal(t *testing.T) {
	f := initFixture(t)
	f.createVault(t, 5000)
	f.bank.fund(alice, "uusdc", 1_000_000)
	_, _, err := f.keeper.Deposit(f.ctx, alice, "xTSLA", 1_000_000)
	require.NoError(t, err)

	req, err := f.keeper.RequestWithdrawal(f.ctx, alice, "xTSLA", 400_000)
	require.NoError(t, err)
	require.EqualValues(t, 0, req.RequestEpoch)
	require.False(t, req.Processed)

	vault := f.keeper.GetVault(f.ctx, "xTSLA")
	require.EqualValues(t, 400_000, vault.PendingWithdrawalShares)

	// more shares than held
	_, err = f.keeper.RequestWithdrawal(f.ctx, alice, "xTSLA", 2_000_000)
	require.ErrorIs(t, err, types.ErrInsufficientBalance)

	// no shares at all
	_, err = f.keeper.RequestWithdrawal(f.ctx, bob, "xTSLA", 1)
	require.ErrorIs(t, err, types.ErrInsufficientBalance)
}

func TestRequestWithdrawalRefileRebasesPending(t *testing.T) {
	f := initFixture(t)
	f.createVault(t, 5000)
	f.bank.fund(alice, "uusdc", 1_000_000)
	_, _, err := f.keeper.Deposit(f.ctx, alice, "xTSLA", 1_000_000)
	require.NoError(t, err)

	_, err = f.keeper.RequestWithdrawal(f.ctx, alice, "xTSLA", 400_000)
	require.NoError(t, err)

	// re-file replaces the earlier request, not stacks on it
	_, err = f.keeper.RequestWithdrawal(f.ctx, alice, "xTSLA", 250_000)
	require.NoError(t, err)

	vault := f.keeper.GetVault(f.ctx, "xTSLA")
	require.EqualValues(t, 250_000, vault.PendingWithdrawalShares)

	req := f.keeper.GetWithdrawalRequest(f.ctx, "xTSLA", alice)
	require.EqualValues(t, 250_000, req.Shares)

	// the re-filed request restamps at the current epoch
	_, err = f.keeper.AdvanceEpoch(f.ctx, authority, "xTSLA", 0)
	require.NoError(t, err)
	_, err = f.keeper.RequestWithdrawal(f.ctx, alice, "xTSLA", 100_000)
	require.NoError(t, err)
	req = f.keeper.GetWithdrawalRequest(f.ctx, "xTSLA", alice)
	require.EqualValues(t, 1, req.RequestEpoch)
}

func TestProcessWithdrawalEpochGate(t *testing.T) {
	f := initFixture(t)
	f.createVault(t, 5000)
	f.bank.fund(alice, "uusdc", 1_000_000)
	_, _, err := f.keeper.Deposit(f.ctx, alice, "xTSLA", 1_000_000)
	require.NoError(t, err)
	_, err = f.keeper.RequestWithdrawal(f.ctx, alice, "xTSLA", 400_000)
	require.NoError(t, err)

	// same epoch: gated
	_, err = f.keeper.ProcessWithdrawal(f.ctx, alice, "xTSLA")
	require.ErrorIs(t, err, types.ErrEpochNotSettled)

	// one advance opens the gate
	_, err = f.keeper.AdvanceEpoch(f.ctx, authority, "xTSLA", 0)
	require.NoError(t, err)

	req, err := f.keeper.ProcessWithdrawal(f.ctx, alice, "xTSLA")
	require.NoError(t, err)
	require.True(t, req.Processed)
	require.EqualValues(t, 400_000, req.AmountPaid)
	require.EqualValues(t, 1, req.SettledEpoch)

	// shares burned, underlying paid out
	require.EqualValues(t, 600_000, f.bank.balanceOf(alice, "xvshare/xTSLA"))
	require.EqualValues(t, 400_000, f.bank.balanceOf(alice, "uusdc"))

	vault := f.keeper.GetVault(f.ctx, "xTSLA")
	require.EqualValues(t, 600_000, vault.TotalAssets)
	require.EqualValues(t, 600_000, vault.TotalShares)
	require.EqualValues(t, 0, vault.PendingWithdrawalShares)
}

func TestProcessWithdrawalIdempotent(t *testing.T) {
	f := initFixture(t)
	f.createVault(t, 5000)
	f.bank.fund(alice, "uusdc", 1_000_000)
	_, _, err := f.keeper.Deposit(f.ctx, alice, "xTSLA", 1_000_000)
	require.NoError(t, err)
	_, err = f.keeper.RequestWithdrawal(f.ctx, alice, "xTSLA", 400_000)
	require.NoError(t, err)
	_, err = f.keeper.AdvanceEpoch(f.ctx, authority, "xTSLA", 0)
	require.NoError(t, err)

	_, err = f.keeper.ProcessWithdrawal(f.ctx, alice, "xTSLA")
	require.NoError(t, err)

	// replay is rejected and pays nothing
	paidBefore := f.bank.balanceOf(alice, "uusdc")
	_, err = f.keeper.ProcessWithdrawal(f.ctx, alice, "xTSLA")
	require.ErrorIs(t, err, types.ErrAlreadyProcessed)
	require.Equal(t, paidBefore, f.bank.balanceOf(alice, "uusdc"))
}

func TestProcessWithdrawalNoRequest(t *testing.T) {
	f := initFixture(t)
	f.createVault(t, 5000)
	_, err := f.keeper.ProcessWithdrawal(f.ctx, alice, "xTSLA")
	require.ErrorIs(t, err, types.ErrRequestNotFound)
}

func TestWithdrawalCapturesEpochYield(t *testing.T) {
	f := initFixture(t)
	f.createVault(t, 5000)
	f.bank.fund(alice, "uusdc", 1_000_000)
	f.bank.fund(authority, "uusdc", 100_000)

	_, _, err := f.keeper.Deposit(f.ctx, alice, "xTSLA", 1_000_000)
	require.NoError(t, err)
	_, err = f.keeper.RequestWithdrawal(f.ctx, alice, "xTSLA", 1_000_000)
	require.NoError(t, err)

	// epoch closes with 100000 premium folded in: price moves to 1.1
	_, err = f.keeper.AdvanceEpoch(f.ctx, authority, "xTSLA", 100_000)
	require.NoError(t, err)

	req, err := f.keeper.ProcessWithdrawal(f.ctx, alice, "xTSLA")
	require.NoError(t, err)
	require.EqualValues(t, 1_100_000, req.AmountPaid)

	// vault drained exactly
	vault := f.keeper.GetVault(f.ctx, "xTSLA")
	require.EqualValues(t, 0, vault.TotalAssets)
	require.EqualValues(t, 0, vault.TotalShares)
	require.EqualValues(t, 0, f.bank.balanceOf(moduleKey(types.ModuleName), "uusdc"))
}

func TestRecordExposureCap(t *testing.T) {
	f := initFixture(t)
	f.createVault(t, 6000)
	f.bank.fund(alice, "uusdc", 1_000_000)
	_, _, err := f.keeper.Deposit(f.ctx, alice, "xTSLA", 1_000_000)
	require.NoError(t, err)

	// cap = 600000; 400000 then 200000 exactly fill it
	_, vault, err := f.keeper.RecordExposure(f.ctx, authority, "xTSLA", 400_000, 2_000)
	require.NoError(t, err)
	require.EqualValues(t, 400_000, vault.EpochNotionalExposed)

	_, vault, err = f.keeper.RecordExposure(f.ctx, authority, "xTSLA", 200_000, 1_000)
	require.NoError(t, err)
	require.EqualValues(t, 600_000, vault.EpochNotionalExposed)
	require.EqualValues(t, 3_000, vault.EpochPremiumEarned)

	// one unit past the cap is rejected without partial booking
	_, _, err = f.keeper.RecordExposure(f.ctx, authority, "xTSLA", 1, 0)
	require.ErrorIs(t, err, types.ErrExceedsUtilizationCap)
	vault = f.keeper.GetVault(f.ctx, "xTSLA")
	require.EqualValues(t, 600_000, vault.EpochNotionalExposed)
}

func TestRecordExposureAvgPremium(t *testing.T) {
	f := initFixture(t)
	f.createVault(t, 10000)
	f.bank.fund(alice, "uusdc", 1_000_000)
	_, _, err := f.keeper.Deposit(f.ctx, alice, "xTSLA", 1_000_000)
	require.NoError(t, err)

	// 5000 premium on 100000 notional = 500 bps
	_, vault, err := f.keeper.RecordExposure(f.ctx, authority, "xTSLA", 100_000, 5_000)
	require.NoError(t, err)
	require.EqualValues(t, 500, vault.EpochAvgPremiumBps)

	// running average over cumulative figures: 6000 / 300000 = 200 bps
	_, vault, err = f.keeper.RecordExposure(f.ctx, authority, "xTSLA", 200_000, 1_000)
	require.NoError(t, err)
	require.EqualValues(t, 200, vault.EpochAvgPremiumBps)
}

func TestRecordExposureAuth(t *testing.T) {
	f := initFixture(t)
	f.createVault(t, 5000)

	_, _, err := f.keeper.RecordExposure(f.ctx, alice, "xTSLA", 100, 0)
	require.ErrorIs(t, err, types.ErrUnauthorized)

	_, _, err = f.keeper.RecordExposure(f.ctx, authority, "xTSLA", 0, 0)
	require.ErrorIs(t, err, types.ErrInvalidInput)
}

func TestDepositLoosensCapMidEpoch(t *testing.T) {
	f := initFixture(t)
	f.createVault(t, 5000)
	f.bank.fund(alice, "uusdc", 2_000_000)
	_, _, err := f.keeper.Deposit(f.ctx, alice, "xTSLA", 1_000_000)
	require.NoError(t, err)

	// cap = 500000, fully used
	_, _, err = f.keeper.RecordExposure(f.ctx, authority, "xTSLA", 500_000, 0)
	require.NoError(t, err)
	_, _, err = f.keeper.RecordExposure(f.ctx, authority, "xTSLA", 1, 0)
	require.ErrorIs(t, err, types.ErrExceedsUtilizationCap)

	// a new deposit raises TotalAssets, so the cap loosens immediately
	_, _, err = f.keeper.Deposit(f.ctx, alice, "xTSLA", 1_000_000)
	require.NoError(t, err)
	_, vault, err := f.keeper.RecordExposure(f.ctx, authority, "xTSLA", 400_000, 0)
	require.NoError(t, err)
	require.EqualValues(t, 900_000, vault.EpochNotionalExposed)
}

func TestAdvanceEpochFoldsPremiumAndResets(t *testing.T) {
	f := initFixture(t)
	f.createVault(t, 5000)
	f.bank.fund(alice, "uusdc", 1_000_000)
	f.bank.fund(authority, "uusdc", 50_000)
	_, _, err := f.keeper.Deposit(f.ctx, alice, "xTSLA", 1_000_000)
	require.NoError(t, err)
	_, _, err = f.keeper.RecordExposure(f.ctx, authority, "xTSLA", 400_000, 50_000)
	require.NoError(t, err)

	vault, err := f.keeper.AdvanceEpoch(f.ctx, authority, "xTSLA", 50_000)
	require.NoError(t, err)

	require.EqualValues(t, 1, vault.Epoch)
	require.EqualValues(t, 1_050_000, vault.TotalAssets)
	require.EqualValues(t, 1_000_000, vault.TotalShares)
	require.EqualValues(t, 0, vault.EpochNotionalExposed)
	require.EqualValues(t, 0, vault.EpochPremiumEarned)
	require.EqualValues(t, 0, vault.EpochAvgPremiumBps)
	require.Equal(t, f.ctx.BlockTime().Unix(), vault.LastEpochAdvanceTime)

	// premium moved into module custody
	require.EqualValues(t, 0, f.bank.balanceOf(authority, "uusdc"))
	require.EqualValues(t, 1_050_000, f.bank.balanceOf(moduleKey(types.ModuleName), "uusdc"))
}

func TestAdvanceEpochAuth(t *testing.T) {
	f := initFixture(t)
	f.createVault(t, 5000)

	_, err := f.keeper.AdvanceEpoch(f.ctx, alice, "xTSLA", 0)
	require.ErrorIs(t, err, types.ErrUnauthorized)
}

func TestAdvanceEpochTransferFailureAborts(t *testing.T) {
	f := initFixture(t)
	f.createVault(t, 5000)

	// operator cannot cover the premium it claims
	_, err := f.keeper.AdvanceEpoch(f.ctx, authority, "xTSLA", 50_000)
	require.ErrorIs(t, err, types.ErrTransferFailed)

	vault := f.keeper.GetVault(f.ctx, "xTSLA")
	require.EqualValues(t, 0, vault.Epoch)
	require.EqualValues(t, 0, vault.TotalAssets)
}

func TestUpdateUtilizationCap(t *testing.T) {
	f := initFixture(t)
	f.createVault(t, 5000)

	oldCap, err := f.keeper.UpdateUtilizationCap(f.ctx, authority, "xTSLA", 2500)
	require.NoError(t, err)
	require.EqualValues(t, 5000, oldCap)
	require.EqualValues(t, 2500, f.keeper.GetVault(f.ctx, "xTSLA").UtilizationCapBps)

	_, err = f.keeper.UpdateUtilizationCap(f.ctx, alice, "xTSLA", 1000)
	require.ErrorIs(t, err, types.ErrUnauthorized)

	_, err = f.keeper.UpdateUtilizationCap(f.ctx, authority, "xTSLA", 10001)
	require.ErrorIs(t, err, types.ErrInvalidCap)
}

func TestCapTighteningKeepsBookedExposure(t *testing.T) {
	f := initFixture(t)
	f.createVault(t, 5000)
	f.bank.fund(alice, "uusdc", 1_000_000)
	_, _, err := f.keeper.Deposit(f.ctx, alice, "xTSLA", 1_000_000)
	require.NoError(t, err)
	_, _, err = f.keeper.RecordExposure(f.ctx, authority, "xTSLA", 400_000, 0)
	require.NoError(t, err)

	// tightening below booked exposure never claws back fills
	_, err = f.keeper.UpdateUtilizationCap(f.ctx, authority, "xTSLA", 1000)
	require.NoError(t, err)
	vault := f.keeper.GetVault(f.ctx, "xTSLA")
	require.EqualValues(t, 400_000, vault.EpochNotionalExposed)

	// but new fills check against the tighter ceiling
	_, _, err = f.keeper.RecordExposure(f.ctx, authority, "xTSLA", 1, 0)
	require.ErrorIs(t, err, types.ErrExceedsUtilizationCap)
}

func TestEpochStatsSnapshot(t *testing.T) {
	f := initFixture(t)
	f.createVault(t, 6000)
	f.bank.fund(alice, "uusdc", 1_000_000)
	_, _, err := f.keeper.Deposit(f.ctx, alice, "xTSLA", 1_000_000)
	require.NoError(t, err)
	_, _, err = f.keeper.RecordExposure(f.ctx, authority, "xTSLA", 400_000, 2_000)
	require.NoError(t, err)

	stats, err := f.keeper.GetEpochStats(f.ctx, "xTSLA")
	require.NoError(t, err)
	require.EqualValues(t, 600_000, stats.MaxExposure)
	require.EqualValues(t, 400_000, stats.NotionalExposed)
	require.EqualValues(t, 200_000, stats.RemainingCapacity)
	require.EqualValues(t, 2_000, stats.PremiumEarned)

	_, err = f.keeper.GetEpochStats(f.ctx, "unknown")
	require.ErrorIs(t, err, types.ErrVaultNotFound)
}

func TestExposureFillAuditTrail(t *testing.T) {
	f := initFixture(t)
	f.createVault(t, 10000)
	f.bank.fund(alice, "uusdc", 1_000_000)
	_, _, err := f.keeper.Deposit(f.ctx, alice, "xTSLA", 1_000_000)
	require.NoError(t, err)

	fill1, _, err := f.keeper.RecordExposure(f.ctx, authority, "xTSLA", 100_000, 1_000)
	require.NoError(t, err)
	fill2, _, err := f.keeper.RecordExposure(f.ctx, authority, "xTSLA", 200_000, 2_000)
	require.NoError(t, err)
	require.NotEqual(t, fill1.FillID, fill2.FillID)

	fills := f.keeper.GetExposureFills(f.ctx, "xTSLA")
	require.Len(t, fills, 2)
}

func TestOperationCountersRecorded(t *testing.T) {
	f := initFixture(t)
	f.createVault(t, 5000)
	f.bank.fund(alice, "uusdc", 1_000_000)

	c := metrics.GetCollector()
	deposits := promtestutil.ToFloat64(c.DepositsTotal.WithLabelValues("xTSLA"))
	depositVolume := promtestutil.ToFloat64(c.DepositVolume.WithLabelValues("xTSLA"))
	requested := promtestutil.ToFloat64(c.WithdrawalsRequested.WithLabelValues("xTSLA"))
	processed := promtestutil.ToFloat64(c.WithdrawalsProcessed.WithLabelValues("xTSLA"))
	fills := promtestutil.ToFloat64(c.FillsTotal.WithLabelValues("xTSLA"))
	rejections := promtestutil.ToFloat64(c.CapRejections.WithLabelValues("xTSLA"))
	epochs := promtestutil.ToFloat64(c.EpochsAdvanced.WithLabelValues("xTSLA"))

	_, _, err := f.keeper.Deposit(f.ctx, alice, "xTSLA", 1_000_000)
	require.NoError(t, err)
	_, err = f.keeper.RequestWithdrawal(f.ctx, alice, "xTSLA", 400_000)
	require.NoError(t, err)

	// cap = 500000: one booked fill, one rejection
	_, _, err = f.keeper.RecordExposure(f.ctx, authority, "xTSLA", 400_000, 2_000)
	require.NoError(t, err)
	_, _, err = f.keeper.RecordExposure(f.ctx, authority, "xTSLA", 200_000, 0)
	require.ErrorIs(t, err, types.ErrExceedsUtilizationCap)

	_, err = f.keeper.AdvanceEpoch(f.ctx, authority, "xTSLA", 0)
	require.NoError(t, err)
	_, err = f.keeper.ProcessWithdrawal(f.ctx, alice, "xTSLA")
	require.NoError(t, err)

	require.EqualValues(t, deposits+1, promtestutil.ToFloat64(c.DepositsTotal.WithLabelValues("xTSLA")))
	require.EqualValues(t, depositVolume+1_000_000, promtestutil.ToFloat64(c.DepositVolume.WithLabelValues("xTSLA")))
	require.EqualValues(t, requested+1, promtestutil.ToFloat64(c.WithdrawalsRequested.WithLabelValues("xTSLA")))
	require.EqualValues(t, processed+1, promtestutil.ToFloat64(c.WithdrawalsProcessed.WithLabelValues("xTSLA")))
	require.EqualValues(t, fills+1, promtestutil.ToFloat64(c.FillsTotal.WithLabelValues("xTSLA")))
	require.EqualValues(t, rejections+1, promtestutil.ToFloat64(c.CapRejections.WithLabelValues("xTSLA")))
	require.EqualValues(t, epochs+1, promtestutil.ToFloat64(c.EpochsAdvanced.WithLabelValues("xTSLA")))
}
