package api

import (
	"context"
	"fmt"
	"sync"
	"time"

	"cosmossdk.io/log"
	"cosmossdk.io/math"
	"cosmossdk.io/store"
	storemetrics "cosmossdk.io/store/metrics"
	storetypes "cosmossdk.io/store/types"
	cmtproto "github.com/cometbft/cometbft/proto/tendermint/types"
	dbm "github.com/cosmos/cosmos-db"
	"github.com/cosmos/cosmos-sdk/codec"
	codectypes "github.com/cosmos/cosmos-sdk/codec/types"
	sdk "github.com/cosmos/cosmos-sdk/types"
	authtypes "github.com/cosmos/cosmos-sdk/x/auth/types"

	"github.com/xstocklabs/xvault/api/types"
	"github.com/xstocklabs/xvault/x/vault/keeper"
	vaulttypes "github.com/xstocklabs/xvault/x/vault/types"
)

// KeeperVaultService implements types.VaultService against a real vault
// keeper over an in-memory commit store, serving queries through the
// keeper's QueryServer and transactions through its MsgServer. Addresses
// must be Bech32; balances live in an in-memory bank.
type KeeperVaultService struct {
	mu     sync.Mutex
	ctx    sdk.Context
	keeper *keeper.Keeper
	bank   *memBankKeeper
	query  *keeper.QueryServer
	msgs   *keeper.MsgServer
}

var _ types.VaultService = (*KeeperVaultService)(nil)

// memBankKeeper is an in-memory bank backing the keeper-based service.
// Module balances are keyed by module name, accounts by Bech32 address.
type memBankKeeper struct {
	mu       sync.Mutex
	balances map[string]sdk.Coins
}

func newMemBankKeeper() *memBankKeeper {
	return &memBankKeeper{balances: make(map[string]sdk.Coins)}
}

func moduleKey(name string) string {
	return "module/" + name
}

func (b *memBankKeeper) credit(key string, amt sdk.Coins) {
	b.balances[key] = b.balances[key].Add(amt...)
}

func (b *memBankKeeper) debit(key string, amt sdk.Coins) error {
	remaining, negative := b.balances[key].SafeSub(amt...)
	if negative {
		return fmt.Errorf("insufficient funds for %s: have %s, need %s", key, b.balances[key], amt)
	}
	b.balances[key] = remaining
	return nil
}

func (b *memBankKeeper) SendCoinsFromAccountToModule(_ context.Context, senderAddr sdk.AccAddress, recipientModule string, amt sdk.Coins) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.debit(senderAddr.String(), amt); err != nil {
		return err
	}
	b.credit(moduleKey(recipientModule), amt)
	return nil
}

func (b *memBankKeeper) SendCoinsFromModuleToAccount(_ context.Context, senderModule string, recipientAddr sdk.AccAddress, amt sdk.Coins) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.debit(moduleKey(senderModule), amt); err != nil {
		return err
	}
	b.credit(recipientAddr.String(), amt)
	return nil
}

func (b *memBankKeeper) MintCoins(_ context.Context, moduleName string, amt sdk.Coins) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.credit(moduleKey(moduleName), amt)
	return nil
}

func (b *memBankKeeper) BurnCoins(_ context.Context, moduleName string, amt sdk.Coins) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.debit(moduleKey(moduleName), amt)
}

func (b *memBankKeeper) GetBalance(_ context.Context, addr sdk.AccAddress, denom string) sdk.Coin {
	b.mu.Lock()
	defer b.mu.Unlock()
	return sdk.NewCoin(denom, b.balances[addr.String()].AmountOf(denom))
}

// NewKeeperVaultService creates a keeper-backed vault service with an
// in-memory store
func NewKeeperVaultService() *KeeperVaultService {
	interfaceRegistry := codectypes.NewInterfaceRegistry()
	cdc := codec.NewProtoCodec(interfaceRegistry)

	storeKey := storetypes.NewKVStoreKey(vaulttypes.ModuleName)
	db := dbm.NewMemDB()
	stateStore := store.NewCommitMultiStore(db, log.NewNopLogger(), storemetrics.NewNoOpMetrics())
	stateStore.MountStoreWithDB(storeKey, storetypes.StoreTypeIAVL, db)
	if err := stateStore.LoadLatestVersion(); err != nil {
		panic(fmt.Sprintf("failed to load store: %v", err))
	}

	ctx := sdk.NewContext(stateStore, cmtproto.Header{
		Time:   time.Now(),
		Height: 1,
	}, false, log.NewNopLogger())

	bank := newMemBankKeeper()
	k := keeper.NewKeeper(
		cdc,
		storeKey,
		bank,
		authtypes.NewModuleAddress("gov").String(),
		log.NewNopLogger(),
	)

	return &KeeperVaultService{
		ctx:    ctx,
		keeper: k,
		bank:   bank,
		query:  keeper.NewQueryServerImpl(k),
		msgs:   keeper.NewMsgServerImpl(k),
	}
}

// FundAccount credits an account with units of a denom. On a live chain
// balances come from the bank module; here they have to be seeded.
func (s *KeeperVaultService) FundAccount(address, denom string, amount uint64) error {
	addr, err := sdk.AccAddressFromBech32(address)
	if err != nil {
		return err
	}
	s.bank.mu.Lock()
	defer s.bank.mu.Unlock()
	s.bank.credit(addr.String(), sdk.NewCoins(sdk.NewCoin(denom, math.NewIntFromUint64(amount))))
	return nil
}

// tick stamps the context with the current wall clock and the next height,
// so keeper records carry fresh timestamps. Callers hold s.mu.
func (s *KeeperVaultService) tick() {
	s.ctx = s.ctx.WithBlockTime(time.Now()).WithBlockHeight(s.ctx.BlockHeight() + 1)
}

// GetVaults returns all vaults
func (s *KeeperVaultService) GetVaults() ([]*types.VaultInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	vaults, _, err := s.query.Vaults(s.ctx, 0, 0)
	if err != nil {
		return nil, err
	}
	infos := make([]*types.VaultInfo, 0, len(vaults))
	for _, v := range vaults {
		infos = append(infos, vaultToInfo(v))
	}
	return infos, nil
}

// GetVault returns a vault by asset ID
func (s *KeeperVaultService) GetVault(assetID string) (*types.VaultInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	v, err := s.query.Vault(s.ctx, assetID)
	if err != nil {
		return nil, err
	}
	return vaultToInfo(v), nil
}

// GetEpochStats returns the current-epoch telemetry snapshot for a vault
func (s *KeeperVaultService) GetEpochStats(assetID string) (*types.EpochStatsInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stats, err := s.query.EpochStats(s.ctx, assetID)
	if err != nil {
		return nil, err
	}
	return &types.EpochStatsInfo{
		AssetID:           stats.AssetID,
		Epoch:             stats.Epoch,
		TotalAssets:       formatUint(stats.TotalAssets),
		TotalShares:       formatUint(stats.TotalShares),
		SharePrice:        stats.SharePrice,
		NotionalExposed:   formatUint(stats.NotionalExposed),
		MaxExposure:       formatUint(stats.MaxExposure),
		RemainingCapacity: formatUint(stats.RemainingCapacity),
		PremiumEarned:     formatUint(stats.PremiumEarned),
		AvgPremiumBps:     stats.AvgPremiumBps,
		PendingShares:     formatUint(stats.PendingShares),
	}, nil
}

// GetWithdrawalRequest returns a user's withdrawal request against a vault
func (s *KeeperVaultService) GetWithdrawalRequest(assetID, user string) (*types.WithdrawalInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	v, err := s.query.Vault(s.ctx, assetID)
	if err != nil {
		return nil, err
	}
	req, err := s.query.WithdrawalRequest(s.ctx, assetID, user)
	if err != nil {
		return nil, err
	}
	return requestToInfo(req, v.Epoch), nil
}

// GetPendingWithdrawals returns unprocessed requests for a vault and the
// total shares they queue
func (s *KeeperVaultService) GetPendingWithdrawals(assetID string) ([]*types.WithdrawalInfo, uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	v, err := s.query.Vault(s.ctx, assetID)
	if err != nil {
		return nil, 0, err
	}
	pending, totalShares, err := s.query.PendingWithdrawals(s.ctx, assetID)
	if err != nil {
		return nil, 0, err
	}
	infos := make([]*types.WithdrawalInfo, 0, len(pending))
	for _, req := range pending {
		infos = append(infos, requestToInfo(req, v.Epoch))
	}
	return infos, totalShares, nil
}

// GetExposureFills returns the fill audit trail for a vault
func (s *KeeperVaultService) GetExposureFills(assetID string) ([]*types.FillInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	fills, err := s.query.ExposureFills(s.ctx, assetID)
	if err != nil {
		return nil, err
	}
	infos := make([]*types.FillInfo, 0, len(fills))
	for _, f := range fills {
		infos = append(infos, &types.FillInfo{
			FillID:     f.FillID,
			AssetID:    f.AssetID,
			Epoch:      f.Epoch,
			Notional:   formatUint(f.Notional),
			Premium:    formatUint(f.Premium),
			RecordedAt: f.RecordedAt,
		})
	}
	return infos, nil
}

// GetUserShareBalance returns a user's share holding and its current value
func (s *KeeperVaultService) GetUserShareBalance(assetID, user string) (*types.ShareBalance, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	v, err := s.query.Vault(s.ctx, assetID)
	if err != nil {
		return nil, err
	}
	addr, err := sdk.AccAddressFromBech32(user)
	if err != nil {
		return nil, err
	}

	shares := s.bank.GetBalance(s.ctx, addr, v.ShareDenom).Amount.Uint64()
	value, err := v.AmountForShares(shares)
	if err != nil {
		return nil, err
	}

	return &types.ShareBalance{
		AssetID:    assetID,
		User:       user,
		Shares:     formatUint(shares),
		Value:      formatUint(value),
		SharePrice: v.SharePrice().String(),
	}, nil
}

// EstimateDeposit previews the shares minted for a deposit
func (s *KeeperVaultService) EstimateDeposit(assetID string, amount uint64) (*types.DepositEstimate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	shares, sharePrice, err := s.query.EstimateDeposit(s.ctx, assetID, amount)
	if err != nil {
		return nil, err
	}
	return &types.DepositEstimate{
		AssetID:    assetID,
		Amount:     formatUint(amount),
		Shares:     formatUint(shares),
		SharePrice: sharePrice,
	}, nil
}

// EstimateWithdrawal previews the payout for redeeming shares
func (s *KeeperVaultService) EstimateWithdrawal(assetID string, shares uint64) (*types.WithdrawalEstimate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	amount, sharePrice, err := s.query.EstimateWithdrawal(s.ctx, assetID, shares)
	if err != nil {
		return nil, err
	}
	return &types.WithdrawalEstimate{
		AssetID:    assetID,
		Shares:     formatUint(shares),
		Amount:     formatUint(amount),
		SharePrice: sharePrice,
	}, nil
}

// CreateVault registers a new vault
func (s *KeeperVaultService) CreateVault(authority, assetID, underlyingDenom string, capBps uint16) (*types.VaultInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tick()

	_, err := s.msgs.CreateVault(s.ctx, &vaulttypes.MsgCreateVault{
		Authority:         authority,
		AssetID:           assetID,
		UnderlyingDenom:   underlyingDenom,
		UtilizationCapBps: capBps,
	})
	if err != nil {
		return nil, err
	}

	v, err := s.query.Vault(s.ctx, assetID)
	if err != nil {
		return nil, err
	}
	return vaultToInfo(v), nil
}

// Deposit mints shares for a deposit at the current share price
func (s *KeeperVaultService) Deposit(assetID, depositor string, amount uint64) (*types.DepositResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tick()

	resp, err := s.msgs.Deposit(s.ctx, &vaulttypes.MsgDeposit{
		Depositor: depositor,
		AssetID:   assetID,
		Amount:    amount,
	})
	if err != nil {
		return nil, err
	}

	v, err := s.query.Vault(s.ctx, assetID)
	if err != nil {
		return nil, err
	}
	return &types.DepositResult{
		AssetID:      assetID,
		Depositor:    depositor,
		Amount:       formatUint(amount),
		SharesMinted: formatUint(resp.SharesMinted),
		SharePrice:   v.SharePrice().String(),
		Epoch:        resp.Epoch,
	}, nil
}

// RequestWithdrawal queues shares for settlement in a later epoch
func (s *KeeperVaultService) RequestWithdrawal(assetID, user string, shares uint64) (*types.WithdrawalResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tick()

	resp, err := s.msgs.RequestWithdrawal(s.ctx, &vaulttypes.MsgRequestWithdrawal{
		User:    user,
		AssetID: assetID,
		Shares:  shares,
	})
	if err != nil {
		return nil, err
	}
	return &types.WithdrawalResult{
		AssetID:         assetID,
		User:            user,
		Shares:          formatUint(shares),
		RequestEpoch:    resp.RequestEpoch,
		SettleableEpoch: resp.SettleableEpoch,
	}, nil
}

// ProcessWithdrawal settles a queued request once its epoch has closed
func (s *KeeperVaultService) ProcessWithdrawal(assetID, user string) (*types.SettleResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tick()

	resp, err := s.msgs.ProcessWithdrawal(s.ctx, &vaulttypes.MsgProcessWithdrawal{
		User:    user,
		AssetID: assetID,
	})
	if err != nil {
		return nil, err
	}
	return &types.SettleResult{
		AssetID:      assetID,
		User:         user,
		SharesBurned: formatUint(resp.SharesBurned),
		AmountPaid:   formatUint(resp.AmountPaid),
		SettledEpoch: resp.SettledEpoch,
	}, nil
}

// RecordExposure books a strategy fill against the vault's epoch cap
func (s *KeeperVaultService) RecordExposure(assetID, operator string, notional, premium uint64) (*types.ExposureResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tick()

	resp, err := s.msgs.RecordExposure(s.ctx, &vaulttypes.MsgRecordExposure{
		Operator: operator,
		AssetID:  assetID,
		Notional: notional,
		Premium:  premium,
	})
	if err != nil {
		return nil, err
	}

	v, err := s.query.Vault(s.ctx, assetID)
	if err != nil {
		return nil, err
	}
	return &types.ExposureResult{
		FillID:            resp.FillID,
		AssetID:           assetID,
		Epoch:             v.Epoch,
		NotionalExposed:   formatUint(resp.NotionalExposed),
		RemainingCapacity: formatUint(resp.RemainingCapacity),
		AvgPremiumBps:     resp.AvgPremiumBps,
	}, nil
}

// AdvanceEpoch closes the current epoch, folding realized premium into the
// pool and resetting per-epoch counters
func (s *KeeperVaultService) AdvanceEpoch(assetID, operator string, premiumEarned uint64) (*types.EpochResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tick()

	resp, err := s.msgs.AdvanceEpoch(s.ctx, &vaulttypes.MsgAdvanceEpoch{
		Operator:      operator,
		AssetID:       assetID,
		PremiumEarned: premiumEarned,
	})
	if err != nil {
		return nil, err
	}

	v, err := s.query.Vault(s.ctx, assetID)
	if err != nil {
		return nil, err
	}
	return &types.EpochResult{
		AssetID:     assetID,
		NewEpoch:    resp.NewEpoch,
		TotalAssets: formatUint(resp.TotalAssets),
		TotalShares: formatUint(resp.TotalShares),
		SharePrice:  v.SharePrice().String(),
	}, nil
}

// UpdateUtilizationCap changes the vault's per-epoch exposure cap
func (s *KeeperVaultService) UpdateUtilizationCap(assetID, authority string, newCapBps uint16) (*types.CapResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tick()

	resp, err := s.msgs.UpdateUtilizationCap(s.ctx, &vaulttypes.MsgUpdateUtilizationCap{
		Authority: authority,
		AssetID:   assetID,
		NewCapBps: newCapBps,
	})
	if err != nil {
		return nil, err
	}
	return &types.CapResult{
		AssetID:   assetID,
		OldCapBps: resp.OldCapBps,
		NewCapBps: resp.NewCapBps,
	}, nil
}
