package keeper

import (
	"context"
	"encoding/json"

	"cosmossdk.io/log"
	storetypes "cosmossdk.io/store/types"
	"github.com/cosmos/cosmos-sdk/codec"
	sdk "github.com/cosmos/cosmos-sdk/types"
	"github.com/xstocklabs/xvault/x/vault/types"
)

// Store key prefixes
var (
	VaultKeyPrefix      = []byte{0x01}
	WithdrawalKeyPrefix = []byte{0x02}
	FillKeyPrefix       = []byte{0x03}
)

// BankKeeper defines the expected interface for the bank module
type BankKeeper interface {
	SendCoinsFromAccountToModule(ctx context.Context, senderAddr sdk.AccAddress, recipientModule string, amt sdk.Coins) error
	SendCoinsFromModuleToAccount(ctx context.Context, senderModule string, recipientAddr sdk.AccAddress, amt sdk.Coins) error
	MintCoins(ctx context.Context, moduleName string, amt sdk.Coins) error
	BurnCoins(ctx context.Context, moduleName string, amt sdk.Coins) error
	GetBalance(ctx context.Context, addr sdk.AccAddress, denom string) sdk.Coin
}

// Keeper manages the vault module state
type Keeper struct {
	cdc        codec.BinaryCodec
	storeKey   storetypes.StoreKey
	bankKeeper BankKeeper
	logger     log.Logger
	authority  string
}

// NewKeeper creates a new vault keeper
func NewKeeper(
	cdc codec.BinaryCodec,
	storeKey storetypes.StoreKey,
	bankKeeper BankKeeper,
	authority string,
	logger log.Logger,
) *Keeper {
	k := &Keeper{
		cdc:        cdc,
		storeKey:   storeKey,
		bankKeeper: bankKeeper,
		authority:  authority,
		logger:     logger.With("module", "x/vault"),
	}
	return k
}

// Logger returns the module logger
func (k *Keeper) Logger() log.Logger {
	return k.logger
}

// GetAuthority returns the governance authority address
func (k *Keeper) GetAuthority() string {
	return k.authority
}

// GetStore returns the KVStore
func (k *Keeper) GetStore(ctx sdk.Context) storetypes.KVStore {
	return ctx.KVStore(k.storeKey)
}

// ============ Vault Record Operations ============

// SetVault saves a vault to the store
func (k *Keeper) SetVault(ctx sdk.Context, vault *types.Vault) {
	store := k.GetStore(ctx)
	key := append(VaultKeyPrefix, []byte(vault.AssetID)...)
	bz, _ := json.Marshal(vault)
	store.Set(key, bz)
}

// GetVault retrieves a vault from the store
func (k *Keeper) GetVault(ctx sdk.Context, assetID string) *types.Vault {
	store := k.GetStore(ctx)
	key := append(VaultKeyPrefix, []byte(assetID)...)
	bz := store.Get(key)
	if bz == nil {
		return nil
	}
	var vault types.Vault
	if err := json.Unmarshal(bz, &vault); err != nil {
		return nil
	}
	return &vault
}

// GetAllVaults returns all vaults
func (k *Keeper) GetAllVaults(ctx sdk.Context) []*types.Vault {
	store := k.GetStore(ctx)
	iterator := storetypes.KVStorePrefixIterator(store, VaultKeyPrefix)
	defer iterator.Close()

	var vaults []*types.Vault
	for ; iterator.Valid(); iterator.Next() {
		var vault types.Vault
		if err := json.Unmarshal(iterator.Value(), &vault); err != nil {
			continue
		}
		vaults = append(vaults, &vault)
	}
	return vaults
}

// ============ Withdrawal Request Operations ============

// withdrawalKey generates the key for a user's request against a vault.
// One live request per (vault, user): re-filing overwrites.
func withdrawalKey(assetID, user string) []byte {
	return append(WithdrawalKeyPrefix, []byte(assetID+":"+user)...)
}

// SetWithdrawalRequest saves a withdrawal request to the store
func (k *Keeper) SetWithdrawalRequest(ctx sdk.Context, req *types.WithdrawalRequest) {
	store := k.GetStore(ctx)
	key := withdrawalKey(req.AssetID, req.User)
	bz, _ := json.Marshal(req)
	store.Set(key, bz)
}

// GetWithdrawalRequest retrieves a user's withdrawal request for a vault
func (k *Keeper) GetWithdrawalRequest(ctx sdk.Context, assetID, user string) *types.WithdrawalRequest {
	store := k.GetStore(ctx)
	bz := store.Get(withdrawalKey(assetID, user))
	if bz == nil {
		return nil
	}
	var req types.WithdrawalRequest
	if err := json.Unmarshal(bz, &req); err != nil {
		return nil
	}
	return &req
}

// GetVaultWithdrawalRequests returns all requests filed against a vault
func (k *Keeper) GetVaultWithdrawalRequests(ctx sdk.Context, assetID string) []*types.WithdrawalRequest {
	store := k.GetStore(ctx)
	prefix := append(WithdrawalKeyPrefix, []byte(assetID+":")...)
	iterator := storetypes.KVStorePrefixIterator(store, prefix)
	defer iterator.Close()

	var requests []*types.WithdrawalRequest
	for ; iterator.Valid(); iterator.Next() {
		var req types.WithdrawalRequest
		if err := json.Unmarshal(iterator.Value(), &req); err != nil {
			continue
		}
		requests = append(requests, &req)
	}
	return requests
}

// GetPendingWithdrawalRequests returns unprocessed requests for a vault
func (k *Keeper) GetPendingWithdrawalRequests(ctx sdk.Context, assetID string) []*types.WithdrawalRequest {
	all := k.GetVaultWithdrawalRequests(ctx, assetID)
	var pending []*types.WithdrawalRequest
	for _, req := range all {
		if !req.Processed {
			pending = append(pending, req)
		}
	}
	return pending
}

// ============ Exposure Fill Operations ============

// fillKey generates the key for an exposure fill record
func fillKey(assetID, fillID string) []byte {
	return append(FillKeyPrefix, []byte(assetID+":"+fillID)...)
}

// SetExposureFill saves an exposure fill audit record
func (k *Keeper) SetExposureFill(ctx sdk.Context, fill *types.ExposureFill) {
	store := k.GetStore(ctx)
	key := fillKey(fill.AssetID, fill.FillID)
	bz, _ := json.Marshal(fill)
	store.Set(key, bz)
}

// GetExposureFills returns all fills recorded against a vault
func (k *Keeper) GetExposureFills(ctx sdk.Context, assetID string) []*types.ExposureFill {
	store := k.GetStore(ctx)
	prefix := append(FillKeyPrefix, []byte(assetID+":")...)
	iterator := storetypes.KVStorePrefixIterator(store, prefix)
	defer iterator.Close()

	var fills []*types.ExposureFill
	for ; iterator.Valid(); iterator.Next() {
		var fill types.ExposureFill
		if err := json.Unmarshal(iterator.Value(), &fill); err != nil {
			continue
		}
		fills = append(fills, &fill)
	}
	return fills
}
