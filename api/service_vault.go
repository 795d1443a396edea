package api

import (
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/xstocklabs/xvault/api/types"
	vaulttypes "github.com/xstocklabs/xvault/x/vault/types"
)

// StandaloneVaultService implements types.VaultService against in-memory
// state. It runs the same share math and epoch gating as the chain module,
// without bank transfers: deposits are taken at face value and share
// holdings are tracked per user internally.
type StandaloneVaultService struct {
	mu       sync.RWMutex
	vaults   map[string]*vaulttypes.Vault
	requests map[string]*vaulttypes.WithdrawalRequest
	fills    map[string][]*vaulttypes.ExposureFill
	shares   map[string]map[string]uint64 // assetID -> user -> shares
}

// NewStandaloneVaultService creates a new standalone vault service
func NewStandaloneVaultService() *StandaloneVaultService {
	return &StandaloneVaultService{
		vaults:   make(map[string]*vaulttypes.Vault),
		requests: make(map[string]*vaulttypes.WithdrawalRequest),
		fills:    make(map[string][]*vaulttypes.ExposureFill),
		shares:   make(map[string]map[string]uint64),
	}
}

func requestKey(assetID, user string) string {
	return assetID + ":" + user
}

func formatUint(v uint64) string {
	return strconv.FormatUint(v, 10)
}

func vaultToInfo(v *vaulttypes.Vault) *types.VaultInfo {
	return &types.VaultInfo{
		AssetID:                 v.AssetID,
		Authority:               v.Authority,
		UnderlyingDenom:         v.UnderlyingDenom,
		ShareDenom:              v.ShareDenom,
		TotalAssets:             formatUint(v.TotalAssets),
		TotalShares:             formatUint(v.TotalShares),
		SharePrice:              v.SharePrice().String(),
		Epoch:                   v.Epoch,
		UtilizationCapBps:       v.UtilizationCapBps,
		PendingWithdrawalShares: formatUint(v.PendingWithdrawalShares),
		CreatedAt:               v.CreatedAt,
		UpdatedAt:               v.UpdatedAt,
	}
}

func requestToInfo(req *vaulttypes.WithdrawalRequest, vaultEpoch uint64) *types.WithdrawalInfo {
	info := &types.WithdrawalInfo{
		User:         req.User,
		AssetID:      req.AssetID,
		Shares:       formatUint(req.Shares),
		RequestEpoch: req.RequestEpoch,
		Settleable:   req.Settleable(vaultEpoch),
		Processed:    req.Processed,
		RequestedAt:  req.RequestedAt,
	}
	if req.Processed {
		info.SettledEpoch = req.SettledEpoch
		info.AmountPaid = formatUint(req.AmountPaid)
		info.SettledAt = req.SettledAt
	}
	return info
}

// GetVaults returns all vaults
func (s *StandaloneVaultService) GetVaults() ([]*types.VaultInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	vaults := make([]*types.VaultInfo, 0, len(s.vaults))
	for _, v := range s.vaults {
		vaults = append(vaults, vaultToInfo(v))
	}
	return vaults, nil
}

// GetVault returns a vault by asset ID
func (s *StandaloneVaultService) GetVault(assetID string) (*types.VaultInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.vaults[assetID]
	if !ok {
		return nil, fmt.Errorf("vault not found: %s", assetID)
	}
	return vaultToInfo(v), nil
}

// GetEpochStats returns the current-epoch telemetry snapshot for a vault
func (s *StandaloneVaultService) GetEpochStats(assetID string) (*types.EpochStatsInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.vaults[assetID]
	if !ok {
		return nil, fmt.Errorf("vault not found: %s", assetID)
	}

	maxExposure := v.MaxExposure()
	remaining := uint64(0)
	if maxExposure > v.EpochNotionalExposed {
		remaining = maxExposure - v.EpochNotionalExposed
	}

	return &types.EpochStatsInfo{
		AssetID:           v.AssetID,
		Epoch:             v.Epoch,
		TotalAssets:       formatUint(v.TotalAssets),
		TotalShares:       formatUint(v.TotalShares),
		SharePrice:        v.SharePrice().String(),
		NotionalExposed:   formatUint(v.EpochNotionalExposed),
		MaxExposure:       formatUint(maxExposure),
		RemainingCapacity: formatUint(remaining),
		PremiumEarned:     formatUint(v.EpochPremiumEarned),
		AvgPremiumBps:     v.EpochAvgPremiumBps,
		PendingShares:     formatUint(v.PendingWithdrawalShares),
	}, nil
}

// GetWithdrawalRequest returns a user's withdrawal request against a vault
func (s *StandaloneVaultService) GetWithdrawalRequest(assetID, user string) (*types.WithdrawalInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.vaults[assetID]
	if !ok {
		return nil, fmt.Errorf("vault not found: %s", assetID)
	}
	req, ok := s.requests[requestKey(assetID, user)]
	if !ok {
		return nil, fmt.Errorf("no withdrawal request for %s in vault %s", user, assetID)
	}
	return requestToInfo(req, v.Epoch), nil
}

// GetPendingWithdrawals returns unprocessed requests for a vault and the
// total shares they queue
func (s *StandaloneVaultService) GetPendingWithdrawals(assetID string) ([]*types.WithdrawalInfo, uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.vaults[assetID]
	if !ok {
		return nil, 0, fmt.Errorf("vault not found: %s", assetID)
	}

	pending := make([]*types.WithdrawalInfo, 0)
	totalShares := uint64(0)
	for _, req := range s.requests {
		if req.AssetID == assetID && !req.Processed {
			pending = append(pending, requestToInfo(req, v.Epoch))
			totalShares += req.Shares
		}
	}
	return pending, totalShares, nil
}

// GetExposureFills returns the fill audit trail for a vault
func (s *StandaloneVaultService) GetExposureFills(assetID string) ([]*types.FillInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.vaults[assetID]; !ok {
		return nil, fmt.Errorf("vault not found: %s", assetID)
	}

	fills := make([]*types.FillInfo, 0, len(s.fills[assetID]))
	for _, f := range s.fills[assetID] {
		fills = append(fills, &types.FillInfo{
			FillID:     f.FillID,
			AssetID:    f.AssetID,
			Epoch:      f.Epoch,
			Notional:   formatUint(f.Notional),
			Premium:    formatUint(f.Premium),
			RecordedAt: f.RecordedAt,
		})
	}
	return fills, nil
}

// GetUserShareBalance returns a user's share holding and its current value
func (s *StandaloneVaultService) GetUserShareBalance(assetID, user string) (*types.ShareBalance, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.vaults[assetID]
	if !ok {
		return nil, fmt.Errorf("vault not found: %s", assetID)
	}

	shares := s.shares[assetID][user]
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
func (s *StandaloneVaultService) EstimateDeposit(assetID string, amount uint64) (*types.DepositEstimate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.vaults[assetID]
	if !ok {
		return nil, fmt.Errorf("vault not found: %s", assetID)
	}

	shares, err := v.SharesForDeposit(amount)
	if err != nil {
		return nil, err
	}

	return &types.DepositEstimate{
		AssetID:    assetID,
		Amount:     formatUint(amount),
		Shares:     formatUint(shares),
		SharePrice: v.SharePrice().String(),
	}, nil
}

// EstimateWithdrawal previews the payout for redeeming shares
func (s *StandaloneVaultService) EstimateWithdrawal(assetID string, shares uint64) (*types.WithdrawalEstimate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.vaults[assetID]
	if !ok {
		return nil, fmt.Errorf("vault not found: %s", assetID)
	}

	amount, err := v.AmountForShares(shares)
	if err != nil {
		return nil, err
	}

	return &types.WithdrawalEstimate{
		AssetID:    assetID,
		Shares:     formatUint(shares),
		Amount:     formatUint(amount),
		SharePrice: v.SharePrice().String(),
	}, nil
}

// CreateVault registers a new vault
func (s *StandaloneVaultService) CreateVault(authority, assetID, underlyingDenom string, capBps uint16) (*types.VaultInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if assetID == "" || authority == "" || underlyingDenom == "" {
		return nil, fmt.Errorf("authority, asset ID and underlying denom are required")
	}
	if capBps > vaulttypes.MaxCapBps {
		return nil, fmt.Errorf("utilization cap %d exceeds %d bps", capBps, vaulttypes.MaxCapBps)
	}
	if _, ok := s.vaults[assetID]; ok {
		return nil, fmt.Errorf("vault already exists: %s", assetID)
	}

	v := vaulttypes.NewVault(authority, assetID, underlyingDenom, capBps, time.Now().Unix())
	s.vaults[assetID] = v
	s.shares[assetID] = make(map[string]uint64)

	return vaultToInfo(v), nil
}

// Deposit mints shares for a deposit at the current share price
func (s *StandaloneVaultService) Deposit(assetID, depositor string, amount uint64) (*types.DepositResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	v, ok := s.vaults[assetID]
	if !ok {
		return nil, fmt.Errorf("vault not found: %s", assetID)
	}
	if depositor == "" {
		return nil, fmt.Errorf("depositor is required")
	}

	shares, err := v.SharesForDeposit(amount)
	if err != nil {
		return nil, err
	}

	newAssets, err := vaulttypes.CheckedAdd(v.TotalAssets, amount)
	if err != nil {
		return nil, err
	}
	newShares, err := vaulttypes.CheckedAdd(v.TotalShares, shares)
	if err != nil {
		return nil, err
	}

	v.TotalAssets = newAssets
	v.TotalShares = newShares
	v.UpdatedAt = time.Now().Unix()
	s.shares[assetID][depositor] += shares

	return &types.DepositResult{
		AssetID:      assetID,
		Depositor:    depositor,
		Amount:       formatUint(amount),
		SharesMinted: formatUint(shares),
		SharePrice:   v.SharePrice().String(),
		Epoch:        v.Epoch,
	}, nil
}

// RequestWithdrawal queues shares for settlement in a later epoch. A refile
// replaces the live request and rebases the pending share counter.
func (s *StandaloneVaultService) RequestWithdrawal(assetID, user string, shares uint64) (*types.WithdrawalResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	v, ok := s.vaults[assetID]
	if !ok {
		return nil, fmt.Errorf("vault not found: %s", assetID)
	}
	if shares == 0 {
		return nil, fmt.Errorf("shares must be positive")
	}
	if s.shares[assetID][user] < shares {
		return nil, fmt.Errorf("insufficient shares: have %d, requested %d", s.shares[assetID][user], shares)
	}

	pending := v.PendingWithdrawalShares
	if prev, ok := s.requests[requestKey(assetID, user)]; ok && !prev.Processed {
		var err error
		pending, err = vaulttypes.CheckedSub(pending, prev.Shares)
		if err != nil {
			return nil, err
		}
	}
	pending, err := vaulttypes.CheckedAdd(pending, shares)
	if err != nil {
		return nil, err
	}

	now := time.Now().Unix()
	req := vaulttypes.NewWithdrawalRequest(user, assetID, shares, v.Epoch, now)
	s.requests[requestKey(assetID, user)] = req
	v.PendingWithdrawalShares = pending
	v.UpdatedAt = now

	return &types.WithdrawalResult{
		AssetID:         assetID,
		User:            user,
		Shares:          formatUint(shares),
		RequestEpoch:    req.RequestEpoch,
		SettleableEpoch: req.RequestEpoch + 1,
	}, nil
}

// ProcessWithdrawal settles a queued request once its epoch has closed
func (s *StandaloneVaultService) ProcessWithdrawal(assetID, user string) (*types.SettleResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	v, ok := s.vaults[assetID]
	if !ok {
		return nil, fmt.Errorf("vault not found: %s", assetID)
	}
	req, ok := s.requests[requestKey(assetID, user)]
	if !ok {
		return nil, fmt.Errorf("no withdrawal request for %s in vault %s", user, assetID)
	}
	if req.Processed {
		return nil, fmt.Errorf("withdrawal request already processed")
	}
	if !req.Settleable(v.Epoch) {
		return nil, fmt.Errorf("request epoch %d not yet settled, current epoch %d", req.RequestEpoch, v.Epoch)
	}
	if s.shares[assetID][user] < req.Shares {
		return nil, fmt.Errorf("insufficient shares: have %d, queued %d", s.shares[assetID][user], req.Shares)
	}

	amount, err := v.AmountForShares(req.Shares)
	if err != nil {
		return nil, err
	}

	newAssets, err := vaulttypes.CheckedSub(v.TotalAssets, amount)
	if err != nil {
		return nil, err
	}
	newShares, err := vaulttypes.CheckedSub(v.TotalShares, req.Shares)
	if err != nil {
		return nil, err
	}
	newPending, err := vaulttypes.CheckedSub(v.PendingWithdrawalShares, req.Shares)
	if err != nil {
		return nil, err
	}

	now := time.Now().Unix()
	v.TotalAssets = newAssets
	v.TotalShares = newShares
	v.PendingWithdrawalShares = newPending
	v.UpdatedAt = now
	s.shares[assetID][user] -= req.Shares
	req.Settle(v.Epoch, amount, now)

	return &types.SettleResult{
		AssetID:      assetID,
		User:         user,
		SharesBurned: formatUint(req.Shares),
		AmountPaid:   formatUint(amount),
		SettledEpoch: v.Epoch,
	}, nil
}

// RecordExposure books a strategy fill against the vault's epoch cap
func (s *StandaloneVaultService) RecordExposure(assetID, operator string, notional, premium uint64) (*types.ExposureResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	v, ok := s.vaults[assetID]
	if !ok {
		return nil, fmt.Errorf("vault not found: %s", assetID)
	}
	if operator != v.Authority {
		return nil, fmt.Errorf("operator %s is not the vault authority", operator)
	}
	if notional == 0 {
		return nil, fmt.Errorf("notional must be positive")
	}

	newExposed, err := vaulttypes.CheckedAdd(v.EpochNotionalExposed, notional)
	if err != nil {
		return nil, err
	}
	maxExposure := v.MaxExposure()
	if newExposed > maxExposure {
		return nil, fmt.Errorf("exposure %d exceeds epoch cap %d", newExposed, maxExposure)
	}
	newPremium, err := vaulttypes.CheckedAdd(v.EpochPremiumEarned, premium)
	if err != nil {
		return nil, err
	}

	now := time.Now().Unix()
	fill := &vaulttypes.ExposureFill{
		FillID:     uuid.NewString(),
		AssetID:    assetID,
		Notional:   notional,
		Premium:    premium,
		Epoch:      v.Epoch,
		RecordedAt: now,
	}
	s.fills[assetID] = append(s.fills[assetID], fill)

	v.EpochNotionalExposed = newExposed
	v.EpochPremiumEarned = newPremium
	v.EpochAvgPremiumBps = vaulttypes.AvgPremiumBps(newPremium, newExposed)
	v.UpdatedAt = now

	return &types.ExposureResult{
		FillID:            fill.FillID,
		AssetID:           assetID,
		Epoch:             v.Epoch,
		NotionalExposed:   formatUint(newExposed),
		RemainingCapacity: formatUint(maxExposure - newExposed),
		AvgPremiumBps:     v.EpochAvgPremiumBps,
	}, nil
}

// AdvanceEpoch closes the current epoch, folding realized premium into the
// pool and resetting per-epoch counters
func (s *StandaloneVaultService) AdvanceEpoch(assetID, operator string, premiumEarned uint64) (*types.EpochResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	v, ok := s.vaults[assetID]
	if !ok {
		return nil, fmt.Errorf("vault not found: %s", assetID)
	}
	if operator != v.Authority {
		return nil, fmt.Errorf("operator %s is not the vault authority", operator)
	}

	newAssets, err := vaulttypes.CheckedAdd(v.TotalAssets, premiumEarned)
	if err != nil {
		return nil, err
	}
	newEpoch, err := vaulttypes.CheckedAdd(v.Epoch, 1)
	if err != nil {
		return nil, err
	}

	now := time.Now().Unix()
	v.TotalAssets = newAssets
	v.Epoch = newEpoch
	v.EpochNotionalExposed = 0
	v.EpochPremiumEarned = 0
	v.EpochAvgPremiumBps = 0
	v.LastEpochAdvanceTime = now
	v.UpdatedAt = now

	return &types.EpochResult{
		AssetID:     assetID,
		NewEpoch:    newEpoch,
		TotalAssets: formatUint(v.TotalAssets),
		TotalShares: formatUint(v.TotalShares),
		SharePrice:  v.SharePrice().String(),
	}, nil
}

// UpdateUtilizationCap changes the vault's per-epoch exposure cap
func (s *StandaloneVaultService) UpdateUtilizationCap(assetID, authority string, newCapBps uint16) (*types.CapResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	v, ok := s.vaults[assetID]
	if !ok {
		return nil, fmt.Errorf("vault not found: %s", assetID)
	}
	if authority != v.Authority {
		return nil, fmt.Errorf("%s is not the vault authority", authority)
	}
	if newCapBps > vaulttypes.MaxCapBps {
		return nil, fmt.Errorf("utilization cap %d exceeds %d bps", newCapBps, vaulttypes.MaxCapBps)
	}

	oldCap := v.UtilizationCapBps
	v.UtilizationCapBps = newCapBps
	v.UpdatedAt = time.Now().Unix()

	return &types.CapResult{
		AssetID:   assetID,
		OldCapBps: oldCap,
		NewCapBps: newCapBps,
	}, nil
}
