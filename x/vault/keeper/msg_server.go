package keeper

import (
	"context"

	"github.com/xstocklabs/xvault/x/vault/types"
)

// MsgServer defines the vault MsgServer
type MsgServer struct {
	keeper *Keeper
}

// NewMsgServerImpl creates a new MsgServer instance
func NewMsgServerImpl(keeper *Keeper) *MsgServer {
	return &MsgServer{keeper: keeper}
}

var _ types.MsgServer = (*MsgServer)(nil)

// CreateVault handles MsgCreateVault
func (m *MsgServer) CreateVault(ctx context.Context, msg *types.MsgCreateVault) (*types.MsgCreateVaultResponse, error) {
	vault, err := m.keeper.CreateVault(ctx, msg.Authority, msg.AssetID, msg.UnderlyingDenom, msg.UtilizationCapBps)
	if err != nil {
		return nil, err
	}

	return &types.MsgCreateVaultResponse{
		AssetID:    vault.AssetID,
		ShareDenom: vault.ShareDenom,
	}, nil
}

// Deposit handles MsgDeposit
func (m *MsgServer) Deposit(ctx context.Context, msg *types.MsgDeposit) (*types.MsgDepositResponse, error) {
	shares, vault, err := m.keeper.Deposit(ctx, msg.Depositor, msg.AssetID, msg.Amount)
	if err != nil {
		return nil, err
	}

	return &types.MsgDepositResponse{
		SharesMinted: shares,
		Epoch:        vault.Epoch,
	}, nil
}

// RequestWithdrawal handles MsgRequestWithdrawal
func (m *MsgServer) RequestWithdrawal(ctx context.Context, msg *types.MsgRequestWithdrawal) (*types.MsgRequestWithdrawalResponse, error) {
	req, err := m.keeper.RequestWithdrawal(ctx, msg.User, msg.AssetID, msg.Shares)
	if err != nil {
		return nil, err
	}

	return &types.MsgRequestWithdrawalResponse{
		RequestEpoch:    req.RequestEpoch,
		SettleableEpoch: req.RequestEpoch + 1,
	}, nil
}

// ProcessWithdrawal handles MsgProcessWithdrawal
func (m *MsgServer) ProcessWithdrawal(ctx context.Context, msg *types.MsgProcessWithdrawal) (*types.MsgProcessWithdrawalResponse, error) {
	req, err := m.keeper.ProcessWithdrawal(ctx, msg.User, msg.AssetID)
	if err != nil {
		return nil, err
	}

	return &types.MsgProcessWithdrawalResponse{
		SharesBurned: req.Shares,
		AmountPaid:   req.AmountPaid,
		SettledEpoch: req.SettledEpoch,
	}, nil
}

// RecordExposure handles MsgRecordExposure
func (m *MsgServer) RecordExposure(ctx context.Context, msg *types.MsgRecordExposure) (*types.MsgRecordExposureResponse, error) {
	fill, vault, err := m.keeper.RecordExposure(ctx, msg.Operator, msg.AssetID, msg.Notional, msg.Premium)
	if err != nil {
		return nil, err
	}

	maxExposure := vault.MaxExposure()
	remaining := uint64(0)
	if maxExposure > vault.EpochNotionalExposed {
		remaining = maxExposure - vault.EpochNotionalExposed
	}

	return &types.MsgRecordExposureResponse{
		FillID:            fill.FillID,
		NotionalExposed:   vault.EpochNotionalExposed,
		RemainingCapacity: remaining,
		AvgPremiumBps:     vault.EpochAvgPremiumBps,
	}, nil
}

// AdvanceEpoch handles MsgAdvanceEpoch
func (m *MsgServer) AdvanceEpoch(ctx context.Context, msg *types.MsgAdvanceEpoch) (*types.MsgAdvanceEpochResponse, error) {
	vault, err := m.keeper.AdvanceEpoch(ctx, msg.Operator, msg.AssetID, msg.PremiumEarned)
	if err != nil {
		return nil, err
	}

	return &types.MsgAdvanceEpochResponse{
		NewEpoch:    vault.Epoch,
		TotalAssets: vault.TotalAssets,
		TotalShares: vault.TotalShares,
	}, nil
}

// UpdateUtilizationCap handles MsgUpdateUtilizationCap
func (m *MsgServer) UpdateUtilizationCap(ctx context.Context, msg *types.MsgUpdateUtilizationCap) (*types.MsgUpdateUtilizationCapResponse, error) {
	oldCap, err := m.keeper.UpdateUtilizationCap(ctx, msg.Authority, msg.AssetID, msg.NewCapBps)
	if err != nil {
		return nil, err
	}

	return &types.MsgUpdateUtilizationCapResponse{
		OldCapBps: oldCap,
		NewCapBps: msg.NewCapBps,
	}, nil
}
