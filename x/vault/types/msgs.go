package types

import (
	"context"
	"fmt"

	sdk "github.com/cosmos/cosmos-sdk/types"
)

// Message types
const (
	TypeMsgCreateVault          = "create_vault"
	TypeMsgDeposit              = "deposit"
	TypeMsgRequestWithdrawal    = "request_withdrawal"
	TypeMsgProcessWithdrawal    = "process_withdrawal"
	TypeMsgRecordExposure       = "record_exposure"
	TypeMsgAdvanceEpoch         = "advance_epoch"
	TypeMsgUpdateUtilizationCap = "update_utilization_cap"
)

// MsgCreateVault registers a new vault; the signer becomes its authority.
type MsgCreateVault struct {
	Authority         string `json:"authority"`
	AssetID           string `json:"asset_id"`
	UnderlyingDenom   string `json:"underlying_denom"`
	UtilizationCapBps uint16 `json:"utilization_cap_bps"`
}

// Route implements sdk.Msg
func (msg MsgCreateVault) Route() string { return ModuleName }

// Type implements sdk.Msg
func (msg MsgCreateVault) Type() string { return TypeMsgCreateVault }

// ValidateBasic implements sdk.Msg
func (msg MsgCreateVault) ValidateBasic() error {
	if _, err := sdk.AccAddressFromBech32(msg.Authority); err != nil {
		return err
	}
	if msg.AssetID == "" {
		return ErrInvalidInput.Wrap("asset id cannot be empty")
	}
	if err := sdk.ValidateDenom(msg.UnderlyingDenom); err != nil {
		return ErrInvalidInput.Wrapf("underlying denom: %s", err)
	}
	if msg.UtilizationCapBps > MaxCapBps {
		return ErrInvalidCap
	}
	return nil
}

// GetSigners implements sdk.Msg
func (msg MsgCreateVault) GetSigners() []sdk.AccAddress {
	addr, _ := sdk.AccAddressFromBech32(msg.Authority)
	return []sdk.AccAddress{addr}
}

// ProtoMessage implements proto.Message
func (*MsgCreateVault) ProtoMessage() {}

// Reset implements proto.Message
func (msg *MsgCreateVault) Reset() { *msg = MsgCreateVault{} }

// String implements proto.Message
func (msg MsgCreateVault) String() string {
	return fmt.Sprintf("MsgCreateVault{Authority: %s, AssetID: %s, CapBps: %d}", msg.Authority, msg.AssetID, msg.UtilizationCapBps)
}

// MsgCreateVaultResponse defines the CreateVault response
type MsgCreateVaultResponse struct {
	AssetID    string `json:"asset_id"`
	ShareDenom string `json:"share_denom"`
}

// MsgDeposit deposits underlying units into a vault for shares.
type MsgDeposit struct {
	Depositor string `json:"depositor"`
	AssetID   string `json:"asset_id"`
	Amount    uint64 `json:"amount,string"`
}

// Route implements sdk.Msg
func (msg MsgDeposit) Route() string { return ModuleName }

// Type implements sdk.Msg
func (msg MsgDeposit) Type() string { return TypeMsgDeposit }

// ValidateBasic implements sdk.Msg
func (msg MsgDeposit) ValidateBasic() error {
	if _, err := sdk.AccAddressFromBech32(msg.Depositor); err != nil {
		return err
	}
	if msg.AssetID == "" {
		return ErrVaultNotFound
	}
	if msg.Amount == 0 {
		return ErrInvalidInput.Wrap("deposit amount must be greater than zero")
	}
	return nil
}

// GetSigners implements sdk.Msg
func (msg MsgDeposit) GetSigners() []sdk.AccAddress {
	addr, _ := sdk.AccAddressFromBech32(msg.Depositor)
	return []sdk.AccAddress{addr}
}

// ProtoMessage implements proto.Message
func (*MsgDeposit) ProtoMessage() {}

// Reset implements proto.Message
func (msg *MsgDeposit) Reset() { *msg = MsgDeposit{} }

// String implements proto.Message
func (msg MsgDeposit) String() string {
	return fmt.Sprintf("MsgDeposit{Depositor: %s, AssetID: %s, Amount: %d}", msg.Depositor, msg.AssetID, msg.Amount)
}

// MsgDepositResponse defines the Deposit response
type MsgDepositResponse struct {
	SharesMinted uint64 `json:"shares_minted,string"`
	Epoch        uint64 `json:"epoch,string"`
}

// MsgRequestWithdrawal queues shares for redemption at a later epoch.
type MsgRequestWithdrawal struct {
	User    string `json:"user"`
	AssetID string `json:"asset_id"`
	Shares  uint64 `json:"shares,string"`
}

// Route implements sdk.Msg
func (msg MsgRequestWithdrawal) Route() string { return ModuleName }

// Type implements sdk.Msg
func (msg MsgRequestWithdrawal) Type() string { return TypeMsgRequestWithdrawal }

// ValidateBasic implements sdk.Msg
func (msg MsgRequestWithdrawal) ValidateBasic() error {
	if _, err := sdk.AccAddressFromBech32(msg.User); err != nil {
		return err
	}
	if msg.AssetID == "" {
		return ErrVaultNotFound
	}
	if msg.Shares == 0 {
		return ErrInvalidInput.Wrap("shares must be greater than zero")
	}
	return nil
}

// GetSigners implements sdk.Msg
func (msg MsgRequestWithdrawal) GetSigners() []sdk.AccAddress {
	addr, _ := sdk.AccAddressFromBech32(msg.User)
	return []sdk.AccAddress{addr}
}

// ProtoMessage implements proto.Message
func (*MsgRequestWithdrawal) ProtoMessage() {}

// Reset implements proto.Message
func (msg *MsgRequestWithdrawal) Reset() { *msg = MsgRequestWithdrawal{} }

// String implements proto.Message
func (msg MsgRequestWithdrawal) String() string {
	return fmt.Sprintf("MsgRequestWithdrawal{User: %s, AssetID: %s, Shares: %d}", msg.User, msg.AssetID, msg.Shares)
}

// MsgRequestWithdrawalResponse defines the RequestWithdrawal response
type MsgRequestWithdrawalResponse struct {
	RequestEpoch    uint64 `json:"request_epoch,string"`
	SettleableEpoch uint64 `json:"settleable_epoch,string"`
}

// MsgProcessWithdrawal settles the caller's open withdrawal request.
type MsgProcessWithdrawal struct {
	User    string `json:"user"`
	AssetID string `json:"asset_id"`
}

// Route implements sdk.Msg
func (msg MsgProcessWithdrawal) Route() string { return ModuleName }

// Type implements sdk.Msg
func (msg MsgProcessWithdrawal) Type() string { return TypeMsgProcessWithdrawal }

// ValidateBasic implements sdk.Msg
func (msg MsgProcessWithdrawal) ValidateBasic() error {
	if _, err := sdk.AccAddressFromBech32(msg.User); err != nil {
		return err
	}
	if msg.AssetID == "" {
		return ErrVaultNotFound
	}
	return nil
}

// GetSigners implements sdk.Msg
func (msg MsgProcessWithdrawal) GetSigners() []sdk.AccAddress {
	addr, _ := sdk.AccAddressFromBech32(msg.User)
	return []sdk.AccAddress{addr}
}

// ProtoMessage implements proto.Message
func (*MsgProcessWithdrawal) ProtoMessage() {}

// Reset implements proto.Message
func (msg *MsgProcessWithdrawal) Reset() { *msg = MsgProcessWithdrawal{} }

// String implements proto.Message
func (msg MsgProcessWithdrawal) String() string {
	return fmt.Sprintf("MsgProcessWithdrawal{User: %s, AssetID: %s}", msg.User, msg.AssetID)
}

// MsgProcessWithdrawalResponse defines the ProcessWithdrawal response
type MsgProcessWithdrawalResponse struct {
	SharesBurned uint64 `json:"shares_burned,string"`
	AmountPaid   uint64 `json:"amount_paid,string"`
	SettledEpoch uint64 `json:"settled_epoch,string"`
}

// MsgRecordExposure reports one strategy fill (operator only).
type MsgRecordExposure struct {
	Operator string `json:"operator"`
	AssetID  string `json:"asset_id"`
	Notional uint64 `json:"notional,string"`
	Premium  uint64 `json:"premium,string"`
}

// Route implements sdk.Msg
func (msg MsgRecordExposure) Route() string { return ModuleName }

// Type implements sdk.Msg
func (msg MsgRecordExposure) Type() string { return TypeMsgRecordExposure }

// ValidateBasic implements sdk.Msg
func (msg MsgRecordExposure) ValidateBasic() error {
	if _, err := sdk.AccAddressFromBech32(msg.Operator); err != nil {
		return err
	}
	if msg.AssetID == "" {
		return ErrVaultNotFound
	}
	if msg.Notional == 0 {
		return ErrInvalidInput.Wrap("notional must be greater than zero")
	}
	return nil
}

// GetSigners implements sdk.Msg
func (msg MsgRecordExposure) GetSigners() []sdk.AccAddress {
	addr, _ := sdk.AccAddressFromBech32(msg.Operator)
	return []sdk.AccAddress{addr}
}

// ProtoMessage implements proto.Message
func (*MsgRecordExposure) ProtoMessage() {}

// Reset implements proto.Message
func (msg *MsgRecordExposure) Reset() { *msg = MsgRecordExposure{} }

// String implements proto.Message
func (msg MsgRecordExposure) String() string {
	return fmt.Sprintf("MsgRecordExposure{Operator: %s, AssetID: %s, Notional: %d, Premium: %d}", msg.Operator, msg.AssetID, msg.Notional, msg.Premium)
}

// MsgRecordExposureResponse defines the RecordExposure response
type MsgRecordExposureResponse struct {
	FillID            string `json:"fill_id"`
	NotionalExposed   uint64 `json:"notional_exposed,string"`
	RemainingCapacity uint64 `json:"remaining_capacity,string"`
	AvgPremiumBps     uint32 `json:"avg_premium_bps"`
}

// MsgAdvanceEpoch closes the current epoch, folding realized premium into
// pool assets (operator only).
type MsgAdvanceEpoch struct {
	Operator      string `json:"operator"`
	AssetID       string `json:"asset_id"`
	PremiumEarned uint64 `json:"premium_earned,string"`
}

// Route implements sdk.Msg
func (msg MsgAdvanceEpoch) Route() string { return ModuleName }

// Type implements sdk.Msg
func (msg MsgAdvanceEpoch) Type() string { return TypeMsgAdvanceEpoch }

// ValidateBasic implements sdk.Msg
func (msg MsgAdvanceEpoch) ValidateBasic() error {
	if _, err := sdk.AccAddressFromBech32(msg.Operator); err != nil {
		return err
	}
	if msg.AssetID == "" {
		return ErrVaultNotFound
	}
	return nil
}

// GetSigners implements sdk.Msg
func (msg MsgAdvanceEpoch) GetSigners() []sdk.AccAddress {
	addr, _ := sdk.AccAddressFromBech32(msg.Operator)
	return []sdk.AccAddress{addr}
}

// ProtoMessage implements proto.Message
func (*MsgAdvanceEpoch) ProtoMessage() {}

// Reset implements proto.Message
func (msg *MsgAdvanceEpoch) Reset() { *msg = MsgAdvanceEpoch{} }

// String implements proto.Message
func (msg MsgAdvanceEpoch) String() string {
	return fmt.Sprintf("MsgAdvanceEpoch{Operator: %s, AssetID: %s, Premium: %d}", msg.Operator, msg.AssetID, msg.PremiumEarned)
}

// MsgAdvanceEpochResponse defines the AdvanceEpoch response
type MsgAdvanceEpochResponse struct {
	NewEpoch    uint64 `json:"new_epoch,string"`
	TotalAssets uint64 `json:"total_assets,string"`
	TotalShares uint64 `json:"total_shares,string"`
}

// MsgUpdateUtilizationCap changes a vault's sole risk parameter
// (authority only).
type MsgUpdateUtilizationCap struct {
	Authority string `json:"authority"`
	AssetID   string `json:"asset_id"`
	NewCapBps uint16 `json:"new_cap_bps"`
}

// Route implements sdk.Msg
func (msg MsgUpdateUtilizationCap) Route() string { return ModuleName }

// Type implements sdk.Msg
func (msg MsgUpdateUtilizationCap) Type() string { return TypeMsgUpdateUtilizationCap }

// ValidateBasic implements sdk.Msg
func (msg MsgUpdateUtilizationCap) ValidateBasic() error {
	if _, err := sdk.AccAddressFromBech32(msg.Authority); err != nil {
		return err
	}
	if msg.AssetID == "" {
		return ErrVaultNotFound
	}
	if msg.NewCapBps > MaxCapBps {
		return ErrInvalidCap
	}
	return nil
}

// GetSigners implements sdk.Msg
func (msg MsgUpdateUtilizationCap) GetSigners() []sdk.AccAddress {
	addr, _ := sdk.AccAddressFromBech32(msg.Authority)
	return []sdk.AccAddress{addr}
}

// ProtoMessage implements proto.Message
func (*MsgUpdateUtilizationCap) ProtoMessage() {}

// Reset implements proto.Message
func (msg *MsgUpdateUtilizationCap) Reset() { *msg = MsgUpdateUtilizationCap{} }

// String implements proto.Message
func (msg MsgUpdateUtilizationCap) String() string {
	return fmt.Sprintf("MsgUpdateUtilizationCap{Authority: %s, AssetID: %s, NewCapBps: %d}", msg.Authority, msg.AssetID, msg.NewCapBps)
}

// MsgUpdateUtilizationCapResponse defines the UpdateUtilizationCap response
type MsgUpdateUtilizationCapResponse struct {
	OldCapBps uint16 `json:"old_cap_bps"`
	NewCapBps uint16 `json:"new_cap_bps"`
}

// MsgServer defines the vault module's message service
type MsgServer interface {
	CreateVault(context.Context, *MsgCreateVault) (*MsgCreateVaultResponse, error)
	Deposit(context.Context, *MsgDeposit) (*MsgDepositResponse, error)
	RequestWithdrawal(context.Context, *MsgRequestWithdrawal) (*MsgRequestWithdrawalResponse, error)
	ProcessWithdrawal(context.Context, *MsgProcessWithdrawal) (*MsgProcessWithdrawalResponse, error)
	RecordExposure(context.Context, *MsgRecordExposure) (*MsgRecordExposureResponse, error)
	AdvanceEpoch(context.Context, *MsgAdvanceEpoch) (*MsgAdvanceEpochResponse, error)
	UpdateUtilizationCap(context.Context, *MsgUpdateUtilizationCap) (*MsgUpdateUtilizationCapResponse, error)
}

// RegisterMsgServer registers the MsgServer with the configurator's MsgServer.
// Placeholder until proto service generation is wired; messages are
// dispatched through the module handler.
func RegisterMsgServer(s interface{}, srv MsgServer) {
}

// Ensure all messages implement sdk.Msg interface
var (
	_ sdk.Msg = &MsgCreateVault{}
	_ sdk.Msg = &MsgDeposit{}
	_ sdk.Msg = &MsgRequestWithdrawal{}
	_ sdk.Msg = &MsgProcessWithdrawal{}
	_ sdk.Msg = &MsgRecordExposure{}
	_ sdk.Msg = &MsgAdvanceEpoch{}
	_ sdk.Msg = &MsgUpdateUtilizationCap{}
)
