package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/cosmos/cosmos-sdk/client"
	"github.com/cosmos/cosmos-sdk/client/flags"
	"github.com/cosmos/cosmos-sdk/client/tx"

	"github.com/xstocklabs/xvault/x/vault/types"
)

// GetTxCmd returns the transaction commands for the vault module
func GetTxCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:                        "vault",
		Short:                      "Vault module transaction commands",
		DisableFlagParsing:         true,
		SuggestionsMinimumDistance: 2,
		RunE:                       client.ValidateCmd,
	}

	cmd.AddCommand(
		CmdCreateVault(),
		CmdDeposit(),
		CmdRequestWithdrawal(),
		CmdProcessWithdrawal(),
		CmdRecordExposure(),
		CmdAdvanceEpoch(),
		CmdUpdateCap(),
	)

	return cmd
}

// CmdCreateVault returns the command to register a new vault
func CmdCreateVault() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "create [asset-id] [underlying-denom] [cap-bps]",
		Short: "Create a vault for an asset; the signer becomes its authority",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			clientCtx, err := client.GetClientTxContext(cmd)
			if err != nil {
				return err
			}

			capBps, err := strconv.ParseUint(args[2], 10, 16)
			if err != nil {
				return fmt.Errorf("invalid cap bps: %v", err)
			}

			msg := &types.MsgCreateVault{
				Authority:         clientCtx.GetFromAddress().String(),
				AssetID:           args[0],
				UnderlyingDenom:   args[1],
				UtilizationCapBps: uint16(capBps),
			}

			return tx.GenerateOrBroadcastTxCLI(clientCtx, cmd.Flags(), msg)
		},
	}

	flags.AddTxFlagsToCmd(cmd)
	return cmd
}

// CmdDeposit returns the command to deposit into a vault
func CmdDeposit() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "deposit [asset-id] [amount]",
		Short: "Deposit underlying units into a vault for shares",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			clientCtx, err := client.GetClientTxContext(cmd)
			if err != nil {
				return err
			}

			amount, err := strconv.ParseUint(args[1], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid amount: %v", err)
			}

			msg := &types.MsgDeposit{
				Depositor: clientCtx.GetFromAddress().String(),
				AssetID:   args[0],
				Amount:    amount,
			}

			return tx.GenerateOrBroadcastTxCLI(clientCtx, cmd.Flags(), msg)
		},
	}

	flags.AddTxFlagsToCmd(cmd)
	return cmd
}

// CmdRequestWithdrawal returns the command to queue a withdrawal
func CmdRequestWithdrawal() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "request-withdrawal [asset-id] [shares]",
		Short: "Queue shares for redemption at a later epoch",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			clientCtx, err := client.GetClientTxContext(cmd)
			if err != nil {
				return err
			}

			shares, err := strconv.ParseUint(args[1], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid shares: %v", err)
			}

			msg := &types.MsgRequestWithdrawal{
				User:    clientCtx.GetFromAddress().String(),
				AssetID: args[0],
				Shares:  shares,
			}

			return tx.GenerateOrBroadcastTxCLI(clientCtx, cmd.Flags(), msg)
		},
	}

	flags.AddTxFlagsToCmd(cmd)
	return cmd
}

// CmdProcessWithdrawal returns the command to settle a queued withdrawal
func CmdProcessWithdrawal() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "process-withdrawal [asset-id]",
		Short: "Settle your queued withdrawal once its epoch has closed",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			clientCtx, err := client.GetClientTxContext(cmd)
			if err != nil {
				return err
			}

			msg := &types.MsgProcessWithdrawal{
				User:    clientCtx.GetFromAddress().String(),
				AssetID: args[0],
			}

			return tx.GenerateOrBroadcastTxCLI(clientCtx, cmd.Flags(), msg)
		},
	}

	flags.AddTxFlagsToCmd(cmd)
	return cmd
}

// CmdRecordExposure returns the command to report a strategy fill
func CmdRecordExposure() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "record-exposure [asset-id] [notional] [premium]",
		Short: "Record a strategy fill against the vault's epoch cap (operator only)",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			clientCtx, err := client.GetClientTxContext(cmd)
			if err != nil {
				return err
			}

			notional, err := strconv.ParseUint(args[1], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid notional: %v", err)
			}
			premium, err := strconv.ParseUint(args[2], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid premium: %v", err)
			}

			msg := &types.MsgRecordExposure{
				Operator: clientCtx.GetFromAddress().String(),
				AssetID:  args[0],
				Notional: notional,
				Premium:  premium,
			}

			return tx.GenerateOrBroadcastTxCLI(clientCtx, cmd.Flags(), msg)
		},
	}

	flags.AddTxFlagsToCmd(cmd)
	return cmd
}

// CmdAdvanceEpoch returns the command to close the current epoch
func CmdAdvanceEpoch() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "advance-epoch [asset-id] [premium-earned]",
		Short: "Close the current epoch, folding realized premium into the pool (operator only)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			clientCtx, err := client.GetClientTxContext(cmd)
			if err != nil {
				return err
			}

			premium, err := strconv.ParseUint(args[1], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid premium: %v", err)
			}

			msg := &types.MsgAdvanceEpoch{
				Operator:      clientCtx.GetFromAddress().String(),
				AssetID:       args[0],
				PremiumEarned: premium,
			}

			return tx.GenerateOrBroadcastTxCLI(clientCtx, cmd.Flags(), msg)
		},
	}

	flags.AddTxFlagsToCmd(cmd)
	return cmd
}

// CmdUpdateCap returns the command to change a vault's utilization cap
func CmdUpdateCap() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "update-cap [asset-id] [new-cap-bps]",
		Short: "Update the vault's utilization cap (authority only)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			clientCtx, err := client.GetClientTxContext(cmd)
			if err != nil {
				return err
			}

			capBps, err := strconv.ParseUint(args[1], 10, 16)
			if err != nil {
				return fmt.Errorf("invalid cap bps: %v", err)
			}

			msg := &types.MsgUpdateUtilizationCap{
				Authority: clientCtx.GetFromAddress().String(),
				AssetID:   args[0],
				NewCapBps: uint16(capBps),
			}

			return tx.GenerateOrBroadcastTxCLI(clientCtx, cmd.Flags(), msg)
		},
	}

	flags.AddTxFlagsToCmd(cmd)
	return cmd
}
