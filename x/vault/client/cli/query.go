package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cosmos/cosmos-sdk/client"
	"github.com/cosmos/cosmos-sdk/client/flags"
)

// GetQueryCmd returns the cli query commands for the vault module
func GetQueryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:                        "vault",
		Short:                      "Querying commands for the vault module",
		DisableFlagParsing:         true,
		SuggestionsMinimumDistance: 2,
		RunE:                       client.ValidateCmd,
	}

	cmd.AddCommand(
		CmdQueryVault(),
		CmdQueryVaults(),
		CmdQueryEpochStats(),
		CmdQueryWithdrawalRequest(),
		CmdQueryPendingWithdrawals(),
		CmdQueryFills(),
	)

	return cmd
}

// CmdQueryVault returns the command to query a vault
func CmdQueryVault() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show [asset-id]",
		Short: "Query a vault by asset ID",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Println("Vault query requires running node connection")
			fmt.Printf("Use REST API: GET /xvault/vault/v1/vaults/%s\n", args[0])
			return nil
		},
	}

	flags.AddQueryFlagsToCmd(cmd)
	return cmd
}

// CmdQueryVaults returns the command to query all vaults
func CmdQueryVaults() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "Query all vaults",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Println("Vault list query requires running node connection")
			fmt.Println("Use REST API: GET /xvault/vault/v1/vaults")
			return nil
		},
	}

	flags.AddQueryFlagsToCmd(cmd)
	return cmd
}

// CmdQueryEpochStats returns the command to query epoch telemetry
func CmdQueryEpochStats() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "epoch-stats [asset-id]",
		Short: "Query the current-epoch telemetry snapshot for a vault",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Println("Epoch stats query requires running node connection")
			fmt.Printf("Use REST API: GET /xvault/vault/v1/vaults/%s/epoch\n", args[0])
			return nil
		},
	}

	flags.AddQueryFlagsToCmd(cmd)
	return cmd
}

// CmdQueryWithdrawalRequest returns the command to query a user's request
func CmdQueryWithdrawalRequest() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "withdrawal [asset-id] [address]",
		Short: "Query a user's withdrawal request against a vault",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Println("Withdrawal query requires running node connection")
			fmt.Printf("Use REST API: GET /xvault/vault/v1/vaults/%s/withdrawals/%s\n", args[0], args[1])
			return nil
		},
	}

	flags.AddQueryFlagsToCmd(cmd)
	return cmd
}

// CmdQueryPendingWithdrawals returns the command to query the queue
func CmdQueryPendingWithdrawals() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pending [asset-id]",
		Short: "Query unsettled withdrawal requests for a vault",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Println("Pending withdrawals query requires running node connection")
			fmt.Printf("Use REST API: GET /xvault/vault/v1/vaults/%s/withdrawals\n", args[0])
			return nil
		},
	}

	flags.AddQueryFlagsToCmd(cmd)
	return cmd
}

// CmdQueryFills returns the command to query the fill audit trail
func CmdQueryFills() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fills [asset-id]",
		Short: "Query exposure fills recorded against a vault",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Println("Fills query requires running node connection")
			fmt.Printf("Use REST API: GET /xvault/vault/v1/vaults/%s/fills\n", args[0])
			return nil
		},
	}

	flags.AddQueryFlagsToCmd(cmd)
	return cmd
}
