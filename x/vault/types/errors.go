package types

import (
	"cosmossdk.io/errors"
)

// Module error codes
var (
	ErrInvalidInput          = errors.Register(ModuleName, 1, "invalid input")
	ErrZeroShares            = errors.Register(ModuleName, 2, "deposit rounds to zero shares")
	ErrInsufficientBalance   = errors.Register(ModuleName, 3, "insufficient share balance")
	ErrAlreadyProcessed      = errors.Register(ModuleName, 4, "withdrawal already processed")
	ErrEpochNotSettled       = errors.Register(ModuleName, 5, "epoch has not settled yet")
	ErrOverflow              = errors.Register(ModuleName, 6, "arithmetic overflow")
	ErrExceedsUtilizationCap = errors.Register(ModuleName, 7, "notional exposure exceeds utilization cap")
	ErrTransferFailed        = errors.Register(ModuleName, 8, "asset transfer failed")
	ErrVaultNotFound         = errors.Register(ModuleName, 9, "vault not found")
	ErrVaultAlreadyExists    = errors.Register(ModuleName, 10, "vault already exists")
	ErrRequestNotFound       = errors.Register(ModuleName, 11, "withdrawal request not found")
	ErrUnauthorized          = errors.Register(ModuleName, 12, "unauthorized")
	ErrInvalidCap            = errors.Register(ModuleName, 13, "utilization cap out of range")
)
