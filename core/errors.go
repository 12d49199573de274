package core

import "github.com/pkg/errors"

// Validation errors. Caller must correct the input and resubmit; no state
// change has occurred.
var (
	InvalidAmount   = errors.New("InvalidAmount")
	InvalidRate     = errors.New("InvalidRate")
	ZeroAddress     = errors.New("ZeroAddress")
	MinBorrowAmount = errors.New("MinBorrowAmount")
	DebtCapReached  = errors.New("DebtCapReached")
	InvalidTokenId  = errors.New("InvalidTokenId")
)

// State-precondition errors. The operation is not applicable in the current
// state; caller must re-read state before retrying.
var (
	InvalidPosition             = errors.New("InvalidPosition")
	NoDebt                      = errors.New("NoDebt")
	NonZeroDebt                 = errors.New("NonZeroDebt")
	InsufficientCollateral      = errors.New("InsufficientCollateral")
	InsufficientBalance         = errors.New("InsufficientBalance")
	PositionInsuranceExpired    = errors.New("PositionInsuranceExpired")
	PositionInsuranceNotExpired = errors.New("PositionInsuranceNotExpired")
	UnknownVault                = errors.New("UnknownVault")
	InvalidLength               = errors.New("InvalidLength")
)

// Authorization errors.
var (
	Unauthorized = errors.New("Unauthorized")
)
