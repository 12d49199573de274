package core

import (
	"math"

	"github.com/shopspring/decimal"
)

const (
	SECONDS_PER_YEAR = 31_536_000
)

var (
	ONE = decimal.NewFromInt(1)

	// RepayAll is the sentinel repay amount meaning "everything owed".
	// Any amount at or above the owed debt behaves the same way.
	RepayAll = decimal.NewFromUint64(math.MaxUint64)
)
