package core

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Rate is an exact fraction used for APRs, fees and limit ratios.
// Immutable, copied by value.
type Rate struct {
	Numerator   uint64 `json:"numerator"`
	Denominator uint64 `json:"denominator"`
}

func NewRate(numerator, denominator uint64) Rate {
	return Rate{Numerator: numerator, Denominator: denominator}
}

// Validate enforces the percentage-rate invariants: a non-zero denominator
// and a fraction no greater than one.
func (r Rate) Validate() error {
	if r.Denominator == 0 || r.Numerator > r.Denominator {
		return InvalidRate
	}
	return nil
}

func (r Rate) IsZero() bool {
	return r.Numerator == 0
}

func (r Rate) Decimal() decimal.Decimal {
	return decimal.NewFromUint64(r.Numerator).Div(decimal.NewFromUint64(r.Denominator))
}

// Apply computes floor(amount * numerator / denominator). The floor keeps
// fractional remainders on the protocol side, matching the integer
// base-unit semantics of the ledger.
func (r Rate) Apply(amount decimal.Decimal) decimal.Decimal {
	return amount.
		Mul(decimal.NewFromUint64(r.Numerator)).
		Div(decimal.NewFromUint64(r.Denominator)).
		Floor()
}

func (r Rate) String() string {
	return fmt.Sprintf("%d/%d", r.Numerator, r.Denominator)
}
