package core

import "github.com/shopspring/decimal"

// VaultSettings is the per-vault risk and fee configuration. The whole
// struct is replaced atomically by SetSettings; partial updates go through
// a read-modify-write on the caller side.
type VaultSettings struct {
	DebtInterestApr     Rate            `json:"debtInterestApr"`
	OrganizationFeeRate Rate            `json:"organizationFeeRate"`
	BorrowAmountCap     decimal.Decimal `json:"borrowAmountCap"`
	MinBorrowAmount     decimal.Decimal `json:"minBorrowAmount"`

	// Insurance settings, validated only on vaults that offer insurance.
	InsurancePurchaseRate           Rate  `json:"insurancePurchaseRate"`
	InsuranceLiquidationPenaltyRate Rate  `json:"insuranceLiquidationPenaltyRate"`
	InsuranceRepurchaseTimeLimit    int64 `json:"insuranceRepurchaseTimeLimit"`
}

// Validate rejects malformed rates up front so a bad settings update can
// never leave the vault computing with a zero denominator.
func (s VaultSettings) Validate(insured bool) error {
	if err := s.DebtInterestApr.Validate(); err != nil {
		return err
	}
	if err := s.OrganizationFeeRate.Validate(); err != nil {
		return err
	}
	if s.BorrowAmountCap.IsNegative() || s.MinBorrowAmount.IsNegative() {
		return InvalidAmount
	}

	if insured {
		if err := s.InsurancePurchaseRate.Validate(); err != nil {
			return err
		}
		if err := s.InsuranceLiquidationPenaltyRate.Validate(); err != nil {
			return err
		}
		if s.InsuranceRepurchaseTimeLimit < 0 {
			return InvalidAmount
		}
	}
	return nil
}
