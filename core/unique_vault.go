package core

import (
	"github.com/facebookgo/clock"
	"github.com/gofrs/uuid"
	"github.com/shopspring/decimal"
)

// UniqueVault lends against individual non-fungible tokens. Positions are
// keyed by token id and carry the depositor as Owner. Insured positions
// survive liquidation inside a repurchase window; uninsured ones leave
// custody immediately.
type UniqueVault struct {
	*baseVault

	collateral UniqueAsset
	provider   ValueProvider
	positions  PositionStore[uint64]
}

func NewUniqueVault(
	id uuid.UUID,
	clk clock.Clock,
	log Log,
	acl *AccessController,
	stablecoin Stablecoin,
	collateral UniqueAsset,
	provider ValueProvider,
	settings VaultSettings,
) (*UniqueVault, error) {
	base, err := newBaseVault(id, clk, log, acl, stablecoin, settings, true)
	if err != nil {
		return nil, err
	}
	return &UniqueVault{
		baseVault:  base,
		collateral: collateral,
		provider:   provider,
		positions:  NewMemoryPositionStore[uint64](),
	}, nil
}

// AddCollateral takes custody of the token and opens a position for its
// current owner. The insure flag is fixed for the position's lifetime.
func (v *UniqueVault) AddCollateral(from uuid.UUID, tokenId uint64, insure bool) error {
	owner, err := v.collateral.OwnerOf(tokenId)
	if err != nil {
		return err
	}
	if owner != from {
		return Unauthorized
	}
	if _, err := v.positions.Get(tokenId); err == nil {
		return InvalidPosition
	}
	v.accrue()

	if err := v.collateral.Transfer(from, v.id, tokenId); err != nil {
		return err
	}

	position := NewPosition(from)
	position.Collateral = ONE
	position.Insured = insure
	return v.positions.Upsert(tokenId, position)
}

func (v *UniqueVault) Borrow(caller uuid.UUID, tokenId uint64, amount decimal.Decimal) error {
	v.accrue()

	position, err := v.positions.Get(tokenId)
	if err != nil {
		return InvalidPosition
	}
	if position.IsLiquidated() {
		return InvalidPosition
	}
	if position.Owner != caller {
		return Unauthorized
	}

	creditLimit, err := v.provider.GetCreditLimit(caller, position.Collateral)
	if err != nil {
		return err
	}
	owed := v.ledger.OwedDebt(position.DebtPortion)
	if err := v.checkBorrow(amount, owed, creditLimit); err != nil {
		return err
	}

	shares, err := v.ledger.MintShares(amount)
	if err != nil {
		return err
	}
	position.DebtPortion = position.DebtPortion.Add(shares)
	position.DebtPrincipal = position.DebtPrincipal.Add(amount)
	if err := v.positions.Upsert(tokenId, position); err != nil {
		return err
	}

	net := v.cutBorrowFees(amount, position.Insured)
	if err := v.stablecoin.Mint(caller, net); err != nil {
		return err
	}

	v.log.Info().
		Str("vault", v.id.String()).
		Str("owner", caller.String()).
		Uint64("tokenId", tokenId).
		Str("amount", amount.String()).
		Msg("borrowed")
	return nil
}

func (v *UniqueVault) Repay(caller uuid.UUID, tokenId uint64, amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return InvalidAmount
	}
	v.accrue()

	position, err := v.positions.Get(tokenId)
	if err != nil {
		return InvalidPosition
	}
	if position.IsLiquidated() {
		return InvalidPosition
	}
	if position.Owner != caller {
		return Unauthorized
	}
	if v.ledger.OwedDebt(position.DebtPortion).IsZero() {
		return NoDebt
	}

	repaid, err := v.settleDebt(position, caller, amount)
	if err != nil {
		return err
	}
	if err := v.positions.Upsert(tokenId, position); err != nil {
		return err
	}

	v.log.Info().
		Str("vault", v.id.String()).
		Str("owner", caller.String()).
		Uint64("tokenId", tokenId).
		Str("amount", repaid.String()).
		Msg("repaid")
	return nil
}

// ClosePosition returns the token to its owner. The debt must be fully
// repaid first.
func (v *UniqueVault) ClosePosition(caller uuid.UUID, tokenId uint64) error {
	v.accrue()

	position, err := v.positions.Get(tokenId)
	if err != nil {
		return InvalidPosition
	}
	if position.IsLiquidated() {
		return InvalidPosition
	}
	if position.Owner != caller {
		return Unauthorized
	}
	if !position.DebtPortion.IsZero() {
		return NonZeroDebt
	}

	if err := v.positions.Delete(tokenId); err != nil {
		return err
	}
	return v.collateral.Transfer(v.id, caller, tokenId)
}

func (v *UniqueVault) IsLiquidatable(tokenId uint64) (bool, error) {
	v.accrue()

	position, err := v.positions.Get(tokenId)
	if err != nil {
		return false, nil
	}
	if position.IsLiquidated() {
		return false, nil
	}
	limit, err := v.provider.GetLiquidationLimit(position.Owner, position.Collateral)
	if err != nil {
		return false, err
	}
	return v.ledger.OwedDebt(position.DebtPortion).GreaterThan(limit), nil
}

// Liquidate settles the owed debt from the caller's balance. Uninsured
// tokens go to receiver immediately and the position is cleared. Insured
// tokens stay in custody with the repurchase amount, liquidator, and
// timestamp recorded, opening the insurance window.
func (v *UniqueVault) Liquidate(caller uuid.UUID, tokenId uint64, receiver uuid.UUID) (decimal.Decimal, error) {
	if err := v.acl.Require(RoleLiquidator, caller); err != nil {
		return decimal.Zero, err
	}

	liquidatable, err := v.IsLiquidatable(tokenId)
	if err != nil {
		return decimal.Zero, err
	}
	if !liquidatable {
		return decimal.Zero, InvalidPosition
	}
	position, err := v.positions.Get(tokenId)
	if err != nil {
		return decimal.Zero, InvalidPosition
	}

	owed := v.ledger.OwedDebt(position.DebtPortion)
	settled, err := v.settleDebt(position, caller, RepayAll)
	if err != nil {
		return decimal.Zero, err
	}

	if position.Insured {
		position.DebtAmountForRepurchase = owed.Add(v.settings.InsuranceLiquidationPenaltyRate.Apply(owed))
		position.Liquidator = caller
		position.LiquidatedAt = v.clk.Now().Unix()
		if err := v.positions.Upsert(tokenId, position); err != nil {
			return decimal.Zero, err
		}
	} else {
		if err := v.positions.Delete(tokenId); err != nil {
			return decimal.Zero, err
		}
		if err := v.collateral.Transfer(v.id, receiver, tokenId); err != nil {
			return decimal.Zero, err
		}
	}

	v.log.Info().
		Str("vault", v.id.String()).
		Uint64("tokenId", tokenId).
		Str("liquidator", caller.String()).
		Str("debt", settled.String()).
		Bool("insured", position.Insured).
		Msg("liquidated")
	return settled, nil
}

// Repurchase lets the original owner buy the token back during the
// insurance window. Partial payments reduce the outstanding repurchase
// amount; full payment returns the token and clears the record. Payments
// go to the recorded liquidator.
func (v *UniqueVault) Repurchase(caller uuid.UUID, tokenId uint64, repayAmount decimal.Decimal) error {
	position, err := v.positions.Get(tokenId)
	if err != nil {
		return InvalidPosition
	}
	if !position.IsLiquidated() || !position.Insured {
		return InvalidPosition
	}
	if position.Owner != caller {
		return Unauthorized
	}
	if v.clk.Now().Unix() > position.LiquidatedAt+v.settings.InsuranceRepurchaseTimeLimit {
		return PositionInsuranceExpired
	}
	if !repayAmount.IsPositive() {
		return InvalidAmount
	}

	payment := decimal.Min(repayAmount, position.DebtAmountForRepurchase)
	if v.stablecoin.BalanceOf(caller).LessThan(payment) {
		return InsufficientBalance
	}

	liquidator := position.Liquidator
	position.DebtAmountForRepurchase = position.DebtAmountForRepurchase.Sub(payment)
	cleared := position.DebtAmountForRepurchase.IsZero()
	if cleared {
		if err := v.positions.Delete(tokenId); err != nil {
			return err
		}
	} else if err := v.positions.Upsert(tokenId, position); err != nil {
		return err
	}

	if err := v.stablecoin.Transfer(caller, liquidator, payment); err != nil {
		return err
	}
	if cleared {
		if err := v.collateral.Transfer(v.id, caller, tokenId); err != nil {
			return err
		}
	}

	v.log.Info().
		Str("vault", v.id.String()).
		Uint64("tokenId", tokenId).
		Str("owner", caller.String()).
		Str("amount", payment.String()).
		Bool("cleared", cleared).
		Msg("repurchased")
	return nil
}

// ClaimExpiredInsuranceNFT releases a token whose insurance window has
// lapsed to the recorded liquidator, typically for auction disposal.
func (v *UniqueVault) ClaimExpiredInsuranceNFT(caller uuid.UUID, tokenId uint64, to uuid.UUID) error {
	position, err := v.positions.Get(tokenId)
	if err != nil {
		return InvalidPosition
	}
	if !position.IsLiquidated() || !position.Insured {
		return InvalidPosition
	}
	if position.Liquidator != caller {
		return Unauthorized
	}
	if v.clk.Now().Unix() <= position.LiquidatedAt+v.settings.InsuranceRepurchaseTimeLimit {
		return PositionInsuranceNotExpired
	}
	if to == uuid.Nil {
		return ZeroAddress
	}

	if err := v.positions.Delete(tokenId); err != nil {
		return err
	}
	return v.collateral.Transfer(v.id, to, tokenId)
}

// AccruedOwedDebt reports the cost of fully settling the position now,
// including interest the next accrual would add.
func (v *UniqueVault) AccruedOwedDebt(tokenId uint64) (decimal.Decimal, error) {
	position, err := v.positions.Get(tokenId)
	if err != nil {
		return decimal.Zero, InvalidPosition
	}
	ledger := v.projectedLedger()
	return ledger.OwedDebt(position.DebtPortion), nil
}

func (v *UniqueVault) PositionOwner(tokenId uint64) (uuid.UUID, error) {
	position, err := v.positions.Get(tokenId)
	if err != nil {
		return uuid.Nil, InvalidPosition
	}
	return position.Owner, nil
}

func (v *UniqueVault) PositionOf(tokenId uint64) (*Position, error) {
	position, err := v.positions.Get(tokenId)
	if err != nil {
		return nil, err
	}
	return position.Clone(), nil
}

func (v *UniqueVault) PositionInsured(tokenId uint64) (bool, error) {
	position, err := v.positions.Get(tokenId)
	if err != nil {
		return false, InvalidPosition
	}
	return position.Insured, nil
}

func (v *UniqueVault) GetCreditLimit(tokenId uint64) (decimal.Decimal, error) {
	position, err := v.positions.Get(tokenId)
	if err != nil {
		return decimal.Zero, InvalidPosition
	}
	return v.provider.GetCreditLimit(position.Owner, position.Collateral)
}

func (v *UniqueVault) GetDebtInterest(tokenId uint64) decimal.Decimal {
	position, err := v.positions.Get(tokenId)
	if err != nil {
		return decimal.Zero
	}
	ledger := v.projectedLedger()
	return decimal.Max(decimal.Zero, ledger.OwedDebt(position.DebtPortion).Sub(position.DebtPrincipal))
}

func (v *UniqueVault) HasPosition(tokenId uint64) bool {
	_, err := v.positions.Get(tokenId)
	return err == nil
}

func (v *UniqueVault) TotalHolders() []uint64 {
	return v.positions.TotalHolders()
}

func (v *UniqueVault) TotalHoldersLength() int {
	return v.positions.TotalHoldersLength()
}

func (v *UniqueVault) RescueToken(caller uuid.UUID, token FungibleAsset, to uuid.UUID, amount decimal.Decimal) error {
	return v.rescueToken(caller, token, v.collateral, to, amount)
}
