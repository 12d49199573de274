package core

import (
	"github.com/facebookgo/clock"
	"github.com/gofrs/uuid"
	"github.com/shopspring/decimal"
)

// baseVault carries the state every vault variant shares: the debt ledger,
// settings, access control, the stablecoin handle, and the fee accumulator.
// The vault's own id doubles as its custody identity on external assets.
type baseVault struct {
	id  uuid.UUID
	clk clock.Clock
	log Log

	acl        *AccessController
	stablecoin Stablecoin
	settings   VaultSettings
	ledger     *DebtLedger

	totalFeeCollected decimal.Decimal
	insured           bool
}

func newBaseVault(id uuid.UUID, clk clock.Clock, log Log, acl *AccessController, stablecoin Stablecoin, settings VaultSettings, insured bool) (*baseVault, error) {
	if id == uuid.Nil {
		return nil, ZeroAddress
	}
	if err := settings.Validate(insured); err != nil {
		return nil, err
	}
	return &baseVault{
		id:                id,
		clk:               clk,
		log:               log,
		acl:               acl,
		stablecoin:        stablecoin,
		settings:          settings,
		ledger:            NewDebtLedger(clk),
		totalFeeCollected: decimal.Zero,
		insured:           insured,
	}, nil
}

func (v *baseVault) Id() uuid.UUID {
	return v.id
}

func (v *baseVault) Settings() VaultSettings {
	return v.settings
}

func (v *baseVault) TotalDebtAmount() decimal.Decimal {
	return v.ledger.TotalDebtAmount
}

func (v *baseVault) TotalDebtPortion() decimal.Decimal {
	return v.ledger.TotalDebtPortion
}

func (v *baseVault) TotalFeeCollected() decimal.Decimal {
	return v.totalFeeCollected
}

// accrue advances the ledger to now. Accrued interest is protocol revenue
// and lands in the fee accumulator, withdrawable through Collect.
func (v *baseVault) accrue() {
	interest := v.ledger.Accrue(v.settings.DebtInterestApr, v.clk.Now().Unix())
	if interest.IsPositive() {
		v.totalFeeCollected = v.totalFeeCollected.Add(interest)
	}
}

// CalculateAdditionalInterest previews the interest the next accrual would
// add, without mutating the ledger. Matches the sum of per-position owed
// deltas up to rounding.
func (v *baseVault) CalculateAdditionalInterest() decimal.Decimal {
	return v.ledger.PendingInterest(v.settings.DebtInterestApr, v.clk.Now().Unix())
}

// SetSettings replaces the vault configuration atomically. Setter
// capability required; a failed validation leaves the old settings intact.
func (v *baseVault) SetSettings(caller uuid.UUID, settings VaultSettings) error {
	if err := v.acl.Require(RoleSetter, caller); err != nil {
		return err
	}
	if err := settings.Validate(v.insured); err != nil {
		return err
	}
	v.accrue()
	v.settings = settings
	return nil
}

// Collect mints the accumulated fees to the given recipient. Admin only.
func (v *baseVault) Collect(caller, to uuid.UUID) error {
	if err := v.acl.Require(RoleAdmin, caller); err != nil {
		return err
	}
	if to == uuid.Nil {
		return ZeroAddress
	}

	v.accrue()
	amount := v.totalFeeCollected
	if !amount.IsPositive() {
		return nil
	}
	v.totalFeeCollected = decimal.Zero

	if err := v.stablecoin.Mint(to, amount); err != nil {
		return err
	}
	v.log.Info().
		Str("vault", v.id.String()).
		Str("amount", amount.String()).
		Msg("fees collected")
	return nil
}

// rescueToken recovers stray fungible tokens sent to the vault's custody
// identity. It refuses to touch the vault's own collateral.
func (v *baseVault) rescueToken(caller uuid.UUID, token FungibleAsset, collateral any, to uuid.UUID, amount decimal.Decimal) error {
	if err := v.acl.Require(RoleAdmin, caller); err != nil {
		return err
	}
	if token == collateral {
		return InvalidAmount
	}
	if to == uuid.Nil {
		return ZeroAddress
	}
	if !amount.IsPositive() {
		return InvalidAmount
	}
	return token.Transfer(v.id, to, amount)
}

// cutBorrowFees takes the organization fee (and the insurance premium for
// insured positions) out of a gross borrow amount. Fees accumulate in the
// vault; the net remainder is what gets minted to the borrower.
func (v *baseVault) cutBorrowFees(amount decimal.Decimal, insured bool) decimal.Decimal {
	fee := v.settings.OrganizationFeeRate.Apply(amount)
	if insured {
		fee = fee.Add(v.settings.InsurancePurchaseRate.Apply(amount))
	}
	v.totalFeeCollected = v.totalFeeCollected.Add(fee)
	return amount.Sub(fee)
}

// checkBorrow enforces the shared borrow preconditions in fixed order:
// minimum amount, debt cap, then the credit limit on the post-borrow debt.
func (v *baseVault) checkBorrow(amount, owed, creditLimit decimal.Decimal) error {
	if !amount.IsPositive() || amount.LessThan(v.settings.MinBorrowAmount) {
		return MinBorrowAmount
	}
	if v.ledger.TotalDebtAmount.Add(amount).GreaterThan(v.settings.BorrowAmountCap) {
		return DebtCapReached
	}
	if owed.Add(amount).GreaterThan(creditLimit) {
		return InvalidAmount
	}
	return nil
}

// settleDebt burns repayAmount worth of the position's debt against the
// caller's stablecoin balance. Ledger and position are updated before the
// external burn; the balance pre-check keeps the whole operation atomic.
// Returns the amount actually settled.
func (v *baseVault) settleDebt(position *Position, payer uuid.UUID, repayAmount decimal.Decimal) (decimal.Decimal, error) {
	owed := v.ledger.OwedDebt(position.DebtPortion)
	actualRepay := decimal.Min(repayAmount, owed)
	if v.stablecoin.BalanceOf(payer).LessThan(actualRepay) {
		return decimal.Zero, InsufficientBalance
	}

	actualRepay, sharesBurned := v.ledger.BurnShares(position.DebtPortion, repayAmount)
	position.DebtPortion = position.DebtPortion.Sub(sharesBurned)

	// Interest settles before principal.
	interest := decimal.Max(decimal.Zero, owed.Sub(position.DebtPrincipal))
	paidPrincipal := decimal.Max(decimal.Zero, actualRepay.Sub(interest))
	position.DebtPrincipal = decimal.Max(decimal.Zero, position.DebtPrincipal.Sub(paidPrincipal))

	if err := v.stablecoin.Burn(payer, actualRepay); err != nil {
		return decimal.Zero, err
	}
	return actualRepay, nil
}

// projectedLedger is the ledger as the next accrual would leave it. View
// methods compute on the projection so previews never drift from the
// amounts the mutating operations settle.
func (v *baseVault) projectedLedger() DebtLedger {
	ledger := *v.ledger
	ledger.TotalDebtAmount = ledger.TotalDebtAmount.Add(v.CalculateAdditionalInterest())
	return ledger
}

// collateralPort is the custody seam between the shared owner-keyed vault
// logic and the concrete collateral transfer mechanics.
type collateralPort interface {
	pullCollateral(from uuid.UUID, amount decimal.Decimal) error
	pushCollateral(to uuid.UUID, amount decimal.Decimal) error
}

// ownerVault is the owner-keyed vault machinery shared by the fungible and
// semi-fungible variants. The two differ only in their collateralPort.
type ownerVault struct {
	*baseVault

	provider  ValueProvider
	positions PositionStore[uuid.UUID]
	port      collateralPort
}

func newOwnerVault(base *baseVault, provider ValueProvider, port collateralPort) *ownerVault {
	return &ownerVault{
		baseVault: base,
		provider:  provider,
		positions: NewMemoryPositionStore[uuid.UUID](),
		port:      port,
	}
}

func (v *ownerVault) AddCollateral(from uuid.UUID, amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return InvalidAmount
	}
	v.accrue()

	if err := v.port.pullCollateral(from, amount); err != nil {
		return err
	}

	position, err := v.positions.Get(from)
	if err != nil {
		position = NewPosition(from)
	}
	position.Collateral = position.Collateral.Add(amount)
	return v.positions.Upsert(from, position)
}

func (v *ownerVault) RemoveCollateral(caller uuid.UUID, amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return InvalidAmount
	}
	v.accrue()

	position, err := v.positions.Get(caller)
	if err != nil {
		return InvalidPosition
	}
	if amount.GreaterThan(position.Collateral) {
		return InsufficientCollateral
	}

	remaining := position.Collateral.Sub(amount)
	if owed := v.ledger.OwedDebt(position.DebtPortion); owed.IsPositive() {
		creditLimit, err := v.provider.GetCreditLimit(caller, remaining)
		if err != nil {
			return err
		}
		if owed.GreaterThan(creditLimit) {
			return InsufficientCollateral
		}
	}

	position.Collateral = remaining
	if position.IsEmpty() {
		if err := v.positions.Delete(caller); err != nil {
			return err
		}
	} else if err := v.positions.Upsert(caller, position); err != nil {
		return err
	}

	return v.port.pushCollateral(caller, amount)
}

func (v *ownerVault) Borrow(caller uuid.UUID, amount decimal.Decimal) error {
	v.accrue()

	position, err := v.positions.Get(caller)
	if err != nil {
		position = NewPosition(caller)
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
	if err := v.positions.Upsert(caller, position); err != nil {
		return err
	}

	net := v.cutBorrowFees(amount, false)
	if err := v.stablecoin.Mint(caller, net); err != nil {
		return err
	}

	v.log.Info().
		Str("vault", v.id.String()).
		Str("owner", caller.String()).
		Str("amount", amount.String()).
		Msg("borrowed")
	return nil
}

func (v *ownerVault) Repay(caller uuid.UUID, amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return InvalidAmount
	}
	v.accrue()

	position, err := v.positions.Get(caller)
	if err != nil {
		return InvalidPosition
	}
	if v.ledger.OwedDebt(position.DebtPortion).IsZero() {
		return NoDebt
	}

	repaid, err := v.settleDebt(position, caller, amount)
	if err != nil {
		return err
	}
	if err := v.positions.Upsert(caller, position); err != nil {
		return err
	}

	v.log.Info().
		Str("vault", v.id.String()).
		Str("owner", caller.String()).
		Str("amount", repaid.String()).
		Msg("repaid")
	return nil
}

func (v *ownerVault) IsLiquidatable(owner uuid.UUID) (bool, error) {
	v.accrue()

	position, err := v.positions.Get(owner)
	if err != nil {
		return false, nil
	}
	limit, err := v.provider.GetLiquidationLimit(owner, position.Collateral)
	if err != nil {
		return false, err
	}
	return v.ledger.OwedDebt(position.DebtPortion).GreaterThan(limit), nil
}

// Liquidate settles the position's whole debt from the caller's stablecoin
// balance and hands its collateral to receiver. Returns the amount settled.
func (v *ownerVault) Liquidate(caller, owner, receiver uuid.UUID) (decimal.Decimal, error) {
	if err := v.acl.Require(RoleLiquidator, caller); err != nil {
		return decimal.Zero, err
	}

	liquidatable, err := v.IsLiquidatable(owner)
	if err != nil {
		return decimal.Zero, err
	}
	if !liquidatable {
		return decimal.Zero, InvalidPosition
	}
	position, err := v.positions.Get(owner)
	if err != nil {
		return decimal.Zero, InvalidPosition
	}

	settled, err := v.settleDebt(position, caller, RepayAll)
	if err != nil {
		return decimal.Zero, err
	}

	seized := position.Collateral
	position.Collateral = decimal.Zero
	if err := v.positions.Delete(owner); err != nil {
		return decimal.Zero, err
	}
	if err := v.port.pushCollateral(receiver, seized); err != nil {
		return decimal.Zero, err
	}

	v.log.Info().
		Str("vault", v.id.String()).
		Str("owner", owner.String()).
		Str("liquidator", caller.String()).
		Str("debt", settled.String()).
		Str("collateral", seized.String()).
		Msg("liquidated")
	return settled, nil
}

// AccruedOwedDebt reports what a full settlement of the position would cost
// right now, including interest the next accrual would add.
func (v *ownerVault) AccruedOwedDebt(owner uuid.UUID) (decimal.Decimal, error) {
	position, err := v.positions.Get(owner)
	if err != nil {
		return decimal.Zero, InvalidPosition
	}
	ledger := v.projectedLedger()
	return ledger.OwedDebt(position.DebtPortion), nil
}

func (v *ownerVault) GetCreditLimit(owner uuid.UUID) (decimal.Decimal, error) {
	collateral := decimal.Zero
	if position, err := v.positions.Get(owner); err == nil {
		collateral = position.Collateral
	}
	return v.provider.GetCreditLimit(owner, collateral)
}

// GetDebtInterest is the interest portion of the owed debt, projected to
// the current time.
func (v *ownerVault) GetDebtInterest(owner uuid.UUID) decimal.Decimal {
	position, err := v.positions.Get(owner)
	if err != nil {
		return decimal.Zero
	}
	ledger := v.projectedLedger()
	return decimal.Max(decimal.Zero, ledger.OwedDebt(position.DebtPortion).Sub(position.DebtPrincipal))
}

func (v *ownerVault) PositionOf(owner uuid.UUID) (*Position, error) {
	position, err := v.positions.Get(owner)
	if err != nil {
		return nil, err
	}
	return position.Clone(), nil
}

func (v *ownerVault) HasPosition(owner uuid.UUID) bool {
	_, err := v.positions.Get(owner)
	return err == nil
}

func (v *ownerVault) TotalHolders() []uuid.UUID {
	return v.positions.TotalHolders()
}

func (v *ownerVault) TotalHoldersLength() int {
	return v.positions.TotalHoldersLength()
}
