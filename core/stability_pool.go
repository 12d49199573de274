package core

import (
	"github.com/gofrs/uuid"
	"github.com/shopspring/decimal"
)

// StabilityPool is a depositor-funded stablecoin buffer that fronts the
// cost of liquidations. Depositors hold shares of the pool's net asset
// value, Reserves + TotalDebt. Funding a liquidation moves reserves out
// and books the same amount as TotalDebt, so the NAV is unchanged but
// withdrawable liquidity shrinks pro-rata. Repayments convert debt back
// into reserves. All operations are O(1) in the depositor count.
type StabilityPool struct {
	id  uuid.UUID
	log Log

	acl        *AccessController
	stablecoin Stablecoin

	// maxDrawRate caps a single liquidation draw at a fraction of the
	// current reserves, leaving a withdrawal buffer.
	maxDrawRate Rate

	TotalShares decimal.Decimal `json:"totalShares"`
	Reserves    decimal.Decimal `json:"reserves"`
	TotalDebt   decimal.Decimal `json:"totalDebt"`

	shares map[uuid.UUID]decimal.Decimal
}

func NewStabilityPool(id uuid.UUID, log Log, acl *AccessController, stablecoin Stablecoin, maxDrawRate Rate) (*StabilityPool, error) {
	if id == uuid.Nil {
		return nil, ZeroAddress
	}
	if err := maxDrawRate.Validate(); err != nil {
		return nil, err
	}
	return &StabilityPool{
		id:          id,
		log:         log,
		acl:         acl,
		stablecoin:  stablecoin,
		maxDrawRate: maxDrawRate,
		TotalShares: decimal.Zero,
		Reserves:    decimal.Zero,
		TotalDebt:   decimal.Zero,
		shares:      make(map[uuid.UUID]decimal.Decimal),
	}, nil
}

func (p *StabilityPool) Id() uuid.UUID {
	return p.id
}

// nav is the pool's net asset value backing the outstanding shares.
func (p *StabilityPool) nav() decimal.Decimal {
	return p.Reserves.Add(p.TotalDebt)
}

func (p *StabilityPool) SharesOf(depositor uuid.UUID) decimal.Decimal {
	if s, ok := p.shares[depositor]; ok {
		return s
	}
	return decimal.Zero
}

// Withdrawable is the depositor's claim on current reserves: their share
// fraction of the liquid side only. Booked debt is excluded until repaid,
// which is how bad debt socializes pro-rata.
func (p *StabilityPool) Withdrawable(depositor uuid.UUID) decimal.Decimal {
	if p.TotalShares.IsZero() {
		return decimal.Zero
	}
	return p.SharesOf(depositor).Mul(p.Reserves).Div(p.TotalShares).Floor()
}

// Deposit transfers amount in and mints shares at the current NAV rate to
// onBehalfOf.
func (p *StabilityPool) Deposit(from uuid.UUID, amount decimal.Decimal, onBehalfOf uuid.UUID) error {
	if !amount.IsPositive() {
		return InvalidAmount
	}
	if onBehalfOf == uuid.Nil {
		return ZeroAddress
	}

	var minted decimal.Decimal
	if p.TotalShares.IsZero() || p.nav().IsZero() {
		minted = amount
	} else {
		minted = amount.Mul(p.TotalShares).Div(p.nav()).Floor()
	}
	if !minted.IsPositive() {
		return InvalidAmount
	}

	p.TotalShares = p.TotalShares.Add(minted)
	p.Reserves = p.Reserves.Add(amount)
	p.shares[onBehalfOf] = p.SharesOf(onBehalfOf).Add(minted)

	return p.stablecoin.Transfer(from, p.id, amount)
}

// Withdraw burns shares for amount of reserves. Fails with
// InsufficientBalance when amount exceeds the depositor's current
// entitlement.
func (p *StabilityPool) Withdraw(depositor uuid.UUID, amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return InvalidAmount
	}
	if amount.GreaterThan(p.Withdrawable(depositor)) {
		return InsufficientBalance
	}

	// Shares burn at the reserves rate so the remaining holders keep their
	// exact claim on both reserves and booked debt. The burn rounds up:
	// fractional share remainders stay on the pool side.
	burned := amount.Mul(p.TotalShares).Div(p.Reserves).Ceil()
	held := p.SharesOf(depositor)
	if burned.GreaterThan(held) {
		burned = held
	}

	p.TotalShares = p.TotalShares.Sub(burned)
	p.Reserves = p.Reserves.Sub(amount)
	remaining := held.Sub(burned)
	if remaining.IsZero() {
		delete(p.shares, depositor)
	} else {
		p.shares[depositor] = remaining
	}

	return p.stablecoin.Transfer(p.id, depositor, amount)
}

// MaxDraw is the largest single liquidation draw the pool currently
// allows.
func (p *StabilityPool) MaxDraw() decimal.Decimal {
	return p.maxDrawRate.Apply(p.Reserves)
}

// FundLiquidation moves amount of reserves to the liquidator and books it
// as debt owed back to the pool. Liquidator capability required.
func (p *StabilityPool) FundLiquidation(caller, to uuid.UUID, amount decimal.Decimal) error {
	if err := p.acl.Require(RoleLiquidator, caller); err != nil {
		return err
	}
	if !amount.IsPositive() {
		return InvalidAmount
	}
	if amount.GreaterThan(p.MaxDraw()) {
		return InsufficientBalance
	}

	p.Reserves = p.Reserves.Sub(amount)
	p.TotalDebt = p.TotalDebt.Add(amount)

	if err := p.stablecoin.Transfer(p.id, to, amount); err != nil {
		return err
	}
	p.log.Info().
		Str("pool", p.id.String()).
		Str("to", to.String()).
		Str("amount", amount.String()).
		Msg("liquidation funded")
	return nil
}

// Repay converts booked debt back into reserves, capped at the
// outstanding debt. Returns the amount actually accepted.
func (p *StabilityPool) Repay(from uuid.UUID, amount decimal.Decimal) (decimal.Decimal, error) {
	if !amount.IsPositive() {
		return decimal.Zero, InvalidAmount
	}

	accepted := decimal.Min(amount, p.TotalDebt)
	if accepted.IsZero() {
		return decimal.Zero, NoDebt
	}

	p.TotalDebt = p.TotalDebt.Sub(accepted)
	p.Reserves = p.Reserves.Add(accepted)

	if err := p.stablecoin.Transfer(from, p.id, accepted); err != nil {
		return decimal.Zero, err
	}
	return accepted, nil
}
