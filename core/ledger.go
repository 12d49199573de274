package core

import (
	"github.com/facebookgo/clock"
	"github.com/shopspring/decimal"
)

// DebtLedger is the global interest-accrual index shared by every position
// in one vault. A position holds DebtPortion shares of TotalDebtPortion;
// its owed debt is its pro-rata slice of TotalDebtAmount. Accrual only
// grows TotalDebtAmount, so every outstanding share appreciates uniformly
// without touching individual positions.
type DebtLedger struct {
	TotalDebtAmount  decimal.Decimal `json:"totalDebtAmount"`
	TotalDebtPortion decimal.Decimal `json:"totalDebtPortion"`
	LastAccrual      int64           `json:"lastAccrual"`
}

func NewDebtLedger(clk clock.Clock) *DebtLedger {
	return &DebtLedger{
		TotalDebtAmount:  decimal.Zero,
		TotalDebtPortion: decimal.Zero,
		LastAccrual:      clk.Now().Unix(),
	}
}

// Accrue applies linear interest at apr for the time elapsed since the last
// accrual and returns the interest added. Divisions floor: fractional
// units of interest are dropped until enough time passes to mint a whole
// one. Callers must accrue before any read or mutation that depends on
// current debt.
func (l *DebtLedger) Accrue(apr Rate, now int64) decimal.Decimal {
	elapsed := now - l.LastAccrual
	if elapsed <= 0 {
		return decimal.Zero
	}
	l.LastAccrual = now

	if l.TotalDebtPortion.IsZero() || l.TotalDebtAmount.IsZero() {
		return decimal.Zero
	}

	interest := CalcInterest(l.TotalDebtAmount, apr, elapsed)
	l.TotalDebtAmount = l.TotalDebtAmount.Add(interest)
	return interest
}

// PendingInterest previews what Accrue would add at the given time without
// mutating the ledger.
func (l *DebtLedger) PendingInterest(apr Rate, now int64) decimal.Decimal {
	elapsed := now - l.LastAccrual
	if elapsed <= 0 || l.TotalDebtPortion.IsZero() || l.TotalDebtAmount.IsZero() {
		return decimal.Zero
	}
	return CalcInterest(l.TotalDebtAmount, apr, elapsed)
}

// OwedDebt converts a position's share of the debt pool into an amount at
// the current exchange rate, floored.
func (l *DebtLedger) OwedDebt(portion decimal.Decimal) decimal.Decimal {
	if l.TotalDebtPortion.IsZero() {
		return decimal.Zero
	}
	return portion.Mul(l.TotalDebtAmount).Div(l.TotalDebtPortion).Floor()
}

// MintShares records amount of new debt and returns the shares minted for
// it at the current exchange rate. Minting at the current rate leaves
// every existing holder's owed amount unchanged. Fails with
// MinBorrowAmount when the amount is too small to mint a whole share.
func (l *DebtLedger) MintShares(amount decimal.Decimal) (decimal.Decimal, error) {
	var shares decimal.Decimal
	if l.TotalDebtPortion.IsZero() || l.TotalDebtAmount.IsZero() {
		shares = amount
	} else {
		shares = amount.Mul(l.TotalDebtPortion).Div(l.TotalDebtAmount).Floor()
	}
	if !shares.IsPositive() {
		return decimal.Zero, MinBorrowAmount
	}

	l.TotalDebtAmount = l.TotalDebtAmount.Add(amount)
	l.TotalDebtPortion = l.TotalDebtPortion.Add(shares)
	return shares, nil
}

// BurnShares settles up to repayAmount against a position holding portion
// shares. It returns the amount actually repaid (capped at the owed debt)
// and the shares burned for it. A full repayment burns the entire portion
// so no dust share survives rounding.
func (l *DebtLedger) BurnShares(portion, repayAmount decimal.Decimal) (actualRepay, sharesBurned decimal.Decimal) {
	owed := l.OwedDebt(portion)
	if owed.IsZero() {
		return decimal.Zero, decimal.Zero
	}

	actualRepay = decimal.Min(repayAmount, owed)
	if actualRepay.Equal(owed) {
		sharesBurned = portion
	} else {
		sharesBurned = actualRepay.Mul(portion).Div(owed).Floor()
	}

	l.TotalDebtAmount = decimal.Max(decimal.Zero, l.TotalDebtAmount.Sub(actualRepay))
	l.TotalDebtPortion = decimal.Max(decimal.Zero, l.TotalDebtPortion.Sub(sharesBurned))
	return actualRepay, sharesBurned
}

// CalcInterest computes floor(principal * apr * elapsed / SECONDS_PER_YEAR).
func CalcInterest(principal decimal.Decimal, apr Rate, elapsedSeconds int64) decimal.Decimal {
	if elapsedSeconds <= 0 {
		return decimal.Zero
	}
	return principal.
		Mul(decimal.NewFromUint64(apr.Numerator)).
		Mul(decimal.NewFromInt(elapsedSeconds)).
		Div(decimal.NewFromUint64(apr.Denominator).Mul(decimal.NewFromInt(SECONDS_PER_YEAR))).
		Floor()
}
