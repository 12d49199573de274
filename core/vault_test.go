package core

import (
	"testing"
	"time"

	"github.com/facebookgo/clock"
	"github.com/gofrs/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newId() uuid.UUID {
	return uuid.Must(uuid.NewV4())
}

func testLog() Log {
	nop := zerolog.Nop()
	return &nop
}

func amt(n int64) decimal.Decimal {
	return decimal.NewFromInt(n)
}

type vaultFixture struct {
	mock *clock.Mock

	admin    uuid.UUID
	alice    uuid.UUID
	bob      uuid.UUID
	lq       uuid.UUID
	treasury uuid.UUID

	acl        *AccessController
	stable     *MemoryToken
	collateral *MemoryToken
	price      *StaticPriceSource
	vault      *FungibleVault
}

// newVaultFixture wires a fungible vault with a 1% APR, 1% organization
// fee, 70% credit limit and 90% liquidation limit at a unit price.
func newVaultFixture(t *testing.T) *vaultFixture {
	t.Helper()

	f := &vaultFixture{
		mock:       clock.NewMock(),
		admin:      newId(),
		alice:      newId(),
		bob:        newId(),
		lq:         newId(),
		treasury:   newId(),
		stable:     NewMemoryToken(),
		collateral: NewMemoryToken(),
		price:      NewStaticPriceSource(amt(1)),
	}
	f.acl = NewAccessController(f.admin)
	require.NoError(t, f.acl.Grant(f.admin, RoleSetter, f.admin))
	require.NoError(t, f.acl.Grant(f.admin, RoleLiquidator, f.lq))

	provider, err := NewRateValueProvider(f.price, NewRate(70, 100), NewRate(90, 100))
	require.NoError(t, err)

	f.vault, err = NewFungibleVault(
		newId(), f.mock, testLog(), f.acl, f.stable, f.collateral, provider,
		VaultSettings{
			DebtInterestApr:     NewRate(1, 100),
			OrganizationFeeRate: NewRate(1, 100),
			BorrowAmountCap:     amt(1_000_000),
			MinBorrowAmount:     amt(1),
		},
	)
	require.NoError(t, err)
	return f
}

func (f *vaultFixture) fund(t *testing.T, owner uuid.UUID, collateral int64) {
	t.Helper()
	require.NoError(t, f.collateral.Mint(owner, amt(collateral)))
	require.NoError(t, f.vault.AddCollateral(owner, amt(collateral)))
}

func TestFungibleVaultBorrowScenario(t *testing.T) {
	f := newVaultFixture(t)
	f.fund(t, f.alice, 700)

	limit, err := f.vault.GetCreditLimit(f.alice)
	require.NoError(t, err)
	assert.True(t, amt(490).Equal(limit))

	// one unit above the credit limit
	assert.Equal(t, InvalidAmount, f.vault.Borrow(f.alice, amt(491)))

	// exactly at the limit
	require.NoError(t, f.vault.Borrow(f.alice, amt(490)))
	assert.True(t, amt(486).Equal(f.stable.BalanceOf(f.alice))) // 490 less 1% fee
	assert.True(t, amt(4).Equal(f.vault.TotalFeeCollected()))

	liquidatable, err := f.vault.IsLiquidatable(f.alice)
	require.NoError(t, err)
	assert.False(t, liquidatable)

	// collateral value collapses to an eighth
	f.price.SetPrice(amt(1).Div(amt(8)))
	liquidatable, err = f.vault.IsLiquidatable(f.alice)
	require.NoError(t, err)
	assert.True(t, liquidatable)

	require.NoError(t, f.stable.Mint(f.lq, amt(490)))
	settled, err := f.vault.Liquidate(f.lq, f.alice, f.lq)
	require.NoError(t, err)
	assert.True(t, amt(490).Equal(settled))
	assert.True(t, amt(700).Equal(f.collateral.BalanceOf(f.lq)))
	assert.True(t, f.stable.BalanceOf(f.lq).IsZero())
	assert.True(t, f.vault.TotalDebtAmount().IsZero())
	assert.Equal(t, 0, f.vault.TotalHoldersLength())
}

func TestFungibleVaultAddRemoveCollateral(t *testing.T) {
	f := newVaultFixture(t)

	assert.Equal(t, InvalidAmount, f.vault.AddCollateral(f.alice, amt(0)))
	assert.Equal(t, InvalidPosition, f.vault.RemoveCollateral(f.alice, amt(1)))

	f.fund(t, f.alice, 1000)
	assert.Equal(t, 1, f.vault.TotalHoldersLength())

	assert.Equal(t, InvalidAmount, f.vault.RemoveCollateral(f.alice, amt(0)))
	assert.Equal(t, InsufficientCollateral, f.vault.RemoveCollateral(f.alice, amt(1001)))

	require.NoError(t, f.vault.Borrow(f.alice, amt(500)))

	// 500 owed needs 715 collateral at a 70% limit; removing 300 leaves 700
	assert.Equal(t, InsufficientCollateral, f.vault.RemoveCollateral(f.alice, amt(300)))
	require.NoError(t, f.vault.RemoveCollateral(f.alice, amt(200)))
	assert.True(t, amt(200).Equal(f.collateral.BalanceOf(f.alice)))

	// fully repaid positions can withdraw everything and leave the set
	require.NoError(t, f.stable.Mint(f.alice, amt(500)))
	require.NoError(t, f.vault.Repay(f.alice, RepayAll))
	require.NoError(t, f.vault.RemoveCollateral(f.alice, amt(800)))
	assert.Equal(t, 0, f.vault.TotalHoldersLength())
	assert.True(t, amt(1000).Equal(f.collateral.BalanceOf(f.alice)))
}

func TestFungibleVaultBorrowErrors(t *testing.T) {
	f := newVaultFixture(t)
	f.fund(t, f.alice, 1000)

	assert.Equal(t, MinBorrowAmount, f.vault.Borrow(f.alice, amt(0)))

	require.NoError(t, f.vault.SetSettings(f.admin, VaultSettings{
		DebtInterestApr:     NewRate(1, 100),
		OrganizationFeeRate: NewRate(1, 100),
		BorrowAmountCap:     amt(100),
		MinBorrowAmount:     amt(10),
	}))
	assert.Equal(t, MinBorrowAmount, f.vault.Borrow(f.alice, amt(9)))
	assert.Equal(t, DebtCapReached, f.vault.Borrow(f.alice, amt(101)))

	// no collateral means a zero credit limit
	assert.Equal(t, InvalidAmount, f.vault.Borrow(f.bob, amt(50)))
}

func TestFungibleVaultRepay(t *testing.T) {
	f := newVaultFixture(t)
	f.fund(t, f.alice, 1000)

	assert.Equal(t, InvalidAmount, f.vault.Repay(f.alice, amt(0)))
	assert.Equal(t, InvalidPosition, f.vault.Repay(f.bob, amt(10)))
	assert.Equal(t, NoDebt, f.vault.Repay(f.alice, amt(10)))

	require.NoError(t, f.vault.Borrow(f.alice, amt(400)))
	mintedShares := f.vault.TotalDebtPortion()

	// partial repayment
	require.NoError(t, f.vault.Repay(f.alice, amt(100)))
	position, err := f.vault.PositionOf(f.alice)
	require.NoError(t, err)
	assert.True(t, amt(300).Equal(position.DebtPrincipal))

	// a caller short of stablecoin cannot repay
	drained := f.stable.BalanceOf(f.alice)
	require.NoError(t, f.stable.Burn(f.alice, drained))
	assert.Equal(t, InsufficientBalance, f.vault.Repay(f.alice, RepayAll))

	// the sentinel settles everything owed and burns all shares
	require.NoError(t, f.stable.Mint(f.alice, amt(300)))
	require.NoError(t, f.vault.Repay(f.alice, RepayAll))

	position, err = f.vault.PositionOf(f.alice)
	require.NoError(t, err)
	assert.True(t, position.DebtPortion.IsZero())
	assert.True(t, position.DebtPrincipal.IsZero())
	assert.True(t, f.vault.TotalDebtPortion().IsZero())
	assert.True(t, mintedShares.Sub(f.vault.TotalDebtPortion()).Equal(mintedShares))
}

func TestFungibleVaultInterestAccrual(t *testing.T) {
	f := newVaultFixture(t)
	f.fund(t, f.alice, 100000)

	require.NoError(t, f.vault.SetSettings(f.admin, VaultSettings{
		DebtInterestApr:     NewRate(10, 100),
		OrganizationFeeRate: NewRate(1, 100),
		BorrowAmountCap:     amt(1_000_000),
		MinBorrowAmount:     amt(1),
	}))
	require.NoError(t, f.vault.Borrow(f.alice, amt(10000)))

	assert.True(t, f.vault.CalculateAdditionalInterest().IsZero())
	assert.True(t, f.vault.GetDebtInterest(f.alice).IsZero())

	f.mock.Add(SECONDS_PER_YEAR * time.Second)

	// the preview and the per-position interest agree before any accrual
	pending := f.vault.CalculateAdditionalInterest()
	assert.True(t, amt(1000).Equal(pending))
	assert.True(t, pending.Equal(f.vault.GetDebtInterest(f.alice)))

	// owed debt is monotone across accrual points
	owedBefore, err := f.vault.AccruedOwedDebt(f.alice)
	require.NoError(t, err)
	f.mock.Add(SECONDS_PER_YEAR * time.Second)
	owedAfter, err := f.vault.AccruedOwedDebt(f.alice)
	require.NoError(t, err)
	assert.True(t, owedAfter.GreaterThan(owedBefore))

	// settling everything pays principal plus two years of interest
	require.NoError(t, f.stable.Mint(f.alice, amt(10000)))
	require.NoError(t, f.vault.Repay(f.alice, RepayAll))
	assert.True(t, f.vault.TotalDebtAmount().IsZero())

	// fees: 1% of 10000 at borrow plus the accrued interest
	require.NoError(t, f.vault.Collect(f.admin, f.treasury))
	assert.True(t, f.stable.BalanceOf(f.treasury).GreaterThan(amt(2000)))
	assert.True(t, f.vault.TotalFeeCollected().IsZero())
}

func TestFungibleVaultLiquidationBoundary(t *testing.T) {
	f := newVaultFixture(t)

	// dedicated vault where the credit and liquidation limits coincide, so
	// a position can sit exactly on the boundary
	provider, err := NewRateValueProvider(f.price, NewRate(90, 100), NewRate(90, 100))
	require.NoError(t, err)
	vault, err := NewFungibleVault(
		newId(), f.mock, testLog(), f.acl, f.stable, f.collateral, provider,
		VaultSettings{
			DebtInterestApr:     NewRate(1, 100),
			OrganizationFeeRate: NewRate(0, 100),
			BorrowAmountCap:     amt(1_000_000),
			MinBorrowAmount:     amt(1),
		},
	)
	require.NoError(t, err)

	require.NoError(t, f.collateral.Mint(f.alice, amt(10000)))
	require.NoError(t, vault.AddCollateral(f.alice, amt(10000)))
	require.NoError(t, vault.Borrow(f.alice, amt(9000)))

	// owed equals the liquidation limit: healthy
	liquidatable, err := vault.IsLiquidatable(f.alice)
	require.NoError(t, err)
	assert.False(t, liquidatable)
	_, err = vault.Liquidate(f.lq, f.alice, f.lq)
	assert.Equal(t, InvalidPosition, err)

	// one year of interest pushes it over
	f.mock.Add(SECONDS_PER_YEAR * time.Second)
	liquidatable, err = vault.IsLiquidatable(f.alice)
	require.NoError(t, err)
	assert.True(t, liquidatable)
}

func TestFungibleVaultLiquidateErrors(t *testing.T) {
	f := newVaultFixture(t)
	f.fund(t, f.alice, 700)
	require.NoError(t, f.vault.Borrow(f.alice, amt(490)))

	// healthy position
	_, err := f.vault.Liquidate(f.lq, f.alice, f.lq)
	assert.Equal(t, InvalidPosition, err)

	f.price.SetPrice(amt(1).Div(amt(8)))

	// missing capability
	_, err = f.vault.Liquidate(f.bob, f.alice, f.bob)
	assert.Equal(t, Unauthorized, err)

	// liquidator cannot cover the debt
	_, err = f.vault.Liquidate(f.lq, f.alice, f.lq)
	assert.Equal(t, InsufficientBalance, err)

	// unknown position
	require.NoError(t, f.stable.Mint(f.lq, amt(490)))
	_, err = f.vault.Liquidate(f.lq, f.bob, f.lq)
	assert.Equal(t, InvalidPosition, err)
}

func TestFungibleVaultShareConservation(t *testing.T) {
	f := newVaultFixture(t)
	f.fund(t, f.alice, 10000)
	f.fund(t, f.bob, 10000)

	require.NoError(t, f.vault.SetSettings(f.admin, VaultSettings{
		DebtInterestApr:     NewRate(10, 100),
		OrganizationFeeRate: NewRate(1, 100),
		BorrowAmountCap:     amt(1_000_000),
		MinBorrowAmount:     amt(1),
	}))
	require.NoError(t, f.vault.Borrow(f.alice, amt(1000)))
	require.NoError(t, f.vault.Borrow(f.bob, amt(500)))

	f.mock.Add(SECONDS_PER_YEAR * time.Second)
	_, err := f.vault.IsLiquidatable(f.alice) // forces an accrual
	require.NoError(t, err)

	sum := decimal.Zero
	for _, owner := range f.vault.TotalHolders() {
		position, err := f.vault.PositionOf(owner)
		require.NoError(t, err)
		sum = sum.Add(f.vault.ledger.OwedDebt(position.DebtPortion))
	}

	// within one rounding unit per position
	diff := f.vault.TotalDebtAmount().Sub(sum).Abs()
	assert.True(t, diff.LessThanOrEqual(amt(2)), "diff %s", diff)
}

func TestFungibleVaultSetSettings(t *testing.T) {
	f := newVaultFixture(t)
	valid := VaultSettings{
		DebtInterestApr:     NewRate(2, 100),
		OrganizationFeeRate: NewRate(1, 100),
		BorrowAmountCap:     amt(500),
		MinBorrowAmount:     amt(1),
	}

	assert.Equal(t, Unauthorized, f.vault.SetSettings(f.bob, valid))

	invalid := valid
	invalid.DebtInterestApr = NewRate(5, 0)
	assert.Equal(t, InvalidRate, f.vault.SetSettings(f.admin, invalid))
	// the old settings survive a failed update
	assert.True(t, amt(1_000_000).Equal(f.vault.Settings().BorrowAmountCap))

	require.NoError(t, f.vault.SetSettings(f.admin, valid))
	assert.True(t, amt(500).Equal(f.vault.Settings().BorrowAmountCap))
}

func TestFungibleVaultRescueToken(t *testing.T) {
	f := newVaultFixture(t)
	stray := NewMemoryToken()
	require.NoError(t, stray.Mint(f.vault.Id(), amt(50)))

	assert.Equal(t, Unauthorized, f.vault.RescueToken(f.bob, stray, f.bob, amt(50)))
	assert.Equal(t, InvalidAmount, f.vault.RescueToken(f.admin, f.collateral, f.treasury, amt(50)))

	require.NoError(t, f.vault.RescueToken(f.admin, stray, f.treasury, amt(50)))
	assert.True(t, amt(50).Equal(stray.BalanceOf(f.treasury)))
}

func TestSemiFungibleVault(t *testing.T) {
	f := newVaultFixture(t)
	multi := NewMemoryMultiToken()
	const seriesId uint64 = 7

	provider, err := NewRateValueProvider(f.price, NewRate(70, 100), NewRate(90, 100))
	require.NoError(t, err)
	vault, err := NewSemiFungibleVault(
		newId(), f.mock, testLog(), f.acl, f.stable, multi, seriesId, provider,
		VaultSettings{
			DebtInterestApr:     NewRate(1, 100),
			OrganizationFeeRate: NewRate(1, 100),
			BorrowAmountCap:     amt(1_000_000),
			MinBorrowAmount:     amt(1),
		},
	)
	require.NoError(t, err)
	assert.Equal(t, seriesId, vault.TokenId())

	require.NoError(t, multi.Mint(f.alice, seriesId, amt(700)))
	require.NoError(t, vault.AddCollateral(f.alice, amt(700)))
	assert.True(t, amt(700).Equal(multi.BalanceOf(vault.Id(), seriesId)))

	assert.Equal(t, InvalidAmount, vault.Borrow(f.alice, amt(491)))
	require.NoError(t, vault.Borrow(f.alice, amt(490)))
	assert.True(t, amt(486).Equal(f.stable.BalanceOf(f.alice)))

	f.price.SetPrice(amt(1).Div(amt(8)))
	require.NoError(t, f.stable.Mint(f.lq, amt(490)))
	settled, err := vault.Liquidate(f.lq, f.alice, f.lq)
	require.NoError(t, err)
	assert.True(t, amt(490).Equal(settled))
	assert.True(t, amt(700).Equal(multi.BalanceOf(f.lq, seriesId)))
}
