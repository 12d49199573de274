package core

import (
	"github.com/gofrs/uuid"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

type (
	// LiquidatableVault is the settlement surface the liquidator drives.
	// The owner-keyed and token-keyed vaults both satisfy it.
	LiquidatableVault[K comparable] interface {
		Id() uuid.UUID
		AccruedOwedDebt(key K) (decimal.Decimal, error)
		IsLiquidatable(key K) (bool, error)
		Liquidate(caller uuid.UUID, key K, receiver uuid.UUID) (decimal.Decimal, error)
		HasPosition(key K) bool
	}

	// insuranceClaimer is the optional vault surface for reclaiming
	// insured collateral after the repurchase window lapses. Only the
	// token-keyed vault implements it.
	insuranceClaimer[K comparable] interface {
		ClaimExpiredInsuranceNFT(caller uuid.UUID, key K, to uuid.UUID) error
	}

	// VaultInfo describes one registry binding.
	VaultInfo struct {
		VaultId  uuid.UUID `json:"vaultId"`
		PoolId   uuid.UUID `json:"poolId"`
		Receiver uuid.UUID `json:"receiver"`
	}

	vaultBinding[K comparable] struct {
		vault    LiquidatableVault[K]
		pool     *StabilityPool
		receiver uuid.UUID
	}
)

// Liquidator settles liquidatable positions with liquidity drawn from a
// stability pool. Its own identity must hold the liquidator capability on
// both the vaults and the pools it is bound to. Drawn amounts are recorded
// per vault and key so auction or repurchase proceeds can be reconciled
// back to the pool later.
type Liquidator[K comparable] struct {
	id    uuid.UUID
	owner uuid.UUID
	log   Log

	// auction, when set, receives seized collateral that leaves vault
	// custody during liquidation. Otherwise the liquidator holds it.
	auction Auction

	vaults       map[uuid.UUID]vaultBinding[K]
	debtFromPool map[uuid.UUID]map[K]decimal.Decimal
}

func NewLiquidator[K comparable](id, owner uuid.UUID, log Log, auction Auction) (*Liquidator[K], error) {
	if id == uuid.Nil || owner == uuid.Nil {
		return nil, ZeroAddress
	}
	return &Liquidator[K]{
		id:           id,
		owner:        owner,
		log:          log,
		auction:      auction,
		vaults:       make(map[uuid.UUID]vaultBinding[K]),
		debtFromPool: make(map[uuid.UUID]map[K]decimal.Decimal),
	}, nil
}

func (l *Liquidator[K]) Id() uuid.UUID {
	return l.id
}

// AddVault binds a vault to the pool that funds its liquidations. Owner
// only.
func (l *Liquidator[K]) AddVault(caller uuid.UUID, vault LiquidatableVault[K], pool *StabilityPool) error {
	if caller != l.owner {
		return Unauthorized
	}
	if vault == nil || pool == nil {
		return ZeroAddress
	}

	receiver := l.id
	if l.auction != nil {
		receiver = l.auction.Id()
	}
	l.vaults[vault.Id()] = vaultBinding[K]{vault: vault, pool: pool, receiver: receiver}
	return nil
}

func (l *Liquidator[K]) RemoveVault(caller, vaultId uuid.UUID) error {
	if caller != l.owner {
		return Unauthorized
	}
	if _, ok := l.vaults[vaultId]; !ok {
		return UnknownVault
	}
	delete(l.vaults, vaultId)
	return nil
}

func (l *Liquidator[K]) Vaults() []VaultInfo {
	infos := make([]VaultInfo, 0, len(l.vaults))
	for id, binding := range l.vaults {
		infos = append(infos, VaultInfo{
			VaultId:  id,
			PoolId:   binding.pool.Id(),
			Receiver: binding.receiver,
		})
	}
	return infos
}

// DebtFromStabilityPool is the outstanding pool debt recorded for one
// position's liquidation.
func (l *Liquidator[K]) DebtFromStabilityPool(vaultId uuid.UUID, key K) decimal.Decimal {
	if owed, ok := l.debtFromPool[vaultId][key]; ok {
		return owed
	}
	return decimal.Zero
}

// Liquidate settles each key against the vault, funding every settlement
// from the bound pool. The draw and the settlement form one atomic step:
// a vault failure repays the draw before the error propagates. Seized
// collateral that leaves vault custody is listed on the auction when one
// is bound.
func (l *Liquidator[K]) Liquidate(keys []K, vaultId uuid.UUID) error {
	binding, ok := l.vaults[vaultId]
	if !ok {
		return UnknownVault
	}
	if len(keys) == 0 {
		return InvalidLength
	}

	for _, key := range keys {
		owed, err := binding.vault.AccruedOwedDebt(key)
		if err != nil {
			return err
		}
		if !owed.IsPositive() {
			return InvalidPosition
		}

		if err := binding.pool.FundLiquidation(l.id, l.id, owed); err != nil {
			return err
		}
		settled, err := binding.vault.Liquidate(l.id, key, binding.receiver)
		if err != nil {
			if _, repayErr := binding.pool.Repay(l.id, owed); repayErr != nil {
				return errors.Wrap(repayErr, err.Error())
			}
			return err
		}
		if excess := owed.Sub(settled); excess.IsPositive() {
			if _, err := binding.pool.Repay(l.id, excess); err != nil {
				return err
			}
			owed = settled
		}

		if l.debtFromPool[vaultId] == nil {
			l.debtFromPool[vaultId] = make(map[K]decimal.Decimal)
		}
		l.debtFromPool[vaultId][key] = l.DebtFromStabilityPool(vaultId, key).Add(owed)

		if l.auction != nil && !binding.vault.HasPosition(key) {
			if tokenId, isToken := any(key).(uint64); isToken {
				if err := l.auction.List(l.id, tokenId); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

// ClaimExpiredInsuranceNFT reclaims insured tokens whose repurchase
// window lapsed after a pool-funded liquidation. The liquidator is the
// recorded claimant on those positions, so this is the only path that can
// move them out of vault custody. Claimed tokens go to the auction
// receiver and are listed for disposal; the proceeds flow back through
// RepayFromLiquidation.
func (l *Liquidator[K]) ClaimExpiredInsuranceNFT(keys []K, vaultId uuid.UUID) error {
	binding, ok := l.vaults[vaultId]
	if !ok {
		return UnknownVault
	}
	if len(keys) == 0 {
		return InvalidLength
	}
	claimer, ok := binding.vault.(insuranceClaimer[K])
	if !ok {
		return InvalidPosition
	}

	for _, key := range keys {
		if err := claimer.ClaimExpiredInsuranceNFT(l.id, key, binding.receiver); err != nil {
			return err
		}
		if l.auction != nil {
			if tokenId, isToken := any(key).(uint64); isToken {
				if err := l.auction.List(l.id, tokenId); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

// RepayFromLiquidation forwards recovered proceeds to the pool, capped at
// the debt recorded for that position. Owner only.
func (l *Liquidator[K]) RepayFromLiquidation(caller, vaultId uuid.UUID, key K, amount decimal.Decimal) error {
	if caller != l.owner {
		return Unauthorized
	}
	binding, ok := l.vaults[vaultId]
	if !ok {
		return UnknownVault
	}
	if !amount.IsPositive() {
		return InvalidAmount
	}

	outstanding := l.DebtFromStabilityPool(vaultId, key)
	if outstanding.IsZero() {
		return NoDebt
	}

	accepted, err := binding.pool.Repay(l.id, decimal.Min(amount, outstanding))
	if err != nil {
		return err
	}
	l.debtFromPool[vaultId][key] = outstanding.Sub(accepted)
	return nil
}
