package core

import (
	"github.com/gofrs/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type (
	// Position is one principal's collateral/debt record. Fungible and
	// semi-fungible vaults key positions by owner; the unique-asset vault
	// keys them by token id and carries the owner here.
	Position struct {
		Owner         uuid.UUID       `json:"owner"`
		Collateral    decimal.Decimal `json:"collateral"`
		DebtPrincipal decimal.Decimal `json:"debtPrincipal"`
		DebtPortion   decimal.Decimal `json:"debtPortion"`

		// Insurance fields, meaningful on the unique-asset vault only.
		Insured                 bool            `json:"insured"`
		Liquidator              uuid.UUID       `json:"liquidator"`
		LiquidatedAt            int64           `json:"liquidatedAt"`
		DebtAmountForRepurchase decimal.Decimal `json:"debtAmountForRepurchase"`
	}

	// PositionStore holds the positions of one vault plus the enumerable
	// holder set. Get returns gorm.ErrRecordNotFound for missing keys.
	// Enumeration order is insertion order, except that removals reorder
	// arbitrarily.
	PositionStore[K comparable] interface {
		Get(key K) (*Position, error)
		Upsert(key K, position *Position) error
		Delete(key K) error
		TotalHolders() []K
		TotalHoldersLength() int
		ForEach(fn func(key K, position *Position) bool)
	}
)

func NewPosition(owner uuid.UUID) *Position {
	return &Position{
		Owner:                   owner,
		Collateral:              decimal.Zero,
		DebtPrincipal:           decimal.Zero,
		DebtPortion:             decimal.Zero,
		DebtAmountForRepurchase: decimal.Zero,
	}
}

func (p *Position) Clone() *Position {
	c := *p
	return &c
}

func (p *Position) IsLiquidated() bool {
	return p.Liquidator != uuid.Nil
}

func (p *Position) IsEmpty() bool {
	return p.Collateral.IsZero() && p.DebtPortion.IsZero()
}

// MemoryPositionStore keeps positions in a map plus a dense key array with
// a slot index, so holder add/remove are O(1) (swap-with-last removal) and
// enumeration is O(k) over active holders.
type MemoryPositionStore[K comparable] struct {
	positions map[K]*Position
	slots     map[K]int
	keys      []K
}

func NewMemoryPositionStore[K comparable]() *MemoryPositionStore[K] {
	return &MemoryPositionStore[K]{
		positions: make(map[K]*Position),
		slots:     make(map[K]int),
	}
}

func (s *MemoryPositionStore[K]) Get(key K) (*Position, error) {
	position, ok := s.positions[key]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return position, nil
}

func (s *MemoryPositionStore[K]) Upsert(key K, position *Position) error {
	if _, ok := s.positions[key]; !ok {
		s.slots[key] = len(s.keys)
		s.keys = append(s.keys, key)
	}
	s.positions[key] = position
	return nil
}

func (s *MemoryPositionStore[K]) Delete(key K) error {
	slot, ok := s.slots[key]
	if !ok {
		return gorm.ErrRecordNotFound
	}

	last := len(s.keys) - 1
	moved := s.keys[last]
	s.keys[slot] = moved
	s.slots[moved] = slot
	s.keys = s.keys[:last]

	delete(s.slots, key)
	delete(s.positions, key)
	return nil
}

func (s *MemoryPositionStore[K]) TotalHolders() []K {
	holders := make([]K, len(s.keys))
	copy(holders, s.keys)
	return holders
}

func (s *MemoryPositionStore[K]) TotalHoldersLength() int {
	return len(s.keys)
}

// ForEach visits every (key, position) pair; returning false stops the
// walk. The sequence is restartable: each call walks the current holder
// set from the start.
func (s *MemoryPositionStore[K]) ForEach(fn func(key K, position *Position) bool) {
	for _, key := range s.keys {
		if !fn(key, s.positions[key]) {
			return
		}
	}
}
