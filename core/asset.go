package core

import (
	"github.com/gofrs/uuid"
	"github.com/shopspring/decimal"
)

type (
	// Stablecoin is the protocol-minted debt token, consumed through the
	// narrow mint/burn/transfer surface. Minter restrictions live in the
	// token itself and are outside this engine.
	Stablecoin interface {
		Mint(to uuid.UUID, amount decimal.Decimal) error
		Burn(from uuid.UUID, amount decimal.Decimal) error
		Transfer(from, to uuid.UUID, amount decimal.Decimal) error
		BalanceOf(owner uuid.UUID) decimal.Decimal
	}

	// FungibleAsset is a fungible collateral token balance.
	FungibleAsset interface {
		Transfer(from, to uuid.UUID, amount decimal.Decimal) error
		BalanceOf(owner uuid.UUID) decimal.Decimal
	}

	// UniqueAsset is a non-fungible collateral token.
	UniqueAsset interface {
		OwnerOf(tokenId uint64) (uuid.UUID, error)
		Transfer(from, to uuid.UUID, tokenId uint64) error
	}

	// SemiFungibleAsset is a per-id token balance.
	SemiFungibleAsset interface {
		Transfer(from, to uuid.UUID, tokenId uint64, amount decimal.Decimal) error
		BalanceOf(owner uuid.UUID, tokenId uint64) decimal.Decimal
	}

	// Auction receives custody of seized unique assets for disposal. Its
	// bidding/settlement protocol is out of scope.
	Auction interface {
		Id() uuid.UUID
		List(seller uuid.UUID, tokenId uint64) error
	}
)

// MemoryToken is an in-memory fungible token ledger. It satisfies both
// Stablecoin and FungibleAsset and backs the tests.
type MemoryToken struct {
	balances map[uuid.UUID]decimal.Decimal
}

func NewMemoryToken() *MemoryToken {
	return &MemoryToken{balances: make(map[uuid.UUID]decimal.Decimal)}
}

func (t *MemoryToken) BalanceOf(owner uuid.UUID) decimal.Decimal {
	if bal, ok := t.balances[owner]; ok {
		return bal
	}
	return decimal.Zero
}

func (t *MemoryToken) Mint(to uuid.UUID, amount decimal.Decimal) error {
	if amount.IsNegative() {
		return InvalidAmount
	}
	t.balances[to] = t.BalanceOf(to).Add(amount)
	return nil
}

func (t *MemoryToken) Burn(from uuid.UUID, amount decimal.Decimal) error {
	if amount.IsNegative() {
		return InvalidAmount
	}
	bal := t.BalanceOf(from)
	if bal.LessThan(amount) {
		return InsufficientBalance
	}
	t.balances[from] = bal.Sub(amount)
	return nil
}

func (t *MemoryToken) Transfer(from, to uuid.UUID, amount decimal.Decimal) error {
	if err := t.Burn(from, amount); err != nil {
		return err
	}
	return t.Mint(to, amount)
}

// MemoryAuction records listings without any bidding machinery.
type MemoryAuction struct {
	id       uuid.UUID
	listings map[uint64]uuid.UUID
}

func NewMemoryAuction(id uuid.UUID) *MemoryAuction {
	return &MemoryAuction{id: id, listings: make(map[uint64]uuid.UUID)}
}

func (a *MemoryAuction) Id() uuid.UUID {
	return a.id
}

func (a *MemoryAuction) List(seller uuid.UUID, tokenId uint64) error {
	a.listings[tokenId] = seller
	return nil
}

func (a *MemoryAuction) Listed(tokenId uint64) bool {
	_, ok := a.listings[tokenId]
	return ok
}

// MemoryNFT is an in-memory unique-asset registry.
type MemoryNFT struct {
	owners map[uint64]uuid.UUID
	nextId uint64
}

func NewMemoryNFT() *MemoryNFT {
	return &MemoryNFT{owners: make(map[uint64]uuid.UUID)}
}

func (n *MemoryNFT) Mint(to uuid.UUID) uint64 {
	n.nextId++
	n.owners[n.nextId] = to
	return n.nextId
}

func (n *MemoryNFT) OwnerOf(tokenId uint64) (uuid.UUID, error) {
	owner, ok := n.owners[tokenId]
	if !ok {
		return uuid.Nil, InvalidTokenId
	}
	return owner, nil
}

func (n *MemoryNFT) Transfer(from, to uuid.UUID, tokenId uint64) error {
	owner, err := n.OwnerOf(tokenId)
	if err != nil {
		return err
	}
	if owner != from {
		return Unauthorized
	}
	n.owners[tokenId] = to
	return nil
}

// MemoryMultiToken is an in-memory semi-fungible balance ledger.
type MemoryMultiToken struct {
	balances map[uuid.UUID]map[uint64]decimal.Decimal
}

func NewMemoryMultiToken() *MemoryMultiToken {
	return &MemoryMultiToken{balances: make(map[uuid.UUID]map[uint64]decimal.Decimal)}
}

func (t *MemoryMultiToken) BalanceOf(owner uuid.UUID, tokenId uint64) decimal.Decimal {
	if bal, ok := t.balances[owner][tokenId]; ok {
		return bal
	}
	return decimal.Zero
}

func (t *MemoryMultiToken) Mint(to uuid.UUID, tokenId uint64, amount decimal.Decimal) error {
	if amount.IsNegative() {
		return InvalidAmount
	}
	if t.balances[to] == nil {
		t.balances[to] = make(map[uint64]decimal.Decimal)
	}
	t.balances[to][tokenId] = t.BalanceOf(to, tokenId).Add(amount)
	return nil
}

func (t *MemoryMultiToken) Transfer(from, to uuid.UUID, tokenId uint64, amount decimal.Decimal) error {
	if amount.IsNegative() {
		return InvalidAmount
	}
	bal := t.BalanceOf(from, tokenId)
	if bal.LessThan(amount) {
		return InsufficientBalance
	}
	t.balances[from][tokenId] = bal.Sub(amount)
	return t.Mint(to, tokenId, amount)
}
