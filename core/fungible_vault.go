package core

import (
	"github.com/facebookgo/clock"
	"github.com/gofrs/uuid"
	"github.com/shopspring/decimal"
)

// FungibleVault lends against a fungible token balance.
type FungibleVault struct {
	*ownerVault

	collateral FungibleAsset
}

func NewFungibleVault(
	id uuid.UUID,
	clk clock.Clock,
	log Log,
	acl *AccessController,
	stablecoin Stablecoin,
	collateral FungibleAsset,
	provider ValueProvider,
	settings VaultSettings,
) (*FungibleVault, error) {
	base, err := newBaseVault(id, clk, log, acl, stablecoin, settings, false)
	if err != nil {
		return nil, err
	}
	v := &FungibleVault{collateral: collateral}
	v.ownerVault = newOwnerVault(base, provider, v)
	return v, nil
}

func (v *FungibleVault) pullCollateral(from uuid.UUID, amount decimal.Decimal) error {
	return v.collateral.Transfer(from, v.id, amount)
}

func (v *FungibleVault) pushCollateral(to uuid.UUID, amount decimal.Decimal) error {
	return v.collateral.Transfer(v.id, to, amount)
}

func (v *FungibleVault) RescueToken(caller uuid.UUID, token FungibleAsset, to uuid.UUID, amount decimal.Decimal) error {
	return v.rescueToken(caller, token, v.collateral, to, amount)
}
