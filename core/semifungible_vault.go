package core

import (
	"github.com/facebookgo/clock"
	"github.com/gofrs/uuid"
	"github.com/shopspring/decimal"
)

// SemiFungibleVault lends against one token id of a semi-fungible asset.
// Each vault binds a single id; deploy one vault per accepted id.
type SemiFungibleVault struct {
	*ownerVault

	collateral SemiFungibleAsset
	tokenId    uint64
}

func NewSemiFungibleVault(
	id uuid.UUID,
	clk clock.Clock,
	log Log,
	acl *AccessController,
	stablecoin Stablecoin,
	collateral SemiFungibleAsset,
	tokenId uint64,
	provider ValueProvider,
	settings VaultSettings,
) (*SemiFungibleVault, error) {
	base, err := newBaseVault(id, clk, log, acl, stablecoin, settings, false)
	if err != nil {
		return nil, err
	}
	v := &SemiFungibleVault{collateral: collateral, tokenId: tokenId}
	v.ownerVault = newOwnerVault(base, provider, v)
	return v, nil
}

func (v *SemiFungibleVault) TokenId() uint64 {
	return v.tokenId
}

func (v *SemiFungibleVault) pullCollateral(from uuid.UUID, amount decimal.Decimal) error {
	return v.collateral.Transfer(from, v.id, v.tokenId, amount)
}

func (v *SemiFungibleVault) pushCollateral(to uuid.UUID, amount decimal.Decimal) error {
	return v.collateral.Transfer(v.id, to, v.tokenId, amount)
}

func (v *SemiFungibleVault) RescueToken(caller uuid.UUID, token FungibleAsset, to uuid.UUID, amount decimal.Decimal) error {
	return v.rescueToken(caller, token, v.collateral, to, amount)
}
