package core

import (
	"github.com/gofrs/uuid"
	"github.com/shopspring/decimal"
)

type (
	// PriceSource produces the value of one collateral unit in the
	// stablecoin's unit of account. For unique assets this is the floor
	// value of one token.
	PriceSource interface {
		Price() (decimal.Decimal, error)
	}

	// ValueProvider turns a position's collateral into credit and
	// liquidation limits. Implementations must be monotone in collateral
	// value and must not assume any particular collateral unit.
	ValueProvider interface {
		GetCreditLimit(owner uuid.UUID, collateral decimal.Decimal) (decimal.Decimal, error)
		GetLiquidationLimit(owner uuid.UUID, collateral decimal.Decimal) (decimal.Decimal, error)
		GetCreditLimitRate(owner uuid.UUID) Rate
		GetLiquidationLimitRate(owner uuid.UUID) Rate
	}
)

// StaticPriceSource is a settable price feed, used in tests and as the
// override hook for administrative price floors.
type StaticPriceSource struct {
	price decimal.Decimal
}

func NewStaticPriceSource(price decimal.Decimal) *StaticPriceSource {
	return &StaticPriceSource{price: price}
}

func (s *StaticPriceSource) SetPrice(price decimal.Decimal) {
	s.price = price
}

func (s *StaticPriceSource) Price() (decimal.Decimal, error) {
	return s.price, nil
}

// RateValueProvider prices collateral through a PriceSource and applies a
// fixed credit-limit rate and a (typically looser) liquidation-limit rate.
type RateValueProvider struct {
	source               PriceSource
	creditLimitRate      Rate
	liquidationLimitRate Rate
}

func NewRateValueProvider(source PriceSource, creditLimitRate, liquidationLimitRate Rate) (*RateValueProvider, error) {
	if err := creditLimitRate.Validate(); err != nil {
		return nil, err
	}
	if err := liquidationLimitRate.Validate(); err != nil {
		return nil, err
	}
	return &RateValueProvider{
		source:               source,
		creditLimitRate:      creditLimitRate,
		liquidationLimitRate: liquidationLimitRate,
	}, nil
}

func (p *RateValueProvider) collateralValue(collateral decimal.Decimal) (decimal.Decimal, error) {
	price, err := p.source.Price()
	if err != nil {
		return decimal.Zero, err
	}
	return collateral.Mul(price), nil
}

func (p *RateValueProvider) GetCreditLimit(owner uuid.UUID, collateral decimal.Decimal) (decimal.Decimal, error) {
	value, err := p.collateralValue(collateral)
	if err != nil {
		return decimal.Zero, err
	}
	return p.creditLimitRate.Apply(value), nil
}

func (p *RateValueProvider) GetLiquidationLimit(owner uuid.UUID, collateral decimal.Decimal) (decimal.Decimal, error) {
	value, err := p.collateralValue(collateral)
	if err != nil {
		return decimal.Zero, err
	}
	return p.liquidationLimitRate.Apply(value), nil
}

func (p *RateValueProvider) GetCreditLimitRate(owner uuid.UUID) Rate {
	return p.creditLimitRate
}

func (p *RateValueProvider) GetLiquidationLimitRate(owner uuid.UUID) Rate {
	return p.liquidationLimitRate
}
