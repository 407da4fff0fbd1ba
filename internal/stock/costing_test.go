package stock

import (
	"testing"

	"backend/internal/model"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComputeLandedCost(t *testing.T) {
	// USD 10 at 15000, duty 5%, freight 2% of local price, 1000 units
	in := CostInput{
		USDPrice:         decimal.NewFromInt(10),
		ExchangeRate:     decimal.NewFromInt(15000),
		DutyPercent:      decimal.NewFromInt(5),
		FreightAmount:    decimal.NewFromInt(2),
		FreightType:      model.ChargeTypePercentage,
		ImportedQuantity: 1000,
	}

	got, err := ComputeLandedCost(in)
	require.NoError(t, err)

	assert.True(t, got.LocalPrice.Equal(decimal.NewFromInt(150000)), "local price %s", got.LocalPrice)
	assert.True(t, got.Duty.Equal(decimal.NewFromInt(7500)), "duty %s", got.Duty)
	assert.True(t, got.Freight.Equal(decimal.NewFromInt(3000)), "freight %s", got.Freight)
	assert.True(t, got.LandedTotal.Equal(decimal.NewFromInt(160500)), "landed total %s", got.LandedTotal)
	assert.True(t, got.LandedPerUnit.Equal(decimal.NewFromFloat(160.5)), "landed per unit %s", got.LandedPerUnit)
	assert.True(t, got.ContainerPerUnit.IsZero())
}

func TestComputeLandedCostDeterministic(t *testing.T) {
	in := CostInput{
		USDPrice:         decimal.NewFromFloat(12.5),
		ExchangeRate:     decimal.NewFromInt(15500),
		DutyPercent:      decimal.NewFromFloat(7.5),
		FreightAmount:    decimal.NewFromInt(250000),
		FreightType:      model.ChargeTypeFixed,
		OtherAmount:      decimal.NewFromInt(1),
		OtherType:        model.ChargeTypePercentage,
		ImportedQuantity: 500,
	}

	a, err := ComputeLandedCost(in)
	require.NoError(t, err)
	b, err := ComputeLandedCost(in)
	require.NoError(t, err)

	assert.True(t, a.LandedPerUnit.Equal(b.LandedPerUnit))
}

func TestComputeLandedCostFixedCharges(t *testing.T) {
	in := CostInput{
		USDPrice:         decimal.NewFromInt(100),
		ExchangeRate:     decimal.NewFromInt(15000),
		FreightAmount:    decimal.NewFromInt(50000),
		FreightType:      model.ChargeTypeFixed,
		OtherAmount:      decimal.NewFromInt(10000),
		OtherType:        model.ChargeTypeFixed,
		ImportedQuantity: 10,
	}

	got, err := ComputeLandedCost(in)
	require.NoError(t, err)

	// 1,500,000 + 0 duty + 50,000 + 10,000 = 1,560,000 over 10 units
	assert.True(t, got.LandedTotal.Equal(decimal.NewFromInt(1560000)))
	assert.True(t, got.LandedPerUnit.Equal(decimal.NewFromInt(156000)))
}

func TestComputeLandedCostContainerOverhead(t *testing.T) {
	in := CostInput{
		USDPrice:               decimal.NewFromInt(10),
		ExchangeRate:           decimal.NewFromInt(15000),
		ImportedQuantity:       200,
		ContainerAllocatedCost: decimal.NewFromInt(30000),
	}

	got, err := ComputeLandedCost(in)
	require.NoError(t, err)

	// Container overhead is additive to and independent of landed cost.
	assert.True(t, got.ContainerPerUnit.Equal(decimal.NewFromInt(150)))
	assert.True(t, got.LandedPerUnit.Equal(decimal.NewFromInt(750)))
}

func TestComputeLandedCostZeroRate(t *testing.T) {
	in := CostInput{
		USDPrice:         decimal.NewFromInt(10),
		ExchangeRate:     decimal.Zero,
		ImportedQuantity: 100,
	}

	_, err := ComputeLandedCost(in)
	require.Error(t, err)
	var cfgErr *InvalidChargeConfigError
	assert.ErrorAs(t, err, &cfgErr)
}

func TestComputeLandedCostZeroQuantity(t *testing.T) {
	in := CostInput{
		USDPrice:         decimal.NewFromInt(10),
		ExchangeRate:     decimal.NewFromInt(15000),
		ImportedQuantity: 0,
	}

	_, err := ComputeLandedCost(in)
	var cfgErr *InvalidChargeConfigError
	assert.ErrorAs(t, err, &cfgErr)
}

func TestComputeLandedCostUnknownChargeType(t *testing.T) {
	in := CostInput{
		USDPrice:         decimal.NewFromInt(10),
		ExchangeRate:     decimal.NewFromInt(15000),
		FreightAmount:    decimal.NewFromInt(5),
		FreightType:      "SURCHARGE",
		ImportedQuantity: 100,
	}

	_, err := ComputeLandedCost(in)
	var cfgErr *InvalidChargeConfigError
	assert.ErrorAs(t, err, &cfgErr)
}

func TestSuggestedSalePrice(t *testing.T) {
	got := SuggestedSalePrice(decimal.NewFromInt(100))
	assert.True(t, got.Equal(decimal.NewFromInt(125)))
}
