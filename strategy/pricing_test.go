package strategy

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestFlatSpreadPricing(t *testing.T) {
	p, err := NewFlatSpreadPricing(d("0.01"), d("0.01"))
	require.NoError(t, err)

	ctx := PricingContext{Market: stubMarket(newStubConnector()), MidPrice: d("100")}
	got, err := p.PriceProposal(ctx)
	require.NoError(t, err)
	require.Len(t, got.BuyPrices, 1)
	require.Len(t, got.SellPrices, 1)
	assert.True(t, got.BuyPrices[0].Equal(d("99")), "bid=%s", got.BuyPrices[0])
	assert.True(t, got.SellPrices[0].Equal(d("101")), "ask=%s", got.SellPrices[0])
}

func TestFlatSpreadPricingRejectsBadSpread(t *testing.T) {
	_, err := NewFlatSpreadPricing(d("0"), d("0.01"))
	assert.Error(t, err)
	_, err = NewFlatSpreadPricing(d("1"), d("0.01"))
	assert.Error(t, err)
}

func TestGeometricLadderPricing(t *testing.T) {
	p, err := NewGeometricLadderPricing(d("0.01"), d("0.01"), 3, d("0.005"))
	require.NoError(t, err)

	ctx := PricingContext{Market: stubMarket(newStubConnector()), MidPrice: d("100")}
	got, err := p.PriceProposal(ctx)
	require.NoError(t, err)
	require.Len(t, got.BuyPrices, 3)

	// 99, 99*0.995, 99*0.995^2（量化到 0.0001）
	assert.True(t, got.BuyPrices[0].Equal(d("99")), "l0=%s", got.BuyPrices[0])
	assert.True(t, got.BuyPrices[1].Equal(d("98.505")), "l1=%s", got.BuyPrices[1])
	assert.True(t, got.BuyPrices[2].Equal(d("98.0124")), "l2=%s", got.BuyPrices[2])
	for i := 1; i < 3; i++ {
		assert.True(t, got.BuyPrices[i].LessThan(got.BuyPrices[i-1]), "bids must strictly decrease")
		assert.True(t, got.SellPrices[i].GreaterThan(got.SellPrices[i-1]), "asks must strictly increase")
	}
}

func TestGeometricLadderRejectsMissingInterval(t *testing.T) {
	_, err := NewGeometricLadderPricing(d("0.01"), d("0.01"), 3, d("0"))
	assert.Error(t, err)
}

func TestPricingRejectsBadMid(t *testing.T) {
	p, _ := NewFlatSpreadPricing(d("0.01"), d("0.01"))
	_, err := p.PriceProposal(PricingContext{Market: stubMarket(newStubConnector()), MidPrice: d("0")})
	assert.Error(t, err)
}
