package strategy

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pmm-engine-go/exchange"
)

func TestPriceBandCeilingSuppressesBuys(t *testing.T) {
	p := PricingProposal{
		BuyPrices:  []decimal.Decimal{d("99")},
		SellPrices: []decimal.Decimal{d("101")},
	}
	got := ApplyPriceBand(p, d("106"), d("105"), d("0"))
	assert.Empty(t, got.BuyPrices)
	assert.Len(t, got.SellPrices, 1, "sell levels unaffected")
}

func TestPriceBandFloorSuppressesSells(t *testing.T) {
	p := PricingProposal{
		BuyPrices:  []decimal.Decimal{d("99")},
		SellPrices: []decimal.Decimal{d("101")},
	}
	got := ApplyPriceBand(p, d("94"), d("0"), d("95"))
	assert.Len(t, got.BuyPrices, 1)
	assert.Empty(t, got.SellPrices)
}

func TestPriceBandInsideBandNoop(t *testing.T) {
	p := PricingProposal{
		BuyPrices:  []decimal.Decimal{d("99")},
		SellPrices: []decimal.Decimal{d("101")},
	}
	got := ApplyPriceBand(p, d("100"), d("105"), d("95"))
	assert.Len(t, got.BuyPrices, 1)
	assert.Len(t, got.SellPrices, 1)
}

func TestTransactionCostsShiftPricesOutward(t *testing.T) {
	c := newStubConnector()
	c.feePct = d("0.001")
	ctx := PricingContext{Market: stubMarket(c), MidPrice: d("100")}
	p := PricingProposal{
		BuyPrices:  []decimal.Decimal{d("99")},
		SellPrices: []decimal.Decimal{d("101")},
	}
	sizes := SizingProposal{BuySizes: []decimal.Decimal{d("1")}, SellSizes: []decimal.Decimal{d("1")}}
	got := ApplyTransactionCosts(ctx, p, sizes, exchange.OrderTypeLimit)
	assert.True(t, got.BuyPrices[0].Equal(d("98.901")), "bid=%s", got.BuyPrices[0])
	assert.True(t, got.SellPrices[0].Equal(d("101.101")), "ask=%s", got.SellPrices[0])
}

func TestOrderOptimizationTightensTowardBook(t *testing.T) {
	c := newStubConnector()
	// 盘口远比基础价差宽：深度探测到 97.0 / 103.0
	c.depthBid = d("97")
	c.depthAsk = d("103")
	ctx := PricingContext{Market: stubMarket(c), MidPrice: d("100")}
	p := PricingProposal{
		BuyPrices:  []decimal.Decimal{d("99")},
		SellPrices: []decimal.Decimal{d("101")},
	}
	sizes := SizingProposal{BuySizes: []decimal.Decimal{d("1")}, SellSizes: []decimal.Decimal{d("1")}}
	got, err := ApplyOrderOptimization(ctx, p, sizes, OptimizationConfig{BidDepth: d("0"), AskDepth: d("0")})
	require.NoError(t, err)
	// 比深度价好一个 tick
	assert.True(t, got.BuyPrices[0].Equal(d("97.0001")), "bid=%s", got.BuyPrices[0])
	assert.True(t, got.SellPrices[0].Equal(d("102.9999")), "ask=%s", got.SellPrices[0])
}

func TestOrderOptimizationNeverBeatsBaseSpread(t *testing.T) {
	c := newStubConnector()
	// 深度价离 mid 很近：不允许比基础价差更激进
	c.depthBid = d("99.9")
	c.depthAsk = d("100.1")
	ctx := PricingContext{Market: stubMarket(c), MidPrice: d("100")}
	p := PricingProposal{
		BuyPrices:  []decimal.Decimal{d("99")},
		SellPrices: []decimal.Decimal{d("101")},
	}
	sizes := SizingProposal{BuySizes: []decimal.Decimal{d("1")}, SellSizes: []decimal.Decimal{d("1")}}
	got, err := ApplyOrderOptimization(ctx, p, sizes, OptimizationConfig{})
	require.NoError(t, err)
	assert.True(t, got.BuyPrices[0].Equal(d("99")), "bid=%s", got.BuyPrices[0])
	assert.True(t, got.SellPrices[0].Equal(d("101")), "ask=%s", got.SellPrices[0])
}

func TestOrderOptimizationNoSelfCross(t *testing.T) {
	c := newStubConnector()
	c.bestBid = d("99.5")
	c.bestAsk = d("100.5")
	// 深度价越过对手最优价
	c.depthBid = d("100.6")
	c.depthAsk = d("99.4")
	ctx := PricingContext{Market: stubMarket(c), MidPrice: d("100")}
	p := PricingProposal{
		BuyPrices:  []decimal.Decimal{d("101")},
		SellPrices: []decimal.Decimal{d("99")},
	}
	sizes := SizingProposal{BuySizes: []decimal.Decimal{d("1")}, SellSizes: []decimal.Decimal{d("1")}}
	got, err := ApplyOrderOptimization(ctx, p, sizes, OptimizationConfig{})
	require.NoError(t, err)
	assert.True(t, got.BuyPrices[0].LessThan(c.bestAsk), "optimized bid %s must stay below best ask", got.BuyPrices[0])
	assert.True(t, got.SellPrices[0].GreaterThan(c.bestBid), "optimized ask %s must stay above best bid", got.SellPrices[0])
}

func TestOrderOptimizationTakeIfCrossed(t *testing.T) {
	c := newStubConnector()
	c.bestBid = d("99.5")
	c.bestAsk = d("100.5")
	c.depthBid = d("100.6")
	c.depthAsk = d("99.4")
	ctx := PricingContext{Market: stubMarket(c), MidPrice: d("100")}
	p := PricingProposal{
		BuyPrices:  []decimal.Decimal{d("101")},
		SellPrices: []decimal.Decimal{d("99")},
	}
	sizes := SizingProposal{BuySizes: []decimal.Decimal{d("1")}, SellSizes: []decimal.Decimal{d("1")}}
	got, err := ApplyOrderOptimization(ctx, p, sizes, OptimizationConfig{TakeIfCrossed: true})
	require.NoError(t, err)
	// 允许穿越：保持深度价好一个 tick，不再被对手最优价压回
	assert.True(t, got.BuyPrices[0].Equal(d("100.6001")), "bid=%s", got.BuyPrices[0])
	assert.True(t, got.SellPrices[0].Equal(d("99.3999")), "ask=%s", got.SellPrices[0])
	assert.True(t, got.BuyPrices[0].GreaterThanOrEqual(c.bestAsk))
	assert.True(t, got.SellPrices[0].LessThanOrEqual(c.bestBid))
}

func TestOrderOptimizationSkipsMultiLevel(t *testing.T) {
	c := newStubConnector()
	ctx := PricingContext{Market: stubMarket(c), MidPrice: d("100")}
	p := PricingProposal{BuyPrices: []decimal.Decimal{d("99"), d("98")}}
	got, err := ApplyOrderOptimization(ctx, p, SizingProposal{}, OptimizationConfig{})
	require.NoError(t, err)
	assert.Equal(t, p, got)
}

func TestBudgetConstraintShrinksLastLevel(t *testing.T) {
	c := newStubConnector()
	c.step = d("1")
	c.balances["ETH"] = d("100") // quote
	ctx := PricingContext{Market: stubMarket(c), MidPrice: d("100")}
	pricing := PricingProposal{BuyPrices: []decimal.Decimal{d("50")}}
	sizing := SizingProposal{BuySizes: []decimal.Decimal{d("3")}}

	got := ApplyBudgetConstraint(ctx, pricing, sizing, BudgetConfig{ShrinkLastLevel: true})
	require.Len(t, got.BuySizes, 1)
	// 买不起 3×50=150，只能负担 100/50=2
	assert.True(t, got.BuySizes[0].Equal(d("2")), "size=%s", got.BuySizes[0])
}

func TestBudgetConstraintReservesQuoteFee(t *testing.T) {
	c := newStubConnector()
	c.step = d("0.1")
	c.feePct = d("0.1")
	c.balances["ETH"] = d("130")
	ctx := PricingContext{Market: stubMarket(c), MidPrice: d("100")}
	pricing := PricingProposal{BuyPrices: []decimal.Decimal{d("50")}}
	sizing := SizingProposal{BuySizes: []decimal.Decimal{d("3")}}

	got := ApplyBudgetConstraint(ctx, pricing, sizing, BudgetConfig{FeeInQuote: true, ShrinkLastLevel: true})
	require.Len(t, got.BuySizes, 1)
	// 名义之外预留手续费：可负担 130/1.1/50 ≈ 2.36，量化到 2.3
	// （不计费口径会给出 130/50 = 2.6）
	assert.True(t, got.BuySizes[0].Equal(d("2.3")), "size=%s", got.BuySizes[0])
}

func TestBudgetConstraintTruncates(t *testing.T) {
	c := newStubConnector()
	c.step = d("1")
	c.balances["ETH"] = d("120")
	ctx := PricingContext{Market: stubMarket(c), MidPrice: d("100")}
	pricing := PricingProposal{BuyPrices: []decimal.Decimal{d("50"), d("49"), d("48")}}
	sizing := SizingProposal{BuySizes: []decimal.Decimal{d("2"), d("2"), d("2")}}

	got := ApplyBudgetConstraint(ctx, pricing, sizing, BudgetConfig{})
	// 第一档 100 可负担；第二档需要 98 > 剩余 20，截断
	require.Len(t, got.BuySizes, 1)
	assert.True(t, got.BuySizes[0].Equal(d("2")))
}

func TestBudgetConstraintSellSide(t *testing.T) {
	c := newStubConnector()
	c.step = d("1")
	c.balances["HBOT"] = d("5") // base
	ctx := PricingContext{Market: stubMarket(c), MidPrice: d("100")}
	pricing := PricingProposal{SellPrices: []decimal.Decimal{d("101"), d("102")}}
	sizing := SizingProposal{SellSizes: []decimal.Decimal{d("3"), d("3")}}

	got := ApplyBudgetConstraint(ctx, pricing, sizing, BudgetConfig{ShrinkLastLevel: true})
	require.Len(t, got.SellSizes, 2)
	assert.True(t, got.SellSizes[0].Equal(d("3")))
	assert.True(t, got.SellSizes[1].Equal(d("2")), "second level shrunk to remaining base, got %s", got.SellSizes[1])
}

func TestResolveZeroFirstLevelKillsSide(t *testing.T) {
	pricing := PricingProposal{
		BuyPrices:  []decimal.Decimal{d("99"), d("98")},
		SellPrices: []decimal.Decimal{d("101")},
	}
	sizing := SizingProposal{
		BuySizes:  []decimal.Decimal{decimal.Zero, d("1")},
		SellSizes: []decimal.Decimal{d("1")},
	}
	got := Resolve(pricing, sizing, exchange.OrderTypeLimitMaker)
	assert.Empty(t, got.Buys, "zero size at index 0 suppresses the side")
	assert.Len(t, got.Sells, 1)
}
