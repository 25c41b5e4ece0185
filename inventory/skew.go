package inventory

import "github.com/shopspring/decimal"

// BidAskRatios 买卖双边下单量的缩放系数。
// 不变量：Bid + Ask == 2，两者都在 [0, 2]；(1, 1) 表示不倾斜。
type BidAskRatios struct {
	Bid decimal.Decimal
	Ask decimal.Decimal
}

// Unskewed 返回中性系数 (1, 1)。
func Unskewed() BidAskRatios {
	return BidAskRatios{Bid: decimal.NewFromInt(1), Ask: decimal.NewFromInt(1)}
}

var (
	one = decimal.NewFromInt(1)
	two = decimal.NewFromInt(2)
)

// Ratios computes the bid/ask size multipliers that pull holdings toward
// targetBasePct of portfolio value. assetRange (base units) defines a band
// around the target amount where no skew is applied; outside the band the
// multipliers scale linearly and saturate at the portfolio extremes, so an
// all-base portfolio quotes bid=0/ask=2 and an all-quote portfolio the
// reverse. Pure function, safe to call every tick.
func Ratios(baseBalance, quoteBalance, midPrice, targetBasePct, assetRange decimal.Decimal) BidAskRatios {
	if midPrice.Sign() <= 0 {
		return Unskewed()
	}
	baseValue := baseBalance.Mul(midPrice)
	totalValue := baseValue.Add(quoteBalance)
	if totalValue.Sign() <= 0 {
		// 空仓位视为中性，保持 Bid+Ask==2 的不变量
		return Unskewed()
	}

	targetValue := totalValue.Mul(targetBasePct)
	rangeValue := assetRange.Mul(midPrice)
	if rangeValue.Sign() < 0 {
		rangeValue = decimal.Zero
	}

	lower := targetValue.Sub(rangeValue)
	if lower.Sign() < 0 {
		lower = decimal.Zero
	}
	upper := targetValue.Add(rangeValue)
	if upper.GreaterThan(totalValue) {
		upper = totalValue
	}

	bid := one
	switch {
	case baseValue.LessThan(lower):
		// 基础资产不足：线性放大买边，基础资产归零时饱和到 2
		t := lower.Sub(baseValue).Div(lower)
		bid = one.Add(t)
	case baseValue.GreaterThan(upper):
		// 基础资产过多：线性收缩买边，全仓基础资产时饱和到 0
		span := totalValue.Sub(upper)
		t := baseValue.Sub(upper).Div(span)
		bid = one.Sub(t)
	}

	if bid.Sign() < 0 {
		bid = decimal.Zero
	}
	if bid.GreaterThan(two) {
		bid = two
	}
	return BidAskRatios{Bid: bid, Ask: two.Sub(bid)}
}

// CurrentBasePct 返回基础资产占组合价值的比例；组合为空时返回 0。
func CurrentBasePct(baseBalance, quoteBalance, midPrice decimal.Decimal) decimal.Decimal {
	totalValue := baseBalance.Mul(midPrice).Add(quoteBalance)
	if totalValue.Sign() <= 0 {
		return decimal.Zero
	}
	return baseBalance.Mul(midPrice).Div(totalValue)
}
