package strategy

import (
	"fmt"

	"github.com/shopspring/decimal"

	"pmm-engine-go/exchange"
)

// 本文件实现引擎在 ApplyModifiers 阶段套用的各个提案修饰器。
// 所有修饰器都不改入参，返回修改后的副本。

// ApplyPriceBand suppresses quote levels outside the configured band:
// mid above the ceiling drops all buys for the tick, mid below the floor
// drops all sells. Existing orders are untouched. A zero bound disables
// that side of the band. Evaluated before sizing so downstream policies
// see the reduced ladder.
func ApplyPriceBand(p PricingProposal, mid, ceiling, floor decimal.Decimal) PricingProposal {
	out := p
	if ceiling.Sign() > 0 && mid.GreaterThan(ceiling) {
		out.BuyPrices = nil
	}
	if floor.Sign() > 0 && mid.LessThan(floor) {
		out.SellPrices = nil
	}
	return out
}

// ApplyTransactionCosts 将每档价格按该档手续费外移，使成交后仍能
// 净得目标价差：买价下移、卖价上移。
func ApplyTransactionCosts(ctx PricingContext, p PricingProposal, sizes SizingProposal, orderType exchange.OrderType) PricingProposal {
	c := ctx.Market.Connector
	m := ctx.Market
	out := PricingProposal{
		BuyPrices:  make([]decimal.Decimal, len(p.BuyPrices)),
		SellPrices: make([]decimal.Decimal, len(p.SellPrices)),
	}
	for i, price := range p.BuyPrices {
		amount := levelSize(sizes.BuySizes, i)
		fee := c.Fee(m.BaseAsset, m.QuoteAsset, orderType, exchange.SideBuy, amount, price)
		adj := price.Mul(one.Sub(fee.Percent))
		out.BuyPrices[i] = c.QuantizePrice(m.TradingPair, adj)
	}
	for i, price := range p.SellPrices {
		amount := levelSize(sizes.SellSizes, i)
		fee := c.Fee(m.BaseAsset, m.QuoteAsset, orderType, exchange.SideSell, amount, price)
		adj := price.Mul(one.Add(fee.Percent))
		out.SellPrices[i] = c.QuantizePrice(m.TradingPair, adj)
	}
	return out
}

func levelSize(sizes []decimal.Decimal, i int) decimal.Decimal {
	if i < len(sizes) {
		return sizes[i]
	}
	return decimal.Zero
}

// OptimizationConfig 盘口优化参数。
type OptimizationConfig struct {
	BidDepth      decimal.Decimal // 买边探测深度（base 数量）
	AskDepth      decimal.Decimal // 卖边探测深度
	TakeIfCrossed bool            // 允许吃单穿越对手价
}

// ApplyOrderOptimization tightens a single-level proposal toward the top of
// book: probe the depth price absorbing probeDepth+ownSize, then quote one
// quantum better than it. The optimized price never beats the base-spread
// price from the original proposal and never crosses the opposite best
// unless TakeIfCrossed is set. Multi-level ladders are returned unchanged.
func ApplyOrderOptimization(ctx PricingContext, p PricingProposal, sizes SizingProposal, cfg OptimizationConfig) (PricingProposal, error) {
	if len(p.BuyPrices) > 1 || len(p.SellPrices) > 1 {
		return p, nil
	}
	c := ctx.Market.Connector
	pair := ctx.Market.TradingPair
	out := p

	if len(p.BuyPrices) == 1 {
		ownSize := levelSize(sizes.BuySizes, 0)
		depthPrice, err := c.PriceForVolume(pair, true, cfg.BidDepth.Add(ownSize))
		if err != nil {
			return p, fmt.Errorf("bid depth probe: %w", err)
		}
		quantum := c.PriceQuantum(pair, depthPrice)
		optimized := depthPrice.Add(quantum)
		// 不允许优于基础价差对应的价格
		if optimized.GreaterThan(p.BuyPrices[0]) {
			optimized = p.BuyPrices[0]
		}
		if !cfg.TakeIfCrossed {
			if bestAsk, err := c.BestPrice(pair, false); err == nil && bestAsk.Sign() > 0 &&
				optimized.GreaterThanOrEqual(bestAsk) {
				optimized = bestAsk.Sub(c.PriceQuantum(pair, bestAsk))
			}
		}
		out.BuyPrices = []decimal.Decimal{c.QuantizePrice(pair, optimized)}
	}

	if len(p.SellPrices) == 1 {
		ownSize := levelSize(sizes.SellSizes, 0)
		depthPrice, err := c.PriceForVolume(pair, false, cfg.AskDepth.Add(ownSize))
		if err != nil {
			return p, fmt.Errorf("ask depth probe: %w", err)
		}
		quantum := c.PriceQuantum(pair, depthPrice)
		optimized := depthPrice.Sub(quantum)
		if optimized.LessThan(p.SellPrices[0]) {
			optimized = p.SellPrices[0]
		}
		if !cfg.TakeIfCrossed {
			if bestBid, err := c.BestPrice(pair, true); err == nil && bestBid.Sign() > 0 &&
				optimized.LessThanOrEqual(bestBid) {
				optimized = bestBid.Add(c.PriceQuantum(pair, bestBid))
			}
		}
		out.SellPrices = []decimal.Decimal{c.QuantizePrice(pair, optimized)}
	}
	return out, nil
}

// BudgetConfig 余额约束参数。
type BudgetConfig struct {
	// FeeInQuote：交易所以计价货币额外收取手续费（名义之外预留），
	// 否则按基础货币从数量中扣除。
	FeeInQuote bool
	// ShrinkLastLevel：余额不足时收缩最后一档而不是直接截断。
	ShrinkLastLevel bool
	OrderType       exchange.OrderType
}

// ApplyBudgetConstraint walks levels best→worst accumulating required quote
// (bids) and base (asks) and cuts the ladder once available balance runs
// out. With ShrinkLastLevel the first unaffordable level is resized to the
// remaining balance instead of dropped. Returned sizes are re-quantized;
// a first level that quantizes to zero kills the whole side.
func ApplyBudgetConstraint(ctx PricingContext, pricing PricingProposal, sizing SizingProposal, cfg BudgetConfig) SizingProposal {
	c := ctx.Market.Connector
	m := ctx.Market

	out := SizingProposal{}
	quoteLeft := c.AvailableBalance(m.QuoteAsset)
	baseLeft := c.AvailableBalance(m.BaseAsset)

	for i, price := range pricing.BuyPrices {
		size := levelSize(sizing.BuySizes, i)
		if size.Sign() <= 0 || price.Sign() <= 0 {
			out.BuySizes = append(out.BuySizes, decimal.Zero)
			continue
		}
		required := price.Mul(size)
		if cfg.FeeInQuote {
			fee := c.Fee(m.BaseAsset, m.QuoteAsset, cfg.OrderType, exchange.SideBuy, size, price)
			required = required.Mul(one.Add(fee.Percent))
		}
		if required.GreaterThan(quoteLeft) {
			if !cfg.ShrinkLastLevel {
				break
			}
			// 用剩余余额反推可负担的数量
			affordable := quoteLeft
			if cfg.FeeInQuote {
				fee := c.Fee(m.BaseAsset, m.QuoteAsset, cfg.OrderType, exchange.SideBuy, size, price)
				affordable = affordable.Div(one.Add(fee.Percent))
			}
			size = affordable.Div(price)
			size = c.QuantizeAmount(m.TradingPair, size, price)
			if size.Sign() > 0 {
				out.BuySizes = append(out.BuySizes, size)
			}
			break
		}
		quoteLeft = quoteLeft.Sub(required)
		out.BuySizes = append(out.BuySizes, c.QuantizeAmount(m.TradingPair, size, price))
	}

	for i, price := range pricing.SellPrices {
		size := levelSize(sizing.SellSizes, i)
		if size.Sign() <= 0 || price.Sign() <= 0 {
			out.SellSizes = append(out.SellSizes, decimal.Zero)
			continue
		}
		required := size
		if !cfg.FeeInQuote {
			// base 计费交易所从数量中扣除手续费
			fee := c.Fee(m.BaseAsset, m.QuoteAsset, cfg.OrderType, exchange.SideSell, size, price)
			required = required.Mul(one.Add(fee.Percent))
		}
		if required.GreaterThan(baseLeft) {
			if !cfg.ShrinkLastLevel {
				break
			}
			size = baseLeft
			if !cfg.FeeInQuote {
				fee := c.Fee(m.BaseAsset, m.QuoteAsset, cfg.OrderType, exchange.SideSell, size, price)
				size = size.Div(one.Add(fee.Percent))
			}
			size = c.QuantizeAmount(m.TradingPair, size, price)
			if size.Sign() > 0 {
				out.SellSizes = append(out.SellSizes, size)
			}
			break
		}
		baseLeft = baseLeft.Sub(required)
		out.SellSizes = append(out.SellSizes, c.QuantizeAmount(m.TradingPair, size, price))
	}
	return out
}
