package strategy

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"pmm-engine-go/exchange"
)

// PricingContext 定价所需的单 tick 快照。
type PricingContext struct {
	Market       exchange.MarketInfo
	MidPrice     decimal.Decimal
	ActiveOrders []exchange.LimitOrder
}

// PricingPolicy computes the bid/ask price ladders for one tick.
// Implementations must be deterministic and side-effect free.
type PricingPolicy interface {
	PriceProposal(ctx PricingContext) (PricingProposal, error)
}

var one = decimal.NewFromInt(1)

// FlatSpreadPricing quotes a single level at a fixed fractional distance
// from the mid price on each side.
type FlatSpreadPricing struct {
	BidSpread decimal.Decimal
	AskSpread decimal.Decimal
}

// NewFlatSpreadPricing 校验并构造单层定价。
func NewFlatSpreadPricing(bidSpread, askSpread decimal.Decimal) (*FlatSpreadPricing, error) {
	if bidSpread.Sign() <= 0 || askSpread.Sign() <= 0 {
		return nil, errors.New("bid/ask spread must be positive")
	}
	if bidSpread.GreaterThanOrEqual(one) {
		return nil, fmt.Errorf("bid spread %s >= 1", bidSpread)
	}
	return &FlatSpreadPricing{BidSpread: bidSpread, AskSpread: askSpread}, nil
}

func (p *FlatSpreadPricing) PriceProposal(ctx PricingContext) (PricingProposal, error) {
	if ctx.MidPrice.Sign() <= 0 {
		return PricingProposal{}, fmt.Errorf("invalid mid price %s", ctx.MidPrice)
	}
	c := ctx.Market.Connector
	pair := ctx.Market.TradingPair
	bid := c.QuantizePrice(pair, ctx.MidPrice.Mul(one.Sub(p.BidSpread)))
	ask := c.QuantizePrice(pair, ctx.MidPrice.Mul(one.Add(p.AskSpread)))
	return PricingProposal{
		BuyPrices:  []decimal.Decimal{bid},
		SellPrices: []decimal.Decimal{ask},
	}, nil
}

// GeometricLadderPricing quotes N levels per side. Level 0 sits at the base
// spread; each deeper level multiplies the previous price by (1∓interval).
type GeometricLadderPricing struct {
	BidSpread     decimal.Decimal
	AskSpread     decimal.Decimal
	Levels        int
	LevelInterval decimal.Decimal
}

// NewGeometricLadderPricing 校验并构造多层几何阶梯定价。
func NewGeometricLadderPricing(bidSpread, askSpread decimal.Decimal, levels int, levelInterval decimal.Decimal) (*GeometricLadderPricing, error) {
	if bidSpread.Sign() <= 0 || askSpread.Sign() <= 0 {
		return nil, errors.New("bid/ask spread must be positive")
	}
	if levels < 1 {
		return nil, fmt.Errorf("order levels %d < 1", levels)
	}
	if levels > 1 && levelInterval.Sign() <= 0 {
		return nil, errors.New("level interval must be positive for multi-level ladders")
	}
	if levelInterval.GreaterThanOrEqual(one) {
		return nil, fmt.Errorf("level interval %s >= 1", levelInterval)
	}
	return &GeometricLadderPricing{
		BidSpread:     bidSpread,
		AskSpread:     askSpread,
		Levels:        levels,
		LevelInterval: levelInterval,
	}, nil
}

func (p *GeometricLadderPricing) PriceProposal(ctx PricingContext) (PricingProposal, error) {
	if ctx.MidPrice.Sign() <= 0 {
		return PricingProposal{}, fmt.Errorf("invalid mid price %s", ctx.MidPrice)
	}
	c := ctx.Market.Connector
	pair := ctx.Market.TradingPair

	buys := make([]decimal.Decimal, 0, p.Levels)
	sells := make([]decimal.Decimal, 0, p.Levels)
	bid := ctx.MidPrice.Mul(one.Sub(p.BidSpread))
	ask := ctx.MidPrice.Mul(one.Add(p.AskSpread))
	for i := 0; i < p.Levels; i++ {
		if i > 0 {
			bid = bid.Mul(one.Sub(p.LevelInterval))
			ask = ask.Mul(one.Add(p.LevelInterval))
		}
		buys = append(buys, c.QuantizePrice(pair, bid))
		sells = append(sells, c.QuantizePrice(pair, ask))
	}
	return PricingProposal{BuyPrices: buys, SellPrices: sells}, nil
}
