package strategy

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"pmm-engine-go/exchange"
	"pmm-engine-go/inventory"
)

// SizingContext 数量计算所需的单 tick 快照。余额在 tick 开始时取定，
// 策略内部只读。
type SizingContext struct {
	Market       exchange.MarketInfo
	MidPrice     decimal.Decimal
	Pricing      PricingProposal
	ActiveOrders []exchange.LimitOrder
}

// SizingPolicy computes the bid/ask size ladders, positionally aligned with
// the pricing proposal. The engine applies the mandatory budget clamp
// afterwards; policies only shape the raw ladder.
type SizingPolicy interface {
	SizeProposal(ctx SizingContext) (SizingProposal, error)
}

// ConstantSizing 每档相同数量。
type ConstantSizing struct {
	OrderSize decimal.Decimal
}

// NewConstantSizing 校验并构造恒定数量策略。
func NewConstantSizing(orderSize decimal.Decimal) (*ConstantSizing, error) {
	if orderSize.Sign() <= 0 {
		return nil, errors.New("order size must be positive")
	}
	return &ConstantSizing{OrderSize: orderSize}, nil
}

func (s *ConstantSizing) SizeProposal(ctx SizingContext) (SizingProposal, error) {
	return SizingProposal{
		BuySizes:  fill(len(ctx.Pricing.BuyPrices), s.OrderSize),
		SellSizes: fill(len(ctx.Pricing.SellPrices), s.OrderSize),
	}, nil
}

// StaggeredSizing 阶梯数量：第 i 档 = start + i*step。
type StaggeredSizing struct {
	StartSize decimal.Decimal
	StepSize  decimal.Decimal
}

// NewStaggeredSizing 校验并构造阶梯数量策略。step 可为零（退化为恒定）。
func NewStaggeredSizing(startSize, stepSize decimal.Decimal) (*StaggeredSizing, error) {
	if startSize.Sign() <= 0 {
		return nil, errors.New("start size must be positive")
	}
	if stepSize.Sign() < 0 {
		return nil, errors.New("step size must not be negative")
	}
	return &StaggeredSizing{StartSize: startSize, StepSize: stepSize}, nil
}

func (s *StaggeredSizing) SizeProposal(ctx SizingContext) (SizingProposal, error) {
	ladder := func(n int) []decimal.Decimal {
		out := make([]decimal.Decimal, n)
		for i := 0; i < n; i++ {
			out[i] = s.StartSize.Add(s.StepSize.Mul(decimal.NewFromInt(int64(i))))
		}
		return out
	}
	return SizingProposal{
		BuySizes:  ladder(len(ctx.Pricing.BuyPrices)),
		SellSizes: ladder(len(ctx.Pricing.SellPrices)),
	}, nil
}

// InventorySkewedSizing scales a base size ladder by the bid/ask ratios from
// the skew calculator, pulling holdings toward the target base percentage.
// The skew band is derived from the total proposed order size times
// RangeMultiplier, mirroring how depth scales with order count.
type InventorySkewedSizing struct {
	Inner           SizingPolicy    // 被倾斜的底层数量策略
	TargetBasePct   decimal.Decimal // 目标基础资产占比 [0,1]
	RangeMultiplier decimal.Decimal // 带宽 = 总下单量 × multiplier
}

// NewInventorySkewedSizing 校验并构造库存倾斜策略。
func NewInventorySkewedSizing(inner SizingPolicy, targetBasePct, rangeMultiplier decimal.Decimal) (*InventorySkewedSizing, error) {
	if inner == nil {
		return nil, errors.New("inner sizing policy required")
	}
	if targetBasePct.Sign() < 0 || targetBasePct.GreaterThan(decimal.NewFromInt(1)) {
		return nil, fmt.Errorf("target base pct %s outside [0,1]", targetBasePct)
	}
	if rangeMultiplier.Sign() < 0 {
		return nil, errors.New("range multiplier must not be negative")
	}
	return &InventorySkewedSizing{
		Inner:           inner,
		TargetBasePct:   targetBasePct,
		RangeMultiplier: rangeMultiplier,
	}, nil
}

func (s *InventorySkewedSizing) SizeProposal(ctx SizingContext) (SizingProposal, error) {
	raw, err := s.Inner.SizeProposal(ctx)
	if err != nil {
		return SizingProposal{}, err
	}
	if ctx.MidPrice.Sign() <= 0 {
		return raw, nil
	}

	total := decimal.Zero
	for _, sz := range raw.BuySizes {
		total = total.Add(sz)
	}
	for _, sz := range raw.SellSizes {
		total = total.Add(sz)
	}
	assetRange := total.Mul(s.RangeMultiplier)

	m := ctx.Market
	ratios := inventory.Ratios(
		m.BaseBalance(), m.QuoteBalance(), ctx.MidPrice, s.TargetBasePct, assetRange)

	out := SizingProposal{
		BuySizes:  make([]decimal.Decimal, len(raw.BuySizes)),
		SellSizes: make([]decimal.Decimal, len(raw.SellSizes)),
	}
	for i, sz := range raw.BuySizes {
		out.BuySizes[i] = sz.Mul(ratios.Bid)
	}
	for i, sz := range raw.SellSizes {
		out.SellSizes[i] = sz.Mul(ratios.Ask)
	}
	return out, nil
}

func fill(n int, v decimal.Decimal) []decimal.Decimal {
	out := make([]decimal.Decimal, n)
	for i := range out {
		out[i] = v
	}
	return out
}
