package strategy

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// SizingMode 数量策略类型
type SizingMode string

const (
	SizingConstant      SizingMode = "constant"
	SizingInventorySkew SizingMode = "inventory_skew"
	SizingStaggered     SizingMode = "staggered"
)

// Params 策略构造参数（由配置层映射而来）。
type Params struct {
	BidSpread     decimal.Decimal
	AskSpread     decimal.Decimal
	OrderLevels   int
	LevelInterval decimal.Decimal

	Sizing          SizingMode
	OrderSize       decimal.Decimal
	OrderStepSize   decimal.Decimal // staggered 模式的档间增量
	TargetBasePct   decimal.Decimal
	RangeMultiplier decimal.Decimal

	QuoteStartAt time.Time // 零值表示不启用时间闸
}

// BuildPricing selects the pricing policy variant for the given params.
func BuildPricing(p Params) (PricingPolicy, error) {
	if p.OrderLevels <= 1 {
		return NewFlatSpreadPricing(p.BidSpread, p.AskSpread)
	}
	return NewGeometricLadderPricing(p.BidSpread, p.AskSpread, p.OrderLevels, p.LevelInterval)
}

// BuildSizing selects the sizing policy variant for the given params.
func BuildSizing(p Params) (SizingPolicy, error) {
	var base SizingPolicy
	var err error
	switch p.Sizing {
	case SizingStaggered:
		base, err = NewStaggeredSizing(p.OrderSize, p.OrderStepSize)
	case SizingConstant, SizingInventorySkew, "":
		base, err = NewConstantSizing(p.OrderSize)
	default:
		return nil, fmt.Errorf("unknown sizing mode %q", p.Sizing)
	}
	if err != nil {
		return nil, err
	}
	if p.Sizing == SizingInventorySkew {
		return NewInventorySkewedSizing(base, p.TargetBasePct, p.RangeMultiplier)
	}
	return base, nil
}

// BuildFilter selects the filter policy for the given params.
func BuildFilter(p Params) (FilterPolicy, error) {
	if !p.QuoteStartAt.IsZero() {
		return NotBefore{StartAt: p.QuoteStartAt}, nil
	}
	return AllowAll{}, nil
}
