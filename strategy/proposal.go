package strategy

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"pmm-engine-go/exchange"
)

// PricingProposal 每个 tick 重新计算的买卖价格阶梯（由优到劣排序）。
type PricingProposal struct {
	BuyPrices  []decimal.Decimal
	SellPrices []decimal.Decimal
}

// SizingProposal 与 PricingProposal 按下标对齐的数量阶梯。
// 首档为零表示本 tick 该方向不挂单。
type SizingProposal struct {
	BuySizes  []decimal.Decimal
	SellSizes []decimal.Decimal
}

// PriceSize is one resolved level of an orders proposal.
type PriceSize struct {
	Price decimal.Decimal
	Size  decimal.Decimal
}

// OrdersProposal is the net decision for one tick: levels to create on each
// side plus order ids to cancel. Cancels are always executed before creates.
type OrdersProposal struct {
	Buys      []PriceSize
	Sells     []PriceSize
	OrderType exchange.OrderType
	CancelIDs []string
}

// HasCreations 是否包含任何挂单动作。
func (p OrdersProposal) HasCreations() bool {
	return len(p.Buys) > 0 || len(p.Sells) > 0
}

// Empty 是否为空提案（无挂单也无撤单）。
func (p OrdersProposal) Empty() bool {
	return !p.HasCreations() && len(p.CancelIDs) == 0
}

func (p OrdersProposal) String() string {
	var b strings.Builder
	b.WriteString("proposal{buys:[")
	for i, ps := range p.Buys {
		if i > 0 {
			b.WriteString(" ")
		}
		fmt.Fprintf(&b, "%s@%s", ps.Size, ps.Price)
	}
	b.WriteString("] sells:[")
	for i, ps := range p.Sells {
		if i > 0 {
			b.WriteString(" ")
		}
		fmt.Fprintf(&b, "%s@%s", ps.Size, ps.Price)
	}
	fmt.Fprintf(&b, "] cancels:%d}", len(p.CancelIDs))
	return b.String()
}

// Resolve 将对齐的价格/数量阶梯合并为最终提案，跳过数量为零的档位。
// 首档为零表示该方向整体熄火，后续档位一并丢弃。
func Resolve(pricing PricingProposal, sizing SizingProposal, orderType exchange.OrderType) OrdersProposal {
	out := OrdersProposal{OrderType: orderType}
	out.Buys = resolveSide(pricing.BuyPrices, sizing.BuySizes)
	out.Sells = resolveSide(pricing.SellPrices, sizing.SellSizes)
	return out
}

func resolveSide(prices, sizes []decimal.Decimal) []PriceSize {
	n := len(prices)
	if len(sizes) < n {
		n = len(sizes)
	}
	if n == 0 || sizes[0].Sign() <= 0 {
		return nil
	}
	out := make([]PriceSize, 0, n)
	for i := 0; i < n; i++ {
		if sizes[i].Sign() <= 0 || prices[i].Sign() <= 0 {
			continue
		}
		out = append(out, PriceSize{Price: prices[i], Size: sizes[i]})
	}
	return out
}
