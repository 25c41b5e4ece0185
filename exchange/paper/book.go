package paper

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"
)

// Level 盘口中的一个价格档。
type Level struct {
	Price  decimal.Decimal
	Amount decimal.Decimal
}

// Book 维护价格->数量的深度簿。并发控制由持有它的 Exchange 负责。
type Book struct {
	bids map[string]Level // key 为价格字符串，保证 decimal 数值相等即同档
	asks map[string]Level
}

func newBook() *Book {
	return &Book{
		bids: make(map[string]Level),
		asks: make(map[string]Level),
	}
}

// ApplyDelta 应用增量更新，Amount 为 0 表示删除该档。
func (b *Book) ApplyDelta(bidDelta, askDelta []Level) {
	apply := func(side map[string]Level, delta []Level) {
		for _, lv := range delta {
			key := lv.Price.String()
			if lv.Amount.Sign() <= 0 {
				delete(side, key)
			} else {
				side[key] = lv
			}
		}
	}
	apply(b.bids, bidDelta)
	apply(b.asks, askDelta)
}

// Best 返回最优买/卖价；缺失一侧时返回零值。
func (b *Book) Best() (bestBid, bestAsk decimal.Decimal) {
	for _, lv := range b.bids {
		if lv.Price.GreaterThan(bestBid) {
			bestBid = lv.Price
		}
	}
	for _, lv := range b.asks {
		if bestAsk.IsZero() || lv.Price.LessThan(bestAsk) {
			bestAsk = lv.Price
		}
	}
	return bestBid, bestAsk
}

// PriceForVolume walks the levels best to worst and returns the price at
// which the cumulative size reaches volume. 深度不足时返回错误。
func (b *Book) PriceForVolume(isBuy bool, volume decimal.Decimal) (decimal.Decimal, error) {
	side := b.bids
	if !isBuy {
		side = b.asks
	}
	levels := make([]Level, 0, len(side))
	for _, lv := range side {
		levels = append(levels, lv)
	}
	if len(levels) == 0 {
		return decimal.Zero, fmt.Errorf("book side is empty")
	}
	sort.Slice(levels, func(i, j int) bool {
		if isBuy {
			return levels[i].Price.GreaterThan(levels[j].Price)
		}
		return levels[i].Price.LessThan(levels[j].Price)
	})

	if volume.Sign() <= 0 {
		return levels[0].Price, nil
	}
	cumulative := decimal.Zero
	for _, lv := range levels {
		cumulative = cumulative.Add(lv.Amount)
		if cumulative.GreaterThanOrEqual(volume) {
			return lv.Price, nil
		}
	}
	return decimal.Zero, fmt.Errorf("insufficient depth for volume %s", volume)
}
