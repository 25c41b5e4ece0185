package paper

import (
	"context"
	"math/rand"
	"time"

	"github.com/shopspring/decimal"
)

// Driver 模拟行情源：让纸面盘口围绕当前中间价做随机游走。
// 仅用于纸面模式，真实连接器由交易所行情流驱动。
type Driver struct {
	Exchange *Exchange
	Pair     string
	Interval time.Duration
	// VolPct 单步最大波动比例
	VolPct decimal.Decimal
	// HalfSpread 模拟盘口半价差比例
	HalfSpread decimal.Decimal

	rng *rand.Rand
}

// Start 启动游走循环，ctx 取消后退出。
func (d *Driver) Start(ctx context.Context) {
	if d.Interval <= 0 {
		d.Interval = 500 * time.Millisecond
	}
	if d.VolPct.Sign() <= 0 {
		d.VolPct = decimal.RequireFromString("0.0005")
	}
	if d.HalfSpread.Sign() <= 0 {
		d.HalfSpread = decimal.RequireFromString("0.0002")
	}
	if d.rng == nil {
		d.rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}

	go func() {
		ticker := time.NewTicker(d.Interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				d.step()
			}
		}
	}()
}

func (d *Driver) step() {
	bid, errBid := d.Exchange.BestPrice(d.Pair, true)
	ask, errAsk := d.Exchange.BestPrice(d.Pair, false)
	if errBid != nil || errAsk != nil {
		return
	}
	mid := bid.Add(ask).Div(decimal.NewFromInt(2))

	// [-1, 1) 的均匀扰动乘以单步波动率
	shock := decimal.NewFromFloat(d.rng.Float64()*2 - 1).Mul(d.VolPct)
	mid = mid.Mul(decimal.NewFromInt(1).Add(shock))
	if mid.Sign() <= 0 {
		return
	}

	half := mid.Mul(d.HalfSpread)
	newBid := d.Exchange.QuantizePrice(d.Pair, mid.Sub(half))
	newAsk := d.Exchange.QuantizePrice(d.Pair, mid.Add(half))
	if newBid.Sign() <= 0 || newAsk.LessThanOrEqual(newBid) {
		return
	}
	d.Exchange.SetBook(d.Pair, newBid, newAsk)
}
