package engine

import (
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pmm-engine-go/exchange"
	"pmm-engine-go/infrastructure/logger"
	"pmm-engine-go/order"
	"pmm-engine-go/strategy"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

type submission struct {
	id    string
	side  exchange.Side
	price decimal.Decimal
	size  decimal.Decimal
}

// fakeConnector 记录下单/撤单请求，并通过带缓冲的事件通道回放回报。
type fakeConnector struct {
	bestBid, bestAsk decimal.Decimal
	balances         map[string]decimal.Decimal
	tick, step       decimal.Decimal
	ready            bool

	seq       int
	submitted []submission
	cancelled []string
	events    chan exchange.OrderEvent
}

func newFakeConnector() *fakeConnector {
	return &fakeConnector{
		bestBid: d("99.9"),
		bestAsk: d("100.1"),
		balances: map[string]decimal.Decimal{
			"HBOT": d("10"),
			"ETH":  d("1000"),
		},
		tick:   d("0.0001"),
		step:   d("0.0001"),
		ready:  true,
		events: make(chan exchange.OrderEvent, 32),
	}
}

func (f *fakeConnector) Name() string { return "fake" }
func (f *fakeConnector) Ready() bool  { return f.ready }
func (f *fakeConnector) NetworkStatus() exchange.NetworkStatus {
	if f.ready {
		return exchange.NetworkConnected
	}
	return exchange.NetworkNotConnected
}
func (f *fakeConnector) Events() <-chan exchange.OrderEvent      { return f.events }
func (f *fakeConnector) Balance(a string) decimal.Decimal        { return f.balances[a] }
func (f *fakeConnector) AvailableBalance(a string) decimal.Decimal {
	return f.balances[a]
}

func (f *fakeConnector) BestPrice(_ string, isBuy bool) (decimal.Decimal, error) {
	if isBuy {
		return f.bestBid, nil
	}
	return f.bestAsk, nil
}

func (f *fakeConnector) PriceForVolume(_ string, isBuy bool, _ decimal.Decimal) (decimal.Decimal, error) {
	if isBuy {
		return f.bestBid, nil
	}
	return f.bestAsk, nil
}

func (f *fakeConnector) QuantizePrice(_ string, p decimal.Decimal) decimal.Decimal {
	if p.Sign() <= 0 {
		return decimal.Zero
	}
	return p.Div(f.tick).Floor().Mul(f.tick)
}

func (f *fakeConnector) QuantizeAmount(_ string, a, _ decimal.Decimal) decimal.Decimal {
	if a.Sign() <= 0 {
		return decimal.Zero
	}
	return a.Div(f.step).Floor().Mul(f.step)
}

func (f *fakeConnector) PriceQuantum(_ string, _ decimal.Decimal) decimal.Decimal { return f.tick }

func (f *fakeConnector) Fee(_, _ string, _ exchange.OrderType, _ exchange.Side, _, _ decimal.Decimal) exchange.Fee {
	return exchange.Fee{Percent: decimal.Zero}
}

func (f *fakeConnector) SubmitBuy(_ string, amount, price decimal.Decimal, _ exchange.OrderType) (string, error) {
	f.seq++
	id := fmt.Sprintf("b%d", f.seq)
	f.submitted = append(f.submitted, submission{id: id, side: exchange.SideBuy, price: price, size: amount})
	return id, nil
}

func (f *fakeConnector) SubmitSell(_ string, amount, price decimal.Decimal, _ exchange.OrderType) (string, error) {
	f.seq++
	id := fmt.Sprintf("s%d", f.seq)
	f.submitted = append(f.submitted, submission{id: id, side: exchange.SideSell, price: price, size: amount})
	return id, nil
}

func (f *fakeConnector) Cancel(_, id string) error {
	f.cancelled = append(f.cancelled, id)
	return nil
}

func (f *fakeConnector) lastBySide(side exchange.Side) submission {
	for i := len(f.submitted) - 1; i >= 0; i-- {
		if f.submitted[i].side == side {
			return f.submitted[i]
		}
	}
	return submission{}
}

func setMid(f *fakeConnector, mid decimal.Decimal) {
	spread := d("0.1")
	f.bestBid = mid.Sub(spread)
	f.bestAsk = mid.Add(spread)
}

func newTestEngine(t *testing.T, cfg Config) (*Engine, *fakeConnector) {
	t.Helper()
	f := newFakeConnector()
	market, err := exchange.NewMarketInfo(f, "HBOT-ETH")
	require.NoError(t, err)

	pricing, err := strategy.NewFlatSpreadPricing(d("0.01"), d("0.01"))
	require.NoError(t, err)
	sizing, err := strategy.NewConstantSizing(d("1"))
	require.NoError(t, err)

	e, err := New(cfg, Components{
		Market:  market,
		Pricing: pricing,
		Sizing:  sizing,
		Tracker: order.NewTracker(0, 0),
		Logger:  logger.Nop(),
	})
	require.NoError(t, err)
	return e, f
}

var t0 = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func TestTickQuotesBothSides(t *testing.T) {
	e, f := newTestEngine(t, Config{
		OrderRefreshTime:    30 * time.Second,
		RefreshTolerancePct: d("-1"),
	})

	e.Tick(t0)

	require.Len(t, f.submitted, 2)
	buy := f.lastBySide(exchange.SideBuy)
	sell := f.lastBySide(exchange.SideSell)
	assert.True(t, buy.price.Equal(d("99")), "bid %s", buy.price)
	assert.True(t, sell.price.Equal(d("101")), "ask %s", sell.price)
	assert.True(t, buy.size.Equal(d("1")))
	assert.Equal(t, 2, e.tracker.ActiveCount(e.marketKey))
}

func TestNoStackingWhileOrdersAlive(t *testing.T) {
	e, f := newTestEngine(t, Config{
		OrderRefreshTime:    30 * time.Second,
		RefreshTolerancePct: d("-1"),
	})

	e.Tick(t0)
	e.Tick(t0.Add(time.Second))
	e.Tick(t0.Add(2 * time.Second))

	assert.Len(t, f.submitted, 2)
	assert.Empty(t, f.cancelled)
}

func TestRefreshCancelsAndRequotes(t *testing.T) {
	e, f := newTestEngine(t, Config{
		OrderRefreshTime:    30 * time.Second,
		RefreshTolerancePct: d("-1"), // 容忍度禁用：到点必撤
	})

	e.Tick(t0)
	require.Len(t, f.submitted, 2)

	setMid(f, d("110"))
	e.Tick(t0.Add(31 * time.Second))

	assert.Len(t, f.cancelled, 2)
	require.Len(t, f.submitted, 4)
	assert.True(t, f.lastBySide(exchange.SideBuy).price.Equal(d("108.9")))
	assert.True(t, f.lastBySide(exchange.SideSell).price.Equal(d("111.1")))
}

func TestRefreshToleranceDefers(t *testing.T) {
	e, f := newTestEngine(t, Config{
		OrderRefreshTime:    30 * time.Second,
		RefreshTolerancePct: d("0.05"),
	})

	e.Tick(t0)
	setMid(f, d("100.2")) // 提案价漂移约 0.2%，在 5% 容忍度内
	e.Tick(t0.Add(31 * time.Second))

	assert.Empty(t, f.cancelled)
	assert.Len(t, f.submitted, 2)
	assert.Equal(t, int64(1), e.Status(t0).Stats.RefreshDeferred)

	// 容忍度外的漂移仍触发撤换
	setMid(f, d("120"))
	e.Tick(t0.Add(62 * time.Second))
	assert.Len(t, f.cancelled, 2)
	assert.Len(t, f.submitted, 4)
}

func TestFilledOrderDelayBlocksCreation(t *testing.T) {
	e, f := newTestEngine(t, Config{
		OrderRefreshTime:    time.Hour,
		RefreshTolerancePct: d("-1"),
		FilledOrderDelay:    60 * time.Second,
	})

	e.Tick(t0)
	buy := f.lastBySide(exchange.SideBuy)

	f.events <- exchange.OrderEvent{
		Type: exchange.EventOrderFilled, OrderID: buy.id,
		Side: exchange.SideBuy, Price: buy.price, Amount: buy.size, Timestamp: t0.Add(time.Second),
	}
	f.events <- exchange.OrderEvent{
		Type: exchange.EventBuyOrderCompleted, OrderID: buy.id,
		Side: exchange.SideBuy, Timestamp: t0.Add(time.Second),
	}

	// 冷却期内：买边空缺也不补
	e.Tick(t0.Add(2 * time.Second))
	assert.Len(t, f.submitted, 2)

	// 冷却结束后补回买边
	e.Tick(t0.Add(70 * time.Second))
	require.Len(t, f.submitted, 3)
	assert.Equal(t, exchange.SideBuy, f.submitted[2].side)
}

func TestHangingOrderSurvivesThenCancelsOnDrift(t *testing.T) {
	e, f := newTestEngine(t, Config{
		OrderRefreshTime:       30 * time.Second,
		RefreshTolerancePct:    d("-1"),
		HangingOrdersEnabled:   true,
		HangingOrdersCancelPct: d("0.1"),
	})

	e.Tick(t0)
	sell := f.lastBySide(exchange.SideSell)
	buy := f.lastBySide(exchange.SideBuy)

	f.events <- exchange.OrderEvent{
		Type: exchange.EventBuyOrderCompleted, OrderID: buy.id,
		Side: exchange.SideBuy, Timestamp: t0.Add(time.Second),
	}

	// 买单成交后卖单转为悬挂，不参与刷新撤换
	e.Tick(t0.Add(31 * time.Second))
	assert.NotContains(t, f.cancelled, sell.id)

	// mid 漂移超过 cancel pct 后撤掉悬挂单
	setMid(f, d("120"))
	e.Tick(t0.Add(32 * time.Second))
	assert.Contains(t, f.cancelled, sell.id)
}

func TestPingPongSuppressesOverfilledSide(t *testing.T) {
	e, f := newTestEngine(t, Config{
		OrderRefreshTime:    30 * time.Second,
		RefreshTolerancePct: d("-1"),
		PingPongEnabled:     true,
	})

	e.Tick(t0)
	buy := f.lastBySide(exchange.SideBuy)
	f.events <- exchange.OrderEvent{
		Type: exchange.EventBuyOrderCompleted, OrderID: buy.id,
		Side: exchange.SideBuy, Timestamp: t0.Add(time.Second),
	}

	// 净买入 1：买边被压制，卖边原单存活，无新提交
	e.Tick(t0.Add(2 * time.Second))
	assert.Len(t, f.submitted, 2)

	sell := f.lastBySide(exchange.SideSell)
	f.events <- exchange.OrderEvent{
		Type: exchange.EventSellOrderCompleted, OrderID: sell.id,
		Side: exchange.SideSell, Timestamp: t0.Add(3 * time.Second),
	}

	// 回到平衡：双边重新报价
	e.Tick(t0.Add(4 * time.Second))
	assert.Len(t, f.submitted, 4)
	assert.Equal(t, int64(0), e.Status(t0).PingPong)
}

func TestNotReadySkipsTick(t *testing.T) {
	e, f := newTestEngine(t, Config{OrderRefreshTime: 30 * time.Second, RefreshTolerancePct: d("-1")})
	f.ready = false

	e.Tick(t0)
	assert.Empty(t, f.submitted)

	f.ready = true
	e.Tick(t0.Add(time.Second))
	assert.Len(t, f.submitted, 2)
}

func TestPriceBandSuppressesBuys(t *testing.T) {
	e, f := newTestEngine(t, Config{
		OrderRefreshTime:    30 * time.Second,
		RefreshTolerancePct: d("-1"),
		PriceCeiling:        d("90"),
	})

	e.Tick(t0) // mid 100 超过 ceiling
	require.Len(t, f.submitted, 1)
	assert.Equal(t, exchange.SideSell, f.submitted[0].side)
}

func TestMaxOrderAgeCancels(t *testing.T) {
	e, f := newTestEngine(t, Config{
		OrderRefreshTime:    time.Hour,
		RefreshTolerancePct: d("-1"),
		MaxOrderAge:         45 * time.Second,
	})

	e.Tick(t0)
	e.Tick(t0.Add(30 * time.Second))
	assert.Empty(t, f.cancelled)

	e.Tick(t0.Add(46 * time.Second))
	assert.Len(t, f.cancelled, 2)
}

func TestMinimumSpreadCancels(t *testing.T) {
	e, f := newTestEngine(t, Config{
		OrderRefreshTime:    time.Hour,
		RefreshTolerancePct: d("-1"),
		MinimumSpread:       d("0.005"),
	})

	e.Tick(t0)
	buy := f.lastBySide(exchange.SideBuy) // 99，价差 1%

	// mid 向下逼近买单：价差收窄到 0.5% 以下
	setMid(f, d("99.2"))
	e.Tick(t0.Add(time.Second))
	assert.Contains(t, f.cancelled, buy.id)
}

func TestStopCancelsAllActive(t *testing.T) {
	e, f := newTestEngine(t, Config{OrderRefreshTime: 30 * time.Second, RefreshTolerancePct: d("-1")})

	e.Tick(t0)
	e.Stop()
	assert.Len(t, f.cancelled, 2)
}

func TestStatusReport(t *testing.T) {
	e, f := newTestEngine(t, Config{OrderRefreshTime: 30 * time.Second, RefreshTolerancePct: d("-1")})

	e.Tick(t0)
	buy := f.lastBySide(exchange.SideBuy)
	f.events <- exchange.OrderEvent{
		Type: exchange.EventOrderFilled, OrderID: buy.id,
		Side: exchange.SideBuy, Price: buy.price, Amount: buy.size, Timestamp: t0.Add(time.Second),
	}
	e.Tick(t0.Add(2 * time.Second))

	r := e.Status(t0.Add(3 * time.Second))
	assert.Equal(t, "fake", r.Market)
	assert.Equal(t, "HBOT-ETH", r.TradingPair)
	assert.True(t, r.Ready)
	assert.Equal(t, "100", r.MidPrice)
	assert.Equal(t, "10", r.BaseBalance)
	assert.Equal(t, "1000", r.QuoteBalance)
	assert.Equal(t, "0.5", r.BasePct)
	assert.NotEmpty(t, r.LastProposal)
	assert.Equal(t, int64(2), r.Stats.TotalTicks)
	assert.Equal(t, int64(2), r.Stats.OrdersCreated)
	assert.Equal(t, int64(1), r.Stats.BuyFills)
	assert.Len(t, r.ActiveOrders, 2)
}

func TestApplyTunablesTakesEffectNextTick(t *testing.T) {
	e, f := newTestEngine(t, Config{OrderRefreshTime: 30 * time.Second, RefreshTolerancePct: d("-1")})

	wide, err := strategy.NewFlatSpreadPricing(d("0.05"), d("0.05"))
	require.NoError(t, err)
	require.NoError(t, e.ApplyTunables(Tunables{
		Config:  Config{OrderRefreshTime: 30 * time.Second, RefreshTolerancePct: d("-1")},
		Pricing: wide,
	}))

	// 坏参数被拒绝，不影响暂存的合法更新
	assert.Error(t, e.ApplyTunables(Tunables{
		Config: Config{PriceCeiling: d("1"), PriceFloor: d("2")},
	}))

	e.Tick(t0)
	require.Len(t, f.submitted, 2)
	assert.True(t, f.lastBySide(exchange.SideBuy).price.Equal(d("95")))
	assert.True(t, f.lastBySide(exchange.SideSell).price.Equal(d("105")))
}

func TestConfigValidation(t *testing.T) {
	f := newFakeConnector()
	market, err := exchange.NewMarketInfo(f, "HBOT-ETH")
	require.NoError(t, err)
	pricing, _ := strategy.NewFlatSpreadPricing(d("0.01"), d("0.01"))
	sizing, _ := strategy.NewConstantSizing(d("1"))
	components := Components{Market: market, Pricing: pricing, Sizing: sizing, Logger: logger.Nop()}

	_, err = New(Config{PriceCeiling: d("50"), PriceFloor: d("60")}, components)
	assert.Error(t, err)

	_, err = New(Config{HangingOrdersEnabled: true}, components)
	assert.Error(t, err)

	_, err = New(Config{OrderRefreshTime: -time.Second}, components)
	assert.Error(t, err)

	_, err = New(Config{}, Components{Pricing: pricing, Sizing: sizing})
	assert.Error(t, err)
}
