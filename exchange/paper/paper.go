// Package paper implements an in-process simulated exchange. It backs the
// paper trading mode of the quoter and the integration tests: orders rest in
// memory, fills trigger when the simulated book crosses an order, and every
// state change is replayed through the standard connector event channel.
package paper

import (
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"pmm-engine-go/exchange"
)

// Rule 交易对规则：价格与数量步长、费率。
type Rule struct {
	PriceTick  decimal.Decimal
	AmountStep decimal.Decimal
	FeePct     decimal.Decimal
}

// Exchange 纸面交易所。撮合规则：订单与对手最优价交叉即全额成交，
// 买单手续费以计价货币收取。事件通道带缓冲，消费方按 tick 批量拉取。
type Exchange struct {
	name string

	mu       sync.RWMutex
	ready    bool
	rules    map[string]Rule
	books    map[string]*Book
	balances map[string]decimal.Decimal
	open     map[string]exchange.LimitOrder

	events chan exchange.OrderEvent
	now    func() time.Time
}

const eventBuffer = 256

// New 创建纸面交易所。
func New(name string) *Exchange {
	if name == "" {
		name = "paper"
	}
	return &Exchange{
		name:     name,
		rules:    make(map[string]Rule),
		books:    make(map[string]*Book),
		balances: make(map[string]decimal.Decimal),
		open:     make(map[string]exchange.LimitOrder),
		events:   make(chan exchange.OrderEvent, eventBuffer),
		now:      time.Now,
	}
}

// AddPair 注册交易对规则。
func (e *Exchange) AddPair(pair string, rule Rule) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.rules[pair] = rule
}

// SetBalance 设置某资产余额。
func (e *Exchange) SetBalance(asset string, amount decimal.Decimal) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.balances[asset] = amount
}

// SetReady 标记初始同步完成。
func (e *Exchange) SetReady(ready bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.ready = ready
}

// SetBook replaces the book with a single level per side and immediately
// matches resting orders against the new prices: buys fill when the ask
// trades at or below their price, sells when the bid trades at or above.
func (e *Exchange) SetBook(pair string, bestBid, bestAsk decimal.Decimal) {
	e.mu.Lock()
	defer e.mu.Unlock()
	b := newBook()
	if bestBid.Sign() > 0 {
		b.ApplyDelta([]Level{{Price: bestBid, Amount: defaultLevelAmount}}, nil)
	}
	if bestAsk.Sign() > 0 {
		b.ApplyDelta(nil, []Level{{Price: bestAsk, Amount: defaultLevelAmount}})
	}
	e.books[pair] = b
	e.matchLocked(pair)
}

// ApplyDepth 应用多档深度增量并撮合。
func (e *Exchange) ApplyDepth(pair string, bidDelta, askDelta []Level) {
	e.mu.Lock()
	defer e.mu.Unlock()
	b, ok := e.books[pair]
	if !ok {
		b = newBook()
		e.books[pair] = b
	}
	b.ApplyDelta(bidDelta, askDelta)
	e.matchLocked(pair)
}

var defaultLevelAmount = decimal.NewFromInt(1_000_000)

func (e *Exchange) Name() string { return e.name }

func (e *Exchange) Ready() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.ready
}

func (e *Exchange) NetworkStatus() exchange.NetworkStatus {
	if e.Ready() {
		return exchange.NetworkConnected
	}
	return exchange.NetworkNotConnected
}

func (e *Exchange) Events() <-chan exchange.OrderEvent { return e.events }

func (e *Exchange) Balance(asset string) decimal.Decimal {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.balances[asset]
}

// AvailableBalance 总余额减去挂单占用：买单占用计价货币（含手续费），
// 卖单占用基础货币。
func (e *Exchange) AvailableBalance(asset string) decimal.Decimal {
	e.mu.RLock()
	defer e.mu.RUnlock()
	avail := e.balances[asset]
	for _, o := range e.open {
		rule := e.rules[o.TradingPair]
		if o.IsBuy() && o.QuoteAsset == asset {
			avail = avail.Sub(o.Price.Mul(o.Quantity).Mul(one.Add(rule.FeePct)))
		}
		if !o.IsBuy() && o.BaseAsset == asset {
			avail = avail.Sub(o.Quantity)
		}
	}
	if avail.Sign() < 0 {
		return decimal.Zero
	}
	return avail
}

func (e *Exchange) BestPrice(pair string, isBuy bool) (decimal.Decimal, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	b, ok := e.books[pair]
	if !ok {
		return decimal.Zero, fmt.Errorf("no book for %s", pair)
	}
	bid, ask := b.Best()
	if isBuy {
		if bid.Sign() <= 0 {
			return decimal.Zero, fmt.Errorf("bid side of %s is empty", pair)
		}
		return bid, nil
	}
	if ask.Sign() <= 0 {
		return decimal.Zero, fmt.Errorf("ask side of %s is empty", pair)
	}
	return ask, nil
}

// PriceForVolume 沿深度簿累计到目标数量的价格。
func (e *Exchange) PriceForVolume(pair string, isBuy bool, volume decimal.Decimal) (decimal.Decimal, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	b, ok := e.books[pair]
	if !ok {
		return decimal.Zero, fmt.Errorf("no book for %s", pair)
	}
	return b.PriceForVolume(isBuy, volume)
}

func (e *Exchange) QuantizePrice(pair string, p decimal.Decimal) decimal.Decimal {
	e.mu.RLock()
	tick := e.rules[pair].PriceTick
	e.mu.RUnlock()
	return quantize(p, tick)
}

func (e *Exchange) QuantizeAmount(pair string, a, _ decimal.Decimal) decimal.Decimal {
	e.mu.RLock()
	step := e.rules[pair].AmountStep
	e.mu.RUnlock()
	return quantize(a, step)
}

func (e *Exchange) PriceQuantum(pair string, _ decimal.Decimal) decimal.Decimal {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.rules[pair].PriceTick
}

func (e *Exchange) Fee(_, _ string, _ exchange.OrderType, _ exchange.Side, _, _ decimal.Decimal) exchange.Fee {
	return exchange.Fee{Percent: decimal.Zero}
}

// FeeFor 按交易对返回配置费率。Connector 接口的 Fee 对纸面交易固定为
// 零，这里单独暴露给需要真实费率的调用方。
func (e *Exchange) FeeFor(pair string) exchange.Fee {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return exchange.Fee{Percent: e.rules[pair].FeePct}
}

func (e *Exchange) SubmitBuy(pair string, amount, price decimal.Decimal, orderType exchange.OrderType) (string, error) {
	return e.submit(pair, exchange.SideBuy, amount, price, orderType)
}

func (e *Exchange) SubmitSell(pair string, amount, price decimal.Decimal, orderType exchange.OrderType) (string, error) {
	return e.submit(pair, exchange.SideSell, amount, price, orderType)
}

func (e *Exchange) submit(pair string, side exchange.Side, amount, price decimal.Decimal, orderType exchange.OrderType) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, ok := e.rules[pair]; !ok {
		return "", fmt.Errorf("unknown trading pair %s", pair)
	}
	if amount.Sign() <= 0 || price.Sign() <= 0 {
		return "", fmt.Errorf("order amount and price must be positive")
	}

	var bestBid, bestAsk decimal.Decimal
	if b, ok := e.books[pair]; ok {
		bestBid, bestAsk = b.Best()
	}
	if orderType == exchange.OrderTypeLimitMaker {
		// post-only：挂单价穿越对手价直接拒单
		if side == exchange.SideBuy && bestAsk.Sign() > 0 && price.GreaterThanOrEqual(bestAsk) {
			return "", fmt.Errorf("post-only buy at %s would cross ask %s", price, bestAsk)
		}
		if side == exchange.SideSell && bestBid.Sign() > 0 && price.LessThanOrEqual(bestBid) {
			return "", fmt.Errorf("post-only sell at %s would cross bid %s", price, bestBid)
		}
	}

	id := exchange.NewClientOrderID(side, pair)
	base, quote := splitPair(pair)
	e.open[id] = exchange.LimitOrder{
		ID:          id,
		TradingPair: pair,
		Side:        side,
		BaseAsset:   base,
		QuoteAsset:  quote,
		Price:       price,
		Quantity:    amount,
		CreatedAt:   e.now(),
	}
	e.matchLocked(pair)
	return id, nil
}

func (e *Exchange) Cancel(_ string, orderID string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	o, ok := e.open[orderID]
	if !ok {
		return fmt.Errorf("order %s not open", orderID)
	}
	delete(e.open, orderID)
	e.emit(exchange.OrderEvent{
		Type:        exchange.EventOrderCancelled,
		OrderID:     orderID,
		TradingPair: o.TradingPair,
		Side:        o.Side,
		Price:       o.Price,
		Amount:      o.Quantity,
		Timestamp:   e.now(),
	})
	return nil
}

// OpenOrders 当前挂单快照。
func (e *Exchange) OpenOrders() []exchange.LimitOrder {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]exchange.LimitOrder, 0, len(e.open))
	for _, o := range e.open {
		out = append(out, o)
	}
	return out
}

// matchLocked 用当前簿价撮合挂单。调用方持有写锁。
func (e *Exchange) matchLocked(pair string) {
	b, ok := e.books[pair]
	if !ok {
		return
	}
	bestBid, bestAsk := b.Best()
	for id, o := range e.open {
		if o.TradingPair != pair {
			continue
		}
		crossed := (o.IsBuy() && bestAsk.Sign() > 0 && bestAsk.LessThanOrEqual(o.Price)) ||
			(!o.IsBuy() && bestBid.Sign() > 0 && bestBid.GreaterThanOrEqual(o.Price))
		if !crossed {
			continue
		}
		delete(e.open, id)
		e.settleLocked(o)
	}
}

// settleLocked 全额成交结算：买单手续费计入计价货币支出。
func (e *Exchange) settleLocked(o exchange.LimitOrder) {
	fee := e.rules[o.TradingPair].FeePct
	notional := o.Price.Mul(o.Quantity)
	if o.IsBuy() {
		e.balances[o.BaseAsset] = e.balances[o.BaseAsset].Add(o.Quantity)
		e.balances[o.QuoteAsset] = e.balances[o.QuoteAsset].Sub(notional.Mul(one.Add(fee)))
	} else {
		e.balances[o.BaseAsset] = e.balances[o.BaseAsset].Sub(o.Quantity)
		e.balances[o.QuoteAsset] = e.balances[o.QuoteAsset].Add(notional.Mul(one.Sub(fee)))
	}

	now := e.now()
	e.emit(exchange.OrderEvent{
		Type:        exchange.EventOrderFilled,
		OrderID:     o.ID,
		TradingPair: o.TradingPair,
		Side:        o.Side,
		Price:       o.Price,
		Amount:      o.Quantity,
		Timestamp:   now,
	})
	completed := exchange.EventSellOrderCompleted
	if o.IsBuy() {
		completed = exchange.EventBuyOrderCompleted
	}
	e.emit(exchange.OrderEvent{
		Type:        completed,
		OrderID:     o.ID,
		TradingPair: o.TradingPair,
		Side:        o.Side,
		Price:       o.Price,
		Amount:      o.Quantity,
		Timestamp:   now,
	})
}

// emit 通道满时丢弃最旧事件，保证撮合永不阻塞。
func (e *Exchange) emit(ev exchange.OrderEvent) {
	for {
		select {
		case e.events <- ev:
			return
		default:
			select {
			case <-e.events:
			default:
			}
		}
	}
}

var one = decimal.NewFromInt(1)

func quantize(v, step decimal.Decimal) decimal.Decimal {
	if v.Sign() <= 0 {
		return decimal.Zero
	}
	if step.Sign() <= 0 {
		return v
	}
	return v.Div(step).Floor().Mul(step)
}

func splitPair(pair string) (base, quote string) {
	for i := 0; i < len(pair); i++ {
		if pair[i] == '-' {
			return pair[:i], pair[i+1:]
		}
	}
	return pair, ""
}
