package order

import (
	"errors"
	"sort"
	"sync"
	"time"

	"pmm-engine-go/exchange"
)

// Tracker 是订单簿记层：维护每个市场的活跃订单，把刚终结的订单保留
// 在 shadow 集合里一段时间以吸收迟到的异步回报，并记录在途撤单避免
// 重复撤销。只有引擎写入；状态视图只读。
type Tracker struct {
	mu sync.RWMutex

	active map[string]map[string]exchange.LimitOrder // market -> id -> order
	shadow map[string]map[string]shadowEntry
	// in-flight cancel 的发起时间；条目超过 cancelExpiry 后视为失联并丢弃
	inFlightCancels map[string]time.Time

	shadowTTL    time.Duration
	cancelExpiry time.Duration
}

type shadowEntry struct {
	order     exchange.LimitOrder
	expiresAt time.Time
}

const (
	// DefaultShadowTTL shadow 订单保留时长
	DefaultShadowTTL = 60 * time.Second
	// DefaultCancelExpiry 在途撤单失联判定窗口
	DefaultCancelExpiry = 60 * time.Second
)

// ErrUnknownOrder 指向既不在 active 也不在 shadow 的订单。
var ErrUnknownOrder = errors.New("unknown order")

// NewTracker creates a tracker. Zero durations fall back to the defaults.
func NewTracker(shadowTTL, cancelExpiry time.Duration) *Tracker {
	if shadowTTL <= 0 {
		shadowTTL = DefaultShadowTTL
	}
	if cancelExpiry <= 0 {
		cancelExpiry = DefaultCancelExpiry
	}
	return &Tracker{
		active:          make(map[string]map[string]exchange.LimitOrder),
		shadow:          make(map[string]map[string]shadowEntry),
		inFlightCancels: make(map[string]time.Time),
		shadowTTL:       shadowTTL,
		cancelExpiry:    cancelExpiry,
	}
}

// RecordNew 登记一张新创建的订单。
func (t *Tracker) RecordNew(market string, o exchange.LimitOrder) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.active[market] == nil {
		t.active[market] = make(map[string]exchange.LimitOrder)
	}
	t.active[market][o.ID] = o
}

// BeginCancel marks a cancel request as in flight. Returns false without
// side effects when a cancel for this id is already pending, so callers
// never issue duplicate cancel requests inside the expiry window.
func (t *Tracker) BeginCancel(orderID string, now time.Time) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if at, ok := t.inFlightCancels[orderID]; ok {
		if now.Sub(at) < t.cancelExpiry {
			return false
		}
		// 失联的旧撤单：允许重新发起
	}
	t.inFlightCancels[orderID] = now
	return true
}

// HasInFlightCancel 该订单是否有未确认的撤单。
func (t *Tracker) HasInFlightCancel(orderID string) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	_, ok := t.inFlightCancels[orderID]
	return ok
}

// OnTerminalEvent resolves a terminal connector event. An active order moves
// to the shadow set; an order already in shadow resolves from there. The
// in-flight cancel marker is cleared either way. Returns ErrUnknownOrder for
// ids the tracker has never seen or whose shadow window already expired.
func (t *Tracker) OnTerminalEvent(market, orderID string, now time.Time) (exchange.LimitOrder, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	delete(t.inFlightCancels, orderID)

	if orders, ok := t.active[market]; ok {
		if o, ok := orders[orderID]; ok {
			delete(orders, orderID)
			if t.shadow[market] == nil {
				t.shadow[market] = make(map[string]shadowEntry)
			}
			t.shadow[market][orderID] = shadowEntry{order: o, expiresAt: now.Add(t.shadowTTL)}
			return o, nil
		}
	}
	if entries, ok := t.shadow[market]; ok {
		if e, ok := entries[orderID]; ok && now.Before(e.expiresAt) {
			return e.order, nil
		}
	}
	return exchange.LimitOrder{}, ErrUnknownOrder
}

// Lookup 在 active 与未过期的 shadow 集合中查找订单。
func (t *Tracker) Lookup(market, orderID string, now time.Time) (exchange.LimitOrder, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if o, ok := t.active[market][orderID]; ok {
		return o, true
	}
	if e, ok := t.shadow[market][orderID]; ok && now.Before(e.expiresAt) {
		return e.order, true
	}
	return exchange.LimitOrder{}, false
}

// ActiveOrders 返回某市场活跃订单的拷贝，按价格从优到劣排在各自方向内。
func (t *Tracker) ActiveOrders(market string) []exchange.LimitOrder {
	t.mu.RLock()
	defer t.mu.RUnlock()
	orders := make([]exchange.LimitOrder, 0, len(t.active[market]))
	for _, o := range t.active[market] {
		orders = append(orders, o)
	}
	sort.Slice(orders, func(i, j int) bool {
		if orders[i].Side != orders[j].Side {
			return orders[i].Side == exchange.SideBuy
		}
		if orders[i].IsBuy() {
			return orders[i].Price.GreaterThan(orders[j].Price)
		}
		return orders[i].Price.LessThan(orders[j].Price)
	})
	return orders
}

// ActiveCount 活跃订单数量。
func (t *Tracker) ActiveCount(market string) int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.active[market])
}

// PurgeExpired drops shadow entries past their keep-alive window and
// in-flight cancel markers past the expiry window. The latter is a liveness
// safeguard against connector message loss: a stale entry would otherwise
// block every future cancel attempt for that id.
func (t *Tracker) PurgeExpired(now time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for market, entries := range t.shadow {
		for id, e := range entries {
			if !now.Before(e.expiresAt) {
				delete(entries, id)
			}
		}
		if len(entries) == 0 {
			delete(t.shadow, market)
		}
	}
	for id, at := range t.inFlightCancels {
		if now.Sub(at) >= t.cancelExpiry {
			delete(t.inFlightCancels, id)
		}
	}
}
