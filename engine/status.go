package engine

import (
	"time"

	"pmm-engine-go/inventory"
)

// Report 引擎状态快照，供 HTTP 状态端点与日志巡检使用。
type Report struct {
	Market       string      `json:"market"`
	TradingPair  string      `json:"trading_pair"`
	Ready        bool        `json:"ready"`
	MidPrice     string      `json:"mid_price"`
	BaseBalance  string      `json:"base_balance"`
	QuoteBalance string      `json:"quote_balance"`
	BasePct      string      `json:"base_pct"`
	ActiveOrders []OrderView `json:"active_orders"`
	Hanging      []string    `json:"hanging_order_ids"`
	PingPong     int64       `json:"ping_pong_balance"`
	LastProposal string      `json:"last_proposal"`
	Stats        StatsView   `json:"statistics"`
	GeneratedAt  time.Time   `json:"generated_at"`
}

// OrderView 活跃订单视图
type OrderView struct {
	ID      string `json:"id"`
	Side    string `json:"side"`
	Price   string `json:"price"`
	Size    string `json:"size"`
	AgeSecs int64  `json:"age_secs"`
	Hanging bool   `json:"hanging"`
}

// StatsView 累计统计视图
type StatsView struct {
	Uptime          string `json:"uptime"`
	TotalTicks      int64  `json:"total_ticks"`
	TotalErrors     int64  `json:"total_errors"`
	OrdersCreated   int64  `json:"orders_created"`
	OrdersCancelled int64  `json:"orders_cancelled"`
	BuyFills        int64  `json:"buy_fills"`
	SellFills       int64  `json:"sell_fills"`
	RefreshDeferred int64  `json:"refresh_deferred"`
}

// Status 生成当前状态报告。读侧加锁，可与 Tick 并发调用。
func (e *Engine) Status(now time.Time) Report {
	e.mu.RLock()
	stats := e.stats
	mid := e.lastMid
	pingPong := e.pingPong
	proposal := e.lastProposal.String()
	hangingSet := make(map[string]struct{}, len(e.hanging))
	for id := range e.hanging {
		hangingSet[id] = struct{}{}
	}
	e.mu.RUnlock()

	base := e.market.BaseBalance()
	quote := e.market.QuoteBalance()

	active := e.tracker.ActiveOrders(e.marketKey)
	views := make([]OrderView, 0, len(active))
	var hangingIDs []string
	for _, o := range active {
		_, isHanging := hangingSet[o.ID]
		if isHanging {
			hangingIDs = append(hangingIDs, o.ID)
		}
		views = append(views, OrderView{
			ID:      o.ID,
			Side:    string(o.Side),
			Price:   o.Price.String(),
			Size:    o.Quantity.String(),
			AgeSecs: int64(o.Age(now) / time.Second),
			Hanging: isHanging,
		})
	}

	return Report{
		Market:       e.market.Connector.Name(),
		TradingPair:  e.market.TradingPair,
		Ready:        e.allReady(),
		MidPrice:     mid.String(),
		BaseBalance:  base.String(),
		QuoteBalance: quote.String(),
		BasePct:      inventory.CurrentBasePct(base, quote, mid).String(),
		ActiveOrders: views,
		Hanging:      hangingIDs,
		PingPong:     pingPong,
		LastProposal: proposal,
		Stats: StatsView{
			Uptime:          now.Sub(stats.StartTime).Truncate(time.Second).String(),
			TotalTicks:      stats.TotalTicks,
			TotalErrors:     stats.TotalErrors,
			OrdersCreated:   stats.OrdersCreated,
			OrdersCancelled: stats.OrdersCancelled,
			BuyFills:        stats.BuyFills,
			SellFills:       stats.SellFills,
			RefreshDeferred: stats.RefreshDeferred,
		},
		GeneratedAt: now,
	}
}
