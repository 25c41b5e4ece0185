package engine

import (
	"fmt"
	"runtime/debug"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"pmm-engine-go/exchange"
	"pmm-engine-go/infrastructure/logger"
	"pmm-engine-go/inventory"
	"pmm-engine-go/metrics"
	"pmm-engine-go/order"
	"pmm-engine-go/strategy"
)

// Config 引擎配置。所有时长为 0 表示禁用对应机制（RefreshTolerancePct
// 用负数表示禁用，因为 0 是合法容忍度）。
type Config struct {
	OrderType exchange.OrderType

	// 订单刷新周期：挂单存活该时长后重新评估价格
	OrderRefreshTime time.Duration
	// 刷新容忍度：新旧价格的相对偏差都在该值内时推迟撤换；负数禁用
	RefreshTolerancePct decimal.Decimal
	// 超过该年龄的订单无条件撤销
	MaxOrderAge time.Duration
	// 任一订单成交后，推迟挂新单的冷却时长
	FilledOrderDelay time.Duration

	// 悬挂订单：一侧成交后保留另一侧，直到价格漂移超过该比例
	HangingOrdersEnabled   bool
	HangingOrdersCancelPct decimal.Decimal

	// 乒乓平衡：净成交不为零时压制多成交的一侧
	PingPongEnabled bool

	// 活跃订单距 mid 的价差收窄到该值以下时强制撤销；0 禁用
	MinimumSpread decimal.Decimal

	// 价格带：mid 超出区间时熄火对应方向；0 表示不设界
	PriceCeiling decimal.Decimal
	PriceFloor   decimal.Decimal

	// 盘口优化（仅单层配置生效）
	OrderOptimizationEnabled bool
	BidOptimizationDepth     decimal.Decimal
	AskOptimizationDepth     decimal.Decimal
	TakeIfCrossed            bool

	// 报价中预加手续费
	AddTransactionCosts bool
	// 交易所以计价货币收取手续费（影响余额预算口径）
	FeeInQuote bool

	// 订单追踪器窗口
	ShadowTTL    time.Duration
	CancelExpiry time.Duration
}

func (c Config) validate() error {
	if c.PriceCeiling.Sign() > 0 && c.PriceFloor.Sign() > 0 &&
		c.PriceCeiling.LessThan(c.PriceFloor) {
		return fmt.Errorf("price ceiling %s below price floor %s", c.PriceCeiling, c.PriceFloor)
	}
	if c.HangingOrdersEnabled && c.HangingOrdersCancelPct.Sign() <= 0 {
		return fmt.Errorf("hanging orders enabled but cancel pct %s not positive", c.HangingOrdersCancelPct)
	}
	if c.MaxOrderAge < 0 || c.FilledOrderDelay < 0 || c.OrderRefreshTime < 0 {
		return fmt.Errorf("durations must not be negative")
	}
	if c.MinimumSpread.Sign() < 0 {
		return fmt.Errorf("minimum spread must not be negative")
	}
	return nil
}

// Components 引擎依赖组件
type Components struct {
	Market    exchange.MarketInfo
	Pricing   strategy.PricingPolicy
	Sizing    strategy.SizingPolicy
	Filter    strategy.FilterPolicy
	Tracker   *order.Tracker
	Readiness *ReadinessGroup // 可选；nil 时只看本市场连接器
	Logger    *logger.Logger
	Metrics   *metrics.Collector // 可选
}

// Statistics 引擎统计信息
type Statistics struct {
	StartTime       time.Time
	TotalTicks      int64
	TotalErrors     int64
	OrdersCreated   int64
	OrdersCancelled int64
	BuyFills        int64
	SellFills       int64
	RefreshDeferred int64
	LastTickTime    time.Time
}

// Engine 单市场做市决策引擎。每个 tick 从一致的行情/余额/订单快照出发，
// 产出净提案并下发：先撤单后挂单。所有对订单追踪器的写入都发生在
// Tick 内部，调度器保证同一市场的 tick 不重叠，因此无须额外加锁。
type Engine struct {
	cfg     Config
	market  exchange.MarketInfo
	pricing strategy.PricingPolicy
	sizing  strategy.SizingPolicy
	filter  strategy.FilterPolicy
	tracker *order.Tracker
	ready   *ReadinessGroup
	log     *logger.Logger
	met     *metrics.Collector

	marketKey string

	// 报价节流状态
	createNotBefore time.Time // 成交冷却：此前不挂新单
	refreshAt       time.Time // 下次刷新评估时间

	warnNotReady warnGate
	warnBook     warnGate
	warnZeroSize warnGate

	// mu 保护下面的共享状态：Tick 是唯一写者，Status 在别的 goroutine 读。
	mu           sync.RWMutex
	hanging      map[string]struct{} // 悬挂订单 id 集合
	pingPong     int64               // 已成交买单数 − 已成交卖单数
	stats        Statistics
	lastProposal strategy.OrdersProposal
	lastMid      decimal.Decimal

	pending *Tunables // 热更新暂存，tick 开头生效
}

// Tunables 可热更新的参数集。Pricing/Sizing 为 nil 时保留现有策略。
type Tunables struct {
	Config  Config
	Pricing strategy.PricingPolicy
	Sizing  strategy.SizingPolicy
}

// New 创建引擎；配置错误在此失败，运行期不再校验。
func New(cfg Config, c Components) (*Engine, error) {
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if c.Market.Connector == nil {
		return nil, fmt.Errorf("market connector required")
	}
	if c.Pricing == nil || c.Sizing == nil {
		return nil, fmt.Errorf("pricing and sizing policies required")
	}
	if c.Filter == nil {
		c.Filter = strategy.AllowAll{}
	}
	if c.Tracker == nil {
		c.Tracker = order.NewTracker(cfg.ShadowTTL, cfg.CancelExpiry)
	}
	if c.Logger == nil {
		c.Logger = logger.Nop()
	}
	if cfg.OrderType == "" {
		cfg.OrderType = exchange.OrderTypeLimitMaker
	}

	return &Engine{
		cfg:       cfg,
		market:    c.Market,
		pricing:   c.Pricing,
		sizing:    c.Sizing,
		filter:    c.Filter,
		tracker:   c.Tracker,
		ready:     c.Readiness,
		log:       c.Logger.With(zap.String("market", c.Market.TradingPair)),
		met:       c.Metrics,
		marketKey: c.Market.Connector.Name() + ":" + c.Market.TradingPair,
		hanging:   make(map[string]struct{}),
		stats:     Statistics{StartTime: time.Now()},
	}, nil
}

// Tick 执行一个决策周期。单个 tick 的失败只影响本周期，不会上抛。
func (e *Engine) Tick(now time.Time) {
	defer func() {
		if r := recover(); r != nil {
			e.log.Error("Tick panicked",
				zap.Any("panic", r),
				zap.ByteString("stack", debug.Stack()))
			e.recordError()
		}
	}()

	e.applyPending()

	e.mu.Lock()
	e.stats.TotalTicks++
	e.stats.LastTickTime = now
	e.mu.Unlock()
	e.met.IncTick()

	// 迟到的异步回报先于一切处理，保证本 tick 的快照一致
	e.drainEvents(now)
	e.tracker.PurgeExpired(now)

	if !e.allReady() {
		e.warnNotReady.Raise(func() {
			e.log.Warn("Connectors not ready, skipping ticks until initial sync completes")
		})
		return
	}
	e.warnNotReady.Clear()

	if err := e.runTick(now); err != nil {
		// 瞬时数据缺失等错误跳过本 tick，下个 tick 自愈
		e.warnBook.Raise(func() {
			e.log.Warn("Skipping tick", zap.Error(err))
		})
		e.recordError()
		return
	}
	e.warnBook.Clear()
}

func (e *Engine) allReady() bool {
	if e.ready != nil {
		return e.ready.AllReady()
	}
	c := e.market.Connector
	return c.Ready() && c.NetworkStatus() == exchange.NetworkConnected
}

func (e *Engine) runTick(now time.Time) error {
	mid, err := e.market.MidPrice()
	if err != nil {
		return err
	}

	basePct := inventory.CurrentBasePct(e.market.BaseBalance(), e.market.QuoteBalance(), mid)
	e.met.SetInventoryBasePct(basePct.InexactFloat64())

	e.mu.Lock()
	e.lastMid = mid
	e.mu.Unlock()

	active := e.tracker.ActiveOrders(e.marketKey)
	normal, hangingOrders := e.splitHanging(active)
	e.met.SetHangingOrders(len(hangingOrders))

	proposal, err := e.buildProposal(now, mid, active)
	if err != nil {
		return err
	}

	cancels := e.decideCancellations(now, mid, normal, hangingOrders, proposal)
	proposal.CancelIDs = cancels

	e.suppressStacking(&proposal, normal, cancels)
	if now.Before(e.createNotBefore) {
		proposal.Buys, proposal.Sells = nil, nil
	}

	state := strategy.State{Now: now, ActiveOrders: len(active)}
	proposal = e.filter.Mask(state, proposal)

	e.execute(now, proposal)
	return nil
}

// buildProposal 依次套用定价、价格带、数量、盘口优化、手续费与预算修饰。
func (e *Engine) buildProposal(now time.Time, mid decimal.Decimal, active []exchange.LimitOrder) (strategy.OrdersProposal, error) {
	pctx := strategy.PricingContext{Market: e.market, MidPrice: mid, ActiveOrders: active}

	pricing, err := e.pricing.PriceProposal(pctx)
	if err != nil {
		return strategy.OrdersProposal{}, fmt.Errorf("pricing: %w", err)
	}
	pricing = strategy.ApplyPriceBand(pricing, mid, e.cfg.PriceCeiling, e.cfg.PriceFloor)

	sizing, err := e.sizing.SizeProposal(strategy.SizingContext{
		Market:       e.market,
		MidPrice:     mid,
		Pricing:      pricing,
		ActiveOrders: active,
	})
	if err != nil {
		return strategy.OrdersProposal{}, fmt.Errorf("sizing: %w", err)
	}

	if e.cfg.OrderOptimizationEnabled {
		pricing, err = strategy.ApplyOrderOptimization(pctx, pricing, sizing, strategy.OptimizationConfig{
			BidDepth:      e.cfg.BidOptimizationDepth,
			AskDepth:      e.cfg.AskOptimizationDepth,
			TakeIfCrossed: e.cfg.TakeIfCrossed,
		})
		if err != nil {
			return strategy.OrdersProposal{}, fmt.Errorf("order optimization: %w", err)
		}
	}
	if e.cfg.AddTransactionCosts {
		pricing = strategy.ApplyTransactionCosts(pctx, pricing, sizing, e.cfg.OrderType)
	}

	sizing = strategy.ApplyBudgetConstraint(pctx, pricing, sizing, strategy.BudgetConfig{
		FeeInQuote:      e.cfg.FeeInQuote,
		ShrinkLastLevel: true,
		OrderType:       e.cfg.OrderType,
	})

	// 余额不足或量化后归零导致的单边熄火只告警一次
	buySuppressed := len(pricing.BuyPrices) > 0 && (len(sizing.BuySizes) == 0 || sizing.BuySizes[0].Sign() <= 0)
	sellSuppressed := len(pricing.SellPrices) > 0 && (len(sizing.SellSizes) == 0 || sizing.SellSizes[0].Sign() <= 0)
	if buySuppressed || sellSuppressed {
		e.warnZeroSize.Raise(func() {
			e.log.Warn("Order size zero after balance/quantization checks",
				zap.Bool("buy_suppressed", buySuppressed),
				zap.Bool("sell_suppressed", sellSuppressed))
		})
	} else {
		e.warnZeroSize.Clear()
	}

	proposal := strategy.Resolve(pricing, sizing, e.cfg.OrderType)
	e.applyPingPong(&proposal)
	return proposal, nil
}

// applyPingPong 压制多成交一侧的档位，直到净成交回到零。
func (e *Engine) applyPingPong(p *strategy.OrdersProposal) {
	if !e.cfg.PingPongEnabled || e.pingPong == 0 {
		return
	}
	if e.pingPong > 0 {
		n := int(e.pingPong)
		if n >= len(p.Buys) {
			p.Buys = nil
		} else {
			p.Buys = p.Buys[n:]
		}
	} else {
		n := int(-e.pingPong)
		if n >= len(p.Sells) {
			p.Sells = nil
		} else {
			p.Sells = p.Sells[n:]
		}
	}
}

// decideCancellations 汇总本 tick 要撤的订单：
// 悬挂订单按漂移与最大年龄撤；普通订单按最大年龄、最小价差和刷新周期撤；
// 刷新撤换在容忍度内时整体推迟，避免无谓的撤换与交易所限频压力。
func (e *Engine) decideCancellations(now time.Time, mid decimal.Decimal, normal, hangingOrders []exchange.LimitOrder, proposal strategy.OrdersProposal) []string {
	cancelSet := make(map[string]struct{})

	for _, o := range hangingOrders {
		if e.cfg.MaxOrderAge > 0 && o.Age(now) >= e.cfg.MaxOrderAge {
			cancelSet[o.ID] = struct{}{}
			continue
		}
		drift := o.Price.Sub(mid).Abs().Div(mid)
		if drift.GreaterThan(e.cfg.HangingOrdersCancelPct) {
			cancelSet[o.ID] = struct{}{}
		}
	}

	for _, o := range normal {
		if e.cfg.MaxOrderAge > 0 && o.Age(now) >= e.cfg.MaxOrderAge {
			cancelSet[o.ID] = struct{}{}
		}
		if e.cfg.MinimumSpread.Sign() > 0 {
			spread := o.Price.Sub(mid).Abs().Div(mid)
			if spread.LessThan(e.cfg.MinimumSpread) {
				cancelSet[o.ID] = struct{}{}
			}
		}
	}

	if len(normal) > 0 && e.cfg.OrderRefreshTime > 0 && !now.Before(e.refreshAt) {
		if e.cfg.RefreshTolerancePct.Sign() >= 0 && e.withinTolerance(normal, proposal) {
			// 新旧价格足够接近：推迟撤换
			e.refreshAt = now.Add(e.cfg.OrderRefreshTime)
			e.met.IncRefreshDeferred()
			e.mu.Lock()
			e.stats.RefreshDeferred++
			e.mu.Unlock()
			e.log.Debug("Proposal within refresh tolerance, deferring cancellation")
		} else {
			for _, o := range normal {
				cancelSet[o.ID] = struct{}{}
			}
		}
	}

	out := make([]string, 0, len(cancelSet))
	for id := range cancelSet {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// withinTolerance 双边分别将活跃价与提案价排序配对，所有相对偏差
// 都不超过容忍度时成立。档位数量不一致视为超限。
func (e *Engine) withinTolerance(normal []exchange.LimitOrder, proposal strategy.OrdersProposal) bool {
	var activeBuys, activeSells []decimal.Decimal
	for _, o := range normal {
		if o.IsBuy() {
			activeBuys = append(activeBuys, o.Price)
		} else {
			activeSells = append(activeSells, o.Price)
		}
	}
	proposedBuys := make([]decimal.Decimal, 0, len(proposal.Buys))
	for _, ps := range proposal.Buys {
		proposedBuys = append(proposedBuys, ps.Price)
	}
	proposedSells := make([]decimal.Decimal, 0, len(proposal.Sells))
	for _, ps := range proposal.Sells {
		proposedSells = append(proposedSells, ps.Price)
	}
	return sideWithinTolerance(activeBuys, proposedBuys, e.cfg.RefreshTolerancePct) &&
		sideWithinTolerance(activeSells, proposedSells, e.cfg.RefreshTolerancePct)
}

func sideWithinTolerance(active, proposed []decimal.Decimal, tolerance decimal.Decimal) bool {
	if len(active) != len(proposed) {
		return false
	}
	sortPrices(active)
	sortPrices(proposed)
	for i := range active {
		if active[i].Sign() <= 0 {
			return false
		}
		diff := proposed[i].Sub(active[i]).Abs().Div(active[i])
		if diff.GreaterThan(tolerance) {
			return false
		}
	}
	return true
}

func sortPrices(ps []decimal.Decimal) {
	sort.Slice(ps, func(i, j int) bool { return ps[i].LessThan(ps[j]) })
}

// suppressStacking 有存活普通订单的一侧不再叠加新单；多层配置下只补
// 缺失的深层档位。
func (e *Engine) suppressStacking(p *strategy.OrdersProposal, normal []exchange.LimitOrder, cancels []string) {
	cancelSet := make(map[string]struct{}, len(cancels))
	for _, id := range cancels {
		cancelSet[id] = struct{}{}
	}
	var buySurvivors, sellSurvivors int
	for _, o := range normal {
		if _, gone := cancelSet[o.ID]; gone {
			continue
		}
		if o.IsBuy() {
			buySurvivors++
		} else {
			sellSurvivors++
		}
	}
	if buySurvivors >= len(p.Buys) {
		p.Buys = nil
	} else {
		p.Buys = p.Buys[buySurvivors:]
	}
	if sellSurvivors >= len(p.Sells) {
		p.Sells = nil
	} else {
		p.Sells = p.Sells[sellSurvivors:]
	}
}

// execute 先撤后挂；挂单即刻登记到追踪器并计入刷新周期。
func (e *Engine) execute(now time.Time, proposal strategy.OrdersProposal) {
	c := e.market.Connector
	pair := e.market.TradingPair

	for _, id := range proposal.CancelIDs {
		if !e.tracker.BeginCancel(id, now) {
			// 已有在途撤单，静默拒绝
			e.log.Debug("Cancel already in flight", zap.String("order_id", id))
			continue
		}
		if err := c.Cancel(pair, id); err != nil {
			e.log.Warn("Cancel request failed", zap.String("order_id", id), zap.Error(err))
			continue
		}
		e.met.IncOrderCancelled()
		e.mu.Lock()
		e.stats.OrdersCancelled++
		e.mu.Unlock()
	}

	created := false
	for _, ps := range proposal.Buys {
		id, err := c.SubmitBuy(pair, ps.Size, ps.Price, proposal.OrderType)
		if err != nil {
			e.log.Warn("Buy submit failed",
				zap.String("price", ps.Price.String()),
				zap.String("size", ps.Size.String()),
				zap.Error(err))
			continue
		}
		e.registerOrder(now, id, exchange.SideBuy, ps)
		created = true
	}
	for _, ps := range proposal.Sells {
		id, err := c.SubmitSell(pair, ps.Size, ps.Price, proposal.OrderType)
		if err != nil {
			e.log.Warn("Sell submit failed",
				zap.String("price", ps.Price.String()),
				zap.String("size", ps.Size.String()),
				zap.Error(err))
			continue
		}
		e.registerOrder(now, id, exchange.SideSell, ps)
		created = true
	}

	if created && e.cfg.OrderRefreshTime > 0 {
		e.refreshAt = now.Add(e.cfg.OrderRefreshTime)
	}

	e.mu.Lock()
	e.lastProposal = proposal
	e.mu.Unlock()
}

func (e *Engine) registerOrder(now time.Time, id string, side exchange.Side, ps strategy.PriceSize) {
	o := exchange.LimitOrder{
		ID:          id,
		TradingPair: e.market.TradingPair,
		Side:        side,
		BaseAsset:   e.market.BaseAsset,
		QuoteAsset:  e.market.QuoteAsset,
		Price:       ps.Price,
		Quantity:    ps.Size,
		CreatedAt:   now,
	}
	e.tracker.RecordNew(e.marketKey, o)
	e.met.IncOrderCreated(string(side))
	e.mu.Lock()
	e.stats.OrdersCreated++
	e.mu.Unlock()
	e.log.Info("Order created",
		zap.String("order_id", id),
		zap.String("side", string(side)),
		zap.String("price", ps.Price.String()),
		zap.String("size", ps.Size.String()))
}

// drainEvents 非阻塞地消费连接器回报并更新簿记状态。
func (e *Engine) drainEvents(now time.Time) {
	ch := e.market.Connector.Events()
	if ch == nil {
		return
	}
	for {
		select {
		case ev := <-ch:
			e.handleEvent(ev, now)
		default:
			return
		}
	}
}

func (e *Engine) handleEvent(ev exchange.OrderEvent, now time.Time) {
	switch ev.Type {
	case exchange.EventOrderFilled:
		if _, ok := e.tracker.Lookup(e.marketKey, ev.OrderID, now); !ok {
			e.log.Warn("Fill event for unknown order", zap.String("order_id", ev.OrderID))
			return
		}
		e.met.IncFill(string(ev.Side))
		e.mu.Lock()
		if ev.Side == exchange.SideBuy {
			e.stats.BuyFills++
		} else {
			e.stats.SellFills++
		}
		e.mu.Unlock()
		e.log.Info("Order filled",
			zap.String("order_id", ev.OrderID),
			zap.String("side", string(ev.Side)),
			zap.String("price", ev.Price.String()),
			zap.String("amount", ev.Amount.String()))

	case exchange.EventBuyOrderCompleted, exchange.EventSellOrderCompleted:
		if _, err := e.tracker.OnTerminalEvent(e.marketKey, ev.OrderID, now); err != nil {
			e.log.Warn("Completion event for unknown order", zap.String("order_id", ev.OrderID))
			return
		}
		e.mu.Lock()
		delete(e.hanging, ev.OrderID)
		if e.cfg.PingPongEnabled {
			if ev.Type == exchange.EventBuyOrderCompleted {
				e.pingPong++
			} else {
				e.pingPong--
			}
		}
		e.mu.Unlock()
		if e.cfg.FilledOrderDelay > 0 {
			next := now.Add(e.cfg.FilledOrderDelay)
			if next.After(e.createNotBefore) {
				e.createNotBefore = next
			}
		}
		if e.cfg.HangingOrdersEnabled {
			e.markOppositeHanging(ev.Type == exchange.EventBuyOrderCompleted)
		}

	case exchange.EventOrderCancelled, exchange.EventOrderExpired, exchange.EventOrderFailed:
		if _, err := e.tracker.OnTerminalEvent(e.marketKey, ev.OrderID, now); err != nil {
			// 可能是 shadow 窗口已过的老订单
			e.log.Debug("Terminal event for unknown order",
				zap.String("order_id", ev.OrderID),
				zap.String("kind", ev.Type.String()))
			return
		}
		e.mu.Lock()
		delete(e.hanging, ev.OrderID)
		e.mu.Unlock()
		if ev.Type == exchange.EventOrderFailed {
			e.log.Warn("Order failed on exchange", zap.String("order_id", ev.OrderID))
		}
	}
}

// markOppositeHanging 一侧成交后保留对侧挂单，避免追价。
func (e *Engine) markOppositeHanging(buyFilled bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, o := range e.tracker.ActiveOrders(e.marketKey) {
		if o.IsBuy() == buyFilled {
			continue
		}
		e.hanging[o.ID] = struct{}{}
	}
}

func (e *Engine) splitHanging(active []exchange.LimitOrder) (normal, hangingOrders []exchange.LimitOrder) {
	for _, o := range active {
		if _, ok := e.hanging[o.ID]; ok {
			hangingOrders = append(hangingOrders, o)
		} else {
			normal = append(normal, o)
		}
	}
	return normal, hangingOrders
}

// Stop 撤销全部活跃订单。停机清场由编排层在时钟停止后调用。
func (e *Engine) Stop() {
	now := time.Now()
	for _, o := range e.tracker.ActiveOrders(e.marketKey) {
		if !e.tracker.BeginCancel(o.ID, now) {
			continue
		}
		if err := e.market.Connector.Cancel(e.market.TradingPair, o.ID); err != nil {
			e.log.Warn("Cancel on stop failed", zap.String("order_id", o.ID), zap.Error(err))
		}
	}
	e.log.Info("Engine stopped, cancels issued for all active orders")
}

// ApplyTunables 校验并暂存新参数；实际切换发生在下一个 tick 开头，
// 避免与进行中的决策竞争。配置监听协程调用。
func (e *Engine) ApplyTunables(tn Tunables) error {
	if err := tn.Config.validate(); err != nil {
		return fmt.Errorf("invalid tunables: %w", err)
	}
	e.mu.Lock()
	if tn.Config.OrderType == "" {
		tn.Config.OrderType = e.cfg.OrderType
	}
	e.pending = &tn
	e.mu.Unlock()
	return nil
}

func (e *Engine) applyPending() {
	e.mu.Lock()
	tn := e.pending
	e.pending = nil
	if tn != nil {
		e.cfg = tn.Config
		if tn.Pricing != nil {
			e.pricing = tn.Pricing
		}
		if tn.Sizing != nil {
			e.sizing = tn.Sizing
		}
	}
	e.mu.Unlock()
	if tn != nil {
		e.log.Info("Tunables updated")
	}
}

func (e *Engine) recordError() {
	e.met.IncTickError()
	e.mu.Lock()
	e.stats.TotalErrors++
	e.mu.Unlock()
}
