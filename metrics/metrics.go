// Package metrics provides Prometheus metrics for the quoting engine.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector 引擎运行指标。所有方法都允许 nil 接收者，便于测试时不接指标。
type Collector struct {
	ticks            prometheus.Counter
	tickErrors       prometheus.Counter
	ordersCreated    *prometheus.CounterVec
	ordersCancelled  prometheus.Counter
	fills            *prometheus.CounterVec
	refreshDeferred  prometheus.Counter
	hangingOrders    prometheus.Gauge
	inventoryBasePct prometheus.Gauge
}

// NewCollector 注册并返回某个市场的指标集合。
func NewCollector(market string) *Collector {
	labels := prometheus.Labels{"market": market}
	return &Collector{
		ticks: promauto.NewCounter(prometheus.CounterOpts{
			Name:        "quoter_ticks_total",
			Help:        "策略 tick 次数",
			ConstLabels: labels,
		}),
		tickErrors: promauto.NewCounter(prometheus.CounterOpts{
			Name:        "quoter_tick_errors_total",
			Help:        "被跳过的异常 tick 次数",
			ConstLabels: labels,
		}),
		ordersCreated: promauto.NewCounterVec(prometheus.CounterOpts{
			Name:        "quoter_orders_created_total",
			Help:        "创建订单数量",
			ConstLabels: labels,
		}, []string{"side"}),
		ordersCancelled: promauto.NewCounter(prometheus.CounterOpts{
			Name:        "quoter_orders_cancelled_total",
			Help:        "发起撤单数量",
			ConstLabels: labels,
		}),
		fills: promauto.NewCounterVec(prometheus.CounterOpts{
			Name:        "quoter_fills_total",
			Help:        "成交回报数量",
			ConstLabels: labels,
		}, []string{"side"}),
		refreshDeferred: promauto.NewCounter(prometheus.CounterOpts{
			Name:        "quoter_refresh_deferred_total",
			Help:        "因容忍度而推迟的刷新次数",
			ConstLabels: labels,
		}),
		hangingOrders: promauto.NewGauge(prometheus.GaugeOpts{
			Name:        "quoter_hanging_orders",
			Help:        "当前悬挂订单数量",
			ConstLabels: labels,
		}),
		inventoryBasePct: promauto.NewGauge(prometheus.GaugeOpts{
			Name:        "quoter_inventory_base_pct",
			Help:        "基础资产占组合价值比例",
			ConstLabels: labels,
		}),
	}
}

func (c *Collector) IncTick() {
	if c != nil {
		c.ticks.Inc()
	}
}

func (c *Collector) IncTickError() {
	if c != nil {
		c.tickErrors.Inc()
	}
}

func (c *Collector) IncOrderCreated(side string) {
	if c != nil {
		c.ordersCreated.WithLabelValues(side).Inc()
	}
}

func (c *Collector) IncOrderCancelled() {
	if c != nil {
		c.ordersCancelled.Inc()
	}
}

func (c *Collector) IncFill(side string) {
	if c != nil {
		c.fills.WithLabelValues(side).Inc()
	}
}

func (c *Collector) IncRefreshDeferred() {
	if c != nil {
		c.refreshDeferred.Inc()
	}
}

func (c *Collector) SetHangingOrders(n int) {
	if c != nil {
		c.hangingOrders.Set(float64(n))
	}
}

func (c *Collector) SetInventoryBasePct(pct float64) {
	if c != nil {
		c.inventoryBasePct.Set(pct)
	}
}

// Serve 启动Prometheus指标服务器
func Serve(addr string) {
	http.Handle("/metrics", promhttp.Handler())
	go func() {
		_ = http.ListenAndServe(addr, nil)
	}()
}
