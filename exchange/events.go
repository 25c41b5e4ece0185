package exchange

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderEventType 连接器异步回报类型
type OrderEventType int

const (
	// EventOrderFilled 部分或全部成交（非终态本身，终态由 Completed 事件表示）
	EventOrderFilled OrderEventType = iota
	// EventBuyOrderCompleted 买单完全成交
	EventBuyOrderCompleted
	// EventSellOrderCompleted 卖单完全成交
	EventSellOrderCompleted
	// EventOrderCancelled 订单已撤销
	EventOrderCancelled
	// EventOrderExpired 订单已过期
	EventOrderExpired
	// EventOrderFailed 订单被交易所拒绝
	EventOrderFailed
)

func (t OrderEventType) String() string {
	switch t {
	case EventOrderFilled:
		return "ORDER_FILLED"
	case EventBuyOrderCompleted:
		return "BUY_ORDER_COMPLETED"
	case EventSellOrderCompleted:
		return "SELL_ORDER_COMPLETED"
	case EventOrderCancelled:
		return "ORDER_CANCELLED"
	case EventOrderExpired:
		return "ORDER_EXPIRED"
	case EventOrderFailed:
		return "ORDER_FAILED"
	default:
		return "UNKNOWN"
	}
}

// Terminal 是否为终态事件（订单从此不再活跃）。
func (t OrderEventType) Terminal() bool {
	switch t {
	case EventBuyOrderCompleted, EventSellOrderCompleted,
		EventOrderCancelled, EventOrderExpired, EventOrderFailed:
		return true
	default:
		return false
	}
}

// OrderEvent is one asynchronous report from a connector. Price/Amount are
// only meaningful for fill events.
type OrderEvent struct {
	Type        OrderEventType
	OrderID     string
	TradingPair string
	Side        Side
	Price       decimal.Decimal
	Amount      decimal.Decimal
	Timestamp   time.Time
}
