package exchange

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Side 订单方向
type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// Opposite 返回对手方向。
func (s Side) Opposite() Side {
	if s == SideBuy {
		return SideSell
	}
	return SideBuy
}

// OrderType 订单类型
type OrderType string

const (
	OrderTypeLimit      OrderType = "LIMIT"
	OrderTypeLimitMaker OrderType = "LIMIT_MAKER"
	OrderTypeMarket     OrderType = "MARKET"
)

// NetworkStatus reports connector link state.
type NetworkStatus int

const (
	NetworkConnected NetworkStatus = iota
	NetworkNotConnected
)

func (n NetworkStatus) String() string {
	if n == NetworkConnected {
		return "CONNECTED"
	}
	return "NOT_CONNECTED"
}

// MarketInfo identifies one (connector, trading pair) being quoted.
// Immutable after construction; one per quoted market.
type MarketInfo struct {
	Connector   Connector
	TradingPair string
	BaseAsset   string
	QuoteAsset  string
}

// NewMarketInfo derives base/quote assets from a "BASE-QUOTE" pair.
func NewMarketInfo(c Connector, tradingPair string) (MarketInfo, error) {
	parts := strings.SplitN(tradingPair, "-", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return MarketInfo{}, fmt.Errorf("invalid trading pair %q, want BASE-QUOTE", tradingPair)
	}
	return MarketInfo{
		Connector:   c,
		TradingPair: tradingPair,
		BaseAsset:   parts[0],
		QuoteAsset:  parts[1],
	}, nil
}

// MidPrice 返回盘口中间价；任一侧缺失时返回错误。
func (m MarketInfo) MidPrice() (decimal.Decimal, error) {
	bid, err := m.Connector.BestPrice(m.TradingPair, true)
	if err != nil {
		return decimal.Zero, fmt.Errorf("best bid: %w", err)
	}
	ask, err := m.Connector.BestPrice(m.TradingPair, false)
	if err != nil {
		return decimal.Zero, fmt.Errorf("best ask: %w", err)
	}
	if bid.IsZero() || ask.IsZero() {
		return decimal.Zero, fmt.Errorf("order book empty for %s", m.TradingPair)
	}
	return bid.Add(ask).Div(decimal.NewFromInt(2)), nil
}

// BaseBalance / QuoteBalance 读取总余额快照。
func (m MarketInfo) BaseBalance() decimal.Decimal  { return m.Connector.Balance(m.BaseAsset) }
func (m MarketInfo) QuoteBalance() decimal.Decimal { return m.Connector.Balance(m.QuoteAsset) }

// LimitOrder is the engine's view of one resting order. Only the order
// tracker mutates bookkeeping around it; policies treat it as read-only.
type LimitOrder struct {
	ID          string
	TradingPair string
	Side        Side
	BaseAsset   string
	QuoteAsset  string
	Price       decimal.Decimal
	Quantity    decimal.Decimal
	CreatedAt   time.Time
}

// IsBuy 是否买单。
func (o LimitOrder) IsBuy() bool { return o.Side == SideBuy }

// Age returns how long the order has been resting. CreatedAt is carried
// explicitly instead of being parsed back out of the id.
func (o LimitOrder) Age(now time.Time) time.Duration {
	if o.CreatedAt.IsZero() {
		return 0
	}
	return now.Sub(o.CreatedAt)
}

// NewClientOrderID 生成客户端订单 ID（side 前缀便于日志排查）。
func NewClientOrderID(side Side, tradingPair string) string {
	prefix := "sell"
	if side == SideBuy {
		prefix = "buy"
	}
	pair := strings.ReplaceAll(strings.ToLower(tradingPair), "-", "")
	return fmt.Sprintf("%s-%s-%s", prefix, pair, uuid.NewString())
}
