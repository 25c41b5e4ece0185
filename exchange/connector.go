package exchange

import "github.com/shopspring/decimal"

// Fee 手续费（百分比，0.001 = 0.1%）。
type Fee struct {
	Percent decimal.Decimal
}

// Connector is everything the quoting core consumes from one exchange
// integration. Submit/Cancel are fire-and-forget: they return a
// client-assigned order id immediately and the actual network exchange
// reports back through Events. Implementations live outside the core;
// the in-repo paper exchange exists for simulation and tests.
type Connector interface {
	// Name 连接器名称（日志/报表用）。
	Name() string

	// Ready reports whether the initial sync (book, balances) is complete.
	Ready() bool
	NetworkStatus() NetworkStatus

	// BestPrice returns the top of book: best bid when isBuy, best ask
	// otherwise. Zero with error when that side is empty.
	BestPrice(tradingPair string, isBuy bool) (decimal.Decimal, error)
	// PriceForVolume probes book depth: the price at which cumulative
	// volume reaches the requested amount on the given side.
	PriceForVolume(tradingPair string, isBuy bool, volume decimal.Decimal) (decimal.Decimal, error)

	Balance(asset string) decimal.Decimal
	AvailableBalance(asset string) decimal.Decimal

	// QuantizePrice 将价格对齐到交易所最小变动单位。
	QuantizePrice(tradingPair string, price decimal.Decimal) decimal.Decimal
	// QuantizeAmount 将数量对齐到步长；price 用于最小名义校验，可为零。
	QuantizeAmount(tradingPair string, amount, price decimal.Decimal) decimal.Decimal
	// PriceQuantum 返回该价位附近的最小价格增量。
	PriceQuantum(tradingPair string, price decimal.Decimal) decimal.Decimal

	Fee(baseAsset, quoteAsset string, orderType OrderType, side Side, amount, price decimal.Decimal) Fee

	// SubmitBuy/SubmitSell 返回客户端订单 ID；真正的下单在带外完成。
	SubmitBuy(tradingPair string, amount, price decimal.Decimal, orderType OrderType) (string, error)
	SubmitSell(tradingPair string, amount, price decimal.Decimal, orderType OrderType) (string, error)
	Cancel(tradingPair string, orderID string) error

	// Events 返回异步订单回报流。
	Events() <-chan OrderEvent
}
