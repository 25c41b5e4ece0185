package strategy

import (
	"errors"

	"github.com/shopspring/decimal"

	"pmm-engine-go/exchange"
)

// stubConnector 测试用连接器：固定盘口、余额与量化参数。
type stubConnector struct {
	bestBid, bestAsk decimal.Decimal
	depthBid         decimal.Decimal // PriceForVolume 返回值（买边）
	depthAsk         decimal.Decimal
	balances         map[string]decimal.Decimal
	tick             decimal.Decimal
	step             decimal.Decimal
	feePct           decimal.Decimal
}

func newStubConnector() *stubConnector {
	return &stubConnector{
		bestBid:  decimal.RequireFromString("99.5"),
		bestAsk:  decimal.RequireFromString("100.5"),
		balances: map[string]decimal.Decimal{},
		tick:     decimal.RequireFromString("0.0001"),
		step:     decimal.RequireFromString("0.0001"),
	}
}

func (s *stubConnector) Name() string                           { return "stub" }
func (s *stubConnector) Ready() bool                            { return true }
func (s *stubConnector) NetworkStatus() exchange.NetworkStatus  { return exchange.NetworkConnected }
func (s *stubConnector) Events() <-chan exchange.OrderEvent     { return nil }
func (s *stubConnector) Balance(asset string) decimal.Decimal   { return s.balances[asset] }
func (s *stubConnector) AvailableBalance(a string) decimal.Decimal {
	return s.balances[a]
}

func (s *stubConnector) BestPrice(_ string, isBuy bool) (decimal.Decimal, error) {
	if isBuy {
		if s.bestBid.IsZero() {
			return decimal.Zero, errors.New("empty bid side")
		}
		return s.bestBid, nil
	}
	if s.bestAsk.IsZero() {
		return decimal.Zero, errors.New("empty ask side")
	}
	return s.bestAsk, nil
}

func (s *stubConnector) PriceForVolume(_ string, isBuy bool, _ decimal.Decimal) (decimal.Decimal, error) {
	if isBuy {
		return s.depthBid, nil
	}
	return s.depthAsk, nil
}

func (s *stubConnector) QuantizePrice(_ string, p decimal.Decimal) decimal.Decimal {
	if p.Sign() <= 0 {
		return decimal.Zero
	}
	return p.Div(s.tick).Floor().Mul(s.tick)
}

func (s *stubConnector) QuantizeAmount(_ string, a, _ decimal.Decimal) decimal.Decimal {
	if a.Sign() <= 0 {
		return decimal.Zero
	}
	return a.Div(s.step).Floor().Mul(s.step)
}

func (s *stubConnector) PriceQuantum(_ string, _ decimal.Decimal) decimal.Decimal { return s.tick }

func (s *stubConnector) Fee(_, _ string, _ exchange.OrderType, _ exchange.Side, _, _ decimal.Decimal) exchange.Fee {
	return exchange.Fee{Percent: s.feePct}
}

func (s *stubConnector) SubmitBuy(pair string, _, _ decimal.Decimal, _ exchange.OrderType) (string, error) {
	return exchange.NewClientOrderID(exchange.SideBuy, pair), nil
}

func (s *stubConnector) SubmitSell(pair string, _, _ decimal.Decimal, _ exchange.OrderType) (string, error) {
	return exchange.NewClientOrderID(exchange.SideSell, pair), nil
}

func (s *stubConnector) Cancel(string, string) error { return nil }

func stubMarket(c exchange.Connector) exchange.MarketInfo {
	m, _ := exchange.NewMarketInfo(c, "HBOT-ETH")
	return m
}
