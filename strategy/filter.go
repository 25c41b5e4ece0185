package strategy

import "time"

// State 过滤器可见的策略状态。
type State struct {
	Now          time.Time
	ActiveOrders int
}

// FilterPolicy gates quoting. Mask may strip creation actions from a
// proposal but must leave cancellations untouched, so a quoting-disabled
// strategy can still clean up inconsistent orders.
type FilterPolicy interface {
	ShouldQuote(state State) bool
	Mask(state State, p OrdersProposal) OrdersProposal
}

// AllowAll 默认过滤器：始终放行。
type AllowAll struct{}

func (AllowAll) ShouldQuote(State) bool { return true }

func (AllowAll) Mask(_ State, p OrdersProposal) OrdersProposal { return p }

// NotBefore suppresses order creation until StartAt; cancellations pass
// through untouched.
type NotBefore struct {
	StartAt time.Time
}

func (f NotBefore) ShouldQuote(state State) bool {
	return !state.Now.Before(f.StartAt)
}

func (f NotBefore) Mask(state State, p OrdersProposal) OrdersProposal {
	if f.ShouldQuote(state) {
		return p
	}
	return OrdersProposal{OrderType: p.OrderType, CancelIDs: p.CancelIDs}
}
