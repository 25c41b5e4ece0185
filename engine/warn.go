package engine

import "pmm-engine-go/exchange"

// warnGate 限频告警：条件首次出现时记录一次，持续期间保持沉默，
// 条件消失后重新武装。
type warnGate struct {
	raised bool
}

// Raise 条件成立时调用；仅在首次触发时执行 fn。
func (g *warnGate) Raise(fn func()) {
	if g.raised {
		return
	}
	g.raised = true
	fn()
}

// Clear 条件解除，重新武装。
func (g *warnGate) Clear() {
	g.raised = false
}

// ReadinessGroup 聚合多个连接器的就绪状态：进程内所有被报价市场的
// 连接器都完成初始同步前，任何引擎都不开始报价。
type ReadinessGroup struct {
	connectors []exchange.Connector
}

// NewReadinessGroup 创建就绪检查组。
func NewReadinessGroup(cs ...exchange.Connector) *ReadinessGroup {
	return &ReadinessGroup{connectors: cs}
}

// Add 追加一个连接器。
func (g *ReadinessGroup) Add(c exchange.Connector) {
	g.connectors = append(g.connectors, c)
}

// AllReady 所有连接器均已就绪且在线。
func (g *ReadinessGroup) AllReady() bool {
	for _, c := range g.connectors {
		if !c.Ready() || c.NetworkStatus() != exchange.NetworkConnected {
			return false
		}
	}
	return len(g.connectors) > 0
}
