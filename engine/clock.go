package engine

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"go.uber.org/zap"

	"pmm-engine-go/infrastructure/logger"
)

// Tickable 由时钟驱动的策略。同一个策略的 Tick 不会并发执行。
type Tickable interface {
	Tick(now time.Time)
}

// Clock drives all registered strategies on a fixed interval. One clock is
// shared per process; ticks for a given strategy never overlap because the
// loop is sequential.
type Clock struct {
	interval time.Duration
	log      *logger.Logger

	mu         sync.Mutex
	strategies []Tickable
	running    bool
	stopChan   chan struct{}
	doneChan   chan struct{}
}

// DefaultTickInterval 默认 1 tick/秒。
const DefaultTickInterval = time.Second

// NewClock 创建时钟；interval<=0 时使用默认值。
func NewClock(interval time.Duration, log *logger.Logger) *Clock {
	if interval <= 0 {
		interval = DefaultTickInterval
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Clock{interval: interval, log: log}
}

// Add 注册一个策略。必须在 Start 之前调用。
func (c *Clock) Add(t Tickable) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.strategies = append(c.strategies, t)
}

// Start 启动时钟主循环。
func (c *Clock) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.running {
		c.mu.Unlock()
		return fmt.Errorf("clock already running")
	}
	c.running = true
	c.stopChan = make(chan struct{})
	c.doneChan = make(chan struct{})
	c.mu.Unlock()

	c.log.Info("Clock starting", zap.Duration("interval", c.interval))
	go c.run(ctx)
	return nil
}

func (c *Clock) run(ctx context.Context) {
	defer close(c.doneChan)

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			c.log.Info("Context done, stopping clock")
			return
		case <-c.stopChan:
			c.log.Info("Stop signal received")
			return
		case now := <-ticker.C:
			c.mu.Lock()
			strategies := c.strategies
			c.mu.Unlock()
			for _, s := range strategies {
				c.tickOne(s, now)
			}
		}
	}
}

// tickOne 单个策略异常不得影响其它策略，也不得终止时钟。
func (c *Clock) tickOne(s Tickable, now time.Time) {
	defer func() {
		if r := recover(); r != nil {
			c.log.Error("Strategy tick panicked",
				zap.Any("panic", r),
				zap.ByteString("stack", debug.Stack()))
		}
	}()
	s.Tick(now)
}

// Stop 停止时钟并等待主循环退出。
func (c *Clock) Stop() {
	c.mu.Lock()
	if !c.running {
		c.mu.Unlock()
		return
	}
	c.running = false
	stop, done := c.stopChan, c.doneChan
	c.mu.Unlock()

	select {
	case <-stop:
	default:
		close(stop)
	}
	select {
	case <-done:
	case <-time.After(10 * time.Second):
		c.log.Warn("Timeout waiting for clock to stop")
	}
}
