package config

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"pmm-engine-go/infrastructure/logger"
)

// ReloadConfig 热更新配置
type ReloadConfig struct {
	Enabled      bool
	CooldownTime time.Duration // 冷却时间，避免编辑器连续写入触发多次重载
}

// DefaultReloadConfig 默认热更新配置
func DefaultReloadConfig() ReloadConfig {
	return ReloadConfig{
		Enabled:      true,
		CooldownTime: 5 * time.Second,
	}
}

// Reloader 监听配置文件变化，重新加载并通过回调下发。加载或校验
// 失败时保留旧配置并告警，不会把坏配置推给运行中的引擎。
type Reloader struct {
	cfg        ReloadConfig
	configPath string
	watcher    *fsnotify.Watcher
	log        *logger.Logger

	mu         sync.Mutex
	lastReload time.Time
	onUpdate   func(AppConfig)

	stopChan chan struct{}
	doneChan chan struct{}
}

// NewReloader 创建热更新器。
func NewReloader(configPath string, cfg ReloadConfig, log *logger.Logger) (*Reloader, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Reloader{
		cfg:        cfg,
		configPath: configPath,
		watcher:    watcher,
		log:        log.Named("config-reload"),
		stopChan:   make(chan struct{}),
		doneChan:   make(chan struct{}),
	}, nil
}

// OnUpdate 注册配置更新回调。必须在 Start 之前调用。
func (r *Reloader) OnUpdate(fn func(AppConfig)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onUpdate = fn
}

// Start 启动监听。
func (r *Reloader) Start(ctx context.Context) error {
	if !r.cfg.Enabled {
		return nil
	}
	if err := r.watcher.Add(r.configPath); err != nil {
		return fmt.Errorf("watch config file: %w", err)
	}
	go r.watch(ctx)
	return nil
}

// Stop 停止监听并关闭 watcher。
func (r *Reloader) Stop() error {
	if !r.cfg.Enabled {
		return r.watcher.Close()
	}
	select {
	case <-r.stopChan:
	default:
		close(r.stopChan)
	}
	select {
	case <-r.doneChan:
	case <-time.After(time.Second):
	}
	return r.watcher.Close()
}

func (r *Reloader) watch(ctx context.Context) {
	defer close(r.doneChan)
	for {
		select {
		case <-ctx.Done():
			return
		case <-r.stopChan:
			return
		case event, ok := <-r.watcher.Events:
			if !ok {
				return
			}
			if event.Op&fsnotify.Write == fsnotify.Write ||
				event.Op&fsnotify.Create == fsnotify.Create {
				r.handleChange()
			}
		case err, ok := <-r.watcher.Errors:
			if !ok {
				return
			}
			r.log.Warn("Watcher error", zap.Error(err))
		}
	}
}

func (r *Reloader) handleChange() {
	r.mu.Lock()
	if time.Since(r.lastReload) < r.cfg.CooldownTime {
		r.mu.Unlock()
		return
	}
	r.lastReload = time.Now()
	onUpdate := r.onUpdate
	r.mu.Unlock()

	cfg, err := LoadWithEnvOverrides(r.configPath)
	if err != nil {
		r.log.Warn("Reload rejected, keeping previous config", zap.Error(err))
		return
	}
	r.log.Info("Config reloaded", zap.String("path", r.configPath))
	if onUpdate != nil {
		onUpdate(cfg)
	}
}

// LastReloadTime 最近一次重载时间。
func (r *Reloader) LastReloadTime() time.Time {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lastReload
}
