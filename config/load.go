package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"pmm-engine-go/infrastructure/logger"
)

// AppConfig holds the main runtime configuration.
type AppConfig struct {
	Env      string                  `yaml:"env"`
	Logging  logger.Config           `yaml:"logging"`
	Metrics  MetricsConfig           `yaml:"metrics"`
	Status   StatusConfig            `yaml:"status"`
	Exchange ExchangeConfig          `yaml:"exchange"`
	Markets  map[string]MarketConfig `yaml:"markets"`

	// TickInterval 时钟周期；0 使用默认 1s
	TickInterval Duration `yaml:"tickInterval"`
}

type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Listen  string `yaml:"listen"`
}

type StatusConfig struct {
	Enabled bool   `yaml:"enabled"`
	Listen  string `yaml:"listen"`
}

type ExchangeConfig struct {
	// Name 连接器名称；目前支持 paper
	Name  string      `yaml:"name"`
	Paper PaperConfig `yaml:"paper"`
}

// PaperConfig 纸面交易所初始状态。
type PaperConfig struct {
	Balances map[string]Decimal  `yaml:"balances"`
	Pairs    map[string]PairRule `yaml:"pairs"`
}

// PairRule 交易对精度与费率（来自 exchangeInfo 的快照）。
type PairRule struct {
	TickSize Decimal `yaml:"tickSize"`
	StepSize Decimal `yaml:"stepSize"`
	FeePct   Decimal `yaml:"feePct"`

	// InitialMid 纸面盘口的初始中间价；模拟行情从这里开始游走
	InitialMid Decimal `yaml:"initialMid"`
}

// MarketConfig 单个被报价市场的策略参数。
type MarketConfig struct {
	BidSpread Decimal `yaml:"bidSpread"`
	AskSpread Decimal `yaml:"askSpread"`

	OrderLevels        int     `yaml:"orderLevels"`        // 每边档位数
	OrderLevelInterval Decimal `yaml:"orderLevelInterval"` // 相邻档位价差比例

	OrderSize          Decimal `yaml:"orderSize"`
	SizingMode         string  `yaml:"sizingMode"` // constant / staggered / inventory_skew
	OrderLevelSizeStep Decimal `yaml:"orderLevelSizeStep"`

	InventoryTargetBasePct   Decimal `yaml:"inventoryTargetBasePct"`
	InventoryRangeMultiplier Decimal `yaml:"inventoryRangeMultiplier"`

	OrderRefreshTime    Duration `yaml:"orderRefreshTime"`
	RefreshTolerancePct Decimal  `yaml:"refreshTolerancePct"` // 负数禁用
	MaxOrderAge         Duration `yaml:"maxOrderAge"`
	FilledOrderDelay    Duration `yaml:"filledOrderDelay"`

	HangingOrdersEnabled   bool    `yaml:"hangingOrdersEnabled"`
	HangingOrdersCancelPct Decimal `yaml:"hangingOrdersCancelPct"`
	PingPongEnabled        bool    `yaml:"pingPongEnabled"`

	MinimumSpread Decimal `yaml:"minimumSpread"`
	PriceCeiling  Decimal `yaml:"priceCeiling"`
	PriceFloor    Decimal `yaml:"priceFloor"`

	OrderOptimizationEnabled bool    `yaml:"orderOptimizationEnabled"`
	BidOptimizationDepth     Decimal `yaml:"bidOptimizationDepth"`
	AskOptimizationDepth     Decimal `yaml:"askOptimizationDepth"`
	TakeIfCrossed            bool    `yaml:"takeIfCrossed"`

	AddTransactionCosts bool   `yaml:"addTransactionCosts"`
	FeeInQuote          bool   `yaml:"feeInQuote"`
	OrderType           string `yaml:"orderType"` // limit / limit_maker

	// StartDelay 启动后延迟报价的时长
	StartDelay Duration `yaml:"startDelay"`
}

// DefaultMarketConfig 返回单市场默认参数。刷新容忍度默认禁用，
// 让显式写 0 的配置表达"严格容忍度"。
func DefaultMarketConfig() MarketConfig {
	return MarketConfig{
		OrderLevels:              1,
		SizingMode:               "constant",
		OrderRefreshTime:         Duration(30 * time.Second),
		RefreshTolerancePct:      Dec("-1"),
		InventoryTargetBasePct:   Dec("0.5"),
		InventoryRangeMultiplier: Dec("1"),
		OrderType:                "limit_maker",
	}
}

// Load reads YAML config from path and applies basic validation.
func Load(path string) (AppConfig, error) {
	var cfg AppConfig
	raw, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return cfg, fmt.Errorf("parse yaml: %w", err)
	}
	cfg.applyDefaults(raw)
	if err := Validate(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// applyDefaults 为每个市场补齐默认值：先解析到默认模板上再覆盖。
func (c *AppConfig) applyDefaults(raw []byte) {
	var shell struct {
		Markets map[string]yaml.Node `yaml:"markets"`
	}
	if err := yaml.Unmarshal(raw, &shell); err != nil {
		return
	}
	if c.Markets == nil && len(shell.Markets) > 0 {
		c.Markets = make(map[string]MarketConfig, len(shell.Markets))
	}
	for pair, node := range shell.Markets {
		mc := DefaultMarketConfig()
		if err := node.Decode(&mc); err != nil {
			continue
		}
		c.Markets[pair] = mc
	}
	if c.Logging.Level == "" {
		c.Logging = logger.DefaultConfig()
	}
}

// LoadWithEnvOverrides loads config then overrides select fields from env
// vars if present.
func LoadWithEnvOverrides(path string) (AppConfig, error) {
	cfg, err := Load(path)
	if err != nil {
		return cfg, err
	}
	if v := os.Getenv("PMM_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("PMM_METRICS_LISTEN"); v != "" {
		cfg.Metrics.Listen = v
	}
	return cfg, Validate(cfg)
}

// Validate ensures required fields are present and consistent. 配置错误
// 一律启动期失败，运行期不做兜底。
func Validate(cfg AppConfig) error {
	if cfg.Env == "" {
		return errors.New("env is required")
	}
	if cfg.Exchange.Name == "" {
		return errors.New("exchange.name is required")
	}
	if len(cfg.Markets) == 0 {
		return errors.New("markets config is required")
	}
	if cfg.TickInterval < 0 {
		return errors.New("tickInterval must be >= 0")
	}

	for pair, rule := range cfg.Exchange.Paper.Pairs {
		if rule.TickSize.Sign() <= 0 {
			return fmt.Errorf("pair %s tickSize must be > 0", pair)
		}
		if rule.StepSize.Sign() <= 0 {
			return fmt.Errorf("pair %s stepSize must be > 0", pair)
		}
		if rule.FeePct.Sign() < 0 {
			return fmt.Errorf("pair %s feePct must be >= 0", pair)
		}
		if rule.InitialMid.Sign() < 0 {
			return fmt.Errorf("pair %s initialMid must be >= 0", pair)
		}
	}

	for pair, mc := range cfg.Markets {
		if err := validateMarket(pair, mc); err != nil {
			return err
		}
	}
	return nil
}

func validateMarket(pair string, mc MarketConfig) error {
	if !strings.Contains(pair, "-") {
		return fmt.Errorf("market %s must be in BASE-QUOTE form", pair)
	}
	one := decimal.NewFromInt(1)
	if mc.BidSpread.Sign() <= 0 || mc.BidSpread.GreaterThanOrEqual(one) {
		return fmt.Errorf("market %s bidSpread must be in (0, 1)", pair)
	}
	if mc.AskSpread.Sign() <= 0 || mc.AskSpread.GreaterThanOrEqual(one) {
		return fmt.Errorf("market %s askSpread must be in (0, 1)", pair)
	}
	if mc.OrderLevels < 1 {
		return fmt.Errorf("market %s orderLevels must be >= 1", pair)
	}
	if mc.OrderLevels > 1 && mc.OrderLevelInterval.Sign() <= 0 {
		return fmt.Errorf("market %s orderLevelInterval must be > 0 for multi-level quoting", pair)
	}
	if mc.OrderSize.Sign() <= 0 {
		return fmt.Errorf("market %s orderSize must be > 0", pair)
	}
	switch mc.SizingMode {
	case "constant", "inventory_skew":
	case "staggered":
		if mc.OrderLevelSizeStep.Sign() < 0 {
			return fmt.Errorf("market %s orderLevelSizeStep must be >= 0", pair)
		}
	default:
		return fmt.Errorf("market %s unknown sizingMode %q", pair, mc.SizingMode)
	}
	if mc.SizingMode == "inventory_skew" {
		if mc.InventoryTargetBasePct.Sign() < 0 || mc.InventoryTargetBasePct.GreaterThan(one) {
			return fmt.Errorf("market %s inventoryTargetBasePct must be in [0, 1]", pair)
		}
		if mc.InventoryRangeMultiplier.Sign() <= 0 {
			return fmt.Errorf("market %s inventoryRangeMultiplier must be > 0", pair)
		}
	}
	if mc.OrderRefreshTime < 0 || mc.MaxOrderAge < 0 || mc.FilledOrderDelay < 0 || mc.StartDelay < 0 {
		return fmt.Errorf("market %s durations must be >= 0", pair)
	}
	if mc.HangingOrdersEnabled && mc.HangingOrdersCancelPct.Sign() <= 0 {
		return fmt.Errorf("market %s hangingOrdersCancelPct must be > 0 when hanging orders enabled", pair)
	}
	if mc.MinimumSpread.Sign() < 0 {
		return fmt.Errorf("market %s minimumSpread must be >= 0", pair)
	}
	if mc.PriceCeiling.Sign() > 0 && mc.PriceFloor.Sign() > 0 &&
		mc.PriceCeiling.LessThan(mc.PriceFloor.Decimal) {
		return fmt.Errorf("market %s priceCeiling must be >= priceFloor", pair)
	}
	if mc.OrderOptimizationEnabled {
		if mc.BidOptimizationDepth.Sign() < 0 || mc.AskOptimizationDepth.Sign() < 0 {
			return fmt.Errorf("market %s optimization depths must be >= 0", pair)
		}
	}
	switch mc.OrderType {
	case "limit", "limit_maker":
	default:
		return fmt.Errorf("market %s unknown orderType %q", pair, mc.OrderType)
	}
	return nil
}
