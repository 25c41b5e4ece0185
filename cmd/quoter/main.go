package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"pmm-engine-go/config"
	"pmm-engine-go/engine"
	"pmm-engine-go/exchange"
	"pmm-engine-go/exchange/paper"
	"pmm-engine-go/infrastructure/logger"
	"pmm-engine-go/metrics"
	"pmm-engine-go/strategy"
)

func main() {
	cfgPath := flag.String("config", "configs/config.yaml", "配置文件路径")
	driveBook := flag.Bool("driveBook", true, "纸面模式下模拟行情游走")
	flag.Parse()

	cfg, err := config.LoadWithEnvOverrides(*cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Close()
	log.Info("Quoter starting", zap.String("env", cfg.Env), zap.String("exchange", cfg.Exchange.Name))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	connector, err := buildConnector(ctx, cfg, *driveBook)
	if err != nil {
		log.Fatal("Build connector failed", zap.Error(err))
	}
	readiness := engine.NewReadinessGroup(connector)

	engines := make(map[string]*engine.Engine, len(cfg.Markets))
	for pair, mc := range cfg.Markets {
		eng, err := buildEngine(connector, readiness, pair, mc, log)
		if err != nil {
			log.Fatal("Build engine failed", zap.String("market", pair), zap.Error(err))
		}
		engines[pair] = eng
	}

	clock := engine.NewClock(cfg.TickInterval.D(), log)
	for _, eng := range engines {
		clock.Add(eng)
	}

	if cfg.Metrics.Enabled && cfg.Metrics.Listen != "" {
		metrics.Serve(cfg.Metrics.Listen)
		log.Info("Metrics listening", zap.String("addr", cfg.Metrics.Listen))
	}
	if cfg.Status.Enabled && cfg.Status.Listen != "" {
		go serveStatus(cfg.Status.Listen, engines, log)
	}

	reloader, err := config.NewReloader(*cfgPath, config.DefaultReloadConfig(), log)
	if err != nil {
		log.Fatal("Create config reloader failed", zap.Error(err))
	}
	reloader.OnUpdate(func(next config.AppConfig) {
		applyReload(engines, next, log)
	})
	if err := reloader.Start(ctx); err != nil {
		log.Warn("Config reloader not started", zap.Error(err))
	}
	defer reloader.Stop()

	if err := clock.Start(ctx); err != nil {
		log.Fatal("Clock start failed", zap.Error(err))
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigChan
	log.Info("Shutting down", zap.String("signal", sig.String()))

	clock.Stop()
	for pair, eng := range engines {
		log.Info("Cancelling open orders", zap.String("market", pair))
		eng.Stop()
	}
	cancel()
	log.Info("Quoter stopped")
}

// buildConnector 目前只支持纸面交易所；真实交易所连接器在各自包中
// 实现同一接口后在这里接入。
func buildConnector(ctx context.Context, cfg config.AppConfig, driveBook bool) (exchange.Connector, error) {
	if cfg.Exchange.Name != "paper" {
		return nil, fmt.Errorf("unsupported exchange %q", cfg.Exchange.Name)
	}

	ex := paper.New("paper")
	for asset, amount := range cfg.Exchange.Paper.Balances {
		ex.SetBalance(asset, amount.Decimal)
	}
	for pair, rule := range cfg.Exchange.Paper.Pairs {
		ex.AddPair(pair, paper.Rule{
			PriceTick:  rule.TickSize.Decimal,
			AmountStep: rule.StepSize.Decimal,
			FeePct:     rule.FeePct.Decimal,
		})
		if rule.InitialMid.Sign() > 0 {
			seedBook(ex, pair, rule.InitialMid.Decimal)
			if driveBook {
				d := &paper.Driver{Exchange: ex, Pair: pair}
				d.Start(ctx)
			}
		}
	}
	ex.SetReady(true)
	return ex, nil
}

func seedBook(ex *paper.Exchange, pair string, mid decimal.Decimal) {
	half := mid.Mul(decimal.RequireFromString("0.0002"))
	ex.SetBook(pair, ex.QuantizePrice(pair, mid.Sub(half)), ex.QuantizePrice(pair, mid.Add(half)))
}

func buildEngine(connector exchange.Connector, readiness *engine.ReadinessGroup, pair string, mc config.MarketConfig, log *logger.Logger) (*engine.Engine, error) {
	market, err := exchange.NewMarketInfo(connector, pair)
	if err != nil {
		return nil, err
	}
	pricing, sizing, filter, err := buildPolicies(mc, time.Now())
	if err != nil {
		return nil, err
	}
	return engine.New(engineConfig(mc), engine.Components{
		Market:    market,
		Pricing:   pricing,
		Sizing:    sizing,
		Filter:    filter,
		Readiness: readiness,
		Logger:    log,
		Metrics:   metrics.NewCollector(connector.Name() + ":" + pair),
	})
}

func buildPolicies(mc config.MarketConfig, now time.Time) (strategy.PricingPolicy, strategy.SizingPolicy, strategy.FilterPolicy, error) {
	params := strategy.Params{
		BidSpread:       mc.BidSpread.Decimal,
		AskSpread:       mc.AskSpread.Decimal,
		OrderLevels:     mc.OrderLevels,
		LevelInterval:   mc.OrderLevelInterval.Decimal,
		Sizing:          strategy.SizingMode(mc.SizingMode),
		OrderSize:       mc.OrderSize.Decimal,
		OrderStepSize:   mc.OrderLevelSizeStep.Decimal,
		TargetBasePct:   mc.InventoryTargetBasePct.Decimal,
		RangeMultiplier: mc.InventoryRangeMultiplier.Decimal,
	}
	if mc.StartDelay > 0 {
		params.QuoteStartAt = now.Add(mc.StartDelay.D())
	}

	pricing, err := strategy.BuildPricing(params)
	if err != nil {
		return nil, nil, nil, err
	}
	sizing, err := strategy.BuildSizing(params)
	if err != nil {
		return nil, nil, nil, err
	}
	filter, err := strategy.BuildFilter(params)
	if err != nil {
		return nil, nil, nil, err
	}
	return pricing, sizing, filter, nil
}

func engineConfig(mc config.MarketConfig) engine.Config {
	orderType := exchange.OrderTypeLimitMaker
	if mc.OrderType == "limit" {
		orderType = exchange.OrderTypeLimit
	}
	return engine.Config{
		OrderType:                orderType,
		OrderRefreshTime:         mc.OrderRefreshTime.D(),
		RefreshTolerancePct:      mc.RefreshTolerancePct.Decimal,
		MaxOrderAge:              mc.MaxOrderAge.D(),
		FilledOrderDelay:         mc.FilledOrderDelay.D(),
		HangingOrdersEnabled:     mc.HangingOrdersEnabled,
		HangingOrdersCancelPct:   mc.HangingOrdersCancelPct.Decimal,
		PingPongEnabled:          mc.PingPongEnabled,
		MinimumSpread:            mc.MinimumSpread.Decimal,
		PriceCeiling:             mc.PriceCeiling.Decimal,
		PriceFloor:               mc.PriceFloor.Decimal,
		OrderOptimizationEnabled: mc.OrderOptimizationEnabled,
		BidOptimizationDepth:     mc.BidOptimizationDepth.Decimal,
		AskOptimizationDepth:     mc.AskOptimizationDepth.Decimal,
		TakeIfCrossed:            mc.TakeIfCrossed,
		AddTransactionCosts:      mc.AddTransactionCosts,
		FeeInQuote:               mc.FeeInQuote,
	}
}

// applyReload 将新配置映射为各引擎的可热更参数；单个市场失败不影响
// 其它市场。新增/删除市场需要重启进程。
func applyReload(engines map[string]*engine.Engine, next config.AppConfig, log *logger.Logger) {
	for pair, eng := range engines {
		mc, ok := next.Markets[pair]
		if !ok {
			log.Warn("Market missing from reloaded config, keeping previous params",
				zap.String("market", pair))
			continue
		}
		pricing, sizing, _, err := buildPolicies(mc, time.Now())
		if err != nil {
			log.Warn("Reloaded market params rejected",
				zap.String("market", pair), zap.Error(err))
			continue
		}
		if err := eng.ApplyTunables(engine.Tunables{
			Config:  engineConfig(mc),
			Pricing: pricing,
			Sizing:  sizing,
		}); err != nil {
			log.Warn("Apply tunables failed", zap.String("market", pair), zap.Error(err))
			continue
		}
		log.Info("Market params updated", zap.String("market", pair))
	}
}

func serveStatus(addr string, engines map[string]*engine.Engine, log *logger.Logger) {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("/status", func(w http.ResponseWriter, _ *http.Request) {
		now := time.Now()
		reports := make(map[string]engine.Report, len(engines))
		for pair, eng := range engines {
			reports[pair] = eng.Status(now)
		}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(reports); err != nil {
			log.Warn("Encode status failed", zap.Error(err))
		}
	})
	log.Info("Status endpoint listening", zap.String("addr", addr))
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Warn("Status server exited", zap.Error(err))
	}
}
