package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"
	"go.uber.org/zap"

	"tv-executor-go/config"
	"tv-executor-go/dedup"
	"tv-executor-go/gateway"
	"tv-executor-go/httpapi"
	"tv-executor-go/infrastructure/alert"
	"tv-executor-go/infrastructure/logger"
	"tv-executor-go/metrics"
	"tv-executor-go/order"
	"tv-executor-go/symbols"
)

func main() {
	cfgPath := flag.String("config", "configs/config.yaml", "配置文件路径")
	listen := flag.String("listen", "", "覆盖 HTTP 监听地址")
	metricsAddr := flag.String("metricsAddr", "", "覆盖 Prometheus metrics 监听地址")
	dryRun := flag.Bool("dryRun", false, "演练模式：仓位与下单在内存模拟，不触碰真实交易接口")
	flag.Parse()

	cfg, err := config.LoadWithEnvOverrides(*cfgPath)
	if err != nil {
		log.Fatalf("加载配置失败: %v", err)
	}
	if *listen != "" {
		cfg.Listen = *listen
	}
	if *metricsAddr != "" {
		cfg.MetricsAddr = *metricsAddr
	}

	lg, err := logger.New(logger.Config{Level: cfg.Log.Level, Format: cfg.Log.Format})
	if err != nil {
		log.Fatalf("初始化日志失败: %v", err)
	}
	defer lg.Close()

	if cfg.MetricsAddr != "" {
		metrics.StartMetricsServer(cfg.MetricsAddr)
		lg.Info("metrics listening", zap.String("addr", cfg.MetricsAddr))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Dedup store: Redis in production. The in-memory fallback only protects a
	// single process and loses state on restart.
	var store dedup.Store
	var redisStore *dedup.RedisStore
	if cfg.Redis.URL != "" {
		redisStore, err = dedup.NewRedisStore(cfg.Redis.URL)
		if err != nil {
			log.Fatalf("连接 Redis 失败: %v", err)
		}
		defer redisStore.Close()
		store = redisStore
	} else {
		lg.Warn("redis url empty, falling back to in-memory dedup store")
		store = dedup.NewMemoryStore()
	}
	guard := dedup.NewGuard(store, cfg.Dedup.Prefix, dedup.TTLConfig{
		Enter:   time.Duration(cfg.Dedup.TTLEnterSec) * time.Second,
		Exit:    time.Duration(cfg.Dedup.TTLExitSec) * time.Second,
		Default: time.Duration(cfg.Dedup.TTLDefaultSec) * time.Second,
	})

	restClient := &gateway.BybitRESTClient{
		BaseURL:      cfg.Gateway.BaseURL,
		APIKey:       cfg.Gateway.APIKey,
		Secret:       cfg.Gateway.APISecret,
		RecvWindowMs: cfg.Gateway.RecvWindowMs,
		HTTPClient:   gateway.NewDefaultHTTPClient(),
		Limiter:      gateway.NewTokenBucketLimiter(cfg.Gateway.RestRate, cfg.Gateway.RestBurst),
	}
	var exchange order.Exchange = restClient
	if *dryRun {
		// 合约参数仍走真实只读接口，其余全部模拟。
		exchange = gateway.NewDryRunExchange(restClient, lg.Logger)
		lg.Warn("dry-run mode: orders and positions are simulated")
	}

	poller := &order.Poller{
		Exchange: exchange,
		Attempts: cfg.Trading.PollAttempts,
		Interval: time.Duration(cfg.Trading.PollIntervalMs) * time.Millisecond,
	}
	// Private WS position stream is a freshness fast path for the poller; the
	// REST snapshot stays authoritative when the cache is stale. In dry-run
	// the feed would report real positions against simulated ones, so skip it.
	if cfg.Gateway.WSURL != "" && !*dryRun {
		feed := gateway.NewPositionFeed(cfg.Gateway.WSURL, cfg.Gateway.APIKey, cfg.Gateway.APISecret)
		poller.Cache = feed
		poller.CacheAge = 2 * time.Second
		go func() {
			if err := feed.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				lg.Error("position feed exited", zap.Error(err))
			}
		}()
	}

	channels := []alert.Channel{alert.NewZapChannel("zap", lg.Logger)}
	if cfg.Notify.WebhookURL != "" {
		channels = append(channels, alert.NewWebhookChannel("webhook", cfg.Notify.WebhookURL, nil))
	}
	notifier := alert.NewManager(channels, time.Duration(cfg.Notify.ThrottleSec)*time.Second)

	orch := order.NewOrchestrator(exchange, poller, lg)
	orch.Notifier = notifier
	orch.AllowEnterWhileOpen = cfg.Trading.EnterIfPositionOpen

	mapper := symbols.NewMapper(cfg.Symbols.Translate, cfg.Symbols.PriceMult)
	srv := httpapi.NewServer(orch, guard, mapper, cfg, lg)

	// 符号表热更新：allowlist / translate / priceMult 改了不用重启。
	if watcher, err := config.NewWatcher(*cfgPath); err != nil {
		lg.Warn("config watcher unavailable", zap.Error(err))
	} else {
		go func() {
			_ = watcher.Run(ctx,
				func(tables config.SymbolTables) {
					mapper.Swap(tables.Translate, tables.PriceMult)
					srv.SetAllowlist(tables.Allowlist)
					lg.Info("symbol tables reloaded",
						zap.Int("allowlist", len(tables.Allowlist)),
						zap.Int("translate", len(tables.Translate)))
				},
				func(err error) {
					lg.Error("config reload failed, keeping previous tables", zap.Error(err))
				})
		}()
	}

	httpServer := &http.Server{
		Addr:              cfg.Listen,
		Handler:           srv.R,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		lg.Info("webhook listening", zap.String("addr", cfg.Listen), zap.String("env", cfg.Env))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			lg.Error("http server exited", zap.Error(err))
			cancel()
		}
	}()
	_, _ = daemon.SdNotify(false, daemon.SdNotifyReady)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case <-ctx.Done():
	}
	_, _ = daemon.SdNotify(false, daemon.SdNotifyStopping)
	lg.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		lg.Error("http shutdown", zap.Error(err))
	}
	cancel()
}
