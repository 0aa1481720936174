package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"MarketPulse/internal/api"
	"MarketPulse/internal/collector"
	"MarketPulse/internal/config"
	"MarketPulse/internal/ingest"
	"MarketPulse/internal/metrics"
	"MarketPulse/internal/notifier"
	"MarketPulse/internal/projector"
	"MarketPulse/internal/recorder"
	"MarketPulse/internal/scheduler"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("[INFO] MarketPulse starting...")

	// Load config
	cfgPath := "configs/config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		cfgPath = v
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("[FATAL] load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("[FATAL] config validation: %v", err)
	}

	// Context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Init source
	source := newSource(cfg)
	log.Printf("[INFO] data source: %s", source.Name())
	col := collector.NewCollector(source, cfg.Source.Concurrency)

	// Init destination. A failed connection leaves the runner without one,
	// so every run reports a run-fatal error instead of writing.
	var dest recorder.Destination
	if d, err := openDestination(ctx, cfg); err != nil {
		log.Printf("[ERROR] init %s destination: %v", cfg.Destination.Driver, err)
	} else {
		dest = d
		defer d.Close()
	}

	// Metrics
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	runner := ingest.NewRunner(col, dest, tables(cfg), ingest.Params{
		Interval: cfg.Source.Interval,
		Count:    cfg.Source.Count,
		Limit:    cfg.Source.SymbolLimit,
	})
	runner.Metrics = m

	// Optional Redis mirror
	if cfg.Mirror.RedisAddr != "" {
		rd, err := recorder.NewRedisDestination(recorder.RedisConfig{
			Addr:      cfg.Mirror.RedisAddr,
			Password:  cfg.Mirror.RedisPassword,
			DB:        cfg.Mirror.RedisDB,
			KeyPrefix: cfg.Mirror.KeyPrefix,
		})
		if err != nil {
			log.Printf("[WARN] redis mirror disabled: %v", err)
		} else {
			runner.Mirrors = append(runner.Mirrors, rd)
			defer rd.Close()
		}
	}

	// One-shot mode: run once, print the summary and exit
	if os.Getenv("RUN_ONCE") == "true" {
		report, err := runner.Run(ctx, ingest.Params{})
		if err != nil {
			log.Fatalf("[FATAL] ingest: %v", err)
		}
		fmt.Println(notifier.RenderTable(report))
		return
	}

	// Init Telegram notifier
	var tn *notifier.TelegramNotifier
	if cfg.TelegramEnabled() {
		tn = notifier.NewTelegramNotifier(cfg.Telegram.BotToken, cfg.Telegram.ChatID, cfg.Proxy)
	}

	// Init scheduler
	sched := scheduler.NewScheduler(ctx, runner, tn, cfg.StateFile)
	if err := sched.Restore(); err != nil {
		log.Printf("[WARN] %v", err)
	}
	if err := sched.RegisterIngest(cfg.Schedule.Cron); err != nil {
		log.Fatalf("[FATAL] register cron tasks: %v", err)
	}
	sched.Start()
	defer sched.Stop()

	// Start Telegram polling
	if tn != nil {
		go tn.StartPolling(ctx, sched.HandleCommand)
		log.Println("[INFO] Telegram polling started")
	}

	// HTTP API
	var srv *http.Server
	if cfg.HTTP.Addr != "" {
		gin.SetMode(gin.ReleaseMode)
		router := api.NewRouter(sched, promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
		srv = &http.Server{Addr: cfg.HTTP.Addr, Handler: router.Engine()}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Printf("[ERROR] http server: %v", err)
			}
		}()
		log.Printf("[INFO] HTTP API listening on %s", cfg.HTTP.Addr)
	}

	// Optional: run immediately on start
	if os.Getenv("RUN_ON_START") == "true" {
		log.Println("[INFO] RUN_ON_START enabled, executing ingest now")
		go func() {
			if _, err := sched.RunNow(ctx, ingest.Params{}); err != nil {
				log.Printf("[ERROR] startup ingest: %v", err)
			}
		}()
	}

	log.Println("[INFO] MarketPulse is running. Press Ctrl+C to stop.")

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Println("[INFO] shutdown signal received, stopping...")
	if srv != nil {
		shutdownCtx, done := context.WithTimeout(context.Background(), 10*time.Second)
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Printf("[WARN] http shutdown: %v", err)
		}
		done()
	}
	cancel()
	log.Println("[INFO] MarketPulse stopped")
}

func newSource(cfg *config.Config) collector.Source {
	timeout := time.Duration(cfg.Source.TimeoutSeconds) * time.Second
	switch cfg.Source.Provider {
	case config.ProviderBinance:
		return collector.NewBinanceFetcher(cfg.Source.BaseURL, cfg.Proxy, timeout)
	case config.ProviderMock:
		return &collector.MockFetcher{Prices: map[string]float64{"BTC": 60000, "ETH": 3000, "SOL": 150}}
	default:
		return collector.NewHyperliquidFetcher(cfg.Source.BaseURL, cfg.Proxy, timeout)
	}
}

func openDestination(ctx context.Context, cfg *config.Config) (recorder.Destination, error) {
	d := cfg.Destination
	switch d.Driver {
	case config.DriverPostgres:
		pingCtx, done := context.WithTimeout(ctx, 15*time.Second)
		defer done()
		store, err := recorder.NewPostgresStore(pingCtx, d.DSN, d.Schema)
		if err != nil {
			return nil, err
		}
		return recorder.NewWriter(store, d.ChunkSize), nil
	case config.DriverSQLite:
		if dir := filepath.Dir(d.DSN); dir != "" {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return nil, fmt.Errorf("create data dir: %w", err)
			}
		}
		store, err := recorder.NewSQLiteStore(d.DSN)
		if err != nil {
			return nil, err
		}
		if *d.AutoMigrate {
			if err := store.Migrate(d.Candles.Table, d.Indicators.Table); err != nil {
				store.Close()
				return nil, fmt.Errorf("migrate: %w", err)
			}
		}
		return recorder.NewWriter(store, d.ChunkSize), nil
	default:
		log.Println("[WARN] destination driver none: rows are discarded")
		return recorder.NewNoopDestination(), nil
	}
}

func tables(cfg *config.Config) ingest.Tables {
	d := cfg.Destination
	return ingest.Tables{
		Candles: recorder.Table{
			Name:          d.Candles.Table,
			ConflictKey:   recorder.ParseConflictKey(d.Candles.ConflictKey),
			TimeColumn:    projector.ColStart,
			KeyedBySymbol: *d.Candles.KeyedBySymbol,
		},
		Indicators: recorder.Table{
			Name:          d.Indicators.Table,
			ConflictKey:   recorder.ParseConflictKey(d.Indicators.ConflictKey),
			TimeColumn:    projector.ColLastTs,
			KeyedBySymbol: *d.Indicators.KeyedBySymbol,
		},
		CandleTimeMode:    d.Candles.TimeType,
		IndicatorTimeMode: d.Indicators.TimeType,
	}
}
