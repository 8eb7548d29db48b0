// cmd/tradebot is the live trading daemon: it polls Binance klines, runs the
// decision pipeline per symbol, journals trades to SQLite, publishes events
// to Redis and websocket clients, and exposes Prometheus metrics and health.
//
// Configuration is environment-driven; see config.Load for the variables.
package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	goredis "github.com/go-redis/redis/v8"

	"trading-enginev1/config"
	"trading-enginev1/internal/advisor"
	"trading-enginev1/internal/engine"
	"trading-enginev1/internal/ledger"
	"trading-enginev1/internal/logger"
	"trading-enginev1/internal/marketdata"
	"trading-enginev1/internal/metrics"
	"trading-enginev1/internal/notification"
	redisstore "trading-enginev1/internal/store/redis"
	sqlitestore "trading-enginev1/internal/store/sqlite"
)

func main() {
	log := logger.Init("tradebot", slog.LevelInfo)
	cfg := config.Load()
	symbols := cfg.ParseSymbols()
	if len(symbols) == 0 {
		log.Error("no symbols configured")
		os.Exit(1)
	}
	log.Info("starting",
		slog.String("strategy", cfg.StrategyID),
		slog.Any("symbols", symbols),
		slog.String("interval", cfg.Interval))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	met := metrics.NewMetrics()
	health := metrics.NewHealthStatus()

	// ---- SQLite journal (load-bearing: refuse to start without it) ----
	journal, err := sqlitestore.NewJournal(cfg.SQLitePath, met, log)
	if err != nil {
		log.Error("sqlite journal open failed", slog.Any("error", err))
		os.Exit(1)
	}
	defer journal.Close()
	health.SetSQLiteOK(true)

	// ---- Redis event feed (optional: degrade to buffering, then to none) ----
	var events *redisstore.BufferedWriter
	var redisClient *goredis.Client
	if cfg.RedisAddr != "" {
		w, err := redisstore.New(redisstore.WriterConfig{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
		}, log)
		if err != nil {
			log.Warn("redis unavailable, event feed disabled", slog.Any("error", err))
		} else {
			cb := redisstore.NewCircuitBreaker(5, 30*time.Second)
			cb.OnStateChange = func(_, to redisstore.State) {
				met.RedisCircuitBreakerState.Set(float64(to))
				if to == redisstore.StateOpen {
					met.RedisCircuitBreakerTrips.Inc()
				}
			}
			events = redisstore.NewBufferedWriter(w, cb, 10000, log)
			events.OnBuffer = met.RedisBufferedWrites.Inc
			redisClient = w.Client()
			health.SetRedisConnected(true)
		}
	}

	// ---- Notifications ----
	notifiers := []notification.Notifier{notification.NewLogNotifier(log)}
	if cfg.TelegramBotToken != "" && cfg.TelegramChatID != "" {
		notifiers = append(notifiers, notification.NewTelegramNotifier(cfg.TelegramBotToken, cfg.TelegramChatID))
	}
	if cfg.WebhookURL != "" {
		notifiers = append(notifiers, notification.NewWebhookNotifier(cfg.WebhookURL))
	}
	dispatcher := notification.NewDispatcher(log, notifiers...)
	defer dispatcher.Stop()

	hub := notification.NewHub(log)

	// ---- Advisor (optional) ----
	var adv advisor.Advisor
	if cfg.AdvisorAPIKey != "" {
		llm, err := advisor.NewLLM(advisor.Config{
			APIKey:  cfg.AdvisorAPIKey,
			BaseURL: cfg.AdvisorBaseURL,
			Model:   cfg.AdvisorModel,
			Timeout: cfg.AdvisorTimeout,
		})
		if err != nil {
			log.Warn("advisor init failed, running local-only", slog.Any("error", err))
		} else {
			adv = llm
			health.SetAdvisorOK(true)
			log.Info("advisor enabled", slog.String("model", cfg.AdvisorModel))
		}
	}

	// ---- Ledger with restart recovery ----
	led := ledger.New(cfg.StrategyID, cfg.InitialEquity, cfg.FeeRatePct/100, journal)
	if open, err := journal.OpenTrades(cfg.StrategyID); err != nil {
		log.Warn("open trade recovery failed", slog.Any("error", err))
	} else if n := led.Restore(open); n > 0 {
		log.Info("restored open positions", slog.Int("count", n))
	}

	// ---- Session and live loop ----
	sessCfg := engine.DefaultSessionConfig(cfg.StrategyID, symbols)
	sessCfg.WindowSize = cfg.WindowSize
	sessCfg.SlippagePct = cfg.SlippagePct
	session := engine.NewSession(sessCfg, led, engine.Deps{
		Advisor:    adv,
		Metrics:    met,
		Dispatcher: dispatcher,
		Hub:        hub,
		Events:     events,
		Journal:    journal,
	}, log)

	provider := marketdata.NewBinance(cfg.BinanceAPIKey, cfg.BinanceSecretKey, log)
	registry := engine.NewRegistry(log)
	if err := registry.Start(ctx, session, provider, engine.LiveConfig{
		Interval:     cfg.Interval,
		PollInterval: cfg.PollInterval,
		Health:       health,
	}); err != nil {
		log.Error("session start failed", slog.Any("error", err))
		os.Exit(1)
	}

	// ---- Metrics, health, and websocket feed ----
	srv := metrics.NewServer(cfg.MetricsAddr, health)
	srv.Handle("/ws", http.HandlerFunc(hub.HandleWS))
	srv.Start()
	health.StartLivenessChecker(ctx, redisClient, journal.DB(), 15*time.Second)

	// ---- Wait for shutdown ----
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	log.Info("shutting down", slog.String("signal", sig.String()))

	registry.StopAll()
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	srv.Stop(shutdownCtx)
	if events != nil {
		if n := events.PendingCount(); n > 0 {
			log.Warn("unflushed redis events on shutdown", slog.Int("count", n))
		}
	}
	log.Info("stopped")
}
