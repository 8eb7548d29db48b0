package metrics

import (
	"context"
	"database/sql"
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	goredis "github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the trading engine.
type Metrics struct {
	TicksTotal     *prometheus.CounterVec // labels: symbol
	TicksSkipped   *prometheus.CounterVec // labels: symbol, reason
	PipelineDur    prometheus.Histogram
	DecisionsTotal *prometheus.CounterVec // labels: action, source

	// Decision cache
	CacheHits   prometheus.Counter
	CacheMisses prometheus.Counter

	// Advisor
	AdvisorLatency  prometheus.Histogram
	AdvisorFailures prometheus.Counter
	AdvisorOverride prometheus.Counter

	// Risk engine
	RiskDenialsTotal *prometheus.CounterVec // labels: rule
	SizeAdjustments  prometheus.Counter

	// Trading activity
	TradesOpened     *prometheus.CounterVec // labels: symbol, side
	TradesClosed     *prometheus.CounterVec // labels: symbol, trigger
	StrategySwitches prometheus.Counter

	// Portfolio state
	Equity   prometheus.Gauge
	DailyPnL prometheus.Gauge
	Exposure prometheus.Gauge
	Drawdown prometheus.Gauge

	// Persistence
	SQLiteCommitDur prometheus.Histogram
	RedisWriteDur   prometheus.Histogram

	// Circuit breaker on the secondary event store
	RedisCircuitBreakerState prometheus.Gauge // 0=closed, 1=open, 2=half-open
	RedisCircuitBreakerTrips prometheus.Counter
	RedisBufferedWrites      prometheus.Counter
}

// NewMetrics registers and returns all Prometheus metrics.
func NewMetrics() *Metrics {
	m := &Metrics{
		TicksTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "engine_ticks_total",
			Help: "Decision pipeline passes per symbol",
		}, []string{"symbol"}),
		TicksSkipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "engine_ticks_skipped_total",
			Help: "Ticks skipped (no data, short window, fetch error)",
		}, []string{"symbol", "reason"}),
		PipelineDur: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "engine_pipeline_duration_seconds",
			Help:    "Full decision pipeline latency per tick",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 15},
		}),
		DecisionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "engine_decisions_total",
			Help: "Final decisions by action and source",
		}, []string{"action", "source"}),

		CacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "engine_decision_cache_hits_total",
			Help: "Decision cache hits (unchanged market fingerprint)",
		}),
		CacheMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "engine_decision_cache_misses_total",
			Help: "Decision cache misses",
		}),

		AdvisorLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "engine_advisor_latency_seconds",
			Help:    "External advisor round-trip latency",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 15},
		}),
		AdvisorFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "engine_advisor_failures_total",
			Help: "Advisor calls that errored, timed out, or returned garbage",
		}),
		AdvisorOverride: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "engine_advisor_overrides_total",
			Help: "Times the advisor decision replaced the local one",
		}),

		RiskDenialsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "engine_risk_denials_total",
			Help: "Decisions blocked by the risk engine, by rule",
		}, []string{"rule"}),
		SizeAdjustments: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "engine_size_adjustments_total",
			Help: "Decisions whose size was shrunk by Kelly or limit capping",
		}),

		TradesOpened: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "engine_trades_opened_total",
			Help: "Positions opened by symbol and side",
		}, []string{"symbol", "side"}),
		TradesClosed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "engine_trades_closed_total",
			Help: "Positions closed by symbol and trigger",
		}, []string{"symbol", "trigger"}),
		StrategySwitches: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "engine_strategy_switches_total",
			Help: "Generator switches recorded by the selector",
		}),

		Equity: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "engine_equity",
			Help: "Current account equity in quote currency",
		}),
		DailyPnL: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "engine_daily_pnl",
			Help: "Realized pnl since the last daily reset",
		}),
		Exposure: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "engine_exposure",
			Help: "Total notional of open positions",
		}),
		Drawdown: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "engine_drawdown_pct",
			Help: "Current drawdown from peak equity, percent",
		}),

		SQLiteCommitDur: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "engine_sqlite_commit_duration_seconds",
			Help:    "Trade journal commit latency",
			Buckets: prometheus.DefBuckets,
		}),
		RedisWriteDur: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "engine_redis_write_duration_seconds",
			Help:    "Secondary event store write latency",
			Buckets: prometheus.DefBuckets,
		}),

		RedisCircuitBreakerState: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "engine_redis_circuit_breaker_state",
			Help: "Redis circuit breaker state (0=closed, 1=open, 2=half-open)",
		}),
		RedisCircuitBreakerTrips: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "engine_redis_circuit_breaker_trips_total",
			Help: "Times the Redis circuit breaker tripped open",
		}),
		RedisBufferedWrites: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "engine_redis_buffered_writes_total",
			Help: "Writes buffered locally during Redis circuit breaker open state",
		}),
	}

	prometheus.MustRegister(
		m.TicksTotal,
		m.TicksSkipped,
		m.PipelineDur,
		m.DecisionsTotal,
		m.CacheHits,
		m.CacheMisses,
		m.AdvisorLatency,
		m.AdvisorFailures,
		m.AdvisorOverride,
		m.RiskDenialsTotal,
		m.SizeAdjustments,
		m.TradesOpened,
		m.TradesClosed,
		m.StrategySwitches,
		m.Equity,
		m.DailyPnL,
		m.Exposure,
		m.Drawdown,
		m.SQLiteCommitDur,
		m.RedisWriteDur,
		m.RedisCircuitBreakerState,
		m.RedisCircuitBreakerTrips,
		m.RedisBufferedWrites,
	)

	return m
}

// HealthStatus represents the system health.
type HealthStatus struct {
	mu sync.RWMutex

	MarketDataOK   bool      `json:"market_data_ok"`
	LastTickTime   time.Time `json:"last_tick_time"`
	RedisConnected bool      `json:"redis_connected"`
	SQLiteOK       bool      `json:"sqlite_ok"`
	AdvisorOK      bool      `json:"advisor_ok"`
	OpenPositions  int       `json:"open_positions"`

	// Liveness probe results
	RedisLatencyMs  float64   `json:"redis_latency_ms"`
	SQLiteLatencyMs float64   `json:"sqlite_latency_ms"`
	LastCheckAt     time.Time `json:"last_check_at"`
	StartedAt       time.Time `json:"started_at"`
}

// NewHealthStatus returns a default health status.
func NewHealthStatus() *HealthStatus {
	return &HealthStatus{
		StartedAt: time.Now(),
	}
}

func (h *HealthStatus) SetMarketDataOK(v bool) {
	h.mu.Lock()
	h.MarketDataOK = v
	h.mu.Unlock()
}

func (h *HealthStatus) SetLastTickTime(t time.Time) {
	h.mu.Lock()
	h.LastTickTime = t
	h.mu.Unlock()
}

func (h *HealthStatus) SetRedisConnected(v bool) {
	h.mu.Lock()
	h.RedisConnected = v
	h.mu.Unlock()
}

func (h *HealthStatus) SetSQLiteOK(v bool) {
	h.mu.Lock()
	h.SQLiteOK = v
	h.mu.Unlock()
}

func (h *HealthStatus) SetAdvisorOK(v bool) {
	h.mu.Lock()
	h.AdvisorOK = v
	h.mu.Unlock()
}

func (h *HealthStatus) SetOpenPositions(n int) {
	h.mu.Lock()
	h.OpenPositions = n
	h.mu.Unlock()
}

// CheckRedis pings Redis and records latency + connectivity.
func (h *HealthStatus) CheckRedis(ctx context.Context, rdb *goredis.Client) {
	start := time.Now()
	err := rdb.Ping(ctx).Err()
	latency := time.Since(start)

	h.mu.Lock()
	h.RedisConnected = err == nil
	h.RedisLatencyMs = float64(latency.Microseconds()) / 1000.0
	h.LastCheckAt = time.Now()
	h.mu.Unlock()
}

// CheckSQLite runs a trivial query and records latency + health.
func (h *HealthStatus) CheckSQLite(ctx context.Context, db *sql.DB) {
	start := time.Now()
	err := db.PingContext(ctx)
	latency := time.Since(start)

	h.mu.Lock()
	h.SQLiteOK = err == nil
	h.SQLiteLatencyMs = float64(latency.Microseconds()) / 1000.0
	h.LastCheckAt = time.Now()
	h.mu.Unlock()
}

// StartLivenessChecker runs periodic dependency checks.
func (h *HealthStatus) StartLivenessChecker(ctx context.Context, rdb *goredis.Client, sqlDB *sql.DB, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				probeCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
				if rdb != nil {
					h.CheckRedis(probeCtx, rdb)
				}
				if sqlDB != nil {
					h.CheckSQLite(probeCtx, sqlDB)
				}
				cancel()
			}
		}
	}()
}

// ServeHTTP handles the /healthz endpoint.
func (h *HealthStatus) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	// Determine overall status. The journal is load-bearing: trading halts
	// without it. Redis and the advisor only degrade the service.
	overallStatus := "healthy"
	httpCode := http.StatusOK

	if !h.MarketDataOK || !h.RedisConnected || !h.AdvisorOK {
		overallStatus = "degraded"
		httpCode = http.StatusServiceUnavailable
	}
	if !h.SQLiteOK {
		overallStatus = "unhealthy"
		httpCode = http.StatusServiceUnavailable
	}

	// Tick age
	tickAge := ""
	if !h.LastTickTime.IsZero() {
		tickAge = time.Since(h.LastTickTime).Round(time.Millisecond).String()
	}

	status := struct {
		Status          string  `json:"status"`
		Uptime          string  `json:"uptime"`
		MarketDataOK    bool    `json:"market_data_ok"`
		LastTickTime    string  `json:"last_tick_time"`
		TickAge         string  `json:"tick_age"`
		RedisConnected  bool    `json:"redis_connected"`
		RedisLatencyMs  float64 `json:"redis_latency_ms"`
		SQLiteOK        bool    `json:"sqlite_ok"`
		SQLiteLatencyMs float64 `json:"sqlite_latency_ms"`
		AdvisorOK       bool    `json:"advisor_ok"`
		OpenPositions   int     `json:"open_positions"`
		LastCheckAt     string  `json:"last_check_at"`
	}{
		Status:          overallStatus,
		Uptime:          time.Since(h.StartedAt).Round(time.Second).String(),
		MarketDataOK:    h.MarketDataOK,
		LastTickTime:    h.LastTickTime.Format(time.RFC3339),
		TickAge:         tickAge,
		RedisConnected:  h.RedisConnected,
		RedisLatencyMs:  h.RedisLatencyMs,
		SQLiteOK:        h.SQLiteOK,
		SQLiteLatencyMs: h.SQLiteLatencyMs,
		AdvisorOK:       h.AdvisorOK,
		OpenPositions:   h.OpenPositions,
		LastCheckAt:     h.LastCheckAt.Format(time.RFC3339),
	}

	w.Header().Set("Content-Type", "application/json")
	if httpCode != http.StatusOK {
		w.WriteHeader(httpCode)
	}
	json.NewEncoder(w).Encode(status)
}

// Server runs an HTTP server exposing /metrics and /healthz.
type Server struct {
	health *HealthStatus
	addr   string
	mux    *http.ServeMux
	srv    *http.Server
}

// NewServer creates a metrics and health server.
func NewServer(addr string, health *HealthStatus) *Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", health.ServeHTTP)

	return &Server{
		health: health,
		addr:   addr,
		mux:    mux,
		srv: &http.Server{
			Addr:    addr,
			Handler: mux,
		},
	}
}

// Handle registers an extra route (e.g. a websocket feed) before Start.
func (s *Server) Handle(pattern string, h http.Handler) {
	s.mux.Handle(pattern, h)
}

// Start launches the HTTP server in a goroutine.
func (s *Server) Start() {
	go func() {
		log.Printf("[metrics] server listening on %s", s.addr)
		if err := s.srv.ListenAndServe(); err != http.ErrServerClosed {
			log.Printf("[metrics] server error: %v", err)
		}
	}()
}

// Stop gracefully shuts down the metrics server.
func (s *Server) Stop(ctx context.Context) {
	s.srv.Shutdown(ctx)
}
