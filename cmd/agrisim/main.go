package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alejandrodnm/agrisim/config"
	"github.com/alejandrodnm/agrisim/internal/adapters/marketdata"
	"github.com/alejandrodnm/agrisim/internal/adapters/metrics"
	"github.com/alejandrodnm/agrisim/internal/adapters/notify"
	"github.com/alejandrodnm/agrisim/internal/adapters/storage"
	"github.com/alejandrodnm/agrisim/internal/adapters/tracing"
	"github.com/alejandrodnm/agrisim/internal/application/engine"
	"github.com/alejandrodnm/agrisim/internal/domain"
	"github.com/alejandrodnm/agrisim/internal/ports"
)

// Exit codes.
const (
	exitOK      = 0
	exitFailure = 1
	exitInput   = 2
)

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", "config/config.yaml", "path to config file")
	requestPath := flag.String("request", "", "path to the analysis request (YAML or JSON)")
	seed := flag.Uint64("seed", 0, "RNG seed (overrides the request; makes the run reproducible)")
	table := flag.Bool("table", false, "print full tables (default: compact 1-line)")
	verbose := flag.Bool("verbose", false, "set log level to debug")
	format := flag.String("format", "text", "output format: text|json")
	logFormat := flag.String("log-format", "", "log format: text|json (overrides config)")
	dryRun := flag.Bool("dry-run", false, "use the market fixtures file and skip storage")
	metricsAddr := flag.String("metrics-addr", "", "serve Prometheus /metrics on this address (overrides config)")
	history := flag.Bool("history", false, "list stored analyses and exit")
	show := flag.String("show", "", "print a stored analysis by ID and exit")
	trend := flag.String("trend", "", "print the stored profit trend of a scenario ID (needs -crop) and exit")
	crop := flag.String("crop", "", "crop filter for -history and -trend")
	limit := flag.Int("limit", 20, "max rows for -history and -trend")
	flag.Parse()

	seedSet := false
	flag.Visit(func(f *flag.Flag) {
		if f.Name == "seed" {
			seedSet = true
		}
	})

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "err", err, "path", *configPath)
		return exitFailure
	}

	if *verbose {
		cfg.Log.Level = "debug"
	}
	if *logFormat != "" {
		cfg.Log.Format = *logFormat
	}
	if *metricsAddr != "" {
		cfg.Metrics.Addr = *metricsAddr
	}
	// Con salida JSON el log va a stderr para no mezclarse con el resultado.
	logOut := os.Stdout
	if *format == "json" {
		logOut = os.Stderr
	}
	setupLogger(cfg.Log, logOut)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	console := notify.NewConsole(*table)

	// Consultas sobre el histórico: no necesitan engine.
	if *history || *show != "" || *trend != "" {
		store, err := storage.NewSQLiteStorage(cfg.Storage.DSN)
		if err != nil {
			slog.Error("failed to open storage", "err", err, "dsn", cfg.Storage.DSN)
			return exitFailure
		}
		defer store.Close()
		return runHistory(ctx, store, console, historyQuery{
			showID:  *show,
			trendID: *trend,
			crop:    *crop,
			limit:   *limit,
			jsonOut: *format == "json",
		})
	}

	if *requestPath == "" {
		slog.Error("missing -request")
		flag.Usage()
		return exitInput
	}
	req, err := loadRequest(*requestPath)
	if err != nil {
		slog.Error("failed to load request", "err", err, "path", *requestPath)
		return exitInput
	}
	if seedSet {
		s := *seed
		req.Seed = &s
	}

	slog.Info("agrisim starting",
		"config", *configPath,
		"request", *requestPath,
		"crop", req.CropType,
		"dry_run", *dryRun,
		"seeded", req.Seed != nil,
	)

	shutdownTracer, err := tracing.InitTracer(cfg.Tracing.OTLPEndpoint, cfg.Tracing.Insecure)
	if err != nil {
		slog.Warn("tracing disabled", "err", err)
	}
	defer shutdownTracer()

	var engMetrics ports.Metrics = ports.NopMetrics{}
	if cfg.Metrics.Addr != "" {
		prom := metrics.NewPrometheus()
		engMetrics = prom
		stop := serveMetrics(cfg.Metrics.Addr, prom.Handler())
		defer stop()
	}

	market, err := newMarketProvider(cfg.Market, *dryRun)
	if err != nil {
		slog.Error("failed to set up market data", "err", err)
		return exitFailure
	}

	var store ports.AnalysisStorage
	if !*dryRun {
		s, err := storage.NewSQLiteStorage(cfg.Storage.DSN)
		if err != nil {
			slog.Error("failed to open storage", "err", err, "dsn", cfg.Storage.DSN)
			return exitFailure
		}
		defer s.Close()
		store = s
	}

	var notifier ports.Notifier
	if *format != "json" {
		notifier = console
	}

	eng := engine.New(engineConfig(cfg), market, store, notifier, engMetrics)

	result, err := eng.Analyze(ctx, req)
	if err != nil {
		slog.Error("analysis failed", "err", err)
		if domain.IsInputError(err) || domain.IsDataUnavailable(err) {
			return exitInput
		}
		return exitFailure
	}

	if *format == "json" {
		if code := writeJSON(result); code != exitOK {
			return code
		}
	}

	slog.Info("agrisim finished", "id", result.ID, "status", result.Status)
	return exitOK
}

// newMarketProvider elige el proveedor de precios: fixtures en dry-run o sin
// base_url, cliente HTTP en otro caso. Nil si no hay ninguno configurado; the
// request must then carry every price.
func newMarketProvider(cfg config.MarketConfig, dryRun bool) (ports.MarketDataProvider, error) {
	if dryRun || cfg.BaseURL == "" {
		if cfg.FixturesFile == "" {
			slog.Warn("no market data source configured; using request prices only")
			return nil, nil
		}
		static, err := marketdata.LoadStatic(cfg.FixturesFile)
		if err != nil {
			return nil, fmt.Errorf("newMarketProvider: %w", err)
		}
		slog.Info("market data from fixtures", "file", cfg.FixturesFile)
		return static, nil
	}
	slog.Info("market data from HTTP feed", "base_url", cfg.BaseURL)
	return marketdata.NewClient(marketdata.Config{
		BaseURL:    cfg.BaseURL,
		RatePerSec: cfg.RatePerSec,
		Burst:      cfg.Burst,
		RetryMax:   cfg.RetryMax,
		Timeout:    cfg.Timeout,
	}), nil
}

// serveMetrics arranca /metrics en background y devuelve la función de parada.
func serveMetrics(addr string, h http.Handler) func() {
	mux := http.NewServeMux()
	mux.Handle("/metrics", h)
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		slog.Info("metrics endpoint listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Warn("metrics server stopped", "err", err)
		}
	}()

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}
}

func setupLogger(cfg config.LogConfig, out *os.File) {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(out, opts)
	} else {
		handler = slog.NewTextHandler(out, opts)
	}
	slog.SetDefault(slog.New(handler))
}
