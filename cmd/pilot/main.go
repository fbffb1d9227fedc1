package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/amedina/polypilot/config"
	"github.com/amedina/polypilot/internal/adapters/notify"
	"github.com/amedina/polypilot/internal/adapters/polymarket"
	"github.com/amedina/polypilot/internal/adapters/storage"
	"github.com/amedina/polypilot/internal/pipeline"
	"github.com/amedina/polypilot/internal/ports"
	"github.com/amedina/polypilot/internal/registry"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to config file")
	once := flag.Bool("once", false, "run one decision cycle and exit")
	verbose := flag.Bool("verbose", false, "set log level to debug")
	logFormat := flag.String("format", "", "log format: text|json (overrides config)")
	table := flag.Bool("table", false, "print ranked candidates as a table (default: compact 1-line)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "err", err, "path", *configPath)
		os.Exit(1)
	}

	if *verbose {
		cfg.Log.Level = "debug"
	}
	if *logFormat != "" {
		cfg.Log.Format = *logFormat
	}
	setupLogger(cfg.Log)

	slog.Info("polypilot starting",
		"config", *configPath,
		"interval", cfg.CycleInterval(),
		"once", *once,
		"tags", cfg.Pipeline.Tags,
	)

	client := polymarket.NewClient(cfg.API.CLOBBase, cfg.API.GammaBase)
	catalog := polymarket.NewCatalog(client)

	balance, err := polymarket.NewOnchainBalance(cfg.Exchange.RPCURL, cfg.Exchange.FunderAddress)
	if err != nil {
		slog.Error("failed to set up balance reader", "err", err)
		os.Exit(1)
	}
	exchange := polymarket.NewExchange(client, balance)

	audit, err := storage.NewSQLiteAudit(cfg.Storage.AuditDSN)
	if err != nil {
		slog.Error("failed to open audit log", "err", err, "dsn", cfg.Storage.AuditDSN)
		os.Exit(1)
	}
	defer audit.Close()

	seen := registry.New(registry.NewFileStore(cfg.Storage.SeenPath))

	var estimator ports.ViabilityEstimator
	if cfg.API.EstimatorURL != "" {
		estimator = polymarket.NewHTTPEstimator(client, cfg.API.EstimatorURL)
	}

	selector := pipeline.NewSelector(estimator, seen,
		cfg.Pipeline.MinHoursToEnd, cfg.Pipeline.MaxHoursToEnd)
	gate := pipeline.NewGate(exchange, cfg.Exchange.Asset)
	executor := pipeline.NewExecutor(exchange, seen, audit, cfg.SubmitTimeout())
	notifier := notify.NewConsole(*table, cfg.Pipeline.TopPreview)

	p := pipeline.New(catalog, selector, gate, executor, audit, notifier, pipeline.Config{
		EventLimit:    cfg.Pipeline.EventLimit,
		Tags:          cfg.Pipeline.Tags,
		MinHoursToEnd: cfg.Pipeline.MinHoursToEnd,
		MaxHoursToEnd: cfg.Pipeline.MaxHoursToEnd,
		OrderSize:     cfg.Pipeline.OrderSize,
	})

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	seen.Load(ctx)

	if *once {
		if _, err := p.RunCycle(ctx); err != nil {
			slog.Error("cycle failed", "err", err)
			os.Exit(1)
		}
		return
	}

	runLoop(ctx, p, cfg.CycleInterval())
	slog.Info("polypilot stopped cleanly")
}

// runLoop ejecuta ciclos a intervalo fijo hasta que el contexto se cancele.
// Un ciclo fallido no detiene el loop: el siguiente arranca limpio.
func runLoop(ctx context.Context, p *pipeline.Pipeline, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if _, err := p.RunCycle(ctx); err != nil {
			slog.Error("cycle failed", "err", err, "kind", pipeline.KindOf(err).String())
		}

		select {
		case <-ticker.C:
		case <-ctx.Done():
			return
		}
	}
}

func setupLogger(cfg config.LogConfig) {
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
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	slog.SetDefault(slog.New(handler))
}
