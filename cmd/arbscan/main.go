package main

import (
	"context"
	"flag"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alejandrodnm/arbscan/config"
	"github.com/alejandrodnm/arbscan/internal/adapters/apiclient"
	"github.com/alejandrodnm/arbscan/internal/adapters/notify"
	"github.com/alejandrodnm/arbscan/internal/adapters/oracle"
	"github.com/alejandrodnm/arbscan/internal/adapters/subgraph"
	"github.com/alejandrodnm/arbscan/internal/application/scanner"
	"github.com/alejandrodnm/arbscan/internal/metrics"
	"gopkg.in/natefinch/lumberjack.v2"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

// run ejecuta arbscan y devuelve el código de salida. Todo lo abierto se
// cierra con defer antes de volver, incluso si el scanner falla.
func run(args []string) int {
	fs := flag.NewFlagSet("arbscan", flag.ContinueOnError)
	configPath := fs.String("config", "config/config.yaml", "path to config file")
	once := fs.Bool("once", false, "run one scan cycle and exit")
	dryRun := fs.Bool("dry-run", false, "print results only, skip every sink")
	verbose := fs.Bool("verbose", false, "set log level to debug")
	logFormat := fs.String("format", "", "log format: text|json (overrides config)")
	table := fs.Bool("table", false, "print full opportunity table (default: compact 1-line)")
	symbols := fs.String("symbols", "", "comma-separated symbols (overrides config)")
	history := fs.Duration("history", 0, "print opportunities stored in the last window (e.g. 24h) and exit")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "err", err, "path", *configPath)
		return 1
	}

	if *verbose {
		cfg.Log.Level = "debug"
	}
	if *logFormat != "" {
		cfg.Log.Format = *logFormat
	}
	if *symbols != "" {
		cfg.Scanner.Symbols = config.SplitSymbols(*symbols)
	}
	closeLog := setupLogger(cfg.Log)
	defer closeLog()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	notifier := notify.NewConsole(*table)

	if *history > 0 {
		if err := printHistory(ctx, cfg.Storage.DSN, *history, notifier); err != nil {
			slog.Error("history query failed", "err", err)
			return 1
		}
		return 0
	}

	slog.Info("arbscan starting",
		"config", *configPath,
		"interval", cfg.ScanInterval(),
		"symbols", cfg.Scanner.Symbols,
		"dry_run", *dryRun,
		"once", *once,
	)

	m := metrics.New()
	if cfg.Metrics.Enabled {
		go func() {
			if err := m.Serve(ctx, cfg.Metrics.Addr); err != nil {
				slog.Error("metrics server failed", "err", err, "addr", cfg.Metrics.Addr)
			}
		}()
	}

	oracleAPI := apiclient.New(apiclient.Options{
		Timeout:    cfg.FetchTimeout(),
		RatePerSec: cfg.API.OracleRatePerSec,
		MaxRetries: cfg.API.Retries,
	})
	subgraphHeaders := map[string]string{}
	if cfg.API.SubgraphAPIKey != "" {
		subgraphHeaders["Authorization"] = "Bearer " + cfg.API.SubgraphAPIKey
	}
	subgraphAPI := apiclient.New(apiclient.Options{
		Timeout:    cfg.FetchTimeout(),
		RatePerSec: cfg.API.SubgraphRatePerSec,
		MaxRetries: cfg.API.Retries,
		Headers:    subgraphHeaders,
	})

	oracleClient := oracle.NewClient(oracleAPI, cfg.API.OracleBase, cfg.API.OracleFeeds)
	poolClient := subgraph.NewClient(subgraphAPI, cfg.API.SubgraphURL, cfg.API.PoolsPerQuery)

	var sinks *sinkSet
	if !*dryRun {
		sinks, err = buildSinks(ctx, cfg, m)
		if err != nil {
			slog.Error("failed to set up sinks", "err", err)
			return 1
		}
		defer sinks.Close()
	}

	scanCfg := scanner.Config{
		ScanInterval: cfg.ScanInterval(),
		Symbols:      cfg.Scanner.Symbols,
		FetchWorkers: cfg.Scanner.FetchWorkers,
		FetchTimeout: cfg.FetchTimeout(),
		Once:         *once,
		Detector: scanner.DetectorConfig{
			Filter: scanner.FilterConfig{
				MinSpreadPercentage: cfg.Analysis.MinSpreadPercentage,
				MinConfidence:       cfg.Analysis.MinConfidence,
				MaxPriceAge:         cfg.MaxPriceAge(),
			},
			NotionalTradeSize: cfg.Analysis.NotionalTradeSize,
			QuoteSymbol:       cfg.Scanner.QuoteSymbol,
		},
	}

	s := scanner.New(scanCfg, oracleClient, poolClient, sinks.Sink(), notifier, m)

	if err := s.Run(ctx); err != nil {
		slog.Error("scanner exited with error", "err", err)
		return 1
	}

	slog.Info("arbscan stopped cleanly")
	return 0
}

// setupLogger configura slog. Con log.file además escribe en un archivo rotado.
func setupLogger(cfg config.LogConfig) func() {
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

	var out io.Writer = os.Stdout
	closeFn := func() {}
	if cfg.File != "" {
		rotator := &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAgeDays,
			Compress:   true,
		}
		out = io.MultiWriter(os.Stdout, rotator)
		closeFn = func() { _ = rotator.Close() }
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(out, opts)
	} else {
		handler = slog.NewTextHandler(out, opts)
	}
	slog.SetDefault(slog.New(handler))
	return closeFn
}

// printHistory lee del histórico SQLite sin correr ningún ciclo.
func printHistory(ctx context.Context, dsn string, window time.Duration, c *notify.Console) error {
	store, err := openHistory(dsn)
	if err != nil {
		return err
	}
	defer store.Close()

	to := time.Now()
	opps, err := store.GetHistory(ctx, to.Add(-window), to)
	if err != nil {
		return err
	}
	c.PrintHistory(opps)
	return nil
}
